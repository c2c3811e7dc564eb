package numbering

import (
	"fmt"

	"github.com/ledgerkeep/backend/internal/domain/shared"
)

// FormatVoucherNumber composes the final display number:
// PREFIX/FY/MM/NNNNNN with the month zero-padded to two digits and the
// counter zero-padded to six. A zero or negative counter and an out-of-range
// month are contract violations by the caller, rejected as invalid input.
func FormatVoucherNumber(prefix, fiscalYear string, fiscalMonth int, counter int64) (string, error) {
	if prefix == "" {
		return "", shared.NewDomainError("INVALID_PREFIX", "Voucher prefix cannot be empty")
	}
	if fiscalYear == "" {
		return "", shared.NewDomainError("INVALID_FISCAL_YEAR", "Fiscal year label cannot be empty")
	}
	if fiscalMonth < 1 || fiscalMonth > 12 {
		return "", shared.NewDomainError("INVALID_FISCAL_MONTH", fmt.Sprintf("Fiscal month %d is out of range 1-12", fiscalMonth))
	}
	if counter <= 0 {
		return "", shared.NewDomainError("INVALID_COUNTER", fmt.Sprintf("Voucher counter %d must be positive", counter))
	}

	return fmt.Sprintf("%s/%s/%02d/%06d", prefix, fiscalYear, fiscalMonth, counter), nil
}
