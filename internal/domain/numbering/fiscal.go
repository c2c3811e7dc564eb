package numbering

import (
	"fmt"
	"time"
)

// FiscalPeriod is the fiscal scope a voucher date resolves to
type FiscalPeriod struct {
	Year  string // label of the April-to-March fiscal year, e.g. "25-26"
	Month int    // plain calendar month, 1-12
}

// ResolveFiscalYear maps a calendar date onto the April-to-March fiscal
// calendar. Dates in January-March belong to the fiscal year that started the
// previous calendar year. The month is reported as the plain calendar month;
// no remapping, matching the convention used across the rest of the system.
// Time zone normalization is the caller's responsibility.
func ResolveFiscalYear(date time.Time) FiscalPeriod {
	year := date.Year()
	month := int(date.Month())

	start := year
	if month < int(time.April) {
		start = year - 1
	}

	return FiscalPeriod{
		Year:  fmt.Sprintf("%02d-%02d", start%100, (start+1)%100),
		Month: month,
	}
}
