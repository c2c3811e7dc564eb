package numbering

import "strings"

// VoucherKind identifies the logical type of an accounting voucher
type VoucherKind string

// Registered voucher kinds
const (
	KindPayment    VoucherKind = "payment"
	KindReceipt    VoucherKind = "receipt"
	KindSales      VoucherKind = "sales"
	KindPurchase   VoucherKind = "purchase"
	KindContra     VoucherKind = "contra"
	KindJournal    VoucherKind = "journal"
	KindCreditNote VoucherKind = "credit_note"
	KindDebitNote  VoucherKind = "debit_note"
)

// prefixes maps each registered voucher kind to its short alphabetic prefix.
// Adding a new kind is an edit here, not a schema change.
var prefixes = map[VoucherKind]string{
	KindPayment:    "PV",
	KindReceipt:    "RV",
	KindSales:      "SLV",
	KindPurchase:   "PRV",
	KindContra:     "CV",
	KindJournal:    "JV",
	KindCreditNote: "CRN",
	KindDebitNote:  "DBN",
}

// PrefixFor returns the display prefix for a voucher kind.
// Unregistered kinds fall back to the upper-cased kind itself so number
// generation stays total; the odd-looking prefix remains auditable.
func PrefixFor(kind VoucherKind) string {
	if p, ok := prefixes[kind]; ok {
		return p
	}
	return strings.ToUpper(string(kind))
}

// IsRegistered reports whether the kind has an explicit prefix entry
func (k VoucherKind) IsRegistered() bool {
	_, ok := prefixes[k]
	return ok
}

// OwnerKind identifies the acting principal a voucher sequence belongs to:
// a direct account holder or an accountant-employee acting for a tenant
type OwnerKind string

const (
	OwnerUser     OwnerKind = "user"
	OwnerEmployee OwnerKind = "employee"
)

// IsValid reports whether the owner kind is one of the known principals
func (o OwnerKind) IsValid() bool {
	return o == OwnerUser || o == OwnerEmployee
}
