package invoicing

import (
	"time"

	"github.com/shopspring/decimal"
)

// DocumentType distinguishes customer invoices from refund credit notes.
type DocumentType string

const (
	TypeInvoice    DocumentType = "invoice"
	TypeCreditNote DocumentType = "credit_note"
)

// Prefix returns the number prefix used for the type.
func (t DocumentType) Prefix() string {
	if t == TypeCreditNote {
		return "RINV"
	}
	return "INV"
}

// Status enumerates document statuses.
type Status string

const (
	StatusDraft  Status = "draft"
	StatusPosted Status = "posted"
	StatusPaid   Status = "paid"
	StatusVoid   Status = "void"
)

// Document is an invoice or credit note.
type Document struct {
	ID           int64
	Number       string
	Type         DocumentType
	CompanyID    int64
	BranchID     int64
	MemberID     int64
	MembershipID *int64
	Date         time.Time
	Currency     string
	Subtotal     decimal.Decimal
	Discount     decimal.Decimal
	Total        decimal.Decimal
	Paid         decimal.Decimal
	Status       Status
	Lines        []Line
	PostedAt     *time.Time
	CreatedBy    int64
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// Balance is the amount still open.
func (d Document) Balance() decimal.Decimal {
	return d.Total.Sub(d.Paid)
}

// Line is a document line.
type Line struct {
	ID          int64
	DocumentID  int64
	ProductID   int64
	Description string
	Quantity    decimal.Decimal
	UnitPrice   decimal.Decimal
	DiscountPct decimal.Decimal
	Subtotal    decimal.Decimal
	Total       decimal.Decimal
}

// LineInput describes one line of a new document.
type LineInput struct {
	ProductID   int64
	Description string
	Quantity    decimal.Decimal
	UnitPrice   decimal.Decimal
	DiscountPct decimal.Decimal
}

// DocumentInput creates a document.
type DocumentInput struct {
	Type         DocumentType
	CompanyID    int64
	BranchID     int64
	MemberID     int64
	MembershipID *int64
	Date         time.Time
	Currency     string
	Lines        []LineInput
	CreatedBy    int64
}

// Payment records money received or paid out against a document.
type Payment struct {
	ID         int64
	DocumentID int64
	Journal    string
	Amount     decimal.Decimal
	PaidAt     time.Time
	Memo       string
	CreatedBy  int64
	CreatedAt  time.Time
}

// PaymentInput registers a payment.
type PaymentInput struct {
	DocumentID int64
	Journal    string
	Amount     decimal.Decimal
	PaidAt     time.Time
	Memo       string
	CreatedBy  int64
}

// ListFilter narrows document listings.
type ListFilter struct {
	Type         DocumentType
	Status       Status
	MemberID     int64
	MembershipID int64
	BranchIDs    []int64
	From         time.Time
	To           time.Time
	Limit        int
	Offset       int
}

// MonthlyTotal sums posted documents per calendar month.
type MonthlyTotal struct {
	Month time.Time
	Total decimal.Decimal
	Count int
}
