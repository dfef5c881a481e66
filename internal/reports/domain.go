// Package reports builds the membership, measurement and sales reports and
// their CSV exports.
package reports

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/odyssey-erp/gymsuite/internal/billing"
)

// MembershipFilter selects memberships for the membership report. Drafts are never included.
type MembershipFilter struct {
	BranchID int64
	ShiftID  int64
	Status   billing.Status
	Unit     billing.RecurrenceUnit
}

// MembershipRecord is the raw row read from storage.
type MembershipRecord struct {
	Code            string
	Branch          string
	Shift           string
	Gender          string
	State           string
	Service         string
	Unit            billing.RecurrenceUnit
	Amount          decimal.Decimal
	DiscountPercent decimal.Decimal
	RefundDue       decimal.Decimal
	Expiry          *time.Time
}

// MembershipRow is one report line.
type MembershipRow struct {
	Code       string          `json:"code"`
	Branch     string          `json:"branch"`
	Shift      string          `json:"shift"`
	Gender     string          `json:"gender"`
	State      string          `json:"state"`
	Service    string          `json:"service"`
	Package    string          `json:"package"`
	Amount     decimal.Decimal `json:"amount"`
	Discounted decimal.Decimal `json:"discounted"`
	Refunded   decimal.Decimal `json:"refunded"`
	Expiry     *time.Time      `json:"expiry,omitempty"`
}

// MembershipReport is the membership report with its totals.
type MembershipReport struct {
	Rows            []MembershipRow `json:"rows"`
	TotalAmount     decimal.Decimal `json:"total_amount"`
	TotalDiscounted decimal.Decimal `json:"total_discounted"`
	TotalRefunded   decimal.Decimal `json:"total_refunded"`
	NetProfit       decimal.Decimal `json:"net_profit"`
}

// MeasurementRow is one line of the measurement report.
type MeasurementRow struct {
	Date        time.Time `json:"date"`
	WeightKg    float64   `json:"weight_kg"`
	HeightCm    float64   `json:"height_cm"`
	BMI         float64   `json:"bmi"`
	BMICategory string    `json:"bmi_category"`
}

// MeasurementReport lists a member's measurements, newest first.
type MeasurementReport struct {
	MemberName string           `json:"member_name"`
	BranchName string           `json:"branch_name"`
	From       *time.Time       `json:"from,omitempty"`
	To         *time.Time       `json:"to,omitempty"`
	Rows       []MeasurementRow `json:"rows"`
}

// SalesReportType selects the report layout.
type SalesReportType string

const (
	SalesSummary SalesReportType = "summary"
	SalesDetail  SalesReportType = "detail"
)

// SalesGrouping selects the grouping key.
type SalesGrouping string

const (
	GroupByCustomer SalesGrouping = "customer"
	GroupByItem     SalesGrouping = "item"
)

// SalesFilter narrows the confirmed order lines of the sales report.
type SalesFilter struct {
	From             time.Time
	To               time.Time
	UserID           int64
	CompanyID        int64
	TeamID           int64
	CustomerID       int64
	ProductID        int64
	CategoryID       int64
	ParentCategoryID int64
	Type             SalesReportType
	GroupBy          SalesGrouping
}

// SalesLine is one confirmed order line.
type SalesLine struct {
	OrderDate    time.Time       `json:"order_date"`
	OrderName    string          `json:"order_name"`
	CustomerID   int64           `json:"customer_id"`
	Customer     string          `json:"customer"`
	ProductID    int64           `json:"product_id"`
	Product      string          `json:"product"`
	OrderedQty   decimal.Decimal `json:"ordered_qty"`
	DeliveredQty decimal.Decimal `json:"delivered_qty"`
	Rate         decimal.Decimal `json:"rate"`
	Amount       decimal.Decimal `json:"amount"`
	ToInvoiceQty decimal.Decimal `json:"to_invoice_qty"`
	InvoicedQty  decimal.Decimal `json:"invoiced_qty"`
}

// SalesSection aggregates the lines of one customer or product.
type SalesSection struct {
	Group             string          `json:"group"`
	TotalAmount       decimal.Decimal `json:"total_amount"`
	TotalOrderedQty   decimal.Decimal `json:"total_ordered_qty"`
	TotalDeliveredQty decimal.Decimal `json:"total_delivered_qty"`
	TotalToInvoiceQty decimal.Decimal `json:"total_to_invoice_qty"`
	TotalInvoicedQty  decimal.Decimal `json:"total_invoiced_qty"`
	Lines             []SalesLine     `json:"lines,omitempty"`
}

// SalesReport is the grouped sales report.
type SalesReport struct {
	Type     SalesReportType `json:"type"`
	GroupBy  SalesGrouping   `json:"group_by"`
	From     time.Time       `json:"from"`
	To       time.Time       `json:"to"`
	Sections []SalesSection  `json:"sections"`
	Total    decimal.Decimal `json:"total"`
}
