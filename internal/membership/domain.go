// Package membership owns the membership lifecycle: creation behind the shift
// capacity gate, status transitions with their financial side effects, and the
// scheduled invoice, expiration and reminder sweeps.
package membership

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/odyssey-erp/gymsuite/internal/billing"
	"github.com/odyssey-erp/gymsuite/internal/gym"
	"github.com/odyssey-erp/gymsuite/internal/shared"
)

var (
	// ErrRefundProcessed is returned when a refund was already issued.
	ErrRefundProcessed = fmt.Errorf("%w: refund already processed", shared.ErrValidation)
	// ErrJournalMissing is returned when no payment journal is configured for refunds.
	ErrJournalMissing = fmt.Errorf("%w: payment journal not configured", shared.ErrValidation)
	// ErrNothingToRefund is returned when the prorated refund is zero.
	ErrNothingToRefund = fmt.Errorf("%w: nothing to refund", shared.ErrValidation)
	// ErrProductMissing is returned when no service product can be invoiced.
	ErrProductMissing = fmt.Errorf("%w: membership has no service product", shared.ErrValidation)
	// ErrActiveDelete rejects deletion of an active membership.
	ErrActiveDelete = fmt.Errorf("%w: active memberships cannot be deleted", shared.ErrBusinessRule)
)

// Membership is a member's subscription to a shift.
type Membership struct {
	ID               int64                  `json:"id"`
	Code             string                 `json:"code"`
	CompanyID        int64                  `json:"company_id"`
	MemberID         int64                  `json:"member_id"`
	BranchID         int64                  `json:"branch_id"`
	ShiftID          int64                  `json:"shift_id"`
	Gender           gym.Gender             `json:"gender"`
	ServiceProductID int64                  `json:"service_product_id"`
	VariantID        *int64                 `json:"variant_id,omitempty"`
	Amount           decimal.Decimal        `json:"amount"`
	DiscountPercent  decimal.Decimal        `json:"discount_percent"`
	Unit             billing.RecurrenceUnit `json:"recurrence_unit"`
	Interval         int                    `json:"recurrence_interval"`
	StartDate        time.Time              `json:"start_date"`
	NextInvoiceDate  *time.Time             `json:"next_invoice_date,omitempty"`
	AutoInvoice      bool                   `json:"auto_invoice"`
	Status           billing.Status         `json:"status"`
	StateName        string                 `json:"state"`
	Refunded         bool                   `json:"refunded"`
	RefundDue        decimal.Decimal        `json:"refund_due"`
	CreatedBy        int64                  `json:"created_by"`
	CreatedAt        time.Time              `json:"created_at"`
	UpdatedAt        time.Time              `json:"updated_at"`
}

// Schedule returns the billing view of the membership.
func (m Membership) Schedule() billing.Schedule {
	return billing.Schedule{
		StartDate:       m.StartDate,
		Unit:            m.Unit,
		Interval:        m.Interval,
		NextInvoiceDate: m.NextInvoiceDate,
		BaseAmount:      m.Amount,
		DiscountPercent: m.DiscountPercent,
		Status:          m.Status,
	}
}

// DiscountedAmount is the per-period price after discount.
func (m Membership) DiscountedAmount() decimal.Decimal {
	return m.Schedule().DiscountedAmount()
}

// CreateRequest opens a membership for a member on a shift.
type CreateRequest struct {
	MemberID        int64                  `json:"member_id" validate:"required,gt=0"`
	ShiftID         int64                  `json:"shift_id" validate:"required,gt=0"`
	Unit            billing.RecurrenceUnit `json:"recurrence_unit" validate:"required"`
	Interval        int                    `json:"recurrence_interval" validate:"gte=0,lte=36"`
	DiscountPercent decimal.Decimal        `json:"discount_percent"`
	StartDate       *time.Time             `json:"start_date,omitempty"`
	AutoInvoice     *bool                  `json:"auto_invoice,omitempty"`
}

// ListFilter narrows membership listings.
type ListFilter struct {
	BranchID  int64
	BranchIDs []int64
	ShiftID   int64
	MemberID  int64
	Status    billing.Status
	Unit      billing.RecurrenceUnit
	Limit     int
	Offset    int
}

// Activity is a follow-up reminder assigned to a user.
type Activity struct {
	ID           int64     `json:"id"`
	MembershipID int64     `json:"membership_id"`
	UserID       int64     `json:"user_id"`
	Summary      string    `json:"summary"`
	Note         string    `json:"note"`
	DueDate      time.Time `json:"due_date"`
	CreatedAt    time.Time `json:"created_at"`
}

// ReminderCandidate is an active membership nearing its cursor, joined with
// the contact details the reminder needs.
type ReminderCandidate struct {
	Membership
	MemberName    string
	MemberPhone   string
	MemberEmail   string
	BranchName    string
	BranchManager int64
}

// SweepResult summarises one sweep run.
type SweepResult struct {
	Job       string `json:"job"`
	Processed int    `json:"processed"`
	Succeeded int    `json:"succeeded"`
	Failed    int    `json:"failed"`
	Skipped   int    `json:"skipped"`
}

// NotificationData is exposed to SMS templates.
type NotificationData struct {
	MemberName string
	Code       string
	Branch     string
	Amount     string
	ExpiryDate string
	Status     string
}
