package invoicing

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/odyssey-erp/gymsuite/internal/shared"
)

// RepositoryPort defines data access methods for invoicing.
type RepositoryPort interface {
	WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error
	Get(ctx context.Context, id int64) (*Document, error)
	List(ctx context.Context, filter ListFilter) ([]Document, error)
	HasPosted(ctx context.Context, membershipID int64, docType DocumentType) (bool, error)
	MonthlyPostedTotals(ctx context.Context, docType DocumentType, branchIDs []int64, from, to time.Time) ([]MonthlyTotal, error)
}

// TxRepository exposes transactional operations.
type TxRepository interface {
	NextNumber(ctx context.Context, docType DocumentType, year int) (string, error)
	InsertDocument(ctx context.Context, doc *Document) error
	InsertLine(ctx context.Context, line *Line) error
	MarkPosted(ctx context.Context, id int64, at time.Time) error
	LockDocument(ctx context.Context, id int64) (*Document, error)
	InsertPayment(ctx context.Context, payment *Payment) error
	UpdatePaid(ctx context.Context, id int64, paid decimal.Decimal, status Status) error
}

// Service handles invoice and payment business logic.
type Service struct {
	repo RepositoryPort
	now  func() time.Time
}

// NewService builds Service instance.
func NewService(repo RepositoryPort) *Service {
	return &Service{repo: repo, now: time.Now}
}

// CreateAndPost creates a document with its lines and posts it in one transaction.
func (s *Service) CreateAndPost(ctx context.Context, input DocumentInput) (*Document, error) {
	if input.MemberID == 0 {
		return nil, shared.Validationf("member required")
	}
	if input.Type == "" {
		input.Type = TypeInvoice
	}
	if input.Type != TypeInvoice && input.Type != TypeCreditNote {
		return nil, shared.Validationf("unknown document type %q", input.Type)
	}
	if len(input.Lines) == 0 {
		return nil, shared.Validationf("document needs at least one line")
	}
	if strings.TrimSpace(input.Currency) == "" {
		return nil, shared.Validationf("currency required")
	}
	if input.Date.IsZero() {
		input.Date = s.now()
	}

	doc := &Document{
		Type:         input.Type,
		CompanyID:    input.CompanyID,
		BranchID:     input.BranchID,
		MemberID:     input.MemberID,
		MembershipID: input.MembershipID,
		Date:         input.Date,
		Currency:     input.Currency,
		Status:       StatusDraft,
		CreatedBy:    input.CreatedBy,
		Paid:         decimal.Zero,
	}
	for i, in := range input.Lines {
		if in.ProductID == 0 {
			return nil, shared.Validationf("line %d: product required", i+1)
		}
		line := buildLine(in)
		if line.Total.IsNegative() {
			return nil, shared.Validationf("line %d: negative amount", i+1)
		}
		doc.Lines = append(doc.Lines, line)
		doc.Subtotal = doc.Subtotal.Add(line.Subtotal)
		doc.Total = doc.Total.Add(line.Total)
	}
	doc.Discount = doc.Subtotal.Sub(doc.Total)
	if !doc.Total.IsPositive() {
		return nil, shared.Validationf("total must be positive")
	}

	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		number, err := tx.NextNumber(ctx, doc.Type, doc.Date.Year())
		if err != nil {
			return err
		}
		doc.Number = number
		if err := tx.InsertDocument(ctx, doc); err != nil {
			return fmt.Errorf("insert document: %w", err)
		}
		for i := range doc.Lines {
			doc.Lines[i].DocumentID = doc.ID
			if err := tx.InsertLine(ctx, &doc.Lines[i]); err != nil {
				return fmt.Errorf("insert line: %w", err)
			}
		}
		postedAt := s.now()
		if err := tx.MarkPosted(ctx, doc.ID, postedAt); err != nil {
			return err
		}
		doc.Status = StatusPosted
		doc.PostedAt = &postedAt
		return nil
	})
	if err != nil {
		return nil, err
	}
	return doc, nil
}

func buildLine(in LineInput) Line {
	qty := in.Quantity
	if qty.IsZero() {
		qty = decimal.NewFromInt(1)
	}
	subtotal := qty.Mul(in.UnitPrice).Round(2)
	discount := subtotal.Mul(in.DiscountPct).Div(decimal.NewFromInt(100)).Round(2)
	return Line{
		ProductID:   in.ProductID,
		Description: in.Description,
		Quantity:    qty,
		UnitPrice:   in.UnitPrice,
		DiscountPct: in.DiscountPct,
		Subtotal:    subtotal,
		Total:       subtotal.Sub(discount),
	}
}

// RegisterPayment records a payment against a posted document and marks it paid once covered.
func (s *Service) RegisterPayment(ctx context.Context, input PaymentInput) (*Payment, error) {
	if input.DocumentID == 0 {
		return nil, shared.Validationf("document required")
	}
	if strings.TrimSpace(input.Journal) == "" {
		return nil, shared.Validationf("payment journal required")
	}
	if !input.Amount.IsPositive() {
		return nil, shared.Validationf("amount must be positive")
	}
	if input.PaidAt.IsZero() {
		input.PaidAt = s.now()
	}
	payment := &Payment{
		DocumentID: input.DocumentID,
		Journal:    input.Journal,
		Amount:     input.Amount.Round(2),
		PaidAt:     input.PaidAt,
		Memo:       input.Memo,
		CreatedBy:  input.CreatedBy,
	}
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		doc, err := tx.LockDocument(ctx, input.DocumentID)
		if err != nil {
			return err
		}
		if doc.Status != StatusPosted {
			return shared.Validationf("document %s is %s, not posted", doc.Number, doc.Status)
		}
		if payment.Amount.GreaterThan(doc.Balance()) {
			return shared.Validationf("payment %s exceeds open balance %s", payment.Amount.StringFixed(2), doc.Balance().StringFixed(2))
		}
		if err := tx.InsertPayment(ctx, payment); err != nil {
			return fmt.Errorf("insert payment: %w", err)
		}
		paid := doc.Paid.Add(payment.Amount)
		status := StatusPosted
		if paid.GreaterThanOrEqual(doc.Total) {
			status = StatusPaid
		}
		return tx.UpdatePaid(ctx, doc.ID, paid, status)
	})
	if err != nil {
		return nil, err
	}
	return payment, nil
}

// HasPostedInvoice reports whether the membership already has a posted or paid invoice.
func (s *Service) HasPostedInvoice(ctx context.Context, membershipID int64) (bool, error) {
	return s.repo.HasPosted(ctx, membershipID, TypeInvoice)
}

// Get returns a document with its lines.
func (s *Service) Get(ctx context.Context, rc shared.RequestContext, id int64) (*Document, error) {
	doc, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if !rc.CanAccessBranch(doc.BranchID) {
		return nil, shared.ErrNotFound
	}
	return doc, nil
}

// List returns documents visible to the caller.
func (s *Service) List(ctx context.Context, rc shared.RequestContext, filter ListFilter) ([]Document, error) {
	filter.BranchIDs = rc.BranchScope()
	if filter.Limit <= 0 || filter.Limit > 500 {
		filter.Limit = 100
	}
	return s.repo.List(ctx, filter)
}

// MonthlyPostedTotals aggregates posted invoices by month for dashboards.
func (s *Service) MonthlyPostedTotals(ctx context.Context, rc shared.RequestContext, from, to time.Time) ([]MonthlyTotal, error) {
	if to.Before(from) {
		return nil, shared.Validationf("date range is inverted")
	}
	return s.repo.MonthlyPostedTotals(ctx, TypeInvoice, rc.BranchScope(), from, to)
}
