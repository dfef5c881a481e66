package membership

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/shopspring/decimal"

	"github.com/odyssey-erp/gymsuite/internal/billing"
	"github.com/odyssey-erp/gymsuite/internal/gym"
	"github.com/odyssey-erp/gymsuite/internal/shared"
)

var hundred = decimal.NewFromInt(100)

// Create runs the creation pipeline: beforeCreate gates and numbers the record,
// afterCreate prices it, posts the first invoice and sets the cursor. Both
// stages share one transaction, so a failed first invoice leaves nothing behind.
func (s *Service) Create(ctx context.Context, rc shared.RequestContext, req CreateRequest) (*Membership, error) {
	m, shift, err := s.prepare(ctx, rc, req)
	if err != nil {
		return nil, err
	}
	err = s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		if err := s.beforeCreate(ctx, tx, m, shift); err != nil {
			return err
		}
		if err := tx.Insert(ctx, m); err != nil {
			return fmt.Errorf("insert membership: %w", err)
		}
		return s.afterCreate(ctx, tx, rc, m, shift)
	})
	if err != nil {
		return nil, err
	}
	s.logger.Info("membership created",
		slog.String("code", m.Code),
		slog.Int64("shift_id", m.ShiftID),
		slog.String("status", string(m.Status)))
	s.written(ctx, rc, "membership.create", m)
	return m, nil
}

// prepare validates the request and resolves member, shift and default state.
func (s *Service) prepare(ctx context.Context, rc shared.RequestContext, req CreateRequest) (*Membership, *gym.Shift, error) {
	if !req.Unit.Valid() {
		return nil, nil, shared.Validationf("unknown recurrence unit %q", req.Unit)
	}
	if req.Interval == 0 {
		req.Interval = 1
	}
	if req.Interval < 1 {
		return nil, nil, shared.Validationf("recurrence interval must be at least 1")
	}
	if req.DiscountPercent.IsNegative() || req.DiscountPercent.GreaterThan(hundred) {
		return nil, nil, shared.Validationf("discount must be between 0 and 100")
	}

	member, err := s.catalog.GetMember(ctx, req.MemberID)
	if err != nil {
		return nil, nil, fmt.Errorf("member: %w", err)
	}
	if member.CompanyID != rc.CompanyID || !rc.CanAccessBranch(member.BranchID) {
		return nil, nil, fmt.Errorf("%w: member %d", shared.ErrNotFound, req.MemberID)
	}
	shift, err := s.catalog.GetShift(ctx, req.ShiftID)
	if err != nil {
		return nil, nil, fmt.Errorf("shift: %w", err)
	}
	if shift.BranchID != member.BranchID {
		return nil, nil, shared.Validationf("shift %s belongs to another branch", shift.Name)
	}
	if !shift.Active {
		return nil, nil, shared.Validationf("shift %s is archived", shift.Name)
	}

	status := billing.StatusDraft
	stateName := ""
	states, err := s.catalog.ListStates(ctx)
	if err != nil {
		return nil, nil, fmt.Errorf("membership states: %w", err)
	}
	if st := gym.DefaultState(states); st != nil {
		status, stateName = st.Status, st.Name
	}

	start := s.today()
	if req.StartDate != nil {
		start = billing.Day(*req.StartDate)
	}
	autoInvoice := true
	if req.AutoInvoice != nil {
		autoInvoice = *req.AutoInvoice
	}
	return &Membership{
		CompanyID:       rc.CompanyID,
		MemberID:        member.ID,
		BranchID:        member.BranchID,
		ShiftID:         shift.ID,
		Gender:          member.Gender,
		DiscountPercent: req.DiscountPercent,
		Unit:            req.Unit,
		Interval:        req.Interval,
		StartDate:       start,
		AutoInvoice:     autoInvoice,
		Status:          status,
		StateName:       stateName,
		RefundDue:       decimal.Zero,
		Amount:          decimal.Zero,
		CreatedBy:       rc.UserID,
	}, shift, nil
}

// beforeCreate serializes on the shift, enforces capacity and assigns the code.
func (s *Service) beforeCreate(ctx context.Context, tx TxRepository, m *Membership, shift *gym.Shift) error {
	if shift.Capacity > 0 {
		if err := tx.LockShift(ctx, shift.ID); err != nil {
			return err
		}
		occupied, err := tx.CountOccupying(ctx, shift.ID)
		if err != nil {
			return fmt.Errorf("count shift memberships: %w", err)
		}
		if err := billing.CheckCapacity(shift.Capacity, occupied); err != nil {
			return fmt.Errorf("shift %s: %w", shift.Name, err)
		}
	}
	code, err := tx.NextCode(ctx)
	if err != nil {
		return fmt.Errorf("membership code: %w", err)
	}
	m.Code = code
	return nil
}

// afterCreate derives pricing from the shift's service and posts the first invoice.
func (s *Service) afterCreate(ctx context.Context, tx TxRepository, rc shared.RequestContext, m *Membership, shift *gym.Shift) error {
	if shift.ServiceProductID != 0 {
		product, err := s.catalog.GetProduct(ctx, shift.ServiceProductID)
		if err != nil {
			return fmt.Errorf("service product: %w", err)
		}
		applyPricing(m, product)
	}
	if m.AutoInvoice {
		if m.ServiceProductID == 0 {
			s.logger.Warn("first invoice skipped, shift has no service product", slog.String("code", m.Code))
		} else if _, err := s.invoice(ctx, rc, m, s.today()); err != nil {
			return err
		}
	}
	next := billing.AdvancePeriod(m.StartDate, m.Unit, m.Interval)
	m.NextInvoiceDate = &next
	return tx.Save(ctx, m)
}

// applyPricing sets the invoiced product and amount. The variant matching the
// recurrence unit wins; otherwise the base list price is used.
func applyPricing(m *Membership, product *gym.ServiceProduct) {
	price, variant := product.PriceFor(m.Unit)
	m.ServiceProductID = product.ID
	m.VariantID = nil
	if variant != nil {
		id := variant.ID
		m.VariantID = &id
	}
	interval := m.Interval
	if interval < 1 {
		interval = 1
	}
	m.Amount = price.Mul(decimal.NewFromInt(int64(interval))).Round(2)
}
