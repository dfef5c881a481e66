package membership

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/odyssey-erp/gymsuite/internal/billing"
	"github.com/odyssey-erp/gymsuite/internal/invoicing"
	"github.com/odyssey-erp/gymsuite/internal/shared"
	"github.com/odyssey-erp/gymsuite/internal/sms"
)

// mutate locks the membership, checks visibility, applies fn and saves the
// result in one transaction.
func (s *Service) mutate(ctx context.Context, rc shared.RequestContext, id int64, fn func(context.Context, *Membership) error) (*Membership, error) {
	var out *Membership
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		m, err := tx.Lock(ctx, id)
		if err != nil {
			return err
		}
		if m.CompanyID != rc.CompanyID || !rc.CanAccessBranch(m.BranchID) {
			return fmt.Errorf("%w: membership %d", shared.ErrNotFound, id)
		}
		if err := fn(ctx, m); err != nil {
			return err
		}
		if err := tx.Save(ctx, m); err != nil {
			return fmt.Errorf("save membership: %w", err)
		}
		out = m
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// Activate moves a draft or suspended membership to Active. A fresh invoice is
// posted when none exists yet or when the previous period was refunded; the
// new period then starts today. An expired membership is renewed instead.
func (s *Service) Activate(ctx context.Context, rc shared.RequestContext, id int64) (*Membership, error) {
	current, err := s.Get(ctx, rc, id)
	if err != nil {
		return nil, err
	}
	if current.Status == billing.StatusExpired {
		return s.Renew(ctx, rc, id)
	}

	m, err := s.mutate(ctx, rc, id, func(ctx context.Context, m *Membership) error {
		if err := billing.ValidateTransition(m.Status, billing.StatusActive); err != nil {
			return err
		}
		posted, err := s.invoicer.HasPostedInvoice(ctx, m.ID)
		if err != nil {
			return err
		}
		today := s.today()
		if !posted || m.Refunded {
			if _, err := s.invoice(ctx, rc, m, today); err != nil {
				return err
			}
			next := billing.AdvancePeriod(today, m.Unit, m.Interval)
			m.NextInvoiceDate = &next
		}
		m.Refunded = false
		m.RefundDue = decimal.Zero
		m.Status = billing.StatusActive
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.notify(ctx, sms.UsageActivation, m)
	s.written(ctx, rc, "membership.activate", m)
	return m, nil
}

// Suspend pauses an active membership and records the prorated refund owed.
func (s *Service) Suspend(ctx context.Context, rc shared.RequestContext, id int64) (*Membership, error) {
	m, err := s.mutate(ctx, rc, id, func(_ context.Context, m *Membership) error {
		if err := billing.ValidateTransition(m.Status, billing.StatusSuspended); err != nil {
			return err
		}
		m.Status = billing.StatusSuspended
		m.RefundDue = billing.ProratedRefund(m.Schedule(), s.today())
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.written(ctx, rc, "membership.suspend", m)
	return m, nil
}

// Cancel ends an active or suspended membership.
func (s *Service) Cancel(ctx context.Context, rc shared.RequestContext, id int64) (*Membership, error) {
	m, err := s.mutate(ctx, rc, id, func(_ context.Context, m *Membership) error {
		if err := billing.ValidateTransition(m.Status, billing.StatusCancelled); err != nil {
			return err
		}
		m.Status = billing.StatusCancelled
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.written(ctx, rc, "membership.cancel", m)
	return m, nil
}

// Renew reactivates an expired membership. It always posts a new invoice and
// moves the cursor at least one period past today.
func (s *Service) Renew(ctx context.Context, rc shared.RequestContext, id int64) (*Membership, error) {
	m, err := s.mutate(ctx, rc, id, func(ctx context.Context, m *Membership) error {
		if m.Status != billing.StatusExpired {
			return fmt.Errorf("%w: only expired memberships can be renewed", billing.ErrInvalidTransition)
		}
		today := s.today()
		if _, err := s.invoice(ctx, rc, m, today); err != nil {
			return err
		}
		next := billing.NextInvoiceDate(m.Schedule(), today)
		m.NextInvoiceDate = &next
		m.Status = billing.StatusActive
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.notify(ctx, sms.UsageActivation, m)
	s.written(ctx, rc, "membership.renew", m)
	return m, nil
}

// Refund pays back the unused part of the current period of a suspended
// membership through a posted credit note. It can be issued once.
func (s *Service) Refund(ctx context.Context, rc shared.RequestContext, id int64) (*Membership, error) {
	journal := strings.TrimSpace(s.cfg.PaymentJournal)
	var credit *invoicing.Document
	m, err := s.mutate(ctx, rc, id, func(ctx context.Context, m *Membership) error {
		if m.Refunded {
			return ErrRefundProcessed
		}
		if m.Status != billing.StatusSuspended {
			return shared.Validationf("refund requires a suspended membership, got %s", m.Status)
		}
		if journal == "" {
			return ErrJournalMissing
		}
		if m.ServiceProductID == 0 {
			return ErrProductMissing
		}
		amount := m.RefundDue
		if !amount.IsPositive() {
			amount = billing.ProratedRefund(m.Schedule(), s.today())
		}
		if !amount.IsPositive() {
			return ErrNothingToRefund
		}

		membershipID := m.ID
		doc, err := s.invoicer.CreateAndPost(ctx, invoicing.DocumentInput{
			Type:         invoicing.TypeCreditNote,
			CompanyID:    m.CompanyID,
			BranchID:     m.BranchID,
			MemberID:     m.MemberID,
			MembershipID: &membershipID,
			Date:         s.today(),
			Currency:     s.currency(rc),
			CreatedBy:    rc.UserID,
			Lines: []invoicing.LineInput{{
				ProductID:   m.ServiceProductID,
				Description: fmt.Sprintf("Refund for membership %s", m.Code),
				UnitPrice:   amount,
			}},
		})
		if err != nil {
			return fmt.Errorf("credit note: %w", err)
		}
		_, err = s.invoicer.RegisterPayment(ctx, invoicing.PaymentInput{
			DocumentID: doc.ID,
			Journal:    journal,
			Amount:     doc.Total,
			Memo:       "Membership refund " + m.Code,
			CreatedBy:  rc.UserID,
		})
		if err != nil {
			return fmt.Errorf("refund payment: %w", err)
		}
		credit = doc
		m.Refunded = true
		m.RefundDue = amount
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.logger.Info("membership refunded",
		slog.String("code", m.Code),
		slog.String("credit_note", credit.Number),
		slog.String("amount", m.RefundDue.StringFixed(2)))
	s.written(ctx, rc, "membership.refund", m)
	return m, nil
}

// Delete removes a membership that is not active.
func (s *Service) Delete(ctx context.Context, rc shared.RequestContext, id int64) error {
	var deleted *Membership
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		m, err := tx.Lock(ctx, id)
		if err != nil {
			return err
		}
		if m.CompanyID != rc.CompanyID || !rc.CanAccessBranch(m.BranchID) {
			return fmt.Errorf("%w: membership %d", shared.ErrNotFound, id)
		}
		if m.Status == billing.StatusActive {
			return ErrActiveDelete
		}
		deleted = m
		return tx.Delete(ctx, id)
	})
	if err != nil {
		return err
	}
	s.written(ctx, rc, "membership.delete", deleted)
	return nil
}
