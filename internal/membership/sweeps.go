package membership

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/odyssey-erp/gymsuite/internal/billing"
	"github.com/odyssey-erp/gymsuite/internal/mail"
	"github.com/odyssey-erp/gymsuite/internal/shared"
	"github.com/odyssey-erp/gymsuite/internal/sms"
)

// Sweep names, also used as metric labels.
const (
	SweepRecurringInvoice = "recurring_invoice"
	SweepExpiration       = "expiration"
	SweepReminder         = "reminder"
)

func (s *Service) system(companyID int64) shared.RequestContext {
	return shared.SystemContext(companyID, s.cfg.Currency)
}

// RunRecurringInvoiceSweep invoices every active auto-invoiced membership whose
// cursor is due. The invoice is dated at the cursor and the cursor then moves
// past today. Records fail independently.
func (s *Service) RunRecurringInvoiceSweep(ctx context.Context, today time.Time) (SweepResult, error) {
	today = billing.Day(today)
	result := SweepResult{Job: SweepRecurringInvoice}
	due, err := s.repo.DueForInvoice(ctx, today)
	if err != nil {
		return result, fmt.Errorf("list due memberships: %w", err)
	}
	for _, candidate := range due {
		result.Processed++
		if candidate.ServiceProductID == 0 {
			result.Skipped++
			s.logger.Warn("recurring invoice skipped, no service product", slog.String("code", candidate.Code))
			continue
		}
		rc := s.system(candidate.CompanyID)
		skipped := false
		m, err := s.mutate(ctx, rc, candidate.ID, func(ctx context.Context, m *Membership) error {
			if m.Status != billing.StatusActive || !m.AutoInvoice || m.NextInvoiceDate == nil || m.NextInvoiceDate.After(today) {
				skipped = true
				return nil
			}
			if _, err := s.invoice(ctx, rc, m, *m.NextInvoiceDate); err != nil {
				return err
			}
			next := billing.NextInvoiceDate(m.Schedule(), today)
			m.NextInvoiceDate = &next
			return nil
		})
		switch {
		case err != nil:
			result.Failed++
			s.logger.Error("recurring invoice failed", slog.String("code", candidate.Code), slog.Any("error", err))
		case skipped:
			result.Skipped++
		default:
			result.Succeeded++
			s.written(ctx, rc, "membership.invoice", m)
		}
	}
	s.logSweep(result)
	return result, nil
}

// RunExpirationSweep expires active memberships that are not auto-invoiced and
// whose cursor has passed, then queues the expiration message.
func (s *Service) RunExpirationSweep(ctx context.Context, today time.Time) (SweepResult, error) {
	today = billing.Day(today)
	result := SweepResult{Job: SweepExpiration}
	due, err := s.repo.DueForExpiration(ctx, today)
	if err != nil {
		return result, fmt.Errorf("list expiring memberships: %w", err)
	}
	for _, candidate := range due {
		result.Processed++
		rc := s.system(candidate.CompanyID)
		skipped := false
		m, err := s.mutate(ctx, rc, candidate.ID, func(_ context.Context, m *Membership) error {
			if m.AutoInvoice || m.NextInvoiceDate == nil || m.NextInvoiceDate.After(today) {
				skipped = true
				return nil
			}
			if err := billing.ValidateTransition(m.Status, billing.StatusExpired); err != nil {
				skipped = true
				return nil
			}
			m.Status = billing.StatusExpired
			return nil
		})
		switch {
		case err != nil:
			result.Failed++
			s.logger.Error("expiration failed", slog.String("code", candidate.Code), slog.Any("error", err))
		case skipped:
			result.Skipped++
		default:
			result.Succeeded++
			s.notify(ctx, sms.UsageExpiration, m)
			s.written(ctx, rc, "membership.expire", m)
		}
	}
	s.logSweep(result)
	return result, nil
}

// RunUpcomingExpirationReminderSweep creates a follow-up activity for the
// branch manager of every active membership whose cursor falls within the
// branch reminder window, and reminds the member by SMS and email.
func (s *Service) RunUpcomingExpirationReminderSweep(ctx context.Context, today time.Time) (SweepResult, error) {
	today = billing.Day(today)
	result := SweepResult{Job: SweepReminder}
	candidates, err := s.repo.ReminderCandidates(ctx, today)
	if err != nil {
		return result, fmt.Errorf("list reminder candidates: %w", err)
	}
	for i := range candidates {
		c := &candidates[i]
		result.Processed++
		if c.NextInvoiceDate == nil {
			result.Skipped++
			continue
		}
		if err := s.remind(ctx, c); err != nil {
			result.Failed++
			s.logger.Error("reminder failed", slog.String("code", c.Code), slog.Any("error", err))
			continue
		}
		// One reminder per cursor; later runs inside the window skip it.
		if err := s.repo.MarkReminded(ctx, c.ID, *c.NextInvoiceDate); err != nil {
			result.Failed++
			s.logger.Error("mark reminded", slog.String("code", c.Code), slog.Any("error", err))
			continue
		}
		result.Succeeded++
	}
	s.logSweep(result)
	return result, nil
}

func (s *Service) remind(ctx context.Context, c *ReminderCandidate) error {
	expiry := *c.NextInvoiceDate
	if c.BranchManager != 0 {
		activity := &Activity{
			MembershipID: c.ID,
			UserID:       c.BranchManager,
			Summary:      fmt.Sprintf("Membership %s for %s expires on %s", c.Code, c.MemberName, expiry.Format("2006-01-02")),
			Note:         "Contact the member about renewal.",
			DueDate:      expiry,
		}
		if err := s.repo.CreateActivity(ctx, activity); err != nil {
			return fmt.Errorf("create activity: %w", err)
		}
	}

	data := s.notificationData(&c.Membership, c.MemberName, c.BranchName)
	if err := s.notifier.Notify(ctx, sms.UsageExpiration, sms.Recipient{MemberID: c.MemberID, Phone: c.MemberPhone}, data); err != nil {
		s.logger.Warn("queue reminder sms", slog.String("code", c.Code), slog.Any("error", err))
	}
	if s.mailer != nil && c.MemberEmail != "" {
		err := s.mailer.SendExpirationReminder(ctx, mail.ExpirationReminder{
			To:     c.MemberEmail,
			Name:   c.MemberName,
			Code:   c.Code,
			Expiry: expiry,
			Amount: data.Amount,
			Branch: c.BranchName,
		})
		if err != nil {
			s.logger.Warn("queue reminder email", slog.String("code", c.Code), slog.Any("error", err))
		}
	}
	return nil
}

func (s *Service) logSweep(r SweepResult) {
	s.logger.Info("sweep finished",
		slog.String("job", r.Job),
		slog.Int("processed", r.Processed),
		slog.Int("succeeded", r.Succeeded),
		slog.Int("failed", r.Failed),
		slog.Int("skipped", r.Skipped))
}
