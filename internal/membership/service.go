package membership

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/odyssey-erp/gymsuite/internal/billing"
	"github.com/odyssey-erp/gymsuite/internal/gym"
	"github.com/odyssey-erp/gymsuite/internal/invoicing"
	"github.com/odyssey-erp/gymsuite/internal/mail"
	"github.com/odyssey-erp/gymsuite/internal/shared"
	"github.com/odyssey-erp/gymsuite/internal/sms"
)

// RepositoryPort defines data access methods for memberships.
type RepositoryPort interface {
	WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error
	Get(ctx context.Context, id int64) (*Membership, error)
	List(ctx context.Context, filter ListFilter) ([]Membership, error)
	DueForInvoice(ctx context.Context, today time.Time) ([]Membership, error)
	DueForExpiration(ctx context.Context, today time.Time) ([]Membership, error)
	ReminderCandidates(ctx context.Context, today time.Time) ([]ReminderCandidate, error)
	CreateActivity(ctx context.Context, activity *Activity) error
	MarkReminded(ctx context.Context, id int64, due time.Time) error
}

// TxRepository exposes transactional operations.
type TxRepository interface {
	LockShift(ctx context.Context, shiftID int64) error
	CountOccupying(ctx context.Context, shiftID int64) (int, error)
	NextCode(ctx context.Context) (string, error)
	Insert(ctx context.Context, m *Membership) error
	Lock(ctx context.Context, id int64) (*Membership, error)
	Save(ctx context.Context, m *Membership) error
	Delete(ctx context.Context, id int64) error
}

// Catalog reads the master data a membership refers to.
type Catalog interface {
	GetBranch(ctx context.Context, id int64) (*gym.Branch, error)
	GetShift(ctx context.Context, id int64) (*gym.Shift, error)
	GetMember(ctx context.Context, id int64) (*gym.Member, error)
	GetProduct(ctx context.Context, id int64) (*gym.ServiceProduct, error)
	ListStates(ctx context.Context) ([]gym.MembershipState, error)
}

// Invoicer turns amounts into posted financial documents.
type Invoicer interface {
	CreateAndPost(ctx context.Context, input invoicing.DocumentInput) (*invoicing.Document, error)
	RegisterPayment(ctx context.Context, input invoicing.PaymentInput) (*invoicing.Payment, error)
	HasPostedInvoice(ctx context.Context, membershipID int64) (bool, error)
}

// Notifier queues text messages.
type Notifier interface {
	Notify(ctx context.Context, usage sms.Usage, to sms.Recipient, data any) error
}

// Mailer queues reminder emails.
type Mailer interface {
	SendExpirationReminder(ctx context.Context, r mail.ExpirationReminder) error
}

// Invalidator drops cached aggregates after membership writes.
type Invalidator interface {
	Bump(ctx context.Context) error
}

// Auditor records who changed what.
type Auditor interface {
	Record(ctx context.Context, log shared.AuditLog) error
}

// Observer counts membership writes.
type Observer interface {
	ObserveMembershipWrite(action, status string)
}

// Config carries the settings the service needs.
type Config struct {
	PaymentJournal string
	Currency       string
}

// Service implements the membership use cases.
type Service struct {
	repo     RepositoryPort
	catalog  Catalog
	invoicer Invoicer
	notifier Notifier
	mailer   Mailer
	cache    Invalidator
	audit    Auditor
	observer Observer
	cfg      Config
	logger   *slog.Logger
	now      func() time.Time
	loc      *time.Location
}

// Option customises the service.
type Option func(*Service)

// WithMailer enables reminder emails.
func WithMailer(m Mailer) Option { return func(s *Service) { s.mailer = m } }

// WithInvalidator wires a cache that is bumped after each write.
func WithInvalidator(c Invalidator) Option { return func(s *Service) { s.cache = c } }

// WithAuditor wires the audit trail.
func WithAuditor(a Auditor) Option { return func(s *Service) { s.audit = a } }

// WithObserver wires write counters.
func WithObserver(o Observer) Option { return func(s *Service) { s.observer = o } }

// WithLocation sets the zone that decides the business day.
func WithLocation(loc *time.Location) Option {
	return func(s *Service) {
		if loc != nil {
			s.loc = loc
		}
	}
}

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option { return func(s *Service) { s.now = now } }

// NewService builds Service instance.
func NewService(repo RepositoryPort, catalog Catalog, invoicer Invoicer, notifier Notifier, cfg Config, logger *slog.Logger, opts ...Option) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Service{
		repo:     repo,
		catalog:  catalog,
		invoicer: invoicer,
		notifier: notifier,
		cfg:      cfg,
		logger:   logger,
		now:      time.Now,
		loc:      time.UTC,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Today is the current business day in the service location.
func (s *Service) Today() time.Time {
	return billing.Day(s.now().In(s.loc))
}

func (s *Service) today() time.Time {
	return s.Today()
}

func (s *Service) currency(rc shared.RequestContext) string {
	if rc.Currency != "" {
		return rc.Currency
	}
	return s.cfg.Currency
}

// Get returns a membership visible to the caller.
func (s *Service) Get(ctx context.Context, rc shared.RequestContext, id int64) (*Membership, error) {
	m, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if m.CompanyID != rc.CompanyID || !rc.CanAccessBranch(m.BranchID) {
		return nil, fmt.Errorf("%w: membership %d", shared.ErrNotFound, id)
	}
	return m, nil
}

// List returns memberships in the caller's branches.
func (s *Service) List(ctx context.Context, rc shared.RequestContext, filter ListFilter) ([]Membership, error) {
	if filter.BranchID != 0 && !rc.CanAccessBranch(filter.BranchID) {
		return nil, shared.ErrForbidden
	}
	if filter.Status != "" && !filter.Status.Valid() {
		return nil, shared.Validationf("unknown status %q", filter.Status)
	}
	if filter.Unit != "" && !filter.Unit.Valid() {
		return nil, shared.Validationf("unknown recurrence unit %q", filter.Unit)
	}
	filter.BranchIDs = rc.BranchScope()
	if filter.Limit <= 0 || filter.Limit > 200 {
		filter.Limit = 50
	}
	return s.repo.List(ctx, filter)
}

// invoice posts one invoice for a period of the membership.
func (s *Service) invoice(ctx context.Context, rc shared.RequestContext, m *Membership, date time.Time) (*invoicing.Document, error) {
	if m.ServiceProductID == 0 {
		return nil, ErrProductMissing
	}
	productID := m.ServiceProductID
	if m.VariantID != nil {
		productID = *m.VariantID
	}
	id := m.ID
	doc, err := s.invoicer.CreateAndPost(ctx, invoicing.DocumentInput{
		Type:         invoicing.TypeInvoice,
		CompanyID:    m.CompanyID,
		BranchID:     m.BranchID,
		MemberID:     m.MemberID,
		MembershipID: &id,
		Date:         date,
		Currency:     s.currency(rc),
		CreatedBy:    rc.UserID,
		Lines: []invoicing.LineInput{{
			ProductID:   productID,
			Description: fmt.Sprintf("Membership %s (%s)", m.Code, m.Unit),
			UnitPrice:   m.Amount,
			DiscountPct: m.DiscountPercent,
		}},
	})
	if err != nil {
		return nil, fmt.Errorf("invoice membership %s: %w", m.Code, err)
	}
	return doc, nil
}

func (s *Service) notify(ctx context.Context, usage sms.Usage, m *Membership) {
	member, err := s.catalog.GetMember(ctx, m.MemberID)
	if err != nil {
		s.logger.Warn("notify: load member", slog.Int64("membership_id", m.ID), slog.Any("error", err))
		return
	}
	data := s.notificationData(m, member.Name, "")
	if branch, err := s.catalog.GetBranch(ctx, m.BranchID); err == nil {
		data.Branch = branch.Name
	}
	if err := s.notifier.Notify(ctx, usage, sms.Recipient{MemberID: member.ID, Phone: member.Phone}, data); err != nil {
		s.logger.Warn("queue sms", slog.String("usage", string(usage)), slog.Int64("membership_id", m.ID), slog.Any("error", err))
	}
}

func (s *Service) notificationData(m *Membership, memberName, branch string) NotificationData {
	data := NotificationData{
		MemberName: memberName,
		Code:       m.Code,
		Branch:     branch,
		Amount:     billing.FormatMoney(m.DiscountedAmount(), s.cfg.Currency),
		Status:     string(m.Status),
	}
	if m.NextInvoiceDate != nil {
		data.ExpiryDate = m.NextInvoiceDate.Format("02/01/2006")
	}
	return data
}

func (s *Service) written(ctx context.Context, rc shared.RequestContext, action string, m *Membership) {
	if s.observer != nil {
		s.observer.ObserveMembershipWrite(action, string(m.Status))
	}
	if s.cache != nil {
		if err := s.cache.Bump(ctx); err != nil {
			s.logger.Warn("bump dashboard cache", slog.Any("error", err))
		}
	}
	if s.audit != nil {
		err := s.audit.Record(ctx, shared.AuditLog{
			ActorID:  rc.UserID,
			Action:   action,
			Entity:   "membership",
			EntityID: fmt.Sprint(m.ID),
			Meta:     map[string]any{"code": m.Code, "status": string(m.Status)},
			At:       s.now(),
		})
		if err != nil {
			s.logger.Warn("audit membership", slog.String("action", action), slog.Any("error", err))
		}
	}
}
