package membership

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"github.com/odyssey-erp/gymsuite/internal/billing"
	"github.com/odyssey-erp/gymsuite/internal/gym"
	"github.com/odyssey-erp/gymsuite/internal/invoicing"
	"github.com/odyssey-erp/gymsuite/internal/mail"
	"github.com/odyssey-erp/gymsuite/internal/shared"
	"github.com/odyssey-erp/gymsuite/internal/sms"
)

type memoryRepo struct {
	catalog     *fakeCatalog
	items       map[int64]Membership
	activities  []Activity
	reminded    map[int64]time.Time
	nextID      int64
	seq         int64
	failActFor  map[int64]bool
	lockedShift []int64
}

func newMemoryRepo(catalog *fakeCatalog) *memoryRepo {
	return &memoryRepo{catalog: catalog, items: map[int64]Membership{}, failActFor: map[int64]bool{}, reminded: map[int64]time.Time{}}
}

func (r *memoryRepo) WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	snapshot := make(map[int64]Membership, len(r.items))
	for k, v := range r.items {
		snapshot[k] = v
	}
	nextID, seq := r.nextID, r.seq
	if err := fn(ctx, &memoryTx{repo: r}); err != nil {
		r.items, r.nextID, r.seq = snapshot, nextID, seq
		return err
	}
	return nil
}

func (r *memoryRepo) Get(_ context.Context, id int64) (*Membership, error) {
	m, ok := r.items[id]
	if !ok {
		return nil, shared.ErrNotFound
	}
	return &m, nil
}

func (r *memoryRepo) sorted(keep func(Membership) bool) []Membership {
	var out []Membership
	for _, m := range r.items {
		if keep(m) {
			out = append(out, m)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func (r *memoryRepo) List(_ context.Context, f ListFilter) ([]Membership, error) {
	return r.sorted(func(m Membership) bool {
		if f.BranchIDs != nil && !containsID(f.BranchIDs, m.BranchID) {
			return false
		}
		if f.Status != "" && m.Status != f.Status {
			return false
		}
		return f.ShiftID == 0 || m.ShiftID == f.ShiftID
	}), nil
}

func due(m Membership, today time.Time) bool {
	return m.Status == billing.StatusActive && m.NextInvoiceDate != nil && !m.NextInvoiceDate.After(today)
}

func (r *memoryRepo) DueForInvoice(_ context.Context, today time.Time) ([]Membership, error) {
	return r.sorted(func(m Membership) bool { return m.AutoInvoice && due(m, today) }), nil
}

func (r *memoryRepo) DueForExpiration(_ context.Context, today time.Time) ([]Membership, error) {
	return r.sorted(func(m Membership) bool { return !m.AutoInvoice && due(m, today) }), nil
}

func (r *memoryRepo) ReminderCandidates(_ context.Context, today time.Time) ([]ReminderCandidate, error) {
	var out []ReminderCandidate
	for _, m := range r.sorted(func(m Membership) bool { return m.Status == billing.StatusActive && m.NextInvoiceDate != nil }) {
		branch := r.catalog.branches[m.BranchID]
		limit := today.AddDate(0, 0, branch.ReminderDays)
		if m.NextInvoiceDate.Before(today) || m.NextInvoiceDate.After(limit) {
			continue
		}
		if due, ok := r.reminded[m.ID]; ok && due.Equal(*m.NextInvoiceDate) {
			continue
		}
		member := r.catalog.members[m.MemberID]
		out = append(out, ReminderCandidate{
			Membership:    m,
			MemberName:    member.Name,
			MemberPhone:   member.Phone,
			MemberEmail:   member.Email,
			BranchName:    branch.Name,
			BranchManager: branch.ManagerID,
		})
	}
	return out, nil
}

func (r *memoryRepo) MarkReminded(_ context.Context, id int64, due time.Time) error {
	r.reminded[id] = due
	return nil
}

func (r *memoryRepo) CreateActivity(_ context.Context, a *Activity) error {
	if r.failActFor[a.MembershipID] {
		return errors.New("activity store down")
	}
	a.ID = int64(len(r.activities) + 1)
	r.activities = append(r.activities, *a)
	return nil
}

type memoryTx struct {
	repo *memoryRepo
}

func (t *memoryTx) LockShift(_ context.Context, shiftID int64) error {
	t.repo.lockedShift = append(t.repo.lockedShift, shiftID)
	return nil
}

func (t *memoryTx) CountOccupying(_ context.Context, shiftID int64) (int, error) {
	n := 0
	for _, m := range t.repo.items {
		if m.ShiftID == shiftID && m.Status.Occupying() {
			n++
		}
	}
	return n, nil
}

func (t *memoryTx) NextCode(context.Context) (string, error) {
	t.repo.seq++
	return fmt.Sprintf("MEM/%05d", t.repo.seq), nil
}

func (t *memoryTx) Insert(_ context.Context, m *Membership) error {
	t.repo.nextID++
	m.ID = t.repo.nextID
	t.repo.items[m.ID] = *m
	return nil
}

func (t *memoryTx) Lock(ctx context.Context, id int64) (*Membership, error) {
	return t.repo.Get(ctx, id)
}

func (t *memoryTx) Save(_ context.Context, m *Membership) error {
	if _, ok := t.repo.items[m.ID]; !ok {
		return shared.ErrNotFound
	}
	t.repo.items[m.ID] = *m
	return nil
}

func (t *memoryTx) Delete(_ context.Context, id int64) error {
	delete(t.repo.items, id)
	return nil
}

type fakeCatalog struct {
	branches map[int64]gym.Branch
	shifts   map[int64]gym.Shift
	members  map[int64]gym.Member
	products map[int64]gym.ServiceProduct
	states   []gym.MembershipState
}

func (c *fakeCatalog) GetBranch(_ context.Context, id int64) (*gym.Branch, error) {
	b, ok := c.branches[id]
	if !ok {
		return nil, shared.ErrNotFound
	}
	return &b, nil
}

func (c *fakeCatalog) GetShift(_ context.Context, id int64) (*gym.Shift, error) {
	s, ok := c.shifts[id]
	if !ok {
		return nil, shared.ErrNotFound
	}
	return &s, nil
}

func (c *fakeCatalog) GetMember(_ context.Context, id int64) (*gym.Member, error) {
	m, ok := c.members[id]
	if !ok {
		return nil, shared.ErrNotFound
	}
	return &m, nil
}

func (c *fakeCatalog) GetProduct(_ context.Context, id int64) (*gym.ServiceProduct, error) {
	p, ok := c.products[id]
	if !ok {
		return nil, shared.ErrNotFound
	}
	return &p, nil
}

func (c *fakeCatalog) ListStates(context.Context) ([]gym.MembershipState, error) {
	return c.states, nil
}

type fakeInvoicer struct {
	docs     []invoicing.DocumentInput
	payments []invoicing.PaymentInput
	failFor  map[int64]bool
}

func (f *fakeInvoicer) CreateAndPost(_ context.Context, in invoicing.DocumentInput) (*invoicing.Document, error) {
	if in.MembershipID != nil && f.failFor[*in.MembershipID] {
		return nil, errors.New("ledger unavailable")
	}
	f.docs = append(f.docs, in)
	total := decimal.Zero
	for _, l := range in.Lines {
		sub := l.UnitPrice.Round(2)
		total = total.Add(sub.Sub(sub.Mul(l.DiscountPct).Div(decimal.NewFromInt(100)).Round(2)))
	}
	return &invoicing.Document{
		ID:     int64(len(f.docs)),
		Number: fmt.Sprintf("%s/%d/%05d", in.Type.Prefix(), in.Date.Year(), len(f.docs)),
		Type:   in.Type,
		Total:  total,
		Status: invoicing.StatusPosted,
	}, nil
}

func (f *fakeInvoicer) RegisterPayment(_ context.Context, in invoicing.PaymentInput) (*invoicing.Payment, error) {
	f.payments = append(f.payments, in)
	return &invoicing.Payment{ID: int64(len(f.payments)), DocumentID: in.DocumentID, Journal: in.Journal, Amount: in.Amount}, nil
}

func (f *fakeInvoicer) HasPostedInvoice(_ context.Context, membershipID int64) (bool, error) {
	for _, d := range f.docs {
		if d.Type == invoicing.TypeInvoice && d.MembershipID != nil && *d.MembershipID == membershipID {
			return true, nil
		}
	}
	return false, nil
}

func (f *fakeInvoicer) ofType(t invoicing.DocumentType) []invoicing.DocumentInput {
	var out []invoicing.DocumentInput
	for _, d := range f.docs {
		if d.Type == t {
			out = append(out, d)
		}
	}
	return out
}

type sentSMS struct {
	usage sms.Usage
	to    sms.Recipient
	data  NotificationData
}

type fakeNotifier struct {
	sent []sentSMS
}

func (f *fakeNotifier) Notify(_ context.Context, usage sms.Usage, to sms.Recipient, data any) error {
	f.sent = append(f.sent, sentSMS{usage: usage, to: to, data: data.(NotificationData)})
	return nil
}

type fakeMailer struct {
	sent []mail.ExpirationReminder
}

func (f *fakeMailer) SendExpirationReminder(_ context.Context, r mail.ExpirationReminder) error {
	f.sent = append(f.sent, r)
	return nil
}

type countingCache struct{ bumps int }

func (c *countingCache) Bump(context.Context) error { c.bumps++; return nil }

func containsID(ids []int64, id int64) bool {
	for _, v := range ids {
		if v == id {
			return true
		}
	}
	return false
}

var discardLogger = slog.New(slog.NewTextHandler(io.Discard, nil))
