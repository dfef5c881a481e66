package gym

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/odyssey-erp/gymsuite/internal/billing"
	"github.com/odyssey-erp/gymsuite/internal/shared"
)

type memoryRepo struct {
	branches     map[int64]*Branch
	shifts       map[int64]*Shift
	members      map[int64]*Member
	products     map[int64]*ServiceProduct
	states       []MembershipState
	measurements []Measurement
	memberships  map[int64]int
	nextID       int64
}

func newMemoryRepo() *memoryRepo {
	return &memoryRepo{
		branches:    map[int64]*Branch{},
		shifts:      map[int64]*Shift{},
		members:     map[int64]*Member{},
		products:    map[int64]*ServiceProduct{},
		memberships: map[int64]int{},
	}
}

func (m *memoryRepo) id() int64 { m.nextID++; return m.nextID }

func (m *memoryRepo) CreateBranch(_ context.Context, b *Branch) error {
	b.ID = m.id()
	cp := *b
	m.branches[b.ID] = &cp
	return nil
}

func (m *memoryRepo) SaveBranch(_ context.Context, b *Branch) error {
	cp := *b
	m.branches[b.ID] = &cp
	return nil
}

func (m *memoryRepo) GetBranch(_ context.Context, id int64) (*Branch, error) {
	b, ok := m.branches[id]
	if !ok {
		return nil, shared.ErrNotFound
	}
	cp := *b
	return &cp, nil
}

func (m *memoryRepo) ListBranches(_ context.Context, companyID int64, scope []int64) ([]Branch, error) {
	var out []Branch
	for _, b := range m.branches {
		if b.CompanyID != companyID {
			continue
		}
		if scope != nil && !contains(scope, b.ID) {
			continue
		}
		out = append(out, *b)
	}
	return out, nil
}

func (m *memoryRepo) DeleteBranch(_ context.Context, id int64) error {
	delete(m.branches, id)
	return nil
}

func (m *memoryRepo) CountBranchMemberships(_ context.Context, id int64) (int, error) {
	return m.memberships[id], nil
}

func (m *memoryRepo) CreateShift(_ context.Context, s *Shift) error {
	s.ID = m.id()
	cp := *s
	m.shifts[s.ID] = &cp
	return nil
}

func (m *memoryRepo) SaveShift(_ context.Context, s *Shift) error {
	cp := *s
	m.shifts[s.ID] = &cp
	return nil
}

func (m *memoryRepo) GetShift(_ context.Context, id int64) (*Shift, error) {
	s, ok := m.shifts[id]
	if !ok {
		return nil, shared.ErrNotFound
	}
	cp := *s
	return &cp, nil
}

func (m *memoryRepo) ListShifts(_ context.Context, scope []int64, branchID int64) ([]Shift, error) {
	var out []Shift
	for _, s := range m.shifts {
		if scope != nil && !contains(scope, s.BranchID) {
			continue
		}
		if branchID != 0 && s.BranchID != branchID {
			continue
		}
		out = append(out, *s)
	}
	return out, nil
}

func (m *memoryRepo) CreateMember(_ context.Context, mem *Member) error {
	mem.ID = m.id()
	cp := *mem
	m.members[mem.ID] = &cp
	return nil
}

func (m *memoryRepo) SaveMember(_ context.Context, mem *Member) error {
	cp := *mem
	m.members[mem.ID] = &cp
	return nil
}

func (m *memoryRepo) GetMember(_ context.Context, id int64) (*Member, error) {
	mem, ok := m.members[id]
	if !ok {
		return nil, shared.ErrNotFound
	}
	cp := *mem
	return &cp, nil
}

func (m *memoryRepo) ListMembers(_ context.Context, companyID int64, scope []int64, req ListMembersRequest) ([]Member, error) {
	var out []Member
	for _, mem := range m.members {
		if mem.CompanyID != companyID || (scope != nil && !contains(scope, mem.BranchID)) {
			continue
		}
		out = append(out, *mem)
	}
	return out, nil
}

func (m *memoryRepo) ListStates(context.Context) ([]MembershipState, error) { return m.states, nil }

func (m *memoryRepo) GetProduct(_ context.Context, id int64) (*ServiceProduct, error) {
	p, ok := m.products[id]
	if !ok {
		return nil, shared.ErrNotFound
	}
	return p, nil
}

func (m *memoryRepo) ListProducts(context.Context) ([]ServiceProduct, error) {
	var out []ServiceProduct
	for _, p := range m.products {
		out = append(out, *p)
	}
	return out, nil
}

func (m *memoryRepo) CreateMeasurement(_ context.Context, ms *Measurement) error {
	ms.ID = m.id()
	m.measurements = append(m.measurements, *ms)
	return nil
}

func (m *memoryRepo) ListMeasurements(_ context.Context, memberID int64, _, _ *time.Time) ([]Measurement, error) {
	var out []Measurement
	for _, ms := range m.measurements {
		if ms.MemberID == memberID {
			out = append(out, ms)
		}
	}
	return out, nil
}

func contains(ids []int64, id int64) bool {
	for _, v := range ids {
		if v == id {
			return true
		}
	}
	return false
}

var admin = shared.RequestContext{UserID: 1, CompanyID: 1, IsAdmin: true, Currency: "USD"}

func seedBranch(t *testing.T, svc *Service) *Branch {
	t.Helper()
	b, err := svc.CreateBranch(context.Background(), admin, CreateBranchRequest{
		Name: "Downtown", ManagerID: 7, Gender: GenderFemale, Address: "Main St 1",
	})
	require.NoError(t, err)
	return b
}

func TestCreateBranchDefaultsReminderDays(t *testing.T) {
	svc := NewService(newMemoryRepo())
	b := seedBranch(t, svc)
	assert.Equal(t, DefaultReminderDays, b.ReminderDays)
	assert.True(t, b.Active)

	staff := shared.RequestContext{UserID: 2, CompanyID: 1, AllowedBranches: []int64{b.ID}}
	_, err := svc.CreateBranch(context.Background(), staff, CreateBranchRequest{Name: "X", ManagerID: 1, Gender: GenderMale, Address: "a"})
	assert.ErrorIs(t, err, shared.ErrForbidden)
}

func TestDeleteBranchWithMembershipsIsRejected(t *testing.T) {
	repo := newMemoryRepo()
	svc := NewService(repo)
	b := seedBranch(t, svc)
	repo.memberships[b.ID] = 2

	err := svc.DeleteBranch(context.Background(), admin, b.ID)
	assert.ErrorIs(t, err, shared.ErrConflict)

	repo.memberships[b.ID] = 0
	require.NoError(t, svc.DeleteBranch(context.Background(), admin, b.ID))
	_, err = svc.GetBranch(context.Background(), admin, b.ID)
	assert.ErrorIs(t, err, shared.ErrNotFound)
}

func TestShiftHoursValidation(t *testing.T) {
	repo := newMemoryRepo()
	repo.products[9] = &ServiceProduct{ID: 9, Name: "Fitness", ListPrice: decimal.RequireFromString("45")}
	svc := NewService(repo)
	b := seedBranch(t, svc)

	base := CreateShiftRequest{BranchID: b.ID, Name: "Morning", StartHour: 6, EndHour: 9.5, Capacity: 20, ServiceProductID: 9, CoachIDs: []int64{3}}
	shift, err := svc.CreateShift(context.Background(), admin, base)
	require.NoError(t, err)
	assert.Equal(t, 20, shift.Capacity)

	bad := base
	bad.EndHour = 6
	_, err = svc.CreateShift(context.Background(), admin, bad)
	assert.ErrorIs(t, err, shared.ErrValidation)

	bad = base
	bad.EndHour = 25
	_, err = svc.CreateShift(context.Background(), admin, bad)
	assert.ErrorIs(t, err, shared.ErrValidation)

	start := 10.0
	_, err = svc.UpdateShift(context.Background(), admin, shift.ID, UpdateShiftRequest{StartHour: &start})
	assert.ErrorIs(t, err, shared.ErrValidation)
}

func TestMemberInheritsBranchGenderAndScope(t *testing.T) {
	svc := NewService(newMemoryRepo())
	b := seedBranch(t, svc)

	m, err := svc.CreateMember(context.Background(), admin, CreateMemberRequest{BranchID: b.ID, Name: " Amina ", Phone: "252634000000"})
	require.NoError(t, err)
	assert.Equal(t, GenderFemale, m.Gender)
	assert.Equal(t, "Amina", m.Name)

	outsider := shared.RequestContext{UserID: 3, CompanyID: 1, AllowedBranches: []int64{999}}
	_, err = svc.GetMember(context.Background(), outsider, m.ID)
	assert.ErrorIs(t, err, shared.ErrNotFound)

	members, err := svc.ListMembers(context.Background(), outsider, ListMembersRequest{})
	require.NoError(t, err)
	assert.Empty(t, members)

	_, err = svc.CreateMember(context.Background(), outsider, CreateMemberRequest{BranchID: b.ID, Name: "X"})
	assert.True(t, errors.Is(err, shared.ErrNotFound))
}

func TestMeasurementBMI(t *testing.T) {
	svc := NewService(newMemoryRepo())
	b := seedBranch(t, svc)
	m, err := svc.CreateMember(context.Background(), admin, CreateMemberRequest{BranchID: b.ID, Name: "Hodan"})
	require.NoError(t, err)

	ms, err := svc.RecordMeasurement(context.Background(), admin, CreateMeasurementRequest{
		MemberID: m.ID, Date: time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC), WeightKg: 70, HeightCm: 175,
	})
	require.NoError(t, err)
	assert.Equal(t, 22.86, ms.BMI())
	assert.Equal(t, "Normal weight", ms.BMICategory())

	assert.Equal(t, 0.0, Measurement{WeightKg: 70}.BMI())
	assert.Equal(t, "Obese", Measurement{WeightKg: 100, HeightCm: 170}.BMICategory())
	assert.Equal(t, "Underweight", Measurement{WeightKg: 50, HeightCm: 180}.BMICategory())

	from := time.Date(2025, 4, 1, 0, 0, 0, 0, time.UTC)
	to := time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)
	_, err = svc.ListMeasurements(context.Background(), admin, m.ID, &from, &to)
	assert.ErrorIs(t, err, shared.ErrValidation)
}

func TestPriceForFallsBackToListPrice(t *testing.T) {
	p := ServiceProduct{
		ID:        1,
		ListPrice: decimal.RequireFromString("45.00"),
		Variants:  []ProductVariant{{ID: 11, Unit: billing.Yearly, Price: decimal.RequireFromString("480.00")}},
	}
	price, variant := p.PriceFor(billing.Yearly)
	require.NotNil(t, variant)
	assert.Equal(t, "480", price.String())

	price, variant = p.PriceFor(billing.Monthly)
	assert.Nil(t, variant)
	assert.Equal(t, "45", price.String())
}

func TestDefaultStatePicksLowestSequence(t *testing.T) {
	assert.Nil(t, DefaultState(nil))
	st := DefaultState([]MembershipState{
		{ID: 1, Name: "Active", Status: billing.StatusActive, Sequence: 20},
		{ID: 2, Name: "New", Status: billing.StatusDraft, Sequence: 5},
	})
	require.NotNil(t, st)
	assert.Equal(t, "New", st.Name)
}
