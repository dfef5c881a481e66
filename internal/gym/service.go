package gym

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/odyssey-erp/gymsuite/internal/shared"
)

// Repository defines the persistence contract for master data.
type Repository interface {
	CreateBranch(ctx context.Context, b *Branch) error
	SaveBranch(ctx context.Context, b *Branch) error
	GetBranch(ctx context.Context, id int64) (*Branch, error)
	ListBranches(ctx context.Context, companyID int64, branchIDs []int64) ([]Branch, error)
	DeleteBranch(ctx context.Context, id int64) error
	CountBranchMemberships(ctx context.Context, branchID int64) (int, error)

	CreateShift(ctx context.Context, s *Shift) error
	SaveShift(ctx context.Context, s *Shift) error
	GetShift(ctx context.Context, id int64) (*Shift, error)
	ListShifts(ctx context.Context, branchIDs []int64, branchID int64) ([]Shift, error)

	CreateMember(ctx context.Context, m *Member) error
	SaveMember(ctx context.Context, m *Member) error
	GetMember(ctx context.Context, id int64) (*Member, error)
	ListMembers(ctx context.Context, companyID int64, branchIDs []int64, req ListMembersRequest) ([]Member, error)

	ListStates(ctx context.Context) ([]MembershipState, error)
	GetProduct(ctx context.Context, id int64) (*ServiceProduct, error)
	ListProducts(ctx context.Context) ([]ServiceProduct, error)

	CreateMeasurement(ctx context.Context, m *Measurement) error
	ListMeasurements(ctx context.Context, memberID int64, from, to *time.Time) ([]Measurement, error)
}

// Service implements master data use cases.
type Service struct {
	repo Repository
}

// NewService creates a new master data service.
func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

func (s *Service) branchFor(ctx context.Context, rc shared.RequestContext, id int64) (*Branch, error) {
	branch, err := s.repo.GetBranch(ctx, id)
	if err != nil {
		return nil, err
	}
	if branch.CompanyID != rc.CompanyID || !rc.CanAccessBranch(branch.ID) {
		return nil, fmt.Errorf("%w: branch %d", shared.ErrNotFound, id)
	}
	return branch, nil
}

// CreateBranch registers a new branch. Admin only.
func (s *Service) CreateBranch(ctx context.Context, rc shared.RequestContext, req CreateBranchRequest) (*Branch, error) {
	if !rc.IsAdmin {
		return nil, shared.ErrForbidden
	}
	branch := &Branch{
		CompanyID:    rc.CompanyID,
		Name:         strings.TrimSpace(req.Name),
		ManagerID:    req.ManagerID,
		Gender:       req.Gender,
		Address:      strings.TrimSpace(req.Address),
		ReminderDays: DefaultReminderDays,
		Active:       true,
	}
	if req.ReminderDays != nil {
		branch.ReminderDays = *req.ReminderDays
	}
	if branch.Name == "" {
		return nil, shared.Validationf("branch name required")
	}
	if err := s.repo.CreateBranch(ctx, branch); err != nil {
		return nil, fmt.Errorf("create branch: %w", err)
	}
	return branch, nil
}

// UpdateBranch applies a partial update. Gender is fixed once members exist under it.
func (s *Service) UpdateBranch(ctx context.Context, rc shared.RequestContext, id int64, req UpdateBranchRequest) (*Branch, error) {
	if !rc.IsAdmin {
		return nil, shared.ErrForbidden
	}
	branch, err := s.branchFor(ctx, rc, id)
	if err != nil {
		return nil, err
	}
	if req.Name != nil {
		branch.Name = strings.TrimSpace(*req.Name)
	}
	if req.ManagerID != nil {
		branch.ManagerID = *req.ManagerID
	}
	if req.Address != nil {
		branch.Address = strings.TrimSpace(*req.Address)
	}
	if req.ReminderDays != nil {
		branch.ReminderDays = *req.ReminderDays
	}
	if req.Active != nil {
		branch.Active = *req.Active
	}
	if branch.Name == "" {
		return nil, shared.Validationf("branch name required")
	}
	if err := s.repo.SaveBranch(ctx, branch); err != nil {
		return nil, fmt.Errorf("update branch: %w", err)
	}
	return branch, nil
}

// DeleteBranch removes a branch that no membership references.
func (s *Service) DeleteBranch(ctx context.Context, rc shared.RequestContext, id int64) error {
	if !rc.IsAdmin {
		return shared.ErrForbidden
	}
	if _, err := s.branchFor(ctx, rc, id); err != nil {
		return err
	}
	n, err := s.repo.CountBranchMemberships(ctx, id)
	if err != nil {
		return err
	}
	if n > 0 {
		return fmt.Errorf("%w: branch has %d memberships, archive it instead", shared.ErrConflict, n)
	}
	return s.repo.DeleteBranch(ctx, id)
}

// GetBranch returns a branch visible to the caller.
func (s *Service) GetBranch(ctx context.Context, rc shared.RequestContext, id int64) (*Branch, error) {
	return s.branchFor(ctx, rc, id)
}

// ListBranches lists the caller's branches.
func (s *Service) ListBranches(ctx context.Context, rc shared.RequestContext) ([]Branch, error) {
	return s.repo.ListBranches(ctx, rc.CompanyID, rc.BranchScope())
}

func validateHours(start, end float64) error {
	if start < 0 || end > 24 {
		return shared.Validationf("shift hours must be within 0 and 24")
	}
	if end <= start {
		return shared.Validationf("shift must end after it starts")
	}
	return nil
}

// CreateShift adds a shift to a branch.
func (s *Service) CreateShift(ctx context.Context, rc shared.RequestContext, req CreateShiftRequest) (*Shift, error) {
	if _, err := s.branchFor(ctx, rc, req.BranchID); err != nil {
		return nil, err
	}
	if err := validateHours(req.StartHour, req.EndHour); err != nil {
		return nil, err
	}
	if req.Capacity < 0 {
		return nil, shared.Validationf("capacity cannot be negative")
	}
	if _, err := s.repo.GetProduct(ctx, req.ServiceProductID); err != nil {
		return nil, fmt.Errorf("service product: %w", err)
	}
	shift := &Shift{
		BranchID:         req.BranchID,
		Name:             strings.TrimSpace(req.Name),
		StartHour:        req.StartHour,
		EndHour:          req.EndHour,
		Capacity:         req.Capacity,
		ServiceProductID: req.ServiceProductID,
		CoachIDs:         req.CoachIDs,
		Active:           true,
	}
	if err := s.repo.CreateShift(ctx, shift); err != nil {
		return nil, fmt.Errorf("create shift: %w", err)
	}
	return shift, nil
}

// UpdateShift applies a partial update and revalidates the resulting hours.
func (s *Service) UpdateShift(ctx context.Context, rc shared.RequestContext, id int64, req UpdateShiftRequest) (*Shift, error) {
	shift, err := s.GetShift(ctx, rc, id)
	if err != nil {
		return nil, err
	}
	if req.Name != nil {
		shift.Name = strings.TrimSpace(*req.Name)
	}
	if req.StartHour != nil {
		shift.StartHour = *req.StartHour
	}
	if req.EndHour != nil {
		shift.EndHour = *req.EndHour
	}
	if req.Capacity != nil {
		shift.Capacity = *req.Capacity
	}
	if req.ServiceProductID != nil {
		shift.ServiceProductID = *req.ServiceProductID
	}
	if req.Active != nil {
		shift.Active = *req.Active
	}
	if err := validateHours(shift.StartHour, shift.EndHour); err != nil {
		return nil, err
	}
	if shift.Capacity < 0 {
		return nil, shared.Validationf("capacity cannot be negative")
	}
	if err := s.repo.SaveShift(ctx, shift); err != nil {
		return nil, fmt.Errorf("update shift: %w", err)
	}
	return shift, nil
}

// GetShift returns a shift of a visible branch.
func (s *Service) GetShift(ctx context.Context, rc shared.RequestContext, id int64) (*Shift, error) {
	shift, err := s.repo.GetShift(ctx, id)
	if err != nil {
		return nil, err
	}
	if !rc.CanAccessBranch(shift.BranchID) {
		return nil, fmt.Errorf("%w: shift %d", shared.ErrNotFound, id)
	}
	return shift, nil
}

// ListShifts lists shifts, optionally for one branch.
func (s *Service) ListShifts(ctx context.Context, rc shared.RequestContext, branchID int64) ([]Shift, error) {
	if branchID != 0 && !rc.CanAccessBranch(branchID) {
		return nil, shared.ErrForbidden
	}
	return s.repo.ListShifts(ctx, rc.BranchScope(), branchID)
}

// CreateMember registers a member. Gender is taken from the branch.
func (s *Service) CreateMember(ctx context.Context, rc shared.RequestContext, req CreateMemberRequest) (*Member, error) {
	branch, err := s.branchFor(ctx, rc, req.BranchID)
	if err != nil {
		return nil, err
	}
	member := &Member{
		CompanyID: rc.CompanyID,
		BranchID:  branch.ID,
		Name:      strings.TrimSpace(req.Name),
		Phone:     strings.TrimSpace(req.Phone),
		Email:     strings.TrimSpace(req.Email),
		Gender:    branch.Gender,
		Active:    true,
	}
	if member.Name == "" {
		return nil, shared.Validationf("member name required")
	}
	if err := s.repo.CreateMember(ctx, member); err != nil {
		return nil, fmt.Errorf("create member: %w", err)
	}
	return member, nil
}

// UpdateMember applies a partial update.
func (s *Service) UpdateMember(ctx context.Context, rc shared.RequestContext, id int64, req UpdateMemberRequest) (*Member, error) {
	member, err := s.GetMember(ctx, rc, id)
	if err != nil {
		return nil, err
	}
	if req.Name != nil {
		member.Name = strings.TrimSpace(*req.Name)
	}
	if req.Phone != nil {
		member.Phone = strings.TrimSpace(*req.Phone)
	}
	if req.Email != nil {
		member.Email = strings.TrimSpace(*req.Email)
	}
	if req.Active != nil {
		member.Active = *req.Active
	}
	if member.Name == "" {
		return nil, shared.Validationf("member name required")
	}
	if err := s.repo.SaveMember(ctx, member); err != nil {
		return nil, fmt.Errorf("update member: %w", err)
	}
	return member, nil
}

// GetMember returns a member of a visible branch.
func (s *Service) GetMember(ctx context.Context, rc shared.RequestContext, id int64) (*Member, error) {
	member, err := s.repo.GetMember(ctx, id)
	if err != nil {
		return nil, err
	}
	if member.CompanyID != rc.CompanyID || !rc.CanAccessBranch(member.BranchID) {
		return nil, fmt.Errorf("%w: member %d", shared.ErrNotFound, id)
	}
	return member, nil
}

// ListMembers searches members by name or phone within the caller's scope.
func (s *Service) ListMembers(ctx context.Context, rc shared.RequestContext, req ListMembersRequest) ([]Member, error) {
	if req.BranchID != 0 && !rc.CanAccessBranch(req.BranchID) {
		return nil, shared.ErrForbidden
	}
	if req.Limit <= 0 || req.Limit > 200 {
		req.Limit = 50
	}
	if req.Offset < 0 {
		req.Offset = 0
	}
	return s.repo.ListMembers(ctx, rc.CompanyID, rc.BranchScope(), req)
}

// ListStates returns the configured membership states ordered by sequence.
func (s *Service) ListStates(ctx context.Context) ([]MembershipState, error) {
	return s.repo.ListStates(ctx)
}

// DefaultState is the state with the lowest sequence, or nil when none are configured.
func DefaultState(states []MembershipState) *MembershipState {
	var best *MembershipState
	for i := range states {
		if best == nil || states[i].Sequence < best.Sequence {
			best = &states[i]
		}
	}
	return best
}

// ListProducts returns the service catalog.
func (s *Service) ListProducts(ctx context.Context) ([]ServiceProduct, error) {
	return s.repo.ListProducts(ctx)
}

// RecordMeasurement stores a body measurement for a member.
func (s *Service) RecordMeasurement(ctx context.Context, rc shared.RequestContext, req CreateMeasurementRequest) (*Measurement, error) {
	if _, err := s.GetMember(ctx, rc, req.MemberID); err != nil {
		return nil, err
	}
	if req.WeightKg <= 0 || req.HeightCm <= 0 {
		return nil, shared.Validationf("weight and height must be positive")
	}
	m := &Measurement{
		MemberID:          req.MemberID,
		Date:              req.Date,
		WeightKg:          req.WeightKg,
		HeightCm:          req.HeightCm,
		BodyFatPercentage: req.BodyFatPercentage,
		MuscleMass:        req.MuscleMass,
		Note:              strings.TrimSpace(req.Note),
	}
	if err := s.repo.CreateMeasurement(ctx, m); err != nil {
		return nil, fmt.Errorf("record measurement: %w", err)
	}
	return m, nil
}

// ListMeasurements returns a member's measurements, newest first.
func (s *Service) ListMeasurements(ctx context.Context, rc shared.RequestContext, memberID int64, from, to *time.Time) ([]Measurement, error) {
	if _, err := s.GetMember(ctx, rc, memberID); err != nil {
		return nil, err
	}
	if from != nil && to != nil && to.Before(*from) {
		return nil, shared.Validationf("date range is inverted")
	}
	return s.repo.ListMeasurements(ctx, memberID, from, to)
}
