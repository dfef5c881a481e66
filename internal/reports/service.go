package reports

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/samber/lo"

	"github.com/odyssey-erp/gymsuite/internal/billing"
	"github.com/odyssey-erp/gymsuite/internal/gym"
	"github.com/odyssey-erp/gymsuite/internal/shared"
)

const (
	undefinedCustomer = "Undefined Customer"
	undefinedProduct  = "Undefined Product"
)

// MemberHeader identifies the member a measurement report is printed for.
type MemberHeader struct {
	MemberID   int64
	MemberName string
	BranchID   int64
	BranchName string
}

// Repository reads report rows.
type Repository interface {
	MembershipRecords(ctx context.Context, companyID int64, branchIDs []int64, filter MembershipFilter) ([]MembershipRecord, error)
	MemberHeader(ctx context.Context, memberID int64) (*MemberHeader, error)
	Measurements(ctx context.Context, memberID int64, from, to *time.Time) ([]gym.Measurement, error)
	SalesLines(ctx context.Context, filter SalesFilter) ([]SalesLine, error)
}

// Service assembles reports.
type Service struct {
	repo Repository
}

// NewService constructs the report service.
func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

// MembershipReport lists non-draft memberships with amount, discount and refund totals.
// Non-admin callers must narrow the report to a branch they can see.
func (s *Service) MembershipReport(ctx context.Context, rc shared.RequestContext, filter MembershipFilter) (*MembershipReport, error) {
	if !rc.IsAdmin {
		if filter.BranchID == 0 {
			return nil, shared.Validationf("branch is required")
		}
		if !rc.CanAccessBranch(filter.BranchID) {
			return nil, shared.ErrForbidden
		}
	}
	if filter.Status != "" && !filter.Status.Valid() {
		return nil, shared.Validationf("unknown status %q", filter.Status)
	}
	if filter.Status == billing.StatusDraft {
		return nil, shared.Validationf("draft memberships are not reported")
	}
	if filter.Unit != "" && !filter.Unit.Valid() {
		return nil, shared.Validationf("unknown recurrence unit %q", filter.Unit)
	}
	records, err := s.repo.MembershipRecords(ctx, rc.CompanyID, rc.BranchScope(), filter)
	if err != nil {
		return nil, err
	}
	if len(records) == 0 {
		return nil, shared.Validationf("no memberships found for the selected criteria")
	}

	report := &MembershipReport{
		Rows: lo.Map(records, func(rec MembershipRecord, _ int) MembershipRow {
			return MembershipRow{
				Code:       rec.Code,
				Branch:     rec.Branch,
				Shift:      rec.Shift,
				Gender:     rec.Gender,
				State:      rec.State,
				Service:    rec.Service,
				Package:    unitLabel(rec.Unit),
				Amount:     rec.Amount,
				Discounted: billing.DiscountedAmount(rec.Amount, rec.DiscountPercent),
				Refunded:   rec.RefundDue,
				Expiry:     rec.Expiry,
			}
		}),
	}
	for _, row := range report.Rows {
		report.TotalAmount = report.TotalAmount.Add(row.Amount)
		report.TotalDiscounted = report.TotalDiscounted.Add(row.Discounted)
		report.TotalRefunded = report.TotalRefunded.Add(row.Refunded)
	}
	report.NetProfit = report.TotalDiscounted.Sub(report.TotalRefunded)
	return report, nil
}

func unitLabel(u billing.RecurrenceUnit) string {
	if u == "" {
		return ""
	}
	return strings.ToUpper(string(u[:1])) + string(u[1:])
}

// MeasurementReport lists a member's body measurements in the optional date range.
func (s *Service) MeasurementReport(ctx context.Context, rc shared.RequestContext, memberID int64, from, to *time.Time) (*MeasurementReport, error) {
	if memberID <= 0 {
		return nil, shared.Validationf("member is required")
	}
	if from != nil && to != nil && from.After(*to) {
		return nil, shared.Validationf("date from must not be after date to")
	}
	header, err := s.repo.MemberHeader(ctx, memberID)
	if err != nil {
		return nil, err
	}
	if !rc.CanAccessBranch(header.BranchID) {
		return nil, fmt.Errorf("%w: member %d", shared.ErrNotFound, memberID)
	}
	measurements, err := s.repo.Measurements(ctx, memberID, from, to)
	if err != nil {
		return nil, err
	}
	if len(measurements) == 0 {
		return nil, shared.Validationf("no measurements found for the selected criteria")
	}
	sort.SliceStable(measurements, func(i, j int) bool {
		return measurements[i].Date.After(measurements[j].Date)
	})
	return &MeasurementReport{
		MemberName: header.MemberName,
		BranchName: header.BranchName,
		From:       from,
		To:         to,
		Rows: lo.Map(measurements, func(m gym.Measurement, _ int) MeasurementRow {
			return MeasurementRow{
				Date:        m.Date,
				WeightKg:    m.WeightKg,
				HeightCm:    m.HeightCm,
				BMI:         m.BMI(),
				BMICategory: m.BMICategory(),
			}
		}),
	}, nil
}

// SalesReport groups confirmed order lines by customer or product.
// The summary layout carries totals only; the detail layout adds the lines.
func (s *Service) SalesReport(ctx context.Context, rc shared.RequestContext, filter SalesFilter) (*SalesReport, error) {
	if filter.From.IsZero() || filter.To.IsZero() {
		return nil, shared.Validationf("date range is required")
	}
	if filter.From.After(filter.To) {
		return nil, shared.Validationf("date from must not be after date to")
	}
	if filter.Type == "" {
		filter.Type = SalesSummary
	}
	if filter.Type != SalesSummary && filter.Type != SalesDetail {
		return nil, shared.Validationf("unknown report type %q", filter.Type)
	}
	if filter.GroupBy == "" {
		filter.GroupBy = GroupByCustomer
	}
	if filter.GroupBy != GroupByCustomer && filter.GroupBy != GroupByItem {
		return nil, shared.Validationf("unknown grouping %q", filter.GroupBy)
	}
	if filter.CompanyID == 0 || !rc.IsAdmin {
		filter.CompanyID = rc.CompanyID
	}

	lines, err := s.repo.SalesLines(ctx, filter)
	if err != nil {
		return nil, err
	}

	groups := lo.GroupBy(lines, func(l SalesLine) string { return groupName(l, filter.GroupBy) })
	names := lo.Keys(groups)
	sort.Strings(names)

	report := &SalesReport{
		Type:     filter.Type,
		GroupBy:  filter.GroupBy,
		From:     filter.From,
		To:       filter.To,
		Sections: make([]SalesSection, 0, len(names)),
	}
	for _, name := range names {
		section := SalesSection{Group: name}
		for _, l := range groups[name] {
			section.TotalAmount = section.TotalAmount.Add(l.Amount)
			section.TotalOrderedQty = section.TotalOrderedQty.Add(l.OrderedQty)
			section.TotalDeliveredQty = section.TotalDeliveredQty.Add(l.DeliveredQty)
			section.TotalToInvoiceQty = section.TotalToInvoiceQty.Add(l.ToInvoiceQty)
			section.TotalInvoicedQty = section.TotalInvoicedQty.Add(l.InvoicedQty)
		}
		if filter.Type == SalesDetail {
			section.Lines = groups[name]
		}
		report.Total = report.Total.Add(section.TotalAmount)
		report.Sections = append(report.Sections, section)
	}
	return report, nil
}

func groupName(l SalesLine, by SalesGrouping) string {
	if by == GroupByItem {
		if l.ProductID == 0 || l.Product == "" {
			return undefinedProduct
		}
		return l.Product
	}
	if l.CustomerID == 0 || l.Customer == "" {
		return undefinedCustomer
	}
	return l.Customer
}
