// Package dashboard aggregates membership and revenue figures for the landing
// page and caches them in Redis until the next membership write.
package dashboard

import (
	"context"
	"fmt"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/samber/lo"
	"github.com/shopspring/decimal"

	"github.com/odyssey-erp/gymsuite/internal/billing"
	"github.com/odyssey-erp/gymsuite/internal/invoicing"
	"github.com/odyssey-erp/gymsuite/internal/shared"
)

// ExpiryWindowDays is how far ahead "about to expire" looks.
const ExpiryWindowDays = 7

// Dimension is a grouping axis of the membership counts.
type Dimension string

const (
	ByBranch Dimension = "branch"
	ByGender Dimension = "gender"
	ByUnit   Dimension = "unit"
	ByMonth  Dimension = "month"
)

// Bucket is one group of a grouped count.
type Bucket struct {
	Key   string `json:"key"`
	Label string `json:"label"`
	Count int    `json:"count"`
}

// MonthlyRevenue is the posted invoice total of one month.
type MonthlyRevenue struct {
	Month string          `json:"month"`
	Total decimal.Decimal `json:"total"`
	Count int             `json:"count"`
}

// Summary is the dashboard payload.
type Summary struct {
	Active        int              `json:"active"`
	Expired       int              `json:"expired"`
	Suspended     int              `json:"suspended"`
	AboutToExpire int              `json:"about_to_expire"`
	ByBranch      []Bucket         `json:"by_branch"`
	ByGender      []Bucket         `json:"by_gender"`
	ByUnit        []Bucket         `json:"by_unit"`
	ByMonth       []Bucket         `json:"by_month"`
	Revenue       []MonthlyRevenue `json:"revenue"`
	AsOf          string           `json:"as_of"`
}

// Repository runs the aggregate queries.
type Repository interface {
	StatusCounts(ctx context.Context, companyID int64, branchIDs []int64) (map[billing.Status]int, error)
	CountExpiring(ctx context.Context, companyID int64, branchIDs []int64, from, to time.Time) (int, error)
	GroupCounts(ctx context.Context, dim Dimension, companyID int64, branchIDs []int64, from, to time.Time) ([]Bucket, error)
}

// RevenueSource reports posted invoice totals.
type RevenueSource interface {
	MonthlyPostedTotals(ctx context.Context, rc shared.RequestContext, from, to time.Time) ([]invoicing.MonthlyTotal, error)
}

// Service builds dashboard summaries.
type Service struct {
	repo    Repository
	revenue RevenueSource
	cache   *Cache
}

// NewService constructs the dashboard service.
func NewService(repo Repository, revenue RevenueSource, cache *Cache) *Service {
	return &Service{repo: repo, revenue: revenue, cache: cache}
}

// Bump invalidates cached summaries.
func (s *Service) Bump(ctx context.Context) error {
	return s.cache.Bump(ctx)
}

func scopeToken(rc shared.RequestContext) string {
	scope := rc.BranchScope()
	if scope == nil {
		return "all"
	}
	ids := slices.Clone(scope)
	slices.Sort(ids)
	return "b" + strings.Join(lo.Map(ids, func(id int64, _ int) string { return strconv.FormatInt(id, 10) }), ",")
}

// Summary returns the dashboard for the twelve months ending at today's month.
func (s *Service) Summary(ctx context.Context, rc shared.RequestContext, today time.Time) (*Summary, error) {
	today = billing.Day(today)
	key, err := s.cache.BuildKey(ctx, "dashboard", "summary", strconv.FormatInt(rc.CompanyID, 10), scopeToken(rc), today.Format("2006-01-02"))
	if err != nil {
		return nil, err
	}
	var out Summary
	err = s.cache.FetchJSON(ctx, key, &out, func(ctx context.Context) (any, error) {
		return s.build(ctx, rc, today)
	})
	if err != nil {
		return nil, err
	}
	return &out, nil
}

func (s *Service) build(ctx context.Context, rc shared.RequestContext, today time.Time) (*Summary, error) {
	scope := rc.BranchScope()
	counts, err := s.repo.StatusCounts(ctx, rc.CompanyID, scope)
	if err != nil {
		return nil, fmt.Errorf("status counts: %w", err)
	}
	expiring, err := s.repo.CountExpiring(ctx, rc.CompanyID, scope, today, today.AddDate(0, 0, ExpiryWindowDays))
	if err != nil {
		return nil, fmt.Errorf("expiring count: %w", err)
	}

	months := monthSeries(today, 12)
	from := months[0]
	to := months[len(months)-1].AddDate(0, 1, -1)

	summary := &Summary{
		Active:        counts[billing.StatusActive],
		Expired:       counts[billing.StatusExpired],
		Suspended:     counts[billing.StatusSuspended],
		AboutToExpire: expiring,
		AsOf:          today.Format("2006-01-02"),
	}
	groups := map[Dimension]*[]Bucket{
		ByBranch: &summary.ByBranch,
		ByGender: &summary.ByGender,
		ByUnit:   &summary.ByUnit,
		ByMonth:  &summary.ByMonth,
	}
	for dim, target := range groups {
		buckets, err := s.repo.GroupCounts(ctx, dim, rc.CompanyID, scope, from, to)
		if err != nil {
			return nil, fmt.Errorf("group by %s: %w", dim, err)
		}
		*target = buckets
	}
	summary.ByMonth = fillMonths(months, summary.ByMonth)

	totals, err := s.revenue.MonthlyPostedTotals(ctx, rc, from, to)
	if err != nil {
		return nil, fmt.Errorf("revenue: %w", err)
	}
	summary.Revenue = revenueSeries(months, totals)
	return summary, nil
}

// monthSeries returns the first day of the n months ending with today's month.
func monthSeries(today time.Time, n int) []time.Time {
	first := time.Date(today.Year(), today.Month(), 1, 0, 0, 0, 0, time.UTC)
	return lo.Map(lo.Range(n), func(i, _ int) time.Time {
		return first.AddDate(0, i-n+1, 0)
	})
}

func fillMonths(months []time.Time, buckets []Bucket) []Bucket {
	byKey := lo.KeyBy(buckets, func(b Bucket) string { return b.Key })
	return lo.Map(months, func(m time.Time, _ int) Bucket {
		key := m.Format("2006-01")
		return Bucket{Key: key, Label: m.Format("Jan 2006"), Count: byKey[key].Count}
	})
}

func revenueSeries(months []time.Time, totals []invoicing.MonthlyTotal) []MonthlyRevenue {
	byKey := lo.KeyBy(totals, func(t invoicing.MonthlyTotal) string { return t.Month.Format("2006-01") })
	return lo.Map(months, func(m time.Time, _ int) MonthlyRevenue {
		key := m.Format("2006-01")
		t, ok := byKey[key]
		if !ok {
			return MonthlyRevenue{Month: key, Total: decimal.Zero}
		}
		return MonthlyRevenue{Month: key, Total: t.Total, Count: t.Count}
	})
}
