package reports

import (
	"bytes"
	"context"
	"encoding/csv"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/odyssey-erp/gymsuite/internal/billing"
	"github.com/odyssey-erp/gymsuite/internal/gym"
	"github.com/odyssey-erp/gymsuite/internal/shared"
)

type fakeRepo struct {
	records      []MembershipRecord
	header       *MemberHeader
	measurements []gym.Measurement
	lines        []SalesLine

	gotBranchIDs []int64
	gotSales     SalesFilter
}

func (f *fakeRepo) MembershipRecords(_ context.Context, _ int64, branchIDs []int64, filter MembershipFilter) ([]MembershipRecord, error) {
	f.gotBranchIDs = branchIDs
	var out []MembershipRecord
	for _, rec := range f.records {
		if filter.Status != "" && rec.State != string(filter.Status) {
			continue
		}
		out = append(out, rec)
	}
	return out, nil
}

func (f *fakeRepo) MemberHeader(_ context.Context, memberID int64) (*MemberHeader, error) {
	if f.header == nil || f.header.MemberID != memberID {
		return nil, shared.ErrNotFound
	}
	return f.header, nil
}

func (f *fakeRepo) Measurements(context.Context, int64, *time.Time, *time.Time) ([]gym.Measurement, error) {
	return append([]gym.Measurement(nil), f.measurements...), nil
}

func (f *fakeRepo) SalesLines(_ context.Context, filter SalesFilter) ([]SalesLine, error) {
	f.gotSales = filter
	return f.lines, nil
}

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func day(s string) time.Time {
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		panic(err)
	}
	return t
}

var (
	admin = shared.RequestContext{UserID: 1, CompanyID: 1, IsAdmin: true}
	clerk = shared.RequestContext{UserID: 2, CompanyID: 1, AllowedBranches: []int64{10}}
)

func membershipFixture() *fakeRepo {
	expiry := day("2025-03-01")
	return &fakeRepo{records: []MembershipRecord{
		{Code: "MEM/00002", Branch: "Downtown", Shift: "Morning", Gender: "male", State: "active", Service: "Gym Access",
			Unit: billing.Monthly, Amount: dec("50"), DiscountPercent: dec("10"), RefundDue: decimal.Zero, Expiry: &expiry},
		{Code: "MEM/00001", Branch: "Downtown", Shift: "Evening", Gender: "male", State: "suspended", Service: "Gym Access",
			Unit: billing.Yearly, Amount: dec("100"), DiscountPercent: decimal.Zero, RefundDue: dec("25.81")},
	}}
}

func TestMembershipReportTotals(t *testing.T) {
	svc := NewService(membershipFixture())

	report, err := svc.MembershipReport(context.Background(), admin, MembershipFilter{})
	require.NoError(t, err)
	require.Len(t, report.Rows, 2)

	assert.Equal(t, "Monthly", report.Rows[0].Package)
	assert.True(t, dec("45").Equal(report.Rows[0].Discounted))
	assert.True(t, dec("150").Equal(report.TotalAmount))
	assert.True(t, dec("145").Equal(report.TotalDiscounted))
	assert.True(t, dec("25.81").Equal(report.TotalRefunded))
	assert.True(t, dec("119.19").Equal(report.NetProfit))
}

func TestMembershipReportRequiresBranchForNonAdmin(t *testing.T) {
	repo := membershipFixture()
	svc := NewService(repo)

	_, err := svc.MembershipReport(context.Background(), clerk, MembershipFilter{})
	require.ErrorIs(t, err, shared.ErrValidation)

	_, err = svc.MembershipReport(context.Background(), clerk, MembershipFilter{BranchID: 99})
	require.ErrorIs(t, err, shared.ErrForbidden)

	_, err = svc.MembershipReport(context.Background(), clerk, MembershipFilter{BranchID: 10})
	require.NoError(t, err)
	assert.Equal(t, []int64{10}, repo.gotBranchIDs)
}

func TestMembershipReportEmptyAndDraft(t *testing.T) {
	svc := NewService(membershipFixture())

	_, err := svc.MembershipReport(context.Background(), admin, MembershipFilter{Status: billing.StatusCancelled})
	require.ErrorIs(t, err, shared.ErrValidation)
	assert.Contains(t, err.Error(), "no memberships found")

	_, err = svc.MembershipReport(context.Background(), admin, MembershipFilter{Status: billing.StatusDraft})
	require.ErrorIs(t, err, shared.ErrValidation)
}

func TestMeasurementReport(t *testing.T) {
	repo := &fakeRepo{
		header: &MemberHeader{MemberID: 5, MemberName: "Amina", BranchID: 10, BranchName: "Downtown"},
		measurements: []gym.Measurement{
			{ID: 1, MemberID: 5, Date: day("2025-01-01"), WeightKg: 80, HeightCm: 175},
			{ID: 2, MemberID: 5, Date: day("2025-02-01"), WeightKg: 70, HeightCm: 175},
		},
	}
	svc := NewService(repo)

	report, err := svc.MeasurementReport(context.Background(), clerk, 5, nil, nil)
	require.NoError(t, err)
	require.Len(t, report.Rows, 2)
	assert.Equal(t, day("2025-02-01"), report.Rows[0].Date)
	assert.InDelta(t, 22.86, report.Rows[0].BMI, 0.001)
	assert.Equal(t, "Normal weight", report.Rows[0].BMICategory)
	assert.Equal(t, "Downtown", report.BranchName)

	outsider := shared.RequestContext{UserID: 3, CompanyID: 1, AllowedBranches: []int64{11}}
	_, err = svc.MeasurementReport(context.Background(), outsider, 5, nil, nil)
	require.ErrorIs(t, err, shared.ErrNotFound)

	from, to := day("2025-03-01"), day("2025-02-01")
	_, err = svc.MeasurementReport(context.Background(), clerk, 5, &from, &to)
	require.ErrorIs(t, err, shared.ErrValidation)

	repo.measurements = nil
	_, err = svc.MeasurementReport(context.Background(), clerk, 5, nil, nil)
	require.ErrorIs(t, err, shared.ErrValidation)
}

func salesFixture() *fakeRepo {
	return &fakeRepo{lines: []SalesLine{
		{OrderDate: day("2025-01-02"), OrderName: "S0001", CustomerID: 1, Customer: "Zed", ProductID: 7, Product: "Protein",
			OrderedQty: dec("2"), DeliveredQty: dec("2"), Rate: dec("10"), Amount: dec("20"), ToInvoiceQty: dec("0"), InvoicedQty: dec("2")},
		{OrderDate: day("2025-01-03"), OrderName: "S0002", CustomerID: 1, Customer: "Zed", ProductID: 8, Product: "Towel",
			OrderedQty: dec("1"), DeliveredQty: dec("0"), Rate: dec("5"), Amount: dec("5"), ToInvoiceQty: dec("1"), InvoicedQty: dec("0")},
		{OrderDate: day("2025-01-04"), OrderName: "S0003", ProductID: 7, Product: "Protein",
			OrderedQty: dec("1"), DeliveredQty: dec("1"), Rate: dec("10"), Amount: dec("10"), ToInvoiceQty: dec("0"), InvoicedQty: dec("1")},
	}}
}

func TestSalesReportGrouping(t *testing.T) {
	tests := []struct {
		name     string
		groupBy  SalesGrouping
		groups   []string
		firstAmt string
	}{
		{"by customer", GroupByCustomer, []string{"Undefined Customer", "Zed"}, "10"},
		{"by item", GroupByItem, []string{"Protein", "Towel"}, "30"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			svc := NewService(salesFixture())
			report, err := svc.SalesReport(context.Background(), admin, SalesFilter{
				From: day("2025-01-01"), To: day("2025-01-31"), GroupBy: tc.groupBy,
			})
			require.NoError(t, err)
			require.Len(t, report.Sections, len(tc.groups))
			for i, g := range tc.groups {
				assert.Equal(t, g, report.Sections[i].Group)
				assert.Empty(t, report.Sections[i].Lines)
			}
			assert.True(t, dec(tc.firstAmt).Equal(report.Sections[0].TotalAmount))
			assert.True(t, dec("35").Equal(report.Total))
			assert.Equal(t, SalesSummary, report.Type)
		})
	}
}

func TestSalesReportDetailAndValidation(t *testing.T) {
	repo := salesFixture()
	svc := NewService(repo)

	report, err := svc.SalesReport(context.Background(), clerk, SalesFilter{
		From: day("2025-01-01"), To: day("2025-01-31"), Type: SalesDetail, CompanyID: 42,
	})
	require.NoError(t, err)
	assert.Len(t, report.Sections[1].Lines, 2)
	assert.True(t, dec("3").Equal(report.Sections[1].TotalOrderedQty))
	assert.True(t, dec("1").Equal(report.Sections[1].TotalToInvoiceQty))
	assert.Equal(t, int64(1), repo.gotSales.CompanyID)

	_, err = svc.SalesReport(context.Background(), admin, SalesFilter{From: day("2025-02-01"), To: day("2025-01-01")})
	require.ErrorIs(t, err, shared.ErrValidation)

	_, err = svc.SalesReport(context.Background(), admin, SalesFilter{From: day("2025-01-01"), To: day("2025-01-31"), GroupBy: "region"})
	require.ErrorIs(t, err, shared.ErrValidation)
}

func TestWriteMembershipCSV(t *testing.T) {
	report, err := NewService(membershipFixture()).MembershipReport(context.Background(), admin, MembershipFilter{})
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, WriteMembershipCSV(&buf, report))

	records, err := csv.NewReader(&buf).ReadAll()
	require.NoError(t, err)
	require.Len(t, records, 5)
	assert.Equal(t, "Ref", records[0][0])
	assert.Equal(t, []string{"MEM/00002", "Downtown", "Morning", "male", "active", "Gym Access", "Monthly", "50.00", "45.00", "0.00", "2025-03-01"}, records[1])
	assert.Equal(t, "", records[2][10])
	assert.Equal(t, "Net Profit", records[4][0])
	assert.Equal(t, "119.19", records[4][8])
}

func TestHandlerCSVDownload(t *testing.T) {
	h := NewHandler(slog.New(slog.NewTextHandler(io.Discard, nil)), NewService(membershipFixture()))
	r := chi.NewRouter()
	r.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
			next.ServeHTTP(w, req.WithContext(shared.ContextWithRequest(req.Context(), admin)))
		})
	})
	h.MountRoutes(r)

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/memberships?format=csv", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "text/csv", rec.Header().Get("Content-Type"))
	assert.Contains(t, rec.Body.String(), "MEM/00001")

	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/sales?from=2025-13-01", nil))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
