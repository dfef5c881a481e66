package billing

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func date(t *testing.T, s string) time.Time {
	t.Helper()
	d, err := time.Parse("2006-01-02", s)
	require.NoError(t, err)
	return d
}

func ptr(t time.Time) *time.Time { return &t }

func TestAdvancePeriod(t *testing.T) {
	cases := []struct {
		start    string
		unit     RecurrenceUnit
		interval int
		want     string
	}{
		{"2025-01-01", Daily, 10, "2025-01-11"},
		{"2025-01-01", Weekly, 2, "2025-01-15"},
		{"2025-01-31", Monthly, 1, "2025-02-28"},
		{"2024-01-31", Monthly, 1, "2024-02-29"},
		{"2025-01-15", Monthly, 14, "2026-03-15"},
		{"2025-11-30", Quarterly, 1, "2026-02-28"},
		{"2024-02-29", Yearly, 1, "2025-02-28"},
		{"2025-03-31", Monthly, -1, "2025-02-28"},
		{"2025-01-15", Monthly, -13, "2023-12-15"},
		{"2025-02-01", Monthly, -1, "2025-01-01"},
	}
	for _, tc := range cases {
		got := AdvancePeriod(date(t, tc.start), tc.unit, tc.interval)
		assert.Equal(t, tc.want, got.Format("2006-01-02"), "%s %s %d", tc.start, tc.unit, tc.interval)
	}
}

func TestAdvancePeriodRoundTripForDayBasedUnits(t *testing.T) {
	start := date(t, "2024-02-27")
	for i := 0; i < 400; i++ {
		d := start.AddDate(0, 0, i)
		for _, unit := range []RecurrenceUnit{Daily, Weekly} {
			for _, interval := range []int{1, 2, 5} {
				forward := AdvancePeriod(d, unit, interval)
				assert.Equal(t, d, AdvancePeriod(forward, unit, -interval))
			}
		}
	}
}

func TestAdvancePeriodMonthEndDoesNotRoundTrip(t *testing.T) {
	jan31 := date(t, "2025-01-31")
	feb28 := AdvancePeriod(jan31, Monthly, 1)
	assert.Equal(t, date(t, "2025-02-28"), feb28)
	assert.Equal(t, date(t, "2025-01-28"), AdvancePeriod(feb28, Monthly, -1))
}

func TestDiscountedAmount(t *testing.T) {
	hundred := decimal.NewFromInt(100)
	assert.True(t, DiscountedAmount(hundred, decimal.NewFromInt(20)).Equal(decimal.RequireFromString("80.00")))
	assert.True(t, DiscountedAmount(hundred, decimal.Zero).Equal(hundred))
	assert.True(t, DiscountedAmount(decimal.NewFromInt(50), decimal.NewFromInt(10)).Equal(decimal.RequireFromString("45.00")))
	assert.True(t, DiscountedAmount(decimal.RequireFromString("33.33"), decimal.RequireFromString("33.3")).Equal(decimal.RequireFromString("22.23")))
	for pct := 0; pct <= 100; pct++ {
		got := DiscountedAmount(decimal.RequireFromString("19.99"), decimal.NewFromInt(int64(pct)))
		assert.False(t, got.IsNegative(), "pct %d", pct)
	}
	assert.True(t, DiscountedAmount(hundred, decimal.NewFromInt(120)).IsZero())
}

func TestNextInvoiceDateKeepsFutureCursor(t *testing.T) {
	s := Schedule{StartDate: date(t, "2025-01-01"), Unit: Monthly, Interval: 1, NextInvoiceDate: ptr(date(t, "2025-03-01"))}
	got := NextInvoiceDate(s, date(t, "2025-02-10"))
	assert.Equal(t, AdvancePeriod(date(t, "2025-03-01"), Monthly, 1), got)
}

func TestNextInvoiceDateOverdueLandsAfterToday(t *testing.T) {
	s := Schedule{StartDate: date(t, "2024-01-01"), Unit: Weekly, Interval: 1, NextInvoiceDate: ptr(date(t, "2024-02-01"))}
	today := date(t, "2025-06-18")
	got := NextInvoiceDate(s, today)
	assert.True(t, got.After(today))
	assert.Equal(t, date(t, "2025-06-25"), got)
}

func TestNextInvoiceDateUsesStartWhenCursorMissing(t *testing.T) {
	s := Schedule{StartDate: date(t, "2025-05-10"), Unit: Quarterly}
	assert.Equal(t, date(t, "2025-08-10"), NextInvoiceDate(s, date(t, "2025-05-01")))
}

func TestProratedRefundScenario(t *testing.T) {
	s := Schedule{
		StartDate:       date(t, "2025-01-01"),
		Unit:            Monthly,
		Interval:        1,
		NextInvoiceDate: ptr(date(t, "2025-02-01")),
		BaseAmount:      decimal.NewFromInt(50),
		Status:          StatusSuspended,
	}
	assert.Equal(t, "25.81", ProratedRefund(s, date(t, "2025-01-16")).StringFixed(2))

	s.DiscountPercent = decimal.NewFromInt(10)
	assert.Equal(t, "45.00", s.DiscountedAmount().StringFixed(2))
	assert.Equal(t, "23.23", ProratedRefund(s, date(t, "2025-01-16")).StringFixed(2))
}

func TestProratedRefundPreconditionsYieldZero(t *testing.T) {
	base := Schedule{
		StartDate:       date(t, "2025-01-01"),
		Unit:            Monthly,
		Interval:        1,
		NextInvoiceDate: ptr(date(t, "2025-02-01")),
		BaseAmount:      decimal.NewFromInt(50),
		Status:          StatusSuspended,
	}
	active := base
	active.Status = StatusActive
	noCursor := base
	noCursor.NextInvoiceDate = nil

	assert.True(t, ProratedRefund(active, date(t, "2025-01-16")).IsZero())
	assert.True(t, ProratedRefund(noCursor, date(t, "2025-01-16")).IsZero())
	assert.True(t, ProratedRefund(base, date(t, "2025-02-01")).IsZero())
	assert.True(t, ProratedRefund(base, date(t, "2025-03-01")).IsZero())
}

func TestProratedRefundIgnoresTimeOfDay(t *testing.T) {
	s := Schedule{
		Unit:            Daily,
		Interval:        10,
		NextInvoiceDate: ptr(time.Date(2025, 1, 11, 0, 0, 0, 0, time.UTC)),
		BaseAmount:      decimal.NewFromInt(100),
		Status:          StatusSuspended,
	}
	late := time.Date(2025, 1, 6, 23, 59, 0, 0, time.UTC)
	assert.Equal(t, "50.00", ProratedRefund(s, late).StringFixed(2))
}

func TestParseUnit(t *testing.T) {
	u, err := ParseUnit("quarterly")
	require.NoError(t, err)
	assert.Equal(t, Quarterly, u)
	_, err = ParseUnit("fortnightly")
	assert.Error(t, err)
}

func TestFormatMoney(t *testing.T) {
	assert.Equal(t, "USD 1,250.50", FormatMoney(decimal.RequireFromString("1250.5"), "USD"))
	assert.Equal(t, "25.81", FormatMoney(decimal.RequireFromString("25.805"), ""))
	assert.Equal(t, "-0.50", FormatMoney(decimal.RequireFromString("-0.5"), ""))
	assert.Equal(t, "USD 0.00", FormatMoney(decimal.Zero, "USD"))
	// Beyond float64 precision the cents must survive.
	assert.Equal(t, "90,071,992,547,409,931.07", FormatMoney(decimal.RequireFromString("90071992547409931.07"), ""))
	assert.Equal(t, "123,456,789,012,345,678,901.99", FormatMoney(decimal.RequireFromString("123456789012345678901.99"), ""))
}
