package billing

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// RecurrenceUnit is the billing cadence of a membership.
type RecurrenceUnit string

const (
	Daily     RecurrenceUnit = "daily"
	Weekly    RecurrenceUnit = "weekly"
	Monthly   RecurrenceUnit = "monthly"
	Quarterly RecurrenceUnit = "quarterly"
	Yearly    RecurrenceUnit = "yearly"
)

// Units lists every supported cadence in display order.
var Units = []RecurrenceUnit{Daily, Weekly, Monthly, Quarterly, Yearly}

// Valid reports whether the unit is known.
func (u RecurrenceUnit) Valid() bool {
	switch u {
	case Daily, Weekly, Monthly, Quarterly, Yearly:
		return true
	}
	return false
}

// ParseUnit converts user input into a RecurrenceUnit.
func ParseUnit(raw string) (RecurrenceUnit, error) {
	u := RecurrenceUnit(raw)
	if !u.Valid() {
		return "", fmt.Errorf("billing: unknown recurrence unit %q", raw)
	}
	return u, nil
}

// Schedule is the billing view of a membership.
type Schedule struct {
	StartDate       time.Time
	Unit            RecurrenceUnit
	Interval        int
	NextInvoiceDate *time.Time
	BaseAmount      decimal.Decimal
	DiscountPercent decimal.Decimal
	Status          Status
}

func (s Schedule) interval() int {
	if s.Interval == 0 {
		return 1
	}
	return s.Interval
}

// Cursor returns the stored next invoice date, or the start date when none is set yet.
func (s Schedule) Cursor() time.Time {
	if s.NextInvoiceDate != nil && !s.NextInvoiceDate.IsZero() {
		return Day(*s.NextInvoiceDate)
	}
	return Day(s.StartDate)
}

// DiscountedAmount is the per-period amount after discount.
func (s Schedule) DiscountedAmount() decimal.Decimal {
	return DiscountedAmount(s.BaseAmount, s.DiscountPercent)
}

// Day truncates t to midnight UTC of its calendar date.
func Day(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// DaysBetween returns the number of calendar days from a to b.
func DaysBetween(a, b time.Time) int {
	return int(Day(b).Sub(Day(a)).Hours() / 24)
}

// AdvancePeriod moves date by interval periods of unit. Negative intervals move
// backwards. Month based units clamp the day to the last day of the target month.
func AdvancePeriod(date time.Time, unit RecurrenceUnit, interval int) time.Time {
	date = Day(date)
	switch unit {
	case Daily:
		return date.AddDate(0, 0, interval)
	case Weekly:
		return date.AddDate(0, 0, 7*interval)
	case Monthly:
		return addMonthsClamped(date, interval)
	case Quarterly:
		return addMonthsClamped(date, 3*interval)
	case Yearly:
		return addMonthsClamped(date, 12*interval)
	default:
		return date
	}
}

func addMonthsClamped(t time.Time, months int) time.Time {
	y, m, d := t.Date()
	total := int(m) - 1 + months
	newY := y + floorDiv(total, 12)
	newM := time.Month(total - floorDiv(total, 12)*12 + 1)
	if last := daysIn(newY, newM); d > last {
		d = last
	}
	return time.Date(newY, newM, d, 0, 0, 0, 0, time.UTC)
}

func floorDiv(a, b int) int {
	q := a / b
	if (a%b != 0) && ((a < 0) != (b < 0)) {
		q--
	}
	return q
}

func daysIn(year int, month time.Month) int {
	return time.Date(year, month+1, 0, 0, 0, 0, 0, time.UTC).Day()
}

// NextInvoiceDate advances one period from whichever is later: today or the
// stored cursor (start date when unset). A late renewal therefore always lands
// past today instead of stacking missed periods.
func NextInvoiceDate(s Schedule, today time.Time) time.Time {
	base := s.Cursor()
	if t := Day(today); t.After(base) {
		base = t
	}
	return AdvancePeriod(base, s.Unit, s.interval())
}

var hundred = decimal.NewFromInt(100)

// DiscountedAmount returns round(base × (1 − pct/100), 2), never below zero.
func DiscountedAmount(base, pct decimal.Decimal) decimal.Decimal {
	factor := decimal.NewFromInt(1).Sub(pct.Div(hundred))
	amount := base.Mul(factor).Round(2)
	if amount.IsNegative() {
		return decimal.Zero
	}
	return amount
}

// ProratedRefund returns the unused share of the current period for a
// suspended schedule. Any unmet precondition yields zero.
func ProratedRefund(s Schedule, today time.Time) decimal.Decimal {
	if s.Status != StatusSuspended || s.NextInvoiceDate == nil || s.NextInvoiceDate.IsZero() {
		return decimal.Zero
	}
	next := Day(*s.NextInvoiceDate)
	daysLeft := DaysBetween(today, next)
	if daysLeft <= 0 {
		return decimal.Zero
	}
	periodStart := AdvancePeriod(next, s.Unit, -s.interval())
	daysInPeriod := DaysBetween(periodStart, next)
	if daysInPeriod < 1 {
		daysInPeriod = 1
	}
	return s.DiscountedAmount().
		Mul(decimal.NewFromInt(int64(daysLeft))).
		Div(decimal.NewFromInt(int64(daysInPeriod))).
		Round(2)
}
