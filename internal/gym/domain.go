// Package gym manages the master data memberships hang off: branches, shifts,
// members, membership states, service products and body measurements.
package gym

import (
	"math"
	"time"

	"github.com/shopspring/decimal"

	"github.com/odyssey-erp/gymsuite/internal/billing"
)

// Gender of a branch; members and memberships inherit it.
type Gender string

const (
	GenderMale   Gender = "male"
	GenderFemale Gender = "female"
)

// DefaultReminderDays is used when a branch does not configure its own window.
const DefaultReminderDays = 3

// Branch is a gym location.
type Branch struct {
	ID           int64     `json:"id"`
	CompanyID    int64     `json:"company_id"`
	Name         string    `json:"name"`
	ManagerID    int64     `json:"manager_id"`
	Gender       Gender    `json:"gender"`
	Address      string    `json:"address"`
	ReminderDays int       `json:"reminder_days"`
	Active       bool      `json:"active"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// Shift is a schedule slot within a branch.
type Shift struct {
	ID               int64     `json:"id"`
	BranchID         int64     `json:"branch_id"`
	Name             string    `json:"name"`
	StartHour        float64   `json:"start_hour"`
	EndHour          float64   `json:"end_hour"`
	Capacity         int       `json:"capacity"`
	ServiceProductID int64     `json:"service_product_id"`
	CoachIDs         []int64   `json:"coach_ids"`
	Active           bool      `json:"active"`
	CreatedAt        time.Time `json:"created_at"`
	UpdatedAt        time.Time `json:"updated_at"`
}

// Member is a gym client.
type Member struct {
	ID         int64     `json:"id"`
	CompanyID  int64     `json:"company_id"`
	BranchID   int64     `json:"branch_id"`
	Name       string    `json:"name"`
	Phone      string    `json:"phone"`
	Email      string    `json:"email"`
	Gender     Gender    `json:"gender"`
	SMSWarning string    `json:"sms_warning,omitempty"`
	Active     bool      `json:"active"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// MembershipState is a configurable label mapped onto a lifecycle status.
// The state with the lowest sequence is assigned to new memberships.
type MembershipState struct {
	ID       int64          `json:"id"`
	Name     string         `json:"name"`
	Status   billing.Status `json:"status"`
	Sequence int            `json:"sequence"`
}

// ServiceProduct is the sellable service behind a shift.
type ServiceProduct struct {
	ID        int64            `json:"id"`
	Name      string           `json:"name"`
	ListPrice decimal.Decimal  `json:"list_price"`
	Variants  []ProductVariant `json:"variants"`
}

// ProductVariant prices the product for one recurrence unit.
type ProductVariant struct {
	ID    int64                  `json:"id"`
	Unit  billing.RecurrenceUnit `json:"unit"`
	Price decimal.Decimal        `json:"price"`
}

// PriceFor returns the unit price for a recurrence unit and the variant that
// supplied it. Without a matching variant the base list price applies.
func (p ServiceProduct) PriceFor(unit billing.RecurrenceUnit) (decimal.Decimal, *ProductVariant) {
	for i := range p.Variants {
		if p.Variants[i].Unit == unit {
			return p.Variants[i].Price, &p.Variants[i]
		}
	}
	return p.ListPrice, nil
}

// Measurement is a body measurement of a member.
type Measurement struct {
	ID                int64     `json:"id"`
	MemberID          int64     `json:"member_id"`
	Date              time.Time `json:"date"`
	WeightKg          float64   `json:"weight_kg"`
	HeightCm          float64   `json:"height_cm"`
	BodyFatPercentage float64   `json:"body_fat_percentage"`
	MuscleMass        float64   `json:"muscle_mass"`
	Note              string    `json:"note,omitempty"`
}

// BMI is derived on read; zero when height is unknown.
func (m Measurement) BMI() float64 {
	if m.HeightCm <= 0 {
		return 0
	}
	h := m.HeightCm / 100
	return math.Round(m.WeightKg/(h*h)*100) / 100
}

// BMICategory names the WHO band for the BMI.
func (m Measurement) BMICategory() string {
	bmi := m.BMI()
	switch {
	case bmi == 0:
		return ""
	case bmi < 18.5:
		return "Underweight"
	case bmi < 25:
		return "Normal weight"
	case bmi < 30:
		return "Overweight"
	default:
		return "Obese"
	}
}
