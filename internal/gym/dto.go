package gym

import "time"

type CreateBranchRequest struct {
	Name         string `json:"name" validate:"required,max=120"`
	ManagerID    int64  `json:"manager_id" validate:"required,gt=0"`
	Gender       Gender `json:"gender" validate:"required,oneof=male female"`
	Address      string `json:"address" validate:"required,max=255"`
	ReminderDays *int   `json:"reminder_days,omitempty" validate:"omitempty,gte=0,lte=60"`
}

type UpdateBranchRequest struct {
	Name         *string `json:"name,omitempty" validate:"omitempty,max=120"`
	ManagerID    *int64  `json:"manager_id,omitempty" validate:"omitempty,gt=0"`
	Address      *string `json:"address,omitempty" validate:"omitempty,max=255"`
	ReminderDays *int    `json:"reminder_days,omitempty" validate:"omitempty,gte=0,lte=60"`
	Active       *bool   `json:"active,omitempty"`
}

type CreateShiftRequest struct {
	BranchID         int64   `json:"branch_id" validate:"required,gt=0"`
	Name             string  `json:"name" validate:"required,max=120"`
	StartHour        float64 `json:"start_hour" validate:"gte=0,lte=24"`
	EndHour          float64 `json:"end_hour" validate:"gte=0,lte=24"`
	Capacity         int     `json:"capacity" validate:"gte=0"`
	ServiceProductID int64   `json:"service_product_id" validate:"required,gt=0"`
	CoachIDs         []int64 `json:"coach_ids" validate:"required,min=1"`
}

type UpdateShiftRequest struct {
	Name             *string  `json:"name,omitempty" validate:"omitempty,max=120"`
	StartHour        *float64 `json:"start_hour,omitempty" validate:"omitempty,gte=0,lte=24"`
	EndHour          *float64 `json:"end_hour,omitempty" validate:"omitempty,gte=0,lte=24"`
	Capacity         *int     `json:"capacity,omitempty" validate:"omitempty,gte=0"`
	ServiceProductID *int64   `json:"service_product_id,omitempty" validate:"omitempty,gt=0"`
	Active           *bool    `json:"active,omitempty"`
}

type CreateMemberRequest struct {
	BranchID int64  `json:"branch_id" validate:"required,gt=0"`
	Name     string `json:"name" validate:"required,max=200"`
	Phone    string `json:"phone" validate:"omitempty,max=50"`
	Email    string `json:"email" validate:"omitempty,email"`
}

type UpdateMemberRequest struct {
	Name   *string `json:"name,omitempty" validate:"omitempty,max=200"`
	Phone  *string `json:"phone,omitempty" validate:"omitempty,max=50"`
	Email  *string `json:"email,omitempty" validate:"omitempty,email"`
	Active *bool   `json:"active,omitempty"`
}

type ListMembersRequest struct {
	BranchID int64
	Search   string
	Limit    int
	Offset   int
}

type CreateMeasurementRequest struct {
	MemberID          int64     `json:"member_id" validate:"required,gt=0"`
	Date              time.Time `json:"date" validate:"required"`
	WeightKg          float64   `json:"weight_kg" validate:"gt=0"`
	HeightCm          float64   `json:"height_cm" validate:"gt=0"`
	BodyFatPercentage float64   `json:"body_fat_percentage" validate:"gte=0,lte=100"`
	MuscleMass        float64   `json:"muscle_mass" validate:"gte=0"`
	Note              string    `json:"note,omitempty"`
}
