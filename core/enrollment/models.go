package enrollment

import (
	"time"

	"github.com/shopspring/decimal"
)

type (
	ProgressStatus string
	PaymentStatus  string
)

const (
	ProgressEnrolled   ProgressStatus = "Enrolled"
	ProgressInProgress ProgressStatus = "InProgress"
	ProgressCompleted  ProgressStatus = "Completed"

	PaymentCompleted PaymentStatus = "Completed"

	// MethodFree is the payment method recorded for free courses.
	MethodFree = "Free"
)

// orderingFields are the enrollment fields a listing may be ordered by.
var orderingFields = map[string]bool{
	"id":          true,
	"enrolled_at": true,
	"course_id":   true,
	"progress":    true,
}

type (
	Enrollment struct {
		ID          int            `json:"id"`
		CourseID    int            `json:"course_id"`
		CourseTitle string         `json:"course_title,omitempty"` // joined in listings
		StudentID   int            `json:"student_id"`
		EnrolledAt  time.Time      `json:"enrolled_at"` // UTC
		Status      ProgressStatus `json:"progress_status"`
		Progress    int            `json:"percent_completed"` // 0-100
	}

	Payment struct {
		ID                 int             `json:"id"`
		EnrollmentID       int             `json:"enrollment_id"`
		Amount             decimal.Decimal `json:"amount"`
		DiscountApplied    decimal.Decimal `json:"discount_applied"`
		Method             string          `json:"payment_method"`
		Status             PaymentStatus   `json:"status"`
		RewardRedemptionID *int            `json:"reward_redemption_id"`
		PointsUsed         int             `json:"points_used"`
		CreatedAt          time.Time       `json:"created_at"` // UTC
	}

	// Receipt is an enrollment with the payment created alongside it.
	Receipt struct {
		Enrollment
		Payment Payment `json:"payment"`
	}

	NewEnrollment struct {
		CourseID           int    `json:"course_id" validate:"required,gt=0"`
		StudentID          int    `json:"student_id" validate:"required,gt=0"`
		PaymentMethod      string `json:"payment_method" validate:"omitempty,notblank,max=50"`
		RewardRedemptionID *int   `json:"reward_redemption_id" validate:"omitempty,gt=0"`
		PointsUsed         int    `json:"points_used" validate:"gte=0"`
	}
)

// IsValidOrderingField reports whether listings can be ordered by field.
func IsValidOrderingField(field string) bool {
	return orderingFields[field]
}
