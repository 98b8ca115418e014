package boiledrepos

import (
	"time"

	"github.com/shopspring/decimal"
	"github.com/volatiletech/null/v8"
	"github.com/volatiletech/sqlboiler/v4/types"

	"github.com/aprende/academia/core/course"
	"github.com/aprende/academia/core/enrollment"
	"github.com/aprende/academia/core/reward"
	"github.com/aprende/academia/core/user"
)

// Row structs map one query result each. Columns are listed explicitly in every query.

type userRow struct {
	ID            int               `boil:"id"`
	Name          string            `boil:"name"`
	Email         string            `boil:"email"`
	IsActive      bool              `boil:"is_active"`
	Roles         types.StringArray `boil:"roles"`
	PointsBalance int               `boil:"points_balance"`
	CreatedAt     time.Time         `boil:"created_at"`
	UpdatedAt     time.Time         `boil:"updated_at"`
}

type courseRow struct {
	ID     int             `boil:"id"`
	Title  string          `boil:"title"`
	Price  decimal.Decimal `boil:"price"`
	Status string          `boil:"status"`
}

type redemptionRow struct {
	ID              int             `boil:"id"`
	StudentID       int             `boil:"student_id"`
	RewardID        int             `boil:"reward_id"`
	RewardName      string          `boil:"reward_name"`
	DiscountPercent decimal.Decimal `boil:"discount_percent"`
	Status          string          `boil:"status"`
	PointsSpent     int             `boil:"points_spent"`
	RedeemedAt      time.Time       `boil:"redeemed_at"`
	UsedAt          null.Time       `boil:"used_at"`
}

// receiptRow is an enrollment left-joined with its course title and payment.
type receiptRow struct {
	ID          int         `boil:"id"`
	CourseID    int         `boil:"course_id"`
	CourseTitle null.String `boil:"course_title"`
	StudentID   int         `boil:"student_id"`
	EnrolledAt  time.Time   `boil:"enrolled_at"`
	Status      string      `boil:"progress_status"`
	Progress    int         `boil:"percent_completed"`

	PaymentID          null.Int            `boil:"payment_id"`
	Amount             decimal.NullDecimal `boil:"amount"`
	DiscountApplied    decimal.NullDecimal `boil:"discount_applied"`
	PointsUsed         null.Int            `boil:"points_used"`
	Method             null.String         `boil:"payment_method"`
	PaymentStatus      null.String         `boil:"payment_status"`
	RewardRedemptionID null.Int            `boil:"reward_redemption_id"`
	PaymentCreatedAt   null.Time           `boil:"payment_created_at"`
}

type idRow struct {
	ID int `boil:"id"`
}

func (r userRow) unboil() user.User {
	return user.User{
		ID:            r.ID,
		Name:          r.Name,
		Email:         r.Email,
		IsActive:      r.IsActive,
		Roles:         r.Roles,
		PointsBalance: r.PointsBalance,
		CreatedAt:     r.CreatedAt.UTC(),
		UpdatedAt:     r.UpdatedAt.UTC(),
	}
}

func (r courseRow) unboil() course.Course {
	return course.Course{ID: r.ID, Title: r.Title, Price: r.Price, Status: r.Status}
}

func (r redemptionRow) unboil() reward.Redemption {
	red := reward.Redemption{
		ID:              r.ID,
		StudentID:       r.StudentID,
		RewardID:        r.RewardID,
		RewardName:      r.RewardName,
		DiscountPercent: r.DiscountPercent,
		Status:          r.Status,
		PointsSpent:     r.PointsSpent,
		RedeemedAt:      r.RedeemedAt.UTC(),
	}
	if r.UsedAt.Valid {
		t := r.UsedAt.Time.UTC()
		red.UsedAt = &t
	}
	return red
}

func (r receiptRow) unboil() enrollment.Receipt {
	rcpt := enrollment.Receipt{
		Enrollment: enrollment.Enrollment{
			ID:          r.ID,
			CourseID:    r.CourseID,
			CourseTitle: r.CourseTitle.String,
			StudentID:   r.StudentID,
			EnrolledAt:  r.EnrolledAt.UTC(),
			Status:      enrollment.ProgressStatus(r.Status),
			Progress:    r.Progress,
		},
	}
	if r.PaymentID.Valid {
		rcpt.Payment = enrollment.Payment{
			ID:                 r.PaymentID.Int,
			EnrollmentID:       r.ID,
			Amount:             r.Amount.Decimal,
			DiscountApplied:    r.DiscountApplied.Decimal,
			Method:             r.Method.String,
			Status:             enrollment.PaymentStatus(r.PaymentStatus.String),
			RewardRedemptionID: r.RewardRedemptionID.Ptr(),
			PointsUsed:         r.PointsUsed.Int,
			CreatedAt:          r.PaymentCreatedAt.Time.UTC(),
		}
	}
	return rcpt
}

func unboilReceipts(rows []receiptRow) []enrollment.Receipt {
	rcpts := make([]enrollment.Receipt, 0, len(rows))
	for _, r := range rows {
		rcpts = append(rcpts, r.unboil())
	}
	return rcpts
}
