package reward

import (
	"time"

	"github.com/shopspring/decimal"
)

const (
	StatusActive   = "Active"
	StatusInactive = "Inactive"

	TypeDiscount = "discount"
	TypeOther    = "other"

	// redemption statuses
	RedemptionAvailable = "available"
	RedemptionUsed      = "used"
)

type (
	Reward struct {
		ID                int             `json:"id"`
		Name              string          `json:"name"`
		Description       string          `json:"description"`
		Type              string          `json:"type"`
		DiscountPercent   decimal.Decimal `json:"discount_percent"`
		PointsRequired    int             `json:"points_required"`
		QuantityAvailable int             `json:"quantity_available"`
		Status            string          `json:"status"`
		CreatedAt         time.Time       `json:"created_at"` // UTC
	}

	// Redemption is a reward claimed by a student. Discount redemptions are consumed by an enrollment.
	Redemption struct {
		ID              int             `json:"id"`
		StudentID       int             `json:"student_id"`
		RewardID        int             `json:"reward_id"`
		RewardName      string          `json:"reward_name"`      // joined
		DiscountPercent decimal.Decimal `json:"discount_percent"` // joined
		Status          string          `json:"status"`
		PointsSpent     int             `json:"points_spent"`
		RedeemedAt      time.Time       `json:"redeemed_at"` // UTC
		UsedAt          *time.Time      `json:"used_at"`     // UTC
	}

	RedeemRequest struct {
		StudentID int `json:"student_id" validate:"required,gt=0"`
	}
)

func (r Reward) IsActive() bool {
	return r.Status == StatusActive
}

func (r Reward) InStock() bool {
	return r.QuantityAvailable > 0
}

// IsDiscount reports whether the redemption can discount an enrollment.
func (r Redemption) IsDiscount() bool {
	return r.DiscountPercent.IsPositive()
}

func (r Redemption) IsAvailable() bool {
	return r.Status == RedemptionAvailable
}
