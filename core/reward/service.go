package reward

import (
	"context"
	"time"

	"github.com/pkg/errors"

	"github.com/aprende/academia/core"
	"github.com/aprende/academia/core/user"
)

var (
	// errors
	ErrNotFound           = core.NewNotFoundError("reward not found")
	ErrStudentNotFound    = core.NewNotFoundError("student not found")
	ErrInactive           = core.NewValidationError(errors.New("this reward is not active"))
	ErrOutOfStock         = core.NewValidationError(errors.New("this reward is out of stock"))
	ErrInsufficientPoints = core.NewValidationError(errors.New("insufficient points to redeem this reward"))
	// ErrRedemptionNotFound is returned by RedemptionLedger when no redemption matches the lookup filters.
	ErrRedemptionNotFound = errors.New("redemption not found")

	nowFunc = func() time.Time { return time.Now().UTC() }
)

type (
	// RedemptionLedger is the transaction-scoped view of the students' redemptions.
	RedemptionLedger interface {
		// GetAvailableDiscountForUpdate returns the redemption `id` owned by `studentID`, still available,
		// whose reward has a positive discount, and locks it until the end of the transaction.
		// ErrRedemptionNotFound is returned for any other redemption.
		GetAvailableDiscountForUpdate(ctx context.Context, id, studentID int) (Redemption, error)
		MarkRedemptionUsed(ctx context.Context, id int, usedAt time.Time) error
	}

	TxRepository interface {
		user.PointsLedger

		GetRewardForUpdate(ctx context.Context, id int) (Reward, error)
		CreateRedemption(ctx context.Context, red Redemption) (Redemption, error)
		DecrementStock(ctx context.Context, rewardID int) error
	}

	Repository interface {
		// QueryActiveRewards returns active rewards still in stock.
		QueryActiveRewards(ctx context.Context) ([]Reward, error)
		// QueryAvailableDiscounts returns the available discount redemptions of a student, newest first.
		QueryAvailableDiscounts(ctx context.Context, studentID int) ([]Redemption, error)
		RunInTx(ctx context.Context, fn func(tx TxRepository) error) error
	}

	Service struct {
		repo Repository
	}
)

func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

func (svc *Service) ListActive(ctx context.Context) ([]Reward, error) {
	rwds, err := svc.repo.QueryActiveRewards(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "querying active rewards")
	}
	return rwds, nil
}

func (svc *Service) AvailableDiscounts(ctx context.Context, studentID int) ([]Redemption, error) {
	reds, err := svc.repo.QueryAvailableDiscounts(ctx, studentID)
	if err != nil {
		return nil, errors.Wrap(err, "querying available discounts")
	}
	return reds, nil
}

// Redeem claims a reward for a student, spending the reward's required points.
func (svc *Service) Redeem(ctx context.Context, rewardID, studentID int) (Redemption, error) {
	var red Redemption

	err := svc.repo.RunInTx(ctx, func(tx TxRepository) error {
		rwd, err := tx.GetRewardForUpdate(ctx, rewardID)
		if err != nil {
			if errors.Cause(err) == ErrNotFound {
				return ErrNotFound
			}
			return errors.Wrap(err, "getting reward")
		}
		if !rwd.IsActive() {
			return ErrInactive
		}
		if !rwd.InStock() {
			return ErrOutOfStock
		}

		usr, err := tx.GetUserForUpdate(ctx, studentID)
		if err != nil {
			if errors.Cause(err) == user.ErrNotFound {
				return ErrStudentNotFound
			}
			return errors.Wrap(err, "getting student")
		}
		if !usr.IsStudent() {
			return ErrStudentNotFound
		}
		if !usr.CanSpend(rwd.PointsRequired) {
			return ErrInsufficientPoints
		}

		red, err = tx.CreateRedemption(ctx, Redemption{
			StudentID:       usr.ID,
			RewardID:        rwd.ID,
			RewardName:      rwd.Name,
			DiscountPercent: rwd.DiscountPercent,
			Status:          RedemptionAvailable,
			PointsSpent:     rwd.PointsRequired,
			RedeemedAt:      nowFunc(),
		})
		if err != nil {
			return errors.Wrap(err, "creating redemption")
		}
		if err = tx.DecrementStock(ctx, rwd.ID); err != nil {
			return errors.Wrap(err, "decrementing stock")
		}
		if rwd.PointsRequired > 0 {
			if err = tx.DebitPoints(ctx, usr.ID, rwd.PointsRequired); err != nil {
				return errors.Wrap(err, "debiting points")
			}
		}
		return nil
	})
	if err != nil {
		return Redemption{}, err
	}
	return red, nil
}
