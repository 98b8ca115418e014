package sqlxrepos

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/pkg/errors"
	"github.com/shopspring/decimal"

	"github.com/aprende/academia/core/reward"
	"github.com/aprende/academia/core/user"
	"github.com/aprende/academia/storage/database"
)

type (
	rewardRow struct {
		ID                int             `db:"id"`
		Name              string          `db:"name"`
		Description       string          `db:"description"`
		Type              string          `db:"type"`
		DiscountPercent   decimal.Decimal `db:"discount_percent"`
		PointsRequired    int             `db:"points_required"`
		QuantityAvailable int             `db:"quantity_available"`
		Status            string          `db:"status"`
		CreatedAt         time.Time       `db:"created_at"`
	}

	redemptionRow struct {
		ID              int             `db:"id"`
		StudentID       int             `db:"student_id"`
		RewardID        int             `db:"reward_id"`
		RewardName      string          `db:"reward_name"`
		DiscountPercent decimal.Decimal `db:"discount_percent"`
		Status          string          `db:"status"`
		PointsSpent     int             `db:"points_spent"`
		RedeemedAt      time.Time       `db:"redeemed_at"`
		UsedAt          sql.NullTime    `db:"used_at"`
	}

	userRow struct {
		ID            int            `db:"id"`
		Name          string         `db:"name"`
		Email         string         `db:"email"`
		IsActive      bool           `db:"is_active"`
		Roles         pq.StringArray `db:"roles"`
		PointsBalance int            `db:"points_balance"`
		CreatedAt     time.Time      `db:"created_at"`
		UpdatedAt     time.Time      `db:"updated_at"`
	}
)

func (r rewardRow) toReward() reward.Reward {
	return reward.Reward{
		ID:                r.ID,
		Name:              r.Name,
		Description:       r.Description,
		Type:              r.Type,
		DiscountPercent:   r.DiscountPercent,
		PointsRequired:    r.PointsRequired,
		QuantityAvailable: r.QuantityAvailable,
		Status:            r.Status,
		CreatedAt:         r.CreatedAt.UTC(),
	}
}

func (r redemptionRow) toRedemption() reward.Redemption {
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

func (r userRow) toUser() user.User {
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

type rewardRepository struct {
	db *sqlx.DB
}

var _ reward.Repository = (*rewardRepository)(nil)

func NewRewardRepository(db *sqlx.DB) *rewardRepository {
	return &rewardRepository{db: db}
}

// RunInTx commits when fn returns nil and rolls back otherwise, including when fn panics.
func (repo *rewardRepository) RunInTx(ctx context.Context, fn func(tx reward.TxRepository) error) (err error) {
	tx, err := repo.db.BeginTxx(ctx, nil)
	if err != nil {
		return errors.Wrap(err, "beginning transaction")
	}

	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback()
			panic(p)
		}
		if err != nil {
			if rbErr := tx.Rollback(); rbErr != nil && rbErr != sql.ErrTxDone {
				err = errors.WithMessage(err, fmt.Sprintf("rolling back: %v", rbErr))
			}
			return
		}
		if err = tx.Commit(); err != nil {
			err = errors.Wrap(err, "committing transaction")
		}
	}()

	return fn(&txRepository{tx: tx})
}

func (repo *rewardRepository) QueryActiveRewards(ctx context.Context) ([]reward.Reward, error) {
	var rows []rewardRow
	q := `
		SELECT id, name, description, type, discount_percent, points_required, quantity_available, status, created_at
		FROM rewards
		WHERE status = $1 AND quantity_available > 0
		ORDER BY points_required, id`
	if err := repo.db.SelectContext(ctx, &rows, q, reward.StatusActive); err != nil {
		return nil, errors.Wrap(err, "selecting active rewards")
	}
	rwds := make([]reward.Reward, 0, len(rows))
	for _, r := range rows {
		rwds = append(rwds, r.toReward())
	}
	return rwds, nil
}

func (repo *rewardRepository) QueryAvailableDiscounts(ctx context.Context, studentID int) ([]reward.Redemption, error) {
	var rows []redemptionRow
	q := `
		SELECT rr.id, rr.student_id, rr.reward_id, r.name AS reward_name, r.discount_percent,
			rr.status, rr.points_spent, rr.redeemed_at, rr.used_at
		FROM reward_redemptions rr
		JOIN rewards r ON r.id = rr.reward_id
		WHERE rr.student_id = $1 AND rr.status = $2 AND r.discount_percent > 0
		ORDER BY rr.redeemed_at DESC, rr.id DESC`
	if err := repo.db.SelectContext(ctx, &rows, q, studentID, reward.RedemptionAvailable); err != nil {
		return nil, errors.Wrap(err, "selecting available discounts")
	}
	reds := make([]reward.Redemption, 0, len(rows))
	for _, r := range rows {
		reds = append(reds, r.toRedemption())
	}
	return reds, nil
}

// txRepository implements reward.TxRepository on a single transaction.
type txRepository struct {
	tx *sqlx.Tx
}

var _ reward.TxRepository = (*txRepository)(nil)

func (r *txRepository) GetUserForUpdate(ctx context.Context, id int) (user.User, error) {
	var row userRow
	q := `
		SELECT id, name, email, is_active, roles, points_balance, created_at, updated_at
		FROM users WHERE id = $1
		FOR UPDATE`
	if err := r.tx.GetContext(ctx, &row, q, id); err != nil {
		if err == sql.ErrNoRows {
			return user.User{}, user.ErrNotFound
		}
		return user.User{}, errors.Wrap(err, "selecting user")
	}
	return row.toUser(), nil
}

func (r *txRepository) DebitPoints(ctx context.Context, id int, points int) error {
	q := `
		UPDATE users SET points_balance = points_balance - $2, updated_at = now()
		WHERE id = $1 AND points_balance >= $2`
	res, err := r.tx.ExecContext(ctx, q, id, points)
	if err != nil {
		return errors.Wrap(database.ClassifyError(err), "debiting points")
	}
	if n, err := res.RowsAffected(); err != nil {
		return errors.Wrap(err, "debiting points")
	} else if n != 1 {
		return errors.Errorf("debiting points: user %d cannot spend %d points", id, points)
	}
	return nil
}

func (r *txRepository) GetRewardForUpdate(ctx context.Context, id int) (reward.Reward, error) {
	var row rewardRow
	q := `
		SELECT id, name, description, type, discount_percent, points_required, quantity_available, status, created_at
		FROM rewards WHERE id = $1
		FOR UPDATE`
	if err := r.tx.GetContext(ctx, &row, q, id); err != nil {
		if err == sql.ErrNoRows {
			return reward.Reward{}, reward.ErrNotFound
		}
		return reward.Reward{}, errors.Wrap(err, "selecting reward")
	}
	return row.toReward(), nil
}

func (r *txRepository) CreateRedemption(ctx context.Context, red reward.Redemption) (reward.Redemption, error) {
	q := `
		INSERT INTO reward_redemptions (student_id, reward_id, status, points_spent, redeemed_at)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id`
	err := r.tx.QueryRowxContext(ctx, q, red.StudentID, red.RewardID, red.Status, red.PointsSpent, red.RedeemedAt.UTC()).
		Scan(&red.ID)
	if err != nil {
		return reward.Redemption{}, errors.Wrap(database.ClassifyError(err), "inserting redemption")
	}
	return red, nil
}

func (r *txRepository) DecrementStock(ctx context.Context, rewardID int) error {
	q := `UPDATE rewards SET quantity_available = quantity_available - 1 WHERE id = $1 AND quantity_available > 0`
	res, err := r.tx.ExecContext(ctx, q, rewardID)
	if err != nil {
		return errors.Wrap(err, "decrementing stock")
	}
	if n, err := res.RowsAffected(); err != nil {
		return errors.Wrap(err, "decrementing stock")
	} else if n != 1 {
		return errors.Errorf("decrementing stock: reward %d is out of stock", rewardID)
	}
	return nil
}
