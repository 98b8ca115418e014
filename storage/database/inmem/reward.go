package inmemdb

import (
	"context"
	"sort"

	"github.com/aprende/academia/core/reward"
)

type rewardRepository struct {
	db *DB
}

func NewRewardRepository(db *DB) reward.Repository {
	return &rewardRepository{db: db}
}

func (repo *rewardRepository) RunInTx(ctx context.Context, fn func(tx reward.TxRepository) error) error {
	return repo.db.runInTx(ctx, func(tx *txRepository) error { return fn(tx) })
}

func (repo *rewardRepository) QueryActiveRewards(context.Context) ([]reward.Reward, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	rwds := make([]reward.Reward, 0)
	for _, rwd := range repo.db.t.rewards {
		if rwd.IsActive() && rwd.InStock() {
			rwds = append(rwds, rwd)
		}
	}
	sort.Slice(rwds, func(i, j int) bool { return rwds[i].PointsRequired < rwds[j].PointsRequired })
	return rwds, nil
}

func (repo *rewardRepository) QueryAvailableDiscounts(_ context.Context, studentID int) ([]reward.Redemption, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	reds := make([]reward.Redemption, 0)
	for _, red := range repo.db.t.redemptions {
		if red.StudentID != studentID || !red.IsAvailable() {
			continue
		}
		rwd, ok := repo.db.t.rewards[red.RewardID]
		if !ok || !rwd.DiscountPercent.IsPositive() {
			continue
		}
		red.RewardName = rwd.Name
		red.DiscountPercent = rwd.DiscountPercent
		reds = append(reds, red)
	}
	sort.Slice(reds, func(i, j int) bool { return reds[i].RedeemedAt.After(reds[j].RedeemedAt) })
	return reds, nil
}
