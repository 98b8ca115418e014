package sqlxrepos_test

import (
	"context"
	"testing"

	"github.com/jmoiron/sqlx"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aprende/academia/core/reward"
	sqlxrepos "github.com/aprende/academia/storage/database/sqlx"
	"github.com/aprende/academia/testutil"
)

func TestRewardRepository(t *testing.T) {
	ctx := context.Background()
	db := testutil.PrepareDB(t)
	svc := reward.NewService(sqlxrepos.NewRewardRepository(sqlx.NewDb(db, "postgres")))

	student := testutil.InsertUser(t, db, testutil.NewStudent("Ana Perez", 150))
	rwd := testutil.InsertReward(t, db, testutil.NewDiscountReward("20% off", "20", 100, 1))
	testutil.InsertReward(t, db, reward.Reward{Name: "T-shirt", Type: reward.TypeOther, Status: reward.StatusActive, QuantityAvailable: 3})

	rwds, err := svc.ListActive(ctx)
	require.NoError(t, err)
	assert.Len(t, rwds, 2)

	red, err := svc.Redeem(ctx, rwd.ID, student.ID)
	require.NoError(t, err)
	assert.Equal(t, reward.RedemptionAvailable, red.Status)
	assert.Equal(t, 100, red.PointsSpent)

	_, err = svc.Redeem(ctx, rwd.ID, student.ID)
	assert.Equal(t, reward.ErrOutOfStock, err)

	var balance int
	require.NoError(t, db.QueryRow(`SELECT points_balance FROM users WHERE id = $1`, student.ID).Scan(&balance))
	assert.Equal(t, 50, balance)

	reds, err := svc.AvailableDiscounts(ctx, student.ID)
	require.NoError(t, err)
	require.Len(t, reds, 1)
	assert.Equal(t, red.ID, reds[0].ID)
	assert.Equal(t, "20% off", reds[0].RewardName)
	assert.True(t, reds[0].DiscountPercent.Equal(decimal.NewFromInt(20)))
}
