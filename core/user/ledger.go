package user

import (
	"context"

	"github.com/aprende/academia/core"
)

var (
	// errors
	ErrNotFound = core.NewNotFoundError("user not found")
)

// PointsLedger is the transaction-scoped view of users' points balances.
// Implementations must lock the user row until the end of the transaction in GetUserForUpdate.
type PointsLedger interface {
	GetUserForUpdate(ctx context.Context, id int) (User, error)
	// DebitPoints subtracts points from the user's balance. The balance never goes negative.
	DebitPoints(ctx context.Context, id int, points int) error
}
