package services

import (
	"context"

	"plinko-backend/internal/models"
)

// AccountStore is the seam the settlement engine's atomicity hangs on.
// MutateAccount applies fn exactly once to the current persisted record and
// writes the result back before any other mutate on the same id may observe
// or apply; the store serializes concurrent mutations per id. If fn returns
// an error nothing is written.
type AccountStore interface {
	GetAccount(ctx context.Context, id string) (*models.Account, error)
	MutateAccount(ctx context.Context, id string, fn func(*models.Account) error) (*models.Account, error)
}

// PlayLog records settled plays. Writes happen outside the account lock and
// are best effort with respect to settlement correctness.
type PlayLog interface {
	SavePlay(ctx context.Context, rec *models.PlayRecord) error
}

// WithdrawalStore is the append-only withdrawal request log.
type WithdrawalStore interface {
	CreateWithdrawal(ctx context.Context, w *models.WithdrawalRequest) error
	GetWithdrawal(ctx context.Context, id string) (*models.WithdrawalRequest, error)
	ResolveWithdrawal(ctx context.Context, id string, status models.WithdrawalStatus, note string) error
}

// AwardLog keeps the append-only record of one-time jackpot awards.
type AwardLog interface {
	RecordJackpotAward(ctx context.Context, userID, username string, amount int64) error
}
