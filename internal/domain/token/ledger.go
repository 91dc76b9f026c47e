// Package token is the port to the XP token-balance ledger. The core only
// credits balances; it never debits them.
package token

import (
	"context"
	"time"

	"github.com/alem-hub/academy-ledger/internal/domain/shared"
)

// AccountRef addresses one balance.
type AccountRef struct {
	Mint  shared.Address
	Owner shared.Address
}

// Account is a balance snapshot.
type Account struct {
	Mint      shared.Address
	Owner     shared.Address
	Balance   uint64
	UpdatedAt time.Time
}

// Credit reasons recorded with every credit.
const (
	ReasonLesson        = "lesson"
	ReasonCourseBonus   = "course_bonus"
	ReasonCreatorReward = "creator_reward"
	ReasonAchievement   = "achievement"
	ReasonMinterReward  = "minter_reward"
)

// Ledger credits and reads balances.
type Ledger interface {
	// Credit adds amount and returns the new balance. It fails with an
	// arithmetic error when the balance would overflow.
	Credit(ctx context.Context, ref AccountRef, amount uint64, at time.Time) (uint64, error)

	// Balance returns 0 for accounts that were never credited.
	Balance(ctx context.Context, ref AccountRef) (uint64, error)

	// Top returns the largest balances of mint in descending order.
	Top(ctx context.Context, mint shared.Address, limit int) ([]Account, error)
}

// OverflowError is returned by Ledger implementations on balance overflow.
func OverflowError() error {
	return shared.Overflow("token", "Credit", "balance")
}
