package token

import (
	"context"

	"github.com/alem-hub/academy-ledger/internal/domain/shared"
)

// Standing is one row of the XP ranking. Rank is 1-based.
type Standing struct {
	Owner   shared.Address
	Balance uint64
	Rank    int
}

// RankingCache mirrors committed balances for ranking reads. It is
// eventually consistent with the Ledger and may be empty.
type RankingCache interface {
	// Set records owner's latest balance.
	Set(ctx context.Context, owner shared.Address, balance uint64) error

	// Top returns standings from offset in descending balance order.
	Top(ctx context.Context, offset, limit int) ([]Standing, error)

	// Rank returns owner's standing; ok is false when owner is unranked.
	Rank(ctx context.Context, owner shared.Address) (s Standing, ok bool, err error)

	// Size returns the number of ranked owners.
	Size(ctx context.Context) (int64, error)
}

// RankAccounts assigns 1-based ranks to accounts already sorted by Top.
// Equal balances share a rank.
func RankAccounts(accounts []Account, offset int) []Standing {
	out := make([]Standing, len(accounts))
	for i, acc := range accounts {
		rank := offset + i + 1
		if i > 0 && acc.Balance == accounts[i-1].Balance {
			rank = out[i-1].Rank
		}
		out[i] = Standing{Owner: acc.Owner, Balance: acc.Balance, Rank: rank}
	}
	return out
}
