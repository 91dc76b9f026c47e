package minter

import (
	"math/big"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"

	"github.com/alem-hub/academy-ledger/internal/domain/shared"
	"github.com/alem-hub/academy-ledger/pkg/fixedpoint"
)

var now = time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

func TestNewRoleValidation(t *testing.T) {
	_, err := New("bot", strings.Repeat("x", 33), fixedpoint.FromInteger(10), now)
	assert.ErrorIs(t, err, shared.ErrInvalidMinterLabel)

	_, err = New("bot", "bot", fixedpoint.Zero(), now)
	assert.ErrorIs(t, err, shared.ErrValidation)

	r, err := New("bot", "quiz bot", fixedpoint.FromInteger(1000), now)
	require.NoError(t, err)
	assert.True(t, r.IsActive)
	assert.True(t, r.TotalXPMinted.IsZero())
}

func TestAuthorizeCap(t *testing.T) {
	r, err := New("bot", "quiz bot", fixedpoint.FromInteger(1000), now)
	require.NoError(t, err)

	assert.NoError(t, r.Authorize(fixedpoint.FromInteger(1000)))
	assert.ErrorIs(t, r.Authorize(fixedpoint.FromInteger(1001)), shared.ErrMinterAmountExceeded)
	assert.ErrorIs(t, r.Authorize(fixedpoint.FromInteger(1001)), shared.ErrRateLimited)
	assert.ErrorIs(t, r.Authorize(fixedpoint.Zero()), shared.ErrInvalidAmount)

	half, err := fixedpoint.FromBig(new(big.Int).Lsh(big.NewInt(1), fixedpoint.FracBits-1))
	require.NoError(t, err)
	assert.ErrorIs(t, r.Authorize(half), shared.ErrValidation)

	r.IsActive = false
	assert.ErrorIs(t, r.Authorize(fixedpoint.FromInteger(1)), shared.ErrMinterNotActive)
}

func TestUnlimitedRoleAcceptsLargeAmounts(t *testing.T) {
	r, err := NewUnlimited("admin", now)
	require.NoError(t, err)

	assert.NoError(t, r.Authorize(fixedpoint.FromInteger(1<<63)))
	assert.Equal(t, BackendLabel, r.Label)
}

func TestTotalMintedIsSumOfAuthorized(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		limit := rapid.Uint64Range(1, 10_000).Draw(t, "limit")
		r, err := New("bot", "bot", fixedpoint.FromInteger(limit), now)
		require.NoError(t, err)

		var want uint64
		for _, amt := range rapid.SliceOf(rapid.Uint64Range(0, 20_000)).Draw(t, "amounts") {
			a := fixedpoint.FromInteger(amt)
			if err := r.Authorize(a); err != nil {
				require.True(t, amt == 0 || amt > limit)
				continue
			}
			require.NoError(t, r.RecordMint(a))
			want += amt
		}
		got, err := r.TotalXPMinted.ToInteger()
		require.NoError(t, err)
		require.Equal(t, want, got)
	})
}
