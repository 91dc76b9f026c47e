package governance

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alem-hub/academy-ledger/internal/domain/shared"
)

var now = time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

func TestNewConfig(t *testing.T) {
	cfg, err := New("admin", "xp-mint", now)
	require.NoError(t, err)

	assert.Equal(t, shared.Address("admin"), cfg.BackendSigner)
	assert.Equal(t, uint32(1), cfg.CurrentSeason)

	_, err = New("", "xp-mint", now)
	assert.ErrorIs(t, err, shared.ErrValidation)
}

func TestCapabilities(t *testing.T) {
	cfg, err := New("admin", "xp-mint", now)
	require.NoError(t, err)
	signer := shared.Address("backend")
	require.NoError(t, cfg.Apply(Update{BackendSigner: &signer}, now))

	assert.NoError(t, cfg.RequireAuthority("admin"))
	assert.ErrorIs(t, cfg.RequireAuthority("backend"), shared.ErrNotAuthority)
	assert.NoError(t, cfg.RequireBackendSigner("backend"))
	assert.ErrorIs(t, cfg.RequireBackendSigner("admin"), shared.ErrUnauthorized)
}

func TestVerifyMint(t *testing.T) {
	cfg, err := New("admin", "xp-mint", now)
	require.NoError(t, err)

	assert.NoError(t, cfg.VerifyMint(""))
	assert.NoError(t, cfg.VerifyMint("xp-mint"))
	assert.ErrorIs(t, cfg.VerifyMint("other-mint"), shared.ErrCrossReference)
}

func TestApplyRejectsEmptyUpdate(t *testing.T) {
	cfg, err := New("admin", "xp-mint", now)
	require.NoError(t, err)

	assert.ErrorIs(t, cfg.Apply(Update{}, now), shared.ErrValidation)
}

func TestStartSeason(t *testing.T) {
	cfg, err := New("admin", "xp-mint", now)
	require.NoError(t, err)

	season, err := cfg.StartSeason(now)
	require.NoError(t, err)
	assert.Equal(t, uint32(2), season)
}
