package achievement

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alem-hub/academy-ledger/internal/domain/shared"
)

var now = time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

func params() Params {
	return Params{AchievementID: "first-steps", Name: "First Steps", MaxSupply: 2, XPReward: 50}
}

func TestParamsValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Params)
		want   error
	}{
		{"empty id", func(p *Params) { p.AchievementID = "" }, shared.ErrInvalidAchievementID},
		{"long id", func(p *Params) { p.AchievementID = strings.Repeat("a", 33) }, shared.ErrInvalidAchievementID},
		{"long name", func(p *Params) { p.Name = strings.Repeat("n", 65) }, shared.ErrInvalidAchievementName},
		{"long uri", func(p *Params) { p.MetadataURI = strings.Repeat("u", 201) }, shared.ErrInvalidMetadataURI},
		{"zero supply", func(p *Params) { p.MaxSupply = 0 }, shared.ErrInvalidMaxSupply},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := params()
			tt.mutate(&p)
			err := p.Validate()
			assert.ErrorIs(t, err, tt.want)
			assert.ErrorIs(t, err, shared.ErrValidation)
		})
	}
}

func TestGrantUntilExhausted(t *testing.T) {
	typ, err := NewType(params(), now)
	require.NoError(t, err)

	require.NoError(t, typ.Grant())
	require.NoError(t, typ.Grant())
	assert.Equal(t, uint32(0), typ.Remaining())

	err = typ.Grant()
	assert.ErrorIs(t, err, shared.ErrAchievementSupplyExceeded)
	assert.Equal(t, uint32(2), typ.CurrentSupply)
}

func TestDeactivatedTypeCannotGrant(t *testing.T) {
	typ, err := NewType(params(), now)
	require.NoError(t, err)
	typ.Deactivate()

	assert.ErrorIs(t, typ.Grant(), shared.ErrAchievementNotActive)
	assert.Equal(t, uint32(0), typ.CurrentSupply)
}

func TestReceiptKey(t *testing.T) {
	r := &Receipt{AchievementID: "first-steps", Recipient: "alice"}
	assert.Equal(t, ReceiptKey("first-steps", "alice"), r.Key())
	assert.NotEqual(t, ReceiptKey("first-steps", "bob"), r.Key())
}
