package main

import (
	"bytes"
	"crypto/ed25519"
	"encoding/base64"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alem-hub/academy-ledger/config"
	"github.com/alem-hub/academy-ledger/internal/domain/shared"
	"github.com/alem-hub/academy-ledger/internal/infrastructure/persistence/postgres"
	ledgerhttp "github.com/alem-hub/academy-ledger/internal/interface/http"
	"github.com/alem-hub/academy-ledger/pkg/logger"
)

func loadConfig(t *testing.T) *config.Config {
	t.Helper()
	c := &config.Config{}
	require.NoError(t, config.ParseEnv(c))
	return c
}

func TestPostgresConfigMapping(t *testing.T) {
	c := loadConfig(t)
	c.Database.Host = "db.internal"
	c.Database.Name = "academy"
	c.Database.MaxConns = 25

	pg := postgresConfig(c.Database)
	assert.Equal(t, "db.internal", pg.Host)
	assert.Equal(t, "academy", pg.Database)
	assert.Equal(t, int32(25), pg.MaxConns)
	assert.Contains(t, pg.DSN(), "dbname=academy")
}

func TestHTTPConfigMapping(t *testing.T) {
	c := loadConfig(t)
	c.HTTP.Port = 9090
	c.HTTP.AllowedOrigins = []string{"https://academy.example"}
	c.App.Version = "1.2.3"

	h := httpConfig(c)
	assert.Equal(t, "0.0.0.0:9090", h.Address())
	assert.Equal(t, []string{"https://academy.example"}, h.AllowedOrigins)
	assert.Equal(t, "1.2.3", h.Version)
	assert.Equal(t, int64(65536), h.MaxBodyBytes)
}

func TestSetupAuthWithoutKeyDisablesTransitions(t *testing.T) {
	auth, err := setupAuth(config.AuthConfig{}, logger.Discard())
	require.NoError(t, err)
	assert.Nil(t, auth)

	_, err = setupAuth(config.AuthConfig{PublicKey: "not base64!"}, logger.Discard())
	assert.Error(t, err)
}

func TestTokenCommandSignsVerifiableToken(t *testing.T) {
	pub, priv, err := ed25519.GenerateKey(nil)
	require.NoError(t, err)

	cfg = loadConfig(t)
	cfg.Auth.PrivateKey = base64.StdEncoding.EncodeToString(priv.Seed())
	cfg.Auth.TokenTTL = time.Hour

	var out bytes.Buffer
	tokenCmd.SetOut(&out)
	require.NoError(t, runToken(tokenCmd, []string{"alice"}))

	auth, err := ledgerhttp.NewAuthenticator(ledgerhttp.AuthConfig{
		PublicKey: pub,
		Issuer:    cfg.Auth.Issuer,
		Audience:  cfg.Auth.Audience,
	})
	require.NoError(t, err)
	caller, err := auth.Verify(string(bytes.TrimSpace(out.Bytes())))
	require.NoError(t, err)
	assert.Equal(t, "alice", caller.String())
}

func TestEventsCommandRequiresDatabase(t *testing.T) {
	cfg = loadConfig(t)
	cfg.Database.URL = ""
	cfg.Database.Host = ""

	err := runEvents(eventsCmd, nil)
	assert.ErrorIs(t, err, errNoDatabase)
}

func TestEventLineFormatsRecord(t *testing.T) {
	line := toEventLine(postgres.OutboxRecord{
		Seq:         7,
		EventID:     "e-1",
		EventType:   shared.EventType("xp.credited"),
		AggregateID: "alice",
		Payload:     map[string]interface{}{"amount": float64(10)},
		OccurredAt:  time.Date(2024, 5, 1, 9, 30, 0, 0, time.UTC),
	})

	assert.Equal(t, int64(7), line.Seq)
	assert.Equal(t, "xp.credited", line.EventType)
	assert.Equal(t, "2024-05-01T09:30:00Z", line.OccurredAt)
}
