package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("APP_ENV", "development")
	t.Setenv("DATABASE_URL", "")
	t.Setenv("DB_HOST", "")

	cfg, err := Load()
	require.NoError(t, err)

	assert.True(t, cfg.IsDevelopment())
	assert.False(t, cfg.Database.Enabled())
	assert.Equal(t, 8080, cfg.HTTP.Port)
	assert.Equal(t, []string{"*"}, cfg.HTTP.AllowedOrigins)
	assert.Equal(t, uint32(2000), cfg.Ledger.DailyXPCap)
	assert.Equal(t, 24*time.Hour, cfg.Ledger.CloseCooldown)
	assert.Equal(t, 5*time.Minute, cfg.Ledger.CatalogTTL)
	assert.Equal(t, int32(10), cfg.Database.MaxConns)
	assert.Equal(t, "academy-ledger", cfg.Auth.Issuer)
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("APP_ENV", "staging")
	t.Setenv("DATABASE_URL", "postgres://ledger:secret@db:5432/ledger")
	t.Setenv("HTTP_PORT", "9000")
	t.Setenv("HTTP_ALLOWED_ORIGINS", "https://a.example,https://b.example")
	t.Setenv("LEDGER_DAILY_XP_CAP", "500")
	t.Setenv("LEDGER_CLOSE_COOLDOWN", "1h")
	t.Setenv("REDIS_DISABLED", "true")

	cfg, err := Load()
	require.NoError(t, err)

	assert.True(t, cfg.Database.Enabled())
	assert.Equal(t, 9000, cfg.HTTP.Port)
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.HTTP.AllowedOrigins)
	assert.Equal(t, uint32(500), cfg.Ledger.DailyXPCap)
	assert.Equal(t, time.Hour, cfg.Ledger.CloseCooldown)
	assert.True(t, cfg.Redis.Disabled)
}

func TestLoadRejectsMalformedValues(t *testing.T) {
	t.Setenv("HTTP_PORT", "eighty")

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "parse env:")
}

func TestValidateCollectsAllErrors(t *testing.T) {
	t.Setenv("APP_ENV", "production")
	t.Setenv("DATABASE_URL", "")
	t.Setenv("DB_HOST", "")
	t.Setenv("LEDGER_DAILY_XP_CAP", "0")
	t.Setenv("LOG_FORMAT", "xml")

	_, err := Load()
	require.Error(t, err)
	msg := err.Error()
	assert.Contains(t, msg, "DATABASE_URL or DB_HOST is required in production")
	assert.Contains(t, msg, "LEDGER_DAILY_XP_CAP must be positive")
	assert.Contains(t, msg, "LOG_FORMAT must be json or text")
}

func TestValidateUnknownEnvironment(t *testing.T) {
	cfg := &Config{}
	require.NoError(t, ParseEnv(cfg))
	cfg.App.Environment = "qa"

	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), `APP_ENV "qa"`)
}
