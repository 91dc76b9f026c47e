// Package governance holds the ledger-wide configuration and the two
// global capabilities: the authority and the backend signer.
package governance

import (
	"context"
	"time"

	"github.com/alem-hub/academy-ledger/internal/domain/shared"
)

// Config is the global singleton. It is created once by Initialize and never
// destroyed.
type Config struct {
	Authority     shared.Address
	BackendSigner shared.Address
	XPMint        shared.Address
	CurrentSeason uint32
	InitializedAt time.Time
	UpdatedAt     time.Time
}

// New creates the config. The authority starts out as its own backend signer.
func New(authority, xpMint shared.Address, now time.Time) (*Config, error) {
	if !authority.IsValid() {
		return nil, shared.ErrInvalidAddress.Withf("authority %q", authority)
	}
	if !xpMint.IsValid() {
		return nil, shared.ErrInvalidAddress.Withf("xp mint %q", xpMint)
	}
	return &Config{
		Authority:     authority,
		BackendSigner: authority,
		XPMint:        xpMint,
		CurrentSeason: 1,
		InitializedAt: now,
		UpdatedAt:     now,
	}, nil
}

// RequireAuthority fails unless caller is the authority.
func (c *Config) RequireAuthority(caller shared.Address) error {
	if caller != c.Authority {
		return shared.ErrNotAuthority
	}
	return nil
}

// RequireBackendSigner fails unless caller is the backend signer.
func (c *Config) RequireBackendSigner(caller shared.Address) error {
	if caller != c.BackendSigner {
		return shared.ErrNotBackendSigner
	}
	return nil
}

// VerifyMint checks a supplied token account mint against the XP mint. An
// empty mint means the caller did not supply one and the ledger derives it.
func (c *Config) VerifyMint(mint shared.Address) error {
	if mint != "" && mint != c.XPMint {
		return shared.ErrMintMismatch.Withf("got %s, want %s", mint, c.XPMint)
	}
	return nil
}

// Update is a change-set for Config. Nil fields are left untouched.
type Update struct {
	BackendSigner *shared.Address
}

// IsEmpty reports whether the update changes nothing.
func (u Update) IsEmpty() bool {
	return u.BackendSigner == nil
}

// Apply mutates c according to u.
func (c *Config) Apply(u Update, now time.Time) error {
	if u.IsEmpty() {
		return shared.NewDomainError("config", "Update", shared.ErrValidation, "empty_update", "update contains no fields")
	}
	if u.BackendSigner != nil {
		if !u.BackendSigner.IsValid() {
			return shared.ErrInvalidAddress.Withf("backend signer %q", *u.BackendSigner)
		}
		c.BackendSigner = *u.BackendSigner
	}
	c.UpdatedAt = now
	return nil
}

// StartSeason opens the next season. Season XP of every learner resets
// lazily on their next credit.
func (c *Config) StartSeason(now time.Time) (uint32, error) {
	next, ok := shared.AddU32(c.CurrentSeason, 1)
	if !ok {
		return 0, shared.Overflow("config", "StartSeason", "season")
	}
	c.CurrentSeason = next
	c.UpdatedAt = now
	return next, nil
}

// Clone returns a deep copy.
func (c *Config) Clone() *Config {
	cp := *c
	return &cp
}

// Repository stores the singleton.
type Repository interface {
	// Get returns ErrConfigNotInitialized before Initialize.
	Get(ctx context.Context) (*Config, error)

	// Create returns ErrConfigAlreadyInitialized on the second call.
	Create(ctx context.Context, cfg *Config) error

	Update(ctx context.Context, cfg *Config) error
}
