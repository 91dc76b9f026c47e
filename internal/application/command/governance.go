package command

import (
	"context"

	"github.com/alem-hub/academy-ledger/internal/domain/governance"
	"github.com/alem-hub/academy-ledger/internal/domain/minter"
	"github.com/alem-hub/academy-ledger/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// INITIALIZE
// ══════════════════════════════════════════════════════════════════════════════

// InitializeCommand creates the global config. The caller becomes the
// authority, the initial backend signer, and an unlimited minter.
type InitializeCommand struct {
	Caller shared.Address
	XPMint shared.Address
}

// Validate validates the command.
func (c InitializeCommand) Validate() error {
	if err := requireCaller(c.Caller); err != nil {
		return err
	}
	if !c.XPMint.IsValid() {
		return shared.ErrInvalidAddress.Withf("xp mint %q", c.XPMint)
	}
	return nil
}

// Initialize executes InitializeCommand.
func (l *Ledger) Initialize(ctx context.Context, cmd InitializeCommand) (*governance.Config, error) {
	if err := cmd.Validate(); err != nil {
		return nil, err
	}

	var out *governance.Config
	_, err := l.execute(ctx, "Initialize", cmd.Caller, func(ctx context.Context, tc *txContext) error {
		cfg, err := governance.New(cmd.Caller, cmd.XPMint, tc.now)
		if err != nil {
			return err
		}
		if err := tc.tx.Config().Create(ctx, cfg); err != nil {
			return err
		}
		role, err := minter.NewUnlimited(cmd.Caller, tc.now)
		if err != nil {
			return err
		}
		if err := tc.tx.Minters().Create(ctx, role); err != nil {
			return err
		}

		tc.emit(shared.LedgerInitializedEvent{
			BaseEvent:     tc.base(shared.EventLedgerInitialized, "config"),
			Authority:     cfg.Authority,
			BackendSigner: cfg.BackendSigner,
			XPMint:        cfg.XPMint,
		})
		tc.emit(shared.MinterRegisteredEvent{
			BaseEvent:    tc.base(shared.EventMinterRegistered, role.Minter.String()),
			Minter:       role.Minter,
			Label:        role.Label,
			MaxXPPerCall: role.MaxXPPerCall.RawString(),
		})
		out = cfg
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// ══════════════════════════════════════════════════════════════════════════════
// UPDATE CONFIG
// ══════════════════════════════════════════════════════════════════════════════

// UpdateConfigCommand rotates the backend signer.
type UpdateConfigCommand struct {
	Caller        shared.Address
	BackendSigner *shared.Address
}

// Validate validates the command.
func (c UpdateConfigCommand) Validate() error {
	return requireCaller(c.Caller)
}

// UpdateConfig executes UpdateConfigCommand. Authority only.
func (l *Ledger) UpdateConfig(ctx context.Context, cmd UpdateConfigCommand) (*governance.Config, error) {
	if err := cmd.Validate(); err != nil {
		return nil, err
	}

	var out *governance.Config
	_, err := l.execute(ctx, "UpdateConfig", cmd.Caller, func(ctx context.Context, tc *txContext) error {
		cfg, err := l.loadConfig(ctx, tc)
		if err != nil {
			return err
		}
		if err := cfg.RequireAuthority(cmd.Caller); err != nil {
			return err
		}
		previous := cfg.BackendSigner
		if err := cfg.Apply(governance.Update{BackendSigner: cmd.BackendSigner}, tc.now); err != nil {
			return err
		}
		if err := tc.tx.Config().Update(ctx, cfg); err != nil {
			return err
		}
		tc.emit(shared.ConfigUpdatedEvent{
			BaseEvent:             tc.base(shared.EventConfigUpdated, "config"),
			PreviousBackendSigner: previous,
			BackendSigner:         cfg.BackendSigner,
		})
		out = cfg
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// ══════════════════════════════════════════════════════════════════════════════
// START SEASON
// ══════════════════════════════════════════════════════════════════════════════

// StartSeasonCommand opens the next season.
type StartSeasonCommand struct {
	Caller shared.Address
}

// StartSeason executes StartSeasonCommand. Authority only. Learners' season
// XP resets on their next credit.
func (l *Ledger) StartSeason(ctx context.Context, cmd StartSeasonCommand) (uint32, error) {
	if err := requireCaller(cmd.Caller); err != nil {
		return 0, err
	}

	var season uint32
	_, err := l.execute(ctx, "StartSeason", cmd.Caller, func(ctx context.Context, tc *txContext) error {
		cfg, err := l.loadConfig(ctx, tc)
		if err != nil {
			return err
		}
		if err := cfg.RequireAuthority(cmd.Caller); err != nil {
			return err
		}
		season, err = cfg.StartSeason(tc.now)
		if err != nil {
			return err
		}
		if err := tc.tx.Config().Update(ctx, cfg); err != nil {
			return err
		}
		tc.emit(shared.SeasonStartedEvent{
			BaseEvent: tc.base(shared.EventSeasonStarted, "config"),
			Season:    season,
		})
		return nil
	})
	return season, err
}
