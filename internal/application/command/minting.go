package command

import (
	"context"

	"github.com/alem-hub/academy-ledger/internal/domain/minter"
	"github.com/alem-hub/academy-ledger/internal/domain/shared"
	"github.com/alem-hub/academy-ledger/internal/domain/token"
	"github.com/alem-hub/academy-ledger/pkg/fixedpoint"
)

// ══════════════════════════════════════════════════════════════════════════════
// REGISTER / REVOKE
// ══════════════════════════════════════════════════════════════════════════════

// RegisterMinterCommand grants a minting role. Authority only.
type RegisterMinterCommand struct {
	Caller       shared.Address
	Minter       shared.Address
	Label        string
	MaxXPPerCall fixedpoint.Amount
}

// RegisterMinter executes RegisterMinterCommand.
func (l *Ledger) RegisterMinter(ctx context.Context, cmd RegisterMinterCommand) (*minter.Role, error) {
	if err := requireCaller(cmd.Caller); err != nil {
		return nil, err
	}

	var out *minter.Role
	_, err := l.execute(ctx, "RegisterMinter", cmd.Caller, func(ctx context.Context, tc *txContext) error {
		role, err := minter.New(cmd.Minter, cmd.Label, cmd.MaxXPPerCall, tc.now)
		if err != nil {
			return err
		}
		cfg, err := l.loadConfig(ctx, tc)
		if err != nil {
			return err
		}
		if err := cfg.RequireAuthority(cmd.Caller); err != nil {
			return err
		}
		if err := tc.tx.Minters().Create(ctx, role); err != nil {
			return err
		}
		tc.emit(shared.MinterRegisteredEvent{
			BaseEvent:    tc.base(shared.EventMinterRegistered, role.Minter.String()),
			Minter:       role.Minter,
			Label:        role.Label,
			MaxXPPerCall: role.MaxXPPerCall.RawString(),
		})
		out = role
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// RevokeMinterCommand removes a minting role. Authority only.
type RevokeMinterCommand struct {
	Caller shared.Address
	Minter shared.Address
}

// RevokeMinter executes RevokeMinterCommand.
func (l *Ledger) RevokeMinter(ctx context.Context, cmd RevokeMinterCommand) error {
	if err := requireCaller(cmd.Caller); err != nil {
		return err
	}

	_, err := l.execute(ctx, "RevokeMinter", cmd.Caller, func(ctx context.Context, tc *txContext) error {
		cfg, err := l.loadConfig(ctx, tc)
		if err != nil {
			return err
		}
		if err := cfg.RequireAuthority(cmd.Caller); err != nil {
			return err
		}
		role, err := tc.tx.Minters().Get(ctx, cmd.Minter)
		if err != nil {
			return err
		}
		if err := tc.tx.Minters().Delete(ctx, role.Minter); err != nil {
			return err
		}
		tc.emit(shared.MinterRevokedEvent{
			BaseEvent:     tc.base(shared.EventMinterRevoked, role.Minter.String()),
			Minter:        role.Minter,
			TotalXPMinted: role.TotalXPMinted.RawString(),
		})
		return nil
	})
	return err
}

// ══════════════════════════════════════════════════════════════════════════════
// REWARD XP
// ══════════════════════════════════════════════════════════════════════════════

// RewardXPCommand issues XP from the caller's minter role. RecipientMint is
// optional; when set it must be the ledger's XP mint.
type RewardXPCommand struct {
	Caller        shared.Address
	Recipient     shared.Address
	RecipientMint shared.Address
	Amount        fixedpoint.Amount
	Reason        string
}

// Validate validates the command.
func (c RewardXPCommand) Validate() error {
	if err := requireCaller(c.Caller); err != nil {
		return err
	}
	if !c.Recipient.IsValid() {
		return shared.ErrInvalidAddress.Withf("recipient %q", c.Recipient)
	}
	return minter.ValidateReason(c.Reason)
}

// RewardXPResult reports the new totals.
type RewardXPResult struct {
	Result
	Amount        uint64
	NewBalance    uint64
	TotalXPMinted fixedpoint.Amount
}

// RewardXP executes RewardXPCommand. The credit bypasses learner accounting:
// no daily cap and no streak.
func (l *Ledger) RewardXP(ctx context.Context, cmd RewardXPCommand) (*RewardXPResult, error) {
	if err := cmd.Validate(); err != nil {
		return nil, err
	}

	res := &RewardXPResult{}
	events, err := l.execute(ctx, "RewardXP", cmd.Caller, func(ctx context.Context, tc *txContext) error {
		cfg, err := l.loadConfig(ctx, tc)
		if err != nil {
			return err
		}
		role, err := l.minterRole(ctx, tc, cmd.Caller)
		if err != nil {
			return err
		}
		if err := role.Authorize(cmd.Amount); err != nil {
			return err
		}
		if err := cfg.VerifyMint(cmd.RecipientMint); err != nil {
			return err
		}
		amount, err := cmd.Amount.ToInteger()
		if err != nil {
			return shared.Overflow("minter", "RewardXP", "amount").With(err)
		}

		if err := l.creditToken(ctx, tc, cfg, cmd.Recipient, amount, token.ReasonMinterReward); err != nil {
			return err
		}
		if err := role.RecordMint(cmd.Amount); err != nil {
			return err
		}
		if err := tc.tx.Minters().Update(ctx, role); err != nil {
			return err
		}
		balance, err := tc.tx.Balances().Balance(ctx, token.AccountRef{Mint: cfg.XPMint, Owner: cmd.Recipient})
		if err != nil {
			return err
		}

		tc.emit(shared.XPRewardedEvent{
			BaseEvent:     tc.base(shared.EventXPRewarded, role.Minter.String()),
			Minter:        role.Minter,
			Recipient:     cmd.Recipient,
			Amount:        amount,
			Reason:        cmd.Reason,
			TotalXPMinted: role.TotalXPMinted.RawString(),
		})
		res.Amount = amount
		res.NewBalance = balance
		res.TotalXPMinted = role.TotalXPMinted
		return nil
	})
	if err != nil {
		return nil, err
	}
	res.Events = events
	return res, nil
}

// minterRole loads the caller's role. A caller without one is unauthorized,
// not a dangling reference.
func (l *Ledger) minterRole(ctx context.Context, tc *txContext, caller shared.Address) (*minter.Role, error) {
	role, err := tc.tx.Minters().Get(ctx, caller)
	if err != nil {
		if shared.IsNotFound(err) {
			return nil, shared.ErrMinterRoleMismatch.Withf("%s holds no minter role", caller)
		}
		return nil, err
	}
	return role, nil
}
