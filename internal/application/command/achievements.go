package command

import (
	"context"
	"unicode/utf8"

	"github.com/alem-hub/academy-ledger/internal/domain/achievement"
	"github.com/alem-hub/academy-ledger/internal/domain/shared"
	"github.com/alem-hub/academy-ledger/internal/domain/token"
	"github.com/alem-hub/academy-ledger/pkg/fixedpoint"
)

// ══════════════════════════════════════════════════════════════════════════════
// ACHIEVEMENT TYPES
// ══════════════════════════════════════════════════════════════════════════════

// CreateAchievementTypeCommand defines a new achievement. Authority only.
type CreateAchievementTypeCommand struct {
	Caller shared.Address
	achievement.Params
}

// Validate validates the command.
func (c CreateAchievementTypeCommand) Validate() error {
	if err := requireCaller(c.Caller); err != nil {
		return err
	}
	return c.Params.Validate()
}

// CreateAchievementType executes CreateAchievementTypeCommand.
func (l *Ledger) CreateAchievementType(ctx context.Context, cmd CreateAchievementTypeCommand) (*achievement.Type, error) {
	if err := cmd.Validate(); err != nil {
		return nil, err
	}

	var out *achievement.Type
	_, err := l.execute(ctx, "CreateAchievementType", cmd.Caller, func(ctx context.Context, tc *txContext) error {
		cfg, err := l.loadConfig(ctx, tc)
		if err != nil {
			return err
		}
		if err := cfg.RequireAuthority(cmd.Caller); err != nil {
			return err
		}
		t, err := achievement.NewType(cmd.Params, tc.now)
		if err != nil {
			return err
		}
		if err := tc.tx.Achievements().CreateType(ctx, t); err != nil {
			return err
		}
		tc.emit(shared.AchievementTypeCreatedEvent{
			BaseEvent:     tc.base(shared.EventAchievementTypeCreated, t.AchievementID),
			AchievementID: t.AchievementID,
			Name:          t.Name,
			MaxSupply:     t.MaxSupply,
			XPReward:      t.XPReward,
		})
		out = t
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// DeactivateAchievementTypeCommand stops further grants. Authority only.
type DeactivateAchievementTypeCommand struct {
	Caller        shared.Address
	AchievementID string
}

// DeactivateAchievementType executes DeactivateAchievementTypeCommand.
func (l *Ledger) DeactivateAchievementType(ctx context.Context, cmd DeactivateAchievementTypeCommand) error {
	if err := requireCaller(cmd.Caller); err != nil {
		return err
	}

	_, err := l.execute(ctx, "DeactivateAchievementType", cmd.Caller, func(ctx context.Context, tc *txContext) error {
		cfg, err := l.loadConfig(ctx, tc)
		if err != nil {
			return err
		}
		if err := cfg.RequireAuthority(cmd.Caller); err != nil {
			return err
		}
		t, err := tc.tx.Achievements().GetType(ctx, cmd.AchievementID)
		if err != nil {
			return err
		}
		t.Deactivate()
		if err := tc.tx.Achievements().UpdateType(ctx, t); err != nil {
			return err
		}
		tc.emit(shared.AchievementTypeDeactivatedEvent{
			BaseEvent:     tc.base(shared.EventAchievementTypeDeactivated, t.AchievementID),
			AchievementID: t.AchievementID,
		})
		return nil
	})
	return err
}

// ══════════════════════════════════════════════════════════════════════════════
// GRANTS
// ══════════════════════════════════════════════════════════════════════════════

// GrantAchievementCommand is shared by AwardAchievement (caller is a
// minter) and ClaimAchievement (caller is the backend signer). Asset is
// optional; a deterministic one is derived when empty.
type GrantAchievementCommand struct {
	Caller        shared.Address
	AchievementID string
	Recipient     shared.Address
	RecipientMint shared.Address
	Asset         shared.Address
}

// Validate validates the command.
func (c GrantAchievementCommand) Validate() error {
	if err := requireCaller(c.Caller); err != nil {
		return err
	}
	if !c.Recipient.IsValid() {
		return shared.ErrInvalidAddress.Withf("recipient %q", c.Recipient)
	}
	if n := utf8.RuneCountInString(c.AchievementID); n == 0 || n > achievement.MaxIDLength {
		return shared.ErrInvalidAchievementID.Withf("%q", c.AchievementID)
	}
	if c.Asset != "" && !c.Asset.IsValid() {
		return shared.ErrInvalidAddress.Withf("asset %q", c.Asset)
	}
	return nil
}

// GrantAchievementResult reports the receipt and supply.
type GrantAchievementResult struct {
	Result
	Receipt       *achievement.Receipt
	XPReward      uint32
	CurrentSupply uint32
}

// AwardAchievement executes GrantAchievementCommand on the minter path: the
// XP reward is added to the caller's minted total. The achievement type
// fixes the amount, so the per-call limit does not apply. It does not
// touch the recipient's daily cap or streak.
func (l *Ledger) AwardAchievement(ctx context.Context, cmd GrantAchievementCommand) (*GrantAchievementResult, error) {
	if err := cmd.Validate(); err != nil {
		return nil, err
	}

	res := &GrantAchievementResult{}
	events, err := l.execute(ctx, "AwardAchievement", cmd.Caller, func(ctx context.Context, tc *txContext) error {
		cfg, err := l.loadConfig(ctx, tc)
		if err != nil {
			return err
		}
		role, err := l.minterRole(ctx, tc, cmd.Caller)
		if err != nil {
			return err
		}
		if !role.IsActive {
			return shared.ErrMinterNotActive
		}
		if err := cfg.VerifyMint(cmd.RecipientMint); err != nil {
			return err
		}
		t, receipt, err := l.grant(ctx, tc, cmd)
		if err != nil {
			return err
		}

		if t.XPReward > 0 {
			amount := fixedpoint.FromInteger(uint64(t.XPReward))
			if err := l.creditToken(ctx, tc, cfg, cmd.Recipient, uint64(t.XPReward), token.ReasonAchievement); err != nil {
				return err
			}
			if err := role.RecordMint(amount); err != nil {
				return err
			}
			if err := tc.tx.Minters().Update(ctx, role); err != nil {
				return err
			}
		}
		if err := l.recordAchievementOnProfile(ctx, tc, cmd.Recipient); err != nil {
			return err
		}

		tc.emit(grantedEvent(tc, shared.EventAchievementAwarded, t, receipt))
		res.Receipt = receipt
		res.XPReward = t.XPReward
		res.CurrentSupply = t.CurrentSupply
		return nil
	})
	if err != nil {
		return nil, err
	}
	res.Events = events
	return res, nil
}

// ClaimAchievement executes GrantAchievementCommand on the attested path.
// The recipient must have a profile; the XP reward goes through learner
// accounting like lesson XP.
func (l *Ledger) ClaimAchievement(ctx context.Context, cmd GrantAchievementCommand) (*GrantAchievementResult, error) {
	if err := cmd.Validate(); err != nil {
		return nil, err
	}

	res := &GrantAchievementResult{}
	events, err := l.execute(ctx, "ClaimAchievement", cmd.Caller, func(ctx context.Context, tc *txContext) error {
		cfg, err := l.loadConfig(ctx, tc)
		if err != nil {
			return err
		}
		if err := cfg.RequireBackendSigner(cmd.Caller); err != nil {
			return err
		}
		if err := cfg.VerifyMint(cmd.RecipientMint); err != nil {
			return err
		}
		profile, err := tc.tx.Learners().Get(ctx, cmd.Recipient)
		if err != nil {
			return err
		}
		t, receipt, err := l.grant(ctx, tc, cmd)
		if err != nil {
			return err
		}

		if _, err := l.creditActivity(ctx, tc, cfg, profile, t.XPReward, token.ReasonAchievement); err != nil {
			return err
		}
		if err := profile.RecordAchievement(); err != nil {
			return err
		}
		if err := tc.tx.Learners().Update(ctx, profile); err != nil {
			return err
		}

		tc.emit(grantedEvent(tc, shared.EventAchievementClaimed, t, receipt))
		res.Receipt = receipt
		res.XPReward = t.XPReward
		res.CurrentSupply = t.CurrentSupply
		return nil
	})
	if err != nil {
		return nil, err
	}
	res.Events = events
	return res, nil
}

// grant consumes supply and writes the receipt. The receipt's unique key
// makes a second grant to the same recipient fail.
func (l *Ledger) grant(ctx context.Context, tc *txContext, cmd GrantAchievementCommand) (*achievement.Type, *achievement.Receipt, error) {
	t, err := tc.tx.Achievements().GetType(ctx, cmd.AchievementID)
	if err != nil {
		return nil, nil, err
	}
	if err := t.Grant(); err != nil {
		return nil, nil, err
	}
	asset := cmd.Asset
	if asset == "" {
		asset = shared.DeriveAddress("achievement-asset", t.AchievementID, cmd.Recipient.String())
	}
	receipt := &achievement.Receipt{
		AchievementID: t.AchievementID,
		Recipient:     cmd.Recipient,
		Asset:         asset,
		GrantedBy:     cmd.Caller,
		AwardedAt:     tc.now,
	}
	if err := tc.tx.Achievements().CreateReceipt(ctx, receipt); err != nil {
		return nil, nil, err
	}
	if err := tc.tx.Achievements().UpdateType(ctx, t); err != nil {
		return nil, nil, err
	}
	return t, receipt, nil
}

// recordAchievementOnProfile bumps achievement_count when the recipient
// has a profile. Recipients without one are allowed on the minter path.
func (l *Ledger) recordAchievementOnProfile(ctx context.Context, tc *txContext, recipient shared.Address) error {
	p, err := tc.tx.Learners().Get(ctx, recipient)
	if err != nil {
		if shared.IsNotFound(err) {
			return nil
		}
		return err
	}
	if err := p.RecordAchievement(); err != nil {
		return err
	}
	return tc.tx.Learners().Update(ctx, p)
}

func grantedEvent(tc *txContext, t shared.EventType, at *achievement.Type, r *achievement.Receipt) shared.AchievementGrantedEvent {
	return shared.AchievementGrantedEvent{
		BaseEvent:     tc.base(t, r.Key()),
		AchievementID: r.AchievementID,
		Recipient:     r.Recipient,
		Asset:         r.Asset,
		GrantedBy:     r.GrantedBy,
		XPReward:      at.XPReward,
		CurrentSupply: at.CurrentSupply,
	}
}
