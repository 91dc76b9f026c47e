package command

import (
	"context"

	"github.com/alem-hub/academy-ledger/internal/domain/learner"
	"github.com/alem-hub/academy-ledger/internal/domain/shared"
)

// InitLearnerCommand creates the caller's profile.
type InitLearnerCommand struct {
	Caller shared.Address
}

// InitLearner executes InitLearnerCommand. It fails if the profile exists.
func (l *Ledger) InitLearner(ctx context.Context, cmd InitLearnerCommand) (*learner.Profile, error) {
	if err := requireCaller(cmd.Caller); err != nil {
		return nil, err
	}

	var out *learner.Profile
	_, err := l.execute(ctx, "InitLearner", cmd.Caller, func(ctx context.Context, tc *txContext) error {
		cfg, err := l.loadConfig(ctx, tc)
		if err != nil {
			return err
		}
		p, err := learner.New(cmd.Caller, cfg.CurrentSeason, tc.now)
		if err != nil {
			return err
		}
		if err := tc.tx.Learners().Create(ctx, p); err != nil {
			return err
		}
		tc.emit(shared.LearnerInitializedEvent{
			BaseEvent: tc.base(shared.EventLearnerInitialized, p.User.String()),
			Learner:   p.User,
			Season:    p.Season,
		})
		out = p
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// AwardStreakFreezeCommand grants one streak freeze. Backend signer only.
type AwardStreakFreezeCommand struct {
	Caller  shared.Address
	Learner shared.Address
}

// AwardStreakFreeze executes AwardStreakFreezeCommand and returns the
// learner's freeze count, which never exceeds the configured maximum.
func (l *Ledger) AwardStreakFreeze(ctx context.Context, cmd AwardStreakFreezeCommand) (uint32, error) {
	if err := requireCaller(cmd.Caller); err != nil {
		return 0, err
	}

	var freezes uint32
	_, err := l.execute(ctx, "AwardStreakFreeze", cmd.Caller, func(ctx context.Context, tc *txContext) error {
		cfg, err := l.loadConfig(ctx, tc)
		if err != nil {
			return err
		}
		if err := cfg.RequireBackendSigner(cmd.Caller); err != nil {
			return err
		}
		p, err := tc.tx.Learners().Get(ctx, cmd.Learner)
		if err != nil {
			return err
		}
		freezes = p.AwardStreakFreeze(l.rules.MaxStreakFreezes)
		if err := tc.tx.Learners().Update(ctx, p); err != nil {
			return err
		}
		tc.emit(shared.StreakFreezeAwardedEvent{
			BaseEvent:     tc.base(shared.EventStreakFreezeAwarded, p.User.String()),
			Learner:       p.User,
			StreakFreezes: freezes,
		})
		return nil
	})
	return freezes, err
}

// RegisterReferralCommand links the caller (the referred learner) to a
// referrer. Both profiles must exist.
type RegisterReferralCommand struct {
	Caller   shared.Address
	Referrer shared.Address
}

// RegisterReferral executes RegisterReferralCommand.
func (l *Ledger) RegisterReferral(ctx context.Context, cmd RegisterReferralCommand) error {
	if err := requireCaller(cmd.Caller); err != nil {
		return err
	}
	if !cmd.Referrer.IsValid() {
		return shared.ErrInvalidAddress.Withf("referrer %q", cmd.Referrer)
	}
	if cmd.Referrer == cmd.Caller {
		return shared.ErrSelfReferral
	}

	_, err := l.execute(ctx, "RegisterReferral", cmd.Caller, func(ctx context.Context, tc *txContext) error {
		referred, err := tc.tx.Learners().Get(ctx, cmd.Caller)
		if err != nil {
			return err
		}
		referrer, err := tc.tx.Learners().Get(ctx, cmd.Referrer)
		if err != nil {
			return err
		}
		if err := referred.SetReferrer(referrer.User); err != nil {
			return err
		}
		if err := referrer.RecordReferral(); err != nil {
			return err
		}
		if err := tc.tx.Learners().Update(ctx, referred); err != nil {
			return err
		}
		if err := tc.tx.Learners().Update(ctx, referrer); err != nil {
			return err
		}
		tc.emit(shared.ReferralRegisteredEvent{
			BaseEvent:     tc.base(shared.EventReferralRegistered, referred.User.String()),
			Referrer:      referrer.User,
			Referred:      referred.User,
			ReferralCount: referrer.ReferralCount,
		})
		return nil
	})
	return err
}
