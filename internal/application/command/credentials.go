package command

import (
	"context"
	"errors"

	"github.com/alem-hub/academy-ledger/internal/domain/credential"
	"github.com/alem-hub/academy-ledger/internal/domain/shared"
)

var errNoIssuer = errors.New("command: no credential issuer configured")

// IssueCredentialCommand mints a completion credential. Backend signer only.
type IssueCredentialCommand struct {
	Caller   shared.Address
	Learner  shared.Address
	CourseID string
	Name     string
	URI      string
}

// Validate validates the command.
func (c IssueCredentialCommand) Validate() error {
	if err := (CompleteLessonCommand{Caller: c.Caller, Learner: c.Learner, CourseID: c.CourseID}).Validate(); err != nil {
		return err
	}
	return credential.ValidateMetadata(c.Name, c.URI)
}

// IssueCredential executes IssueCredentialCommand. The enrollment must be
// finalized and can carry only one credential. The issuer writes the
// metadata after the asset is recorded.
func (l *Ledger) IssueCredential(ctx context.Context, cmd IssueCredentialCommand) (shared.Address, error) {
	if err := cmd.Validate(); err != nil {
		return "", err
	}
	if l.issuer == nil {
		return "", errNoIssuer
	}

	var asset shared.Address
	_, err := l.execute(ctx, "IssueCredential", cmd.Caller, func(ctx context.Context, tc *txContext) error {
		cfg, err := l.loadConfig(ctx, tc)
		if err != nil {
			return err
		}
		if err := cfg.RequireBackendSigner(cmd.Caller); err != nil {
			return err
		}
		c, err := tc.tx.Courses().Get(ctx, cmd.CourseID)
		if err != nil {
			return err
		}
		e, err := tc.tx.Enrollments().Get(ctx, cmd.CourseID, cmd.Learner)
		if err != nil {
			return err
		}
		if err := e.RequireFinalized(); err != nil {
			return err
		}
		if e.CredentialAsset != nil {
			return shared.ErrCredentialAlreadyIssued
		}

		asset = l.issuer.AssetFor(cmd.Learner, c.CourseID)
		if err := e.AttachCredential(asset); err != nil {
			return err
		}
		if err := tc.tx.Enrollments().Update(ctx, e); err != nil {
			return err
		}
		req := credential.IssueRequest{
			Asset:      asset,
			Learner:    cmd.Learner,
			CourseID:   c.CourseID,
			TrackID:    c.TrackID,
			TrackLevel: c.TrackLevel,
			Name:       cmd.Name,
			URI:        cmd.URI,
		}
		tc.onCommit("credential.issue", func(ctx context.Context) error {
			return l.issuer.Issue(ctx, req)
		})
		tc.emit(shared.CredentialIssuedEvent{
			BaseEvent:  tc.base(shared.EventCredentialIssued, e.Key()),
			CourseID:   c.CourseID,
			Learner:    cmd.Learner,
			Asset:      asset,
			TrackID:    c.TrackID,
			TrackLevel: c.TrackLevel,
		})
		return nil
	})
	if err != nil {
		return "", err
	}
	return asset, nil
}

// UpgradeCredentialCommand refreshes credential metadata. Backend signer only.
type UpgradeCredentialCommand struct {
	Caller   shared.Address
	Learner  shared.Address
	CourseID string
	Asset    shared.Address
	Name     string
	URI      string
}

// UpgradeCredential executes UpgradeCredentialCommand. The supplied asset
// must be the one recorded on the enrollment.
func (l *Ledger) UpgradeCredential(ctx context.Context, cmd UpgradeCredentialCommand) error {
	if err := (IssueCredentialCommand{Caller: cmd.Caller, Learner: cmd.Learner, CourseID: cmd.CourseID, Name: cmd.Name, URI: cmd.URI}).Validate(); err != nil {
		return err
	}
	if l.issuer == nil {
		return errNoIssuer
	}

	_, err := l.execute(ctx, "UpgradeCredential", cmd.Caller, func(ctx context.Context, tc *txContext) error {
		cfg, err := l.loadConfig(ctx, tc)
		if err != nil {
			return err
		}
		if err := cfg.RequireBackendSigner(cmd.Caller); err != nil {
			return err
		}
		e, err := tc.tx.Enrollments().Get(ctx, cmd.CourseID, cmd.Learner)
		if err != nil {
			return err
		}
		if err := e.VerifyCredential(cmd.Asset); err != nil {
			return err
		}
		profile, err := tc.tx.Learners().Get(ctx, cmd.Learner)
		if err != nil {
			return err
		}

		req := credential.UpgradeRequest{
			Asset:            cmd.Asset,
			Learner:          cmd.Learner,
			CourseID:         cmd.CourseID,
			Name:             cmd.Name,
			URI:              cmd.URI,
			CoursesCompleted: profile.CoursesCompleted,
			TotalXP:          profile.TotalXP,
		}
		tc.onCommit("credential.upgrade", func(ctx context.Context) error {
			return l.issuer.Upgrade(ctx, req)
		})
		tc.emit(shared.CredentialUpgradedEvent{
			BaseEvent:        tc.base(shared.EventCredentialUpgraded, e.Key()),
			CourseID:         cmd.CourseID,
			Learner:          cmd.Learner,
			Asset:            cmd.Asset,
			CoursesCompleted: profile.CoursesCompleted,
			TotalXP:          profile.TotalXP,
		})
		return nil
	})
	return err
}
