package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/alem-hub/academy-ledger/internal/domain/credential"
	"github.com/alem-hub/academy-ledger/internal/domain/shared"
	"github.com/alem-hub/academy-ledger/internal/infrastructure/persistence/redis"
	"github.com/alem-hub/academy-ledger/pkg/logger"
)

// MetadataStore persists credential documents. *redis.Cache satisfies it;
// Get must return redis.ErrCacheMiss for absent keys.
type MetadataStore interface {
	Set(ctx context.Context, key string, value any, ttl time.Duration) error
	Get(ctx context.Context, key string, dest any) error
}

// CredentialDocument is the metadata published for a credential asset.
type CredentialDocument struct {
	Asset            shared.Address `json:"asset"`
	Learner          shared.Address `json:"learner"`
	CourseID         string         `json:"course_id"`
	TrackID          uint32         `json:"track_id"`
	TrackLevel       uint32         `json:"track_level"`
	Name             string         `json:"name"`
	URI              string         `json:"uri"`
	Revision         uint32         `json:"revision"`
	CoursesCompleted uint32         `json:"courses_completed,omitempty"`
	TotalXP          uint32         `json:"total_xp,omitempty"`
	IssuedAt         time.Time      `json:"issued_at"`
	UpdatedAt        time.Time      `json:"updated_at"`
}

// CredentialIssuer implements credential.Issuer. Asset addresses are derived
// from (learner, course), so issuing again for the same pair yields the same
// asset and overwrites nothing but the metadata.
type CredentialIssuer struct {
	store  MetadataStore
	now    func() time.Time
	logger *slog.Logger
}

var _ credential.Issuer = (*CredentialIssuer)(nil)

// NewCredentialIssuer creates an issuer backed by store.
func NewCredentialIssuer(store MetadataStore, now func() time.Time, log *slog.Logger) *CredentialIssuer {
	if now == nil {
		now = func() time.Time { return time.Now().UTC() }
	}
	if log == nil {
		log = slog.Default()
	}
	return &CredentialIssuer{store: store, now: now, logger: log.With(logger.Component("credential_issuer"))}
}

// AssetFor returns the asset address a credential for (learner, course) gets.
func AssetFor(learner shared.Address, courseID string) shared.Address {
	return shared.DeriveAddress("credential", learner.String(), courseID)
}

// AssetFor implements credential.Issuer.
func (i *CredentialIssuer) AssetFor(learner shared.Address, courseID string) shared.Address {
	return AssetFor(learner, courseID)
}

// Issue implements credential.Issuer. An empty req.Asset is derived from
// the learner and course.
func (i *CredentialIssuer) Issue(ctx context.Context, req credential.IssueRequest) error {
	asset := req.Asset
	if asset == "" {
		asset = AssetFor(req.Learner, req.CourseID)
	}
	if asset != AssetFor(req.Learner, req.CourseID) {
		return shared.ErrCredentialMismatch.Withf("asset %s is not derived from %s/%s", asset, req.Learner, req.CourseID)
	}
	now := i.now()

	doc := CredentialDocument{
		Asset:      asset,
		Learner:    req.Learner,
		CourseID:   req.CourseID,
		TrackID:    req.TrackID,
		TrackLevel: req.TrackLevel,
		Name:       req.Name,
		URI:        req.URI,
		Revision:   1,
		IssuedAt:   now,
		UpdatedAt:  now,
	}
	if err := i.store.Set(ctx, redis.CredentialKey(asset.String()), doc, 0); err != nil {
		return fmt.Errorf("store credential %s: %w", asset, err)
	}

	i.logger.InfoContext(ctx, "credential issued",
		logger.Learner(req.Learner.String()),
		logger.Course(req.CourseID),
		"asset", asset,
	)
	return nil
}

// Upgrade implements credential.Issuer.
func (i *CredentialIssuer) Upgrade(ctx context.Context, req credential.UpgradeRequest) error {
	key := redis.CredentialKey(req.Asset.String())

	var doc CredentialDocument
	err := i.store.Get(ctx, key, &doc)
	switch {
	case errors.Is(err, redis.ErrCacheMiss):
		// Lost metadata is rebuilt from the request.
		doc = CredentialDocument{
			Asset:    req.Asset,
			Learner:  req.Learner,
			CourseID: req.CourseID,
			IssuedAt: i.now(),
		}
	case err != nil:
		return fmt.Errorf("load credential %s: %w", req.Asset, err)
	}

	if doc.Learner != req.Learner || doc.CourseID != req.CourseID {
		return shared.ErrCredentialMismatch.Withf("asset %s belongs to %s/%s", req.Asset, doc.Learner, doc.CourseID)
	}

	doc.Name = req.Name
	doc.URI = req.URI
	doc.CoursesCompleted = req.CoursesCompleted
	doc.TotalXP = req.TotalXP
	doc.Revision++
	doc.UpdatedAt = i.now()

	if err := i.store.Set(ctx, key, doc, 0); err != nil {
		return fmt.Errorf("store credential %s: %w", req.Asset, err)
	}

	i.logger.InfoContext(ctx, "credential upgraded",
		logger.Learner(req.Learner.String()),
		logger.Course(req.CourseID),
		"revision", doc.Revision,
	)
	return nil
}

// Document returns the stored metadata for asset.
func (i *CredentialIssuer) Document(ctx context.Context, asset shared.Address) (*CredentialDocument, error) {
	var doc CredentialDocument
	if err := i.store.Get(ctx, redis.CredentialKey(asset.String()), &doc); err != nil {
		return nil, err
	}
	return &doc, nil
}
