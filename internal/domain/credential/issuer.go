// Package credential is the port to the external credential issuer that
// mints and refreshes course-completion credentials.
package credential

import (
	"context"
	"unicode/utf8"

	"github.com/alem-hub/academy-ledger/internal/domain/shared"
)

const (
	MaxNameLength = 64
	MaxURILength  = 200
)

// IssueRequest describes a new credential.
type IssueRequest struct {
	Asset      shared.Address
	Learner    shared.Address
	CourseID   string
	TrackID    uint32
	TrackLevel uint32
	Name       string
	URI        string
}

// UpgradeRequest refreshes an existing credential with current totals.
type UpgradeRequest struct {
	Asset            shared.Address
	Learner          shared.Address
	CourseID         string
	Name             string
	URI              string
	CoursesCompleted uint32
	TotalXP          uint32
}

// Issuer is implemented outside the core. The ledger records the asset
// address inside its transaction and calls Issue and Upgrade only after
// that transaction has committed, once per committed transition.
type Issuer interface {
	// AssetFor returns the asset address of the credential for
	// (learner, course). It has no side effects.
	AssetFor(learner shared.Address, courseID string) shared.Address

	// Issue writes the metadata of a new credential at req.Asset.
	Issue(ctx context.Context, req IssueRequest) error

	// Upgrade replaces the metadata of an issued credential.
	Upgrade(ctx context.Context, req UpgradeRequest) error
}

// ValidateMetadata checks a credential name and URI.
func ValidateMetadata(name, uri string) error {
	if n := utf8.RuneCountInString(name); n == 0 || n > MaxNameLength {
		return shared.ErrInvalidCredentialMeta.Withf("name length %d", n)
	}
	if n := utf8.RuneCountInString(uri); n == 0 || n > MaxURILength {
		return shared.ErrInvalidCredentialMeta.Withf("uri length %d", n)
	}
	return nil
}
