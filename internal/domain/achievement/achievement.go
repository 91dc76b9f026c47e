// Package achievement defines supply-capped achievement types and the
// receipts that make each award happen at most once per recipient.
package achievement

import (
	"context"
	"time"
	"unicode/utf8"

	"github.com/alem-hub/academy-ledger/internal/domain/shared"
)

const (
	MaxIDLength          = 32
	MaxNameLength        = 64
	MaxMetadataURILength = 200
)

// Type is an achievement definition. CurrentSupply never exceeds MaxSupply.
type Type struct {
	AchievementID string
	Name          string
	MetadataURI   string
	Collection    shared.Address
	MaxSupply     uint32
	CurrentSupply uint32
	XPReward      uint32
	IsActive      bool
	CreatedAt     time.Time
}

// Params are the creation inputs.
type Params struct {
	AchievementID string
	Name          string
	MetadataURI   string
	Collection    shared.Address
	MaxSupply     uint32
	XPReward      uint32
}

// Validate checks p.
func (p Params) Validate() error {
	if n := utf8.RuneCountInString(p.AchievementID); n == 0 || n > MaxIDLength {
		return shared.ErrInvalidAchievementID.Withf("%q", p.AchievementID)
	}
	if n := utf8.RuneCountInString(p.Name); n == 0 || n > MaxNameLength {
		return shared.ErrInvalidAchievementName
	}
	if utf8.RuneCountInString(p.MetadataURI) > MaxMetadataURILength {
		return shared.ErrInvalidMetadataURI
	}
	if p.Collection != "" && !p.Collection.IsValid() {
		return shared.ErrInvalidAddress.Withf("collection %q", p.Collection)
	}
	if p.MaxSupply == 0 {
		return shared.ErrInvalidMaxSupply
	}
	return nil
}

// NewType creates an active type with zero supply.
func NewType(p Params, now time.Time) (*Type, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}
	return &Type{
		AchievementID: p.AchievementID,
		Name:          p.Name,
		MetadataURI:   p.MetadataURI,
		Collection:    p.Collection,
		MaxSupply:     p.MaxSupply,
		XPReward:      p.XPReward,
		IsActive:      true,
		CreatedAt:     now,
	}, nil
}

// CanGrant checks activity and remaining supply.
func (t *Type) CanGrant() error {
	if !t.IsActive {
		return shared.ErrAchievementNotActive.Withf("%q", t.AchievementID)
	}
	if t.CurrentSupply >= t.MaxSupply {
		return shared.ErrAchievementSupplyExceeded.Withf("%d of %d", t.CurrentSupply, t.MaxSupply)
	}
	return nil
}

// Grant consumes one unit of supply.
func (t *Type) Grant() error {
	if err := t.CanGrant(); err != nil {
		return err
	}
	n, ok := shared.AddU32(t.CurrentSupply, 1)
	if !ok {
		return shared.Overflow("achievement", "Grant", "current supply")
	}
	t.CurrentSupply = n
	return nil
}

// Deactivate stops further grants. Existing receipts stay valid.
func (t *Type) Deactivate() {
	t.IsActive = false
}

// Remaining returns the unclaimed supply.
func (t *Type) Remaining() uint32 {
	return t.MaxSupply - t.CurrentSupply
}

// Clone returns a copy.
func (t *Type) Clone() *Type {
	cp := *t
	return &cp
}

// Receipt proves that Recipient received AchievementID. Immutable.
type Receipt struct {
	AchievementID string
	Recipient     shared.Address
	Asset         shared.Address
	GrantedBy     shared.Address
	AwardedAt     time.Time
}

// ReceiptKey is the storage identity of a receipt.
func ReceiptKey(achievementID string, recipient shared.Address) string {
	return shared.DeriveKey("receipt", achievementID, recipient.String())
}

// Key returns the storage identity of r.
func (r *Receipt) Key() string { return ReceiptKey(r.AchievementID, r.Recipient) }

// Repository persists types and receipts.
type Repository interface {
	// CreateType returns ErrAchievementAlreadyExists.
	CreateType(ctx context.Context, t *Type) error

	// GetType returns ErrAchievementNotFound.
	GetType(ctx context.Context, achievementID string) (*Type, error)

	// UpdateType returns ErrAchievementNotFound.
	UpdateType(ctx context.Context, t *Type) error

	// CreateReceipt returns ErrAchievementAlreadyAwarded when the key exists.
	CreateReceipt(ctx context.Context, r *Receipt) error

	// GetReceipt returns ErrReceiptNotFound.
	GetReceipt(ctx context.Context, achievementID string, recipient shared.Address) (*Receipt, error)

	// ListReceipts returns a recipient's receipts ordered by award time.
	ListReceipts(ctx context.Context, recipient shared.Address) ([]*Receipt, error)
}
