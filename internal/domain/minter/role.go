// Package minter implements delegated, rate-limited XP issuance.
package minter

import (
	"context"
	"time"
	"unicode/utf8"

	"github.com/alem-hub/academy-ledger/internal/domain/shared"
	"github.com/alem-hub/academy-ledger/pkg/fixedpoint"
)

const (
	// MaxLabelLength bounds role labels.
	MaxLabelLength = 32

	// MaxReasonLength bounds reward reasons.
	MaxReasonLength = 64

	// BackendLabel names the unlimited role created at initialization.
	BackendLabel = "backend"
)

// Role is a minting capability held by one address.
type Role struct {
	Minter        shared.Address
	Label         string
	MaxXPPerCall  fixedpoint.Amount
	TotalXPMinted fixedpoint.Amount
	IsActive      bool
	CreatedAt     time.Time
}

// New creates an active role.
func New(minter shared.Address, label string, maxPerCall fixedpoint.Amount, now time.Time) (*Role, error) {
	if !minter.IsValid() {
		return nil, shared.ErrInvalidAddress.Withf("minter %q", minter)
	}
	if utf8.RuneCountInString(label) > MaxLabelLength {
		return nil, shared.ErrInvalidMinterLabel
	}
	if maxPerCall.Sign() <= 0 {
		return nil, shared.ErrInvalidMinterLimit
	}
	return &Role{
		Minter:       minter,
		Label:        label,
		MaxXPPerCall: maxPerCall,
		IsActive:     true,
		CreatedAt:    now,
	}, nil
}

// NewUnlimited creates the backend role with no practical per-call limit.
func NewUnlimited(minter shared.Address, now time.Time) (*Role, error) {
	return New(minter, BackendLabel, fixedpoint.Max(), now)
}

// Authorize checks one issuance of amount: the role is active, the amount is
// a positive whole number, and it does not exceed the per-call limit.
// Comparison stays in the fixed-point domain so unlimited roles work.
func (r *Role) Authorize(amount fixedpoint.Amount) error {
	if !r.IsActive {
		return shared.ErrMinterNotActive
	}
	if amount.Sign() <= 0 || !amount.IsInteger() {
		return shared.ErrInvalidAmount.Withf("got %s", amount)
	}
	if amount.Cmp(r.MaxXPPerCall) > 0 {
		return shared.ErrMinterAmountExceeded.Withf("%s > %s", amount, r.MaxXPPerCall)
	}
	return nil
}

// RecordMint adds amount to the running total.
func (r *Role) RecordMint(amount fixedpoint.Amount) error {
	total, err := r.TotalXPMinted.CheckedAdd(amount)
	if err != nil {
		return shared.Overflow("minter", "RecordMint", "total minted").With(err)
	}
	r.TotalXPMinted = total
	return nil
}

// Clone returns a copy.
func (r *Role) Clone() *Role {
	cp := *r
	return &cp
}

// ValidateReason checks a reward reason.
func ValidateReason(reason string) error {
	if utf8.RuneCountInString(reason) > MaxReasonLength {
		return shared.ErrInvalidRewardReason
	}
	return nil
}

// Repository persists roles.
type Repository interface {
	// Create returns ErrMinterAlreadyExists.
	Create(ctx context.Context, r *Role) error

	// Get returns ErrMinterNotFound.
	Get(ctx context.Context, minter shared.Address) (*Role, error)

	// Update returns ErrMinterNotFound.
	Update(ctx context.Context, r *Role) error

	// Delete returns ErrMinterNotFound.
	Delete(ctx context.Context, minter shared.Address) error
}
