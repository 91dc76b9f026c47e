package query

import (
	"context"
	"time"

	"github.com/alem-hub/academy-ledger/internal/domain/achievement"
	"github.com/alem-hub/academy-ledger/internal/domain/governance"
	"github.com/alem-hub/academy-ledger/internal/domain/minter"
	"github.com/alem-hub/academy-ledger/internal/domain/shared"
	"github.com/alem-hub/academy-ledger/internal/domain/store"
)

// ConfigDTO - глобальная конфигурация.
type ConfigDTO struct {
	Authority     string    `json:"authority"`
	BackendSigner string    `json:"backend_signer"`
	XPMint        string    `json:"xp_mint"`
	CurrentSeason uint32    `json:"current_season"`
	InitializedAt time.Time `json:"initialized_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// MinterRoleDTO - роль минтера. Суммы в виде строк: они не помещаются
// в float64 без потерь.
type MinterRoleDTO struct {
	Minter        string    `json:"minter"`
	Label         string    `json:"label"`
	MaxXPPerCall  string    `json:"max_xp_per_call"`
	Unlimited     bool      `json:"unlimited"`
	TotalXPMinted string    `json:"total_xp_minted"`
	IsActive      bool      `json:"is_active"`
	CreatedAt     time.Time `json:"created_at"`
}

// AchievementTypeDTO - тип достижения.
type AchievementTypeDTO struct {
	AchievementID string    `json:"achievement_id"`
	Name          string    `json:"name"`
	MetadataURI   string    `json:"metadata_uri,omitempty"`
	Collection    string    `json:"collection,omitempty"`
	MaxSupply     uint32    `json:"max_supply"`
	CurrentSupply uint32    `json:"current_supply"`
	Remaining     uint32    `json:"remaining"`
	XPReward      uint32    `json:"xp_reward"`
	IsActive      bool      `json:"is_active"`
	CreatedAt     time.Time `json:"created_at"`
}

// ReceiptDTO - квитанция о выдаче достижения.
type ReceiptDTO struct {
	AchievementID string    `json:"achievement_id"`
	Recipient     string    `json:"recipient"`
	Asset         string    `json:"asset"`
	GrantedBy     string    `json:"granted_by"`
	AwardedAt     time.Time `json:"awarded_at"`
}

// Registry читает конфигурацию, роли и достижения.
type Registry struct {
	uow store.UnitOfWork
}

// NewRegistry создаёт Registry.
func NewRegistry(uow store.UnitOfWork) *Registry {
	return &Registry{uow: uow}
}

// Config возвращает глобальную конфигурацию.
func (r *Registry) Config(ctx context.Context) (*ConfigDTO, error) {
	var cfg *governance.Config
	err := r.uow.View(ctx, func(ctx context.Context, tx store.Tx) error {
		var err error
		cfg, err = tx.Config().Get(ctx)
		return err
	})
	if err != nil {
		return nil, err
	}
	return &ConfigDTO{
		Authority:     cfg.Authority.String(),
		BackendSigner: cfg.BackendSigner.String(),
		XPMint:        cfg.XPMint.String(),
		CurrentSeason: cfg.CurrentSeason,
		InitializedAt: cfg.InitializedAt,
		UpdatedAt:     cfg.UpdatedAt,
	}, nil
}

// MinterRole возвращает роль минтера.
func (r *Registry) MinterRole(ctx context.Context, who shared.Address) (*MinterRoleDTO, error) {
	var role *minter.Role
	err := r.uow.View(ctx, func(ctx context.Context, tx store.Tx) error {
		var err error
		role, err = tx.Minters().Get(ctx, who)
		return err
	})
	if err != nil {
		return nil, err
	}
	return &MinterRoleDTO{
		Minter:        role.Minter.String(),
		Label:         role.Label,
		MaxXPPerCall:  role.MaxXPPerCall.String(),
		Unlimited:     role.MaxXPPerCall.IsMax(),
		TotalXPMinted: role.TotalXPMinted.String(),
		IsActive:      role.IsActive,
		CreatedAt:     role.CreatedAt,
	}, nil
}

// AchievementType возвращает тип достижения.
func (r *Registry) AchievementType(ctx context.Context, id string) (*AchievementTypeDTO, error) {
	var t *achievement.Type
	err := r.uow.View(ctx, func(ctx context.Context, tx store.Tx) error {
		var err error
		t, err = tx.Achievements().GetType(ctx, id)
		return err
	})
	if err != nil {
		return nil, err
	}
	return &AchievementTypeDTO{
		AchievementID: t.AchievementID,
		Name:          t.Name,
		MetadataURI:   t.MetadataURI,
		Collection:    t.Collection.String(),
		MaxSupply:     t.MaxSupply,
		CurrentSupply: t.CurrentSupply,
		Remaining:     t.Remaining(),
		XPReward:      t.XPReward,
		IsActive:      t.IsActive,
		CreatedAt:     t.CreatedAt,
	}, nil
}

// Receipt возвращает квитанцию (achievement_id, recipient).
func (r *Registry) Receipt(ctx context.Context, id string, recipient shared.Address) (*ReceiptDTO, error) {
	var rec *achievement.Receipt
	err := r.uow.View(ctx, func(ctx context.Context, tx store.Tx) error {
		var err error
		rec, err = tx.Achievements().GetReceipt(ctx, id, recipient)
		return err
	})
	if err != nil {
		return nil, err
	}
	dto := toReceiptDTO(rec)
	return &dto, nil
}

// Receipts возвращает все квитанции получателя.
func (r *Registry) Receipts(ctx context.Context, recipient shared.Address) ([]ReceiptDTO, error) {
	var list []*achievement.Receipt
	err := r.uow.View(ctx, func(ctx context.Context, tx store.Tx) error {
		var err error
		list, err = tx.Achievements().ListReceipts(ctx, recipient)
		return err
	})
	if err != nil {
		return nil, err
	}
	out := make([]ReceiptDTO, len(list))
	for i, rec := range list {
		out[i] = toReceiptDTO(rec)
	}
	return out, nil
}

func toReceiptDTO(r *achievement.Receipt) ReceiptDTO {
	return ReceiptDTO{
		AchievementID: r.AchievementID,
		Recipient:     r.Recipient.String(),
		Asset:         r.Asset.String(),
		GrantedBy:     r.GrantedBy.String(),
		AwardedAt:     r.AwardedAt,
	}
}
