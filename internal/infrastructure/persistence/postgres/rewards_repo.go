package postgres

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/alem-hub/academy-ledger/internal/domain/achievement"
	"github.com/alem-hub/academy-ledger/internal/domain/minter"
	"github.com/alem-hub/academy-ledger/internal/domain/shared"
	"github.com/alem-hub/academy-ledger/internal/domain/token"
	"github.com/alem-hub/academy-ledger/pkg/fixedpoint"
)

// ══════════════════════════════════════════════════════════════════════════════
// MINTER REPOSITORY
// ══════════════════════════════════════════════════════════════════════════════

type minterRepo struct{ q Querier }

func (r minterRepo) Create(ctx context.Context, role *minter.Role) error {
	_, err := r.q.Exec(ctx, `
		INSERT INTO minter_roles (minter, label, max_xp_per_call, total_xp_minted, is_active, created_at)
		VALUES ($1, $2, $3::numeric, $4::numeric, $5, $6)
	`, role.Minter, role.Label, role.MaxXPPerCall.RawString(), role.TotalXPMinted.RawString(), role.IsActive, role.CreatedAt)
	if IsUniqueViolation(err) {
		return shared.ErrMinterAlreadyExists
	}
	if err != nil {
		return fmt.Errorf("failed to create minter role: %w", err)
	}
	return nil
}

func (r minterRepo) Get(ctx context.Context, who shared.Address) (*minter.Role, error) {
	var (
		role           minter.Role
		maxRaw, totRaw string
	)
	err := r.q.QueryRow(ctx, `
		SELECT minter, label, max_xp_per_call::text, total_xp_minted::text, is_active, created_at
		FROM minter_roles
		WHERE minter = $1
	`, who).Scan(&role.Minter, &role.Label, &maxRaw, &totRaw, &role.IsActive, &role.CreatedAt)
	if IsNoRows(err) {
		return nil, shared.ErrMinterNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get minter role: %w", err)
	}
	if role.MaxXPPerCall, err = fixedpoint.ParseRaw(maxRaw); err != nil {
		return nil, fmt.Errorf("minter %s max_xp_per_call: %w", who, err)
	}
	if role.TotalXPMinted, err = fixedpoint.ParseRaw(totRaw); err != nil {
		return nil, fmt.Errorf("minter %s total_xp_minted: %w", who, err)
	}
	role.CreatedAt = role.CreatedAt.UTC()
	return &role, nil
}

func (r minterRepo) Update(ctx context.Context, role *minter.Role) error {
	tag, err := r.q.Exec(ctx, `
		UPDATE minter_roles SET
			label = $2,
			max_xp_per_call = $3::numeric,
			total_xp_minted = $4::numeric,
			is_active = $5
		WHERE minter = $1
	`, role.Minter, role.Label, role.MaxXPPerCall.RawString(), role.TotalXPMinted.RawString(), role.IsActive)
	if err != nil {
		return fmt.Errorf("failed to update minter role: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrMinterNotFound
	}
	return nil
}

func (r minterRepo) Delete(ctx context.Context, who shared.Address) error {
	tag, err := r.q.Exec(ctx, `DELETE FROM minter_roles WHERE minter = $1`, who)
	if err != nil {
		return fmt.Errorf("failed to delete minter role: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrMinterNotFound
	}
	return nil
}

// ══════════════════════════════════════════════════════════════════════════════
// ACHIEVEMENT REPOSITORY
// ══════════════════════════════════════════════════════════════════════════════

type achievementRepo struct{ q Querier }

func (r achievementRepo) CreateType(ctx context.Context, t *achievement.Type) error {
	_, err := r.q.Exec(ctx, `
		INSERT INTO achievement_types (
			achievement_id, name, metadata_uri, collection, max_supply,
			current_supply, xp_reward, is_active, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`, t.AchievementID, t.Name, t.MetadataURI, t.Collection, int64(t.MaxSupply),
		int64(t.CurrentSupply), int64(t.XPReward), t.IsActive, t.CreatedAt)
	if IsUniqueViolation(err) {
		return shared.ErrAchievementAlreadyExists
	}
	if err != nil {
		return fmt.Errorf("failed to create achievement type: %w", err)
	}
	return nil
}

func (r achievementRepo) GetType(ctx context.Context, id string) (*achievement.Type, error) {
	var (
		t                         achievement.Type
		maxSupply, supply, reward int64
	)
	err := r.q.QueryRow(ctx, `
		SELECT achievement_id, name, metadata_uri, collection, max_supply,
			   current_supply, xp_reward, is_active, created_at
		FROM achievement_types
		WHERE achievement_id = $1
	`, id).Scan(&t.AchievementID, &t.Name, &t.MetadataURI, &t.Collection, &maxSupply,
		&supply, &reward, &t.IsActive, &t.CreatedAt)
	if IsNoRows(err) {
		return nil, shared.ErrAchievementNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get achievement type: %w", err)
	}
	t.MaxSupply = uint32(maxSupply)
	t.CurrentSupply = uint32(supply)
	t.XPReward = uint32(reward)
	t.CreatedAt = t.CreatedAt.UTC()
	return &t, nil
}

func (r achievementRepo) UpdateType(ctx context.Context, t *achievement.Type) error {
	tag, err := r.q.Exec(ctx, `
		UPDATE achievement_types SET
			name = $2,
			metadata_uri = $3,
			current_supply = $4,
			is_active = $5
		WHERE achievement_id = $1
	`, t.AchievementID, t.Name, t.MetadataURI, int64(t.CurrentSupply), t.IsActive)
	if err != nil {
		return fmt.Errorf("failed to update achievement type: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrAchievementNotFound
	}
	return nil
}

func (r achievementRepo) CreateReceipt(ctx context.Context, rc *achievement.Receipt) error {
	_, err := r.q.Exec(ctx, `
		INSERT INTO achievement_receipts (achievement_id, recipient, asset, granted_by, awarded_at)
		VALUES ($1, $2, $3, $4, $5)
	`, rc.AchievementID, rc.Recipient, rc.Asset, rc.GrantedBy, rc.AwardedAt)
	switch {
	case IsUniqueViolation(err):
		return shared.ErrAchievementAlreadyAwarded
	case IsForeignKeyViolation(err):
		return shared.ErrAchievementNotFound
	case err != nil:
		return fmt.Errorf("failed to create receipt: %w", err)
	}
	return nil
}

func (r achievementRepo) GetReceipt(ctx context.Context, id string, recipient shared.Address) (*achievement.Receipt, error) {
	row := r.q.QueryRow(ctx, `
		SELECT achievement_id, recipient, asset, granted_by, awarded_at
		FROM achievement_receipts
		WHERE achievement_id = $1 AND recipient = $2
	`, id, recipient)
	rc, err := scanReceipt(row)
	if IsNoRows(err) {
		return nil, shared.ErrReceiptNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get receipt: %w", err)
	}
	return rc, nil
}

func (r achievementRepo) ListReceipts(ctx context.Context, recipient shared.Address) ([]*achievement.Receipt, error) {
	rows, err := r.q.Query(ctx, `
		SELECT achievement_id, recipient, asset, granted_by, awarded_at
		FROM achievement_receipts
		WHERE recipient = $1
		ORDER BY awarded_at, achievement_id
	`, recipient)
	if err != nil {
		return nil, fmt.Errorf("failed to list receipts: %w", err)
	}
	defer rows.Close()

	var out []*achievement.Receipt
	for rows.Next() {
		rc, err := scanReceipt(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan receipt: %w", err)
		}
		out = append(out, rc)
	}
	return out, rows.Err()
}

func scanReceipt(row pgx.Row) (*achievement.Receipt, error) {
	var rc achievement.Receipt
	if err := row.Scan(&rc.AchievementID, &rc.Recipient, &rc.Asset, &rc.GrantedBy, &rc.AwardedAt); err != nil {
		return nil, err
	}
	rc.AwardedAt = rc.AwardedAt.UTC()
	return &rc, nil
}

// ══════════════════════════════════════════════════════════════════════════════
// TOKEN LEDGER
// ══════════════════════════════════════════════════════════════════════════════

type balanceRepo struct{ q Querier }

func (r balanceRepo) Credit(ctx context.Context, ref token.AccountRef, amount uint64, at time.Time) (uint64, error) {
	current, err := r.Balance(ctx, ref)
	if err != nil {
		return 0, err
	}
	next, ok := shared.AddU64(current, amount)
	if !ok {
		return 0, token.OverflowError()
	}
	_, err = r.q.Exec(ctx, `
		INSERT INTO token_accounts (mint, owner, balance, updated_at)
		VALUES ($1, $2, $3::numeric, $4)
		ON CONFLICT (mint, owner) DO UPDATE SET
			balance = EXCLUDED.balance,
			updated_at = EXCLUDED.updated_at
	`, ref.Mint, ref.Owner, strconv.FormatUint(next, 10), at)
	if err != nil {
		return 0, fmt.Errorf("failed to credit account: %w", err)
	}
	return next, nil
}

func (r balanceRepo) Balance(ctx context.Context, ref token.AccountRef) (uint64, error) {
	var raw string
	err := r.q.QueryRow(ctx, `
		SELECT balance::text FROM token_accounts WHERE mint = $1 AND owner = $2
	`, ref.Mint, ref.Owner).Scan(&raw)
	if IsNoRows(err) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("failed to get balance: %w", err)
	}
	return parseBalance(raw)
}

func (r balanceRepo) Top(ctx context.Context, mint shared.Address, limit int) ([]token.Account, error) {
	query := `
		SELECT mint, owner, balance::text, updated_at
		FROM token_accounts
		WHERE mint = $1
		ORDER BY balance DESC, owner`
	args := []interface{}{mint}
	if limit > 0 {
		query += ` LIMIT $2`
		args = append(args, limit)
	}

	rows, err := r.q.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to rank accounts: %w", err)
	}
	defer rows.Close()

	var out []token.Account
	for rows.Next() {
		var (
			acc token.Account
			raw string
		)
		if err := rows.Scan(&acc.Mint, &acc.Owner, &raw, &acc.UpdatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan account: %w", err)
		}
		if acc.Balance, err = parseBalance(raw); err != nil {
			return nil, err
		}
		acc.UpdatedAt = acc.UpdatedAt.UTC()
		out = append(out, acc)
	}
	return out, rows.Err()
}

func parseBalance(raw string) (uint64, error) {
	v, err := strconv.ParseUint(raw, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid balance %q: %w", raw, err)
	}
	return v, nil
}

// ══════════════════════════════════════════════════════════════════════════════
// OUTBOX
// ══════════════════════════════════════════════════════════════════════════════

type outbox struct{ q Querier }

func (o outbox) Append(ctx context.Context, events ...shared.Event) error {
	for _, ev := range events {
		payload, err := json.Marshal(ev.Payload())
		if err != nil {
			return fmt.Errorf("failed to encode event %s: %w", ev.EventType(), err)
		}
		_, err = o.q.Exec(ctx, `
			INSERT INTO ledger_events (event_id, event_type, aggregate_id, payload, occurred_at)
			VALUES ($1, $2, $3, $4, $5)
		`, ev.EventID(), string(ev.EventType()), ev.AggregateID(), payload, ev.OccurredAt())
		if err != nil {
			return fmt.Errorf("failed to append event %s: %w", ev.EventType(), err)
		}
	}
	return nil
}

// OutboxRecord is one stored event.
type OutboxRecord struct {
	Seq         int64
	EventID     string
	EventType   shared.EventType
	AggregateID string
	Payload     map[string]interface{}
	OccurredAt  time.Time
}

// EventsAfter returns up to limit stored events with seq > after.
func (s *Store) EventsAfter(ctx context.Context, after int64, limit int) ([]OutboxRecord, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := s.conn.Query(ctx, `
		SELECT seq, event_id::text, event_type, aggregate_id, payload, occurred_at
		FROM ledger_events
		WHERE seq > $1
		ORDER BY seq
		LIMIT $2
	`, after, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to read outbox: %w", err)
	}
	defer rows.Close()

	var out []OutboxRecord
	for rows.Next() {
		var (
			rec     OutboxRecord
			evType  string
			payload []byte
		)
		if err := rows.Scan(&rec.Seq, &rec.EventID, &evType, &rec.AggregateID, &payload, &rec.OccurredAt); err != nil {
			return nil, fmt.Errorf("failed to scan event: %w", err)
		}
		rec.EventType = shared.EventType(evType)
		if err := json.Unmarshal(payload, &rec.Payload); err != nil {
			return nil, fmt.Errorf("failed to decode event %d: %w", rec.Seq, err)
		}
		rec.OccurredAt = rec.OccurredAt.UTC()
		out = append(out, rec)
	}
	return out, rows.Err()
}
