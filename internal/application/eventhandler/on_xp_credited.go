// Package eventhandler содержит обработчики событий ledger-а.
// Они запускаются после коммита и поддерживают производные данные
// (кеш рейтинга, кеш каталога) в актуальном состоянии.
// Ошибка обработчика никогда не откатывает уже принятый переход.
package eventhandler

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/alem-hub/academy-ledger/internal/domain/shared"
	"github.com/alem-hub/academy-ledger/internal/domain/token"
	"github.com/alem-hub/academy-ledger/pkg/logger"
)

// ═══════════════════════════════════════════════════════════════════════════
// ON XP CREDITED HANDLER
// Переносит новый баланс XP в кеш рейтинга.
// ═══════════════════════════════════════════════════════════════════════════

// MintSource сообщает XP mint, по которому строится рейтинг.
// Пустой адрес значит, что ledger ещё не инициализирован.
type MintSource interface {
	XPMint() shared.Address
}

// FixedMint - MintSource с заранее известным mint-ом.
type FixedMint shared.Address

// XPMint реализует MintSource.
func (m FixedMint) XPMint() shared.Address { return shared.Address(m) }

// OnXPCreditedHandler обновляет позицию владельца в кеше рейтинга.
type OnXPCreditedHandler struct {
	ranking token.RankingCache
	mint    MintSource
	timeout time.Duration
	logger  *slog.Logger
}

// NewOnXPCreditedHandler создаёт обработчик. Кредиты других mint-ов
// игнорируются: рейтинг строится только по XP mint-у.
func NewOnXPCreditedHandler(ranking token.RankingCache, mint MintSource, timeout time.Duration, log *slog.Logger) *OnXPCreditedHandler {
	if log == nil {
		log = slog.Default()
	}
	if timeout <= 0 {
		timeout = 2 * time.Second
	}
	return &OnXPCreditedHandler{
		ranking: ranking,
		mint:    mint,
		timeout: timeout,
		logger:  log.With("handler", "on_xp_credited"),
	}
}

// Handle реализует shared.EventHandler.
func (h *OnXPCreditedHandler) Handle(event shared.Event) error {
	credited, ok := event.(shared.XPCreditedEvent)
	if !ok {
		h.logger.Warn("received non-XPCreditedEvent", "event_type", event.EventType())
		return nil
	}
	if mint := h.mint.XPMint(); mint.IsZero() || credited.Mint != mint {
		return nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), h.timeout)
	defer cancel()

	// ZADD GT: запоздавшее событие с меньшим балансом ничего не перезапишет.
	if err := h.ranking.Set(ctx, credited.Owner, credited.NewBalance); err != nil {
		return fmt.Errorf("update ranking for %s: %w", credited.Owner, err)
	}

	h.logger.Debug("ranking updated",
		logger.Learner(string(credited.Owner)),
		"balance", credited.NewBalance,
	)
	return nil
}
