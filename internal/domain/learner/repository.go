package learner

import (
	"context"

	"github.com/alem-hub/academy-ledger/internal/domain/shared"
)

// Repository хранит профили учащихся.
type Repository interface {
	// Create возвращает ErrLearnerAlreadyExists, если профиль уже есть.
	Create(ctx context.Context, p *Profile) error

	// Get возвращает ErrLearnerNotFound, если профиля нет.
	Get(ctx context.Context, user shared.Address) (*Profile, error)

	// Update возвращает ErrLearnerNotFound, если профиля нет.
	Update(ctx context.Context, p *Profile) error
}
