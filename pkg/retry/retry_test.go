package retry

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

var errConflict = errors.New("conflict")

func fast() []Option {
	return []Option{WithInitialDelay(time.Millisecond), WithMaxDelay(time.Millisecond)}
}

func TestDoRetriesRetryableErrors(t *testing.T) {
	calls := 0
	err := Do(context.Background(), func(ctx context.Context) error {
		calls++
		if calls < 3 {
			return Retryable(errConflict)
		}
		return nil
	}, fast()...)

	assert.NoError(t, err)
	assert.Equal(t, 3, calls)
}

func TestDoStopsOnPlainError(t *testing.T) {
	calls := 0
	err := Do(context.Background(), func(ctx context.Context) error {
		calls++
		return errConflict
	}, fast()...)

	assert.ErrorIs(t, err, errConflict)
	assert.Equal(t, 1, calls)
}

func TestDoReturnsUnwrappedErrorAfterLastAttempt(t *testing.T) {
	calls := 0
	err := Do(context.Background(), func(ctx context.Context) error {
		calls++
		return Retryable(errConflict)
	}, append(fast(), WithMaxAttempts(2))...)

	assert.Equal(t, errConflict, err)
	assert.Equal(t, 2, calls)
}

func TestRetryIfPredicate(t *testing.T) {
	calls := 0
	var retried []int
	r := TransactionRetrier(
		func(err error) bool { return errors.Is(err, errConflict) },
		func(attempt int, err error, d time.Duration) { retried = append(retried, attempt) },
	)
	err := r.Do(context.Background(), func(ctx context.Context) error {
		calls++
		if calls == 1 {
			return errConflict
		}
		return nil
	})

	assert.NoError(t, err)
	assert.Equal(t, []int{1}, retried)
}
