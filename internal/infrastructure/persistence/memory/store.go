// Package memory is an in-process implementation of the ledger store.
// Transactions are serialized behind one lock and work on a private copy of
// the state that replaces the live state only on commit.
package memory

import (
	"context"
	"errors"
	"sort"
	"sync"

	"github.com/alem-hub/academy-ledger/internal/domain/achievement"
	"github.com/alem-hub/academy-ledger/internal/domain/course"
	"github.com/alem-hub/academy-ledger/internal/domain/enrollment"
	"github.com/alem-hub/academy-ledger/internal/domain/governance"
	"github.com/alem-hub/academy-ledger/internal/domain/learner"
	"github.com/alem-hub/academy-ledger/internal/domain/minter"
	"github.com/alem-hub/academy-ledger/internal/domain/shared"
	"github.com/alem-hub/academy-ledger/internal/domain/store"
	"github.com/alem-hub/academy-ledger/internal/domain/token"
)

// ErrReadOnly is returned by writes inside View.
var ErrReadOnly = errors.New("memory: write in read-only transaction")

type state struct {
	config      *governance.Config
	courses     map[string]*course.Course
	enrollments map[string]*enrollment.Enrollment
	learners    map[shared.Address]*learner.Profile
	minters     map[shared.Address]*minter.Role
	types       map[string]*achievement.Type
	receipts    map[string]*achievement.Receipt
	accounts    map[string]*token.Account
}

func newState() *state {
	return &state{
		courses:     make(map[string]*course.Course),
		enrollments: make(map[string]*enrollment.Enrollment),
		learners:    make(map[shared.Address]*learner.Profile),
		minters:     make(map[shared.Address]*minter.Role),
		types:       make(map[string]*achievement.Type),
		receipts:    make(map[string]*achievement.Receipt),
		accounts:    make(map[string]*token.Account),
	}
}

// clone copies the maps. Values are replaced, never mutated in place, so
// sharing the pointers between snapshots is safe.
func (s *state) clone() *state {
	cp := newState()
	cp.config = s.config
	for k, v := range s.courses {
		cp.courses[k] = v
	}
	for k, v := range s.enrollments {
		cp.enrollments[k] = v
	}
	for k, v := range s.learners {
		cp.learners[k] = v
	}
	for k, v := range s.minters {
		cp.minters[k] = v
	}
	for k, v := range s.types {
		cp.types[k] = v
	}
	for k, v := range s.receipts {
		cp.receipts[k] = v
	}
	for k, v := range s.accounts {
		cp.accounts[k] = v
	}
	return cp
}

// Store implements store.UnitOfWork.
type Store struct {
	mu     sync.RWMutex
	state  *state
	events []shared.Event
}

var _ store.UnitOfWork = (*Store)(nil)

// New creates an empty store.
func New() *Store {
	return &Store{state: newState()}
}

// Do implements store.UnitOfWork.
func (s *Store) Do(ctx context.Context, fn func(ctx context.Context, tx store.Tx) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	t := &tx{state: s.state.clone()}
	if err := fn(ctx, t); err != nil {
		return err
	}
	s.state = t.state
	s.events = append(s.events, t.pending...)
	return nil
}

// View implements store.UnitOfWork.
func (s *Store) View(ctx context.Context, fn func(ctx context.Context, tx store.Tx) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	return fn(ctx, &tx{state: s.state, readOnly: true})
}

// Events returns every committed event in commit order.
func (s *Store) Events() []shared.Event {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]shared.Event, len(s.events))
	copy(out, s.events)
	return out
}

type tx struct {
	state    *state
	pending  []shared.Event
	readOnly bool
}

func (t *tx) Config() governance.Repository        { return configRepo{t} }
func (t *tx) Courses() course.Repository           { return courseRepo{t} }
func (t *tx) Enrollments() enrollment.Repository   { return enrollmentRepo{t} }
func (t *tx) Learners() learner.Repository         { return learnerRepo{t} }
func (t *tx) Minters() minter.Repository           { return minterRepo{t} }
func (t *tx) Achievements() achievement.Repository { return achievementRepo{t} }
func (t *tx) Balances() token.Ledger               { return balanceRepo{t} }
func (t *tx) Outbox() store.Outbox                 { return outbox{t} }

func (t *tx) writable() error {
	if t.readOnly {
		return ErrReadOnly
	}
	return nil
}

type outbox struct{ t *tx }

func (o outbox) Append(_ context.Context, events ...shared.Event) error {
	if err := o.t.writable(); err != nil {
		return err
	}
	o.t.pending = append(o.t.pending, events...)
	return nil
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
