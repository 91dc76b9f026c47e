package memory

import (
	"context"
	"sort"
	"time"

	"github.com/alem-hub/academy-ledger/internal/domain/achievement"
	"github.com/alem-hub/academy-ledger/internal/domain/course"
	"github.com/alem-hub/academy-ledger/internal/domain/enrollment"
	"github.com/alem-hub/academy-ledger/internal/domain/governance"
	"github.com/alem-hub/academy-ledger/internal/domain/learner"
	"github.com/alem-hub/academy-ledger/internal/domain/minter"
	"github.com/alem-hub/academy-ledger/internal/domain/shared"
	"github.com/alem-hub/academy-ledger/internal/domain/token"
)

// ─────────────────────────────────────────────────────────────────────────────
// Config
// ─────────────────────────────────────────────────────────────────────────────

type configRepo struct{ t *tx }

func (r configRepo) Get(context.Context) (*governance.Config, error) {
	if r.t.state.config == nil {
		return nil, shared.ErrConfigNotInitialized
	}
	return r.t.state.config.Clone(), nil
}

func (r configRepo) Create(_ context.Context, cfg *governance.Config) error {
	if err := r.t.writable(); err != nil {
		return err
	}
	if r.t.state.config != nil {
		return shared.ErrConfigAlreadyInitialized
	}
	r.t.state.config = cfg.Clone()
	return nil
}

func (r configRepo) Update(_ context.Context, cfg *governance.Config) error {
	if err := r.t.writable(); err != nil {
		return err
	}
	if r.t.state.config == nil {
		return shared.ErrConfigNotInitialized
	}
	r.t.state.config = cfg.Clone()
	return nil
}

// ─────────────────────────────────────────────────────────────────────────────
// Courses
// ─────────────────────────────────────────────────────────────────────────────

type courseRepo struct{ t *tx }

func (r courseRepo) Create(_ context.Context, c *course.Course) error {
	if err := r.t.writable(); err != nil {
		return err
	}
	if _, ok := r.t.state.courses[c.CourseID]; ok {
		return shared.ErrCourseAlreadyExists.Withf("%q", c.CourseID)
	}
	r.t.state.courses[c.CourseID] = c.Clone()
	return nil
}

func (r courseRepo) Get(_ context.Context, courseID string) (*course.Course, error) {
	c, ok := r.t.state.courses[courseID]
	if !ok {
		return nil, shared.ErrCourseNotFound.Withf("%q", courseID)
	}
	return c.Clone(), nil
}

func (r courseRepo) Update(_ context.Context, c *course.Course) error {
	if err := r.t.writable(); err != nil {
		return err
	}
	if _, ok := r.t.state.courses[c.CourseID]; !ok {
		return shared.ErrCourseNotFound.Withf("%q", c.CourseID)
	}
	r.t.state.courses[c.CourseID] = c.Clone()
	return nil
}

func (r courseRepo) List(_ context.Context, opts course.ListOptions) ([]*course.Course, error) {
	var out []*course.Course
	for _, id := range sortedKeys(r.t.state.courses) {
		c := r.t.state.courses[id]
		if opts.ActiveOnly && !c.IsActive {
			continue
		}
		if opts.TrackID != nil && c.TrackID != *opts.TrackID {
			continue
		}
		out = append(out, c.Clone())
	}
	return paginate(out, opts.Pagination), nil
}

// ─────────────────────────────────────────────────────────────────────────────
// Enrollments
// ─────────────────────────────────────────────────────────────────────────────

type enrollmentRepo struct{ t *tx }

func (r enrollmentRepo) Create(_ context.Context, e *enrollment.Enrollment) error {
	if err := r.t.writable(); err != nil {
		return err
	}
	if _, ok := r.t.state.enrollments[e.Key()]; ok {
		return shared.ErrAlreadyEnrolled
	}
	r.t.state.enrollments[e.Key()] = e.Clone()
	return nil
}

func (r enrollmentRepo) Get(_ context.Context, courseID string, l shared.Address) (*enrollment.Enrollment, error) {
	e, ok := r.t.state.enrollments[enrollment.Key(courseID, l)]
	if !ok {
		return nil, shared.ErrEnrollmentNotFound.Withf("%s in %q", l, courseID)
	}
	return e.Clone(), nil
}

func (r enrollmentRepo) Update(_ context.Context, e *enrollment.Enrollment) error {
	if err := r.t.writable(); err != nil {
		return err
	}
	if _, ok := r.t.state.enrollments[e.Key()]; !ok {
		return shared.ErrEnrollmentNotFound
	}
	r.t.state.enrollments[e.Key()] = e.Clone()
	return nil
}

func (r enrollmentRepo) Delete(_ context.Context, courseID string, l shared.Address) error {
	if err := r.t.writable(); err != nil {
		return err
	}
	key := enrollment.Key(courseID, l)
	if _, ok := r.t.state.enrollments[key]; !ok {
		return shared.ErrEnrollmentNotFound
	}
	delete(r.t.state.enrollments, key)
	return nil
}

func (r enrollmentRepo) ListByLearner(_ context.Context, l shared.Address) ([]*enrollment.Enrollment, error) {
	var out []*enrollment.Enrollment
	for _, e := range r.t.state.enrollments {
		if e.Learner == l {
			out = append(out, e.Clone())
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CourseID < out[j].CourseID })
	return out, nil
}

// ─────────────────────────────────────────────────────────────────────────────
// Learners
// ─────────────────────────────────────────────────────────────────────────────

type learnerRepo struct{ t *tx }

func (r learnerRepo) Create(_ context.Context, p *learner.Profile) error {
	if err := r.t.writable(); err != nil {
		return err
	}
	if _, ok := r.t.state.learners[p.User]; ok {
		return shared.ErrLearnerAlreadyExists
	}
	r.t.state.learners[p.User] = p.Clone()
	return nil
}

func (r learnerRepo) Get(_ context.Context, user shared.Address) (*learner.Profile, error) {
	p, ok := r.t.state.learners[user]
	if !ok {
		return nil, shared.ErrLearnerNotFound.Withf("%s", user)
	}
	return p.Clone(), nil
}

func (r learnerRepo) Update(_ context.Context, p *learner.Profile) error {
	if err := r.t.writable(); err != nil {
		return err
	}
	if _, ok := r.t.state.learners[p.User]; !ok {
		return shared.ErrLearnerNotFound
	}
	r.t.state.learners[p.User] = p.Clone()
	return nil
}

// ─────────────────────────────────────────────────────────────────────────────
// Minters
// ─────────────────────────────────────────────────────────────────────────────

type minterRepo struct{ t *tx }

func (r minterRepo) Create(_ context.Context, m *minter.Role) error {
	if err := r.t.writable(); err != nil {
		return err
	}
	if _, ok := r.t.state.minters[m.Minter]; ok {
		return shared.ErrMinterAlreadyExists
	}
	r.t.state.minters[m.Minter] = m.Clone()
	return nil
}

func (r minterRepo) Get(_ context.Context, addr shared.Address) (*minter.Role, error) {
	m, ok := r.t.state.minters[addr]
	if !ok {
		return nil, shared.ErrMinterNotFound.Withf("%s", addr)
	}
	return m.Clone(), nil
}

func (r minterRepo) Update(_ context.Context, m *minter.Role) error {
	if err := r.t.writable(); err != nil {
		return err
	}
	if _, ok := r.t.state.minters[m.Minter]; !ok {
		return shared.ErrMinterNotFound
	}
	r.t.state.minters[m.Minter] = m.Clone()
	return nil
}

func (r minterRepo) Delete(_ context.Context, addr shared.Address) error {
	if err := r.t.writable(); err != nil {
		return err
	}
	if _, ok := r.t.state.minters[addr]; !ok {
		return shared.ErrMinterNotFound
	}
	delete(r.t.state.minters, addr)
	return nil
}

// ─────────────────────────────────────────────────────────────────────────────
// Achievements
// ─────────────────────────────────────────────────────────────────────────────

type achievementRepo struct{ t *tx }

func (r achievementRepo) CreateType(_ context.Context, a *achievement.Type) error {
	if err := r.t.writable(); err != nil {
		return err
	}
	if _, ok := r.t.state.types[a.AchievementID]; ok {
		return shared.ErrAchievementAlreadyExists
	}
	r.t.state.types[a.AchievementID] = a.Clone()
	return nil
}

func (r achievementRepo) GetType(_ context.Context, id string) (*achievement.Type, error) {
	a, ok := r.t.state.types[id]
	if !ok {
		return nil, shared.ErrAchievementNotFound.Withf("%q", id)
	}
	return a.Clone(), nil
}

func (r achievementRepo) UpdateType(_ context.Context, a *achievement.Type) error {
	if err := r.t.writable(); err != nil {
		return err
	}
	if _, ok := r.t.state.types[a.AchievementID]; !ok {
		return shared.ErrAchievementNotFound
	}
	r.t.state.types[a.AchievementID] = a.Clone()
	return nil
}

func (r achievementRepo) CreateReceipt(_ context.Context, rc *achievement.Receipt) error {
	if err := r.t.writable(); err != nil {
		return err
	}
	if _, ok := r.t.state.receipts[rc.Key()]; ok {
		return shared.ErrAchievementAlreadyAwarded
	}
	cp := *rc
	r.t.state.receipts[rc.Key()] = &cp
	return nil
}

func (r achievementRepo) GetReceipt(_ context.Context, id string, recipient shared.Address) (*achievement.Receipt, error) {
	rc, ok := r.t.state.receipts[achievement.ReceiptKey(id, recipient)]
	if !ok {
		return nil, shared.ErrReceiptNotFound
	}
	cp := *rc
	return &cp, nil
}

func (r achievementRepo) ListReceipts(_ context.Context, recipient shared.Address) ([]*achievement.Receipt, error) {
	var out []*achievement.Receipt
	for _, rc := range r.t.state.receipts {
		if rc.Recipient == recipient {
			cp := *rc
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].AwardedAt.Equal(out[j].AwardedAt) {
			return out[i].AchievementID < out[j].AchievementID
		}
		return out[i].AwardedAt.Before(out[j].AwardedAt)
	})
	return out, nil
}

// ─────────────────────────────────────────────────────────────────────────────
// Balances
// ─────────────────────────────────────────────────────────────────────────────

type balanceRepo struct{ t *tx }

func accountKey(ref token.AccountRef) string {
	return shared.DeriveKey("account", ref.Mint.String(), ref.Owner.String())
}

func (r balanceRepo) Credit(_ context.Context, ref token.AccountRef, amount uint64, at time.Time) (uint64, error) {
	if err := r.t.writable(); err != nil {
		return 0, err
	}
	key := accountKey(ref)
	acc := token.Account{Mint: ref.Mint, Owner: ref.Owner}
	if cur, ok := r.t.state.accounts[key]; ok {
		acc = *cur
	}
	bal, ok := shared.AddU64(acc.Balance, amount)
	if !ok {
		return 0, token.OverflowError()
	}
	acc.Balance = bal
	acc.UpdatedAt = at
	r.t.state.accounts[key] = &acc
	return bal, nil
}

func (r balanceRepo) Balance(_ context.Context, ref token.AccountRef) (uint64, error) {
	if acc, ok := r.t.state.accounts[accountKey(ref)]; ok {
		return acc.Balance, nil
	}
	return 0, nil
}

func (r balanceRepo) Top(_ context.Context, mint shared.Address, limit int) ([]token.Account, error) {
	var out []token.Account
	for _, acc := range r.t.state.accounts {
		if acc.Mint == mint {
			out = append(out, *acc)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Balance == out[j].Balance {
			return out[i].Owner < out[j].Owner
		}
		return out[i].Balance > out[j].Balance
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func paginate[T any](items []T, p shared.Pagination) []T {
	if p.Page == 0 && p.PageSize == 0 {
		return items
	}
	off := p.Offset()
	if off >= len(items) {
		return nil
	}
	end := off + p.Limit()
	if end > len(items) {
		end = len(items)
	}
	return items[off:end]
}
