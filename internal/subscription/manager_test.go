package subscription

import (
    "context"
    "sync"
    "testing"
    "time"

    "github.com/stretchr/testify/assert"
    "github.com/stretchr/testify/require"

    "github.com/homescope/viewing-api/internal/model"
    "github.com/homescope/viewing-api/internal/queue"
    "github.com/homescope/viewing-api/internal/repository"
)

// fakeSubStore mirrors the SQL repository in memory: one row per user
// and Mutate applying its closure under a lock.
type fakeSubStore struct {
    mu     sync.Mutex
    nextID uint64
    rows   map[uint64]*model.Subscription // by user ID
}

func newFakeSubStore() *fakeSubStore {
    return &fakeSubStore{rows: map[uint64]*model.Subscription{}}
}

func (f *fakeSubStore) Create(_ context.Context, s *model.Subscription) error {
    f.mu.Lock()
    defer f.mu.Unlock()
    if _, ok := f.rows[s.UserID]; ok {
        return repository.ErrAlreadyExists
    }
    f.nextID++
    s.ID = f.nextID
    s.CreatedAt = time.Now().UTC()
    s.UpdatedAt = s.CreatedAt
    cp := *s
    f.rows[s.UserID] = &cp
    return nil
}

func (f *fakeSubStore) GetByUserID(_ context.Context, userID uint64) (*model.Subscription, error) {
    f.mu.Lock()
    defer f.mu.Unlock()
    r, ok := f.rows[userID]
    if !ok {
        return nil, repository.ErrNotFound
    }
    cp := *r
    return &cp, nil
}

func (f *fakeSubStore) Mutate(_ context.Context, userID uint64, fn func(*model.Subscription) error) (*model.Subscription, error) {
    f.mu.Lock()
    defer f.mu.Unlock()
    r, ok := f.rows[userID]
    if !ok {
        return nil, repository.ErrNotFound
    }
    cp := *r
    if err := fn(&cp); err != nil {
        return nil, err
    }
    cp.UpdatedAt = time.Now().UTC()
    f.rows[userID] = &cp
    out := cp
    return &out, nil
}

func (f *fakeSubStore) ListExpired(_ context.Context, today time.Time) ([]model.Subscription, error) {
    f.mu.Lock()
    defer f.mu.Unlock()
    var out []model.Subscription
    for _, r := range f.rows {
        if r.Active && r.EndDate != nil && model.DateOnly(*r.EndDate).Before(model.DateOnly(today)) {
            out = append(out, *r)
        }
    }
    return out, nil
}

type fakeUsers struct {
    refs map[uint64]model.UserRef
}

func (f *fakeUsers) GetRef(_ context.Context, id uint64) (model.UserRef, error) {
    r, ok := f.refs[id]
    if !ok {
        return model.UserRef{}, repository.ErrNotFound
    }
    return r, nil
}

type recordingSink struct {
    mu     sync.Mutex
    events []queue.AuditEvent
}

func (r *recordingSink) Emit(_ context.Context, ev queue.AuditEvent) {
    r.mu.Lock()
    defer r.mu.Unlock()
    r.events = append(r.events, ev)
}

func (r *recordingSink) count(eventType string) int {
    r.mu.Lock()
    defer r.mu.Unlock()
    n := 0
    for _, ev := range r.events {
        if ev.Type == eventType {
            n++
        }
    }
    return n
}

const userID = 7

func newTestManager(t *testing.T) (*Manager, *fakeSubStore, *recordingSink) {
    t.Helper()
    store := newFakeSubStore()
    users := &fakeUsers{refs: map[uint64]model.UserRef{
        userID: {ID: userID, Role: model.RoleUser},
    }}
    sink := &recordingSink{}

    mgr := New(store, users, sink, model.DefaultPlanPolicy())
    mgr.Now = func() time.Time {
        return time.Date(2026, 9, 1, 10, 0, 0, 0, time.UTC)
    }
    return mgr, store, sink
}

func date(y int, m time.Month, d int) time.Time {
    return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func TestCreateDefaults(t *testing.T) {
    mgr, _, _ := newTestManager(t)
    ctx := context.Background()

    s, err := mgr.Create(ctx, userID, model.PlanBasic)
    require.NoError(t, err)

    assert.Equal(t, model.PlanBasic, s.PlanType)
    assert.Equal(t, date(2026, 9, 1), s.StartDate)
    require.NotNil(t, s.EndDate)
    assert.Equal(t, date(2026, 10, 1), *s.EndDate) // one-month term
    require.NotNil(t, s.PriceCents)
    assert.Equal(t, int64(999), *s.PriceCents)
    assert.True(t, s.Active)
    assert.False(t, s.AutoRenew)

    // One subscription per user.
    _, err = mgr.Create(ctx, userID, model.PlanPremium)
    assert.ErrorIs(t, err, repository.ErrAlreadyExists)
}

func TestCreateFreeHasNoEndDate(t *testing.T) {
    mgr, _, _ := newTestManager(t)

    s, err := mgr.Create(context.Background(), userID, model.PlanFree)
    require.NoError(t, err)
    assert.Nil(t, s.EndDate)
    require.NotNil(t, s.PriceCents)
    assert.Equal(t, int64(0), *s.PriceCents)
    assert.False(t, s.IsExpired(date(2100, 1, 1)))
}

func TestCreateEnterpriseYearTerm(t *testing.T) {
    mgr, _, _ := newTestManager(t)

    s, err := mgr.Create(context.Background(), userID, model.PlanEnterprise)
    require.NoError(t, err)
    require.NotNil(t, s.EndDate)
    assert.Equal(t, date(2027, 9, 1), *s.EndDate)
    assert.Equal(t, int64(4999), *s.PriceCents)
}

func TestCreateValidation(t *testing.T) {
    mgr, _, _ := newTestManager(t)
    ctx := context.Background()

    _, err := mgr.Create(ctx, userID, model.PlanType("PLATINUM"))
    assert.ErrorIs(t, err, repository.ErrInvalidPlan)

    _, err = mgr.Create(ctx, 999, model.PlanBasic)
    assert.ErrorIs(t, err, repository.ErrNotFound)
}

func TestUpgrade(t *testing.T) {
    mgr, _, _ := newTestManager(t)
    ctx := context.Background()

    _, err := mgr.Create(ctx, userID, model.PlanBasic)
    require.NoError(t, err)

    s, err := mgr.Upgrade(ctx, userID, model.PlanPremium)
    require.NoError(t, err)
    assert.Equal(t, model.PlanPremium, s.PlanType)
    assert.Equal(t, int64(1999), *s.PriceCents)
    require.NotNil(t, s.EndDate)
    assert.Equal(t, date(2026, 10, 1), *s.EndDate)

    // Same rank and lower rank are both downgrades.
    _, err = mgr.Upgrade(ctx, userID, model.PlanPremium)
    assert.ErrorIs(t, err, repository.ErrInvalidDowngrade)
    _, err = mgr.Upgrade(ctx, userID, model.PlanFree)
    assert.ErrorIs(t, err, repository.ErrInvalidDowngrade)

    _, err = mgr.Upgrade(ctx, userID, model.PlanType("PLATINUM"))
    assert.ErrorIs(t, err, repository.ErrInvalidPlan)

    _, err = mgr.Upgrade(ctx, 999, model.PlanPremium)
    assert.ErrorIs(t, err, repository.ErrNotFound)
}

func TestCancelAndRenew(t *testing.T) {
    mgr, _, _ := newTestManager(t)
    ctx := context.Background()

    _, err := mgr.Create(ctx, userID, model.PlanBasic)
    require.NoError(t, err)
    _, err = mgr.ToggleAutoRenew(ctx, userID)
    require.NoError(t, err)

    s, err := mgr.Cancel(ctx, userID)
    require.NoError(t, err)
    assert.False(t, s.Active)
    assert.False(t, s.AutoRenew) // cancel always disarms auto-renew
    assert.Equal(t, model.PlanBasic, s.PlanType)

    // Renew restarts the term from today and reactivates.
    mgr.Now = func() time.Time { return date(2026, 11, 20) }
    s, err = mgr.Renew(ctx, userID)
    require.NoError(t, err)
    assert.True(t, s.Active)
    assert.Equal(t, date(2026, 11, 20), s.StartDate)
    require.NotNil(t, s.EndDate)
    assert.Equal(t, date(2026, 12, 20), *s.EndDate)
}

func TestToggleAutoRenew(t *testing.T) {
    mgr, _, _ := newTestManager(t)
    ctx := context.Background()

    _, err := mgr.Create(ctx, userID, model.PlanBasic)
    require.NoError(t, err)

    s, err := mgr.ToggleAutoRenew(ctx, userID)
    require.NoError(t, err)
    assert.True(t, s.AutoRenew)

    s, err = mgr.ToggleAutoRenew(ctx, userID)
    require.NoError(t, err)
    assert.False(t, s.AutoRenew)

    _, err = mgr.ToggleAutoRenew(ctx, 999)
    assert.ErrorIs(t, err, repository.ErrNotFound)
}

func TestHasAtLeast(t *testing.T) {
    mgr, _, _ := newTestManager(t)
    ctx := context.Background()

    // No subscription: denied, but not an error.
    ok, err := mgr.HasAtLeast(ctx, userID, model.PlanBasic)
    require.NoError(t, err)
    assert.False(t, ok)

    _, err = mgr.Create(ctx, userID, model.PlanPremium)
    require.NoError(t, err)

    // Monotone in plan rank.
    for plan, want := range map[model.PlanType]bool{
        model.PlanFree:       true,
        model.PlanBasic:      true,
        model.PlanPremium:    true,
        model.PlanEnterprise: false,
    } {
        ok, err = mgr.HasAtLeast(ctx, userID, plan)
        require.NoError(t, err)
        assert.Equal(t, want, ok, "plan %s", plan)
    }

    _, err = mgr.HasAtLeast(ctx, userID, model.PlanType("PLATINUM"))
    assert.ErrorIs(t, err, repository.ErrInvalidPlan)

    // Expired by clock: denied even though the row still says active.
    mgr.Now = func() time.Time { return date(2026, 10, 2) }
    ok, err = mgr.HasAtLeast(ctx, userID, model.PlanBasic)
    require.NoError(t, err)
    assert.False(t, ok)

    // Cancelled: denied.
    mgr.Now = func() time.Time { return date(2026, 9, 1) }
    _, err = mgr.Cancel(ctx, userID)
    require.NoError(t, err)
    ok, err = mgr.HasAtLeast(ctx, userID, model.PlanBasic)
    require.NoError(t, err)
    assert.False(t, ok)
}

func TestSweepExpired(t *testing.T) {
    mgr, store, sink := newTestManager(t)
    ctx := context.Background()

    // User 7 lets the plan lapse; user 8 has auto-renew armed.
    const renewerID = 8
    users := mgr.users.(*fakeUsers)
    users.refs[renewerID] = model.UserRef{ID: renewerID, Role: model.RoleUser}

    _, err := mgr.Create(ctx, userID, model.PlanBasic)
    require.NoError(t, err)
    _, err = mgr.Create(ctx, renewerID, model.PlanBasic)
    require.NoError(t, err)
    _, err = mgr.ToggleAutoRenew(ctx, renewerID)
    require.NoError(t, err)

    // Before the end date nothing is expired.
    n, err := mgr.SweepExpired(ctx, date(2026, 10, 1))
    require.NoError(t, err)
    assert.Equal(t, 0, n)

    mgr.Now = func() time.Time { return date(2026, 10, 2) }
    n, err = mgr.SweepExpired(ctx, date(2026, 10, 2))
    require.NoError(t, err)
    assert.Equal(t, 2, n)

    lapsed, err := store.GetByUserID(ctx, userID)
    require.NoError(t, err)
    assert.False(t, lapsed.Active)
    assert.Equal(t, date(2026, 10, 1), *lapsed.EndDate) // kept for reporting

    renewed, err := store.GetByUserID(ctx, renewerID)
    require.NoError(t, err)
    assert.True(t, renewed.Active)
    assert.Equal(t, date(2026, 10, 2), renewed.StartDate)
    assert.Equal(t, date(2026, 11, 2), *renewed.EndDate)
    assert.True(t, renewed.AutoRenew)

    // Only the deactivation emits an expiry event.
    assert.Equal(t, 1, sink.count(queue.EventSubscriptionExpired))

    // The sweep is idempotent: a second run finds nothing to do.
    n, err = mgr.SweepExpired(ctx, date(2026, 10, 2))
    require.NoError(t, err)
    assert.Equal(t, 0, n)
    assert.Equal(t, 1, sink.count(queue.EventSubscriptionExpired))
}
