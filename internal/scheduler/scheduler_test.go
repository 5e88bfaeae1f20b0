package scheduler

import (
    "context"
    "fmt"
    "sync"
    "testing"
    "time"

    "github.com/stretchr/testify/assert"
    "github.com/stretchr/testify/require"

    "github.com/homescope/viewing-api/internal/model"
    "github.com/homescope/viewing-api/internal/queue"
    "github.com/homescope/viewing-api/internal/repository"
)

// fakeViewingStore mirrors the SQL repository's semantics in memory: the
// day-slot conflict check inside Create and the compare-and-set inside
// UpdateStatus both run under one lock.
type fakeViewingStore struct {
    mu     sync.Mutex
    nextID uint64
    rows   map[uint64]*model.Viewing
    owners map[uint64]uint64 // propertyID -> ownerID, for ListByOwner
}

func newFakeViewingStore() *fakeViewingStore {
    return &fakeViewingStore{rows: map[uint64]*model.Viewing{}, owners: map[uint64]uint64{}}
}

func (f *fakeViewingStore) Create(_ context.Context, v *model.Viewing) error {
    f.mu.Lock()
    defer f.mu.Unlock()
    for _, r := range f.rows {
        if r.PropertyID == v.PropertyID && r.ViewingDate.Equal(v.ViewingDate) &&
            (r.Status == model.ViewingPending || r.Status == model.ViewingConfirmed) {
            return repository.ErrConflictingViewing
        }
    }
    f.nextID++
    v.ID = f.nextID
    v.CreatedAt = time.Now().UTC()
    cp := *v
    f.rows[v.ID] = &cp
    return nil
}

func (f *fakeViewingStore) GetByID(_ context.Context, id uint64) (*model.Viewing, error) {
    f.mu.Lock()
    defer f.mu.Unlock()
    r, ok := f.rows[id]
    if !ok {
        return nil, repository.ErrNotFound
    }
    cp := *r
    return &cp, nil
}

func (f *fakeViewingStore) UpdateStatus(_ context.Context, id uint64, from, to model.ViewingStatus, reason *string, at time.Time) (*model.Viewing, error) {
    f.mu.Lock()
    defer f.mu.Unlock()
    r, ok := f.rows[id]
    if !ok {
        return nil, repository.ErrNotFound
    }
    if r.Status != from {
        return nil, fmt.Errorf("%s -> %s: %w", r.Status, to, repository.ErrInvalidTransition)
    }
    r.Status = to
    r.RejectionReason = reason
    stamp := at
    switch to {
    case model.ViewingConfirmed:
        r.ConfirmedAt = &stamp
    case model.ViewingRejected:
        r.RejectedAt = &stamp
    case model.ViewingCompleted:
        r.CompletedAt = &stamp
    case model.ViewingCancelled:
        r.CancelledAt = &stamp
    }
    cp := *r
    return &cp, nil
}

func (f *fakeViewingStore) list(filter func(*model.Viewing) bool) []model.Viewing {
    f.mu.Lock()
    defer f.mu.Unlock()
    var out []model.Viewing
    for _, r := range f.rows {
        if filter(r) {
            out = append(out, *r)
        }
    }
    return out
}

func matches(r *model.Viewing, status *model.ViewingStatus) bool {
    return status == nil || r.Status == *status
}

func (f *fakeViewingStore) ListByUser(_ context.Context, userID uint64, status *model.ViewingStatus) ([]model.Viewing, error) {
    return f.list(func(r *model.Viewing) bool { return r.UserID == userID && matches(r, status) }), nil
}

func (f *fakeViewingStore) ListByProperty(_ context.Context, propertyID uint64, status *model.ViewingStatus) ([]model.Viewing, error) {
    return f.list(func(r *model.Viewing) bool { return r.PropertyID == propertyID && matches(r, status) }), nil
}

func (f *fakeViewingStore) ListByOwner(_ context.Context, ownerID uint64, status *model.ViewingStatus) ([]model.Viewing, error) {
    return f.list(func(r *model.Viewing) bool { return f.owners[r.PropertyID] == ownerID && matches(r, status) }), nil
}

func (f *fakeViewingStore) ListInDateRange(_ context.Context, start, end time.Time) ([]model.Viewing, error) {
    return f.list(func(r *model.Viewing) bool {
        return !r.ViewingDate.Before(start) && !r.ViewingDate.After(end)
    }), nil
}

func (f *fakeViewingStore) ListConfirmedBefore(_ context.Context, before time.Time) ([]model.Viewing, error) {
    return f.list(func(r *model.Viewing) bool {
        return r.Status == model.ViewingConfirmed && r.ViewingDate.Before(before)
    }), nil
}

func (f *fakeViewingStore) CountConfirmed(_ context.Context, propertyID uint64) (int64, error) {
    return int64(len(f.list(func(r *model.Viewing) bool {
        return r.PropertyID == propertyID && r.Status == model.ViewingConfirmed
    }))), nil
}

func (f *fakeViewingStore) Delete(_ context.Context, id uint64) error {
    f.mu.Lock()
    defer f.mu.Unlock()
    if _, ok := f.rows[id]; !ok {
        return repository.ErrNotFound
    }
    delete(f.rows, id)
    return nil
}

type fakeProps struct {
    refs map[uint64]model.PropertyRef
}

func (f *fakeProps) GetRef(_ context.Context, id uint64) (model.PropertyRef, error) {
    r, ok := f.refs[id]
    if !ok {
        return model.PropertyRef{}, repository.ErrNotFound
    }
    return r, nil
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

func (r *recordingSink) types() []string {
    r.mu.Lock()
    defer r.mu.Unlock()
    var out []string
    for _, ev := range r.events {
        out = append(out, ev.Type)
    }
    return out
}

// Fixture IDs. User 1 requests viewings, user 2 owns properties 10 and
// 11, user 3 is an admin, user 4 is an unrelated agent.
const (
    requesterID = 1
    agentID     = 2
    adminID     = 3
    otherAgent  = 4

    propID      = 10
    otherPropID = 11
    offMarketID = 12
)

func newTestService(t *testing.T) (*Service, *fakeViewingStore, *recordingSink) {
    t.Helper()
    store := newFakeViewingStore()
    store.owners[propID] = agentID
    store.owners[otherPropID] = agentID

    props := &fakeProps{refs: map[uint64]model.PropertyRef{
        propID:      {ID: propID, OwnerID: agentID, Available: true},
        otherPropID: {ID: otherPropID, OwnerID: agentID, Available: true},
        offMarketID: {ID: offMarketID, OwnerID: agentID, Available: false},
    }}
    users := &fakeUsers{refs: map[uint64]model.UserRef{
        requesterID: {ID: requesterID, Role: model.RoleUser},
        agentID:     {ID: agentID, Role: model.RoleAgent},
        adminID:     {ID: adminID, Role: model.RoleAdmin},
        otherAgent:  {ID: otherAgent, Role: model.RoleAgent},
    }}
    sink := &recordingSink{}

    svc := New(store, props, users, sink)
    svc.Now = func() time.Time {
        return time.Date(2026, 9, 1, 10, 0, 0, 0, time.UTC)
    }
    return svc, store, sink
}

func futureDate() time.Time {
    return time.Date(2026, 9, 10, 0, 0, 0, 0, time.UTC)
}

func TestScheduleCreatesPending(t *testing.T) {
    svc, _, _ := newTestService(t)
    notes := "second floor please"

    v, err := svc.Schedule(context.Background(), requesterID, propID, futureDate(), "14:30", &notes, nil)
    require.NoError(t, err)

    assert.Equal(t, model.ViewingPending, v.Status)
    assert.Equal(t, uint64(requesterID), v.UserID)
    assert.Equal(t, uint64(propID), v.PropertyID)
    assert.Equal(t, "14:30", v.ViewingTime)
    assert.Equal(t, time.Date(2026, 9, 10, 0, 0, 0, 0, time.UTC), v.ViewingDate)
    require.NotNil(t, v.Notes)
    assert.Equal(t, notes, *v.Notes)
    assert.NotZero(t, v.ID)
}

func TestScheduleDayConflict(t *testing.T) {
    svc, _, _ := newTestService(t)
    ctx := context.Background()

    _, err := svc.Schedule(ctx, requesterID, propID, futureDate(), "09:00", nil, nil)
    require.NoError(t, err)

    // Same property, same day, different time still conflicts.
    _, err = svc.Schedule(ctx, requesterID, propID, futureDate(), "16:00", nil, nil)
    assert.ErrorIs(t, err, repository.ErrConflictingViewing)

    // Another day or another property is fine.
    _, err = svc.Schedule(ctx, requesterID, propID, futureDate().AddDate(0, 0, 1), "09:00", nil, nil)
    assert.NoError(t, err)
    _, err = svc.Schedule(ctx, requesterID, otherPropID, futureDate(), "09:00", nil, nil)
    assert.NoError(t, err)
}

func TestScheduleRejectedViewingFreesSlot(t *testing.T) {
    svc, _, _ := newTestService(t)
    ctx := context.Background()

    v, err := svc.Schedule(ctx, requesterID, propID, futureDate(), "09:00", nil, nil)
    require.NoError(t, err)

    reason := "not available that day"
    _, err = svc.Transition(ctx, v.ID, agentID, model.ViewingRejected, &reason)
    require.NoError(t, err)

    _, err = svc.Schedule(ctx, requesterID, propID, futureDate(), "10:00", nil, nil)
    assert.NoError(t, err)
}

func TestScheduleValidation(t *testing.T) {
    svc, _, _ := newTestService(t)
    ctx := context.Background()

    // Past date.
    past := time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC)
    _, err := svc.Schedule(ctx, requesterID, propID, past, "09:00", nil, nil)
    assert.ErrorIs(t, err, repository.ErrInvalidSchedule)

    // Same day but earlier than the current clock (10:00).
    today := time.Date(2026, 9, 1, 0, 0, 0, 0, time.UTC)
    _, err = svc.Schedule(ctx, requesterID, propID, today, "09:00", nil, nil)
    assert.ErrorIs(t, err, repository.ErrInvalidSchedule)

    // Same day, later, is allowed.
    _, err = svc.Schedule(ctx, requesterID, propID, today, "17:00", nil, nil)
    assert.NoError(t, err)

    // Malformed time of day.
    _, err = svc.Schedule(ctx, requesterID, propID, futureDate(), "25:99", nil, nil)
    assert.ErrorIs(t, err, repository.ErrInvalidSchedule)

    // Unknown property and unknown user.
    _, err = svc.Schedule(ctx, requesterID, 999, futureDate(), "09:00", nil, nil)
    assert.ErrorIs(t, err, repository.ErrNotFound)
    _, err = svc.Schedule(ctx, 999, propID, futureDate(), "09:00", nil, nil)
    assert.ErrorIs(t, err, repository.ErrNotFound)

    // Off-market property.
    _, err = svc.Schedule(ctx, requesterID, offMarketID, futureDate(), "09:00", nil, nil)
    assert.ErrorIs(t, err, repository.ErrInvalidSchedule)
}

func TestScheduleTimezone(t *testing.T) {
    svc, _, _ := newTestService(t)
    loc, err := time.LoadLocation("America/New_York")
    require.NoError(t, err)

    // 07:00 New York on the clock date is 11:00 UTC, still in the
    // future relative to the 10:00 UTC test clock.
    today := time.Date(2026, 9, 1, 0, 0, 0, 0, time.UTC)
    _, err = svc.Schedule(context.Background(), requesterID, propID, today, "07:00", nil, loc)
    assert.NoError(t, err)
}

func TestTransitionLifecycle(t *testing.T) {
    svc, _, sink := newTestService(t)
    ctx := context.Background()

    v, err := svc.Schedule(ctx, requesterID, propID, futureDate(), "14:00", nil, nil)
    require.NoError(t, err)

    confirmed, err := svc.Transition(ctx, v.ID, agentID, model.ViewingConfirmed, nil)
    require.NoError(t, err)
    assert.Equal(t, model.ViewingConfirmed, confirmed.Status)
    require.NotNil(t, confirmed.ConfirmedAt)

    completed, err := svc.Transition(ctx, v.ID, agentID, model.ViewingCompleted, nil)
    require.NoError(t, err)
    assert.Equal(t, model.ViewingCompleted, completed.Status)
    require.NotNil(t, completed.CompletedAt)
    assert.NotNil(t, completed.ConfirmedAt)

    assert.Equal(t, []string{queue.EventViewingConfirmed, queue.EventViewingCompleted}, sink.types())
}

func TestTransitionAuthorization(t *testing.T) {
    svc, _, _ := newTestService(t)
    ctx := context.Background()

    v, err := svc.Schedule(ctx, requesterID, propID, futureDate(), "14:00", nil, nil)
    require.NoError(t, err)

    // Only the listing's own agent may confirm.
    _, err = svc.Transition(ctx, v.ID, otherAgent, model.ViewingConfirmed, nil)
    assert.ErrorIs(t, err, repository.ErrForbidden)
    _, err = svc.Transition(ctx, v.ID, requesterID, model.ViewingConfirmed, nil)
    assert.ErrorIs(t, err, repository.ErrForbidden)

    // Only the requester or an admin may cancel.
    _, err = svc.Transition(ctx, v.ID, agentID, model.ViewingCancelled, nil)
    assert.ErrorIs(t, err, repository.ErrForbidden)
    _, err = svc.Transition(ctx, v.ID, adminID, model.ViewingCancelled, nil)
    assert.NoError(t, err)
}

func TestTransitionInvalidEdges(t *testing.T) {
    svc, _, _ := newTestService(t)
    ctx := context.Background()

    v, err := svc.Schedule(ctx, requesterID, propID, futureDate(), "14:00", nil, nil)
    require.NoError(t, err)

    // Pending cannot complete directly.
    _, err = svc.Transition(ctx, v.ID, agentID, model.ViewingCompleted, nil)
    assert.ErrorIs(t, err, repository.ErrInvalidTransition)

    // Terminal states accept nothing.
    reason := "owner unavailable"
    _, err = svc.Transition(ctx, v.ID, agentID, model.ViewingRejected, &reason)
    require.NoError(t, err)
    _, err = svc.Transition(ctx, v.ID, agentID, model.ViewingConfirmed, nil)
    assert.ErrorIs(t, err, repository.ErrInvalidTransition)
    _, err = svc.Transition(ctx, v.ID, requesterID, model.ViewingCancelled, nil)
    assert.ErrorIs(t, err, repository.ErrInvalidTransition)
}

func TestRejectRequiresReason(t *testing.T) {
    svc, _, _ := newTestService(t)
    ctx := context.Background()

    v, err := svc.Schedule(ctx, requesterID, propID, futureDate(), "14:00", nil, nil)
    require.NoError(t, err)

    _, err = svc.Transition(ctx, v.ID, agentID, model.ViewingRejected, nil)
    assert.ErrorIs(t, err, repository.ErrInvalidTransition)

    blank := "   "
    _, err = svc.Transition(ctx, v.ID, agentID, model.ViewingRejected, &blank)
    assert.ErrorIs(t, err, repository.ErrInvalidTransition)

    reason := "double booked"
    rejected, err := svc.Transition(ctx, v.ID, agentID, model.ViewingRejected, &reason)
    require.NoError(t, err)
    require.NotNil(t, rejected.RejectionReason)
    assert.Equal(t, reason, *rejected.RejectionReason)
}

func TestConcurrentScheduleSingleWinner(t *testing.T) {
    svc, _, _ := newTestService(t)
    ctx := context.Background()

    const attempts = 16
    var wg sync.WaitGroup
    errs := make([]error, attempts)
    for i := 0; i < attempts; i++ {
        wg.Add(1)
        go func(i int) {
            defer wg.Done()
            _, errs[i] = svc.Schedule(ctx, requesterID, propID, futureDate(), "14:00", nil, nil)
        }(i)
    }
    wg.Wait()

    won := 0
    for _, err := range errs {
        if err == nil {
            won++
        } else {
            assert.ErrorIs(t, err, repository.ErrConflictingViewing)
        }
    }
    assert.Equal(t, 1, won)
}

func TestGetVisibility(t *testing.T) {
    svc, _, _ := newTestService(t)
    ctx := context.Background()

    v, err := svc.Schedule(ctx, requesterID, propID, futureDate(), "14:00", nil, nil)
    require.NoError(t, err)

    for _, actor := range []uint64{requesterID, agentID, adminID} {
        got, err := svc.Get(ctx, v.ID, actor)
        require.NoError(t, err)
        assert.Equal(t, v.ID, got.ID)
    }

    _, err = svc.Get(ctx, v.ID, otherAgent)
    assert.ErrorIs(t, err, repository.ErrForbidden)

    _, err = svc.Get(ctx, 999, requesterID)
    assert.ErrorIs(t, err, repository.ErrNotFound)
}

func TestListFilters(t *testing.T) {
    svc, _, _ := newTestService(t)
    ctx := context.Background()

    a, err := svc.Schedule(ctx, requesterID, propID, futureDate(), "09:00", nil, nil)
    require.NoError(t, err)
    _, err = svc.Schedule(ctx, requesterID, otherPropID, futureDate(), "09:00", nil, nil)
    require.NoError(t, err)
    _, err = svc.Transition(ctx, a.ID, agentID, model.ViewingConfirmed, nil)
    require.NoError(t, err)

    all, err := svc.ListForUser(ctx, requesterID, nil)
    require.NoError(t, err)
    assert.Len(t, all, 2)

    confirmed := model.ViewingConfirmed
    only, err := svc.ListForUser(ctx, requesterID, &confirmed)
    require.NoError(t, err)
    require.Len(t, only, 1)
    assert.Equal(t, a.ID, only[0].ID)

    byOwner, err := svc.ListForOwner(ctx, agentID, nil)
    require.NoError(t, err)
    assert.Len(t, byOwner, 2)

    byProp, err := svc.ListForProperty(ctx, propID, nil)
    require.NoError(t, err)
    assert.Len(t, byProp, 1)

    n, err := svc.CountConfirmed(ctx, propID)
    require.NoError(t, err)
    assert.Equal(t, int64(1), n)

    ranged, err := svc.ListInDateRange(ctx, futureDate(), futureDate())
    require.NoError(t, err)
    assert.Len(t, ranged, 2)
}

func TestDeleteAdminOnly(t *testing.T) {
    svc, store, _ := newTestService(t)
    ctx := context.Background()

    v, err := svc.Schedule(ctx, requesterID, propID, futureDate(), "14:00", nil, nil)
    require.NoError(t, err)

    assert.ErrorIs(t, svc.Delete(ctx, v.ID, requesterID), repository.ErrForbidden)
    assert.ErrorIs(t, svc.Delete(ctx, v.ID, agentID), repository.ErrForbidden)

    require.NoError(t, svc.Delete(ctx, v.ID, adminID))
    _, err = store.GetByID(ctx, v.ID)
    assert.ErrorIs(t, err, repository.ErrNotFound)

    assert.ErrorIs(t, svc.Delete(ctx, v.ID, adminID), repository.ErrNotFound)
}

func TestCompleteOverdue(t *testing.T) {
    svc, store, sink := newTestService(t)
    ctx := context.Background()

    v, err := svc.Schedule(ctx, requesterID, propID, futureDate(), "14:00", nil, nil)
    require.NoError(t, err)
    _, err = svc.Transition(ctx, v.ID, agentID, model.ViewingConfirmed, nil)
    require.NoError(t, err)

    // A pending viewing on another property must not be touched.
    pending, err := svc.Schedule(ctx, requesterID, otherPropID, futureDate(), "14:00", nil, nil)
    require.NoError(t, err)

    // Nothing is due yet.
    n, err := svc.CompleteOverdue(ctx)
    require.NoError(t, err)
    assert.Equal(t, 0, n)

    // Advance the clock past the viewing date.
    svc.Now = func() time.Time {
        return time.Date(2026, 9, 15, 8, 0, 0, 0, time.UTC)
    }

    n, err = svc.CompleteOverdue(ctx)
    require.NoError(t, err)
    assert.Equal(t, 1, n)

    got, err := store.GetByID(ctx, v.ID)
    require.NoError(t, err)
    assert.Equal(t, model.ViewingCompleted, got.Status)

    untouched, err := store.GetByID(ctx, pending.ID)
    require.NoError(t, err)
    assert.Equal(t, model.ViewingPending, untouched.Status)

    // Running again finds nothing.
    n, err = svc.CompleteOverdue(ctx)
    require.NoError(t, err)
    assert.Equal(t, 0, n)

    assert.Contains(t, sink.types(), queue.EventViewingCompleted)
}
