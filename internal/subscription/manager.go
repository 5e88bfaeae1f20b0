// Package subscription implements the subscription lifecycle: creation,
// upgrades, renewal, cancellation, the expiry sweep and the plan-rank
// feature gate.
package subscription

import (
    "context"
    "errors"
    "fmt"
    "log"
    "time"

    "github.com/homescope/viewing-api/internal/model"
    "github.com/homescope/viewing-api/internal/queue"
    "github.com/homescope/viewing-api/internal/repository"
)

// Store is the persistence the manager runs against. Mutate must load
// the user's row under a lock, apply the closure and write the result
// back atomically; Create must enforce the one-row-per-user invariant at
// commit time.
type Store interface {
    Create(ctx context.Context, s *model.Subscription) error
    GetByUserID(ctx context.Context, userID uint64) (*model.Subscription, error)
    Mutate(ctx context.Context, userID uint64, fn func(*model.Subscription) error) (*model.Subscription, error)
    ListExpired(ctx context.Context, today time.Time) ([]model.Subscription, error)
}

// UserDirectory supplies user existence for subscription creation.
type UserDirectory interface {
    GetRef(ctx context.Context, id uint64) (model.UserRef, error)
}

// AuditSink receives lifecycle events after a mutation has committed.
type AuditSink interface {
    Emit(ctx context.Context, ev queue.AuditEvent)
}

// errSkip aborts a sweep Mutate when the row no longer meets the expiry
// condition, leaving it untouched. This is what makes the sweep
// idempotent and safe against concurrent user-initiated mutations.
var errSkip = errors.New("skip")

// Manager owns every subscription mutation. Plan terms and prices are
// explicit configuration passed in at construction; the manager holds no
// process-wide plan table.
type Manager struct {
    store  Store
    users  UserDirectory
    audit  AuditSink
    policy model.PlanPolicy

    // Now is the clock used for term arithmetic and expiry checks.
    // Tests override it.
    Now func() time.Time
}

// New constructs a lifecycle manager. All dependencies must be non-nil.
func New(store Store, users UserDirectory, audit AuditSink, policy model.PlanPolicy) *Manager {
    if store == nil || users == nil || audit == nil {
        panic("nil dependency passed to subscription.New")
    }
    return &Manager{store: store, users: users, audit: audit, policy: policy, Now: time.Now}
}

// Create opens a subscription for a user who has none. The start date is
// today; end date and price come from the configured plan term; the
// subscription starts active with auto-renew off. Returns
// ErrAlreadyExists when the user already has a row.
func (m *Manager) Create(ctx context.Context, userID uint64, plan model.PlanType) (*model.Subscription, error) {
    if !plan.Valid() {
        return nil, fmt.Errorf("%q: %w", plan, repository.ErrInvalidPlan)
    }
    if _, err := m.users.GetRef(ctx, userID); err != nil {
        return nil, fmt.Errorf("user %d: %w", userID, err)
    }
    today := model.DateOnly(m.Now())
    term := m.policy.Term(plan)
    price := term.PriceCents
    s := &model.Subscription{
        UserID:     userID,
        PlanType:   plan,
        StartDate:  today,
        EndDate:    term.EndDate(today),
        PriceCents: &price,
        Active:     true,
        AutoRenew:  false,
    }
    if err := m.store.Create(ctx, s); err != nil {
        return nil, err
    }
    return s, nil
}

// Upgrade replaces the plan with a strictly higher-ranked one and
// recomputes the price and end date from the configured term. A target
// ranked at or below the current plan fails with ErrInvalidDowngrade.
func (m *Manager) Upgrade(ctx context.Context, userID uint64, newPlan model.PlanType) (*model.Subscription, error) {
    if !newPlan.Valid() {
        return nil, fmt.Errorf("%q: %w", newPlan, repository.ErrInvalidPlan)
    }
    return m.store.Mutate(ctx, userID, func(s *model.Subscription) error {
        if newPlan.Rank() <= s.PlanType.Rank() {
            return fmt.Errorf("%s -> %s: %w", s.PlanType, newPlan, repository.ErrInvalidDowngrade)
        }
        today := model.DateOnly(m.Now())
        term := m.policy.Term(newPlan)
        price := term.PriceCents
        s.PlanType = newPlan
        s.PriceCents = &price
        s.EndDate = term.EndDate(today)
        return nil
    })
}

// Cancel deactivates the subscription. Plan and end date are kept for
// reporting; auto-renew is switched off so the sweep cannot revive it.
func (m *Manager) Cancel(ctx context.Context, userID uint64) (*model.Subscription, error) {
    return m.store.Mutate(ctx, userID, func(s *model.Subscription) error {
        s.Active = false
        s.AutoRenew = false
        return nil
    })
}

// Renew reactivates the subscription and restarts its term from today,
// clearing any expired condition.
func (m *Manager) Renew(ctx context.Context, userID uint64) (*model.Subscription, error) {
    return m.store.Mutate(ctx, userID, func(s *model.Subscription) error {
        m.renewInPlace(s)
        return nil
    })
}

func (m *Manager) renewInPlace(s *model.Subscription) {
    today := model.DateOnly(m.Now())
    term := m.policy.Term(s.PlanType)
    s.Active = true
    s.StartDate = today
    s.EndDate = term.EndDate(today)
}

// ToggleAutoRenew flips the auto-renew flag. No other side effects.
func (m *Manager) ToggleAutoRenew(ctx context.Context, userID uint64) (*model.Subscription, error) {
    return m.store.Mutate(ctx, userID, func(s *model.Subscription) error {
        s.AutoRenew = !s.AutoRenew
        return nil
    })
}

// Get returns the user's subscription, ErrNotFound when none exists.
// Whether "no subscription" means Free-tier access or denial is the
// caller's decision.
func (m *Manager) Get(ctx context.Context, userID uint64) (*model.Subscription, error) {
    return m.store.GetByUserID(ctx, userID)
}

// HasAtLeast is the feature gate: true iff the user has a subscription
// that is active, not expired as of today, and ranked at or above the
// required tier. Expiry is recomputed on every call; results must not be
// cached beyond the current request.
func (m *Manager) HasAtLeast(ctx context.Context, userID uint64, required model.PlanType) (bool, error) {
    if !required.Valid() {
        return false, fmt.Errorf("%q: %w", required, repository.ErrInvalidPlan)
    }
    s, err := m.store.GetByUserID(ctx, userID)
    if errors.Is(err, repository.ErrNotFound) {
        return false, nil
    }
    if err != nil {
        return false, err
    }
    if !s.Active || s.IsExpired(m.Now()) {
        return false, nil
    }
    return s.PlanType.Rank() >= required.Rank(), nil
}

// SweepExpired processes every active subscription whose end date lies
// before today: auto-renewing ones get a fresh term, the rest are
// deactivated and an expiry event is emitted. Each row is handled in its
// own atomic mutation that re-checks the expiry condition under the row
// lock, so the sweep is idempotent and safe to run concurrently with
// user-initiated mutations; per-row failures are logged and skipped.
// Returns the number of subscriptions affected.
func (m *Manager) SweepExpired(ctx context.Context, today time.Time) (int, error) {
    today = model.DateOnly(today)
    expired, err := m.store.ListExpired(ctx, today)
    if err != nil {
        return 0, err
    }
    affected := 0
    for _, row := range expired {
        deactivated := false
        updated, err := m.store.Mutate(ctx, row.UserID, func(s *model.Subscription) error {
            // Re-check under the lock: a concurrent Renew or Cancel may
            // have already dealt with this row.
            if !s.Active || s.EndDate == nil || !model.DateOnly(*s.EndDate).Before(today) {
                return errSkip
            }
            if s.AutoRenew {
                m.renewInPlace(s)
            } else {
                s.Active = false
                deactivated = true
            }
            return nil
        })
        if errors.Is(err, errSkip) {
            continue
        }
        if err != nil {
            log.Printf("subscription: sweep user %d: %v", row.UserID, err)
            continue
        }
        if deactivated {
            m.audit.Emit(ctx, queue.NewSubscriptionEvent(queue.EventSubscriptionExpired, updated.ID, updated.UserID, m.Now()))
        }
        affected++
    }
    return affected, nil
}
