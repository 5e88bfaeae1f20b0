// Package scheduler implements the viewing-scheduling engine: request
// validation, the day-slot conflict rule and the viewing status machine.
package scheduler

import (
    "context"
    "fmt"
    "log"
    "strings"
    "time"

    "github.com/homescope/viewing-api/internal/model"
    "github.com/homescope/viewing-api/internal/queue"
    "github.com/homescope/viewing-api/internal/repository"
)

// ViewingStore is the persistence the scheduler runs against. Create
// must enforce the day-slot conflict atomically and UpdateStatus must be
// a compare-and-set on the expected current status; the engine performs
// no locking of its own.
type ViewingStore interface {
    Create(ctx context.Context, v *model.Viewing) error
    GetByID(ctx context.Context, id uint64) (*model.Viewing, error)
    UpdateStatus(ctx context.Context, id uint64, from, to model.ViewingStatus, reason *string, at time.Time) (*model.Viewing, error)
    ListByUser(ctx context.Context, userID uint64, status *model.ViewingStatus) ([]model.Viewing, error)
    ListByProperty(ctx context.Context, propertyID uint64, status *model.ViewingStatus) ([]model.Viewing, error)
    ListByOwner(ctx context.Context, ownerID uint64, status *model.ViewingStatus) ([]model.Viewing, error)
    ListInDateRange(ctx context.Context, start, end time.Time) ([]model.Viewing, error)
    ListConfirmedBefore(ctx context.Context, before time.Time) ([]model.Viewing, error)
    CountConfirmed(ctx context.Context, propertyID uint64) (int64, error)
    Delete(ctx context.Context, id uint64) error
}

// PropertyDirectory supplies property existence, ownership and
// availability. The lookup happens before the store transaction opens;
// the narrow window this leaves is closed by the store's own slot check.
type PropertyDirectory interface {
    GetRef(ctx context.Context, id uint64) (model.PropertyRef, error)
}

// UserDirectory supplies user identity and role.
type UserDirectory interface {
    GetRef(ctx context.Context, id uint64) (model.UserRef, error)
}

// AuditSink receives lifecycle events after a transition has committed.
// Implementations must not block the request path on delivery.
type AuditSink interface {
    Emit(ctx context.Context, ev queue.AuditEvent)
}

// Service validates and creates viewing requests and executes status
// transitions. All mutations go through the store's atomic operations.
type Service struct {
    store ViewingStore
    props PropertyDirectory
    users UserDirectory
    audit AuditSink

    // Now is the clock used for schedule validation and transition
    // stamps. Tests override it.
    Now func() time.Time
}

// New constructs a scheduler service. All dependencies must be non-nil.
func New(store ViewingStore, props PropertyDirectory, users UserDirectory, audit AuditSink) *Service {
    if store == nil || props == nil || users == nil || audit == nil {
        panic("nil dependency passed to scheduler.New")
    }
    return &Service{store: store, props: props, users: users, audit: audit, Now: time.Now}
}

// Schedule validates and persists a new viewing request in PENDING
// state. The property must exist and be available, and the requested
// date and time, interpreted in loc (UTC when nil), must lie strictly in
// the future. A pending or confirmed viewing on the same property and
// calendar day fails the request with ErrConflictingViewing regardless
// of the time of day.
func (s *Service) Schedule(ctx context.Context, userID, propertyID uint64, date time.Time, timeOfDay string, notes *string, loc *time.Location) (*model.Viewing, error) {
    if _, err := s.users.GetRef(ctx, userID); err != nil {
        return nil, fmt.Errorf("user %d: %w", userID, err)
    }
    prop, err := s.props.GetRef(ctx, propertyID)
    if err != nil {
        return nil, fmt.Errorf("property %d: %w", propertyID, err)
    }
    if !prop.Available {
        return nil, fmt.Errorf("property %d not available: %w", propertyID, repository.ErrInvalidSchedule)
    }

    if loc == nil {
        loc = time.UTC
    }
    tod, err := time.Parse("15:04", timeOfDay)
    if err != nil {
        return nil, fmt.Errorf("time %q: %w", timeOfDay, repository.ErrInvalidSchedule)
    }
    at := time.Date(date.Year(), date.Month(), date.Day(), tod.Hour(), tod.Minute(), 0, 0, loc)
    if !at.After(s.Now().In(loc)) {
        return nil, fmt.Errorf("viewing at %s is not in the future: %w", at.Format(time.RFC3339), repository.ErrInvalidSchedule)
    }

    v := &model.Viewing{
        UserID:      userID,
        PropertyID:  propertyID,
        ViewingDate: model.DateOnly(date),
        ViewingTime: tod.Format("15:04"),
        Status:      model.ViewingPending,
        Notes:       notes,
    }
    if err := s.store.Create(ctx, v); err != nil {
        return nil, err
    }
    return v, nil
}

// Transition moves a viewing along one edge of the status machine on
// behalf of actorID. Confirm, reject and complete require the property's
// owning agent; cancel requires the requesting user or an admin. Reject
// additionally requires a non-empty reason. An event is emitted to the
// audit sink on every successful transition.
func (s *Service) Transition(ctx context.Context, viewingID, actorID uint64, target model.ViewingStatus, reason *string) (*model.Viewing, error) {
    v, err := s.store.GetByID(ctx, viewingID)
    if err != nil {
        return nil, err
    }
    actor, err := s.users.GetRef(ctx, actorID)
    if err != nil {
        return nil, fmt.Errorf("actor %d: %w", actorID, err)
    }
    if err := s.authorize(ctx, v, actor, target); err != nil {
        return nil, err
    }
    if !v.Status.CanTransitionTo(target) {
        return nil, fmt.Errorf("%s -> %s: %w", v.Status, target, repository.ErrInvalidTransition)
    }

    if target == model.ViewingRejected {
        if reason == nil || strings.TrimSpace(*reason) == "" {
            return nil, fmt.Errorf("rejection reason required: %w", repository.ErrInvalidTransition)
        }
    } else {
        reason = nil // rejection reason is meaningless on other edges
    }

    now := s.Now().UTC()
    updated, err := s.store.UpdateStatus(ctx, v.ID, v.Status, target, reason, now)
    if err != nil {
        return nil, err
    }
    s.audit.Emit(ctx, queue.NewViewingEvent(eventTypeFor(target), updated.ID, updated.UserID, updated.PropertyID, now))
    return updated, nil
}

func (s *Service) authorize(ctx context.Context, v *model.Viewing, actor model.UserRef, target model.ViewingStatus) error {
    switch target {
    case model.ViewingConfirmed, model.ViewingRejected, model.ViewingCompleted:
        prop, err := s.props.GetRef(ctx, v.PropertyID)
        if err != nil {
            return fmt.Errorf("property %d: %w", v.PropertyID, err)
        }
        if actor.ID != prop.OwnerID {
            return repository.ErrForbidden
        }
    case model.ViewingCancelled:
        if actor.ID != v.UserID && actor.Role != model.RoleAdmin {
            return repository.ErrForbidden
        }
    default:
        return repository.ErrInvalidTransition
    }
    return nil
}

func eventTypeFor(target model.ViewingStatus) string {
    switch target {
    case model.ViewingConfirmed:
        return queue.EventViewingConfirmed
    case model.ViewingRejected:
        return queue.EventViewingRejected
    case model.ViewingCompleted:
        return queue.EventViewingCompleted
    default:
        return queue.EventViewingCancelled
    }
}

// Get returns a single viewing, restricted to its requester, the
// property's owning agent and admins.
func (s *Service) Get(ctx context.Context, viewingID, actorID uint64) (*model.Viewing, error) {
    v, err := s.store.GetByID(ctx, viewingID)
    if err != nil {
        return nil, err
    }
    actor, err := s.users.GetRef(ctx, actorID)
    if err != nil {
        return nil, fmt.Errorf("actor %d: %w", actorID, err)
    }
    if actor.ID == v.UserID || actor.Role == model.RoleAdmin {
        return v, nil
    }
    prop, err := s.props.GetRef(ctx, v.PropertyID)
    if err != nil {
        return nil, fmt.Errorf("property %d: %w", v.PropertyID, err)
    }
    if actor.ID != prop.OwnerID {
        return nil, repository.ErrForbidden
    }
    return v, nil
}

// ListForUser returns a user's viewings ordered by viewing date,
// optionally filtered by status.
func (s *Service) ListForUser(ctx context.Context, userID uint64, status *model.ViewingStatus) ([]model.Viewing, error) {
    if _, err := s.users.GetRef(ctx, userID); err != nil {
        return nil, fmt.Errorf("user %d: %w", userID, err)
    }
    return s.store.ListByUser(ctx, userID, status)
}

// ListForProperty returns a property's viewings ordered by viewing date,
// optionally filtered by status.
func (s *Service) ListForProperty(ctx context.Context, propertyID uint64, status *model.ViewingStatus) ([]model.Viewing, error) {
    if _, err := s.props.GetRef(ctx, propertyID); err != nil {
        return nil, fmt.Errorf("property %d: %w", propertyID, err)
    }
    return s.store.ListByProperty(ctx, propertyID, status)
}

// ListForOwner resolves the owner's properties and returns every viewing
// against them, ordered by viewing date.
func (s *Service) ListForOwner(ctx context.Context, ownerID uint64, status *model.ViewingStatus) ([]model.Viewing, error) {
    if _, err := s.users.GetRef(ctx, ownerID); err != nil {
        return nil, fmt.Errorf("owner %d: %w", ownerID, err)
    }
    return s.store.ListByOwner(ctx, ownerID, status)
}

// ListInDateRange returns viewings dated within [start, end]. Admin
// reporting.
func (s *Service) ListInDateRange(ctx context.Context, start, end time.Time) ([]model.Viewing, error) {
    return s.store.ListInDateRange(ctx, model.DateOnly(start), model.DateOnly(end))
}

// CountConfirmed returns the number of confirmed viewings for a
// property. Display and analytics only.
func (s *Service) CountConfirmed(ctx context.Context, propertyID uint64) (int64, error) {
    if _, err := s.props.GetRef(ctx, propertyID); err != nil {
        return 0, fmt.Errorf("property %d: %w", propertyID, err)
    }
    return s.store.CountConfirmed(ctx, propertyID)
}

// Delete removes a viewing outright, bypassing the state machine.
// Admins only.
func (s *Service) Delete(ctx context.Context, viewingID, actorID uint64) error {
    actor, err := s.users.GetRef(ctx, actorID)
    if err != nil {
        return fmt.Errorf("actor %d: %w", actorID, err)
    }
    if actor.Role != model.RoleAdmin {
        return repository.ErrForbidden
    }
    return s.store.Delete(ctx, viewingID)
}

// CompleteOverdue moves confirmed viewings whose date has passed to
// COMPLETED. Each row is transitioned independently; a failure on one
// row is logged and does not stop the rest. Returns the number of
// viewings completed. Safe to run repeatedly.
func (s *Service) CompleteOverdue(ctx context.Context) (int, error) {
    now := s.Now().UTC()
    due, err := s.store.ListConfirmedBefore(ctx, model.DateOnly(now))
    if err != nil {
        return 0, err
    }
    completed := 0
    for _, v := range due {
        updated, err := s.store.UpdateStatus(ctx, v.ID, model.ViewingConfirmed, model.ViewingCompleted, nil, now)
        if err != nil {
            log.Printf("scheduler: complete overdue viewing %d: %v", v.ID, err)
            continue
        }
        s.audit.Emit(ctx, queue.NewViewingEvent(queue.EventViewingCompleted, updated.ID, updated.UserID, updated.PropertyID, now))
        completed++
    }
    return completed, nil
}
