package repository

import (
    "context"
    "database/sql"
    "strings"
    "time"

    "github.com/homescope/viewing-api/internal/model"
)

// SubscriptionRepo provides persistence for subscriptions. The table has
// a unique index on user_id, so the one-row-per-user invariant is
// enforced at commit time regardless of what the caller checked first.
type SubscriptionRepo struct {
    db *sql.DB
}

// NewSubscriptionRepo returns a SubscriptionRepo bound to the given
// database.
func NewSubscriptionRepo(db *sql.DB) *SubscriptionRepo { return &SubscriptionRepo{db: db} }

const subscriptionColumns = `id, user_id, plan_type, start_date, end_date, price_cents,
       active, auto_renew, created_at, updated_at`

// Create inserts a new subscription row. The unique user_id index turns
// a duplicate insert into ErrAlreadyExists.
func (r *SubscriptionRepo) Create(ctx context.Context, s *model.Subscription) error {
    const q = `INSERT INTO subscriptions (user_id, plan_type, start_date, end_date, price_cents, active, auto_renew)
               VALUES (?, ?, ?, ?, ?, ?, ?)`
    res, err := r.db.ExecContext(ctx, q,
        s.UserID, s.PlanType, s.StartDate, s.EndDate, s.PriceCents, s.Active, s.AutoRenew)
    if err != nil {
        if strings.Contains(err.Error(), "1062") {
            return ErrAlreadyExists
        }
        return err
    }
    id, err := res.LastInsertId()
    if err != nil {
        return err
    }
    s.ID = uint64(id)
    return r.db.QueryRowContext(ctx,
        `SELECT created_at, updated_at FROM subscriptions WHERE id = ?`, s.ID,
    ).Scan(&s.CreatedAt, &s.UpdatedAt)
}

// GetByUserID fetches the user's subscription. Returns ErrNotFound when
// the user has no row.
func (r *SubscriptionRepo) GetByUserID(ctx context.Context, userID uint64) (*model.Subscription, error) {
    row := r.db.QueryRowContext(ctx,
        `SELECT `+subscriptionColumns+` FROM subscriptions WHERE user_id = ?`, userID)
    s, err := scanSubscription(row)
    if err == sql.ErrNoRows {
        return nil, ErrNotFound
    }
    return s, err
}

// Mutate loads the user's row under a row lock, applies fn to it and
// writes the result back, all in one transaction. fn returning an error
// aborts the mutation with nothing written. updated_at is touched on
// every successful write. This is the single write path for every
// user-initiated mutation and for the expiry sweep, so the two can never
// interleave on the same row.
func (r *SubscriptionRepo) Mutate(ctx context.Context, userID uint64, fn func(*model.Subscription) error) (*model.Subscription, error) {
    tx, err := r.db.BeginTx(ctx, nil)
    if err != nil {
        return nil, err
    }
    committed := false
    defer func() {
        if !committed {
            _ = tx.Rollback()
        }
    }()

    row := tx.QueryRowContext(ctx,
        `SELECT `+subscriptionColumns+` FROM subscriptions WHERE user_id = ? FOR UPDATE`, userID)
    s, err := scanSubscription(row)
    if err == sql.ErrNoRows {
        return nil, ErrNotFound
    }
    if err != nil {
        return nil, err
    }

    if err := fn(s); err != nil {
        return nil, err
    }

    now := time.Now().UTC()
    const upd = `UPDATE subscriptions
                 SET plan_type = ?, start_date = ?, end_date = ?, price_cents = ?,
                     active = ?, auto_renew = ?, updated_at = ?
                 WHERE id = ?`
    if _, err := tx.ExecContext(ctx, upd,
        s.PlanType, s.StartDate, s.EndDate, s.PriceCents, s.Active, s.AutoRenew, now, s.ID,
    ); err != nil {
        return nil, err
    }
    s.UpdatedAt = now

    if err := tx.Commit(); err != nil {
        return nil, err
    }
    committed = true
    return s, nil
}

// ListExpired returns active subscriptions whose end date lies strictly
// before the given day. Input to the expiry sweep.
func (r *SubscriptionRepo) ListExpired(ctx context.Context, today time.Time) ([]model.Subscription, error) {
    const q = `SELECT ` + subscriptionColumns + ` FROM subscriptions
               WHERE active = 1 AND end_date IS NOT NULL AND end_date < ?
               ORDER BY id ASC`
    rows, err := r.db.QueryContext(ctx, q, model.DateOnly(today))
    if err != nil {
        return nil, err
    }
    defer rows.Close()
    out := make([]model.Subscription, 0)
    for rows.Next() {
        s, err := scanSubscription(rows)
        if err != nil {
            return nil, err
        }
        out = append(out, *s)
    }
    if err := rows.Err(); err != nil {
        return nil, err
    }
    return out, nil
}

// CountActiveByPlan returns the number of active subscriptions on a tier.
// Reporting only.
func (r *SubscriptionRepo) CountActiveByPlan(ctx context.Context, plan model.PlanType) (int64, error) {
    var n int64
    err := r.db.QueryRowContext(ctx,
        `SELECT COUNT(*) FROM subscriptions WHERE plan_type = ? AND active = 1`, plan,
    ).Scan(&n)
    return n, err
}

func scanSubscription(rs rowScanner) (*model.Subscription, error) {
    var (
        s       model.Subscription
        rawPlan string
        endDate sql.NullTime
        price   sql.NullInt64
    )
    if err := rs.Scan(
        &s.ID, &s.UserID, &rawPlan, &s.StartDate, &endDate, &price,
        &s.Active, &s.AutoRenew, &s.CreatedAt, &s.UpdatedAt,
    ); err != nil {
        return nil, err
    }
    // Unknown tiers are preserved as-is; rank checks downstream treat
    // them as below FREE.
    s.PlanType = model.PlanType(rawPlan)
    if endDate.Valid {
        t := endDate.Time
        s.EndDate = &t
    }
    if price.Valid {
        p := price.Int64
        s.PriceCents = &p
    }
    return &s, nil
}
