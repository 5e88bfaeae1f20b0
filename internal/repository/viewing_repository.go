package repository

import (
    "context"
    "database/sql"
    "fmt"
    "time"

    "github.com/homescope/viewing-api/internal/model"
)

// ViewingRepo provides persistence for viewing requests. The viewings
// table carries a secondary index on (property_id, viewing_date) so the
// day-slot conflict check locks a narrow index range, and one on
// (user_id) for listing. All timestamps are stored in UTC.
type ViewingRepo struct {
    db *sql.DB
}

// NewViewingRepo returns a ViewingRepo bound to the given database.
func NewViewingRepo(db *sql.DB) *ViewingRepo { return &ViewingRepo{db: db} }

const viewingColumns = `id, user_id, property_id, viewing_date, viewing_time, status,
       notes, rejection_reason, created_at, confirmed_at, rejected_at, completed_at, cancelled_at`

// Create persists a new viewing in PENDING state. The insert runs in a
// transaction that first locks the (property, date) slot with
// SELECT ... FOR UPDATE over the (property_id, viewing_date) index, so
// two concurrent requests for the same day cannot both pass the conflict
// check. Returns ErrConflictingViewing when a pending or confirmed
// viewing already holds the slot.
func (r *ViewingRepo) Create(ctx context.Context, v *model.Viewing) error {
    tx, err := r.db.BeginTx(ctx, nil)
    if err != nil {
        return err
    }
    committed := false
    defer func() {
        if !committed {
            _ = tx.Rollback()
        }
    }()

    // Lock the day slot. The range lock taken here also blocks a
    // concurrent insert into the same (property, date) gap.
    const slotQ = `SELECT COUNT(*) FROM viewings
                   WHERE property_id = ? AND viewing_date = ? AND status IN (?, ?)
                   FOR UPDATE`
    var held int
    if err := tx.QueryRowContext(ctx, slotQ,
        v.PropertyID, v.ViewingDate, model.ViewingPending, model.ViewingConfirmed,
    ).Scan(&held); err != nil {
        return err
    }
    if held > 0 {
        return ErrConflictingViewing
    }

    const insQ = `INSERT INTO viewings (user_id, property_id, viewing_date, viewing_time, status, notes)
                  VALUES (?, ?, ?, ?, ?, ?)`
    res, err := tx.ExecContext(ctx, insQ,
        v.UserID, v.PropertyID, v.ViewingDate, v.ViewingTime, v.Status, v.Notes)
    if err != nil {
        return err
    }
    id, err := res.LastInsertId()
    if err != nil {
        return err
    }
    v.ID = uint64(id)
    // Read back created_at so the caller sees the stored value.
    if err := tx.QueryRowContext(ctx,
        `SELECT created_at FROM viewings WHERE id = ?`, v.ID,
    ).Scan(&v.CreatedAt); err != nil {
        return err
    }
    if err := tx.Commit(); err != nil {
        return err
    }
    committed = true
    return nil
}

// GetByID fetches a single viewing. Returns ErrNotFound when absent.
func (r *ViewingRepo) GetByID(ctx context.Context, id uint64) (*model.Viewing, error) {
    row := r.db.QueryRowContext(ctx,
        `SELECT `+viewingColumns+` FROM viewings WHERE id = ?`, id)
    v, err := scanViewing(row)
    if err == sql.ErrNoRows {
        return nil, ErrNotFound
    }
    return v, err
}

// UpdateStatus performs a compare-and-set transition from the expected
// current status to the target, stamping the matching transition column.
// A concurrent transition that changed the row first leaves zero affected
// rows; the caller then sees ErrInvalidTransition (or ErrNotFound if the
// row is gone) instead of silently overwriting.
func (r *ViewingRepo) UpdateStatus(ctx context.Context, id uint64, from, to model.ViewingStatus, reason *string, at time.Time) (*model.Viewing, error) {
    var (
        res sql.Result
        err error
    )
    switch to {
    case model.ViewingConfirmed:
        res, err = r.db.ExecContext(ctx,
            `UPDATE viewings SET status = ?, confirmed_at = ? WHERE id = ? AND status = ?`,
            to, at, id, from)
    case model.ViewingRejected:
        res, err = r.db.ExecContext(ctx,
            `UPDATE viewings SET status = ?, rejected_at = ?, rejection_reason = ? WHERE id = ? AND status = ?`,
            to, at, reason, id, from)
    case model.ViewingCompleted:
        res, err = r.db.ExecContext(ctx,
            `UPDATE viewings SET status = ?, completed_at = ? WHERE id = ? AND status = ?`,
            to, at, id, from)
    case model.ViewingCancelled:
        res, err = r.db.ExecContext(ctx,
            `UPDATE viewings SET status = ?, cancelled_at = ? WHERE id = ? AND status = ?`,
            to, at, id, from)
    default:
        return nil, ErrInvalidTransition
    }
    if err != nil {
        return nil, err
    }
    n, err := res.RowsAffected()
    if err != nil {
        return nil, err
    }
    if n == 0 {
        // Row vanished or its status moved under us; re-read to tell the
        // two apart.
        if _, err := r.GetByID(ctx, id); err != nil {
            return nil, err
        }
        return nil, ErrInvalidTransition
    }
    return r.GetByID(ctx, id)
}

// ListByUser returns a user's viewings ordered by viewing date ascending,
// optionally filtered by status.
func (r *ViewingRepo) ListByUser(ctx context.Context, userID uint64, status *model.ViewingStatus) ([]model.Viewing, error) {
    q := `SELECT ` + viewingColumns + ` FROM viewings WHERE user_id = ?`
    args := []interface{}{userID}
    if status != nil {
        q += ` AND status = ?`
        args = append(args, *status)
    }
    q += ` ORDER BY viewing_date ASC, id ASC`
    return r.queryViewings(ctx, q, args...)
}

// ListByProperty returns a property's viewings ordered by viewing date
// ascending, optionally filtered by status.
func (r *ViewingRepo) ListByProperty(ctx context.Context, propertyID uint64, status *model.ViewingStatus) ([]model.Viewing, error) {
    q := `SELECT ` + viewingColumns + ` FROM viewings WHERE property_id = ?`
    args := []interface{}{propertyID}
    if status != nil {
        q += ` AND status = ?`
        args = append(args, *status)
    }
    q += ` ORDER BY viewing_date ASC, id ASC`
    return r.queryViewings(ctx, q, args...)
}

// ListByOwner joins through properties to return every viewing on
// properties listed by the given owner, ordered by viewing date.
func (r *ViewingRepo) ListByOwner(ctx context.Context, ownerID uint64, status *model.ViewingStatus) ([]model.Viewing, error) {
    q := `SELECT v.id, v.user_id, v.property_id, v.viewing_date, v.viewing_time, v.status,
                 v.notes, v.rejection_reason, v.created_at, v.confirmed_at, v.rejected_at, v.completed_at, v.cancelled_at
          FROM viewings v
          JOIN properties p ON p.id = v.property_id
          WHERE p.owner_id = ?`
    args := []interface{}{ownerID}
    if status != nil {
        q += ` AND v.status = ?`
        args = append(args, *status)
    }
    q += ` ORDER BY v.viewing_date ASC, v.id ASC`
    return r.queryViewings(ctx, q, args...)
}

// ListInDateRange returns viewings whose date falls in [start, end],
// ordered by viewing date. Used for reporting.
func (r *ViewingRepo) ListInDateRange(ctx context.Context, start, end time.Time) ([]model.Viewing, error) {
    const q = `SELECT ` + viewingColumns + ` FROM viewings
               WHERE viewing_date >= ? AND viewing_date <= ?
               ORDER BY viewing_date ASC, id ASC`
    return r.queryViewings(ctx, q, start, end)
}

// ListConfirmedBefore returns confirmed viewings dated strictly before
// the given day. The overdue sweep moves them to COMPLETED one by one.
func (r *ViewingRepo) ListConfirmedBefore(ctx context.Context, before time.Time) ([]model.Viewing, error) {
    const q = `SELECT ` + viewingColumns + ` FROM viewings
               WHERE status = ? AND viewing_date < ?
               ORDER BY viewing_date ASC, id ASC`
    return r.queryViewings(ctx, q, model.ViewingConfirmed, before)
}

// CountConfirmed returns the number of confirmed viewings for a property.
// Display and analytics only; it gates nothing.
func (r *ViewingRepo) CountConfirmed(ctx context.Context, propertyID uint64) (int64, error) {
    var n int64
    err := r.db.QueryRowContext(ctx,
        `SELECT COUNT(*) FROM viewings WHERE property_id = ? AND status = ?`,
        propertyID, model.ViewingConfirmed,
    ).Scan(&n)
    return n, err
}

// Delete removes a viewing row outright, bypassing the state machine.
// Administrative use only. Returns ErrNotFound when no row matched.
func (r *ViewingRepo) Delete(ctx context.Context, id uint64) error {
    res, err := r.db.ExecContext(ctx, `DELETE FROM viewings WHERE id = ?`, id)
    if err != nil {
        return err
    }
    n, err := res.RowsAffected()
    if err != nil {
        return err
    }
    if n == 0 {
        return ErrNotFound
    }
    return nil
}

func (r *ViewingRepo) queryViewings(ctx context.Context, q string, args ...interface{}) ([]model.Viewing, error) {
    rows, err := r.db.QueryContext(ctx, q, args...)
    if err != nil {
        return nil, err
    }
    defer rows.Close()
    out := make([]model.Viewing, 0)
    for rows.Next() {
        v, err := scanViewing(rows)
        if err != nil {
            return nil, err
        }
        out = append(out, *v)
    }
    if err := rows.Err(); err != nil {
        return nil, err
    }
    return out, nil
}

// rowScanner is satisfied by both *sql.Row and *sql.Rows.
type rowScanner interface {
    Scan(dest ...interface{}) error
}

func scanViewing(rs rowScanner) (*model.Viewing, error) {
    var (
        v          model.Viewing
        rawStatus  string
        rawTime    string
        notes      sql.NullString
        reason     sql.NullString
        confirmed  sql.NullTime
        rejected   sql.NullTime
        completed  sql.NullTime
        cancelled  sql.NullTime
    )
    if err := rs.Scan(
        &v.ID, &v.UserID, &v.PropertyID, &v.ViewingDate, &rawTime, &rawStatus,
        &notes, &reason, &v.CreatedAt, &confirmed, &rejected, &completed, &cancelled,
    ); err != nil {
        return nil, err
    }
    status, ok := model.ParseViewingStatus(rawStatus)
    if !ok {
        return nil, fmt.Errorf("viewing %d: unknown status %q", v.ID, rawStatus)
    }
    v.Status = status
    // MySQL TIME comes back as HH:MM:SS; keep HH:MM.
    if len(rawTime) >= 5 {
        rawTime = rawTime[:5]
    }
    v.ViewingTime = rawTime
    if notes.Valid {
        s := notes.String
        v.Notes = &s
    }
    if reason.Valid {
        s := reason.String
        v.RejectionReason = &s
    }
    if confirmed.Valid {
        t := confirmed.Time
        v.ConfirmedAt = &t
    }
    if rejected.Valid {
        t := rejected.Time
        v.RejectedAt = &t
    }
    if completed.Valid {
        t := completed.Time
        v.CompletedAt = &t
    }
    if cancelled.Valid {
        t := cancelled.Time
        v.CancelledAt = &t
    }
    return &v, nil
}
