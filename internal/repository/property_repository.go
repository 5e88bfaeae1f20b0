package repository

import (
    "context"
    "database/sql"

    "github.com/homescope/viewing-api/internal/model"
)

// PropertyRepo reads the properties table. The scheduling engine uses it
// as its property directory; the public browse endpoints use it for
// listing. Property CRUD itself is handled by surrounding infrastructure
// and is not exposed here.
type PropertyRepo struct {
    db *sql.DB
}

// NewPropertyRepo returns a PropertyRepo bound to the given database.
func NewPropertyRepo(db *sql.DB) *PropertyRepo { return &PropertyRepo{db: db} }

const propertyColumns = `id, owner_id, title, city, address, price_cents, available, created_at, updated_at`

// GetByID fetches a full property row. Returns ErrNotFound when absent.
func (r *PropertyRepo) GetByID(ctx context.Context, id uint64) (*model.Property, error) {
    var p model.Property
    err := r.db.QueryRowContext(ctx,
        `SELECT `+propertyColumns+` FROM properties WHERE id = ?`, id,
    ).Scan(&p.ID, &p.OwnerID, &p.Title, &p.City, &p.Address, &p.PriceCents,
        &p.Available, &p.CreatedAt, &p.UpdatedAt)
    if err == sql.ErrNoRows {
        return nil, ErrNotFound
    }
    if err != nil {
        return nil, err
    }
    return &p, nil
}

// GetRef returns the directory view of a property: existence, ownership
// and availability. This is the only call the scheduling engine makes
// against properties.
func (r *PropertyRepo) GetRef(ctx context.Context, id uint64) (model.PropertyRef, error) {
    var ref model.PropertyRef
    err := r.db.QueryRowContext(ctx,
        `SELECT id, owner_id, available FROM properties WHERE id = ?`, id,
    ).Scan(&ref.ID, &ref.OwnerID, &ref.Available)
    if err == sql.ErrNoRows {
        return model.PropertyRef{}, ErrNotFound
    }
    return ref, err
}

// ListAvailable returns available properties for public browsing, newest
// first.
func (r *PropertyRepo) ListAvailable(ctx context.Context) ([]model.Property, error) {
    const q = `SELECT ` + propertyColumns + ` FROM properties WHERE available = 1 ORDER BY created_at DESC`
    return r.queryProperties(ctx, q)
}

// Search filters available properties by city and price bounds. A zero
// bound is ignored. Backs the plan-gated advanced search endpoint.
func (r *PropertyRepo) Search(ctx context.Context, city string, minPriceCents, maxPriceCents uint64) ([]model.Property, error) {
    q := `SELECT ` + propertyColumns + ` FROM properties WHERE available = 1`
    args := make([]interface{}, 0, 3)
    if city != "" {
        q += ` AND city = ?`
        args = append(args, city)
    }
    if minPriceCents > 0 {
        q += ` AND price_cents >= ?`
        args = append(args, minPriceCents)
    }
    if maxPriceCents > 0 {
        q += ` AND price_cents <= ?`
        args = append(args, maxPriceCents)
    }
    q += ` ORDER BY price_cents ASC, id ASC`
    return r.queryProperties(ctx, q, args...)
}

func (r *PropertyRepo) queryProperties(ctx context.Context, q string, args ...interface{}) ([]model.Property, error) {
    rows, err := r.db.QueryContext(ctx, q, args...)
    if err != nil {
        return nil, err
    }
    defer rows.Close()
    out := make([]model.Property, 0)
    for rows.Next() {
        var p model.Property
        if err := rows.Scan(&p.ID, &p.OwnerID, &p.Title, &p.City, &p.Address,
            &p.PriceCents, &p.Available, &p.CreatedAt, &p.UpdatedAt); err != nil {
            return nil, err
        }
        out = append(out, p)
    }
    if err := rows.Err(); err != nil {
        return nil, err
    }
    return out, nil
}
