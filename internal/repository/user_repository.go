package repository

import (
    "context"
    "database/sql"
    "strings"

    "github.com/homescope/viewing-api/internal/model"
    "github.com/homescope/viewing-api/internal/utils"
)

// UserRepo persists users. It doubles as the user directory for the
// scheduling and subscription engines through GetRef.
type UserRepo struct{ DB *sql.DB }

// NewUserRepo returns a UserRepo bound to the given database.
func NewUserRepo(db *sql.DB) *UserRepo { return &UserRepo{DB: db} }

// Create inserts a user and returns its ID. The unique email index maps
// duplicates to ErrEmailExists.
func (r *UserRepo) Create(ctx context.Context, email, password, role string, cost int) (uint64, error) {
    email = strings.ToLower(strings.TrimSpace(email))
    hash, err := utils.HashPassword(password, cost)
    if err != nil {
        return 0, err
    }
    res, err := r.DB.ExecContext(ctx,
        "INSERT INTO users (email, password_hash, role) VALUES (?,?,?)",
        email, hash, role)
    if err != nil {
        if strings.Contains(strings.ToLower(err.Error()), "1062") {
            return 0, ErrEmailExists
        }
        return 0, err
    }
    id, err := res.LastInsertId()
    if err != nil {
        return 0, err
    }
    return uint64(id), nil
}

// GetByEmail fetches a user by normalized email.
func (r *UserRepo) GetByEmail(ctx context.Context, email string) (model.User, error) {
    email = strings.ToLower(strings.TrimSpace(email))
    var u model.User
    err := r.DB.QueryRowContext(ctx,
        "SELECT id,email,password_hash,role,is_active,created_at,updated_at FROM users WHERE email=? LIMIT 1",
        email).Scan(&u.ID, &u.Email, &u.PasswordHash, &u.Role, &u.IsActive, &u.CreatedAt, &u.UpdatedAt)
    return u, err
}

// GetByID fetches a user by id.
func (r *UserRepo) GetByID(ctx context.Context, id uint64) (model.User, error) {
    var u model.User
    err := r.DB.QueryRowContext(ctx,
        "SELECT id,email,password_hash,role,is_active,created_at,updated_at FROM users WHERE id=? LIMIT 1",
        id).Scan(&u.ID, &u.Email, &u.PasswordHash, &u.Role, &u.IsActive, &u.CreatedAt, &u.UpdatedAt)
    return u, err
}

// GetRef returns the directory view of a user: id and role only.
// Returns ErrNotFound for unknown or deactivated accounts.
func (r *UserRepo) GetRef(ctx context.Context, id uint64) (model.UserRef, error) {
    var (
        ref    model.UserRef
        active bool
    )
    err := r.DB.QueryRowContext(ctx,
        "SELECT id, role, is_active FROM users WHERE id=? LIMIT 1",
        id).Scan(&ref.ID, &ref.Role, &active)
    if err == sql.ErrNoRows {
        return model.UserRef{}, ErrNotFound
    }
    if err != nil {
        return model.UserRef{}, err
    }
    if !active {
        return model.UserRef{}, ErrNotFound
    }
    return ref, nil
}
