package model

import "time"

// Role values stored in users.role and carried in the JWT "role" claim.
const (
    RoleUser  = "USER"  // regular visitor scheduling viewings
    RoleAgent = "AGENT" // lists properties and handles viewing requests
    RoleAdmin = "ADMIN" // administrative access
)

// User represents an application user record as stored in the `users`
// table. Handlers define separate response types with JSON tags; these
// structs are used by the repository layer.
//
// Fields:
//  ID           – primary key identifier of the user.
//  Email        – unique email address.
//  PasswordHash – bcrypt hashed password.
//  Role         – one of the Role constants above.
//  IsActive     – whether the account is active.
//  CreatedAt    – timestamp of creation.
//  UpdatedAt    – timestamp of last update.
type User struct {
    ID           uint64    // users.id
    Email        string    // users.email
    PasswordHash string    // users.password_hash
    Role         string    // users.role
    IsActive     bool      // users.is_active
    CreatedAt    time.Time // users.created_at
    UpdatedAt    time.Time // users.updated_at
}

// UserRef is the slice of a user the scheduling and subscription engines
// need: identity and role only.
type UserRef struct {
    ID   uint64
    Role string
}

// Ref projects the directory view of the user.
func (u *User) Ref() UserRef {
    return UserRef{ID: u.ID, Role: u.Role}
}

// RefreshToken models an entry in the `refresh_tokens` table. Only the
// SHA-256 hash of the issued token is stored.
//
// Fields:
//  ID        – primary key identifier.
//  UserID    – owner of the token.
//  TokenHash – SHA-256 hex digest of the token value.
//  ExpiresAt – expiration timestamp of the token.
//  RevokedAt – when the token was revoked (null if still active).
//  CreatedAt – timestamp of creation.
type RefreshToken struct {
    ID        uint64     // refresh_tokens.id
    UserID    uint64     // refresh_tokens.user_id
    TokenHash string     // refresh_tokens.token_hash
    ExpiresAt time.Time  // refresh_tokens.expires_at
    RevokedAt *time.Time // refresh_tokens.revoked_at (nullable)
    CreatedAt time.Time  // refresh_tokens.created_at
}
