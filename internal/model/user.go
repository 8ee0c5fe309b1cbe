package model

import "time"

// Roles carried in the JWT "role" claim.
const (
    RoleAdmin     = "ADMIN"
    RolePastor    = "PASTOR"
    RoleSecretary = "SECRETARY"
    RoleMember    = "MEMBER"
)

// User represents an account in the `users` table.  Staff accounts manage a
// church's certificates; MEMBER accounts are used by the mobile app and point
// at a row in `members` through MemberID.
//
// Fields:
//  ID           – primary key identifier of the user.
//  ChurchID     – tenant the account belongs to.
//  MemberID     – linked member for MEMBER accounts (nullable).
//  Name         – display name, used as default signer on issuance.
//  Email        – unique email address.
//  PasswordHash – bcrypt hashed password.
//  Role         – ADMIN, PASTOR, SECRETARY or MEMBER.
//  IsActive     – whether the account may log in.
//  CreatedAt    – timestamp of creation.
//  UpdatedAt    – timestamp of last update.
type User struct {
    ID           uint64    // users.id
    ChurchID     string    // users.church_id
    MemberID     *string   // users.member_id (nullable)
    Name         string    // users.name
    Email        string    // users.email
    PasswordHash string    // users.password_hash
    Role         string    // users.role
    IsActive     bool      // users.is_active
    CreatedAt    time.Time // users.created_at
    UpdatedAt    time.Time // users.updated_at
}

// RefreshToken models an entry in the `refresh_tokens` table.  Each
// refresh token belongs to a user and contains metadata for expiry
// and revocation.  The plain token is not stored; only its
// SHA‑256 hash.
//
// Fields:
//  ID        – primary key identifier.
//  UserID    – owner of the token.
//  TokenHash – SHA‑256 hex digest of the token value.
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
