package auth

import (
	"time"

	"recordhub/internal/core/id"
)

// Account is the credential view of a student record.
type Account struct {
	ID           id.ID  `db:"id"`
	Email        string `db:"email"`
	PasswordHash string `db:"password_hash"`
}

// RefreshToken is a stored, hashed refresh token.
type RefreshToken struct {
	ID        id.ID      `db:"id"`
	StudentID id.ID      `db:"student_id"`
	TokenHash string     `db:"token_hash"`
	ExpiresAt time.Time  `db:"expires_at"`
	CreatedAt time.Time  `db:"created_at"`
	RevokedAt *time.Time `db:"revoked_at"`
	UserAgent string     `db:"user_agent"`
}

// IsValid reports whether the token is neither revoked nor expired at now.
func (t *RefreshToken) IsValid(now time.Time) bool {
	return t.RevokedAt == nil && now.Before(t.ExpiresAt)
}

// Credentials is the login input.
type Credentials struct {
	Email     string
	Password  string
	UserAgent string
}

// TokenPair is issued on login and refresh.
type TokenPair struct {
	AccessToken      string    `json:"access_token"`
	RefreshToken     string    `json:"refresh_token"`
	ExpiresAt        time.Time `json:"expires_at"`
	RefreshExpiresAt time.Time `json:"refresh_expires_at"`
	TokenType        string    `json:"token_type"`
}
