package auth

import (
	"context"
	"time"

	"recordhub/internal/core/id"
)

// AccountRepository reads student credentials.
type AccountRepository interface {
	GetByEmail(ctx context.Context, email string) (*Account, error)
	GetByID(ctx context.Context, accountID id.ID) (*Account, error)
}

// TokenRepository stores refresh tokens.
type TokenRepository interface {
	SaveRefreshToken(ctx context.Context, token *RefreshToken) error

	// GetRefreshToken returns a NOT_FOUND AppError when the hash is unknown.
	GetRefreshToken(ctx context.Context, tokenHash string) (*RefreshToken, error)

	RevokeRefreshToken(ctx context.Context, tokenID id.ID, reason string) error
	RevokeAllStudentTokens(ctx context.Context, studentID id.ID, reason string) error

	// CleanupExpiredTokens deletes tokens expired before now and tokens revoked before now-retention.
	CleanupExpiredTokens(ctx context.Context, now time.Time, retention time.Duration) (int, error)
}
