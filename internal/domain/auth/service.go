package auth

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"
	"time"

	"golang.org/x/crypto/bcrypt"

	"recordhub/internal/core/apperror"
	"recordhub/internal/core/id"
	"recordhub/internal/core/tx"
	"recordhub/pkg/logger"
)

// ServiceConfig holds auth service configuration.
type ServiceConfig struct {
	RefreshTokenExpiry time.Duration
	RevokedRetention   time.Duration
}

// DefaultServiceConfig returns default configuration.
func DefaultServiceConfig() ServiceConfig {
	return ServiceConfig{
		RefreshTokenExpiry: 7 * 24 * time.Hour,
		RevokedRetention:   7 * 24 * time.Hour,
	}
}

// Service provides login, refresh and logout.
type Service struct {
	accounts   AccountRepository
	tokens     TokenRepository
	txManager  tx.Manager
	jwtService *JWTService
	config     ServiceConfig
	now        func() time.Time
}

// NewService creates a new auth service.
func NewService(
	accounts AccountRepository,
	tokens TokenRepository,
	txManager tx.Manager,
	jwtService *JWTService,
	config ServiceConfig,
) *Service {
	return &Service{
		accounts:   accounts,
		tokens:     tokens,
		txManager:  txManager,
		jwtService: jwtService,
		config:     config,
		now:        time.Now,
	}
}

// Login authenticates a student and returns tokens.
func (s *Service) Login(ctx context.Context, creds Credentials) (*TokenPair, *Account, error) {
	email := strings.ToLower(strings.TrimSpace(creds.Email))
	if email == "" || creds.Password == "" {
		return nil, nil, apperror.NewValidation("email and password are required")
	}

	account, err := s.accounts.GetByEmail(ctx, email)
	if err != nil {
		if apperror.IsNotFound(err) {
			return nil, nil, apperror.NewUnauthorized("invalid credentials")
		}
		return nil, nil, fmt.Errorf("get account: %w", err)
	}

	if err := bcrypt.CompareHashAndPassword([]byte(account.PasswordHash), []byte(creds.Password)); err != nil {
		logger.Warn(ctx, "login failed", "email", email)
		return nil, nil, apperror.NewUnauthorized("invalid credentials")
	}

	tokens, err := s.generateTokenPair(ctx, account, creds.UserAgent)
	if err != nil {
		return nil, nil, fmt.Errorf("generate tokens: %w", err)
	}

	logger.Info(ctx, "student logged in",
		"user_id", account.ID,
		"email", account.Email)

	return tokens, account, nil
}

// RefreshToken rotates a refresh token and issues a new pair.
func (s *Service) RefreshToken(ctx context.Context, refreshToken, userAgent string) (*TokenPair, error) {
	if refreshToken == "" {
		return nil, apperror.NewUnauthorized("refresh token is required")
	}

	var pair *TokenPair
	err := s.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		token, err := s.tokens.GetRefreshToken(ctx, hashToken(refreshToken))
		if err != nil {
			if apperror.IsNotFound(err) {
				return apperror.NewForbidden("invalid refresh token")
			}
			return fmt.Errorf("get refresh token: %w", err)
		}
		if !token.IsValid(s.now()) {
			return apperror.NewForbidden("refresh token expired or revoked")
		}

		account, err := s.accounts.GetByID(ctx, token.StudentID)
		if err != nil {
			if apperror.IsNotFound(err) {
				return apperror.NewForbidden("account no longer exists")
			}
			return fmt.Errorf("get account: %w", err)
		}

		if err := s.tokens.RevokeRefreshToken(ctx, token.ID, "refreshed"); err != nil {
			return fmt.Errorf("revoke refresh token: %w", err)
		}

		pair, err = s.generateTokenPair(ctx, account, userAgent)
		return err
	})
	if err != nil {
		return nil, err
	}
	return pair, nil
}

// Logout revokes every refresh token of the student.
func (s *Service) Logout(ctx context.Context, userID string) error {
	studentID, err := id.Parse(userID)
	if err != nil {
		return apperror.NewUnauthorized("invalid session")
	}
	if err := s.tokens.RevokeAllStudentTokens(ctx, studentID, "logout"); err != nil {
		return fmt.Errorf("revoke tokens: %w", err)
	}
	logger.Info(ctx, "student logged out", "user_id", userID)
	return nil
}

// CleanupExpiredTokens purges expired and long-revoked refresh tokens.
func (s *Service) CleanupExpiredTokens(ctx context.Context) (int, error) {
	n, err := s.tokens.CleanupExpiredTokens(ctx, s.now(), s.config.RevokedRetention)
	if err != nil {
		return 0, fmt.Errorf("cleanup tokens: %w", err)
	}
	return n, nil
}

// generateTokenPair creates access and refresh tokens.
func (s *Service) generateTokenPair(ctx context.Context, account *Account, userAgent string) (*TokenPair, error) {
	accessToken, expiresAt, err := s.jwtService.GenerateAccessToken(account.ID.String(), account.Email)
	if err != nil {
		return nil, fmt.Errorf("generate access token: %w", err)
	}

	refreshTokenRaw, err := generateRandomToken(32)
	if err != nil {
		return nil, fmt.Errorf("generate refresh token: %w", err)
	}

	now := s.now()
	refreshToken := &RefreshToken{
		ID:        id.New(),
		StudentID: account.ID,
		TokenHash: hashToken(refreshTokenRaw),
		ExpiresAt: now.Add(s.config.RefreshTokenExpiry),
		CreatedAt: now,
		UserAgent: userAgent,
	}

	if err := s.tokens.SaveRefreshToken(ctx, refreshToken); err != nil {
		return nil, fmt.Errorf("save refresh token: %w", err)
	}

	return &TokenPair{
		AccessToken:      accessToken,
		RefreshToken:     refreshTokenRaw,
		ExpiresAt:        expiresAt,
		RefreshExpiresAt: refreshToken.ExpiresAt,
		TokenType:        "Bearer",
	}, nil
}

// HashPassword hashes a password with bcrypt.
func HashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("hash password: %w", err)
	}
	return string(hash), nil
}

// hashToken creates SHA256 hash of token.
func hashToken(token string) string {
	hash := sha256.Sum256([]byte(token))
	return hex.EncodeToString(hash[:])
}

// generateRandomToken generates a random token string.
func generateRandomToken(length int) (string, error) {
	bytes := make([]byte, length)
	if _, err := rand.Read(bytes); err != nil {
		return "", err
	}
	return hex.EncodeToString(bytes), nil
}
