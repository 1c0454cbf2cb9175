package dto

import (
	"time"

	"recordhub/internal/domain/auth"
)

// LoginRequest for student login.
type LoginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

// ToCredentials converts to domain credentials.
func (r *LoginRequest) ToCredentials(userAgent string) auth.Credentials {
	return auth.Credentials{
		Email:     r.Email,
		Password:  r.Password,
		UserAgent: userAgent,
	}
}

// RefreshTokenRequest for token refresh. The token may come from the cookie instead.
type RefreshTokenRequest struct {
	RefreshToken string `json:"refresh_token"`
}

// TokenResponse represents token pair response.
type TokenResponse struct {
	AccessToken  string    `json:"access_token"`
	RefreshToken string    `json:"refresh_token"`
	ExpiresAt    time.Time `json:"expires_at"`
	TokenType    string    `json:"token_type"`
}

// FromTokenPair creates response from domain token pair.
func FromTokenPair(tp *auth.TokenPair) *TokenResponse {
	return &TokenResponse{
		AccessToken:  tp.AccessToken,
		RefreshToken: tp.RefreshToken,
		ExpiresAt:    tp.ExpiresAt,
		TokenType:    tp.TokenType,
	}
}

// LoginResponse includes tokens and the logged in account.
type LoginResponse struct {
	Tokens  *TokenResponse  `json:"tokens"`
	Student AccountResponse `json:"student"`
}

// AccountResponse identifies the logged in student.
type AccountResponse struct {
	ID    string `json:"id"`
	Email string `json:"email"`
}

// FromAccount creates response from domain account.
func FromAccount(a *auth.Account) AccountResponse {
	return AccountResponse{ID: a.ID.String(), Email: a.Email}
}
