package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"recordhub/internal/core/apperror"
	"recordhub/internal/domain/auth"
	"recordhub/internal/infrastructure/http/v1/dto"
	"recordhub/internal/infrastructure/http/v1/middleware"
)

// RefreshTokenCookie holds the refresh token between requests.
const RefreshTokenCookie = "refresh_token"

// AuthService is implemented by auth.Service.
type AuthService interface {
	Login(ctx context.Context, creds auth.Credentials) (*auth.TokenPair, *auth.Account, error)
	RefreshToken(ctx context.Context, refreshToken, userAgent string) (*auth.TokenPair, error)
	Logout(ctx context.Context, userID string) error
}

// CookieConfig controls the auth cookies.
type CookieConfig struct {
	Secure bool
	Domain string
}

// AuthHandler handles authentication endpoints.
type AuthHandler struct {
	*BaseHandler
	service AuthService
	cookies CookieConfig
	now     func() time.Time
}

// NewAuthHandler creates a new auth handler.
func NewAuthHandler(base *BaseHandler, service AuthService, cookies CookieConfig) *AuthHandler {
	return &AuthHandler{
		BaseHandler: base,
		service:     service,
		cookies:     cookies,
		now:         time.Now,
	}
}

// Login handles POST /auth/login
func (h *AuthHandler) Login(c *gin.Context) {
	var req dto.LoginRequest
	if !h.BindJSON(c, &req) {
		return
	}

	tokens, account, err := h.service.Login(c.Request.Context(), req.ToCredentials(c.Request.UserAgent()))
	if err != nil {
		h.Error(c, err)
		return
	}

	h.setCookie(c, middleware.AccessTokenCookie, tokens.AccessToken, tokens.ExpiresAt)
	h.setCookie(c, RefreshTokenCookie, tokens.RefreshToken, tokens.RefreshExpiresAt)
	h.OK(c, dto.LoginResponse{
		Tokens:  dto.FromTokenPair(tokens),
		Student: dto.FromAccount(account),
	})
}

// Refresh handles POST /auth/refresh. The token is read from the body, then the cookie.
func (h *AuthHandler) Refresh(c *gin.Context) {
	var req dto.RefreshTokenRequest
	if c.Request.ContentLength > 0 {
		if !h.BindJSON(c, &req) {
			return
		}
	}
	token := req.RefreshToken
	if token == "" {
		token, _ = c.Cookie(RefreshTokenCookie)
	}
	if token == "" {
		h.Error(c, apperror.NewUnauthorized("refresh token required"))
		return
	}

	tokens, err := h.service.RefreshToken(c.Request.Context(), token, c.Request.UserAgent())
	if err != nil {
		h.clearCookies(c)
		h.Error(c, err)
		return
	}

	h.setCookie(c, middleware.AccessTokenCookie, tokens.AccessToken, tokens.ExpiresAt)
	h.setCookie(c, RefreshTokenCookie, tokens.RefreshToken, tokens.RefreshExpiresAt)
	h.OK(c, dto.FromTokenPair(tokens))
}

// Logout handles POST /auth/logout
func (h *AuthHandler) Logout(c *gin.Context) {
	if err := h.service.Logout(c.Request.Context(), h.GetUserID(c)); err != nil {
		h.Error(c, err)
		return
	}
	h.clearCookies(c)
	h.Success(c, "logged out")
}

func (h *AuthHandler) setCookie(c *gin.Context, name, value string, expires time.Time) {
	maxAge := int(expires.Sub(h.now()).Seconds())
	if maxAge <= 0 {
		maxAge = -1
	}
	c.SetSameSite(http.SameSiteStrictMode)
	c.SetCookie(name, value, maxAge, "/", h.cookies.Domain, h.cookies.Secure, true)
}

func (h *AuthHandler) clearCookies(c *gin.Context) {
	c.SetSameSite(http.SameSiteStrictMode)
	c.SetCookie(middleware.AccessTokenCookie, "", -1, "/", h.cookies.Domain, h.cookies.Secure, true)
	c.SetCookie(RefreshTokenCookie, "", -1, "/", h.cookies.Domain, h.cookies.Secure, true)
}

// RegisterRoutes registers auth routes.
func (h *AuthHandler) RegisterRoutes(public, protected *gin.RouterGroup) {
	public.POST("/login", h.Login)
	public.POST("/refresh", h.Refresh)

	protected.POST("/logout", h.Logout)
}
