package handlers

import (
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"golang.org/x/crypto/bcrypt"

	"github.com/loreline/loreline/internal/auth"
	"github.com/loreline/loreline/internal/config"
)

// AuthHandler serves /auth/login and issues JWTs for the operator account.
type AuthHandler struct {
	admin     config.AdminConfig
	jwtSecret string
	expiresIn time.Duration
	logger    *slog.Logger
}

// LoginRequest is the body for POST /auth/login.
type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// LoginResponse is the success body (access_token, expires_at).
type LoginResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
	ExpiresAt   string `json:"expires_at"`
	Username    string `json:"username"`
}

// NewAuthHandler creates an auth handler bound to the configured operator account.
func NewAuthHandler(log *slog.Logger, admin config.AdminConfig, jwtSecret string, expiresIn time.Duration) *AuthHandler {
	return &AuthHandler{
		admin:     admin,
		jwtSecret: jwtSecret,
		expiresIn: expiresIn,
		logger:    log.With(slog.String("handler", "auth")),
	}
}

// Register mounts POST /auth/login on the Echo instance.
func (h *AuthHandler) Register(e *echo.Echo) {
	e.POST("/auth/login", h.Login)
}

// Login validates the operator credentials and issues a JWT.
func (h *AuthHandler) Login(c echo.Context) error {
	if strings.TrimSpace(h.jwtSecret) == "" {
		return echo.NewHTTPError(http.StatusInternalServerError, "jwt secret not configured")
	}
	if h.expiresIn <= 0 {
		return echo.NewHTTPError(http.StatusInternalServerError, "jwt expiry not configured")
	}

	var req LoginRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	req.Username = strings.TrimSpace(req.Username)
	if req.Username == "" || strings.TrimSpace(req.Password) == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "username and password are required")
	}
	if req.Username != strings.TrimSpace(h.admin.Username) || !h.checkPassword(req.Password) {
		return echo.NewHTTPError(http.StatusUnauthorized, "invalid credentials")
	}

	token, expiresAt, err := auth.GenerateToken(req.Username, h.jwtSecret, h.expiresIn)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, LoginResponse{
		AccessToken: token,
		TokenType:   "Bearer",
		ExpiresAt:   expiresAt.Format(time.RFC3339),
		Username:    req.Username,
	})
}

// checkPassword accepts either a bcrypt hash or a plain value in config; a
// hash is recognized by its prefix.
func (h *AuthHandler) checkPassword(password string) bool {
	stored := strings.TrimSpace(h.admin.Password)
	if stored == "" {
		return false
	}
	if strings.HasPrefix(stored, "$2a$") || strings.HasPrefix(stored, "$2b$") {
		return bcrypt.CompareHashAndPassword([]byte(stored), []byte(password)) == nil
	}
	return stored == password
}
