package http

import (
	"context"
	"errors"
	"net/http"

	"go.uber.org/zap"

	"github.com/atinyakov/ProjectMarket/internal/logger"
	"github.com/atinyakov/ProjectMarket/internal/middleware"
	"github.com/atinyakov/ProjectMarket/internal/models"
	"github.com/atinyakov/ProjectMarket/internal/service"
)

// AuthService defines the account operations required by AuthHandler.
type AuthService interface {
	Register(ctx context.Context, name, email, password string, role models.Role) (models.UserProfile, error)
	Login(ctx context.Context, email, password string) (string, models.UserProfile, error)
	Logout(ctx context.Context, token string) error
}

// AuthHandler handles registration, login and logout.
type AuthHandler struct {
	// AuthService performs the underlying account operations.
	AuthService AuthService
	Log         *zap.Logger
}

// NewAuthHandler creates an AuthHandler over svc.
func NewAuthHandler(svc AuthService, log *zap.Logger) *AuthHandler {
	return &AuthHandler{AuthService: svc, Log: logger.OrNop(log)}
}

// RegisterRequest is the JSON payload of POST /auth/register.
type RegisterRequest struct {
	Name     string      `json:"name" validate:"notblank"`
	Email    string      `json:"email" validate:"notblank,email"`
	Password string      `json:"password" validate:"notblank"`
	Role     models.Role `json:"role" validate:"oneof=student teacher examiner"`
}

// LoginRequest is the JSON payload of POST /auth/login.
type LoginRequest struct {
	Email    string `json:"email" validate:"notblank"`
	Password string `json:"password" validate:"notblank"`
}

// loginUser is the profile returned by login. It repeats the token so that
// clients reading it from the user object keep working.
type loginUser struct {
	models.UserProfile
	AccessToken string `json:"access_token"`
}

// Register creates an account. It answers 400 with a detail for invalid
// input or a taken e-mail.
func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req RegisterRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	profile, err := h.AuthService.Register(r.Context(), req.Name, req.Email, req.Password, req.Role)
	if errors.Is(err, service.ErrEmailTaken) {
		writeError(w, http.StatusBadRequest, "User with this email already exists")
		return
	}
	if err != nil {
		h.Log.Error("failed to register user", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"message": "User created successfully",
		"user":    profile,
	})
}

// Login exchanges credentials for an access token.
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	token, profile, err := h.AuthService.Login(r.Context(), req.Email, req.Password)
	if errors.Is(err, service.ErrInvalidCredentials) {
		writeError(w, http.StatusUnauthorized, "Invalid email or password")
		return
	}
	if err != nil {
		h.Log.Error("failed to log in", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"message":      "Login successful",
		"access_token": token,
		"user":         loginUser{UserProfile: profile, AccessToken: token},
	})
}

// Logout revokes the request's access token. It must run behind
// middleware.BearerAuth.
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	if err := h.AuthService.Logout(r.Context(), middleware.TokenFromContext(r.Context())); err != nil {
		h.Log.Error("failed to log out", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "Logged out successfully"})
}
