// Package middleware provides HTTP middlewares for bearer authentication,
// role checks and request logging.
package middleware

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"go.uber.org/zap"

	"github.com/atinyakov/ProjectMarket/internal/logger"
	"github.com/atinyakov/ProjectMarket/internal/models"
	"github.com/atinyakov/ProjectMarket/internal/service"
)

type ctxKey string

const (
	userKey  ctxKey = "user"
	tokenKey ctxKey = "token"
)

const (
	msgTokenMissing = "Not authenticated: Bearer token missing."
	msgTokenInvalid = "Invalid or expired token."
)

// TokenResolver maps an access token to its user. It returns
// service.ErrInvalidToken for unknown or expired tokens.
type TokenResolver interface {
	Authenticate(ctx context.Context, token string) (models.User, error)
}

// BearerAuth is a middleware that requires an "Authorization: Bearer <token>"
// header naming a live session.
//
// On success the user and the token are stored in the request context; see
// UserFromContext and TokenFromContext.
func BearerAuth(resolver TokenResolver, log *zap.Logger) func(http.Handler) http.Handler {
	log = logger.OrNop(log)
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token, ok := bearerToken(r.Header.Get("Authorization"))
			if !ok {
				writeDetail(w, http.StatusUnauthorized, msgTokenMissing)
				return
			}

			user, err := resolver.Authenticate(r.Context(), token)
			if errors.Is(err, service.ErrInvalidToken) {
				writeDetail(w, http.StatusUnauthorized, msgTokenInvalid)
				return
			}
			if err != nil {
				log.Error("failed to resolve token", zap.Error(err))
				writeDetail(w, http.StatusInternalServerError, "internal error")
				return
			}

			ctx := context.WithValue(r.Context(), userKey, user)
			ctx = context.WithValue(ctx, tokenKey, token)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RequireRole is a middleware that lets through only users with the given
// role. It must run after BearerAuth. message is the 403 detail.
func RequireRole(role models.Role, message string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			user, ok := UserFromContext(r.Context())
			if !ok {
				writeDetail(w, http.StatusUnauthorized, msgTokenMissing)
				return
			}
			if user.Role != role {
				writeDetail(w, http.StatusForbidden, message)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// UserFromContext returns the user stored by BearerAuth.
func UserFromContext(ctx context.Context) (models.User, bool) {
	u, ok := ctx.Value(userKey).(models.User)
	return u, ok
}

// TokenFromContext returns the access token stored by BearerAuth, or an
// empty string if there is none.
func TokenFromContext(ctx context.Context) string {
	s, _ := ctx.Value(tokenKey).(string)
	return s
}

func bearerToken(header string) (string, bool) {
	scheme, token, ok := strings.Cut(strings.TrimSpace(header), " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return "", false
	}
	token = strings.TrimSpace(token)
	return token, token != ""
}

func writeDetail(w http.ResponseWriter, status int, detail string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]string{"detail": detail})
}
