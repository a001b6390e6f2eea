package middleware

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/xelth-com/cspsgo/internal/apperr"
	"github.com/xelth-com/cspsgo/internal/models"
	"github.com/xelth-com/cspsgo/internal/workflow"
)

type contextKey string

const UserContextKey contextKey = "user"

// Authenticator resolves an access token to its user
type Authenticator interface {
	Authenticate(ctx context.Context, token string) (*models.UserAuth, error)
}

// AuthMiddleware verifies JWT bearer tokens and stores the caller in the
// request context. The websocket handshake may pass the token as ?token=.
func AuthMiddleware(auth Authenticator) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token, err := bearerToken(r)
			if err != nil {
				unauthorized(w, err)
				return
			}

			user, err := auth.Authenticate(r.Context(), token)
			if err != nil {
				unauthorized(w, err)
				return
			}

			ctx := context.WithValue(r.Context(), UserContextKey, user)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func bearerToken(r *http.Request) (string, error) {
	authHeader := r.Header.Get("Authorization")
	if authHeader == "" {
		if token := r.URL.Query().Get("token"); token != "" {
			return token, nil
		}
		return "", apperr.Unauthorized("authorization header required")
	}

	parts := strings.SplitN(authHeader, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") || parts[1] == "" {
		return "", apperr.Unauthorized("invalid authorization header format")
	}
	return parts[1], nil
}

func unauthorized(w http.ResponseWriter, err error) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(apperr.HTTPStatus(err))
	json.NewEncoder(w).Encode(map[string]string{"error": apperr.Message(err)})
}

// UserFromContext returns the authenticated user, if any
func UserFromContext(ctx context.Context) (*models.UserAuth, bool) {
	user, ok := ctx.Value(UserContextKey).(*models.UserAuth)
	return user, ok
}

// ActorFromContext returns the authenticated caller as a workflow actor
func ActorFromContext(ctx context.Context) (workflow.Actor, bool) {
	user, ok := UserFromContext(ctx)
	if !ok {
		return workflow.Actor{}, false
	}
	return workflow.Actor{ID: user.ID, Role: user.Role}, true
}
