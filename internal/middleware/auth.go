package middleware

import (
	"context"
	"log/slog"
	"net/http"
	"strings"

	"github.com/careerlift/backend/internal/contextkeys"
	"github.com/careerlift/backend/internal/domain"
	"github.com/careerlift/backend/internal/handler"
)

// Authorizer resolves a bearer token to an access decision.
type Authorizer interface {
	Authorize(ctx context.Context, token string, roles ...string) (domain.Access, error)
}

// TokenVerifier validates a bearer token without requiring a user row.
type TokenVerifier interface {
	VerifyToken(token string) (*domain.TokenClaims, error)
}

// RequireRole admits callers whose role is one of roles (any role when empty)
// and stores their *domain.Identity in the request context. Denials are
// logged at debug level on log.
func RequireRole(authz Authorizer, log *slog.Logger, roles ...string) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			access, err := authz.Authorize(r.Context(), bearerToken(r), roles...)
			if err != nil {
				handler.Error(w, err)
				return
			}

			switch access.Outcome {
			case domain.AccessGranted:
				ctx := context.WithValue(r.Context(), contextkeys.Identity, access.Identity)
				next.ServeHTTP(w, r.WithContext(ctx))
			case domain.AccessForbidden:
				log.Debug("access denied", "user_id", access.Identity.ID, "role", access.Identity.Role, "path", r.URL.Path)
				handler.JSON(w, http.StatusForbidden, map[string]string{"error": "forbidden"})
			default:
				handler.JSON(w, http.StatusUnauthorized, map[string]string{"error": "unauthorized"})
			}
		})
	}
}

// RequireToken admits any caller with a valid token, even one with no user
// row yet, and stores the *domain.TokenClaims in the request context.
func RequireToken(verifier TokenVerifier) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := bearerToken(r)
			if token == "" {
				handler.JSON(w, http.StatusUnauthorized, map[string]string{"error": "no token provided"})
				return
			}
			claims, err := verifier.VerifyToken(token)
			if err != nil {
				handler.Error(w, err)
				return
			}
			ctx := context.WithValue(r.Context(), contextkeys.TokenClaims, claims)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// bearerToken extracts the token from "Authorization: Bearer <token>".
func bearerToken(r *http.Request) string {
	parts := strings.SplitN(r.Header.Get("Authorization"), " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") {
		return ""
	}
	return strings.TrimSpace(parts[1])
}
