package handler

import (
	"net/http"

	"github.com/careerlift/backend/internal/contextkeys"
	"github.com/careerlift/backend/internal/domain"
	"github.com/careerlift/backend/internal/service"
)

// AuthHandler handles session endpoints.
type AuthHandler struct {
	auth *service.AuthService
}

// NewAuthHandler creates a new AuthHandler.
func NewAuthHandler(auth *service.AuthService) *AuthHandler {
	return &AuthHandler{auth: auth}
}

// Session handles POST /api/auth/session. It registers the caller on first
// sign-in and returns their user row.
func (h *AuthHandler) Session(w http.ResponseWriter, r *http.Request) {
	claims, ok := r.Context().Value(contextkeys.TokenClaims).(*domain.TokenClaims)
	if !ok {
		Error(w, domain.ErrUnauthorized("unauthorized"))
		return
	}

	user, err := h.auth.SyncSession(r.Context(), claims)
	if err != nil {
		Error(w, err)
		return
	}

	Success(w, http.StatusOK, map[string]any{"user": user})
}

// Me handles GET /api/auth/me.
func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	user, err := h.auth.GetUserByID(r.Context(), Caller(r).ID)
	if err != nil {
		Error(w, err)
		return
	}
	Success(w, http.StatusOK, map[string]any{"user": user})
}
