package service

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/careerlift/backend/internal/domain"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func signToken(t *testing.T, secret string, claims jwt.MapClaims) string {
	t.Helper()
	if _, ok := claims["exp"]; !ok {
		claims["exp"] = time.Now().Add(time.Hour).Unix()
	}
	tok, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
	require.NoError(t, err)
	return tok
}

func TestVerifyToken(t *testing.T) {
	h := newHarness(t)

	claims, err := h.auth.VerifyToken(signToken(t, "jwt-secret", jwt.MapClaims{"sub": "idp|1", "email": "Jane@Example.com", "name": "Jane"}))
	require.NoError(t, err)
	assert.Equal(t, "jane@example.com", claims.Email)
	assert.Equal(t, "Jane", claims.Name)

	_, err = h.auth.VerifyToken(signToken(t, "wrong-secret", jwt.MapClaims{"email": "jane@example.com"}))
	requireAppError(t, err, http.StatusUnauthorized)

	_, err = h.auth.VerifyToken(signToken(t, "jwt-secret", jwt.MapClaims{"email": "jane@example.com", "exp": time.Now().Add(-time.Minute).Unix()}))
	requireAppError(t, err, http.StatusUnauthorized)

	_, err = h.auth.VerifyToken(signToken(t, "jwt-secret", jwt.MapClaims{"sub": "idp|1"}))
	requireAppError(t, err, http.StatusUnauthorized)
}

func TestAuthorize_Outcomes(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	recruiter := h.db.AddUser(domain.RoleRecruiter, "rita@example.com", "Rita")
	recruiterToken := signToken(t, "jwt-secret", jwt.MapClaims{"email": recruiter.Email})

	access, err := h.auth.Authorize(ctx, "")
	require.NoError(t, err)
	assert.Equal(t, domain.AccessUnauthorized, access.Outcome)

	access, err = h.auth.Authorize(ctx, "garbage")
	require.NoError(t, err)
	assert.Equal(t, domain.AccessUnauthorized, access.Outcome)

	access, err = h.auth.Authorize(ctx, signToken(t, "jwt-secret", jwt.MapClaims{"email": "stranger@example.com"}))
	require.NoError(t, err)
	assert.Equal(t, domain.AccessUnauthorized, access.Outcome, "valid token without a user row")

	access, err = h.auth.Authorize(ctx, recruiterToken, domain.RoleAdmin)
	require.NoError(t, err)
	assert.Equal(t, domain.AccessForbidden, access.Outcome)

	access, err = h.auth.Authorize(ctx, recruiterToken, domain.RoleRecruiter, domain.RoleAdmin)
	require.NoError(t, err)
	assert.Equal(t, domain.AccessGranted, access.Outcome)
	assert.Equal(t, recruiter.ID, access.Identity.ID)
	assert.Equal(t, domain.RoleRecruiter, access.Identity.Role)

	access, err = h.auth.Authorize(ctx, recruiterToken)
	require.NoError(t, err)
	assert.Equal(t, domain.AccessGranted, access.Outcome, "no roles admits any user")
}

func TestSyncSession_NeverDowngrades(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	u, err := h.auth.SyncSession(ctx, &domain.TokenClaims{Email: "new@example.com", Name: "Newbie"})
	require.NoError(t, err)
	assert.Equal(t, domain.RoleJobSeeker, u.Role)

	again, err := h.auth.SyncSession(ctx, &domain.TokenClaims{Email: "new@example.com"})
	require.NoError(t, err)
	assert.Equal(t, u.ID, again.ID)
	assert.Equal(t, "Newbie", again.Name)

	admin, err := h.auth.SyncSession(ctx, &domain.TokenClaims{Email: h.admin.Email})
	require.NoError(t, err)
	assert.Equal(t, domain.RoleAdmin, admin.Role)
}

func TestUpdateRole(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	actor := domain.IdentityOf(h.admin)
	u := h.db.AddUser(domain.RoleJobSeeker, "rita@example.com", "Rita")

	updated, err := h.auth.UpdateRole(ctx, actor, u.ID, &domain.UpdateRoleRequest{Role: domain.RoleRecruiter})
	require.NoError(t, err)
	assert.Equal(t, domain.RoleRecruiter, updated.Role)

	recruiters, err := h.auth.ListUsers(ctx, domain.RoleRecruiter)
	require.NoError(t, err)
	require.Len(t, recruiters, 1)
	assert.Equal(t, u.ID, recruiters[0].ID)

	_, err = h.auth.UpdateRole(ctx, actor, u.ID, &domain.UpdateRoleRequest{Role: "superuser"})
	requireAppError(t, err, http.StatusBadRequest)

	_, err = h.auth.UpdateRole(ctx, actor, "missing", &domain.UpdateRoleRequest{Role: domain.RoleRecruiter})
	requireAppError(t, err, http.StatusNotFound)

	_, err = h.auth.UpdateRole(ctx, actor, h.admin.ID, &domain.UpdateRoleRequest{Role: domain.RoleJobSeeker})
	requireAppError(t, err, http.StatusBadRequest)

	_, err = h.auth.ListUsers(ctx, "wizard")
	requireAppError(t, err, http.StatusBadRequest)
}
