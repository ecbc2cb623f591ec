package service

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"strings"

	"github.com/careerlift/backend/internal/domain"
	"github.com/go-playground/validator/v10"
	"github.com/golang-jwt/jwt/v5"
)

// AuthService verifies session tokens issued by the identity provider and
// resolves them to users and roles.
type AuthService struct {
	jwtSecret string
	users     UserStore
	validate  *validator.Validate
	log       *slog.Logger
}

// NewAuthService creates a new AuthService.
func NewAuthService(jwtSecret string, users UserStore, log *slog.Logger) *AuthService {
	return &AuthService{
		jwtSecret: jwtSecret,
		users:     users,
		validate:  newValidator(),
		log:       log,
	}
}

// VerifyToken validates an HS256 token and returns its claims.
func (s *AuthService) VerifyToken(tokenStr string) (*domain.TokenClaims, error) {
	token, err := jwt.Parse(tokenStr, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return []byte(s.jwtSecret), nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		return nil, domain.ErrUnauthorized("invalid or expired token")
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok || !token.Valid {
		return nil, domain.ErrUnauthorized("invalid token claims")
	}

	email := strings.TrimSpace(getClaimString(claims, "email"))
	if email == "" {
		return nil, domain.ErrUnauthorized("token has no email claim")
	}
	return &domain.TokenClaims{
		Subject: getClaimString(claims, "sub"),
		Email:   strings.ToLower(email),
		Name:    getClaimString(claims, "name"),
	}, nil
}

func getClaimString(claims jwt.MapClaims, key string) string {
	if v, ok := claims[key].(string); ok {
		return v
	}
	return ""
}

// Authorize resolves a token to a caller and checks it against the allowed
// roles. An empty roles list admits any known user. Store failures surface as
// an error; every other failure is expressed in the returned Access.
func (s *AuthService) Authorize(ctx context.Context, token string, roles ...string) (domain.Access, error) {
	if token == "" {
		return domain.Access{Outcome: domain.AccessUnauthorized, Reason: "no token provided"}, nil
	}
	claims, err := s.VerifyToken(token)
	if err != nil {
		return domain.Access{Outcome: domain.AccessUnauthorized, Reason: "invalid or expired token"}, nil
	}

	user, err := s.users.FindByEmail(ctx, claims.Email)
	if err != nil {
		return domain.Access{}, domain.ErrInternal("failed to resolve user", err)
	}
	if user == nil {
		return domain.Access{Outcome: domain.AccessUnauthorized, Reason: "unknown user"}, nil
	}

	id := domain.IdentityOf(user)
	if len(roles) > 0 && !slices.Contains(roles, user.Role) {
		return domain.Access{Outcome: domain.AccessForbidden, Identity: id, Reason: "insufficient role"}, nil
	}
	return domain.Access{Outcome: domain.AccessGranted, Identity: id}, nil
}

// SyncSession records the caller on first sign-in as a job seeker. Existing
// users keep their role.
func (s *AuthService) SyncSession(ctx context.Context, claims *domain.TokenClaims) (*domain.User, error) {
	user, err := s.users.Upsert(ctx, &domain.User{
		ID:    domain.NewID(),
		Email: claims.Email,
		Name:  claims.Name,
		Role:  domain.RoleJobSeeker,
	})
	if err != nil {
		return nil, domain.ErrInternal("failed to sync user", err)
	}
	return user, nil
}

// GetUserByID returns a user profile by ID (for /api/auth/me).
func (s *AuthService) GetUserByID(ctx context.Context, id string) (*domain.User, error) {
	user, err := s.users.FindByID(ctx, id)
	if err != nil {
		return nil, domain.ErrInternal("failed to find user", err)
	}
	if user == nil {
		return nil, domain.ErrNotFound("user not found")
	}
	return user, nil
}

// ListUsers returns users, optionally narrowed to one role (admin only).
func (s *AuthService) ListUsers(ctx context.Context, role string) ([]*domain.User, error) {
	if role != "" && !domain.IsValidRole(role) {
		return nil, domain.ErrValidation(fmt.Sprintf("invalid role %q", role))
	}
	users, err := s.users.List(ctx, role)
	if err != nil {
		return nil, domain.ErrInternal("failed to list users", err)
	}
	return users, nil
}

// UpdateRole changes a user's role (admin only). Admins cannot demote themselves.
func (s *AuthService) UpdateRole(ctx context.Context, actor *domain.Identity, id string, req *domain.UpdateRoleRequest) (*domain.User, error) {
	if err := validateStruct(s.validate, req); err != nil {
		return nil, err
	}
	if actor != nil && actor.ID == id && req.Role != domain.RoleAdmin {
		return nil, domain.ErrBadRequest("admins cannot remove their own admin role")
	}

	user, err := s.users.UpdateRole(ctx, id, req.Role)
	if err != nil {
		return nil, domain.ErrInternal("failed to update role", err)
	}
	if user == nil {
		return nil, domain.ErrNotFound("user not found")
	}
	s.log.Info("user role changed", "user_id", id, "role", req.Role, "by", actorID(actor))
	return user, nil
}

func actorID(id *domain.Identity) string {
	if id == nil {
		return ""
	}
	return id.ID
}
