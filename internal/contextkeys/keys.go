package contextkeys

// contextKey is an unexported type for context keys to prevent collisions.
type contextKey string

const (
	// Identity is the context key for the resolved caller (*domain.Identity).
	Identity contextKey = "identity"
	// TokenClaims is the context key for verified token claims on routes
	// that do not require a user row (*domain.TokenClaims).
	TokenClaims contextKey = "tokenClaims"
)
