package driven

// TokenClaims is what an auth token carries once validated.
type TokenClaims struct {
	Subject   string
	IssuedAt  int64
	ExpiresAt int64
	Admin     bool
}

// AuthAdapter mints and validates API tokens and verifies the shared API
// secret clients exchange for one.
type AuthAdapter interface {
	// VerifySecret checks a presented secret against the configured hash.
	VerifySecret(secret string) bool

	// SecretConfigured reports whether a secret hash is configured at all.
	// With verification disabled, callers must not mint privileged tokens.
	SecretConfigured() bool

	// GenerateToken creates a signed token for the subject.
	GenerateToken(subject string, admin bool) (string, error)

	// ParseToken validates a token and extracts its claims. Expired tokens
	// fail with domain.ErrTokenExpired, malformed ones with
	// domain.ErrTokenInvalid.
	ParseToken(token string) (*TokenClaims, error)
}
