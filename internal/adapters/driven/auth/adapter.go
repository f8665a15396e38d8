// Package auth implements API-token authentication with bcrypt and JWT.
package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"

	"github.com/prospect-labs/prospect-core/internal/core/domain"
	"github.com/prospect-labs/prospect-core/internal/core/ports/driven"
)

// Ensure Adapter implements AuthAdapter
var _ driven.AuthAdapter = (*Adapter)(nil)

// jwtClaims wraps driven.TokenClaims for JWT compatibility.
type jwtClaims struct {
	Admin bool `json:"admin"`
	jwt.RegisteredClaims
}

// Adapter mints and validates tokens. Clients present the shared API secret
// once and work with short-lived JWTs from then on.
type Adapter struct {
	jwtSecret  []byte
	secretHash string // bcrypt hash of the API secret
	tokenTTL   time.Duration
}

// Config holds auth adapter configuration.
type Config struct {
	// JWTSecret signs issued tokens.
	JWTSecret string

	// APISecretHash is the bcrypt hash of the API secret clients exchange
	// for a token. Empty disables secret verification for local development;
	// admin tokens are refused while verification is off.
	APISecretHash string

	// TokenTTL bounds token lifetime. Defaults to 24h.
	TokenTTL time.Duration
}

// NewAdapter creates an auth adapter.
func NewAdapter(cfg Config) *Adapter {
	ttl := cfg.TokenTTL
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &Adapter{
		jwtSecret:  []byte(cfg.JWTSecret),
		secretHash: cfg.APISecretHash,
		tokenTTL:   ttl,
	}
}

// HashSecret generates a bcrypt hash for an API secret; used by deployment
// tooling to produce the configured hash.
func HashSecret(secret string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(secret), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}

// VerifySecret checks a presented secret against the configured hash.
func (a *Adapter) VerifySecret(secret string) bool {
	if a.secretHash == "" {
		return true
	}
	return bcrypt.CompareHashAndPassword([]byte(a.secretHash), []byte(secret)) == nil
}

// SecretConfigured reports whether secret verification is enabled.
func (a *Adapter) SecretConfigured() bool {
	return a.secretHash != ""
}

// GenerateToken creates a signed JWT for the subject.
func (a *Adapter) GenerateToken(subject string, admin bool) (string, error) {
	now := time.Now()
	claims := jwtClaims{
		Admin: admin,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   subject,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(a.tokenTTL)),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(a.jwtSecret)
}

// ParseToken validates a JWT and extracts its claims.
func (a *Adapter) ParseToken(tokenString string) (*driven.TokenClaims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &jwtClaims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return a.jwtSecret, nil
	})
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, domain.ErrTokenExpired
		}
		return nil, domain.ErrTokenInvalid
	}

	claims, ok := token.Claims.(*jwtClaims)
	if !ok || !token.Valid {
		return nil, domain.ErrTokenInvalid
	}

	out := &driven.TokenClaims{
		Subject: claims.Subject,
		Admin:   claims.Admin,
	}
	if claims.IssuedAt != nil {
		out.IssuedAt = claims.IssuedAt.Unix()
	}
	if claims.ExpiresAt != nil {
		out.ExpiresAt = claims.ExpiresAt.Unix()
	}
	return out, nil
}
