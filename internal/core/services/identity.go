package services

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
	"time"

	"github.com/prospect-labs/prospect-core/internal/core/domain"
)

// DefaultFreshnessWindow is how long a stored analysis may be reused before
// the profile must be re-fetched.
const DefaultFreshnessWindow = 24 * time.Hour

// IdentityPolicy derives canonical profile keys and decides cache validity.
// All methods are pure so identical inputs always yield identical keys -
// this is the correctness anchor for cache lookups and deduplication.
type IdentityPolicy struct {
	window time.Duration
}

// NewIdentityPolicy creates a policy with the default 24h freshness window.
func NewIdentityPolicy() *IdentityPolicy {
	return &IdentityPolicy{window: DefaultFreshnessWindow}
}

// NewIdentityPolicyWithWindow creates a policy with a custom window.
func NewIdentityPolicyWithWindow(window time.Duration) *IdentityPolicy {
	if window <= 0 {
		window = DefaultFreshnessWindow
	}
	return &IdentityPolicy{window: window}
}

// Window returns the freshness window.
func (p *IdentityPolicy) Window() time.Duration {
	return p.window
}

// Normalize reduces a raw profile URL or identifier to a canonical,
// comparison-stable key: scheme, query string, fragment, trailing slashes
// and a leading "www." are stripped, and the host is lower-cased. Path case
// is preserved. A bare identifier with no host passes through trimmed.
func (p *IdentityPolicy) Normalize(raw string) (string, error) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return "", domain.ErrInvalidInput
	}

	if i := strings.Index(s, "://"); i >= 0 {
		s = s[i+3:]
	}
	if i := strings.IndexAny(s, "?#"); i >= 0 {
		s = s[:i]
	}
	s = strings.TrimRight(s, "/")
	if s == "" {
		return "", domain.ErrInvalidInput
	}

	host, path, hasPath := strings.Cut(s, "/")
	host = strings.ToLower(host)
	host = strings.TrimPrefix(host, "www.")
	if !hasPath {
		return host, nil
	}
	return host + "/" + path, nil
}

// DeriveUserID combines the scraped profile ID and the canonical key into a
// deterministic, collision-resistant store identifier, so repeated analysis
// of one profile always targets the same document.
func (p *IdentityPolicy) DeriveUserID(profileID, canonicalKey string) string {
	sum := sha256.Sum256([]byte(profileID + "|" + canonicalKey))
	return "u" + hex.EncodeToString(sum[:])[:24]
}

// CheckFreshness decides whether a stored record may be reused at time now.
// A missing timestamp is invalid; so is a timestamp in the future (clock
// skew never counts as infinitely fresh).
func (p *IdentityPolicy) CheckFreshness(record *domain.UserObject, now time.Time) domain.Verdict {
	if record == nil || record.Timestamp.IsZero() {
		return domain.Verdict{Valid: false, Record: record}
	}
	age := now.Sub(record.Timestamp)
	if age < 0 || age >= p.window {
		return domain.Verdict{Valid: false, Record: record}
	}
	return domain.Verdict{Valid: true, Record: record}
}
