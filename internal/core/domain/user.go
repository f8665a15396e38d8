package domain

import (
	"encoding/json"
	"fmt"
	"time"
)

// UserObject is the aggregate persisted per profile identity. It is created
// on the first successful fetch of a profile and updated in place on every
// subsequent analysis of the same identity - never duplicated, never deleted
// by the analysis pipeline.
type UserObject struct {
	UserID        string         `json:"userId"`
	ProfileKey    string         `json:"profileKey"` // canonical key, the cache lookup anchor
	Profile       *ProfileRecord `json:"profile"`
	Analysis      *AIAnalysis    `json:"analysis,omitempty"`
	Optimizations []Optimization `json:"optimizations,omitempty"`
	AnalyzeCount  int            `json:"analyzeCount"`
	OptimizeCount int            `json:"optimizeCount"`
	Timestamp     time.Time      `json:"timestamp"` // last successful analysis
}

// Optimization is one prior content-optimization record.
type Optimization struct {
	Section   string    `json:"section"`
	Original  string    `json:"original"`
	Optimized string    `json:"optimized"`
	CreatedAt time.Time `json:"createdAt"`
}

// AIAnalysis is the generative narrative attached to a UserObject. The
// analysis pipeline treats it as an opaque payload produced by the AI
// collaborator; only the transport layer ever renders it.
type AIAnalysis struct {
	Summary         string            `json:"summary,omitempty"`
	Strengths       []string          `json:"strengths,omitempty"`
	Weaknesses      []string          `json:"weaknesses,omitempty"`
	Recommendations map[string]string `json:"recommendations,omitempty"` // keyed by section
	Keywords        *KeywordAnalysis  `json:"keywords,omitempty"`
	Language        string            `json:"language,omitempty"`
}

// KeywordAnalysis lists keywords found on and missing from the profile.
type KeywordAnalysis struct {
	Present []string `json:"present,omitempty"`
	Missing []string `json:"missing,omitempty"`
}

// Verdict is the ephemeral result of a freshness check.
type Verdict struct {
	Valid  bool
	Record *UserObject
}

// Fields flattens the user object into a document field map for persistence.
func (u *UserObject) Fields() (map[string]any, error) {
	data, err := json.Marshal(u)
	if err != nil {
		return nil, fmt.Errorf("encode user object: %w", err)
	}
	var fields map[string]any
	if err := json.Unmarshal(data, &fields); err != nil {
		return nil, fmt.Errorf("encode user object: %w", err)
	}
	return fields, nil
}

// UserFromDocument rebuilds a UserObject from a stored document.
func UserFromDocument(doc *Document) (*UserObject, error) {
	if doc == nil {
		return nil, ErrNotFound
	}
	data, err := json.Marshal(doc.Fields)
	if err != nil {
		return nil, fmt.Errorf("decode user object %s: %w", doc.ID, err)
	}
	var u UserObject
	if err := json.Unmarshal(data, &u); err != nil {
		return nil, fmt.Errorf("decode user object %s: %w", doc.ID, err)
	}
	if u.UserID == "" {
		u.UserID = doc.ID
	}
	return &u, nil
}

// AnalysisResult is the caller-visible outcome of one analyze operation.
// Failures are reported in-band: Success is false, Message is human-readable
// and Err carries the typed cause - the service never panics past its
// boundary.
type AnalysisResult struct {
	Success    bool           `json:"success"`
	Message    string         `json:"message,omitempty"`
	Profile    *ProfileRecord `json:"profile,omitempty"`
	Analysis   *AIAnalysis    `json:"analysis,omitempty"`
	Score      *ScoreReport   `json:"scoreReport,omitempty"`
	Cached     bool           `json:"cached"`
	Timestamp  time.Time      `json:"timestamp,omitempty"`
	Err        error          `json:"-"`
}

// OptimizeResult is the caller-visible outcome of one section optimization.
type OptimizeResult struct {
	Success   bool   `json:"success"`
	Message   string `json:"message,omitempty"`
	Section   string `json:"section,omitempty"`
	Optimized string `json:"optimized,omitempty"`
	Err       error  `json:"-"`
}
