package driving

import (
	"context"

	"github.com/prospect-labs/prospect-core/internal/core/domain"
)

// AnalysisService is the single driving operation of the analysis pipeline.
// Failures are reported in-band through the result object (Success false,
// typed Err), never as a fault past the boundary.
type AnalysisService interface {
	// Analyze ingests a profile identifier or URL, reusing a cached result
	// when one is fresh enough, and returns the profile, its score report
	// and the AI narrative. forceRefresh bypasses the cache entirely.
	Analyze(ctx context.Context, identifier, language string, forceRefresh bool) *domain.AnalysisResult
}

// OptimizerService rewrites single profile sections through the AI
// collaborator and records the optimization on the owning user object.
type OptimizerService interface {
	// OptimizeSection rewrites content for the named section. userID may be
	// empty, in which case no optimization record is kept.
	OptimizeSection(ctx context.Context, userID, sectionName, content, language string) *domain.OptimizeResult
}
