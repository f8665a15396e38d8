package driven

import (
	"context"

	"github.com/prospect-labs/prospect-core/internal/core/domain"
)

// AIService produces generative narratives for profiles. Failures surface as
// errors wrapping domain.ErrAIFailed; the service enforces its own timeout.
type AIService interface {
	// GenerateAnalysis produces a structured narrative report for the
	// profile in the requested language.
	GenerateAnalysis(ctx context.Context, profile *domain.ProfileRecord, language string) (*domain.AIAnalysis, error)

	// GenerateOptimizedSection rewrites one profile section's content.
	GenerateOptimizedSection(ctx context.Context, content, sectionName, language string) (string, error)
}
