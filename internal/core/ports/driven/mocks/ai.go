package mocks

import (
	"context"
	"strings"
	"sync"

	"github.com/prospect-labs/prospect-core/internal/core/domain"
)

// MockAIService is a mock implementation of AIService for testing.
type MockAIService struct {
	mu sync.Mutex

	// Analysis is returned by GenerateAnalysis; a default is synthesized
	// when nil. AnalysisErr / OptimizeErr force failures.
	Analysis    *domain.AIAnalysis
	AnalysisErr error
	OptimizeErr error

	// Optimized is returned by GenerateOptimizedSection; defaults to the
	// upper-cased input so tests can see the content flowed through.
	Optimized string

	AnalysisCalls int
	OptimizeCalls int
}

// NewMockAIService creates a new MockAIService.
func NewMockAIService() *MockAIService {
	return &MockAIService{}
}

func (m *MockAIService) GenerateAnalysis(_ context.Context, _ *domain.ProfileRecord, language string) (*domain.AIAnalysis, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.AnalysisCalls++
	if m.AnalysisErr != nil {
		return nil, m.AnalysisErr
	}
	if m.Analysis != nil {
		clone := *m.Analysis
		return &clone, nil
	}
	return &domain.AIAnalysis{
		Summary:   "mock analysis",
		Strengths: []string{"clear headline"},
		Language:  language,
	}, nil
}

func (m *MockAIService) GenerateOptimizedSection(_ context.Context, content, _, _ string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.OptimizeCalls++
	if m.OptimizeErr != nil {
		return "", m.OptimizeErr
	}
	if m.Optimized != "" {
		return m.Optimized, nil
	}
	return strings.ToUpper(content), nil
}
