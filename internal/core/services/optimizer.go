package services

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/prospect-labs/prospect-core/internal/core/domain"
	"github.com/prospect-labs/prospect-core/internal/core/ports/driven"
	"github.com/prospect-labs/prospect-core/internal/core/ports/driving"
)

// Ensure optimizerService implements OptimizerService
var _ driving.OptimizerService = (*optimizerService)(nil)

// optimizerService rewrites single profile sections and appends an
// optimization record to the owning user object.
type optimizerService struct {
	store  driven.Store
	ai     driven.AIService
	logger *slog.Logger
	now    func() time.Time
}

// NewOptimizerService creates the section optimizer.
func NewOptimizerService(store driven.Store, ai driven.AIService, logger *slog.Logger) driving.OptimizerService {
	if logger == nil {
		logger = slog.Default()
	}
	return &optimizerService{store: store, ai: ai, logger: logger, now: time.Now}
}

// OptimizeSection produces the rewritten content. The optimized text is the
// primary deliverable; recording it on the user object is best-effort, so a
// missing user or a failed write is logged, not surfaced.
func (s *optimizerService) OptimizeSection(ctx context.Context, userID, sectionName, content, language string) *domain.OptimizeResult {
	if sectionName == "" || content == "" {
		return &domain.OptimizeResult{
			Success: false,
			Message: "section name and content are required",
			Err:     domain.ErrInvalidInput,
		}
	}

	optimized, err := s.ai.GenerateOptimizedSection(ctx, content, sectionName, language)
	if err != nil {
		s.logger.Error("section optimization failed", "section", sectionName, "error", err)
		return &domain.OptimizeResult{
			Success: false,
			Message: "section optimization failed",
			Err:     fmt.Errorf("%w: %w", domain.ErrAIFailed, err),
		}
	}

	if userID != "" {
		if err := s.recordOptimization(ctx, userID, sectionName, content, optimized); err != nil {
			s.logger.Warn("could not record optimization", "user_id", userID, "section", sectionName, "error", err)
		}
	}

	return &domain.OptimizeResult{
		Success:   true,
		Section:   sectionName,
		Optimized: optimized,
	}
}

// recordOptimization appends the record and bumps the counter inside one
// transaction so concurrent optimizations never drop each other's entries.
func (s *optimizerService) recordOptimization(ctx context.Context, userID, section, original, optimized string) error {
	return s.store.RunTransaction(ctx, func(tx driven.Tx) error {
		doc, err := tx.Get(userID)
		if err != nil {
			return err
		}
		if doc == nil {
			return domain.ErrNotFound
		}
		user, err := domain.UserFromDocument(doc)
		if err != nil {
			return err
		}

		user.Optimizations = append(user.Optimizations, domain.Optimization{
			Section:   section,
			Original:  original,
			Optimized: optimized,
			CreatedAt: s.now(),
		})
		user.OptimizeCount++

		partial, err := fieldMap(map[string]any{
			"optimizations": user.Optimizations,
			"optimizeCount": user.OptimizeCount,
		})
		if err != nil {
			return err
		}
		return tx.Update(userID, partial)
	})
}
