package services

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/prospect-labs/prospect-core/internal/core/domain"
	"github.com/prospect-labs/prospect-core/internal/core/ports/driven"
	"github.com/prospect-labs/prospect-core/internal/core/ports/driving"
)

// Ensure analysisService implements AnalysisService
var _ driving.AnalysisService = (*analysisService)(nil)

// analysisService composes the cache lookup, freshness check, external
// fetch, scoring and persistence into the single analyze operation.
type analysisService struct {
	store    driven.Store
	scraper  driven.ProfileScraper
	ai       driven.AIService
	identity *IdentityPolicy
	logger   *slog.Logger
	now      func() time.Time
}

// AnalysisConfig holds the collaborators of the analysis service.
type AnalysisConfig struct {
	Store    driven.Store
	Scraper  driven.ProfileScraper
	AI       driven.AIService
	Identity *IdentityPolicy // defaults to NewIdentityPolicy()
	Logger   *slog.Logger    // defaults to slog.Default()
	Now      func() time.Time
}

// NewAnalysisService creates the analysis orchestrator.
func NewAnalysisService(cfg AnalysisConfig) driving.AnalysisService {
	identity := cfg.Identity
	if identity == nil {
		identity = NewIdentityPolicy()
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	now := cfg.Now
	if now == nil {
		now = time.Now
	}
	return &analysisService{
		store:    cfg.Store,
		scraper:  cfg.Scraper,
		ai:       cfg.AI,
		identity: identity,
		logger:   logger,
		now:      now,
	}
}

// Analyze runs the cache-aside analysis pipeline. Cache hits are never
// re-scraped but may still incur one AI call when no narrative was stored;
// misses and forced refreshes scrape, score, enrich and upsert exactly once.
// Nothing is persisted on any failure path.
func (s *analysisService) Analyze(ctx context.Context, identifier, language string, forceRefresh bool) *domain.AnalysisResult {
	if identifier == "" {
		return failResult(domain.ErrInvalidInput, "profile identifier is required")
	}

	key, err := s.identity.Normalize(identifier)
	if err != nil {
		return failResult(err, "profile identifier is not usable")
	}

	existing, err := s.lookup(ctx, key)
	if err != nil {
		s.logger.Error("profile lookup failed", "key", key, "error", err)
		return failResult(err, "profile lookup failed")
	}

	// A record without a stored profile cannot be scored or backfilled;
	// treat it as a miss and rebuild it.
	if !forceRefresh && existing != nil && existing.Profile != nil {
		if verdict := s.identity.CheckFreshness(existing, s.now()); verdict.Valid {
			return s.serveCached(ctx, existing, language)
		}
	}

	return s.refresh(ctx, identifier, key, existing, language)
}

// lookup finds a stored user object by canonical key, nil when absent.
func (s *analysisService) lookup(ctx context.Context, key string) (*domain.UserObject, error) {
	res, err := s.store.Query(ctx, domain.QueryOptions{
		Filters: []domain.Filter{{Field: "profileKey", Op: domain.FilterEq, Value: key}},
		Limit:   1,
	})
	if err != nil {
		return nil, err
	}
	if len(res.Data) == 0 {
		return nil, nil
	}
	return domain.UserFromDocument(res.Data[0])
}

// serveCached handles a fresh cache hit: the score is recomputed from the
// stored profile, and a missing narrative is backfilled with one AI call.
// Persisting the backfilled narrative is best-effort - the stored profile is
// already valid, so a failed secondary save is logged and swallowed.
func (s *analysisService) serveCached(ctx context.Context, record *domain.UserObject, language string) *domain.AnalysisResult {
	report := Score(record.Profile)

	analysis := record.Analysis
	if analysis == nil {
		generated, err := s.ai.GenerateAnalysis(ctx, record.Profile, language)
		if err != nil {
			s.logger.Error("narrative backfill failed", "user_id", record.UserID, "error", err)
			return failResult(fmt.Errorf("%w: %w", domain.ErrAIFailed, err), "analysis generation failed")
		}
		analysis = generated

		partial, err := fieldMap(map[string]any{"analysis": analysis})
		if err == nil {
			_, err = s.store.Update(ctx, record.UserID, partial)
		}
		if err != nil {
			s.logger.Warn("could not persist backfilled narrative", "user_id", record.UserID, "error", err)
		}
	}

	s.logger.Info("analysis served from cache", "user_id", record.UserID, "grade", report.Grade)
	return &domain.AnalysisResult{
		Success:   true,
		Profile:   record.Profile,
		Analysis:  analysis,
		Score:     report,
		Cached:    true,
		Timestamp: record.Timestamp,
	}
}

// refresh is the cache-miss / forced-refresh path: scrape, score, enrich,
// then persist everything as one idempotent upsert keyed by the derived
// user ID. Any failure before the upsert leaves the store untouched.
func (s *analysisService) refresh(ctx context.Context, identifier, key string, existing *domain.UserObject, language string) *domain.AnalysisResult {
	profile, err := s.scraper.FetchProfile(ctx, identifier)
	if err != nil {
		s.logger.Error("profile fetch failed", "key", key, "error", err)
		return failResult(err, "profile fetch failed")
	}
	if profile.InputURL == "" {
		profile.InputURL = identifier
	}

	report := Score(profile)

	analysis, err := s.ai.GenerateAnalysis(ctx, profile, language)
	if err != nil {
		s.logger.Error("narrative generation failed", "key", key, "error", err)
		return failResult(fmt.Errorf("%w: %w", domain.ErrAIFailed, err), "analysis generation failed")
	}

	now := s.now()
	user := &domain.UserObject{
		UserID:       s.identity.DeriveUserID(profile.ProfileID, key),
		ProfileKey:   key,
		Profile:      profile,
		Analysis:     analysis,
		AnalyzeCount: 1,
		Timestamp:    now,
	}
	if existing != nil {
		user.AnalyzeCount = existing.AnalyzeCount + 1
		user.OptimizeCount = existing.OptimizeCount
		user.Optimizations = existing.Optimizations
	}

	fields, err := user.Fields()
	if err != nil {
		return failResult(err, "could not encode analysis result")
	}
	if _, err := s.store.SaveOrUpdate(ctx, user.UserID, fields); err != nil {
		s.logger.Error("failed to persist analysis", "user_id", user.UserID, "error", err)
		return failResult(err, "failed to persist analysis")
	}

	s.logger.Info("analysis complete", "user_id", user.UserID, "grade", report.Grade, "analyze_count", user.AnalyzeCount)
	return &domain.AnalysisResult{
		Success:   true,
		Profile:   profile,
		Analysis:  analysis,
		Score:     report,
		Cached:    false,
		Timestamp: now,
	}
}

func failResult(err error, msg string) *domain.AnalysisResult {
	return &domain.AnalysisResult{Success: false, Message: msg, Err: err}
}

// fieldMap converts a value into a document field map via JSON round-trip.
func fieldMap(v any) (map[string]any, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	var fields map[string]any
	if err := json.Unmarshal(data, &fields); err != nil {
		return nil, err
	}
	return fields, nil
}
