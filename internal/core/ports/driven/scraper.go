package driven

import (
	"context"

	"github.com/prospect-labs/prospect-core/internal/core/domain"
)

// ProfileScraper fetches a raw profile from the external scraping provider
// and returns it normalized. Implementations wrap provider failures and
// unusable payload shapes in domain.ErrScrapeFailed / domain.ErrNoProfileData.
// The scraper enforces its own timeout; the caller never manufactures one.
type ProfileScraper interface {
	// FetchProfile retrieves and normalizes the profile behind url.
	FetchProfile(ctx context.Context, url string) (*domain.ProfileRecord, error)
}
