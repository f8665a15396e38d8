// Package scrape is the HTTP adapter for the external profile-scraping
// provider.
package scrape

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/prospect-labs/prospect-core/internal/core/domain"
	"github.com/prospect-labs/prospect-core/internal/core/ports/driven"
)

// Ensure Client implements ProfileScraper
var _ driven.ProfileScraper = (*Client)(nil)

// Client calls the scraping provider's profile endpoint.
type Client struct {
	baseURL string
	apiKey  string
	client  *http.Client
}

// Config holds scrape client configuration.
type Config struct {
	// BaseURL is the provider endpoint root.
	BaseURL string

	// APIKey authenticates against the provider.
	APIKey string

	// Timeout bounds one fetch; the analysis pipeline relies on the
	// scraper enforcing its own deadline. Defaults to 90s.
	Timeout time.Duration
}

// NewClient creates a scrape client.
func NewClient(cfg Config) (*Client, error) {
	if cfg.BaseURL == "" {
		return nil, fmt.Errorf("scrape provider base URL is required")
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 90 * time.Second
	}
	return &Client{
		baseURL: cfg.BaseURL,
		apiKey:  cfg.APIKey,
		client:  &http.Client{Timeout: timeout},
	}, nil
}

// fetchRequest is the request body for the provider's profile endpoint.
type fetchRequest struct {
	URL string `json:"url"`
}

// FetchProfile retrieves the profile behind url and normalizes whatever
// payload shape the provider returns. Network and provider failures wrap
// domain.ErrScrapeFailed; unusable payloads surface domain.ErrNoProfileData.
func (c *Client) FetchProfile(ctx context.Context, url string) (*domain.ProfileRecord, error) {
	body, err := json.Marshal(fetchRequest{URL: url})
	if err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrScrapeFailed, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/profile", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrScrapeFailed, err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrScrapeFailed, err)
	}
	defer resp.Body.Close()

	payload, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrScrapeFailed, err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: provider returned status %d: %s",
			domain.ErrScrapeFailed, resp.StatusCode, truncate(payload, 200))
	}

	profile, err := domain.ExtractProfilePayload(payload)
	if err != nil {
		return nil, err
	}
	if profile.InputURL == "" {
		profile.InputURL = url
	}
	return profile, nil
}

func truncate(b []byte, n int) string {
	if len(b) <= n {
		return string(b)
	}
	return string(b[:n]) + "..."
}
