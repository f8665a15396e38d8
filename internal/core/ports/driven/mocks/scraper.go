package mocks

import (
	"context"
	"sync"

	"github.com/prospect-labs/prospect-core/internal/core/domain"
)

// MockProfileScraper is a mock implementation of ProfileScraper for testing.
type MockProfileScraper struct {
	mu sync.Mutex

	// Profile is returned on success; Err takes precedence when set.
	Profile *domain.ProfileRecord
	Err     error

	// Calls records every URL fetched, in order.
	Calls []string
}

// NewMockProfileScraper creates a new MockProfileScraper.
func NewMockProfileScraper() *MockProfileScraper {
	return &MockProfileScraper{}
}

func (m *MockProfileScraper) FetchProfile(_ context.Context, url string) (*domain.ProfileRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Calls = append(m.Calls, url)
	if m.Err != nil {
		return nil, m.Err
	}
	if m.Profile == nil {
		return nil, domain.ErrNoProfileData
	}
	clone := *m.Profile
	return &clone, nil
}

// CallCount returns how many fetches were made.
func (m *MockProfileScraper) CallCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.Calls)
}
