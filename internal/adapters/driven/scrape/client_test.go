package scrape

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/prospect-labs/prospect-core/internal/core/domain"
)

func TestClient_FetchProfile(t *testing.T) {
	var gotURL, gotAuth string
	provider := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/profile" {
			t.Errorf("unexpected request: %s %s", r.Method, r.URL.Path)
		}
		gotAuth = r.Header.Get("Authorization")
		var req struct {
			URL string `json:"url"`
		}
		_ = json.NewDecoder(r.Body).Decode(&req)
		gotURL = req.URL

		_ = json.NewEncoder(w).Encode(map[string]any{
			"data": map[string]any{
				"profileId": "john-doe",
				"url":       "https://example.com/in/john-doe",
				"fullName":  "John Doe",
			},
		})
	}))
	defer provider.Close()

	client, err := NewClient(Config{BaseURL: provider.URL, APIKey: "key-123"})
	if err != nil {
		t.Fatalf("new client: %v", err)
	}

	profile, err := client.FetchProfile(context.Background(), "https://example.com/in/john-doe?trk=x")
	if err != nil {
		t.Fatalf("fetch: %v", err)
	}
	if profile.ProfileID != "john-doe" {
		t.Errorf("expected profileId john-doe, got %q", profile.ProfileID)
	}
	if profile.InputURL != "https://example.com/in/john-doe?trk=x" {
		t.Errorf("expected requested URL recorded, got %q", profile.InputURL)
	}
	if gotURL != "https://example.com/in/john-doe?trk=x" {
		t.Errorf("provider received %q", gotURL)
	}
	if gotAuth != "Bearer key-123" {
		t.Errorf("expected bearer auth, got %q", gotAuth)
	}
}

func TestClient_FetchProfile_ProviderError(t *testing.T) {
	provider := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "upstream blew up", http.StatusBadGateway)
	}))
	defer provider.Close()

	client, _ := NewClient(Config{BaseURL: provider.URL})
	_, err := client.FetchProfile(context.Background(), "https://example.com/in/john-doe")
	if !errors.Is(err, domain.ErrScrapeFailed) {
		t.Errorf("expected ErrScrapeFailed, got %v", err)
	}
}

func TestClient_FetchProfile_EmptyPayload(t *testing.T) {
	provider := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	}))
	defer provider.Close()

	client, _ := NewClient(Config{BaseURL: provider.URL})
	_, err := client.FetchProfile(context.Background(), "https://example.com/in/john-doe")
	if !errors.Is(err, domain.ErrNoProfileData) {
		t.Errorf("expected ErrNoProfileData, got %v", err)
	}
}

func TestClient_FetchProfile_Unreachable(t *testing.T) {
	client, _ := NewClient(Config{BaseURL: "http://127.0.0.1:1"})
	_, err := client.FetchProfile(context.Background(), "https://example.com/in/john-doe")
	if !errors.Is(err, domain.ErrScrapeFailed) {
		t.Errorf("expected ErrScrapeFailed, got %v", err)
	}
}

func TestNewClient_RequiresBaseURL(t *testing.T) {
	if _, err := NewClient(Config{}); err == nil {
		t.Error("expected error for missing base URL")
	}
}
