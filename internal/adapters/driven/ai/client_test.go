package ai

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/prospect-labs/prospect-core/internal/core/domain"
)

func chatServer(t *testing.T, content string) (*httptest.Server, *chatRequest) {
	t.Helper()
	var captured chatRequest
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/chat/completions" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if err := json.NewDecoder(r.Body).Decode(&captured); err != nil {
			t.Errorf("decode request: %v", err)
		}
		_ = json.NewEncoder(w).Encode(map[string]any{
			"choices": []map[string]any{
				{"message": map[string]any{"content": content}},
			},
		})
	}))
	return server, &captured
}

func TestClient_GenerateAnalysis(t *testing.T) {
	analysisJSON := `{"summary":"Solid profile","strengths":["clear headline"],"weaknesses":["thin summary"],"recommendations":{"summary":"expand it"},"keywords":{"present":["go"],"missing":["kubernetes"]}}`
	server, captured := chatServer(t, analysisJSON)
	defer server.Close()

	client, err := NewClient("key", "test-model", server.URL)
	if err != nil {
		t.Fatalf("new client: %v", err)
	}

	profile := &domain.ProfileRecord{ProfileID: "john-doe", Headline: "Engineer"}
	analysis, err := client.GenerateAnalysis(context.Background(), profile, "")
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if analysis.Summary != "Solid profile" {
		t.Errorf("expected summary parsed, got %q", analysis.Summary)
	}
	if analysis.Language != "English" {
		t.Errorf("expected default language, got %q", analysis.Language)
	}
	if analysis.Keywords == nil || len(analysis.Keywords.Missing) != 1 {
		t.Errorf("expected keywords parsed, got %+v", analysis.Keywords)
	}

	if captured.Model != "test-model" {
		t.Errorf("expected configured model, got %q", captured.Model)
	}
	if captured.ResponseFormat == nil || captured.ResponseFormat.Type != "json_object" {
		t.Error("analysis requests must ask for JSON output")
	}
	if len(captured.Messages) != 2 || captured.Messages[0].Role != "system" {
		t.Errorf("unexpected messages: %+v", captured.Messages)
	}
}

func TestClient_GenerateAnalysis_BadJSON(t *testing.T) {
	server, _ := chatServer(t, "sorry, I cannot help with that")
	defer server.Close()

	client, _ := NewClient("key", "", server.URL)
	_, err := client.GenerateAnalysis(context.Background(), &domain.ProfileRecord{}, "en")
	if err == nil {
		t.Error("expected error for unparseable model output")
	}
}

func TestClient_GenerateOptimizedSection(t *testing.T) {
	server, captured := chatServer(t, "  A sharper headline\n")
	defer server.Close()

	client, _ := NewClient("key", "", server.URL)
	out, err := client.GenerateOptimizedSection(context.Background(), "old headline", "headline", "German")
	if err != nil {
		t.Fatalf("optimize: %v", err)
	}
	if out != "A sharper headline" {
		t.Errorf("expected trimmed content, got %q", out)
	}
	if captured.ResponseFormat != nil {
		t.Error("optimization requests must not force JSON output")
	}
	if captured.Messages[1].Content != "old headline" {
		t.Errorf("expected content forwarded, got %q", captured.Messages[1].Content)
	}
}

func TestClient_APIError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
		_ = json.NewEncoder(w).Encode(map[string]any{
			"error": map[string]any{"message": "rate limited", "type": "rate_limit"},
		})
	}))
	defer server.Close()

	client, _ := NewClient("key", "", server.URL)
	_, err := client.GenerateOptimizedSection(context.Background(), "content", "headline", "")
	if err == nil {
		t.Error("expected error from the API error payload")
	}
}

func TestNewClient_RequiresKey(t *testing.T) {
	if _, err := NewClient("", "", ""); err == nil {
		t.Error("expected error for missing API key")
	}
}
