// Package ai implements the AI collaborator over an OpenAI-compatible
// chat-completions API.
package ai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/prospect-labs/prospect-core/internal/core/domain"
	"github.com/prospect-labs/prospect-core/internal/core/ports/driven"
)

// Ensure Client implements AIService
var _ driven.AIService = (*Client)(nil)

const defaultModel = "gpt-4o-mini"

// Client is an OpenAI-compatible chat client.
type Client struct {
	apiKey  string
	model   string
	baseURL string
	client  *http.Client
}

// NewClient creates a chat client. model and baseURL fall back to
// defaultModel and the OpenAI endpoint.
func NewClient(apiKey, model, baseURL string) (*Client, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("AI API key is required")
	}
	if model == "" {
		model = defaultModel
	}
	if baseURL == "" {
		baseURL = "https://api.openai.com/v1"
	}
	return &Client{
		apiKey:  apiKey,
		model:   model,
		baseURL: baseURL,
		client: &http.Client{
			Timeout: 120 * time.Second,
		},
	}, nil
}

// chatRequest is the request body for the chat completions API.
type chatRequest struct {
	Model          string        `json:"model"`
	Messages       []chatMessage `json:"messages"`
	Temperature    float64       `json:"temperature"`
	ResponseFormat *respFormat   `json:"response_format,omitempty"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type respFormat struct {
	Type string `json:"type"`
}

// chatResponse is the response from the chat completions API.
type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
	Error *struct {
		Message string `json:"message"`
		Type    string `json:"type"`
	} `json:"error,omitempty"`
}

const analysisSystemPrompt = `You are a career coach reviewing a professional profile.
Respond with a single JSON object with these keys:
"summary" (string), "strengths" (array of strings), "weaknesses" (array of strings),
"recommendations" (object mapping section name to advice), and
"keywords" (object with "present" and "missing" arrays of strings).`

// GenerateAnalysis produces a structured narrative report for the profile.
func (c *Client) GenerateAnalysis(ctx context.Context, profile *domain.ProfileRecord, language string) (*domain.AIAnalysis, error) {
	profileJSON, err := json.Marshal(profile)
	if err != nil {
		return nil, fmt.Errorf("encode profile: %w", err)
	}

	userPrompt := fmt.Sprintf("Analyze this profile and answer in %s:\n%s",
		languageOrDefault(language), profileJSON)

	content, err := c.complete(ctx, analysisSystemPrompt, userPrompt, true)
	if err != nil {
		return nil, err
	}

	var analysis domain.AIAnalysis
	if err := json.Unmarshal([]byte(content), &analysis); err != nil {
		return nil, fmt.Errorf("model returned unparseable analysis: %w", err)
	}
	analysis.Language = languageOrDefault(language)
	return &analysis, nil
}

// GenerateOptimizedSection rewrites one profile section's content.
func (c *Client) GenerateOptimizedSection(ctx context.Context, content, sectionName, language string) (string, error) {
	system := fmt.Sprintf(
		"You are a career coach. Rewrite the %s section of a professional profile to be concise and impactful. Answer in %s with only the rewritten text.",
		sectionName, languageOrDefault(language))

	out, err := c.complete(ctx, system, content, false)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(out), nil
}

// complete performs one chat completion and returns the first choice.
func (c *Client) complete(ctx context.Context, system, user string, jsonMode bool) (string, error) {
	reqBody := chatRequest{
		Model: c.model,
		Messages: []chatMessage{
			{Role: "system", Content: system},
			{Role: "user", Content: user},
		},
		Temperature: 0.4,
	}
	if jsonMode {
		reqBody.ResponseFormat = &respFormat{Type: "json_object"}
	}

	body, err := json.Marshal(reqBody)
	if err != nil {
		return "", fmt.Errorf("encode request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/chat/completions", bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("chat request failed: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("read response: %w", err)
	}

	var parsed chatResponse
	if err := json.Unmarshal(data, &parsed); err != nil {
		return "", fmt.Errorf("parse response: %w", err)
	}
	if parsed.Error != nil {
		return "", fmt.Errorf("chat API error: %s", parsed.Error.Message)
	}
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("chat API returned status %d", resp.StatusCode)
	}
	if len(parsed.Choices) == 0 {
		return "", fmt.Errorf("chat API returned no choices")
	}
	return parsed.Choices[0].Message.Content, nil
}

func languageOrDefault(language string) string {
	if language == "" {
		return "English"
	}
	return language
}
