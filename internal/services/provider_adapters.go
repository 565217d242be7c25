package services

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"interviewprep/internal/config"
	"interviewprep/internal/version"
)

const generationTemperature = 0.7

// providerAdapter converts a prompt into one provider HTTP request and pulls the generated
// text out of a successful response body.
type providerAdapter interface {
	name() string
	newRequest(ctx context.Context, prompt *ProviderPrompt) (*http.Request, error)
	extractText(body []byte) (string, error)
}

var errEmptyContent = errors.New("provider returned empty content")

func newProviderAdapter(cfg config.AIConfig) (providerAdapter, error) {
	switch cfg.Provider {
	case config.ProviderOpenAI, "":
		return &openAIAdapter{cfg: cfg}, nil
	case config.ProviderGemini:
		return &geminiAdapter{cfg: cfg}, nil
	default:
		return nil, fmt.Errorf("unsupported provider %q", cfg.Provider)
	}
}

func newJSONRequest(ctx context.Context, endpoint string, payload interface{}) (*http.Request, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request body: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create HTTP request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", version.UserAgent())
	return req, nil
}

// OpenAIRequest represents a request to an OpenAI-compatible chat completions API
type OpenAIRequest struct {
	Model       string    `json:"model"`
	Messages    []Message `json:"messages"`
	Temperature float64   `json:"temperature"`
	MaxTokens   int       `json:"max_tokens,omitempty"`
	Grammar     string    `json:"grammar,omitempty"`
}

// Message represents a chat message in the API request
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// OpenAIResponse represents a response from an OpenAI-compatible API
type OpenAIResponse struct {
	Choices []Choice  `json:"choices"`
	Error   *APIError `json:"error,omitempty"`
}

// Choice represents a choice in the API response
type Choice struct {
	Message Message `json:"message"`
}

// APIError represents an error envelope returned by the API
type APIError struct {
	Message string `json:"message"`
	Type    string `json:"type"`
}

type openAIAdapter struct {
	cfg config.AIConfig
}

func (a *openAIAdapter) name() string { return config.ProviderOpenAI }

func (a *openAIAdapter) newRequest(ctx context.Context, prompt *ProviderPrompt) (*http.Request, error) {
	reqBody := OpenAIRequest{
		Model:       a.cfg.Model,
		Messages:    []Message{{Role: "user", Content: prompt.Text}},
		Temperature: generationTemperature,
		MaxTokens:   a.cfg.MaxTokens,
	}
	if a.cfg.GrammarEnabled() {
		reqBody.Grammar = prompt.Schema
	}

	req, err := newJSONRequest(ctx, a.cfg.BaseURL+"/chat/completions", reqBody)
	if err != nil {
		return nil, err
	}
	if a.cfg.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+a.cfg.APIKey)
	}
	return req, nil
}

func (a *openAIAdapter) extractText(body []byte) (string, error) {
	var resp OpenAIResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return "", fmt.Errorf("failed to parse provider envelope: %w", err)
	}
	if resp.Error != nil {
		return "", fmt.Errorf("provider error: %s", resp.Error.Message)
	}
	if len(resp.Choices) == 0 {
		return "", errors.New("no choices in provider response")
	}
	content := resp.Choices[0].Message.Content
	if strings.TrimSpace(content) == "" {
		return "", errEmptyContent
	}
	return content, nil
}

type geminiRequest struct {
	Contents         []geminiContent  `json:"contents"`
	GenerationConfig *geminiGenConfig `json:"generationConfig,omitempty"`
}

type geminiContent struct {
	Parts []geminiPart `json:"parts"`
	Role  string       `json:"role,omitempty"`
}

type geminiPart struct {
	Text string `json:"text"`
}

type geminiGenConfig struct {
	Temperature      float64 `json:"temperature,omitempty"`
	MaxOutputTokens  int     `json:"maxOutputTokens,omitempty"`
	ResponseMimeType string  `json:"responseMimeType,omitempty"`
}

type geminiResponse struct {
	Candidates []struct {
		Content struct {
			Parts []geminiPart `json:"parts"`
		} `json:"content"`
		FinishReason string `json:"finishReason"`
	} `json:"candidates"`
	Error *struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
	} `json:"error,omitempty"`
}

type geminiAdapter struct {
	cfg config.AIConfig
}

func (a *geminiAdapter) name() string { return config.ProviderGemini }

func (a *geminiAdapter) newRequest(ctx context.Context, prompt *ProviderPrompt) (*http.Request, error) {
	reqBody := geminiRequest{
		Contents: []geminiContent{{
			Role:  "user",
			Parts: []geminiPart{{Text: prompt.Text}},
		}},
		GenerationConfig: &geminiGenConfig{
			Temperature:      generationTemperature,
			MaxOutputTokens:  a.cfg.MaxTokens,
			ResponseMimeType: "application/json",
		},
	}

	endpoint := fmt.Sprintf("%s/models/%s:generateContent", a.cfg.BaseURL, url.PathEscape(a.cfg.Model))
	req, err := newJSONRequest(ctx, endpoint, reqBody)
	if err != nil {
		return nil, err
	}
	if a.cfg.APIKey != "" {
		req.Header.Set("x-goog-api-key", a.cfg.APIKey)
	}
	return req, nil
}

func (a *geminiAdapter) extractText(body []byte) (string, error) {
	var resp geminiResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return "", fmt.Errorf("failed to parse provider envelope: %w", err)
	}
	if resp.Error != nil {
		return "", fmt.Errorf("provider error %d: %s", resp.Error.Code, resp.Error.Message)
	}
	if len(resp.Candidates) == 0 {
		return "", errors.New("no candidates in provider response")
	}

	var text strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		text.WriteString(part.Text)
	}
	if strings.TrimSpace(text.String()) == "" {
		return "", errEmptyContent
	}
	return text.String(), nil
}
