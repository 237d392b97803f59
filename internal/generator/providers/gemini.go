package providers

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/ibeckermayer/postcycle/internal/httpx"
	"github.com/ibeckermayer/postcycle/internal/types"
)

const geminiAPIURL = "https://generativelanguage.googleapis.com/v1beta"

// GeminiProvider implements generator.Provider using the Gemini REST API
type GeminiProvider struct {
	apiKey   string
	model    string
	endpoint string
	client   *httpx.Client
}

// NewGeminiProvider creates a new Gemini provider. An empty endpoint uses the public API.
func NewGeminiProvider(apiKey, model, endpoint string, client *httpx.Client) *GeminiProvider {
	if endpoint == "" {
		endpoint = geminiAPIURL
	}
	return &GeminiProvider{
		apiKey:   apiKey,
		model:    model,
		endpoint: strings.TrimRight(endpoint, "/"),
		client:   client,
	}
}

// geminiRequest represents the request body for generateContent
type geminiRequest struct {
	Contents []geminiContent `json:"contents"`
}

type geminiContent struct {
	Role  string       `json:"role,omitempty"`
	Parts []geminiPart `json:"parts"`
}

type geminiPart struct {
	Text string `json:"text"`
}

// geminiResponse represents the response from generateContent
type geminiResponse struct {
	Candidates []geminiCandidate `json:"candidates"`
	Error      *geminiError      `json:"error,omitempty"`
}

type geminiCandidate struct {
	Content      geminiContent `json:"content"`
	FinishReason string        `json:"finishReason"`
}

type geminiError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Status  string `json:"status"`
}

func (g *GeminiProvider) Name() string  { return "gemini" }
func (g *GeminiProvider) Model() string { return g.model }

// Complete sends prompt to Gemini and returns the first candidate's text
func (g *GeminiProvider) Complete(ctx context.Context, prompt string) (string, error) {
	if g.apiKey == "" {
		return "", types.Tag(types.ErrAuth, fmt.Errorf("gemini API key not configured"))
	}

	jsonBody, err := json.Marshal(geminiRequest{
		Contents: []geminiContent{{Role: "user", Parts: []geminiPart{{Text: prompt}}}},
	})
	if err != nil {
		return "", fmt.Errorf("failed to marshal request: %w", err)
	}

	url := fmt.Sprintf("%s/models/%s:generateContent", g.endpoint, g.model)
	resp, err := g.client.Do(ctx, func(ctx context.Context) (*http.Request, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(jsonBody))
		if err != nil {
			return nil, err
		}
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("x-goog-api-key", g.apiKey)
		return req, nil
	})
	if err != nil {
		return "", fmt.Errorf("failed to call Gemini API: %w", err)
	}

	body, err := httpx.ReadBody(resp, maxResponseBytes)
	if err != nil {
		return "", err
	}
	if resp.StatusCode != http.StatusOK {
		return "", httpx.StatusError("Gemini API", resp.StatusCode, body)
	}

	var gemResp geminiResponse
	if err := json.Unmarshal(body, &gemResp); err != nil {
		return "", parseError("failed to parse Gemini response: %w", err)
	}
	if gemResp.Error != nil {
		return "", parseError("Gemini API error: %s - %s", gemResp.Error.Status, gemResp.Error.Message)
	}

	// First candidate, first part, as the original integration did
	if len(gemResp.Candidates) == 0 || len(gemResp.Candidates[0].Content.Parts) == 0 {
		return "", parseError("Gemini returned no candidates")
	}

	return gemResp.Candidates[0].Content.Parts[0].Text, nil
}
