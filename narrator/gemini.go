package narrator

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/charmbracelet/log"

	"github.com/spektr-org/tally/engine"
)

// ============================================================================
// GEMINI NARRATOR - Calls Google Gemini for insight prose
// ============================================================================

// Gemini implements engine.Narrator using the Gemini API.
type Gemini struct {
	config Config
	client *http.Client
	logger *log.Logger
	now    func() time.Time
}

// Option configures a Gemini narrator.
type Option func(*Gemini)

// WithHTTPClient replaces the default client (30s timeout).
func WithHTTPClient(c *http.Client) Option {
	return func(g *Gemini) { g.client = c }
}

// WithLogger sets the logger. Default log.Default().
func WithLogger(l *log.Logger) Option {
	return func(g *Gemini) { g.logger = l }
}

// NewGemini creates a new Gemini narrator.
func NewGemini(cfg Config, opts ...Option) *Gemini {
	if cfg.Model == "" {
		cfg.Model = "gemini-2.5-flash-lite"
	}
	if cfg.Endpoint == "" {
		cfg.Endpoint = "https://generativelanguage.googleapis.com/v1beta/models"
	}

	g := &Gemini{
		config: cfg,
		client: &http.Client{Timeout: 30 * time.Second},
		logger: log.Default(),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(g)
	}
	g.logger = g.logger.WithPrefix("narrator")
	return g
}

// Narrate implements engine.Narrator.
func (g *Gemini) Narrate(ctx context.Context, req engine.InsightRequest) (string, error) {
	prompt := BuildPrompt(req, g.config.Church, g.now())
	g.logger.Debug("narrating", "question", truncate(req.Question, 80), "intent", req.Intent)

	response, err := g.callGemini(ctx, prompt)
	if err != nil {
		return "", fmt.Errorf("gemini API error: %w", err)
	}

	text, err := parseResponse(response)
	if err != nil {
		return "", err
	}
	g.logger.Debug("narrated", "chars", len(text))
	return text, nil
}

// ============================================================================
// GEMINI API CALL
// ============================================================================

// geminiRequest is the Gemini API request body.
type geminiRequest struct {
	Contents []geminiContent `json:"contents"`
}

type geminiContent struct {
	Parts []geminiPart `json:"parts"`
}

type geminiPart struct {
	Text string `json:"text"`
}

// geminiResponse is the Gemini API response body.
type geminiResponse struct {
	Candidates []struct {
		Content struct {
			Parts []struct {
				Text string `json:"text"`
			} `json:"parts"`
		} `json:"content"`
	} `json:"candidates"`
	Error *struct {
		Message string `json:"message"`
		Code    int    `json:"code"`
	} `json:"error"`
}

// callGemini sends a prompt to the Gemini API and returns the text response.
func (g *Gemini) callGemini(ctx context.Context, prompt string) (string, error) {
	url := fmt.Sprintf("%s/%s:generateContent", strings.TrimRight(g.config.Endpoint, "/"), g.config.Model)

	reqBody := geminiRequest{
		Contents: []geminiContent{{
			Parts: []geminiPart{{Text: prompt}},
		}},
	}

	jsonBody, err := json.Marshal(reqBody)
	if err != nil {
		return "", fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(jsonBody))
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-goog-api-key", g.config.APIKey)

	resp, err := g.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("HTTP request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	if err != nil {
		return "", fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("Gemini API returned %d: %s", resp.StatusCode, truncate(string(body), 200))
	}

	var geminiResp geminiResponse
	if err := json.Unmarshal(body, &geminiResp); err != nil {
		return "", fmt.Errorf("failed to parse Gemini response: %w", err)
	}

	if geminiResp.Error != nil {
		return "", fmt.Errorf("Gemini error %d: %s", geminiResp.Error.Code, geminiResp.Error.Message)
	}

	if len(geminiResp.Candidates) == 0 || len(geminiResp.Candidates[0].Content.Parts) == 0 {
		return "", fmt.Errorf("Gemini returned empty response")
	}

	return geminiResp.Candidates[0].Content.Parts[0].Text, nil
}

// ============================================================================
// HELPERS
// ============================================================================

func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen] + "..."
}
