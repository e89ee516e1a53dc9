package advisor

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/JonMunkholm/datacleaner/internal/config"
	"github.com/JonMunkholm/datacleaner/internal/core"
)

const (
	maxResponseBytes = 4 << 20
	maxRetries       = 2
)

var retryBaseDelay = 500 * time.Millisecond

// ErrEmptyResponse is returned when the model answers without any text.
var ErrEmptyResponse = errors.New("advisor: empty model response")

// Gemini asks a Gemini model through the generateContent REST endpoint.
type Gemini struct {
	client      *http.Client
	endpoint    string
	model       string
	apiKey      string
	temperature float64
	logger      *slog.Logger
}

var _ core.Advisor = (*Gemini)(nil)

// NewGemini creates a client from cfg. APIKey and Model are required.
func NewGemini(cfg config.AdvisorConfig) (*Gemini, error) {
	if cfg.APIKey == "" {
		return nil, errors.New("advisor: gemini requires an API key")
	}
	if cfg.Model == "" {
		return nil, errors.New("advisor: gemini requires a model")
	}
	if _, err := url.Parse(cfg.Endpoint); err != nil {
		return nil, fmt.Errorf("advisor: invalid endpoint: %w", err)
	}
	return &Gemini{
		client:      &http.Client{Timeout: cfg.Timeout},
		endpoint:    strings.TrimRight(cfg.Endpoint, "/"),
		model:       cfg.Model,
		apiKey:      cfg.APIKey,
		temperature: cfg.Temperature,
		logger:      slog.Default().With("component", "gemini"),
	}, nil
}

// Summarize asks for a short narrative about the dataset.
func (g *Gemini) Summarize(ctx context.Context, p core.Profile) (string, error) {
	return g.generate(ctx, summaryPrompt(p))
}

// DetectIssues asks for a JSON array of quality issues.
func (g *Gemini) DetectIssues(ctx context.Context, p core.Profile) (string, error) {
	return g.generate(ctx, issuesPrompt(p))
}

// Plan asks for a prioritized remediation plan.
func (g *Gemini) Plan(ctx context.Context, issues []core.QualityIssue) (string, error) {
	return g.generate(ctx, planPrompt(issues))
}

type part struct {
	Text string `json:"text"`
}

type content struct {
	Role  string `json:"role,omitempty"`
	Parts []part `json:"parts"`
}

type generateRequest struct {
	Contents         []content        `json:"contents"`
	GenerationConfig generationConfig `json:"generationConfig"`
}

type generationConfig struct {
	Temperature float64 `json:"temperature"`
}

type generateResponse struct {
	Candidates []struct {
		Content      content `json:"content"`
		FinishReason string  `json:"finishReason"`
	} `json:"candidates"`
}

type apiError struct {
	Error struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
		Status  string `json:"status"`
	} `json:"error"`
}

// generate sends prompt and returns the concatenated text of the first
// candidate.
func (g *Gemini) generate(ctx context.Context, prompt string) (string, error) {
	body, err := json.Marshal(generateRequest{
		Contents:         []content{{Role: "user", Parts: []part{{Text: prompt}}}},
		GenerationConfig: generationConfig{Temperature: g.temperature},
	})
	if err != nil {
		return "", fmt.Errorf("advisor: marshal request: %w", err)
	}

	data, err := g.post(ctx, body)
	if err != nil {
		return "", err
	}

	var resp generateResponse
	if err := json.Unmarshal(data, &resp); err != nil {
		return "", fmt.Errorf("advisor: decode response: %w", err)
	}
	if len(resp.Candidates) == 0 {
		return "", ErrEmptyResponse
	}
	var b strings.Builder
	for _, p := range resp.Candidates[0].Content.Parts {
		b.WriteString(p.Text)
	}
	text := strings.TrimSpace(b.String())
	if text == "" {
		return "", ErrEmptyResponse
	}
	return text, nil
}

// post performs the request, retrying network errors, 429 and 5xx with
// exponential backoff.
func (g *Gemini) post(ctx context.Context, body []byte) ([]byte, error) {
	u := fmt.Sprintf("%s/models/%s:generateContent", g.endpoint, url.PathEscape(g.model))

	var lastErr error
	for attempt := 0; attempt <= maxRetries; attempt++ {
		if attempt > 0 {
			delay := retryBaseDelay * time.Duration(1<<uint(attempt-1))
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(delay):
			}
			g.logger.Debug("retrying request", "attempt", attempt+1, "error", lastErr)
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodPost, u, bytes.NewReader(body))
		if err != nil {
			return nil, fmt.Errorf("advisor: create request: %w", err)
		}
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("Accept", "application/json")
		req.Header.Set("x-goog-api-key", g.apiKey)

		resp, err := g.client.Do(req)
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			lastErr = fmt.Errorf("advisor: request failed: %w", err)
			continue
		}

		data, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
		_ = resp.Body.Close()
		if err != nil {
			lastErr = fmt.Errorf("advisor: read response: %w", err)
			continue
		}

		switch {
		case resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500:
			lastErr = parseAPIError(resp.StatusCode, data)
			continue
		case resp.StatusCode >= 400:
			return nil, parseAPIError(resp.StatusCode, data)
		}
		return data, nil
	}

	return nil, fmt.Errorf("advisor: request failed after %d retries: %w", maxRetries, lastErr)
}

func parseAPIError(status int, data []byte) error {
	var e apiError
	if err := json.Unmarshal(data, &e); err != nil || e.Error.Message == "" {
		return fmt.Errorf("advisor: status %d: %s", status, strings.TrimSpace(string(data)))
	}
	return fmt.Errorf("advisor: status %d %s: %s", status, e.Error.Status, e.Error.Message)
}
