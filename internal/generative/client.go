// Curatarr - Media Recommendation Reconciliation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/curatarr

// Package generative asks an OpenRouter-compatible chat completion endpoint
// for recommendations conditioned on a watch-history summary and the run
// filters. Suggestions carry a title, year, kind and a short rationale but
// never a catalog ID; the engine enriches them afterwards.
package generative

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/goccy/go-json"

	"github.com/tomtom215/curatarr/internal/breaker"
	"github.com/tomtom215/curatarr/internal/config"
	"github.com/tomtom215/curatarr/internal/metrics"
	"github.com/tomtom215/curatarr/internal/models"
)

// ErrNotConfigured is returned by New when the recommender is disabled or
// has no API key.
var ErrNotConfigured = errors.New("generative recommender not configured")

const (
	jsonResponseType = "json_object"
	maxErrorBodySize = 64 * 1024
	maxYearOffset    = 2
)

// Client wraps the chat completion API.
type Client struct {
	endpoint   string
	apiKey     string
	model      string
	referer    string
	title      string
	httpClient *http.Client
	cb         *breaker.Breaker
	now        func() time.Time
}

// New builds a client from configuration.
func New(cfg config.LLMConfig) (*Client, error) {
	if !cfg.Enabled || strings.TrimSpace(cfg.APIKey) == "" {
		return nil, ErrNotConfigured
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	base := strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if base == "" {
		base = "https://openrouter.ai/api/v1"
	}
	return &Client{
		endpoint:   base + "/chat/completions",
		apiKey:     strings.TrimSpace(cfg.APIKey),
		model:      strings.TrimSpace(cfg.Model),
		referer:    strings.TrimSpace(cfg.Referer),
		title:      strings.TrimSpace(cfg.Title),
		httpClient: &http.Client{Timeout: timeout},
		cb:         breaker.New(breaker.DefaultSettings("llm")),
		now:        time.Now,
	}, nil
}

type chatCompletionRequest struct {
	Model          string            `json:"model"`
	Messages       []chatMessage     `json:"messages"`
	Temperature    float64           `json:"temperature"`
	ResponseFormat map[string]string `json:"response_format"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatCompletionResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
			Refusal string `json:"refusal"`
		} `json:"message"`
		FinishReason string `json:"finish_reason"`
	} `json:"choices"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error"`
}

type suggestionPayload struct {
	Recommendations []struct {
		Title  string `json:"title"`
		Year   any    `json:"year"`
		Type   string `json:"type"`
		Reason string `json:"reason"`
	} `json:"recommendations"`
}

// Suggest returns at most count suggestions for the given history summary.
// Suggestions the model returns with an unknown kind, or of a kind the
// filters exclude, are dropped.
func (c *Client) Suggest(ctx context.Context, summary string, count int, filters models.Filters) ([]models.Candidate, error) {
	if count <= 0 {
		return nil, nil
	}

	payload := chatCompletionRequest{
		Model: c.model,
		Messages: []chatMessage{
			{Role: "system", Content: systemPrompt},
			{Role: "user", Content: buildUserPrompt(summary, count, filters)},
		},
		Temperature:    0.7,
		ResponseFormat: map[string]string{"type": jsonResponseType},
	}

	start := time.Now()
	content, err := breaker.Execute(c.cb, func() (string, error) {
		return c.complete(ctx, payload)
	})
	metrics.RecordExternalRequest("llm", "suggest", time.Since(start), err)
	if err != nil {
		return nil, err
	}

	var parsed suggestionPayload
	if err := decodeJSON(content, &parsed); err != nil {
		return nil, fmt.Errorf("llm suggest: parse payload: %w", err)
	}

	out := make([]models.Candidate, 0, min(count, len(parsed.Recommendations)))
	for _, r := range parsed.Recommendations {
		if len(out) >= count {
			break
		}
		title := strings.TrimSpace(r.Title)
		kind, ok := models.ParseMediaKind(r.Type)
		if title == "" || !ok {
			continue
		}
		if filters.Kind != "" && kind != filters.Kind {
			continue
		}
		out = append(out, models.Candidate{
			Title:  title,
			Year:   c.parseYear(r.Year),
			Kind:   kind,
			Source: models.SourceGenerative,
			Reason: strings.TrimSpace(r.Reason),
		})
	}
	return out, nil
}

func (c *Client) complete(ctx context.Context, payload chatCompletionRequest) (string, error) {
	encoded, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("llm request: encode body: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(encoded))
	if err != nil {
		return "", fmt.Errorf("llm request: new request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Content-Type", "application/json")
	if c.referer != "" {
		req.Header.Set("HTTP-Referer", c.referer)
	}
	if c.title != "" {
		req.Header.Set("X-Title", c.title)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("llm request: http error: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBodySize))
		return "", fmt.Errorf("llm request: http %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	var completion chatCompletionResponse
	if err := json.NewDecoder(resp.Body).Decode(&completion); err != nil {
		return "", fmt.Errorf("llm request: decode response: %w", err)
	}
	if completion.Error != nil && completion.Error.Message != "" {
		return "", fmt.Errorf("llm request: %s", completion.Error.Message)
	}
	for _, choice := range completion.Choices {
		if content := strings.TrimSpace(choice.Message.Content); content != "" {
			return content, nil
		}
	}
	if len(completion.Choices) > 0 {
		ch := completion.Choices[0]
		return "", fmt.Errorf("llm request: empty content (finish_reason=%q, refusal=%q)", ch.FinishReason, ch.Message.Refusal)
	}
	return "", errors.New("llm request: empty choices")
}

// parseYear accepts a number or numeric string. Implausible years are
// treated as unknown.
func (c *Client) parseYear(v any) int {
	var year int
	switch y := v.(type) {
	case float64:
		year = int(y)
	case string:
		_, _ = fmt.Sscanf(strings.TrimSpace(y), "%d", &year)
	}
	if year < 1870 || year > c.now().Year()+maxYearOffset {
		return 0
	}
	return year
}
