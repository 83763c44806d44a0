// Package advisor is the gateway to the AI recommendation engine, an
// OpenAI-compatible chat completions API. The engine does its own research
// server-side; this client only builds prompts and decodes the typed JSON it
// gets back.
package advisor

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/alanyoungcy/betbot/internal/domain"
)

// Config holds the recommendation engine endpoint.
type Config struct {
	BaseURL string
	APIKey  string
	Model   string
	Timeout time.Duration
}

// Client talks to the recommendation engine.
type Client struct {
	cfg        Config
	httpClient *http.Client
	log        *slog.Logger
}

// New creates an advisor client.
func New(cfg Config, log *slog.Logger) *Client {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 4 * time.Minute
	}
	return &Client{
		cfg: cfg,
		httpClient: &http.Client{
			Timeout: cfg.Timeout,
		},
		log: log.With("component", "advisor"),
	}
}

// AnalysisInput carries everything the engine needs to price one slate of
// events.
type AnalysisInput struct {
	Events       []domain.Event
	TargetDate   string
	TotalBudget  float64
	RiskAppetite float64
	MinStake     float64
	MinProfit    float64
	Learnings    string
}

// Recommend asks the engine for wager recommendations across the given
// events. The response is the engine's structured JSON, decoded as-is; stake
// totals are NOT trusted and must be budget-checked by the caller.
func (c *Client) Recommend(ctx context.Context, in AnalysisInput) (domain.AgentResponse, error) {
	user, err := buildAnalysisPrompt(in)
	if err != nil {
		return domain.AgentResponse{}, fmt.Errorf("advisor: build prompt: %w", err)
	}

	content, err := c.chat(ctx, analysisSystemPrompt, user)
	if err != nil {
		return domain.AgentResponse{}, err
	}

	var resp domain.AgentResponse
	if err := json.Unmarshal([]byte(content), &resp); err != nil {
		return domain.AgentResponse{}, fmt.Errorf("advisor: decode recommendations: %w", err)
	}
	return resp, nil
}

// RewriteLearnings asks the engine to fold new bet outcomes into the existing
// lessons-learned document and returns the full replacement text.
func (c *Client) RewriteLearnings(ctx context.Context, current string, outcomes []string) (string, error) {
	user := buildLearningsPrompt(current, outcomes)

	content, err := c.chat(ctx, learningsSystemPrompt, user)
	if err != nil {
		return "", err
	}

	var out struct {
		Learnings string `json:"learnings"`
	}
	if err := json.Unmarshal([]byte(content), &out); err != nil {
		return "", fmt.Errorf("advisor: decode learnings: %w", err)
	}
	if strings.TrimSpace(out.Learnings) == "" {
		return "", fmt.Errorf("advisor: empty learnings rewrite")
	}
	return out.Learnings, nil
}

// chat performs one completions call and returns the first choice's content.
func (c *Client) chat(ctx context.Context, system, user string) (string, error) {
	payload := map[string]any{
		"model": c.cfg.Model,
		"messages": []map[string]string{
			{"role": "system", "content": system},
			{"role": "user", "content": user},
		},
		"response_format": map[string]string{"type": "json_object"},
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("advisor: marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		c.cfg.BaseURL+"/chat/completions", bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("advisor: build request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.cfg.APIKey)
	req.Header.Set("Content-Type", "application/json")

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("advisor: do request: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("advisor: read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("advisor: http %d: %s", resp.StatusCode, strings.TrimSpace(string(data)))
	}

	var out struct {
		Choices []struct {
			Message struct {
				Content string `json:"content"`
			} `json:"message"`
		} `json:"choices"`
	}
	if err := json.Unmarshal(data, &out); err != nil {
		return "", fmt.Errorf("advisor: decode response: %w", err)
	}
	if len(out.Choices) == 0 {
		return "", fmt.Errorf("advisor: no choices in response")
	}

	c.log.Info("completion received",
		"model", c.cfg.Model, "elapsed", time.Since(start).Round(time.Millisecond))
	return out.Choices[0].Message.Content, nil
}
