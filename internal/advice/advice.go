// Package advice asks an OpenAI-compatible chat completion endpoint for
// the free-text recommendation sections of reports.
package advice

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/kiracore/jirapulse/internal/config"
	"github.com/rs/zerolog"
)

// SystemPrompt frames every request.
const SystemPrompt = "Ты опытный технический менеджер проектов. Отвечай кратко, практично и на русском языке."

// ErrDisabled is returned when no API key is configured.
var ErrDisabled = errors.New("advice: not configured")

// Advisor turns a prompt into advice text.
type Advisor interface {
	Enabled() bool
	Advise(ctx context.Context, prompt string) (string, error)
}

// Result is the outcome of a best-effort advice request. A failed request
// carries Err and empty Text.
type Result struct {
	Text string
	Err  error
}

// OK reports whether the result has text to embed.
func (r Result) OK() bool {
	return r.Err == nil && strings.TrimSpace(r.Text) != ""
}

// Ask calls a and converts any failure into a Result, logging it at warn.
// A disabled advisor yields an empty Result without error.
func Ask(ctx context.Context, a Advisor, report, prompt string, log zerolog.Logger) Result {
	if a == nil || !a.Enabled() {
		return Result{}
	}
	text, err := a.Advise(ctx, prompt)
	if err != nil {
		log.Warn().Err(err).Str("report", report).Msg("advice request failed, omitting section")
		return Result{Err: err}
	}
	return Result{Text: strings.TrimSpace(text)}
}

type noop struct{}

func (noop) Enabled() bool { return false }

func (noop) Advise(context.Context, string) (string, error) { return "", ErrDisabled }

// Noop is an advisor that is never enabled.
func Noop() Advisor {
	return noop{}
}

// Client talks to a chat completions endpoint.
type Client struct {
	key         string
	baseURL     string
	model       string
	temperature float64
	maxTokens   int
	http        *http.Client
	log         zerolog.Logger
}

// NewClient builds a client from the llm config section.
func NewClient(cfg config.LLMConfig, log zerolog.Logger) *Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	return &Client{
		key:         cfg.APIKey,
		baseURL:     strings.TrimRight(cfg.BaseURL, "/"),
		model:       cfg.Model,
		temperature: cfg.Temperature,
		maxTokens:   cfg.MaxTokens,
		http:        &http.Client{Timeout: timeout},
		log:         log,
	}
}

// New returns a Client when an API key is configured and Noop otherwise.
func New(cfg config.LLMConfig, log zerolog.Logger) Advisor {
	if strings.TrimSpace(cfg.APIKey) == "" {
		return Noop()
	}
	return NewClient(cfg, log)
}

func (c *Client) Enabled() bool {
	return strings.TrimSpace(c.key) != ""
}

type message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type completionRequest struct {
	Model       string    `json:"model"`
	Messages    []message `json:"messages"`
	Temperature float64   `json:"temperature"`
	MaxTokens   int       `json:"max_tokens,omitempty"`
}

type completionResponse struct {
	Choices []struct {
		Message message `json:"message"`
	} `json:"choices"`
}

// Advise sends prompt with the system prompt and returns the first choice.
func (c *Client) Advise(ctx context.Context, prompt string) (string, error) {
	if !c.Enabled() {
		return "", ErrDisabled
	}

	body, err := json.Marshal(completionRequest{
		Model: c.model,
		Messages: []message{
			{Role: "system", Content: SystemPrompt},
			{Role: "user", Content: prompt},
		},
		Temperature: c.temperature,
		MaxTokens:   c.maxTokens,
	})
	if err != nil {
		return "", fmt.Errorf("marshaling completion request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/chat/completions", bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.key)
	req.Header.Set("Content-Type", "application/json")

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		return "", fmt.Errorf("executing completion request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		data, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return "", fmt.Errorf("advice status=%d: %s", resp.StatusCode, strings.TrimSpace(string(data)))
	}

	var out completionResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", fmt.Errorf("decoding completion: %w", err)
	}
	if len(out.Choices) == 0 {
		return "", errors.New("advice: no choices")
	}

	c.log.Debug().Str("model", c.model).Dur("took", time.Since(start)).Msg("advice received")
	return out.Choices[0].Message.Content, nil
}
