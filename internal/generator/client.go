package generator

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

	"timed-quiz-service/internal/domain"
)

// Client asks the prompt proxy for a question set and validates the reply.
type Client struct {
	baseURL    string
	httpClient *http.Client
	parser     *Parser
	count      int
	log        *slog.Logger
}

// Option configures a Client.
type Option func(*Client)

func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

func WithQuestionCount(n int) Option {
	return func(c *Client) { c.count = n }
}

func WithLogger(log *slog.Logger) Option {
	return func(c *Client) { c.log = log }
}

func NewClient(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: 60 * time.Second},
		parser:     NewParser(),
		count:      DefaultQuestionCount,
		log:        slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	c.log = c.log.With("component", "generator")
	return c
}

type promptRequest struct {
	Prompt string `json:"prompt"`
}

type promptResponse struct {
	Response *string `json:"response"`
}

// Generate implements app.QuestionGenerator. Every failure, from transport to a
// single malformed record, is reported as domain.ErrGeneration.
func (c *Client) Generate(ctx context.Context, topic string, difficulty domain.Difficulty) (domain.QuestionSet, error) {
	body, err := json.Marshal(promptRequest{Prompt: BuildPrompt(topic, difficulty, c.count)})
	if err != nil {
		return nil, fmt.Errorf("%w: encode prompt: %v", domain.ErrGeneration, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/gemini", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrGeneration, err)
	}
	req.Header.Set("Content-Type", "application/json")

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.log.ErrorContext(ctx, "generator request failed", "error", err)
		return nil, fmt.Errorf("%w: %v", domain.ErrGeneration, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, fmt.Errorf("%w: read response: %v", domain.ErrGeneration, err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		c.log.WarnContext(ctx, "generator returned error status", "status", resp.StatusCode)
		return nil, fmt.Errorf("%w: status %d", domain.ErrGeneration, resp.StatusCode)
	}

	set, err := c.parser.Parse(responseText(raw))
	if err != nil {
		c.log.WarnContext(ctx, "generator payload rejected", "error", err)
		return nil, err
	}
	c.log.DebugContext(ctx, "question set generated", "topic", topic, "questions", len(set), "took", time.Since(start))
	return set, nil
}

// responseText unwraps the proxy envelope; a bare body is taken as the text itself.
func responseText(body []byte) string {
	var env promptResponse
	if err := json.Unmarshal(body, &env); err == nil && env.Response != nil {
		return *env.Response
	}
	return string(body)
}
