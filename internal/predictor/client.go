package predictor

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"golang.org/x/sync/singleflight"

	"timed-quiz-service/internal/domain"
)

// Client calls the difficulty prediction service.
// Concurrent predictions for the same sample share a single upstream request.
type Client struct {
	baseURL    string
	httpClient *http.Client
	sf         singleflight.Group
	log        *slog.Logger
}

func NewClient(baseURL string, log *slog.Logger) *Client {
	if log == nil {
		log = slog.Default()
	}
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: 10 * time.Second},
		log:        log.With("component", "predictor"),
	}
}

type predictResponse struct {
	Difficulty string `json:"difficulty"`
}

// Predict returns easy, medium or hard. Transport errors, error statuses and
// unknown labels are all reported as domain.ErrPrediction.
func (c *Client) Predict(ctx context.Context, sample domain.PerformanceSample) (string, error) {
	key := sampleKey(sample)
	result, err, shared := c.sf.Do(key, func() (interface{}, error) {
		return c.predict(ctx, sample)
	})
	if err != nil {
		return "", err
	}
	if shared {
		c.log.DebugContext(ctx, "prediction shared with concurrent caller", "sample", key)
	}
	return result.(string), nil
}

func (c *Client) predict(ctx context.Context, sample domain.PerformanceSample) (string, error) {
	body, err := json.Marshal(sample)
	if err != nil {
		return "", fmt.Errorf("%w: %v", domain.ErrPrediction, err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/predict", bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("%w: %v", domain.ErrPrediction, err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.log.ErrorContext(ctx, "prediction request failed", "error", err)
		return "", fmt.Errorf("%w: %v", domain.ErrPrediction, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("%w: status %d", domain.ErrPrediction, resp.StatusCode)
	}

	var out predictResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", fmt.Errorf("%w: decode: %v", domain.ErrPrediction, err)
	}
	d, err := domain.ParseDifficulty(out.Difficulty)
	if err != nil {
		return "", fmt.Errorf("%w: label %q", domain.ErrPrediction, out.Difficulty)
	}
	return strings.ToLower(string(d)), nil
}

func sampleKey(s domain.PerformanceSample) string {
	f := func(v float64) string { return strconv.FormatFloat(v, 'g', -1, 64) }
	return f(s.Correct) + "|" + f(s.AvgTime) + "|" + f(s.Retries)
}
