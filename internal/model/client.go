package model

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

	"github.com/couchcryptid/weather-type-service/internal/domain"
	"github.com/couchcryptid/weather-type-service/internal/observability"
)

// Client implements domain.Predictor against a remote inference endpoint
// serving the same trained model.
type Client struct {
	httpClient *http.Client
	baseURL    string
	classes    []int
	metrics    *observability.Metrics
	logger     *slog.Logger
}

// NewClient creates a remote inference client for baseURL. classes declares
// the endpoint's class codes; nil leaves the class space undeclared.
func NewClient(baseURL string, timeout time.Duration, classes []int, metrics *observability.Metrics, logger *slog.Logger) *Client {
	return &Client{
		httpClient: &http.Client{
			Timeout: timeout,
		},
		baseURL: strings.TrimRight(baseURL, "/"),
		classes: append([]int(nil), classes...),
		metrics: metrics,
		logger:  logger,
	}
}

// Classes returns the declared class codes, or nil.
func (c *Client) Classes() []int {
	if len(c.classes) == 0 {
		return nil
	}
	return append([]int(nil), c.classes...)
}

// Predict posts rows to {baseURL}/predict and returns one class per row.
func (c *Client) Predict(ctx context.Context, rows []domain.FeatureVector) ([]int, error) {
	body, err := json.Marshal(predictRequest{Instances: rows})
	if err != nil {
		return nil, fmt.Errorf("encode request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/predict", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	c.metrics.ModelRequestDuration.Observe(time.Since(start).Seconds())
	if err != nil {
		return nil, fmt.Errorf("predict request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		c.logger.Warn("model endpoint error", "status", resp.StatusCode, "body", string(msg))
		return nil, fmt.Errorf("model API error: status %d: %s", resp.StatusCode, msg)
	}

	var out predictResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	if len(out.Predictions) != len(rows) {
		return nil, fmt.Errorf("model API returned %d predictions for %d rows", len(out.Predictions), len(rows))
	}
	return out.Predictions, nil
}

// Inference API wire types.

type predictRequest struct {
	Instances []domain.FeatureVector `json:"instances"`
}

type predictResponse struct {
	Predictions []int `json:"predictions"`
}
