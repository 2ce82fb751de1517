// Package provider implements the HTTP client for the external AI
// generation API. The API follows the submit-then-poll shape: a POST
// creates a prediction, and its status is polled until it reaches a
// terminal state or the configured ceiling elapses. Intermediate polls
// feed producer-defined progress milestones into a callback.
package provider

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/sethvargo/go-retry"
)

// Prediction is one generation job as reported by the provider.
type Prediction struct {
	ID       string            `json:"id"`
	Status   string            `json:"status"`
	Output   json.RawMessage   `json:"output,omitempty"`
	Error    string            `json:"error,omitempty"`
	Progress float64           `json:"progress,omitempty"`
	Metrics  PredictionMetrics `json:"metrics"`
}

// PredictionMetrics carries provider-side timing and billing figures.
type PredictionMetrics struct {
	PredictTime float64 `json:"predict_time"`
	CostUSD     float64 `json:"cost_usd"`
}

// Provider prediction statuses.
const (
	PredictionStarting   = "starting"
	PredictionProcessing = "processing"
	PredictionSucceeded  = "succeeded"
	PredictionFailed     = "failed"
	PredictionCanceled   = "canceled"
)

// ProgressFunc receives producer-defined progress milestones during
// polling. Percentages are not guaranteed monotonic.
type ProgressFunc func(percentage float64, message string)

// Config holds provider client settings.
type Config struct {
	BaseURL  string
	APIToken string

	// HTTPClient overrides the default client, mainly for tests.
	HTTPClient *http.Client
}

// Client talks to the provider's predictions API.
type Client struct {
	baseURL string
	token   string
	httpc   *http.Client
	logger  *slog.Logger
}

// NewClient creates a provider client.
func NewClient(cfg Config, logger *slog.Logger) (*Client, error) {
	if cfg.BaseURL == "" {
		return nil, errors.New("provider base URL cannot be empty")
	}
	if logger == nil {
		return nil, errors.New("logger cannot be nil")
	}

	httpc := cfg.HTTPClient
	if httpc == nil {
		httpc = &http.Client{Timeout: 30 * time.Second}
	}

	return &Client{
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		token:   cfg.APIToken,
		httpc:   httpc,
		logger:  logger,
	}, nil
}

// Submit creates a prediction for the given model and input and returns
// the provider's prediction id. Transient failures (5xx, network) are
// retried with exponential backoff; 4xx responses are returned
// immediately as *APIError.
func (c *Client) Submit(ctx context.Context, model string, input map[string]any) (string, error) {
	body, err := json.Marshal(map[string]any{
		"model": model,
		"input": input,
	})
	if err != nil {
		return "", fmt.Errorf("failed to encode submission: %w", err)
	}

	var prediction Prediction
	backoff := retry.WithMaxRetries(3, retry.NewExponential(500*time.Millisecond))
	err = retry.Do(ctx, backoff, func(ctx context.Context) error {
		req, err := http.NewRequestWithContext(
			ctx,
			http.MethodPost,
			c.baseURL+"/v1/predictions",
			bytes.NewReader(body),
		)
		if err != nil {
			return err
		}
		c.setHeaders(req)

		resp, err := c.httpc.Do(req)
		if err != nil {
			c.logger.Warn("prediction submission attempt failed", "model", model, "error", err)
			return retry.RetryableError(err)
		}
		defer func() { _ = resp.Body.Close() }()

		if resp.StatusCode >= 500 {
			apiErr := decodeAPIError(resp)
			c.logger.Warn("provider returned server error on submit",
				"model", model,
				"status", resp.StatusCode)
			return retry.RetryableError(apiErr)
		}
		if resp.StatusCode < 200 || resp.StatusCode >= 300 {
			return decodeAPIError(resp)
		}

		return json.NewDecoder(resp.Body).Decode(&prediction)
	})
	if err != nil {
		return "", err
	}

	if prediction.ID == "" {
		return "", errors.New("provider returned a prediction without an id")
	}

	c.logger.Info("prediction submitted", "model", model, "prediction_id", prediction.ID)
	return prediction.ID, nil
}

// Wait polls the prediction until it reaches a terminal state or the
// timeout ceiling elapses. Each poll forwards the provider's progress
// milestone into onProgress when set. There is no client-initiated
// cancellation beyond ctx; the provider erroring or timing out is the
// only way in-flight work stops.
func (c *Client) Wait(
	ctx context.Context,
	predictionID string,
	timeout time.Duration,
	interval time.Duration,
	onProgress ProgressFunc,
) (*Prediction, error) {
	if interval <= 0 {
		interval = 2 * time.Second
	}
	deadline := time.Now().Add(timeout)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		prediction, err := c.getPrediction(ctx, predictionID)
		if err != nil {
			return nil, err
		}

		switch prediction.Status {
		case PredictionSucceeded:
			if onProgress != nil {
				onProgress(100, "generation finished")
			}
			return prediction, nil

		case PredictionFailed, PredictionCanceled:
			if prediction.Error != "" {
				return nil, fmt.Errorf("%w: %s", ErrPredictionFailed, prediction.Error)
			}
			return nil, fmt.Errorf("%w: prediction %s ended as %s",
				ErrPredictionFailed, predictionID, prediction.Status)

		default:
			if onProgress != nil {
				onProgress(progressFor(prediction), messageFor(prediction))
			}
		}

		if time.Now().After(deadline) {
			return nil, fmt.Errorf("%w after %.0f seconds", ErrPollTimeout, timeout.Seconds())
		}

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-ticker.C:
		}
	}
}

func (c *Client) getPrediction(ctx context.Context, predictionID string) (*Prediction, error) {
	req, err := http.NewRequestWithContext(
		ctx,
		http.MethodGet,
		c.baseURL+"/v1/predictions/"+predictionID,
		nil,
	)
	if err != nil {
		return nil, err
	}
	c.setHeaders(req)

	resp, err := c.httpc.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to poll prediction %s: %w", predictionID, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, decodeAPIError(resp)
	}

	var prediction Prediction
	if err := json.NewDecoder(resp.Body).Decode(&prediction); err != nil {
		return nil, fmt.Errorf("failed to decode prediction %s: %w", predictionID, err)
	}
	return &prediction, nil
}

func (c *Client) setHeaders(req *http.Request) {
	req.Header.Set("Content-Type", "application/json")
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
}

// decodeAPIError turns a non-2xx response into an *APIError, keeping
// the decoded body as Detail for the error normalizer.
func decodeAPIError(resp *http.Response) error {
	body, err := io.ReadAll(io.LimitReader(resp.Body, 64*1024))
	if err != nil || len(body) == 0 {
		return &APIError{StatusCode: resp.StatusCode}
	}

	var detail map[string]any
	if err := json.Unmarshal(body, &detail); err == nil {
		return &APIError{StatusCode: resp.StatusCode, Detail: detail}
	}
	return &APIError{StatusCode: resp.StatusCode, Detail: string(body)}
}

// progressFor maps a non-terminal prediction onto a percentage. The
// provider's own milestone wins when present.
func progressFor(p *Prediction) float64 {
	if p.Progress > 0 {
		return p.Progress
	}
	if p.Status == PredictionStarting {
		return 10
	}
	return 35
}

func messageFor(p *Prediction) string {
	if p.Status == PredictionStarting {
		return "generation starting"
	}
	return "generation in progress"
}
