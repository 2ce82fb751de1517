package api

import "time"

// Common request/response structures

// TaskAcceptedResponse is returned by every generation create endpoint.
// The caller polls the task status endpoint with the returned ID.
type TaskAcceptedResponse struct {
	// TaskID identifies the background task to poll.
	TaskID string `json:"task_id"`

	// Status is always "pending" at creation time.
	Status string `json:"status"`

	// Message is a human-readable hint about what was started.
	Message string `json:"message"`
}

// AssetResponse is the catalog entry returned by the asset lookup
// endpoint. Unlike task records it survives registry eviction.
type AssetResponse struct {
	TaskID    string    `json:"task_id"`
	Kind      string    `json:"kind"`
	URL       string    `json:"url"`
	Model     string    `json:"model"`
	CostUSD   float64   `json:"cost_usd"`
	CreatedAt time.Time `json:"created_at"`
}
