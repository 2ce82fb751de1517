package provider

import (
	"encoding/json"
	"errors"
	"fmt"
)

// Sentinel errors returned by the provider client.
var (
	// ErrPollTimeout indicates the poll ceiling elapsed before the
	// provider reached a terminal state.
	ErrPollTimeout = errors.New("generation timed out")

	// ErrPredictionFailed indicates the provider itself reported the
	// prediction as failed or canceled.
	ErrPredictionFailed = errors.New("prediction failed")
)

// APIError is a non-2xx response from the provider HTTP API. Detail
// holds the decoded response body: a map for JSON objects, the raw body
// string otherwise. The error normalizer inspects Detail to build the
// user-facing message.
type APIError struct {
	StatusCode int
	Detail     any
}

func (e *APIError) Error() string {
	return fmt.Sprintf("provider API error (status %d): %s", e.StatusCode, e.detailText())
}

func (e *APIError) detailText() string {
	switch d := e.Detail.(type) {
	case string:
		return d
	case nil:
		return ""
	default:
		b, err := json.Marshal(d)
		if err != nil {
			return fmt.Sprintf("%v", d)
		}
		return string(b)
	}
}
