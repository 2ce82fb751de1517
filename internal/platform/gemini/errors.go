package gemini

import "errors"

// Error definitions for the gemini package.
var (
	// ErrEmptyTopic is returned when a script is requested for an
	// empty topic.
	ErrEmptyTopic = errors.New("topic cannot be empty")

	// ErrInvalidConfig indicates the generator configuration is
	// unusable.
	ErrInvalidConfig = errors.New("invalid gemini configuration")

	// ErrContentBlocked indicates the response was blocked by safety
	// filters. Permanent: never retried.
	ErrContentBlocked = errors.New("content blocked by safety filters")

	// ErrEmptyResponse indicates the API returned no usable text.
	ErrEmptyResponse = errors.New("empty response from model")

	// ErrTransientFailure indicates retries were exhausted on a
	// transient failure.
	ErrTransientFailure = errors.New("transient failure calling model")
)
