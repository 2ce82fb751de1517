package generation

import (
	"encoding/json"
	"errors"
	"regexp"
	"strings"

	"github.com/fable-app/fable-api/internal/provider"
)

// InsufficientCreditsMessage is the canned user-facing message shown
// when the provider rejects a request for lack of credits.
const InsufficientCreditsMessage = "Insufficient generation credits. Please top up your account and try again."

var jsonMessagePattern = regexp.MustCompile(`"message"\s*:\s*"([^"]+)"`)

// NormalizeError flattens an error of unknown shape into the single
// human-readable string stored on a failed task record. Clients only
// ever see this string, never a raw error chain.
//
// The rules run in strict priority order; earlier rules are strictly
// more specific:
//  1. An *APIError whose detail is an object: parse its "response"
//     field as JSON and take "message", else take its "error" field.
//  2. An *APIError whose detail is a plain string: the string itself.
//  3. A stringified error containing "insufficient credits"
//     (case-insensitive): the canned credits message.
//  4. A `"message": "..."` fragment regex-extracted from the
//     stringified error.
//  5. The raw stringified error.
func NormalizeError(err error) string {
	if err == nil {
		return ""
	}

	var apiErr *provider.APIError
	if errors.As(err, &apiErr) {
		switch detail := apiErr.Detail.(type) {
		case map[string]any:
			if raw, ok := detail["response"].(string); ok {
				var payload struct {
					Message string `json:"message"`
				}
				if json.Unmarshal([]byte(raw), &payload) == nil && payload.Message != "" {
					return payload.Message
				}
			}
			if msg, ok := detail["error"].(string); ok && msg != "" {
				return msg
			}
		case string:
			if detail != "" {
				return detail
			}
		}
	}

	text := err.Error()
	if strings.Contains(strings.ToLower(text), "insufficient credits") {
		return InsufficientCreditsMessage
	}
	if m := jsonMessagePattern.FindStringSubmatch(text); len(m) == 2 {
		return m[1]
	}
	return text
}
