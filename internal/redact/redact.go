// Package redact provides utilities for redacting sensitive information from
// strings before they are logged or returned in error responses. Provider API
// tokens, model API keys, connection strings, and local media paths all flow
// through error values in this service, so raw errors are never safe to echo.
package redact

import "regexp"

// Constants for redaction placeholders
const (
	RedactionPlaceholder          = "[REDACTED]"
	RedactedPathPlaceholder       = "[REDACTED_PATH]"
	RedactedCredentialPlaceholder = "[REDACTED_CREDENTIAL]"
	RedactedKeyPlaceholder        = "[REDACTED_KEY]"
)

// Precompiled regex patterns
var (
	// Database connection strings
	dbConnRegex = regexp.MustCompile(`(?i)(postgres|mysql|db|database|connection)://[^@]+@`)

	// Credentials and tokens
	passwordRegex = regexp.MustCompile(`(?i)(password|passwd|pwd)([=:\s]?['"]?)[^'"&\s]{3,}`)
	apiKeyRegex   = regexp.MustCompile(
		`(?i)(api[_-]?key|token|secret|key|access|auth)(['"\s:=]+)[A-Za-z0-9_\-.~+/]{8,}`,
	)

	// Replicate-style provider tokens
	providerTokenRegex = regexp.MustCompile(`\br8_[A-Za-z0-9]{8,}\b`)

	// JWT token pattern - matches the standard three-part base64url-encoded JWT token format
	jwtTokenRegex = regexp.MustCompile(`eyJ[a-zA-Z0-9_-]+\.eyJ[a-zA-Z0-9_-]+\.[a-zA-Z0-9_-]+`)

	// File paths
	unixPathRegex = regexp.MustCompile(`(/[\w.-]+){2,}`)

	patterns = []*regexp.Regexp{
		dbConnRegex, passwordRegex, apiKeyRegex, providerTokenRegex,
		jwtTokenRegex, unixPathRegex,
	}

	patternPlaceholders = map[*regexp.Regexp]string{
		dbConnRegex:        RedactedCredentialPlaceholder,
		passwordRegex:      RedactedCredentialPlaceholder,
		apiKeyRegex:        RedactedKeyPlaceholder,
		providerTokenRegex: RedactedKeyPlaceholder,
		jwtTokenRegex:      "[REDACTED_JWT]",
		unixPathRegex:      RedactedPathPlaceholder,
	}
)

// String redacts sensitive information from the input string
func String(input string) string {
	if input == "" {
		return input
	}

	result := input
	for _, pattern := range patterns {
		placeholder := RedactionPlaceholder
		if ph, ok := patternPlaceholders[pattern]; ok {
			placeholder = ph
		}
		result = pattern.ReplaceAllString(result, placeholder)
	}

	return result
}

// Error redacts sensitive information from an error's Error() output
func Error(err error) string {
	if err == nil {
		return ""
	}

	return String(err.Error())
}
