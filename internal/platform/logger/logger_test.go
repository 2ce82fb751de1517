package logger_test

import (
	"bytes"
	"context"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fable-app/fable-api/internal/config"
	"github.com/fable-app/fable-api/internal/platform/logger"
)

func TestSetupReturnsConfiguredLogger(t *testing.T) {
	// Restore the default logger once Setup has replaced it.
	original := slog.Default()
	defer slog.SetDefault(original)

	testCases := []struct {
		name     string
		logLevel string
	}{
		{name: "debug_level", logLevel: "debug"},
		{name: "info_level", logLevel: "info"},
		{name: "warn_level", logLevel: "warn"},
		{name: "error_level", logLevel: "error"},
		{name: "invalid_level_falls_back_to_info", logLevel: "verbose"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			log, err := logger.Setup(config.ServerConfig{Port: 8080, LogLevel: tc.logLevel})
			require.NoError(t, err, "Setup should not fail for log level %q", tc.logLevel)
			require.NotNil(t, log, "Setup should return a usable logger")
			assert.Same(t, log, slog.Default(), "Setup should install the logger as the default")
		})
	}
}

func TestFromContext(t *testing.T) {
	buf := &bytes.Buffer{}
	log := slog.New(slog.NewJSONHandler(buf, nil))

	ctx := logger.WithLogger(context.Background(), log)
	assert.Same(t, log, logger.FromContext(ctx), "FromContext should return the stored logger")

	assert.Nil(t, logger.FromContext(context.Background()), "FromContext should return nil for a bare context")
	assert.Nil(t, logger.FromContext(nil), "FromContext should tolerate a nil context")
}

func TestFromContextOrDefault(t *testing.T) {
	buf := &bytes.Buffer{}
	log := slog.New(slog.NewJSONHandler(buf, nil))

	testCases := []struct {
		name     string
		ctx      context.Context
		expected *slog.Logger
	}{
		{
			name:     "nil_context_returns_default",
			ctx:      nil,
			expected: slog.Default(),
		},
		{
			name:     "context_without_logger_returns_default",
			ctx:      context.Background(),
			expected: slog.Default(),
		},
		{
			name:     "context_with_logger_returns_context_logger",
			ctx:      logger.WithLogger(context.Background(), log),
			expected: log,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Same(t, tc.expected, logger.FromContextOrDefault(tc.ctx))
		})
	}
}

func TestRequestIDRoundTrip(t *testing.T) {
	ctx := logger.WithRequestID(context.Background(), "req-123")
	assert.Equal(t, "req-123", logger.RequestIDFromContext(ctx))
	assert.Empty(t, logger.RequestIDFromContext(context.Background()),
		"a context without a request ID yields the empty string")
}
