// Package gemini generates podcast narration scripts with Google's
// Gemini API.
package gemini

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"math/rand"
	"strings"
	"time"

	"google.golang.org/genai"

	"github.com/fable-app/fable-api/internal/config"
)

const scriptPrompt = `You are a podcast writer. Write a complete, engaging narration
script for a short podcast episode about the following topic. Return
only the script text, with no headings or stage directions.

Topic: %s`

// ScriptWriter turns a podcast topic into a narration script.
type ScriptWriter struct {
	logger *slog.Logger
	config config.LLMConfig
	client *genai.Client
	model  string
}

// NewScriptWriter creates a ScriptWriter backed by the Gemini API.
func NewScriptWriter(ctx context.Context, logger *slog.Logger, cfg config.LLMConfig) (*ScriptWriter, error) {
	if logger == nil {
		return nil, errors.New("logger cannot be nil")
	}
	if cfg.GeminiAPIKey == "" {
		return nil, fmt.Errorf("%w: gemini API key cannot be empty", ErrInvalidConfig)
	}
	if cfg.ModelName == "" {
		return nil, fmt.Errorf("%w: model name cannot be empty", ErrInvalidConfig)
	}

	clientConfig := &genai.ClientConfig{
		APIKey:  cfg.GeminiAPIKey,
		Backend: genai.BackendGeminiAPI,
	}
	client, err := genai.NewClient(ctx, clientConfig)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to create Gemini client: %v", ErrInvalidConfig, err)
	}

	return &ScriptWriter{
		logger: logger,
		config: cfg,
		client: client,
		model:  cfg.ModelName,
	}, nil
}

// WriteScript generates a narration script for the topic, retrying
// transient API failures with exponential backoff and jitter.
func (g *ScriptWriter) WriteScript(ctx context.Context, topic string) (string, error) {
	if strings.TrimSpace(topic) == "" {
		return "", ErrEmptyTopic
	}

	prompt := buildPrompt(topic)

	maxRetries := g.config.MaxRetries
	if maxRetries < 0 {
		g.logger.WarnContext(ctx, "invalid max retries value, using default", "max_retries", 3)
		maxRetries = 3
	}
	baseDelaySeconds := g.config.RetryDelaySeconds
	if baseDelaySeconds < 1 {
		baseDelaySeconds = 2
	}

	rng := rand.New(rand.NewSource(time.Now().UnixNano()))

	for attempt := 0; ; attempt++ {
		g.logger.InfoContext(ctx, "making Gemini API call",
			"attempt", attempt+1,
			"max_attempts", maxRetries+1)

		script, err := g.extractScript(
			g.client.Models.GenerateContent(ctx, g.model, genai.Text(prompt), nil))
		if err == nil {
			g.logger.InfoContext(ctx, "script generated", "script_length", len(script))
			return script, nil
		}

		// Safety blocks and empty responses are permanent.
		if errors.Is(err, ErrContentBlocked) || errors.Is(err, ErrEmptyResponse) {
			return "", err
		}

		if attempt >= maxRetries {
			return "", fmt.Errorf("%w: exceeded maximum retry attempts (%d): %v",
				ErrTransientFailure, maxRetries, err)
		}

		// Exponential backoff with jitter, as elsewhere in the repo:
		// delay = baseDelay * 2^attempt * (0.5 + rand(0, 0.5)).
		backoffSeconds := float64(baseDelaySeconds) * math.Pow(2, float64(attempt))
		delay := time.Duration(backoffSeconds * (0.5 + rng.Float64()*0.5) * float64(time.Second))

		g.logger.WarnContext(ctx, "Gemini API call failed, retrying",
			"attempt", attempt+1,
			"delay", delay,
			"error", err)

		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return "", fmt.Errorf("%w: %v", ErrTransientFailure, ctx.Err())
		}
	}
}

func (g *ScriptWriter) extractScript(resp *genai.GenerateContentResponse, err error) (string, error) {
	if err != nil {
		return "", err
	}
	if resp == nil || len(resp.Candidates) == 0 {
		return "", ErrEmptyResponse
	}

	candidate := resp.Candidates[0]
	if candidate.FinishReason == genai.FinishReasonSafety {
		return "", ErrContentBlocked
	}
	if candidate.Content == nil {
		return "", ErrEmptyResponse
	}

	var text strings.Builder
	for _, part := range candidate.Content.Parts {
		if part != nil {
			text.WriteString(part.Text)
		}
	}

	script := strings.TrimSpace(text.String())
	if script == "" {
		return "", ErrEmptyResponse
	}
	return script, nil
}

func buildPrompt(topic string) string {
	return fmt.Sprintf(scriptPrompt, strings.TrimSpace(topic))
}
