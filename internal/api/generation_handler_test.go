package api

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fable-app/fable-api/internal/api/shared"
	"github.com/fable-app/fable-api/internal/generation"
	"github.com/fable-app/fable-api/internal/provider"
	"github.com/fable-app/fable-api/internal/store"
	"github.com/fable-app/fable-api/internal/task"
)

// Handler-level fakes. The generation adapters run in background
// goroutines, so these return instantly and never touch the network.

type stubProvider struct{}

func (p *stubProvider) Submit(ctx context.Context, model string, input map[string]any) (string, error) {
	return "pred-1", nil
}

func (p *stubProvider) Wait(
	ctx context.Context,
	predictionID string,
	timeout, interval time.Duration,
	onProgress provider.ProgressFunc,
) (*provider.Prediction, error) {
	return &provider.Prediction{
		ID:     predictionID,
		Status: provider.PredictionSucceeded,
		Output: json.RawMessage(`"https://provider.example/out.bin"`),
	}, nil
}

type stubScripts struct{}

func (s *stubScripts) WriteScript(ctx context.Context, topic string) (string, error) {
	return "A short narration about " + topic + ".", nil
}

type stubArtifacts struct{}

func (a *stubArtifacts) SaveFromURL(ctx context.Context, taskID, filename, srcURL string) (string, error) {
	return "/media/generated/" + taskID + "/" + filename, nil
}

type stubAssets struct{}

func (a *stubAssets) RecordAsset(ctx context.Context, asset *store.Asset) error { return nil }

func (a *stubAssets) GetAssetByTaskID(ctx context.Context, taskID string) (*store.Asset, error) {
	return nil, store.ErrAssetNotFound
}

// withTestUser injects an authenticated user the way the auth
// middleware would.
func withTestUser(userID uuid.UUID) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := context.WithValue(r.Context(), shared.UserIDContextKey, userID)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func newTestService(t *testing.T) *generation.Service {
	t.Helper()

	manager := task.NewManager(task.DefaultManagerConfig(), slog.New(slog.NewTextHandler(io.Discard, nil)))
	svc, err := generation.NewService(
		manager,
		&stubProvider{},
		&stubScripts{},
		&stubArtifacts{},
		&stubAssets{},
		generation.Config{
			PollTimeout:  time.Second,
			PollInterval: time.Millisecond,
			ImageModel:   "acme/flux-pro",
			SpeechModel:  "acme/speech-hd",
			VideoModel:   "acme/kling-std",
		},
		slog.New(slog.NewTextHandler(io.Discard, nil)),
	)
	require.NoError(t, err, "Failed to create generation service")
	return svc
}

func newTestRouter(t *testing.T, svc *generation.Service, userID uuid.UUID) chi.Router {
	t.Helper()

	handler := NewGenerationHandler(svc)
	r := chi.NewRouter()
	r.Group(func(r chi.Router) {
		r.Use(withTestUser(userID))
		r.Post("/api/generations/story-illustration", handler.CreateStoryIllustration)
		r.Post("/api/generations/podcast", handler.CreatePodcast)
		r.Post("/api/generations/avatar-video", handler.CreateAvatarVideo)
	})
	return r
}

func TestCreateEndpointsReturnPendingTask(t *testing.T) {
	svc := newTestService(t)
	router := newTestRouter(t, svc, uuid.New())

	testCases := []struct {
		name string
		path string
		body string
	}{
		{
			name: "story illustration",
			path: "/api/generations/story-illustration",
			body: `{"story_id":"story-7","prompt":"a fox in the snow","style":"watercolor"}`,
		},
		{
			name: "podcast from topic",
			path: "/api/generations/podcast",
			body: `{"topic":"the history of lighthouses"}`,
		},
		{
			name: "avatar video",
			path: "/api/generations/avatar-video",
			body: `{"script":"Hello there.","avatar_id":"avatar-3"}`,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, tc.path, strings.NewReader(tc.body))
			w := httptest.NewRecorder()
			router.ServeHTTP(w, req)

			require.Equal(t, http.StatusOK, w.Code, "create endpoint should accept the request")

			var resp TaskAcceptedResponse
			require.NoError(t, json.NewDecoder(w.Body).Decode(&resp))
			assert.NotEmpty(t, resp.TaskID, "response must carry a pollable task ID")
			assert.Equal(t, "pending", resp.Status)

			// The task is registered before the handler returns, so an
			// immediate poll must find it.
			record, found := svc.Tasks().GetTaskStatus(resp.TaskID)
			require.True(t, found, "task should be pollable immediately after creation")
			assert.False(t, record.Status.IsTerminal() && record.Result == nil && record.Error == "",
				"terminal records must carry a result or an error")
		})
	}
}

func TestCreateStoryIllustrationRejectsInvalidBody(t *testing.T) {
	svc := newTestService(t)
	router := newTestRouter(t, svc, uuid.New())

	testCases := []struct {
		name string
		body string
	}{
		{name: "malformed JSON", body: `{"story_id":`},
		{name: "missing prompt", body: `{"story_id":"story-7"}`},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(
				http.MethodPost,
				"/api/generations/story-illustration",
				strings.NewReader(tc.body),
			)
			w := httptest.NewRecorder()
			router.ServeHTTP(w, req)

			assert.Equal(t, http.StatusBadRequest, w.Code)
		})
	}
}

func TestCreatePodcastRequiresTopicOrScript(t *testing.T) {
	svc := newTestService(t)
	router := newTestRouter(t, svc, uuid.New())

	req := httptest.NewRequest(http.MethodPost, "/api/generations/podcast", strings.NewReader(`{}`))
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusBadRequest, w.Code, "a podcast request needs a topic or a script")

	req = httptest.NewRequest(
		http.MethodPost,
		"/api/generations/podcast",
		strings.NewReader(`{"script":"Full script provided by the caller."}`),
	)
	w = httptest.NewRecorder()
	router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code, "a script alone is sufficient")
}

func TestCreateEndpointsRequireAuthenticatedUser(t *testing.T) {
	svc := newTestService(t)
	handler := NewGenerationHandler(svc)

	r := chi.NewRouter()
	r.Post("/api/generations/avatar-video", handler.CreateAvatarVideo)

	req := httptest.NewRequest(
		http.MethodPost,
		"/api/generations/avatar-video",
		strings.NewReader(`{"script":"Hello.","avatar_id":"avatar-3"}`),
	)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusUnauthorized, w.Code, "requests without a user in context are rejected")
}
