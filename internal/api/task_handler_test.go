package api

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fable-app/fable-api/internal/store"
	"github.com/fable-app/fable-api/internal/task"
)

// fakeAssetStore serves a fixed set of catalog entries, or a fixed
// error when err is set.
type fakeAssetStore struct {
	assets map[string]*store.Asset
	err    error
}

func (f *fakeAssetStore) RecordAsset(ctx context.Context, asset *store.Asset) error { return nil }

func (f *fakeAssetStore) GetAssetByTaskID(ctx context.Context, taskID string) (*store.Asset, error) {
	if f.err != nil {
		return nil, f.err
	}
	asset, ok := f.assets[taskID]
	if !ok {
		return nil, store.ErrAssetNotFound
	}
	return asset, nil
}

func newStatusRouter(manager *task.Manager, assets store.AssetStore) chi.Router {
	if assets == nil {
		assets = &fakeAssetStore{}
	}
	handler := NewTaskHandler(manager, assets)
	r := chi.NewRouter()
	r.Get("/api/tasks/{task_id}/status", handler.GetTaskStatus)
	r.Get("/api/tasks/{task_id}/asset", handler.GetTaskAsset)
	return r
}

func TestGetTaskStatusReturnsSnapshot(t *testing.T) {
	manager := task.NewManager(task.DefaultManagerConfig(), slog.New(slog.NewTextHandler(io.Discard, nil)))
	router := newStatusRouter(manager, nil)

	taskID := manager.CreateTask(task.TypePodcastGeneration)
	progress := 42.0
	manager.UpdateTaskStatus(taskID, task.Update{
		Status:   task.StatusProcessing,
		Progress: &progress,
		Message:  "generating audio",
	})

	req := httptest.NewRequest(http.MethodGet, "/api/tasks/"+taskID+"/status", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)

	var body map[string]any
	require.NoError(t, json.NewDecoder(w.Body).Decode(&body))
	assert.Equal(t, taskID, body["task_id"])
	assert.Equal(t, "processing", body["status"])
	assert.Equal(t, 42.0, body["progress"])
	assert.Equal(t, "generating audio", body["message"])
	assert.NotContains(t, body, "result", "non-terminal records carry no result")
	assert.NotContains(t, body, "error", "non-terminal records carry no error")
}

func TestGetTaskStatusUnknownAndEvictedLookIdentical(t *testing.T) {
	manager := task.NewManager(task.ManagerConfig{TTL: 10 * time.Millisecond}, slog.New(slog.NewTextHandler(io.Discard, nil)))
	router := newStatusRouter(manager, nil)

	get := func(id string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodGet, "/api/tasks/"+id+"/status", nil)
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)
		return w
	}

	// Never-existed id.
	unknown := get("no-such-task")
	require.Equal(t, http.StatusNotFound, unknown.Code)

	// Evicted id.
	taskID := manager.CreateTask(task.TypeStoryIllustration)
	time.Sleep(25 * time.Millisecond)
	evicted := get(taskID)
	require.Equal(t, http.StatusNotFound, evicted.Code)

	// The two bodies must not let a caller distinguish the cases.
	var unknownBody, evictedBody map[string]any
	require.NoError(t, json.NewDecoder(unknown.Body).Decode(&unknownBody))
	require.NoError(t, json.NewDecoder(evicted.Body).Decode(&evictedBody))
	assert.Equal(t, unknownBody["error"], evictedBody["error"])
}

func TestGetTaskStatusCompletedCarriesResult(t *testing.T) {
	manager := task.NewManager(task.DefaultManagerConfig(), slog.New(slog.NewTextHandler(io.Discard, nil)))
	router := newStatusRouter(manager, nil)

	taskID := manager.CreateTask(task.TypeVideoGeneration)
	progress := 100.0
	manager.UpdateTaskStatus(taskID, task.Update{
		Status:   task.StatusCompleted,
		Progress: &progress,
		Message:  "completed",
		Result: &task.AvatarVideoResult{
			VideoURL: "/media/generated/" + taskID + "/avatar.mp4",
			Model:    "acme/kling-std",
		},
	})

	req := httptest.NewRequest(http.MethodGet, "/api/tasks/"+taskID+"/status", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)

	var body map[string]any
	require.NoError(t, json.NewDecoder(w.Body).Decode(&body))
	assert.Equal(t, "completed", body["status"])
	require.Contains(t, body, "result")
	result := body["result"].(map[string]any)
	assert.Equal(t, "/media/generated/"+taskID+"/avatar.mp4", result["video_url"])
	assert.NotContains(t, body, "error", "completed records never carry an error")
}

func TestGetTaskAssetSurvivesRegistryEviction(t *testing.T) {
	manager := task.NewManager(task.ManagerConfig{TTL: 10 * time.Millisecond}, slog.New(slog.NewTextHandler(io.Discard, nil)))

	taskID := manager.CreateTask(task.TypeVideoGeneration)
	assets := &fakeAssetStore{assets: map[string]*store.Asset{
		taskID: {
			ID:        uuid.New(),
			TaskID:    taskID,
			UserID:    uuid.New(),
			Kind:      task.TypeVideoGeneration,
			URL:       "/media/generated/" + taskID + "/avatar.mp4",
			Model:     "acme/kling-std",
			CostUSD:   0.25,
			CreatedAt: time.Now(),
		},
	}}
	router := newStatusRouter(manager, assets)

	// Age the record out of the registry; the catalog entry remains.
	time.Sleep(25 * time.Millisecond)

	req := httptest.NewRequest(http.MethodGet, "/api/tasks/"+taskID+"/status", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	require.Equal(t, http.StatusNotFound, w.Code, "the task record itself is evicted")

	req = httptest.NewRequest(http.MethodGet, "/api/tasks/"+taskID+"/asset", nil)
	w = httptest.NewRecorder()
	router.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code, "the catalog outlives the registry")

	var body AssetResponse
	require.NoError(t, json.NewDecoder(w.Body).Decode(&body))
	assert.Equal(t, taskID, body.TaskID)
	assert.Equal(t, "/media/generated/"+taskID+"/avatar.mp4", body.URL)
	assert.Equal(t, "acme/kling-std", body.Model)
	assert.Equal(t, 0.25, body.CostUSD)
}

func TestGetTaskAssetNotFound(t *testing.T) {
	manager := task.NewManager(task.DefaultManagerConfig(), slog.New(slog.NewTextHandler(io.Discard, nil)))
	router := newStatusRouter(manager, nil)

	req := httptest.NewRequest(http.MethodGet, "/api/tasks/no-such-task/asset", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestGetTaskAssetStoreFailure(t *testing.T) {
	manager := task.NewManager(task.DefaultManagerConfig(), slog.New(slog.NewTextHandler(io.Discard, nil)))
	router := newStatusRouter(manager, &fakeAssetStore{err: assert.AnError})

	req := httptest.NewRequest(http.MethodGet, "/api/tasks/task-1/asset", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusInternalServerError, w.Code)

	var body map[string]any
	require.NoError(t, json.NewDecoder(w.Body).Decode(&body))
	assert.Equal(t, "Failed to look up asset", body["error"], "store errors never leak to the client")
}
