package api

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/fable-app/fable-api/internal/api/shared"
	"github.com/fable-app/fable-api/internal/store"
	"github.com/fable-app/fable-api/internal/task"
)

// TaskHandler handles task status polling and asset lookup requests.
type TaskHandler struct {
	tasks  *task.Manager
	assets store.AssetStore
}

// NewTaskHandler creates a new TaskHandler.
func NewTaskHandler(tasks *task.Manager, assets store.AssetStore) *TaskHandler {
	return &TaskHandler{tasks: tasks, assets: assets}
}

// GetTaskStatus handles GET /api/tasks/{task_id}/status requests.
//
// Unknown and expired task IDs are indistinguishable to the caller:
// both produce the same 404 response.
func (h *TaskHandler) GetTaskStatus(w http.ResponseWriter, r *http.Request) {
	taskID := chi.URLParam(r, "task_id")
	if taskID == "" {
		shared.RespondWithError(w, r, http.StatusBadRequest, "Task ID required")
		return
	}

	record, ok := h.tasks.GetTaskStatus(taskID)
	if !ok {
		shared.RespondWithError(w, r, http.StatusNotFound, "Task not found")
		return
	}

	shared.RespondWithJSON(w, r, http.StatusOK, record)
}

// GetTaskAsset handles GET /api/tasks/{task_id}/asset requests.
//
// The task registry forgets records after the TTL; the asset catalog
// remembers. This lets a client recover a generated artifact's URL
// after the task record itself has been evicted.
func (h *TaskHandler) GetTaskAsset(w http.ResponseWriter, r *http.Request) {
	taskID := chi.URLParam(r, "task_id")
	if taskID == "" {
		shared.RespondWithError(w, r, http.StatusBadRequest, "Task ID required")
		return
	}

	asset, err := h.assets.GetAssetByTaskID(r.Context(), taskID)
	if err != nil {
		if errors.Is(err, store.ErrAssetNotFound) {
			shared.RespondWithError(w, r, http.StatusNotFound, "Asset not found")
			return
		}
		shared.RespondWithErrorAndLog(w, r, http.StatusInternalServerError,
			"Failed to look up asset", err)
		return
	}

	shared.RespondWithJSON(w, r, http.StatusOK, AssetResponse{
		TaskID:    asset.TaskID,
		Kind:      asset.Kind,
		URL:       asset.URL,
		Model:     asset.Model,
		CostUSD:   asset.CostUSD,
		CreatedAt: asset.CreatedAt,
	})
}
