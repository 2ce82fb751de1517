package api

import (
	"net/http"

	"github.com/google/uuid"

	"github.com/fable-app/fable-api/internal/api/middleware"
	"github.com/fable-app/fable-api/internal/api/shared"
	"github.com/fable-app/fable-api/internal/generation"
)

// StoryIllustrationRequest represents the request body for starting a
// story illustration generation.
type StoryIllustrationRequest struct {
	StoryID string `json:"story_id" validate:"omitempty,max=200"`
	Prompt  string `json:"prompt"   validate:"required,min=1,max=4000"`
	Style   string `json:"style"    validate:"omitempty,max=200"`
}

// PodcastRequest represents the request body for starting a podcast
// generation. Either a topic (the script is written for you) or a full
// script must be provided.
type PodcastRequest struct {
	Topic  string `json:"topic"  validate:"required_without=Script,omitempty,min=1,max=500"`
	Script string `json:"script" validate:"required_without=Topic,omitempty,min=1,max=20000"`
	Voice  string `json:"voice"  validate:"omitempty,max=100"`
}

// AvatarVideoRequest represents the request body for starting an avatar
// video generation.
type AvatarVideoRequest struct {
	Script   string `json:"script"    validate:"required,min=1,max=20000"`
	AvatarID string `json:"avatar_id" validate:"omitempty,max=200"`
	Prompt   string `json:"prompt"    validate:"omitempty,max=4000"`
}

// GenerationHandler handles the generation create endpoints.
type GenerationHandler struct {
	service *generation.Service
}

// NewGenerationHandler creates a new GenerationHandler.
func NewGenerationHandler(service *generation.Service) *GenerationHandler {
	return &GenerationHandler{service: service}
}

// CreateStoryIllustration handles POST /api/generations/story-illustration.
// It registers a task, starts generation in the background, and returns
// the task ID immediately.
func (h *GenerationHandler) CreateStoryIllustration(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.requireUser(w, r)
	if !ok {
		return
	}

	var req StoryIllustrationRequest
	if err := shared.DecodeJSON(r, &req); err != nil {
		shared.RespondWithErrorAndLog(w, r, http.StatusBadRequest, "Invalid request format", err)
		return
	}
	if err := shared.ValidateRequest(req); err != nil {
		shared.RespondWithError(w, r, http.StatusBadRequest, "Validation error: "+err.Error())
		return
	}

	taskID := h.service.StartStoryIllustration(generation.StoryIllustrationParams{
		UserID:  userID,
		StoryID: req.StoryID,
		Prompt:  req.Prompt,
		Style:   req.Style,
	})

	respondTaskAccepted(w, r, taskID, "story illustration generation started")
}

// CreatePodcast handles POST /api/generations/podcast.
func (h *GenerationHandler) CreatePodcast(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.requireUser(w, r)
	if !ok {
		return
	}

	var req PodcastRequest
	if err := shared.DecodeJSON(r, &req); err != nil {
		shared.RespondWithErrorAndLog(w, r, http.StatusBadRequest, "Invalid request format", err)
		return
	}
	if err := shared.ValidateRequest(req); err != nil {
		shared.RespondWithError(w, r, http.StatusBadRequest, "Validation error: "+err.Error())
		return
	}

	taskID := h.service.StartPodcast(generation.PodcastParams{
		UserID: userID,
		Topic:  req.Topic,
		Script: req.Script,
		Voice:  req.Voice,
	})

	respondTaskAccepted(w, r, taskID, "podcast generation started")
}

// CreateAvatarVideo handles POST /api/generations/avatar-video.
func (h *GenerationHandler) CreateAvatarVideo(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.requireUser(w, r)
	if !ok {
		return
	}

	var req AvatarVideoRequest
	if err := shared.DecodeJSON(r, &req); err != nil {
		shared.RespondWithErrorAndLog(w, r, http.StatusBadRequest, "Invalid request format", err)
		return
	}
	if err := shared.ValidateRequest(req); err != nil {
		shared.RespondWithError(w, r, http.StatusBadRequest, "Validation error: "+err.Error())
		return
	}

	taskID := h.service.StartAvatarVideo(generation.AvatarVideoParams{
		UserID:   userID,
		Script:   req.Script,
		AvatarID: req.AvatarID,
		Prompt:   req.Prompt,
	})

	respondTaskAccepted(w, r, taskID, "avatar video generation started")
}

// requireUser extracts the authenticated user ID set by the auth
// middleware, writing a 401 when it is missing.
func (h *GenerationHandler) requireUser(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	userID, ok := middleware.GetUserID(r)
	if !ok || userID == uuid.Nil {
		shared.RespondWithError(w, r, http.StatusUnauthorized, "User ID not found or invalid")
		return uuid.Nil, false
	}
	return userID, true
}

func respondTaskAccepted(w http.ResponseWriter, r *http.Request, taskID, message string) {
	shared.RespondWithJSON(w, r, http.StatusOK, TaskAcceptedResponse{
		TaskID:  taskID,
		Status:  "pending",
		Message: message,
	})
}
