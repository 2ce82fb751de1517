package task

import (
	"time"
)

// Status represents the current state of a background generation task.
type Status string

// Possible task status values.
const (
	StatusPending    Status = "pending"
	StatusProcessing Status = "processing"
	StatusCompleted  Status = "completed"
	StatusFailed     Status = "failed"
)

// IsTerminal reports whether the status is a terminal state.
// Terminal states are never revisited.
func (s Status) IsTerminal() bool {
	return s == StatusCompleted || s == StatusFailed
}

// Task type tags. One per generation kind.
const (
	TypeStoryIllustration = "story_illustration"
	TypePodcastGeneration = "podcast_generation"
	TypeVideoGeneration   = "video_generation"
)

// Result is the typed payload of a successfully completed task.
// Exactly one concrete result type exists per generation kind.
type Result interface {
	// Kind returns the task type tag this result belongs to.
	Kind() string
}

// StoryIllustrationResult is the payload of a completed story
// illustration task.
type StoryIllustrationResult struct {
	ImageURL          string  `json:"image_url"`
	Model             string  `json:"model"`
	CostUSD           float64 `json:"cost_usd"`
	GenerationSeconds float64 `json:"generation_seconds"`
}

func (r *StoryIllustrationResult) Kind() string { return TypeStoryIllustration }

// PodcastAudioResult is the payload of a completed podcast audio task.
type PodcastAudioResult struct {
	AudioURL        string  `json:"audio_url"`
	Script          string  `json:"script,omitempty"`
	Model           string  `json:"model"`
	CostUSD         float64 `json:"cost_usd"`
	DurationSeconds float64 `json:"duration_seconds"`
}

func (r *PodcastAudioResult) Kind() string { return TypePodcastGeneration }

// AvatarVideoResult is the payload of a completed avatar video task.
type AvatarVideoResult struct {
	VideoURL        string  `json:"video_url"`
	Model           string  `json:"model"`
	CostUSD         float64 `json:"cost_usd"`
	DurationSeconds float64 `json:"duration_seconds"`
}

func (r *AvatarVideoResult) Kind() string { return TypeVideoGeneration }

// ProgressUpdate is one entry of a record's message history.
type ProgressUpdate struct {
	Progress float64   `json:"progress"`
	Message  string    `json:"message"`
	At       time.Time `json:"at"`
}

// Record is the in-memory representation of one background generation
// task. Records are created by the accepting handler, mutated only by
// the single background adapter executing the task, and read by pollers.
//
// Invariant: once Status is terminal, exactly one of Result / Error is
// set and the record never changes again.
type Record struct {
	ID        string           `json:"task_id"`
	Type      string           `json:"type"`
	Status    Status           `json:"status"`
	Progress  float64          `json:"progress"`
	Message   string           `json:"message"`
	History   []ProgressUpdate `json:"history,omitempty"`
	Result    Result           `json:"result,omitempty"`
	Error     string           `json:"error,omitempty"`
	CreatedAt time.Time        `json:"created_at"`
	UpdatedAt time.Time        `json:"updated_at"`
}

// Update describes a single mutation applied to a task record.
// Status is always applied; nil/empty fields leave the current value in
// place. Result and Error are only meaningful together with a terminal
// status.
type Update struct {
	Status   Status
	Progress *float64
	Message  string
	Result   Result // set with StatusCompleted only
	Error    string // set with StatusFailed only
}
