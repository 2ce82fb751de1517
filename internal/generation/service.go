package generation

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/fable-app/fable-api/internal/provider"
	"github.com/fable-app/fable-api/internal/store"
	"github.com/fable-app/fable-api/internal/task"
)

// Construction errors.
var (
	ErrNilTaskManager    = errors.New("task manager cannot be nil")
	ErrNilProviderClient = errors.New("provider client cannot be nil")
	ErrNilArtifactStore  = errors.New("artifact store cannot be nil")
	ErrNilAssetStore     = errors.New("asset store cannot be nil")
	ErrNilScriptWriter   = errors.New("script writer cannot be nil")
	ErrNilLogger         = errors.New("logger cannot be nil")
)

// ProviderClient is the submit-then-poll contract of the external
// generation API.
type ProviderClient interface {
	Submit(ctx context.Context, model string, input map[string]any) (string, error)
	Wait(
		ctx context.Context,
		predictionID string,
		timeout time.Duration,
		interval time.Duration,
		onProgress provider.ProgressFunc,
	) (*provider.Prediction, error)
}

// ScriptWriter produces a narration script from a podcast topic.
type ScriptWriter interface {
	WriteScript(ctx context.Context, topic string) (string, error)
}

// ArtifactStore persists a generated artifact and returns its public
// URL path.
type ArtifactStore interface {
	SaveFromURL(ctx context.Context, taskID, filename, srcURL string) (string, error)
}

// Config holds generation service settings.
type Config struct {
	// PollTimeout is the ceiling on waiting for one provider job.
	PollTimeout time.Duration

	// PollInterval is the delay between provider polls.
	PollInterval time.Duration

	ImageModel  string
	SpeechModel string
	VideoModel  string
}

// Service runs the provider adapters. Each accepted request becomes a
// pending task plus one detached goroutine that drives the task through
// its lifecycle; the accepting handler returns immediately.
type Service struct {
	tasks     *task.Manager
	provider  ProviderClient
	scripts   ScriptWriter
	artifacts ArtifactStore
	assets    store.AssetStore
	config    Config
	logger    *slog.Logger
}

// NewService creates a generation service.
func NewService(
	tasks *task.Manager,
	providerClient ProviderClient,
	scripts ScriptWriter,
	artifacts ArtifactStore,
	assets store.AssetStore,
	config Config,
	logger *slog.Logger,
) (*Service, error) {
	if tasks == nil {
		return nil, ErrNilTaskManager
	}
	if providerClient == nil {
		return nil, ErrNilProviderClient
	}
	if scripts == nil {
		return nil, ErrNilScriptWriter
	}
	if artifacts == nil {
		return nil, ErrNilArtifactStore
	}
	if assets == nil {
		return nil, ErrNilAssetStore
	}
	if logger == nil {
		return nil, ErrNilLogger
	}

	if config.PollTimeout <= 0 {
		config.PollTimeout = 10 * time.Minute
	}
	if config.PollInterval <= 0 {
		config.PollInterval = 2 * time.Second
	}

	return &Service{
		tasks:     tasks,
		provider:  providerClient,
		scripts:   scripts,
		artifacts: artifacts,
		assets:    assets,
		config:    config,
		logger:    logger,
	}, nil
}

// Tasks exposes the task manager for the polling boundary.
func (s *Service) Tasks() *task.Manager {
	return s.tasks
}

// StoryIllustrationParams are the inputs of a story illustration task.
type StoryIllustrationParams struct {
	UserID  uuid.UUID
	StoryID string
	Prompt  string
	Style   string
}

// PodcastParams are the inputs of a podcast audio task. Script wins
// over Topic; when only a topic is given a narration script is written
// first.
type PodcastParams struct {
	UserID uuid.UUID
	Topic  string
	Script string
	Voice  string
}

// AvatarVideoParams are the inputs of an avatar video task.
type AvatarVideoParams struct {
	UserID   uuid.UUID
	Script   string
	AvatarID string
	Prompt   string
}

// StartStoryIllustration accepts a story illustration request and
// returns the new task id immediately.
func (s *Service) StartStoryIllustration(p StoryIllustrationParams) string {
	taskID := s.tasks.CreateTask(task.TypeStoryIllustration)
	go s.run(taskID, task.TypeStoryIllustration, func(ctx context.Context) (task.Result, error) {
		return s.generateStoryIllustration(ctx, taskID, p)
	})
	return taskID
}

// StartPodcast accepts a podcast audio request and returns the new
// task id immediately.
func (s *Service) StartPodcast(p PodcastParams) string {
	taskID := s.tasks.CreateTask(task.TypePodcastGeneration)
	go s.run(taskID, task.TypePodcastGeneration, func(ctx context.Context) (task.Result, error) {
		return s.generatePodcast(ctx, taskID, p)
	})
	return taskID
}

// StartAvatarVideo accepts an avatar video request and returns the new
// task id immediately.
func (s *Service) StartAvatarVideo(p AvatarVideoParams) string {
	taskID := s.tasks.CreateTask(task.TypeVideoGeneration)
	go s.run(taskID, task.TypeVideoGeneration, func(ctx context.Context) (task.Result, error) {
		return s.generateAvatarVideo(ctx, taskID, p)
	})
	return taskID
}

// run is the outermost wrapper of every background adapter. Nothing may
// escape it: an uncaught failure in a detached goroutine would be
// unobservable, so every error and panic is converted into a failed
// record with a normalized message.
func (s *Service) run(taskID, taskType string, generate func(ctx context.Context) (task.Result, error)) {
	ctx := context.Background()
	logger := s.logger.With("task_id", taskID, "task_type", taskType)

	defer func() {
		if r := recover(); r != nil {
			logger.Error("generation adapter panicked", "panic", r)
			s.fail(taskID, fmt.Sprintf("internal error: %v", r))
		}
	}()

	logger.Info("generation task started")

	result, err := generate(ctx)
	if err != nil {
		logger.Error("generation task failed", "error", err)
		s.fail(taskID, NormalizeError(err))
		return
	}

	s.tasks.UpdateTaskStatus(taskID, task.Update{
		Status:   task.StatusCompleted,
		Progress: progressPtr(100),
		Message:  "completed",
		Result:   result,
	})
	logger.Info("generation task completed")
}

func (s *Service) generateStoryIllustration(
	ctx context.Context,
	taskID string,
	p StoryIllustrationParams,
) (task.Result, error) {
	s.progress(taskID, 5, "submitting generation request")

	input := map[string]any{"prompt": p.Prompt}
	if p.Style != "" {
		input["style"] = p.Style
	}
	if p.StoryID != "" {
		input["story_id"] = p.StoryID
	}

	prediction, err := s.submitAndWait(ctx, taskID, s.config.ImageModel, input)
	if err != nil {
		return nil, err
	}

	imageURL := s.persistArtifact(ctx, taskID, "illustration.webp", prediction, &store.Asset{
		UserID:  p.UserID,
		Kind:    task.TypeStoryIllustration,
		Model:   s.config.ImageModel,
		CostUSD: prediction.Metrics.CostUSD,
	})

	return &task.StoryIllustrationResult{
		ImageURL:          imageURL,
		Model:             s.config.ImageModel,
		CostUSD:           prediction.Metrics.CostUSD,
		GenerationSeconds: prediction.Metrics.PredictTime,
	}, nil
}

func (s *Service) generatePodcast(
	ctx context.Context,
	taskID string,
	p PodcastParams,
) (task.Result, error) {
	script := p.Script
	if script == "" {
		s.progress(taskID, 5, "writing narration script")
		written, err := s.scripts.WriteScript(ctx, p.Topic)
		if err != nil {
			return nil, fmt.Errorf("failed to write narration script: %w", err)
		}
		script = written
	}

	s.progress(taskID, 15, "submitting generation request")

	input := map[string]any{"text": script}
	if p.Voice != "" {
		input["voice"] = p.Voice
	}

	prediction, err := s.submitAndWait(ctx, taskID, s.config.SpeechModel, input)
	if err != nil {
		return nil, err
	}

	audioURL := s.persistArtifact(ctx, taskID, "episode.mp3", prediction, &store.Asset{
		UserID:  p.UserID,
		Kind:    task.TypePodcastGeneration,
		Model:   s.config.SpeechModel,
		CostUSD: prediction.Metrics.CostUSD,
	})

	return &task.PodcastAudioResult{
		AudioURL:        audioURL,
		Script:          script,
		Model:           s.config.SpeechModel,
		CostUSD:         prediction.Metrics.CostUSD,
		DurationSeconds: prediction.Metrics.PredictTime,
	}, nil
}

func (s *Service) generateAvatarVideo(
	ctx context.Context,
	taskID string,
	p AvatarVideoParams,
) (task.Result, error) {
	s.progress(taskID, 5, "submitting generation request")

	input := map[string]any{"script": p.Script}
	if p.AvatarID != "" {
		input["avatar_id"] = p.AvatarID
	}
	if p.Prompt != "" {
		input["prompt"] = p.Prompt
	}

	prediction, err := s.submitAndWait(ctx, taskID, s.config.VideoModel, input)
	if err != nil {
		return nil, err
	}

	videoURL := s.persistArtifact(ctx, taskID, "avatar.mp4", prediction, &store.Asset{
		UserID:  p.UserID,
		Kind:    task.TypeVideoGeneration,
		Model:   s.config.VideoModel,
		CostUSD: prediction.Metrics.CostUSD,
	})

	return &task.AvatarVideoResult{
		VideoURL:        videoURL,
		Model:           s.config.VideoModel,
		CostUSD:         prediction.Metrics.CostUSD,
		DurationSeconds: prediction.Metrics.PredictTime,
	}, nil
}

// submitAndWait runs the submit + poll phases shared by every adapter,
// forwarding provider progress milestones verbatim into the task
// record.
func (s *Service) submitAndWait(
	ctx context.Context,
	taskID string,
	model string,
	input map[string]any,
) (*provider.Prediction, error) {
	predictionID, err := s.provider.Submit(ctx, model, input)
	if err != nil {
		return nil, err
	}

	s.progress(taskID, 10, "generation submitted")

	return s.provider.Wait(
		ctx,
		predictionID,
		s.config.PollTimeout,
		s.config.PollInterval,
		func(pct float64, msg string) {
			s.progress(taskID, pct, msg)
		},
	)
}

// persistArtifact downloads the provider output into per-task storage
// and records a catalog entry. Both persistence steps are tolerated on
// failure: the generation already succeeded and discarding it would be
// worse than losing a copy or a catalog row, so failures are logged and
// the provider URL is served instead.
func (s *Service) persistArtifact(
	ctx context.Context,
	taskID string,
	filename string,
	prediction *provider.Prediction,
	asset *store.Asset,
) string {
	logger := s.logger.With("task_id", taskID)

	outputURL, err := outputURL(prediction)
	if err != nil {
		logger.Error("provider output unusable, result will carry no local copy", "error", err)
		return ""
	}

	s.progress(taskID, 90, "downloading artifact")

	publicURL, err := s.artifacts.SaveFromURL(ctx, taskID, filename, outputURL)
	if err != nil {
		logger.Error("failed to persist artifact, serving provider URL", "error", err)
		publicURL = outputURL
	} else {
		s.progress(taskID, 95, "saving artifact")
	}

	asset.ID = uuid.New()
	asset.TaskID = taskID
	asset.URL = publicURL
	asset.CreatedAt = time.Now()
	if err := s.assets.RecordAsset(ctx, asset); err != nil {
		logger.Error("failed to record asset in catalog", "error", err)
	}

	return publicURL
}

func (s *Service) progress(taskID string, pct float64, msg string) {
	s.tasks.UpdateTaskStatus(taskID, task.Update{
		Status:   task.StatusProcessing,
		Progress: &pct,
		Message:  msg,
	})
}

func (s *Service) fail(taskID, message string) {
	s.tasks.UpdateTaskStatus(taskID, task.Update{
		Status:  task.StatusFailed,
		Message: message,
		Error:   message,
	})
}

// outputURL extracts the artifact URL from a prediction output, which
// the provider returns either as a bare string or as a list of URLs.
func outputURL(prediction *provider.Prediction) (string, error) {
	if len(prediction.Output) == 0 {
		return "", errors.New("provider returned no output")
	}

	var single string
	if err := json.Unmarshal(prediction.Output, &single); err == nil && single != "" {
		return single, nil
	}

	var many []string
	if err := json.Unmarshal(prediction.Output, &many); err == nil && len(many) > 0 {
		return many[0], nil
	}

	return "", fmt.Errorf("unrecognized provider output shape: %s", string(prediction.Output))
}

func progressPtr(p float64) *float64 { return &p }
