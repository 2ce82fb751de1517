package task

import (
	"log/slog"
	"time"

	"github.com/google/uuid"
)

// ManagerConfig holds configuration for the task manager.
type ManagerConfig struct {
	// TTL is the maximum age of a record before it is evicted,
	// regardless of status.
	TTL time.Duration

	// HistoryLimit caps the number of progress updates retained per
	// record. Zero disables history.
	HistoryLimit int
}

// DefaultManagerConfig returns a ManagerConfig with reasonable defaults.
func DefaultManagerConfig() ManagerConfig {
	return ManagerConfig{
		TTL:          time.Hour,
		HistoryLimit: 50,
	}
}

// Manager provides the create/update/query/evict operations over the
// registry. One Manager exists per process, constructed at startup and
// injected into handlers and adapters.
//
// Writes to a single task id are totally ordered because exactly one
// background adapter ever writes a given id; the registry lock protects
// the map itself against concurrent pollers and writers of other ids.
type Manager struct {
	registry *Registry
	config   ManagerConfig
	logger   *slog.Logger
}

// NewManager creates a Manager with its own registry.
func NewManager(config ManagerConfig, logger *slog.Logger) *Manager {
	if config.TTL <= 0 {
		config.TTL = time.Hour
	}
	return &Manager{
		registry: NewRegistry(config.TTL),
		config:   config,
		logger:   logger,
	}
}

// CreateTask allocates a fresh task id and inserts a pending record.
// It never fails and performs no I/O. Expired records are swept as a
// side effect, so abandoned tasks cannot accumulate.
func (m *Manager) CreateTask(taskType string) string {
	m.sweep()

	now := m.registry.now()
	rec := &Record{
		ID:        uuid.New().String(),
		Type:      taskType,
		Status:    StatusPending,
		Progress:  0,
		Message:   "pending",
		CreatedAt: now,
		UpdatedAt: now,
	}
	m.registry.Insert(rec)

	m.logger.Debug("task created", "task_id", rec.ID, "task_type", taskType)
	return rec.ID
}

// UpdateTaskStatus applies upd to the record with the given id. Updates
// for unknown or evicted ids are swallowed with a warning: callers are
// detached background adapters with no observer, so this must never
// fail. Updates arriving after a terminal status are ignored the same
// way, so terminal states are never revisited.
func (m *Manager) UpdateTaskStatus(id string, upd Update) {
	ok := m.registry.Mutate(id, func(rec *Record) {
		if rec.Status.IsTerminal() {
			m.logger.Warn("update ignored for terminal task",
				"task_id", id,
				"current_status", rec.Status,
				"requested_status", upd.Status)
			return
		}

		rec.Status = upd.Status
		rec.UpdatedAt = m.registry.now()

		if upd.Progress != nil {
			rec.Progress = clampProgress(*upd.Progress)
		}
		if upd.Message != "" {
			rec.Message = upd.Message
			m.appendHistory(rec, upd.Message)
		}

		// Exactly one of result / error is set once terminal.
		switch upd.Status {
		case StatusCompleted:
			rec.Result = upd.Result
			rec.Error = ""
		case StatusFailed:
			rec.Error = upd.Error
			rec.Result = nil
		}
	})

	if !ok {
		m.logger.Warn("update for unknown task ignored",
			"task_id", id,
			"requested_status", upd.Status)
	}
}

// GetTaskStatus returns a snapshot of the record with the given id. It
// sweeps expired records first, so an evicted id answers "not found"
// exactly like an id that never existed.
func (m *Manager) GetTaskStatus(id string) (Record, bool) {
	m.sweep()
	return m.registry.Snapshot(id)
}

// CleanupOldTasks removes every record older than the TTL irrespective
// of status and returns the number removed.
func (m *Manager) CleanupOldTasks() int {
	return m.registry.Sweep()
}

func (m *Manager) sweep() {
	if removed := m.registry.Sweep(); removed > 0 {
		m.logger.Info("evicted expired tasks", "count", removed)
	}
}

func (m *Manager) appendHistory(rec *Record, message string) {
	if m.config.HistoryLimit <= 0 {
		return
	}
	rec.History = append(rec.History, ProgressUpdate{
		Progress: rec.Progress,
		Message:  message,
		At:       rec.UpdatedAt,
	})
	if len(rec.History) > m.config.HistoryLimit {
		rec.History = rec.History[len(rec.History)-m.config.HistoryLimit:]
	}
}

func clampProgress(p float64) float64 {
	if p < 0 {
		return 0
	}
	if p > 100 {
		return 100
	}
	return p
}
