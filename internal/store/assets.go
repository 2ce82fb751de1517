// Package store defines the persistence interfaces the generation
// engine depends on, keeping the engine decoupled from the concrete
// database layer in internal/platform/postgres.
package store

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
)

// Sentinel errors returned by store implementations.
var (
	// ErrAssetNotFound indicates the requested asset does not exist.
	ErrAssetNotFound = errors.New("asset not found")

	// ErrInvalidEntity indicates the entity failed a database
	// constraint.
	ErrInvalidEntity = errors.New("invalid entity")
)

// Asset is one generated artifact recorded in the catalog.
type Asset struct {
	ID        uuid.UUID
	TaskID    string
	UserID    uuid.UUID
	Kind      string
	URL       string
	Model     string
	CostUSD   float64
	CreatedAt time.Time
}

// AssetStore records generated artifacts in the asset catalog. Catalog
// failures are logged by callers but never fail a generation task: a
// costly successful generation is worth more than its catalog entry.
type AssetStore interface {
	// RecordAsset persists one catalog entry.
	RecordAsset(ctx context.Context, asset *Asset) error

	// GetAssetByTaskID returns the catalog entry for a task, or
	// ErrAssetNotFound.
	GetAssetByTaskID(ctx context.Context, taskID string) (*Asset, error)
}
