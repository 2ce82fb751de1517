// Package postgres implements the store interfaces on PostgreSQL,
// reached through the pgx stdlib driver.
package postgres

import (
	"context"
	"fmt"

	"github.com/fable-app/fable-api/internal/store"
)

// AssetStore implements store.AssetStore on PostgreSQL.
type AssetStore struct {
	db store.DBTX
}

// NewAssetStore creates an AssetStore.
func NewAssetStore(db store.DBTX) *AssetStore {
	return &AssetStore{db: db}
}

var _ store.AssetStore = (*AssetStore)(nil)

// RecordAsset persists one catalog entry.
func (s *AssetStore) RecordAsset(ctx context.Context, asset *store.Asset) error {
	query := `
		INSERT INTO assets (id, task_id, user_id, kind, url, model, cost_usd, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`

	_, err := s.db.ExecContext(ctx, query,
		asset.ID,
		asset.TaskID,
		asset.UserID,
		asset.Kind,
		asset.URL,
		asset.Model,
		asset.CostUSD,
		asset.CreatedAt.UTC(),
	)
	if err != nil {
		return fmt.Errorf("failed to record asset: %w", MapError(err))
	}
	return nil
}

// GetAssetByTaskID returns the catalog entry recorded for a task.
func (s *AssetStore) GetAssetByTaskID(ctx context.Context, taskID string) (*store.Asset, error) {
	query := `
		SELECT id, task_id, user_id, kind, url, model, cost_usd, created_at
		FROM assets
		WHERE task_id = $1
	`

	var asset store.Asset
	err := s.db.QueryRowContext(ctx, query, taskID).Scan(
		&asset.ID,
		&asset.TaskID,
		&asset.UserID,
		&asset.Kind,
		&asset.URL,
		&asset.Model,
		&asset.CostUSD,
		&asset.CreatedAt,
	)
	if err != nil {
		return nil, MapError(err)
	}
	return &asset, nil
}
