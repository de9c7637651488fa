package store

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"emisor_intel/pkg/models"
)

// SnapshotStore persists metric snapshots. Hybrid tier: Postgres when a pool
// is configured, JSON files under a local directory otherwise, so offline
// tools and tests work without a database.
//
// Schema assumption:
// CREATE TABLE IF NOT EXISTS metric_snapshots (
//
//	issuer_id TEXT PRIMARY KEY,
//	snapshot JSONB NOT NULL,
//	updated_at TIMESTAMPTZ
//
// );
type SnapshotStore struct {
	pool    *pgxpool.Pool
	fileDir string
}

// NewSnapshotStore builds the store over a pool. A nil pool falls back to a
// file directory; an empty dir defaults to .cache/snapshots.
func NewSnapshotStore(pool *pgxpool.Pool, dir string) *SnapshotStore {
	if pool == nil && dir == "" {
		dir = filepath.Join(".cache", "snapshots")
	}
	if dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			fmt.Printf("[WARNING] snapshot dir unavailable: %v\n", err)
		}
	}
	return &SnapshotStore{pool: pool, fileDir: dir}
}

// GetSnapshot loads an issuer's snapshot. (nil, nil) means none exists yet.
func (s *SnapshotStore) GetSnapshot(ctx context.Context, issuerID string) (*models.MetricSnapshot, error) {
	if s.pool != nil {
		var snapJSON []byte
		err := s.pool.QueryRow(ctx,
			`SELECT snapshot FROM metric_snapshots WHERE issuer_id = $1`, issuerID).Scan(&snapJSON)
		if err != nil {
			if err == pgx.ErrNoRows {
				return nil, nil
			}
			return nil, fmt.Errorf("failed to load snapshot: %w", err)
		}
		var snap models.MetricSnapshot
		if err := json.Unmarshal(snapJSON, &snap); err != nil {
			return nil, fmt.Errorf("failed to unmarshal snapshot: %w", err)
		}
		return &snap, nil
	}

	if s.fileDir != "" {
		return s.loadFromFile(s.snapshotPath(issuerID))
	}
	return nil, nil
}

// SaveSnapshot upserts the snapshot. The caller has already merged; this is
// a plain overwrite of the durable record.
func (s *SnapshotStore) SaveSnapshot(ctx context.Context, snap *models.MetricSnapshot) error {
	snapJSON, err := json.MarshalIndent(snap, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal snapshot: %w", err)
	}

	if s.pool != nil {
		query := `
			INSERT INTO metric_snapshots (issuer_id, snapshot, updated_at)
			VALUES ($1, $2, $3)
			ON CONFLICT (issuer_id)
			DO UPDATE SET snapshot = EXCLUDED.snapshot, updated_at = EXCLUDED.updated_at;
		`
		if _, err := s.pool.Exec(ctx, query, snap.IssuerID, snapJSON, time.Now()); err != nil {
			return fmt.Errorf("failed to save snapshot: %w", err)
		}
		return nil
	}

	if s.fileDir != "" {
		if err := os.WriteFile(s.snapshotPath(snap.IssuerID), snapJSON, 0644); err != nil {
			return fmt.Errorf("failed to save snapshot file: %w", err)
		}
	}
	return nil
}

func (s *SnapshotStore) snapshotPath(issuerID string) string {
	return filepath.Join(s.fileDir, issuerID+".json")
}

func (s *SnapshotStore) loadFromFile(path string) (*models.MetricSnapshot, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, nil // not found
	}
	var snap models.MetricSnapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return nil, fmt.Errorf("failed to unmarshal snapshot file %s: %w", path, err)
	}
	return &snap, nil
}
