package store

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"emisor_intel/pkg/core/registry"
)

// ConfigRepo is the remote source behind the registry loader: a single JSONB
// record holding the issuer whitelist, alias tables and exchange rate.
//
// Schema assumption:
// CREATE TABLE IF NOT EXISTS runtime_config (
//
//	name TEXT PRIMARY KEY,
//	config JSONB NOT NULL,
//	updated_at TIMESTAMPTZ DEFAULT NOW()
//
// );
type ConfigRepo struct{}

func NewConfigRepo() *ConfigRepo {
	return &ConfigRepo{}
}

const registryConfigName = "issuer_registry"

// FetchConfig loads the registry record. pgx.ErrNoRows surfaces as an error
// so the loader degrades to its static seed.
func (r *ConfigRepo) FetchConfig(ctx context.Context) (*registry.Config, error) {
	pool := GetPool()
	if pool == nil {
		return nil, fmt.Errorf("database pool not initialized")
	}

	var cfgJSON []byte
	err := pool.QueryRow(ctx,
		`SELECT config FROM runtime_config WHERE name = $1`, registryConfigName).Scan(&cfgJSON)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, fmt.Errorf("no registry config record")
		}
		return nil, fmt.Errorf("failed to load registry config: %w", err)
	}

	var cfg registry.Config
	if err := json.Unmarshal(cfgJSON, &cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal registry config: %w", err)
	}
	if len(cfg.Issuers) == 0 {
		return nil, fmt.Errorf("registry config record has no issuers")
	}
	return &cfg, nil
}

// SaveConfig upserts the registry record. Used by the seeding path of the
// batch job.
func (r *ConfigRepo) SaveConfig(ctx context.Context, cfg *registry.Config) error {
	pool := GetPool()
	if pool == nil {
		return fmt.Errorf("database pool not initialized")
	}

	cfgJSON, err := json.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to marshal registry config: %w", err)
	}
	query := `
		INSERT INTO runtime_config (name, config, updated_at)
		VALUES ($1, $2, $3)
		ON CONFLICT (name)
		DO UPDATE SET config = EXCLUDED.config, updated_at = EXCLUDED.updated_at;
	`
	if _, err := pool.Exec(ctx, query, registryConfigName, cfgJSON, time.Now()); err != nil {
		return fmt.Errorf("failed to save registry config: %w", err)
	}
	return nil
}
