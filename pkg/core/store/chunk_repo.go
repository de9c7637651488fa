package store

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v5"

	"emisor_intel/pkg/models"
)

// ChunkRepo persists embedded chunks. Chunk ids are derived
// (issuerId_documentId_index), so re-ingesting a document overwrites its own
// chunks and nothing else.
//
// Schema assumption:
// CREATE TABLE IF NOT EXISTS chunks (
//
//	id TEXT PRIMARY KEY,
//	issuer_id TEXT NOT NULL,
//	document_id TEXT NOT NULL,
//	chunk_index INT NOT NULL,
//	content TEXT NOT NULL,
//	embedding FLOAT8[] NOT NULL,
//	metadata JSONB,
//	created_at TIMESTAMPTZ DEFAULT NOW()
//
// );
// CREATE INDEX IF NOT EXISTS chunks_issuer_idx ON chunks (issuer_id);
type ChunkRepo struct{}

func NewChunkRepo() *ChunkRepo {
	return &ChunkRepo{}
}

// SaveChunks upserts one batch of chunks inside a transaction.
func (r *ChunkRepo) SaveChunks(ctx context.Context, chunks []models.Chunk) error {
	pool := GetPool()
	if pool == nil {
		return fmt.Errorf("database pool not initialized")
	}
	if len(chunks) == 0 {
		return nil
	}

	tx, err := pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin chunk batch: %w", err)
	}
	defer tx.Rollback(ctx)

	query := `
		INSERT INTO chunks (id, issuer_id, document_id, chunk_index, content, embedding, metadata)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (id)
		DO UPDATE SET
			content = EXCLUDED.content,
			embedding = EXCLUDED.embedding,
			metadata = EXCLUDED.metadata;
	`
	for _, c := range chunks {
		metaJSON, err := json.Marshal(c.Metadata)
		if err != nil {
			return fmt.Errorf("failed to marshal metadata for %s: %w", c.ID, err)
		}
		if _, err := tx.Exec(ctx, query, c.ID, c.IssuerID, c.DocumentID, c.Index, c.Text, c.Embedding, metaJSON); err != nil {
			return fmt.Errorf("failed to save chunk %s: %w", c.ID, err)
		}
	}
	return tx.Commit(ctx)
}

// CandidatesByIssuer pulls the retrieval candidate pool for one issuer,
// fanned out over every technical id the registry knows for it.
func (r *ChunkRepo) CandidatesByIssuer(ctx context.Context, technicalIDs []string, limit int) ([]models.Chunk, error) {
	pool := GetPool()
	if pool == nil {
		return nil, fmt.Errorf("database pool not initialized")
	}

	query := `
		SELECT id, issuer_id, document_id, chunk_index, content, embedding, metadata
		FROM chunks
		WHERE issuer_id = ANY($1)
		ORDER BY created_at DESC
		LIMIT $2
	`
	rows, err := pool.Query(ctx, query, technicalIDs, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query issuer chunks: %w", err)
	}
	defer rows.Close()
	return scanChunks(rows)
}

// Candidates pulls a corpus-wide candidate pool.
func (r *ChunkRepo) Candidates(ctx context.Context, limit int) ([]models.Chunk, error) {
	pool := GetPool()
	if pool == nil {
		return nil, fmt.Errorf("database pool not initialized")
	}

	query := `
		SELECT id, issuer_id, document_id, chunk_index, content, embedding, metadata
		FROM chunks
		ORDER BY created_at DESC
		LIMIT $1
	`
	rows, err := pool.Query(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query chunks: %w", err)
	}
	defer rows.Close()
	return scanChunks(rows)
}

// CountChunks reports corpus size. The API uses a zero count to answer
// "still indexing".
func (r *ChunkRepo) CountChunks(ctx context.Context) (int, error) {
	pool := GetPool()
	if pool == nil {
		return 0, fmt.Errorf("database pool not initialized")
	}
	var count int
	if err := pool.QueryRow(ctx, `SELECT COUNT(*) FROM chunks`).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count chunks: %w", err)
	}
	return count, nil
}

// RecentChunks supplies extraction context: the issuer's most recently
// processed chunks, super chunks first so the digest leads the prompt.
func (r *ChunkRepo) RecentChunks(ctx context.Context, issuerIDs []string, limit int) ([]models.Chunk, error) {
	pool := GetPool()
	if pool == nil {
		return nil, fmt.Errorf("database pool not initialized")
	}

	query := `
		SELECT id, issuer_id, document_id, chunk_index, content, embedding, metadata
		FROM chunks
		WHERE issuer_id = ANY($1)
		ORDER BY (chunk_index = -1) DESC, created_at DESC
		LIMIT $2
	`
	rows, err := pool.Query(ctx, query, issuerIDs, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query recent chunks: %w", err)
	}
	defer rows.Close()
	return scanChunks(rows)
}

func scanChunks(rows pgx.Rows) ([]models.Chunk, error) {
	var out []models.Chunk
	for rows.Next() {
		var c models.Chunk
		var metaJSON []byte
		if err := rows.Scan(&c.ID, &c.IssuerID, &c.DocumentID, &c.Index, &c.Text, &c.Embedding, &metaJSON); err != nil {
			return nil, fmt.Errorf("failed to scan chunk row: %w", err)
		}
		if len(metaJSON) > 0 {
			if err := json.Unmarshal(metaJSON, &c.Metadata); err != nil {
				return nil, fmt.Errorf("failed to unmarshal chunk metadata: %w", err)
			}
		}
		out = append(out, c)
	}
	return out, rows.Err()
}
