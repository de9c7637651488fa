package store

import (
	"context"
	"fmt"
	"time"

	"emisor_intel/pkg/core/ingest"
	"emisor_intel/pkg/models"
)

// DocumentRepo keeps the raw document ledger. Dedup key is the URL, the same
// identity the pipeline derives chunk ids from.
//
// Schema assumption:
// CREATE TABLE IF NOT EXISTS documents (
//
//	id TEXT PRIMARY KEY,
//	issuer_id TEXT NOT NULL,
//	url TEXT UNIQUE NOT NULL,
//	title TEXT,
//	doc_type TEXT,
//	doc_date TEXT,
//	content BYTEA,
//	size_bytes BIGINT,
//	processed_at TIMESTAMPTZ
//
// );
type DocumentRepo struct{}

func NewDocumentRepo() *DocumentRepo {
	return &DocumentRepo{}
}

// UpsertDocument records one downloaded document, replacing any previous row
// for the same URL.
func (r *DocumentRepo) UpsertDocument(ctx context.Context, issuerID string, doc models.RawDocument, content []byte) error {
	pool := GetPool()
	if pool == nil {
		return fmt.Errorf("database pool not initialized")
	}

	query := `
		INSERT INTO documents (id, issuer_id, url, title, doc_type, doc_date, content, size_bytes, processed_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		ON CONFLICT (url)
		DO UPDATE SET
			title = EXCLUDED.title,
			doc_type = EXCLUDED.doc_type,
			doc_date = EXCLUDED.doc_date,
			content = EXCLUDED.content,
			size_bytes = EXCLUDED.size_bytes,
			processed_at = EXCLUDED.processed_at;
	`
	_, err := pool.Exec(ctx, query,
		ingest.DocumentID(doc.URL), issuerID, doc.URL, doc.Title, doc.Type, doc.Date,
		content, len(content), time.Now())
	if err != nil {
		return fmt.Errorf("failed to upsert document %s: %w", doc.URL, err)
	}
	return nil
}

// IsProcessed reports whether a URL already has a document row. The batch
// job uses this to skip unchanged listings.
func (r *DocumentRepo) IsProcessed(ctx context.Context, url string) (bool, error) {
	pool := GetPool()
	if pool == nil {
		return false, fmt.Errorf("database pool not initialized")
	}
	var one int
	err := pool.QueryRow(ctx, `SELECT 1 FROM documents WHERE url = $1 LIMIT 1`, url).Scan(&one)
	if err != nil {
		return false, nil
	}
	return true, nil
}
