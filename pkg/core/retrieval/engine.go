package retrieval

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"emisor_intel/pkg/core/registry"
	"emisor_intel/pkg/models"
)

// DefaultCandidatePool caps how many chunks are pulled per search. Cost
// control: similarity is computed in process over this pool.
const DefaultCandidatePool = 600

// ErrIndexEmpty signals that the corpus has no chunks at all, as opposed to
// a query that matched nothing. The API maps this to 503 "still indexing".
var ErrIndexEmpty = errors.New("no chunks indexed yet")

// ErrUnknownIssuer signals an issuer filter that resolves to nothing.
var ErrUnknownIssuer = errors.New("unknown issuer")

// ChunkSource supplies retrieval candidates. Implemented by the Postgres
// chunk repo and by the in-memory store used in tests.
type ChunkSource interface {
	// CandidatesByIssuer returns chunks whose issuer id is any of the given
	// technical ids, most recently processed first, capped at limit.
	CandidatesByIssuer(ctx context.Context, technicalIDs []string, limit int) ([]models.Chunk, error)
	// Candidates returns chunks across the whole corpus, capped at limit.
	Candidates(ctx context.Context, limit int) ([]models.Chunk, error)
	// CountChunks reports the corpus size (cheap existence check).
	CountChunks(ctx context.Context) (int, error)
}

// Engine ranks chunks by cosine similarity and applies year-diversity
// selection.
type Engine struct {
	source   ChunkSource
	resolver *registry.Resolver
	poolSize int
	now      func() time.Time
}

func NewEngine(source ChunkSource, resolver *registry.Resolver) *Engine {
	return &Engine{
		source:   source,
		resolver: resolver,
		poolSize: DefaultCandidatePool,
		now:      time.Now,
	}
}

// WithClock swaps the clock used to derive the target year window. Test hook.
func (e *Engine) WithClock(now func() time.Time) *Engine {
	e.now = now
	return e
}

// TargetYears returns the most recent TargetYearWindow years including the
// current one, newest first.
func (e *Engine) TargetYears() []string {
	current := e.now().Year()
	years := make([]string, 0, TargetYearWindow)
	for i := 0; i < TargetYearWindow; i++ {
		years = append(years, strconv.Itoa(current-i))
	}
	return years
}

// Search ranks candidate chunks against a query embedding. With an issuer id
// the candidate pool is restricted to that issuer's technical ids (covering
// every alias the registry knows); otherwise the pull is corpus-wide.
func (e *Engine) Search(ctx context.Context, queryEmbedding []float64, issuerID string, topK int) ([]models.SearchResult, error) {
	if topK <= 0 {
		topK = 12
	}

	total, err := e.source.CountChunks(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to check index state: %w", err)
	}
	if total == 0 {
		return nil, ErrIndexEmpty
	}

	var candidates []models.Chunk
	if issuerID != "" {
		ids := e.resolver.TechnicalIDs(issuerID)
		if len(ids) == 0 {
			return nil, ErrUnknownIssuer
		}
		candidates, err = e.source.CandidatesByIssuer(ctx, ids, e.poolSize)
	} else {
		candidates, err = e.source.Candidates(ctx, e.poolSize)
	}
	if err != nil {
		return nil, fmt.Errorf("candidate pull failed: %w", err)
	}

	scored := make([]Scored, 0, len(candidates))
	for _, c := range candidates {
		sim, err := CosineSimilarity(queryEmbedding, c.Embedding)
		if err != nil {
			// Dimension mismatch poisons the whole comparison, not just one
			// chunk: the corpus and the query disagree on the embedder.
			return nil, fmt.Errorf("chunk %s: %w", c.ID, err)
		}
		scored = append(scored, Scored{Chunk: c, Similarity: sim})
	}

	selected := SelectDiverse(scored, topK, e.TargetYears())

	results := make([]models.SearchResult, 0, len(selected))
	for _, s := range selected {
		results = append(results, models.SearchResult{
			ID:         s.Chunk.ID,
			Similarity: s.Similarity,
			Text:       s.Chunk.Text,
			Metadata:   s.Chunk.Metadata,
		})
	}
	return results, nil
}
