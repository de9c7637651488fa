package ingest

import (
	"context"
	"crypto/md5"
	"fmt"
	"time"

	"github.com/google/uuid"

	"emisor_intel/pkg/core/extraction"
	"emisor_intel/pkg/core/llm"
	"emisor_intel/pkg/models"
)

// Batch persistence pacing. Purely a throughput throttle against the backing
// store's write limits, not a correctness mechanism.
const (
	StoreBatchSize  = 400
	StoreBatchPause = 200 * time.Millisecond
)

// InterDocumentDelay spaces documents within a batch run to respect the
// embedding and generation quotas.
const InterDocumentDelay = 1 * time.Second

// ChunkWriter persists chunk batches. Implemented by the Postgres chunk repo.
type ChunkWriter interface {
	SaveChunks(ctx context.Context, chunks []models.Chunk) error
}

// DocumentRecorder deduplicates raw documents by URL and attaches the
// downloaded bytes. Optional; nil skips document bookkeeping.
type DocumentRecorder interface {
	UpsertDocument(ctx context.Context, issuerID string, doc models.RawDocument, content []byte) error
}

// ProcessedChecker reports whether a document URL already has a stored copy.
// Optional; implemented by the document repo so batch runs skip unchanged
// listings.
type ProcessedChecker interface {
	IsProcessed(ctx context.Context, url string) (bool, error)
}

// SnapshotSink receives the sidecar's metrics object so a fresh snapshot can
// be recorded during ingestion. Optional; implemented by the metrics
// aggregator, which also normalizes currency.
type SnapshotSink interface {
	RecordExtraction(ctx context.Context, issuerID string, ind *models.Indicadores, sourceDoc string) error
}

// Result summarizes one document's trip through the pipeline.
type Result struct {
	DocumentID string
	ChunkCount int
	SuperChunk bool
	Status     string // "ok", "skipped:<stage>" or "failed:<stage>"
}

// Pipeline wires the ingestion stages. Each stage can fail independently;
// a failure degrades that document to zero chunks and never halts siblings.
type Pipeline struct {
	downloader *Downloader
	extractor  *TextExtractor
	sidecar    *extraction.Extractor
	embedder   llm.Embedder
	chunks     ChunkWriter
	documents  DocumentRecorder
	processed  ProcessedChecker
	snapshots  SnapshotSink
	runID      string
	sleep      func(time.Duration)
}

func NewPipeline(extractor *TextExtractor, sidecar *extraction.Extractor, embedder llm.Embedder, chunks ChunkWriter) *Pipeline {
	return &Pipeline{
		downloader: NewDownloader(),
		extractor:  extractor,
		sidecar:    sidecar,
		embedder:   embedder,
		chunks:     chunks,
		runID:      uuid.New().String(),
		sleep:      time.Sleep,
	}
}

// WithDocumentRecorder attaches raw-document bookkeeping.
func (p *Pipeline) WithDocumentRecorder(rec DocumentRecorder) *Pipeline {
	p.documents = rec
	return p
}

// WithProcessedChecker makes batch runs skip documents whose URL is already
// recorded.
func (p *Pipeline) WithProcessedChecker(checker ProcessedChecker) *Pipeline {
	p.processed = checker
	return p
}

// WithSnapshotSink attaches the metrics snapshot sink.
func (p *Pipeline) WithSnapshotSink(sink SnapshotSink) *Pipeline {
	p.snapshots = sink
	return p
}

// WithSleeper swaps the pacing sleeps. Test hook.
func (p *Pipeline) WithSleeper(sleep func(time.Duration)) *Pipeline {
	p.sleep = sleep
	return p
}

// DocumentID derives the stable document id from the URL, the document's
// identity key. Reprocessing the same URL regenerates the same chunk ids.
func DocumentID(url string) string {
	return fmt.Sprintf("%x", md5.Sum([]byte(url)))[:12]
}

// ProcessDocument runs one document through download, extraction, optional
// structured sidecar, chunking, embedding and persistence.
func (p *Pipeline) ProcessDocument(ctx context.Context, doc models.RawDocument, issuerName, issuerID string) (*Result, error) {
	docID := DocumentID(doc.URL)
	res := &Result{DocumentID: docID}

	// Stage: download.
	data, contentType, err := p.downloader.Fetch(ctx, doc.URL)
	if err != nil {
		res.Status = "failed:download"
		return res, err
	}
	if p.documents != nil {
		if err := p.documents.UpsertDocument(ctx, issuerID, doc, data); err != nil {
			fmt.Printf("[WARNING] document bookkeeping failed for %s: %v\n", doc.URL, err)
		}
	}

	// Stage: text extraction (with OCR fallback inside).
	text, err := p.extractor.Extract(ctx, data, contentType, doc.URL)
	if err != nil {
		res.Status = "failed:extract"
		return res, err
	}

	return p.indexText(ctx, doc, issuerName, issuerID, docID, text, res)
}

// IndexText ingests already-extracted text, used by reprocessing tools that
// keep document bytes on hand.
func (p *Pipeline) IndexText(ctx context.Context, doc models.RawDocument, issuerName, issuerID, text string) (*Result, error) {
	docID := DocumentID(doc.URL)
	return p.indexText(ctx, doc, issuerName, issuerID, docID, text, &Result{DocumentID: docID})
}

func (p *Pipeline) indexText(ctx context.Context, doc models.RawDocument, issuerName, issuerID, docID, text string, res *Result) (*Result, error) {
	now := time.Now()
	meta := models.ChunkMetadata{
		IssuerName:    issuerName,
		DocumentTitle: doc.Title,
		DocumentType:  doc.Type,
		DocumentDate:  doc.Date,
		ProcessedAt:   now,
		RunID:         p.runID,
	}

	var out []models.Chunk

	// Stage: conditional structured sidecar.
	if p.sidecar != nil && IsFinancialStatement(doc) {
		ind, digest, err := p.sidecar.Extract(ctx, text, issuerName, doc.Title)
		if err != nil {
			fmt.Printf("[WARNING] structured sidecar failed for %q: %v\n", doc.Title, err)
		} else {
			body := extraction.BuildSuperChunk(issuerName, doc.Title, digest, ind)
			if sc := p.embedChunk(ctx, issuerID, docID, models.SuperChunkIndex, body, meta); sc != nil {
				out = append(out, *sc)
				res.SuperChunk = true
			}
			if p.snapshots != nil {
				if err := p.snapshots.RecordExtraction(ctx, issuerID, ind, doc.Title); err != nil {
					fmt.Printf("[WARNING] snapshot record failed for %s: %v\n", issuerID, err)
				}
			}
		}
	}

	// Stage: chunking + embedding. Sequential on purpose: the embedding
	// service is quota-limited and there is no retry layer.
	spans := ChunkText(text)
	for i, span := range spans {
		if c := p.embedChunk(ctx, issuerID, docID, i, span, meta); c != nil {
			out = append(out, *c)
		}
	}

	if len(out) == 0 {
		res.Status = "skipped:empty"
		return res, nil
	}

	// Stage: batched persistence.
	if err := p.persistChunks(ctx, out); err != nil {
		res.Status = "failed:store"
		return res, err
	}

	res.ChunkCount = len(out)
	res.Status = "ok"
	return res, nil
}

// embedChunk embeds one span. A failed embedding degrades that chunk to
// nothing; the document keeps its other chunks.
func (p *Pipeline) embedChunk(ctx context.Context, issuerID, docID string, index int, text string, meta models.ChunkMetadata) *models.Chunk {
	vec, err := p.embedder.Embed(ctx, text)
	if err != nil {
		fmt.Printf("[WARNING] embedding failed for %s_%s_%d: %v\n", issuerID, docID, index, err)
		return nil
	}
	return &models.Chunk{
		ID:         fmt.Sprintf("%s_%s_%d", issuerID, docID, index),
		IssuerID:   issuerID,
		DocumentID: docID,
		Index:      index,
		Text:       text,
		Embedding:  vec,
		Metadata:   meta,
	}
}

func (p *Pipeline) persistChunks(ctx context.Context, chunks []models.Chunk) error {
	for start := 0; start < len(chunks); start += StoreBatchSize {
		end := start + StoreBatchSize
		if end > len(chunks) {
			end = len(chunks)
		}
		if err := p.chunks.SaveChunks(ctx, chunks[start:end]); err != nil {
			return fmt.Errorf("chunk batch %d-%d failed: %w", start, end, err)
		}
		if end < len(chunks) {
			p.sleep(StoreBatchPause)
		}
	}
	return nil
}

// ProcessIssuerDocuments ranks an issuer's document listing by priority,
// drops already-recorded URLs, caps the rest, and processes each document
// sequentially with a fixed delay. Per-document failures are logged and
// skipped.
func (p *Pipeline) ProcessIssuerDocuments(ctx context.Context, docs []models.RawDocument, issuerName, issuerID string, cap int) (processed, failed int) {
	ranked := RankByPriority(docs)
	if p.processed != nil {
		var fresh []models.RawDocument
		for _, doc := range ranked {
			if done, err := p.processed.IsProcessed(ctx, doc.URL); err == nil && done {
				fmt.Printf("[INGEST] %s: %q already ingested, skipping\n", issuerID, doc.Title)
				continue
			}
			fresh = append(fresh, doc)
		}
		ranked = fresh
	}
	if cap > 0 && len(ranked) > cap {
		ranked = ranked[:cap]
	}

	for i, doc := range ranked {
		res, err := p.ProcessDocument(ctx, doc, issuerName, issuerID)
		if err != nil {
			failed++
			fmt.Printf("[INGEST] %s: %q degraded to zero chunks (%s): %v\n", issuerID, doc.Title, res.Status, err)
		} else {
			processed++
			fmt.Printf("[INGEST] %s: %q -> %d chunks (super=%v)\n", issuerID, doc.Title, res.ChunkCount, res.SuperChunk)
		}
		if i < len(ranked)-1 {
			p.sleep(InterDocumentDelay)
		}
	}
	return processed, failed
}
