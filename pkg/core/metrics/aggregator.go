package metrics

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"emisor_intel/pkg/core/cache"
	"emisor_intel/pkg/core/llm"
	"emisor_intel/pkg/core/registry"
	"emisor_intel/pkg/core/utils"
	"emisor_intel/pkg/models"
)

const (
	// RecentChunkWindow is how many of the issuer's most recent chunks feed
	// a current-state extraction.
	RecentChunkWindow = 30

	// HistoryChunkWindow is the wider pull for multi-year reconstruction.
	HistoryChunkWindow = 80

	// CacheTTL bounds how long memoized snapshot reads are served before the
	// durable tier is consulted again.
	CacheTTL = 10 * time.Minute

	// maxPromptContextChars caps the chunk context sent to the generation
	// service.
	maxPromptContextChars = 40000
)

var (
	ErrUnknownIssuer    = errors.New("issuer not in registry")
	ErrNoIndexedContent = errors.New("no indexed content for issuer")
)

// ChunkReader supplies chunk context for extraction prompts. Implemented by
// the Postgres chunk repo; the id list fans out over the issuer's technical
// ids.
type ChunkReader interface {
	RecentChunks(ctx context.Context, issuerIDs []string, limit int) ([]models.Chunk, error)
}

// SnapshotStore is the durable snapshot tier. GetSnapshot returns (nil, nil)
// when no snapshot exists yet.
type SnapshotStore interface {
	GetSnapshot(ctx context.Context, issuerID string) (*models.MetricSnapshot, error)
	SaveSnapshot(ctx context.Context, snap *models.MetricSnapshot) error
}

// Aggregator owns the metrics lifecycle: extract from chunk context, apply
// the post-extraction corrections, merge-upsert into the snapshot store and
// keep the volatile memo tier coherent.
type Aggregator struct {
	provider llm.Provider
	chunks   ChunkReader
	store    SnapshotStore
	resolver *registry.Resolver
	memo     cache.Service
	now      func() time.Time
	runID    string
}

func NewAggregator(provider llm.Provider, chunks ChunkReader, store SnapshotStore, resolver *registry.Resolver, memo cache.Service) *Aggregator {
	return &Aggregator{
		provider: provider,
		chunks:   chunks,
		store:    store,
		resolver: resolver,
		memo:     memo,
		now:      time.Now,
		runID:    uuid.New().String(),
	}
}

// WithClock swaps the clock source. Test hook.
func (a *Aggregator) WithClock(now func() time.Time) *Aggregator {
	a.now = now
	return a
}

func snapshotKey(issuerID string) string { return "metrics:" + issuerID + ":snapshot" }
func historyKey(issuerID string) string  { return "metrics:" + issuerID + ":history" }

// Snapshot is the cached read path for an issuer's current snapshot.
// Returns (nil, nil) when the issuer is known but has no snapshot yet.
func (a *Aggregator) Snapshot(ctx context.Context, issuerID string) (*models.MetricSnapshot, error) {
	if a.resolver.Issuer(issuerID) == nil {
		return nil, ErrUnknownIssuer
	}
	if v, ok := a.memo.Get(snapshotKey(issuerID)); ok {
		return v.(*models.MetricSnapshot), nil
	}
	snap, err := a.store.GetSnapshot(ctx, issuerID)
	if err != nil {
		return nil, fmt.Errorf("loading snapshot for %s: %w", issuerID, err)
	}
	if snap != nil {
		a.memo.Set(snapshotKey(issuerID), snap, CacheTTL)
	}
	return snap, nil
}

// ExtractMetrics runs a fresh current-state extraction over the issuer's
// most recent chunks and persists the merged result.
func (a *Aggregator) ExtractMetrics(ctx context.Context, issuerID string) (*models.MetricSnapshot, error) {
	ids := a.resolver.TechnicalIDs(issuerID)
	if ids == nil {
		return nil, ErrUnknownIssuer
	}

	chunks, err := a.chunks.RecentChunks(ctx, ids, RecentChunkWindow)
	if err != nil {
		return nil, fmt.Errorf("loading chunk context for %s: %w", issuerID, err)
	}
	if len(chunks) == 0 {
		return nil, ErrNoIndexedContent
	}

	prompt := buildMetricsPrompt(a.resolver.Issuer(issuerID).Name, chunks)
	raw, err := a.provider.GenerateResponse(ctx, prompt, metricsSystemPrompt, jsonModeOptions())
	if err != nil {
		return nil, fmt.Errorf("metrics extraction call failed: %w", err)
	}

	var resp struct {
		Indicadores *models.Indicadores `json:"indicadores"`
	}
	if perr := utils.SmartParse(raw, &resp); perr != nil || resp.Indicadores == nil {
		fmt.Printf("[WARNING] metrics extraction returned unusable JSON for %s, substituting fallback: %v\n", issuerID, perr)
		resp.Indicadores = models.EmptyIndicadores()
	}

	return a.record(ctx, issuerID, resp.Indicadores, chunks[0].Metadata.DocumentTitle)
}

// RecordExtraction ingests an already-extracted metrics object, the path the
// ingestion pipeline uses when a financial statement's sidecar fires.
func (a *Aggregator) RecordExtraction(ctx context.Context, issuerID string, ind *models.Indicadores, sourceDoc string) error {
	if a.resolver.Issuer(issuerID) == nil {
		return ErrUnknownIssuer
	}
	_, err := a.record(ctx, issuerID, ind, sourceDoc)
	return err
}

// record normalizes, stamps provenance, merge-upserts and invalidates the
// memo tier.
func (a *Aggregator) record(ctx context.Context, issuerID string, fresh *models.Indicadores, sourceDoc string) (*models.MetricSnapshot, error) {
	if fresh == nil {
		fresh = models.EmptyIndicadores()
	}
	cfg := a.resolver.Config()
	NormalizeIndicadores(fresh, cfg.TasaCambioUSD, cfg.UmbralMonedaLocal)

	fresh.Metadata.ExtractedAt = a.now()
	fresh.Metadata.RunID = a.runID
	if fresh.Metadata.FuenteDocumento == "" {
		fresh.Metadata.FuenteDocumento = sourceDoc
	}

	existing, err := a.store.GetSnapshot(ctx, issuerID)
	if err != nil {
		return nil, fmt.Errorf("loading snapshot for %s: %w", issuerID, err)
	}

	snap := &models.MetricSnapshot{IssuerID: issuerID, UpdatedAt: a.now()}
	if existing != nil {
		snap.Historia = existing.Historia
		snap.Indicadores = MergeIndicadores(existing.Indicadores, fresh)
	} else {
		snap.Indicadores = fresh
	}

	// A fresh extraction with a declared period also lands as that year's
	// history record, unless the year already has one. History records are
	// write-once.
	if periodo := fresh.Metadata.Periodo; periodo != "" {
		if snap.Historia == nil {
			snap.Historia = make(map[string]*models.PeriodRecord)
		}
		if _, exists := snap.Historia[periodo]; !exists {
			snap.Historia[periodo] = &models.PeriodRecord{
				Periodo:     periodo,
				Indicadores: fresh,
				RecordedAt:  a.now(),
			}
		}
	}

	if err := a.store.SaveSnapshot(ctx, snap); err != nil {
		return nil, fmt.Errorf("saving snapshot for %s: %w", issuerID, err)
	}
	a.memo.InvalidatePrefix("metrics:" + issuerID + ":")
	fmt.Printf("[METRICS] snapshot updated for %s (source %q)\n", issuerID, sourceDoc)
	return snap, nil
}

const metricsSystemPrompt = `Eres un analista financiero senior especializado en emisores del mercado de valores nicaragüense.
Extraes indicadores financieros de forma conservadora: solo cifras presentes en el contexto.
Respondes únicamente con JSON válido conforme al esquema solicitado. Usa null para datos ausentes.`

func jsonModeOptions() map[string]interface{} {
	return map[string]interface{}{
		"response_format": map[string]interface{}{"type": "json_object"},
	}
}

// buildMetricsPrompt assembles the chunk context plus the fixed schema.
func buildMetricsPrompt(issuerName string, chunks []models.Chunk) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Contexto documental del emisor %q:\n\n", issuerName)
	for _, c := range chunks {
		fragment := fmt.Sprintf("[%s | %s]\n%s\n\n", c.Metadata.DocumentTitle, c.Metadata.DocumentDate, c.Text)
		if sb.Len()+len(fragment) > maxPromptContextChars {
			break
		}
		sb.WriteString(fragment)
	}

	sb.WriteString(`Del contexto anterior, devuelve un objeto JSON con exactamente esta forma:
{
  "indicadores": {
    "capital": {"activosTotales": number|null, "pasivosTotales": number|null, "patrimonio": number|null, "adecuacionCapital": number|null},
    "liquidez": {"disponibilidades": number|null, "ratioLiquidez": number|null, "coberturaLiquidez": number|null},
    "solvencia": {"carteraVencida": number|null, "indiceMorosidad": number|null, "coberturaCartera": number|null, "endeudamientoNeto": number|null},
    "rentabilidad": {"utilidadNeta": number|null, "roa": number|null, "roe": number|null, "margenFinanciero": number|null},
    "eficiencia": {"gastosOperativos": number|null, "ratioEficiencia": number|null, "ingresosFinancieros": number|null},
    "calificacion": {"agencia": string, "calificacion": string, "perspectiva": string, "fecha": string},
    "metadata": {"moneda": "NIO"|"USD"|"", "periodo": "YYYY"}
  }
}
Prefiere las cifras del periodo más reciente. Montos en unidades absolutas. Si la moneda no se declara deja "moneda" vacía.`)
	return sb.String()
}
