package metrics

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"emisor_intel/pkg/core/utils"
	"emisor_intel/pkg/models"
)

// HistoryYears is how many fiscal years the reconstruction targets.
const HistoryYears = 5

// TargetHistoryYears returns the most recent completed fiscal years, newest
// first. The current year is excluded: its audited statement does not exist
// yet.
func (a *Aggregator) TargetHistoryYears() []string {
	current := a.now().Year()
	years := make([]string, 0, HistoryYears)
	for y := current - 1; y >= current-HistoryYears; y-- {
		years = append(years, strconv.Itoa(y))
	}
	return years
}

// History is the cached read path. The returned slice always has exactly
// HistoryYears entries, newest first; years with no stored record appear as
// placeholders with a nil Indicadores.
func (a *Aggregator) History(ctx context.Context, issuerID string) ([]models.PeriodRecord, error) {
	if a.resolver.Issuer(issuerID) == nil {
		return nil, ErrUnknownIssuer
	}
	if v, ok := a.memo.Get(historyKey(issuerID)); ok {
		return v.([]models.PeriodRecord), nil
	}

	snap, err := a.store.GetSnapshot(ctx, issuerID)
	if err != nil {
		return nil, fmt.Errorf("loading snapshot for %s: %w", issuerID, err)
	}

	out := make([]models.PeriodRecord, 0, HistoryYears)
	for _, year := range a.TargetHistoryYears() {
		if snap != nil && snap.Historia != nil {
			if rec, ok := snap.Historia[year]; ok && rec != nil {
				out = append(out, *rec)
				continue
			}
		}
		out = append(out, models.PeriodRecord{Periodo: year, Indicadores: nil})
	}

	a.memo.Set(historyKey(issuerID), out, CacheTTL)
	return out, nil
}

// ExtractHistory reconstructs per-year metrics from a wide chunk window with
// one generation call, then persists the recovered years as write-once
// history records. Returns the full fixed-length history after the update.
func (a *Aggregator) ExtractHistory(ctx context.Context, issuerID string) ([]models.PeriodRecord, error) {
	ids := a.resolver.TechnicalIDs(issuerID)
	if ids == nil {
		return nil, ErrUnknownIssuer
	}

	chunks, err := a.chunks.RecentChunks(ctx, ids, HistoryChunkWindow)
	if err != nil {
		return nil, fmt.Errorf("loading chunk context for %s: %w", issuerID, err)
	}
	if len(chunks) == 0 {
		return nil, ErrNoIndexedContent
	}

	years := a.TargetHistoryYears()
	prompt := buildHistoryPrompt(a.resolver.Issuer(issuerID).Name, years, chunks)
	raw, err := a.provider.GenerateResponse(ctx, prompt, metricsSystemPrompt, jsonModeOptions())
	if err != nil {
		return nil, fmt.Errorf("history extraction call failed: %w", err)
	}

	var resp struct {
		Historia map[string]*models.Indicadores `json:"historia"`
	}
	if perr := utils.SmartParse(raw, &resp); perr != nil || resp.Historia == nil {
		fmt.Printf("[WARNING] history extraction returned unusable JSON for %s: %v\n", issuerID, perr)
		resp.Historia = map[string]*models.Indicadores{}
	}

	if err := a.recordHistory(ctx, issuerID, years, resp.Historia); err != nil {
		return nil, err
	}
	return a.History(ctx, issuerID)
}

// recordHistory persists the recovered years. Only target years are
// accepted and existing records are never overwritten.
func (a *Aggregator) recordHistory(ctx context.Context, issuerID string, years []string, recovered map[string]*models.Indicadores) error {
	target := make(map[string]bool, len(years))
	for _, y := range years {
		target[y] = true
	}

	snap, err := a.store.GetSnapshot(ctx, issuerID)
	if err != nil {
		return fmt.Errorf("loading snapshot for %s: %w", issuerID, err)
	}
	if snap == nil {
		snap = &models.MetricSnapshot{IssuerID: issuerID}
	}
	if snap.Historia == nil {
		snap.Historia = make(map[string]*models.PeriodRecord)
	}

	cfg := a.resolver.Config()
	added := 0
	for year, ind := range recovered {
		if !target[year] || ind == nil {
			continue
		}
		if _, exists := snap.Historia[year]; exists {
			continue
		}
		NormalizeIndicadores(ind, cfg.TasaCambioUSD, cfg.UmbralMonedaLocal)
		ind.Metadata.Periodo = year
		ind.Metadata.ExtractedAt = a.now()
		ind.Metadata.RunID = a.runID
		snap.Historia[year] = &models.PeriodRecord{
			Periodo:     year,
			Indicadores: ind,
			RecordedAt:  a.now(),
		}
		added++
	}

	snap.UpdatedAt = a.now()
	if err := a.store.SaveSnapshot(ctx, snap); err != nil {
		return fmt.Errorf("saving snapshot for %s: %w", issuerID, err)
	}
	a.memo.InvalidatePrefix("metrics:" + issuerID + ":")
	fmt.Printf("[METRICS] history updated for %s (%d new years)\n", issuerID, added)
	return nil
}

func buildHistoryPrompt(issuerName string, years []string, chunks []models.Chunk) string {
	sorted := make([]string, len(years))
	copy(sorted, years)
	sort.Strings(sorted)

	var sb strings.Builder
	fmt.Fprintf(&sb, "Contexto documental histórico del emisor %q:\n\n", issuerName)
	for _, c := range chunks {
		fragment := fmt.Sprintf("[%s | %s]\n%s\n\n", c.Metadata.DocumentTitle, c.Metadata.DocumentDate, c.Text)
		if sb.Len()+len(fragment) > maxPromptContextChars {
			break
		}
		sb.WriteString(fragment)
	}

	fmt.Fprintf(&sb, `Reconstruye los indicadores financieros por año fiscal para los años %s.
Devuelve un objeto JSON con exactamente esta forma:
{
  "historia": {
    "YYYY": {
      "capital": {"activosTotales": number|null, "pasivosTotales": number|null, "patrimonio": number|null, "adecuacionCapital": number|null},
      "liquidez": {"disponibilidades": number|null, "ratioLiquidez": number|null, "coberturaLiquidez": number|null},
      "solvencia": {"carteraVencida": number|null, "indiceMorosidad": number|null, "coberturaCartera": number|null, "endeudamientoNeto": number|null},
      "rentabilidad": {"utilidadNeta": number|null, "roa": number|null, "roe": number|null, "margenFinanciero": number|null},
      "eficiencia": {"gastosOperativos": number|null, "ratioEficiencia": number|null, "ingresosFinancieros": number|null},
      "calificacion": {"agencia": string, "calificacion": string, "perspectiva": string, "fecha": string},
      "metadata": {"moneda": "NIO"|"USD"|"", "periodo": "YYYY"}
    }
  }
}
Incluye únicamente los años con cifras presentes en el contexto; omite los demás. Montos en unidades absolutas.`,
		strings.Join(sorted, ", "))
	return sb.String()
}
