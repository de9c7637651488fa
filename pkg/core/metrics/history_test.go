package metrics

import (
	"context"
	"testing"
	"time"

	"emisor_intel/pkg/models"
)

func TestTargetHistoryYearsExcludeCurrentYear(t *testing.T) {
	agg := newTestAggregator(&cannedProvider{}, &fakeChunks{}, newMemStore())
	years := agg.TargetHistoryYears()
	want := []string{"2025", "2024", "2023", "2022", "2021"}
	if len(years) != len(want) {
		t.Fatalf("years = %v", years)
	}
	for i, y := range want {
		if years[i] != y {
			t.Errorf("years[%d] = %q, want %q", i, years[i], y)
		}
	}
}

func TestHistoryAlwaysReturnsFullWindow(t *testing.T) {
	store := newMemStore()
	store.snaps["lafise"] = &models.MetricSnapshot{
		IssuerID: "lafise",
		Historia: map[string]*models.PeriodRecord{
			"2024": {Periodo: "2024", Indicadores: models.EmptyIndicadores(), RecordedAt: time.Now()},
			"2022": {Periodo: "2022", Indicadores: models.EmptyIndicadores(), RecordedAt: time.Now()},
		},
	}
	agg := newTestAggregator(&cannedProvider{}, &fakeChunks{}, store)

	recs, err := agg.History(context.Background(), "lafise")
	if err != nil {
		t.Fatalf("History failed: %v", err)
	}
	if len(recs) != HistoryYears {
		t.Fatalf("records = %d, want %d", len(recs), HistoryYears)
	}
	byYear := map[string]models.PeriodRecord{}
	for i, r := range recs {
		byYear[r.Periodo] = r
		if i > 0 && recs[i-1].Periodo < r.Periodo {
			t.Errorf("records not newest first: %q before %q", recs[i-1].Periodo, r.Periodo)
		}
	}
	if byYear["2024"].Indicadores == nil || byYear["2022"].Indicadores == nil {
		t.Errorf("stored years returned as placeholders")
	}
	for _, y := range []string{"2025", "2023", "2021"} {
		if byYear[y].Indicadores != nil {
			t.Errorf("missing year %s not a null placeholder", y)
		}
	}
}

func TestHistoryWithNoSnapshotIsAllPlaceholders(t *testing.T) {
	agg := newTestAggregator(&cannedProvider{}, &fakeChunks{}, newMemStore())
	recs, err := agg.History(context.Background(), "fama")
	if err != nil {
		t.Fatalf("History failed: %v", err)
	}
	if len(recs) != HistoryYears {
		t.Fatalf("records = %d, want %d", len(recs), HistoryYears)
	}
	for _, r := range recs {
		if r.Indicadores != nil {
			t.Errorf("year %s should be a placeholder", r.Periodo)
		}
	}
}

func TestExtractHistoryPersistsRecoveredYears(t *testing.T) {
	provider := &cannedProvider{response: `{
		"historia": {
			"2025": {"capital": {"activosTotales": 900000000}, "metadata": {"moneda": "NIO"}},
			"2024": {"capital": {"activosTotales": 850000000}, "metadata": {"moneda": "NIO"}},
			"2019": {"capital": {"activosTotales": 100}, "metadata": {"moneda": "USD"}}
		}
	}`}
	chunks := &fakeChunks{chunks: someChunks()}
	store := newMemStore()
	agg := newTestAggregator(provider, chunks, store)

	recs, err := agg.ExtractHistory(context.Background(), "banpro")
	if err != nil {
		t.Fatalf("ExtractHistory failed: %v", err)
	}
	if chunks.limit != HistoryChunkWindow {
		t.Errorf("chunk window = %d, want %d", chunks.limit, HistoryChunkWindow)
	}
	if len(recs) != HistoryYears {
		t.Fatalf("records = %d, want %d", len(recs), HistoryYears)
	}

	snap := store.snaps["banpro"]
	if snap.Historia["2025"] == nil || snap.Historia["2024"] == nil {
		t.Fatalf("recovered years not persisted: %v", snap.Historia)
	}
	// Out-of-window years are dropped.
	if snap.Historia["2019"] != nil {
		t.Errorf("year outside the target window persisted")
	}
	// Recovered NIO amounts are normalized to USD.
	got := snap.Historia["2025"].Indicadores
	if got.Metadata.Moneda != "USD" {
		t.Errorf("history record moneda = %q, want USD", got.Metadata.Moneda)
	}
	if got.Metadata.Periodo != "2025" {
		t.Errorf("history record periodo = %q", got.Metadata.Periodo)
	}
}

func TestExtractHistoryNeverOverwritesExistingRecords(t *testing.T) {
	original := 123.0
	store := newMemStore()
	store.snaps["banpro"] = &models.MetricSnapshot{
		IssuerID: "banpro",
		Historia: map[string]*models.PeriodRecord{
			"2024": {Periodo: "2024", Indicadores: &models.Indicadores{
				Capital:  &models.CapitalGroup{ActivosTotales: &original},
				Metadata: &models.MetricMetadata{Moneda: "USD"},
			}},
		},
	}
	provider := &cannedProvider{response: `{"historia": {"2024": {"capital": {"activosTotales": 999}, "metadata": {"moneda": "USD"}}}}`}
	agg := newTestAggregator(provider, &fakeChunks{chunks: someChunks()}, store)

	if _, err := agg.ExtractHistory(context.Background(), "banpro"); err != nil {
		t.Fatalf("ExtractHistory failed: %v", err)
	}
	got := store.snaps["banpro"].Historia["2024"].Indicadores
	if *got.Capital.ActivosTotales != original {
		t.Errorf("write-once history record was overwritten: %f", *got.Capital.ActivosTotales)
	}
}

func TestExtractHistoryMalformedOutputKeepsPlaceholders(t *testing.T) {
	provider := &cannedProvider{response: "respuesta sin estructura"}
	agg := newTestAggregator(provider, &fakeChunks{chunks: someChunks()}, newMemStore())

	recs, err := agg.ExtractHistory(context.Background(), "banpro")
	if err != nil {
		t.Fatalf("malformed output must not fail the operation: %v", err)
	}
	if len(recs) != HistoryYears {
		t.Fatalf("records = %d, want %d", len(recs), HistoryYears)
	}
	for _, r := range recs {
		if r.Indicadores != nil {
			t.Errorf("year %s should remain a placeholder", r.Periodo)
		}
	}
}
