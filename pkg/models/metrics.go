package models

import "time"

// Field names follow the reporting vocabulary of the source documents
// (Spanish-language audited statements), so the LLM extraction schema and the
// persisted snapshots stay aligned with what analysts actually read.

// CapitalGroup holds balance-sheet totals. Amounts are in the snapshot
// currency (Metadata.Moneda).
type CapitalGroup struct {
	ActivosTotales    *float64 `json:"activosTotales"`
	PasivosTotales    *float64 `json:"pasivosTotales"`
	Patrimonio        *float64 `json:"patrimonio"`
	AdecuacionCapital *float64 `json:"adecuacionCapital,omitempty"`
}

type LiquidezGroup struct {
	Disponibilidades  *float64 `json:"disponibilidades,omitempty"`
	RatioLiquidez     *float64 `json:"ratioLiquidez,omitempty"`
	CoberturaLiquidez *float64 `json:"coberturaLiquidez,omitempty"`
}

type SolvenciaGroup struct {
	CarteraVencida    *float64 `json:"carteraVencida,omitempty"`
	IndiceMorosidad   *float64 `json:"indiceMorosidad,omitempty"`
	CoberturaCartera  *float64 `json:"coberturaCartera,omitempty"`
	EndeudamientoNeto *float64 `json:"endeudamientoNeto,omitempty"`
}

type RentabilidadGroup struct {
	UtilidadNeta     *float64 `json:"utilidadNeta,omitempty"`
	ROA              *float64 `json:"roa,omitempty"`
	ROE              *float64 `json:"roe,omitempty"`
	MargenFinanciero *float64 `json:"margenFinanciero,omitempty"`
}

type EficienciaGroup struct {
	GastosOperativos    *float64 `json:"gastosOperativos,omitempty"`
	RatioEficiencia     *float64 `json:"ratioEficiencia,omitempty"`
	IngresosFinancieros *float64 `json:"ingresosFinancieros,omitempty"`
}

type CalificacionGroup struct {
	Agencia      string `json:"agencia,omitempty"`
	Calificacion string `json:"calificacion,omitempty"`
	Perspectiva  string `json:"perspectiva,omitempty"`
	Fecha        string `json:"fecha,omitempty"`
}

// MetricMetadata carries extraction provenance and the currency label.
type MetricMetadata struct {
	Moneda          string    `json:"moneda,omitempty"` // "NIO" or "USD"
	Periodo         string    `json:"periodo,omitempty"`
	FuenteDocumento string    `json:"fuenteDocumento,omitempty"`
	ExtractedAt     time.Time `json:"extractedAt,omitempty"`
	RunID           string    `json:"runId,omitempty"`
}

// Indicadores is the fixed output schema the generation service is prompted
// under. Every group is optional; a missing group means the model found
// nothing for it.
type Indicadores struct {
	Capital      *CapitalGroup      `json:"capital,omitempty"`
	Liquidez     *LiquidezGroup     `json:"liquidez,omitempty"`
	Solvencia    *SolvenciaGroup    `json:"solvencia,omitempty"`
	Rentabilidad *RentabilidadGroup `json:"rentabilidad,omitempty"`
	Eficiencia   *EficienciaGroup   `json:"eficiencia,omitempty"`
	Calificacion *CalificacionGroup `json:"calificacion,omitempty"`
	Metadata     *MetricMetadata    `json:"metadata,omitempty"`
}

// PeriodRecord is the immutable per-fiscal-year audit entry inside a snapshot.
// A record with a nil Indicadores marks a year that was attempted but for
// which the model produced no data.
type PeriodRecord struct {
	Periodo     string       `json:"periodo"`
	Indicadores *Indicadores `json:"indicadores"`
	RecordedAt  time.Time    `json:"recordedAt"`
}

// MetricSnapshot is the persisted point-in-time metrics record for one issuer.
// Upserts merge field-by-field rather than overwrite, so a partial fresh
// extraction never erases previously known values.
type MetricSnapshot struct {
	IssuerID    string                   `json:"issuerId"`
	Indicadores *Indicadores             `json:"indicadores"`
	Historia    map[string]*PeriodRecord `json:"historia,omitempty"` // keyed by 4-digit year
	UpdatedAt   time.Time                `json:"updatedAt"`
}

// EmptyIndicadores returns the minimal fallback object substituted when the
// generation service returns unusable output.
func EmptyIndicadores() *Indicadores {
	return &Indicadores{Metadata: &MetricMetadata{}}
}
