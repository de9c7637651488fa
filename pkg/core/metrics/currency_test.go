package metrics

import (
	"math"
	"testing"

	"emisor_intel/pkg/core/registry"
	"emisor_intel/pkg/models"
)

func fp(v float64) *float64 { return &v }

func almostEqual(a, b float64) bool {
	return math.Abs(a-b) < 1e-6
}

func TestNormalizeInfersLocalCurrencyAndConverts(t *testing.T) {
	ind := &models.Indicadores{
		Capital:  &models.CapitalGroup{ActivosTotales: fp(1_500_000_000), Patrimonio: fp(300_000_000)},
		Metadata: &models.MetricMetadata{Moneda: ""},
	}
	NormalizeIndicadores(ind, registry.FallbackTasaCambio, registry.DefaultUmbralMonedaLocal)

	if ind.Metadata.Moneda != "USD" {
		t.Fatalf("moneda = %q, want USD", ind.Metadata.Moneda)
	}
	want := 1_500_000_000 / registry.FallbackTasaCambio
	if !almostEqual(*ind.Capital.ActivosTotales, want) {
		t.Errorf("activos = %f, want %f", *ind.Capital.ActivosTotales, want)
	}
}

func TestNormalizeLeavesSmallUndeclaredAmountsAlone(t *testing.T) {
	ind := &models.Indicadores{
		Capital: &models.CapitalGroup{ActivosTotales: fp(98_000_000)},
	}
	NormalizeIndicadores(ind, registry.FallbackTasaCambio, registry.DefaultUmbralMonedaLocal)

	if ind.Metadata.Moneda != "USD" {
		t.Errorf("moneda = %q, want USD", ind.Metadata.Moneda)
	}
	if *ind.Capital.ActivosTotales != 98_000_000 {
		t.Errorf("below-threshold amount converted: %f", *ind.Capital.ActivosTotales)
	}
}

func TestNormalizeConvertsDeclaredNIO(t *testing.T) {
	ind := &models.Indicadores{
		Capital:      &models.CapitalGroup{ActivosTotales: fp(36.6243)},
		Rentabilidad: &models.RentabilidadGroup{UtilidadNeta: fp(366.243), ROA: fp(1.8)},
		Metadata:     &models.MetricMetadata{Moneda: "NIO"},
	}
	NormalizeIndicadores(ind, 36.6243, registry.DefaultUmbralMonedaLocal)

	if !almostEqual(*ind.Capital.ActivosTotales, 1.0) {
		t.Errorf("activos = %f, want 1.0", *ind.Capital.ActivosTotales)
	}
	if !almostEqual(*ind.Rentabilidad.UtilidadNeta, 10.0) {
		t.Errorf("utilidad = %f, want 10.0", *ind.Rentabilidad.UtilidadNeta)
	}
	// ROA is a percentage, not an amount.
	if *ind.Rentabilidad.ROA != 1.8 {
		t.Errorf("ratio was converted: %f", *ind.Rentabilidad.ROA)
	}
	if ind.Metadata.Moneda != "USD" {
		t.Errorf("moneda = %q, want USD", ind.Metadata.Moneda)
	}
}

func TestNormalizeDeclaredUSDUntouched(t *testing.T) {
	ind := &models.Indicadores{
		Capital:  &models.CapitalGroup{ActivosTotales: fp(2_000_000_000)},
		Metadata: &models.MetricMetadata{Moneda: "USD"},
	}
	NormalizeIndicadores(ind, registry.FallbackTasaCambio, registry.DefaultUmbralMonedaLocal)
	if *ind.Capital.ActivosTotales != 2_000_000_000 {
		t.Errorf("declared USD amount converted: %f", *ind.Capital.ActivosTotales)
	}
}

func TestNormalizeRecoversLiabilities(t *testing.T) {
	ind := &models.Indicadores{
		Capital:  &models.CapitalGroup{ActivosTotales: fp(1000), Patrimonio: fp(250)},
		Metadata: &models.MetricMetadata{Moneda: "USD"},
	}
	NormalizeIndicadores(ind, registry.FallbackTasaCambio, registry.DefaultUmbralMonedaLocal)
	if ind.Capital.PasivosTotales == nil || *ind.Capital.PasivosTotales != 750 {
		t.Errorf("liabilities not recovered: %v", ind.Capital.PasivosTotales)
	}
}

func TestNormalizeDoesNotOverwriteDeclaredLiabilities(t *testing.T) {
	ind := &models.Indicadores{
		Capital:  &models.CapitalGroup{ActivosTotales: fp(1000), PasivosTotales: fp(700), Patrimonio: fp(250)},
		Metadata: &models.MetricMetadata{Moneda: "USD"},
	}
	NormalizeIndicadores(ind, registry.FallbackTasaCambio, registry.DefaultUmbralMonedaLocal)
	if *ind.Capital.PasivosTotales != 700 {
		t.Errorf("declared liabilities replaced: %f", *ind.Capital.PasivosTotales)
	}
}

func TestNormalizeNilSafe(t *testing.T) {
	NormalizeIndicadores(nil, registry.FallbackTasaCambio, registry.DefaultUmbralMonedaLocal)

	ind := &models.Indicadores{}
	NormalizeIndicadores(ind, registry.FallbackTasaCambio, registry.DefaultUmbralMonedaLocal)
	if ind.Metadata == nil || ind.Metadata.Moneda != "USD" {
		t.Errorf("empty object not labeled: %+v", ind.Metadata)
	}
}

func TestMergeIndicadoresFreshWinsFieldwise(t *testing.T) {
	old := &models.Indicadores{
		Capital:      &models.CapitalGroup{ActivosTotales: fp(100), Patrimonio: fp(20)},
		Calificacion: &models.CalificacionGroup{Agencia: "SCRiesgo", Calificacion: "A"},
	}
	fresh := &models.Indicadores{
		Capital:  &models.CapitalGroup{ActivosTotales: fp(110)},
		Metadata: &models.MetricMetadata{Moneda: "USD", Periodo: "2024"},
	}
	merged := MergeIndicadores(old, fresh)

	if *merged.Capital.ActivosTotales != 110 {
		t.Errorf("fresh value lost: %f", *merged.Capital.ActivosTotales)
	}
	if merged.Capital.Patrimonio == nil || *merged.Capital.Patrimonio != 20 {
		t.Errorf("old value erased by fresh nil")
	}
	if merged.Calificacion == nil || merged.Calificacion.Calificacion != "A" {
		t.Errorf("old group dropped: %+v", merged.Calificacion)
	}
	if merged.Metadata == nil || merged.Metadata.Periodo != "2024" {
		t.Errorf("metadata not refreshed: %+v", merged.Metadata)
	}
	// Inputs untouched.
	if *old.Capital.ActivosTotales != 100 {
		t.Errorf("merge mutated its input")
	}
}
