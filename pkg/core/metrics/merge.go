package metrics

import "emisor_intel/pkg/models"

// MergeIndicadores folds a fresh extraction over the previously persisted one
// field by field. A fresh non-nil value wins; a fresh nil keeps the old value.
// Neither input is mutated.
func MergeIndicadores(old, fresh *models.Indicadores) *models.Indicadores {
	if old == nil {
		return fresh
	}
	if fresh == nil {
		return old
	}

	out := &models.Indicadores{}
	out.Capital = mergeCapital(old.Capital, fresh.Capital)
	out.Liquidez = mergeLiquidez(old.Liquidez, fresh.Liquidez)
	out.Solvencia = mergeSolvencia(old.Solvencia, fresh.Solvencia)
	out.Rentabilidad = mergeRentabilidad(old.Rentabilidad, fresh.Rentabilidad)
	out.Eficiencia = mergeEficiencia(old.Eficiencia, fresh.Eficiencia)
	out.Calificacion = mergeCalificacion(old.Calificacion, fresh.Calificacion)

	// Metadata always reflects the most recent extraction.
	if fresh.Metadata != nil {
		out.Metadata = fresh.Metadata
	} else {
		out.Metadata = old.Metadata
	}
	return out
}

func pick(old, fresh *float64) *float64 {
	if fresh != nil {
		return fresh
	}
	return old
}

func pickStr(old, fresh string) string {
	if fresh != "" {
		return fresh
	}
	return old
}

func mergeCapital(old, fresh *models.CapitalGroup) *models.CapitalGroup {
	if old == nil {
		return fresh
	}
	if fresh == nil {
		return old
	}
	return &models.CapitalGroup{
		ActivosTotales:    pick(old.ActivosTotales, fresh.ActivosTotales),
		PasivosTotales:    pick(old.PasivosTotales, fresh.PasivosTotales),
		Patrimonio:        pick(old.Patrimonio, fresh.Patrimonio),
		AdecuacionCapital: pick(old.AdecuacionCapital, fresh.AdecuacionCapital),
	}
}

func mergeLiquidez(old, fresh *models.LiquidezGroup) *models.LiquidezGroup {
	if old == nil {
		return fresh
	}
	if fresh == nil {
		return old
	}
	return &models.LiquidezGroup{
		Disponibilidades:  pick(old.Disponibilidades, fresh.Disponibilidades),
		RatioLiquidez:     pick(old.RatioLiquidez, fresh.RatioLiquidez),
		CoberturaLiquidez: pick(old.CoberturaLiquidez, fresh.CoberturaLiquidez),
	}
}

func mergeSolvencia(old, fresh *models.SolvenciaGroup) *models.SolvenciaGroup {
	if old == nil {
		return fresh
	}
	if fresh == nil {
		return old
	}
	return &models.SolvenciaGroup{
		CarteraVencida:    pick(old.CarteraVencida, fresh.CarteraVencida),
		IndiceMorosidad:   pick(old.IndiceMorosidad, fresh.IndiceMorosidad),
		CoberturaCartera:  pick(old.CoberturaCartera, fresh.CoberturaCartera),
		EndeudamientoNeto: pick(old.EndeudamientoNeto, fresh.EndeudamientoNeto),
	}
}

func mergeRentabilidad(old, fresh *models.RentabilidadGroup) *models.RentabilidadGroup {
	if old == nil {
		return fresh
	}
	if fresh == nil {
		return old
	}
	return &models.RentabilidadGroup{
		UtilidadNeta:     pick(old.UtilidadNeta, fresh.UtilidadNeta),
		ROA:              pick(old.ROA, fresh.ROA),
		ROE:              pick(old.ROE, fresh.ROE),
		MargenFinanciero: pick(old.MargenFinanciero, fresh.MargenFinanciero),
	}
}

func mergeEficiencia(old, fresh *models.EficienciaGroup) *models.EficienciaGroup {
	if old == nil {
		return fresh
	}
	if fresh == nil {
		return old
	}
	return &models.EficienciaGroup{
		GastosOperativos:    pick(old.GastosOperativos, fresh.GastosOperativos),
		RatioEficiencia:     pick(old.RatioEficiencia, fresh.RatioEficiencia),
		IngresosFinancieros: pick(old.IngresosFinancieros, fresh.IngresosFinancieros),
	}
}

func mergeCalificacion(old, fresh *models.CalificacionGroup) *models.CalificacionGroup {
	if old == nil {
		return fresh
	}
	if fresh == nil {
		return old
	}
	return &models.CalificacionGroup{
		Agencia:      pickStr(old.Agencia, fresh.Agencia),
		Calificacion: pickStr(old.Calificacion, fresh.Calificacion),
		Perspectiva:  pickStr(old.Perspectiva, fresh.Perspectiva),
		Fecha:        pickStr(old.Fecha, fresh.Fecha),
	}
}
