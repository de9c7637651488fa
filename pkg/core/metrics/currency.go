// Package metrics turns indexed chunks into persisted metric snapshots and
// per-year history records for each issuer.
package metrics

import (
	"fmt"

	"emisor_intel/pkg/models"
)

// NormalizeIndicadores applies the two post-extraction corrections in place:
// liabilities recovery and currency normalization. rate is the NIO/USD
// exchange rate, threshold the total-assets magnitude above which an
// undeclared currency is assumed to be córdobas.
//
// After this call Metadata.Moneda is always "USD"; every persisted snapshot
// carries a single currency.
func NormalizeIndicadores(ind *models.Indicadores, rate, threshold float64) {
	if ind == nil {
		return
	}
	if ind.Metadata == nil {
		ind.Metadata = &models.MetricMetadata{}
	}

	// Audited statements routinely publish assets and equity but bury total
	// liabilities; the balance identity recovers them.
	if c := ind.Capital; c != nil {
		if c.PasivosTotales == nil && c.ActivosTotales != nil && c.Patrimonio != nil {
			pasivos := *c.ActivosTotales - *c.Patrimonio
			c.PasivosTotales = &pasivos
		}
	}

	moneda := ind.Metadata.Moneda
	if moneda == "" {
		// Nicaraguan issuers report in córdobas at magnitudes no USD
		// statement reaches. Below the threshold the figures are assumed to
		// already be dollars.
		if ind.Capital != nil && ind.Capital.ActivosTotales != nil && *ind.Capital.ActivosTotales > threshold {
			moneda = "NIO"
		} else {
			moneda = "USD"
		}
	}

	if moneda == "NIO" {
		if rate <= 0 {
			fmt.Printf("[WARNING] invalid exchange rate %f, leaving amounts in NIO\n", rate)
			ind.Metadata.Moneda = "NIO"
			return
		}
		convertAmounts(ind, rate)
	}
	ind.Metadata.Moneda = "USD"
}

// convertAmounts divides every absolute monetary amount by the NIO/USD rate.
// Ratios and percentages are unit-free and stay untouched.
func convertAmounts(ind *models.Indicadores, rate float64) {
	if c := ind.Capital; c != nil {
		divide(&c.ActivosTotales, rate)
		divide(&c.PasivosTotales, rate)
		divide(&c.Patrimonio, rate)
	}
	if l := ind.Liquidez; l != nil {
		divide(&l.Disponibilidades, rate)
	}
	if s := ind.Solvencia; s != nil {
		divide(&s.CarteraVencida, rate)
	}
	if r := ind.Rentabilidad; r != nil {
		divide(&r.UtilidadNeta, rate)
	}
	if e := ind.Eficiencia; e != nil {
		divide(&e.GastosOperativos, rate)
		divide(&e.IngresosFinancieros, rate)
	}
}

func divide(v **float64, rate float64) {
	if *v == nil {
		return
	}
	converted := **v / rate
	*v = &converted
}
