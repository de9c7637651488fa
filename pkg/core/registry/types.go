// Package registry implements the closed issuer registry and the identity
// resolver that maps raw, variably-spelled issuer names to canonical ids.
// The system operates over a curated whitelist: an input that matches no rule
// resolves to nothing, never to a guessed issuer.
package registry

import "time"

// Issuer is one entry of the closed registry.
type Issuer struct {
	// ID is the canonical slug. Immutable once assigned.
	ID      string   `json:"id" yaml:"id"`
	Name    string   `json:"name" yaml:"name"`
	Sector  string   `json:"sector" yaml:"sector"`
	Aliases []string `json:"aliases" yaml:"aliases"`
	// TechnicalIDs are raw ids/slugs used historically in storage, including
	// broken-diacritic slugs produced by older scraping runs.
	TechnicalIDs []string `json:"technicalIds" yaml:"technical_ids"`
}

// Config is the runtime registry configuration. It normally lives in a remote
// config record and degrades to the hardcoded seed below when that record is
// unreachable.
type Config struct {
	Issuers []Issuer `json:"issuers"`
	// TasaCambioUSD is the NIO -> USD exchange rate used by currency
	// normalization when a snapshot is inferred to be in local currency.
	TasaCambioUSD float64 `json:"tasaCambioUSD"`
	// UmbralMonedaLocal is the total-assets magnitude above which an
	// undeclared currency is assumed to be NIO. Heuristic with no documented
	// derivation; kept configurable on purpose.
	UmbralMonedaLocal float64 `json:"umbralMonedaLocal"`
}

// FallbackTasaCambio is the hardcoded NIO/USD rate used when no config record
// supplies one.
const FallbackTasaCambio = 36.6243

// DefaultUmbralMonedaLocal is the fallback total-assets threshold for local
// currency inference.
const DefaultUmbralMonedaLocal = 100_000_000

// ConfigTTL bounds how long a fetched remote config is trusted before the
// loader goes back to the remote record.
const ConfigTTL = 15 * time.Minute

// StaticConfig returns the hardcoded seed registry. This is the degradation
// target when the remote config source is unavailable; ids here are the
// source of truth for canonical slugs.
func StaticConfig() *Config {
	return &Config{
		TasaCambioUSD:     FallbackTasaCambio,
		UmbralMonedaLocal: DefaultUmbralMonedaLocal,
		Issuers: []Issuer{
			{
				ID: "banpro", Name: "Banco de la Producción, S.A.", Sector: "Banca",
				Aliases:      []string{"banco de la produccion", "banpro grupo promerica", "banpro"},
				TechnicalIDs: []string{"banco-de-la-producci-n", "banpro-grupo-promerica", "banpro"},
			},
			{
				ID: "lafise", Name: "Banco LAFISE Bancentro, S.A.", Sector: "Banca",
				Aliases:      []string{"banco lafise bancentro", "lafise bancentro", "lafise"},
				TechnicalIDs: []string{"banco-lafise-bancentro", "lafise"},
			},
			{
				ID: "bdf", Name: "Banco de Finanzas, S.A.", Sector: "Banca",
				Aliases:      []string{"banco de finanzas", "bdf"},
				TechnicalIDs: []string{"banco-de-finanzas", "bdf"},
			},
			{
				ID: "ficohsa", Name: "Banco Ficohsa Nicaragua, S.A.", Sector: "Banca",
				Aliases:      []string{"banco ficohsa", "ficohsa nicaragua", "ficohsa"},
				TechnicalIDs: []string{"banco-ficohsa-nicaragua", "ficohsa"},
			},
			{
				ID: "fama", Name: "Financiera FAMA, S.A.", Sector: "Microfinanzas",
				Aliases:      []string{"financiera fama", "fama"},
				TechnicalIDs: []string{"financiera-fama", "fama"},
			},
			{
				ID: "fdl", Name: "Financiera FDL, S.A.", Sector: "Microfinanzas",
				Aliases:      []string{"financiera fdl", "fondo de desarrollo local", "fdl"},
				TechnicalIDs: []string{"financiera-fdl", "fondo-de-desarrollo-local", "fdl"},
			},
			{
				ID: "credifactor", Name: "CrediFactor, S.A.", Sector: "Factoraje",
				Aliases:      []string{"credifactor", "credi factor"},
				TechnicalIDs: []string{"credifactor", "credi-factor"},
			},
			{
				ID: "agricorp", Name: "Corporación Agrícola, S.A.", Sector: "Agroindustria",
				Aliases:      []string{"corporacion agricola", "agri-corp", "agricorp"},
				TechnicalIDs: []string{"corporaci-n-agr-cola", "agri-corp", "agricorp"},
			},
		},
	}
}

// Find returns the registry entry for a canonical id.
func (c *Config) Find(id string) *Issuer {
	for i := range c.Issuers {
		if c.Issuers[i].ID == id {
			return &c.Issuers[i]
		}
	}
	return nil
}
