package registry

import (
	"regexp"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

var (
	parensRe    = regexp.MustCompile(`\([^)]*\)`)
	separatorRe = regexp.MustCompile(`[-–—_/.,;:]+`)
	spacesRe    = regexp.MustCompile(`\s+`)

	// Trailing legal suffixes stripped during normalization. Order matters:
	// longer forms first so "sociedad anonima" doesn't leave a dangling "sa".
	legalSuffixes = []string{"sociedad anonima", "s a", "sa"}

	deaccent = transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
)

// Normalize lowercases, strips diacritics, drops parenthesized content,
// collapses separators and removes trailing legal suffixes, isolating the
// base token of an issuer name. Deterministic: equal inputs always produce
// equal outputs.
func Normalize(raw string) string {
	s := strings.ToLower(strings.TrimSpace(raw))
	if out, _, err := transform.String(deaccent, s); err == nil {
		s = out
	}
	s = parensRe.ReplaceAllString(s, " ")
	s = separatorRe.ReplaceAllString(s, " ")
	s = spacesRe.ReplaceAllString(strings.TrimSpace(s), " ")
	for _, suffix := range legalSuffixes {
		s = strings.TrimSuffix(s, " "+suffix)
	}
	return strings.TrimSpace(s)
}

// minSubstringLen guards the fuzzy rules against trivially short inputs
// matching half the registry.
const minSubstringLen = 4

// resolutionRule is one (predicate, result) pair of the ordered rule table.
// Precedence is data: rules fire in slice order, first hit wins.
type resolutionRule struct {
	name  string
	match func(cfg *Config, normalized string) (string, bool)
}

var resolutionRules = []resolutionRule{
	{
		name: "whitelist-exact",
		match: func(cfg *Config, n string) (string, bool) {
			for _, iss := range cfg.Issuers {
				if n == iss.ID {
					return iss.ID, true
				}
			}
			return "", false
		},
	},
	{
		name: "alias-exact",
		match: func(cfg *Config, n string) (string, bool) {
			for _, iss := range cfg.Issuers {
				for _, alias := range iss.Aliases {
					if n == Normalize(alias) {
						return iss.ID, true
					}
				}
			}
			return "", false
		},
	},
	{
		name: "alias-substring",
		match: func(cfg *Config, n string) (string, bool) {
			if len(n) < minSubstringLen {
				return "", false
			}
			for _, iss := range cfg.Issuers {
				for _, alias := range iss.Aliases {
					na := Normalize(alias)
					if len(na) < minSubstringLen {
						continue
					}
					if strings.Contains(n, na) || strings.Contains(na, n) {
						return iss.ID, true
					}
				}
			}
			return "", false
		},
	},
	{
		name: "technical-id",
		match: func(cfg *Config, n string) (string, bool) {
			if len(n) < minSubstringLen {
				return "", false
			}
			for _, iss := range cfg.Issuers {
				for _, tid := range iss.TechnicalIDs {
					nt := Normalize(tid)
					if len(nt) < minSubstringLen {
						continue
					}
					if n == nt || strings.Contains(n, nt) || strings.Contains(nt, n) {
						return iss.ID, true
					}
				}
			}
			return "", false
		},
	},
}

// Resolver maps raw issuer names to canonical registry ids.
type Resolver struct {
	loader *Loader
}

// NewResolver builds a resolver over a config loader. Pass NewStaticLoader()
// when no remote config source is wired (tests, offline tools).
func NewResolver(loader *Loader) *Resolver {
	return &Resolver{loader: loader}
}

// Resolve returns the canonical issuer id for a raw name, or ok=false when no
// rule fires. Callers must treat a miss as "unknown issuer" and skip the unit
// of work; there is no default issuer.
func (r *Resolver) Resolve(raw string) (string, bool) {
	n := Normalize(raw)
	if n == "" {
		return "", false
	}
	cfg := r.loader.Current()
	for _, rule := range resolutionRules {
		if id, ok := rule.match(cfg, n); ok {
			return id, true
		}
	}
	return "", false
}

// TechnicalIDs returns every storage id ever used for a canonical issuer,
// including the canonical id itself. Retrieval queries fan out over these.
func (r *Resolver) TechnicalIDs(canonicalID string) []string {
	iss := r.loader.Current().Find(canonicalID)
	if iss == nil {
		return nil
	}
	seen := map[string]bool{canonicalID: true}
	ids := []string{canonicalID}
	for _, tid := range iss.TechnicalIDs {
		if !seen[tid] {
			seen[tid] = true
			ids = append(ids, tid)
		}
	}
	return ids
}

// Issuer returns the registry entry for a canonical id, or nil.
func (r *Resolver) Issuer(canonicalID string) *Issuer {
	return r.loader.Current().Find(canonicalID)
}

// Issuers lists the whole registry.
func (r *Resolver) Issuers() []Issuer {
	return r.loader.Current().Issuers
}

// Config exposes the currently resolved runtime config (exchange rate,
// thresholds) to the metrics layer.
func (r *Resolver) Config() *Config {
	return r.loader.Current()
}
