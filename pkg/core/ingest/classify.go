package ingest

import (
	"sort"
	"strings"

	"emisor_intel/pkg/models"
)

// classificationRule is one (predicate, result) pair of the document
// classification table. Precedence is data: rules are evaluated in slice
// order and the first keyword hit decides the document's class.
type classificationRule struct {
	Class       string
	Priority    int
	IsFinancial bool
	Keywords    []string
}

// Classification rules, highest information value first. Audited statements
// lead because ingestion cost is capped per run and they carry the numbers
// analysts cite.
var classificationRules = []classificationRule{
	{
		Class: "estados-financieros-auditados", Priority: 100, IsFinancial: true,
		Keywords: []string{"estados financieros auditados", "auditado"},
	},
	{
		Class: "estados-financieros", Priority: 80, IsFinancial: true,
		Keywords: []string{"estados financieros", "estado financiero", "balance general"},
	},
	{
		Class: "informe-anual", Priority: 60, IsFinancial: false,
		Keywords: []string{"informe anual", "memoria anual"},
	},
	{
		Class: "calificacion-riesgo", Priority: 40, IsFinancial: false,
		Keywords: []string{"calificacion de riesgo", "calificación de riesgo", "riesgo"},
	},
	{
		Class: "hecho-relevante", Priority: 20, IsFinancial: false,
		Keywords: []string{"hecho relevante", "hechos relevantes"},
	},
	{
		Class: "financiero-generico", Priority: 10, IsFinancial: false,
		Keywords: []string{"financiero", "financiera"},
	},
}

// Classify matches title and type label against the rule table.
// Unmatched documents get class "otro" with priority 0.
func Classify(doc models.RawDocument) (class string, priority int, isFinancial bool) {
	haystack := strings.ToLower(doc.Title + " " + doc.Type)
	for _, rule := range classificationRules {
		for _, kw := range rule.Keywords {
			if strings.Contains(haystack, kw) {
				return rule.Class, rule.Priority, rule.IsFinancial
			}
		}
	}
	return "otro", 0, false
}

// IsFinancialStatement reports whether the document should get the
// structured-extraction sidecar.
func IsFinancialStatement(doc models.RawDocument) bool {
	_, _, fin := Classify(doc)
	return fin
}

// RankByPriority orders documents for ingestion: keyword priority descending,
// tie-broken by parsed publication date descending. The input slice is not
// modified.
func RankByPriority(docs []models.RawDocument) []models.RawDocument {
	ranked := make([]models.RawDocument, len(docs))
	copy(ranked, docs)
	sort.SliceStable(ranked, func(i, j int) bool {
		_, pi, _ := Classify(ranked[i])
		_, pj, _ := Classify(ranked[j])
		if pi != pj {
			return pi > pj
		}
		di, okI := ParseDocumentDate(ranked[i].Date)
		dj, okJ := ParseDocumentDate(ranked[j].Date)
		if okI && okJ {
			return di.After(dj)
		}
		return okI && !okJ
	})
	return ranked
}
