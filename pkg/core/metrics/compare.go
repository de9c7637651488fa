package metrics

import (
	"context"

	"emisor_intel/pkg/models"
)

// Comparison is one issuer's column of a side-by-side metrics view.
// Indicadores is nil when the issuer has no snapshot yet.
type Comparison struct {
	IssuerID    string              `json:"issuerId"`
	IssuerName  string              `json:"issuerName"`
	Sector      string              `json:"sector"`
	Indicadores *models.Indicadores `json:"indicadores"`
	UpdatedAt   string              `json:"updatedAt,omitempty"`
}

// Compare assembles current snapshots for a set of issuers. Unknown ids are
// skipped rather than failing the whole comparison.
func (a *Aggregator) Compare(ctx context.Context, issuerIDs []string) ([]Comparison, error) {
	out := make([]Comparison, 0, len(issuerIDs))
	for _, id := range issuerIDs {
		iss := a.resolver.Issuer(id)
		if iss == nil {
			continue
		}
		col := Comparison{IssuerID: id, IssuerName: iss.Name, Sector: iss.Sector}
		snap, err := a.Snapshot(ctx, id)
		if err != nil && err != ErrUnknownIssuer {
			return nil, err
		}
		if snap != nil {
			col.Indicadores = snap.Indicadores
			col.UpdatedAt = snap.UpdatedAt.Format("2006-01-02T15:04:05Z07:00")
		}
		out = append(out, col)
	}
	return out, nil
}
