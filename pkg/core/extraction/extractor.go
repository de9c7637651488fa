// Package extraction is the structured sidecar for financial statements:
// one generation call produces a compact metrics object plus a cleaned
// markdown digest that becomes the document's super chunk.
package extraction

import (
	"context"
	"fmt"
	"strings"
	"unicode/utf8"

	"emisor_intel/pkg/core/llm"
	"emisor_intel/pkg/core/utils"
	"emisor_intel/pkg/models"
)

// maxContextChars bounds the document text sent to the generation service.
const maxContextChars = 40000

// maxDigestChars bounds the stored super chunk body.
const maxDigestChars = 6000

const systemPrompt = `Eres un analista financiero senior especializado en estados financieros auditados de emisores nicaragüenses.
Extraes indicadores financieros de forma conservadora: solo reportas cifras que aparecen explícitamente en el texto.
Respondes únicamente con JSON válido conforme al esquema solicitado. Usa null para todo dato ausente.`

// sidecarResponse is the fixed output schema for the combined call.
type sidecarResponse struct {
	Indicadores     *models.Indicadores `json:"indicadores"`
	ResumenMarkdown string              `json:"resumenMarkdown"`
}

// Extractor runs the structured sidecar against a generation provider.
type Extractor struct {
	provider llm.Provider
}

func NewExtractor(provider llm.Provider) *Extractor {
	return &Extractor{provider: provider}
}

// Extract asks the model for the metrics object and the markdown digest.
// Malformed output degrades to the minimal fallback object plus an empty
// digest; only transport-level failures surface as errors.
func (e *Extractor) Extract(ctx context.Context, docText, issuerName, docTitle string) (*models.Indicadores, string, error) {
	if e.provider == nil {
		return nil, "", fmt.Errorf("no generation provider configured")
	}

	text := docText
	if len(text) > maxContextChars {
		text = truncate(text, maxContextChars) + "\n... [truncado]"
	}

	prompt := fmt.Sprintf(`Documento: %q del emisor %q.

Texto del documento:
%s

Devuelve un objeto JSON con exactamente esta forma:
{
  "indicadores": {
    "capital": {"activosTotales": number|null, "pasivosTotales": number|null, "patrimonio": number|null, "adecuacionCapital": number|null},
    "liquidez": {"disponibilidades": number|null, "ratioLiquidez": number|null, "coberturaLiquidez": number|null},
    "solvencia": {"carteraVencida": number|null, "indiceMorosidad": number|null, "coberturaCartera": number|null, "endeudamientoNeto": number|null},
    "rentabilidad": {"utilidadNeta": number|null, "roa": number|null, "roe": number|null, "margenFinanciero": number|null},
    "eficiencia": {"gastosOperativos": number|null, "ratioEficiencia": number|null, "ingresosFinancieros": number|null},
    "calificacion": {"agencia": string, "calificacion": string, "perspectiva": string, "fecha": string},
    "metadata": {"moneda": "NIO"|"USD"|"", "periodo": "YYYY"}
  },
  "resumenMarkdown": "resumen en markdown de máximo 40 líneas con las cifras y hechos clave"
}
Montos en unidades absolutas (no miles ni millones abreviados). Si la moneda no se declara en el documento deja "moneda" vacía.`,
		docTitle, issuerName, text)

	options := map[string]interface{}{
		"response_format": map[string]interface{}{"type": "json_object"},
	}
	raw, err := e.provider.GenerateResponse(ctx, prompt, systemPrompt, options)
	if err != nil {
		return nil, "", fmt.Errorf("structured extraction call failed: %w", err)
	}

	var resp sidecarResponse
	if err := utils.SmartParse(raw, &resp); err != nil || resp.Indicadores == nil {
		fmt.Printf("[WARNING] structured extraction returned unusable JSON for %q, substituting fallback: %v\n", docTitle, err)
		return models.EmptyIndicadores(), "", nil
	}

	digest := utils.CleanMarkdown(resp.ResumenMarkdown)
	if !utils.ValidateMarkdown(digest) {
		digest = ""
	}
	if len(digest) > maxDigestChars {
		digest = truncate(digest, maxDigestChars)
	}
	return resp.Indicadores, digest, nil
}

// truncate cuts s at limit bytes, backing up so a multibyte rune is never
// split.
func truncate(s string, limit int) string {
	if len(s) <= limit {
		return s
	}
	for limit > 0 && !utf8.RuneStart(s[limit]) {
		limit--
	}
	return s[:limit]
}

// BuildSuperChunk compresses the digest and headline figures into the single
// reserved-index chunk body.
func BuildSuperChunk(issuerName, docTitle, digest string, ind *models.Indicadores) string {
	var sb strings.Builder
	sb.WriteString("## Resumen estructurado: ")
	sb.WriteString(docTitle)
	sb.WriteString(" (")
	sb.WriteString(issuerName)
	sb.WriteString(")\n\n")

	if digest != "" {
		sb.WriteString(digest)
		sb.WriteString("\n\n")
	}

	if ind != nil && ind.Capital != nil {
		sb.WriteString("### Cifras clave\n")
		writeAmount(&sb, "Activos totales", ind.Capital.ActivosTotales)
		writeAmount(&sb, "Pasivos totales", ind.Capital.PasivosTotales)
		writeAmount(&sb, "Patrimonio", ind.Capital.Patrimonio)
	}
	if ind != nil && ind.Calificacion != nil && ind.Calificacion.Calificacion != "" {
		fmt.Fprintf(&sb, "- Calificación: %s (%s)\n", ind.Calificacion.Calificacion, ind.Calificacion.Agencia)
	}
	return strings.TrimSpace(sb.String())
}

func writeAmount(sb *strings.Builder, label string, v *float64) {
	if v == nil {
		return
	}
	fmt.Fprintf(sb, "- %s: %.2f\n", label, *v)
}
