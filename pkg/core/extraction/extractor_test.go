package extraction

import (
	"context"
	"errors"
	"strings"
	"testing"
	"unicode/utf8"

	"emisor_intel/pkg/models"
)

type scriptedProvider struct {
	response string
	err      error
	prompt   string
}

func (s *scriptedProvider) GenerateResponse(ctx context.Context, prompt, systemPrompt string, options map[string]interface{}) (string, error) {
	s.prompt = prompt
	if s.err != nil {
		return "", s.err
	}
	return s.response, nil
}

func TestExtractParsesWellFormedResponse(t *testing.T) {
	provider := &scriptedProvider{response: `{
		"indicadores": {
			"capital": {"activosTotales": 98000000, "patrimonio": 12000000},
			"metadata": {"moneda": "USD", "periodo": "2024"}
		},
		"resumenMarkdown": "## Resumen\n\nEl emisor cerró con activos de 98 millones."
	}`}
	ex := NewExtractor(provider)

	ind, digest, err := ex.Extract(context.Background(), "texto del documento", "BDF", "Estados Financieros Auditados 2024")
	if err != nil {
		t.Fatalf("Extract failed: %v", err)
	}
	if ind.Capital == nil || ind.Capital.ActivosTotales == nil || *ind.Capital.ActivosTotales != 98000000 {
		t.Errorf("capital group not parsed: %+v", ind.Capital)
	}
	if ind.Metadata == nil || ind.Metadata.Moneda != "USD" {
		t.Errorf("metadata not parsed: %+v", ind.Metadata)
	}
	if !strings.Contains(digest, "98 millones") {
		t.Errorf("digest lost content: %q", digest)
	}
}

// The generation service wraps JSON in markdown fences often enough that the
// repair chain has to cope with it.
func TestExtractRepairsFencedResponse(t *testing.T) {
	provider := &scriptedProvider{response: "```json\n{\"indicadores\": {\"capital\": {\"activosTotales\": 500}}, \"resumenMarkdown\": \"ok\"}\n```"}
	ex := NewExtractor(provider)

	ind, _, err := ex.Extract(context.Background(), "texto", "FAMA", "Estados Financieros 2023")
	if err != nil {
		t.Fatalf("Extract failed: %v", err)
	}
	if ind.Capital == nil || ind.Capital.ActivosTotales == nil || *ind.Capital.ActivosTotales != 500 {
		t.Errorf("fenced response not repaired: %+v", ind)
	}
}

func TestExtractMalformedOutputDegradesToFallback(t *testing.T) {
	provider := &scriptedProvider{response: "Lo siento, no puedo procesar este documento."}
	ex := NewExtractor(provider)

	ind, digest, err := ex.Extract(context.Background(), "texto", "FDL", "Estados Financieros 2022")
	if err != nil {
		t.Fatalf("malformed output must not surface as an error, got %v", err)
	}
	if ind == nil || ind.Metadata == nil {
		t.Fatalf("fallback object missing: %+v", ind)
	}
	if ind.Capital != nil {
		t.Errorf("fallback object should carry no figures")
	}
	if digest != "" {
		t.Errorf("fallback digest should be empty, got %q", digest)
	}
}

func TestExtractTransportErrorSurfaces(t *testing.T) {
	provider := &scriptedProvider{err: errors.New("timeout")}
	ex := NewExtractor(provider)
	if _, _, err := ex.Extract(context.Background(), "texto", "BDF", "EF 2024"); err == nil {
		t.Fatalf("transport failure must surface as an error")
	}
}

func TestExtractTruncatesOversizedContext(t *testing.T) {
	provider := &scriptedProvider{response: `{"indicadores": {}, "resumenMarkdown": ""}`}
	ex := NewExtractor(provider)

	huge := strings.Repeat("x", maxContextChars+5000)
	if _, _, err := ex.Extract(context.Background(), huge, "BDF", "EF"); err != nil {
		t.Fatalf("Extract failed: %v", err)
	}
	if len(provider.prompt) > maxContextChars+2000 {
		t.Errorf("prompt not truncated: %d chars", len(provider.prompt))
	}
	if !strings.Contains(provider.prompt, "[truncado]") {
		t.Errorf("truncation marker missing from prompt")
	}
}

func TestExtractTruncationKeepsRunesWhole(t *testing.T) {
	provider := &scriptedProvider{response: `{"indicadores": {}, "resumenMarkdown": ""}`}
	ex := NewExtractor(provider)

	// A leading ASCII byte misaligns the two-byte runes, so the byte cut
	// lands inside one without the boundary backoff.
	huge := "x" + strings.Repeat("ñ", maxContextChars)
	if _, _, err := ex.Extract(context.Background(), huge, "BDF", "EF"); err != nil {
		t.Fatalf("Extract failed: %v", err)
	}
	if !utf8.ValidString(provider.prompt) {
		t.Errorf("truncated prompt carries invalid UTF-8")
	}
}

func TestBuildSuperChunk(t *testing.T) {
	activos := 1500000000.0
	patrimonio := 210000000.0
	ind := &models.Indicadores{
		Capital: &models.CapitalGroup{ActivosTotales: &activos, Patrimonio: &patrimonio},
		Calificacion: &models.CalificacionGroup{
			Agencia: "SCRiesgo", Calificacion: "AA-", Perspectiva: "Estable",
		},
	}
	body := BuildSuperChunk("Banpro", "Estados Financieros Auditados 2024", "## Resumen\n\nBuen año.", ind)

	for _, want := range []string{
		"Resumen estructurado: Estados Financieros Auditados 2024",
		"Banpro",
		"Buen año.",
		"Activos totales: 1500000000.00",
		"Patrimonio: 210000000.00",
		"Calificación: AA- (SCRiesgo)",
	} {
		if !strings.Contains(body, want) {
			t.Errorf("super chunk missing %q:\n%s", want, body)
		}
	}
	if strings.Contains(body, "Pasivos totales") {
		t.Errorf("nil figure rendered")
	}
}

func TestBuildSuperChunkWithoutIndicators(t *testing.T) {
	body := BuildSuperChunk("FDL", "Informe", "", nil)
	if body == "" {
		t.Errorf("super chunk body empty even with a title")
	}
	if strings.Contains(body, "Cifras clave") {
		t.Errorf("figures section rendered without data")
	}
}
