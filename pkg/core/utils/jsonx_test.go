package utils

import "testing"

type sample struct {
	Nombre string  `json:"nombre"`
	Valor  float64 `json:"valor"`
}

func TestSmartParseStrictJSON(t *testing.T) {
	var s sample
	if err := SmartParse(`{"nombre":"banpro","valor":1.5}`, &s); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if s.Nombre != "banpro" || s.Valor != 1.5 {
		t.Errorf("unexpected parse result: %+v", s)
	}
}

func TestSmartParseRepairsFencedOutput(t *testing.T) {
	raw := "```json\n{'nombre': 'lafise', 'valor': 2,}\n```"
	var s sample
	if err := SmartParse(raw, &s); err != nil {
		t.Fatalf("repair path failed: %v", err)
	}
	if s.Nombre != "lafise" {
		t.Errorf("expected lafise, got %q", s.Nombre)
	}
}

func TestSmartParseHjsonFallback(t *testing.T) {
	raw := "{\n  nombre: bdf\n  valor: 3\n}"
	var s sample
	if err := SmartParse(raw, &s); err != nil {
		t.Fatalf("hjson path failed: %v", err)
	}
	if s.Nombre != "bdf" || s.Valor != 3 {
		t.Errorf("unexpected parse result: %+v", s)
	}
}

func TestSmartParseGivesUpOnGarbage(t *testing.T) {
	var s sample
	if err := SmartParse("sin datos disponibles", &s); err == nil {
		t.Error("expected failure for non-JSON prose")
	}
}

func TestCleanMarkdownStripsFences(t *testing.T) {
	in := "```markdown\n# Resumen\n\n- Activos: 100\n```"
	got := CleanMarkdown(in)
	if got != "# Resumen\n\n- Activos: 100" {
		t.Errorf("unexpected cleanup result: %q", got)
	}
	if !ValidateMarkdown(got) {
		t.Error("cleaned digest should validate")
	}
}
