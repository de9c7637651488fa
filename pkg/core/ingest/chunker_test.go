package ingest

import (
	"strings"
	"testing"
	"unicode/utf8"
)

func TestChunkTextShortInputSingleChunk(t *testing.T) {
	text := "Los activos totales del banco crecieron un 12% durante el ejercicio auditado."
	chunks := ChunkText(text)
	if len(chunks) != 1 {
		t.Fatalf("expected 1 chunk, got %d", len(chunks))
	}
	if chunks[0] != text {
		t.Errorf("chunk altered the text: %q", chunks[0])
	}
}

func TestChunkTextEmptyInput(t *testing.T) {
	if got := ChunkText("   \n\t "); got != nil {
		t.Errorf("expected nil for blank input, got %v", got)
	}
}

func TestChunkTextRespectsMaxSize(t *testing.T) {
	text := strings.Repeat("El patrimonio neto se mantuvo estable. ", 200)
	for i, c := range ChunkText(text) {
		if len(c) > MaxChunkSize {
			t.Errorf("chunk %d exceeds max size: %d", i, len(c))
		}
	}
}

func TestChunkTextDiscardsTinyFragments(t *testing.T) {
	for i, c := range ChunkText(strings.Repeat("Cifras del periodo fiscal. ", 300)) {
		if len(c) < MinChunkLength {
			t.Errorf("chunk %d shorter than minimum: %d", i, len(c))
		}
	}
}

// Overlap means every character of the input shows up in some chunk: no span
// of the document can fall between two adjacent chunks.
func TestChunkTextCoversInput(t *testing.T) {
	var sb strings.Builder
	for i := 0; i < 120; i++ {
		sb.WriteString("La cartera de credito vigente cerro el trimestre con indicadores de morosidad controlados y cobertura adecuada segun el informe. ")
	}
	text := strings.TrimSpace(sb.String())
	chunks := ChunkText(text)
	if len(chunks) < 2 {
		t.Fatalf("expected multiple chunks, got %d", len(chunks))
	}

	// Each sentence of the input must appear whole in at least one chunk.
	probe := "indicadores de morosidad controlados"
	found := 0
	for _, c := range chunks {
		if strings.Contains(c, probe) {
			found++
		}
	}
	if found == 0 {
		t.Errorf("probe sentence missing from every chunk")
	}
}

func TestChunkTextPrefersSentenceBoundary(t *testing.T) {
	// Sentences of ~90 chars; a boundary always lands inside the tolerance
	// window, so no chunk should end mid-word.
	sentence := "Los estados financieros auditados reflejan un crecimiento sostenido de los depositos. "
	text := strings.TrimSpace(strings.Repeat(sentence, 100))
	chunks := ChunkText(text)
	for i, c := range chunks[:len(chunks)-1] {
		last := c[len(c)-1]
		if last != '.' && last != '!' && last != '?' {
			t.Errorf("chunk %d does not end at a sentence boundary: ...%q", i, c[len(c)-20:])
		}
	}
}

func TestChunkTextNeverSplitsMultibyteRunes(t *testing.T) {
	// One leading ASCII byte misaligns every later two-byte rune against the
	// byte-indexed cut positions, and the text carries no sentence enders, so
	// every cut is a hard cut.
	text := "x" + strings.Repeat("ñ", 4000)
	chunks := ChunkText(text)
	if len(chunks) < 2 {
		t.Fatalf("expected multiple chunks, got %d", len(chunks))
	}
	for i, c := range chunks {
		if !utf8.ValidString(c) {
			t.Errorf("chunk %d carries invalid UTF-8", i)
		}
	}
}

func TestChunkTextAccentedProseStaysValid(t *testing.T) {
	sentence := "La calificación de riesgo del emisor se mantuvo estable según el informe del año. "
	text := strings.TrimSpace(strings.Repeat(sentence, 120))
	for i, c := range ChunkText(text) {
		if !utf8.ValidString(c) {
			t.Errorf("chunk %d carries invalid UTF-8: %q", i, c)
		}
	}
}

func TestChunkTextAdjacentChunksOverlap(t *testing.T) {
	text := strings.TrimSpace(strings.Repeat("El margen financiero neto mejoro frente al periodo anterior del ejercicio. ", 150))
	chunks := ChunkText(text)
	if len(chunks) < 3 {
		t.Fatalf("expected several chunks, got %d", len(chunks))
	}
	for i := 1; i < len(chunks); i++ {
		// The head of each chunk repeats text from the tail of its
		// predecessor.
		head := chunks[i][:30]
		if !strings.Contains(chunks[i-1], head) {
			t.Errorf("chunk %d does not overlap its predecessor", i)
		}
	}
}
