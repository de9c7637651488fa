package retrieval

import (
	"context"
	"fmt"
	"math"
	"testing"
	"time"

	"emisor_intel/pkg/core/registry"
	"emisor_intel/pkg/models"
)

func TestCosineSimilarityProperties(t *testing.T) {
	v := []float64{0.3, -1.2, 4.5}
	sim, err := CosineSimilarity(v, v)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if math.Abs(sim-1.0) > 1e-9 {
		t.Errorf("similarity(v, v) = %v, want 1.0", sim)
	}

	sim, _ = CosineSimilarity([]float64{1, 0, 0}, []float64{0, 1, 0})
	if math.Abs(sim) > 1e-9 {
		t.Errorf("orthogonal vectors should score 0, got %v", sim)
	}

	sim, _ = CosineSimilarity([]float64{1, 0, 0}, []float64{-1, 0, 0})
	if math.Abs(sim+1.0) > 1e-9 {
		t.Errorf("opposite vectors should score -1, got %v", sim)
	}

	if _, err := CosineSimilarity([]float64{1, 2}, []float64{1, 2, 3}); err == nil {
		t.Error("mismatched lengths must be a hard error")
	}
}

func TestYearOf(t *testing.T) {
	cases := map[string]string{
		"2024-05-31":          "2024",
		"31/12/2023":          "2023",
		"Diciembre de 2022":   "2022",
		"sin fecha publicada": UnknownYear,
		"":                    UnknownYear,
	}
	for in, want := range cases {
		if got := YearOf(in); got != want {
			t.Errorf("YearOf(%q) = %q, want %q", in, got, want)
		}
	}
}

// makeChunk builds a chunk whose similarity against the (1,0,0) query equals
// the given score.
func makeChunk(id, date string, score float64) Scored {
	angle := math.Acos(score)
	return Scored{
		Chunk: models.Chunk{
			ID:        id,
			Text:      "texto " + id,
			Embedding: []float64{math.Cos(angle), math.Sin(angle), 0},
			Metadata:  models.ChunkMetadata{DocumentDate: date},
		},
		Similarity: score,
	}
}

func TestSelectDiverseGuaranteesPerYearFloor(t *testing.T) {
	targetYears := []string{"2026", "2025", "2024", "2023", "2022"}

	var candidates []Scored
	// Eight chunks per target year with middling scores.
	for yi, year := range targetYears {
		for i := 0; i < 8; i++ {
			id := fmt.Sprintf("%s-%d", year, i)
			score := 0.5 - float64(yi)*0.05 - float64(i)*0.001
			candidates = append(candidates, makeChunk(id, year+"-06-30", score))
		}
	}
	// Twenty high-scoring chunks from outside the window.
	for i := 0; i < 20; i++ {
		id := fmt.Sprintf("old-%d", i)
		candidates = append(candidates, makeChunk(id, "2015-01-01", 0.9-float64(i)*0.001))
	}

	topK := 40
	selected := SelectDiverse(candidates, topK, targetYears)

	if len(selected) != topK {
		t.Fatalf("expected %d results, got %d", topK, len(selected))
	}

	perYear := make(map[string]int)
	seen := make(map[string]bool)
	for _, s := range selected {
		if seen[s.Chunk.ID] {
			t.Errorf("duplicate chunk id in result: %s", s.Chunk.ID)
		}
		seen[s.Chunk.ID] = true
		perYear[YearOf(s.Chunk.Metadata.DocumentDate)]++
	}

	for _, year := range targetYears {
		if perYear[year] != PerYearFloor {
			t.Errorf("year %s: got %d selected, want exactly %d", year, perYear[year], PerYearFloor)
		}
	}
	if perYear["2015"] != topK-len(targetYears)*PerYearFloor {
		t.Errorf("filler slots: got %d, want %d", perYear["2015"], topK-len(targetYears)*PerYearFloor)
	}

	for i := 1; i < len(selected); i++ {
		if selected[i].Similarity > selected[i-1].Similarity {
			t.Fatal("final list must be sorted by similarity descending")
		}
	}
}

type fakeSource struct {
	chunks []models.Chunk
}

func (f *fakeSource) CandidatesByIssuer(ctx context.Context, ids []string, limit int) ([]models.Chunk, error) {
	allowed := make(map[string]bool)
	for _, id := range ids {
		allowed[id] = true
	}
	var out []models.Chunk
	for _, c := range f.chunks {
		if allowed[c.IssuerID] && len(out) < limit {
			out = append(out, c)
		}
	}
	return out, nil
}

func (f *fakeSource) Candidates(ctx context.Context, limit int) ([]models.Chunk, error) {
	if limit > len(f.chunks) {
		limit = len(f.chunks)
	}
	return f.chunks[:limit], nil
}

func (f *fakeSource) CountChunks(ctx context.Context) (int, error) {
	return len(f.chunks), nil
}

func newTestEngine(chunks []models.Chunk) *Engine {
	resolver := registry.NewResolver(registry.NewStaticLoader())
	eng := NewEngine(&fakeSource{chunks: chunks}, resolver)
	return eng.WithClock(func() time.Time {
		return time.Date(2026, 8, 31, 0, 0, 0, 0, time.UTC)
	})
}

func TestSearchEmptyIndex(t *testing.T) {
	eng := newTestEngine(nil)
	_, err := eng.Search(context.Background(), []float64{1, 0, 0}, "", 10)
	if err != ErrIndexEmpty {
		t.Errorf("expected ErrIndexEmpty, got %v", err)
	}
}

func TestSearchFiltersByIssuerTechnicalIDs(t *testing.T) {
	chunks := []models.Chunk{
		makeChunk("a", "2026-01-01", 0.9).Chunk,
		makeChunk("b", "2026-01-01", 0.8).Chunk,
		makeChunk("c", "2026-01-01", 0.95).Chunk,
	}
	chunks[0].IssuerID = "banpro"
	chunks[1].IssuerID = "banco-de-la-producci-n" // historic slug, same issuer
	chunks[2].IssuerID = "lafise"

	eng := newTestEngine(chunks)
	results, err := eng.Search(context.Background(), []float64{1, 0, 0}, "banpro", 10)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(results) != 2 {
		t.Fatalf("expected 2 banpro chunks (canonical + historic slug), got %d", len(results))
	}
	for _, r := range results {
		if r.ID == "c" {
			t.Error("lafise chunk leaked into banpro search")
		}
	}
}

func TestSearchUnknownIssuer(t *testing.T) {
	eng := newTestEngine([]models.Chunk{makeChunk("a", "2026-01-01", 0.5).Chunk})
	_, err := eng.Search(context.Background(), []float64{1, 0, 0}, "no-such-issuer", 10)
	if err != ErrUnknownIssuer {
		t.Errorf("expected ErrUnknownIssuer, got %v", err)
	}
}

func TestSearchDimensionMismatchIsHardError(t *testing.T) {
	eng := newTestEngine([]models.Chunk{makeChunk("a", "2026-01-01", 0.5).Chunk})
	_, err := eng.Search(context.Background(), []float64{1, 0}, "", 10)
	if err == nil {
		t.Error("expected hard error on dimension mismatch")
	}
}
