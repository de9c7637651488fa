package retrieval

import (
	"regexp"
	"sort"

	"emisor_intel/pkg/models"
)

// PerYearFloor chunks per target year are selected unconditionally before the
// remaining slots are filled by pure similarity rank. Naive top-K
// over-represents whichever year has the most indexed chunks; the floor
// guarantees the historical coverage multi-year analysis needs.
const PerYearFloor = 5

// TargetYearWindow is how many recent years get a guaranteed floor.
const TargetYearWindow = 5

// UnknownYear buckets chunks whose date metadata has no parseable year.
const UnknownYear = "Unknown"

var yearRe = regexp.MustCompile(`(19|20)\d{2}`)

// YearOf extracts a 4-digit year from free-text date metadata.
func YearOf(date string) string {
	if m := yearRe.FindString(date); m != "" {
		return m
	}
	return UnknownYear
}

// Scored pairs a chunk with its similarity against the current query.
type Scored struct {
	Chunk      models.Chunk
	Similarity float64
}

// SelectDiverse applies year-diversity selection: for each target year the
// top PerYearFloor candidates by similarity are taken unconditionally, then
// the remaining slots up to topK are filled from the global similarity order.
// The result is deduplicated by chunk id and re-sorted by similarity
// descending.
func SelectDiverse(candidates []Scored, topK int, targetYears []string) []Scored {
	if topK <= 0 || len(candidates) == 0 {
		return nil
	}

	ordered := make([]Scored, len(candidates))
	copy(ordered, candidates)
	sort.SliceStable(ordered, func(i, j int) bool {
		return ordered[i].Similarity > ordered[j].Similarity
	})

	byYear := make(map[string][]Scored)
	for _, c := range ordered {
		year := YearOf(c.Chunk.Metadata.DocumentDate)
		byYear[year] = append(byYear[year], c)
	}

	selected := make([]Scored, 0, topK)
	taken := make(map[string]bool)

	for _, year := range targetYears {
		pool := byYear[year]
		for i := 0; i < len(pool) && i < PerYearFloor; i++ {
			if taken[pool[i].Chunk.ID] {
				continue
			}
			taken[pool[i].Chunk.ID] = true
			selected = append(selected, pool[i])
		}
	}

	for _, c := range ordered {
		if len(selected) >= topK {
			break
		}
		if taken[c.Chunk.ID] {
			continue
		}
		taken[c.Chunk.ID] = true
		selected = append(selected, c)
	}

	if len(selected) > topK {
		// The per-year floor can overshoot small topK values; keep the floor
		// picks and trim the overall list by similarity.
		sort.SliceStable(selected, func(i, j int) bool {
			return selected[i].Similarity > selected[j].Similarity
		})
		selected = selected[:topK]
	}

	sort.SliceStable(selected, func(i, j int) bool {
		return selected[i].Similarity > selected[j].Similarity
	})
	return selected
}
