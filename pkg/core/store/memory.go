package store

import (
	"context"
	"sync"

	"emisor_intel/pkg/models"
)

// MemoryChunks is the in-process chunk store used when no database is
// configured (local tooling, tests). Same contract as ChunkRepo.
type MemoryChunks struct {
	mu     sync.RWMutex
	chunks map[string]models.Chunk
	order  []string // insertion order, newest last
}

func NewMemoryChunks() *MemoryChunks {
	return &MemoryChunks{chunks: make(map[string]models.Chunk)}
}

func (m *MemoryChunks) SaveChunks(ctx context.Context, chunks []models.Chunk) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, c := range chunks {
		if _, exists := m.chunks[c.ID]; !exists {
			m.order = append(m.order, c.ID)
		}
		m.chunks[c.ID] = c
	}
	return nil
}

func (m *MemoryChunks) CandidatesByIssuer(ctx context.Context, technicalIDs []string, limit int) ([]models.Chunk, error) {
	ids := make(map[string]bool, len(technicalIDs))
	for _, id := range technicalIDs {
		ids[id] = true
	}
	return m.collect(limit, func(c models.Chunk) bool { return ids[c.IssuerID] }, false), nil
}

func (m *MemoryChunks) Candidates(ctx context.Context, limit int) ([]models.Chunk, error) {
	return m.collect(limit, func(models.Chunk) bool { return true }, false), nil
}

func (m *MemoryChunks) CountChunks(ctx context.Context) (int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.chunks), nil
}

func (m *MemoryChunks) RecentChunks(ctx context.Context, issuerIDs []string, limit int) ([]models.Chunk, error) {
	ids := make(map[string]bool, len(issuerIDs))
	for _, id := range issuerIDs {
		ids[id] = true
	}
	return m.collect(limit, func(c models.Chunk) bool { return ids[c.IssuerID] }, true), nil
}

// collect walks newest-first. superFirst front-loads super chunks, matching
// the SQL ordering of ChunkRepo.RecentChunks.
func (m *MemoryChunks) collect(limit int, keep func(models.Chunk) bool, superFirst bool) []models.Chunk {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var out []models.Chunk
	appendPass := func(wantSuper bool) {
		for i := len(m.order) - 1; i >= 0; i-- {
			if limit > 0 && len(out) >= limit {
				return
			}
			c := m.chunks[m.order[i]]
			if superFirst && c.IsSuperChunk() != wantSuper {
				continue
			}
			if keep(c) {
				out = append(out, c)
			}
		}
	}
	if superFirst {
		appendPass(true)
		appendPass(false)
	} else {
		appendPass(false)
	}
	return out
}
