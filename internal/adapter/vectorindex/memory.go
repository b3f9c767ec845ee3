package vectorindex

import (
	"context"
	"math"
	"sort"
	"sync"

	"kbchat/internal/port"
)

// MemoryIndex is an in-memory VectorIndex used in tests and for local
// development without a vector database.
type MemoryIndex struct {
	mu      sync.RWMutex
	entries map[string]port.IndexEntry
}

func NewMemoryIndex() *MemoryIndex {
	return &MemoryIndex{entries: make(map[string]port.IndexEntry)}
}

func (m *MemoryIndex) Upsert(ctx context.Context, entries []port.IndexEntry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, e := range entries {
		m.entries[e.ID] = e
	}
	return nil
}

func (m *MemoryIndex) DeleteByFilter(ctx context.Context, f port.Filter) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	removed := 0
	for id, e := range m.entries {
		if f.Matches(e.Metadata) {
			delete(m.entries, id)
			removed++
		}
	}
	return removed, nil
}

func (m *MemoryIndex) Query(ctx context.Context, vector []float32, topK int, f *port.Filter) ([]port.Match, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	matches := make([]port.Match, 0, len(m.entries))
	for id, e := range m.entries {
		if f != nil && !f.Matches(e.Metadata) {
			continue
		}
		matches = append(matches, port.Match{
			ID:       id,
			Score:    cosineSimilarity(vector, e.Vector),
			Metadata: e.Metadata,
		})
	}

	sort.Slice(matches, func(i, j int) bool {
		if matches[i].Score == matches[j].Score {
			return matches[i].ID < matches[j].ID
		}
		return matches[i].Score > matches[j].Score
	})

	if topK > 0 && len(matches) > topK {
		matches = matches[:topK]
	}
	return matches, nil
}

// Count returns the number of stored entries.
func (m *MemoryIndex) Count() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.entries)
}

// cosineSimilarity calculates the cosine similarity between two vectors.
func cosineSimilarity(a, b []float32) float64 {
	if len(a) != len(b) {
		return 0
	}

	var dotProduct, normA, normB float64
	for i := range a {
		dotProduct += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}

	if normA == 0 || normB == 0 {
		return 0
	}

	return dotProduct / (math.Sqrt(normA) * math.Sqrt(normB))
}
