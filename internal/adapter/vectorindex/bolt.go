package vectorindex

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"sync"

	"go.etcd.io/bbolt"
	"kbchat/internal/port"
)

var bucketVectors = []byte("vectors")

// BoltIndex implements VectorIndex using BoltDB for persistence.
// Uses brute-force cosine search; fine for a single-node knowledge base.
type BoltIndex struct {
	db        *bbolt.DB
	dimension int
	mu        sync.RWMutex
	// In-memory cache for fast search
	entries map[string]cachedEntry
}

type cachedEntry struct {
	vector   []float32
	metadata port.EntryMetadata
}

type storedEntry struct {
	Vector   []float32          `json:"v"`
	Metadata port.EntryMetadata `json:"m"`
}

// NewBoltIndex opens a BoltDB-backed vector index at path.
func NewBoltIndex(path string, dimension int) (*BoltIndex, error) {
	db, err := bbolt.Open(path, 0600, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to open vector db: %w", err)
	}

	err = db.Update(func(tx *bbolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(bucketVectors)
		return err
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create vectors bucket: %w", err)
	}

	idx := &BoltIndex{
		db:        db,
		dimension: dimension,
		entries:   make(map[string]cachedEntry),
	}

	if err := idx.loadEntries(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to load vectors: %w", err)
	}

	return idx, nil
}

// loadEntries loads all vectors from BoltDB into memory.
func (s *BoltIndex) loadEntries() error {
	return s.db.View(func(tx *bbolt.Tx) error {
		b := tx.Bucket(bucketVectors)
		if b == nil {
			return nil
		}

		return b.ForEach(func(k, v []byte) error {
			var stored storedEntry
			if err := json.Unmarshal(v, &stored); err != nil {
				return nil // Skip corrupted entries
			}
			s.entries[string(k)] = cachedEntry{
				vector:   stored.Vector,
				metadata: stored.Metadata,
			}
			return nil
		})
	})
}

// Upsert adds or replaces entries by id. The batch is written in one
// transaction: either all entries apply or none do.
func (s *BoltIndex) Upsert(ctx context.Context, items []port.IndexEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	err := s.db.Update(func(tx *bbolt.Tx) error {
		b := tx.Bucket(bucketVectors)
		if b == nil {
			return fmt.Errorf("vectors bucket not found")
		}

		for _, item := range items {
			if len(item.Vector) != s.dimension {
				return fmt.Errorf("vector dimension mismatch for %s: expected %d, got %d", item.ID, s.dimension, len(item.Vector))
			}

			data, err := json.Marshal(storedEntry{
				Vector:   item.Vector,
				Metadata: item.Metadata,
			})
			if err != nil {
				return err
			}

			if err := b.Put([]byte(item.ID), data); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return err
	}

	for _, item := range items {
		s.entries[item.ID] = cachedEntry{
			vector:   item.Vector,
			metadata: item.Metadata,
		}
	}
	return nil
}

// DeleteByFilter removes all entries whose metadata matches the filter
// and returns how many were removed. No matches is a no-op.
func (s *BoltIndex) DeleteByFilter(ctx context.Context, f port.Filter) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var ids []string
	for id, e := range s.entries {
		if f.Matches(e.metadata) {
			ids = append(ids, id)
		}
	}
	if len(ids) == 0 {
		return 0, nil
	}

	err := s.db.Update(func(tx *bbolt.Tx) error {
		b := tx.Bucket(bucketVectors)
		if b == nil {
			return nil
		}
		for _, id := range ids {
			if err := b.Delete([]byte(id)); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return 0, err
	}

	for _, id := range ids {
		delete(s.entries, id)
	}
	return len(ids), nil
}

// Query finds the topK nearest entries by cosine similarity, restricted
// to the filter when one is given.
func (s *BoltIndex) Query(ctx context.Context, vector []float32, topK int, f *port.Filter) ([]port.Match, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if len(vector) != s.dimension {
		return nil, fmt.Errorf("query dimension mismatch: expected %d, got %d", s.dimension, len(vector))
	}

	matches := make([]port.Match, 0, len(s.entries))
	for id, e := range s.entries {
		if f != nil && !f.Matches(e.metadata) {
			continue
		}
		matches = append(matches, port.Match{
			ID:       id,
			Score:    cosineSimilarity(vector, e.vector),
			Metadata: e.metadata,
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
func (s *BoltIndex) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries)
}

func (s *BoltIndex) Close() error {
	return s.db.Close()
}
