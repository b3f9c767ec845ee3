package port

import "context"

// EntryMetadata is persisted alongside every vector in the index.
type EntryMetadata struct {
	DocumentID   string `json:"documentId"`
	SectionTitle string `json:"sectionTitle"`
	Content      string `json:"content"`
	Language     string `json:"language"`
}

// Filter selects entries by exact metadata match. Zero-valued fields
// are ignored, so Filter{DocumentID: "d"} matches every entry of d.
type Filter struct {
	DocumentID   string
	SectionTitle string
	Language     string
}

// Matches reports whether the metadata satisfies every set field.
func (f Filter) Matches(m EntryMetadata) bool {
	if f.DocumentID != "" && f.DocumentID != m.DocumentID {
		return false
	}
	if f.SectionTitle != "" && f.SectionTitle != m.SectionTitle {
		return false
	}
	if f.Language != "" && f.Language != m.Language {
		return false
	}
	return true
}

// IsZero reports whether no filter fields are set.
func (f Filter) IsZero() bool {
	return f == Filter{}
}

// IndexEntry is the persisted unit in the vector index. ID is the section id.
type IndexEntry struct {
	ID       string
	Vector   []float32
	Metadata EntryMetadata
}

// Match is a similarity-search result.
type Match struct {
	ID       string
	Score    float64
	Metadata EntryMetadata
}

// VectorIndex stores, deletes and similarity-queries vectors with metadata.
//
// Implementations must make Upsert idempotent by id, must apply the whole
// batch or fail it, and must tolerate a cold backing index by provisioning
// it lazily on first use. A failed initialization is retried on the next
// call, never cached.
type VectorIndex interface {
	Upsert(ctx context.Context, entries []IndexEntry) error

	// DeleteByFilter removes all entries matching the filter and returns
	// how many were removed, where the backend reports it. A filter that
	// matches nothing is a no-op, not an error.
	DeleteByFilter(ctx context.Context, f Filter) (int, error)

	Query(ctx context.Context, vector []float32, topK int, f *Filter) ([]Match, error)
}
