package vectorindex

import (
	"context"
	"testing"

	"kbchat/internal/port"
)

func entry(id, docID, title, content, lang string, vec []float32) port.IndexEntry {
	return port.IndexEntry{
		ID:     id,
		Vector: vec,
		Metadata: port.EntryMetadata{
			DocumentID:   docID,
			SectionTitle: title,
			Content:      content,
			Language:     lang,
		},
	}
}

func TestMemoryIndexUpsertIdempotent(t *testing.T) {
	ctx := context.Background()
	idx := NewMemoryIndex()

	entries := []port.IndexEntry{
		entry("doc1-intro", "doc1", "Intro", "hello", "en", []float32{1, 0}),
		entry("doc1-usage", "doc1", "Usage", "steps", "en", []float32{0, 1}),
	}
	if err := idx.Upsert(ctx, entries); err != nil {
		t.Fatal(err)
	}
	if err := idx.Upsert(ctx, entries); err != nil {
		t.Fatal(err)
	}
	if idx.Count() != 2 {
		t.Errorf("re-upsert must be idempotent: expected 2 entries, got %d", idx.Count())
	}
}

func TestMemoryIndexUpsertReplaces(t *testing.T) {
	ctx := context.Background()
	idx := NewMemoryIndex()

	if err := idx.Upsert(ctx, []port.IndexEntry{entry("doc1-intro", "doc1", "Intro", "old", "en", []float32{1, 0})}); err != nil {
		t.Fatal(err)
	}
	if err := idx.Upsert(ctx, []port.IndexEntry{entry("doc1-intro", "doc1", "Intro", "new", "en", []float32{1, 0})}); err != nil {
		t.Fatal(err)
	}

	matches, err := idx.Query(ctx, []float32{1, 0}, 10, nil)
	if err != nil {
		t.Fatal(err)
	}
	if len(matches) != 1 {
		t.Fatalf("expected 1 match, got %d", len(matches))
	}
	if matches[0].Metadata.Content != "new" {
		t.Errorf("same-id upsert must replace: got %q", matches[0].Metadata.Content)
	}
}

func TestMemoryIndexDeleteByFilter(t *testing.T) {
	ctx := context.Background()
	idx := NewMemoryIndex()

	if err := idx.Upsert(ctx, []port.IndexEntry{
		entry("doc1-a", "doc1", "A", "a", "en", []float32{1, 0}),
		entry("doc1-b", "doc1", "B", "b", "en", []float32{0, 1}),
		entry("doc2-c", "doc2", "C", "c", "en", []float32{1, 1}),
	}); err != nil {
		t.Fatal(err)
	}

	n, err := idx.DeleteByFilter(ctx, port.Filter{DocumentID: "doc1"})
	if err != nil {
		t.Fatal(err)
	}
	if n != 2 {
		t.Errorf("expected 2 removed, got %d", n)
	}

	matches, err := idx.Query(ctx, []float32{1, 0}, 10, &port.Filter{DocumentID: "doc1"})
	if err != nil {
		t.Fatal(err)
	}
	if len(matches) != 0 {
		t.Errorf("doc1 entries should be gone, got %d matches", len(matches))
	}

	matches, err = idx.Query(ctx, []float32{1, 0}, 10, &port.Filter{DocumentID: "doc2"})
	if err != nil {
		t.Fatal(err)
	}
	if len(matches) != 1 {
		t.Errorf("doc2 must be untouched, got %d matches", len(matches))
	}

	// Deleting with a filter that matches nothing is a no-op, not an error.
	n, err = idx.DeleteByFilter(ctx, port.Filter{DocumentID: "missing"})
	if err != nil {
		t.Fatal(err)
	}
	if n != 0 {
		t.Errorf("expected 0 removed, got %d", n)
	}
}

func TestMemoryIndexQueryLanguageFilter(t *testing.T) {
	ctx := context.Background()
	idx := NewMemoryIndex()

	if err := idx.Upsert(ctx, []port.IndexEntry{
		entry("doc1-en", "doc1", "Pricing", "price list", "en", []float32{1, 0}),
		entry("doc1-hi", "doc1", "कीमत", "कीमत सूची", "hi", []float32{0.9, 0.1}),
	}); err != nil {
		t.Fatal(err)
	}

	matches, err := idx.Query(ctx, []float32{1, 0}, 10, &port.Filter{Language: "hi"})
	if err != nil {
		t.Fatal(err)
	}
	if len(matches) != 1 || matches[0].ID != "doc1-hi" {
		t.Fatalf("expected only the hi entry, got %+v", matches)
	}
}

func TestMemoryIndexQueryOrdering(t *testing.T) {
	ctx := context.Background()
	idx := NewMemoryIndex()

	if err := idx.Upsert(ctx, []port.IndexEntry{
		entry("far", "d", "Far", "x", "en", []float32{0, 1}),
		entry("near", "d", "Near", "x", "en", []float32{1, 0}),
		entry("mid", "d", "Mid", "x", "en", []float32{1, 1}),
	}); err != nil {
		t.Fatal(err)
	}

	matches, err := idx.Query(ctx, []float32{1, 0}, 2, nil)
	if err != nil {
		t.Fatal(err)
	}
	if len(matches) != 2 {
		t.Fatalf("expected topK=2 matches, got %d", len(matches))
	}
	if matches[0].ID != "near" || matches[1].ID != "mid" {
		t.Errorf("expected [near mid], got [%s %s]", matches[0].ID, matches[1].ID)
	}
	if matches[0].Score < matches[1].Score {
		t.Error("matches must be ordered by descending score")
	}
}
