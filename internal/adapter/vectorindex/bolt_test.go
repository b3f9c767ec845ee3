package vectorindex

import (
	"context"
	"path/filepath"
	"testing"

	"kbchat/internal/port"
)

func newTestBoltIndex(t *testing.T) *BoltIndex {
	t.Helper()
	idx, err := NewBoltIndex(filepath.Join(t.TempDir(), "vectors.db"), 2)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { idx.Close() })
	return idx
}

func TestBoltIndexRoundTrip(t *testing.T) {
	ctx := context.Background()
	idx := newTestBoltIndex(t)

	if err := idx.Upsert(ctx, []port.IndexEntry{
		entry("doc1-intro", "doc1", "Intro", "hello world", "en", []float32{1, 0}),
		entry("doc2-setup", "doc2", "Setup", "install it", "en", []float32{0, 1}),
	}); err != nil {
		t.Fatal(err)
	}

	matches, err := idx.Query(ctx, []float32{1, 0}, 1, nil)
	if err != nil {
		t.Fatal(err)
	}
	if len(matches) != 1 || matches[0].ID != "doc1-intro" {
		t.Fatalf("expected doc1-intro as best match, got %+v", matches)
	}
	if matches[0].Metadata.Content != "hello world" {
		t.Errorf("metadata not round-tripped: %+v", matches[0].Metadata)
	}
}

func TestBoltIndexUpsertDimensionMismatch(t *testing.T) {
	ctx := context.Background()
	idx := newTestBoltIndex(t)

	err := idx.Upsert(ctx, []port.IndexEntry{
		entry("ok", "d", "A", "a", "en", []float32{1, 0}),
		entry("bad", "d", "B", "b", "en", []float32{1, 0, 0}),
	})
	if err == nil {
		t.Fatal("expected dimension mismatch error")
	}
	// The batch must not partially apply.
	if idx.Count() != 0 {
		t.Errorf("failed batch must not be partially applied, got %d entries", idx.Count())
	}
}

func TestBoltIndexDeleteByFilter(t *testing.T) {
	ctx := context.Background()
	idx := newTestBoltIndex(t)

	if err := idx.Upsert(ctx, []port.IndexEntry{
		entry("doc1-a", "doc1", "A", "a", "en", []float32{1, 0}),
		entry("doc1-b", "doc1", "B", "b", "hi", []float32{0, 1}),
		entry("doc2-a", "doc2", "A", "a", "en", []float32{1, 1}),
	}); err != nil {
		t.Fatal(err)
	}

	n, err := idx.DeleteByFilter(ctx, port.Filter{DocumentID: "doc1", SectionTitle: "A"})
	if err != nil {
		t.Fatal(err)
	}
	if n != 1 {
		t.Errorf("composite filter should remove exactly 1, got %d", n)
	}

	n, err = idx.DeleteByFilter(ctx, port.Filter{DocumentID: "doc1"})
	if err != nil {
		t.Fatal(err)
	}
	if n != 1 {
		t.Errorf("expected remaining doc1 entry removed, got %d", n)
	}
	if idx.Count() != 1 {
		t.Errorf("expected only doc2 left, got %d entries", idx.Count())
	}
}

func TestBoltIndexPersistsAcrossReopen(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "vectors.db")

	idx, err := NewBoltIndex(path, 2)
	if err != nil {
		t.Fatal(err)
	}
	if err := idx.Upsert(ctx, []port.IndexEntry{
		entry("doc1-a", "doc1", "A", "persisted", "en", []float32{1, 0}),
	}); err != nil {
		t.Fatal(err)
	}
	if err := idx.Close(); err != nil {
		t.Fatal(err)
	}

	reopened, err := NewBoltIndex(path, 2)
	if err != nil {
		t.Fatal(err)
	}
	defer reopened.Close()

	matches, err := reopened.Query(ctx, []float32{1, 0}, 1, nil)
	if err != nil {
		t.Fatal(err)
	}
	if len(matches) != 1 || matches[0].Metadata.Content != "persisted" {
		t.Fatalf("expected persisted entry after reopen, got %+v", matches)
	}
}
