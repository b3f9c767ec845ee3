package usecase

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"kbchat/internal/adapter/chunker"
	"kbchat/internal/adapter/language"
	"kbchat/internal/domain"
	"kbchat/internal/port"
)

var (
	// ErrEmptyDocument is returned when a document has no usable text.
	ErrEmptyDocument = errors.New("document contains no extractable text")

	// ErrUnsupportedFormat is returned for document formats the
	// pipeline cannot extract text from.
	ErrUnsupportedFormat = errors.New("unsupported document format")
)

// IngestUseCase turns raw document text into embedded, indexed sections
// and keeps the document registry in step with the vector index.
type IngestUseCase struct {
	chunkers   map[chunker.SplitPolicy]*chunker.SectionChunker
	embedder   port.Embedder
	index      port.VectorIndex
	docs       port.DocumentStore
	invalidate func()
	logger     *log.Logger
}

func NewIngestUseCase(
	maxChunkSize int,
	embedder port.Embedder,
	index port.VectorIndex,
	docs port.DocumentStore,
	logger *log.Logger,
) *IngestUseCase {
	return &IngestUseCase{
		chunkers: map[chunker.SplitPolicy]*chunker.SectionChunker{
			chunker.SplitHeadings:   chunker.New(maxChunkSize, chunker.SplitHeadings),
			chunker.SplitParagraphs: chunker.New(maxChunkSize, chunker.SplitParagraphs),
		},
		embedder: embedder,
		index:    index,
		docs:     docs,
		logger:   logger,
	}
}

// OnWrite registers a callback fired after every successful index
// mutation, used to drop cached retrieval results.
func (u *IngestUseCase) OnWrite(fn func()) *IngestUseCase {
	u.invalidate = fn
	return u
}

func (u *IngestUseCase) notifyWrite() {
	if u.invalidate != nil {
		u.invalidate()
	}
}

// IngestResult summarizes one processed document.
type IngestResult struct {
	DocumentID string              `json:"documentId"`
	Title      string              `json:"title"`
	Language   string              `json:"language"`
	Sections   []domain.SectionRef `json:"sections"`
	ChunkCount int                 `json:"chunkCount"`
}

// ProcessDocument chunks, embeds, and indexes one document. When
// replaceExisting is set, previously indexed sections for the same
// document id are removed first so stale chunks cannot survive an
// update.
func (u *IngestUseCase) ProcessDocument(ctx context.Context, docID, title, content string, policy chunker.SplitPolicy, replaceExisting bool) (*IngestResult, error) {
	content = sanitize(content)
	if strings.TrimSpace(content) == "" {
		return nil, ErrEmptyDocument
	}

	sections, err := u.chunkers[policy].Chunk(docID, content)
	if err != nil {
		return nil, fmt.Errorf("failed to chunk document: %w", err)
	}

	if replaceExisting {
		deleted, err := u.index.DeleteByFilter(ctx, port.Filter{DocumentID: docID})
		if err != nil {
			return nil, fmt.Errorf("failed to remove existing sections: %w", err)
		}
		if deleted > 0 {
			u.logger.Printf("[INGEST] removed %d existing sections for document %s", deleted, docID)
		}
	}

	result := &IngestResult{
		DocumentID: docID,
		Title:      title,
		Language:   language.Detect(content),
	}

	if len(sections) == 0 {
		u.logger.Printf("[INGEST] document %s produced no sections, nothing to index", docID)
		return result, nil
	}

	entries, err := u.buildEntries(ctx, sections)
	if err != nil {
		return nil, err
	}
	if err := u.index.Upsert(ctx, entries); err != nil {
		return nil, fmt.Errorf("failed to index sections: %w", err)
	}

	for _, s := range sections {
		result.Sections = append(result.Sections, domain.SectionRef{ID: s.ID, Title: s.Title})
	}
	result.ChunkCount = len(sections)

	if err := u.saveDocument(docID, result); err != nil {
		return nil, fmt.Errorf("failed to record document: %w", err)
	}

	u.notifyWrite()
	u.logger.Printf("[INGEST] indexed document %s (%d sections, language=%s)", docID, len(sections), result.Language)
	return result, nil
}

// UpdateSection replaces the indexed content of a single section. Old
// entries matching the (document, section title) pair are removed, then
// the new content is chunked and indexed under the same title.
func (u *IngestUseCase) UpdateSection(ctx context.Context, docID, sectionTitle, newContent string) ([]domain.SectionRef, error) {
	newContent = sanitize(newContent)
	if strings.TrimSpace(newContent) == "" {
		return nil, ErrEmptyDocument
	}

	if _, err := u.index.DeleteByFilter(ctx, port.Filter{DocumentID: docID, SectionTitle: sectionTitle}); err != nil {
		return nil, fmt.Errorf("failed to remove old section entries: %w", err)
	}
	// A previously oversized section was stored under part titles;
	// clear those too, using the registry to enumerate them.
	for _, title := range u.partTitles(docID, sectionTitle) {
		if _, err := u.index.DeleteByFilter(ctx, port.Filter{DocumentID: docID, SectionTitle: title}); err != nil {
			return nil, fmt.Errorf("failed to remove old section part entries: %w", err)
		}
	}

	lang := language.Detect(newContent)
	sections := u.chunkers[chunker.SplitParagraphs].Rechunk(docID, sectionTitle, newContent, lang)

	entries, err := u.buildEntries(ctx, sections)
	if err != nil {
		return nil, err
	}
	if err := u.index.Upsert(ctx, entries); err != nil {
		return nil, fmt.Errorf("failed to index updated section: %w", err)
	}

	refs := make([]domain.SectionRef, 0, len(sections))
	for _, s := range sections {
		refs = append(refs, domain.SectionRef{ID: s.ID, Title: s.Title})
	}

	u.refreshDocument(docID, sectionTitle, refs)

	u.notifyWrite()
	u.logger.Printf("[INGEST] updated section %q of document %s (%d parts)", sectionTitle, docID, len(sections))
	return refs, nil
}

// DeleteDocument removes every indexed section of a document plus its
// registry entry, and reports how many index entries were removed.
func (u *IngestUseCase) DeleteDocument(ctx context.Context, docID string) (int, error) {
	deleted, err := u.index.DeleteByFilter(ctx, port.Filter{DocumentID: docID})
	if err != nil {
		return 0, fmt.Errorf("failed to delete document sections: %w", err)
	}
	if u.docs != nil {
		if err := u.docs.Delete(docID); err != nil {
			return deleted, fmt.Errorf("failed to delete document record: %w", err)
		}
	}
	u.notifyWrite()
	u.logger.Printf("[INGEST] deleted document %s (%d sections)", docID, deleted)
	return deleted, nil
}

func (u *IngestUseCase) buildEntries(ctx context.Context, sections []domain.Section) ([]port.IndexEntry, error) {
	texts := make([]string, len(sections))
	for i, s := range sections {
		texts[i] = s.Content
	}

	vectors, err := u.embedder.Embed(ctx, texts)
	if err != nil {
		return nil, fmt.Errorf("failed to embed sections: %w", err)
	}
	if len(vectors) != len(sections) {
		return nil, fmt.Errorf("embedder returned %d vectors for %d sections", len(vectors), len(sections))
	}

	entries := make([]port.IndexEntry, len(sections))
	for i, s := range sections {
		entries[i] = port.IndexEntry{
			ID:     s.ID,
			Vector: vectors[i],
			Metadata: port.EntryMetadata{
				DocumentID:   s.DocumentID,
				SectionTitle: s.Title,
				Content:      s.Content,
				Language:     s.Language,
			},
		}
	}
	return entries, nil
}

func (u *IngestUseCase) saveDocument(docID string, result *IngestResult) error {
	if u.docs == nil {
		return nil
	}
	now := time.Now()
	createdAt := now
	if existing, err := u.docs.Get(docID); err == nil && !existing.CreatedAt.IsZero() {
		createdAt = existing.CreatedAt
	}
	return u.docs.Put(domain.Document{
		ID:         docID,
		Title:      result.Title,
		Language:   result.Language,
		Sections:   result.Sections,
		ChunkCount: result.ChunkCount,
		CreatedAt:  createdAt,
		UpdatedAt:  now,
	})
}

// partTitles lists the "(Part n)" titles previously recorded for a
// section, so their index entries can be removed on update.
func (u *IngestUseCase) partTitles(docID, sectionTitle string) []string {
	if u.docs == nil {
		return nil
	}
	doc, err := u.docs.Get(docID)
	if err != nil {
		return nil
	}
	var titles []string
	for _, ref := range doc.Sections {
		if strings.HasPrefix(ref.Title, sectionTitle+" (Part ") {
			titles = append(titles, ref.Title)
		}
	}
	return titles
}

// refreshDocument swaps the refs of one section title inside the
// registry record. Registry drift is tolerable, so failures are logged
// rather than surfaced.
func (u *IngestUseCase) refreshDocument(docID, sectionTitle string, refs []domain.SectionRef) {
	if u.docs == nil {
		return
	}
	doc, err := u.docs.Get(docID)
	if err != nil {
		u.logger.Printf("[INGEST] warning: no registry record for document %s: %v", docID, err)
		return
	}

	kept := make([]domain.SectionRef, 0, len(doc.Sections))
	for _, ref := range doc.Sections {
		if ref.Title != sectionTitle && !strings.HasPrefix(ref.Title, sectionTitle+" (Part ") {
			kept = append(kept, ref)
		}
	}
	doc.Sections = append(kept, refs...)
	doc.ChunkCount = len(doc.Sections)
	doc.UpdatedAt = time.Now()

	if err := u.docs.Put(doc); err != nil {
		u.logger.Printf("[INGEST] warning: failed to update registry for document %s: %v", docID, err)
	}
}

// sanitize strips NUL characters that would corrupt downstream storage.
func sanitize(s string) string {
	return strings.ReplaceAll(s, "\x00", "")
}
