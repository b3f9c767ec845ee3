package usecase

import (
	"context"
	"log"

	"kbchat/internal/adapter/cache"
	"kbchat/internal/domain"
	"kbchat/internal/port"
)

// RetrieveUseCase runs vector similarity search over the knowledge
// base. Retrieval failures degrade to an empty result set so the chat
// flow can still answer.
type RetrieveUseCase struct {
	embedder port.Embedder
	index    port.VectorIndex
	topK     int
	cache    *cache.QueryCache
	logger   *log.Logger
}

func NewRetrieveUseCase(embedder port.Embedder, index port.VectorIndex, topK int, logger *log.Logger) *RetrieveUseCase {
	if topK <= 0 {
		topK = 5
	}
	return &RetrieveUseCase{
		embedder: embedder,
		index:    index,
		topK:     topK,
		logger:   logger,
	}
}

// WithCache enables result memoization keyed by query, topK and filter.
func (u *RetrieveUseCase) WithCache(c *cache.QueryCache) *RetrieveUseCase {
	u.cache = c
	return u
}

// Search embeds the query and returns the topK most similar sections,
// optionally restricted by filter. Any failure along the way is logged
// and yields an empty slice.
func (u *RetrieveUseCase) Search(ctx context.Context, query string, filter *port.Filter) []domain.RetrievalResult {
	if u.cache != nil {
		if results, ok := u.cache.Get(query, u.topK, filter); ok {
			return results
		}
	}

	vectors, err := u.embedder.Embed(ctx, []string{query})
	if err != nil || len(vectors) == 0 {
		u.logger.Printf("[RETRIEVE] warning: query embedding failed: %v", err)
		return nil
	}

	matches, err := u.index.Query(ctx, vectors[0], u.topK, filter)
	if err != nil {
		u.logger.Printf("[RETRIEVE] warning: index query failed: %v", err)
		return nil
	}

	results := make([]domain.RetrievalResult, 0, len(matches))
	for _, m := range matches {
		results = append(results, domain.RetrievalResult{
			SectionTitle: m.Metadata.SectionTitle,
			Content:      m.Metadata.Content,
			Language:     m.Metadata.Language,
			Score:        m.Score,
		})
	}
	if u.cache != nil {
		u.cache.Put(query, u.topK, filter, results)
	}
	return results
}
