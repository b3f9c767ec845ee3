package history

import (
	"context"
	"sync"

	"kbchat/internal/domain"
)

// MemoryStore is an in-process ConversationStore for tests and
// single-node development.
type MemoryStore struct {
	mu       sync.RWMutex
	sessions map[string][]domain.ConversationTurn
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{sessions: make(map[string][]domain.ConversationTurn)}
}

func (s *MemoryStore) Append(ctx context.Context, sessionID string, turns []domain.ConversationTurn) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions[sessionID] = append(s.sessions[sessionID], turns...)
	return nil
}

func (s *MemoryStore) Load(ctx context.Context, sessionID string, limit int) ([]domain.ConversationTurn, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	turns := s.sessions[sessionID]
	if limit > 0 && len(turns) > limit {
		turns = turns[len(turns)-limit:]
	}
	out := make([]domain.ConversationTurn, len(turns))
	copy(out, turns)
	return out, nil
}
