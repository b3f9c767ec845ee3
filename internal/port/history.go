package port

import (
	"context"

	"kbchat/internal/domain"
)

// ConversationStore persists chat history keyed by session id.
//
// Failures here never abort a chat answer: callers log and continue.
type ConversationStore interface {
	Append(ctx context.Context, sessionID string, turns []domain.ConversationTurn) error

	// Load returns up to limit of the most recent turns, oldest first.
	Load(ctx context.Context, sessionID string, limit int) ([]domain.ConversationTurn, error)
}
