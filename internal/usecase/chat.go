package usecase

import (
	"context"
	"errors"
	"log"
	"strings"
	"time"

	"github.com/google/uuid"

	"kbchat/internal/adapter/language"
	"kbchat/internal/domain"
	"kbchat/internal/port"
)

// ErrEmptyQuery is returned when a chat message has no text.
var ErrEmptyQuery = errors.New("query must not be empty")

// historyWindow bounds how many past turns are loaded into the prompt.
const historyWindow = 6

// sourcePreviewRunes bounds the content preview attached to each source.
const sourcePreviewRunes = 100

// ChatUseCase orchestrates one question-answer exchange: language
// detection, retrieval, prompt assembly, generation, and history.
type ChatUseCase struct {
	retrieve *RetrieveUseCase
	llm      port.LLM
	history  port.ConversationStore
	logger   *log.Logger
}

func NewChatUseCase(retrieve *RetrieveUseCase, llm port.LLM, history port.ConversationStore, logger *log.Logger) *ChatUseCase {
	return &ChatUseCase{
		retrieve: retrieve,
		llm:      llm,
		history:  history,
		logger:   logger,
	}
}

// ChatResult is the outcome of one exchange.
type ChatResult struct {
	SessionID        string   `json:"session_id"`
	Answer           string   `json:"response"`
	Language         string   `json:"language"`
	Sources          []string `json:"sources,omitempty"`
	HistoryPersisted bool     `json:"history_persisted"`
}

// Answer handles one user message. An empty sessionID starts a fresh
// session. Retrieval and history failures degrade gracefully;
// generation failure produces a canned reply in the user's language.
func (u *ChatUseCase) Answer(ctx context.Context, sessionID, query string) (*ChatResult, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, ErrEmptyQuery
	}
	if sessionID == "" {
		sessionID = uuid.NewString()
	}

	lang := language.Detect(query)
	// Only sections in the question's language reach the prompt.
	results := u.retrieve.Search(ctx, query, &port.Filter{Language: lang})

	history, err := u.history.Load(ctx, sessionID, historyWindow)
	if err != nil {
		u.logger.Printf("[CHAT] warning: failed to load history for session %s: %v", sessionID, err)
		history = nil
	}

	systemPrompt, userPrompt := BuildPrompt(query, lang, results, history)

	answer, err := u.llm.Complete(ctx, systemPrompt, userPrompt)
	if err != nil {
		u.logger.Printf("[CHAT] warning: generation failed for session %s: %v", sessionID, err)
		return &ChatResult{
			SessionID:        sessionID,
			Answer:           FallbackAnswer(lang),
			Language:         lang,
			HistoryPersisted: u.persistTurns(ctx, sessionID, query, FallbackAnswer(lang)),
		}, nil
	}

	return &ChatResult{
		SessionID:        sessionID,
		Answer:           answer,
		Language:         lang,
		Sources:          formatSources(results),
		HistoryPersisted: u.persistTurns(ctx, sessionID, query, answer),
	}, nil
}

func (u *ChatUseCase) persistTurns(ctx context.Context, sessionID, query, answer string) bool {
	now := time.Now()
	turns := []domain.ConversationTurn{
		{Role: domain.RoleUser, Content: query, Timestamp: now},
		{Role: domain.RoleAssistant, Content: answer, Timestamp: now},
	}
	if err := u.history.Append(ctx, sessionID, turns); err != nil {
		u.logger.Printf("[CHAT] warning: failed to persist history for session %s: %v", sessionID, err)
		return false
	}
	return true
}

// formatSources renders one attribution line per retrieved section:
// the title plus a bounded content preview.
func formatSources(results []domain.RetrievalResult) []string {
	if len(results) == 0 {
		return nil
	}
	sources := make([]string, 0, len(results))
	for _, r := range results {
		preview := r.Content
		if runes := []rune(preview); len(runes) > sourcePreviewRunes {
			preview = string(runes[:sourcePreviewRunes]) + "..."
		}
		sources = append(sources, r.SectionTitle+": "+preview)
	}
	return sources
}
