package domain

import "time"

// Language tags produced by the detector.
const (
	LangEnglish = "en"
	LangHindi   = "hi"
)

// Conversation roles.
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Document is an ingested knowledge-base file tracked in the registry.
type Document struct {
	ID         string       `json:"id"`
	Title      string       `json:"title"`
	Language   string       `json:"language"`
	Sections   []SectionRef `json:"sections"`
	ChunkCount int          `json:"chunkCount"`
	CreatedAt  time.Time    `json:"createdAt"`
	UpdatedAt  time.Time    `json:"updatedAt"`
}

// SectionRef points at a section of a document. Title is always present.
type SectionRef struct {
	ID    string `json:"id"`
	Title string `json:"title"`
}

// Section is a bounded, titled unit of document text, the atomic retrieval item.
type Section struct {
	ID         string `json:"id"`
	DocumentID string `json:"documentId"`
	Title      string `json:"title"`
	Content    string `json:"content"`
	Language   string `json:"language"`
}

// RetrievalResult is one similarity-search hit, ordered by descending score.
type RetrievalResult struct {
	SectionTitle string  `json:"sectionTitle"`
	Content      string  `json:"content"`
	Language     string  `json:"language"`
	Score        float64 `json:"score"`
}

// ConversationTurn is a single message in a chat session.
type ConversationTurn struct {
	Role      string    `json:"role"`
	Content   string    `json:"content"`
	Timestamp time.Time `json:"timestamp"`
}
