package port

import "context"

// LLM represents a language model for answer generation.
type LLM interface {
	// Complete generates a response from a system prompt and a user prompt.
	Complete(ctx context.Context, systemPrompt, userPrompt string) (string, error)

	// ModelName returns the name of the model.
	ModelName() string
}
