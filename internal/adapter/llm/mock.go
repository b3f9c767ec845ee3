package llm

import (
	"context"
	"strings"
)

// MockClient answers from the prompt itself: it returns the first
// context section, or a canned line when the prompt carries none. Used
// in tests and offline demos.
type MockClient struct{}

func (MockClient) Complete(ctx context.Context, systemPrompt, userPrompt string) (string, error) {
	for _, line := range strings.Split(userPrompt, "\n") {
		if strings.HasPrefix(line, "Content: ") {
			return "Based on the documentation: " + strings.TrimPrefix(line, "Content: "), nil
		}
	}
	return "I could not find anything relevant in the knowledge base.", nil
}

func (MockClient) ModelName() string { return "mock" }
