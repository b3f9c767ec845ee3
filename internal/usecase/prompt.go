package usecase

import (
	"fmt"
	"strings"

	"kbchat/internal/domain"
)

const (
	systemPromptEN = "You are a helpful assistant for a knowledge base. Answer questions using only the provided context. If the context does not contain the answer, say you do not know. Respond in English."
	systemPromptHI = "आप एक ज्ञान आधार के लिए सहायक हैं। केवल दिए गए संदर्भ का उपयोग करके प्रश्नों का उत्तर दें। यदि संदर्भ में उत्तर नहीं है, तो कहें कि आप नहीं जानते। हिंदी में उत्तर दें।"

	fallbackEN = "I'm sorry, I'm unable to answer right now. Please try again in a moment."
	fallbackHI = "क्षमा करें, मैं अभी उत्तर देने में असमर्थ हूँ। कृपया कुछ देर बाद पुनः प्रयास करें।"
)

// BuildPrompt assembles the system and user prompts for one chat turn:
// retrieved sections first, then the recent conversation, then the
// current question, in the language the question was asked in.
func BuildPrompt(query, lang string, results []domain.RetrievalResult, history []domain.ConversationTurn) (systemPrompt, userPrompt string) {
	var b strings.Builder

	if len(results) > 0 {
		b.WriteString("Context:\n")
		for _, r := range results {
			fmt.Fprintf(&b, "Section: %s\nContent: %s\n\n", r.SectionTitle, r.Content)
		}
	}

	if len(history) > 0 {
		b.WriteString("Conversation so far:\n")
		for _, turn := range history {
			fmt.Fprintf(&b, "%s: %s\n", turn.Role, turn.Content)
		}
		b.WriteString("\n")
	}

	fmt.Fprintf(&b, "Question: %s", query)

	if lang == domain.LangHindi {
		return systemPromptHI, b.String()
	}
	return systemPromptEN, b.String()
}

// FallbackAnswer is the canned reply used when generation fails.
func FallbackAnswer(lang string) string {
	if lang == domain.LangHindi {
		return fallbackHI
	}
	return fallbackEN
}
