package language

import "kbchat/internal/domain"

// Detect classifies text as Hindi or English from its character set.
// Devanagari is checked before Latin so mixed-script text is tagged "hi".
// Text with neither script falls back to English. Never fails.
func Detect(text string) string {
	for _, r := range text {
		if r >= 0x0900 && r <= 0x097F {
			return domain.LangHindi
		}
	}
	for _, r := range text {
		if (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') {
			return domain.LangEnglish
		}
	}
	return domain.LangEnglish
}

// Name returns the display name for a language tag.
func Name(code string) string {
	if code == domain.LangHindi {
		return "Hindi"
	}
	return "English"
}
