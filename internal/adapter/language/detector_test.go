package language

import (
	"testing"

	"kbchat/internal/domain"
)

func TestDetect(t *testing.T) {
	tests := []struct {
		name string
		text string
		want string
	}{
		{"english", "Hello world", domain.LangEnglish},
		{"hindi", "नमस्ते दुनिया", domain.LangHindi},
		{"mixed script prefers hindi", "Solar pump की कीमत क्या है", domain.LangHindi},
		{"empty", "", domain.LangEnglish},
		{"symbols only", "123 !@# ...", domain.LangEnglish},
		{"latin after digits", "42 apples", domain.LangEnglish},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Detect(tt.text); got != tt.want {
				t.Errorf("Detect(%q) = %q, want %q", tt.text, got, tt.want)
			}
		})
	}
}

func TestDetectDeterministic(t *testing.T) {
	text := "सौर ऊर्जा solar energy"
	first := Detect(text)
	for i := 0; i < 10; i++ {
		if got := Detect(text); got != first {
			t.Fatalf("Detect is not deterministic: %q then %q", first, got)
		}
	}
}

func TestName(t *testing.T) {
	if Name(domain.LangHindi) != "Hindi" {
		t.Error("expected Hindi")
	}
	if Name(domain.LangEnglish) != "English" {
		t.Error("expected English")
	}
	if Name("fr") != "English" {
		t.Error("unknown tags fall back to English")
	}
}
