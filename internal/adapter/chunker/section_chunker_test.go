package chunker

import (
	"reflect"
	"strings"
	"testing"

	"kbchat/internal/domain"
)

func TestChunkHeadings(t *testing.T) {
	c := New(1000, SplitHeadings)

	content := "## Intro\nHello world.\n\n## Usage\nStep one. Step two."
	sections, err := c.Chunk("doc1", content)
	if err != nil {
		t.Fatal(err)
	}

	if len(sections) != 2 {
		t.Fatalf("expected 2 sections, got %d", len(sections))
	}
	if sections[0].Title != "Intro" || sections[1].Title != "Usage" {
		t.Errorf("unexpected titles: %q, %q", sections[0].Title, sections[1].Title)
	}
	if sections[0].ID != "doc1-intro" || sections[1].ID != "doc1-usage" {
		t.Errorf("unexpected ids: %q, %q", sections[0].ID, sections[1].ID)
	}
	if sections[0].Content != "Hello world." {
		t.Errorf("unexpected intro body: %q", sections[0].Content)
	}
	if sections[1].Content != "Step one. Step two." {
		t.Errorf("unexpected usage body: %q", sections[1].Content)
	}
	for _, s := range sections {
		if s.Language != domain.LangEnglish {
			t.Errorf("section %q: expected language en, got %q", s.Title, s.Language)
		}
		if s.DocumentID != "doc1" {
			t.Errorf("section %q: wrong document id %q", s.Title, s.DocumentID)
		}
	}
}

func TestChunkPreambleGetsFallbackTitle(t *testing.T) {
	c := New(1000, SplitHeadings)

	content := "Some intro text before any heading.\n\n## Details\nBody here."
	sections, err := c.Chunk("doc1", content)
	if err != nil {
		t.Fatal(err)
	}

	if len(sections) != 2 {
		t.Fatalf("expected 2 sections, got %d", len(sections))
	}
	if sections[0].Title != "Section 1" {
		t.Errorf("expected fallback title 'Section 1', got %q", sections[0].Title)
	}
	if sections[0].Content != "Some intro text before any heading." {
		t.Errorf("fallback section must keep its full body, got %q", sections[0].Content)
	}
	if sections[1].Title != "Details" {
		t.Errorf("expected 'Details', got %q", sections[1].Title)
	}
}

func TestChunkParagraphs(t *testing.T) {
	c := New(1000, SplitParagraphs)

	content := "First paragraph text.\n\nSecond paragraph text.\n\n\n\nThird."
	sections, err := c.Chunk("doc2", content)
	if err != nil {
		t.Fatal(err)
	}

	if len(sections) != 3 {
		t.Fatalf("expected 3 sections, got %d", len(sections))
	}
	for i, s := range sections {
		want := []string{"Section 1", "Section 2", "Section 3"}[i]
		if s.Title != want {
			t.Errorf("section %d: expected title %q, got %q", i, want, s.Title)
		}
	}
	if sections[2].Content != "Third." {
		t.Errorf("unexpected third body: %q", sections[2].Content)
	}
}

func TestChunkEmptyDocument(t *testing.T) {
	for _, policy := range []SplitPolicy{SplitHeadings, SplitParagraphs} {
		c := New(1000, policy)
		for _, content := range []string{"", "   \n\n  \n", "## Only Heading\n\n## Another\n"} {
			sections, err := c.Chunk("doc", content)
			if err != nil {
				t.Fatal(err)
			}
			if policy == SplitParagraphs && strings.Contains(content, "Heading") {
				continue // heading lines are plain text under the paragraph policy
			}
			if len(sections) != 0 {
				t.Errorf("policy %d content %q: expected no sections, got %d", policy, content, len(sections))
			}
		}
	}
}

func TestChunkOversizedSectionParts(t *testing.T) {
	c := New(1000, SplitHeadings)

	body := strings.TrimSpace(strings.Repeat("Sentence. ", 250)) // 2499 code points
	sections, err := c.Chunk("doc1", "## Guide\n"+body)
	if err != nil {
		t.Fatal(err)
	}

	if len(sections) != 3 {
		t.Fatalf("expected 3 parts, got %d", len(sections))
	}
	for i, s := range sections {
		if got := len([]rune(s.Content)); got > 1000 {
			t.Errorf("part %d exceeds max size: %d", i, got)
		}
		wantTitle := "Guide (Part " + string(rune('1'+i)) + ")"
		if s.Title != wantTitle {
			t.Errorf("part %d: expected title %q, got %q", i, wantTitle, s.Title)
		}
		wantID := PartID("doc1", "Guide", i)
		if s.ID != wantID {
			t.Errorf("part %d: expected id %q, got %q", i, wantID, s.ID)
		}
	}

	// Concatenating parts in order reconstructs the body up to whitespace.
	var joined []string
	for _, s := range sections {
		joined = append(joined, s.Content)
	}
	if strings.Join(joined, " ") != body {
		t.Error("part concatenation does not reconstruct the section body")
	}
}

func TestChunkUnsplittableSentence(t *testing.T) {
	c := New(100, SplitHeadings)

	// No terminal punctuation anywhere: the whole body is one "sentence"
	// longer than the bound and must come through verbatim as one part.
	body := strings.TrimSpace(strings.Repeat("word ", 60))
	sections, err := c.Chunk("doc1", "## Long\n"+body)
	if err != nil {
		t.Fatal(err)
	}
	if len(sections) != 1 {
		t.Fatalf("expected 1 part, got %d", len(sections))
	}
	if sections[0].Content != body {
		t.Error("oversized sentence must be emitted verbatim")
	}
	if sections[0].Title != "Long (Part 1)" {
		t.Errorf("unexpected title %q", sections[0].Title)
	}
	if sections[0].ID != "doc1-long-0" {
		t.Errorf("unexpected id %q", sections[0].ID)
	}
}

func TestChunkPerSegmentLanguage(t *testing.T) {
	c := New(1000, SplitHeadings)

	content := "## Pricing\nThe pump costs 50000 rupees.\n\n## कीमत\nपंप की कीमत पचास हज़ार रुपये है।"
	sections, err := c.Chunk("doc1", content)
	if err != nil {
		t.Fatal(err)
	}
	if len(sections) != 2 {
		t.Fatalf("expected 2 sections, got %d", len(sections))
	}
	if sections[0].Language != domain.LangEnglish {
		t.Errorf("expected en, got %q", sections[0].Language)
	}
	if sections[1].Language != domain.LangHindi {
		t.Errorf("expected hi, got %q", sections[1].Language)
	}
}

func TestChunkDeterministic(t *testing.T) {
	c := New(300, SplitHeadings)
	content := "## One\n" + strings.Repeat("Alpha beta gamma. ", 40) + "\n\n## Two\nShort body."

	first, err := c.Chunk("doc1", content)
	if err != nil {
		t.Fatal(err)
	}
	second, err := c.Chunk("doc1", content)
	if err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(first, second) {
		t.Error("chunking is not deterministic")
	}
}

func TestChunkBodiesTrimmedAndBounded(t *testing.T) {
	c := New(200, SplitHeadings)
	content := "## A\n  padded body text.  \n\n## B\n" + strings.Repeat("Fill sentence here. ", 30)

	sections, err := c.Chunk("doc1", content)
	if err != nil {
		t.Fatal(err)
	}
	if len(sections) < 3 {
		t.Fatalf("expected section A plus parts of B, got %d sections", len(sections))
	}
	for _, s := range sections {
		if s.Content == "" || s.Content != strings.TrimSpace(s.Content) {
			t.Errorf("section %q: body not trimmed or empty: %q", s.Title, s.Content)
		}
		if got := len([]rune(s.Content)); got > 200 {
			t.Errorf("section %q: body exceeds bound: %d", s.Title, got)
		}
	}
}

func TestSlug(t *testing.T) {
	tests := []struct{ in, want string }{
		{"Intro", "intro"},
		{"Getting Started", "getting-started"},
		{"  Multi   Space  ", "multi-space"},
		{"कीमत सूची", "कीमत-सूची"},
	}
	for _, tt := range tests {
		if got := Slug(tt.in); got != tt.want {
			t.Errorf("Slug(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
	if SectionID("doc1", "Getting Started") != "doc1-getting-started" {
		t.Error("unexpected section id")
	}
	if PartID("doc1", "Guide", 2) != "doc1-guide-2" {
		t.Error("unexpected part id")
	}
}
