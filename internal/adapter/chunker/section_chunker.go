package chunker

import (
	"fmt"
	"regexp"
	"strings"

	"kbchat/internal/adapter/language"
	"kbchat/internal/domain"
)

// SplitPolicy selects how raw content is cut into sections. The policy is
// chosen explicitly per call site; strategies are never mixed within one
// document.
type SplitPolicy int

const (
	// SplitHeadings cuts on markdown heading lines (#, ## or ###).
	SplitHeadings SplitPolicy = iota
	// SplitParagraphs cuts on blank-line paragraph boundaries.
	SplitParagraphs
)

var (
	headingRe = regexp.MustCompile(`^#{1,3}\s+`)
	// Sentences keep their terminal punctuation so that concatenating
	// parts reconstructs the section body up to whitespace.
	sentenceRe = regexp.MustCompile(`[^.!?]+[.!?]*`)
	spaceRe    = regexp.MustCompile(`\s+`)
)

// SectionChunker splits raw document text into ordered, titled sections
// bounded by maxChunkSize code points. Oversized sections are split into
// parts on sentence boundaries.
type SectionChunker struct {
	maxChunkSize int
	policy       SplitPolicy
}

func New(maxChunkSize int, policy SplitPolicy) *SectionChunker {
	if maxChunkSize <= 0 {
		maxChunkSize = 1000
	}
	return &SectionChunker{maxChunkSize: maxChunkSize, policy: policy}
}

type segment struct {
	title string
	body  string
}

// Chunk splits content into sections. A document with no non-empty segments
// yields an empty list; callers treat that as a no-op upsert, not an error.
// Chunking is deterministic: the same input produces the same ids, titles
// and ordering.
func (c *SectionChunker) Chunk(documentID, content string) ([]domain.Section, error) {
	var segments []segment
	switch c.policy {
	case SplitParagraphs:
		segments = splitParagraphs(content)
	default:
		segments = splitHeadings(content)
	}

	var sections []domain.Section
	for _, seg := range segments {
		body := strings.TrimSpace(seg.body)
		if body == "" {
			continue
		}
		// Segments within one document may differ in language.
		lang := language.Detect(body)
		if len([]rune(body)) <= c.maxChunkSize {
			sections = append(sections, domain.Section{
				ID:         SectionID(documentID, seg.title),
				DocumentID: documentID,
				Title:      seg.title,
				Content:    body,
				Language:   lang,
			})
			continue
		}
		sections = append(sections, c.splitOversized(documentID, seg.title, body, lang)...)
	}
	return sections, nil
}

// Rechunk rebuilds a single titled section from replacement content,
// keeping the title (and therefore the id scheme) fixed. Used for
// targeted section updates.
func (c *SectionChunker) Rechunk(documentID, title, content, lang string) []domain.Section {
	body := strings.TrimSpace(strings.ReplaceAll(content, "\r\n", "\n"))
	if body == "" {
		return nil
	}
	if len([]rune(body)) <= c.maxChunkSize {
		return []domain.Section{{
			ID:         SectionID(documentID, title),
			DocumentID: documentID,
			Title:      title,
			Content:    body,
			Language:   lang,
		}}
	}
	return c.splitOversized(documentID, title, body, lang)
}

// splitHeadings cuts content at markdown heading lines. A heading line opens
// a new segment titled with the heading text; text before the first heading
// becomes a segment with a positional fallback title.
func splitHeadings(content string) []segment {
	var segs []segment
	cur := segment{}
	var buf []string

	flush := func() {
		cur.body = strings.Join(buf, "\n")
		if cur.title != "" || strings.TrimSpace(cur.body) != "" {
			segs = append(segs, cur)
		}
		cur = segment{}
		buf = buf[:0]
	}

	for _, line := range strings.Split(content, "\n") {
		if headingRe.MatchString(line) {
			flush()
			cur.title = strings.TrimSpace(headingRe.ReplaceAllString(line, ""))
			continue
		}
		buf = append(buf, line)
	}
	flush()

	for i := range segs {
		if segs[i].title == "" {
			segs[i].title = fmt.Sprintf("Section %d", i+1)
		}
	}
	return segs
}

// splitParagraphs cuts content at blank-line boundaries. Every paragraph
// gets a positional fallback title.
func splitParagraphs(content string) []segment {
	content = strings.ReplaceAll(content, "\r\n", "\n")
	var segs []segment
	for _, p := range strings.Split(content, "\n\n") {
		if strings.TrimSpace(p) == "" {
			continue
		}
		segs = append(segs, segment{body: p})
	}
	for i := range segs {
		segs[i].title = fmt.Sprintf("Section %d", i+1)
	}
	return segs
}

// splitOversized greedily packs sentences into parts bounded by maxChunkSize.
// A single sentence longer than the bound is emitted verbatim as its own
// part; this cannot loop.
func (c *SectionChunker) splitOversized(documentID, title, body, lang string) []domain.Section {
	sentences := sentenceRe.FindAllString(body, -1)
	if len(sentences) == 0 {
		sentences = []string{body}
	}

	var parts []domain.Section
	var buf strings.Builder
	bufLen := 0
	part := 0

	flush := func() {
		text := strings.TrimSpace(buf.String())
		buf.Reset()
		bufLen = 0
		if text == "" {
			return
		}
		parts = append(parts, domain.Section{
			ID:         PartID(documentID, title, part),
			DocumentID: documentID,
			Title:      fmt.Sprintf("%s (Part %d)", title, part+1),
			Content:    text,
			Language:   lang,
		})
		part++
	}

	for _, s := range sentences {
		s = strings.TrimSpace(s)
		if s == "" {
			continue
		}
		n := len([]rune(s))
		if bufLen > 0 && bufLen+1+n > c.maxChunkSize {
			flush()
		}
		if bufLen > 0 {
			buf.WriteByte(' ')
			bufLen++
		}
		buf.WriteString(s)
		bufLen += n
	}
	flush()

	return parts
}

// Slug normalizes a section title for use in ids: lowercased, whitespace
// runs collapsed to hyphens.
func Slug(title string) string {
	return spaceRe.ReplaceAllString(strings.ToLower(strings.TrimSpace(title)), "-")
}

// SectionID derives the deterministic id for a section, stable across
// re-processing so that re-upsert is idempotent.
func SectionID(documentID, title string) string {
	return documentID + "-" + Slug(title)
}

// PartID derives the id for part idx (0-based) of an oversized section.
func PartID(documentID, title string, idx int) string {
	return fmt.Sprintf("%s-%s-%d", documentID, Slug(title), idx)
}
