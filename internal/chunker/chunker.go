package chunker

import (
	"fmt"
	"strings"
	"unicode"
)

// Params controls the sliding window. Size and Overlap are rune counts;
// LookAhead bounds how far past the window end the splitter may scan for a
// sentence boundary.
type Params struct {
	Size      int
	Overlap   int
	LookAhead int
}

// PageText is one page of extracted text. PageNumber is 1-based.
type PageText struct {
	PageNumber int
	Text       string
}

// Candidate is a chunk before embedding. Offsets are rune offsets into the
// page's raw text and stay untrimmed even though Text has surrounding
// whitespace removed; ChunkIndex is contiguous across the whole document.
type Candidate struct {
	PageNumber  int
	ChunkIndex  int
	StartOffset int
	EndOffset   int
	Text        string
}

type Chunker struct {
	params Params
}

func New(p Params) (*Chunker, error) {
	if p.Size <= 0 {
		return nil, fmt.Errorf("chunk size must be positive, got %d", p.Size)
	}
	if p.Overlap < 0 || p.Overlap >= p.Size {
		return nil, fmt.Errorf("chunk overlap must be in [0, size), got %d", p.Overlap)
	}
	if p.LookAhead < 0 {
		return nil, fmt.Errorf("chunk look-ahead must be non-negative, got %d", p.LookAhead)
	}
	return &Chunker{params: p}, nil
}

// Split windows each page independently so no chunk ever spans a page break,
// then numbers the results contiguously across pages.
func (c *Chunker) Split(pages []PageText) []Candidate {
	var out []Candidate
	for _, page := range pages {
		out = c.splitPage(page, out)
	}
	return out
}

func (c *Chunker) splitPage(page PageText, out []Candidate) []Candidate {
	runes := []rune(page.Text)
	if len(strings.TrimSpace(page.Text)) == 0 {
		return out
	}
	start := 0
	for start < len(runes) {
		cut := c.cutPoint(runes, start)
		text := strings.TrimSpace(string(runes[start:cut]))
		if text != "" {
			out = append(out, Candidate{
				PageNumber:  page.PageNumber,
				ChunkIndex:  len(out),
				StartOffset: start,
				EndOffset:   cut,
				Text:        text,
			})
		}
		if cut >= len(runes) {
			break
		}
		next := cut - c.params.Overlap
		// Guard against stalling when overlap would rewind to or before the
		// current start.
		if next <= start {
			next = cut
		}
		start = next
	}
	return out
}

// cutPoint returns the exclusive end of the chunk beginning at start. The
// window closes at start+Size, extended up to LookAhead runes to land just
// after a sentence terminal; otherwise it hard-cuts.
func (c *Chunker) cutPoint(runes []rune, start int) int {
	end := start + c.params.Size
	if end >= len(runes) {
		return len(runes)
	}
	limit := end + c.params.LookAhead
	if limit > len(runes) {
		limit = len(runes)
	}
	for i := end; i < limit; i++ {
		if !isSentenceTerminal(runes[i]) {
			continue
		}
		if i+1 >= len(runes) || unicode.IsSpace(runes[i+1]) {
			return i + 1
		}
	}
	return end
}

func isSentenceTerminal(r rune) bool {
	return r == '.' || r == '!' || r == '?'
}
