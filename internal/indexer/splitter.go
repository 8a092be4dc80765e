package indexer

import (
	"strings"
	"unicode/utf8"

	"ragsync/internal/loader"
)

// DefaultSeparators are tried in order: paragraphs, lines, words, characters.
var DefaultSeparators = []string{"\n\n", "\n", " ", ""}

// RecursiveSplitter splits text into pieces of at most ChunkSize runes,
// preferring the coarsest separator that fits and carrying up to
// ChunkOverlap runes of trailing context into the next piece.
type RecursiveSplitter struct {
	ChunkSize    int
	ChunkOverlap int
	Separators   []string
}

// NewRecursiveSplitter creates a splitter with the default separators.
func NewRecursiveSplitter(chunkSize, chunkOverlap int) *RecursiveSplitter {
	return &RecursiveSplitter{
		ChunkSize:    chunkSize,
		ChunkOverlap: chunkOverlap,
		Separators:   DefaultSeparators,
	}
}

// SplitPages splits every page and tags each piece with the page's source and
// index. Pieces of one page stay contiguous and in order.
func (s *RecursiveSplitter) SplitPages(pages []loader.Page) []Piece {
	var pieces []Piece
	for _, page := range pages {
		source, pageNum := page.Source, page.Page
		for _, text := range s.SplitText(page.Text) {
			pieces = append(pieces, Piece{Source: &source, Page: &pageNum, Text: text})
		}
	}
	return pieces
}

// SplitText splits a single text.
func (s *RecursiveSplitter) SplitText(text string) []string {
	return s.split(text, s.Separators)
}

func (s *RecursiveSplitter) split(text string, separators []string) []string {
	separator := separators[len(separators)-1]
	var next []string
	for i, sep := range separators {
		if sep == "" {
			separator = sep
			break
		}
		if strings.Contains(text, sep) {
			separator = sep
			next = separators[i+1:]
			break
		}
	}

	var final, good []string
	for _, part := range splitKeepSeparator(text, separator) {
		if runeLen(part) < s.ChunkSize {
			good = append(good, part)
			continue
		}
		if len(good) > 0 {
			final = append(final, s.merge(good)...)
			good = nil
		}
		if len(next) == 0 {
			final = append(final, part)
		} else {
			final = append(final, s.split(part, next)...)
		}
	}
	if len(good) > 0 {
		final = append(final, s.merge(good)...)
	}
	return final
}

// merge packs consecutive parts into pieces no longer than ChunkSize. When a
// piece is emitted, parts are dropped from its front until at most
// ChunkOverlap runes remain to seed the next piece.
func (s *RecursiveSplitter) merge(parts []string) []string {
	var (
		docs    []string
		current []string
		total   int
	)
	for _, part := range parts {
		n := runeLen(part)
		if total+n > s.ChunkSize && len(current) > 0 {
			if doc := joinPieces(current); doc != "" {
				docs = append(docs, doc)
			}
			for total > s.ChunkOverlap || (total+n > s.ChunkSize && total > 0) {
				total -= runeLen(current[0])
				current = current[1:]
			}
		}
		current = append(current, part)
		total += n
	}
	if doc := joinPieces(current); doc != "" {
		docs = append(docs, doc)
	}
	return docs
}

// splitKeepSeparator splits text on sep, keeping each separator attached to
// the start of the part that follows it. Empty parts are dropped.
func splitKeepSeparator(text, sep string) []string {
	if sep == "" {
		parts := make([]string, 0, utf8.RuneCountInString(text))
		for _, r := range text {
			parts = append(parts, string(r))
		}
		return parts
	}

	raw := strings.Split(text, sep)
	parts := make([]string, 0, len(raw))
	if raw[0] != "" {
		parts = append(parts, raw[0])
	}
	for _, p := range raw[1:] {
		parts = append(parts, sep+p)
	}
	return parts
}

func joinPieces(parts []string) string {
	return strings.TrimSpace(strings.Join(parts, ""))
}

func runeLen(s string) int {
	return utf8.RuneCountInString(s)
}
