package indexer

import (
	"fmt"
	"strconv"
	"strings"
)

// Fallbacks used when a piece carries no source or page.
const (
	UnknownSource = "unknown"
	UnknownPage   = 0
)

// FormatID builds the identifier of a chunk.
func FormatID(source string, page, seq int) string {
	return fmt.Sprintf("%s:%d:%d", source, page, seq)
}

// ParseID splits an identifier back into its parts. The source may itself
// contain colons, so the identifier is split from the right.
func ParseID(id string) (source string, page, seq int, err error) {
	last := strings.LastIndexByte(id, ':')
	if last < 0 {
		return "", 0, 0, fmt.Errorf("invalid chunk id %q", id)
	}
	mid := strings.LastIndexByte(id[:last], ':')
	if mid < 0 {
		return "", 0, 0, fmt.Errorf("invalid chunk id %q", id)
	}
	if page, err = strconv.Atoi(id[mid+1 : last]); err != nil {
		return "", 0, 0, fmt.Errorf("invalid page in chunk id %q: %w", id, err)
	}
	if seq, err = strconv.Atoi(id[last+1:]); err != nil {
		return "", 0, 0, fmt.Errorf("invalid sequence in chunk id %q: %w", id, err)
	}
	return id[:mid], page, seq, nil
}

// CountBySource tallies identifiers per source. Identifiers that do not
// parse are counted under the empty source.
func CountBySource(ids []string) map[string]int {
	counts := make(map[string]int)
	for _, id := range ids {
		source, _, _, err := ParseID(id)
		if err != nil {
			source = ""
		}
		counts[source]++
	}
	return counts
}

type pageKey struct {
	source string
	page   int
}

// idState is the accumulator threaded through AssignIDs.
type idState struct {
	last    pageKey
	started bool
	index   int
}

// step returns the state after observing key and the sequence index for it.
func (s idState) step(key pageKey) (idState, int) {
	if s.started && key == s.last {
		s.index++
	} else {
		s.index = 0
	}
	s.last = key
	s.started = true
	return s, s.index
}

// AssignIDs numbers pieces within each (source, page) run and returns the
// resulting chunks in input order. Whitespace-only pieces are dropped first.
//
// Input must be grouped by (source, page). Interleaved pages produce
// colliding identifiers; this is not checked.
func AssignIDs(pieces []Piece) []Chunk {
	chunks := make([]Chunk, 0, len(pieces))
	var state idState
	for _, p := range pieces {
		if strings.TrimSpace(p.Text) == "" {
			continue
		}
		key := pageKey{source: UnknownSource, page: UnknownPage}
		if p.Source != nil {
			key.source = *p.Source
		}
		if p.Page != nil {
			key.page = *p.Page
		}

		var seq int
		state, seq = state.step(key)
		chunks = append(chunks, Chunk{
			ID:            FormatID(key.source, key.page, seq),
			Source:        key.source,
			Page:          key.page,
			SequenceIndex: seq,
			Text:          p.Text,
		})
	}
	return chunks
}
