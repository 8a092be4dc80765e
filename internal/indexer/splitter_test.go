package indexer

import (
	"reflect"
	"strings"
	"testing"
	"unicode/utf8"

	"ragsync/internal/loader"
)

func TestRecursiveSplitter_SplitText(t *testing.T) {
	tests := []struct {
		name    string
		size    int
		overlap int
		text    string
		want    []string
	}{
		{
			name:    "short text is one piece",
			size:    800,
			overlap: 80,
			text:    "  A short page.  ",
			want:    []string{"A short page."},
		},
		{
			name:    "empty text",
			size:    800,
			overlap: 80,
			text:    "",
			want:    nil,
		},
		{
			name:    "paragraphs are kept whole when they fit",
			size:    12,
			overlap: 0,
			text:    "first para\n\nsecond one\n\nthird",
			want:    []string{"first para", "second one", "third"},
		},
		{
			name:    "words with overlap",
			size:    10,
			overlap: 4,
			text:    "aaa bbb ccc ddd",
			want:    []string{"aaa bbb", "bbb ccc", "ccc ddd"},
		},
		{
			name:    "long word falls back to characters",
			size:    4,
			overlap: 0,
			text:    "abcdefghij",
			want:    []string{"abcd", "efgh", "ij"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := NewRecursiveSplitter(tt.size, tt.overlap).SplitText(tt.text)
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("SplitText() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestRecursiveSplitter_RespectsChunkSize(t *testing.T) {
	var b strings.Builder
	for i := 0; i < 300; i++ {
		b.WriteString("Zürich déjà vu sentence number ")
		if i%7 == 0 {
			b.WriteString("\n\n")
		} else if i%3 == 0 {
			b.WriteString("\n")
		}
	}

	s := NewRecursiveSplitter(120, 20)
	pieces := s.SplitText(b.String())
	if len(pieces) < 2 {
		t.Fatalf("SplitText() returned %d pieces, want several", len(pieces))
	}
	for i, p := range pieces {
		if n := utf8.RuneCountInString(p); n > 120 {
			t.Errorf("piece %d has %d runes, want <= 120", i, n)
		}
		if strings.TrimSpace(p) != p || p == "" {
			t.Errorf("piece %d is not trimmed: %q", i, p)
		}
	}
}

func TestRecursiveSplitter_SplitPages(t *testing.T) {
	s := NewRecursiveSplitter(10, 0)
	pages := []loader.Page{
		{Source: "a.pdf", Page: 0, Text: "one two three"},
		{Source: "a.pdf", Page: 2, Text: "four"},
		{Source: "b.docx", Page: 0, Text: "   "},
	}

	pieces := s.SplitPages(pages)

	type tag struct {
		source string
		page   int
		text   string
	}
	var got []tag
	for _, p := range pieces {
		if p.Source == nil || p.Page == nil {
			t.Fatalf("piece %q has no metadata", p.Text)
		}
		got = append(got, tag{*p.Source, *p.Page, p.Text})
	}
	want := []tag{
		{"a.pdf", 0, "one two"},
		{"a.pdf", 0, "three"},
		{"a.pdf", 2, "four"},
	}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("SplitPages() = %+v, want %+v", got, want)
	}

	chunks := AssignIDs(pieces)
	if !reflect.DeepEqual(ids(chunks), []string{"a.pdf:0:0", "a.pdf:0:1", "a.pdf:2:0"}) {
		t.Errorf("AssignIDs(SplitPages()) = %v", ids(chunks))
	}
}
