package loader

import (
	"reflect"
	"testing"
)

func wordBody(inner string) []byte {
	return []byte(`<?xml version="1.0" encoding="UTF-8" standalone="yes"?>` +
		`<w:document xmlns:w="http://schemas.openxmlformats.org/wordprocessingml/2006/main"` +
		` xmlns:mc="http://schemas.openxmlformats.org/markup-compatibility/2006">` +
		`<w:body>` + inner + `</w:body></w:document>`)
}

func TestParseParagraphs(t *testing.T) {
	tests := []struct {
		name string
		body string
		want []string
	}{
		{
			name: "runs are joined",
			body: `<w:p><w:r><w:t>Hello</w:t></w:r><w:r><w:t xml:space="preserve"> world</w:t></w:r></w:p>`,
			want: []string{"Hello world"},
		},
		{
			name: "hyperlink text is kept",
			body: `<w:p><w:r><w:t xml:space="preserve">See </w:t></w:r><w:hyperlink><w:r><w:t>the manual</w:t></w:r></w:hyperlink><w:r><w:t xml:space="preserve"> now</w:t></w:r></w:p>`,
			want: []string{"See the manual now"},
		},
		{
			name: "tracked insertion kept and deletion dropped",
			body: `<w:p><w:r><w:t xml:space="preserve">Ship in </w:t></w:r><w:del><w:r><w:delText>May</w:delText></w:r></w:del><w:ins><w:r><w:t>June</w:t></w:r></w:ins></w:p>`,
			want: []string{"Ship in June"},
		},
		{
			name: "tab between text",
			body: `<w:p><w:r><w:t>a</w:t><w:tab/><w:t>b</w:t></w:r></w:p>`,
			want: []string{"a\tb"},
		},
		{
			name: "line break inside a paragraph",
			body: `<w:p><w:r><w:t>first</w:t><w:br/><w:t>second</w:t></w:r></w:p>`,
			want: []string{"first\nsecond"},
		},
		{
			name: "tab stops in paragraph properties are ignored",
			body: `<w:p><w:pPr><w:tabs><w:tab w:val="left" w:pos="720"/></w:tabs></w:pPr><w:r><w:rPr><w:b/></w:rPr><w:t>Title</w:t></w:r></w:p>`,
			want: []string{"Title"},
		},
		{
			name: "content controls, smart tags and simple fields",
			body: `<w:p><w:sdt><w:sdtContent><w:r><w:t xml:space="preserve">Page </w:t></w:r></w:sdtContent></w:sdt>` +
				`<w:fldSimple w:instr="PAGE"><w:r><w:t>3</w:t></w:r></w:fldSimple>` +
				`<w:smartTag><w:r><w:t xml:space="preserve"> of Paris</w:t></w:r></w:smartTag></w:p>`,
			want: []string{"Page 3 of Paris"},
		},
		{
			name: "blank paragraphs keep their index",
			body: `<w:p><w:r><w:t>one</w:t></w:r></w:p><w:p/><w:p><w:r><w:t>   </w:t></w:r></w:p><w:p><w:r><w:t>four</w:t></w:r></w:p>`,
			want: []string{"one", "", "", "four"},
		},
		{
			name: "table cell paragraphs",
			body: `<w:tbl><w:tr><w:tc><w:p><w:r><w:t>cell A</w:t></w:r></w:p></w:tc><w:tc><w:p><w:r><w:t>cell B</w:t></w:r></w:p></w:tc></w:tr></w:tbl>`,
			want: []string{"cell A", "cell B"},
		},
		{
			name: "alternate content fallback is not duplicated",
			body: `<w:p><w:r><mc:AlternateContent><mc:Choice Requires="wps"><w:txbxContent><w:p><w:r><w:t>boxed</w:t></w:r></w:p></w:txbxContent></mc:Choice>` +
				`<mc:Fallback><w:txbxContent><w:p><w:r><w:t>boxed</w:t></w:r></w:p></w:txbxContent></mc:Fallback></mc:AlternateContent></w:r></w:p>`,
			want: []string{"boxed"},
		},
		{
			name: "no paragraphs",
			body: `<w:sectPr/>`,
			want: nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := parseParagraphs(wordBody(tt.body))
			if err != nil {
				t.Fatalf("parseParagraphs() error = %v", err)
			}
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("parseParagraphs() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestParseParagraphs_Malformed(t *testing.T) {
	if _, err := parseParagraphs([]byte(`<w:document><w:body><w:p>`)); err == nil {
		t.Error("parseParagraphs() on truncated XML should fail")
	}
}
