package loader

import (
	"archive/zip"
	"bytes"
	"context"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"strings"
)

// ErrNotOOXML is returned for Word files that are not zip-based (.doc from Word 97-2003).
var ErrNotOOXML = errors.New("not an Office Open XML document")

// WordExtractor returns the text of each body paragraph of a Word document.
type WordExtractor struct{}

const (
	wordMLNamespace       = "http://schemas.openxmlformats.org/wordprocessingml/2006/main"
	wordMLStrictNamespace = "http://purl.oclc.org/ooxml/wordprocessingml/main"
	markupCompatNamespace = "http://schemas.openxmlformats.org/markup-compatibility/2006"
)

// Extract reads word/document.xml and returns one trimmed entry per paragraph.
func (e *WordExtractor) Extract(_ context.Context, path string) ([]string, error) {
	reader, err := zip.OpenReader(path)
	if err != nil {
		if errors.Is(err, zip.ErrFormat) {
			return nil, ErrNotOOXML
		}
		return nil, fmt.Errorf("failed to open document: %w", err)
	}
	defer func() {
		_ = reader.Close()
	}()

	for _, file := range reader.File {
		if file.Name != "word/document.xml" {
			continue
		}
		rc, err := file.Open()
		if err != nil {
			return nil, fmt.Errorf("failed to open document body: %w", err)
		}
		content, err := io.ReadAll(rc)
		_ = rc.Close()
		if err != nil {
			return nil, fmt.Errorf("failed to read document body: %w", err)
		}
		return parseParagraphs(content)
	}
	return nil, fmt.Errorf("word/document.xml missing: %w", ErrNotOOXML)
}

// parseParagraphs returns the text of every outermost w:p in the body, in
// document order and trimmed, blank paragraphs included. Text is collected
// from w:t wherever it is nested (hyperlinks, tracked insertions, content
// controls, fields, table cells). w:tab becomes a tab, w:br and w:cr a
// newline. Deleted text, properties and mc:Fallback copies are skipped.
func parseParagraphs(content []byte) ([]string, error) {
	dec := xml.NewDecoder(bytes.NewReader(content))

	var (
		paragraphs []string
		text       strings.Builder
		inBody     bool
		inText     bool
		paraDepth  int
		runDepth   int
	)
	for {
		tok, err := dec.Token()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to parse document body: %w", err)
		}

		switch t := tok.(type) {
		case xml.StartElement:
			switch {
			case t.Name.Space == markupCompatNamespace && t.Name.Local == "Fallback",
				isWordElement(t.Name, "pPr"), isWordElement(t.Name, "rPr"):
				if err := dec.Skip(); err != nil {
					return nil, fmt.Errorf("failed to parse document body: %w", err)
				}
			case isWordElement(t.Name, "body"):
				inBody = true
			case !inBody:
			case isWordElement(t.Name, "p"):
				paraDepth++
			case paraDepth == 0:
			case isWordElement(t.Name, "r"):
				runDepth++
			case runDepth == 0:
			case isWordElement(t.Name, "t"):
				inText = true
			case isWordElement(t.Name, "tab"):
				text.WriteByte('\t')
			case isWordElement(t.Name, "br"), isWordElement(t.Name, "cr"):
				text.WriteByte('\n')
			case isWordElement(t.Name, "noBreakHyphen"):
				text.WriteByte('-')
			}
		case xml.EndElement:
			switch {
			case isWordElement(t.Name, "body"):
				inBody = false
			case isWordElement(t.Name, "p") && paraDepth > 0:
				paraDepth--
				if paraDepth > 0 {
					// A paragraph nested in a text box.
					text.WriteByte('\n')
					continue
				}
				paragraphs = append(paragraphs, strings.TrimSpace(text.String()))
				text.Reset()
			case isWordElement(t.Name, "r") && runDepth > 0:
				runDepth--
			case isWordElement(t.Name, "t"):
				inText = false
			}
		case xml.CharData:
			if inText {
				text.Write(t)
			}
		}
	}
	return paragraphs, nil
}

func isWordElement(name xml.Name, local string) bool {
	return name.Local == local && (name.Space == wordMLNamespace || name.Space == wordMLStrictNamespace)
}
