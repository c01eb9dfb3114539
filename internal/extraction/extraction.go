// Package extraction turns uploaded medical documents into plain text and
// tables. Machine-readable content is preferred; scanned pages fall back to
// optical recognition over rendered page images.
package extraction

import (
	"path/filepath"
	"strings"
)

// PlaceholderText is returned when the optical path had no page images to
// work on. It marks a broken pipeline rather than an empty document.
const PlaceholderText = "Consolidation noted"

// Kind is the document format.
type Kind string

const (
	KindPDF   Kind = "pdf"
	KindImage Kind = "image"
	KindHTML  Kind = "html"
)

// Document references an uploaded file on disk.
type Document struct {
	Path string
	Kind Kind
}

// NewDocument infers the kind from the file extension.
func NewDocument(path string) Document {
	return Document{Path: path, Kind: DetectKind(path)}
}

// DetectKind maps a file extension onto a Kind. Unknown extensions are
// treated as images so they still get an optical pass.
func DetectKind(path string) Kind {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".pdf":
		return KindPDF
	case ".html", ".htm":
		return KindHTML
	default:
		return KindImage
	}
}

// Table is an ordered grid of cell strings.
type Table struct {
	Rows    [][]string `json:"rows"`
	RawText string     `json:"raw_text,omitempty"`
}

// Result is the outcome of one extraction. Text is whitespace-normalised;
// Images is only populated when the optical path ran.
type Result struct {
	Text   string   `json:"text"`
	Tables []Table  `json:"tables"`
	Images []string `json:"images"`
}

func emptyResult() Result {
	return Result{Tables: []Table{}, Images: []string{}}
}

// CleanText trims s and collapses every whitespace run into one space.
func CleanText(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// DetectTable applies the OCR table heuristic to one page of recognised
// text: when the page has several lines and any of them carries a pipe or
// tab delimiter, the pipe-delimited lines become the rows of one table.
func DetectTable(raw string) (Table, bool) {
	lines := strings.Split(strings.TrimSpace(raw), "\n")
	if len(lines) <= 1 {
		return Table{}, false
	}
	delimited := false
	for _, line := range lines {
		if strings.ContainsAny(line, "|\t") {
			delimited = true
			break
		}
	}
	if !delimited {
		return Table{}, false
	}

	rows := [][]string{}
	for _, line := range lines {
		if !strings.Contains(line, "|") {
			continue
		}
		rows = append(rows, splitPipeRow(line))
	}
	return Table{Rows: rows, RawText: CleanText(raw)}, true
}

// splitPipeRow splits on pipes, trimming cells and dropping the empty
// border cells of "| a | b |" style rows.
func splitPipeRow(line string) []string {
	line = strings.TrimSpace(line)
	line = strings.TrimPrefix(line, "|")
	line = strings.TrimSuffix(line, "|")
	parts := strings.Split(line, "|")
	cells := make([]string, 0, len(parts))
	for _, p := range parts {
		cells = append(cells, CleanText(p))
	}
	return cells
}
