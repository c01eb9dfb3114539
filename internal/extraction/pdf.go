package extraction

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/ledongthuc/pdf"
)

const (
	// cellGapFactor: a horizontal gap wider than this many font sizes starts a new cell.
	cellGapFactor = 1.5
	// wordGapFactor: a gap wider than this many font sizes inside a cell is a space.
	wordGapFactor = 0.2
	minTableRows  = 2
)

// PDFTextExtractor reads the text layer of a PDF and finds tables by
// clustering positioned text runs into rows of aligned cells.
type PDFTextExtractor struct{}

func NewPDFTextExtractor() *PDFTextExtractor {
	return &PDFTextExtractor{}
}

// ExtractText returns the newline-joined page texts and any detected tables.
func (x *PDFTextExtractor) ExtractText(ctx context.Context, path string) (text string, tables []Table, err error) {
	// The parser panics on some malformed files.
	defer func() {
		if r := recover(); r != nil {
			text, tables, err = "", nil, fmt.Errorf("pdf parser panic: %v", r)
		}
	}()

	f, r, err := pdf.Open(path)
	if err != nil {
		return "", nil, fmt.Errorf("open pdf: %w", err)
	}
	defer f.Close()

	pages := make([]string, 0, r.NumPage())
	for i := 1; i <= r.NumPage(); i++ {
		if err := ctx.Err(); err != nil {
			return "", nil, err
		}
		p := r.Page(i)
		if p.V.IsNull() {
			pages = append(pages, "")
			continue
		}

		pageText, err := p.GetPlainText(nil)
		if err != nil {
			pageText = ""
		}
		pages = append(pages, pageText)

		rows, err := p.GetTextByRow()
		if err != nil {
			continue
		}
		tables = append(tables, tablesFromRows(rowCells(rows))...)
	}

	return strings.Join(pages, "\n"), tables, nil
}

// rowCells turns positioned text runs into per-row cell strings.
func rowCells(rows pdf.Rows) [][]string {
	out := make([][]string, 0, len(rows))
	for _, row := range rows {
		if row == nil || len(row.Content) == 0 {
			continue
		}
		runs := make([]pdf.Text, len(row.Content))
		copy(runs, row.Content)
		sort.SliceStable(runs, func(i, j int) bool { return runs[i].X < runs[j].X })

		var cells []string
		var cur strings.Builder
		prevEnd := runs[0].X
		for i, t := range runs {
			size := t.FontSize
			if size <= 0 {
				size = 10
			}
			gap := t.X - prevEnd
			if i > 0 && gap > size*cellGapFactor {
				cells = appendCell(cells, cur.String())
				cur.Reset()
			} else if i > 0 && gap > size*wordGapFactor {
				cur.WriteByte(' ')
			}
			cur.WriteString(t.S)
			prevEnd = t.X + t.W
		}
		cells = appendCell(cells, cur.String())
		if len(cells) > 0 {
			out = append(out, cells)
		}
	}
	return out
}

func appendCell(cells []string, s string) []string {
	s = CleanText(s)
	if s == "" {
		return cells
	}
	return append(cells, s)
}

// tablesFromRows groups consecutive multi-cell rows with equal cell counts.
func tablesFromRows(rows [][]string) []Table {
	var tables []Table
	var run [][]string

	flush := func() {
		if len(run) >= minTableRows {
			tables = append(tables, Table{Rows: run})
		}
		run = nil
	}

	for _, cells := range rows {
		if len(cells) < 2 {
			flush()
			continue
		}
		if len(run) > 0 && len(run[0]) != len(cells) {
			flush()
		}
		run = append(run, cells)
	}
	flush()
	return tables
}
