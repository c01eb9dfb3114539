package extraction

import (
	"os"

	"ai-health-advisor/internal/logger"
	"ai-health-advisor/internal/metrics"

	"github.com/PuerkitoBio/goquery"
)

// boilerplateSelector matches page chrome that never carries report data.
const boilerplateSelector = "script, style, nav, footer, iframe, .ads"

// extractHTML handles reports exported from lab portals as web pages.
func (e *Engine) extractHTML(path string) Result {
	res := emptyResult()

	f, err := os.Open(path)
	if err != nil {
		e.log.Error("failed to open html report", "path", path, "error", err)
		return res
	}
	defer f.Close()

	doc, err := goquery.NewDocumentFromReader(f)
	if err != nil {
		e.log.Error("failed to parse html report", "path", path, "error", err)
		return res
	}

	res.Text, res.Tables = ParseHTML(doc)
	e.log.Info("used html extraction", "text", logger.Preview(res.Text, 100), "tables", len(res.Tables))
	metrics.ExtractionTotal.WithLabelValues("html").Inc()
	return res
}

// ParseHTML strips boilerplate and returns the cleaned body text together
// with one Table per <table> element.
func ParseHTML(doc *goquery.Document) (string, []Table) {
	doc.Find(boilerplateSelector).Remove()

	tables := []Table{}
	doc.Find("table").Each(func(_ int, tbl *goquery.Selection) {
		var rows [][]string
		tbl.Find("tr").Each(func(_ int, tr *goquery.Selection) {
			var cells []string
			tr.Find("th, td").Each(func(_ int, cell *goquery.Selection) {
				cells = append(cells, CleanText(cell.Text()))
			})
			if len(cells) > 0 {
				rows = append(rows, cells)
			}
		})
		if len(rows) > 0 {
			tables = append(tables, Table{Rows: rows})
		}
	})

	return CleanText(doc.Find("body").Text()), tables
}
