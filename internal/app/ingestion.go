package app

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"ai-health-advisor/internal/extraction"
	"ai-health-advisor/internal/history"
	"ai-health-advisor/internal/logger"
	"ai-health-advisor/internal/storage"
)

// maxBloodReportChars bounds the blood report text copied into the profile,
// which is rendered into every nutrition prompt.
const maxBloodReportChars = 2000

// IngestResult describes one processed upload.
type IngestResult struct {
	Report         storage.Report    `json:"report"`
	Extraction     extraction.Result `json:"extraction"`
	Stored         bool              `json:"stored"`
	ProfileUpdated bool              `json:"profile_updated"`
}

// IngestReport archives an uploaded report, extracts it and appends the
// text to the user's history. Blood reports also refresh the blood report
// field of the stored profile. Only archive failures are returned as
// errors; extraction and memory failures degrade into the result.
func (a *App) IngestReport(ctx context.Context, userID, name string, src io.Reader, reportType history.ReportType) (IngestResult, error) {
	if userID == "" {
		return IngestResult{}, history.ErrEmptyUserID
	}
	if reportType == "" {
		reportType = history.ReportBlood
	}
	log := a.log.With("user_id", userID, "report_type", string(reportType))

	report, err := a.reports.Save(userID, name, time.Now().UTC(), src)
	if err != nil {
		return IngestResult{}, fmt.Errorf("failed to archive report: %w", err)
	}
	log.Info("Report archived", "report_id", report.ID, "name", report.Name)

	res := a.extractor.Extract(ctx, extraction.NewDocument(report.Path))
	if err := a.reports.SaveExtraction(report, res); err != nil {
		log.Warn("Failed to save extraction sidecar", "report_id", report.ID, "error", err)
	}

	out := IngestResult{Report: report, Extraction: res}
	text := ReportText(res)
	if strings.TrimSpace(text) == "" {
		log.Warn("Nothing extracted from report", "report_id", report.ID)
		return out, nil
	}
	if res.Text == extraction.PlaceholderText && len(res.Tables) == 0 {
		log.Warn("Extraction pipeline unavailable, report not stored", "report_id", report.ID)
		return out, nil
	}

	out.Stored = a.AddHistory(ctx, userID, reportType, text)
	if !out.Stored {
		log.Warn("Report text not stored in history", "report_id", report.ID)
	}

	if reportType == history.ReportBlood && a.profiles != nil {
		if err := a.profiles.UpdateBloodReport(ctx, userID, truncate(text, maxBloodReportChars)); err != nil {
			log.Warn("Failed to update profile blood report", "error", err)
		} else {
			out.ProfileUpdated = true
		}
	}

	log.Info("Report ingested",
		"report_id", report.ID,
		"chars", len(res.Text),
		"tables", len(res.Tables),
		"preview", logger.Preview(res.Text, 100),
	)
	return out, nil
}

// ReportText is the history text of an extraction: the cleaned text
// followed by each table as pipe-separated rows.
func ReportText(res extraction.Result) string {
	var b strings.Builder
	b.WriteString(res.Text)
	for i, t := range res.Tables {
		if len(t.Rows) == 0 {
			continue
		}
		if b.Len() > 0 {
			b.WriteString("\n\n")
		}
		fmt.Fprintf(&b, "Table %d:", i+1)
		for _, row := range t.Rows {
			b.WriteString("\n")
			b.WriteString(strings.Join(row, " | "))
		}
	}
	return b.String()
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}
