// Package history is the per-user semantic health log. Records are
// append-only; queries filter on exact user id and rank by embedding
// similarity or recency.
package history

import (
	"fmt"
	"strings"
	"time"
)

// ReportType labels what a record holds.
type ReportType string

const (
	ReportBlood                ReportType = "Blood"
	ReportWorkoutPlan          ReportType = "Workout Plan"
	ReportMealPlan             ReportType = "Meal Plan"
	ReportHealthRecommendation ReportType = "Health Recommendation"
	ReportSymptoms             ReportType = "Symptoms"
	ReportScan                 ReportType = "Scan"
)

// Record is one immutable entry of a user's health log.
type Record struct {
	ID         string     `json:"id"`
	UserID     string     `json:"user_id"`
	ReportType ReportType `json:"report_type"`
	Text       string     `json:"text"`
	Embedding  []float32  `json:"-"`
	Timestamp  time.Time  `json:"timestamp"`
	// Score is the similarity to the query that ranked this record.
	Score float64 `json:"score,omitempty"`
}

// Ordering selects how Query ranks a user's records.
type Ordering int

const (
	// OrderRelevance ranks by similarity to the neutral query, ties in insertion order.
	OrderRelevance Ordering = iota
	// OrderChronological returns newest records first.
	OrderChronological
)

// ParseOrdering accepts "relevance" or "chronological".
func ParseOrdering(s string) (Ordering, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "relevance":
		return OrderRelevance, nil
	case "chronological":
		return OrderChronological, nil
	default:
		return OrderRelevance, fmt.Errorf("unknown history ordering %q", s)
	}
}

func (o Ordering) String() string {
	if o == OrderChronological {
		return "chronological"
	}
	return "relevance"
}

// RecordID derives the record id from its owner, type and creation second.
func RecordID(userID string, reportType ReportType, ts time.Time) string {
	return fmt.Sprintf("%s_%s_%d", userID, reportType, ts.Unix())
}

// NoHistoryText is the context rendered for a user without records.
const NoHistoryText = "No previous health records found."

// BuildContext renders records as the history block of a prompt.
func BuildContext(records []Record) string {
	if len(records) == 0 {
		return NoHistoryText
	}
	var sb strings.Builder
	sb.WriteString("Recent Health History:\n")
	for _, r := range records {
		fmt.Fprintf(&sb, "---\n[%s - %s]\n%s\n", titleCase(string(r.ReportType)), r.Timestamp.UTC().Format("2006-01-02 15:04"), r.Text)
	}
	return sb.String()
}

func titleCase(s string) string {
	words := strings.Fields(s)
	for i, w := range words {
		words[i] = strings.ToUpper(w[:1]) + strings.ToLower(w[1:])
	}
	return strings.Join(words, " ")
}
