package app

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"testing"

	"ai-health-advisor/internal/advisor"
	"ai-health-advisor/internal/database"
	"ai-health-advisor/internal/extraction"
	"ai-health-advisor/internal/health"
	"ai-health-advisor/internal/history"
	"ai-health-advisor/internal/logger"
	"ai-health-advisor/internal/storage"
)

type mockExtractor struct {
	res   extraction.Result
	calls []extraction.Document
}

func (m *mockExtractor) Extract(ctx context.Context, doc extraction.Document) extraction.Result {
	m.calls = append(m.calls, doc)
	return m.res
}

type mockProfiles struct {
	stored      map[string]health.StoredProfile
	bloodReport map[string]string
	getErr      error
}

func newMockProfiles() *mockProfiles {
	return &mockProfiles{stored: map[string]health.StoredProfile{}, bloodReport: map[string]string{}}
}

func (m *mockProfiles) Save(ctx context.Context, userID string, p health.Profile, goalText string) error {
	m.stored[userID] = health.StoredProfile{UserID: userID, Profile: p, GoalText: goalText}
	return nil
}

func (m *mockProfiles) Get(ctx context.Context, userID string) (health.StoredProfile, error) {
	if m.getErr != nil {
		return health.StoredProfile{}, m.getErr
	}
	sp, ok := m.stored[userID]
	if !ok {
		return health.StoredProfile{}, health.ErrProfileNotFound
	}
	return sp, nil
}

func (m *mockProfiles) UpdateBloodReport(ctx context.Context, userID, report string) error {
	m.bloodReport[userID] = report
	return nil
}

func newTestApp(t *testing.T, ext Extractor, profiles ProfileStore) (*App, *history.Store) {
	t.Helper()
	log := logger.NewNop()
	db, err := database.NewDB(filepath.Join(t.TempDir(), "test.db"), log)
	if err != nil {
		t.Fatalf("failed to open database: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	reports, err := storage.NewReportStore(t.TempDir())
	if err != nil {
		t.Fatalf("failed to create report store: %v", err)
	}
	hist := history.NewStore(db.SQL, nil, history.Options{Ordering: history.OrderChronological}, log)
	adv := advisor.New(nil, hist, log, advisor.Options{})
	return NewApp(nil, ext, reports, hist, profiles, adv, nil, log), hist
}

func TestIngestReport(t *testing.T) {
	ctx := context.Background()

	t.Run("Blood report", func(t *testing.T) {
		ext := &mockExtractor{res: extraction.Result{
			Text:   "Hemoglobin 13.5 g/dL",
			Tables: []extraction.Table{{Rows: [][]string{{"Test", "Value"}, {"LDL", "130"}}}},
		}}
		profiles := newMockProfiles()
		a, hist := newTestApp(t, ext, profiles)

		res, err := a.IngestReport(ctx, "u1", "labs.pdf", strings.NewReader("%PDF-1.4"), history.ReportBlood)
		if err != nil {
			t.Fatalf("IngestReport failed: %v", err)
		}
		if !res.Stored {
			t.Error("Expected report text to be stored in history")
		}
		if !res.ProfileUpdated {
			t.Error("Expected profile blood report to be updated")
		}
		if len(ext.calls) != 1 || ext.calls[0].Kind != extraction.KindPDF {
			t.Errorf("Expected one pdf extraction, got %+v", ext.calls)
		}

		records := hist.Query(ctx, "u1", 10)
		if len(records) != 1 {
			t.Fatalf("Expected 1 history record, got %d", len(records))
		}
		want := "Hemoglobin 13.5 g/dL\n\nTable 1:\nTest | Value\nLDL | 130"
		if records[0].Text != want {
			t.Errorf("Expected history text %q, got %q", want, records[0].Text)
		}
		if profiles.bloodReport["u1"] != want {
			t.Errorf("Expected blood report %q, got %q", want, profiles.bloodReport["u1"])
		}

		saved, err := a.reports.LoadExtraction(res.Report)
		if err != nil {
			t.Fatalf("Failed to load extraction sidecar: %v", err)
		}
		if saved.Text != "Hemoglobin 13.5 g/dL" {
			t.Errorf("Unexpected sidecar text %q", saved.Text)
		}
	})

	t.Run("Scan report leaves profile untouched", func(t *testing.T) {
		ext := &mockExtractor{res: extraction.Result{Text: "Mild consolidation"}}
		profiles := newMockProfiles()
		a, _ := newTestApp(t, ext, profiles)

		res, err := a.IngestReport(ctx, "u1", "xray.png", strings.NewReader("png"), history.ReportScan)
		if err != nil {
			t.Fatalf("IngestReport failed: %v", err)
		}
		if res.ProfileUpdated {
			t.Error("Scan report must not update the blood report")
		}
		if len(profiles.bloodReport) != 0 {
			t.Errorf("Unexpected blood report update: %v", profiles.bloodReport)
		}
	})

	t.Run("Empty extraction", func(t *testing.T) {
		ext := &mockExtractor{res: extraction.Result{Text: ""}}
		a, hist := newTestApp(t, ext, newMockProfiles())

		res, err := a.IngestReport(ctx, "u1", "blank.pdf", strings.NewReader("x"), "")
		if err != nil {
			t.Fatalf("IngestReport failed: %v", err)
		}
		if res.Stored {
			t.Error("Empty extraction must not be stored")
		}
		if got := hist.Query(ctx, "u1", 10); len(got) != 0 {
			t.Errorf("Expected no history, got %d records", len(got))
		}
	})

	t.Run("Placeholder extraction", func(t *testing.T) {
		ext := &mockExtractor{res: extraction.Result{Text: extraction.PlaceholderText}}
		profiles := newMockProfiles()
		a, hist := newTestApp(t, ext, profiles)

		res, err := a.IngestReport(ctx, "u1", "broken.pdf", strings.NewReader("x"), history.ReportBlood)
		if err != nil {
			t.Fatalf("IngestReport failed: %v", err)
		}
		if res.Stored || res.ProfileUpdated {
			t.Errorf("Placeholder text must not be stored, got %+v", res)
		}
		if got := hist.Query(ctx, "u1", 10); len(got) != 0 {
			t.Errorf("Expected no history, got %d records", len(got))
		}
		if len(profiles.bloodReport) != 0 {
			t.Errorf("Unexpected blood report update: %v", profiles.bloodReport)
		}
	})

	t.Run("Empty user", func(t *testing.T) {
		a, _ := newTestApp(t, &mockExtractor{}, newMockProfiles())
		_, err := a.IngestReport(ctx, "", "labs.pdf", strings.NewReader("x"), history.ReportBlood)
		if !errors.Is(err, history.ErrEmptyUserID) {
			t.Errorf("Expected ErrEmptyUserID, got %v", err)
		}
	})
}

func TestPatientContext(t *testing.T) {
	ctx := context.Background()

	t.Run("Stored profile and goal", func(t *testing.T) {
		profiles := newMockProfiles()
		profiles.stored["u1"] = health.StoredProfile{
			UserID:   "u1",
			Profile:  health.Profile{Name: "Ana", Age: 30},
			GoalText: "I want to lose 5 kg in 8 weeks",
		}
		a, _ := newTestApp(t, &mockExtractor{}, profiles)

		pc, err := a.PatientContext(ctx, "u1")
		if err != nil {
			t.Fatalf("PatientContext failed: %v", err)
		}
		if pc.UserID != "u1" || pc.Profile.Name != "Ana" {
			t.Errorf("Unexpected context %+v", pc)
		}
		if pc.Goal.Type != health.GoalLose {
			t.Errorf("Expected lose goal, got %q", pc.Goal.Type)
		}
	})

	t.Run("Missing profile", func(t *testing.T) {
		a, _ := newTestApp(t, &mockExtractor{}, newMockProfiles())
		pc, err := a.PatientContext(ctx, "nobody")
		if err != nil {
			t.Fatalf("PatientContext failed: %v", err)
		}
		if pc.UserID != "nobody" || pc.Profile.Name != "" {
			t.Errorf("Expected empty profile, got %+v", pc)
		}
	})

	t.Run("Repository failure", func(t *testing.T) {
		profiles := newMockProfiles()
		profiles.getErr = errors.New("disk I/O error")
		a, _ := newTestApp(t, &mockExtractor{}, profiles)
		if _, err := a.PatientContext(ctx, "u1"); err == nil {
			t.Error("Expected error from failing repository")
		}
	})
}

func TestNutritionWithoutModel(t *testing.T) {
	a, hist := newTestApp(t, &mockExtractor{}, newMockProfiles())
	ctx := context.Background()

	rec, err := a.Nutrition(ctx, "u1", true)
	if err != nil {
		t.Fatalf("Nutrition failed: %v", err)
	}
	if rec.NutritionGuidance != "LLM init failed" {
		t.Errorf("Expected fallback guidance, got %q", rec.NutritionGuidance)
	}
	// The fallback summary is still recorded.
	if got := hist.Query(ctx, "u1", 10); len(got) == 0 {
		t.Error("Expected saved recommendation summary")
	}
}

func TestReportText(t *testing.T) {
	res := extraction.Result{
		Tables: []extraction.Table{{}, {Rows: [][]string{{"a", "b"}}}},
	}
	if got := ReportText(res); got != "Table 2:\na | b" {
		t.Errorf("Unexpected report text %q", got)
	}
}

func TestSaveProfileValidation(t *testing.T) {
	profiles := newMockProfiles()
	a, _ := newTestApp(t, &mockExtractor{}, profiles)
	ctx := context.Background()

	if err := a.SaveProfile(ctx, "u1", health.Profile{Age: 200}, ""); err == nil {
		t.Error("Expected validation error for age 200")
	}
	if err := a.SaveProfile(ctx, "u1", health.Profile{Age: 35, HeightM: 1.8, WeightKg: 80}, "maintain"); err != nil {
		t.Fatalf("SaveProfile failed: %v", err)
	}
	if profiles.stored["u1"].GoalText != "maintain" {
		t.Errorf("Expected goal to be stored, got %+v", profiles.stored["u1"])
	}
}

func TestHistoryDefaultLimit(t *testing.T) {
	a, hist := newTestApp(t, &mockExtractor{}, newMockProfiles())
	ctx := context.Background()

	for i := 0; i < 12; i++ {
		if !hist.Append(ctx, "u1", history.ReportSymptoms, fmt.Sprintf("note %d", i)) {
			t.Fatalf("Append %d failed", i)
		}
	}

	if got := a.History(ctx, "u1", "", 0); len(got) != defaultHistoryLimit {
		t.Errorf("Expected %d records for an omitted limit, got %d", defaultHistoryLimit, len(got))
	}
	if got := a.History(ctx, "u1", "", 3); len(got) != 3 {
		t.Errorf("Expected 3 records, got %d", len(got))
	}
}
