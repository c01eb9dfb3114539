package telegram

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"ai-health-advisor/internal/advisor"
	"ai-health-advisor/internal/app"
	"ai-health-advisor/internal/config"
	"ai-health-advisor/internal/extraction"
	"ai-health-advisor/internal/health"
	"ai-health-advisor/internal/history"
	"ai-health-advisor/internal/logger"
	"ai-health-advisor/internal/metrics"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

type mockSender struct {
	mu      sync.Mutex
	sent    []tgbotapi.Chattable
	fileURL string
}

func (m *mockSender) Send(c tgbotapi.Chattable) (tgbotapi.Message, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sent = append(m.sent, c)
	return tgbotapi.Message{MessageID: len(m.sent)}, nil
}

func (m *mockSender) Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error) {
	return &tgbotapi.APIResponse{Ok: true}, nil
}

func (m *mockSender) GetFileDirectURL(fileID string) (string, error) {
	if m.fileURL == "" {
		return "", errors.New("no file")
	}
	return m.fileURL + "/" + fileID, nil
}

// texts returns the text of every message and edit sent so far.
func (m *mockSender) texts() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []string
	for _, c := range m.sent {
		switch v := c.(type) {
		case tgbotapi.MessageConfig:
			out = append(out, v.Text)
		case tgbotapi.EditMessageTextConfig:
			out = append(out, v.Text)
		}
	}
	return out
}

type mockService struct {
	ingested    string
	ingestName  string
	workoutRec  *health.NutritionRecommendation
	historyUser string
	chatUser    string
}

func (m *mockService) IngestReport(ctx context.Context, userID, name string, src io.Reader, reportType history.ReportType) (app.IngestResult, error) {
	b, _ := io.ReadAll(src)
	m.ingested = string(b)
	m.ingestName = name
	return app.IngestResult{
		Extraction:     extraction.Result{Text: "Hemoglobin 13.5 g/dL"},
		Stored:         true,
		ProfileUpdated: reportType == history.ReportBlood,
	}, nil
}

func (m *mockService) History(ctx context.Context, userID, query string, limit int) []history.Record {
	m.historyUser = userID
	return nil
}

func (m *mockService) Nutrition(ctx context.Context, userID string, save bool) (health.NutritionRecommendation, error) {
	return health.NutritionRecommendation{
		BMI:               22.5,
		WeightStatus:      health.WeightNormal,
		CalorieTarget:     health.IntPtr(2000),
		MacroBreakdown:    health.MacroBreakdown{Raw: "Unknown"},
		NutritionGuidance: "Eat more greens.",
		GroceryList:       "- Spinach",
	}, nil
}

func (m *mockService) Workout(ctx context.Context, userID string, rec *health.NutritionRecommendation, save bool) (health.WorkoutRecommendation, error) {
	m.workoutRec = rec
	return advisor.WorkoutFallback("LLM init failed."), nil
}

func (m *mockService) Respond(ctx context.Context, userID, message string) (advisor.Reply, error) {
	m.chatUser = userID
	return advisor.Reply{Text: "reply to " + message}, nil
}

func (m *mockService) Usage(ctx context.Context, days int) ([]metrics.DailyUsage, error) {
	return []metrics.DailyUsage{{Date: "2026-10-16", TotalPrompt: 100, TotalCompletion: 50, TotalExecution: 2}}, nil
}

func (m *mockService) SysHealth() metrics.SysHealth {
	return metrics.SysHealth{AllocMB: 12, SysMB: 30, Goroutines: 8, DataSizes: map[string]string{"data/health.db": "1.0 MB"}}
}

func newTestBot() (*Bot, *mockSender, *mockService) {
	api := &mockSender{}
	svc := &mockService{}
	cfg := &config.Config{TelegramAllowedUserIDs: []int64{42}, AdminTelegramID: 1}
	return newBot(api, svc, cfg, logger.NewNop()), api, svc
}

func command(text string, fromID int64) *tgbotapi.Message {
	cmdLen := len(text)
	if i := strings.Index(text, " "); i > 0 {
		cmdLen = i
	}
	return &tgbotapi.Message{
		From:     &tgbotapi.User{ID: fromID},
		Chat:     &tgbotapi.Chat{ID: fromID},
		Text:     text,
		Entities: []tgbotapi.MessageEntity{{Type: "bot_command", Offset: 0, Length: cmdLen}},
	}
}

func TestProcessMessage(t *testing.T) {
	t.Run("Chat text", func(t *testing.T) {
		bot, api, svc := newTestBot()
		bot.processMessage(&tgbotapi.Message{
			From: &tgbotapi.User{ID: 42},
			Chat: &tgbotapi.Chat{ID: 42},
			Text: "how much water?",
		})
		if svc.chatUser != "42" {
			t.Errorf("Expected user id '42', got '%s'", svc.chatUser)
		}
		texts := api.texts()
		if len(texts) != 1 || texts[0] != "reply to how much water?" {
			t.Errorf("Unexpected replies: %v", texts)
		}
	})

	t.Run("History command", func(t *testing.T) {
		bot, api, svc := newTestBot()
		bot.processMessage(command("/history", 42))
		if svc.historyUser != "42" {
			t.Errorf("Expected history for '42', got '%s'", svc.historyUser)
		}
		texts := api.texts()
		if len(texts) != 1 || texts[0] != history.NoHistoryText {
			t.Errorf("Unexpected replies: %v", texts)
		}
	})

	t.Run("Metrics requires admin", func(t *testing.T) {
		bot, api, _ := newTestBot()
		bot.processMessage(command("/metrics", 42))
		texts := api.texts()
		if len(texts) != 1 || !strings.Contains(texts[0], "Admin only") {
			t.Errorf("Expected access denied, got %v", texts)
		}

		bot, api, _ = newTestBot()
		bot.processMessage(command("/metrics", 1))
		texts = api.texts()
		if len(texts) != 1 || !strings.Contains(texts[0], "150 tokens (2 execs, 0 fallbacks)") {
			t.Errorf("Unexpected metrics report: %v", texts)
		}
	})

	t.Run("Workout reuses nutrition plan", func(t *testing.T) {
		bot, _, svc := newTestBot()
		bot.processMessage(command("/workout", 42))
		if svc.workoutRec != nil {
			t.Error("Expected no nutrition plan before /nutrition")
		}
		bot.processMessage(command("/nutrition", 42))
		bot.processMessage(command("/workout", 42))
		if svc.workoutRec == nil || svc.workoutRec.CalorieTargetText() != "2000" {
			t.Errorf("Expected cached nutrition plan, got %+v", svc.workoutRec)
		}
	})

	t.Run("Document upload", func(t *testing.T) {
		files := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte("%PDF-1.4 labs"))
		}))
		defer files.Close()

		bot, api, svc := newTestBot()
		api.fileURL = files.URL
		bot.processMessage(&tgbotapi.Message{
			From:     &tgbotapi.User{ID: 42},
			Chat:     &tgbotapi.Chat{ID: 42},
			Document: &tgbotapi.Document{FileID: "f1", FileName: "labs.pdf"},
		})

		if svc.ingested != "%PDF-1.4 labs" || svc.ingestName != "labs.pdf" {
			t.Errorf("Unexpected ingest: %q %q", svc.ingestName, svc.ingested)
		}
		texts := api.texts()
		if len(texts) != 2 {
			t.Fatalf("Expected status and edit, got %v", texts)
		}
		if !strings.Contains(texts[1], "Report saved") || !strings.Contains(texts[1], "Hemoglobin") {
			t.Errorf("Unexpected ingest reply: %s", texts[1])
		}
	})

	t.Run("Download failure", func(t *testing.T) {
		bot, api, svc := newTestBot()
		bot.processMessage(&tgbotapi.Message{
			From:  &tgbotapi.User{ID: 42},
			Chat:  &tgbotapi.Chat{ID: 42},
			Photo: []tgbotapi.PhotoSize{{FileID: "small"}, {FileID: "big", FileUniqueID: "u1"}},
		})
		if svc.ingested != "" {
			t.Error("Nothing should be ingested when the download fails")
		}
		texts := api.texts()
		if len(texts) != 2 || !strings.Contains(texts[1], "Could not download") {
			t.Errorf("Unexpected replies: %v", texts)
		}
	})
}

func TestWebhookRejectsUnknownUsers(t *testing.T) {
	bot, api, _ := newTestBot()
	body := `{"update_id":1,"message":{"message_id":1,"from":{"id":7},"chat":{"id":7},"text":"hi"}}`
	rec := httptest.NewRecorder()
	bot.handleWebhook(rec, httptest.NewRequest(http.MethodPost, "/webhook", strings.NewReader(body)))

	if rec.Code != http.StatusOK {
		t.Errorf("Expected 200, got %d", rec.Code)
	}
	if len(api.texts()) != 0 {
		t.Error("Unknown users must not get a reply")
	}

	rec = httptest.NewRecorder()
	bot.handleWebhook(rec, httptest.NewRequest(http.MethodPost, "/webhook", strings.NewReader("{")))
	if rec.Code != http.StatusBadRequest {
		t.Errorf("Expected 400 for malformed update, got %d", rec.Code)
	}
}

func TestFormatNutritionMarkdownParts(t *testing.T) {
	rec := health.NutritionRecommendation{
		BMI:          24.2,
		WeightStatus: health.WeightNormal,
		MacroBreakdown: health.MacroBreakdown{
			Parsed:  true,
			Protein: health.MacroAmount{Grams: 120, Percent: 25},
			Carbs:   health.MacroAmount{Grams: 250, Percent: 50},
			Fats:    health.MacroAmount{Grams: 60, Percent: 25},
		},
		NutritionGuidance: "Balanced meals.",
		MealPlan:          "Day 1: oats",
		GroceryList:       "- Oats",
		NeedsDoctor:       true,
	}

	planOutput, groceryOutput := formatNutritionMarkdownParts(rec)

	if !strings.Contains(planOutput, "*BMI*: 24.2 (Normal weight)") {
		t.Error("Missing BMI line")
	}
	if !strings.Contains(planOutput, "*Calorie Target*: Unknown kcal/day") {
		t.Error("Missing unknown calorie target")
	}
	if !strings.Contains(planOutput, "Protein 120g (25%)") {
		t.Error("Missing macro line")
	}
	if !strings.Contains(planOutput, "consult a doctor") {
		t.Error("Missing doctor warning")
	}
	if !strings.Contains(groceryOutput, "🛒 *Grocery List*") {
		t.Error("Missing grocery list header")
	}
}

func TestFormatWorkoutMarkdown(t *testing.T) {
	plan := health.WorkoutRecommendation{
		CalorieBurnTarget: health.IntPtr(400),
		Overview:          "Three days of mixed training.",
		Schedule: []health.DayPlan{{
			Day: 1, Focus: "Cardio", Duration: "30 minutes", CalorieBurn: "300",
			Tutorials: []health.Tutorial{{Name: "Burpees", URL: "https://www.youtube.com/watch?v=abc"}},
		}},
	}
	out := formatWorkoutMarkdown(plan)
	if !strings.Contains(out, "*Calorie Burn Target*: 400 kcal/day") {
		t.Error("Missing burn target")
	}
	if !strings.Contains(out, "*Day 1*: Cardio") {
		t.Error("Missing day line")
	}
	if !strings.Contains(out, "[Burpees](https://www.youtube.com/watch?v=abc)") {
		t.Error("Missing tutorial link")
	}
}
