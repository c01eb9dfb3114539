package telegram

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"slices"
	"strconv"
	"strings"
	"sync"
	"time"

	"ai-health-advisor/internal/advisor"
	"ai-health-advisor/internal/app"
	"ai-health-advisor/internal/config"
	"ai-health-advisor/internal/health"
	"ai-health-advisor/internal/history"
	"ai-health-advisor/internal/logger"
	"ai-health-advisor/internal/metrics"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

const (
	maxMessageRunes = 4000
	historyLimit    = 5
	requestTimeout  = 3 * time.Minute

	helpText = "🩺 *AI Health Advisor*\n\n" +
		"Send a lab report (PDF or photo) to add it to your health history.\n\n" +
		"/nutrition - nutrition plan\n" +
		"/workout - workout plan\n" +
		"/history - recent records\n\n" +
		"Or just ask a question."
)

// Service is the application surface the bot drives.
type Service interface {
	IngestReport(ctx context.Context, userID, name string, src io.Reader, reportType history.ReportType) (app.IngestResult, error)
	History(ctx context.Context, userID, query string, limit int) []history.Record
	Nutrition(ctx context.Context, userID string, save bool) (health.NutritionRecommendation, error)
	Workout(ctx context.Context, userID string, rec *health.NutritionRecommendation, save bool) (health.WorkoutRecommendation, error)
	Respond(ctx context.Context, userID, message string) (advisor.Reply, error)
	Usage(ctx context.Context, days int) ([]metrics.DailyUsage, error)
	SysHealth() metrics.SysHealth
}

// sender is the part of *tgbotapi.BotAPI the bot uses.
type sender interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
	Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error)
	GetFileDirectURL(fileID string) (string, error)
}

// Bot wraps the Telegram API and the health advisor.
type Bot struct {
	api        sender
	svc        Service
	cfg        *config.Config
	httpClient *http.Client
	log        *logger.Logger

	// latest nutrition plan per user, reused by /workout
	mu        sync.Mutex
	nutrition map[string]health.NutritionRecommendation
}

// NewBot initializes the Telegram Bot and sets the Webhook.
func NewBot(cfg *config.Config, svc Service, log *logger.Logger) (*Bot, error) {
	if cfg.TelegramBotToken == "" {
		return nil, fmt.Errorf("TELEGRAM_BOT_TOKEN environment variable not set")
	}
	api, err := tgbotapi.NewBotAPI(cfg.TelegramBotToken)
	if err != nil {
		return nil, fmt.Errorf("failed to init telegram api: %w", err)
	}
	log.Info("Authorized on Telegram", "account", api.Self.UserName)

	if cfg.TelegramWebhookURL != "" {
		wh, err := tgbotapi.NewWebhook(cfg.TelegramWebhookURL)
		if err != nil {
			return nil, fmt.Errorf("invalid webhook url: %w", err)
		}
		resp, err := api.Request(wh)
		if err != nil {
			return nil, fmt.Errorf("failed to set webhook to %s: %w", cfg.TelegramWebhookURL, err)
		}
		log.Info("Webhook set", "description", resp.Description)
	}

	return newBot(api, svc, cfg, log), nil
}

func newBot(api sender, svc Service, cfg *config.Config, log *logger.Logger) *Bot {
	return &Bot{
		api:        api,
		svc:        svc,
		cfg:        cfg,
		httpClient: &http.Client{Timeout: 60 * time.Second},
		log:        log,
		nutrition:  make(map[string]health.NutritionRecommendation),
	}
}

// WebhookHandler receives updates posted by Telegram.
func (b *Bot) WebhookHandler() http.HandlerFunc {
	return b.handleWebhook
}

func (b *Bot) handleWebhook(w http.ResponseWriter, r *http.Request) {
	var update tgbotapi.Update
	if err := json.NewDecoder(r.Body).Decode(&update); err != nil {
		b.log.Warn("Error parsing update", "error", err)
		w.WriteHeader(http.StatusBadRequest)
		return
	}
	w.WriteHeader(http.StatusOK)

	msg := update.Message
	if msg == nil || msg.From == nil {
		return
	}
	if !b.isAllowed(msg.From.ID) {
		b.log.Warn("Unauthorized access attempt", "telegram_id", msg.From.ID, "username", msg.From.UserName)
		return
	}

	go b.processMessage(msg)
}

func (b *Bot) isAllowed(id int64) bool {
	return slices.Contains(b.cfg.TelegramAllowedUserIDs, id)
}

func (b *Bot) processMessage(msg *tgbotapi.Message) {
	ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
	defer cancel()
	userID := strconv.FormatInt(msg.From.ID, 10)

	switch {
	case msg.Document != nil:
		b.handleUpload(ctx, msg, userID, msg.Document.FileID, msg.Document.FileName)
	case len(msg.Photo) > 0:
		// The last size is the largest.
		photo := msg.Photo[len(msg.Photo)-1]
		b.handleUpload(ctx, msg, userID, photo.FileID, "photo_"+photo.FileUniqueID+".jpg")
	case msg.IsCommand():
		b.handleCommand(ctx, msg, userID)
	case strings.TrimSpace(msg.Text) != "":
		b.handleChat(ctx, msg, userID)
	}
}

func (b *Bot) handleCommand(ctx context.Context, msg *tgbotapi.Message, userID string) {
	switch msg.Command() {
	case "start", "help":
		b.sendMarkdown(msg.Chat.ID, helpText)
	case "nutrition":
		b.handleNutrition(ctx, msg, userID)
	case "workout":
		b.handleWorkout(ctx, msg, userID)
	case "history":
		b.handleHistory(ctx, msg, userID)
	case "metrics":
		if msg.From.ID != b.cfg.AdminTelegramID {
			b.api.Send(tgbotapi.NewMessage(msg.Chat.ID, "⛔ Access Denied: Admin only."))
			return
		}
		b.handleMetricsCommand(ctx, msg.Chat.ID)
	default:
		b.handleChat(ctx, msg, userID)
	}
}

// status posts a placeholder message that is edited once work completes.
func (b *Bot) status(chatID int64, text string) (int, bool) {
	m := tgbotapi.NewMessage(chatID, text)
	m.ParseMode = tgbotapi.ModeMarkdown
	sent, err := b.api.Send(m)
	if err != nil {
		b.log.Error("Failed to send initial reply", "error", err)
		return 0, false
	}
	return sent.MessageID, true
}

func (b *Bot) handleUpload(ctx context.Context, msg *tgbotapi.Message, userID, fileID, name string) {
	messageID, ok := b.status(msg.Chat.ID, "📄 *Reading your report...*")
	if !ok {
		return
	}

	body, err := b.download(ctx, fileID)
	if err != nil {
		b.log.Error("Failed to download file", "user_id", userID, "error", err)
		b.edit(msg.Chat.ID, messageID, "❌ Could not download the file. Please try again.")
		return
	}
	defer body.Close()

	res, err := b.svc.IngestReport(ctx, userID, name, body, history.ReportBlood)
	if err != nil {
		b.log.Error("Failed to ingest report", "user_id", userID, "error", err)
		b.edit(msg.Chat.ID, messageID, "❌ Could not save the report.")
		return
	}
	b.edit(msg.Chat.ID, messageID, formatIngestResult(res))
}

func (b *Bot) download(ctx context.Context, fileID string) (io.ReadCloser, error) {
	url, err := b.api.GetFileDirectURL(fileID)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve file url: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	resp, err := b.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to download file: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		resp.Body.Close()
		return nil, fmt.Errorf("file download returned status %d", resp.StatusCode)
	}
	return resp.Body, nil
}

func (b *Bot) handleNutrition(ctx context.Context, msg *tgbotapi.Message, userID string) {
	messageID, ok := b.status(msg.Chat.ID, "🥗 *Thinking...*\n(Analyzing your profile and history)")
	if !ok {
		return
	}
	rec, err := b.svc.Nutrition(ctx, userID, true)
	if err != nil {
		b.log.Error("Nutrition plan failed", "user_id", userID, "error", err)
		b.edit(msg.Chat.ID, messageID, "❌ Could not load your profile.")
		return
	}
	b.mu.Lock()
	b.nutrition[userID] = rec
	b.mu.Unlock()

	planText, groceryText := formatNutritionMarkdownParts(rec)
	b.edit(msg.Chat.ID, messageID, planText)
	if groceryText != "" {
		b.sendMarkdown(msg.Chat.ID, groceryText)
	}
}

func (b *Bot) handleWorkout(ctx context.Context, msg *tgbotapi.Message, userID string) {
	messageID, ok := b.status(msg.Chat.ID, "🏋️ *Thinking...*\n(Building your weekly plan)")
	if !ok {
		return
	}
	var rec *health.NutritionRecommendation
	b.mu.Lock()
	if r, found := b.nutrition[userID]; found {
		rec = &r
	}
	b.mu.Unlock()

	plan, err := b.svc.Workout(ctx, userID, rec, true)
	if err != nil {
		b.log.Error("Workout plan failed", "user_id", userID, "error", err)
		b.edit(msg.Chat.ID, messageID, "❌ Could not load your profile.")
		return
	}
	b.edit(msg.Chat.ID, messageID, formatWorkoutMarkdown(plan))
}

func (b *Bot) handleHistory(ctx context.Context, msg *tgbotapi.Message, userID string) {
	query := strings.TrimSpace(msg.CommandArguments())
	records := b.svc.History(ctx, userID, query, historyLimit)
	b.send(msg.Chat.ID, history.BuildContext(records))
}

func (b *Bot) handleChat(ctx context.Context, msg *tgbotapi.Message, userID string) {
	reply, err := b.svc.Respond(ctx, userID, msg.Text)
	if err != nil {
		b.log.Error("Chat failed", "user_id", userID, "error", err)
		b.send(msg.Chat.ID, "Sorry, I couldn't process your question. Please try again later.")
		return
	}
	b.send(msg.Chat.ID, reply.Text)
}

func (b *Bot) handleMetricsCommand(ctx context.Context, chatID int64) {
	usage, err := b.svc.Usage(ctx, 7)
	if err != nil {
		b.api.Send(tgbotapi.NewMessage(chatID, "❌ Error fetching metrics."))
		return
	}
	b.sendMarkdown(chatID, formatMetricsMarkdown(usage, b.svc.SysHealth()))
}

func (b *Bot) edit(chatID int64, messageID int, text string) {
	e := tgbotapi.NewEditMessageText(chatID, messageID, truncate(text))
	e.ParseMode = tgbotapi.ModeMarkdown
	if _, err := b.api.Send(e); err != nil {
		// Model output may not be valid Markdown.
		e.ParseMode = ""
		if _, err := b.api.Send(e); err != nil {
			b.log.Error("Failed to edit message", "error", err)
		}
	}
}

func (b *Bot) sendMarkdown(chatID int64, text string) {
	m := tgbotapi.NewMessage(chatID, truncate(text))
	m.ParseMode = tgbotapi.ModeMarkdown
	if _, err := b.api.Send(m); err != nil {
		b.send(chatID, text)
	}
}

func (b *Bot) send(chatID int64, text string) {
	if _, err := b.api.Send(tgbotapi.NewMessage(chatID, truncate(text))); err != nil {
		b.log.Error("Failed to send message", "error", err)
	}
}

func truncate(s string) string {
	r := []rune(s)
	if len(r) <= maxMessageRunes {
		return s
	}
	return string(r[:maxMessageRunes]) + "…"
}
