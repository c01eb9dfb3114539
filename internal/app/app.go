package app

import (
	"context"
	"errors"
	"fmt"

	"ai-health-advisor/internal/advisor"
	"ai-health-advisor/internal/config"
	"ai-health-advisor/internal/extraction"
	"ai-health-advisor/internal/health"
	"ai-health-advisor/internal/history"
	"ai-health-advisor/internal/logger"
	"ai-health-advisor/internal/metrics"
	"ai-health-advisor/internal/prompt"
	"ai-health-advisor/internal/storage"

	"github.com/go-playground/validator/v10"
)

var validate = validator.New()

// defaultHistoryLimit applies when a caller passes no limit.
const defaultHistoryLimit = 10

// Extractor turns an uploaded document into text and tables.
type Extractor interface {
	Extract(ctx context.Context, doc extraction.Document) extraction.Result
}

// HistoryStore is the memory store as seen by the app.
type HistoryStore interface {
	Append(ctx context.Context, userID string, reportType history.ReportType, text string) bool
	Query(ctx context.Context, userID string, limit int) []history.Record
	Search(ctx context.Context, userID, query string, limit int) []history.Record
}

// ProfileStore persists user profiles.
type ProfileStore interface {
	Save(ctx context.Context, userID string, p health.Profile, goalText string) error
	Get(ctx context.Context, userID string) (health.StoredProfile, error)
	UpdateBloodReport(ctx context.Context, userID, report string) error
}

// UsageStore serves the execution metrics reports.
type UsageStore interface {
	GetDailyUsage(ctx context.Context, days int) ([]metrics.DailyUsage, error)
	Cleanup(ctx context.Context, olderThanDays int) (int64, error)
}

// App holds the application's dependencies. Every surface (CLI, HTTP API,
// Telegram) goes through it so user identity is always an argument.
type App struct {
	cfg       *config.Config
	extractor Extractor
	reports   *storage.ReportStore
	history   HistoryStore
	profiles  ProfileStore
	advisor   *advisor.Advisor
	usage     UsageStore
	log       *logger.Logger

	closers []func() error
}

// NewApp creates and initializes a new App instance.
func NewApp(
	cfg *config.Config,
	extractor Extractor,
	reports *storage.ReportStore,
	hist HistoryStore,
	profiles ProfileStore,
	adv *advisor.Advisor,
	usage UsageStore,
	log *logger.Logger,
) *App {
	if log == nil {
		log = logger.NewNop()
	}
	if cfg == nil {
		cfg = &config.Config{}
	}
	return &App{
		cfg:       cfg,
		extractor: extractor,
		reports:   reports,
		history:   hist,
		profiles:  profiles,
		advisor:   adv,
		usage:     usage,
		log:       log,
	}
}

// Advisor exposes the recommendation orchestrator.
func (a *App) Advisor() *advisor.Advisor {
	return a.advisor
}

// Config returns the configuration the app was built with.
func (a *App) Config() *config.Config {
	return a.cfg
}

// Close releases clients and the database in reverse order of creation.
func (a *App) Close() error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// PatientContext assembles the explicit context for one user. A user with
// no stored profile gets an empty one; the history text is left for the
// advisor to load.
func (a *App) PatientContext(ctx context.Context, userID string) (health.PatientContext, error) {
	pc := health.PatientContext{UserID: userID}
	if a.profiles == nil {
		return pc, nil
	}
	stored, err := a.profiles.Get(ctx, userID)
	if err != nil {
		if errors.Is(err, health.ErrProfileNotFound) {
			return pc, nil
		}
		return pc, fmt.Errorf("failed to load profile: %w", err)
	}
	pc.Profile = stored.Profile
	if stored.GoalText != "" {
		pc.Goal = prompt.ParseGoal(stored.GoalText)
	}
	return pc, nil
}

// SaveProfile validates and stores a profile with its free-text goal.
func (a *App) SaveProfile(ctx context.Context, userID string, p health.Profile, goalText string) error {
	if a.profiles == nil {
		return fmt.Errorf("profile storage not configured")
	}
	if err := validate.Struct(p); err != nil {
		return fmt.Errorf("invalid profile: %w", err)
	}
	return a.profiles.Save(ctx, userID, p, goalText)
}

// Profile returns the stored profile for a user.
func (a *App) Profile(ctx context.Context, userID string) (health.StoredProfile, error) {
	if a.profiles == nil {
		return health.StoredProfile{}, health.ErrProfileNotFound
	}
	return a.profiles.Get(ctx, userID)
}

// Nutrition generates a nutrition plan for the stored user and optionally
// records its summaries in the history.
func (a *App) Nutrition(ctx context.Context, userID string, save bool) (health.NutritionRecommendation, error) {
	pc, err := a.PatientContext(ctx, userID)
	if err != nil {
		return health.NutritionRecommendation{}, err
	}
	rec := a.advisor.GenerateNutritionPlan(ctx, pc)
	if save {
		a.advisor.SaveNutrition(ctx, pc, rec)
	}
	return rec, nil
}

// Workout generates a workout plan. rec may be nil when no nutrition plan
// has been produced in this session.
func (a *App) Workout(ctx context.Context, userID string, rec *health.NutritionRecommendation, save bool) (health.WorkoutRecommendation, error) {
	pc, err := a.PatientContext(ctx, userID)
	if err != nil {
		return health.WorkoutRecommendation{}, err
	}
	pc.Recommendation = rec
	plan := a.advisor.GenerateWorkoutPlan(ctx, pc)
	if save {
		a.advisor.SaveWorkout(ctx, pc, plan)
	}
	return plan, nil
}

// Respond routes a chat message through greetings, actions and chat.
func (a *App) Respond(ctx context.Context, userID, message string) (advisor.Reply, error) {
	pc, err := a.PatientContext(ctx, userID)
	if err != nil {
		return advisor.Reply{}, err
	}
	return a.advisor.Respond(ctx, message, pc), nil
}

// RunAction executes a named quick action for the user.
func (a *App) RunAction(ctx context.Context, userID string, action advisor.Action) (advisor.ActionResult, error) {
	pc, err := a.PatientContext(ctx, userID)
	if err != nil {
		return advisor.ActionResult{}, err
	}
	return a.advisor.RunAction(ctx, pc, action), nil
}

// Extract runs the extraction engine on a local file without storing it.
func (a *App) Extract(ctx context.Context, path string) extraction.Result {
	return a.extractor.Extract(ctx, extraction.NewDocument(path))
}

// History lists a user's records in the configured order. A non-empty query
// switches to semantic search. A limit <= 0 means the default of 10.
func (a *App) History(ctx context.Context, userID, query string, limit int) []history.Record {
	if a.history == nil {
		return nil
	}
	if limit <= 0 {
		limit = defaultHistoryLimit
	}
	if query != "" {
		return a.history.Search(ctx, userID, query, limit)
	}
	return a.history.Query(ctx, userID, limit)
}

// AddHistory appends a free-text record, e.g. symptoms reported by the user.
func (a *App) AddHistory(ctx context.Context, userID string, reportType history.ReportType, text string) bool {
	if a.history == nil {
		return false
	}
	return a.history.Append(ctx, userID, reportType, text)
}

// Usage returns per-day token usage.
func (a *App) Usage(ctx context.Context, days int) ([]metrics.DailyUsage, error) {
	if a.usage == nil {
		return nil, fmt.Errorf("metrics storage not configured")
	}
	return a.usage.GetDailyUsage(ctx, days)
}

// CleanupMetrics removes execution metrics older than days.
func (a *App) CleanupMetrics(ctx context.Context, days int) (int64, error) {
	if a.usage == nil {
		return 0, fmt.Errorf("metrics storage not configured")
	}
	return a.usage.Cleanup(ctx, days)
}

// SysHealth reports memory and on-disk sizes of the data paths.
func (a *App) SysHealth() metrics.SysHealth {
	return metrics.GetSysHealth(a.cfg.DatabasePath, a.cfg.UploadDir)
}
