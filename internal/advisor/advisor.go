// Package advisor composes prompt building, the chat model and response
// parsing into the nutrition, workout and chat operations. Every public
// operation returns a well-formed value; model and transport failures end
// up in fallback fields and the log.
package advisor

import (
	"context"
	"errors"
	"time"

	"ai-health-advisor/internal/health"
	"ai-health-advisor/internal/history"
	"ai-health-advisor/internal/llm"
	"ai-health-advisor/internal/logger"
	"ai-health-advisor/internal/metrics"
	"ai-health-advisor/internal/shared"
)

const (
	healthSystemMessage  = "You are a health advisor with expertise in nutrition and fitness."
	workoutSystemMessage = "You are a fitness advisor with expertise in creating workout plans."

	nutritionMaxTokens = 1500
	workoutMaxTokens   = 1200
	chatMaxTokens      = 512

	defaultTimeout      = 60 * time.Second
	defaultHistoryLimit = 10
	defaultTutorials    = 3

	quotaExceededText = "Quota exceeded. Try again later."
	timeoutText       = "LLM request timed out"
)

// Operation names used in logs and metrics.
const (
	OpNutrition = "nutrition"
	OpWorkout   = "workout"
	OpChat      = "chat"
)

// HistoryStore is the slice of the memory store the advisor needs.
type HistoryStore interface {
	Append(ctx context.Context, userID string, reportType history.ReportType, text string) bool
	Query(ctx context.Context, userID string, limit int) []history.Record
}

// TutorialFinder enriches workout days with videos.
type TutorialFinder interface {
	FindTutorials(ctx context.Context, names []string, suffix string, max int) []health.Tutorial
}

// MetricsRecorder persists per-call usage.
type MetricsRecorder interface {
	RecordMeta(ctx context.Context, meta shared.CallMeta) error
}

type Options struct {
	// Timeout bounds every model call. A timeout is handled like an
	// unavailable model.
	Timeout      time.Duration
	HistoryLimit int
	// ComputeLocalBMI fills the nutrition fallback with the profile BMI.
	ComputeLocalBMI bool
	TutorialsPerDay int
}

// Advisor is built once per process and shared by all surfaces.
type Advisor struct {
	textGen   llm.TextGenerator
	history   HistoryStore
	tutorials TutorialFinder
	metrics   MetricsRecorder
	opts      Options
	log       *logger.Logger
}

// New builds an Advisor. A nil textGen means the chat model could not be
// initialised; every operation then answers with its fallback.
func New(textGen llm.TextGenerator, store HistoryStore, log *logger.Logger, opts Options) *Advisor {
	if opts.Timeout <= 0 {
		opts.Timeout = defaultTimeout
	}
	if opts.HistoryLimit <= 0 {
		opts.HistoryLimit = defaultHistoryLimit
	}
	if opts.TutorialsPerDay <= 0 {
		opts.TutorialsPerDay = defaultTutorials
	}
	return &Advisor{
		textGen: textGen,
		history: store,
		opts:    opts,
		log:     log.With("component", "advisor"),
	}
}

// WithTutorials enables video enrichment of workout days.
func (a *Advisor) WithTutorials(f TutorialFinder) *Advisor {
	a.tutorials = f
	return a
}

// WithMetrics persists token usage and latency of every call.
func (a *Advisor) WithMetrics(m MetricsRecorder) *Advisor {
	a.metrics = m
	return a
}

// Available reports whether a chat model is configured.
func (a *Advisor) Available() bool {
	return a.textGen != nil
}

// withHistory loads the user's history block when the caller did not
// provide one.
func (a *Advisor) withHistory(ctx context.Context, pc health.PatientContext) health.PatientContext {
	if pc.HistoryText != "" || a.history == nil || pc.UserID == "" {
		return pc
	}
	pc.HistoryText = history.BuildContext(a.history.Query(ctx, pc.UserID, a.opts.HistoryLimit))
	return pc
}

// complete issues one bounded completion request and records its outcome.
func (a *Advisor) complete(ctx context.Context, op, system, user string, maxTokens int) (llm.ContentResponse, error) {
	ctx, cancel := context.WithTimeout(ctx, a.opts.Timeout)
	defer cancel()

	start := time.Now()
	resp, err := a.textGen.GenerateContent(ctx, llm.ContentRequest{
		Messages:  llm.SystemAndUser(system, user),
		MaxTokens: maxTokens,
	})
	latency := time.Since(start)

	metrics.LLMLatency.WithLabelValues(op).Observe(latency.Seconds())
	metrics.LLMRequestsTotal.WithLabelValues(op, outcome(err)).Inc()
	a.record(ctx, shared.CallMeta{Operation: op, Usage: resp.Usage, Latency: latency, Fallback: err != nil})

	if err != nil {
		return llm.ContentResponse{}, err
	}
	a.log.Info("model response", "operation", op, "latency_ms", latency.Milliseconds(), "preview", logger.Preview(resp.Content, 100))
	return resp, nil
}

// unavailable records a call that never reached a model.
func (a *Advisor) unavailable(ctx context.Context, op string) {
	a.log.Warn("no LLM client available", "operation", op)
	metrics.LLMRequestsTotal.WithLabelValues(op, "unavailable").Inc()
	a.record(ctx, shared.CallMeta{Operation: op, Fallback: true})
}

func (a *Advisor) record(ctx context.Context, meta shared.CallMeta) {
	if a.metrics == nil {
		return
	}
	if err := a.metrics.RecordMeta(context.WithoutCancel(ctx), meta); err != nil {
		a.log.Warn("failed to record execution metric", "operation", meta.Operation, "error", err)
	}
}

// ErrorText maps a model failure onto the text shown to the user.
func ErrorText(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, llm.ErrRateLimited):
		return quotaExceededText
	case errors.Is(err, context.DeadlineExceeded):
		return timeoutText
	default:
		return err.Error()
	}
}

func outcome(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, llm.ErrRateLimited):
		return "rate_limited"
	case errors.Is(err, context.DeadlineExceeded):
		return "timeout"
	case errors.Is(err, llm.ErrUnavailable):
		return "unavailable"
	default:
		return "error"
	}
}
