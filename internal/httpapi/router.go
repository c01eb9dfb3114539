// Package httpapi exposes the advisor over a JSON REST API. All /v1 routes
// require a bearer token whose subject is the user id.
package httpapi

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"ai-health-advisor/internal/advisor"
	"ai-health-advisor/internal/app"
	"ai-health-advisor/internal/health"
	"ai-health-advisor/internal/history"
	"ai-health-advisor/internal/logger"
	"ai-health-advisor/internal/metrics"
)

const defaultMaxUploadBytes = 20 << 20

// Service is the application surface the API serves.
type Service interface {
	IngestReport(ctx context.Context, userID, name string, src io.Reader, reportType history.ReportType) (app.IngestResult, error)
	History(ctx context.Context, userID, query string, limit int) []history.Record
	AddHistory(ctx context.Context, userID string, reportType history.ReportType, text string) bool
	SaveProfile(ctx context.Context, userID string, p health.Profile, goalText string) error
	Profile(ctx context.Context, userID string) (health.StoredProfile, error)
	Nutrition(ctx context.Context, userID string, save bool) (health.NutritionRecommendation, error)
	Workout(ctx context.Context, userID string, rec *health.NutritionRecommendation, save bool) (health.WorkoutRecommendation, error)
	Respond(ctx context.Context, userID, message string) (advisor.Reply, error)
	RunAction(ctx context.Context, userID string, action advisor.Action) (advisor.ActionResult, error)
	SysHealth() metrics.SysHealth
}

type Options struct {
	AllowedOrigins []string
	MaxUploadBytes int64
}

// ParseOrigins splits a comma-separated CORS origin list.
func ParseOrigins(raw string) []string {
	var out []string
	for _, o := range strings.Split(raw, ",") {
		if o = strings.TrimSpace(o); o != "" {
			out = append(out, o)
		}
	}
	return out
}

// NewRouter builds the API handler.
func NewRouter(svc Service, auth *Authenticator, opts Options, log *logger.Logger) http.Handler {
	if opts.MaxUploadBytes <= 0 {
		opts.MaxUploadBytes = defaultMaxUploadBytes
	}
	if len(opts.AllowedOrigins) == 0 {
		opts.AllowedOrigins = []string{"*"}
	}
	h := &handler{svc: svc, maxUpload: opts.MaxUploadBytes, log: log}

	r := chi.NewRouter()
	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(chimiddleware.Recoverer)
	r.Use(requestLogger(log))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: opts.AllowedOrigins,
		AllowedMethods: []string{"GET", "POST", "PUT", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Authorization", "Content-Type", "X-Request-ID"},
		ExposedHeaders: []string{"X-Request-ID"},
		MaxAge:         300,
	}))

	r.Get("/health", h.health)
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/v1", func(r chi.Router) {
		r.Use(auth.Middleware)

		r.Post("/documents", h.uploadDocument)
		r.Get("/history", h.listHistory)
		r.Post("/history", h.addHistory)
		r.Get("/profile", h.getProfile)
		r.Put("/profile", h.putProfile)
		r.Post("/recommendations/nutrition", h.nutrition)
		r.Post("/recommendations/workout", h.workout)
		r.Post("/chat", h.chat)
		r.Post("/actions/{action}", h.action)
	})

	return r
}

func requestLogger(log *logger.Logger) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := chimiddleware.NewWrapResponseWriter(w, r.ProtoMajor)

			next.ServeHTTP(ww, r)

			route := "unmatched"
			if rctx := chi.RouteContext(r.Context()); rctx != nil && rctx.RoutePattern() != "" {
				route = rctx.RoutePattern()
			}
			status := ww.Status()
			if status == 0 {
				status = http.StatusOK
			}
			metrics.HTTPRequestsTotal.WithLabelValues(r.Method, route, strconv.Itoa(status)).Inc()
			log.Info("HTTP request",
				"method", r.Method,
				"route", route,
				"status", status,
				"bytes", ww.BytesWritten(),
				"duration", time.Since(start),
				"request_id", chimiddleware.GetReqID(r.Context()),
			)
		})
	}
}

func respondJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func respondError(w http.ResponseWriter, status int, msg string) {
	respondJSON(w, status, map[string]string{"error": msg})
}
