package app

import (
	"context"
	"fmt"

	"ai-health-advisor/internal/advisor"
	"ai-health-advisor/internal/config"
	"ai-health-advisor/internal/database"
	"ai-health-advisor/internal/extraction"
	"ai-health-advisor/internal/health"
	"ai-health-advisor/internal/history"
	"ai-health-advisor/internal/llm"
	"ai-health-advisor/internal/logger"
	"ai-health-advisor/internal/metrics"
	"ai-health-advisor/internal/storage"
	"ai-health-advisor/internal/videos"
)

// Build wires the production dependencies from cfg. Optional services
// (Gemini, Cloud Vision, YouTube) that cannot be initialised are logged and
// left out; the components they feed degrade to their fallbacks.
func Build(ctx context.Context, cfg *config.Config, log *logger.Logger) (*App, error) {
	db, err := database.NewDB(cfg.DatabasePath, log)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	var closers []func() error

	textGen := llm.NewGroqClient(cfg, llm.ModelAdvisor)

	var embedder llm.EmbeddingGenerator
	gemini, err := llm.NewGeminiClient(ctx, cfg)
	if err != nil {
		log.Warn("Gemini unavailable, history falls back to insertion order", "error", err)
	} else {
		closers = append(closers, gemini.Close)
		embedder = gemini
		if cfg.EmbeddingCachePath != "" {
			cached, err := llm.NewCachedEmbeddingGenerator(gemini, cfg.EmbeddingCachePath, log)
			if err != nil {
				log.Warn("Embedding cache disabled", "error", err)
			} else {
				embedder = cached
				closers = append(closers, cached.SaveCache)
			}
		}
	}

	var ocr extraction.TextRecognizer
	switch cfg.OCRBackend {
	case "vision":
		v, err := extraction.NewVisionRecognizer(ctx)
		if err != nil {
			log.Warn("Cloud Vision unavailable, OCR disabled", "error", err)
		} else {
			ocr = v
			closers = append(closers, v.Close)
		}
	case "gemini":
		if gemini != nil {
			ocr = extraction.NewTranscriberRecognizer(gemini)
		} else {
			log.Warn("OCR backend gemini selected without GEMINI_API_KEY, OCR disabled")
		}
	}

	renderer := extraction.NewPopplerRenderer(cfg.RenderDPI)
	if err := renderer.Ready(); err != nil {
		log.Warn("Page renderer not ready, scanned PDFs will not be recognised", "error", err)
	}
	engine := extraction.NewEngine(extraction.NewPDFTextExtractor(), renderer, ocr, extraction.Options{
		PageDir:     cfg.PageDir,
		RetainPages: cfg.RetainPageFiles,
		OCRTimeout:  cfg.OCRTimeout,
	}, log)

	reports, err := storage.NewReportStore(cfg.UploadDir)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create report store: %w", err)
	}

	order, err := history.ParseOrdering(cfg.HistoryOrder)
	if err != nil {
		db.Close()
		return nil, err
	}
	hist := history.NewStore(db.SQL, embedder, history.Options{
		Ordering:     order,
		EmbedTimeout: cfg.LLMTimeout,
	}, log)

	metricsStore := metrics.NewStore(db.SQL)
	adv := advisor.New(textGen, hist, log, advisor.Options{
		Timeout:      cfg.LLMTimeout,
		HistoryLimit: cfg.HistoryLimit,
	}).WithMetrics(metricsStore)

	if cfg.YouTubeAPIKey != "" {
		finder, err := videos.NewFinder(ctx, cfg.YouTubeAPIKey, log)
		if err != nil {
			log.Warn("Tutorial lookup disabled", "error", err)
		} else {
			adv.WithTutorials(finder)
		}
	}

	a := NewApp(cfg, engine, reports, hist, health.NewProfileRepository(db.SQL), adv, metricsStore, log)
	a.closers = append([]func() error{db.Close}, closers...)
	return a, nil
}
