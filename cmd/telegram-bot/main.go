package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"ai-health-advisor/internal/app"
	"ai-health-advisor/internal/config"
	"ai-health-advisor/internal/httpapi"
	"ai-health-advisor/internal/logger"
	"ai-health-advisor/internal/telegram"

	"github.com/go-chi/chi/v5"
)

func main() {
	// 1. Load Configuration
	cfg, err := config.NewFromEnv()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}

	log, err := logger.New(cfg.LogMode, cfg.LogHashSalt)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to create logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	ctx := context.Background()

	// 2. Wire storage, models and the advisor
	application, err := app.Build(ctx, cfg, log)
	if err != nil {
		log.Fatal("Failed to initialize application", "error", err)
	}
	defer func() {
		if err := application.Close(); err != nil {
			log.Warn("Failed to close application", "error", err)
		}
	}()

	// 3. Mount the REST API and the Telegram webhook
	router := chi.NewRouter()

	if cfg.JWTSecret != "" {
		auth, err := httpapi.NewAuthenticator(cfg.JWTSecret)
		if err != nil {
			log.Fatal("Failed to initialize API auth", "error", err)
		}
		router.Mount("/", httpapi.NewRouter(application, auth, httpapi.Options{
			AllowedOrigins: httpapi.ParseOrigins(cfg.CORSAllowedOrigins),
		}, log))
	} else {
		log.Warn("JWT_SECRET not set, REST API disabled")
		router.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusOK)
			w.Write([]byte("OK"))
		})
	}

	if cfg.TelegramBotToken != "" {
		bot, err := telegram.NewBot(cfg, application, log)
		if err != nil {
			log.Fatal("Failed to initialize Telegram Bot", "error", err)
		}
		router.Post("/webhook", bot.WebhookHandler())
	} else {
		log.Warn("TELEGRAM_BOT_TOKEN not set, bot disabled")
	}

	// 4. Start Server with Graceful Shutdown
	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		log.Info("Server listening", "port", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("Server failed", "error", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info("Shutting down server...")

	ctxShutdown, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctxShutdown); err != nil {
		log.Error("Server forced to shutdown", "error", err)
	}

	log.Info("Server exiting")
}
