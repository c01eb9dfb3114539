package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds the configuration for the application.
type Config struct {
	GroqAPIKey    string `mapstructure:"groq_api_key"`
	GeminiAPIKey  string `mapstructure:"gemini_api_key"`
	YouTubeAPIKey string `mapstructure:"youtube_api_key"`

	// Storage
	DatabasePath       string `mapstructure:"database_path"`
	UploadDir          string `mapstructure:"upload_dir"`
	PageDir            string `mapstructure:"page_dir"`
	EmbeddingCachePath string `mapstructure:"embedding_cache_path"`

	// Extraction
	OCRBackend      string        `mapstructure:"ocr_backend"`
	OCRTimeout      time.Duration `mapstructure:"ocr_timeout"`
	RenderDPI       int           `mapstructure:"render_dpi"`
	RetainPageFiles bool          `mapstructure:"retain_page_files"`

	// Recommendations
	LLMTimeout   time.Duration `mapstructure:"llm_timeout"`
	GeminiRPM    int           `mapstructure:"gemini_rpm"`
	HistoryOrder string        `mapstructure:"history_order"`
	HistoryLimit int           `mapstructure:"history_limit"`

	// Logging
	LogMode     string `mapstructure:"log_mode"`
	LogHashSalt string `mapstructure:"log_hash_salt"`

	// HTTP API
	Port               string `mapstructure:"port"`
	JWTSecret          string `mapstructure:"jwt_secret"`
	CORSAllowedOrigins string `mapstructure:"cors_allowed_origins"`

	// Telegram Config
	TelegramBotToken       string `mapstructure:"telegram_bot_token"`
	TelegramWebhookURL     string `mapstructure:"telegram_webhook_url"`
	TelegramAllowedUserIDs []int64
	AdminTelegramID        int64 `mapstructure:"admin_telegram_id"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("groq_api_key", "")
	v.SetDefault("gemini_api_key", "")
	v.SetDefault("youtube_api_key", "")

	v.SetDefault("database_path", "data/health.db")
	v.SetDefault("upload_dir", "data/uploads")
	v.SetDefault("page_dir", os.TempDir())
	v.SetDefault("embedding_cache_path", "")

	v.SetDefault("ocr_backend", "vision")
	v.SetDefault("ocr_timeout", 60*time.Second)
	v.SetDefault("render_dpi", 150)
	v.SetDefault("retain_page_files", false)

	v.SetDefault("llm_timeout", 60*time.Second)
	v.SetDefault("gemini_rpm", 60)
	v.SetDefault("history_order", "relevance")
	v.SetDefault("history_limit", 10)

	v.SetDefault("log_mode", "development")
	v.SetDefault("log_hash_salt", "")

	v.SetDefault("port", "8080")
	v.SetDefault("jwt_secret", "")
	v.SetDefault("cors_allowed_origins", "*")

	v.SetDefault("telegram_bot_token", "")
	v.SetDefault("telegram_webhook_url", "")
	v.SetDefault("telegram_allowed_user_ids", "")
	v.SetDefault("admin_telegram_id", 0)
}

// NewFromEnv creates a new Config object from environment variables, layered
// over an optional config file named by CONFIG_FILE.
func NewFromEnv() (*Config, error) {
	v := viper.New()
	setDefaults(v)

	if path := os.Getenv("CONFIG_FILE"); path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
		}
	}

	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}

	if cfg.GroqAPIKey == "" {
		return nil, fmt.Errorf("GROQ_API_KEY environment variable not set")
	}

	switch cfg.HistoryOrder {
	case "relevance", "chronological":
	default:
		return nil, fmt.Errorf("HISTORY_ORDER must be relevance or chronological, got %q", cfg.HistoryOrder)
	}

	switch cfg.OCRBackend {
	case "vision", "gemini", "none":
	default:
		return nil, fmt.Errorf("OCR_BACKEND must be vision, gemini or none, got %q", cfg.OCRBackend)
	}

	ids, err := parseUserIDs(v.GetString("telegram_allowed_user_ids"))
	if err != nil {
		return nil, err
	}
	cfg.TelegramAllowedUserIDs = ids

	return &cfg, nil
}

func parseUserIDs(raw string) ([]int64, error) {
	var ids []int64
	for _, part := range strings.Split(raw, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		id, err := strconv.ParseInt(part, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid TELEGRAM_ALLOWED_USER_IDS entry %q: %w", part, err)
		}
		ids = append(ids, id)
	}
	return ids, nil
}
