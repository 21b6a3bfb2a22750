package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const (
	ProviderGroq   = "groq"
	ProviderGemini = "gemini"
	ProviderMock   = "mock"
)

type Config struct {
	Port           string
	LogLevel       string
	DatabaseURL    string
	MigrationsPath string

	Provider    string
	GroqAPIKey  string
	GroqModel   string
	GroqBaseURL string

	GeminiAPIKey string
	GeminiModel  string

	Temperature       float64
	CompletionTimeout time.Duration

	TranslateURL    string
	TranslateAPIKey string

	WindowSize int
	SessionTTL time.Duration

	TelegramBotToken string
	AlertChatID      int64
	ReportFontPath   string
}

// Load reads .env when present, then the environment.
func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{
		Port:             getEnv("PORT", "8080"),
		LogLevel:         getEnv("LOG_LEVEL", "info"),
		DatabaseURL:      os.Getenv("DATABASE_URL"),
		MigrationsPath:   getEnv("MIGRATIONS_PATH", "file://migrations"),
		Provider:         strings.ToLower(getEnv("COMPLETION_PROVIDER", ProviderGroq)),
		GroqAPIKey:       os.Getenv("GROQ_API_KEY"),
		GroqModel:        getEnv("GROQ_MODEL", "llama-3.1-8b-instant"),
		GroqBaseURL:      getEnv("GROQ_BASE_URL", "https://api.groq.com/openai/v1"),
		GeminiAPIKey:     os.Getenv("GEMINI_API_KEY"),
		GeminiModel:      getEnv("GEMINI_MODEL", "gemini-2.5-flash"),
		TranslateURL:     os.Getenv("TRANSLATE_URL"),
		TranslateAPIKey:  os.Getenv("TRANSLATE_API_KEY"),
		TelegramBotToken: os.Getenv("TELEGRAM_BOT_TOKEN"),
		ReportFontPath:   os.Getenv("REPORT_FONT_PATH"),
	}

	var err error
	if cfg.Temperature, err = getFloat("COMPLETION_TEMPERATURE", 0.7); err != nil {
		return nil, err
	}
	if cfg.Temperature < 0 || cfg.Temperature > 2 {
		return nil, fmt.Errorf("COMPLETION_TEMPERATURE must be between 0 and 2, got %v", cfg.Temperature)
	}
	if cfg.CompletionTimeout, err = getDuration("COMPLETION_TIMEOUT", 30*time.Second); err != nil {
		return nil, err
	}
	if cfg.SessionTTL, err = getDuration("SESSION_TTL", 2*time.Hour); err != nil {
		return nil, err
	}
	if cfg.WindowSize, err = getInt("WINDOW_SIZE", 10); err != nil {
		return nil, err
	}
	if cfg.WindowSize <= 0 {
		return nil, fmt.Errorf("WINDOW_SIZE must be positive, got %d", cfg.WindowSize)
	}
	if raw := os.Getenv("ALERT_CHAT_ID"); raw != "" {
		if cfg.AlertChatID, err = strconv.ParseInt(raw, 10, 64); err != nil {
			return nil, fmt.Errorf("ALERT_CHAT_ID must be an integer: %w", err)
		}
	}

	switch cfg.Provider {
	case ProviderGroq:
		if cfg.GroqAPIKey == "" {
			return nil, fmt.Errorf("GROQ_API_KEY is required when COMPLETION_PROVIDER=groq")
		}
	case ProviderGemini:
		if cfg.GeminiAPIKey == "" {
			return nil, fmt.Errorf("GEMINI_API_KEY is required when COMPLETION_PROVIDER=gemini")
		}
	case ProviderMock:
	default:
		return nil, fmt.Errorf("unknown COMPLETION_PROVIDER %q", cfg.Provider)
	}

	return cfg, nil
}

func getEnv(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}

func getInt(key string, fallback int) (int, error) {
	raw := os.Getenv(key)
	if raw == "" {
		return fallback, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("%s must be an integer: %w", key, err)
	}
	return v, nil
}

func getFloat(key string, fallback float64) (float64, error) {
	raw := os.Getenv(key)
	if raw == "" {
		return fallback, nil
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, fmt.Errorf("%s must be a number: %w", key, err)
	}
	return v, nil
}

func getDuration(key string, fallback time.Duration) (time.Duration, error) {
	raw := os.Getenv(key)
	if raw == "" {
		return fallback, nil
	}
	v, err := time.ParseDuration(raw)
	if err != nil {
		return 0, fmt.Errorf("%s must be a duration: %w", key, err)
	}
	if v <= 0 {
		return 0, fmt.Errorf("%s must be positive", key)
	}
	return v, nil
}
