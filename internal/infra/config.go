package infra

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config represents application configuration loaded from environment variables.
type Config struct {
	AppEnv string
	Port   string

	LogFile           string
	LogFileMaxMB      int
	LogFileMaxBackups int
	LogFileMaxAgeDays int

	ImageProvider     string
	GeminiAPIKey      string
	GeminiModel       string
	GeminiBaseURL     string
	OpenAIAPIKey      string
	OpenAIModel       string
	OpenAIBaseURL     string
	GenerationTimeout time.Duration

	OutputSize    int
	BadgeFontSize float64
	LabelsFile    string
	LabelSet      string

	CORSAllowedOrigins []string
	HTTPReadTimeout    time.Duration
	HTTPWriteTimeout   time.Duration
	HTTPIdleTimeout    time.Duration
	RateLimitPerMin    int
}

const (
	DefaultGeminiModel            = "gemini-2.5-flash-image"
	HighQualityGeminiModel        = "gemini-3-pro-image-preview"
	DefaultOpenAIModel            = "gpt-image-1"
	DefaultImageProvider          = "gemini"
	DefaultOutputSize             = 1024
	DefaultBadgeFontSize          = 48
	defaultGeminiBaseURL          = "https://generativelanguage.googleapis.com/v1beta"
	defaultOpenAIBaseURL          = "https://api.openai.com/v1"
	defaultRateLimitPerMin        = 30
	defaultMaxStickerOutputPixels = 4096
)

// LoadConfig loads configuration from environment variables and applies defaults where needed.
// Credentials are optional here; a missing key is reported when a batch starts.
func LoadConfig() (*Config, error) {
	cfg := &Config{
		AppEnv:             getEnv("APP_ENV", "development"),
		Port:               getEnv("PORT", "8080"),
		LogFile:            os.Getenv("LOG_FILE"),
		LogFileMaxMB:       getEnvInt("LOG_FILE_MAX_MB", 50),
		LogFileMaxBackups:  getEnvInt("LOG_FILE_MAX_BACKUPS", 3),
		LogFileMaxAgeDays:  getEnvInt("LOG_FILE_MAX_AGE_DAYS", 14),
		ImageProvider:      strings.ToLower(getEnv("IMAGE_PROVIDER", DefaultImageProvider)),
		GeminiAPIKey:       strings.TrimSpace(getEnv("API_KEY", os.Getenv("GEMINI_API_KEY"))),
		GeminiModel:        getEnv("GEMINI_MODEL", DefaultGeminiModel),
		GeminiBaseURL:      getEnv("GEMINI_BASE_URL", defaultGeminiBaseURL),
		OpenAIAPIKey:       strings.TrimSpace(os.Getenv("OPENAI_API_KEY")),
		OpenAIModel:        getEnv("OPENAI_MODEL", DefaultOpenAIModel),
		OpenAIBaseURL:      getEnv("OPENAI_BASE_URL", defaultOpenAIBaseURL),
		GenerationTimeout:  time.Second * time.Duration(getEnvInt("GENERATION_TIMEOUT_SECONDS", 0)),
		OutputSize:         getEnvInt("STICKER_OUTPUT_SIZE", DefaultOutputSize),
		BadgeFontSize:      getEnvFloat("BADGE_FONT_SIZE", DefaultBadgeFontSize),
		LabelsFile:         os.Getenv("LABELS_FILE"),
		LabelSet:           os.Getenv("LABEL_SET"),
		CORSAllowedOrigins: splitList(os.Getenv("CORS_ALLOWED_ORIGINS")),
		HTTPReadTimeout:    time.Second * time.Duration(getEnvInt("HTTP_READ_TIMEOUT_SECONDS", 15)),
		HTTPWriteTimeout:   time.Second * time.Duration(getEnvInt("HTTP_WRITE_TIMEOUT_SECONDS", 0)),
		HTTPIdleTimeout:    time.Second * time.Duration(getEnvInt("HTTP_IDLE_TIMEOUT_SECONDS", 60)),
		RateLimitPerMin:    getEnvInt("RATE_LIMIT_PER_MINUTE", defaultRateLimitPerMin),
	}

	switch cfg.ImageProvider {
	case "gemini", "openai":
	default:
		return nil, fmt.Errorf("IMAGE_PROVIDER %q is not supported (use gemini or openai)", cfg.ImageProvider)
	}

	if cfg.OutputSize <= 0 || cfg.OutputSize > defaultMaxStickerOutputPixels {
		return nil, fmt.Errorf("STICKER_OUTPUT_SIZE must be between 1 and %d", defaultMaxStickerOutputPixels)
	}

	if cfg.BadgeFontSize <= 0 {
		return nil, fmt.Errorf("BADGE_FONT_SIZE must be positive")
	}

	if cfg.GenerationTimeout < 0 {
		return nil, fmt.Errorf("GENERATION_TIMEOUT_SECONDS must not be negative")
	}

	return cfg, nil
}

// ProviderAPIKey returns the credential for the selected image provider.
func (c *Config) ProviderAPIKey() string {
	if c.ImageProvider == "openai" {
		return c.OpenAIAPIKey
	}
	return c.GeminiAPIKey
}

func getEnv(key, fallback string) string {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return fallback
}

func getEnvFloat(key string, fallback float64) float64 {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return fallback
}

func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
