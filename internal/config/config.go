package config

import (
	"errors"
	"fmt"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/v2"

	"github.com/noah-isme/bakery-quote/internal/pricing"
)

// Config holds application configuration loaded from the environment.
type Config struct {
	AppEnv             string
	Port               string
	DatabaseURL        string
	RedisURL           string
	CORSAllowedOrigins []string

	// Quote defaults. Markup and VAT are stored as normalized fractions.
	CompanyName    string
	Currency       string
	LaborRate      float64
	MarkupPct      float64
	VATPct         float64
	QuoteValidDays int
	TemplatePath   string
	OutputDir      string

	// BOM estimate service.
	BOMAPIURL          string
	BOMEstimateTimeout time.Duration
	BOMJobTypesTimeout time.Duration

	// FX rates.
	FXLive        bool
	FXBase        string
	FXAPIURL      string
	FXCachePath   string
	FXCacheMaxAge time.Duration
	FXStaticJSON  string

	// SMTP delivery. Disabled when Host is empty.
	SMTPHost string
	SMTPPort int
	SMTPUser string
	SMTPPass string
	SMTPFrom string
	SMTPTLS  bool
	SMTPSSL  bool

	// Spreadsheet quote log. Disabled when Path is empty.
	SheetPath string
	SheetTab  string

	// Admin access. Login is disabled when the hash is empty.
	AdminPasswordHash string
	AdminSecret       string
	AdminSessionTTL   time.Duration

	// Chat assistant.
	ChatAPIURL          string
	ChatAPIKey          string
	ChatModel           string
	ChatTimeout         time.Duration
	ChatRateLimitMax    int
	ChatRateLimitWindow time.Duration

	// Delivery queue.
	QueueRedisPrefix    string
	DeliveryMaxAttempts int
}

// Load reads configuration from environment variables and optional .env files.
func Load() (*Config, error) {
	_ = godotenv.Load()

	k := koanf.New(".")
	if err := k.Load(env.Provider("", ".", func(s string) string { return s }), nil); err != nil {
		return nil, fmt.Errorf("load env: %w", err)
	}

	outputDir := valueOrDefault(k.String("OUTPUT_DIR"), "out")
	base := strings.ToUpper(valueOrDefault(k.String("FX_BASE"), valueOrDefault(k.String("CURRENCY"), "GBP")))

	cfg := &Config{
		AppEnv:             valueOrDefault(k.String("APP_ENV"), "development"),
		Port:               valueOrDefault(k.String("PORT"), "8080"),
		DatabaseURL:        k.String("DATABASE_URL"),
		RedisURL:           k.String("REDIS_URL"),
		CORSAllowedOrigins: splitAndTrim(k.String("CORS_ALLOWED_ORIGINS")),

		CompanyName:    valueOrDefault(k.String("SENDER_NAME"), "Bakery Nation"),
		Currency:       strings.ToUpper(valueOrDefault(k.String("CURRENCY"), "GBP")),
		LaborRate:      parseFloat(k.String("LABOR_RATE"), 15.00),
		MarkupPct:      pricing.ParsePercent(parseFloat(k.String("MARKUP_PCT"), 30)),
		VATPct:         pricing.ParsePercent(parseFloat(k.String("VAT_PCT"), 20)),
		QuoteValidDays: parseInt(k.String("QUOTE_VALID_DAYS"), 14),
		TemplatePath:   k.String("TEMPLATE_PATH"),
		OutputDir:      outputDir,

		BOMAPIURL:          valueOrDefault(k.String("BOM_API_URL"), "http://localhost:8000"),
		BOMEstimateTimeout: parseDuration(k.String("BOM_ESTIMATE_TIMEOUT"), "10s"),
		BOMJobTypesTimeout: parseDuration(k.String("BOM_JOBTYPES_TIMEOUT"), "5s"),

		FXLive:        parseBool(k.String("FX_LIVE")),
		FXBase:        base,
		FXAPIURL:      valueOrDefault(k.String("FX_API_URL"), "https://open.er-api.com/v6/latest/"+base),
		FXCachePath:   valueOrDefault(k.String("FX_CACHE_PATH"), filepath.Join(outputDir, "fx_cache.json")),
		FXCacheMaxAge: time.Duration(parseInt(k.String("FX_CACHE_SECONDS"), 3600)) * time.Second,
		FXStaticJSON:  strings.TrimSpace(k.String("FX_RATES_JSON")),

		SMTPHost: strings.TrimSpace(k.String("SMTP_HOST")),
		SMTPPort: parseInt(k.String("SMTP_PORT"), 587),
		SMTPUser: strings.TrimSpace(k.String("SMTP_USER")),
		SMTPPass: strings.TrimSpace(k.String("SMTP_PASS")),
		SMTPFrom: strings.TrimSpace(k.String("SMTP_FROM")),
		SMTPTLS:  parseBoolDefault(k.String("SMTP_TLS"), true),
		SMTPSSL:  parseBool(k.String("SMTP_SSL")),

		SheetPath: strings.TrimSpace(k.String("SHEET_PATH")),
		SheetTab:  valueOrDefault(strings.TrimSpace(k.String("SHEET_TAB")), "Sheet1"),

		AdminPasswordHash: strings.TrimSpace(k.String("ADMIN_PASSWORD_HASH")),
		AdminSecret:       k.String("ADMIN_SECRET"),
		AdminSessionTTL:   parseDuration(k.String("ADMIN_SESSION_TTL"), "12h"),

		ChatAPIURL:          valueOrDefault(k.String("CHAT_API_URL"), "https://api.mistral.ai/v1"),
		ChatAPIKey:          strings.TrimSpace(k.String("CHAT_API_KEY")),
		ChatModel:           valueOrDefault(k.String("CHAT_MODEL"), "mistral-small-latest"),
		ChatTimeout:         parseDuration(k.String("CHAT_TIMEOUT"), "30s"),
		ChatRateLimitMax:    parseInt(k.String("CHAT_RATELIMIT_MAX"), 20),
		ChatRateLimitWindow: parseDuration(k.String("CHAT_RATELIMIT_WINDOW"), "1m"),

		QueueRedisPrefix:    valueOrDefault(k.String("QUEUE_REDIS_PREFIX"), "bakery"),
		DeliveryMaxAttempts: parseInt(k.String("DELIVERY_MAX_ATTEMPTS"), 3),
	}

	if cfg.SMTPFrom == "" {
		cfg.SMTPFrom = cfg.SMTPUser
	}

	if cfg.DatabaseURL == "" {
		return nil, errors.New("DATABASE_URL is required")
	}
	if cfg.RedisURL == "" {
		return nil, errors.New("REDIS_URL is required")
	}
	if cfg.AdminPasswordHash != "" && cfg.AdminSecret == "" {
		return nil, errors.New("ADMIN_SECRET is required when ADMIN_PASSWORD_HASH is set")
	}

	return cfg, nil
}

// HTTPAddr returns the address the HTTP server should bind to.
func (c *Config) HTTPAddr() string {
	port := strings.TrimSpace(c.Port)
	if port == "" {
		port = "8080"
	}
	if strings.HasPrefix(port, ":") {
		return port
	}
	return ":" + port
}

func splitAndTrim(value string) []string {
	if value == "" {
		return nil
	}
	parts := strings.Split(value, ",")
	result := make([]string, 0, len(parts))
	for _, part := range parts {
		trimmed := strings.TrimSpace(part)
		if trimmed != "" {
			result = append(result, trimmed)
		}
	}
	return result
}

func valueOrDefault(value, fallback string) string {
	if strings.TrimSpace(value) != "" {
		return value
	}
	return fallback
}

func parseDuration(value, fallback string) time.Duration {
	base := strings.TrimSpace(value)
	if base == "" {
		base = fallback
	}
	d, err := time.ParseDuration(base)
	if err != nil {
		d, _ = time.ParseDuration(fallback)
	}
	return d
}

func parseFloat(value string, fallback float64) float64 {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return fallback
	}
	f, err := strconv.ParseFloat(trimmed, 64)
	if err != nil {
		return fallback
	}
	return f
}

func parseInt(value string, fallback int) int {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return fallback
	}
	n, err := strconv.Atoi(trimmed)
	if err != nil {
		return fallback
	}
	return n
}

func parseBool(value string) bool {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "1", "true", "yes", "on":
		return true
	default:
		return false
	}
}

func parseBoolDefault(value string, fallback bool) bool {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return fallback
	}
	return parseBool(trimmed)
}
