package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all application configuration
type Config struct {
	// Database
	DatabaseURL string

	// Server
	Port    int
	SiteURL string

	// RSS Feed
	FeedTitle       string
	FeedDescription string
	FeedAuthor      string

	// Auth
	CronSecret  string
	AdminSecret string

	// AI
	OpenAIKey         string
	OpenAIBaseURL     string
	OpenAIModel       string
	EmbeddingProvider string
	EmbeddingAPIKey   string
	EmbeddingModel    string
	AIBatchSize       int

	// Contracts
	SAMAPIKey         string
	SAMDepartmentCode string

	// Email
	ResendAPIKey string
	EmailFrom    string

	// Scraper
	RulesFile    string
	BrowserFetch bool

	// Health
	PipelineStaleAfter time.Duration

	LogLevel string

	Rules *Rules
}

// Load reads configuration from environment variables, after merging a
// local .env file when one exists.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("failed to read .env: %w", err)
	}

	cfg := &Config{
		DatabaseURL:        getEnv("DATABASE_URL", ""),
		Port:               getEnvAsInt("PORT", 8080),
		SiteURL:            strings.TrimRight(getEnv("SITE_URL", "http://localhost:8080"), "/"),
		FeedTitle:          getEnv("FEED_TITLE", "Dronewire"),
		FeedDescription:    getEnv("FEED_DESCRIPTION", "Counter-UAS and drone warfare news, summarized"),
		FeedAuthor:         getEnv("FEED_AUTHOR", "Dronewire"),
		CronSecret:         getEnv("CRON_SECRET", ""),
		OpenAIKey:          getEnv("OPENAI_API_KEY", ""),
		OpenAIBaseURL:      strings.TrimRight(getEnv("OPENAI_BASE_URL", "https://api.openai.com/v1"), "/"),
		OpenAIModel:        getEnv("OPENAI_MODEL", "gpt-4o-mini"),
		EmbeddingProvider:  strings.ToLower(getEnv("EMBEDDING_PROVIDER", "")),
		EmbeddingAPIKey:    getEnv("EMBEDDING_API_KEY", ""),
		EmbeddingModel:     getEnv("EMBEDDING_MODEL", ""),
		AIBatchSize:        getEnvAsInt("AI_BATCH_SIZE", 10),
		SAMAPIKey:          getEnv("SAM_API_KEY", ""),
		SAMDepartmentCode:  getEnv("SAM_DEPARTMENT_CODE", "097"),
		ResendAPIKey:       getEnv("RESEND_API_KEY", ""),
		EmailFrom:          getEnv("EMAIL_FROM", "Dronewire Alerts <alerts@dronewire.local>"),
		RulesFile:          getEnv("RULES_FILE", ""),
		BrowserFetch:       getEnvAsBool("BROWSER_FETCH", false),
		PipelineStaleAfter: getEnvAsDuration("PIPELINE_STALE_AFTER", 48*time.Hour),
		LogLevel:           getEnv("LOG_LEVEL", "info"),
	}
	cfg.AdminSecret = getEnv("ADMIN_SECRET", cfg.CronSecret)

	// Validate required fields
	if cfg.DatabaseURL == "" {
		return nil, fmt.Errorf("DATABASE_URL is required")
	}
	switch cfg.EmbeddingProvider {
	case "", "openai", "ollama":
	default:
		return nil, fmt.Errorf("EMBEDDING_PROVIDER must be openai or ollama, got %q", cfg.EmbeddingProvider)
	}

	rules, err := LoadRules(cfg.RulesFile)
	if err != nil {
		return nil, err
	}
	cfg.Rules = rules

	return cfg, nil
}

// EmbeddingsEnabled reports whether a distinct embedding backend is configured.
// OpenAI embeddings need their own key; Ollama runs locally without one.
func (c *Config) EmbeddingsEnabled() bool {
	switch c.EmbeddingProvider {
	case "openai":
		return c.EmbeddingAPIKey != ""
	case "ollama":
		return true
	}
	return false
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.Atoi(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}

func getEnvAsBool(key string, defaultValue bool) bool {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.ParseBool(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := time.ParseDuration(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}
