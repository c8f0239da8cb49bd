// Package config builds the immutable service configuration from the
// environment (optionally seeded from a .env file).
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
	AnalysisInline = "inline"
	AnalysisWorker = "worker"
)

type Config struct {
	DatabaseURL   string
	Port          string
	ServiceAPIKey string
	LogLevel      string
	AnalysisMode  string

	YouTube    YouTubeConfig
	LLM        LLMConfig
	Embeddings EmbeddingsConfig
}

type YouTubeConfig struct {
	APIKey string
	// Endpoint overrides the Data API base URL; empty means the public API.
	Endpoint          string
	RequestsPerSecond float64
	Timeout           time.Duration
}

type LLMConfig struct {
	APIKey         string
	BaseURL        string
	Model          string
	ChatTimeout    time.Duration
	SegmentTimeout time.Duration
}

type EmbeddingsConfig struct {
	APIKey  string
	BaseURL string
	Model   string
}

// Enabled reports whether segment embeddings can be computed.
func (e EmbeddingsConfig) Enabled() bool {
	return e.APIKey != ""
}

// Defaults returns the configuration used when nothing is set.
func Defaults() Config {
	return Config{
		Port:         "8080",
		LogLevel:     "info",
		AnalysisMode: AnalysisInline,
		YouTube: YouTubeConfig{
			RequestsPerSecond: 1,
			Timeout:           30 * time.Second,
		},
		LLM: LLMConfig{
			BaseURL:        "https://qianfan.baidubce.com/v2",
			Model:          "ernie-3.5-8k-preview",
			ChatTimeout:    50 * time.Second,
			SegmentTimeout: 60 * time.Second,
		},
		Embeddings: EmbeddingsConfig{
			BaseURL: "https://api.openai.com/v1",
			Model:   "text-embedding-ada-002",
		},
	}
}

// Load reads .env (if present) and the environment. dbID selects
// DATABASE_URL_<dbID>; an empty dbID means DEFAULT.
func Load(dbID string) (Config, error) {
	_ = godotenv.Load()

	cfg := Defaults()
	cfg.DatabaseURL = DatabaseURL(dbID)
	if cfg.DatabaseURL == "" {
		return Config{}, fmt.Errorf("no database URL found for DATABASE_URL_%s or DATABASE_URL", dbKey(dbID))
	}

	cfg.Port = getenv("PORT", cfg.Port)
	cfg.ServiceAPIKey = os.Getenv("SERVICE_API_KEY")
	cfg.LogLevel = getenv("LOG_LEVEL", cfg.LogLevel)
	cfg.AnalysisMode = strings.ToLower(getenv("ANALYSIS_MODE", cfg.AnalysisMode))

	cfg.YouTube.APIKey = os.Getenv("YOUTUBE_API_KEY")
	cfg.YouTube.Endpoint = os.Getenv("YOUTUBE_API_ENDPOINT")

	cfg.LLM.APIKey = os.Getenv("LLM_API_KEY")
	cfg.LLM.BaseURL = getenv("LLM_BASE_URL", cfg.LLM.BaseURL)
	cfg.LLM.Model = getenv("LLM_MODEL", cfg.LLM.Model)

	cfg.Embeddings.APIKey = os.Getenv("OPENAI_API_KEY")
	cfg.Embeddings.BaseURL = getenv("EMBEDDING_BASE_URL", cfg.Embeddings.BaseURL)
	cfg.Embeddings.Model = getenv("EMBEDDING_MODEL", cfg.Embeddings.Model)

	var err error
	if cfg.YouTube.RequestsPerSecond, err = getenvFloat("YOUTUBE_RPS", cfg.YouTube.RequestsPerSecond); err != nil {
		return Config{}, err
	}
	if cfg.LLM.ChatTimeout, err = getenvDuration("LLM_CHAT_TIMEOUT", cfg.LLM.ChatTimeout); err != nil {
		return Config{}, err
	}
	if cfg.LLM.SegmentTimeout, err = getenvDuration("LLM_SEGMENT_TIMEOUT", cfg.LLM.SegmentTimeout); err != nil {
		return Config{}, err
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) Validate() error {
	switch c.AnalysisMode {
	case AnalysisInline, AnalysisWorker:
	default:
		return fmt.Errorf("invalid ANALYSIS_MODE %q: want %q or %q", c.AnalysisMode, AnalysisInline, AnalysisWorker)
	}
	if c.YouTube.RequestsPerSecond <= 0 {
		return fmt.Errorf("YOUTUBE_RPS must be positive")
	}
	if c.LLM.ChatTimeout <= 0 || c.LLM.SegmentTimeout <= 0 {
		return fmt.Errorf("LLM timeouts must be positive")
	}
	return nil
}

// DatabaseURL returns DATABASE_URL_<dbID> (DEFAULT when dbID is empty),
// falling back to DATABASE_URL.
func DatabaseURL(dbID string) string {
	if v := os.Getenv("DATABASE_URL_" + dbKey(dbID)); v != "" {
		return v
	}
	return os.Getenv("DATABASE_URL")
}

func dbKey(dbID string) string {
	if dbID == "" {
		return "DEFAULT"
	}
	return strings.ToUpper(dbID)
}

func getenv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getenvFloat(key string, def float64) (float64, error) {
	v := os.Getenv(key)
	if v == "" {
		return def, nil
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return f, nil
}

func getenvDuration(key string, def time.Duration) (time.Duration, error) {
	v := os.Getenv(key)
	if v == "" {
		return def, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return d, nil
}
