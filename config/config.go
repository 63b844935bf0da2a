package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds all application configuration
type Config struct {
	// Database configuration
	Database DatabaseConfig

	// Language model configuration
	LLM LLMConfig

	// Market data source configurations
	MarketData   MarketDataConfig
	Fundamentals FundamentalsConfig

	// Snapshot cache configuration
	Cache CacheConfig

	// HTTP configuration
	HTTP HTTPConfig
}

// DatabaseConfig holds database configuration
type DatabaseConfig struct {
	URL string
}

// LLMConfig holds language model configuration.
// Backend selects between "openai" and "bedrock".
type LLMConfig struct {
	Backend        string
	OpenAIAPIKey   string
	OpenAIModel    string
	MaxTokens      int
	AWSRegion      string
	BedrockModelID string
	TimeoutSeconds int
}

// MarketDataConfig holds the quote source configuration
type MarketDataConfig struct {
	BaseURL string
	APIKey  string
}

// FundamentalsConfig holds the fundamentals/technicals source configuration
type FundamentalsConfig struct {
	BaseURL string
	APIKey  string
}

// CacheConfig holds snapshot cache and scheduler configuration
type CacheConfig struct {
	Symbols          []string
	RefreshTimes     []string // HH:MM wall-clock refresh boundaries
	PollInterval     time.Duration
	FetchConcurrency int
	BuildTimeoutSec  int
}

// HTTPConfig holds HTTP server configuration
type HTTPConfig struct {
	Addr               string
	CORSAllowedOrigins string
	RequestTimeoutSec  int
}

// defaultSymbols is the default tracked NSE universe when SYMBOLS is unset.
var defaultSymbols = []string{
	"RELIANCE", "TCS", "INFY", "HDFCBANK", "ICICIBANK", "SBIN",
	"MARUTI", "TATAMOTORS", "ITC", "HINDUNILVR", "BHARTIARTL", "WIPRO",
}

// Load loads configuration from environment variables
func Load() (*Config, error) {
	cfg := &Config{
		Database: DatabaseConfig{
			URL: os.Getenv("DATABASE_URL"),
		},
		LLM: LLMConfig{
			Backend:        getEnvString("LLM_BACKEND", "openai"),
			OpenAIAPIKey:   os.Getenv("OPENAI_API_KEY"),
			OpenAIModel:    getEnvString("OPENAI_MODEL", "gpt-4o"),
			MaxTokens:      getEnvInt("LLM_MAX_TOKENS", 1024),
			AWSRegion:      os.Getenv("AWS_REGION"),
			BedrockModelID: os.Getenv("BEDROCK_MODEL_ID"),
			TimeoutSeconds: getEnvInt("LLM_TIMEOUT_SECONDS", 15),
		},
		MarketData: MarketDataConfig{
			BaseURL: getEnvString("MARKET_DATA_BASE_URL", "https://www.nseindia.com/api"),
			APIKey:  os.Getenv("MARKET_DATA_API_KEY"),
		},
		Fundamentals: FundamentalsConfig{
			BaseURL: getEnvString("FUNDAMENTALS_BASE_URL", "https://www.nseindia.com/api"),
			APIKey:  os.Getenv("FUNDAMENTALS_API_KEY"),
		},
		Cache: CacheConfig{
			Symbols:          getEnvList("SYMBOLS", defaultSymbols),
			RefreshTimes:     getEnvList("CACHE_REFRESH_TIMES", []string{"08:45", "16:30"}),
			PollInterval:     time.Duration(getEnvInt("CACHE_POLL_INTERVAL_SECONDS", 60)) * time.Second,
			FetchConcurrency: getEnvInt("CACHE_FETCH_CONCURRENCY", 5),
			BuildTimeoutSec:  getEnvInt("CACHE_BUILD_TIMEOUT_SECONDS", 120),
		},
		HTTP: HTTPConfig{
			Addr:               getEnvString("HTTP_ADDR", ":8080"),
			CORSAllowedOrigins: getEnvString("CORS_ALLOWED_ORIGINS", "*"),
			RequestTimeoutSec:  getEnvInt("HTTP_REQUEST_TIMEOUT_SECONDS", 30),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate validates the configuration
func (c *Config) Validate() error {
	switch c.LLM.Backend {
	case "openai", "bedrock":
	default:
		return fmt.Errorf("LLM_BACKEND must be 'openai' or 'bedrock', got %q", c.LLM.Backend)
	}

	if len(c.Cache.Symbols) == 0 {
		return fmt.Errorf("SYMBOLS must list at least one tracked symbol")
	}

	for _, rt := range c.Cache.RefreshTimes {
		if _, err := time.Parse("15:04", rt); err != nil {
			return fmt.Errorf("CACHE_REFRESH_TIMES entry %q must be HH:MM: %w", rt, err)
		}
	}

	if c.Cache.PollInterval <= 0 {
		return fmt.Errorf("CACHE_POLL_INTERVAL_SECONDS must be positive")
	}
	if c.Cache.FetchConcurrency <= 0 {
		return fmt.Errorf("CACHE_FETCH_CONCURRENCY must be positive, got %d", c.Cache.FetchConcurrency)
	}
	if c.LLM.TimeoutSeconds <= 0 {
		return fmt.Errorf("LLM_TIMEOUT_SECONDS must be positive, got %d", c.LLM.TimeoutSeconds)
	}

	return nil
}

// HasDatabase returns true if database configuration is available
func (c *Config) HasDatabase() bool {
	return c.Database.URL != ""
}

// HasOpenAI returns true if OpenAI configuration is available
func (c *Config) HasOpenAI() bool {
	return c.LLM.OpenAIAPIKey != ""
}

// HasBedrock returns true if Bedrock configuration is available
func (c *Config) HasBedrock() bool {
	return c.LLM.AWSRegion != "" && c.LLM.BedrockModelID != ""
}

func getEnvString(key, defaultValue string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if val := os.Getenv(key); val != "" {
		if parsed, err := strconv.Atoi(val); err == nil && parsed > 0 {
			return parsed
		}
	}
	return defaultValue
}

func getEnvList(key string, defaultValue []string) []string {
	val := os.Getenv(key)
	if val == "" {
		return defaultValue
	}
	parts := strings.Split(val, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	if len(out) == 0 {
		return defaultValue
	}
	return out
}

// NewTestConfig creates a Config with default values for testing
func NewTestConfig() *Config {
	return &Config{
		Database: DatabaseConfig{
			URL: "",
		},
		LLM: LLMConfig{
			Backend:        "openai",
			OpenAIAPIKey:   "",
			OpenAIModel:    "gpt-4o",
			MaxTokens:      1024,
			TimeoutSeconds: 15,
		},
		MarketData: MarketDataConfig{
			BaseURL: "https://www.nseindia.com/api",
		},
		Fundamentals: FundamentalsConfig{
			BaseURL: "https://www.nseindia.com/api",
		},
		Cache: CacheConfig{
			Symbols:          []string{"RELIANCE", "TCS", "INFY"},
			RefreshTimes:     []string{"08:45", "16:30"},
			PollInterval:     60 * time.Second,
			FetchConcurrency: 5,
			BuildTimeoutSec:  120,
		},
		HTTP: HTTPConfig{
			Addr:               ":8080",
			CORSAllowedOrigins: "*",
			RequestTimeoutSec:  30,
		},
	}
}
