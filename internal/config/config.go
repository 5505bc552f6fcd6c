package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

// Config holds all application configuration loaded from environment variables.
type Config struct {
	// General
	Environment string `envconfig:"ENVIRONMENT" default:"development"`
	LogLevel    string `envconfig:"LOG_LEVEL" default:"info"`
	HTTPAddr    string `envconfig:"HTTP_ADDR" default:":8080"`

	// Persistence
	DatabasePath  string `envconfig:"DATABASE_PATH" default:"playcraft.db"`
	BucketDir     string `envconfig:"BUCKET_DIR" default:"data/buckets"`
	PublicBaseURL string `envconfig:"PUBLIC_BASE_URL" default:"http://localhost:8080"`

	// API
	AuthMode       string `envconfig:"AUTH_MODE" default:"jwt"` // jwt | api-key | none
	JWTSecret      string `envconfig:"JWT_SECRET"`
	APIKey         string `envconfig:"API_KEY"`
	RateLimitRPS   int    `envconfig:"RATE_LIMIT_RPS" default:"50"`
	RateLimitBurst int    `envconfig:"RATE_LIMIT_BURST" default:"100"`
	CORSOrigins    string `envconfig:"CORS_ORIGINS"`
	MaxBodyBytes   int    `envconfig:"MAX_BODY_BYTES" default:"16777216"`

	// File change tracker
	TrackerDebounce   time.Duration `envconfig:"TRACKER_DEBOUNCE" default:"500ms"`
	TrackerEmbeddings bool          `envconfig:"TRACKER_EMBEDDINGS" default:"true"`

	// Embeddings: none | http | genai
	EmbeddingProvider string `envconfig:"EMBEDDING_PROVIDER" default:"none"`
	EmbeddingEndpoint string `envconfig:"EMBEDDING_ENDPOINT"`
	EmbeddingAPIKey   string `envconfig:"EMBEDDING_API_KEY"`
	EmbeddingModel    string `envconfig:"EMBEDDING_MODEL" default:"text-embedding-3-small"`
	GenAIAPIKey       string `envconfig:"GENAI_API_KEY"`
	GenAIModel        string `envconfig:"GENAI_MODEL" default:"gemini-embedding-001"`

	// File intelligence
	IntelligenceCacheSize int           `envconfig:"INTELLIGENCE_CACHE_SIZE" default:"64"`
	RecencyWindow         time.Duration `envconfig:"RECENCY_WINDOW" default:"24h"`
	MaxSuggestions        int           `envconfig:"MAX_SUGGESTIONS" default:"10"`

	// Puzzle Kit sessions
	SessionCapacity int    `envconfig:"SESSION_CAPACITY" default:"1000"`
	GameConfigPath  string `envconfig:"GAME_CONFIG_PATH"` // YAML overriding the built-in game defaults

	// Notifications
	SlackWebhookURL string `envconfig:"SLACK_WEBHOOK_URL"`
}

// EmbeddingsEnabled returns true if an embedding provider is configured.
func (c *Config) EmbeddingsEnabled() bool {
	switch strings.ToLower(c.EmbeddingProvider) {
	case "http":
		return c.EmbeddingEndpoint != ""
	case "genai":
		return c.GenAIAPIKey != ""
	}
	return false
}

// SlackEnabled returns true if a publish notification webhook is configured.
func (c *Config) SlackEnabled() bool {
	return c.SlackWebhookURL != ""
}

// IsDevelopment reports whether the service runs in development mode.
func (c *Config) IsDevelopment() bool {
	return strings.EqualFold(c.Environment, "development")
}

// Validate checks combinations envconfig cannot express.
func (c *Config) Validate() error {
	if err := c.validateAuth(); err != nil {
		return err
	}
	return c.validateSettings()
}

func (c *Config) validateAuth() error {
	switch c.AuthMode {
	case "jwt":
		if c.JWTSecret == "" {
			return fmt.Errorf("JWT_SECRET is required when AUTH_MODE=jwt")
		}
	case "api-key":
		if c.APIKey == "" {
			return fmt.Errorf("API_KEY is required when AUTH_MODE=api-key")
		}
	case "none":
	default:
		return fmt.Errorf("unknown AUTH_MODE %q (use jwt, api-key or none)", c.AuthMode)
	}
	return nil
}

func (c *Config) validateSettings() error {
	switch strings.ToLower(c.EmbeddingProvider) {
	case "none", "http", "genai":
	default:
		return fmt.Errorf("unknown EMBEDDING_PROVIDER %q (use none, http or genai)", c.EmbeddingProvider)
	}
	if c.TrackerDebounce < 0 {
		return fmt.Errorf("TRACKER_DEBOUNCE must not be negative")
	}
	if c.IntelligenceCacheSize < 1 {
		return fmt.Errorf("INTELLIGENCE_CACHE_SIZE must be at least 1")
	}
	if c.SessionCapacity < 1 {
		return fmt.Errorf("SESSION_CAPACITY must be at least 1")
	}
	return nil
}

// Load reads configuration from environment variables.
func Load() (*Config, error) {
	return LoadWithPrefix("")
}

// LoadWithPrefix reads configuration with a prefix.
func LoadWithPrefix(prefix string) (*Config, error) {
	var cfg Config
	if err := envconfig.Process(prefix, &cfg); err != nil {
		if prefix == "" {
			return nil, fmt.Errorf("loading config: %w", err)
		}
		return nil, fmt.Errorf("loading config with prefix %s: %w", prefix, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return &cfg, nil
}

// LoadOffline reads configuration for commands that serve no requests. The
// auth settings are not checked.
func LoadOffline() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}
	if err := cfg.validateSettings(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return &cfg, nil
}
