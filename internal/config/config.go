package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"

	"github.com/abdulachik/socialgate/internal/social"
)

// Platform holds one platform's OAuth client and default credential.
type Platform struct {
	ClientID     string
	ClientSecret string
	RedirectURL  string

	AccessToken  string
	TokenSecret  string // Twitter OAuth 1.0a only
	RefreshToken string
	AccountID    string

	// RateLimit is requests per minute, 0 = unlimited.
	RateLimit int
}

// Credential returns the configured default credential.
func (p Platform) Credential(platform social.Platform) social.Credential {
	return social.Credential{
		Platform:     platform,
		AccessToken:  p.AccessToken,
		TokenSecret:  p.TokenSecret,
		RefreshToken: p.RefreshToken,
		AccountID:    p.AccountID,
	}
}

// Config holds all application configuration.
type Config struct {
	// Logging
	LogLevel string

	// HTTP
	HTTPTimeout time.Duration

	// Store for OAuth state and upload checkpoints
	StoreDriver  string // memory, sqlite or redis
	DatabasePath string
	RedisURL     string
	StateTTL     time.Duration

	// Uploads
	UploadPollTimeout   time.Duration
	UploadBackoffFactor float64
	UploadMaxPollDelay  time.Duration
	UploadCheckpointTTL time.Duration

	// API versions
	GraphAPIVersion string
	LinkedInVersion string

	// Twitter OAuth 1.0a consumer keys
	TwitterConsumerKey    string
	TwitterConsumerSecret string

	// S3 media source
	S3Region          string
	S3Endpoint        string
	S3AccessKeyID     string
	S3SecretAccessKey string

	// MetricsFile receives prometheus metrics when set.
	MetricsFile string

	Platforms map[social.Platform]Platform
}

// Load reads configuration from environment variables.
// It automatically loads .env file if present.
func Load() (*Config, error) {
	// Load .env file if it exists (ignore error if not found)
	_ = godotenv.Load()

	cfg := &Config{
		LogLevel:              getEnv("LOG_LEVEL", "info"),
		StoreDriver:           getEnv("STORE_DRIVER", "sqlite"),
		DatabasePath:          getEnv("DATABASE_PATH", "data/socialgate.db"),
		RedisURL:              getEnv("REDIS_URL", ""),
		GraphAPIVersion:       getEnv("GRAPH_API_VERSION", "v19.0"),
		LinkedInVersion:       getEnv("LINKEDIN_VERSION", "202405"),
		TwitterConsumerKey:    getEnv("TWITTER_CONSUMER_KEY", ""),
		TwitterConsumerSecret: getEnv("TWITTER_CONSUMER_SECRET", ""),
		S3Region:              getEnv("S3_REGION", "us-east-1"),
		S3Endpoint:            getEnv("S3_ENDPOINT", ""),
		S3AccessKeyID:         getEnv("S3_ACCESS_KEY_ID", ""),
		S3SecretAccessKey:     getEnv("S3_SECRET_ACCESS_KEY", ""),
		MetricsFile:           getEnv("METRICS_FILE", ""),
		Platforms:             make(map[social.Platform]Platform),
	}

	// Parse durations
	durations := []struct {
		key string
		def string
		dst *time.Duration
	}{
		{"HTTP_TIMEOUT", "30s", &cfg.HTTPTimeout},
		{"STATE_TTL", "10m", &cfg.StateTTL},
		{"UPLOAD_POLL_TIMEOUT", "10m", &cfg.UploadPollTimeout},
		{"UPLOAD_MAX_POLL_DELAY", "1m", &cfg.UploadMaxPollDelay},
		{"UPLOAD_CHECKPOINT_TTL", "24h", &cfg.UploadCheckpointTTL},
	}
	for _, d := range durations {
		v, err := time.ParseDuration(getEnv(d.key, d.def))
		if err != nil {
			return nil, fmt.Errorf("invalid %s: %w", d.key, err)
		}
		*d.dst = v
	}

	backoff, err := strconv.ParseFloat(getEnv("UPLOAD_BACKOFF_FACTOR", "1.5"), 64)
	if err != nil {
		return nil, fmt.Errorf("invalid UPLOAD_BACKOFF_FACTOR: %w", err)
	}
	cfg.UploadBackoffFactor = backoff

	for _, p := range social.Platforms() {
		prefix := p.EnvPrefix() + "_"
		pc := Platform{
			ClientID:     getEnv(prefix+"CLIENT_ID", ""),
			ClientSecret: getEnv(prefix+"CLIENT_SECRET", ""),
			RedirectURL:  getEnv(prefix+"REDIRECT_URL", ""),
			AccessToken:  getEnv(prefix+"ACCESS_TOKEN", ""),
			TokenSecret:  getEnv(prefix+"TOKEN_SECRET", ""),
			RefreshToken: getEnv(prefix+"REFRESH_TOKEN", ""),
			AccountID:    getEnv(prefix+"ACCOUNT_ID", ""),
		}
		limit, err := strconv.Atoi(getEnv(prefix+"RATE_LIMIT", "0"))
		if err != nil {
			return nil, fmt.Errorf("invalid %sRATE_LIMIT: %w", prefix, err)
		}
		pc.RateLimit = limit
		cfg.Platforms[p] = pc
	}

	return cfg, nil
}

// Platform returns the settings for p.
func (c *Config) Platform(p social.Platform) Platform {
	return c.Platforms[p]
}

// Validate checks that required configuration is present.
func (c *Config) Validate() error {
	if c.HTTPTimeout <= 0 {
		return fmt.Errorf("HTTP_TIMEOUT must be positive")
	}
	if c.UploadBackoffFactor < 1 {
		return fmt.Errorf("UPLOAD_BACKOFF_FACTOR must be at least 1, got %v", c.UploadBackoffFactor)
	}
	if c.UploadPollTimeout <= 0 {
		return fmt.Errorf("UPLOAD_POLL_TIMEOUT must be positive")
	}
	for p, pc := range c.Platforms {
		if pc.RateLimit < 0 {
			return fmt.Errorf("%s_RATE_LIMIT must not be negative", p.EnvPrefix())
		}
	}
	return nil
}

// ValidateForStore checks configuration needed to open the state store.
func (c *Config) ValidateForStore() error {
	if err := c.Validate(); err != nil {
		return err
	}
	switch c.StoreDriver {
	case "memory", "":
	case "sqlite":
		if c.DatabasePath == "" {
			return fmt.Errorf("DATABASE_PATH is required when STORE_DRIVER is sqlite")
		}
	case "redis":
		if c.RedisURL == "" {
			return fmt.Errorf("REDIS_URL is required when STORE_DRIVER is redis")
		}
	default:
		return fmt.Errorf("invalid STORE_DRIVER: %s (must be 'memory', 'sqlite' or 'redis')", c.StoreDriver)
	}
	return nil
}

// ValidateForPlatform checks that a default credential is configured for p.
func (c *Config) ValidateForPlatform(p social.Platform) error {
	if err := c.Validate(); err != nil {
		return err
	}
	pc := c.Platform(p)
	if pc.AccessToken == "" {
		return fmt.Errorf("%s_ACCESS_TOKEN is required", p.EnvPrefix())
	}
	if p == social.Twitter && pc.TokenSecret != "" {
		if c.TwitterConsumerKey == "" || c.TwitterConsumerSecret == "" {
			return fmt.Errorf("TWITTER_CONSUMER_KEY and TWITTER_CONSUMER_SECRET are required with TWITTER_TOKEN_SECRET")
		}
	}
	return nil
}

// ValidateForAuth checks configuration needed for the OAuth flow of p.
func (c *Config) ValidateForAuth(p social.Platform) error {
	if err := c.ValidateForStore(); err != nil {
		return err
	}
	pc := c.Platform(p)
	if pc.ClientID == "" {
		return fmt.Errorf("%s_CLIENT_ID is required for auth", p.EnvPrefix())
	}
	// Twitter allows public PKCE clients without a secret.
	if pc.ClientSecret == "" && p != social.Twitter {
		return fmt.Errorf("%s_CLIENT_SECRET is required for auth", p.EnvPrefix())
	}
	if pc.RedirectURL == "" {
		return fmt.Errorf("%s_REDIRECT_URL is required for auth", p.EnvPrefix())
	}
	return nil
}

func getEnv(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}
