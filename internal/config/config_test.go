package config

import (
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/abdulachik/socialgate/internal/social"
)

func TestLoad(t *testing.T) {
	// Save original env and restore after test
	origEnv := os.Environ()
	t.Cleanup(func() {
		os.Clearenv()
		for _, e := range origEnv {
			for i := 0; i < len(e); i++ {
				if e[i] == '=' {
					os.Setenv(e[:i], e[i+1:])
					break
				}
			}
		}
	})

	t.Run("defaults", func(t *testing.T) {
		os.Clearenv()
		cfg, err := Load()
		require.NoError(t, err)

		assert.Equal(t, "info", cfg.LogLevel)
		assert.Equal(t, "sqlite", cfg.StoreDriver)
		assert.Equal(t, "data/socialgate.db", cfg.DatabasePath)
		assert.Equal(t, 30*time.Second, cfg.HTTPTimeout)
		assert.Equal(t, 10*time.Minute, cfg.StateTTL)
		assert.Equal(t, 10*time.Minute, cfg.UploadPollTimeout)
		assert.Equal(t, 1.5, cfg.UploadBackoffFactor)
		assert.Equal(t, time.Minute, cfg.UploadMaxPollDelay)
		assert.Equal(t, 24*time.Hour, cfg.UploadCheckpointTTL)
		assert.Equal(t, "v19.0", cfg.GraphAPIVersion)
		assert.Len(t, cfg.Platforms, len(social.Platforms()))
		assert.Zero(t, cfg.Platform(social.Twitter).RateLimit)
	})

	t.Run("custom values", func(t *testing.T) {
		os.Clearenv()
		os.Setenv("STORE_DRIVER", "redis")
		os.Setenv("REDIS_URL", "redis://localhost:6379/0")
		os.Setenv("UPLOAD_BACKOFF_FACTOR", "2")
		os.Setenv("UPLOAD_POLL_TIMEOUT", "30m")
		os.Setenv("TWITTER_ACCESS_TOKEN", "at")
		os.Setenv("TWITTER_TOKEN_SECRET", "ts")
		os.Setenv("TWITTER_RATE_LIMIT", "300")
		os.Setenv("LINKEDIN_ACCOUNT_ID", "urn:li:organization:42")

		cfg, err := Load()
		require.NoError(t, err)

		assert.Equal(t, "redis", cfg.StoreDriver)
		assert.Equal(t, "redis://localhost:6379/0", cfg.RedisURL)
		assert.Equal(t, 2.0, cfg.UploadBackoffFactor)
		assert.Equal(t, 30*time.Minute, cfg.UploadPollTimeout)

		tw := cfg.Platform(social.Twitter)
		assert.Equal(t, 300, tw.RateLimit)
		assert.Equal(t, social.Credential{Platform: social.Twitter, AccessToken: "at", TokenSecret: "ts"}, tw.Credential(social.Twitter))
		assert.Equal(t, "urn:li:organization:42", cfg.Platform(social.LinkedIn).AccountID)
	})

	t.Run("invalid duration", func(t *testing.T) {
		os.Clearenv()
		os.Setenv("UPLOAD_POLL_TIMEOUT", "invalid")

		_, err := Load()
		assert.Error(t, err)
		assert.Contains(t, err.Error(), "UPLOAD_POLL_TIMEOUT")
	})

	t.Run("invalid float", func(t *testing.T) {
		os.Clearenv()
		os.Setenv("UPLOAD_BACKOFF_FACTOR", "fast")

		_, err := Load()
		assert.Error(t, err)
		assert.Contains(t, err.Error(), "UPLOAD_BACKOFF_FACTOR")
	})

	t.Run("invalid rate limit", func(t *testing.T) {
		os.Clearenv()
		os.Setenv("YOUTUBE_RATE_LIMIT", "lots")

		_, err := Load()
		assert.Error(t, err)
		assert.Contains(t, err.Error(), "YOUTUBE_RATE_LIMIT")
	})
}

func validConfig() *Config {
	return &Config{
		HTTPTimeout:         time.Second,
		UploadBackoffFactor: 1.5,
		UploadPollTimeout:   time.Minute,
		StoreDriver:         "sqlite",
		DatabasePath:        "test.db",
		Platforms:           map[social.Platform]Platform{},
	}
}

func TestConfig_Validate(t *testing.T) {
	t.Run("valid", func(t *testing.T) {
		assert.NoError(t, validConfig().Validate())
	})

	t.Run("backoff below one", func(t *testing.T) {
		cfg := validConfig()
		cfg.UploadBackoffFactor = 0.5
		err := cfg.Validate()
		assert.Error(t, err)
		assert.Contains(t, err.Error(), "UPLOAD_BACKOFF_FACTOR")
	})

	t.Run("negative rate limit", func(t *testing.T) {
		cfg := validConfig()
		cfg.Platforms[social.Facebook] = Platform{RateLimit: -1}
		err := cfg.Validate()
		assert.Error(t, err)
		assert.Contains(t, err.Error(), "FACEBOOK_RATE_LIMIT")
	})
}

func TestConfig_ValidateForStore(t *testing.T) {
	tests := []struct {
		name    string
		driver  string
		path    string
		redis   string
		wantErr string
	}{
		{"memory", "memory", "", "", ""},
		{"sqlite", "sqlite", "test.db", "", ""},
		{"sqlite without path", "sqlite", "", "", "DATABASE_PATH"},
		{"redis", "redis", "", "redis://localhost:6379", ""},
		{"redis without url", "redis", "", "", "REDIS_URL"},
		{"unknown", "etcd", "", "", "STORE_DRIVER"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			cfg.StoreDriver = tt.driver
			cfg.DatabasePath = tt.path
			cfg.RedisURL = tt.redis
			err := cfg.ValidateForStore()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			assert.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestConfig_ValidateForPlatform(t *testing.T) {
	t.Run("valid", func(t *testing.T) {
		cfg := validConfig()
		cfg.Platforms[social.LinkedIn] = Platform{AccessToken: "tok"}
		assert.NoError(t, cfg.ValidateForPlatform(social.LinkedIn))
	})

	t.Run("missing token", func(t *testing.T) {
		err := validConfig().ValidateForPlatform(social.YouTube)
		assert.Error(t, err)
		assert.Contains(t, err.Error(), "YOUTUBE_ACCESS_TOKEN")
	})

	t.Run("twitter oauth1 needs consumer keys", func(t *testing.T) {
		cfg := validConfig()
		cfg.Platforms[social.Twitter] = Platform{AccessToken: "at", TokenSecret: "ts"}
		err := cfg.ValidateForPlatform(social.Twitter)
		assert.Error(t, err)
		assert.Contains(t, err.Error(), "TWITTER_CONSUMER_KEY")

		cfg.TwitterConsumerKey = "ck"
		cfg.TwitterConsumerSecret = "cs"
		assert.NoError(t, cfg.ValidateForPlatform(social.Twitter))
	})
}

func TestConfig_ValidateForAuth(t *testing.T) {
	t.Run("valid", func(t *testing.T) {
		cfg := validConfig()
		cfg.Platforms[social.Facebook] = Platform{ClientID: "id", ClientSecret: "secret", RedirectURL: "https://app/cb"}
		assert.NoError(t, cfg.ValidateForAuth(social.Facebook))
	})

	t.Run("missing secret", func(t *testing.T) {
		cfg := validConfig()
		cfg.Platforms[social.Facebook] = Platform{ClientID: "id", RedirectURL: "https://app/cb"}
		err := cfg.ValidateForAuth(social.Facebook)
		assert.Error(t, err)
		assert.Contains(t, err.Error(), "FACEBOOK_CLIENT_SECRET")
	})

	t.Run("twitter public client", func(t *testing.T) {
		cfg := validConfig()
		cfg.Platforms[social.Twitter] = Platform{ClientID: "id", RedirectURL: "https://app/cb"}
		assert.NoError(t, cfg.ValidateForAuth(social.Twitter))
	})

	t.Run("missing redirect", func(t *testing.T) {
		cfg := validConfig()
		cfg.Platforms[social.LinkedIn] = Platform{ClientID: "id", ClientSecret: "secret"}
		err := cfg.ValidateForAuth(social.LinkedIn)
		assert.Error(t, err)
		assert.Contains(t, err.Error(), "LINKEDIN_REDIRECT_URL")
	})
}
