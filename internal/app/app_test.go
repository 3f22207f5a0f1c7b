package app

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/abdulachik/socialgate/internal/config"
	"github.com/abdulachik/socialgate/internal/social"
)

func testConfig(t *testing.T) *config.Config {
	return &config.Config{
		HTTPTimeout:         time.Second,
		StoreDriver:         "sqlite",
		DatabasePath:        filepath.Join(t.TempDir(), "socialgate.db"),
		StateTTL:            time.Minute,
		UploadPollTimeout:   time.Minute,
		UploadBackoffFactor: 1.5,
		UploadMaxPollDelay:  time.Second,
		S3Region:            "us-east-1",
		Platforms:           map[social.Platform]config.Platform{},
	}
}

func TestNew(t *testing.T) {
	ctx := context.Background()

	t.Run("wires dependencies", func(t *testing.T) {
		a, err := New(ctx, testConfig(t))
		require.NoError(t, err)
		defer a.Close()

		assert.NotNil(t, a.Store)
		assert.NotNil(t, a.Media.Fetcher)
		assert.NotNil(t, a.Metrics)

		adapter, err := a.Registry.Adapter(social.YouTube)
		require.NoError(t, err)
		assert.Equal(t, social.YouTube, adapter.Platform())
	})

	t.Run("invalid store driver", func(t *testing.T) {
		cfg := testConfig(t)
		cfg.StoreDriver = "etcd"
		_, err := New(ctx, cfg)
		assert.Error(t, err)
		assert.Contains(t, err.Error(), "STORE_DRIVER")
	})
}

func TestApp_Check(t *testing.T) {
	cfg := testConfig(t)
	cfg.Platforms[social.Twitter] = config.Platform{AccessToken: "at", TokenSecret: "ts"}

	a, err := New(context.Background(), cfg)
	require.NoError(t, err)
	defer a.Close()

	h := a.Check(context.Background())

	store := h.GetStatus("store")
	require.NotNil(t, store)
	assert.True(t, store.Healthy)
	assert.Equal(t, "sqlite store reachable", store.Message)

	// consumer keys are missing, so the credential is rejected before any request
	tw := h.GetStatus("twitter")
	require.NotNil(t, tw)
	assert.False(t, tw.Healthy)
	assert.Contains(t, tw.Message, "TWITTER_CONSUMER_KEY")
	assert.False(t, h.IsOverallHealthy())
}

func TestApp_CloseWritesMetrics(t *testing.T) {
	cfg := testConfig(t)
	cfg.MetricsFile = filepath.Join(t.TempDir(), "socialgate.prom")

	a, err := New(context.Background(), cfg)
	require.NoError(t, err)

	a.Metrics.RecordSegment("twitter", 1024)
	require.NoError(t, a.Close())

	data, err := os.ReadFile(cfg.MetricsFile)
	require.NoError(t, err)
	assert.Contains(t, string(data), `socialgate_upload_bytes_total{platform="twitter"} 1024`)
}
