package metrics

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestObserveRequest(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := NewCollector(reg)

	c.ObserveRequest("twitter", "publish_text", 201, 120*time.Millisecond)
	c.ObserveRequest("twitter", "publish_text", 201, 80*time.Millisecond)
	c.ObserveRequest("twitter", "publish_text", 0, time.Second)

	assert.Equal(t, 2.0, testutil.ToFloat64(c.requests.WithLabelValues("twitter", "publish_text", "201")))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.requests.WithLabelValues("twitter", "publish_text", "error")))
	assert.Equal(t, 1, testutil.CollectAndCount(c.duration))
}

func TestUploadCounters(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := NewCollector(reg)

	c.RecordSegment("youtube", 1024)
	c.RecordSegment("youtube", 512)
	c.RecordPoll("youtube", "in_progress")

	assert.Equal(t, 2.0, testutil.ToFloat64(c.segments.WithLabelValues("youtube")))
	assert.Equal(t, 1536.0, testutil.ToFloat64(c.uploadBytes.WithLabelValues("youtube")))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.polls.WithLabelValues("youtube", "in_progress")))
}

func TestNilCollector(t *testing.T) {
	var c *Collector
	assert.NotPanics(t, func() {
		c.ObserveRequest("facebook", "x", 200, time.Millisecond)
		c.RecordSegment("facebook", 1)
		c.RecordPoll("facebook", "pending")
	})
}

func TestWriteFile(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := NewCollector(reg)
	c.ObserveRequest("linkedin", "get_comments", 200, time.Millisecond)

	path := filepath.Join(t.TempDir(), "socialgate.prom")
	require.NoError(t, WriteFile(path, reg))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), `socialgate_requests_total{operation="get_comments",platform="linkedin",status="200"} 1`)
}
