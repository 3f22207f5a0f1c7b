// Package metrics collects prometheus counters for API traffic and uploads.
package metrics

import (
	"fmt"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Collector records request and upload metrics. A nil *Collector is valid
// and records nothing.
type Collector struct {
	requests    *prometheus.CounterVec
	duration    *prometheus.HistogramVec
	segments    *prometheus.CounterVec
	uploadBytes *prometheus.CounterVec
	polls       *prometheus.CounterVec
}

// NewCollector creates a Collector and registers it with reg.
func NewCollector(reg prometheus.Registerer) *Collector {
	c := &Collector{
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "socialgate_requests_total",
			Help: "Vendor API requests by platform, operation and status",
		}, []string{"platform", "operation", "status"}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "socialgate_request_duration_seconds",
			Help:    "Vendor API request latency in seconds",
			Buckets: prometheus.DefBuckets,
		}, []string{"platform", "operation"}),
		segments: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "socialgate_upload_segments_total",
			Help: "Media segments appended by platform",
		}, []string{"platform"}),
		uploadBytes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "socialgate_upload_bytes_total",
			Help: "Media bytes appended by platform",
		}, []string{"platform"}),
		polls: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "socialgate_upload_polls_total",
			Help: "Processing status checks by platform and observed state",
		}, []string{"platform", "state"}),
	}

	reg.MustRegister(c.requests, c.duration, c.segments, c.uploadBytes, c.polls)
	return c
}

// ObserveRequest records one completed API request. Status 0 means the
// request never got a response.
func (c *Collector) ObserveRequest(platform, operation string, status int, d time.Duration) {
	if c == nil {
		return
	}
	label := "error"
	if status > 0 {
		label = strconv.Itoa(status)
	}
	c.requests.WithLabelValues(platform, operation, label).Inc()
	c.duration.WithLabelValues(platform, operation).Observe(d.Seconds())
}

// RecordSegment records one appended upload segment.
func (c *Collector) RecordSegment(platform string, bytes int) {
	if c == nil {
		return
	}
	c.segments.WithLabelValues(platform).Inc()
	c.uploadBytes.WithLabelValues(platform).Add(float64(bytes))
}

// RecordPoll records one processing status check.
func (c *Collector) RecordPoll(platform, state string) {
	if c == nil {
		return
	}
	c.polls.WithLabelValues(platform, state).Inc()
}

// WriteFile writes every metric gathered from g to path in the text
// exposition format.
func WriteFile(path string, g prometheus.Gatherer) error {
	if err := prometheus.WriteToTextfile(path, g); err != nil {
		return fmt.Errorf("write metrics file: %w", err)
	}
	return nil
}
