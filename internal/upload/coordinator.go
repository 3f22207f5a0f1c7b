package upload

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/abdulachik/socialgate/internal/store"
)

// DefaultCheckpointTTL applies when Config.CheckpointTTL is unset.
const DefaultCheckpointTTL = 24 * time.Hour

// Config tunes a Coordinator.
type Config struct {
	Platform    string
	SegmentSize int

	PollTimeout   time.Duration
	BackoffFactor float64
	InitialDelay  time.Duration
	MaxDelay      time.Duration

	// Checkpoints enables resumable uploads for sources with a ResumeKey.
	Checkpoints   store.Store
	CheckpointTTL time.Duration

	Recorder Recorder
	Sleep    func(ctx context.Context, d time.Duration) error
}

// Source is the media to upload. Size must match the bytes Reader yields.
type Source struct {
	Reader    io.Reader
	Size      int64
	MIMEType  string
	ResumeKey string
}

// Coordinator runs the INIT / APPEND / FINALIZE / POLL sequence against a
// Protocol. It is safe to share; each Upload is an independent session.
type Coordinator struct {
	protocol Protocol
	cfg      Config
}

// NewCoordinator creates a coordinator for p.
func NewCoordinator(p Protocol, cfg Config) *Coordinator {
	return &Coordinator{protocol: p, cfg: cfg}
}

type checkpoint struct {
	SessionID   string `json:"session_id"`
	NextIndex   int    `json:"next_index"`
	SegmentSize int    `json:"segment_size"`
	Total       int64  `json:"total"`
}

// SegmentCount returns ceil(size/segmentSize).
func SegmentCount(size int64, segmentSize int) int {
	if size <= 0 || segmentSize <= 0 {
		return 0
	}
	return int((size + int64(segmentSize) - 1) / int64(segmentSize))
}

// Upload sends src and returns the platform's media reference once the
// media is ready for use.
func (c *Coordinator) Upload(ctx context.Context, src Source) (string, error) {
	if src.Reader == nil {
		return "", fmt.Errorf("upload source has no reader")
	}
	if src.Size <= 0 {
		return "", fmt.Errorf("upload source is empty")
	}
	if src.MIMEType == "" {
		return "", fmt.Errorf("upload source has no MIME type")
	}
	if c.cfg.SegmentSize <= 0 {
		return "", fmt.Errorf("segment size must be positive")
	}

	sessionID, next, err := c.begin(ctx, src)
	if err != nil {
		return "", err
	}

	segSize := int64(c.cfg.SegmentSize)
	if next > 0 {
		if err := skip(src.Reader, int64(next)*segSize); err != nil {
			return "", fmt.Errorf("skip uploaded segments: %w", err)
		}
	}

	count := SegmentCount(src.Size, c.cfg.SegmentSize)
	buf := make([]byte, c.cfg.SegmentSize)
	for i := next; i < count; i++ {
		offset := int64(i) * segSize
		n := segSize
		if remaining := src.Size - offset; remaining < n {
			n = remaining
		}

		if _, err := io.ReadFull(src.Reader, buf[:n]); err != nil {
			return "", fmt.Errorf("read segment %d: source shorter than declared size %d: %w", i, src.Size, err)
		}

		seg := Segment{Index: i, Offset: offset, Total: src.Size, Data: buf[:n]}
		if err := c.protocol.Append(ctx, sessionID, seg); err != nil {
			return "", &SegmentError{Index: i, Err: err}
		}

		if c.cfg.Recorder != nil {
			c.cfg.Recorder.RecordSegment(c.cfg.Platform, int(n))
		}
		slog.Debug("segment appended",
			"platform", c.cfg.Platform,
			"session", sessionID,
			"index", i,
			"bytes", n,
		)
		c.saveCheckpoint(ctx, src, checkpoint{
			SessionID:   sessionID,
			NextIndex:   i + 1,
			SegmentSize: c.cfg.SegmentSize,
			Total:       src.Size,
		})
	}

	var extra [1]byte
	if n, _ := io.ReadFull(src.Reader, extra[:]); n > 0 {
		c.clearCheckpoint(ctx, src)
		return "", fmt.Errorf("source longer than declared size %d", src.Size)
	}

	proc, ref, err := c.protocol.Finalize(ctx, sessionID)
	c.clearCheckpoint(ctx, src)
	if err != nil {
		return "", &FinalizeError{SessionID: sessionID, Err: err}
	}

	if proc != nil {
		if err := c.poller().Wait(ctx, sessionID, *proc, func(ctx context.Context) (*Processing, error) {
			return c.protocol.Status(ctx, sessionID)
		}); err != nil {
			return "", err
		}
	}

	slog.Info("upload complete",
		"platform", c.cfg.Platform,
		"media", ref,
		"bytes", src.Size,
		"segments", count,
	)
	return ref, nil
}

func (c *Coordinator) poller() Poller {
	return Poller{
		Platform:      c.cfg.Platform,
		Timeout:       c.cfg.PollTimeout,
		BackoffFactor: c.cfg.BackoffFactor,
		InitialDelay:  c.cfg.InitialDelay,
		MaxDelay:      c.cfg.MaxDelay,
		Recorder:      c.cfg.Recorder,
		Sleep:         c.cfg.Sleep,
	}
}

// begin resumes a checkpointed session when possible, else opens a new one.
func (c *Coordinator) begin(ctx context.Context, src Source) (string, int, error) {
	if cp, ok := c.loadCheckpoint(ctx, src); ok {
		slog.Info("resuming upload",
			"platform", c.cfg.Platform,
			"session", cp.SessionID,
			"next_index", cp.NextIndex,
		)
		return cp.SessionID, cp.NextIndex, nil
	}

	sessionID, err := c.protocol.Init(ctx, src.Size, src.MIMEType)
	if err != nil {
		return "", 0, fmt.Errorf("init upload: %w", err)
	}
	return sessionID, 0, nil
}

func (c *Coordinator) checkpointKey(src Source) string {
	return "upload:" + c.cfg.Platform + ":" + src.ResumeKey
}

func (c *Coordinator) loadCheckpoint(ctx context.Context, src Source) (checkpoint, bool) {
	var cp checkpoint
	if c.cfg.Checkpoints == nil || src.ResumeKey == "" {
		return cp, false
	}

	data, err := c.cfg.Checkpoints.Get(ctx, c.checkpointKey(src))
	if err != nil {
		if !errors.Is(err, store.ErrNotFound) {
			slog.Warn("load upload checkpoint", "error", err)
		}
		return cp, false
	}
	if err := json.Unmarshal(data, &cp); err != nil {
		slog.Warn("decode upload checkpoint", "error", err)
		return cp, false
	}

	if cp.Total != src.Size || cp.SegmentSize != c.cfg.SegmentSize || cp.SessionID == "" {
		return cp, false
	}
	if cp.NextIndex <= 0 || cp.NextIndex >= SegmentCount(src.Size, c.cfg.SegmentSize) {
		return cp, false
	}
	r, ok := c.protocol.(Resumer)
	if !ok || !r.CanResume(ctx, cp.SessionID) {
		return cp, false
	}
	return cp, true
}

func (c *Coordinator) saveCheckpoint(ctx context.Context, src Source, cp checkpoint) {
	if c.cfg.Checkpoints == nil || src.ResumeKey == "" {
		return
	}
	data, err := json.Marshal(cp)
	if err != nil {
		return
	}
	ttl := c.cfg.CheckpointTTL
	if ttl <= 0 {
		ttl = DefaultCheckpointTTL
	}
	if err := c.cfg.Checkpoints.Put(ctx, c.checkpointKey(src), data, ttl); err != nil {
		slog.Warn("save upload checkpoint", "error", err)
	}
}

func (c *Coordinator) clearCheckpoint(ctx context.Context, src Source) {
	if c.cfg.Checkpoints == nil || src.ResumeKey == "" {
		return
	}
	if err := c.cfg.Checkpoints.Delete(ctx, c.checkpointKey(src)); err != nil {
		slog.Warn("clear upload checkpoint", "error", err)
	}
}

func skip(r io.Reader, n int64) error {
	if s, ok := r.(io.Seeker); ok {
		_, err := s.Seek(n, io.SeekCurrent)
		return err
	}
	copied, err := io.CopyN(io.Discard, r, n)
	if err != nil {
		return fmt.Errorf("skipped %d of %d bytes: %w", copied, n, err)
	}
	return nil
}
