package upload

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"
)

const (
	DefaultPollTimeout   = 10 * time.Minute
	DefaultBackoffFactor = 1.5
	DefaultInitialDelay  = time.Second
	DefaultMaxDelay      = time.Minute
)

// Recorder receives upload progress events.
type Recorder interface {
	RecordSegment(platform string, bytes int)
	RecordPoll(platform, state string)
}

// StatusFunc queries the current processing state.
type StatusFunc func(ctx context.Context) (*Processing, error)

// Poller waits for server-side processing to reach a terminal state.
// The wait between checks is the server's suggestion when given, else the
// previous wait multiplied by BackoffFactor, capped at MaxDelay.
type Poller struct {
	Platform      string
	Timeout       time.Duration
	BackoffFactor float64
	InitialDelay  time.Duration
	MaxDelay      time.Duration
	Recorder      Recorder

	// Sleep blocks for d or until ctx is done. Defaults to a timer.
	Sleep func(ctx context.Context, d time.Duration) error
}

// Wait polls status until processing succeeds, fails or times out. initial
// is the processing info returned by the call that started the work.
func (p Poller) Wait(ctx context.Context, sessionID string, initial Processing, status StatusFunc) error {
	switch initial.State {
	case StateSucceeded:
		return nil
	case StateFailed:
		return &MediaProcessingError{SessionID: sessionID, Reason: initial.Reason}
	}

	timeout := p.Timeout
	if timeout <= 0 {
		timeout = DefaultPollTimeout
	}
	pollCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	delay := p.clamp(initial.CheckAfter)
	if delay <= 0 {
		delay = p.initialDelay()
	}

	for {
		if err := p.sleep(pollCtx, delay); err != nil {
			return p.waitError(ctx, err, timeout)
		}

		proc, err := status(pollCtx)
		if err != nil {
			if pollCtx.Err() != nil {
				return p.waitError(ctx, pollCtx.Err(), timeout)
			}
			return fmt.Errorf("check processing status: %w", err)
		}

		if p.Recorder != nil {
			p.Recorder.RecordPoll(p.Platform, string(proc.State))
		}
		slog.Debug("media processing status",
			"platform", p.Platform,
			"session", sessionID,
			"state", proc.State,
			"progress", proc.Progress,
		)

		switch proc.State {
		case StateSucceeded:
			return nil
		case StateFailed:
			return &MediaProcessingError{SessionID: sessionID, Reason: proc.Reason}
		}

		if proc.CheckAfter > 0 {
			delay = proc.CheckAfter
		} else {
			delay = time.Duration(float64(delay) * p.backoffFactor())
		}
		delay = p.clamp(delay)
	}
}

func (p Poller) waitError(parent context.Context, err error, timeout time.Duration) error {
	if parent.Err() == nil && errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%w (%s)", ErrProcessingTimeout, timeout)
	}
	return fmt.Errorf("wait for processing: %w", err)
}

func (p Poller) clamp(d time.Duration) time.Duration {
	max := p.MaxDelay
	if max <= 0 {
		max = DefaultMaxDelay
	}
	if d > max {
		return max
	}
	return d
}

func (p Poller) initialDelay() time.Duration {
	if p.InitialDelay > 0 {
		return p.InitialDelay
	}
	return DefaultInitialDelay
}

// backoffFactor treats values below 1 as unset; 1 keeps the delay constant.
func (p Poller) backoffFactor() float64 {
	if p.BackoffFactor >= 1 {
		return p.BackoffFactor
	}
	return DefaultBackoffFactor
}

func (p Poller) sleep(ctx context.Context, d time.Duration) error {
	if p.Sleep != nil {
		return p.Sleep(ctx, d)
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
