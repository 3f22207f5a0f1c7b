// Package upload drives chunked media uploads: INIT, ordered APPENDs,
// FINALIZE and an optional processing-status poll.
package upload

import (
	"context"
	"time"
)

// State is the server-reported processing state of an uploaded asset.
type State string

const (
	StatePending    State = "pending"
	StateInProgress State = "in_progress"
	StateSucceeded  State = "succeeded"
	StateFailed     State = "failed"
)

// Terminal reports whether no further polling is needed.
func (s State) Terminal() bool {
	return s == StateSucceeded || s == StateFailed
}

// Processing is the server's view of asynchronous work on an upload.
type Processing struct {
	State      State
	CheckAfter time.Duration
	Progress   int
	Reason     string
}

// Segment is one contiguous slice of the media.
type Segment struct {
	Index  int
	Offset int64
	Total  int64
	Data   []byte
}

// Last reports whether this segment ends the media.
func (s Segment) Last() bool {
	return s.Offset+int64(len(s.Data)) >= s.Total
}

// Protocol is a platform's chunked upload API.
type Protocol interface {
	// Init opens a session for total bytes of the given MIME type.
	Init(ctx context.Context, total int64, mimeType string) (sessionID string, err error)
	// Append sends one segment. Segments arrive strictly in index order.
	Append(ctx context.Context, sessionID string, seg Segment) error
	// Finalize closes the session. A nil Processing means the media is
	// ready to use; mediaRef identifies it in later API calls.
	Finalize(ctx context.Context, sessionID string) (proc *Processing, mediaRef string, err error)
	// Status reports processing progress after Finalize.
	Status(ctx context.Context, sessionID string) (*Processing, error)
}

// Resumer is implemented by protocols that can continue a session opened
// by an earlier Upload call.
type Resumer interface {
	CanResume(ctx context.Context, sessionID string) bool
}
