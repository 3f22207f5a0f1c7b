package upload

import (
	"errors"
	"fmt"
)

// ErrProcessingTimeout is returned when processing does not reach a
// terminal state before the poll timeout.
var ErrProcessingTimeout = errors.New("media processing did not finish before timeout")

// SegmentError reports a failed APPEND.
type SegmentError struct {
	Index int
	Err   error
}

func (e *SegmentError) Error() string {
	return fmt.Sprintf("append segment %d: %v", e.Index, e.Err)
}

func (e *SegmentError) Unwrap() error {
	return e.Err
}

// FinalizeError reports a failed FINALIZE. The whole upload is lost.
type FinalizeError struct {
	SessionID string
	Err       error
}

func (e *FinalizeError) Error() string {
	return fmt.Sprintf("finalize upload %s: %v", e.SessionID, e.Err)
}

func (e *FinalizeError) Unwrap() error {
	return e.Err
}

// MediaProcessingError reports that the platform rejected the media after
// it was uploaded.
type MediaProcessingError struct {
	SessionID string
	Reason    string
}

func (e *MediaProcessingError) Error() string {
	if e.Reason == "" {
		return fmt.Sprintf("media processing failed for %s", e.SessionID)
	}
	return fmt.Sprintf("media processing failed for %s: %s", e.SessionID, e.Reason)
}
