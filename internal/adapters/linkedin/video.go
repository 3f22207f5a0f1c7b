package linkedin

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/abdulachik/socialgate/internal/httpx"
	"github.com/abdulachik/socialgate/internal/social"
	"github.com/abdulachik/socialgate/internal/store"
	"github.com/abdulachik/socialgate/internal/upload"
)

type uploadInstruction struct {
	UploadURL string `json:"uploadUrl"`
	FirstByte int64  `json:"firstByte"`
	LastByte  int64  `json:"lastByte"`
}

type videoSession struct {
	Owner        string              `json:"owner"`
	UploadToken  string              `json:"upload_token"`
	Instructions []uploadInstruction `json:"instructions"`
	ETags        []string            `json:"etags"`
}

// videoSessions persists open uploads in the checkpoint store so an
// interrupted upload can resume, in this process or a later one sharing the
// store. LinkedIn has no API to list uploaded parts. Entries expire after
// ttl whether or not the upload finishes.
type videoSessions struct {
	mu    sync.Mutex
	store store.Store
	ttl   time.Duration
}

func newVideoSessions(st store.Store, ttl time.Duration) *videoSessions {
	if st == nil {
		st = store.NewMemory()
	}
	if ttl <= 0 {
		ttl = upload.DefaultCheckpointTTL
	}
	return &videoSessions{store: st, ttl: ttl}
}

func videoSessionKey(video string) string {
	return "linkedin:video:" + video
}

func (s *videoSessions) get(ctx context.Context, video string) (*videoSession, error) {
	data, err := s.store.Get(ctx, videoSessionKey(video))
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, fmt.Errorf("unknown upload session %s", video)
		}
		return nil, fmt.Errorf("load upload session: %w", err)
	}
	var v videoSession
	if err := json.Unmarshal(data, &v); err != nil {
		return nil, fmt.Errorf("decode upload session: %w", err)
	}
	return &v, nil
}

func (s *videoSessions) put(ctx context.Context, video string, v *videoSession) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	if err := s.store.Put(ctx, videoSessionKey(video), data, s.ttl); err != nil {
		return fmt.Errorf("save upload session: %w", err)
	}
	if m, ok := s.store.(*store.Memory); ok {
		m.Purge(ctx)
	}
	return nil
}

// update applies fn to the stored session under the lock.
func (s *videoSessions) update(ctx context.Context, video string, fn func(*videoSession) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	v, err := s.get(ctx, video)
	if err != nil {
		return err
	}
	if err := fn(v); err != nil {
		return err
	}
	return s.put(ctx, video, v)
}

func (s *videoSessions) remove(ctx context.Context, video string) {
	if err := s.store.Delete(ctx, videoSessionKey(video)); err != nil {
		slog.Warn("remove linkedin upload session", "video", video, "error", err)
	}
}

// videoUpload runs the initializeUpload / part PUT / finalizeUpload
// sequence for one credential. Session ids are video URNs.
type videoUpload struct {
	a    *Adapter
	cred social.Credential
}

var (
	_ upload.Protocol = (*videoUpload)(nil)
	_ upload.Resumer  = (*videoUpload)(nil)
)

func (v *videoUpload) Init(ctx context.Context, total int64, mimeType string) (string, error) {
	owner := authorURN(v.cred)
	body := map[string]any{
		"initializeUploadRequest": map[string]any{
			"owner":           owner,
			"fileSizeBytes":   total,
			"uploadCaptions":  false,
			"uploadThumbnail": false,
		},
	}

	var res struct {
		Value struct {
			Video              string              `json:"video"`
			UploadToken        string              `json:"uploadToken"`
			UploadInstructions []uploadInstruction `json:"uploadInstructions"`
		} `json:"value"`
	}
	err := v.a.call(ctx, v.cred, httpx.Request{
		Op:     "video_initialize_upload",
		Method: http.MethodPost,
		URL:    "/rest/videos?action=initializeUpload",
		JSON:   body,
	}, &res)
	if err != nil {
		return "", err
	}
	if res.Value.Video == "" || len(res.Value.UploadInstructions) == 0 {
		return "", fmt.Errorf("initializeUpload returned no video or instructions")
	}

	err = v.a.videos.put(ctx, res.Value.Video, &videoSession{
		Owner:        owner,
		UploadToken:  res.Value.UploadToken,
		Instructions: res.Value.UploadInstructions,
	})
	if err != nil {
		return "", err
	}
	return res.Value.Video, nil
}

// Append PUTs the segment to the instruction covering its byte range and
// keeps the returned ETag for finalizeUpload.
func (v *videoUpload) Append(ctx context.Context, video string, seg upload.Segment) error {
	sess, err := v.a.videos.get(ctx, video)
	if err != nil {
		return err
	}

	last := seg.Offset + int64(len(seg.Data)) - 1
	var target *uploadInstruction
	for i := range sess.Instructions {
		in := &sess.Instructions[i]
		if in.FirstByte == seg.Offset && in.LastByte == last {
			target = in
			break
		}
	}
	if target == nil {
		return fmt.Errorf("no upload instruction for bytes %d-%d; part size must match LinkedIn's", seg.Offset, last)
	}

	resp, err := v.a.http.Do(ctx, httpx.Request{
		Op:          "video_upload_part",
		Method:      http.MethodPut,
		URL:         target.UploadURL,
		Token:       v.cred.AccessToken,
		Body:        bytes.NewReader(seg.Data),
		ContentType: "application/octet-stream",
	})
	if err != nil {
		return err
	}
	etag := resp.Header.Get("ETag")
	if etag == "" {
		return fmt.Errorf("part %d: response has no ETag", seg.Index)
	}

	return v.a.videos.update(ctx, video, func(sess *videoSession) error {
		if len(sess.ETags) < seg.Index {
			return fmt.Errorf("part %d uploaded before part %d", seg.Index, len(sess.ETags))
		}
		sess.ETags = append(sess.ETags[:seg.Index], etag)
		return nil
	})
}

func (v *videoUpload) Finalize(ctx context.Context, video string) (*upload.Processing, string, error) {
	sess, err := v.a.videos.get(ctx, video)
	if err != nil {
		return nil, "", err
	}
	defer v.a.videos.remove(ctx, video)

	body := map[string]any{
		"finalizeUploadRequest": map[string]any{
			"video":           video,
			"uploadToken":     sess.UploadToken,
			"uploadedPartIds": sess.ETags,
		},
	}
	err = v.a.call(ctx, v.cred, httpx.Request{
		Op:     "video_finalize_upload",
		Method: http.MethodPost,
		URL:    "/rest/videos?action=finalizeUpload",
		JSON:   body,
	}, nil)
	if err != nil {
		return nil, "", err
	}
	return &upload.Processing{State: upload.StatePending}, video, nil
}

func (v *videoUpload) Status(ctx context.Context, video string) (*upload.Processing, error) {
	var res struct {
		Status string `json:"status"`
	}
	err := v.a.call(ctx, v.cred, httpx.Request{
		Op:     "get_video",
		Method: http.MethodGet,
		URL:    "/rest/videos/" + escape(video),
	}, &res)
	if err != nil {
		return nil, err
	}

	switch res.Status {
	case "AVAILABLE":
		return &upload.Processing{State: upload.StateSucceeded}, nil
	case "PROCESSING_FAILED":
		return &upload.Processing{State: upload.StateFailed, Reason: "video processing failed"}, nil
	case "WAITING_UPLOAD":
		return &upload.Processing{State: upload.StatePending}, nil
	}
	return &upload.Processing{State: upload.StateInProgress}, nil
}

// CanResume reports whether the session's upload instructions are still
// stored and belong to the same author.
func (v *videoUpload) CanResume(ctx context.Context, video string) bool {
	sess, err := v.a.videos.get(ctx, video)
	return err == nil && sess.Owner == authorURN(v.cred)
}
