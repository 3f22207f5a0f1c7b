package twitter

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/abdulachik/socialgate/internal/httpx"
	"github.com/abdulachik/socialgate/internal/media"
	"github.com/abdulachik/socialgate/internal/social"
	"github.com/abdulachik/socialgate/internal/upload"
)

// mediaUpload is the v1.1 chunked upload protocol for one credential.
type mediaUpload struct {
	a        *Adapter
	cred     social.Credential
	category string
}

var (
	_ upload.Protocol = (*mediaUpload)(nil)
	_ upload.Resumer  = (*mediaUpload)(nil)
)

type processingInfo struct {
	State          string `json:"state"`
	CheckAfterSecs int    `json:"check_after_secs"`
	ProgressPct    int    `json:"progress_percent"`
	Error          *struct {
		Code    int    `json:"code"`
		Name    string `json:"name"`
		Message string `json:"message"`
	} `json:"error"`
}

func (p *processingInfo) normalize() *upload.Processing {
	if p == nil {
		return nil
	}
	out := &upload.Processing{
		CheckAfter: time.Duration(p.CheckAfterSecs) * time.Second,
		Progress:   p.ProgressPct,
	}
	switch p.State {
	case "pending":
		out.State = upload.StatePending
	case "in_progress":
		out.State = upload.StateInProgress
	case "succeeded":
		out.State = upload.StateSucceeded
	case "failed":
		out.State = upload.StateFailed
	default:
		out.State = upload.StateInProgress
	}
	if p.Error != nil {
		out.Reason = p.Error.Message
		if out.Reason == "" {
			out.Reason = p.Error.Name
		}
	}
	return out
}

type uploadResponse struct {
	MediaIDString  string          `json:"media_id_string"`
	ProcessingInfo *processingInfo `json:"processing_info"`
}

func (u *mediaUpload) endpoint() string {
	return u.a.uploadBaseURL + "/1.1/media/upload.json"
}

func (u *mediaUpload) Init(ctx context.Context, total int64, mimeType string) (string, error) {
	form := url.Values{
		"command":     {"INIT"},
		"total_bytes": {strconv.FormatInt(total, 10)},
		"media_type":  {mimeType},
	}
	if u.category != "" {
		form.Set("media_category", u.category)
	}

	var res uploadResponse
	err := u.a.call(ctx, u.cred, httpx.Request{Op: "media_init", Method: http.MethodPost, URL: u.endpoint(), Form: form}, &res)
	if err != nil {
		return "", err
	}
	if res.MediaIDString == "" {
		return "", fmt.Errorf("INIT returned no media id")
	}
	return res.MediaIDString, nil
}

func (u *mediaUpload) Append(ctx context.Context, mediaID string, seg upload.Segment) error {
	body, contentType, err := httpx.Multipart(map[string]string{
		"command":       "APPEND",
		"media_id":      mediaID,
		"segment_index": strconv.Itoa(seg.Index),
	}, &httpx.FilePart{
		Field:       "media",
		Filename:    "blob",
		ContentType: "application/octet-stream",
		Reader:      bytes.NewReader(seg.Data),
	})
	if err != nil {
		return err
	}
	return u.a.call(ctx, u.cred, httpx.Request{
		Op:          "media_append",
		Method:      http.MethodPost,
		URL:         u.endpoint(),
		Body:        body,
		ContentType: contentType,
	}, nil)
}

func (u *mediaUpload) Finalize(ctx context.Context, mediaID string) (*upload.Processing, string, error) {
	form := url.Values{"command": {"FINALIZE"}, "media_id": {mediaID}}
	var res uploadResponse
	err := u.a.call(ctx, u.cred, httpx.Request{Op: "media_finalize", Method: http.MethodPost, URL: u.endpoint(), Form: form}, &res)
	if err != nil {
		return nil, "", err
	}
	ref := res.MediaIDString
	if ref == "" {
		ref = mediaID
	}
	return res.ProcessingInfo.normalize(), ref, nil
}

func (u *mediaUpload) Status(ctx context.Context, mediaID string) (*upload.Processing, error) {
	q := url.Values{"command": {"STATUS"}, "media_id": {mediaID}}
	var res uploadResponse
	err := u.a.call(ctx, u.cred, httpx.Request{Op: "media_status", Method: http.MethodGet, URL: u.endpoint(), Query: q}, &res)
	if err != nil {
		return nil, err
	}
	if res.ProcessingInfo == nil {
		return &upload.Processing{State: upload.StateSucceeded}, nil
	}
	return res.ProcessingInfo.normalize(), nil
}

// CanResume is true: media ids stay valid for APPEND until they expire
// server side, which also fails the next APPEND cleanly.
func (u *mediaUpload) CanResume(context.Context, string) bool {
	return true
}

// mediaCategory picks the media_category for a MIME type. prefix is
// "tweet" or "dm".
func mediaCategory(prefix, mimeType string) string {
	switch {
	case mimeType == "image/gif":
		return prefix + "_gif"
	case strings.HasPrefix(mimeType, "video/"):
		return prefix + "_video"
	default:
		return prefix + "_image"
	}
}

// uploadMedia resolves m and sends it through the chunked upload,
// returning the media id.
func (a *Adapter) uploadMedia(ctx context.Context, cred social.Credential, prefix string, m social.Media) (string, error) {
	obj, err := media.Resolve(ctx, a.media, m)
	if err != nil {
		return "", err
	}
	defer obj.Close()

	proto := &mediaUpload{a: a, cred: cred, category: mediaCategory(prefix, obj.MIMEType)}
	coord := upload.NewCoordinator(proto, a.uploadCfg)
	resumeKey := m.ResumeKey
	if resumeKey != "" {
		resumeKey = cred.AccountID + ":" + resumeKey
	}
	return coord.Upload(ctx, upload.Source{
		Reader:    obj,
		Size:      obj.Size,
		MIMEType:  obj.MIMEType,
		ResumeKey: resumeKey,
	})
}

// UploadMedia uploads m for use in a later tweet.
func (a *Adapter) UploadMedia(ctx context.Context, cred social.Credential, m social.Media) (string, error) {
	const op = "upload media"
	if err := social.RequireToken(cred); err != nil {
		return "", a.wrap(social.ErrPublishing, op, err)
	}
	if err := social.Validate(m); err != nil {
		return "", a.wrap(social.ErrPublishing, op, err)
	}
	id, err := a.uploadMedia(ctx, cred, "tweet", m)
	return id, a.wrap(social.ErrPublishing, op, err)
}
