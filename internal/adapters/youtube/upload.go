package youtube

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"

	"github.com/abdulachik/socialgate/internal/httpx"
	"github.com/abdulachik/socialgate/internal/media"
	"github.com/abdulachik/socialgate/internal/social"
	"github.com/abdulachik/socialgate/internal/upload"
)

// statusResumeIncomplete is returned for every accepted chunk but the last.
const statusResumeIncomplete = 308

// videoResource is the metadata sent when a resumable session opens.
type videoResource struct {
	Snippet videoSnippet `json:"snippet"`
	Status  videoState   `json:"status"`
}

type videoSnippet struct {
	Title       string   `json:"title"`
	Description string   `json:"description,omitempty"`
	Tags        []string `json:"tags,omitempty"`
	CategoryID  string   `json:"categoryId,omitempty"`
}

type videoState struct {
	PrivacyStatus           string `json:"privacyStatus"`
	PublishAt               string `json:"publishAt,omitempty"`
	SelfDeclaredMadeForKids bool   `json:"selfDeclaredMadeForKids"`
}

// resumableUpload maps the coordinator onto a resumable upload session.
// Session ids are the session URIs returned in the Location header.
type resumableUpload struct {
	a       *Adapter
	cred    social.Credential
	meta    videoResource
	videoID string
}

var (
	_ upload.Protocol = (*resumableUpload)(nil)
	_ upload.Resumer  = (*resumableUpload)(nil)
)

func (u *resumableUpload) Init(ctx context.Context, total int64, mimeType string) (string, error) {
	h := http.Header{}
	h.Set("X-Upload-Content-Length", strconv.FormatInt(total, 10))
	h.Set("X-Upload-Content-Type", mimeType)

	resp, err := u.a.http.Do(ctx, httpx.Request{
		Op:     "video_upload_init",
		Method: http.MethodPost,
		URL:    u.a.baseURL + "/upload/youtube/v3/videos",
		Query:  url.Values{"uploadType": {"resumable"}, "part": {"snippet,status"}},
		Header: h,
		Token:  u.cred.AccessToken,
		JSON:   u.meta,
	})
	if err != nil {
		return "", err
	}
	session := resp.Header.Get("Location")
	if session == "" {
		return "", errors.New("resumable upload returned no session uri")
	}
	return session, nil
}

// Append PUTs one chunk with its Content-Range. The last chunk's response
// carries the created video.
func (u *resumableUpload) Append(ctx context.Context, session string, seg upload.Segment) error {
	end := seg.Offset + int64(len(seg.Data)) - 1
	h := http.Header{}
	h.Set("Content-Range", fmt.Sprintf("bytes %d-%d/%d", seg.Offset, end, seg.Total))

	resp, err := u.a.http.Do(ctx, httpx.Request{
		Op:          "video_upload_chunk",
		Method:      http.MethodPut,
		URL:         session,
		Header:      h,
		Token:       u.cred.AccessToken,
		Body:        bytes.NewReader(seg.Data),
		ContentType: "application/octet-stream",
		Accept:      []int{statusResumeIncomplete},
	})
	if err != nil {
		return err
	}
	if resp.StatusCode == statusResumeIncomplete {
		if seg.Last() {
			return errors.New("server expects more bytes after the final chunk")
		}
		return nil
	}

	var video struct {
		ID string `json:"id"`
	}
	if err := resp.Decode(&video); err != nil {
		return err
	}
	if video.ID == "" {
		return errors.New("upload completed without a video id")
	}
	u.videoID = video.ID
	return nil
}

func (u *resumableUpload) Finalize(ctx context.Context, session string) (*upload.Processing, string, error) {
	if u.videoID == "" {
		return nil, "", errors.New("upload did not complete")
	}
	return &upload.Processing{State: upload.StatePending}, u.videoID, nil
}

type processingDetails struct {
	ProcessingStatus        string `json:"processingStatus"`
	ProcessingFailureReason string `json:"processingFailureReason"`
	ProcessingProgress      struct {
		PartsTotal     count `json:"partsTotal"`
		PartsProcessed count `json:"partsProcessed"`
	} `json:"processingProgress"`
}

type uploadStatus struct {
	UploadStatus    string `json:"uploadStatus"`
	FailureReason   string `json:"failureReason"`
	RejectionReason string `json:"rejectionReason"`
}

func processing(status uploadStatus, details processingDetails) *upload.Processing {
	switch status.UploadStatus {
	case "failed":
		return &upload.Processing{State: upload.StateFailed, Reason: "upload failed: " + status.FailureReason}
	case "rejected":
		return &upload.Processing{State: upload.StateFailed, Reason: "rejected: " + status.RejectionReason}
	case "deleted":
		return &upload.Processing{State: upload.StateFailed, Reason: "video deleted"}
	}

	switch details.ProcessingStatus {
	case "succeeded":
		return &upload.Processing{State: upload.StateSucceeded}
	case "failed":
		return &upload.Processing{State: upload.StateFailed, Reason: details.ProcessingFailureReason}
	case "terminated":
		return &upload.Processing{State: upload.StateFailed, Reason: "processing terminated"}
	}
	if status.UploadStatus == "processed" {
		return &upload.Processing{State: upload.StateSucceeded}
	}

	out := &upload.Processing{State: upload.StateInProgress}
	if p := details.ProcessingProgress; p.PartsTotal > 0 {
		out.Progress = int(p.PartsProcessed * 100 / p.PartsTotal)
	}
	return out
}

func (u *resumableUpload) Status(ctx context.Context, session string) (*upload.Processing, error) {
	var res struct {
		Items []struct {
			Status            uploadStatus      `json:"status"`
			ProcessingDetails processingDetails `json:"processingDetails"`
		} `json:"items"`
	}
	err := u.a.call(ctx, u.cred, httpx.Request{
		Op:     "video_processing",
		Method: http.MethodGet,
		URL:    "/videos",
		Query:  url.Values{"part": {"status,processingDetails"}, "id": {u.videoID}},
	}, &res)
	if err != nil {
		return nil, err
	}
	// Freshly uploaded videos may not be listed yet.
	if len(res.Items) == 0 {
		return &upload.Processing{State: upload.StateInProgress}, nil
	}
	return processing(res.Items[0].Status, res.Items[0].ProcessingDetails), nil
}

// CanResume is always true: session URIs stay valid for about a week and
// the next chunk's Content-Range tells the server where to continue.
func (u *resumableUpload) CanResume(_ context.Context, session string) bool {
	return true
}

// uploadVideo resolves m and runs a resumable upload with meta.
func (a *Adapter) uploadVideo(ctx context.Context, cred social.Credential, m social.Media, meta videoResource) (string, error) {
	obj, err := media.Resolve(ctx, a.media, m)
	if err != nil {
		return "", err
	}
	defer obj.Close()
	if !isVideo(obj.MIMEType) {
		return "", fmt.Errorf("%w: %s is not a video", social.ErrInvalidRequest, obj.MIMEType)
	}

	resumeKey := m.ResumeKey
	if resumeKey != "" {
		resumeKey = cred.AccountID + ":" + resumeKey
	}
	coord := upload.NewCoordinator(&resumableUpload{a: a, cred: cred, meta: meta}, a.uploadCfg)
	return coord.Upload(ctx, upload.Source{
		Reader:    obj,
		Size:      obj.Size,
		MIMEType:  obj.MIMEType,
		ResumeKey: resumeKey,
	})
}

// UploadMedia uploads a private video titled after its filename and
// returns the video id.
func (a *Adapter) UploadMedia(ctx context.Context, cred social.Credential, m social.Media) (string, error) {
	const op = "upload media"
	if err := social.RequireAccount(cred); err != nil {
		return "", a.wrap(social.ErrPublishing, op, err)
	}
	if err := social.Validate(m); err != nil {
		return "", a.wrap(social.ErrPublishing, op, err)
	}
	meta := videoResource{
		Snippet: videoSnippet{Title: title("", "", m.Filename), CategoryID: defaultCategory},
		Status:  videoState{PrivacyStatus: "private"},
	}
	id, err := a.uploadVideo(ctx, cred, m, meta)
	return id, a.wrap(social.ErrPublishing, op, err)
}
