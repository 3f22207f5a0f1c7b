package facebook

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"path"
	"strconv"
	"strings"
	"time"

	"github.com/abdulachik/socialgate/internal/adapters/graph"
	"github.com/abdulachik/socialgate/internal/httpx"
	"github.com/abdulachik/socialgate/internal/media"
	"github.com/abdulachik/socialgate/internal/social"
)

const (
	minScheduleLead = 10 * time.Minute
	maxScheduleLead = 30 * 24 * time.Hour
)

func postURL(id string) string {
	return "https://www.facebook.com/" + id
}

func (a *Adapter) result(id, status string, mediaIDs []string) *social.PostResult {
	return &social.PostResult{
		Platform:  social.Facebook,
		ID:        id,
		URL:       postURL(id),
		Status:    status,
		MediaIDs:  mediaIDs,
		CreatedAt: a.now().UTC(),
	}
}

func (a *Adapter) PublishText(ctx context.Context, cred social.Credential, post social.TextPost) (*social.PostResult, error) {
	const op = "publish text"
	if err := checkPost(cred, post, post.Text); err != nil {
		return nil, a.wrap(social.ErrPublishing, op, err)
	}

	var res graph.ID
	if err := a.graph.Post(ctx, "publish_text", cred.AccessToken, cred.AccountID+"/feed", url.Values{"message": {post.Text}}, &res); err != nil {
		return nil, a.wrap(social.ErrPublishing, op, err)
	}
	return a.result(res.ID, social.StatusPublished, nil), nil
}

func (a *Adapter) PublishImage(ctx context.Context, cred social.Credential, post social.MediaPost) (*social.PostResult, error) {
	const op = "publish image"
	if err := checkPost(cred, post, post.Text); err != nil {
		return nil, a.wrap(social.ErrPublishing, op, err)
	}

	if len(post.Media) == 1 {
		res, err := a.uploadPhoto(ctx, cred, post.Media[0], post.Text, true, false)
		if err != nil {
			return nil, a.wrap(social.ErrPublishing, op, err)
		}
		id := res.PostID
		if id == "" {
			id = res.ID
		}
		return a.result(id, social.StatusPublished, []string{res.ID}), nil
	}

	photoIDs, err := a.uploadUnpublished(ctx, cred, post.Media, false)
	if err != nil {
		return nil, a.wrap(social.ErrPublishing, op, err)
	}

	form := url.Values{"message": {post.Text}}
	addAttachedMedia(form, photoIDs)

	var res graph.ID
	if err := a.graph.Post(ctx, "publish_image", cred.AccessToken, cred.AccountID+"/feed", form, &res); err != nil {
		return nil, a.wrap(social.ErrPublishing, op, err)
	}
	return a.result(res.ID, social.StatusPublished, photoIDs), nil
}

func (a *Adapter) PublishVideo(ctx context.Context, cred social.Credential, post social.MediaPost) (*social.PostResult, error) {
	const op = "publish video"
	if err := checkPost(cred, post, post.Text); err != nil {
		return nil, a.wrap(social.ErrPublishing, op, err)
	}
	if len(post.Media) != 1 {
		return nil, a.wrap(social.ErrPublishing, op, fmt.Errorf("%w: exactly one video is required", social.ErrInvalidRequest))
	}

	fields := map[string]string{"description": post.Text}
	if post.Title != "" {
		fields["title"] = post.Title
	}

	res, err := a.uploadVideo(ctx, cred, post.Media[0], fields)
	if err != nil {
		return nil, a.wrap(social.ErrPublishing, op, err)
	}
	return a.result(res.ID, social.StatusProcessing, []string{res.ID}), nil
}

func (a *Adapter) PublishLink(ctx context.Context, cred social.Credential, post social.LinkPost) (*social.PostResult, error) {
	const op = "publish link"
	if err := checkPost(cred, post, post.Text); err != nil {
		return nil, a.wrap(social.ErrPublishing, op, err)
	}

	var res graph.ID
	form := url.Values{"message": {post.Text}, "link": {post.URL}}
	if err := a.graph.Post(ctx, "publish_link", cred.AccessToken, cred.AccountID+"/feed", form, &res); err != nil {
		return nil, a.wrap(social.ErrPublishing, op, err)
	}
	return a.result(res.ID, social.StatusPublished, nil), nil
}

// SchedulePost creates an unpublished post that Facebook publishes at
// PublishAt. Pages accept times between 10 minutes and 30 days ahead.
func (a *Adapter) SchedulePost(ctx context.Context, cred social.Credential, post social.ScheduledPost) (*social.PostResult, error) {
	const op = "schedule post"
	if err := checkPost(cred, post, post.Text); err != nil {
		return nil, a.wrap(social.ErrPublishing, op, err)
	}
	if err := social.CheckPublishAt(post.PublishAt, a.now(), minScheduleLead, maxScheduleLead); err != nil {
		return nil, a.wrap(social.ErrPublishing, op, err)
	}
	if post.Text == "" && post.Link == "" && len(post.Media) == 0 {
		return nil, a.wrap(social.ErrPublishing, op, fmt.Errorf("%w: scheduled post has no content", social.ErrInvalidRequest))
	}

	publishAt := strconv.FormatInt(post.PublishAt.Unix(), 10)

	if len(post.Media) == 1 && isVideo(post.Media[0]) {
		fields := map[string]string{
			"description":            post.Text,
			"published":              "false",
			"scheduled_publish_time": publishAt,
		}
		if post.Title != "" {
			fields["title"] = post.Title
		}
		res, err := a.uploadVideo(ctx, cred, post.Media[0], fields)
		if err != nil {
			return nil, a.wrap(social.ErrPublishing, op, err)
		}
		return a.result(res.ID, social.StatusScheduled, []string{res.ID}), nil
	}

	form := url.Values{
		"published":              {"false"},
		"scheduled_publish_time": {publishAt},
	}
	if post.Text != "" {
		form.Set("message", post.Text)
	}
	if post.Link != "" {
		form.Set("link", post.Link)
	}

	var photoIDs []string
	if len(post.Media) > 0 {
		ids, err := a.uploadUnpublished(ctx, cred, post.Media, true)
		if err != nil {
			return nil, a.wrap(social.ErrPublishing, op, err)
		}
		photoIDs = ids
		addAttachedMedia(form, photoIDs)
	}

	var res graph.ID
	if err := a.graph.Post(ctx, "schedule_post", cred.AccessToken, cred.AccountID+"/feed", form, &res); err != nil {
		return nil, a.wrap(social.ErrPublishing, op, err)
	}
	return a.result(res.ID, social.StatusScheduled, photoIDs), nil
}

func (a *Adapter) DeletePost(ctx context.Context, cred social.Credential, postID string) error {
	const op = "delete post"
	if err := social.RequireToken(cred); err != nil {
		return a.wrap(social.ErrPublishing, op, err)
	}
	if err := social.Require("post id", postID); err != nil {
		return a.wrap(social.ErrPublishing, op, err)
	}
	return a.wrap(social.ErrPublishing, op, a.graph.Delete(ctx, "delete_post", cred.AccessToken, postID))
}

func checkPost(cred social.Credential, req any, text string) error {
	if err := social.RequireAccount(cred); err != nil {
		return err
	}
	if err := social.Validate(req); err != nil {
		return err
	}
	return social.CheckLength(social.Facebook, text)
}

func (a *Adapter) uploadPhoto(ctx context.Context, cred social.Credential, m social.Media, caption string, published, temporary bool) (*graph.ID, error) {
	fields := map[string]string{"published": strconv.FormatBool(published)}
	if caption != "" {
		fields["caption"] = caption
	}
	if temporary {
		fields["temporary"] = "true"
	}

	var res graph.ID
	endpoint := cred.AccountID + "/photos"
	if m.Reader == nil && media.IsRemote(m.URL) {
		form := url.Values{"url": {m.URL}}
		for k, v := range fields {
			form.Set(k, v)
		}
		if err := a.graph.Post(ctx, "upload_photo", cred.AccessToken, endpoint, form, &res); err != nil {
			return nil, fmt.Errorf("upload photo: %w", err)
		}
		return &res, nil
	}

	file, closeFile, err := a.sourcePart(ctx, m)
	if err != nil {
		return nil, fmt.Errorf("upload photo: %w", err)
	}
	defer closeFile()
	if err := a.graph.PostFile(ctx, "upload_photo", cred.AccessToken, endpoint, fields, file, &res); err != nil {
		return nil, fmt.Errorf("upload photo: %w", err)
	}
	return &res, nil
}

func (a *Adapter) uploadUnpublished(ctx context.Context, cred social.Credential, items []social.Media, temporary bool) ([]string, error) {
	ids := make([]string, 0, len(items))
	for i, m := range items {
		res, err := a.uploadPhoto(ctx, cred, m, "", false, temporary)
		if err != nil {
			return nil, fmt.Errorf("image %d: %w", i, err)
		}
		ids = append(ids, res.ID)
	}
	return ids, nil
}

func (a *Adapter) uploadVideo(ctx context.Context, cred social.Credential, m social.Media, fields map[string]string) (*graph.ID, error) {
	var res graph.ID
	endpoint := cred.AccountID + "/videos"
	if m.Reader == nil && media.IsRemote(m.URL) {
		form := url.Values{"file_url": {m.URL}}
		for k, v := range fields {
			form.Set(k, v)
		}
		if err := a.graph.Post(ctx, "upload_video", cred.AccessToken, endpoint, form, &res); err != nil {
			return nil, fmt.Errorf("upload video: %w", err)
		}
		return &res, nil
	}

	file, closeFile, err := a.sourcePart(ctx, m)
	if err != nil {
		return nil, fmt.Errorf("upload video: %w", err)
	}
	defer closeFile()
	if err := a.graph.PostFile(ctx, "upload_video", cred.AccessToken, endpoint, fields, file, &res); err != nil {
		return nil, fmt.Errorf("upload video: %w", err)
	}
	return &res, nil
}

// sourcePart builds the multipart "source" field. Local paths and s3://
// locations are opened through the media source since Graph cannot fetch
// them itself.
func (a *Adapter) sourcePart(ctx context.Context, m social.Media) (*httpx.FilePart, func(), error) {
	if m.Reader != nil {
		return &httpx.FilePart{Field: "source", Filename: m.Filename, ContentType: m.MIMEType, Reader: m.Reader}, func() {}, nil
	}
	obj, err := media.Resolve(ctx, a.media, m)
	if err != nil {
		return nil, nil, err
	}
	filename := m.Filename
	if filename == "" {
		filename = obj.Name
	}
	part := &httpx.FilePart{Field: "source", Filename: filename, ContentType: obj.MIMEType, Reader: obj}
	return part, func() { obj.Close() }, nil
}

func addAttachedMedia(form url.Values, ids []string) {
	for i, id := range ids {
		ref, _ := json.Marshal(map[string]string{"media_fbid": id})
		form.Set(fmt.Sprintf("attached_media[%d]", i), string(ref))
	}
}

func isVideo(m social.Media) bool {
	if strings.HasPrefix(m.MIMEType, "video/") {
		return true
	}
	u, err := url.Parse(m.URL)
	if err != nil {
		return false
	}
	switch strings.ToLower(path.Ext(u.Path)) {
	case ".mp4", ".mov", ".m4v", ".avi", ".webm":
		return true
	}
	return false
}
