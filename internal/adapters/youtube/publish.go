package youtube

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"path/filepath"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/abdulachik/socialgate/internal/httpx"
	"github.com/abdulachik/socialgate/internal/social"
)

const (
	maxTitleLength  = 100
	defaultCategory = "22" // People & Blogs
	// YouTube needs some lead time to schedule a publish.
	minScheduleLead = 15 * time.Minute
)

func videoURL(id string) string {
	return "https://www.youtube.com/watch?v=" + id
}

func isVideo(mimeType string) bool {
	return strings.HasPrefix(mimeType, "video/")
}

// title picks the explicit title, else the first line of the description,
// else the file name.
func title(explicit, text, filename string) string {
	if explicit != "" {
		return explicit
	}
	if line, _, _ := strings.Cut(strings.TrimSpace(text), "\n"); line != "" {
		return social.Truncate(line, maxTitleLength)
	}
	if base := strings.TrimSuffix(filepath.Base(filename), filepath.Ext(filename)); base != "" && base != "." {
		return social.Truncate(base, maxTitleLength)
	}
	return "Untitled"
}

func checkTitle(t string) error {
	if utf8.RuneCountInString(t) > maxTitleLength {
		return fmt.Errorf("%w: title is longer than %d characters", social.ErrInvalidRequest, maxTitleLength)
	}
	if strings.ContainsAny(t, "<>") {
		return fmt.Errorf("%w: title may not contain < or >", social.ErrInvalidRequest)
	}
	return nil
}

// privacy maps the normalized privacy to privacyStatus, public by default.
func privacy(p string) string {
	if p == "" {
		return "public"
	}
	return p
}

func (a *Adapter) publish(ctx context.Context, cred social.Credential, text string, m social.Media, meta videoResource) (string, error) {
	if err := social.RequireAccount(cred); err != nil {
		return "", err
	}
	if err := social.CheckLength(social.YouTube, text); err != nil {
		return "", err
	}
	if err := checkTitle(meta.Snippet.Title); err != nil {
		return "", err
	}
	return a.uploadVideo(ctx, cred, m, meta)
}

// PublishVideo uploads the single video in post. Text becomes the
// description.
func (a *Adapter) PublishVideo(ctx context.Context, cred social.Credential, post social.MediaPost) (*social.PostResult, error) {
	const op = "publish video"
	if err := social.Validate(post); err != nil {
		return nil, a.wrap(social.ErrPublishing, op, err)
	}
	if len(post.Media) != 1 {
		return nil, a.wrap(social.ErrPublishing, op, fmt.Errorf("%w: exactly one video is required", social.ErrInvalidRequest))
	}

	meta := videoResource{
		Snippet: videoSnippet{
			Title:       title(post.Title, post.Text, post.Media[0].Filename),
			Description: post.Text,
			Tags:        post.Tags,
			CategoryID:  defaultCategory,
		},
		Status: videoState{PrivacyStatus: privacy(post.Privacy)},
	}
	id, err := a.publish(ctx, cred, post.Text, post.Media[0], meta)
	if err != nil {
		return nil, a.wrap(social.ErrPublishing, op, err)
	}
	return &social.PostResult{
		Platform:  social.YouTube,
		ID:        id,
		URL:       videoURL(id),
		Status:    social.StatusPublished,
		MediaIDs:  []string{id},
		CreatedAt: a.now().UTC(),
	}, nil
}

// SchedulePost uploads a private video that YouTube makes public at
// PublishAt.
func (a *Adapter) SchedulePost(ctx context.Context, cred social.Credential, post social.ScheduledPost) (*social.PostResult, error) {
	const op = "schedule post"
	if err := social.Validate(post); err != nil {
		return nil, a.wrap(social.ErrPublishing, op, err)
	}
	if len(post.Media) != 1 {
		return nil, a.wrap(social.ErrPublishing, op, fmt.Errorf("%w: exactly one video is required", social.ErrInvalidRequest))
	}
	if err := social.CheckPublishAt(post.PublishAt, a.now(), minScheduleLead, 0); err != nil {
		return nil, a.wrap(social.ErrPublishing, op, err)
	}

	meta := videoResource{
		Snippet: videoSnippet{
			Title:       title(post.Title, post.Text, post.Media[0].Filename),
			Description: post.Text,
			CategoryID:  defaultCategory,
		},
		Status: videoState{
			PrivacyStatus: "private",
			PublishAt:     post.PublishAt.UTC().Format(time.RFC3339),
		},
	}
	id, err := a.publish(ctx, cred, post.Text, post.Media[0], meta)
	if err != nil {
		return nil, a.wrap(social.ErrPublishing, op, err)
	}
	return &social.PostResult{
		Platform:  social.YouTube,
		ID:        id,
		URL:       videoURL(id),
		Status:    social.StatusScheduled,
		MediaIDs:  []string{id},
		CreatedAt: a.now().UTC(),
	}, nil
}

func (a *Adapter) PublishText(ctx context.Context, cred social.Credential, post social.TextPost) (*social.PostResult, error) {
	return nil, social.Unsupported(social.ErrPublishing, social.YouTube, "publish text")
}

func (a *Adapter) PublishImage(ctx context.Context, cred social.Credential, post social.MediaPost) (*social.PostResult, error) {
	return nil, social.Unsupported(social.ErrPublishing, social.YouTube, "publish image")
}

func (a *Adapter) PublishLink(ctx context.Context, cred social.Credential, post social.LinkPost) (*social.PostResult, error) {
	return nil, social.Unsupported(social.ErrPublishing, social.YouTube, "publish link")
}

func (a *Adapter) DeletePost(ctx context.Context, cred social.Credential, postID string) error {
	const op = "delete post"
	if err := social.RequireToken(cred); err != nil {
		return a.wrap(social.ErrPublishing, op, err)
	}
	if err := social.Require("video id", postID); err != nil {
		return a.wrap(social.ErrPublishing, op, err)
	}
	err := a.call(ctx, cred, httpx.Request{
		Op:     "delete_video",
		Method: http.MethodDelete,
		URL:    "/videos",
		Query:  url.Values{"id": {postID}},
	}, nil)
	return a.wrap(social.ErrPublishing, op, err)
}
