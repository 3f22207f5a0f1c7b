package instagram

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"strings"

	"github.com/abdulachik/socialgate/internal/adapters/graph"
	"github.com/abdulachik/socialgate/internal/media"
	"github.com/abdulachik/socialgate/internal/social"
	"github.com/abdulachik/socialgate/internal/upload"
)

const maxCarouselItems = 10

func (a *Adapter) result(id, permalink string, mediaIDs []string) *social.PostResult {
	return &social.PostResult{
		Platform:  social.Instagram,
		ID:        id,
		URL:       permalink,
		Status:    social.StatusPublished,
		MediaIDs:  mediaIDs,
		CreatedAt: a.now().UTC(),
	}
}

// PublishText is unsupported: every Instagram post needs media.
func (a *Adapter) PublishText(ctx context.Context, cred social.Credential, post social.TextPost) (*social.PostResult, error) {
	return nil, social.Unsupported(social.ErrPublishing, social.Instagram, "publish text")
}

func (a *Adapter) PublishImage(ctx context.Context, cred social.Credential, post social.MediaPost) (*social.PostResult, error) {
	const op = "publish image"
	if err := checkMediaPost(cred, post); err != nil {
		return nil, a.wrap(social.ErrPublishing, op, err)
	}
	if len(post.Media) > maxCarouselItems {
		return nil, a.wrap(social.ErrPublishing, op, fmt.Errorf("%w: at most %d images per post", social.ErrInvalidRequest, maxCarouselItems))
	}

	if len(post.Media) == 1 {
		container, err := a.createContainer(ctx, cred, url.Values{
			"image_url": {post.Media[0].URL},
			"caption":   {post.Text},
		})
		if err != nil {
			return nil, a.wrap(social.ErrPublishing, op, err)
		}
		return a.publishContainer(ctx, cred, op, container, []string{container})
	}

	children := make([]string, 0, len(post.Media))
	for i, m := range post.Media {
		child, err := a.createContainer(ctx, cred, url.Values{
			"image_url":        {m.URL},
			"is_carousel_item": {"true"},
		})
		if err != nil {
			return nil, a.wrap(social.ErrPublishing, op, fmt.Errorf("carousel item %d: %w", i, err))
		}
		children = append(children, child)
	}

	container, err := a.createContainer(ctx, cred, url.Values{
		"media_type": {"CAROUSEL"},
		"children":   {strings.Join(children, ",")},
		"caption":    {post.Text},
	})
	if err != nil {
		return nil, a.wrap(social.ErrPublishing, op, err)
	}
	return a.publishContainer(ctx, cred, op, container, children)
}

// PublishVideo posts a single video as a reel.
func (a *Adapter) PublishVideo(ctx context.Context, cred social.Credential, post social.MediaPost) (*social.PostResult, error) {
	const op = "publish video"
	if err := checkMediaPost(cred, post); err != nil {
		return nil, a.wrap(social.ErrPublishing, op, err)
	}
	if len(post.Media) != 1 {
		return nil, a.wrap(social.ErrPublishing, op, fmt.Errorf("%w: exactly one video is required", social.ErrInvalidRequest))
	}

	container, err := a.createContainer(ctx, cred, url.Values{
		"media_type": {"REELS"},
		"video_url":  {post.Media[0].URL},
		"caption":    {post.Text},
	})
	if err != nil {
		return nil, a.wrap(social.ErrPublishing, op, err)
	}
	return a.publishContainer(ctx, cred, op, container, []string{container})
}

// PublishLink is unsupported: captions do not render links.
func (a *Adapter) PublishLink(ctx context.Context, cred social.Credential, post social.LinkPost) (*social.PostResult, error) {
	return nil, social.Unsupported(social.ErrPublishing, social.Instagram, "publish link")
}

func (a *Adapter) SchedulePost(ctx context.Context, cred social.Credential, post social.ScheduledPost) (*social.PostResult, error) {
	return nil, social.Unsupported(social.ErrPublishing, social.Instagram, "schedule post")
}

func (a *Adapter) DeletePost(ctx context.Context, cred social.Credential, postID string) error {
	return social.Unsupported(social.ErrPublishing, social.Instagram, "delete post")
}

func checkMediaPost(cred social.Credential, post social.MediaPost) error {
	if err := social.RequireAccount(cred); err != nil {
		return err
	}
	if err := social.Validate(post); err != nil {
		return err
	}
	if err := social.CheckLength(social.Instagram, post.Text); err != nil {
		return err
	}
	for i, m := range post.Media {
		if !media.IsRemote(m.URL) {
			return fmt.Errorf("%w: media %d needs a public URL, instagram fetches media itself", social.ErrInvalidRequest, i)
		}
	}
	return nil
}

func (a *Adapter) createContainer(ctx context.Context, cred social.Credential, form url.Values) (string, error) {
	var res graph.ID
	if err := a.graph.Post(ctx, "create_container", cred.AccessToken, cred.AccountID+"/media", form, &res); err != nil {
		return "", fmt.Errorf("create media container: %w", err)
	}
	return res.ID, nil
}

// containerStatus maps status_code to an upload state.
func (a *Adapter) containerStatus(ctx context.Context, cred social.Credential, containerID string) (*upload.Processing, error) {
	var res struct {
		StatusCode string `json:"status_code"`
		Status     string `json:"status"`
	}
	err := a.graph.Get(ctx, "container_status", cred.AccessToken, containerID,
		url.Values{"fields": {"status_code,status"}}, &res)
	if err != nil {
		return nil, err
	}

	switch res.StatusCode {
	case "FINISHED", "PUBLISHED":
		return &upload.Processing{State: upload.StateSucceeded}, nil
	case "ERROR", "EXPIRED":
		reason := res.Status
		if reason == "" {
			reason = res.StatusCode
		}
		return &upload.Processing{State: upload.StateFailed, Reason: reason}, nil
	}
	return &upload.Processing{State: upload.StateInProgress}, nil
}

func (a *Adapter) publishContainer(ctx context.Context, cred social.Credential, op, containerID string, mediaIDs []string) (*social.PostResult, error) {
	initial, err := a.containerStatus(ctx, cred, containerID)
	if err != nil {
		return nil, a.wrap(social.ErrPublishing, op, err)
	}
	err = a.poller.Wait(ctx, containerID, *initial, func(ctx context.Context) (*upload.Processing, error) {
		return a.containerStatus(ctx, cred, containerID)
	})
	if err != nil {
		return nil, a.wrap(social.ErrPublishing, op, err)
	}

	var res graph.ID
	err = a.graph.Post(ctx, "publish_container", cred.AccessToken, cred.AccountID+"/media_publish",
		url.Values{"creation_id": {containerID}}, &res)
	if err != nil {
		return nil, a.wrap(social.ErrPublishing, op, err)
	}

	var published struct {
		Permalink string `json:"permalink"`
	}
	if err := a.graph.Get(ctx, "get_permalink", cred.AccessToken, res.ID, url.Values{"fields": {"permalink"}}, &published); err != nil {
		slog.Warn("fetch instagram permalink", "media", res.ID, "error", err)
	}
	return a.result(res.ID, published.Permalink, mediaIDs), nil
}
