package twitter

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"unicode/utf8"

	"github.com/abdulachik/socialgate/internal/httpx"
	"github.com/abdulachik/socialgate/internal/social"
)

const (
	maxImages = 4
	// X shortens every link to a t.co URL of this length.
	shortURLLength = 23
)

type tweetRequest struct {
	Text  string      `json:"text,omitempty"`
	Media *tweetMedia `json:"media,omitempty"`
	Reply *tweetReply `json:"reply,omitempty"`
}

type tweetMedia struct {
	MediaIDs []string `json:"media_ids"`
}

type tweetReply struct {
	InReplyToTweetID string `json:"in_reply_to_tweet_id"`
}

type tweetResponse struct {
	Data struct {
		ID   string `json:"id"`
		Text string `json:"text"`
	} `json:"data"`
}

func tweetURL(id string) string {
	return "https://x.com/i/web/status/" + id
}

func (a *Adapter) createTweet(ctx context.Context, cred social.Credential, op string, body tweetRequest) (string, error) {
	var res tweetResponse
	if err := a.postJSON(ctx, cred, op, "/2/tweets", body, &res); err != nil {
		return "", err
	}
	if res.Data.ID == "" {
		return "", fmt.Errorf("create tweet returned no id")
	}
	return res.Data.ID, nil
}

func (a *Adapter) result(id string, mediaIDs []string) *social.PostResult {
	return &social.PostResult{
		Platform:  social.Twitter,
		ID:        id,
		URL:       tweetURL(id),
		Status:    social.StatusPublished,
		MediaIDs:  mediaIDs,
		CreatedAt: a.now().UTC(),
	}
}

func (a *Adapter) PublishText(ctx context.Context, cred social.Credential, post social.TextPost) (*social.PostResult, error) {
	const op = "publish text"
	if err := social.RequireToken(cred); err != nil {
		return nil, a.wrap(social.ErrPublishing, op, err)
	}
	if err := social.Validate(post); err != nil {
		return nil, a.wrap(social.ErrPublishing, op, err)
	}
	if err := social.CheckLength(social.Twitter, post.Text); err != nil {
		return nil, a.wrap(social.ErrPublishing, op, err)
	}

	id, err := a.createTweet(ctx, cred, "create_tweet", tweetRequest{Text: post.Text})
	if err != nil {
		return nil, a.wrap(social.ErrPublishing, op, err)
	}
	return a.result(id, nil), nil
}

func (a *Adapter) PublishImage(ctx context.Context, cred social.Credential, post social.MediaPost) (*social.PostResult, error) {
	const op = "publish image"
	if err := a.checkMediaPost(cred, post); err != nil {
		return nil, a.wrap(social.ErrPublishing, op, err)
	}
	if len(post.Media) > maxImages {
		return nil, a.wrap(social.ErrPublishing, op, fmt.Errorf("%w: at most %d images per tweet", social.ErrInvalidRequest, maxImages))
	}
	return a.publishMedia(ctx, cred, op, post)
}

func (a *Adapter) PublishVideo(ctx context.Context, cred social.Credential, post social.MediaPost) (*social.PostResult, error) {
	const op = "publish video"
	if err := a.checkMediaPost(cred, post); err != nil {
		return nil, a.wrap(social.ErrPublishing, op, err)
	}
	if len(post.Media) != 1 {
		return nil, a.wrap(social.ErrPublishing, op, fmt.Errorf("%w: exactly one video is required", social.ErrInvalidRequest))
	}
	return a.publishMedia(ctx, cred, op, post)
}

func (a *Adapter) checkMediaPost(cred social.Credential, post social.MediaPost) error {
	if err := social.RequireToken(cred); err != nil {
		return err
	}
	if err := social.Validate(post); err != nil {
		return err
	}
	return social.CheckLength(social.Twitter, post.Text)
}

func (a *Adapter) publishMedia(ctx context.Context, cred social.Credential, op string, post social.MediaPost) (*social.PostResult, error) {
	ids := make([]string, 0, len(post.Media))
	for i, m := range post.Media {
		id, err := a.uploadMedia(ctx, cred, "tweet", m)
		if err != nil {
			return nil, a.wrap(social.ErrPublishing, op, fmt.Errorf("media %d: %w", i, err))
		}
		ids = append(ids, id)
	}

	id, err := a.createTweet(ctx, cred, "create_tweet", tweetRequest{
		Text:  post.Text,
		Media: &tweetMedia{MediaIDs: ids},
	})
	if err != nil {
		return nil, a.wrap(social.ErrPublishing, op, err)
	}
	return a.result(id, ids), nil
}

// PublishLink tweets the text followed by the URL, which X unfurls into a
// card.
func (a *Adapter) PublishLink(ctx context.Context, cred social.Credential, post social.LinkPost) (*social.PostResult, error) {
	const op = "publish link"
	if err := social.RequireToken(cred); err != nil {
		return nil, a.wrap(social.ErrPublishing, op, err)
	}
	if err := social.Validate(post); err != nil {
		return nil, a.wrap(social.ErrPublishing, op, err)
	}

	text := strings.TrimSpace(post.Text)
	if text == "" {
		text = post.Title
	}
	if n := utf8.RuneCountInString(text) + 1 + shortURLLength; n > social.TwitterMaxLength {
		return nil, a.wrap(social.ErrPublishing, op, fmt.Errorf("%w: text with link is %d characters, limit is %d", social.ErrInvalidRequest, n, social.TwitterMaxLength))
	}
	if text != "" {
		text += " "
	}

	id, err := a.createTweet(ctx, cred, "create_tweet", tweetRequest{Text: text + post.URL})
	if err != nil {
		return nil, a.wrap(social.ErrPublishing, op, err)
	}
	return a.result(id, nil), nil
}

func (a *Adapter) SchedulePost(ctx context.Context, cred social.Credential, post social.ScheduledPost) (*social.PostResult, error) {
	return nil, social.Unsupported(social.ErrPublishing, social.Twitter, "schedule post")
}

func (a *Adapter) DeletePost(ctx context.Context, cred social.Credential, postID string) error {
	const op = "delete post"
	if err := social.RequireToken(cred); err != nil {
		return a.wrap(social.ErrPublishing, op, err)
	}
	if err := social.Require("post id", postID); err != nil {
		return a.wrap(social.ErrPublishing, op, err)
	}
	return a.wrap(social.ErrPublishing, op, a.deleteTweet(ctx, cred, "delete_tweet", postID))
}

func (a *Adapter) deleteTweet(ctx context.Context, cred social.Credential, op, id string) error {
	var res struct {
		Data struct {
			Deleted bool `json:"deleted"`
		} `json:"data"`
	}
	err := a.call(ctx, cred, httpx.Request{Op: op, Method: http.MethodDelete, URL: "/2/tweets/" + id}, &res)
	if err != nil {
		return err
	}
	if !res.Data.Deleted {
		return fmt.Errorf("tweet %s was not deleted", id)
	}
	return nil
}
