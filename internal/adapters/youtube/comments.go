package youtube

import (
	"context"
	"html"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/microcosm-cc/bluemonday"

	"github.com/abdulachik/socialgate/internal/httpx"
	"github.com/abdulachik/socialgate/internal/social"
)

// textPolicy strips the markup YouTube puts in textDisplay.
var textPolicy = bluemonday.StrictPolicy()

var lineBreaks = strings.NewReplacer("<br>", "\n", "<br/>", "\n", "<br />", "\n")

func plainText(display string) string {
	return html.UnescapeString(textPolicy.Sanitize(lineBreaks.Replace(display)))
}

type comment struct {
	ID      string `json:"id"`
	Snippet struct {
		VideoID           string `json:"videoId"`
		ParentID          string `json:"parentId"`
		TextDisplay       string `json:"textDisplay"`
		TextOriginal      string `json:"textOriginal"`
		AuthorDisplayName string `json:"authorDisplayName"`
		AuthorChannelID   struct {
			Value string `json:"value"`
		} `json:"authorChannelId"`
		LikeCount        int64     `json:"likeCount"`
		ModerationStatus string    `json:"moderationStatus"`
		PublishedAt      time.Time `json:"publishedAt"`
	} `json:"snippet"`
}

func (c comment) normalize(videoID string, replies int64) social.Comment {
	s := c.Snippet
	text := s.TextOriginal
	if text == "" {
		text = plainText(s.TextDisplay)
	}
	if s.VideoID != "" {
		videoID = s.VideoID
	}
	return social.Comment{
		ID:         c.ID,
		PostID:     videoID,
		ParentID:   s.ParentID,
		Author:     social.Participant{ID: s.AuthorChannelID.Value, Name: s.AuthorDisplayName},
		Text:       text,
		LikeCount:  s.LikeCount,
		ReplyCount: replies,
		Hidden:     s.ModerationStatus == "heldForReview" || s.ModerationStatus == "rejected",
		CreatedAt:  s.PublishedAt,
	}
}

type thread struct {
	ID      string `json:"id"`
	Snippet struct {
		VideoID         string  `json:"videoId"`
		TopLevelComment comment `json:"topLevelComment"`
		TotalReplyCount int64   `json:"totalReplyCount"`
	} `json:"snippet"`
}

func pageQuery(opts social.PageOptions, q url.Values) url.Values {
	q.Set("maxResults", strconv.Itoa(opts.LimitOr(20)))
	if opts.Cursor != "" {
		q.Set("pageToken", opts.Cursor)
	}
	return q
}

func checkPage(cred social.Credential, field, id string, opts social.PageOptions) error {
	if err := social.RequireToken(cred); err != nil {
		return err
	}
	if err := social.Require(field, id); err != nil {
		return err
	}
	return social.Validate(opts)
}

// GetComments lists the top level comment threads of a video.
func (a *Adapter) GetComments(ctx context.Context, cred social.Credential, postID string, opts social.PageOptions) (*social.CommentPage, error) {
	const op = "get comments"
	if err := checkPage(cred, "video id", postID, opts); err != nil {
		return nil, a.wrap(social.ErrComment, op, err)
	}

	var res struct {
		Items         []thread `json:"items"`
		NextPageToken string   `json:"nextPageToken"`
	}
	err := a.call(ctx, cred, httpx.Request{
		Op:     "list_comment_threads",
		Method: http.MethodGet,
		URL:    "/commentThreads",
		Query:  pageQuery(opts, url.Values{"part": {"snippet"}, "videoId": {postID}}),
	}, &res)
	if err != nil {
		return nil, a.wrap(social.ErrComment, op, err)
	}

	page := &social.CommentPage{Comments: make([]social.Comment, 0, len(res.Items)), NextCursor: res.NextPageToken}
	for _, t := range res.Items {
		page.Comments = append(page.Comments, t.Snippet.TopLevelComment.normalize(postID, t.Snippet.TotalReplyCount))
	}
	return page, nil
}

func (a *Adapter) GetCommentReplies(ctx context.Context, cred social.Credential, commentID string, opts social.PageOptions) (*social.CommentPage, error) {
	const op = "get comment replies"
	if err := checkPage(cred, "comment id", commentID, opts); err != nil {
		return nil, a.wrap(social.ErrComment, op, err)
	}

	var res struct {
		Items         []comment `json:"items"`
		NextPageToken string    `json:"nextPageToken"`
	}
	err := a.call(ctx, cred, httpx.Request{
		Op:     "list_comments",
		Method: http.MethodGet,
		URL:    "/comments",
		Query:  pageQuery(opts, url.Values{"part": {"snippet"}, "parentId": {commentID}}),
	}, &res)
	if err != nil {
		return nil, a.wrap(social.ErrComment, op, err)
	}

	page := &social.CommentPage{Comments: make([]social.Comment, 0, len(res.Items)), NextCursor: res.NextPageToken}
	for _, c := range res.Items {
		page.Comments = append(page.Comments, c.normalize("", 0))
	}
	return page, nil
}

func checkComment(cred social.Credential, field, id, text string) error {
	if err := social.RequireToken(cred); err != nil {
		return err
	}
	if err := social.Require(field, id); err != nil {
		return err
	}
	if err := social.Require("text", text); err != nil {
		return err
	}
	return social.CheckLength(social.YouTube, text)
}

func (a *Adapter) PostComment(ctx context.Context, cred social.Credential, postID, text string) (*social.Comment, error) {
	const op = "post comment"
	if err := checkComment(cred, "video id", postID, text); err != nil {
		return nil, a.wrap(social.ErrComment, op, err)
	}

	body := map[string]any{
		"snippet": map[string]any{
			"videoId": postID,
			"topLevelComment": map[string]any{
				"snippet": map[string]string{"textOriginal": text},
			},
		},
	}
	var res thread
	err := a.call(ctx, cred, httpx.Request{
		Op:     "insert_comment_thread",
		Method: http.MethodPost,
		URL:    "/commentThreads",
		Query:  url.Values{"part": {"snippet"}},
		JSON:   body,
	}, &res)
	if err != nil {
		return nil, a.wrap(social.ErrComment, op, err)
	}
	out := res.Snippet.TopLevelComment.normalize(postID, 0)
	if out.CreatedAt.IsZero() {
		out.CreatedAt = a.now().UTC()
	}
	return &out, nil
}

func (a *Adapter) ReplyToComment(ctx context.Context, cred social.Credential, commentID, text string) (*social.Comment, error) {
	const op = "reply to comment"
	if err := checkComment(cred, "comment id", commentID, text); err != nil {
		return nil, a.wrap(social.ErrComment, op, err)
	}

	var res comment
	err := a.call(ctx, cred, httpx.Request{
		Op:     "insert_comment",
		Method: http.MethodPost,
		URL:    "/comments",
		Query:  url.Values{"part": {"snippet"}},
		JSON: map[string]any{
			"snippet": map[string]string{"parentId": commentID, "textOriginal": text},
		},
	}, &res)
	if err != nil {
		return nil, a.wrap(social.ErrComment, op, err)
	}
	out := res.normalize("", 0)
	if out.ParentID == "" {
		out.ParentID = commentID
	}
	if out.CreatedAt.IsZero() {
		out.CreatedAt = a.now().UTC()
	}
	return &out, nil
}

func (a *Adapter) ReactToComment(ctx context.Context, cred social.Credential, commentID, reaction string) error {
	return social.Unsupported(social.ErrComment, social.YouTube, "react to comment")
}

func (a *Adapter) RemoveCommentReaction(ctx context.Context, cred social.Credential, commentID, reaction string) error {
	return social.Unsupported(social.ErrComment, social.YouTube, "remove comment reaction")
}

func (a *Adapter) DeleteComment(ctx context.Context, cred social.Credential, commentID string) error {
	const op = "delete comment"
	if err := checkCommentID(cred, commentID); err != nil {
		return a.wrap(social.ErrComment, op, err)
	}
	err := a.call(ctx, cred, httpx.Request{
		Op:     "delete_comment",
		Method: http.MethodDelete,
		URL:    "/comments",
		Query:  url.Values{"id": {commentID}},
	}, nil)
	return a.wrap(social.ErrComment, op, err)
}

// HideComment holds the comment for review, which removes it from public
// view.
func (a *Adapter) HideComment(ctx context.Context, cred social.Credential, commentID string) error {
	return a.moderate(ctx, cred, "hide comment", commentID, "heldForReview")
}

func (a *Adapter) UnhideComment(ctx context.Context, cred social.Credential, commentID string) error {
	return a.moderate(ctx, cred, "unhide comment", commentID, "published")
}

func (a *Adapter) moderate(ctx context.Context, cred social.Credential, op, commentID, status string) error {
	if err := checkCommentID(cred, commentID); err != nil {
		return a.wrap(social.ErrComment, op, err)
	}
	err := a.call(ctx, cred, httpx.Request{
		Op:     "set_moderation_status",
		Method: http.MethodPost,
		URL:    "/comments/setModerationStatus",
		Query:  url.Values{"id": {commentID}, "moderationStatus": {status}},
	}, nil)
	return a.wrap(social.ErrComment, op, err)
}

func checkCommentID(cred social.Credential, commentID string) error {
	if err := social.RequireToken(cred); err != nil {
		return err
	}
	return social.Require("comment id", commentID)
}
