package instagram

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"github.com/abdulachik/socialgate/internal/adapters/graph"
	"github.com/abdulachik/socialgate/internal/social"
)

const commentFields = "id,text,username,from,timestamp,like_count,hidden,parent_id,replies.summary(true).limit(0)"

type comment struct {
	ID        string `json:"id"`
	Text      string `json:"text"`
	Username  string `json:"username"`
	Timestamp string `json:"timestamp"`
	LikeCount int64  `json:"like_count"`
	Hidden    bool   `json:"hidden"`
	ParentID  string `json:"parent_id"`
	From      struct {
		ID       string `json:"id"`
		Username string `json:"username"`
	} `json:"from"`
	Replies struct {
		Summary struct {
			TotalCount int64 `json:"total_count"`
		} `json:"summary"`
	} `json:"replies"`
}

func (c comment) normalize(postID string) social.Comment {
	username := c.From.Username
	if username == "" {
		username = c.Username
	}
	return social.Comment{
		ID:         c.ID,
		PostID:     postID,
		ParentID:   c.ParentID,
		Author:     social.Participant{ID: c.From.ID, Username: username},
		Text:       c.Text,
		LikeCount:  c.LikeCount,
		ReplyCount: c.Replies.Summary.TotalCount,
		Hidden:     c.Hidden,
		CreatedAt:  graph.ParseTime(c.Timestamp),
	}
}

func (a *Adapter) listComments(ctx context.Context, cred social.Credential, op, path, postID string, opts social.PageOptions) (*social.CommentPage, error) {
	if err := social.RequireToken(cred); err != nil {
		return nil, a.wrap(social.ErrComment, op, err)
	}
	if err := social.Validate(opts); err != nil {
		return nil, a.wrap(social.ErrComment, op, err)
	}

	q := graph.PageQuery(url.Values{"fields": {commentFields}}, opts, 25)

	var res struct {
		Data   []comment    `json:"data"`
		Paging graph.Paging `json:"paging"`
	}
	if err := a.graph.Get(ctx, strings.ReplaceAll(op, " ", "_"), cred.AccessToken, path, q, &res); err != nil {
		return nil, a.wrap(social.ErrComment, op, err)
	}

	page := &social.CommentPage{
		Comments:   make([]social.Comment, 0, len(res.Data)),
		NextCursor: res.Paging.NextCursor(),
	}
	for _, c := range res.Data {
		page.Comments = append(page.Comments, c.normalize(postID))
	}
	return page, nil
}

func (a *Adapter) GetComments(ctx context.Context, cred social.Credential, postID string, opts social.PageOptions) (*social.CommentPage, error) {
	const op = "get comments"
	if err := social.Require("post id", postID); err != nil {
		return nil, a.wrap(social.ErrComment, op, err)
	}
	return a.listComments(ctx, cred, op, postID+"/comments", postID, opts)
}

func (a *Adapter) GetCommentReplies(ctx context.Context, cred social.Credential, commentID string, opts social.PageOptions) (*social.CommentPage, error) {
	const op = "get comment replies"
	if err := social.Require("comment id", commentID); err != nil {
		return nil, a.wrap(social.ErrComment, op, err)
	}
	page, err := a.listComments(ctx, cred, op, commentID+"/replies", "", opts)
	if err != nil {
		return nil, err
	}
	for i := range page.Comments {
		if page.Comments[i].ParentID == "" {
			page.Comments[i].ParentID = commentID
		}
	}
	return page, nil
}

func (a *Adapter) PostComment(ctx context.Context, cred social.Credential, postID, text string) (*social.Comment, error) {
	const op = "post comment"
	id, err := a.createComment(ctx, cred, "post_comment", postID, postID+"/comments", text)
	if err != nil {
		return nil, a.wrap(social.ErrComment, op, err)
	}
	return &social.Comment{
		ID:        id,
		PostID:    postID,
		Author:    social.Participant{ID: cred.AccountID},
		Text:      text,
		CreatedAt: a.now().UTC(),
	}, nil
}

func (a *Adapter) ReplyToComment(ctx context.Context, cred social.Credential, commentID, text string) (*social.Comment, error) {
	const op = "reply to comment"
	id, err := a.createComment(ctx, cred, "reply_to_comment", commentID, commentID+"/replies", text)
	if err != nil {
		return nil, a.wrap(social.ErrComment, op, err)
	}
	return &social.Comment{
		ID:        id,
		ParentID:  commentID,
		Author:    social.Participant{ID: cred.AccountID},
		Text:      text,
		CreatedAt: a.now().UTC(),
	}, nil
}

func (a *Adapter) createComment(ctx context.Context, cred social.Credential, op, objectID, path, text string) (string, error) {
	if err := social.RequireToken(cred); err != nil {
		return "", err
	}
	if err := social.Require("object id", objectID); err != nil {
		return "", err
	}
	if err := social.Require("text", text); err != nil {
		return "", err
	}

	var res graph.ID
	if err := a.graph.Post(ctx, op, cred.AccessToken, path, url.Values{"message": {text}}, &res); err != nil {
		return "", err
	}
	return res.ID, nil
}

// ReactToComment is unsupported: the Graph API cannot like comments on
// behalf of an Instagram account.
func (a *Adapter) ReactToComment(ctx context.Context, cred social.Credential, commentID, reaction string) error {
	return social.Unsupported(social.ErrComment, social.Instagram, "react to comment")
}

func (a *Adapter) RemoveCommentReaction(ctx context.Context, cred social.Credential, commentID, reaction string) error {
	return social.Unsupported(social.ErrComment, social.Instagram, "remove comment reaction")
}

func (a *Adapter) DeleteComment(ctx context.Context, cred social.Credential, commentID string) error {
	const op = "delete comment"
	if err := checkComment(cred, commentID); err != nil {
		return a.wrap(social.ErrComment, op, err)
	}
	return a.wrap(social.ErrComment, op, a.graph.Delete(ctx, "delete_comment", cred.AccessToken, commentID))
}

func (a *Adapter) HideComment(ctx context.Context, cred social.Credential, commentID string) error {
	return a.setHidden(ctx, cred, "hide comment", commentID, true)
}

func (a *Adapter) UnhideComment(ctx context.Context, cred social.Credential, commentID string) error {
	return a.setHidden(ctx, cred, "unhide comment", commentID, false)
}

func (a *Adapter) setHidden(ctx context.Context, cred social.Credential, op, commentID string, hidden bool) error {
	if err := checkComment(cred, commentID); err != nil {
		return a.wrap(social.ErrComment, op, err)
	}
	form := url.Values{"hide": {fmt.Sprint(hidden)}}
	return a.wrap(social.ErrComment, op, a.graph.PostSuccess(ctx, strings.ReplaceAll(op, " ", "_"), cred.AccessToken, commentID, form))
}

func checkComment(cred social.Credential, commentID string) error {
	if err := social.RequireToken(cred); err != nil {
		return err
	}
	return social.Require("comment id", commentID)
}
