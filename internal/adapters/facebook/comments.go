package facebook

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"github.com/abdulachik/socialgate/internal/adapters/graph"
	"github.com/abdulachik/socialgate/internal/social"
)

const commentFields = "id,message,from,created_time,like_count,comment_count,is_hidden,parent{id}"

type comment struct {
	ID           string `json:"id"`
	Message      string `json:"message"`
	CreatedTime  string `json:"created_time"`
	LikeCount    int64  `json:"like_count"`
	CommentCount int64  `json:"comment_count"`
	IsHidden     bool   `json:"is_hidden"`
	From         struct {
		ID   string `json:"id"`
		Name string `json:"name"`
	} `json:"from"`
	Parent *struct {
		ID string `json:"id"`
	} `json:"parent"`
}

func (c comment) normalize(postID string) social.Comment {
	out := social.Comment{
		ID:         c.ID,
		PostID:     postID,
		Author:     social.Participant{ID: c.From.ID, Name: c.From.Name},
		Text:       c.Message,
		LikeCount:  c.LikeCount,
		ReplyCount: c.CommentCount,
		Hidden:     c.IsHidden,
		CreatedAt:  graph.ParseTime(c.CreatedTime),
	}
	if c.Parent != nil {
		out.ParentID = c.Parent.ID
	}
	return out
}

func (a *Adapter) listComments(ctx context.Context, cred social.Credential, op, objectID, postID string, opts social.PageOptions) (*social.CommentPage, error) {
	if err := social.RequireToken(cred); err != nil {
		return nil, a.wrap(social.ErrComment, op, err)
	}
	if err := social.Require("object id", objectID); err != nil {
		return nil, a.wrap(social.ErrComment, op, err)
	}
	if err := social.Validate(opts); err != nil {
		return nil, a.wrap(social.ErrComment, op, err)
	}

	q := graph.PageQuery(url.Values{"fields": {commentFields}, "filter": {"toplevel"}}, opts, 25)

	var res struct {
		Data   []comment    `json:"data"`
		Paging graph.Paging `json:"paging"`
	}
	if err := a.graph.Get(ctx, strings.ReplaceAll(op, " ", "_"), cred.AccessToken, objectID+"/comments", q, &res); err != nil {
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
	return a.listComments(ctx, cred, "get comments", postID, postID, opts)
}

func (a *Adapter) GetCommentReplies(ctx context.Context, cred social.Credential, commentID string, opts social.PageOptions) (*social.CommentPage, error) {
	page, err := a.listComments(ctx, cred, "get comment replies", commentID, "", opts)
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

func (a *Adapter) createComment(ctx context.Context, cred social.Credential, op, objectID, text string) (*graph.ID, error) {
	if err := social.RequireToken(cred); err != nil {
		return nil, err
	}
	if err := social.Require("object id", objectID); err != nil {
		return nil, err
	}
	if err := social.Require("text", text); err != nil {
		return nil, err
	}

	var res graph.ID
	if err := a.graph.Post(ctx, op, cred.AccessToken, objectID+"/comments", url.Values{"message": {text}}, &res); err != nil {
		return nil, err
	}
	return &res, nil
}

func (a *Adapter) PostComment(ctx context.Context, cred social.Credential, postID, text string) (*social.Comment, error) {
	res, err := a.createComment(ctx, cred, "post_comment", postID, text)
	if err != nil {
		return nil, a.wrap(social.ErrComment, "post comment", err)
	}
	return &social.Comment{
		ID:        res.ID,
		PostID:    postID,
		Author:    social.Participant{ID: cred.AccountID},
		Text:      text,
		CreatedAt: a.now().UTC(),
	}, nil
}

func (a *Adapter) ReplyToComment(ctx context.Context, cred social.Credential, commentID, text string) (*social.Comment, error) {
	res, err := a.createComment(ctx, cred, "reply_to_comment", commentID, text)
	if err != nil {
		return nil, a.wrap(social.ErrComment, "reply to comment", err)
	}
	return &social.Comment{
		ID:        res.ID,
		ParentID:  commentID,
		Author:    social.Participant{ID: cred.AccountID},
		Text:      text,
		CreatedAt: a.now().UTC(),
	}, nil
}

// ReactToComment likes a comment as the page. The Graph API offers no
// other reaction types for comments.
func (a *Adapter) ReactToComment(ctx context.Context, cred social.Credential, commentID, reaction string) error {
	const op = "react to comment"
	if err := checkCommentAction(cred, commentID, reaction); err != nil {
		return a.wrap(social.ErrComment, op, err)
	}
	return a.wrap(social.ErrComment, op, a.graph.PostSuccess(ctx, "react_to_comment", cred.AccessToken, commentID+"/likes", nil))
}

func (a *Adapter) RemoveCommentReaction(ctx context.Context, cred social.Credential, commentID, reaction string) error {
	const op = "remove comment reaction"
	if err := checkCommentAction(cred, commentID, reaction); err != nil {
		return a.wrap(social.ErrComment, op, err)
	}
	return a.wrap(social.ErrComment, op, a.graph.Delete(ctx, "remove_comment_reaction", cred.AccessToken, commentID+"/likes"))
}

func (a *Adapter) DeleteComment(ctx context.Context, cred social.Credential, commentID string) error {
	const op = "delete comment"
	if err := checkCommentAction(cred, commentID, ""); err != nil {
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
	if err := checkCommentAction(cred, commentID, ""); err != nil {
		return a.wrap(social.ErrComment, op, err)
	}
	form := url.Values{"is_hidden": {fmt.Sprint(hidden)}}
	return a.wrap(social.ErrComment, op, a.graph.PostSuccess(ctx, strings.ReplaceAll(op, " ", "_"), cred.AccessToken, commentID, form))
}

func checkCommentAction(cred social.Credential, commentID, reaction string) error {
	if err := social.RequireToken(cred); err != nil {
		return err
	}
	if err := social.Require("comment id", commentID); err != nil {
		return err
	}
	if reaction != "" && !strings.EqualFold(reaction, social.ReactionLike) {
		return fmt.Errorf("%w: facebook comments only accept %q reactions", social.ErrInvalidRequest, social.ReactionLike)
	}
	return nil
}
