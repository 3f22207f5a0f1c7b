package linkedin

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/abdulachik/socialgate/internal/httpx"
	"github.com/abdulachik/socialgate/internal/social"
)

// reactionTypes maps normalized reaction names to LinkedIn's.
var reactionTypes = map[string]string{
	"":              "LIKE",
	"like":          "LIKE",
	"praise":        "PRAISE",
	"celebrate":     "PRAISE",
	"empathy":       "EMPATHY",
	"love":          "EMPATHY",
	"interest":      "INTEREST",
	"insightful":    "INTEREST",
	"appreciation":  "APPRECIATION",
	"support":       "APPRECIATION",
	"entertainment": "ENTERTAINMENT",
	"funny":         "ENTERTAINMENT",
}

type comment struct {
	ID         string `json:"id"`
	CommentURN string `json:"commentUrn"`
	Actor      string `json:"actor"`
	Object     string `json:"object"`
	Parent     string `json:"parentComment"`
	Message    struct {
		Text string `json:"text"`
	} `json:"message"`
	Created struct {
		Time int64 `json:"time"`
	} `json:"created"`
	LikesSummary struct {
		TotalLikes int64 `json:"totalLikes"`
	} `json:"likesSummary"`
	CommentsSummary struct {
		AggregatedTotalComments int64 `json:"aggregatedTotalComments"`
	} `json:"commentsSummary"`
}

func (c comment) urn() string {
	if c.CommentURN != "" {
		return c.CommentURN
	}
	return "urn:li:comment:(" + c.Object + "," + c.ID + ")"
}

func (c comment) normalize(postID string) social.Comment {
	out := social.Comment{
		ID:         c.urn(),
		PostID:     postID,
		ParentID:   c.Parent,
		Author:     social.Participant{ID: c.Actor},
		Text:       c.Message.Text,
		LikeCount:  c.LikesSummary.TotalLikes,
		ReplyCount: c.CommentsSummary.AggregatedTotalComments,
	}
	if c.Created.Time > 0 {
		out.CreatedAt = time.UnixMilli(c.Created.Time).UTC()
	}
	return out
}

// parseCommentURN splits urn:li:comment:(object,id).
func parseCommentURN(urn string) (object, id string, err error) {
	inner, ok := strings.CutPrefix(urn, "urn:li:comment:(")
	if !ok || !strings.HasSuffix(inner, ")") {
		return "", "", fmt.Errorf("%w: %q is not a comment URN", social.ErrInvalidRequest, urn)
	}
	inner = strings.TrimSuffix(inner, ")")
	i := strings.LastIndex(inner, ",")
	if i <= 0 || i == len(inner)-1 {
		return "", "", fmt.Errorf("%w: %q is not a comment URN", social.ErrInvalidRequest, urn)
	}
	return inner[:i], inner[i+1:], nil
}

// listComments pages with start offsets; the cursor is the next start.
func (a *Adapter) listComments(ctx context.Context, cred social.Credential, op, target, postID string, opts social.PageOptions) (*social.CommentPage, error) {
	if err := social.RequireToken(cred); err != nil {
		return nil, a.wrap(social.ErrComment, op, err)
	}
	if err := social.Validate(opts); err != nil {
		return nil, a.wrap(social.ErrComment, op, err)
	}

	start := 0
	if opts.Cursor != "" {
		n, err := strconv.Atoi(opts.Cursor)
		if err != nil || n < 0 {
			return nil, a.wrap(social.ErrComment, op, fmt.Errorf("%w: invalid cursor %q", social.ErrInvalidRequest, opts.Cursor))
		}
		start = n
	}
	count := opts.LimitOr(25)

	var res struct {
		Elements []comment `json:"elements"`
		Paging   struct {
			Start int `json:"start"`
			Count int `json:"count"`
			Total int `json:"total"`
		} `json:"paging"`
	}
	err := a.call(ctx, cred, httpx.Request{
		Op:       strings.ReplaceAll(op, " ", "_"),
		Method:   http.MethodGet,
		URL:      "/rest/socialActions/" + escape(target) + "/comments",
		RawQuery: fmt.Sprintf("start=%d&count=%d", start, count),
	}, &res)
	if err != nil {
		return nil, a.wrap(social.ErrComment, op, err)
	}

	page := &social.CommentPage{Comments: make([]social.Comment, 0, len(res.Elements))}
	for _, c := range res.Elements {
		page.Comments = append(page.Comments, c.normalize(postID))
	}
	if next := start + len(res.Elements); len(res.Elements) > 0 && next < res.Paging.Total {
		page.NextCursor = strconv.Itoa(next)
	}
	return page, nil
}

func (a *Adapter) GetComments(ctx context.Context, cred social.Credential, postID string, opts social.PageOptions) (*social.CommentPage, error) {
	const op = "get comments"
	if err := social.Require("post id", postID); err != nil {
		return nil, a.wrap(social.ErrComment, op, err)
	}
	return a.listComments(ctx, cred, op, postID, postID, opts)
}

func (a *Adapter) GetCommentReplies(ctx context.Context, cred social.Credential, commentID string, opts social.PageOptions) (*social.CommentPage, error) {
	const op = "get comment replies"
	if _, _, err := parseCommentURN(commentID); err != nil {
		return nil, a.wrap(social.ErrComment, op, err)
	}
	page, err := a.listComments(ctx, cred, op, commentID, "", opts)
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

func (a *Adapter) createComment(ctx context.Context, cred social.Credential, op, target string, body map[string]any) (*comment, error) {
	resp, err := a.do(ctx, cred, httpx.Request{
		Op:     op,
		Method: http.MethodPost,
		URL:    "/rest/socialActions/" + escape(target) + "/comments",
		JSON:   body,
	})
	if err != nil {
		return nil, err
	}
	var res comment
	if err := resp.Decode(&res); err != nil {
		return nil, err
	}
	if res.ID == "" && res.CommentURN == "" {
		res.ID = resp.Header.Get("X-RestLi-Id")
	}
	if res.ID == "" && res.CommentURN == "" {
		return nil, fmt.Errorf("create comment returned no id")
	}
	return &res, nil
}

func (a *Adapter) PostComment(ctx context.Context, cred social.Credential, postID, text string) (*social.Comment, error) {
	const op = "post comment"
	if err := checkComment(cred, "post id", postID, text); err != nil {
		return nil, a.wrap(social.ErrComment, op, err)
	}

	res, err := a.createComment(ctx, cred, "post_comment", postID, map[string]any{
		"actor":   authorURN(cred),
		"object":  postID,
		"message": map[string]string{"text": text},
	})
	if err != nil {
		return nil, a.wrap(social.ErrComment, op, err)
	}
	if res.Object == "" {
		res.Object = postID
	}
	return &social.Comment{
		ID:        res.urn(),
		PostID:    postID,
		Author:    social.Participant{ID: authorURN(cred)},
		Text:      text,
		CreatedAt: a.now().UTC(),
	}, nil
}

// ReplyToComment posts a nested comment under commentID, a comment URN.
func (a *Adapter) ReplyToComment(ctx context.Context, cred social.Credential, commentID, text string) (*social.Comment, error) {
	const op = "reply to comment"
	if err := checkComment(cred, "comment id", commentID, text); err != nil {
		return nil, a.wrap(social.ErrComment, op, err)
	}
	object, _, err := parseCommentURN(commentID)
	if err != nil {
		return nil, a.wrap(social.ErrComment, op, err)
	}

	res, err := a.createComment(ctx, cred, "reply_to_comment", commentID, map[string]any{
		"actor":         authorURN(cred),
		"object":        object,
		"parentComment": commentID,
		"message":       map[string]string{"text": text},
	})
	if err != nil {
		return nil, a.wrap(social.ErrComment, op, err)
	}
	if res.Object == "" {
		res.Object = object
	}
	return &social.Comment{
		ID:        res.urn(),
		ParentID:  commentID,
		Author:    social.Participant{ID: authorURN(cred)},
		Text:      text,
		CreatedAt: a.now().UTC(),
	}, nil
}

func (a *Adapter) ReactToComment(ctx context.Context, cred social.Credential, commentID, reaction string) error {
	const op = "react to comment"
	kind, err := checkReaction(cred, commentID, reaction)
	if err != nil {
		return a.wrap(social.ErrComment, op, err)
	}
	_, err = a.do(ctx, cred, httpx.Request{
		Op:       "create_reaction",
		Method:   http.MethodPost,
		URL:      "/rest/reactions",
		RawQuery: "actor=" + escape(authorURN(cred)),
		JSON:     map[string]string{"root": commentID, "reactionType": kind},
	})
	return a.wrap(social.ErrComment, op, err)
}

// RemoveCommentReaction deletes the actor's reaction, whatever its type.
func (a *Adapter) RemoveCommentReaction(ctx context.Context, cred social.Credential, commentID, reaction string) error {
	const op = "remove comment reaction"
	if _, err := checkReaction(cred, commentID, reaction); err != nil {
		return a.wrap(social.ErrComment, op, err)
	}
	key := "(actor:" + escape(authorURN(cred)) + ",entity:" + escape(commentID) + ")"
	_, err := a.do(ctx, cred, httpx.Request{Op: "delete_reaction", Method: http.MethodDelete, URL: "/rest/reactions/" + key})
	return a.wrap(social.ErrComment, op, err)
}

func (a *Adapter) DeleteComment(ctx context.Context, cred social.Credential, commentID string) error {
	const op = "delete comment"
	if err := social.RequireAccount(cred); err != nil {
		return a.wrap(social.ErrComment, op, err)
	}
	object, id, err := parseCommentURN(commentID)
	if err != nil {
		return a.wrap(social.ErrComment, op, err)
	}
	_, err = a.do(ctx, cred, httpx.Request{
		Op:       "delete_comment",
		Method:   http.MethodDelete,
		URL:      "/rest/socialActions/" + escape(object) + "/comments/" + id,
		RawQuery: "actor=" + escape(authorURN(cred)),
	})
	return a.wrap(social.ErrComment, op, err)
}

func (a *Adapter) HideComment(ctx context.Context, cred social.Credential, commentID string) error {
	return social.Unsupported(social.ErrComment, social.LinkedIn, "hide comment")
}

func (a *Adapter) UnhideComment(ctx context.Context, cred social.Credential, commentID string) error {
	return social.Unsupported(social.ErrComment, social.LinkedIn, "unhide comment")
}

func checkComment(cred social.Credential, field, id, text string) error {
	if err := social.RequireAccount(cred); err != nil {
		return err
	}
	if err := social.Require(field, id); err != nil {
		return err
	}
	if err := social.Require("text", text); err != nil {
		return err
	}
	return social.CheckLength(social.LinkedIn, text)
}

func checkReaction(cred social.Credential, commentID, reaction string) (string, error) {
	if err := social.RequireAccount(cred); err != nil {
		return "", err
	}
	if err := social.Require("comment id", commentID); err != nil {
		return "", err
	}
	kind, ok := reactionTypes[strings.ToLower(reaction)]
	if !ok {
		return "", fmt.Errorf("%w: unknown reaction %q", social.ErrInvalidRequest, reaction)
	}
	return kind, nil
}
