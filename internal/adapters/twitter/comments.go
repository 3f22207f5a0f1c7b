package twitter

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/abdulachik/socialgate/internal/httpx"
	"github.com/abdulachik/socialgate/internal/social"
)

const replyFields = "author_id,conversation_id,created_at,public_metrics,referenced_tweets"

type searchResponse struct {
	Data     []tweet `json:"data"`
	Includes struct {
		Users []user `json:"users"`
	} `json:"includes"`
	Meta meta `json:"meta"`
}

// searchReplies finds replies in a conversation whose parent is parentID.
// Recent search only covers the last seven days.
func (a *Adapter) searchReplies(ctx context.Context, cred social.Credential, conversationID, parentID, postID string, opts social.PageOptions) (*social.CommentPage, error) {
	// search accepts 10..100 results per page
	limit := opts.LimitOr(25)
	if limit < 10 {
		limit = 10
	}
	q := url.Values{
		"query":        {"conversation_id:" + conversationID + " is:reply"},
		"tweet.fields": {replyFields},
		"expansions":   {"author_id"},
		"user.fields":  {"username,name"},
		"max_results":  {strconv.Itoa(limit)},
	}
	if opts.Cursor != "" {
		q.Set("next_token", opts.Cursor)
	}

	var res searchResponse
	if err := a.get(ctx, cred, "search_replies", "/2/tweets/search/recent", q, &res); err != nil {
		return nil, err
	}

	users := make(map[string]social.Participant, len(res.Includes.Users))
	for _, u := range res.Includes.Users {
		users[u.ID] = u.participant()
	}

	page := &social.CommentPage{Comments: []social.Comment{}, NextCursor: res.Meta.NextToken}
	for _, t := range res.Data {
		if t.repliedTo() != parentID {
			continue
		}
		c := social.Comment{
			ID:         t.ID,
			PostID:     postID,
			Author:     participant(users, t.AuthorID),
			Text:       t.Text,
			LikeCount:  t.PublicMetrics.LikeCount,
			ReplyCount: t.PublicMetrics.ReplyCount,
			CreatedAt:  t.CreatedAt,
		}
		if parentID != postID {
			c.ParentID = parentID
		}
		page.Comments = append(page.Comments, c)
	}
	return page, nil
}

func (a *Adapter) GetComments(ctx context.Context, cred social.Credential, postID string, opts social.PageOptions) (*social.CommentPage, error) {
	const op = "get comments"
	if err := checkComment(cred, "post id", postID); err != nil {
		return nil, a.wrap(social.ErrComment, op, err)
	}
	if err := social.Validate(opts); err != nil {
		return nil, a.wrap(social.ErrComment, op, err)
	}

	page, err := a.searchReplies(ctx, cred, postID, postID, postID, opts)
	if err != nil {
		return nil, a.wrap(social.ErrComment, op, err)
	}
	return page, nil
}

// GetCommentReplies looks up the reply's conversation, then searches it
// for direct replies.
func (a *Adapter) GetCommentReplies(ctx context.Context, cred social.Credential, commentID string, opts social.PageOptions) (*social.CommentPage, error) {
	const op = "get comment replies"
	if err := checkComment(cred, "comment id", commentID); err != nil {
		return nil, a.wrap(social.ErrComment, op, err)
	}
	if err := social.Validate(opts); err != nil {
		return nil, a.wrap(social.ErrComment, op, err)
	}

	var res struct {
		Data tweet `json:"data"`
	}
	if err := a.get(ctx, cred, "get_tweet", "/2/tweets/"+commentID, url.Values{"tweet.fields": {"conversation_id"}}, &res); err != nil {
		return nil, a.wrap(social.ErrComment, op, err)
	}
	conversationID := res.Data.ConversationID
	if conversationID == "" {
		conversationID = commentID
	}

	page, err := a.searchReplies(ctx, cred, conversationID, commentID, conversationID, opts)
	if err != nil {
		return nil, a.wrap(social.ErrComment, op, err)
	}
	return page, nil
}

func (a *Adapter) reply(ctx context.Context, cred social.Credential, op, field, parentID, text string) (string, error) {
	if err := checkComment(cred, field, parentID); err != nil {
		return "", err
	}
	if err := social.Require("text", text); err != nil {
		return "", err
	}
	if err := social.CheckLength(social.Twitter, text); err != nil {
		return "", err
	}
	return a.createTweet(ctx, cred, op, tweetRequest{
		Text:  text,
		Reply: &tweetReply{InReplyToTweetID: parentID},
	})
}

func (a *Adapter) PostComment(ctx context.Context, cred social.Credential, postID, text string) (*social.Comment, error) {
	id, err := a.reply(ctx, cred, "post_reply", "post id", postID, text)
	if err != nil {
		return nil, a.wrap(social.ErrComment, "post comment", err)
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
	id, err := a.reply(ctx, cred, "reply_to_reply", "comment id", commentID, text)
	if err != nil {
		return nil, a.wrap(social.ErrComment, "reply to comment", err)
	}
	return &social.Comment{
		ID:        id,
		ParentID:  commentID,
		Author:    social.Participant{ID: cred.AccountID},
		Text:      text,
		CreatedAt: a.now().UTC(),
	}, nil
}

// ReactToComment likes the reply as the authenticated user.
func (a *Adapter) ReactToComment(ctx context.Context, cred social.Credential, commentID, reaction string) error {
	const op = "react to comment"
	if err := checkReaction(cred, commentID, reaction); err != nil {
		return a.wrap(social.ErrComment, op, err)
	}
	id, err := a.userID(ctx, cred)
	if err != nil {
		return a.wrap(social.ErrComment, op, err)
	}

	var res struct {
		Data struct {
			Liked bool `json:"liked"`
		} `json:"data"`
	}
	err = a.postJSON(ctx, cred, "like_tweet", "/2/users/"+id+"/likes", map[string]string{"tweet_id": commentID}, &res)
	if err == nil && !res.Data.Liked {
		err = fmt.Errorf("tweet %s was not liked", commentID)
	}
	return a.wrap(social.ErrComment, op, err)
}

func (a *Adapter) RemoveCommentReaction(ctx context.Context, cred social.Credential, commentID, reaction string) error {
	const op = "remove comment reaction"
	if err := checkReaction(cred, commentID, reaction); err != nil {
		return a.wrap(social.ErrComment, op, err)
	}
	id, err := a.userID(ctx, cred)
	if err != nil {
		return a.wrap(social.ErrComment, op, err)
	}
	err = a.call(ctx, cred, httpx.Request{Op: "unlike_tweet", Method: http.MethodDelete, URL: "/2/users/" + id + "/likes/" + commentID}, nil)
	return a.wrap(social.ErrComment, op, err)
}

// DeleteComment deletes one of the user's own replies.
func (a *Adapter) DeleteComment(ctx context.Context, cred social.Credential, commentID string) error {
	const op = "delete comment"
	if err := checkComment(cred, "comment id", commentID); err != nil {
		return a.wrap(social.ErrComment, op, err)
	}
	return a.wrap(social.ErrComment, op, a.deleteTweet(ctx, cred, "delete_reply", commentID))
}

func (a *Adapter) HideComment(ctx context.Context, cred social.Credential, commentID string) error {
	return a.setHidden(ctx, cred, "hide comment", commentID, true)
}

func (a *Adapter) UnhideComment(ctx context.Context, cred social.Credential, commentID string) error {
	return a.setHidden(ctx, cred, "unhide comment", commentID, false)
}

// setHidden hides a reply to one of the user's own tweets.
func (a *Adapter) setHidden(ctx context.Context, cred social.Credential, op, commentID string, hidden bool) error {
	if err := checkComment(cred, "comment id", commentID); err != nil {
		return a.wrap(social.ErrComment, op, err)
	}

	var res struct {
		Data struct {
			Hidden bool `json:"hidden"`
		} `json:"data"`
	}
	err := a.call(ctx, cred, httpx.Request{
		Op:     strings.ReplaceAll(op, " ", "_"),
		Method: http.MethodPut,
		URL:    "/2/tweets/" + commentID + "/hidden",
		JSON:   map[string]bool{"hidden": hidden},
	}, &res)
	if err == nil && res.Data.Hidden != hidden {
		err = fmt.Errorf("reply %s hidden state is %t", commentID, res.Data.Hidden)
	}
	return a.wrap(social.ErrComment, op, err)
}

func checkComment(cred social.Credential, field, id string) error {
	if err := social.RequireToken(cred); err != nil {
		return err
	}
	return social.Require(field, id)
}

func checkReaction(cred social.Credential, commentID, reaction string) error {
	if err := checkComment(cred, "comment id", commentID); err != nil {
		return err
	}
	if reaction != "" && !strings.EqualFold(reaction, social.ReactionLike) {
		return fmt.Errorf("%w: x only supports %q reactions", social.ErrInvalidRequest, social.ReactionLike)
	}
	return nil
}
