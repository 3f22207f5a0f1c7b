package twitter

import (
	"context"
	"fmt"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/abdulachik/socialgate/internal/social"
)

const dmEventFields = "id,text,event_type,created_at,sender_id,dm_conversation_id,participant_ids"

type dmEvent struct {
	ID             string    `json:"id"`
	Text           string    `json:"text"`
	EventType      string    `json:"event_type"`
	CreatedAt      time.Time `json:"created_at"`
	SenderID       string    `json:"sender_id"`
	ConversationID string    `json:"dm_conversation_id"`
	ParticipantIDs []string  `json:"participant_ids"`
}

type dmEventsResponse struct {
	Data     []dmEvent `json:"data"`
	Includes struct {
		Users []user `json:"users"`
	} `json:"includes"`
	Meta meta `json:"meta"`
}

func (r dmEventsResponse) users() map[string]social.Participant {
	out := make(map[string]social.Participant, len(r.Includes.Users))
	for _, u := range r.Includes.Users {
		out[u.ID] = u.participant()
	}
	return out
}

func dmQuery(opts social.PageOptions) url.Values {
	q := url.Values{
		"dm_event.fields": {dmEventFields},
		"event_types":     {"MessageCreate"},
		"expansions":      {"sender_id"},
		"user.fields":     {"username,name"},
		"max_results":     {strconv.Itoa(opts.LimitOr(50))},
	}
	if opts.Cursor != "" {
		q.Set("pagination_token", opts.Cursor)
	}
	return q
}

func participant(users map[string]social.Participant, id string) social.Participant {
	if p, ok := users[id]; ok {
		return p
	}
	return social.Participant{ID: id}
}

// GetConversations groups the latest DM events by conversation, newest
// first. The cursor pages through events, not conversations.
func (a *Adapter) GetConversations(ctx context.Context, cred social.Credential, opts social.PageOptions) (*social.ConversationPage, error) {
	const op = "get conversations"
	if err := social.RequireToken(cred); err != nil {
		return nil, a.wrap(social.ErrMessaging, op, err)
	}
	if err := social.Validate(opts); err != nil {
		return nil, a.wrap(social.ErrMessaging, op, err)
	}

	var res dmEventsResponse
	if err := a.get(ctx, cred, "get_dm_events", "/2/dm_events", dmQuery(opts), &res); err != nil {
		return nil, a.wrap(social.ErrMessaging, op, err)
	}
	users := res.users()

	byID := make(map[string]*social.Conversation)
	var order []string
	for _, ev := range res.Data {
		c, ok := byID[ev.ConversationID]
		if !ok {
			c = &social.Conversation{ID: ev.ConversationID}
			byID[ev.ConversationID] = c
			order = append(order, ev.ConversationID)
			for _, id := range conversationParticipants(ev) {
				c.Participants = append(c.Participants, participant(users, id))
			}
		}
		if ev.CreatedAt.After(c.UpdatedAt) {
			c.UpdatedAt = ev.CreatedAt
			c.Snippet = ev.Text
		}
	}

	page := &social.ConversationPage{
		Conversations: make([]social.Conversation, 0, len(order)),
		NextCursor:    res.Meta.NextToken,
	}
	for _, id := range order {
		page.Conversations = append(page.Conversations, *byID[id])
	}
	sort.SliceStable(page.Conversations, func(i, j int) bool {
		return page.Conversations[i].UpdatedAt.After(page.Conversations[j].UpdatedAt)
	})
	return page, nil
}

// conversationParticipants reads participants from the event, falling
// back to the "a-b" one-to-one conversation id.
func conversationParticipants(ev dmEvent) []string {
	if len(ev.ParticipantIDs) > 0 {
		return ev.ParticipantIDs
	}
	if a, b, ok := strings.Cut(ev.ConversationID, "-"); ok {
		return []string{a, b}
	}
	if ev.SenderID != "" {
		return []string{ev.SenderID}
	}
	return nil
}

func (a *Adapter) GetMessages(ctx context.Context, cred social.Credential, conversationID string, opts social.PageOptions) (*social.MessagePage, error) {
	const op = "get messages"
	if err := social.RequireToken(cred); err != nil {
		return nil, a.wrap(social.ErrMessaging, op, err)
	}
	if err := social.Require("conversation id", conversationID); err != nil {
		return nil, a.wrap(social.ErrMessaging, op, err)
	}
	if err := social.Validate(opts); err != nil {
		return nil, a.wrap(social.ErrMessaging, op, err)
	}

	var res dmEventsResponse
	path := "/2/dm_conversations/" + url.PathEscape(conversationID) + "/dm_events"
	if err := a.get(ctx, cred, "get_dm_conversation_events", path, dmQuery(opts), &res); err != nil {
		return nil, a.wrap(social.ErrMessaging, op, err)
	}
	users := res.users()

	page := &social.MessagePage{
		Messages:   make([]social.Message, 0, len(res.Data)),
		NextCursor: res.Meta.NextToken,
	}
	for _, ev := range res.Data {
		msg := social.Message{
			ID:             ev.ID,
			ConversationID: conversationID,
			From:           participant(users, ev.SenderID),
			Text:           ev.Text,
			CreatedAt:      ev.CreatedAt,
		}
		for _, id := range conversationParticipants(ev) {
			if id != ev.SenderID {
				msg.To = append(msg.To, participant(users, id))
			}
		}
		page.Messages = append(page.Messages, msg)
	}
	return page, nil
}

type dmRequest struct {
	Text        string         `json:"text,omitempty"`
	Attachments []dmAttachment `json:"attachments,omitempty"`
}

type dmAttachment struct {
	MediaID string `json:"media_id"`
}

type dmResponse struct {
	Data struct {
		ConversationID string `json:"dm_conversation_id"`
		EventID        string `json:"dm_event_id"`
	} `json:"data"`
}

func (a *Adapter) sendDM(ctx context.Context, cred social.Credential, op, path string, body dmRequest) (*social.SentMessage, error) {
	var res dmResponse
	if err := a.postJSON(ctx, cred, op, path, body, &res); err != nil {
		return nil, err
	}
	return &social.SentMessage{ID: res.Data.EventID, ConversationID: res.Data.ConversationID}, nil
}

// SendMessage opens or continues the one-to-one conversation with the
// recipient. MediaURL is uploaded as a DM attachment first.
func (a *Adapter) SendMessage(ctx context.Context, cred social.Credential, msg social.OutgoingMessage) (*social.SentMessage, error) {
	const op = "send message"
	if err := social.RequireToken(cred); err != nil {
		return nil, a.wrap(social.ErrMessaging, op, err)
	}
	if err := social.Validate(msg); err != nil {
		return nil, a.wrap(social.ErrMessaging, op, err)
	}

	body := dmRequest{Text: msg.Text}
	if msg.MediaURL != "" {
		id, err := a.uploadMedia(ctx, cred, "dm", social.Media{URL: msg.MediaURL})
		if err != nil {
			return nil, a.wrap(social.ErrMessaging, op, fmt.Errorf("attachment: %w", err))
		}
		body.Attachments = []dmAttachment{{MediaID: id}}
	}

	path := "/2/dm_conversations/with/" + url.PathEscape(msg.RecipientID) + "/messages"
	sent, err := a.sendDM(ctx, cred, "send_dm", path, body)
	if err != nil {
		return nil, a.wrap(social.ErrMessaging, op, err)
	}
	return sent, nil
}

func (a *Adapter) ReplyToConversation(ctx context.Context, cred social.Credential, conversationID, text string) (*social.SentMessage, error) {
	const op = "reply to conversation"
	if err := social.RequireToken(cred); err != nil {
		return nil, a.wrap(social.ErrMessaging, op, err)
	}
	if err := social.Require("conversation id", conversationID); err != nil {
		return nil, a.wrap(social.ErrMessaging, op, err)
	}
	if err := social.Require("text", text); err != nil {
		return nil, a.wrap(social.ErrMessaging, op, err)
	}

	path := "/2/dm_conversations/" + url.PathEscape(conversationID) + "/messages"
	sent, err := a.sendDM(ctx, cred, "reply_dm", path, dmRequest{Text: text})
	if err != nil {
		return nil, a.wrap(social.ErrMessaging, op, err)
	}
	if sent.ConversationID == "" {
		sent.ConversationID = conversationID
	}
	return sent, nil
}

// MarkConversationAsRead is unsupported: the v2 API has no read receipts.
func (a *Adapter) MarkConversationAsRead(ctx context.Context, cred social.Credential, conversationID string) error {
	return social.Unsupported(social.ErrMessaging, social.Twitter, "mark conversation as read")
}
