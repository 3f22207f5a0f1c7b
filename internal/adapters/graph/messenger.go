package graph

import (
	"context"
	"fmt"
	"net/url"

	"github.com/abdulachik/socialgate/internal/social"
)

const (
	conversationFields = "id,updated_time,unread_count,snippet,participants"
	messageFields      = "id,message,from,to,created_time"
)

// Messenger implements social.Messenger on the Graph conversations and Send
// APIs. The credential's AccountID is the page or Instagram account.
type Messenger struct {
	client   *Client
	platform social.Platform
	// platformParam is sent as ?platform= when listing conversations.
	platformParam string
}

// NewMessenger creates a Messenger. platformParam is "instagram" for
// Instagram inboxes and empty for Facebook pages.
func NewMessenger(c *Client, p social.Platform, platformParam string) *Messenger {
	return &Messenger{client: c, platform: p, platformParam: platformParam}
}

type participant struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Username string `json:"username"`
}

func (p participant) normalize() social.Participant {
	return social.Participant{ID: p.ID, Name: p.Name, Username: p.Username}
}

type participantList struct {
	Data []participant `json:"data"`
}

func (l participantList) normalize() []social.Participant {
	out := make([]social.Participant, 0, len(l.Data))
	for _, p := range l.Data {
		out = append(out, p.normalize())
	}
	return out
}

type conversation struct {
	ID           string          `json:"id"`
	UpdatedTime  string          `json:"updated_time"`
	UnreadCount  int             `json:"unread_count"`
	Snippet      string          `json:"snippet"`
	Participants participantList `json:"participants"`
}

type message struct {
	ID          string          `json:"id"`
	Message     string          `json:"message"`
	From        participant     `json:"from"`
	To          participantList `json:"to"`
	CreatedTime string          `json:"created_time"`
}

func (m *Messenger) wrap(op string, err error) error {
	return social.Wrap(social.ErrMessaging, m.platform, op, err)
}

func (m *Messenger) GetConversations(ctx context.Context, cred social.Credential, opts social.PageOptions) (*social.ConversationPage, error) {
	const op = "get conversations"
	if err := social.RequireAccount(cred); err != nil {
		return nil, m.wrap(op, err)
	}
	if err := social.Validate(opts); err != nil {
		return nil, m.wrap(op, err)
	}

	q := PageQuery(url.Values{"fields": {conversationFields}}, opts, 25)
	if m.platformParam != "" {
		q.Set("platform", m.platformParam)
	}

	var res struct {
		Data   []conversation `json:"data"`
		Paging Paging         `json:"paging"`
	}
	if err := m.client.Get(ctx, "get_conversations", cred.AccessToken, cred.AccountID+"/conversations", q, &res); err != nil {
		return nil, m.wrap(op, err)
	}

	page := &social.ConversationPage{
		Conversations: make([]social.Conversation, 0, len(res.Data)),
		NextCursor:    res.Paging.NextCursor(),
	}
	for _, c := range res.Data {
		page.Conversations = append(page.Conversations, social.Conversation{
			ID:           c.ID,
			Participants: c.Participants.normalize(),
			Snippet:      c.Snippet,
			UnreadCount:  c.UnreadCount,
			UpdatedAt:    ParseTime(c.UpdatedTime),
		})
	}
	return page, nil
}

func (m *Messenger) GetMessages(ctx context.Context, cred social.Credential, conversationID string, opts social.PageOptions) (*social.MessagePage, error) {
	const op = "get messages"
	if err := social.RequireToken(cred); err != nil {
		return nil, m.wrap(op, err)
	}
	if err := social.Require("conversation id", conversationID); err != nil {
		return nil, m.wrap(op, err)
	}
	if err := social.Validate(opts); err != nil {
		return nil, m.wrap(op, err)
	}

	q := PageQuery(url.Values{"fields": {messageFields}}, opts, 25)

	var res struct {
		Data   []message `json:"data"`
		Paging Paging    `json:"paging"`
	}
	if err := m.client.Get(ctx, "get_messages", cred.AccessToken, conversationID+"/messages", q, &res); err != nil {
		return nil, m.wrap(op, err)
	}

	page := &social.MessagePage{
		Messages:   make([]social.Message, 0, len(res.Data)),
		NextCursor: res.Paging.NextCursor(),
	}
	for _, msg := range res.Data {
		page.Messages = append(page.Messages, social.Message{
			ID:             msg.ID,
			ConversationID: conversationID,
			From:           msg.From.normalize(),
			To:             msg.To.normalize(),
			Text:           msg.Message,
			CreatedAt:      ParseTime(msg.CreatedTime),
		})
	}
	return page, nil
}

type sendRequest struct {
	Recipient     map[string]string `json:"recipient"`
	MessagingType string            `json:"messaging_type,omitempty"`
	Message       *sendMessage      `json:"message,omitempty"`
	SenderAction  string            `json:"sender_action,omitempty"`
}

type sendMessage struct {
	Text       string          `json:"text,omitempty"`
	Attachment *sendAttachment `json:"attachment,omitempty"`
}

type sendAttachment struct {
	Type    string            `json:"type"`
	Payload map[string]string `json:"payload"`
}

func (m *Messenger) SendMessage(ctx context.Context, cred social.Credential, msg social.OutgoingMessage) (*social.SentMessage, error) {
	const op = "send message"
	if err := social.RequireAccount(cred); err != nil {
		return nil, m.wrap(op, err)
	}
	if err := social.Validate(msg); err != nil {
		return nil, m.wrap(op, err)
	}

	body := sendRequest{
		Recipient:     map[string]string{"id": msg.RecipientID},
		MessagingType: "RESPONSE",
		Message:       &sendMessage{Text: msg.Text},
	}
	if msg.MediaURL != "" {
		body.Message = &sendMessage{Attachment: &sendAttachment{
			Type:    "image",
			Payload: map[string]string{"url": msg.MediaURL},
		}}
	}

	sent, err := m.send(ctx, cred, body)
	if err != nil {
		return nil, m.wrap(op, err)
	}

	// Graph sends media and text as separate messages.
	if msg.MediaURL != "" && msg.Text != "" {
		body.Message = &sendMessage{Text: msg.Text}
		if sent, err = m.send(ctx, cred, body); err != nil {
			return nil, m.wrap(op, err)
		}
	}
	return sent, nil
}

func (m *Messenger) send(ctx context.Context, cred social.Credential, body sendRequest) (*social.SentMessage, error) {
	var res struct {
		RecipientID string `json:"recipient_id"`
		MessageID   string `json:"message_id"`
	}
	if err := m.client.PostJSON(ctx, "send_message", cred.AccessToken, cred.AccountID+"/messages", body, &res); err != nil {
		return nil, err
	}
	return &social.SentMessage{ID: res.MessageID}, nil
}

func (m *Messenger) ReplyToConversation(ctx context.Context, cred social.Credential, conversationID, text string) (*social.SentMessage, error) {
	const op = "reply to conversation"
	if err := social.RequireAccount(cred); err != nil {
		return nil, m.wrap(op, err)
	}
	if err := social.Require("text", text); err != nil {
		return nil, m.wrap(op, err)
	}

	recipient, err := m.counterpart(ctx, cred, conversationID)
	if err != nil {
		return nil, m.wrap(op, err)
	}

	sent, err := m.SendMessage(ctx, cred, social.OutgoingMessage{RecipientID: recipient, Text: text})
	if err != nil {
		return nil, err
	}
	sent.ConversationID = conversationID
	return sent, nil
}

func (m *Messenger) MarkConversationAsRead(ctx context.Context, cred social.Credential, conversationID string) error {
	const op = "mark conversation as read"
	if err := social.RequireAccount(cred); err != nil {
		return m.wrap(op, err)
	}

	recipient, err := m.counterpart(ctx, cred, conversationID)
	if err != nil {
		return m.wrap(op, err)
	}

	body := sendRequest{
		Recipient:    map[string]string{"id": recipient},
		SenderAction: "mark_seen",
	}
	if _, err := m.send(ctx, cred, body); err != nil {
		return m.wrap(op, err)
	}
	return nil
}

// counterpart returns the participant of a conversation that is not the
// account itself.
func (m *Messenger) counterpart(ctx context.Context, cred social.Credential, conversationID string) (string, error) {
	if err := social.Require("conversation id", conversationID); err != nil {
		return "", err
	}

	var res struct {
		Participants participantList `json:"participants"`
	}
	err := m.client.Get(ctx, "get_conversation", cred.AccessToken, conversationID,
		url.Values{"fields": {"participants"}}, &res)
	if err != nil {
		return "", err
	}
	for _, p := range res.Participants.Data {
		if p.ID != cred.AccountID {
			return p.ID, nil
		}
	}
	return "", fmt.Errorf("conversation %s has no other participant", conversationID)
}
