package linkedin

import (
	"context"

	"github.com/abdulachik/socialgate/internal/social"
)

// LinkedIn restricts its messaging API to approved partners, so every
// messaging operation is unsupported.

func (a *Adapter) GetConversations(ctx context.Context, cred social.Credential, opts social.PageOptions) (*social.ConversationPage, error) {
	return nil, social.Unsupported(social.ErrMessaging, social.LinkedIn, "get conversations")
}

func (a *Adapter) GetMessages(ctx context.Context, cred social.Credential, conversationID string, opts social.PageOptions) (*social.MessagePage, error) {
	return nil, social.Unsupported(social.ErrMessaging, social.LinkedIn, "get messages")
}

func (a *Adapter) SendMessage(ctx context.Context, cred social.Credential, msg social.OutgoingMessage) (*social.SentMessage, error) {
	return nil, social.Unsupported(social.ErrMessaging, social.LinkedIn, "send message")
}

func (a *Adapter) ReplyToConversation(ctx context.Context, cred social.Credential, conversationID, text string) (*social.SentMessage, error) {
	return nil, social.Unsupported(social.ErrMessaging, social.LinkedIn, "reply to conversation")
}

func (a *Adapter) MarkConversationAsRead(ctx context.Context, cred social.Credential, conversationID string) error {
	return social.Unsupported(social.ErrMessaging, social.LinkedIn, "mark conversation as read")
}
