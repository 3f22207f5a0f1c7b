package youtube

import (
	"context"

	"github.com/abdulachik/socialgate/internal/social"
)

// YouTube has no direct messages.

func (a *Adapter) GetConversations(ctx context.Context, cred social.Credential, opts social.PageOptions) (*social.ConversationPage, error) {
	return nil, social.Unsupported(social.ErrMessaging, social.YouTube, "get conversations")
}

func (a *Adapter) GetMessages(ctx context.Context, cred social.Credential, conversationID string, opts social.PageOptions) (*social.MessagePage, error) {
	return nil, social.Unsupported(social.ErrMessaging, social.YouTube, "get messages")
}

func (a *Adapter) SendMessage(ctx context.Context, cred social.Credential, msg social.OutgoingMessage) (*social.SentMessage, error) {
	return nil, social.Unsupported(social.ErrMessaging, social.YouTube, "send message")
}

func (a *Adapter) ReplyToConversation(ctx context.Context, cred social.Credential, conversationID, text string) (*social.SentMessage, error) {
	return nil, social.Unsupported(social.ErrMessaging, social.YouTube, "reply to conversation")
}

func (a *Adapter) MarkConversationAsRead(ctx context.Context, cred social.Credential, conversationID string) error {
	return social.Unsupported(social.ErrMessaging, social.YouTube, "mark conversation as read")
}
