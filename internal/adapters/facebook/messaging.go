package facebook

import (
	"context"

	"github.com/abdulachik/socialgate/internal/social"
)

func (a *Adapter) GetConversations(ctx context.Context, cred social.Credential, opts social.PageOptions) (*social.ConversationPage, error) {
	return a.messenger.GetConversations(ctx, cred, opts)
}

func (a *Adapter) GetMessages(ctx context.Context, cred social.Credential, conversationID string, opts social.PageOptions) (*social.MessagePage, error) {
	return a.messenger.GetMessages(ctx, cred, conversationID, opts)
}

func (a *Adapter) SendMessage(ctx context.Context, cred social.Credential, msg social.OutgoingMessage) (*social.SentMessage, error) {
	return a.messenger.SendMessage(ctx, cred, msg)
}

func (a *Adapter) ReplyToConversation(ctx context.Context, cred social.Credential, conversationID, text string) (*social.SentMessage, error) {
	return a.messenger.ReplyToConversation(ctx, cred, conversationID, text)
}

func (a *Adapter) MarkConversationAsRead(ctx context.Context, cred social.Credential, conversationID string) error {
	return a.messenger.MarkConversationAsRead(ctx, cred, conversationID)
}
