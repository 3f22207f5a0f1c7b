package social

import "context"

// Authenticator runs the OAuth connection flow for a platform.
type Authenticator interface {
	AuthorizationURL(ctx context.Context) (string, error)
	ExchangeCode(ctx context.Context, state, code string) (*Credential, error)
	RefreshCredential(ctx context.Context, cred Credential) (*Credential, error)
	ValidateCredential(ctx context.Context, cred Credential) (*AccountInfo, error)
}

// Publisher creates and removes posts.
type Publisher interface {
	PublishText(ctx context.Context, cred Credential, post TextPost) (*PostResult, error)
	PublishImage(ctx context.Context, cred Credential, post MediaPost) (*PostResult, error)
	PublishVideo(ctx context.Context, cred Credential, post MediaPost) (*PostResult, error)
	PublishLink(ctx context.Context, cred Credential, post LinkPost) (*PostResult, error)
	SchedulePost(ctx context.Context, cred Credential, post ScheduledPost) (*PostResult, error)
	DeletePost(ctx context.Context, cred Credential, postID string) error
}

// MetricsProvider reads account and post statistics.
type MetricsProvider interface {
	GetAccountMetrics(ctx context.Context, cred Credential, q MetricsQuery) (*AccountMetrics, error)
	GetPostMetrics(ctx context.Context, cred Credential, postID string) (*PostMetrics, error)
	GetAudienceDemographics(ctx context.Context, cred Credential) (*Demographics, error)
	GetHistoricalData(ctx context.Context, cred Credential, q HistoryQuery) ([]DataPoint, error)
}

// Messenger handles direct messages.
type Messenger interface {
	GetConversations(ctx context.Context, cred Credential, opts PageOptions) (*ConversationPage, error)
	GetMessages(ctx context.Context, cred Credential, conversationID string, opts PageOptions) (*MessagePage, error)
	SendMessage(ctx context.Context, cred Credential, msg OutgoingMessage) (*SentMessage, error)
	ReplyToConversation(ctx context.Context, cred Credential, conversationID, text string) (*SentMessage, error)
	MarkConversationAsRead(ctx context.Context, cred Credential, conversationID string) error
}

// CommentManager reads and moderates comments.
type CommentManager interface {
	GetComments(ctx context.Context, cred Credential, postID string, opts PageOptions) (*CommentPage, error)
	GetCommentReplies(ctx context.Context, cred Credential, commentID string, opts PageOptions) (*CommentPage, error)
	PostComment(ctx context.Context, cred Credential, postID, text string) (*Comment, error)
	ReplyToComment(ctx context.Context, cred Credential, commentID, text string) (*Comment, error)
	ReactToComment(ctx context.Context, cred Credential, commentID, reaction string) error
	RemoveCommentReaction(ctx context.Context, cred Credential, commentID, reaction string) error
	DeleteComment(ctx context.Context, cred Credential, commentID string) error
	HideComment(ctx context.Context, cred Credential, commentID string) error
	UnhideComment(ctx context.Context, cred Credential, commentID string) error
}

// MediaUploader is implemented by platforms with a standalone chunked
// upload. The returned reference can be attached to later posts.
type MediaUploader interface {
	UploadMedia(ctx context.Context, cred Credential, m Media) (string, error)
}

// Adapter is the full capability set every platform implements. Operations
// a platform lacks return an error matching ErrUnsupported.
type Adapter interface {
	Platform() Platform
	Authenticator
	Publisher
	MetricsProvider
	Messenger
	CommentManager
}
