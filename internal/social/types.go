package social

import (
	"io"
	"time"
)

// Post status values reported in PostResult.
const (
	StatusPublished  = "published"
	StatusScheduled  = "scheduled"
	StatusProcessing = "processing"
)

// TextPost is a plain text status update.
type TextPost struct {
	Text string `validate:"required"`
}

// Media is a single image or video attached to a post. Either URL or
// Reader must be set; Reader requires Size.
type Media struct {
	URL       string    `validate:"required_without=Reader"`
	Reader    io.Reader `json:"-"`
	Size      int64     `validate:"gte=0"`
	MIMEType  string
	Filename  string
	ResumeKey string
}

// MediaPost is an image or video post.
type MediaPost struct {
	Text    string
	Title   string
	Media   []Media `validate:"required,min=1,dive"`
	Privacy string  `validate:"omitempty,oneof=public unlisted private"`
	Tags    []string
}

// LinkPost shares a URL with optional commentary.
type LinkPost struct {
	Text        string
	URL         string `validate:"required,url"`
	Title       string
	Description string
}

// ScheduledPost is published by the platform at PublishAt.
type ScheduledPost struct {
	Text      string
	Title     string
	Link      string    `validate:"omitempty,url"`
	Media     []Media   `validate:"dive"`
	PublishAt time.Time `validate:"required"`
}

// PostResult is the normalized outcome of a publish call.
type PostResult struct {
	Platform  Platform  `json:"platform"`
	ID        string    `json:"id"`
	URL       string    `json:"url,omitempty"`
	Status    string    `json:"status"`
	MediaIDs  []string  `json:"media_ids,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// MetricsQuery bounds account level metrics. Zero values select the last
// 28 days.
type MetricsQuery struct {
	Since time.Time
	Until time.Time
}

// Window resolves the query into a concrete range.
func (q MetricsQuery) Window(now time.Time) (time.Time, time.Time) {
	until := q.Until
	if until.IsZero() {
		until = now
	}
	since := q.Since
	if since.IsZero() {
		since = until.AddDate(0, 0, -28)
	}
	return since, until
}

// AccountMetrics is a snapshot of account level counters.
type AccountMetrics struct {
	Platform    Platform         `json:"platform"`
	AccountID   string           `json:"account_id"`
	Followers   int64            `json:"followers"`
	Following   int64            `json:"following,omitempty"`
	Posts       int64            `json:"posts,omitempty"`
	Impressions int64            `json:"impressions,omitempty"`
	Reach       int64            `json:"reach,omitempty"`
	Engagement  int64            `json:"engagement,omitempty"`
	Views       int64            `json:"views,omitempty"`
	Extra       map[string]int64 `json:"extra,omitempty"`
}

// PostMetrics is a snapshot of counters for one post.
type PostMetrics struct {
	Platform    Platform         `json:"platform"`
	PostID      string           `json:"post_id"`
	Likes       int64            `json:"likes"`
	Comments    int64            `json:"comments"`
	Shares      int64            `json:"shares"`
	Views       int64            `json:"views,omitempty"`
	Impressions int64            `json:"impressions,omitempty"`
	Reach       int64            `json:"reach,omitempty"`
	Saves       int64            `json:"saves,omitempty"`
	Clicks      int64            `json:"clicks,omitempty"`
	Extra       map[string]int64 `json:"extra,omitempty"`
}

// Demographics breaks the audience down by dimension. Values are counts or
// percentages depending on what the platform reports.
type Demographics struct {
	Platform  Platform                      `json:"platform"`
	AccountID string                        `json:"account_id"`
	Age       map[string]float64            `json:"age,omitempty"`
	Gender    map[string]float64            `json:"gender,omitempty"`
	Country   map[string]float64            `json:"country,omitempty"`
	City      map[string]float64            `json:"city,omitempty"`
	Extra     map[string]map[string]float64 `json:"extra,omitempty"`
}

// HistoryQuery selects one metric over a time range.
type HistoryQuery struct {
	Metric string    `validate:"required"`
	Since  time.Time `validate:"required"`
	Until  time.Time `validate:"required,gtfield=Since"`
}

// DataPoint is one sample of a historical series.
type DataPoint struct {
	Metric string    `json:"metric"`
	Time   time.Time `json:"time"`
	Value  float64   `json:"value"`
}

// PageOptions controls cursor pagination. Cursor is the platform's own
// opaque token from a previous page.
type PageOptions struct {
	Limit  int `validate:"gte=0,lte=100"`
	Cursor string
}

// LimitOr returns Limit or def when unset.
func (o PageOptions) LimitOr(def int) int {
	if o.Limit <= 0 {
		return def
	}
	return o.Limit
}

// Participant is a user taking part in a conversation or comment thread.
type Participant struct {
	ID       string `json:"id"`
	Name     string `json:"name,omitempty"`
	Username string `json:"username,omitempty"`
}

type Conversation struct {
	ID           string        `json:"id"`
	Participants []Participant `json:"participants,omitempty"`
	Snippet      string        `json:"snippet,omitempty"`
	UnreadCount  int           `json:"unread_count,omitempty"`
	UpdatedAt    time.Time     `json:"updated_at"`
}

type ConversationPage struct {
	Conversations []Conversation `json:"conversations"`
	NextCursor    string         `json:"next_cursor,omitempty"`
}

type Message struct {
	ID             string        `json:"id"`
	ConversationID string        `json:"conversation_id,omitempty"`
	From           Participant   `json:"from"`
	To             []Participant `json:"to,omitempty"`
	Text           string        `json:"text"`
	CreatedAt      time.Time     `json:"created_at"`
}

type MessagePage struct {
	Messages   []Message `json:"messages"`
	NextCursor string    `json:"next_cursor,omitempty"`
}

// OutgoingMessage is a direct message to a single recipient.
type OutgoingMessage struct {
	RecipientID string `validate:"required"`
	Text        string `validate:"required_without=MediaURL"`
	MediaURL    string `validate:"omitempty,url"`
}

// SentMessage identifies a delivered message.
type SentMessage struct {
	ID             string `json:"id"`
	ConversationID string `json:"conversation_id,omitempty"`
}

type Comment struct {
	ID         string      `json:"id"`
	PostID     string      `json:"post_id,omitempty"`
	ParentID   string      `json:"parent_id,omitempty"`
	Author     Participant `json:"author"`
	Text       string      `json:"text"`
	LikeCount  int64       `json:"like_count"`
	ReplyCount int64       `json:"reply_count"`
	Hidden     bool        `json:"hidden,omitempty"`
	CreatedAt  time.Time   `json:"created_at"`
}

type CommentPage struct {
	Comments   []Comment `json:"comments"`
	NextCursor string    `json:"next_cursor,omitempty"`
}

// ReactionLike is the only reaction every reacting platform understands.
const ReactionLike = "like"
