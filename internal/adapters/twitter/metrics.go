package twitter

import (
	"context"
	"fmt"
	"net/url"
	"time"

	"github.com/abdulachik/socialgate/internal/social"
)

// maxHistoryPages bounds timeline paging for GetHistoricalData.
const maxHistoryPages = 10

type publicMetrics struct {
	LikeCount       int64 `json:"like_count"`
	ReplyCount      int64 `json:"reply_count"`
	RetweetCount    int64 `json:"retweet_count"`
	QuoteCount      int64 `json:"quote_count"`
	BookmarkCount   int64 `json:"bookmark_count"`
	ImpressionCount int64 `json:"impression_count"`
}

// value returns the counter named by a history metric.
func (m publicMetrics) value(metric string) (int64, bool) {
	switch metric {
	case "likes":
		return m.LikeCount, true
	case "replies":
		return m.ReplyCount, true
	case "retweets":
		return m.RetweetCount, true
	case "quotes":
		return m.QuoteCount, true
	case "bookmarks":
		return m.BookmarkCount, true
	case "impressions":
		return m.ImpressionCount, true
	case "tweets":
		return 1, true
	case "engagement":
		return m.LikeCount + m.ReplyCount + m.RetweetCount + m.QuoteCount, true
	}
	return 0, false
}

type tweet struct {
	ID               string        `json:"id"`
	Text             string        `json:"text"`
	AuthorID         string        `json:"author_id"`
	ConversationID   string        `json:"conversation_id"`
	CreatedAt        time.Time     `json:"created_at"`
	PublicMetrics    publicMetrics `json:"public_metrics"`
	ReferencedTweets []struct {
		Type string `json:"type"`
		ID   string `json:"id"`
	} `json:"referenced_tweets"`
}

// repliedTo returns the id of the tweet this one replies to.
func (t tweet) repliedTo() string {
	for _, r := range t.ReferencedTweets {
		if r.Type == "replied_to" {
			return r.ID
		}
	}
	return ""
}

type meta struct {
	ResultCount int    `json:"result_count"`
	NextToken   string `json:"next_token"`
}

func (a *Adapter) GetAccountMetrics(ctx context.Context, cred social.Credential, q social.MetricsQuery) (*social.AccountMetrics, error) {
	const op = "get account metrics"
	if err := social.RequireToken(cred); err != nil {
		return nil, a.wrap(social.ErrMetrics, op, err)
	}
	id, err := a.userID(ctx, cred)
	if err != nil {
		return nil, a.wrap(social.ErrMetrics, op, err)
	}

	var res struct {
		Data user `json:"data"`
	}
	if err := a.get(ctx, cred, "get_user", "/2/users/"+id, url.Values{"user.fields": {"public_metrics"}}, &res); err != nil {
		return nil, a.wrap(social.ErrMetrics, op, err)
	}

	pm := res.Data.PublicMetrics
	return &social.AccountMetrics{
		Platform:  social.Twitter,
		AccountID: id,
		Followers: pm.FollowersCount,
		Following: pm.FollowingCount,
		Posts:     pm.TweetCount,
		Extra:     map[string]int64{"listed": pm.ListedCount},
	}, nil
}

func (a *Adapter) GetPostMetrics(ctx context.Context, cred social.Credential, postID string) (*social.PostMetrics, error) {
	const op = "get post metrics"
	if err := social.RequireToken(cred); err != nil {
		return nil, a.wrap(social.ErrMetrics, op, err)
	}
	if err := social.Require("post id", postID); err != nil {
		return nil, a.wrap(social.ErrMetrics, op, err)
	}

	var res struct {
		Data tweet `json:"data"`
	}
	if err := a.get(ctx, cred, "get_tweet", "/2/tweets/"+postID, url.Values{"tweet.fields": {"public_metrics"}}, &res); err != nil {
		return nil, a.wrap(social.ErrMetrics, op, err)
	}

	pm := res.Data.PublicMetrics
	return &social.PostMetrics{
		Platform:    social.Twitter,
		PostID:      postID,
		Likes:       pm.LikeCount,
		Comments:    pm.ReplyCount,
		Shares:      pm.RetweetCount + pm.QuoteCount,
		Impressions: pm.ImpressionCount,
		Saves:       pm.BookmarkCount,
		Extra: map[string]int64{
			"retweets": pm.RetweetCount,
			"quotes":   pm.QuoteCount,
		},
	}, nil
}

func (a *Adapter) GetAudienceDemographics(ctx context.Context, cred social.Credential) (*social.Demographics, error) {
	return nil, social.Unsupported(social.ErrMetrics, social.Twitter, "get audience demographics")
}

// GetHistoricalData sums a public metric over the account's own tweets,
// bucketed by UTC day of posting. Days without tweets report zero.
func (a *Adapter) GetHistoricalData(ctx context.Context, cred social.Credential, q social.HistoryQuery) ([]social.DataPoint, error) {
	const op = "get historical data"
	if err := social.RequireToken(cred); err != nil {
		return nil, a.wrap(social.ErrMetrics, op, err)
	}
	if err := social.Validate(q); err != nil {
		return nil, a.wrap(social.ErrMetrics, op, err)
	}
	if _, ok := (publicMetrics{}).value(q.Metric); !ok {
		return nil, a.wrap(social.ErrMetrics, op, fmt.Errorf("%w: unknown metric %q", social.ErrInvalidRequest, q.Metric))
	}
	id, err := a.userID(ctx, cred)
	if err != nil {
		return nil, a.wrap(social.ErrMetrics, op, err)
	}

	since := q.Since.UTC().Truncate(24 * time.Hour)
	until := q.Until.UTC()
	buckets := make(map[time.Time]float64)
	for d := since; d.Before(until); d = d.AddDate(0, 0, 1) {
		buckets[d] = 0
	}

	params := url.Values{
		"start_time":   {q.Since.UTC().Format(time.RFC3339)},
		"end_time":     {until.Format(time.RFC3339)},
		"max_results":  {"100"},
		"tweet.fields": {"created_at,public_metrics"},
	}
	for page := 0; page < maxHistoryPages; page++ {
		var res struct {
			Data []tweet `json:"data"`
			Meta meta    `json:"meta"`
		}
		if err := a.get(ctx, cred, "get_user_tweets", "/2/users/"+id+"/tweets", params, &res); err != nil {
			return nil, a.wrap(social.ErrMetrics, op, err)
		}
		for _, t := range res.Data {
			v, _ := t.PublicMetrics.value(q.Metric)
			buckets[t.CreatedAt.UTC().Truncate(24*time.Hour)] += float64(v)
		}
		if res.Meta.NextToken == "" {
			break
		}
		params.Set("pagination_token", res.Meta.NextToken)
	}

	points := make([]social.DataPoint, 0, len(buckets))
	for d := since; d.Before(until); d = d.AddDate(0, 0, 1) {
		points = append(points, social.DataPoint{Metric: q.Metric, Time: d, Value: buckets[d]})
	}
	return points, nil
}
