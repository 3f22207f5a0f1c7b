package instagram

import (
	"context"
	"fmt"
	"net/url"
	"strconv"

	"github.com/abdulachik/socialgate/internal/adapters/graph"
	"github.com/abdulachik/socialgate/internal/social"
)

const (
	accountMetrics = "reach,views,accounts_engaged,total_interactions"
	mediaMetrics   = "reach,views,saved,shares,total_interactions"
)

func (a *Adapter) GetAccountMetrics(ctx context.Context, cred social.Credential, q social.MetricsQuery) (*social.AccountMetrics, error) {
	const op = "get account metrics"
	if err := social.RequireAccount(cred); err != nil {
		return nil, a.wrap(social.ErrMetrics, op, err)
	}

	var acct struct {
		FollowersCount int64 `json:"followers_count"`
		FollowsCount   int64 `json:"follows_count"`
		MediaCount     int64 `json:"media_count"`
	}
	err := a.graph.Get(ctx, "get_account", cred.AccessToken, cred.AccountID,
		url.Values{"fields": {"followers_count,follows_count,media_count"}}, &acct)
	if err != nil {
		return nil, a.wrap(social.ErrMetrics, op, err)
	}

	since, until := q.Window(a.now())
	var insights graph.Insights
	err = a.graph.Get(ctx, "get_account_insights", cred.AccessToken, cred.AccountID+"/insights", url.Values{
		"metric":      {accountMetrics},
		"period":      {"day"},
		"metric_type": {"total_value"},
		"since":       {strconv.FormatInt(since.Unix(), 10)},
		"until":       {strconv.FormatInt(until.Unix(), 10)},
	}, &insights)
	if err != nil {
		return nil, a.wrap(social.ErrMetrics, op, err)
	}

	return &social.AccountMetrics{
		Platform:   social.Instagram,
		AccountID:  cred.AccountID,
		Followers:  acct.FollowersCount,
		Following:  acct.FollowsCount,
		Posts:      acct.MediaCount,
		Reach:      insights.Sum("reach"),
		Views:      insights.Sum("views"),
		Engagement: insights.Sum("total_interactions"),
		Extra:      map[string]int64{"accounts_engaged": insights.Sum("accounts_engaged")},
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

	var media struct {
		LikeCount     int64 `json:"like_count"`
		CommentsCount int64 `json:"comments_count"`
	}
	err := a.graph.Get(ctx, "get_media", cred.AccessToken, postID,
		url.Values{"fields": {"like_count,comments_count"}}, &media)
	if err != nil {
		return nil, a.wrap(social.ErrMetrics, op, err)
	}

	var insights graph.Insights
	err = a.graph.Get(ctx, "get_media_insights", cred.AccessToken, postID+"/insights",
		url.Values{"metric": {mediaMetrics}}, &insights)
	if err != nil {
		return nil, a.wrap(social.ErrMetrics, op, err)
	}

	return &social.PostMetrics{
		Platform: social.Instagram,
		PostID:   postID,
		Likes:    media.LikeCount,
		Comments: media.CommentsCount,
		Shares:   insights.Latest("shares"),
		Views:    insights.Latest("views"),
		Reach:    insights.Latest("reach"),
		Saves:    insights.Latest("saved"),
		Extra:    map[string]int64{"total_interactions": insights.Latest("total_interactions")},
	}, nil
}

// GetAudienceDemographics reads follower_demographics once per breakdown,
// since the API accepts a single breakdown dimension per call.
func (a *Adapter) GetAudienceDemographics(ctx context.Context, cred social.Credential) (*social.Demographics, error) {
	const op = "get audience demographics"
	if err := social.RequireAccount(cred); err != nil {
		return nil, a.wrap(social.ErrMetrics, op, err)
	}

	out := &social.Demographics{Platform: social.Instagram, AccountID: cred.AccountID}
	for _, dim := range []string{"age", "gender", "country", "city"} {
		var insights graph.Insights
		err := a.graph.Get(ctx, "get_demographics", cred.AccessToken, cred.AccountID+"/insights", url.Values{
			"metric":      {"follower_demographics"},
			"period":      {"lifetime"},
			"metric_type": {"total_value"},
			"breakdown":   {dim},
		}, &insights)
		if err != nil {
			return nil, a.wrap(social.ErrMetrics, op, fmt.Errorf("%s breakdown: %w", dim, err))
		}

		values := insights.BreakdownResults("follower_demographics")
		switch dim {
		case "age":
			out.Age = values
		case "gender":
			out.Gender = values
		case "country":
			out.Country = values
		case "city":
			out.City = values
		}
	}
	return out, nil
}

func (a *Adapter) GetHistoricalData(ctx context.Context, cred social.Credential, q social.HistoryQuery) ([]social.DataPoint, error) {
	const op = "get historical data"
	if err := social.RequireAccount(cred); err != nil {
		return nil, a.wrap(social.ErrMetrics, op, err)
	}
	if err := social.Validate(q); err != nil {
		return nil, a.wrap(social.ErrMetrics, op, err)
	}

	var insights graph.Insights
	err := a.graph.Get(ctx, "get_history", cred.AccessToken, cred.AccountID+"/insights", url.Values{
		"metric": {q.Metric},
		"period": {"day"},
		"since":  {strconv.FormatInt(q.Since.Unix(), 10)},
		"until":  {strconv.FormatInt(q.Until.Unix(), 10)},
	}, &insights)
	if err != nil {
		return nil, a.wrap(social.ErrMetrics, op, err)
	}
	if len(insights.Data) == 0 {
		return nil, a.wrap(social.ErrMetrics, op, fmt.Errorf("no data for metric %q", q.Metric))
	}
	return insights.Points(q.Metric), nil
}
