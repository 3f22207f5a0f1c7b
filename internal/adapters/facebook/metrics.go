package facebook

import (
	"context"
	"fmt"
	"net/url"
	"strconv"

	"github.com/abdulachik/socialgate/internal/adapters/graph"
	"github.com/abdulachik/socialgate/internal/social"
)

const (
	pageMetrics = "page_impressions,page_impressions_unique,page_post_engagements,page_views_total"
	postMetrics = "post_impressions,post_impressions_unique,post_clicks"
	fanMetrics  = "page_fans_gender_age,page_fans_country,page_fans_city"
)

func (a *Adapter) GetAccountMetrics(ctx context.Context, cred social.Credential, q social.MetricsQuery) (*social.AccountMetrics, error) {
	const op = "get account metrics"
	if err := social.RequireAccount(cred); err != nil {
		return nil, a.wrap(social.ErrMetrics, op, err)
	}

	var page struct {
		FollowersCount int64 `json:"followers_count"`
		FanCount       int64 `json:"fan_count"`
	}
	err := a.graph.Get(ctx, "get_account", cred.AccessToken, cred.AccountID,
		url.Values{"fields": {"followers_count,fan_count"}}, &page)
	if err != nil {
		return nil, a.wrap(social.ErrMetrics, op, err)
	}

	since, until := q.Window(a.now())
	var insights graph.Insights
	err = a.graph.Get(ctx, "get_account_insights", cred.AccessToken, cred.AccountID+"/insights", url.Values{
		"metric": {pageMetrics},
		"period": {"day"},
		"since":  {strconv.FormatInt(since.Unix(), 10)},
		"until":  {strconv.FormatInt(until.Unix(), 10)},
	}, &insights)
	if err != nil {
		return nil, a.wrap(social.ErrMetrics, op, err)
	}

	return &social.AccountMetrics{
		Platform:    social.Facebook,
		AccountID:   cred.AccountID,
		Followers:   page.FollowersCount,
		Impressions: insights.Sum("page_impressions"),
		Reach:       insights.Sum("page_impressions_unique"),
		Engagement:  insights.Sum("page_post_engagements"),
		Views:       insights.Sum("page_views_total"),
		Extra:       map[string]int64{"fans": page.FanCount},
	}, nil
}

type summary struct {
	Summary struct {
		TotalCount int64 `json:"total_count"`
	} `json:"summary"`
}

func (a *Adapter) GetPostMetrics(ctx context.Context, cred social.Credential, postID string) (*social.PostMetrics, error) {
	const op = "get post metrics"
	if err := social.RequireToken(cred); err != nil {
		return nil, a.wrap(social.ErrMetrics, op, err)
	}
	if err := social.Require("post id", postID); err != nil {
		return nil, a.wrap(social.ErrMetrics, op, err)
	}

	var post struct {
		Shares struct {
			Count int64 `json:"count"`
		} `json:"shares"`
		Likes    summary `json:"likes"`
		Comments summary `json:"comments"`
	}
	err := a.graph.Get(ctx, "get_post", cred.AccessToken, postID, url.Values{
		"fields": {"shares,likes.summary(true).limit(0),comments.summary(true).limit(0)"},
	}, &post)
	if err != nil {
		return nil, a.wrap(social.ErrMetrics, op, err)
	}

	var insights graph.Insights
	err = a.graph.Get(ctx, "get_post_insights", cred.AccessToken, postID+"/insights",
		url.Values{"metric": {postMetrics}}, &insights)
	if err != nil {
		return nil, a.wrap(social.ErrMetrics, op, err)
	}

	return &social.PostMetrics{
		Platform:    social.Facebook,
		PostID:      postID,
		Likes:       post.Likes.Summary.TotalCount,
		Comments:    post.Comments.Summary.TotalCount,
		Shares:      post.Shares.Count,
		Impressions: insights.Latest("post_impressions"),
		Reach:       insights.Latest("post_impressions_unique"),
		Clicks:      insights.Latest("post_clicks"),
	}, nil
}

func (a *Adapter) GetAudienceDemographics(ctx context.Context, cred social.Credential) (*social.Demographics, error) {
	const op = "get audience demographics"
	if err := social.RequireAccount(cred); err != nil {
		return nil, a.wrap(social.ErrMetrics, op, err)
	}

	var insights graph.Insights
	err := a.graph.Get(ctx, "get_demographics", cred.AccessToken, cred.AccountID+"/insights", url.Values{
		"metric": {fanMetrics},
		"period": {"lifetime"},
	}, &insights)
	if err != nil {
		return nil, a.wrap(social.ErrMetrics, op, err)
	}

	gender, age := graph.SplitGenderAge(insights.LatestBreakdown("page_fans_gender_age"))
	return &social.Demographics{
		Platform:  social.Facebook,
		AccountID: cred.AccountID,
		Age:       age,
		Gender:    gender,
		Country:   insights.LatestBreakdown("page_fans_country"),
		City:      insights.LatestBreakdown("page_fans_city"),
	}, nil
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
