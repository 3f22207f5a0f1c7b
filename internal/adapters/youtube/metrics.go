package youtube

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/abdulachik/socialgate/internal/httpx"
	"github.com/abdulachik/socialgate/internal/social"
)

const reportDate = "2006-01-02"

// historyMetrics are the Analytics metrics GetHistoricalData accepts.
var historyMetrics = map[string]bool{
	"views":                   true,
	"likes":                   true,
	"dislikes":                true,
	"comments":                true,
	"shares":                  true,
	"subscribersGained":       true,
	"subscribersLost":         true,
	"estimatedMinutesWatched": true,
	"averageViewDuration":     true,
}

// report is a YouTube Analytics result table.
type report struct {
	ColumnHeaders []struct {
		Name string `json:"name"`
	} `json:"columnHeaders"`
	Rows [][]any `json:"rows"`
}

// column returns the index of name, or -1.
func (r *report) column(name string) int {
	for i, h := range r.ColumnHeaders {
		if h.Name == name {
			return i
		}
	}
	return -1
}

// totals sums each numeric column over all rows.
func (r *report) totals() map[string]float64 {
	out := make(map[string]float64, len(r.ColumnHeaders))
	for _, row := range r.Rows {
		for i, h := range r.ColumnHeaders {
			if i < len(row) {
				if v, ok := row[i].(float64); ok {
					out[h.Name] += v
				}
			}
		}
	}
	return out
}

// breakdown sums metric per value of dimension.
func (r *report) breakdown(dimension, metric string, key func(string) string) map[string]float64 {
	d, m := r.column(dimension), r.column(metric)
	if d < 0 || m < 0 {
		return nil
	}
	out := make(map[string]float64)
	for _, row := range r.Rows {
		if len(row) <= d || len(row) <= m {
			continue
		}
		name, _ := row[d].(string)
		v, _ := row[m].(float64)
		if key != nil {
			name = key(name)
		}
		out[name] += v
	}
	return out
}

func (a *Adapter) report(ctx context.Context, cred social.Credential, since, until time.Time, metrics string, extra url.Values) (*report, error) {
	q := url.Values{
		"ids":       {"channel==MINE"},
		"startDate": {since.UTC().Format(reportDate)},
		"endDate":   {until.UTC().Format(reportDate)},
		"metrics":   {metrics},
	}
	for k, v := range extra {
		q[k] = v
	}
	var res report
	err := a.http.JSON(ctx, httpx.Request{
		Op:     "analytics_report",
		Method: http.MethodGet,
		URL:    a.analyticsURL + "/v2/reports",
		Query:  q,
		Token:  cred.AccessToken,
	}, &res)
	if err != nil {
		return nil, err
	}
	return &res, nil
}

func (a *Adapter) GetAccountMetrics(ctx context.Context, cred social.Credential, q social.MetricsQuery) (*social.AccountMetrics, error) {
	const op = "get account metrics"
	if err := social.RequireToken(cred); err != nil {
		return nil, a.wrap(social.ErrMetrics, op, err)
	}

	ch, err := a.channel(ctx, cred, "statistics")
	if err != nil {
		return nil, a.wrap(social.ErrMetrics, op, err)
	}

	since, until := q.Window(a.now())
	rep, err := a.report(ctx, cred, since, until, "views,likes,comments,shares,estimatedMinutesWatched,subscribersGained", nil)
	if err != nil {
		return nil, a.wrap(social.ErrMetrics, op, err)
	}
	t := rep.totals()

	return &social.AccountMetrics{
		Platform:   social.YouTube,
		AccountID:  ch.ID,
		Followers:  int64(ch.Statistics.SubscriberCount),
		Posts:      int64(ch.Statistics.VideoCount),
		Views:      int64(t["views"]),
		Engagement: int64(t["likes"] + t["comments"] + t["shares"]),
		Extra: map[string]int64{
			"lifetime_views":            int64(ch.Statistics.ViewCount),
			"likes":                     int64(t["likes"]),
			"comments":                  int64(t["comments"]),
			"shares":                    int64(t["shares"]),
			"estimated_minutes_watched": int64(t["estimatedMinutesWatched"]),
			"subscribers_gained":        int64(t["subscribersGained"]),
		},
	}, nil
}

func (a *Adapter) GetPostMetrics(ctx context.Context, cred social.Credential, postID string) (*social.PostMetrics, error) {
	const op = "get post metrics"
	if err := social.RequireToken(cred); err != nil {
		return nil, a.wrap(social.ErrMetrics, op, err)
	}
	if err := social.Require("video id", postID); err != nil {
		return nil, a.wrap(social.ErrMetrics, op, err)
	}

	var res struct {
		Items []struct {
			Statistics struct {
				ViewCount     count `json:"viewCount"`
				LikeCount     count `json:"likeCount"`
				CommentCount  count `json:"commentCount"`
				FavoriteCount count `json:"favoriteCount"`
			} `json:"statistics"`
		} `json:"items"`
	}
	err := a.call(ctx, cred, httpx.Request{
		Op:     "video_statistics",
		Method: http.MethodGet,
		URL:    "/videos",
		Query:  url.Values{"part": {"statistics"}, "id": {postID}},
	}, &res)
	if err != nil {
		return nil, a.wrap(social.ErrMetrics, op, err)
	}
	if len(res.Items) == 0 {
		return nil, a.wrap(social.ErrMetrics, op, fmt.Errorf("video %s not found", postID))
	}

	s := res.Items[0].Statistics
	return &social.PostMetrics{
		Platform: social.YouTube,
		PostID:   postID,
		Likes:    int64(s.LikeCount),
		Comments: int64(s.CommentCount),
		Views:    int64(s.ViewCount),
		Extra:    map[string]int64{"favorites": int64(s.FavoriteCount)},
	}, nil
}

// GetAudienceDemographics reports viewer percentages by age group and
// gender, and views by country, over the last 28 days.
func (a *Adapter) GetAudienceDemographics(ctx context.Context, cred social.Credential) (*social.Demographics, error) {
	const op = "get audience demographics"
	if err := social.RequireToken(cred); err != nil {
		return nil, a.wrap(social.ErrMetrics, op, err)
	}
	since, until := social.MetricsQuery{}.Window(a.now())

	viewers, err := a.report(ctx, cred, since, until, "viewerPercentage", url.Values{"dimensions": {"ageGroup,gender"}})
	if err != nil {
		return nil, a.wrap(social.ErrMetrics, op, err)
	}
	countries, err := a.report(ctx, cred, since, until, "views", url.Values{"dimensions": {"country"}, "sort": {"-views"}})
	if err != nil {
		return nil, a.wrap(social.ErrMetrics, op, err)
	}

	return &social.Demographics{
		Platform:  social.YouTube,
		AccountID: cred.AccountID,
		Age:       viewers.breakdown("ageGroup", "viewerPercentage", func(s string) string { return strings.TrimPrefix(s, "age") }),
		Gender:    viewers.breakdown("gender", "viewerPercentage", nil),
		Country:   countries.breakdown("country", "views", nil),
	}, nil
}

// GetHistoricalData returns one point per day for an Analytics metric.
func (a *Adapter) GetHistoricalData(ctx context.Context, cred social.Credential, q social.HistoryQuery) ([]social.DataPoint, error) {
	const op = "get historical data"
	if err := social.RequireToken(cred); err != nil {
		return nil, a.wrap(social.ErrMetrics, op, err)
	}
	if err := social.Validate(q); err != nil {
		return nil, a.wrap(social.ErrMetrics, op, err)
	}
	if !historyMetrics[q.Metric] {
		return nil, a.wrap(social.ErrMetrics, op, fmt.Errorf("%w: unknown metric %q", social.ErrInvalidRequest, q.Metric))
	}

	rep, err := a.report(ctx, cred, q.Since, q.Until, q.Metric, url.Values{"dimensions": {"day"}, "sort": {"day"}})
	if err != nil {
		return nil, a.wrap(social.ErrMetrics, op, err)
	}
	day, metric := rep.column("day"), rep.column(q.Metric)
	if day < 0 || metric < 0 {
		return nil, a.wrap(social.ErrMetrics, op, fmt.Errorf("report is missing day or %s column", q.Metric))
	}

	points := make([]social.DataPoint, 0, len(rep.Rows))
	for _, row := range rep.Rows {
		if len(row) <= day || len(row) <= metric {
			continue
		}
		s, _ := row[day].(string)
		t, err := time.Parse(reportDate, s)
		if err != nil {
			return nil, a.wrap(social.ErrMetrics, op, fmt.Errorf("parse report day %q: %w", s, err))
		}
		v, _ := row[metric].(float64)
		points = append(points, social.DataPoint{Metric: q.Metric, Time: t, Value: v})
	}
	return points, nil
}
