package linkedin

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/abdulachik/socialgate/internal/httpx"
	"github.com/abdulachik/socialgate/internal/social"
)

type shareStatistics struct {
	ImpressionCount       int64   `json:"impressionCount"`
	UniqueImpressionCount int64   `json:"uniqueImpressionsCount"`
	ClickCount            int64   `json:"clickCount"`
	LikeCount             int64   `json:"likeCount"`
	CommentCount          int64   `json:"commentCount"`
	ShareCount            int64   `json:"shareCount"`
	Engagement            float64 `json:"engagement"`
}

func (s shareStatistics) value(metric string) (float64, bool) {
	switch metric {
	case "impressions":
		return float64(s.ImpressionCount), true
	case "unique_impressions":
		return float64(s.UniqueImpressionCount), true
	case "clicks":
		return float64(s.ClickCount), true
	case "likes":
		return float64(s.LikeCount), true
	case "comments":
		return float64(s.CommentCount), true
	case "shares":
		return float64(s.ShareCount), true
	case "engagement":
		return s.Engagement, true
	}
	return 0, false
}

type timeRange struct {
	Start int64 `json:"start"`
	End   int64 `json:"end"`
}

type shareStatisticsResponse struct {
	Elements []struct {
		TimeRange            *timeRange      `json:"timeRange"`
		TotalShareStatistics shareStatistics `json:"totalShareStatistics"`
	} `json:"elements"`
}

type followerFacet []map[string]any

// counts flattens a follower facet keyed by key, e.g. "geo".
func (f followerFacet) counts(key string) map[string]float64 {
	if len(f) == 0 {
		return nil
	}
	out := make(map[string]float64, len(f))
	for _, entry := range f {
		name, _ := entry[key].(string)
		counts, _ := entry["followerCounts"].(map[string]any)
		organic, _ := counts["organicFollowerCount"].(float64)
		paid, _ := counts["paidFollowerCount"].(float64)
		if name != "" {
			out[name] += organic + paid
		}
	}
	return out
}

type followerStatisticsResponse struct {
	Elements []struct {
		TimeRange     *timeRange `json:"timeRange"`
		FollowerGains struct {
			OrganicFollowerGain float64 `json:"organicFollowerGain"`
			PaidFollowerGain    float64 `json:"paidFollowerGain"`
		} `json:"followerGains"`
		BySeniority  followerFacet `json:"followerCountsBySeniority"`
		ByIndustry   followerFacet `json:"followerCountsByIndustry"`
		ByFunction   followerFacet `json:"followerCountsByFunction"`
		ByStaffCount followerFacet `json:"followerCountsByStaffCountRange"`
		ByGeoCountry followerFacet `json:"followerCountsByGeoCountry"`
		ByGeo        followerFacet `json:"followerCountsByGeo"`
	} `json:"elements"`
}

// timeIntervals renders a Rest.li time interval with daily granularity.
func timeIntervals(since, until time.Time) string {
	return fmt.Sprintf("timeIntervals=(timeRange:(start:%d,end:%d),timeGranularityType:DAY)", since.UnixMilli(), until.UnixMilli())
}

func entityQuery(finder, org string, extra ...string) string {
	parts := append([]string{"q=" + finder, "organizationalEntity=" + escape(org)}, extra...)
	return strings.Join(parts, "&")
}

func (a *Adapter) shareStatistics(ctx context.Context, cred social.Credential, org string, extra ...string) (*shareStatisticsResponse, error) {
	var res shareStatisticsResponse
	err := a.call(ctx, cred, httpx.Request{
		Op:       "share_statistics",
		Method:   http.MethodGet,
		URL:      "/rest/organizationalEntityShareStatistics",
		RawQuery: entityQuery("organizationalEntity", org, extra...),
	}, &res)
	if err != nil {
		return nil, err
	}
	return &res, nil
}

func (a *Adapter) followerStatistics(ctx context.Context, cred social.Credential, org string, extra ...string) (*followerStatisticsResponse, error) {
	var res followerStatisticsResponse
	err := a.call(ctx, cred, httpx.Request{
		Op:       "follower_statistics",
		Method:   http.MethodGet,
		URL:      "/rest/organizationalEntityFollowerStatistics",
		RawQuery: entityQuery("organizationalEntity", org, extra...),
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
	org, err := organizationURN(cred)
	if err != nil {
		return nil, a.wrap(social.ErrMetrics, op, err)
	}

	var size struct {
		FirstDegreeSize int64 `json:"firstDegreeSize"`
	}
	err = a.call(ctx, cred, httpx.Request{
		Op:       "network_size",
		Method:   http.MethodGet,
		URL:      "/rest/networkSizes/" + escape(org),
		RawQuery: "edgeType=COMPANY_FOLLOWED_BY_MEMBER",
	}, &size)
	if err != nil {
		return nil, a.wrap(social.ErrMetrics, op, err)
	}

	since, until := q.Window(a.now())
	stats, err := a.shareStatistics(ctx, cred, org, timeIntervals(since, until))
	if err != nil {
		return nil, a.wrap(social.ErrMetrics, op, err)
	}

	var total shareStatistics
	for _, e := range stats.Elements {
		s := e.TotalShareStatistics
		total.ImpressionCount += s.ImpressionCount
		total.UniqueImpressionCount += s.UniqueImpressionCount
		total.ClickCount += s.ClickCount
		total.LikeCount += s.LikeCount
		total.CommentCount += s.CommentCount
		total.ShareCount += s.ShareCount
	}

	return &social.AccountMetrics{
		Platform:    social.LinkedIn,
		AccountID:   org,
		Followers:   size.FirstDegreeSize,
		Impressions: total.ImpressionCount,
		Reach:       total.UniqueImpressionCount,
		Engagement:  total.ClickCount + total.LikeCount + total.CommentCount + total.ShareCount,
		Extra: map[string]int64{
			"clicks":   total.ClickCount,
			"likes":    total.LikeCount,
			"comments": total.CommentCount,
			"shares":   total.ShareCount,
		},
	}, nil
}

// GetPostMetrics combines social action counts with share statistics when
// the credential is the posting organization.
func (a *Adapter) GetPostMetrics(ctx context.Context, cred social.Credential, postID string) (*social.PostMetrics, error) {
	const op = "get post metrics"
	if err := social.RequireToken(cred); err != nil {
		return nil, a.wrap(social.ErrMetrics, op, err)
	}
	if err := social.Require("post id", postID); err != nil {
		return nil, a.wrap(social.ErrMetrics, op, err)
	}

	var actions struct {
		LikesSummary struct {
			TotalLikes int64 `json:"totalLikes"`
		} `json:"likesSummary"`
		CommentsSummary struct {
			AggregatedTotalComments int64 `json:"aggregatedTotalComments"`
		} `json:"commentsSummary"`
	}
	err := a.call(ctx, cred, httpx.Request{Op: "social_actions", Method: http.MethodGet, URL: "/rest/socialActions/" + escape(postID)}, &actions)
	if err != nil {
		return nil, a.wrap(social.ErrMetrics, op, err)
	}

	out := &social.PostMetrics{
		Platform: social.LinkedIn,
		PostID:   postID,
		Likes:    actions.LikesSummary.TotalLikes,
		Comments: actions.CommentsSummary.AggregatedTotalComments,
	}

	org, err := organizationURN(cred)
	if err != nil {
		return out, nil
	}
	param := "shares"
	if strings.HasPrefix(postID, "urn:li:ugcPost:") {
		param = "ugcPosts"
	}
	stats, err := a.shareStatistics(ctx, cred, org, param+"=List("+escape(postID)+")")
	if err != nil {
		return nil, a.wrap(social.ErrMetrics, op, err)
	}
	if len(stats.Elements) > 0 {
		s := stats.Elements[0].TotalShareStatistics
		out.Impressions = s.ImpressionCount
		out.Reach = s.UniqueImpressionCount
		out.Clicks = s.ClickCount
		out.Shares = s.ShareCount
	}
	return out, nil
}

// GetAudienceDemographics reports lifetime follower counts per facet. Keys
// are LinkedIn URNs such as urn:li:geo:103644278.
func (a *Adapter) GetAudienceDemographics(ctx context.Context, cred social.Credential) (*social.Demographics, error) {
	const op = "get audience demographics"
	if err := social.RequireToken(cred); err != nil {
		return nil, a.wrap(social.ErrMetrics, op, err)
	}
	org, err := organizationURN(cred)
	if err != nil {
		return nil, a.wrap(social.ErrMetrics, op, err)
	}

	stats, err := a.followerStatistics(ctx, cred, org)
	if err != nil {
		return nil, a.wrap(social.ErrMetrics, op, err)
	}
	out := &social.Demographics{Platform: social.LinkedIn, AccountID: org}
	if len(stats.Elements) == 0 {
		return out, nil
	}

	e := stats.Elements[0]
	out.Country = e.ByGeoCountry.counts("geo")
	out.City = e.ByGeo.counts("geo")
	out.Extra = map[string]map[string]float64{
		"seniority": e.BySeniority.counts("seniority"),
		"industry":  e.ByIndustry.counts("industry"),
		"function":  e.ByFunction.counts("function"),
		"staff":     e.ByStaffCount.counts("staffCountRange"),
	}
	return out, nil
}

// GetHistoricalData reads daily share statistics, or daily follower gains
// for the "follower_gains" metric.
func (a *Adapter) GetHistoricalData(ctx context.Context, cred social.Credential, q social.HistoryQuery) ([]social.DataPoint, error) {
	const op = "get historical data"
	if err := social.RequireToken(cred); err != nil {
		return nil, a.wrap(social.ErrMetrics, op, err)
	}
	if err := social.Validate(q); err != nil {
		return nil, a.wrap(social.ErrMetrics, op, err)
	}
	org, err := organizationURN(cred)
	if err != nil {
		return nil, a.wrap(social.ErrMetrics, op, err)
	}
	interval := timeIntervals(q.Since, q.Until)

	if q.Metric == "follower_gains" {
		stats, err := a.followerStatistics(ctx, cred, org, interval)
		if err != nil {
			return nil, a.wrap(social.ErrMetrics, op, err)
		}
		points := make([]social.DataPoint, 0, len(stats.Elements))
		for _, e := range stats.Elements {
			if e.TimeRange == nil {
				continue
			}
			points = append(points, social.DataPoint{
				Metric: q.Metric,
				Time:   time.UnixMilli(e.TimeRange.Start).UTC(),
				Value:  e.FollowerGains.OrganicFollowerGain + e.FollowerGains.PaidFollowerGain,
			})
		}
		return points, nil
	}

	if _, ok := (shareStatistics{}).value(q.Metric); !ok {
		return nil, a.wrap(social.ErrMetrics, op, fmt.Errorf("%w: unknown metric %q", social.ErrInvalidRequest, q.Metric))
	}
	stats, err := a.shareStatistics(ctx, cred, org, interval)
	if err != nil {
		return nil, a.wrap(social.ErrMetrics, op, err)
	}
	points := make([]social.DataPoint, 0, len(stats.Elements))
	for _, e := range stats.Elements {
		if e.TimeRange == nil {
			continue
		}
		v, _ := e.TotalShareStatistics.value(q.Metric)
		points = append(points, social.DataPoint{
			Metric: q.Metric,
			Time:   time.UnixMilli(e.TimeRange.Start).UTC(),
			Value:  v,
		})
	}
	return points, nil
}
