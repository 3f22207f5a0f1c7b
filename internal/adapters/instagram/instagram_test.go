package instagram

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/abdulachik/socialgate/internal/adapters/graph"
	"github.com/abdulachik/socialgate/internal/httpx"
	"github.com/abdulachik/socialgate/internal/social"
	"github.com/abdulachik/socialgate/internal/upload"
)

var fixedNow = time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

type request struct {
	Method string
	Path   string
	Query  url.Values
	Form   url.Values
}

// fakeGraph serves queued bodies per "METHOD /path"; the last body repeats.
type fakeGraph struct {
	mu       sync.Mutex
	routes   map[string][]string
	requests []request
}

func (f *fakeGraph) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	r.ParseForm()

	path := strings.TrimPrefix(r.URL.Path, "/v19.0")
	key := r.Method + " " + path

	f.mu.Lock()
	f.requests = append(f.requests, request{r.Method, path, r.URL.Query(), r.PostForm})
	bodies := f.routes[key]
	var body string
	if len(bodies) > 0 {
		body = bodies[0]
		if len(bodies) > 1 {
			f.routes[key] = bodies[1:]
		}
	}
	f.mu.Unlock()

	if body == "" {
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte(`{"error":{"message":"Unsupported request","code":100}}`))
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.Write([]byte(body))
}

func (f *fakeGraph) all(method, path string) []request {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []request
	for _, r := range f.requests {
		if r.Method == method && r.Path == path {
			out = append(out, r)
		}
	}
	return out
}

func newAdapter(t *testing.T, routes map[string][]string) (*Adapter, *fakeGraph) {
	t.Helper()
	if routes == nil {
		routes = map[string][]string{}
	}
	fake := &fakeGraph{routes: routes}
	server := httptest.NewServer(fake)
	t.Cleanup(server.Close)

	client := graph.NewClient(httpx.New(httpx.Config{Platform: "instagram"}), server.URL, "v19.0")
	a := New(Config{
		Graph: client,
		Poller: upload.Poller{
			Timeout: time.Minute,
			Sleep:   func(ctx context.Context, d time.Duration) error { return ctx.Err() },
		},
		Now: func() time.Time { return fixedNow },
	})
	return a, fake
}

var cred = social.Credential{Platform: social.Instagram, AccessToken: "tok", AccountID: "ig1"}

func TestPublishSingleImage(t *testing.T) {
	a, fake := newAdapter(t, map[string][]string{
		"POST /ig1/media":         {`{"id":"c1"}`},
		"GET /c1":                 {`{"status_code":"FINISHED"}`},
		"POST /ig1/media_publish": {`{"id":"m1"}`},
		"GET /m1":                 {`{"permalink":"https://instagram.com/p/abc"}`},
	})

	res, err := a.PublishImage(context.Background(), cred, social.MediaPost{
		Text:  "sunset",
		Media: []social.Media{{URL: "https://cdn.example.com/a.jpg"}},
	})
	require.NoError(t, err)
	assert.Equal(t, "m1", res.ID)
	assert.Equal(t, "https://instagram.com/p/abc", res.URL)
	assert.Equal(t, social.StatusPublished, res.Status)

	create := fake.all(http.MethodPost, "/ig1/media")
	require.Len(t, create, 1)
	assert.Equal(t, "https://cdn.example.com/a.jpg", create[0].Form.Get("image_url"))
	assert.Equal(t, "sunset", create[0].Form.Get("caption"))
	assert.Equal(t, "c1", fake.all(http.MethodPost, "/ig1/media_publish")[0].Form.Get("creation_id"))
}

func TestPublishCarousel(t *testing.T) {
	a, fake := newAdapter(t, map[string][]string{
		"POST /ig1/media":         {`{"id":"k1"}`, `{"id":"k2"}`, `{"id":"c9"}`},
		"GET /c9":                 {`{"status_code":"FINISHED"}`},
		"POST /ig1/media_publish": {`{"id":"m2"}`},
		"GET /m2":                 {`{"permalink":"https://instagram.com/p/xyz"}`},
	})

	res, err := a.PublishImage(context.Background(), cred, social.MediaPost{
		Text: "two",
		Media: []social.Media{
			{URL: "https://cdn.example.com/1.jpg"},
			{URL: "https://cdn.example.com/2.jpg"},
		},
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"k1", "k2"}, res.MediaIDs)

	create := fake.all(http.MethodPost, "/ig1/media")
	require.Len(t, create, 3)
	assert.Equal(t, "true", create[0].Form.Get("is_carousel_item"))
	assert.Equal(t, "CAROUSEL", create[2].Form.Get("media_type"))
	assert.Equal(t, "k1,k2", create[2].Form.Get("children"))
}

func TestPublishVideoPollsContainer(t *testing.T) {
	a, fake := newAdapter(t, map[string][]string{
		"POST /ig1/media": {`{"id":"v1"}`},
		"GET /v1": {
			`{"status_code":"IN_PROGRESS"}`,
			`{"status_code":"IN_PROGRESS"}`,
			`{"status_code":"FINISHED"}`,
		},
		"POST /ig1/media_publish": {`{"id":"m3"}`},
		"GET /m3":                 {`{"permalink":"https://instagram.com/reel/r"}`},
	})

	res, err := a.PublishVideo(context.Background(), cred, social.MediaPost{
		Media: []social.Media{{URL: "https://cdn.example.com/clip.mp4"}},
	})
	require.NoError(t, err)
	assert.Equal(t, "m3", res.ID)
	assert.Len(t, fake.all(http.MethodGet, "/v1"), 3)
	assert.Equal(t, "REELS", fake.all(http.MethodPost, "/ig1/media")[0].Form.Get("media_type"))
}

func TestPublishVideoProcessingFailure(t *testing.T) {
	a, fake := newAdapter(t, map[string][]string{
		"POST /ig1/media": {`{"id":"v2"}`},
		"GET /v2":         {`{"status_code":"IN_PROGRESS"}`, `{"status_code":"ERROR","status":"Error: 2207026"}`},
	})

	_, err := a.PublishVideo(context.Background(), cred, social.MediaPost{
		Media: []social.Media{{URL: "https://cdn.example.com/clip.mp4"}},
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, social.ErrPublishing)

	var perr *upload.MediaProcessingError
	require.True(t, errors.As(err, &perr))
	assert.Equal(t, "Error: 2207026", perr.Reason)
	assert.Empty(t, fake.all(http.MethodPost, "/ig1/media_publish"))
}

func TestPublishRequiresURL(t *testing.T) {
	a, fake := newAdapter(t, nil)
	tests := map[string]social.Media{
		"reader":     {Reader: strings.NewReader("x"), Size: 1},
		"local path": {URL: "/tmp/photo.jpg"},
		"s3":         {URL: "s3://bucket/photo.jpg"},
		"ftp":        {URL: "ftp://example.com/photo.jpg"},
	}
	for name, m := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := a.PublishImage(context.Background(), cred, social.MediaPost{Media: []social.Media{m}})
			assert.ErrorIs(t, err, social.ErrInvalidRequest)
		})
	}
	assert.Empty(t, fake.all(http.MethodPost, "/ig1/media"))
}

func TestUnsupportedOperations(t *testing.T) {
	a, _ := newAdapter(t, nil)
	ctx := context.Background()

	_, err := a.PublishText(ctx, cred, social.TextPost{Text: "hi"})
	assert.ErrorIs(t, err, social.ErrUnsupported)
	_, err = a.PublishLink(ctx, cred, social.LinkPost{URL: "https://example.com"})
	assert.ErrorIs(t, err, social.ErrUnsupported)
	_, err = a.SchedulePost(ctx, cred, social.ScheduledPost{PublishAt: fixedNow.Add(time.Hour)})
	assert.ErrorIs(t, err, social.ErrUnsupported)
	assert.ErrorIs(t, a.DeletePost(ctx, cred, "m1"), social.ErrUnsupported)
	assert.ErrorIs(t, a.ReactToComment(ctx, cred, "c1", "like"), social.ErrUnsupported)
	assert.ErrorIs(t, a.RemoveCommentReaction(ctx, cred, "c1", "like"), social.ErrUnsupported)
}

func TestGetAccountMetrics(t *testing.T) {
	a, _ := newAdapter(t, map[string][]string{
		"GET /ig1": {`{"followers_count":1200,"follows_count":80,"media_count":45}`},
		"GET /ig1/insights": {`{"data":[
			{"name":"reach","total_value":{"value":900}},
			{"name":"views","total_value":{"value":3000}},
			{"name":"total_interactions","total_value":{"value":150}},
			{"name":"accounts_engaged","total_value":{"value":70}}
		]}`},
	})

	m, err := a.GetAccountMetrics(context.Background(), cred, social.MetricsQuery{})
	require.NoError(t, err)
	assert.Equal(t, int64(1200), m.Followers)
	assert.Equal(t, int64(80), m.Following)
	assert.Equal(t, int64(45), m.Posts)
	assert.Equal(t, int64(900), m.Reach)
	assert.Equal(t, int64(3000), m.Views)
	assert.Equal(t, int64(150), m.Engagement)
	assert.Equal(t, int64(70), m.Extra["accounts_engaged"])
}

func TestGetPostMetrics(t *testing.T) {
	a, _ := newAdapter(t, map[string][]string{
		"GET /m1": {`{"like_count":40,"comments_count":6}`},
		"GET /m1/insights": {`{"data":[
			{"name":"reach","values":[{"value":500}]},
			{"name":"saved","values":[{"value":9}]},
			{"name":"shares","values":[{"value":3}]}
		]}`},
	})

	m, err := a.GetPostMetrics(context.Background(), cred, "m1")
	require.NoError(t, err)
	assert.Equal(t, int64(40), m.Likes)
	assert.Equal(t, int64(6), m.Comments)
	assert.Equal(t, int64(500), m.Reach)
	assert.Equal(t, int64(9), m.Saves)
	assert.Equal(t, int64(3), m.Shares)
}

func TestGetAudienceDemographics(t *testing.T) {
	breakdown := func(values ...string) string {
		var results []string
		for i := 0; i < len(values); i += 2 {
			results = append(results, `{"dimension_values":["`+values[i]+`"],"value":`+values[i+1]+`}`)
		}
		return `{"data":[{"name":"follower_demographics","total_value":{"breakdowns":[{"results":[` + strings.Join(results, ",") + `]}]}}]}`
	}
	a, fake := newAdapter(t, map[string][]string{
		"GET /ig1/insights": {
			breakdown("18-24", "10", "25-34", "30"),
			breakdown("F", "25", "M", "15"),
			breakdown("US", "28"),
			breakdown("Austin, Texas", "4"),
		},
	})

	d, err := a.GetAudienceDemographics(context.Background(), cred)
	require.NoError(t, err)
	assert.Equal(t, map[string]float64{"18-24": 10, "25-34": 30}, d.Age)
	assert.Equal(t, map[string]float64{"F": 25, "M": 15}, d.Gender)
	assert.Equal(t, map[string]float64{"US": 28}, d.Country)
	assert.Equal(t, map[string]float64{"Austin, Texas": 4}, d.City)

	calls := fake.all(http.MethodGet, "/ig1/insights")
	require.Len(t, calls, 4)
	assert.Equal(t, "age", calls[0].Query.Get("breakdown"))
	assert.Equal(t, "city", calls[3].Query.Get("breakdown"))
}

func TestGetHistoricalData(t *testing.T) {
	a, _ := newAdapter(t, map[string][]string{
		"GET /ig1/insights": {`{"data":[{"name":"reach","values":[
			{"value":10,"end_time":"2024-04-01T07:00:00+0000"},
			{"value":12,"end_time":"2024-04-02T07:00:00+0000"}
		]}]}`},
	})

	points, err := a.GetHistoricalData(context.Background(), cred, social.HistoryQuery{
		Metric: "reach",
		Since:  fixedNow.AddDate(0, 0, -7),
		Until:  fixedNow,
	})
	require.NoError(t, err)
	require.Len(t, points, 2)
	assert.Equal(t, float64(12), points[1].Value)
}

func TestComments(t *testing.T) {
	a, fake := newAdapter(t, map[string][]string{
		"GET /m1/comments": {`{"data":[{"id":"c1","text":"nice","username":"ana","timestamp":"2024-04-30T10:00:00+0000","like_count":2,"replies":{"summary":{"total_count":1}}}],
			"paging":{"cursors":{"after":"AFT"},"next":"https://graph/next"}}`},
		"GET /c1/replies":   {`{"data":[{"id":"r1","text":"thanks","from":{"id":"ig1","username":"brand"}}]}`},
		"POST /m1/comments": {`{"id":"c2"}`},
		"POST /c1/replies":  {`{"id":"r2"}`},
		"POST /c1":          {`{"success":true}`},
		"DELETE /c1":        {`{"success":true}`},
	})
	ctx := context.Background()

	page, err := a.GetComments(ctx, cred, "m1", social.PageOptions{Limit: 10})
	require.NoError(t, err)
	require.Len(t, page.Comments, 1)
	assert.Equal(t, "ana", page.Comments[0].Author.Username)
	assert.Equal(t, int64(1), page.Comments[0].ReplyCount)
	assert.Equal(t, "AFT", page.NextCursor)

	replies, err := a.GetCommentReplies(ctx, cred, "c1", social.PageOptions{})
	require.NoError(t, err)
	require.Len(t, replies.Comments, 1)
	assert.Equal(t, "c1", replies.Comments[0].ParentID)
	assert.Equal(t, "brand", replies.Comments[0].Author.Username)

	c, err := a.PostComment(ctx, cred, "m1", "hello")
	require.NoError(t, err)
	assert.Equal(t, "c2", c.ID)

	r, err := a.ReplyToComment(ctx, cred, "c1", "hi back")
	require.NoError(t, err)
	assert.Equal(t, "r2", r.ID)
	assert.Equal(t, "hi back", fake.all(http.MethodPost, "/c1/replies")[0].Form.Get("message"))

	require.NoError(t, a.HideComment(ctx, cred, "c1"))
	require.NoError(t, a.UnhideComment(ctx, cred, "c1"))
	hides := fake.all(http.MethodPost, "/c1")
	require.Len(t, hides, 2)
	assert.Equal(t, "true", hides[0].Form.Get("hide"))
	assert.Equal(t, "false", hides[1].Form.Get("hide"))

	require.NoError(t, a.DeleteComment(ctx, cred, "c1"))
}

func TestConversationsUseInstagramPlatform(t *testing.T) {
	a, fake := newAdapter(t, map[string][]string{
		"GET /ig1/conversations": {`{"data":[{"id":"t1","updated_time":"2024-04-30T10:00:00+0000"}]}`},
	})

	page, err := a.GetConversations(context.Background(), cred, social.PageOptions{})
	require.NoError(t, err)
	require.Len(t, page.Conversations, 1)
	assert.Equal(t, "instagram", fake.all(http.MethodGet, "/ig1/conversations")[0].Query.Get("platform"))
}

func TestValidateCredential(t *testing.T) {
	a, _ := newAdapter(t, map[string][]string{
		"GET /ig1": {`{"id":"ig1","username":"brand","name":"Brand"}`},
	})

	info, err := a.ValidateCredential(context.Background(), cred)
	require.NoError(t, err)
	assert.Equal(t, "brand", info.Username)

	_, err = a.ValidateCredential(context.Background(), social.Credential{AccessToken: "tok"})
	assert.ErrorIs(t, err, social.ErrAuthentication)
}

func TestAuthorizationURLWithoutOAuth(t *testing.T) {
	a, _ := newAdapter(t, nil)
	_, err := a.AuthorizationURL(context.Background())
	assert.ErrorIs(t, err, social.ErrAuthentication)
}
