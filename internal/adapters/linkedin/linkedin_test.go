package linkedin

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/oauth2"

	"github.com/abdulachik/socialgate/internal/httpx"
	"github.com/abdulachik/socialgate/internal/oauth"
	"github.com/abdulachik/socialgate/internal/social"
	"github.com/abdulachik/socialgate/internal/store"
	"github.com/abdulachik/socialgate/internal/upload"
)

var fixedNow = time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

var (
	member = social.Credential{Platform: social.LinkedIn, AccessToken: "tok", AccountID: "urn:li:person:p1"}
	org    = social.Credential{Platform: social.LinkedIn, AccessToken: "tok", AccountID: "urn:li:organization:42"}
)

type request struct {
	Method   string
	Path     string
	RawQuery string
	Header   http.Header
	Body     []byte
}

func (r request) json(t *testing.T) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.Unmarshal(r.Body, &out))
	return out
}

func (r request) query(t *testing.T) url.Values {
	t.Helper()
	q, err := url.ParseQuery(r.RawQuery)
	require.NoError(t, err)
	return q
}

// fakeLinkedIn routes "METHOD /decoded/path" to handlers.
type fakeLinkedIn struct {
	mu       sync.Mutex
	routes   map[string]http.HandlerFunc
	requests []request
}

func (f *fakeLinkedIn) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	body, _ := io.ReadAll(r.Body)
	r.Body = io.NopCloser(bytes.NewReader(body))

	f.mu.Lock()
	f.requests = append(f.requests, request{r.Method, r.URL.Path, r.URL.RawQuery, r.Header.Clone(), body})
	h, ok := f.routes[r.Method+" "+r.URL.Path]
	f.mu.Unlock()

	if !ok {
		respond(w, http.StatusNotFound, `{"status":404,"message":"no route"}`)
		return
	}
	h(w, r)
}

func (f *fakeLinkedIn) all(method, path string) []request {
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

func respond(w http.ResponseWriter, status int, body string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	w.Write([]byte(body))
}

func reply(body string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) { respond(w, http.StatusOK, body) }
}

func created(id string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-RestLi-Id", id)
		w.WriteHeader(http.StatusCreated)
	}
}

func noContent(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusNoContent)
}

func newAdapter(t *testing.T, routes map[string]http.HandlerFunc, mutate ...func(*Config)) (*Adapter, *fakeLinkedIn) {
	t.Helper()
	fake := &fakeLinkedIn{routes: routes}
	server := httptest.NewServer(fake)
	t.Cleanup(server.Close)

	cfg := Config{
		HTTP:    httpx.New(httpx.Config{Platform: "linkedin"}),
		BaseURL: server.URL,
		OAuth: oauth.NewFlow(oauth.Config{
			Platform:     social.LinkedIn,
			ClientID:     "client",
			ClientSecret: "secret",
			RedirectURL:  "https://app.example.com/cb",
			Endpoint: oauth2.Endpoint{
				AuthURL:   "https://www.linkedin.com/oauth/v2/authorization",
				TokenURL:  server.URL + "/oauth/v2/accessToken",
				AuthStyle: oauth2.AuthStyleInParams,
			},
			Store: store.NewMemory(),
		}),
		Upload: upload.Config{
			SegmentSize: 4,
			Sleep:       func(ctx context.Context, d time.Duration) error { return ctx.Err() },
		},
		Now: func() time.Time { return fixedNow },
	}
	for _, m := range mutate {
		m(&cfg)
	}
	return New(cfg), fake
}

func TestPublishText(t *testing.T) {
	a, fake := newAdapter(t, map[string]http.HandlerFunc{"POST /rest/posts": created("urn:li:share:100")})

	res, err := a.PublishText(context.Background(), member, social.TextPost{Text: "hello"})
	require.NoError(t, err)
	assert.Equal(t, "urn:li:share:100", res.ID)
	assert.Equal(t, "https://www.linkedin.com/feed/update/urn:li:share:100", res.URL)
	assert.Equal(t, social.StatusPublished, res.Status)

	req := fake.all(http.MethodPost, "/rest/posts")[0]
	assert.Equal(t, DefaultVersion, req.Header.Get("LinkedIn-Version"))
	assert.Equal(t, "2.0.0", req.Header.Get("X-Restli-Protocol-Version"))
	assert.Equal(t, "Bearer tok", req.Header.Get("Authorization"))

	body := req.json(t)
	assert.Equal(t, "urn:li:person:p1", body["author"])
	assert.Equal(t, "hello", body["commentary"])
	assert.Equal(t, "PUBLIC", body["visibility"])
	assert.Equal(t, "PUBLISHED", body["lifecycleState"])
	assert.NotContains(t, body, "content")
}

func TestPublishTextValidation(t *testing.T) {
	a, fake := newAdapter(t, nil)

	_, err := a.PublishText(context.Background(), member, social.TextPost{Text: strings.Repeat("a", 3001)})
	assert.ErrorIs(t, err, social.ErrPublishing)
	assert.ErrorIs(t, err, social.ErrInvalidRequest)

	_, err = a.PublishText(context.Background(), social.Credential{AccessToken: "tok"}, social.TextPost{Text: "hi"})
	assert.ErrorIs(t, err, social.ErrInvalidRequest)
	assert.Empty(t, fake.requests)
}

func imageRoutes(t *testing.T) map[string]http.HandlerFunc {
	var mu sync.Mutex
	n := 0
	return map[string]http.HandlerFunc{
		"POST /rest/images": func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "action=initializeUpload", r.URL.RawQuery)
			mu.Lock()
			n++
			id := n
			mu.Unlock()
			respond(w, http.StatusOK, `{"value":{"uploadUrl":"http://`+r.Host+`/upload/image","image":"urn:li:image:C`+strconv.Itoa(id)+`"}}`)
		},
		"PUT /upload/image": func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusCreated) },
		"POST /rest/posts":  created("urn:li:share:101"),
	}
}

func TestPublishImage(t *testing.T) {
	t.Run("single", func(t *testing.T) {
		a, fake := newAdapter(t, imageRoutes(t))

		res, err := a.PublishImage(context.Background(), member, social.MediaPost{
			Text:    "pic",
			Privacy: "private",
			Media:   []social.Media{{Reader: strings.NewReader("png-bytes"), Size: 9, MIMEType: "image/png"}},
		})
		require.NoError(t, err)
		assert.Equal(t, []string{"urn:li:image:C1"}, res.MediaIDs)

		put := fake.all(http.MethodPut, "/upload/image")[0]
		assert.Equal(t, "png-bytes", string(put.Body))
		assert.Equal(t, "image/png", put.Header.Get("Content-Type"))

		body := fake.all(http.MethodPost, "/rest/posts")[0].json(t)
		assert.Equal(t, "CONNECTIONS", body["visibility"])
		assert.Equal(t, map[string]any{"media": map[string]any{"id": "urn:li:image:C1"}}, body["content"])
	})

	t.Run("multi image", func(t *testing.T) {
		a, fake := newAdapter(t, imageRoutes(t))

		res, err := a.PublishImage(context.Background(), member, social.MediaPost{
			Media: []social.Media{
				{Reader: strings.NewReader("a"), Size: 1, MIMEType: "image/png"},
				{Reader: strings.NewReader("b"), Size: 1, Filename: "b.jpg"},
			},
		})
		require.NoError(t, err)
		assert.Equal(t, []string{"urn:li:image:C1", "urn:li:image:C2"}, res.MediaIDs)

		body := fake.all(http.MethodPost, "/rest/posts")[0].json(t)
		content := body["content"].(map[string]any)
		images := content["multiImage"].(map[string]any)["images"].([]any)
		assert.Len(t, images, 2)
	})

	t.Run("not an image", func(t *testing.T) {
		a, fake := newAdapter(t, imageRoutes(t))
		_, err := a.PublishImage(context.Background(), member, social.MediaPost{
			Media: []social.Media{{Reader: strings.NewReader("v"), Size: 1, MIMEType: "video/mp4"}},
		})
		assert.ErrorIs(t, err, social.ErrInvalidRequest)
		assert.Empty(t, fake.all(http.MethodPost, "/rest/posts"))
	})
}

// videoRoutes serves a three part upload of 10 bytes and then the given
// video statuses in order.
func videoRoutes(t *testing.T, statuses ...string) map[string]http.HandlerFunc {
	var mu sync.Mutex
	part := func(n string) http.HandlerFunc {
		return func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("ETag", "etag-"+n)
			w.WriteHeader(http.StatusOK)
		}
	}
	return map[string]http.HandlerFunc{
		"POST /rest/videos": func(w http.ResponseWriter, r *http.Request) {
			switch r.URL.Query().Get("action") {
			case "initializeUpload":
				base := "http://" + r.Host + "/upload/video/"
				respond(w, http.StatusOK, `{"value":{"video":"urn:li:video:V1","uploadToken":"ut","uploadInstructions":[`+
					`{"uploadUrl":"`+base+`0","firstByte":0,"lastByte":3},`+
					`{"uploadUrl":"`+base+`1","firstByte":4,"lastByte":7},`+
					`{"uploadUrl":"`+base+`2","firstByte":8,"lastByte":9}]}}`)
			case "finalizeUpload":
				w.WriteHeader(http.StatusOK)
			default:
				respond(w, http.StatusBadRequest, `{"message":"bad action"}`)
			}
		},
		"PUT /upload/video/0": part("0"),
		"PUT /upload/video/1": part("1"),
		"PUT /upload/video/2": part("2"),
		"GET /rest/videos/urn:li:video:V1": func(w http.ResponseWriter, r *http.Request) {
			mu.Lock()
			body := statuses[0]
			if len(statuses) > 1 {
				statuses = statuses[1:]
			}
			mu.Unlock()
			respond(w, http.StatusOK, body)
		},
		"POST /rest/posts": created("urn:li:share:102"),
	}
}

func TestPublishVideo(t *testing.T) {
	a, fake := newAdapter(t, videoRoutes(t, `{"status":"PROCESSING"}`, `{"status":"AVAILABLE"}`))

	res, err := a.PublishVideo(context.Background(), member, social.MediaPost{
		Text:  "clip",
		Title: "My clip",
		Media: []social.Media{{Reader: strings.NewReader("0123456789"), Size: 10, MIMEType: "video/mp4"}},
	})
	require.NoError(t, err)
	assert.Equal(t, "urn:li:share:102", res.ID)
	assert.Equal(t, []string{"urn:li:video:V1"}, res.MediaIDs)

	assert.Equal(t, "0123", string(fake.all(http.MethodPut, "/upload/video/0")[0].Body))
	assert.Equal(t, "4567", string(fake.all(http.MethodPut, "/upload/video/1")[0].Body))
	assert.Equal(t, "89", string(fake.all(http.MethodPut, "/upload/video/2")[0].Body))

	calls := fake.all(http.MethodPost, "/rest/videos")
	require.Len(t, calls, 2)
	initReq := calls[0].json(t)["initializeUploadRequest"].(map[string]any)
	assert.Equal(t, "urn:li:person:p1", initReq["owner"])
	assert.Equal(t, float64(10), initReq["fileSizeBytes"])

	final := calls[1].json(t)["finalizeUploadRequest"].(map[string]any)
	assert.Equal(t, "ut", final["uploadToken"])
	assert.Equal(t, []any{"etag-0", "etag-1", "etag-2"}, final["uploadedPartIds"])

	assert.Len(t, fake.all(http.MethodGet, "/rest/videos/urn:li:video:V1"), 2)

	body := fake.all(http.MethodPost, "/rest/posts")[0].json(t)
	assert.Equal(t, map[string]any{"media": map[string]any{"id": "urn:li:video:V1", "title": "My clip"}}, body["content"])
}

func TestPublishVideoProcessingFailed(t *testing.T) {
	a, fake := newAdapter(t, videoRoutes(t, `{"status":"PROCESSING_FAILED"}`))

	_, err := a.PublishVideo(context.Background(), member, social.MediaPost{
		Media: []social.Media{{Reader: strings.NewReader("0123456789"), Size: 10, MIMEType: "video/mp4"}},
	})
	var perr *upload.MediaProcessingError
	require.True(t, errors.As(err, &perr))
	assert.Equal(t, "urn:li:video:V1", perr.SessionID)
	assert.ErrorIs(t, err, social.ErrPublishing)
	assert.Empty(t, fake.all(http.MethodPost, "/rest/posts"))
}

func TestUploadVideoPartSizeMismatch(t *testing.T) {
	a, _ := newAdapter(t, videoRoutes(t, `{"status":"AVAILABLE"}`), func(c *Config) { c.Upload.SegmentSize = 5 })

	_, err := a.UploadMedia(context.Background(), member, social.Media{
		Reader: strings.NewReader("0123456789"), Size: 10, MIMEType: "video/mp4",
	})
	var segErr *upload.SegmentError
	require.True(t, errors.As(err, &segErr))
	assert.Equal(t, 0, segErr.Index)
}

// ttlStore records the TTL of every Put.
type ttlStore struct {
	store.Store
	mu   sync.Mutex
	ttls map[string]time.Duration
}

func (s *ttlStore) Put(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	s.mu.Lock()
	s.ttls[key] = ttl
	s.mu.Unlock()
	return s.Store.Put(ctx, key, value, ttl)
}

func TestVideoUploadResumesFromSharedStore(t *testing.T) {
	ctx := context.Background()
	shared := &ttlStore{Store: store.NewMemory(), ttls: map[string]time.Duration{}}
	withStore := func(c *Config) {
		c.Upload.Checkpoints = shared
		c.Upload.CheckpointTTL = 2 * time.Hour
	}

	first, firstFake := newAdapter(t, videoRoutes(t, `{"status":"AVAILABLE"}`), withStore)
	started := &videoUpload{a: first, cred: member}
	video, err := started.Init(ctx, 10, "video/mp4")
	require.NoError(t, err)
	require.NoError(t, started.Append(ctx, video, upload.Segment{Index: 0, Offset: 0, Total: 10, Data: []byte("0123")}))
	assert.Equal(t, 2*time.Hour, shared.ttls["linkedin:video:urn:li:video:V1"])

	second, secondFake := newAdapter(t, videoRoutes(t, `{"status":"AVAILABLE"}`), withStore)
	resumed := &videoUpload{a: second, cred: member}
	assert.True(t, resumed.CanResume(ctx, video))
	assert.False(t, (&videoUpload{a: second, cred: org}).CanResume(ctx, video))

	require.NoError(t, resumed.Append(ctx, video, upload.Segment{Index: 1, Offset: 4, Total: 10, Data: []byte("4567")}))
	require.NoError(t, resumed.Append(ctx, video, upload.Segment{Index: 2, Offset: 8, Total: 10, Data: []byte("89")}))
	_, ref, err := resumed.Finalize(ctx, video)
	require.NoError(t, err)
	assert.Equal(t, video, ref)

	assert.Len(t, firstFake.all(http.MethodPut, "/upload/video/2"), 1)
	calls := secondFake.all(http.MethodPost, "/rest/videos")
	require.Len(t, calls, 1)
	final := calls[0].json(t)["finalizeUploadRequest"].(map[string]any)
	assert.Equal(t, []any{"etag-0", "etag-1", "etag-2"}, final["uploadedPartIds"])

	assert.False(t, resumed.CanResume(ctx, video))
	_, err = shared.Get(ctx, "linkedin:video:urn:li:video:V1")
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestVideoSessionsExpireWithoutFinalize(t *testing.T) {
	ctx := context.Background()
	recorder := &ttlStore{Store: store.NewMemory(), ttls: map[string]time.Duration{}}
	a, _ := newAdapter(t, videoRoutes(t, `{"status":"AVAILABLE"}`), func(c *Config) { c.Upload.Checkpoints = recorder })

	v := &videoUpload{a: a, cred: member}
	video, err := v.Init(ctx, 10, "video/mp4")
	require.NoError(t, err)
	require.Error(t, v.Append(ctx, video, upload.Segment{Index: 0, Offset: 0, Total: 10, Data: []byte("01234")}))

	assert.Equal(t, upload.DefaultCheckpointTTL, recorder.ttls["linkedin:video:"+video])
	assert.True(t, v.CanResume(ctx, video))
}

func TestPublishLink(t *testing.T) {
	a, fake := newAdapter(t, map[string]http.HandlerFunc{"POST /rest/posts": created("urn:li:share:103")})

	_, err := a.PublishLink(context.Background(), member, social.LinkPost{
		Text: "Read this", URL: "https://example.com/post", Title: "Post",
	})
	require.NoError(t, err)

	body := fake.all(http.MethodPost, "/rest/posts")[0].json(t)
	assert.Equal(t, map[string]any{"article": map[string]any{"source": "https://example.com/post", "title": "Post"}}, body["content"])
}

func TestDeletePost(t *testing.T) {
	a, fake := newAdapter(t, map[string]http.HandlerFunc{"DELETE /rest/posts/urn:li:share:100": noContent})
	require.NoError(t, a.DeletePost(context.Background(), member, "urn:li:share:100"))
	assert.Len(t, fake.all(http.MethodDelete, "/rest/posts/urn:li:share:100"), 1)
}

func TestUnsupported(t *testing.T) {
	a, fake := newAdapter(t, nil)
	ctx := context.Background()

	_, err := a.SchedulePost(ctx, member, social.ScheduledPost{})
	assert.ErrorIs(t, err, social.ErrUnsupported)
	assert.ErrorIs(t, err, social.ErrPublishing)

	_, err = a.GetConversations(ctx, member, social.PageOptions{})
	assert.ErrorIs(t, err, social.ErrUnsupported)
	assert.ErrorIs(t, err, social.ErrMessaging)
	_, err = a.SendMessage(ctx, member, social.OutgoingMessage{RecipientID: "x", Text: "hi"})
	assert.ErrorIs(t, err, social.ErrUnsupported)

	assert.ErrorIs(t, a.HideComment(ctx, member, "c"), social.ErrUnsupported)
	assert.ErrorIs(t, a.UnhideComment(ctx, member, "c"), social.ErrUnsupported)
	assert.Empty(t, fake.requests)
}

func TestGetAccountMetrics(t *testing.T) {
	a, fake := newAdapter(t, map[string]http.HandlerFunc{
		"GET /rest/networkSizes/urn:li:organization:42": reply(`{"firstDegreeSize":1200}`),
		"GET /rest/organizationalEntityShareStatistics": reply(`{"elements":[
			{"timeRange":{"start":1,"end":2},"totalShareStatistics":{"impressionCount":100,"uniqueImpressionsCount":80,"clickCount":5,"likeCount":7,"commentCount":2,"shareCount":1}},
			{"timeRange":{"start":2,"end":3},"totalShareStatistics":{"impressionCount":50,"uniqueImpressionsCount":40,"clickCount":1,"likeCount":3}}]}`),
	})

	m, err := a.GetAccountMetrics(context.Background(), org, social.MetricsQuery{})
	require.NoError(t, err)
	assert.Equal(t, int64(1200), m.Followers)
	assert.Equal(t, int64(150), m.Impressions)
	assert.Equal(t, int64(120), m.Reach)
	assert.Equal(t, int64(19), m.Engagement)
	assert.Equal(t, int64(10), m.Extra["likes"])

	size := fake.all(http.MethodGet, "/rest/networkSizes/urn:li:organization:42")[0]
	assert.Equal(t, "COMPANY_FOLLOWED_BY_MEMBER", size.query(t).Get("edgeType"))

	stats := fake.all(http.MethodGet, "/rest/organizationalEntityShareStatistics")[0]
	q := stats.query(t)
	assert.Equal(t, "organizationalEntity", q.Get("q"))
	assert.Equal(t, "urn:li:organization:42", q.Get("organizationalEntity"))
	assert.True(t, strings.HasPrefix(q.Get("timeIntervals"), "(timeRange:(start:"))
}

func TestMetricsRequireOrganization(t *testing.T) {
	a, fake := newAdapter(t, nil)
	_, err := a.GetAccountMetrics(context.Background(), member, social.MetricsQuery{})
	assert.ErrorIs(t, err, social.ErrMetrics)
	assert.ErrorIs(t, err, social.ErrInvalidRequest)

	_, err = a.GetAudienceDemographics(context.Background(), member)
	assert.ErrorIs(t, err, social.ErrInvalidRequest)
	assert.Empty(t, fake.requests)
}

func TestGetPostMetrics(t *testing.T) {
	routes := map[string]http.HandlerFunc{
		"GET /rest/socialActions/urn:li:share:100":      reply(`{"likesSummary":{"totalLikes":9},"commentsSummary":{"aggregatedTotalComments":4}}`),
		"GET /rest/organizationalEntityShareStatistics": reply(`{"elements":[{"totalShareStatistics":{"impressionCount":300,"uniqueImpressionsCount":250,"clickCount":12,"shareCount":3}}]}`),
	}

	t.Run("member", func(t *testing.T) {
		a, fake := newAdapter(t, routes)
		m, err := a.GetPostMetrics(context.Background(), member, "urn:li:share:100")
		require.NoError(t, err)
		assert.Equal(t, int64(9), m.Likes)
		assert.Equal(t, int64(4), m.Comments)
		assert.Zero(t, m.Impressions)
		assert.Empty(t, fake.all(http.MethodGet, "/rest/organizationalEntityShareStatistics"))
	})

	t.Run("organization", func(t *testing.T) {
		a, fake := newAdapter(t, routes)
		m, err := a.GetPostMetrics(context.Background(), org, "urn:li:share:100")
		require.NoError(t, err)
		assert.Equal(t, int64(300), m.Impressions)
		assert.Equal(t, int64(250), m.Reach)
		assert.Equal(t, int64(12), m.Clicks)
		assert.Equal(t, int64(3), m.Shares)

		q := fake.all(http.MethodGet, "/rest/organizationalEntityShareStatistics")[0].query(t)
		assert.Equal(t, "List(urn:li:share:100)", q.Get("shares"))
	})
}

func TestGetAudienceDemographics(t *testing.T) {
	a, _ := newAdapter(t, map[string]http.HandlerFunc{
		"GET /rest/organizationalEntityFollowerStatistics": reply(`{"elements":[{
			"followerCountsByGeoCountry":[{"geo":"urn:li:geo:103644278","followerCounts":{"organicFollowerCount":70,"paidFollowerCount":5}}],
			"followerCountsByGeo":[{"geo":"urn:li:geo:90000084","followerCounts":{"organicFollowerCount":20,"paidFollowerCount":0}}],
			"followerCountsBySeniority":[{"seniority":"urn:li:seniority:3","followerCounts":{"organicFollowerCount":11,"paidFollowerCount":1}}],
			"followerCountsByIndustry":[],
			"followerCountsByFunction":[{"function":"urn:li:function:8","followerCounts":{"organicFollowerCount":4,"paidFollowerCount":0}}],
			"followerCountsByStaffCountRange":[{"staffCountRange":"SIZE_11_TO_50","followerCounts":{"organicFollowerCount":6,"paidFollowerCount":0}}]
		}]}`),
	})

	d, err := a.GetAudienceDemographics(context.Background(), org)
	require.NoError(t, err)
	assert.Equal(t, map[string]float64{"urn:li:geo:103644278": 75}, d.Country)
	assert.Equal(t, map[string]float64{"urn:li:geo:90000084": 20}, d.City)
	assert.Equal(t, map[string]float64{"urn:li:seniority:3": 12}, d.Extra["seniority"])
	assert.Equal(t, map[string]float64{"SIZE_11_TO_50": 6}, d.Extra["staff"])
	assert.Nil(t, d.Extra["industry"])
}

func TestGetHistoricalData(t *testing.T) {
	day1 := time.Date(2024, 4, 1, 0, 0, 0, 0, time.UTC)
	day2 := day1.AddDate(0, 0, 1)
	routes := map[string]http.HandlerFunc{
		"GET /rest/organizationalEntityShareStatistics": reply(`{"elements":[
			{"timeRange":{"start":` + ms(day1) + `,"end":` + ms(day2) + `},"totalShareStatistics":{"impressionCount":10}},
			{"timeRange":{"start":` + ms(day2) + `,"end":` + ms(day2.AddDate(0, 0, 1)) + `},"totalShareStatistics":{"impressionCount":20}}]}`),
		"GET /rest/organizationalEntityFollowerStatistics": reply(`{"elements":[
			{"timeRange":{"start":` + ms(day1) + `,"end":` + ms(day2) + `},"followerGains":{"organicFollowerGain":3,"paidFollowerGain":1}}]}`),
	}
	q := social.HistoryQuery{Since: day1, Until: day2.AddDate(0, 0, 1)}

	t.Run("share metric", func(t *testing.T) {
		a, _ := newAdapter(t, routes)
		q := q
		q.Metric = "impressions"
		points, err := a.GetHistoricalData(context.Background(), org, q)
		require.NoError(t, err)
		require.Len(t, points, 2)
		assert.Equal(t, day1, points[0].Time)
		assert.Equal(t, float64(20), points[1].Value)
	})

	t.Run("follower gains", func(t *testing.T) {
		a, _ := newAdapter(t, routes)
		q := q
		q.Metric = "follower_gains"
		points, err := a.GetHistoricalData(context.Background(), org, q)
		require.NoError(t, err)
		require.Len(t, points, 1)
		assert.Equal(t, float64(4), points[0].Value)
	})

	t.Run("unknown metric", func(t *testing.T) {
		a, _ := newAdapter(t, routes)
		q := q
		q.Metric = "vibes"
		_, err := a.GetHistoricalData(context.Background(), org, q)
		assert.ErrorIs(t, err, social.ErrInvalidRequest)
	})
}

func ms(t time.Time) string {
	return strconv.FormatInt(t.UnixMilli(), 10)
}

const commentURN = "urn:li:comment:(urn:li:activity:7000,555)"

func TestComments(t *testing.T) {
	a, fake := newAdapter(t, map[string]http.HandlerFunc{
		"GET /rest/socialActions/urn:li:share:100/comments": reply(`{"elements":[
			{"id":"555","commentUrn":"` + commentURN + `","actor":"urn:li:person:p2","object":"urn:li:activity:7000",
			 "message":{"text":"nice"},"created":{"time":1714564800000},"likesSummary":{"totalLikes":2},"commentsSummary":{"aggregatedTotalComments":1}}],
			"paging":{"start":0,"count":1,"total":3}}`),
		"GET /rest/socialActions/" + commentURN + "/comments": reply(`{"elements":[
			{"id":"556","actor":"urn:li:person:p1","object":"urn:li:activity:7000","message":{"text":"thanks"}}],"paging":{"start":0,"count":10,"total":1}}`),
		"POST /rest/socialActions/urn:li:share:100/comments": func(w http.ResponseWriter, r *http.Request) {
			respond(w, http.StatusCreated, `{"id":"557","object":"urn:li:activity:7000"}`)
		},
		"POST /rest/socialActions/" + commentURN + "/comments": func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("X-RestLi-Id", "558")
			w.WriteHeader(http.StatusCreated)
		},
		"POST /rest/reactions": created("(actor:urn:li:person:p1,entity:" + commentURN + ")"),
		"DELETE /rest/reactions/(actor:urn:li:person:p1,entity:" + commentURN + ")": noContent,
		"DELETE /rest/socialActions/urn:li:activity:7000/comments/555":              noContent,
	})
	ctx := context.Background()

	page, err := a.GetComments(ctx, member, "urn:li:share:100", social.PageOptions{Limit: 1})
	require.NoError(t, err)
	require.Len(t, page.Comments, 1)
	c := page.Comments[0]
	assert.Equal(t, commentURN, c.ID)
	assert.Equal(t, "urn:li:share:100", c.PostID)
	assert.Equal(t, "urn:li:person:p2", c.Author.ID)
	assert.Equal(t, int64(2), c.LikeCount)
	assert.Equal(t, int64(1), c.ReplyCount)
	assert.Equal(t, time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC), c.CreatedAt)
	assert.Equal(t, "1", page.NextCursor)
	assert.Equal(t, "start=0&count=1", fake.all(http.MethodGet, "/rest/socialActions/urn:li:share:100/comments")[0].RawQuery)

	_, err = a.GetComments(ctx, member, "urn:li:share:100", social.PageOptions{Cursor: "x"})
	assert.ErrorIs(t, err, social.ErrInvalidRequest)

	replies, err := a.GetCommentReplies(ctx, member, commentURN, social.PageOptions{})
	require.NoError(t, err)
	require.Len(t, replies.Comments, 1)
	assert.Equal(t, "urn:li:comment:(urn:li:activity:7000,556)", replies.Comments[0].ID)
	assert.Equal(t, commentURN, replies.Comments[0].ParentID)
	assert.Empty(t, replies.NextCursor)

	posted, err := a.PostComment(ctx, member, "urn:li:share:100", "great")
	require.NoError(t, err)
	assert.Equal(t, "urn:li:comment:(urn:li:activity:7000,557)", posted.ID)
	body := fake.all(http.MethodPost, "/rest/socialActions/urn:li:share:100/comments")[0].json(t)
	assert.Equal(t, "urn:li:person:p1", body["actor"])
	assert.Equal(t, map[string]any{"text": "great"}, body["message"])

	answer, err := a.ReplyToComment(ctx, member, commentURN, "agreed")
	require.NoError(t, err)
	assert.Equal(t, "urn:li:comment:(urn:li:activity:7000,558)", answer.ID)
	assert.Equal(t, commentURN, answer.ParentID)
	body = fake.all(http.MethodPost, "/rest/socialActions/"+commentURN+"/comments")[0].json(t)
	assert.Equal(t, "urn:li:activity:7000", body["object"])
	assert.Equal(t, commentURN, body["parentComment"])

	_, err = a.ReplyToComment(ctx, member, "555", "agreed")
	assert.ErrorIs(t, err, social.ErrInvalidRequest)

	require.NoError(t, a.ReactToComment(ctx, member, commentURN, "celebrate"))
	react := fake.all(http.MethodPost, "/rest/reactions")[0]
	assert.Equal(t, "urn:li:person:p1", react.query(t).Get("actor"))
	assert.Equal(t, map[string]any{"root": commentURN, "reactionType": "PRAISE"}, react.json(t))
	assert.ErrorIs(t, a.ReactToComment(ctx, member, commentURN, "angry"), social.ErrInvalidRequest)

	require.NoError(t, a.RemoveCommentReaction(ctx, member, commentURN, ""))
	require.NoError(t, a.DeleteComment(ctx, member, commentURN))
	assert.Equal(t, "urn:li:person:p1", fake.all(http.MethodDelete, "/rest/socialActions/urn:li:activity:7000/comments/555")[0].query(t).Get("actor"))
}

func TestParseCommentURN(t *testing.T) {
	object, id, err := parseCommentURN("urn:li:comment:(urn:li:ugcPost:1,2)")
	require.NoError(t, err)
	assert.Equal(t, "urn:li:ugcPost:1", object)
	assert.Equal(t, "2", id)

	for _, bad := range []string{"", "urn:li:comment:", "urn:li:comment:(x)", "urn:li:comment:(x,)"} {
		_, _, err := parseCommentURN(bad)
		assert.ErrorIs(t, err, social.ErrInvalidRequest, bad)
	}
}

func TestExchangeCode(t *testing.T) {
	a, fake := newAdapter(t, map[string]http.HandlerFunc{
		"POST /oauth/v2/accessToken": reply(`{"access_token":"at","refresh_token":"rt","expires_in":5183999,"scope":"openid,profile,w_member_social"}`),
		"GET /v2/userinfo":           reply(`{"sub":"p9","name":"Ana Ruiz","email":"ana@example.com"}`),
	})
	ctx := context.Background()

	authURL, err := a.AuthorizationURL(ctx)
	require.NoError(t, err)
	u, _ := url.Parse(authURL)
	assert.Equal(t, "client", u.Query().Get("client_id"))

	c, err := a.ExchangeCode(ctx, u.Query().Get("state"), "code")
	require.NoError(t, err)
	assert.Equal(t, "at", c.AccessToken)
	assert.Equal(t, "urn:li:person:p9", c.AccountID)
	assert.Equal(t, []string{"openid", "profile", "w_member_social"}, c.Scopes)
	assert.Equal(t, "Bearer at", fake.all(http.MethodGet, "/v2/userinfo")[0].Header.Get("Authorization"))
}

func TestRefreshCredential(t *testing.T) {
	a, _ := newAdapter(t, map[string]http.HandlerFunc{
		"POST /oauth/v2/accessToken": reply(`{"access_token":"at2","expires_in":5183999}`),
	})
	ctx := context.Background()

	out, err := a.RefreshCredential(ctx, social.Credential{AccessToken: "at", RefreshToken: "rt", AccountID: "urn:li:person:p9"})
	require.NoError(t, err)
	assert.Equal(t, "at2", out.AccessToken)
	assert.Equal(t, "rt", out.RefreshToken)
	assert.Equal(t, "urn:li:person:p9", out.AccountID)

	_, err = a.RefreshCredential(ctx, social.Credential{AccessToken: "at"})
	assert.ErrorIs(t, err, social.ErrAuthentication)
}

func TestValidateCredentialRejectsEmptySubject(t *testing.T) {
	a, _ := newAdapter(t, map[string]http.HandlerFunc{"GET /v2/userinfo": reply(`{}`)})
	_, err := a.ValidateCredential(context.Background(), member)
	assert.ErrorIs(t, err, social.ErrAuthentication)
}
