package graph

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/abdulachik/socialgate/internal/httpx"
	"github.com/abdulachik/socialgate/internal/social"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)
	return NewClient(httpx.New(httpx.Config{Platform: "facebook"}), server.URL, "v19.0")
}

func TestURL(t *testing.T) {
	c := NewClient(nil, "", "")
	assert.Equal(t, "https://graph.facebook.com/v19.0/123/feed", c.URL("/123/feed"))
}

func TestParseTime(t *testing.T) {
	assert.Equal(t, time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC), ParseTime("2024-05-01T12:00:00+0200"))
	assert.Equal(t, time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC), ParseTime("2024-05-01T10:00:00Z"))
	assert.True(t, ParseTime("garbage").IsZero())
}

func TestPaging(t *testing.T) {
	var p Paging
	require.NoError(t, json.Unmarshal([]byte(`{"cursors":{"before":"b","after":"a"},"next":"https://graph/next"}`), &p))
	assert.Equal(t, "a", p.NextCursor())

	p.Next = ""
	assert.Equal(t, "", p.NextCursor())

	q := PageQuery(nil, social.PageOptions{Cursor: "xyz"}, 25)
	assert.Equal(t, "25", q.Get("limit"))
	assert.Equal(t, "xyz", q.Get("after"))
}

func TestInsights(t *testing.T) {
	body := `{"data":[
		{"name":"page_impressions","period":"day","values":[{"value":10,"end_time":"2024-05-01T07:00:00+0000"},{"value":15,"end_time":"2024-05-02T07:00:00+0000"}]},
		{"name":"page_fans_gender_age","period":"lifetime","values":[{"value":{"F.25-34":4,"M.25-34":6,"F.18-24":2},"end_time":"2024-05-02T07:00:00+0000"}]},
		{"name":"follower_demographics","period":"lifetime","total_value":{"breakdowns":[{"dimension_keys":["country"],"results":[{"dimension_values":["US"],"value":7},{"dimension_values":["DE"],"value":3}]}]}},
		{"name":"reach","period":"day","total_value":{"value":99}}
	]}`
	var in Insights
	require.NoError(t, json.Unmarshal([]byte(body), &in))

	assert.Equal(t, int64(25), in.Sum("page_impressions"))
	assert.Equal(t, int64(15), in.Latest("page_impressions"))
	assert.Equal(t, int64(99), in.Sum("reach"))
	assert.Zero(t, in.Sum("missing"))

	gender, age := SplitGenderAge(in.LatestBreakdown("page_fans_gender_age"))
	assert.Equal(t, map[string]float64{"F": 6, "M": 6}, gender)
	assert.Equal(t, map[string]float64{"25-34": 10, "18-24": 2}, age)

	assert.Equal(t, map[string]float64{"US": 7, "DE": 3}, in.BreakdownResults("follower_demographics"))

	points := in.Points("page_impressions")
	require.Len(t, points, 2)
	assert.Equal(t, 15.0, points[1].Value)
	assert.Equal(t, time.Date(2024, 5, 2, 7, 0, 0, 0, time.UTC), points[1].Time)
}

func TestExchangeToken(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v19.0/oauth/access_token", r.URL.Path)
		assert.Equal(t, "fb_exchange_token", r.URL.Query().Get("grant_type"))
		assert.Equal(t, "short", r.URL.Query().Get("fb_exchange_token"))
		w.Write([]byte(`{"access_token":"long","token_type":"bearer","expires_in":5184000}`))
	})

	res, err := c.ExchangeToken(context.Background(), "app", "secret", "short")
	require.NoError(t, err)
	assert.Equal(t, "long", res.AccessToken)
	assert.Equal(t, int64(5184000), res.ExpiresIn)
}

func TestAppSecretProof(t *testing.T) {
	assert.Equal(t, "d8b448b9cc7d64c51098271805b3cc20b5b715e52bd587eb71b610259587c856", AppSecretProof("app-secret", "page-token"))

	var proofs []string
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		proofs = append(proofs, r.URL.Query().Get("appsecret_proof"))
		w.Write([]byte(`{"id":"1","success":true}`))
	}).WithAppSecret("app-secret")

	q := url.Values{"fields": {"id"}}
	require.NoError(t, c.Get(context.Background(), "get", "page-token", "me", q, &ID{}))
	require.NoError(t, c.Post(context.Background(), "post", "page-token", "page1/feed", url.Values{"message": {"hi"}}, &ID{}))
	require.NoError(t, c.Delete(context.Background(), "delete", "page-token", "page1_1"))
	require.NoError(t, c.Get(context.Background(), "anonymous", "", "oauth/access_token", nil, &ID{}))

	proof := AppSecretProof("app-secret", "page-token")
	assert.Equal(t, []string{proof, proof, proof, ""}, proofs)
	assert.Empty(t, q.Get("appsecret_proof"))
}

func TestNoAppSecretProofWithoutSecret(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.False(t, r.URL.Query().Has("appsecret_proof"))
		w.Write([]byte(`{"id":"1"}`))
	})
	require.NoError(t, c.Get(context.Background(), "get", "page-token", "me", nil, &ID{}))
}

func TestMessengerConversations(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v19.0/ig1/conversations", r.URL.Path)
		assert.Equal(t, "instagram", r.URL.Query().Get("platform"))
		assert.Equal(t, "10", r.URL.Query().Get("limit"))
		w.Write([]byte(`{"data":[{"id":"c1","updated_time":"2024-05-01T12:00:00+0000","unread_count":2,"snippet":"hey",
			"participants":{"data":[{"id":"ig1","username":"brand"},{"id":"u2","username":"fan"}]}}],
			"paging":{"cursors":{"after":"next1"},"next":"https://graph/next"}}`))
	})

	m := NewMessenger(c, social.Instagram, "instagram")
	page, err := m.GetConversations(context.Background(), social.Credential{AccessToken: "t", AccountID: "ig1"}, social.PageOptions{Limit: 10})
	require.NoError(t, err)

	require.Len(t, page.Conversations, 1)
	conv := page.Conversations[0]
	assert.Equal(t, "c1", conv.ID)
	assert.Equal(t, 2, conv.UnreadCount)
	assert.Equal(t, "fan", conv.Participants[1].Username)
	assert.Equal(t, "next1", page.NextCursor)
}

func TestMessengerReplyAndMarkRead(t *testing.T) {
	var sent []map[string]any
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.Method == http.MethodGet && r.URL.Path == "/v19.0/t_1":
			w.Write([]byte(`{"participants":{"data":[{"id":"page1"},{"id":"user9"}]},"id":"t_1"}`))
		case r.Method == http.MethodPost && r.URL.Path == "/v19.0/page1/messages":
			data, _ := io.ReadAll(r.Body)
			var body map[string]any
			require.NoError(t, json.Unmarshal(data, &body))
			sent = append(sent, body)
			w.Write([]byte(`{"recipient_id":"user9","message_id":"m_1"}`))
		default:
			http.NotFound(w, r)
		}
	})

	m := NewMessenger(c, social.Facebook, "")
	cred := social.Credential{AccessToken: "t", AccountID: "page1"}

	msg, err := m.ReplyToConversation(context.Background(), cred, "t_1", "thanks!")
	require.NoError(t, err)
	assert.Equal(t, "m_1", msg.ID)
	assert.Equal(t, "t_1", msg.ConversationID)

	require.NoError(t, m.MarkConversationAsRead(context.Background(), cred, "t_1"))

	require.Len(t, sent, 2)
	assert.Equal(t, map[string]any{"id": "user9"}, sent[0]["recipient"])
	assert.Equal(t, "RESPONSE", sent[0]["messaging_type"])
	assert.Equal(t, map[string]any{"text": "thanks!"}, sent[0]["message"])
	assert.Equal(t, "mark_seen", sent[1]["sender_action"])
}

func TestMessengerValidation(t *testing.T) {
	m := NewMessenger(NewClient(nil, "", ""), social.Facebook, "")

	_, err := m.SendMessage(context.Background(), social.Credential{AccessToken: "t", AccountID: "p"}, social.OutgoingMessage{Text: "hi"})
	assert.True(t, errors.Is(err, social.ErrMessaging))
	assert.True(t, errors.Is(err, social.ErrInvalidRequest))

	_, err = m.GetMessages(context.Background(), social.Credential{AccessToken: "t"}, "", social.PageOptions{})
	assert.True(t, errors.Is(err, social.ErrInvalidRequest))
}

func TestMessengerAPIError(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte(`{"error":{"message":"(#10) This message is sent outside of allowed window.","code":10}}`))
	})

	m := NewMessenger(c, social.Facebook, "")
	_, err := m.SendMessage(context.Background(), social.Credential{AccessToken: "t", AccountID: "p"}, social.OutgoingMessage{RecipientID: "u", Text: "hi"})

	require.Error(t, err)
	assert.True(t, errors.Is(err, social.ErrMessaging))
	var apiErr *httpx.APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Contains(t, err.Error(), "outside of allowed window")
}
