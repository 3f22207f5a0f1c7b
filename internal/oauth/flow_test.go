package oauth

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/oauth2"

	"github.com/abdulachik/socialgate/internal/social"
	"github.com/abdulachik/socialgate/internal/store"
)

func newTokenServer(t *testing.T, check func(r *http.Request)) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseForm())
		if check != nil {
			check(r)
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"access_token":"new-access","token_type":"bearer","expires_in":3600,"refresh_token":"new-refresh","scope":"tweet.read tweet.write"}`))
	}))
}

func newFlow(server *httptest.Server, st store.Store, pkce bool) *Flow {
	return NewFlow(Config{
		Platform:     social.Twitter,
		ClientID:     "client",
		ClientSecret: "secret",
		RedirectURL:  "https://app.example.com/callback",
		Scopes:       []string{"tweet.read", "tweet.write"},
		Endpoint: oauth2.Endpoint{
			AuthURL:   "https://auth.example.com/authorize",
			TokenURL:  server.URL + "/token",
			AuthStyle: oauth2.AuthStyleInParams,
		},
		PKCE:       pkce,
		AuthParams: map[string]string{"access_type": "offline"},
		Store:      st,
		StateTTL:   time.Minute,
	})
}

func TestAuthorizationURLAndExchange(t *testing.T) {
	ctx := context.Background()
	st := store.NewMemory()

	var verifier string
	server := newTokenServer(t, func(r *http.Request) {
		assert.Equal(t, "authorization_code", r.Form.Get("grant_type"))
		assert.Equal(t, "the-code", r.Form.Get("code"))
		verifier = r.Form.Get("code_verifier")
	})
	defer server.Close()

	flow := newFlow(server, st, true)

	authURL, err := flow.AuthorizationURL(ctx)
	require.NoError(t, err)

	u, err := url.Parse(authURL)
	require.NoError(t, err)
	q := u.Query()
	state := q.Get("state")
	assert.NotEmpty(t, state)
	assert.Equal(t, "S256", q.Get("code_challenge_method"))
	assert.NotEmpty(t, q.Get("code_challenge"))
	assert.Equal(t, "offline", q.Get("access_type"))
	assert.Equal(t, "tweet.read tweet.write", q.Get("scope"))

	tok, err := flow.Exchange(ctx, state, "the-code")
	require.NoError(t, err)
	assert.Equal(t, "new-access", tok.AccessToken)
	assert.Equal(t, oauth2.S256ChallengeFromVerifier(verifier), q.Get("code_challenge"))

	_, err = flow.Exchange(ctx, state, "the-code")
	assert.ErrorIs(t, err, ErrUnknownState)
}

func TestExchangeRejectsUnknownState(t *testing.T) {
	server := newTokenServer(t, nil)
	defer server.Close()

	flow := newFlow(server, store.NewMemory(), false)
	_, err := flow.Exchange(context.Background(), "forged", "code")
	assert.ErrorIs(t, err, ErrUnknownState)

	_, err = flow.Exchange(context.Background(), "", "code")
	assert.ErrorIs(t, err, social.ErrInvalidRequest)
}

func TestAuthorizationURLWithoutPKCE(t *testing.T) {
	server := newTokenServer(t, func(r *http.Request) {
		assert.Empty(t, r.Form.Get("code_verifier"))
	})
	defer server.Close()

	ctx := context.Background()
	flow := newFlow(server, store.NewMemory(), false)
	authURL, err := flow.AuthorizationURL(ctx)
	require.NoError(t, err)

	u, _ := url.Parse(authURL)
	assert.Empty(t, u.Query().Get("code_challenge"))

	_, err = flow.Exchange(ctx, u.Query().Get("state"), "code")
	require.NoError(t, err)
}

func TestRefresh(t *testing.T) {
	server := newTokenServer(t, func(r *http.Request) {
		assert.Equal(t, "refresh_token", r.Form.Get("grant_type"))
		assert.Equal(t, "old-refresh", r.Form.Get("refresh_token"))
	})
	defer server.Close()

	flow := newFlow(server, store.NewMemory(), true)
	tok, err := flow.Refresh(context.Background(), "old-refresh")
	require.NoError(t, err)
	assert.Equal(t, "new-access", tok.AccessToken)

	_, err = flow.Refresh(context.Background(), "")
	assert.True(t, errors.Is(err, social.ErrInvalidRequest))
}

func TestToCredential(t *testing.T) {
	expiry := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)
	tok := (&oauth2.Token{AccessToken: "a", Expiry: expiry}).WithExtra(map[string]any{"scope": "r_basicprofile,w_member_social"})

	cred := ToCredential(social.LinkedIn, tok, social.Credential{RefreshToken: "keep", AccountID: "urn:li:person:1"})

	assert.Equal(t, social.LinkedIn, cred.Platform)
	assert.Equal(t, "a", cred.AccessToken)
	assert.Equal(t, "keep", cred.RefreshToken)
	assert.Equal(t, "urn:li:person:1", cred.AccountID)
	assert.Equal(t, expiry, cred.ExpiresAt)
	assert.Equal(t, []string{"r_basicprofile", "w_member_social"}, cred.Scopes)
}
