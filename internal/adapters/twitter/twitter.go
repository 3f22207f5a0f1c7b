// Package twitter implements social.Adapter for X (Twitter) using the v2
// API for tweets, messages and metrics, and the v1.1 chunked media upload
// endpoint for attachments.
package twitter

import (
	"context"
	"errors"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/oauth2"

	"github.com/abdulachik/socialgate/internal/httpx"
	"github.com/abdulachik/socialgate/internal/media"
	"github.com/abdulachik/socialgate/internal/oauth"
	"github.com/abdulachik/socialgate/internal/social"
	"github.com/abdulachik/socialgate/internal/upload"
)

const (
	DefaultBaseURL       = "https://api.twitter.com"
	DefaultUploadBaseURL = "https://upload.twitter.com"
	DefaultSegmentSize   = 4 << 20
)

// Endpoint is the OAuth 2.0 endpoint for user-context tokens. Confidential
// clients authenticate with HTTP basic auth.
var Endpoint = oauth2.Endpoint{
	AuthURL:   "https://twitter.com/i/oauth2/authorize",
	TokenURL:  "https://api.twitter.com/2/oauth2/token",
	AuthStyle: oauth2.AuthStyleInHeader,
}

var Scopes = []string{
	"tweet.read",
	"tweet.write",
	"tweet.moderate.write",
	"users.read",
	"like.read",
	"like.write",
	"dm.read",
	"dm.write",
	"media.write",
	"offline.access",
}

var errOAuthNotConfigured = errors.New("oauth client not configured")

type Config struct {
	HTTP          *httpx.Client
	OAuth         *oauth.Flow
	BaseURL       string
	UploadBaseURL string

	// ConsumerKey and ConsumerSecret sign OAuth 1.0a requests for
	// credentials that carry a TokenSecret.
	ConsumerKey    string
	ConsumerSecret string

	// Upload tunes the chunked media upload. Platform and SegmentSize
	// default to twitter and 4 MiB.
	Upload upload.Config
	Media  media.Source
	Now    func() time.Time
}

// Adapter talks to X on behalf of the user in the credential. AccountID is
// the numeric user id.
type Adapter struct {
	http           *httpx.Client
	oauth          *oauth.Flow
	baseURL        string
	uploadBaseURL  string
	consumerKey    string
	consumerSecret string
	uploadCfg      upload.Config
	media          media.Source
	now            func() time.Time
}

var _ social.Adapter = (*Adapter)(nil)

func New(cfg Config) *Adapter {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.UploadBaseURL == "" {
		cfg.UploadBaseURL = DefaultUploadBaseURL
	}
	if cfg.Upload.Platform == "" {
		cfg.Upload.Platform = string(social.Twitter)
	}
	if cfg.Upload.SegmentSize <= 0 {
		cfg.Upload.SegmentSize = DefaultSegmentSize
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	return &Adapter{
		http:           cfg.HTTP,
		oauth:          cfg.OAuth,
		baseURL:        strings.TrimRight(cfg.BaseURL, "/"),
		uploadBaseURL:  strings.TrimRight(cfg.UploadBaseURL, "/"),
		consumerKey:    cfg.ConsumerKey,
		consumerSecret: cfg.ConsumerSecret,
		uploadCfg:      cfg.Upload,
		media:          cfg.Media,
		now:            cfg.Now,
	}
}

func (a *Adapter) Platform() social.Platform {
	return social.Twitter
}

func (a *Adapter) wrap(kind error, op string, err error) error {
	return social.Wrap(kind, social.Twitter, op, err)
}

// authorize signs with OAuth 1.0a when the credential has a token secret
// and falls back to a bearer token otherwise.
func (a *Adapter) authorize(ctx context.Context, r *httpx.Request, cred social.Credential) {
	if cred.TokenSecret == "" {
		r.Token = cred.AccessToken
		return
	}
	r.Client = a.oauth1Client(ctx, cred)
}

func (a *Adapter) call(ctx context.Context, cred social.Credential, r httpx.Request, out any) error {
	if !strings.HasPrefix(r.URL, "http") {
		r.URL = a.baseURL + r.URL
	}
	a.authorize(ctx, &r, cred)
	return a.http.JSON(ctx, r, out)
}

func (a *Adapter) get(ctx context.Context, cred social.Credential, op, path string, q url.Values, out any) error {
	return a.call(ctx, cred, httpx.Request{Op: op, Method: http.MethodGet, URL: path, Query: q}, out)
}

func (a *Adapter) postJSON(ctx context.Context, cred social.Credential, op, path string, body, out any) error {
	return a.call(ctx, cred, httpx.Request{Op: op, Method: http.MethodPost, URL: path, JSON: body}, out)
}

func (a *Adapter) AuthorizationURL(ctx context.Context) (string, error) {
	if a.oauth == nil {
		return "", a.wrap(social.ErrAuthentication, "authorization url", errOAuthNotConfigured)
	}
	u, err := a.oauth.AuthorizationURL(ctx)
	return u, a.wrap(social.ErrAuthentication, "authorization url", err)
}

func (a *Adapter) ExchangeCode(ctx context.Context, state, code string) (*social.Credential, error) {
	const op = "exchange code"
	if a.oauth == nil {
		return nil, a.wrap(social.ErrAuthentication, op, errOAuthNotConfigured)
	}

	tok, err := a.oauth.Exchange(ctx, state, code)
	if err != nil {
		return nil, a.wrap(social.ErrAuthentication, op, err)
	}
	cred := oauth.ToCredential(social.Twitter, tok, social.Credential{})

	info, err := a.ValidateCredential(ctx, *cred)
	if err != nil {
		return nil, err
	}
	cred.AccountID = info.ID
	return cred, nil
}

// RefreshCredential renews an OAuth 2.0 token. OAuth 1.0a tokens do not
// expire and are returned unchanged.
func (a *Adapter) RefreshCredential(ctx context.Context, cred social.Credential) (*social.Credential, error) {
	const op = "refresh credential"
	if cred.TokenSecret != "" {
		out := cred
		return &out, nil
	}
	if a.oauth == nil {
		return nil, a.wrap(social.ErrAuthentication, op, errOAuthNotConfigured)
	}
	if err := social.Require("refresh token", cred.RefreshToken); err != nil {
		return nil, a.wrap(social.ErrAuthentication, op, err)
	}

	tok, err := a.oauth.Refresh(ctx, cred.RefreshToken)
	if err != nil {
		return nil, a.wrap(social.ErrAuthentication, op, err)
	}
	return oauth.ToCredential(social.Twitter, tok, cred), nil
}

type user struct {
	ID            string `json:"id"`
	Name          string `json:"name"`
	Username      string `json:"username"`
	PublicMetrics struct {
		FollowersCount int64 `json:"followers_count"`
		FollowingCount int64 `json:"following_count"`
		TweetCount     int64 `json:"tweet_count"`
		ListedCount    int64 `json:"listed_count"`
	} `json:"public_metrics"`
}

func (u user) participant() social.Participant {
	return social.Participant{ID: u.ID, Name: u.Name, Username: u.Username}
}

func (a *Adapter) ValidateCredential(ctx context.Context, cred social.Credential) (*social.AccountInfo, error) {
	const op = "validate credential"
	if err := social.RequireToken(cred); err != nil {
		return nil, a.wrap(social.ErrAuthentication, op, err)
	}

	var res struct {
		Data user `json:"data"`
	}
	if err := a.get(ctx, cred, "get_me", "/2/users/me", nil, &res); err != nil {
		return nil, a.wrap(social.ErrAuthentication, op, err)
	}
	return &social.AccountInfo{
		Platform: social.Twitter,
		ID:       res.Data.ID,
		Name:     res.Data.Name,
		Username: res.Data.Username,
	}, nil
}

// userID returns the credential's account, looking it up when unset.
func (a *Adapter) userID(ctx context.Context, cred social.Credential) (string, error) {
	if cred.AccountID != "" {
		return cred.AccountID, nil
	}
	var res struct {
		Data user `json:"data"`
	}
	if err := a.get(ctx, cred, "get_me", "/2/users/me", nil, &res); err != nil {
		return "", err
	}
	return res.Data.ID, nil
}
