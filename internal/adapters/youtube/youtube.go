// Package youtube implements social.Adapter on the YouTube Data API v3 and
// the YouTube Analytics API v2. Credentials carry the channel id as
// AccountID.
package youtube

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"golang.org/x/oauth2/endpoints"

	"github.com/abdulachik/socialgate/internal/httpx"
	"github.com/abdulachik/socialgate/internal/media"
	"github.com/abdulachik/socialgate/internal/oauth"
	"github.com/abdulachik/socialgate/internal/social"
	"github.com/abdulachik/socialgate/internal/upload"
)

const (
	DefaultBaseURL          = "https://www.googleapis.com"
	DefaultAnalyticsBaseURL = "https://youtubeanalytics.googleapis.com"
	// Resumable upload chunks must be multiples of 256 KiB.
	DefaultChunkSize = 8 << 20
)

var Endpoint = endpoints.Google

var Scopes = []string{
	"https://www.googleapis.com/auth/youtube.upload",
	"https://www.googleapis.com/auth/youtube.force-ssl",
	"https://www.googleapis.com/auth/yt-analytics.readonly",
}

// AuthParams make Google return a refresh token on every consent.
var AuthParams = map[string]string{
	"access_type": "offline",
	"prompt":      "consent",
}

var errOAuthNotConfigured = errors.New("oauth client not configured")

type Config struct {
	HTTP             *httpx.Client
	OAuth            *oauth.Flow
	BaseURL          string
	AnalyticsBaseURL string
	Upload           upload.Config
	Media            media.Source
	Now              func() time.Time
}

type Adapter struct {
	http         *httpx.Client
	oauth        *oauth.Flow
	baseURL      string
	analyticsURL string
	uploadCfg    upload.Config
	media        media.Source
	now          func() time.Time
}

var _ social.Adapter = (*Adapter)(nil)

func New(cfg Config) *Adapter {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.AnalyticsBaseURL == "" {
		cfg.AnalyticsBaseURL = DefaultAnalyticsBaseURL
	}
	if cfg.Upload.Platform == "" {
		cfg.Upload.Platform = string(social.YouTube)
	}
	if cfg.Upload.SegmentSize <= 0 {
		cfg.Upload.SegmentSize = DefaultChunkSize
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	return &Adapter{
		http:         cfg.HTTP,
		oauth:        cfg.OAuth,
		baseURL:      strings.TrimRight(cfg.BaseURL, "/"),
		analyticsURL: strings.TrimRight(cfg.AnalyticsBaseURL, "/"),
		uploadCfg:    cfg.Upload,
		media:        cfg.Media,
		now:          cfg.Now,
	}
}

func (a *Adapter) Platform() social.Platform {
	return social.YouTube
}

func (a *Adapter) wrap(kind error, op string, err error) error {
	return social.Wrap(kind, social.YouTube, op, err)
}

// call sends a Data API request; relative paths are under /youtube/v3.
func (a *Adapter) call(ctx context.Context, cred social.Credential, r httpx.Request, out any) error {
	if !strings.HasPrefix(r.URL, "http") {
		r.URL = a.baseURL + "/youtube/v3" + r.URL
	}
	r.Token = cred.AccessToken
	return a.http.JSON(ctx, r, out)
}

// count decodes Google's uint64 fields, which arrive as JSON strings.
type count int64

func (c *count) UnmarshalJSON(b []byte) error {
	s := strings.Trim(string(b), `"`)
	if s == "" || s == "null" {
		*c = 0
		return nil
	}
	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return err
	}
	*c = count(n)
	return nil
}

var _ json.Unmarshaler = (*count)(nil)

type channel struct {
	ID      string `json:"id"`
	Snippet struct {
		Title     string `json:"title"`
		CustomURL string `json:"customUrl"`
	} `json:"snippet"`
	Statistics struct {
		ViewCount       count `json:"viewCount"`
		SubscriberCount count `json:"subscriberCount"`
		VideoCount      count `json:"videoCount"`
	} `json:"statistics"`
}

// channel reads the credential's channel, or the token owner's when no
// AccountID is set.
func (a *Adapter) channel(ctx context.Context, cred social.Credential, parts string) (*channel, error) {
	q := url.Values{"part": {parts}}
	if cred.AccountID != "" {
		q["id"] = []string{cred.AccountID}
	} else {
		q["mine"] = []string{"true"}
	}
	var res struct {
		Items []channel `json:"items"`
	}
	if err := a.call(ctx, cred, httpx.Request{Op: "get_channel", Method: http.MethodGet, URL: "/channels", Query: q}, &res); err != nil {
		return nil, err
	}
	if len(res.Items) == 0 {
		return nil, errors.New("no youtube channel found for token")
	}
	return &res.Items[0], nil
}

func (a *Adapter) AuthorizationURL(ctx context.Context) (string, error) {
	if a.oauth == nil {
		return "", a.wrap(social.ErrAuthentication, "authorization url", errOAuthNotConfigured)
	}
	u, err := a.oauth.AuthorizationURL(ctx)
	return u, a.wrap(social.ErrAuthentication, "authorization url", err)
}

// ExchangeCode completes sign-in and sets AccountID to the channel id.
func (a *Adapter) ExchangeCode(ctx context.Context, state, code string) (*social.Credential, error) {
	const op = "exchange code"
	if a.oauth == nil {
		return nil, a.wrap(social.ErrAuthentication, op, errOAuthNotConfigured)
	}

	tok, err := a.oauth.Exchange(ctx, state, code)
	if err != nil {
		return nil, a.wrap(social.ErrAuthentication, op, err)
	}
	cred := oauth.ToCredential(social.YouTube, tok, social.Credential{})

	info, err := a.ValidateCredential(ctx, *cred)
	if err != nil {
		return nil, err
	}
	cred.AccountID = info.ID
	return cred, nil
}

func (a *Adapter) RefreshCredential(ctx context.Context, cred social.Credential) (*social.Credential, error) {
	const op = "refresh credential"
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
	return oauth.ToCredential(social.YouTube, tok, cred), nil
}

func (a *Adapter) ValidateCredential(ctx context.Context, cred social.Credential) (*social.AccountInfo, error) {
	const op = "validate credential"
	if err := social.RequireToken(cred); err != nil {
		return nil, a.wrap(social.ErrAuthentication, op, err)
	}
	ch, err := a.channel(ctx, social.Credential{AccessToken: cred.AccessToken}, "snippet")
	if err != nil {
		return nil, a.wrap(social.ErrAuthentication, op, err)
	}
	return &social.AccountInfo{
		Platform: social.YouTube,
		ID:       ch.ID,
		Name:     ch.Snippet.Title,
		Username: ch.Snippet.CustomURL,
	}, nil
}
