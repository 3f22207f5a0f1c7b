// Package linkedin implements social.Adapter on LinkedIn's versioned REST
// API. Credentials carry the author URN (urn:li:person:... or
// urn:li:organization:...) as AccountID.
package linkedin

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
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
	DefaultBaseURL = "https://api.linkedin.com"
	DefaultVersion = "202405"
	// LinkedIn hands out upload instructions in 4 MiB parts.
	DefaultPartSize = 4 << 20

	personPrefix       = "urn:li:person:"
	organizationPrefix = "urn:li:organization:"
)

var Endpoint = endpoints.LinkedIn

var Scopes = []string{
	"openid",
	"profile",
	"w_member_social",
	"r_organization_social",
	"w_organization_social",
	"rw_organization_admin",
}

var (
	errOAuthNotConfigured = errors.New("oauth client not configured")
	errOrganizationOnly   = fmt.Errorf("%w: statistics are only available for organization accounts", social.ErrInvalidRequest)
)

type Config struct {
	HTTP    *httpx.Client
	OAuth   *oauth.Flow
	BaseURL string
	// Version is the LinkedIn-Version header, YYYYMM.
	Version string
	// Upload tunes video uploads. SegmentSize defaults to 4 MiB and must
	// match the part size LinkedIn returns.
	Upload upload.Config
	Media  media.Source
	Now    func() time.Time
}

type Adapter struct {
	http      *httpx.Client
	oauth     *oauth.Flow
	baseURL   string
	version   string
	uploadCfg upload.Config
	media     media.Source
	videos    *videoSessions
	now       func() time.Time
}

var _ social.Adapter = (*Adapter)(nil)

func New(cfg Config) *Adapter {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.Version == "" {
		cfg.Version = DefaultVersion
	}
	if cfg.Upload.Platform == "" {
		cfg.Upload.Platform = string(social.LinkedIn)
	}
	if cfg.Upload.SegmentSize <= 0 {
		cfg.Upload.SegmentSize = DefaultPartSize
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	return &Adapter{
		http:      cfg.HTTP,
		oauth:     cfg.OAuth,
		baseURL:   strings.TrimRight(cfg.BaseURL, "/"),
		version:   cfg.Version,
		uploadCfg: cfg.Upload,
		media:     cfg.Media,
		videos:    newVideoSessions(cfg.Upload.Checkpoints, cfg.Upload.CheckpointTTL),
		now:       cfg.Now,
	}
}

func (a *Adapter) Platform() social.Platform {
	return social.LinkedIn
}

func (a *Adapter) wrap(kind error, op string, err error) error {
	return social.Wrap(kind, social.LinkedIn, op, err)
}

// do sends a request to the REST API with the version headers.
func (a *Adapter) do(ctx context.Context, cred social.Credential, r httpx.Request) (*httpx.Response, error) {
	if !strings.HasPrefix(r.URL, "http") {
		r.URL = a.baseURL + r.URL
	}
	if r.Header == nil {
		r.Header = http.Header{}
	}
	r.Header.Set("LinkedIn-Version", a.version)
	r.Header.Set("X-Restli-Protocol-Version", "2.0.0")
	r.Token = cred.AccessToken
	return a.http.Do(ctx, r)
}

func (a *Adapter) call(ctx context.Context, cred social.Credential, r httpx.Request, out any) error {
	resp, err := a.do(ctx, cred, r)
	if err != nil {
		return err
	}
	return resp.Decode(out)
}

// escape encodes a URN for use in a path or Rest.li query value.
func escape(urn string) string {
	return url.QueryEscape(urn)
}

// authorURN normalizes a credential's account into a URN. Bare ids are
// taken to be members.
func authorURN(cred social.Credential) string {
	if strings.HasPrefix(cred.AccountID, "urn:li:") {
		return cred.AccountID
	}
	return personPrefix + cred.AccountID
}

func organizationURN(cred social.Credential) (string, error) {
	if !strings.HasPrefix(cred.AccountID, organizationPrefix) {
		return "", errOrganizationOnly
	}
	return cred.AccountID, nil
}

func (a *Adapter) AuthorizationURL(ctx context.Context) (string, error) {
	if a.oauth == nil {
		return "", a.wrap(social.ErrAuthentication, "authorization url", errOAuthNotConfigured)
	}
	u, err := a.oauth.AuthorizationURL(ctx)
	return u, a.wrap(social.ErrAuthentication, "authorization url", err)
}

// ExchangeCode completes sign-in and sets AccountID to the member URN.
func (a *Adapter) ExchangeCode(ctx context.Context, state, code string) (*social.Credential, error) {
	const op = "exchange code"
	if a.oauth == nil {
		return nil, a.wrap(social.ErrAuthentication, op, errOAuthNotConfigured)
	}

	tok, err := a.oauth.Exchange(ctx, state, code)
	if err != nil {
		return nil, a.wrap(social.ErrAuthentication, op, err)
	}
	cred := oauth.ToCredential(social.LinkedIn, tok, social.Credential{})

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
	return oauth.ToCredential(social.LinkedIn, tok, cred), nil
}

// ValidateCredential reads the OpenID userinfo of the token's member.
func (a *Adapter) ValidateCredential(ctx context.Context, cred social.Credential) (*social.AccountInfo, error) {
	const op = "validate credential"
	if err := social.RequireToken(cred); err != nil {
		return nil, a.wrap(social.ErrAuthentication, op, err)
	}

	var info struct {
		Sub   string `json:"sub"`
		Name  string `json:"name"`
		Email string `json:"email"`
	}
	err := a.call(ctx, cred, httpx.Request{Op: "userinfo", Method: http.MethodGet, URL: "/v2/userinfo"}, &info)
	if err != nil {
		return nil, a.wrap(social.ErrAuthentication, op, err)
	}
	if info.Sub == "" {
		return nil, a.wrap(social.ErrAuthentication, op, errors.New("userinfo returned no subject"))
	}
	return &social.AccountInfo{
		Platform: social.LinkedIn,
		ID:       personPrefix + info.Sub,
		Name:     info.Name,
		Username: info.Email,
	}, nil
}
