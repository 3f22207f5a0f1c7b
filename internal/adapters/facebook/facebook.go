// Package facebook implements social.Adapter for Facebook Pages on the
// Graph API.
package facebook

import (
	"context"
	"errors"
	"net/url"
	"time"

	"golang.org/x/oauth2/endpoints"

	"github.com/abdulachik/socialgate/internal/adapters/graph"
	"github.com/abdulachik/socialgate/internal/media"
	"github.com/abdulachik/socialgate/internal/oauth"
	"github.com/abdulachik/socialgate/internal/social"
)

// Endpoint is the Facebook Login OAuth endpoint.
var Endpoint = endpoints.Facebook

// Scopes are the permissions needed by every operation of the adapter.
var Scopes = []string{
	"pages_show_list",
	"pages_read_engagement",
	"pages_read_user_content",
	"pages_manage_posts",
	"pages_manage_engagement",
	"pages_messaging",
	"read_insights",
}

var errOAuthNotConfigured = errors.New("oauth client not configured")

// Config configures the adapter.
type Config struct {
	Graph     *graph.Client
	OAuth     *oauth.Flow
	AppID     string
	AppSecret string
	// Media opens attachments that are not http(s) URLs so they can be
	// uploaded as files.
	Media media.Source
	Now   func() time.Time
}

// Adapter talks to one Graph API version on behalf of Facebook Pages. The
// credential's AccountID is the page id and its token a page access token.
type Adapter struct {
	graph     *graph.Client
	messenger *graph.Messenger
	oauth     *oauth.Flow
	appID     string
	appSecret string
	media     media.Source
	now       func() time.Time
}

var _ social.Adapter = (*Adapter)(nil)

// New creates a new Facebook adapter.
func New(cfg Config) *Adapter {
	now := cfg.Now
	if now == nil {
		now = time.Now
	}
	return &Adapter{
		graph:     cfg.Graph,
		messenger: graph.NewMessenger(cfg.Graph, social.Facebook, ""),
		oauth:     cfg.OAuth,
		appID:     cfg.AppID,
		appSecret: cfg.AppSecret,
		media:     cfg.Media,
		now:       now,
	}
}

func (a *Adapter) Platform() social.Platform {
	return social.Facebook
}

func (a *Adapter) wrap(kind error, op string, err error) error {
	return social.Wrap(kind, social.Facebook, op, err)
}

func (a *Adapter) AuthorizationURL(ctx context.Context) (string, error) {
	if a.oauth == nil {
		return "", a.wrap(social.ErrAuthentication, "authorization url", errOAuthNotConfigured)
	}
	u, err := a.oauth.AuthorizationURL(ctx)
	return u, a.wrap(social.ErrAuthentication, "authorization url", err)
}

// ExchangeCode completes the login and upgrades the user token to a
// long-lived one.
func (a *Adapter) ExchangeCode(ctx context.Context, state, code string) (*social.Credential, error) {
	const op = "exchange code"
	if a.oauth == nil {
		return nil, a.wrap(social.ErrAuthentication, op, errOAuthNotConfigured)
	}

	tok, err := a.oauth.Exchange(ctx, state, code)
	if err != nil {
		return nil, a.wrap(social.ErrAuthentication, op, err)
	}

	cred := oauth.ToCredential(social.Facebook, tok, social.Credential{})
	if a.appID != "" {
		if long, err := a.RefreshCredential(ctx, *cred); err == nil {
			cred = long
		} else {
			return nil, err
		}
	}

	info, err := a.ValidateCredential(ctx, *cred)
	if err != nil {
		return nil, err
	}
	cred.AccountID = info.ID
	return cred, nil
}

// RefreshCredential exchanges the current token for a long-lived one;
// Facebook issues no refresh tokens.
func (a *Adapter) RefreshCredential(ctx context.Context, cred social.Credential) (*social.Credential, error) {
	const op = "refresh credential"
	if err := social.RequireToken(cred); err != nil {
		return nil, a.wrap(social.ErrAuthentication, op, err)
	}

	res, err := a.graph.ExchangeToken(ctx, a.appID, a.appSecret, cred.AccessToken)
	if err != nil {
		return nil, a.wrap(social.ErrAuthentication, op, err)
	}

	out := cred
	out.Platform = social.Facebook
	out.AccessToken = res.AccessToken
	out.ExpiresAt = time.Time{}
	if res.ExpiresIn > 0 {
		out.ExpiresAt = a.now().Add(time.Duration(res.ExpiresIn) * time.Second)
	}
	return &out, nil
}

func (a *Adapter) ValidateCredential(ctx context.Context, cred social.Credential) (*social.AccountInfo, error) {
	const op = "validate credential"
	if err := social.RequireToken(cred); err != nil {
		return nil, a.wrap(social.ErrAuthentication, op, err)
	}

	var me struct {
		ID   string `json:"id"`
		Name string `json:"name"`
	}
	if err := a.graph.Get(ctx, "validate_credential", cred.AccessToken, "me", url.Values{"fields": {"id,name"}}, &me); err != nil {
		return nil, a.wrap(social.ErrAuthentication, op, err)
	}
	return &social.AccountInfo{Platform: social.Facebook, ID: me.ID, Name: me.Name}, nil
}
