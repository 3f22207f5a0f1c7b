// Package instagram implements social.Adapter for Instagram professional
// accounts on the Graph API.
package instagram

import (
	"context"
	"errors"
	"net/url"
	"time"

	"golang.org/x/oauth2/endpoints"

	"github.com/abdulachik/socialgate/internal/adapters/graph"
	"github.com/abdulachik/socialgate/internal/oauth"
	"github.com/abdulachik/socialgate/internal/social"
	"github.com/abdulachik/socialgate/internal/upload"
)

// Endpoint is Facebook Login, which issues tokens for linked Instagram
// professional accounts.
var Endpoint = endpoints.Facebook

var Scopes = []string{
	"instagram_basic",
	"instagram_content_publish",
	"instagram_manage_comments",
	"instagram_manage_insights",
	"instagram_manage_messages",
	"pages_show_list",
	"pages_read_engagement",
}

var errOAuthNotConfigured = errors.New("oauth client not configured")

type Config struct {
	Graph     *graph.Client
	OAuth     *oauth.Flow
	AppID     string
	AppSecret string
	// Poller waits for media containers to finish processing.
	Poller upload.Poller
	Now    func() time.Time
}

// Adapter publishes through media containers. The credential's AccountID
// is the Instagram user id.
type Adapter struct {
	graph     *graph.Client
	messenger *graph.Messenger
	oauth     *oauth.Flow
	appID     string
	appSecret string
	poller    upload.Poller
	now       func() time.Time
}

var _ social.Adapter = (*Adapter)(nil)

func New(cfg Config) *Adapter {
	now := cfg.Now
	if now == nil {
		now = time.Now
	}
	poller := cfg.Poller
	if poller.Platform == "" {
		poller.Platform = string(social.Instagram)
	}
	return &Adapter{
		graph:     cfg.Graph,
		messenger: graph.NewMessenger(cfg.Graph, social.Instagram, "instagram"),
		oauth:     cfg.OAuth,
		appID:     cfg.AppID,
		appSecret: cfg.AppSecret,
		poller:    poller,
		now:       now,
	}
}

func (a *Adapter) Platform() social.Platform {
	return social.Instagram
}

func (a *Adapter) wrap(kind error, op string, err error) error {
	return social.Wrap(kind, social.Instagram, op, err)
}

func (a *Adapter) AuthorizationURL(ctx context.Context) (string, error) {
	if a.oauth == nil {
		return "", a.wrap(social.ErrAuthentication, "authorization url", errOAuthNotConfigured)
	}
	u, err := a.oauth.AuthorizationURL(ctx)
	return u, a.wrap(social.ErrAuthentication, "authorization url", err)
}

// ExchangeCode completes Facebook Login and resolves the Instagram
// account linked to the user's first page.
func (a *Adapter) ExchangeCode(ctx context.Context, state, code string) (*social.Credential, error) {
	const op = "exchange code"
	if a.oauth == nil {
		return nil, a.wrap(social.ErrAuthentication, op, errOAuthNotConfigured)
	}

	tok, err := a.oauth.Exchange(ctx, state, code)
	if err != nil {
		return nil, a.wrap(social.ErrAuthentication, op, err)
	}
	cred := oauth.ToCredential(social.Instagram, tok, social.Credential{})
	if a.appID != "" {
		if cred, err = a.RefreshCredential(ctx, *cred); err != nil {
			return nil, err
		}
	}

	var pages struct {
		Data []struct {
			ID                       string `json:"id"`
			InstagramBusinessAccount struct {
				ID string `json:"id"`
			} `json:"instagram_business_account"`
		} `json:"data"`
	}
	err = a.graph.Get(ctx, "list_accounts", cred.AccessToken, "me/accounts",
		url.Values{"fields": {"id,instagram_business_account"}}, &pages)
	if err != nil {
		return nil, a.wrap(social.ErrAuthentication, op, err)
	}
	for _, p := range pages.Data {
		if p.InstagramBusinessAccount.ID != "" {
			cred.AccountID = p.InstagramBusinessAccount.ID
			break
		}
	}
	if cred.AccountID == "" {
		return nil, a.wrap(social.ErrAuthentication, op, errors.New("no instagram professional account linked to any page"))
	}
	return cred, nil
}

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
	out.Platform = social.Instagram
	out.AccessToken = res.AccessToken
	out.ExpiresAt = time.Time{}
	if res.ExpiresIn > 0 {
		out.ExpiresAt = a.now().Add(time.Duration(res.ExpiresIn) * time.Second)
	}
	return &out, nil
}

func (a *Adapter) ValidateCredential(ctx context.Context, cred social.Credential) (*social.AccountInfo, error) {
	const op = "validate credential"
	if err := social.RequireAccount(cred); err != nil {
		return nil, a.wrap(social.ErrAuthentication, op, err)
	}

	var acct struct {
		ID       string `json:"id"`
		Username string `json:"username"`
		Name     string `json:"name"`
	}
	err := a.graph.Get(ctx, "validate_credential", cred.AccessToken, cred.AccountID,
		url.Values{"fields": {"id,username,name"}}, &acct)
	if err != nil {
		return nil, a.wrap(social.ErrAuthentication, op, err)
	}
	return &social.AccountInfo{Platform: social.Instagram, ID: acct.ID, Name: acct.Name, Username: acct.Username}, nil
}
