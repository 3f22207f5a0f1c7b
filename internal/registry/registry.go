// Package registry builds the platform adapters from configuration and
// selects one by platform.
package registry

import (
	"fmt"
	"log/slog"
	"net/http"

	"github.com/abdulachik/socialgate/internal/adapters/facebook"
	"github.com/abdulachik/socialgate/internal/adapters/graph"
	"github.com/abdulachik/socialgate/internal/adapters/instagram"
	"github.com/abdulachik/socialgate/internal/adapters/linkedin"
	"github.com/abdulachik/socialgate/internal/adapters/twitter"
	"github.com/abdulachik/socialgate/internal/adapters/youtube"
	"github.com/abdulachik/socialgate/internal/config"
	"github.com/abdulachik/socialgate/internal/httpx"
	"github.com/abdulachik/socialgate/internal/media"
	"github.com/abdulachik/socialgate/internal/oauth"
	"github.com/abdulachik/socialgate/internal/social"
	"github.com/abdulachik/socialgate/internal/store"
	"github.com/abdulachik/socialgate/internal/upload"

	"golang.org/x/oauth2"
)

// Recorder receives request and upload observations.
type Recorder interface {
	httpx.Recorder
	upload.Recorder
}

// Options holds the shared dependencies every adapter is built from.
type Options struct {
	Config *config.Config
	// Store keeps OAuth state and upload checkpoints.
	Store    store.Store
	Media    media.Source
	Recorder Recorder
	// HTTPClient overrides the per-platform clients, for tests.
	HTTPClient *http.Client
}

// Registry holds one adapter per platform.
type Registry struct {
	cfg *config.Config

	facebook  *facebook.Adapter
	instagram *instagram.Adapter
	twitter   *twitter.Adapter
	linkedin  *linkedin.Adapter
	youtube   *youtube.Adapter
}

// New builds all five adapters.
func New(opts Options) *Registry {
	cfg := opts.Config
	uploadCfg := upload.Config{
		PollTimeout:   cfg.UploadPollTimeout,
		BackoffFactor: cfg.UploadBackoffFactor,
		MaxDelay:      cfg.UploadMaxPollDelay,
		Checkpoints:   opts.Store,
		CheckpointTTL: cfg.UploadCheckpointTTL,
		Recorder:      opts.Recorder,
	}

	client := func(p social.Platform) *httpx.Client {
		return httpx.New(httpx.Config{
			Platform:   string(p),
			Timeout:    cfg.HTTPTimeout,
			RateLimit:  cfg.Platform(p).RateLimit,
			HTTPClient: opts.HTTPClient,
			Recorder:   opts.Recorder,
		})
	}

	fbHTTP := client(social.Facebook)
	igHTTP := client(social.Instagram)
	twHTTP := client(social.Twitter)
	liHTTP := client(social.LinkedIn)
	ytHTTP := client(social.YouTube)

	fb := cfg.Platform(social.Facebook)
	ig := cfg.Platform(social.Instagram)

	r := &Registry{cfg: cfg}
	r.facebook = facebook.New(facebook.Config{
		Graph:     graph.NewClient(fbHTTP, "", cfg.GraphAPIVersion).WithAppSecret(fb.ClientSecret),
		OAuth:     flow(opts, social.Facebook, fbHTTP, oauthClient{Scopes: facebook.Scopes, Endpoint: facebook.Endpoint}),
		AppID:     fb.ClientID,
		AppSecret: fb.ClientSecret,
		Media:     opts.Media,
	})
	r.instagram = instagram.New(instagram.Config{
		Graph:     graph.NewClient(igHTTP, "", cfg.GraphAPIVersion).WithAppSecret(ig.ClientSecret),
		OAuth:     flow(opts, social.Instagram, igHTTP, oauthClient{Scopes: instagram.Scopes, Endpoint: instagram.Endpoint}),
		AppID:     ig.ClientID,
		AppSecret: ig.ClientSecret,
		Poller: upload.Poller{
			Timeout:       cfg.UploadPollTimeout,
			BackoffFactor: cfg.UploadBackoffFactor,
			MaxDelay:      cfg.UploadMaxPollDelay,
			Recorder:      opts.Recorder,
		},
	})
	r.twitter = twitter.New(twitter.Config{
		HTTP:           twHTTP,
		OAuth:          flow(opts, social.Twitter, twHTTP, oauthClient{Scopes: twitter.Scopes, Endpoint: twitter.Endpoint, PKCE: true}),
		ConsumerKey:    cfg.TwitterConsumerKey,
		ConsumerSecret: cfg.TwitterConsumerSecret,
		Upload:         uploadCfg,
		Media:          opts.Media,
	})
	r.linkedin = linkedin.New(linkedin.Config{
		HTTP:    liHTTP,
		OAuth:   flow(opts, social.LinkedIn, liHTTP, oauthClient{Scopes: linkedin.Scopes, Endpoint: linkedin.Endpoint}),
		Version: cfg.LinkedInVersion,
		Upload:  uploadCfg,
		Media:   opts.Media,
	})
	r.youtube = youtube.New(youtube.Config{
		HTTP:   ytHTTP,
		OAuth:  flow(opts, social.YouTube, ytHTTP, oauthClient{Scopes: youtube.Scopes, Endpoint: youtube.Endpoint, AuthParams: youtube.AuthParams}),
		Upload: uploadCfg,
		Media:  opts.Media,
	})
	return r
}

type oauthClient struct {
	Scopes     []string
	Endpoint   oauth2.Endpoint
	PKCE       bool
	AuthParams map[string]string
}

// flow returns nil when the platform has no OAuth client configured.
func flow(opts Options, p social.Platform, c *httpx.Client, oc oauthClient) *oauth.Flow {
	settings := opts.Config.Platform(p)
	if settings.ClientID == "" {
		return nil
	}
	slog.Debug("configuring oauth", "platform", p, "pkce", oc.PKCE)
	return oauth.NewFlow(oauth.Config{
		Platform:     p,
		ClientID:     settings.ClientID,
		ClientSecret: settings.ClientSecret,
		RedirectURL:  settings.RedirectURL,
		Scopes:       oc.Scopes,
		Endpoint:     oc.Endpoint,
		PKCE:         oc.PKCE,
		AuthParams:   oc.AuthParams,
		Store:        opts.Store,
		StateTTL:     opts.Config.StateTTL,
		HTTPClient:   c.HTTPClient(),
	})
}

func unknown(p social.Platform) error {
	return fmt.Errorf("%w: unknown platform %q", social.ErrInvalidRequest, p)
}

// Adapter returns the full adapter for p.
func (r *Registry) Adapter(p social.Platform) (social.Adapter, error) {
	switch p {
	case social.Facebook:
		return r.facebook, nil
	case social.Instagram:
		return r.instagram, nil
	case social.Twitter:
		return r.twitter, nil
	case social.LinkedIn:
		return r.linkedin, nil
	case social.YouTube:
		return r.youtube, nil
	}
	return nil, unknown(p)
}

func (r *Registry) Publisher(p social.Platform) (social.Publisher, error) {
	return r.Adapter(p)
}

func (r *Registry) Metrics(p social.Platform) (social.MetricsProvider, error) {
	return r.Adapter(p)
}

func (r *Registry) Messenger(p social.Platform) (social.Messenger, error) {
	return r.Adapter(p)
}

func (r *Registry) Comments(p social.Platform) (social.CommentManager, error) {
	return r.Adapter(p)
}

// Authenticator returns p's auth flow, failing when its OAuth client is
// not configured.
func (r *Registry) Authenticator(p social.Platform) (social.Authenticator, error) {
	a, err := r.Adapter(p)
	if err != nil {
		return nil, err
	}
	if err := r.cfg.ValidateForAuth(p); err != nil {
		return nil, err
	}
	return a, nil
}

// Uploader returns the standalone media uploader for platforms that have
// one.
func (r *Registry) Uploader(p social.Platform) (social.MediaUploader, error) {
	switch p {
	case social.Twitter:
		return r.twitter, nil
	case social.LinkedIn:
		return r.linkedin, nil
	case social.YouTube:
		return r.youtube, nil
	case social.Facebook, social.Instagram:
		return nil, social.Unsupported(social.ErrPublishing, p, "upload media")
	}
	return nil, unknown(p)
}

// Credential returns the configured credential for p.
func (r *Registry) Credential(p social.Platform) (social.Credential, error) {
	if _, err := r.Adapter(p); err != nil {
		return social.Credential{}, err
	}
	if err := r.cfg.ValidateForPlatform(p); err != nil {
		return social.Credential{}, err
	}
	return r.cfg.Platform(p).Credential(p), nil
}

// Configured returns the platforms that have an access token set.
func (r *Registry) Configured() []social.Platform {
	var out []social.Platform
	for _, p := range social.Platforms() {
		if r.cfg.Platform(p).AccessToken != "" {
			out = append(out, p)
		}
	}
	return out
}
