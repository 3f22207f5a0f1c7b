// Package oauth runs the OAuth 2.0 authorization-code flow with PKCE. The
// state value and code verifier live in a store entry with an explicit TTL.
package oauth

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/oauth2"

	"github.com/abdulachik/socialgate/internal/social"
	"github.com/abdulachik/socialgate/internal/store"
)

// DefaultStateTTL bounds how long a user has to complete authorization.
const DefaultStateTTL = 10 * time.Minute

// ErrUnknownState is returned when the state is missing, expired or was
// already used.
var ErrUnknownState = errors.New("unknown or expired oauth state")

// Config describes one platform's OAuth client.
type Config struct {
	Platform     social.Platform
	ClientID     string
	ClientSecret string
	RedirectURL  string
	Scopes       []string
	Endpoint     oauth2.Endpoint
	PKCE         bool
	// AuthParams are extra query parameters on the authorization URL.
	AuthParams map[string]string

	Store      store.Store
	StateTTL   time.Duration
	HTTPClient *http.Client
}

// Flow runs authorization for one platform.
type Flow struct {
	platform   social.Platform
	oauth      *oauth2.Config
	pkce       bool
	authParams map[string]string
	store      store.Store
	ttl        time.Duration
	httpClient *http.Client
}

type pendingAuth struct {
	Verifier  string    `json:"verifier,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// NewFlow creates a Flow.
func NewFlow(cfg Config) *Flow {
	ttl := cfg.StateTTL
	if ttl <= 0 {
		ttl = DefaultStateTTL
	}
	return &Flow{
		platform: cfg.Platform,
		oauth: &oauth2.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			RedirectURL:  cfg.RedirectURL,
			Scopes:       cfg.Scopes,
			Endpoint:     cfg.Endpoint,
		},
		pkce:       cfg.PKCE,
		authParams: cfg.AuthParams,
		store:      cfg.Store,
		ttl:        ttl,
		httpClient: cfg.HTTPClient,
	}
}

func stateKey(p social.Platform, state string) string {
	return "oauth:" + string(p) + ":" + state
}

// AuthorizationURL creates a fresh state and returns the URL the user
// should visit.
func (f *Flow) AuthorizationURL(ctx context.Context) (string, error) {
	if f.store == nil {
		return "", fmt.Errorf("oauth state store not configured")
	}

	state := uuid.New().String()
	pending := pendingAuth{CreatedAt: time.Now().UTC()}

	var opts []oauth2.AuthCodeOption
	for k, v := range f.authParams {
		opts = append(opts, oauth2.SetAuthURLParam(k, v))
	}
	if f.pkce {
		pending.Verifier = oauth2.GenerateVerifier()
		opts = append(opts, oauth2.S256ChallengeOption(pending.Verifier))
	}

	data, err := json.Marshal(pending)
	if err != nil {
		return "", fmt.Errorf("encode oauth state: %w", err)
	}
	if err := f.store.Put(ctx, stateKey(f.platform, state), data, f.ttl); err != nil {
		return "", fmt.Errorf("save oauth state: %w", err)
	}

	slog.Debug("oauth state created", "platform", f.platform, "ttl", f.ttl)
	return f.oauth.AuthCodeURL(state, opts...), nil
}

// Exchange consumes state and trades code for a token.
func (f *Flow) Exchange(ctx context.Context, state, code string) (*oauth2.Token, error) {
	if f.store == nil {
		return nil, fmt.Errorf("oauth state store not configured")
	}
	if state == "" || code == "" {
		return nil, fmt.Errorf("%w: state and code are required", social.ErrInvalidRequest)
	}

	data, err := f.store.Take(ctx, stateKey(f.platform, state))
	if errors.Is(err, store.ErrNotFound) {
		return nil, ErrUnknownState
	}
	if err != nil {
		return nil, fmt.Errorf("load oauth state: %w", err)
	}

	var pending pendingAuth
	if err := json.Unmarshal(data, &pending); err != nil {
		return nil, fmt.Errorf("decode oauth state: %w", err)
	}

	var opts []oauth2.AuthCodeOption
	if pending.Verifier != "" {
		opts = append(opts, oauth2.VerifierOption(pending.Verifier))
	}

	tok, err := f.oauth.Exchange(f.context(ctx), code, opts...)
	if err != nil {
		return nil, fmt.Errorf("exchange code: %w", err)
	}

	slog.Debug("oauth state consumed", "platform", f.platform)
	return tok, nil
}

// Refresh obtains a new access token from a refresh token.
func (f *Flow) Refresh(ctx context.Context, refreshToken string) (*oauth2.Token, error) {
	if refreshToken == "" {
		return nil, fmt.Errorf("%w: refresh token is required", social.ErrInvalidRequest)
	}
	src := f.oauth.TokenSource(f.context(ctx), &oauth2.Token{RefreshToken: refreshToken})
	tok, err := src.Token()
	if err != nil {
		return nil, fmt.Errorf("refresh token: %w", err)
	}
	return tok, nil
}

func (f *Flow) context(ctx context.Context) context.Context {
	if f.httpClient == nil {
		return ctx
	}
	return context.WithValue(ctx, oauth2.HTTPClient, f.httpClient)
}

// ToCredential converts a token into a Credential. Refresh tokens that the
// provider does not rotate are carried over from previous.
func ToCredential(p social.Platform, tok *oauth2.Token, previous social.Credential) *social.Credential {
	cred := previous
	cred.Platform = p
	cred.AccessToken = tok.AccessToken
	cred.ExpiresAt = tok.Expiry
	if tok.RefreshToken != "" {
		cred.RefreshToken = tok.RefreshToken
	}
	if scope, ok := tok.Extra("scope").(string); ok && scope != "" {
		cred.Scopes = splitScopes(scope)
	}
	return &cred
}

func splitScopes(s string) []string {
	return strings.FieldsFunc(s, func(r rune) bool { return r == ' ' || r == ',' })
}
