// Package graph holds the Graph API plumbing shared by the Facebook and
// Instagram adapters.
package graph

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/abdulachik/socialgate/internal/httpx"
	"github.com/abdulachik/socialgate/internal/social"
)

const (
	DefaultBaseURL = "https://graph.facebook.com"
	DefaultVersion = "v19.0"

	timeLayout = "2006-01-02T15:04:05-0700"
)

// Client issues versioned Graph API calls.
type Client struct {
	http      *httpx.Client
	baseURL   string
	version   string
	appSecret string
}

// NewClient creates a Client. Empty baseURL and version use the defaults.
func NewClient(http *httpx.Client, baseURL, version string) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	if version == "" {
		version = DefaultVersion
	}
	return &Client{
		http:    http,
		baseURL: strings.TrimRight(baseURL, "/"),
		version: version,
	}
}

// WithAppSecret makes c sign every token bearing call with an
// appsecret_proof, as required by apps with "Require App Secret" enabled.
func (c *Client) WithAppSecret(secret string) *Client {
	c.appSecret = secret
	return c
}

// AppSecretProof is the hex HMAC-SHA256 of token keyed by the app secret.
func AppSecretProof(secret, token string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(token))
	return hex.EncodeToString(mac.Sum(nil))
}

// query copies q and adds the appsecret_proof for token when one applies.
func (c *Client) query(token string, q url.Values) url.Values {
	if c.appSecret == "" || token == "" {
		return q
	}
	out := make(url.Values, len(q)+1)
	for k, v := range q {
		out[k] = v
	}
	out.Set("appsecret_proof", AppSecretProof(c.appSecret, token))
	return out
}

// URL returns the absolute versioned URL for path.
func (c *Client) URL(path string) string {
	return c.baseURL + "/" + c.version + "/" + strings.TrimPrefix(path, "/")
}

func (c *Client) Get(ctx context.Context, op, token, path string, q url.Values, out any) error {
	return c.http.JSON(ctx, httpx.Request{
		Op:    op,
		URL:   c.URL(path),
		Query: c.query(token, q),
		Token: token,
	}, out)
}

func (c *Client) Post(ctx context.Context, op, token, path string, form url.Values, out any) error {
	if form == nil {
		form = url.Values{}
	}
	return c.http.JSON(ctx, httpx.Request{
		Op:     op,
		Method: http.MethodPost,
		URL:    c.URL(path),
		Query:  c.query(token, nil),
		Form:   form,
		Token:  token,
	}, out)
}

func (c *Client) PostJSON(ctx context.Context, op, token, path string, body, out any) error {
	return c.http.JSON(ctx, httpx.Request{
		Op:     op,
		Method: http.MethodPost,
		URL:    c.URL(path),
		Query:  c.query(token, nil),
		JSON:   body,
		Token:  token,
	}, out)
}

// PostFile uploads a file with multipart/form-data.
func (c *Client) PostFile(ctx context.Context, op, token, path string, fields map[string]string, file *httpx.FilePart, out any) error {
	body, contentType, err := httpx.Multipart(fields, file)
	if err != nil {
		return err
	}
	return c.http.JSON(ctx, httpx.Request{
		Op:          op,
		Method:      http.MethodPost,
		URL:         c.URL(path),
		Query:       c.query(token, nil),
		Body:        body,
		ContentType: contentType,
		Token:       token,
	}, out)
}

// PostSuccess posts form and requires {"success": true}.
func (c *Client) PostSuccess(ctx context.Context, op, token, path string, form url.Values) error {
	var res Success
	if err := c.Post(ctx, op, token, path, form, &res); err != nil {
		return err
	}
	return res.Check()
}

// Delete issues a DELETE and requires {"success": true}.
func (c *Client) Delete(ctx context.Context, op, token, path string) error {
	var res Success
	err := c.http.JSON(ctx, httpx.Request{
		Op:     op,
		Method: http.MethodDelete,
		URL:    c.URL(path),
		Query:  c.query(token, nil),
		Token:  token,
	}, &res)
	if err != nil {
		return err
	}
	return res.Check()
}

// Success is the body of Graph mutations that return no object.
type Success struct {
	Success bool `json:"success"`
}

func (s Success) Check() error {
	if !s.Success {
		return fmt.Errorf("graph api reported failure")
	}
	return nil
}

// ID is the body of Graph create calls.
type ID struct {
	ID     string `json:"id"`
	PostID string `json:"post_id"`
}

// Paging is Graph's cursor block.
type Paging struct {
	Cursors struct {
		Before string `json:"before"`
		After  string `json:"after"`
	} `json:"cursors"`
	Next string `json:"next"`
}

// NextCursor returns the after cursor, or "" on the last page.
func (p Paging) NextCursor() string {
	if p.Next == "" {
		return ""
	}
	return p.Cursors.After
}

// PageQuery adds limit and after parameters to q.
func PageQuery(q url.Values, opts social.PageOptions, def int) url.Values {
	if q == nil {
		q = url.Values{}
	}
	q.Set("limit", fmt.Sprint(opts.LimitOr(def)))
	if opts.Cursor != "" {
		q.Set("after", opts.Cursor)
	}
	return q
}

// ParseTime parses Graph timestamps. Unparseable input yields zero time.
func ParseTime(s string) time.Time {
	if s == "" {
		return time.Time{}
	}
	if t, err := time.Parse(timeLayout, s); err == nil {
		return t.UTC()
	}
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t.UTC()
	}
	return time.Time{}
}

// TokenResponse is returned by the access_token endpoint.
type TokenResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
	ExpiresIn   int64  `json:"expires_in"`
}

// ExchangeToken trades a token for a long-lived one.
func (c *Client) ExchangeToken(ctx context.Context, appID, appSecret, token string) (*TokenResponse, error) {
	var res TokenResponse
	err := c.Get(ctx, "exchange_token", "", "oauth/access_token", url.Values{
		"grant_type":        {"fb_exchange_token"},
		"client_id":         {appID},
		"client_secret":     {appSecret},
		"fb_exchange_token": {token},
	}, &res)
	if err != nil {
		return nil, err
	}
	if res.AccessToken == "" {
		return nil, fmt.Errorf("token exchange returned no access token")
	}
	return &res, nil
}
