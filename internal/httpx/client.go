// Package httpx is the shared HTTP transport used by every platform adapter.
package httpx

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/time/rate"
)

const maxResponseBody = 16 << 20

// Recorder receives one observation per completed request.
type Recorder interface {
	ObserveRequest(platform, operation string, status int, d time.Duration)
}

// Config configures a Client.
type Config struct {
	Platform   string
	Timeout    time.Duration
	RateLimit  int // requests per minute, 0 = unlimited
	HTTPClient *http.Client
	Recorder   Recorder
}

// Client issues authenticated requests against one platform's APIs.
type Client struct {
	platform string
	http     *http.Client
	limiter  *rate.Limiter
	recorder Recorder
}

// New creates a new Client.
func New(cfg Config) *Client {
	httpClient := cfg.HTTPClient
	if httpClient == nil {
		timeout := cfg.Timeout
		if timeout == 0 {
			timeout = 30 * time.Second
		}
		httpClient = &http.Client{Timeout: timeout}
	}

	var limiter *rate.Limiter
	if cfg.RateLimit > 0 {
		burst := cfg.RateLimit / 10
		if burst < 1 {
			burst = 1
		}
		limiter = rate.NewLimiter(rate.Limit(float64(cfg.RateLimit)/60.0), burst)
	}

	return &Client{
		platform: cfg.Platform,
		http:     httpClient,
		limiter:  limiter,
		recorder: cfg.Recorder,
	}
}

// HTTPClient returns the underlying client, for libraries that need one.
func (c *Client) HTTPClient() *http.Client {
	return c.http
}

// Request describes one API call. Exactly one of JSON, Form or Body is used.
type Request struct {
	Op       string
	Method   string
	URL      string
	Query    url.Values
	RawQuery string
	Header   http.Header

	// Token is sent as a bearer token unless Client is set.
	Token string
	// Client sends this request in place of the shared client. Used with
	// transports that authorize requests themselves.
	Client *http.Client

	JSON        any
	Form        url.Values
	Body        io.Reader
	ContentType string

	// Accept lists non-2xx statuses that should not be treated as errors.
	Accept []int
}

// Response is a fully read API response.
type Response struct {
	StatusCode int
	Header     http.Header
	Body       []byte
}

// Decode unmarshals the response body into out.
func (r *Response) Decode(out any) error {
	if out == nil || len(bytes.TrimSpace(r.Body)) == 0 {
		return nil
	}
	if err := json.Unmarshal(r.Body, out); err != nil {
		return fmt.Errorf("parse response: %w", err)
	}
	return nil
}

// Do sends the request and returns the response. Non-accepted statuses are
// returned as *APIError.
func (c *Client) Do(ctx context.Context, r Request) (*Response, error) {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, fmt.Errorf("rate limit wait: %w", err)
		}
	}

	body, contentType, err := r.body()
	if err != nil {
		return nil, err
	}

	method := r.Method
	if method == "" {
		method = http.MethodGet
	}

	req, err := http.NewRequestWithContext(ctx, method, r.fullURL(), body)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	for k, vs := range r.Header {
		for _, v := range vs {
			req.Header.Add(k, v)
		}
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	if req.Header.Get("Accept") == "" {
		req.Header.Set("Accept", "application/json")
	}

	hc := c.http
	if r.Client != nil {
		hc = r.Client
	} else if r.Token != "" {
		req.Header.Set("Authorization", "Bearer "+r.Token)
	}

	start := time.Now()
	resp, err := hc.Do(req)
	if err != nil {
		c.observe(r.Op, 0, time.Since(start))
		return nil, fmt.Errorf("send request: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBody))
	elapsed := time.Since(start)
	c.observe(r.Op, resp.StatusCode, elapsed)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	slog.Debug("api request",
		"platform", c.platform,
		"op", r.Op,
		"method", method,
		"path", req.URL.Path,
		"status", resp.StatusCode,
		"duration", elapsed,
	)

	if !r.accepts(resp.StatusCode) {
		return nil, newAPIError(resp.StatusCode, respBody)
	}

	return &Response{
		StatusCode: resp.StatusCode,
		Header:     resp.Header,
		Body:       respBody,
	}, nil
}

// JSON sends the request and decodes a successful response into out.
func (c *Client) JSON(ctx context.Context, r Request, out any) error {
	resp, err := c.Do(ctx, r)
	if err != nil {
		return err
	}
	return resp.Decode(out)
}

func (c *Client) observe(op string, status int, d time.Duration) {
	if c.recorder != nil {
		c.recorder.ObserveRequest(c.platform, op, status, d)
	}
}

func (r Request) body() (io.Reader, string, error) {
	switch {
	case r.JSON != nil:
		data, err := json.Marshal(r.JSON)
		if err != nil {
			return nil, "", fmt.Errorf("marshal request: %w", err)
		}
		return bytes.NewReader(data), "application/json", nil
	case r.Form != nil:
		return strings.NewReader(r.Form.Encode()), "application/x-www-form-urlencoded", nil
	case r.Body != nil:
		return r.Body, r.ContentType, nil
	}
	return nil, "", nil
}

func (r Request) fullURL() string {
	query := r.Query.Encode()
	if r.RawQuery != "" {
		if query != "" {
			query += "&"
		}
		query += r.RawQuery
	}
	if query == "" {
		return r.URL
	}
	sep := "?"
	if strings.Contains(r.URL, "?") {
		sep = "&"
	}
	return r.URL + sep + query
}

func (r Request) accepts(status int) bool {
	if status >= 200 && status < 300 {
		return true
	}
	for _, s := range r.Accept {
		if s == status {
			return true
		}
	}
	return false
}
