package media

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"mime"
	"net/http"
	"path"
	"time"

	"github.com/doyensec/safeurl"
	"github.com/gabriel-vasile/mimetype"
)

// DefaultMaxFetchSize bounds downloads that arrive without a Content-Length.
const DefaultMaxFetchSize = 512 << 20

// Fetcher downloads media from public URLs.
type Fetcher struct {
	client  *http.Client
	maxSize int64
}

// NewFetcher returns a Fetcher whose client refuses private, loopback and
// link-local destinations and any port other than 80 and 443.
func NewFetcher(timeout time.Duration, maxSize int64) *Fetcher {
	cfg := safeurl.GetConfigBuilder().
		SetTimeout(timeout).
		SetAllowedSchemes("http", "https").
		SetAllowedPorts(80, 443).
		Build()

	return NewFetcherWithClient(safeurl.Client(cfg).Client, maxSize)
}

// NewFetcherWithClient uses client as is.
func NewFetcherWithClient(client *http.Client, maxSize int64) *Fetcher {
	if maxSize <= 0 {
		maxSize = DefaultMaxFetchSize
	}
	return &Fetcher{client: client, maxSize: maxSize}
}

// Open starts downloading rawURL. When the server omits Content-Length the
// body is buffered, up to the size limit, so Size is always known.
func (f *Fetcher) Open(ctx context.Context, rawURL string) (*Object, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch media: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		resp.Body.Close()
		return nil, fmt.Errorf("fetch media failed (status %d)", resp.StatusCode)
	}
	if resp.ContentLength > f.maxSize {
		resp.Body.Close()
		return nil, fmt.Errorf("media is %d bytes, limit is %d", resp.ContentLength, f.maxSize)
	}

	obj := &Object{
		ReadCloser: resp.Body,
		Size:       resp.ContentLength,
		MIMEType:   contentType(resp.Header.Get("Content-Type")),
		Name:       path.Base(req.URL.Path),
	}

	if obj.Size < 0 || obj.MIMEType == "" || obj.MIMEType == "application/octet-stream" {
		data, err := io.ReadAll(io.LimitReader(resp.Body, f.maxSize+1))
		resp.Body.Close()
		if err != nil {
			return nil, fmt.Errorf("read media: %w", err)
		}
		if int64(len(data)) > f.maxSize {
			return nil, fmt.Errorf("media exceeds limit of %d bytes", f.maxSize)
		}
		obj.ReadCloser = io.NopCloser(bytes.NewReader(data))
		obj.Size = int64(len(data))
		if obj.MIMEType == "" || obj.MIMEType == "application/octet-stream" {
			obj.MIMEType = baseType(mimetype.Detect(data))
		}
	}

	return obj, nil
}

func contentType(header string) string {
	if header == "" {
		return ""
	}
	mt, _, err := mime.ParseMediaType(header)
	if err != nil {
		return ""
	}
	return mt
}
