// Package media opens upload sources from local files, S3 objects and
// remote URLs.
package media

import (
	"context"
	"fmt"
	"io"
	"strings"
)

// Object is an opened media source with the size and type the upload
// protocols need up front.
type Object struct {
	io.ReadCloser
	Size     int64
	MIMEType string
	Name     string
}

// Opener resolves a location string to an Object.
type Opener struct {
	S3      *S3Source
	Fetcher *Fetcher
}

// Open dispatches on the location: s3://bucket/key, http(s)://..., or a
// local file path.
func (o *Opener) Open(ctx context.Context, location string) (*Object, error) {
	switch {
	case strings.HasPrefix(location, "s3://"):
		if o.S3 == nil {
			return nil, fmt.Errorf("s3 source not configured")
		}
		bucket, key, err := ParseS3URI(location)
		if err != nil {
			return nil, err
		}
		return o.S3.Open(ctx, bucket, key)
	case IsRemote(location):
		if o.Fetcher == nil {
			return nil, fmt.Errorf("url fetcher not configured")
		}
		return o.Fetcher.Open(ctx, location)
	}
	return OpenFile(location)
}

// IsRemote reports whether location is an http(s) URL a platform can fetch
// on its own.
func IsRemote(location string) bool {
	return strings.HasPrefix(location, "http://") || strings.HasPrefix(location, "https://")
}
