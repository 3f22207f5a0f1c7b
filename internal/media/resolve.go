package media

import (
	"context"
	"errors"
	"fmt"
	"io"
	"mime"
	"path/filepath"

	"github.com/abdulachik/socialgate/internal/social"
)

// Source opens a media location. *Opener satisfies it.
type Source interface {
	Open(ctx context.Context, location string) (*Object, error)
}

var errNoSource = errors.New("no media source configured")

// Resolve turns a post attachment into an Object. A caller supplied Reader
// is used as is; otherwise the URL is opened through src.
func Resolve(ctx context.Context, src Source, m social.Media) (*Object, error) {
	if m.Reader == nil {
		if src == nil {
			return nil, fmt.Errorf("%w: open %s: %w", social.ErrInvalidRequest, m.URL, errNoSource)
		}
		obj, err := src.Open(ctx, m.URL)
		if err != nil {
			return nil, fmt.Errorf("open media %s: %w", m.URL, err)
		}
		if m.MIMEType != "" {
			obj.MIMEType = m.MIMEType
		}
		return obj, nil
	}

	if m.Size <= 0 {
		return nil, fmt.Errorf("%w: media reader needs a size", social.ErrInvalidRequest)
	}
	mimeType := m.MIMEType
	if mimeType == "" && m.Filename != "" {
		mimeType, _, _ = mime.ParseMediaType(mime.TypeByExtension(filepath.Ext(m.Filename)))
	}
	if mimeType == "" {
		return nil, fmt.Errorf("%w: media reader needs a MIME type", social.ErrInvalidRequest)
	}

	rc, ok := m.Reader.(io.ReadCloser)
	if !ok {
		rc = io.NopCloser(m.Reader)
	}
	return &Object{ReadCloser: rc, Size: m.Size, MIMEType: mimeType, Name: m.Filename}, nil
}
