package media

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/gabriel-vasile/mimetype"
)

// OpenFile opens a local file, detecting its MIME type from content.
func OpenFile(path string) (*Object, error) {
	mt, err := mimetype.DetectFile(path)
	if err != nil {
		return nil, fmt.Errorf("detect media type: %w", err)
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open media file: %w", err)
	}
	info, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("stat media file: %w", err)
	}
	if info.IsDir() {
		f.Close()
		return nil, fmt.Errorf("media path %s is a directory", path)
	}

	return &Object{
		ReadCloser: f,
		Size:       info.Size(),
		MIMEType:   baseType(mt),
		Name:       filepath.Base(path),
	}, nil
}

// baseType strips parameters such as "; charset=utf-8".
func baseType(mt *mimetype.MIME) string {
	if t := contentType(mt.String()); t != "" {
		return t
	}
	return mt.String()
}
