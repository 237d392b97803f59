// Package media stages remote images as local files for the duration of one
// cycle.
package media

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strings"

	"github.com/gabriel-vasile/mimetype"
	"github.com/sirupsen/logrus"

	"github.com/ibeckermayer/postcycle/internal/httpx"
	"github.com/ibeckermayer/postcycle/internal/types"
)

// DefaultMaxBytes caps a staged file when no limit is configured
const DefaultMaxBytes = 5 << 20

// Store downloads media assets into a staging directory
type Store struct {
	dir      string
	maxBytes int64
	client   *httpx.Client
	logger   logrus.FieldLogger
}

// NewStore creates a store. An empty dir stages under the system temp dir.
func NewStore(dir string, maxBytes int64, client *httpx.Client, logger logrus.FieldLogger) *Store {
	if maxBytes <= 0 {
		maxBytes = DefaultMaxBytes
	}
	return &Store{
		dir:      dir,
		maxBytes: maxBytes,
		client:   client,
		logger:   logger.WithField("component", "media"),
	}
}

// Fetch stages asset and returns a copy with LocalPath and MIMEType set.
// http(s) URLs are downloaded; file URLs and bare paths are copied so that
// Release never touches the catalog's own files.
func (s *Store) Fetch(ctx context.Context, asset types.MediaAsset) (types.MediaAsset, error) {
	data, err := s.read(ctx, asset.URL)
	if err != nil {
		return asset, err
	}

	mtype := mimetype.Detect(data)
	if !strings.HasPrefix(mtype.String(), "image/") {
		return asset, types.Tag(types.ErrParse, fmt.Errorf("media %s is %s, not an image", asset.URL, mtype.String()))
	}

	if s.dir != "" {
		if err := os.MkdirAll(s.dir, 0o755); err != nil {
			return asset, types.Tag(types.ErrInternal, fmt.Errorf("failed to create staging dir: %w", err))
		}
	}

	f, err := os.CreateTemp(s.dir, "postcycle-media-*"+mtype.Extension())
	if err != nil {
		return asset, types.Tag(types.ErrInternal, fmt.Errorf("failed to create staging file: %w", err))
	}
	if _, err := f.Write(data); err != nil {
		f.Close()
		os.Remove(f.Name())
		return asset, types.Tag(types.ErrInternal, fmt.Errorf("failed to write staging file: %w", err))
	}
	if err := f.Close(); err != nil {
		os.Remove(f.Name())
		return asset, types.Tag(types.ErrInternal, fmt.Errorf("failed to close staging file: %w", err))
	}

	staged := asset
	staged.LocalPath = f.Name()
	staged.MIMEType = mtype.String()

	s.logger.WithFields(logrus.Fields{
		"url":   asset.URL,
		"path":  staged.LocalPath,
		"type":  staged.MIMEType,
		"bytes": len(data),
	}).Debug("staged media")

	return staged, nil
}

// Release removes a staged file. Releasing an unstaged asset is a no-op.
func (s *Store) Release(asset types.MediaAsset) error {
	if !asset.Staged() {
		return nil
	}
	if err := os.Remove(asset.LocalPath); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to remove staged media: %w", err)
	}
	return nil
}

func (s *Store) read(ctx context.Context, rawURL string) ([]byte, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return nil, types.Tag(types.ErrParse, fmt.Errorf("invalid media url %q: %w", rawURL, err))
	}

	switch u.Scheme {
	case "http", "https":
		return s.download(ctx, rawURL)
	case "file":
		return s.readLocal(u.Path)
	case "":
		return s.readLocal(rawURL)
	default:
		return nil, types.Tag(types.ErrParse, fmt.Errorf("unsupported media url scheme %q", u.Scheme))
	}
}

func (s *Store) download(ctx context.Context, rawURL string) ([]byte, error) {
	resp, err := s.client.Do(ctx, func(ctx context.Context) (*http.Request, error) {
		return http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	})
	if err != nil {
		return nil, fmt.Errorf("failed to download media: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		body, _ := httpx.ReadBody(resp, 512)
		return nil, httpx.StatusError("media host", resp.StatusCode, body)
	}

	// One byte past the cap distinguishes "exactly max" from "too large"
	body, err := httpx.ReadBody(resp, s.maxBytes+1)
	if err != nil {
		return nil, err
	}
	if int64(len(body)) > s.maxBytes {
		return nil, types.Tag(types.ErrParse, fmt.Errorf("media exceeds %d bytes", s.maxBytes))
	}
	return body, nil
}

func (s *Store) readLocal(path string) ([]byte, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, types.Tag(types.ErrInternal, fmt.Errorf("failed to open media: %w", err))
	}
	defer f.Close()

	data, err := io.ReadAll(io.LimitReader(f, s.maxBytes+1))
	if err != nil {
		return nil, types.Tag(types.ErrInternal, fmt.Errorf("failed to read media: %w", err))
	}
	if int64(len(data)) > s.maxBytes {
		return nil, types.Tag(types.ErrParse, fmt.Errorf("media exceeds %d bytes", s.maxBytes))
	}
	return data, nil
}
