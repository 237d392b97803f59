package media

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ibeckermayer/postcycle/internal/httpx"
	"github.com/ibeckermayer/postcycle/internal/logging"
	"github.com/ibeckermayer/postcycle/internal/types"
)

// Smallest valid PNG header plus padding; enough for content sniffing
var pngBytes = append([]byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR"), make([]byte, 32)...)

func newStore(t *testing.T, srv *httptest.Server, maxBytes int64) *Store {
	t.Helper()
	var base *http.Client
	if srv != nil {
		base = srv.Client()
	}
	return NewStore(t.TempDir(), maxBytes, httpx.New(httpx.Config{}, base), logging.Discard())
}

func TestFetchAndRelease(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write(pngBytes)
	}))
	defer srv.Close()

	s := newStore(t, srv, 0)
	asset := types.MediaAsset{URL: srv.URL + "/lawn.png", Topic: "Lawn care"}

	staged, err := s.Fetch(context.Background(), asset)
	require.NoError(t, err)
	assert.True(t, staged.Staged())
	assert.Equal(t, "image/png", staged.MIMEType)
	assert.Equal(t, ".png", filepath.Ext(staged.LocalPath))
	assert.Equal(t, types.Topic("Lawn care"), staged.Topic)

	data, err := os.ReadFile(staged.LocalPath)
	require.NoError(t, err)
	assert.Equal(t, pngBytes, data)

	require.NoError(t, s.Release(staged))
	_, err = os.Stat(staged.LocalPath)
	assert.True(t, os.IsNotExist(err))

	// Second release is harmless
	assert.NoError(t, s.Release(staged))
	assert.NoError(t, s.Release(asset))
}

func TestFetchLocalFileIsCopied(t *testing.T) {
	src := filepath.Join(t.TempDir(), "pond.png")
	require.NoError(t, os.WriteFile(src, pngBytes, 0o644))

	s := newStore(t, nil, 0)
	staged, err := s.Fetch(context.Background(), types.MediaAsset{URL: src, Topic: "Water features"})
	require.NoError(t, err)
	assert.NotEqual(t, src, staged.LocalPath)

	require.NoError(t, s.Release(staged))
	_, err = os.Stat(src)
	assert.NoError(t, err)
}

func TestFetchFailures(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/missing.png":
			w.WriteHeader(http.StatusNotFound)
		case "/page.html":
			w.Write([]byte("<html><body>not an image</body></html>"))
		default:
			w.Write(pngBytes)
		}
	}))
	defer srv.Close()

	tests := []struct {
		name     string
		url      string
		maxBytes int64
		want     types.ErrorKind
	}{
		{"not found", srv.URL + "/missing.png", 0, types.KindParse},
		{"not an image", srv.URL + "/page.html", 0, types.KindParse},
		{"too large", srv.URL + "/big.png", 8, types.KindParse},
		{"bad scheme", "ftp://example.com/a.png", 0, types.KindParse},
		{"missing file", "/definitely/not/here.png", 0, types.KindInternal},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := newStore(t, srv, tt.maxBytes)
			staged, err := s.Fetch(context.Background(), types.MediaAsset{URL: tt.url, Topic: "x"})
			require.Error(t, err)
			assert.Equal(t, tt.want, types.KindOf(err))
			assert.False(t, staged.Staged())
		})
	}
}
