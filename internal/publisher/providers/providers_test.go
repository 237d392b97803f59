package providers

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ibeckermayer/postcycle/internal/httpx"
	"github.com/ibeckermayer/postcycle/internal/types"
)

var creds = TwitterCredentials{
	APIKey:            "ck",
	APISecret:         "cs",
	AccessToken:       "at",
	AccessTokenSecret: "as",
}

func writeImage(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "garden.png")
	require.NoError(t, os.WriteFile(path, []byte("\x89PNG\r\n\x1a\nfake"), 0o644))
	return path
}

func TestFacebookPostText(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/page-1/feed", r.URL.Path)
		require.NoError(t, r.ParseForm())
		assert.Equal(t, "Hello garden", r.PostForm.Get("message"))
		assert.Equal(t, "tok", r.PostForm.Get("access_token"))
		io.WriteString(w, `{"id":"page-1_42"}`)
	}))
	defer srv.Close()

	fb := NewFacebookClient("page-1", "tok", srv.URL, httpx.New(httpx.Config{}, srv.Client()))
	id, err := fb.PostText(context.Background(), "Hello garden")
	require.NoError(t, err)
	assert.Equal(t, "page-1_42", id)
}

func TestFacebookPostMedia(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/page-1/photos", r.URL.Path)
		require.NoError(t, r.ParseMultipartForm(1<<20))
		assert.Equal(t, "With photo", r.FormValue("caption"))
		file, header, err := r.FormFile("source")
		require.NoError(t, err)
		defer file.Close()
		assert.Equal(t, "garden.png", header.Filename)
		io.WriteString(w, `{"id":"photo-9","post_id":"page-1_43"}`)
	}))
	defer srv.Close()

	fb := NewFacebookClient("page-1", "tok", srv.URL, httpx.New(httpx.Config{}, srv.Client()))
	id, err := fb.PostMedia(context.Background(), writeImage(t), "With photo")
	require.NoError(t, err)
	assert.Equal(t, "page-1_43", id)
}

func TestFacebookErrors(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
		want   types.ErrorKind
	}{
		{"permission", http.StatusBadRequest, `{"error":{"message":"(#200) Requires pages_manage_posts","code":200}}`, types.KindAuth},
		{"expired token", http.StatusUnauthorized, `{"error":{"code":190}}`, types.KindAuth},
		{"bad request", http.StatusBadRequest, `{"error":{"code":100}}`, types.KindParse},
		{"server", http.StatusInternalServerError, ``, types.KindNetwork},
		{"missing id", http.StatusOK, `{}`, types.KindParse},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				io.WriteString(w, tt.body)
			}))
			defer srv.Close()

			fb := NewFacebookClient("page-1", "tok", srv.URL, httpx.New(httpx.Config{}, srv.Client()))
			_, err := fb.PostText(context.Background(), "x")
			require.Error(t, err)
			assert.Equal(t, tt.want, types.KindOf(err))
		})
	}
}

func TestFacebookPlaceholderCredentials(t *testing.T) {
	fb := NewFacebookClient("YOUR_FACEBOOK_PAGE_ID", "tok", "http://127.0.0.1:1", httpx.New(httpx.Config{}, nil))
	_, err := fb.PostText(context.Background(), "x")
	assert.Equal(t, types.KindAuth, types.KindOf(err))
}

func TestTwitterPostText(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/2/tweets", r.URL.Path)
		assert.True(t, strings.HasPrefix(r.Header.Get("Authorization"), "OAuth "))
		assert.Contains(t, r.Header.Get("Authorization"), `oauth_consumer_key="ck"`)

		var req tweetRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "hello #Kenya", req.Text)
		assert.Nil(t, req.Media)

		w.WriteHeader(http.StatusCreated)
		io.WriteString(w, `{"data":{"id":"1789","text":"hello #Kenya"}}`)
	}))
	defer srv.Close()

	tw := NewTwitterClient(creds, srv.URL+"/2", srv.URL+"/upload", httpx.Config{}, srv.Client())
	id, err := tw.PostText(context.Background(), "hello #Kenya")
	require.NoError(t, err)
	assert.Equal(t, "1789", id)
}

func TestTwitterPostMedia(t *testing.T) {
	var uploaded bool
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/upload":
			require.NoError(t, r.ParseMultipartForm(1<<20))
			_, _, err := r.FormFile("media")
			require.NoError(t, err)
			uploaded = true
			io.WriteString(w, `{"media_id":123,"media_id_string":"123"}`)
		case "/2/tweets":
			var req tweetRequest
			require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
			require.NotNil(t, req.Media)
			assert.Equal(t, []string{"123"}, req.Media.MediaIDs)
			w.WriteHeader(http.StatusCreated)
			io.WriteString(w, `{"data":{"id":"1790"}}`)
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	defer srv.Close()

	tw := NewTwitterClient(creds, srv.URL+"/2", srv.URL+"/upload", httpx.Config{}, srv.Client())
	id, err := tw.PostMedia(context.Background(), writeImage(t), "with photo")
	require.NoError(t, err)
	assert.True(t, uploaded)
	assert.Equal(t, "1790", id)
}

func TestTwitterErrors(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
		io.WriteString(w, `{"title":"Forbidden"}`)
	}))
	defer srv.Close()

	tw := NewTwitterClient(creds, srv.URL, srv.URL+"/upload", httpx.Config{}, srv.Client())
	_, err := tw.PostText(context.Background(), "x")
	assert.Equal(t, types.KindAuth, types.KindOf(err))

	_, err = tw.PostMedia(context.Background(), writeImage(t), "x")
	assert.Equal(t, types.KindAuth, types.KindOf(err))

	missing := NewTwitterClient(TwitterCredentials{APIKey: "YOUR_TWITTER_API_KEY"}, srv.URL, srv.URL, httpx.Config{}, nil)
	_, err = missing.PostText(context.Background(), "x")
	assert.Equal(t, types.KindAuth, types.KindOf(err))
}
