package providers

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"github.com/ibeckermayer/postcycle/internal/config"
	"github.com/ibeckermayer/postcycle/internal/httpx"
	"github.com/ibeckermayer/postcycle/internal/types"
)

// permissionMarker appears in Graph API errors when the token is not a Page
// token or lacks pages_manage_posts
const permissionMarker = "(#200)"

// FacebookClient posts to a Facebook Page through the Graph API
type FacebookClient struct {
	pageID   string
	token    string
	graphURL string
	client   *httpx.Client
}

// NewFacebookClient creates a Graph API client for one page
func NewFacebookClient(pageID, token, graphURL string, client *httpx.Client) *FacebookClient {
	return &FacebookClient{
		pageID:   pageID,
		token:    token,
		graphURL: strings.TrimRight(graphURL, "/"),
		client:   client,
	}
}

type graphResponse struct {
	ID     string `json:"id"`
	PostID string `json:"post_id"`
}

// PostText publishes message to the page feed
func (f *FacebookClient) PostText(ctx context.Context, message string) (string, error) {
	if err := f.checkCredentials(); err != nil {
		return "", err
	}

	form := url.Values{}
	form.Set("message", message)
	form.Set("access_token", f.token)
	encoded := form.Encode()

	endpoint := fmt.Sprintf("%s/%s/feed", f.graphURL, f.pageID)
	return f.post(ctx, func(ctx context.Context) (*http.Request, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(encoded))
		if err != nil {
			return nil, err
		}
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
		return req, nil
	})
}

// PostMedia uploads the image at mediaPath as a page photo with message as caption
func (f *FacebookClient) PostMedia(ctx context.Context, mediaPath, message string) (string, error) {
	if err := f.checkCredentials(); err != nil {
		return "", err
	}

	data, err := os.ReadFile(mediaPath)
	if err != nil {
		return "", types.Tag(types.ErrInternal, fmt.Errorf("failed to read media: %w", err))
	}

	endpoint := fmt.Sprintf("%s/%s/photos", f.graphURL, f.pageID)
	return f.post(ctx, func(ctx context.Context) (*http.Request, error) {
		body, contentType, err := multipartBody(map[string]string{
			"caption":      message,
			"access_token": f.token,
		}, "source", filepath.Base(mediaPath), data)
		if err != nil {
			return nil, err
		}
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
		if err != nil {
			return nil, err
		}
		req.Header.Set("Content-Type", contentType)
		return req, nil
	})
}

func (f *FacebookClient) post(ctx context.Context, build func(context.Context) (*http.Request, error)) (string, error) {
	resp, err := f.client.Do(ctx, build)
	if err != nil {
		return "", fmt.Errorf("failed to call Graph API: %w", err)
	}

	body, err := httpx.ReadBody(resp, maxResponseBytes)
	if err != nil {
		return "", err
	}

	if resp.StatusCode != http.StatusOK {
		if resp.StatusCode == http.StatusBadRequest && bytes.Contains(body, []byte(permissionMarker)) {
			return "", types.Tag(types.ErrAuth, fmt.Errorf("Graph API permission error, a Page access token with pages_manage_posts is required: %.300s", body))
		}
		return "", httpx.StatusError("Graph API", resp.StatusCode, body)
	}

	var gr graphResponse
	if err := json.Unmarshal(body, &gr); err != nil {
		return "", types.Tag(types.ErrParse, fmt.Errorf("failed to parse Graph API response: %w", err))
	}

	// Photo uploads return both the photo id and the feed post id
	if gr.PostID != "" {
		return gr.PostID, nil
	}
	if gr.ID == "" {
		return "", types.Tag(types.ErrParse, fmt.Errorf("Graph API response has no id: %.300s", body))
	}
	return gr.ID, nil
}

func (f *FacebookClient) checkCredentials() error {
	if config.IsPlaceholder(f.pageID) || config.IsPlaceholder(f.token) {
		return types.Tag(types.ErrAuth, fmt.Errorf("facebook page id or access token not configured"))
	}
	return nil
}
