package providers

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/dghubble/oauth1"

	"github.com/ibeckermayer/postcycle/internal/config"
	"github.com/ibeckermayer/postcycle/internal/httpx"
	"github.com/ibeckermayer/postcycle/internal/types"
)

// TwitterCredentials are the OAuth 1.0a user-context keys for one account
type TwitterCredentials struct {
	APIKey            string
	APISecret         string
	AccessToken       string
	AccessTokenSecret string
}

func (c TwitterCredentials) missing() bool {
	return config.IsPlaceholder(c.APIKey) || config.IsPlaceholder(c.APISecret) ||
		config.IsPlaceholder(c.AccessToken) || config.IsPlaceholder(c.AccessTokenSecret)
}

// TwitterClient posts tweets through the v2 API and uploads media through v1.1
type TwitterClient struct {
	creds     TwitterCredentials
	apiURL    string
	uploadURL string
	client    *httpx.Client
}

// NewTwitterClient creates a client that signs every request with OAuth 1.0a.
// A nil base uses http.DefaultClient's transport.
func NewTwitterClient(creds TwitterCredentials, apiURL, uploadURL string, hcfg httpx.Config, base *http.Client) *TwitterClient {
	ctx := oauth1.NoContext
	if base != nil {
		ctx = context.WithValue(ctx, oauth1.HTTPClient, base)
	}
	signed := oauth1.NewConfig(creds.APIKey, creds.APISecret).
		Client(ctx, oauth1.NewToken(creds.AccessToken, creds.AccessTokenSecret))

	return &TwitterClient{
		creds:     creds,
		apiURL:    strings.TrimRight(apiURL, "/"),
		uploadURL: uploadURL,
		client:    httpx.New(hcfg, signed),
	}
}

type tweetRequest struct {
	Text  string      `json:"text"`
	Media *tweetMedia `json:"media,omitempty"`
}

type tweetMedia struct {
	MediaIDs []string `json:"media_ids"`
}

type tweetResponse struct {
	Data struct {
		ID   string `json:"id"`
		Text string `json:"text"`
	} `json:"data"`
}

type uploadResponse struct {
	MediaIDString string `json:"media_id_string"`
}

// PostText publishes a tweet
func (t *TwitterClient) PostText(ctx context.Context, message string) (string, error) {
	if t.creds.missing() {
		return "", types.Tag(types.ErrAuth, fmt.Errorf("twitter credentials not configured"))
	}
	return t.tweet(ctx, tweetRequest{Text: message})
}

// PostMedia uploads the image and publishes a tweet referencing it
func (t *TwitterClient) PostMedia(ctx context.Context, mediaPath, message string) (string, error) {
	if t.creds.missing() {
		return "", types.Tag(types.ErrAuth, fmt.Errorf("twitter credentials not configured"))
	}

	mediaID, err := t.upload(ctx, mediaPath)
	if err != nil {
		return "", err
	}
	return t.tweet(ctx, tweetRequest{Text: message, Media: &tweetMedia{MediaIDs: []string{mediaID}}})
}

func (t *TwitterClient) tweet(ctx context.Context, payload tweetRequest) (string, error) {
	jsonBody, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("failed to marshal tweet: %w", err)
	}

	resp, err := t.client.Do(ctx, func(ctx context.Context) (*http.Request, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, t.apiURL+"/tweets", bytes.NewReader(jsonBody))
		if err != nil {
			return nil, err
		}
		req.Header.Set("Content-Type", "application/json")
		return req, nil
	})
	if err != nil {
		return "", fmt.Errorf("failed to call Twitter API: %w", err)
	}

	body, err := httpx.ReadBody(resp, maxResponseBytes)
	if err != nil {
		return "", err
	}
	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		return "", httpx.StatusError("Twitter API", resp.StatusCode, body)
	}

	// A 2xx is a published tweet even when the body lacks an id
	var tr tweetResponse
	if err := json.Unmarshal(body, &tr); err != nil {
		return "", nil
	}
	return tr.Data.ID, nil
}

func (t *TwitterClient) upload(ctx context.Context, mediaPath string) (string, error) {
	data, err := os.ReadFile(mediaPath)
	if err != nil {
		return "", types.Tag(types.ErrInternal, fmt.Errorf("failed to read media: %w", err))
	}

	resp, err := t.client.Do(ctx, func(ctx context.Context) (*http.Request, error) {
		body, contentType, err := multipartBody(nil, "media", filepath.Base(mediaPath), data)
		if err != nil {
			return nil, err
		}
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, t.uploadURL, bytes.NewReader(body))
		if err != nil {
			return nil, err
		}
		req.Header.Set("Content-Type", contentType)
		return req, nil
	})
	if err != nil {
		return "", fmt.Errorf("failed to upload media: %w", err)
	}

	body, err := httpx.ReadBody(resp, maxResponseBytes)
	if err != nil {
		return "", err
	}
	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		return "", httpx.StatusError("Twitter media upload", resp.StatusCode, body)
	}

	var ur uploadResponse
	if err := json.Unmarshal(body, &ur); err != nil || ur.MediaIDString == "" {
		return "", types.Tag(types.ErrParse, fmt.Errorf("unexpected media upload response: %.300s", body))
	}
	return ur.MediaIDString, nil
}
