package providers

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"

	"github.com/ibeckermayer/postcycle/internal/httpx"
	"github.com/ibeckermayer/postcycle/internal/types"
)

// AnthropicProvider implements generator.Provider using Anthropic's Messages API
type AnthropicProvider struct {
	client *anthropic.Client
	model  string
}

// NewAnthropicProvider creates a new Anthropic provider. Extra options are
// passed to the SDK client (base URL, HTTP client) and mainly serve tests.
func NewAnthropicProvider(apiKey, model string, opts ...option.RequestOption) *AnthropicProvider {
	opts = append([]option.RequestOption{
		option.WithAPIKey(apiKey),
		option.WithMaxRetries(0),
		option.WithHeader("User-Agent", httpx.UserAgent),
	}, opts...)

	client := anthropic.NewClient(opts...)
	return &AnthropicProvider{
		client: &client,
		model:  model,
	}
}

func (c *AnthropicProvider) Name() string  { return "anthropic" }
func (c *AnthropicProvider) Model() string { return c.model }

// Complete sends prompt to Claude and returns the text of the reply
func (c *AnthropicProvider) Complete(ctx context.Context, prompt string) (string, error) {
	message, err := c.client.Messages.New(ctx, anthropic.MessageNewParams{
		Model:     anthropic.Model(c.model),
		MaxTokens: 1024,
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(prompt)),
		},
	})
	if err != nil {
		var apiErr *anthropic.Error
		if errors.As(err, &apiErr) {
			return "", httpx.StatusError("Anthropic API", apiErr.StatusCode, []byte(apiErr.Error()))
		}
		return "", types.Tag(types.ErrNetwork, fmt.Errorf("failed to call Anthropic API: %w", err))
	}

	// Extract text from response
	var sb strings.Builder
	for _, block := range message.Content {
		if block.Type == "text" {
			sb.WriteString(block.Text)
		}
	}
	if sb.Len() == 0 {
		return "", parseError("Anthropic returned no text content (stop reason %s)", message.StopReason)
	}

	return sb.String(), nil
}
