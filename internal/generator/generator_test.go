package generator

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ibeckermayer/postcycle/internal/logging"
	"github.com/ibeckermayer/postcycle/internal/store"
	"github.com/ibeckermayer/postcycle/internal/types"
)

type fakeProvider struct {
	text    string
	err     error
	delay   time.Duration
	prompts []string
}

func (f *fakeProvider) Name() string  { return "fake" }
func (f *fakeProvider) Model() string { return "fake-1" }

func (f *fakeProvider) Complete(ctx context.Context, prompt string) (string, error) {
	f.prompts = append(f.prompts, prompt)
	if f.delay > 0 {
		select {
		case <-time.After(f.delay):
		case <-ctx.Done():
			return "", ctx.Err()
		}
	}
	return f.text, f.err
}

var (
	brand = Brand{Business: "Eco Green Contractors", Website: "https://example.com", WhatsApp: "+254700000000"}

	twitter  = types.ChannelProfile{ID: "twitter", Kind: types.ChannelTwitter, MaxLength: 280, IncludeTags: true}
	facebook = types.ChannelProfile{ID: "facebook", Kind: types.ChannelFacebook, MaxLength: 500, RequireCTA: true, CTA: "Call us now"}
)

func TestGenerateSuccess(t *testing.T) {
	p := &fakeProvider{text: "  \"Lush lawns all year 🌿\"  "}
	g := New(p, brand, time.Second, nil, logging.Discard())

	gen := g.Generate(context.Background(), Request{Topic: "Lawn care", Channel: twitter})
	assert.False(t, gen.Fallback)
	assert.NoError(t, gen.Err)
	assert.Equal(t, "Lush lawns all year 🌿", gen.Text)

	require.Len(t, p.prompts, 1)
	assert.Contains(t, p.prompts[0], `Topic: "Lawn care"`)
	assert.Contains(t, p.prompts[0], "max 200 characters")
	assert.Contains(t, p.prompts[0], "Do not include hashtags")
}

func TestGenerateFallbacks(t *testing.T) {
	tests := []struct {
		name     string
		provider Provider
		kind     types.ErrorKind
	}{
		{"provider error", &fakeProvider{err: types.Tag(types.ErrAuth, errors.New("bad key"))}, types.KindAuth},
		{"empty text", &fakeProvider{text: "   "}, types.KindParse},
		{"timeout", &fakeProvider{text: "late", delay: time.Second}, types.KindNetwork},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g := New(tt.provider, brand, 20*time.Millisecond, nil, logging.Discard())
			gen := g.Generate(context.Background(), Request{Topic: "Tree planting", Channel: twitter})
			assert.True(t, gen.Fallback)
			assert.Equal(t, tt.kind, types.KindOf(gen.Err))
			assert.Equal(t, "Ask us about Tree planting today! Visit https://example.com", gen.Text)
		})
	}
}

func TestGenerateWithoutProvider(t *testing.T) {
	g := New(nil, brand, 0, nil, logging.Discard())
	gen := g.Generate(context.Background(), Request{Topic: "Hedge trimming", Channel: facebook})
	assert.True(t, gen.Fallback)
	assert.ErrorIs(t, gen.Err, ErrNotConfigured)
	assert.Equal(t, "Ask us about Hedge trimming today!", gen.Text)
}

func TestGenerateCachesExchange(t *testing.T) {
	cache := store.NewCache(t.TempDir())
	g := New(&fakeProvider{text: "ok"}, brand, 0, cache, logging.Discard())

	g.Generate(context.Background(), Request{Topic: "Garden design", Channel: facebook})

	exchange, path, err := store.LoadLatestStepOutput[store.LLMExchange](cache, store.StepLLM)
	require.NoError(t, err)
	assert.NotEmpty(t, path)
	assert.Equal(t, "fake", exchange.Provider)
	assert.Equal(t, "facebook", exchange.Channel)
	assert.Equal(t, "Garden design", exchange.Topic)
	assert.Equal(t, "ok", exchange.Response)
}

func TestBuildPromptCTAAndMedia(t *testing.T) {
	prompt := BuildPrompt(Request{Topic: "Paving", Channel: facebook, WithMedia: true}, brand)
	assert.Contains(t, prompt, "End with this call to action: Call us now")
	assert.Contains(t, prompt, "photo")
	assert.Contains(t, prompt, "Facebook")
	assert.Contains(t, prompt, "max 500 characters")
	assert.False(t, strings.Contains(prompt, "Do not include hashtags"))
}

func TestClean(t *testing.T) {
	assert.Equal(t, "hello", Clean("```\nhello\n```"))
	assert.Equal(t, "hi there", Clean("'hi there'"))
	assert.Equal(t, `"unbalanced`, Clean(`"unbalanced`))
}
