// Package generator turns a topic and a channel profile into post text using
// an LLM provider. It never fails: provider errors map to a deterministic
// fallback text.
package generator

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/ibeckermayer/postcycle/internal/store"
	"github.com/ibeckermayer/postcycle/internal/types"
)

// ErrNotConfigured is reported when no provider is available
var ErrNotConfigured = errors.New("generation provider not configured")

// Provider defines the interface for LLM providers
type Provider interface {
	Name() string
	Model() string
	Complete(ctx context.Context, prompt string) (string, error)
}

// Brand describes the business the posts promote
type Brand struct {
	Business string
	Website  string
	WhatsApp string
}

// Request asks for one post
type Request struct {
	Topic     types.Topic
	Channel   types.ChannelProfile
	WithMedia bool
}

// Generation is the result of a request. Text is never empty; when Fallback
// is set, Err holds the reason the provider output was not used.
type Generation struct {
	Text     string
	Fallback bool
	Err      error
}

// Generator handles LLM-based post writing
type Generator struct {
	provider Provider
	brand    Brand
	timeout  time.Duration
	cache    *store.Cache
	logger   logrus.FieldLogger
}

// New creates a generator. A nil provider always yields fallback text.
func New(provider Provider, brand Brand, timeout time.Duration, cache *store.Cache, logger logrus.FieldLogger) *Generator {
	return &Generator{
		provider: provider,
		brand:    brand,
		timeout:  timeout,
		cache:    cache,
		logger:   logger.WithField("component", "generator"),
	}
}

// Generate writes a post for req
func (g *Generator) Generate(ctx context.Context, req Request) Generation {
	log := g.logger.WithFields(logrus.Fields{"channel": req.Channel.ID, "topic": req.Topic})

	if g.provider == nil {
		log.Warn("no generation provider configured, using fallback text")
		return Generation{Text: Fallback(req, g.brand), Fallback: true, Err: ErrNotConfigured}
	}

	if g.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, g.timeout)
		defer cancel()
	}

	prompt := BuildPrompt(req, g.brand)
	raw, err := g.provider.Complete(ctx, prompt)
	text := Clean(raw)

	g.cacheExchange(log, req, prompt, raw, err)

	if err != nil {
		log.WithError(err).Warn("generation failed, using fallback text")
		return Generation{Text: Fallback(req, g.brand), Fallback: true, Err: err}
	}
	if text == "" {
		err := types.Tag(types.ErrParse, fmt.Errorf("%s returned empty text", g.provider.Name()))
		log.WithError(err).Warn("generation empty, using fallback text")
		return Generation{Text: Fallback(req, g.brand), Fallback: true, Err: err}
	}

	log.WithField("length", len([]rune(text))).Debug("generated post text")
	return Generation{Text: text}
}

func (g *Generator) cacheExchange(log logrus.FieldLogger, req Request, prompt, response string, err error) {
	exchange := store.LLMExchange{
		Timestamp: time.Now(),
		Provider:  g.provider.Name(),
		Model:     g.provider.Model(),
		Channel:   req.Channel.ID,
		Topic:     string(req.Topic),
		Prompt:    prompt,
		Response:  response,
	}
	if err != nil {
		exchange.Error = err.Error()
	}

	if cachePath, cerr := g.cache.SaveLLMExchange(exchange); cerr != nil {
		log.WithError(cerr).Warn("failed to cache LLM exchange")
	} else if cachePath != "" {
		log.WithField("path", cachePath).Debug("cached LLM exchange")
	}
}

// Fallback is the deterministic text used when generation fails. Channels
// that require a call to action get it appended later, so it is left out here.
func Fallback(req Request, brand Brand) string {
	text := fmt.Sprintf("Ask us about %s today!", req.Topic)
	if !req.Channel.RequireCTA && brand.Website != "" {
		text += " Visit " + brand.Website
	}
	return text
}

// Clean strips wrapping the model sometimes adds around a single post
func Clean(text string) string {
	text = strings.TrimSpace(text)
	text = strings.TrimPrefix(text, "```")
	text = strings.TrimSuffix(text, "```")
	text = strings.TrimSpace(text)

	if len(text) >= 2 {
		first, last := text[0], text[len(text)-1]
		if (first == '"' && last == '"') || (first == '\'' && last == '\'') {
			text = strings.TrimSpace(text[1 : len(text)-1])
		}
	}

	return text
}
