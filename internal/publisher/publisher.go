// Package publisher delivers finished messages to social platforms. Each
// channel gets a Publisher that reports a Result instead of returning errors.
package publisher

import (
	"context"
	"fmt"
	"net/http"

	"github.com/sirupsen/logrus"

	"github.com/ibeckermayer/postcycle/internal/config"
	"github.com/ibeckermayer/postcycle/internal/httpx"
	"github.com/ibeckermayer/postcycle/internal/publisher/providers"
	"github.com/ibeckermayer/postcycle/internal/types"
)

// Result is the outcome of one publish attempt
type Result struct {
	Success    bool
	ExternalID string
	Err        error
}

// Platform defines the interface for platform API clients
type Platform interface {
	PostText(ctx context.Context, message string) (string, error)
	PostMedia(ctx context.Context, mediaPath, message string) (string, error)
}

// Publisher handles publishing for one channel
type Publisher struct {
	channel  string
	platform Platform
	logger   logrus.FieldLogger
}

// New creates a publisher for channel backed by platform
func New(channel string, platform Platform, logger logrus.FieldLogger) *Publisher {
	return &Publisher{
		channel:  channel,
		platform: platform,
		logger:   logger.WithFields(logrus.Fields{"component": "publisher", "channel": channel}),
	}
}

// PublishText posts a text-only message
func (p *Publisher) PublishText(ctx context.Context, message string) Result {
	return p.publish(ctx, "text", func(ctx context.Context) (string, error) {
		return p.platform.PostText(ctx, message)
	})
}

// PublishMedia posts message with the image at mediaPath
func (p *Publisher) PublishMedia(ctx context.Context, mediaPath, message string) Result {
	return p.publish(ctx, "media", func(ctx context.Context) (string, error) {
		return p.platform.PostMedia(ctx, mediaPath, message)
	})
}

func (p *Publisher) publish(ctx context.Context, variant string, post func(context.Context) (string, error)) (res Result) {
	log := p.logger.WithField("variant", variant)

	defer func() {
		if r := recover(); r != nil {
			err := types.Tag(types.ErrInternal, fmt.Errorf("publisher panic: %v", r))
			log.WithError(err).Error("publish panicked")
			res = Result{Err: err}
		}
	}()

	id, err := post(ctx)
	if err != nil {
		log.WithError(err).WithField("kind", types.KindOf(err)).Warn("publish failed")
		return Result{Err: err}
	}

	log.WithField("external_id", id).Info("published")
	return Result{Success: true, ExternalID: id}
}

// NewFromConfig creates one publisher per configured channel. In dry-run
// mode every channel gets a DryRun platform instead.
func NewFromConfig(cfg *config.Config, base *http.Client, logger logrus.FieldLogger) (map[string]*Publisher, error) {
	pubs := make(map[string]*Publisher, len(cfg.Channels))
	for _, ch := range cfg.Channels {
		var platform Platform

		switch {
		case cfg.Debug.DryRun:
			platform = NewDryRun(ch.ID, logger)
		case ch.Kind == types.ChannelFacebook:
			hcfg := cfg.HTTP.Client(config.Seconds(cfg.Facebook.TimeoutSeconds, config.DefaultTimeout))
			platform = providers.NewFacebookClient(
				cfg.Facebook.PageID,
				cfg.Facebook.AccessToken,
				cfg.Facebook.GraphURL,
				httpx.New(hcfg, base),
			)
		case ch.Kind == types.ChannelTwitter:
			hcfg := cfg.HTTP.Client(config.Seconds(cfg.Twitter.TimeoutSeconds, config.DefaultTimeout))
			platform = providers.NewTwitterClient(
				providers.TwitterCredentials{
					APIKey:            cfg.Twitter.APIKey,
					APISecret:         cfg.Twitter.APISecret,
					AccessToken:       cfg.Twitter.AccessToken,
					AccessTokenSecret: cfg.Twitter.AccessTokenSecret,
				},
				cfg.Twitter.APIURL,
				cfg.Twitter.UploadURL,
				hcfg,
				base,
			)
		default:
			return nil, fmt.Errorf("unknown channel kind: %s", ch.Kind)
		}

		pubs[ch.ID] = New(ch.ID, platform, logger)
	}

	return pubs, nil
}
