// Package orchestrator runs one posting cycle: fetch trends, stage media,
// then generate, compose and publish for every channel in parallel. A cycle
// always produces a report; failures become outcomes.
package orchestrator

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/ibeckermayer/postcycle/internal/composer"
	"github.com/ibeckermayer/postcycle/internal/generator"
	"github.com/ibeckermayer/postcycle/internal/publisher"
	"github.com/ibeckermayer/postcycle/internal/types"
)

const (
	defaultTrendTimeout   = 8 * time.Second
	defaultMediaTimeout   = 8 * time.Second
	defaultPublishTimeout = 30 * time.Second

	ctaSeparator = "\n\n"
)

// TrendSource returns trend strings for a region. Errors mean "no trends".
type TrendSource interface {
	Fetch(ctx context.Context, region string) ([]string, error)
}

// ContentGenerator writes post text. It never returns empty text.
type ContentGenerator interface {
	Generate(ctx context.Context, req generator.Request) generator.Generation
}

// MediaStore stages and releases media files
type MediaStore interface {
	Fetch(ctx context.Context, asset types.MediaAsset) (types.MediaAsset, error)
	Release(asset types.MediaAsset) error
}

// PublishClient posts to one channel
type PublishClient interface {
	PublishText(ctx context.Context, message string) publisher.Result
	PublishMedia(ctx context.Context, mediaPath, message string) publisher.Result
}

// ComposeFunc merges text and tags under a budget
type ComposeFunc func(base string, tags []string, maxLength int) string

// Deps are the collaborators of a cycle. Trends and Media may be nil.
type Deps struct {
	Trends     TrendSource
	Generator  ContentGenerator
	Media      MediaStore
	Publishers map[string]PublishClient
}

// Options configure a cycle
type Options struct {
	Region   string
	Channels []types.ChannelProfile

	TrendTimeout   time.Duration
	MediaTimeout   time.Duration
	PublishTimeout time.Duration

	// Compose defaults to composer.Compose
	Compose ComposeFunc
}

// Orchestrator runs cycles
type Orchestrator struct {
	deps   Deps
	opts   Options
	logger logrus.FieldLogger
}

// New creates an orchestrator
func New(deps Deps, opts Options, logger logrus.FieldLogger) *Orchestrator {
	if opts.TrendTimeout <= 0 {
		opts.TrendTimeout = defaultTrendTimeout
	}
	if opts.MediaTimeout <= 0 {
		opts.MediaTimeout = defaultMediaTimeout
	}
	if opts.PublishTimeout <= 0 {
		opts.PublishTimeout = defaultPublishTimeout
	}
	if opts.Compose == nil {
		opts.Compose = composer.Compose
	}
	return &Orchestrator{
		deps:   deps,
		opts:   opts,
		logger: logger.WithField("component", "orchestrator"),
	}
}

// RunCycle executes plan and reports one outcome per configured channel, in
// channel order.
func (o *Orchestrator) RunCycle(ctx context.Context, plan types.CyclePlan) types.CycleReport {
	report := types.CycleReport{
		CycleID:   uuid.NewString(),
		StartedAt: time.Now(),
		Region:    o.opts.Region,
	}
	log := o.logger.WithField("cycle_id", report.CycleID)
	log.WithField("use_media", plan.UseMedia).Info("cycle started")

	trends := o.fetchTrends(ctx, log)
	report.Trends = trends
	report.TrendCount = len(trends)

	var staged *types.MediaAsset
	if plan.UseMedia {
		asset, err := o.stageMedia(ctx, plan.MediaAsset)
		if err != nil {
			log.WithError(err).Warn("media staging failed, continuing text-only")
			report.MediaDowngraded = true
		} else {
			staged = &asset
			defer o.releaseMedia(asset, log)
		}
	}
	report.UsedMedia = staged != nil

	outcomes := make([]types.PostOutcome, len(o.opts.Channels))
	var g errgroup.Group
	for i, ch := range o.opts.Channels {
		g.Go(func() error {
			outcomes[i] = o.runChannel(ctx, log, ch, plan.TopicsByChannel[ch.ID], trends, staged)
			return nil
		})
	}
	_ = g.Wait()

	report.Outcomes = outcomes
	report.FinishedAt = time.Now()

	log.WithFields(logrus.Fields{
		"succeeded": report.Succeeded(),
		"failed":    report.Failed(),
		"duration":  report.Duration().Round(time.Millisecond),
	}).Info("cycle finished")

	return report
}

func (o *Orchestrator) fetchTrends(ctx context.Context, log logrus.FieldLogger) (trends []string) {
	if o.deps.Trends == nil {
		return nil
	}

	defer func() {
		if r := recover(); r != nil {
			log.WithField("panic", r).Error("trend source panicked, continuing without trends")
			trends = nil
		}
	}()

	ctx, cancel := context.WithTimeout(ctx, o.opts.TrendTimeout)
	defer cancel()

	trends, err := o.deps.Trends.Fetch(ctx, o.opts.Region)
	if err != nil {
		log.WithError(err).WithField("kind", types.KindOf(err)).Warn("trend fetch failed, continuing without trends")
		return nil
	}

	log.WithField("trends", trends).Debug("fetched trends")
	return trends
}

func (o *Orchestrator) stageMedia(ctx context.Context, asset *types.MediaAsset) (staged types.MediaAsset, err error) {
	if asset == nil {
		return types.MediaAsset{}, types.Tag(types.ErrInternal, fmt.Errorf("plan uses media without an asset"))
	}
	if o.deps.Media == nil {
		return *asset, types.Tag(types.ErrInternal, fmt.Errorf("no media store configured"))
	}

	defer func() {
		if r := recover(); r != nil {
			err = types.Tag(types.ErrInternal, fmt.Errorf("media store panic: %v", r))
		}
	}()

	ctx, cancel := context.WithTimeout(ctx, o.opts.MediaTimeout)
	defer cancel()

	staged, err = o.deps.Media.Fetch(ctx, *asset)
	if err == nil && !staged.Staged() {
		err = types.Tag(types.ErrInternal, fmt.Errorf("media store returned no local path for %s", asset.URL))
	}
	return staged, err
}

func (o *Orchestrator) releaseMedia(asset types.MediaAsset, log logrus.FieldLogger) {
	defer func() {
		if r := recover(); r != nil {
			log.WithField("panic", r).Error("media release panicked")
		}
	}()

	if err := o.deps.Media.Release(asset); err != nil {
		log.WithError(err).WithField("path", asset.LocalPath).Warn("failed to release staged media")
		return
	}
	log.WithField("path", asset.LocalPath).Debug("released staged media")
}

func (o *Orchestrator) runChannel(
	ctx context.Context,
	log logrus.FieldLogger,
	ch types.ChannelProfile,
	topic types.Topic,
	trends []string,
	media *types.MediaAsset,
) (out types.PostOutcome) {
	out = types.PostOutcome{Channel: ch.ID, Topic: topic}
	log = log.WithFields(logrus.Fields{"channel": ch.ID, "topic": topic})

	defer func() {
		if r := recover(); r != nil {
			err := types.Tag(types.ErrInternal, fmt.Errorf("channel panic: %v", r))
			log.WithError(err).Error("channel task panicked")
			out.Success = false
			out.ExternalID = ""
			out.Error = types.KindInternal
			out.Detail = err.Error()
		}
	}()

	fail := func(err error) types.PostOutcome {
		out.Error = types.KindOf(err)
		out.Detail = err.Error()
		log.WithError(err).WithField("kind", out.Error).Warn("channel failed")
		return out
	}

	client, ok := o.deps.Publishers[ch.ID]
	if !ok || client == nil {
		return fail(types.Tag(types.ErrInternal, fmt.Errorf("no publisher for channel %s", ch.ID)))
	}
	if topic == "" {
		return fail(types.Tag(types.ErrInternal, fmt.Errorf("plan has no topic for channel %s", ch.ID)))
	}

	gen := o.deps.Generator.Generate(ctx, generator.Request{Topic: topic, Channel: ch, WithMedia: media != nil})
	out.Fallback = gen.Fallback

	text := gen.Text
	if ch.RequireCTA {
		text = withCTA(text, ch.CTA, ch.MaxLength, o.opts.Compose)
	}

	var tags []string
	if ch.IncludeTags {
		tags = trends
	}
	message := o.opts.Compose(text, tags, ch.MaxLength)
	out.Message = message

	if n := composer.Length(message); n > ch.MaxLength {
		return fail(types.Tag(types.ErrBudgetExceeded, fmt.Errorf("composed message is %d characters, budget %d", n, ch.MaxLength)))
	}

	pctx, cancel := context.WithTimeout(ctx, o.opts.PublishTimeout)
	defer cancel()

	var res publisher.Result
	if media != nil {
		out.WithMedia = true
		res = client.PublishMedia(pctx, media.LocalPath, message)
	} else {
		res = client.PublishText(pctx, message)
	}

	if !res.Success {
		err := res.Err
		if err == nil {
			err = types.Tag(types.ErrInternal, fmt.Errorf("publish failed without an error"))
		}
		return fail(err)
	}

	out.Success = true
	out.ExternalID = res.ExternalID
	log.WithField("external_id", res.ExternalID).Info("channel published")
	return out
}

// withCTA appends cta unless text already contains it. Text is shortened
// first so that the call to action survives composition.
func withCTA(text, cta string, maxLength int, compose ComposeFunc) string {
	if cta == "" || strings.Contains(text, cta) {
		return text
	}

	room := maxLength - composer.Length(cta) - composer.Length(ctaSeparator)
	if room <= 0 {
		return cta
	}
	text = compose(text, nil, room)
	if text == "" {
		return cta
	}
	return text + ctaSeparator + cta
}
