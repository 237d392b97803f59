package app

import (
	"context"
	"fmt"
	"net/http"
	"path/filepath"
	"sync"
	"time"

	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/sirupsen/logrus"

	"github.com/ibeckermayer/postcycle/internal/config"
	"github.com/ibeckermayer/postcycle/internal/generator"
	"github.com/ibeckermayer/postcycle/internal/generator/providers"
	"github.com/ibeckermayer/postcycle/internal/httpx"
	"github.com/ibeckermayer/postcycle/internal/media"
	"github.com/ibeckermayer/postcycle/internal/metrics"
	"github.com/ibeckermayer/postcycle/internal/notifier"
	"github.com/ibeckermayer/postcycle/internal/orchestrator"
	"github.com/ibeckermayer/postcycle/internal/publisher"
	"github.com/ibeckermayer/postcycle/internal/report"
	"github.com/ibeckermayer/postcycle/internal/scraper"
	"github.com/ibeckermayer/postcycle/internal/selector"
	"github.com/ibeckermayer/postcycle/internal/store"
	"github.com/ibeckermayer/postcycle/internal/types"
)

const defaultGenerationTimeout = 20 * time.Second

// App holds the wired application. The config is read-only after New.
type App struct {
	config *config.Config
	logger logrus.FieldLogger

	selectMu sync.Mutex
	selector *selector.Selector

	trends       orchestrator.TrendSource
	orchestrator *orchestrator.Orchestrator
	reports      *report.Builder

	// Optional sinks; nil when disabled
	metrics  *metrics.Metrics
	journal  *store.Journal
	steps    *store.Cache
	notifier *notifier.Notifier
}

// Options adjust wiring without touching the config
type Options struct {
	// DryRun logs messages instead of publishing them
	DryRun bool
	// Seed fixes the selector's randomness; zero seeds from the clock
	Seed int64
	// Metrics receives every cycle report when set
	Metrics *metrics.Metrics
	// HTTPClient is the base client for outbound calls; nil uses a fresh one
	HTTPClient *http.Client
}

// New wires every collaborator from cfg
func New(cfg *config.Config, logger logrus.FieldLogger, opts Options) (*App, error) {
	if opts.DryRun && !cfg.Debug.DryRun {
		dry := *cfg
		dry.Debug.DryRun = true
		cfg = &dry
	}

	base := opts.HTTPClient
	if base == nil {
		base = &http.Client{}
	}

	a := &App{
		config:   cfg,
		logger:   logger.WithField("component", "app"),
		selector: selector.NewSeeded(opts.Seed),
		metrics:  opts.Metrics,
	}

	cacheDir, err := config.CacheDir()
	if err != nil {
		return nil, fmt.Errorf("failed to resolve cache dir: %w", err)
	}

	var llmCache *store.Cache
	if cfg.Debug.CacheLLM {
		llmCache = store.NewCache(cacheDir)
	}
	if cfg.Debug.CacheSteps {
		a.steps = store.NewCache(cacheDir)
	}

	a.trends = newTrendSource(cfg, base)

	gen := generator.New(
		newProvider(cfg, base, a.logger),
		generator.Brand{
			Business: cfg.Generation.Business,
			Website:  cfg.Generation.Website,
			WhatsApp: cfg.Generation.WhatsApp,
		},
		config.Seconds(cfg.Generation.TimeoutSeconds, defaultGenerationTimeout),
		llmCache,
		logger,
	)

	stagingTimeout := config.Seconds(cfg.Staging.TimeoutSeconds, config.DefaultTimeout)
	mediaStore := media.NewStore(cfg.Staging.Dir, cfg.Staging.MaxBytes, httpx.New(cfg.HTTP.Client(stagingTimeout), base), logger)

	pubs, err := publisher.NewFromConfig(cfg, base, logger)
	if err != nil {
		return nil, err
	}
	clients := make(map[string]orchestrator.PublishClient, len(pubs))
	for id, p := range pubs {
		clients[id] = p
	}

	a.orchestrator = orchestrator.New(
		orchestrator.Deps{
			Trends:     a.trends,
			Generator:  gen,
			Media:      mediaStore,
			Publishers: clients,
		},
		orchestrator.Options{
			Region:       cfg.Region,
			Channels:     cfg.Channels,
			TrendTimeout: config.Seconds(cfg.Trends.TimeoutSeconds, config.DefaultTimeout),
			MediaTimeout: stagingTimeout,
		},
		logger,
	)

	loc, err := time.LoadLocation(cfg.Schedule.Timezone)
	if err != nil {
		loc = time.UTC
	}
	if a.reports, err = report.New(loc); err != nil {
		return nil, err
	}

	if cfg.Email.Enabled() {
		if a.notifier, err = notifier.NewFromConfig(cfg.Email, cfg.Report.EmailOnFailureOnly); err != nil {
			return nil, err
		}
	}

	if cfg.Report.Journal {
		path := cfg.Report.JournalPath
		if path == "" {
			path = filepath.Join(cacheDir, "journal.db")
		}
		if a.journal, err = store.OpenJournal(path); err != nil {
			return nil, fmt.Errorf("failed to open journal: %w", err)
		}
		a.logger.WithField("path", path).Info("recording cycles to journal")
	}

	return a, nil
}

func newTrendSource(cfg *config.Config, base *http.Client) orchestrator.TrendSource {
	timeout := config.Seconds(cfg.Trends.TimeoutSeconds, config.DefaultTimeout)
	if cfg.Trends.Source == config.TrendSourceBrowser {
		return scraper.NewBrowserSource(cfg.Trends.Headless, cfg.Trends.URLTemplate, cfg.Trends.Limit, timeout)
	}
	return scraper.NewHTTPSource(httpx.New(cfg.HTTP.Client(timeout), base), cfg.Trends.URLTemplate, cfg.Trends.Limit)
}

// newProvider returns nil when no usable API key is configured, which makes
// the generator fall back to fixed text.
func newProvider(cfg *config.Config, base *http.Client, logger logrus.FieldLogger) generator.Provider {
	g := cfg.Generation
	if config.IsPlaceholder(g.APIKey) {
		logger.WithField("provider", g.Provider).Warn("no generation API key configured, posts will use fallback text")
		return nil
	}

	switch g.Provider {
	case config.ProviderAnthropic:
		opts := []option.RequestOption{option.WithHTTPClient(base)}
		if g.Endpoint != "" {
			opts = append(opts, option.WithBaseURL(g.Endpoint))
		}
		return providers.NewAnthropicProvider(g.APIKey, g.Model, opts...)
	default:
		timeout := config.Seconds(g.TimeoutSeconds, defaultGenerationTimeout)
		return providers.NewGeminiProvider(g.APIKey, g.Model, g.Endpoint, httpx.New(cfg.HTTP.Client(timeout), base))
	}
}

// Config returns the configuration the app was built with
func (a *App) Config() *config.Config {
	return a.config
}

// Plan draws the next cycle plan
func (a *App) Plan() (types.CyclePlan, error) {
	a.selectMu.Lock()
	defer a.selectMu.Unlock()
	return a.selector.Select(a.config.Channels, a.config.Topics, a.config.Media)
}

// RunCycle plans and runs one posting cycle, then records the report in
// every enabled sink. The error is non-nil only when no plan could be made.
func (a *App) RunCycle(ctx context.Context) (types.CycleReport, error) {
	plan, err := a.Plan()
	if err != nil {
		return types.CycleReport{}, fmt.Errorf("failed to plan cycle: %w", err)
	}
	a.cacheStep(store.StepPlan, plan)

	r := a.orchestrator.RunCycle(ctx, plan)
	a.record(ctx, r)
	return r, nil
}

// FetchTrends runs the configured trend source once
func (a *App) FetchTrends(ctx context.Context) ([]string, error) {
	ctx, cancel := context.WithTimeout(ctx, config.Seconds(a.config.Trends.TimeoutSeconds, config.DefaultTimeout))
	defer cancel()

	trends, err := a.trends.Fetch(ctx, a.config.Region)
	if err != nil {
		return nil, err
	}
	a.cacheStep(store.StepTrends, trends)
	return trends, nil
}

// Stats summarizes journaled outcomes since the given time
func (a *App) Stats(ctx context.Context, since time.Time) ([]store.ChannelStats, error) {
	if a.journal == nil {
		return nil, fmt.Errorf("journal is disabled; set report.journal = true")
	}
	return a.journal.Stats(ctx, since)
}

// Close releases the journal
func (a *App) Close() error {
	if a.journal == nil {
		return nil
	}
	return a.journal.Close()
}

func (a *App) record(ctx context.Context, r types.CycleReport) {
	log := a.logger.WithField("cycle_id", r.CycleID)

	for _, o := range r.Outcomes {
		entry := log.WithFields(logrus.Fields{
			"channel":     o.Channel,
			"topic":       o.Topic,
			"success":     o.Success,
			"external_id": o.ExternalID,
			"with_media":  o.WithMedia,
		})
		if o.Success {
			entry.Info("outcome")
		} else {
			entry.WithField("error_kind", o.Error).Warn("outcome")
		}
	}

	if a.metrics != nil {
		a.metrics.Observe(r)
	}

	if a.journal != nil {
		if err := a.journal.Record(ctx, r); err != nil {
			log.WithError(err).Warn("failed to journal cycle")
		}
	}

	a.cacheStep(store.StepReport, r)

	if a.notifier == nil && a.steps == nil {
		return
	}

	rendered, err := a.reports.Build(r)
	if err != nil {
		log.WithError(err).Warn("failed to render report")
		return
	}

	if _, err := a.steps.SaveTextOutput(store.StepReport, rendered.HTMLBody, ".html"); err != nil {
		log.WithError(err).Warn("failed to cache rendered report")
	}

	if a.notifier != nil {
		sent, err := a.notifier.SendReport(r, rendered)
		switch {
		case err != nil:
			log.WithError(err).Warn("failed to email report")
		case sent:
			log.WithField("to", a.config.Email.ToAddr).Info("emailed report")
		}
	}
}

func (a *App) cacheStep(step store.StepName, data any) {
	path, err := store.SaveStepOutput(a.steps, step, data)
	if err != nil {
		a.logger.WithError(err).WithField("step", step).Warn("failed to cache step output")
		return
	}
	if path != "" {
		a.logger.WithFields(logrus.Fields{"step": step, "path": path}).Debug("cached step output")
	}
}
