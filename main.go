// Command postcycle runs scheduled posting cycles until interrupted.
package main

import (
	"context"
	"errors"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/ibeckermayer/postcycle/internal/app"
	"github.com/ibeckermayer/postcycle/internal/config"
	"github.com/ibeckermayer/postcycle/internal/logging"
	"github.com/ibeckermayer/postcycle/internal/metrics"
	"github.com/ibeckermayer/postcycle/internal/scheduler"
)

func main() {
	configPath := flag.String("config", "", "path to config.toml (default: user config dir)")
	dryRun := flag.Bool("dry-run", false, "log messages instead of publishing them")
	flag.Parse()

	bootLog := logging.New("info", "text")
	config.LoadEnv(bootLog)

	cfg, err := config.LoadOrCreate(*configPath, bootLog)
	if err != nil {
		bootLog.WithError(err).Fatal("invalid configuration")
	}

	logger := logging.New(cfg.Log.Level, cfg.Log.Format)
	if err := run(cfg, logger, *dryRun); err != nil {
		logger.WithError(err).Fatal("postcycle exited")
	}
}

func run(cfg *config.Config, logger *logrus.Logger, dryRun bool) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	m := metrics.New()
	a, err := app.New(cfg, logger, app.Options{DryRun: dryRun, Metrics: m})
	if err != nil {
		return err
	}
	defer a.Close()

	sched, err := scheduler.New(cfg.Schedule.Timezone, 0, logger)
	if err != nil {
		return err
	}

	cycle := func(ctx context.Context) error {
		_, err := a.RunCycle(ctx)
		return err
	}

	for _, t := range cfg.Schedule.Times {
		if err := sched.AddDailyJob("cycle-"+t, t, cycle); err != nil {
			return err
		}
	}
	if cfg.Schedule.IntervalHours > 0 {
		if err := sched.AddIntervalJob("cycle-interval", cfg.Schedule.IntervalHours, cycle); err != nil {
			return err
		}
	}

	var srv *http.Server
	if cfg.Metrics.Listen != "" {
		mux := http.NewServeMux()
		mux.Handle("/metrics", m.Handler())
		srv = &http.Server{Addr: cfg.Metrics.Listen, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
		go func() {
			logger.WithField("addr", cfg.Metrics.Listen).Info("serving metrics")
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logger.WithError(err).Error("metrics server failed")
			}
		}()
	}

	sched.Start()
	for _, job := range sched.ListJobs() {
		logger.WithFields(logrus.Fields{"job": job.Name, "next_run": job.NextRun}).Info("scheduled")
	}

	var startup sync.WaitGroup
	if cfg.Schedule.RunOnStart {
		startup.Add(1)
		go func() {
			defer startup.Done()
			if err := sched.RunNow("cycle-startup", cycle); err != nil {
				logger.WithError(err).Error("startup cycle failed")
			}
		}()
	}

	logger.WithField("dry_run", cfg.Debug.DryRun || dryRun).Info("postcycle started")
	<-ctx.Done()
	logger.Info("shutting down")

	<-sched.Stop().Done()
	startup.Wait()
	if srv != nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.WithError(err).Warn("metrics server shutdown")
		}
	}
	return nil
}
