package main

import (
	"encoding/json"
	"io"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/ibeckermayer/postcycle/internal/app"
	"github.com/ibeckermayer/postcycle/internal/config"
	"github.com/ibeckermayer/postcycle/internal/logging"
)

var (
	configPath string
	logLevel   string
	output     string
)

// NewRootCmd builds the postctl command tree
func NewRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:           "postctl",
		Short:         "Run and inspect postcycle posting cycles",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "path to config.toml (default: user config dir)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "override the configured log level")
	rootCmd.PersistentFlags().StringVarP(&output, "output", "o", "text", "output format: text|json")

	rootCmd.AddCommand(newRunCmd())
	rootCmd.AddCommand(newPlanCmd())
	rootCmd.AddCommand(newTrendsCmd())
	rootCmd.AddCommand(newComposeCmd())
	rootCmd.AddCommand(newStatsCmd())
	rootCmd.AddCommand(newInitConfigCmd())
	rootCmd.AddCommand(newOpenCmd())
	rootCmd.AddCommand(newBotTestCmd())

	return rootCmd
}

// loadConfig resolves the config the same way the daemon does
func loadConfig(cmd *cobra.Command) (*config.Config, *logrus.Logger, error) {
	boot := logging.New("warn", "text")
	boot.SetOutput(cmd.ErrOrStderr())
	config.LoadEnv(boot)

	cfg, err := config.LoadOrCreate(configPath, boot)
	if err != nil {
		return nil, nil, err
	}

	level := cfg.Log.Level
	if logLevel != "" {
		level = logLevel
	}
	logger := logging.New(level, cfg.Log.Format)
	logger.SetOutput(cmd.ErrOrStderr())
	return cfg, logger, nil
}

func loadApp(cmd *cobra.Command, opts app.Options) (*app.App, error) {
	cfg, logger, err := loadConfig(cmd)
	if err != nil {
		return nil, err
	}
	return app.New(cfg, logger, opts)
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
