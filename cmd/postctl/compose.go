package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/ibeckermayer/postcycle/internal/app"
	"github.com/ibeckermayer/postcycle/internal/composer"
)

func newComposeCmd() *cobra.Command {
	var maxLength int

	cmd := &cobra.Command{
		Use:   "compose <base> [tags...]",
		Short: "Compose a message with hashtags within a length budget",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			msg := composer.Compose(args[0], args[1:], maxLength)

			if output == "json" {
				return writeJSON(cmd.OutOrStdout(), map[string]any{
					"message": msg,
					"length":  composer.Length(msg),
				})
			}
			fmt.Fprintln(cmd.OutOrStdout(), msg)
			return nil
		},
	}

	cmd.Flags().IntVar(&maxLength, "max", 280, "maximum message length in characters")
	return cmd
}

func newStatsCmd() *cobra.Command {
	var since time.Duration

	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Summarize journaled publish outcomes per channel",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := loadApp(cmd, app.Options{DryRun: true})
			if err != nil {
				return err
			}
			defer a.Close()

			stats, err := a.Stats(cmd.Context(), time.Now().Add(-since))
			if err != nil {
				return err
			}

			if output == "json" {
				return writeJSON(cmd.OutOrStdout(), stats)
			}
			w := cmd.OutOrStdout()
			fmt.Fprintf(w, "%-12s %8s %8s\n", "CHANNEL", "ATTEMPTS", "SUCCESS")
			for _, s := range stats {
				fmt.Fprintf(w, "%-12s %8d %8d\n", s.Channel, s.Attempts, s.Successes)
			}
			return nil
		},
	}

	cmd.Flags().DurationVar(&since, "since", 7*24*time.Hour, "how far back to look")
	return cmd
}
