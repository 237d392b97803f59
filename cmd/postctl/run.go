package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/ibeckermayer/postcycle/internal/app"
	"github.com/ibeckermayer/postcycle/internal/report"
)

func newRunCmd() *cobra.Command {
	var (
		dryRun bool
		seed   int64
	)

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run one posting cycle now",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := loadApp(cmd, app.Options{DryRun: dryRun, Seed: seed})
			if err != nil {
				return err
			}
			defer a.Close()

			r, err := a.RunCycle(cmd.Context())
			if err != nil {
				return err
			}

			if output == "json" {
				return writeJSON(cmd.OutOrStdout(), r)
			}

			loc, err := time.LoadLocation(a.Config().Schedule.Timezone)
			if err != nil {
				loc = time.UTC
			}
			b, err := report.New(loc)
			if err != nil {
				return err
			}
			rendered, err := b.Build(r)
			if err != nil {
				return err
			}

			fmt.Fprintln(cmd.OutOrStdout(), rendered.Subject)
			fmt.Fprintln(cmd.OutOrStdout())
			fmt.Fprint(cmd.OutOrStdout(), rendered.PlainBody)
			return nil
		},
	}

	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "log messages instead of publishing them")
	cmd.Flags().Int64Var(&seed, "seed", 0, "fix the topic and media draw (0 = random)")
	return cmd
}

func newPlanCmd() *cobra.Command {
	var seed int64

	cmd := &cobra.Command{
		Use:   "plan",
		Short: "Show the topics and media the next cycle would use",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := loadApp(cmd, app.Options{DryRun: true, Seed: seed})
			if err != nil {
				return err
			}
			defer a.Close()

			plan, err := a.Plan()
			if err != nil {
				return err
			}

			if output == "json" {
				return writeJSON(cmd.OutOrStdout(), plan)
			}

			w := cmd.OutOrStdout()
			for _, ch := range a.Config().Channels {
				fmt.Fprintf(w, "%-12s %s\n", ch.ID, plan.TopicsByChannel[ch.ID])
			}
			if plan.UseMedia && plan.MediaAsset != nil {
				fmt.Fprintf(w, "media        %s\n", plan.MediaAsset.URL)
			} else {
				fmt.Fprintln(w, "media        none")
			}
			return nil
		},
	}

	cmd.Flags().Int64Var(&seed, "seed", 0, "fix the topic and media draw (0 = random)")
	return cmd
}

func newTrendsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "trends",
		Short: "Fetch the current trending tags for the configured region",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := loadApp(cmd, app.Options{DryRun: true})
			if err != nil {
				return err
			}
			defer a.Close()

			trends, err := a.FetchTrends(cmd.Context())
			if err != nil {
				return err
			}

			if output == "json" {
				return writeJSON(cmd.OutOrStdout(), trends)
			}
			for _, t := range trends {
				fmt.Fprintln(cmd.OutOrStdout(), t)
			}
			return nil
		},
	}
}
