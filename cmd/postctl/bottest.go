package main

import (
	"bufio"
	"context"
	"fmt"

	"github.com/chromedp/chromedp"
	"github.com/spf13/cobra"

	browseropts "github.com/ibeckermayer/postcycle/internal/browser"
)

const botTestURL = "https://bot.sannysoft.com"

// newBotTestCmd opens a fingerprint audit page with the options the
// browser trend source uses
func newBotTestCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "bot-test",
		Short: "Open " + botTestURL + " to audit the browser fingerprint",
		RunE: func(cmd *cobra.Command, args []string) error {
			allocCtx, cancel := chromedp.NewExecAllocator(context.Background(), browseropts.Options(false)...)
			defer cancel()

			ctx, cancel := chromedp.NewContext(allocCtx)
			defer cancel()

			if err := chromedp.Run(ctx,
				chromedp.Navigate(botTestURL),
				chromedp.WaitVisible("body", chromedp.ByQuery),
			); err != nil {
				return fmt.Errorf("failed to navigate: %w", err)
			}

			fmt.Fprintln(cmd.OutOrStdout(), "Press Enter to close the browser...")
			bufio.NewReader(cmd.InOrStdin()).ReadString('\n')
			return nil
		},
	}
}
