// Package browser provides shared chromedp configuration with anti-bot-detection measures.
package browser

import (
	"github.com/chromedp/chromedp"

	"github.com/ibeckermayer/postcycle/internal/httpx"
)

// Options returns chromedp allocator options for scraping trend pages.
// The user agent matches the plain HTTP scraper so both look like the same client.
func Options(headless bool) []chromedp.ExecAllocatorOption {
	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", headless),

		// Hide navigator.webdriver; trend sites serve an empty shell to automation
		chromedp.Flag("disable-blink-features", "AutomationControlled"),
		chromedp.UserAgent(httpx.UserAgent),
		chromedp.WindowSize(1366, 900),

		chromedp.Flag("disable-extensions", true),
		chromedp.Flag("no-first-run", true),
		chromedp.Flag("no-default-browser-check", true),
		chromedp.Flag("blink-settings", "imagesEnabled=false"),
	)

	if headless {
		opts = append(opts, chromedp.Flag("disable-gpu", true))
	}

	return opts
}
