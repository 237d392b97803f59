package scraper

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/chromedp/chromedp"

	"github.com/ibeckermayer/postcycle/internal/browser"
	"github.com/ibeckermayer/postcycle/internal/httpx"
	"github.com/ibeckermayer/postcycle/internal/types"
)

// maxPageBytes caps how much of a trend page is read
const maxPageBytes = 4 << 20

// HTTPSource fetches trends from a server-rendered trend page
type HTTPSource struct {
	client      *httpx.Client
	urlTemplate string
	limit       int
}

// NewHTTPSource creates a trend source. urlTemplate takes the region via %s,
// e.g. "https://trends24.in/%s/".
func NewHTTPSource(client *httpx.Client, urlTemplate string, limit int) *HTTPSource {
	return &HTTPSource{client: client, urlTemplate: urlTemplate, limit: limit}
}

// Fetch returns the top trends for region in page order
func (s *HTTPSource) Fetch(ctx context.Context, region string) ([]string, error) {
	url := regionURL(s.urlTemplate, region)

	resp, err := s.client.Do(ctx, func(ctx context.Context) (*http.Request, error) {
		return http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	})
	if err != nil {
		return nil, fmt.Errorf("failed to fetch trend page: %w", err)
	}

	body, err := httpx.ReadBody(resp, maxPageBytes)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusOK {
		return nil, httpx.StatusError("trend page", resp.StatusCode, body)
	}

	return ParseTrends(body, s.limit)
}

// ParseTrends extracts trend strings from the first list container of a
// trend page. limit <= 0 returns every trend.
func ParseTrends(page []byte, limit int) ([]string, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(page))
	if err != nil {
		return nil, types.Tag(types.ErrParse, fmt.Errorf("failed to parse trend page: %w", err))
	}

	container := doc.Find(ListContainer).First()
	if container.Length() == 0 {
		return nil, types.Tag(types.ErrParse, fmt.Errorf("trend list container %q not found", ListContainer))
	}

	var trends []string
	container.Find(TrendItem).EachWithBreak(func(_ int, item *goquery.Selection) bool {
		link := item.Find(TrendLink).First()
		if link.Length() == 0 {
			return true
		}
		if text := strings.TrimSpace(link.Text()); text != "" {
			trends = append(trends, text)
		}
		return limit <= 0 || len(trends) < limit
	})

	return trends, nil
}

// BrowserSource renders the trend page in headless Chrome. It is slower than
// HTTPSource but survives pages that build the list client-side.
type BrowserSource struct {
	headless    bool
	urlTemplate string
	limit       int
	timeout     time.Duration
}

// NewBrowserSource creates a chromedp-backed trend source
func NewBrowserSource(headless bool, urlTemplate string, limit int, timeout time.Duration) *BrowserSource {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &BrowserSource{headless: headless, urlTemplate: urlTemplate, limit: limit, timeout: timeout}
}

// Fetch returns the top trends for region in page order
func (s *BrowserSource) Fetch(ctx context.Context, region string) ([]string, error) {
	allocCtx, allocCancel := chromedp.NewExecAllocator(ctx, browser.Options(s.headless)...)
	defer allocCancel()

	browserCtx, browserCancel := chromedp.NewContext(allocCtx)
	defer browserCancel()

	browserCtx, timeoutCancel := context.WithTimeout(browserCtx, s.timeout)
	defer timeoutCancel()

	var html string
	if err := chromedp.Run(browserCtx,
		chromedp.Navigate(regionURL(s.urlTemplate, region)),
		chromedp.WaitVisible(WaitForTrends, chromedp.ByQuery),
		chromedp.OuterHTML("html", &html, chromedp.ByQuery),
	); err != nil {
		return nil, types.Tag(types.ErrNetwork, fmt.Errorf("failed to load trend page: %w", err))
	}

	return ParseTrends([]byte(html), s.limit)
}

func regionURL(template, region string) string {
	if !strings.Contains(template, "%s") {
		return template
	}
	return fmt.Sprintf(template, strings.ToLower(strings.TrimSpace(region)))
}
