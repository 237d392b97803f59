package scraper

// trends24.in DOM selectors
// These are isolated here because the page layout changes without notice
// Update these when trend scraping comes back empty

const (
	// ListContainer wraps the hourly trend cards; the first one is the latest hour
	ListContainer = `div.list-container`

	// TrendItem is one ranked entry inside a container
	TrendItem = `li`

	// TrendLink holds the trend text
	TrendLink = `a`
)

// Common wait conditions
const (
	WaitForTrends = ListContainer
)
