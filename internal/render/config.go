package render

import "time"

type Config struct {
	// Title is shown in the page header and <title>.
	Title string

	// RefreshInterval is how often the page reloads itself while a scrape
	// is running or the copy acknowledgement is showing.
	RefreshInterval time.Duration

	// CopiedLabel is the copy button label that marks an acknowledgement
	// in progress.
	CopiedLabel string
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() Config {
	return Config{
		Title:           "Web Scraper",
		RefreshInterval: time.Second,
		CopiedLabel:     "Copied!",
	}
}
