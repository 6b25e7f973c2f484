// Package scrape fetches LinkedIn pages with a headless browser and
// extracts the fields the raw-scrape table records.
package scrape

import (
	"context"

	"github.com/sells-group/linkpipe/internal/model"
)

// Result holds everything captured from one page visit.
type Result struct {
	URL        string
	Title      string
	Company    string
	Location   string
	PostedTime string
	// JobStatus reflects the page's own state, e.g. "No longer accepting
	// applications". Empty when the page shows no status banner.
	JobStatus   string
	Description string
	HTML        string
	Screenshot  []byte
}

// Scraper fetches a single URL and returns its content.
type Scraper interface {
	Scrape(ctx context.Context, url string, kind model.Classification) (*Result, error)
	Name() string
}
