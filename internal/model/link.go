// Package model defines the core types shared across the link pipeline.
package model

import (
	"strings"
	"time"
)

// LinkStatus represents the lifecycle state of a discovered link.
type LinkStatus string

const (
	StatusNew       LinkStatus = "new"
	StatusQueued    LinkStatus = "queued"
	StatusScraping  LinkStatus = "scraping"
	StatusScraped   LinkStatus = "scraped"
	StatusStaged    LinkStatus = "staged"
	StatusExtracted LinkStatus = "extracted"
	StatusError     LinkStatus = "error"
	StatusDead      LinkStatus = "dead"
)

// Classification is the coarse category assigned to a link. It decides
// which scrape queue the link is routed to.
type Classification string

const (
	ClassJob     Classification = "job"
	ClassPost    Classification = "post"
	ClassUnknown Classification = "unknown"
)

// Link is one row of the link store: a unique URL tracked through the
// pipeline. Identity is the case-insensitive url_canonical, which the
// database derives from URL and is never written directly.
type Link struct {
	ID             int64          `json:"id"`
	URL            string         `json:"url"`
	URLCanonical   string         `json:"url_canonical"`
	Classification Classification `json:"classification"`
	Status         LinkStatus     `json:"status"`
	AttemptCount   int            `json:"attempt_count"`
	NextAttemptAt  time.Time      `json:"next_attempt_at"`
	LastError      string         `json:"last_error,omitempty"`

	// Provenance metadata from ingestion. Descriptive only, not used for
	// control flow.
	SheetName    string    `json:"sheet_name,omitempty"`
	Tab          string    `json:"tab,omitempty"`
	RowNumber    int       `json:"row_number,omitempty"`
	Source       string    `json:"source,omitempty"`
	Category     string    `json:"category,omitempty"`
	DateInSource string    `json:"date_in_source,omitempty"`
	ExtractedAt  time.Time `json:"extracted_at,omitempty"`
}

// Source categories recorded at ingestion time. Classification is derived
// from these, not from the URL directly.
const (
	CategoryJobs     = "jobs"
	CategoryPosts    = "posts"
	CategoryOther    = "other"
	CategoryExternal = "external"
)

// CategoryFor derives the ingestion category from a URL's shape.
func CategoryFor(url string) string {
	switch {
	case strings.HasPrefix(url, "https://www.linkedin.com/posts"):
		return CategoryPosts
	case strings.HasPrefix(url, "https://www.linkedin.com/jobs"):
		return CategoryJobs
	case strings.HasPrefix(url, "https://www.linkedin.com/"):
		return CategoryOther
	default:
		return CategoryExternal
	}
}

// Classify maps an ingestion category to a classification.
func Classify(category string) Classification {
	switch category {
	case CategoryJobs:
		return ClassJob
	case CategoryPosts:
		return ClassPost
	default:
		return ClassUnknown
	}
}
