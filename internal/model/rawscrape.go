package model

import "time"

// RawScrape is one row of linkedin_jobs_raw: the persisted output of a
// successful scrape. At most one record exists per link; re-scraping
// overwrites via upsert.
type RawScrape struct {
	LinkID          int64     `json:"link_id"`
	URL             string    `json:"url"`
	RoleTitle       string    `json:"role_title"`
	CompanyName     string    `json:"company_name"`
	Location        string    `json:"location"`
	PostedTime      string    `json:"posted_time"`
	Status          string    `json:"status"`
	DescriptionText string    `json:"description_text"`
	HTMLPath        string    `json:"html_path"`
	ScreenshotPath  string    `json:"screenshot_path"`
	ScrapeStatus    string    `json:"scrape_status"`
	ScrapedAt       time.Time `json:"scraped_at"`
}
