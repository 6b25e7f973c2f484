// Package ingest pulls candidate links out of spreadsheet and Notion
// sources and writes the deduplicated ingestion CSV.
package ingest

import (
	"regexp"
	"strings"
)

// linkRE matches LinkedIn URLs anywhere inside a cell's text.
var linkRE = regexp.MustCompile(`(?i)https?://(www\.)?linkedin\.com/[^\s"'<>]+`)

// IsLinkedInURL reports whether a href points at LinkedIn.
func IsLinkedInURL(u string) bool {
	return u != "" && strings.Contains(strings.ToLower(u), "linkedin.com")
}

// NormalizeURL fixes protocol-relative and absolute-path hrefs and strips
// tracking query parameters. Job and post URLs lose their whole query;
// for other URLs only view parameters (v=, gid=) survive. Tracking params
// like trk= carry no identity and defeat deduplication.
func NormalizeURL(u string) string {
	u = strings.TrimSpace(u)
	if strings.HasPrefix(u, "//") {
		u = "https:" + u
	} else if strings.HasPrefix(u, "/") {
		u = "https://linkedin.com" + u
	}

	base, query, ok := strings.Cut(u, "?")
	if !ok {
		return u
	}

	if strings.Contains(base, "/jobs/view/") || strings.Contains(base, "/posts/") {
		return base
	}

	var keep []string
	for _, param := range strings.Split(query, "&") {
		if strings.HasPrefix(param, "v=") || strings.HasPrefix(param, "gid=") {
			keep = append(keep, param)
		}
	}
	if len(keep) == 0 {
		return base
	}
	return base + "?" + strings.Join(keep, "&")
}

// ExtractURLs scans a cell's text for LinkedIn URLs and returns them
// normalized, in order of appearance.
func ExtractURLs(cell string) []string {
	if cell == "" {
		return nil
	}
	matches := linkRE.FindAllString(cell, -1)
	out := make([]string, 0, len(matches))
	for _, m := range matches {
		// Trailing punctuation from prose cells is not part of the URL.
		m = strings.TrimRight(m, ").,;")
		out = append(out, NormalizeURL(m))
	}
	return out
}
