package ingest

import (
	"fmt"
	"regexp"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/sells-group/linkpipe/internal/model"
)

// Date header patterns observed across source sheets. Rows matching one of
// these carry no data; they set the date for the rows that follow.
var datePatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)(?:opportunit(?:y|ies)|openings).*?(?:posted)?\s*(?:on)?\s*(\d{1,2})(?:st|nd|rd|th)?\s+(?:aug|august)(?:\s+\d{4})?`),
	regexp.MustCompile(`(?i)^\s*(\d{1,2})(?:st|nd|rd|th)?\s+(aug|august)(?:\s+\d{4})?\s*$`),
	regexp.MustCompile(`(?i)^\s*(aug|august)\s+(\d{1,2})(?:st|nd|rd|th)?(?:\s+\d{4})?\s*$`),
	// The month is any word: source sheets misspell them ("Septmber"),
	// and unmapped spellings fall through to title casing below.
	regexp.MustCompile(`(?i)jobs\s+updated\s+on\s+(?:([a-z]+)\s+)?(\d{1,2})(?:st|nd|rd|th)?(?:,?\s*(\d{4}))?`),
}

var monthAbbrev = map[string]string{
	"january": "Jan", "february": "Feb", "march": "Mar", "april": "Apr",
	"may": "May", "june": "Jun", "july": "Jul", "august": "Aug",
	"september": "Sep", "october": "Oct", "november": "Nov", "december": "Dec",
	"jan": "Jan", "feb": "Feb", "mar": "Mar", "apr": "Apr", "jun": "Jun",
	"jul": "Jul", "aug": "Aug", "sep": "Sep", "sept": "Sep", "oct": "Oct",
	"nov": "Nov", "dec": "Dec",
}

var titler = cases.Title(language.English)

// headerAliases maps logical columns to the header spellings seen in the
// wild. A header row must at least name a link column to count.
var headerAliases = map[string][]string{
	"company":  {"company"},
	"role":     {"role", "title", "position"},
	"location": {"location", "city"},
	"link":     {"link", "post link", "job link", "url", "application link"},
}

// detectHeader returns column indices for a candidate header row, or nil
// when the row has no link column.
func detectHeader(row []string) map[string]int {
	idx := make(map[string]int)
	lower := make([]string, len(row))
	for i, c := range row {
		cell := strings.ToLower(strings.TrimSpace(c))
		// Data cells carry URLs; header cells never do. Without this guard
		// "linkedin.com" matches the "link" alias.
		if strings.Contains(cell, "http") || strings.Contains(cell, "linkedin.com") {
			return nil
		}
		lower[i] = cell
	}
	for key, aliases := range headerAliases {
		for i, cell := range lower {
			matched := false
			for _, alias := range aliases {
				if strings.Contains(cell, alias) {
					matched = true
					break
				}
			}
			if matched {
				idx[key] = i
				break
			}
		}
	}
	if _, ok := idx["link"]; !ok {
		return nil
	}
	return idx
}

// matchDate recognizes a date header line and returns its normalized form
// ("20 August", "Sep 5, 2025"), or "" when the text is not a date header.
func matchDate(text string) string {
	t := strings.TrimSpace(text)
	if t == "" {
		return ""
	}
	for i, pat := range datePatterns {
		m := pat.FindStringSubmatch(t)
		if m == nil {
			continue
		}
		switch i {
		case 0, 1:
			return fmt.Sprintf("%s August", m[1])
		case 2:
			return fmt.Sprintf("%s August", m[2])
		default:
			mon, day, year := m[1], m[2], m[3]
			if mon != "" {
				norm, ok := monthAbbrev[strings.ToLower(mon)]
				if !ok {
					norm = titler.String(mon)
				}
				if year != "" {
					return fmt.Sprintf("%s %s, %s", norm, day, year)
				}
				return fmt.Sprintf("%s %s", norm, day)
			}
			if year != "" {
				return fmt.Sprintf("%s, %s", day, year)
			}
			return day
		}
	}
	return ""
}

// ParseGrid walks a tab's 2D value grid and returns one SheetRow per
// LinkedIn URL found. Column headers, when present, supply company, role,
// and location; date header lines set the date for subsequent rows. Cells
// are grid-scanned regardless, so a sheet with no recognizable header
// still yields its links.
func ParseGrid(values [][]string, sheetName, tabTitle string) []model.SheetRow {
	var (
		out       []model.SheetRow
		headerIdx map[string]int
		date      string
	)

	for ridx, row := range values {
		rowNumber := ridx + 1

		if headerIdx == nil {
			if hdr := detectHeader(row); hdr != nil {
				headerIdx = hdr
				continue
			}
		}

		// Date header line?
		var joined []string
		for _, c := range row {
			if c != "" {
				joined = append(joined, c)
			}
		}
		text := strings.Join(joined, " ")
		if d := matchDate(text); d != "" {
			date = d
			// A date header row can still carry a link in another cell.
			if !rowHasLinkOutsideDate(row) {
				continue
			}
		}

		cell := func(key string) string {
			i, ok := headerIdx[key]
			if !ok || i >= len(row) {
				return ""
			}
			return strings.TrimSpace(row[i])
		}

		var urls []string
		if headerIdx != nil {
			if link := cell("link"); link != "" {
				urls = ExtractURLs(link)
				if len(urls) == 0 && IsLinkedInURL(link) {
					urls = []string{NormalizeURL(link)}
				}
			}
		}
		if len(urls) == 0 {
			for _, c := range row {
				urls = append(urls, ExtractURLs(c)...)
			}
		}

		for _, u := range urls {
			out = append(out, model.SheetRow{
				Date:      date,
				Company:   cell("company"),
				Role:      cell("role"),
				Location:  cell("location"),
				URL:       u,
				SheetName: sheetName,
				TabTitle:  tabTitle,
				RowNumber: rowNumber,
			})
		}
	}

	return out
}

func rowHasLinkOutsideDate(row []string) bool {
	for _, c := range row {
		if len(ExtractURLs(c)) > 0 {
			return true
		}
	}
	return false
}

// DedupeRows drops rows whose normalized URL was already seen, preserving
// first-seen order.
func DedupeRows(rows []model.SheetRow) []model.SheetRow {
	seen := make(map[string]bool, len(rows))
	out := make([]model.SheetRow, 0, len(rows))
	for _, r := range rows {
		key := strings.ToLower(r.URL)
		if r.URL == "" || seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, r)
	}
	return out
}
