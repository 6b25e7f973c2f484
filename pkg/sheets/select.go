package sheets

import (
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/rotisserie/eris"
)

var sheetURLRE = regexp.MustCompile(`(?i)https://docs\.google\.com/spreadsheets/d/([^/]+)/edit(?:.*?gid=(\d+))?`)

// ParseSheetURL extracts the spreadsheet id and optional gid from a
// Google Sheets URL.
func ParseSheetURL(u string) (id, gid string, err error) {
	m := sheetURLRE.FindStringSubmatch(u)
	if m == nil {
		return "", "", eris.Errorf("sheets: unrecognized sheet URL: %s", u)
	}
	return m[1], m[2], nil
}

// SelectTabByMonth picks the tab whose title contains the month filter,
// case-insensitively. Sources keep one dated tab per period; when several
// match, the one with the highest index (the most recently added) wins.
// Returns nil when nothing matches.
func SelectTabByMonth(tabs []Sheet, monthFilter string) *Sheet {
	month := strings.ToLower(strings.TrimSpace(monthFilter))
	if month == "" {
		return nil
	}

	var matches []Sheet
	for _, s := range tabs {
		if strings.Contains(strings.ToLower(s.Properties.Title), month) {
			matches = append(matches, s)
		}
	}
	if len(matches) == 0 {
		return nil
	}

	sort.SliceStable(matches, func(i, j int) bool {
		return matches[i].Properties.Index < matches[j].Properties.Index
	})
	return &matches[len(matches)-1]
}

// FindTabByGID returns the tab with the given gid, or nil.
func FindTabByGID(tabs []Sheet, gid string) *Sheet {
	if gid == "" {
		return nil
	}
	for i, s := range tabs {
		if strconv.FormatInt(s.Properties.SheetID, 10) == gid {
			return &tabs[i]
		}
	}
	return nil
}
