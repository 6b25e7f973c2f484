package ingest

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/linkpipe/internal/model"
)

func TestMatchDate(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"Opportunities Posted on 20th August", "20 August"},
		{"Opportunity posted on 3rd August 2025", "3 August"},
		{"21st August", "21 August"},
		{"August 5th", "5 August"},
		{"Jobs updated on Sep 5, 2025", "Sep 5, 2025"},
		{"Jobs updated on September 5 2025", "Sep 5, 2025"},
		{"jobs updated on 12th", "12"},
		// A misspelled month keeps its spelling, title cased.
		{"Jobs updated on septmber 5, 2025", "Septmber 5, 2025"},
		{"Acme Corp", ""},
		{"", ""},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, matchDate(tt.in))
		})
	}
}

func TestDetectHeader(t *testing.T) {
	idx := detectHeader([]string{"Company", "Role", "Location", "Job Link"})
	require.NotNil(t, idx)
	assert.Equal(t, 0, idx["company"])
	assert.Equal(t, 1, idx["role"])
	assert.Equal(t, 2, idx["location"])
	assert.Equal(t, 3, idx["link"])

	// A row without a link column is not a header.
	assert.Nil(t, detectHeader([]string{"Company", "Role", "Location"}))
	assert.Nil(t, detectHeader([]string{"Acme", "Engineer", "Remote"}))
}

func TestParseGrid_WithHeader(t *testing.T) {
	grid := [][]string{
		{"Opportunities Posted on 20th August"},
		{"Company", "Role", "Location", "Link"},
		{"Acme", "Backend Engineer", "Remote", "https://linkedin.com/jobs/view/1?trk=a"},
		{"Beta", "Data Analyst", "NYC", "https://linkedin.com/jobs/view/2"},
		{"", "", "", ""},
	}

	rows := ParseGrid(grid, "Tracker", "August")
	require.Len(t, rows, 2)

	assert.Equal(t, model.SheetRow{
		Date:      "20 August",
		Company:   "Acme",
		Role:      "Backend Engineer",
		Location:  "Remote",
		URL:       "https://linkedin.com/jobs/view/1",
		SheetName: "Tracker",
		TabTitle:  "August",
		RowNumber: 3,
	}, rows[0])
	assert.Equal(t, "https://linkedin.com/jobs/view/2", rows[1].URL)
	assert.Equal(t, "20 August", rows[1].Date)
}

func TestParseGrid_DateRowsSwitchDates(t *testing.T) {
	grid := [][]string{
		{"Company", "Role", "Location", "Link"},
		{"20th August"},
		{"Acme", "Engineer", "", "https://linkedin.com/jobs/view/1"},
		{"21st August"},
		{"Beta", "Analyst", "", "https://linkedin.com/jobs/view/2"},
	}

	rows := ParseGrid(grid, "Tracker", "August")
	require.Len(t, rows, 2)
	assert.Equal(t, "20 August", rows[0].Date)
	assert.Equal(t, "21 August", rows[1].Date)
}

// A sheet with no recognizable header still yields its links through the
// grid scan, including a URL sharing a row with the date text.
func TestParseGrid_NoHeaderGridScan(t *testing.T) {
	grid := [][]string{
		{"Opportunities Posted on 20th August", "", "https://www.linkedin.com/jobs/view/123?trk=abc"},
		{"some notes", "https://www.linkedin.com/jobs/view/123?trk=xyz"},
	}

	rows := ParseGrid(grid, "Tracker", "August")
	require.Len(t, rows, 2)
	assert.Equal(t, "20 August", rows[0].Date)
	assert.Equal(t, "https://www.linkedin.com/jobs/view/123", rows[0].URL)
	assert.Equal(t, 1, rows[0].RowNumber)
	assert.Equal(t, "https://www.linkedin.com/jobs/view/123", rows[1].URL)

	deduped := DedupeRows(rows)
	require.Len(t, deduped, 1)
	assert.Equal(t, "20 August", deduped[0].Date)
}

func TestParseGrid_MultipleURLsInOneCell(t *testing.T) {
	grid := [][]string{
		{"see https://linkedin.com/jobs/view/1 and https://linkedin.com/jobs/view/2"},
	}
	rows := ParseGrid(grid, "Tracker", "August")
	require.Len(t, rows, 2)
	assert.Equal(t, rows[0].RowNumber, rows[1].RowNumber)
}

func TestDedupeRows(t *testing.T) {
	rows := []model.SheetRow{
		{URL: "https://linkedin.com/jobs/view/1", Company: "Acme"},
		{URL: "https://LINKEDIN.com/jobs/view/1", Company: "Acme dup"},
		{URL: "https://linkedin.com/jobs/view/2"},
		{URL: ""},
	}
	got := DedupeRows(rows)
	require.Len(t, got, 2)
	assert.Equal(t, "Acme", got[0].Company)
	assert.Equal(t, "https://linkedin.com/jobs/view/2", got[1].URL)
}
