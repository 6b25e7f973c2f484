package ingest

import (
	"context"
	"testing"

	"github.com/jomei/notionapi"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/linkpipe/internal/resilience"
	"github.com/sells-group/linkpipe/pkg/sheets"
)

type stubSheets struct {
	meta   *sheets.Spreadsheet
	grid   [][]string
	getErr error
}

func (s *stubSheets) GetSpreadsheet(ctx context.Context, id string) (*sheets.Spreadsheet, error) {
	if s.getErr != nil {
		return nil, s.getErr
	}
	return s.meta, nil
}

func (s *stubSheets) GetValues(ctx context.Context, id, tab string) ([][]string, error) {
	return s.grid, nil
}

type stubNotion struct {
	blocks []notionapi.Block
	err    error
}

func (s *stubNotion) GetBlockChildren(ctx context.Context, blockID, cursor string) (*notionapi.GetChildrenResponse, error) {
	if s.err != nil {
		return nil, s.err
	}
	return &notionapi.GetChildrenResponse{Results: s.blocks}, nil
}

func noRetry() resilience.RetryConfig {
	return resilience.RetryConfig{MaxAttempts: 1}
}

func TestRunner_SheetAndNotionCombined(t *testing.T) {
	sc := &stubSheets{
		meta: &sheets.Spreadsheet{
			Properties: sheets.SpreadsheetProperties{Title: "Tracker"},
			Sheets: []sheets.Sheet{
				{Properties: sheets.SheetProperties{SheetID: 1, Title: "August", Index: 0}},
			},
		},
		grid: [][]string{
			{"Opportunities Posted on 20th August"},
			{"Company", "Role", "Location", "Link"},
			{"Acme", "Engineer", "Remote", "https://linkedin.com/jobs/view/1?trk=a"},
		},
	}
	nc := &stubNotion{
		blocks: []notionapi.Block{
			&notionapi.ParagraphBlock{
				BasicBlock: notionapi.BasicBlock{ID: "b1", Type: notionapi.BlockTypeParagraph},
				Paragraph: notionapi.Paragraph{RichText: []notionapi.RichText{
					{PlainText: "Analyst", Href: "https://linkedin.com/jobs/view/2?trk=b"},
					{PlainText: "unrelated", Href: "https://example.com/x"},
					{PlainText: "dup", Href: "https://linkedin.com/jobs/view/1?trk=c"},
				}},
			},
		},
	}

	r := &Runner{
		Sheets:      sc,
		Notion:      nc,
		MonthFilter: "aug",
		OutputDir:   t.TempDir(),
		Retry:       noRetry(),
		Sources: []Source{
			{Kind: SourceSheet, Name: "tracker", Ref: "https://docs.google.com/spreadsheets/d/abc/edit"},
			{Kind: SourceNotion, Name: "notion:page-1", Ref: "page-1"},
		},
	}

	res, err := r.Run(context.Background())
	require.NoError(t, err)

	// Three links harvested, one is a cross-source duplicate.
	assert.Equal(t, 3, res.Harvested)
	require.Len(t, res.Rows, 2)
	assert.Equal(t, "https://linkedin.com/jobs/view/1", res.Rows[0].URL)
	assert.Equal(t, "20 August", res.Rows[0].Date)
	assert.Equal(t, "Tracker", res.Rows[0].SheetName)
	assert.Equal(t, "https://linkedin.com/jobs/view/2", res.Rows[1].URL)
	assert.Equal(t, "notion:page-1", res.Rows[1].SheetName)

	// The CSV on disk reads back to the same rows.
	onDisk, err := ReadCSV(res.CSVPath)
	require.NoError(t, err)
	assert.Equal(t, res.Rows, onDisk)
}

func TestRunner_SourceFailureIsIsolated(t *testing.T) {
	sc := &stubSheets{getErr: assert.AnError}
	nc := &stubNotion{
		blocks: []notionapi.Block{
			&notionapi.ParagraphBlock{
				BasicBlock: notionapi.BasicBlock{ID: "b1", Type: notionapi.BlockTypeParagraph},
				Paragraph: notionapi.Paragraph{RichText: []notionapi.RichText{
					{PlainText: "role", Href: "https://linkedin.com/jobs/view/5"},
				}},
			},
		},
	}

	r := &Runner{
		Sheets:      sc,
		Notion:      nc,
		MonthFilter: "aug",
		OutputDir:   t.TempDir(),
		Retry:       noRetry(),
		Sources: []Source{
			{Kind: SourceSheet, Name: "broken", Ref: "https://docs.google.com/spreadsheets/d/abc/edit"},
			{Kind: SourceNotion, Name: "notion:page-1", Ref: "page-1"},
		},
	}

	res, err := r.Run(context.Background())
	require.NoError(t, err)
	require.Len(t, res.Rows, 1)
	assert.Error(t, res.Sources[0].Err)
	assert.NoError(t, res.Sources[1].Err)
}

func TestRunner_AllSourcesFailed(t *testing.T) {
	r := &Runner{
		Notion:    &stubNotion{err: assert.AnError},
		OutputDir: t.TempDir(),
		Retry:     noRetry(),
		Sources: []Source{
			{Kind: SourceNotion, Name: "notion:page-1", Ref: "page-1"},
		},
	}

	_, err := r.Run(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "all 1 sources failed")
}

func TestRunner_NoSources(t *testing.T) {
	r := &Runner{OutputDir: t.TempDir(), Retry: noRetry()}
	_, err := r.Run(context.Background())
	require.Error(t, err)
}

func TestRunner_NoMatchingTab(t *testing.T) {
	sc := &stubSheets{
		meta: &sheets.Spreadsheet{
			Sheets: []sheets.Sheet{
				{Properties: sheets.SheetProperties{SheetID: 7, Title: "July", Index: 0}},
			},
		},
	}
	r := &Runner{
		Sheets:      sc,
		MonthFilter: "aug",
		OutputDir:   t.TempDir(),
		Retry:       noRetry(),
		Sources: []Source{
			{Kind: SourceSheet, Name: "tracker", Ref: "https://docs.google.com/spreadsheets/d/abc/edit"},
		},
	}

	_, err := r.Run(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "all 1 sources failed")
}
