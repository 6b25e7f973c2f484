package ingest

import (
	"strings"

	"github.com/rotisserie/eris"
	"github.com/tealeg/xlsx/v2"
)

// ReadXLSXGrid loads a local spreadsheet export and returns the value grid
// of the tab whose name contains monthFilter (case-insensitive; the last
// matching tab wins). With no filter or no match it falls back to the
// first tab.
func ReadXLSXGrid(path, monthFilter string) (grid [][]string, tabTitle string, err error) {
	f, err := xlsx.OpenFile(path)
	if err != nil {
		return nil, "", eris.Wrapf(err, "ingest: open xlsx %s", path)
	}
	if len(f.Sheets) == 0 {
		return nil, "", eris.Errorf("ingest: xlsx %s has no sheets", path)
	}

	sheet := f.Sheets[0]
	if month := strings.ToLower(strings.TrimSpace(monthFilter)); month != "" {
		for _, s := range f.Sheets {
			if strings.Contains(strings.ToLower(s.Name), month) {
				sheet = s
			}
		}
	}

	grid = make([][]string, 0, len(sheet.Rows))
	for _, row := range sheet.Rows {
		cells := make([]string, len(row.Cells))
		for j, cell := range row.Cells {
			cells[j] = cell.String()
		}
		grid = append(grid, cells)
	}
	return grid, sheet.Name, nil
}
