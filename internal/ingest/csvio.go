package ingest

import (
	"encoding/csv"
	"os"
	"path/filepath"
	"strconv"

	"github.com/rotisserie/eris"

	"github.com/sells-group/linkpipe/internal/model"
)

// WriteCSV writes rows to path with the fixed ingestion header, creating
// parent directories as needed. Header names and order are a contract with
// the COPY-based bulk load downstream.
func WriteCSV(path string, rows []model.SheetRow) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return eris.Wrapf(err, "ingest: create dir for %s", path)
	}
	f, err := os.Create(path)
	if err != nil {
		return eris.Wrapf(err, "ingest: create %s", path)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := w.Write(model.CSVHeader); err != nil {
		return eris.Wrap(err, "ingest: write header")
	}
	for _, r := range rows {
		if err := w.Write(r.Record()); err != nil {
			return eris.Wrap(err, "ingest: write row")
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return eris.Wrap(err, "ingest: flush")
	}
	return nil
}

// ReadCSV loads an ingestion CSV back into sheet rows. The header row is
// validated against the contract before any data is accepted.
func ReadCSV(path string) ([]model.SheetRow, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, eris.Wrapf(err, "ingest: open %s", path)
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = len(model.CSVHeader)

	records, err := r.ReadAll()
	if err != nil {
		return nil, eris.Wrapf(err, "ingest: read %s", path)
	}
	if len(records) == 0 {
		return nil, eris.New("ingest: empty CSV")
	}
	for i, name := range model.CSVHeader {
		if records[0][i] != name {
			return nil, eris.Errorf("ingest: unexpected CSV header %q at column %d, want %q", records[0][i], i, name)
		}
	}

	rows := make([]model.SheetRow, 0, len(records)-1)
	for _, rec := range records[1:] {
		rowNumber, _ := strconv.Atoi(rec[7])
		rows = append(rows, model.SheetRow{
			Date:      rec[0],
			Company:   rec[1],
			Role:      rec[2],
			Location:  rec[3],
			URL:       rec[4],
			SheetName: rec[5],
			TabTitle:  rec[6],
			RowNumber: rowNumber,
		})
	}
	return rows, nil
}
