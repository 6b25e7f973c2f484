package model

import "strconv"

// CSVHeader is the exact column order of the ingestion CSV. Downstream
// COPY-based bulk load depends on these names and this order.
var CSVHeader = []string{"date", "company", "role", "location", "url", "sheet_name", "tab_title", "row_number"}

// SheetRow is one parsed data row from a spreadsheet or Notion source,
// carrying the link plus its provenance.
type SheetRow struct {
	Date      string `json:"date"`
	Company   string `json:"company"`
	Role      string `json:"role"`
	Location  string `json:"location"`
	URL       string `json:"url"`
	SheetName string `json:"sheet_name"`
	TabTitle  string `json:"tab_title"`
	RowNumber int    `json:"row_number"`
}

// Record returns the row in CSVHeader order.
func (r SheetRow) Record() []string {
	return []string{r.Date, r.Company, r.Role, r.Location, r.URL, r.SheetName, r.TabTitle, strconv.Itoa(r.RowNumber)}
}
