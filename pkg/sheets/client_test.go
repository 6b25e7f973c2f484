package sheets

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/linkpipe/internal/resilience"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return NewClient("test-key", WithBaseURL(srv.URL), WithHTTPClient(srv.Client()), WithRateLimit(0))
}

// TestGetSpreadsheet verifies metadata decoding and that the API key is
// sent as a query parameter.
func TestGetSpreadsheet(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "test-key", r.URL.Query().Get("key"))
		assert.Contains(t, r.URL.Path, "/spreadsheets/sheet-abc")
		w.Write([]byte(`{
			"properties": {"title": "Opportunity Tracker"},
			"sheets": [
				{"properties": {"sheetId": 0, "title": "July", "index": 0}},
				{"properties": {"sheetId": 173, "title": "August 2025", "index": 1}}
			]
		}`))
	})

	meta, err := c.GetSpreadsheet(context.Background(), "sheet-abc")
	require.NoError(t, err)
	assert.Equal(t, "Opportunity Tracker", meta.Properties.Title)
	require.Len(t, meta.Sheets, 2)
	assert.Equal(t, "August 2025", meta.Sheets[1].Properties.Title)
	assert.Equal(t, int64(173), meta.Sheets[1].Properties.SheetID)
}

// TestGetValues verifies mixed-type cell flattening. The Sheets API returns
// numeric cells as JSON numbers.
func TestGetValues(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{
			"values": [
				["Company", "Role", "Link"],
				["Acme", 42, "https://linkedin.com/jobs/view/1/"],
				["Beta", 3.5, null]
			]
		}`))
	})

	grid, err := c.GetValues(context.Background(), "sheet-abc", "August 2025")
	require.NoError(t, err)
	require.Len(t, grid, 3)
	assert.Equal(t, []string{"Company", "Role", "Link"}, grid[0])
	assert.Equal(t, "42", grid[1][1])
	assert.Equal(t, "3.5", grid[2][1])
	assert.Equal(t, "", grid[2][2])
}

// TestGetValues_HTTPError verifies that non-200 responses surface the
// status and a body snippet.
func TestGetValues_HTTPError(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error": {"status": "PERMISSION_DENIED"}}`, http.StatusForbidden)
	})

	_, err := c.GetValues(context.Background(), "sheet-abc", "August")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "status 403")
	assert.Contains(t, err.Error(), "PERMISSION_DENIED")
}

// TestGetValues_TransientStatus verifies that throttling and server
// failures come back marked retryable while client errors do not.
func TestGetValues_TransientStatus(t *testing.T) {
	throttled := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error": {"status": "RESOURCE_EXHAUSTED"}}`, http.StatusTooManyRequests)
	})
	_, err := throttled.GetValues(context.Background(), "sheet-abc", "August")
	require.Error(t, err)
	assert.True(t, resilience.IsTransient(err), "429 must be retryable")

	denied := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error": {"status": "PERMISSION_DENIED"}}`, http.StatusForbidden)
	})
	_, err = denied.GetValues(context.Background(), "sheet-abc", "August")
	require.Error(t, err)
	assert.False(t, resilience.IsTransient(err), "403 must not be retryable")
}

// TestGetSpreadsheet_BadJSON verifies decode errors are wrapped.
func TestGetSpreadsheet_BadJSON(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`not json`))
	})

	_, err := c.GetSpreadsheet(context.Background(), "sheet-abc")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "decode body")
}
