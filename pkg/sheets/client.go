// Package sheets provides a read-only client for the Google Sheets API.
package sheets

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/rotisserie/eris"
	"golang.org/x/time/rate"

	"github.com/sells-group/linkpipe/internal/resilience"
)

// Client defines the Google Sheets read operations used by ingestion.
type Client interface {
	// GetSpreadsheet fetches spreadsheet metadata (title and tab list).
	GetSpreadsheet(ctx context.Context, spreadsheetID string) (*Spreadsheet, error)
	// GetValues fetches the full value grid of a tab (A:Z, by rows).
	GetValues(ctx context.Context, spreadsheetID, tabTitle string) ([][]string, error)
}

// Spreadsheet is the metadata subset ingestion needs.
type Spreadsheet struct {
	Properties SpreadsheetProperties `json:"properties"`
	Sheets     []Sheet               `json:"sheets"`
}

// SpreadsheetProperties holds the document title.
type SpreadsheetProperties struct {
	Title string `json:"title"`
}

// Sheet is one worksheet tab.
type Sheet struct {
	Properties SheetProperties `json:"properties"`
}

// SheetProperties identifies a tab.
type SheetProperties struct {
	SheetID int64  `json:"sheetId"`
	Title   string `json:"title"`
	Index   int    `json:"index"`
}

// valueRange is the values.get response body.
type valueRange struct {
	Values [][]any `json:"values"`
}

// Option configures the Sheets client.
type Option func(*httpClient)

// WithBaseURL sets a custom base URL (for testing).
func WithBaseURL(base string) Option {
	return func(c *httpClient) {
		c.baseURL = base
	}
}

// WithHTTPClient overrides the underlying HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *httpClient) {
		c.http = hc
	}
}

// WithRateLimit overrides the default request throttle (1 req/s per the
// Sheets API read quota for unauthenticated keys).
func WithRateLimit(rps float64) Option {
	return func(c *httpClient) {
		if rps > 0 {
			c.limiter = rate.NewLimiter(rate.Limit(rps), max(int(rps), 1))
		} else {
			c.limiter = nil
		}
	}
}

type httpClient struct {
	apiKey  string
	baseURL string
	http    *http.Client
	limiter *rate.Limiter
}

// NewClient creates a Sheets client authenticated by API key.
func NewClient(apiKey string, opts ...Option) Client {
	c := &httpClient{
		apiKey:  apiKey,
		baseURL: "https://sheets.googleapis.com/v4",
		http:    &http.Client{Timeout: 30 * time.Second},
		limiter: rate.NewLimiter(1, 1),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *httpClient) GetSpreadsheet(ctx context.Context, spreadsheetID string) (*Spreadsheet, error) {
	u := fmt.Sprintf("%s/spreadsheets/%s?fields=properties.title,sheets.properties&key=%s",
		c.baseURL, url.PathEscape(spreadsheetID), url.QueryEscape(c.apiKey))

	var meta Spreadsheet
	if err := c.getJSON(ctx, u, &meta); err != nil {
		return nil, eris.Wrapf(err, "sheets: get spreadsheet %s", spreadsheetID)
	}
	return &meta, nil
}

func (c *httpClient) GetValues(ctx context.Context, spreadsheetID, tabTitle string) ([][]string, error) {
	rangeA1 := fmt.Sprintf("%s!A:Z", tabTitle)
	u := fmt.Sprintf("%s/spreadsheets/%s/values/%s?majorDimension=ROWS&key=%s",
		c.baseURL, url.PathEscape(spreadsheetID), url.PathEscape(rangeA1), url.QueryEscape(c.apiKey))

	var vr valueRange
	if err := c.getJSON(ctx, u, &vr); err != nil {
		return nil, eris.Wrapf(err, "sheets: get values %s!%s", spreadsheetID, tabTitle)
	}
	return toStringGrid(vr.Values), nil
}

func (c *httpClient) getJSON(ctx context.Context, u string, out any) error {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return eris.Wrap(err, "rate limit")
		}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return eris.Wrap(err, "build request")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return eris.Wrap(err, "do request")
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return eris.Wrap(err, "read body")
	}
	if resp.StatusCode != http.StatusOK {
		err := eris.Errorf("status %d: %s", resp.StatusCode, truncate(string(body), 200))
		if resilience.IsTransientHTTPStatus(resp.StatusCode) {
			return resilience.NewTransientError(err, resp.StatusCode)
		}
		return err
	}

	if err := json.Unmarshal(body, out); err != nil {
		return eris.Wrap(err, "decode body")
	}
	return nil
}

// toStringGrid flattens the API's mixed-type cells to strings; numbers in
// cells arrive as JSON numbers.
func toStringGrid(values [][]any) [][]string {
	grid := make([][]string, len(values))
	for i, row := range values {
		cells := make([]string, len(row))
		for j, v := range row {
			switch t := v.(type) {
			case string:
				cells[j] = t
			case float64:
				cells[j] = formatNumber(t)
			case bool:
				cells[j] = fmt.Sprintf("%t", t)
			case nil:
				cells[j] = ""
			default:
				cells[j] = fmt.Sprintf("%v", t)
			}
		}
		grid[i] = cells
	}
	return grid
}

func formatNumber(f float64) string {
	if f == float64(int64(f)) {
		return fmt.Sprintf("%d", int64(f))
	}
	return fmt.Sprintf("%g", f)
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
