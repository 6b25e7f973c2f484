package store

import (
	"context"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/linkpipe/internal/model"
)

func TestUpsertLinks_EmptyRows(t *testing.T) {
	s, mock := newMockStore(t)

	got, err := s.UpsertLinks(context.Background(), nil)
	require.NoError(t, err)
	assert.Equal(t, int64(0), got.RowsLoaded)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUpsertLinks_CopyAndUpsert(t *testing.T) {
	s, mock := newMockStore(t)

	mock.ExpectBegin()
	mock.ExpectExec(`CREATE TEMP TABLE tmp_links`).
		WillReturnResult(pgxmock.NewResult("CREATE", 0))
	mock.ExpectCopyFrom(pgx.Identifier{"tmp_links"}, tmpLinkColumns).
		WillReturnResult(2)
	mock.ExpectExec(`INSERT INTO linkedin_links`).
		WillReturnResult(pgxmock.NewResult("INSERT", 2))
	mock.ExpectExec(`INSERT INTO link_provenance`).
		WillReturnResult(pgxmock.NewResult("INSERT", 2))
	mock.ExpectCommit()

	rows := []model.SheetRow{
		{Date: "20 August", URL: "https://www.linkedin.com/jobs/view/123", SheetName: "FOC", TabTitle: "Aug", RowNumber: 3},
		{Date: "20 August", URL: "https://www.linkedin.com/posts/acme_hiring", SheetName: "FOC", TabTitle: "Aug", RowNumber: 4},
	}
	got, err := s.UpsertLinks(context.Background(), rows)
	require.NoError(t, err)
	assert.Equal(t, int64(2), got.RowsLoaded)
	assert.Equal(t, int64(2), got.Upserted)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGetLink_NotFound(t *testing.T) {
	s, mock := newMockStore(t)

	mock.ExpectQuery(`SELECT id, url, url_canonical`).
		WithArgs(int64(99)).
		WillReturnError(pgx.ErrNoRows)

	got, err := s.GetLink(context.Background(), 99)
	require.NoError(t, err)
	assert.Nil(t, got)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCountByStatus(t *testing.T) {
	s, mock := newMockStore(t)

	rows := pgxmock.NewRows([]string{"status", "count"}).
		AddRow("queued", int64(4)).
		AddRow("scraped", int64(9))
	mock.ExpectQuery(`SELECT COALESCE\(status,'new'\), COUNT\(\*\) FROM linkedin_links`).
		WillReturnRows(rows)

	got, err := s.CountByStatus(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(4), got[model.StatusQueued])
	assert.Equal(t, int64(9), got[model.StatusScraped])
	assert.NoError(t, mock.ExpectationsWereMet())
}
