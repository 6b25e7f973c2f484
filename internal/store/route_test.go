package store

import (
	"context"
	"strings"
	"testing"

	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/linkpipe/internal/model"
)

// The routing guard and the mark insert must both use the event kind the
// model declares.
func TestRouteSQL_UsesModelEventKind(t *testing.T) {
	assert.Equal(t, 2, strings.Count(routeSQL, "'"+model.EventLinkRouted+"'"))
}

func TestRouteCandidates_ReturnsMarkedLinks(t *testing.T) {
	s, mock := newMockStore(t)

	rows := pgxmock.NewRows([]string{"id", "url", "classification"}).
		AddRow(int64(1), "https://www.linkedin.com/jobs/view/1", "job").
		AddRow(int64(2), "https://www.linkedin.com/posts/x", "post")
	mock.ExpectQuery(`WITH cand AS`).
		WithArgs(100).
		WillReturnRows(rows)

	got, err := s.RouteCandidates(context.Background(), 100)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, int64(1), got[0].LinkID)
	assert.Equal(t, model.ClassJob, got[0].Classification)
	assert.Equal(t, model.ClassPost, got[1].Classification)
	assert.NoError(t, mock.ExpectationsWereMet())
}

// A second pass over already-routed links yields nothing: the link.routed
// event insert conflicts away every candidate.
func TestRouteCandidates_AlreadyRoutedIsEmpty(t *testing.T) {
	s, mock := newMockStore(t)

	mock.ExpectQuery(`WITH cand AS`).
		WithArgs(100).
		WillReturnRows(pgxmock.NewRows([]string{"id", "url", "classification"}))

	got, err := s.RouteCandidates(context.Background(), 100)
	require.NoError(t, err)
	assert.Empty(t, got)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRouteCandidates_DefaultsBatchSize(t *testing.T) {
	s, mock := newMockStore(t)

	mock.ExpectQuery(`WITH cand AS`).
		WithArgs(100).
		WillReturnRows(pgxmock.NewRows([]string{"id", "url", "classification"}))

	_, err := s.RouteCandidates(context.Background(), 0)
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}
