package docstore

import (
	"context"
	"errors"
	"regexp"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newMockPostgres(t *testing.T) (*PostgresStore, sqlmock.Sqlmock) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return NewPostgresStore(db, logrus.New()), mock
}

func TestPostgresStore_Get(t *testing.T) {
	t.Run("Success", func(t *testing.T) {
		s, mock := newMockPostgres(t)
		mock.ExpectQuery(regexp.QuoteMeta(sqlGetDocument)).
			WithArgs("Members", "m1").
			WillReturnRows(sqlmock.NewRows([]string{"data", "version"}).AddRow([]byte(`{"name":"Ann","liked_posts":["p1"]}`), int64(3)))

		doc, err := s.Get(context.Background(), "Members", "m1")

		require.NoError(t, err)
		assert.Equal(t, "m1", doc.ID)
		assert.Equal(t, int64(3), doc.Version)
		assert.Equal(t, "Ann", doc.Fields["name"])
		assert.Equal(t, []interface{}{"p1"}, doc.Fields["liked_posts"])
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("Not found", func(t *testing.T) {
		s, mock := newMockPostgres(t)
		mock.ExpectQuery(regexp.QuoteMeta(sqlGetDocument)).
			WithArgs("Members", "missing").
			WillReturnRows(sqlmock.NewRows([]string{"data", "version"}))

		_, err := s.Get(context.Background(), "Members", "missing")

		assert.ErrorIs(t, err, ErrNotFound)
	})

	t.Run("Database error", func(t *testing.T) {
		s, mock := newMockPostgres(t)
		mock.ExpectQuery(regexp.QuoteMeta(sqlGetDocument)).
			WillReturnError(errors.New("connection reset"))

		_, err := s.Get(context.Background(), "Members", "m1")

		require.Error(t, err)
		assert.NotErrorIs(t, err, ErrNotFound)
	})
}

func TestPostgresStore_Query(t *testing.T) {
	tests := []struct {
		name       string
		field      string
		op         Op
		value      interface{}
		wantFilter string
	}{
		{"array contains", "liked_posts", OpArrayContains, "p1", `{"liked_posts":["p1"]}`},
		{"equality", "requester_id", OpEqual, "m1", `{"requester_id":"m1"}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, mock := newMockPostgres(t)
			mock.ExpectQuery(regexp.QuoteMeta(sqlQueryByJSON)).
				WithArgs("Members", tt.wantFilter).
				WillReturnRows(sqlmock.NewRows([]string{"id", "data", "version"}).
					AddRow("a", []byte(`{}`), int64(1)).
					AddRow("b", []byte(`{}`), int64(2)))

			docs, err := s.Query(context.Background(), "Members", tt.field, tt.op, tt.value)

			require.NoError(t, err)
			require.Len(t, docs, 2)
			assert.Equal(t, "a", docs[0].ID)
			assert.Equal(t, int64(2), docs[1].Version)
			assert.NoError(t, mock.ExpectationsWereMet())
		})
	}
}

func TestPostgresBatch_Commit(t *testing.T) {
	t.Run("Success - writes run in one transaction", func(t *testing.T) {
		s, mock := newMockPostgres(t)
		mock.ExpectBegin()
		mock.ExpectExec(regexp.QuoteMeta(sqlUpdateIfVersion)).
			WithArgs("Posts", "p1", sqlmock.AnyArg(), int64(4)).
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectExec(regexp.QuoteMeta(sqlUpsert)).
			WithArgs("CalendarEvents", "e1", sqlmock.AnyArg()).
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectExec(regexp.QuoteMeta(sqlDelete)).
			WithArgs("Members", "m1").
			WillReturnResult(sqlmock.NewResult(0, 0))
		mock.ExpectCommit()

		b := s.Batch()
		b.Update("Posts", "p1", Fields{"like_count": 2}, IfVersion(4))
		b.Set("CalendarEvents", "e1", Fields{"title": "Meeting"})
		b.Delete("Members", "m1")

		require.NoError(t, b.Commit(context.Background()))
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("Error - version mismatch rolls back", func(t *testing.T) {
		s, mock := newMockPostgres(t)
		mock.ExpectBegin()
		mock.ExpectExec(regexp.QuoteMeta(sqlUpdateIfVersion)).
			WithArgs("Posts", "p1", sqlmock.AnyArg(), int64(4)).
			WillReturnResult(sqlmock.NewResult(0, 0))
		mock.ExpectRollback()

		b := s.Batch()
		b.Update("Posts", "p1", Fields{"like_count": 2}, IfVersion(4))
		b.Update("Members", "m1", Fields{"liked_posts": []string{}})

		assert.ErrorIs(t, b.Commit(context.Background()), ErrVersionMismatch)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("Error - update of missing document", func(t *testing.T) {
		s, mock := newMockPostgres(t)
		mock.ExpectBegin()
		mock.ExpectExec(regexp.QuoteMeta(sqlUpdate)).
			WithArgs("Posts", "ghost", `{"title":"x"}`).
			WillReturnResult(sqlmock.NewResult(0, 0))
		mock.ExpectRollback()

		err := s.Update(context.Background(), "Posts", "ghost", Fields{"title": "x"})

		assert.ErrorIs(t, err, ErrNotFound)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("Empty batch does not open a transaction", func(t *testing.T) {
		s, mock := newMockPostgres(t)
		require.NoError(t, s.Batch().Commit(context.Background()))
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestPostgresStore_EnsureSchema(t *testing.T) {
	s, mock := newMockPostgres(t)
	mock.ExpectExec(regexp.QuoteMeta(postgresSchema)).WillReturnResult(sqlmock.NewResult(0, 0))

	require.NoError(t, s.EnsureSchema(context.Background()))
	assert.NoError(t, mock.ExpectationsWereMet())
}
