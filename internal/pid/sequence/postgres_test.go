package sequence

import (
	"context"
	"database/sql"
	"errors"
	"regexp"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"prms/pkg/platform/sentinel"
)

func setupMockDB(t *testing.T) (sqlmock.Sqlmock, *Postgres) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return mock, NewPostgres(db)
}

func TestPostgres_Next(t *testing.T) {
	ctx := context.Background()
	mock, a := setupMockDB(t)

	mock.ExpectQuery(regexp.QuoteMeta("INSERT INTO pid_sequences")).
		WithArgs("KTH", "2508").
		WillReturnRows(sqlmock.NewRows([]string{"last_value"}).AddRow(74))

	got, err := a.Next(ctx, aug2025)
	require.NoError(t, err)
	assert.Equal(t, 74, got)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgres_NextConnectionFailureIsUnavailable(t *testing.T) {
	ctx := context.Background()
	mock, a := setupMockDB(t)

	mock.ExpectQuery(regexp.QuoteMeta("INSERT INTO pid_sequences")).
		WithArgs("KTH", "2508").
		WillReturnError(&pq.Error{Code: "08006", Message: "connection failure"})

	_, err := a.Next(ctx, aug2025)
	require.Error(t, err)
	assert.ErrorIs(t, err, sentinel.ErrUnavailable)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgres_NextOtherFailuresAreNotRetryable(t *testing.T) {
	ctx := context.Background()
	mock, a := setupMockDB(t)

	mock.ExpectQuery(regexp.QuoteMeta("INSERT INTO pid_sequences")).
		WithArgs("KTH", "2508").
		WillReturnError(&pq.Error{Code: "42P01", Message: `relation "pid_sequences" does not exist`})

	_, err := a.Next(ctx, aug2025)
	require.Error(t, err)
	assert.False(t, errors.Is(err, sentinel.ErrUnavailable))
}

func TestIsConnectionFailure(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want bool
	}{
		{"lib/pq connection exception", &pq.Error{Code: "08001"}, true},
		{"pgx connection exception", &pgconn.PgError{Code: "08006"}, true},
		{"pgx undefined table", &pgconn.PgError{Code: "42P01"}, false},
		{"closed connection", sql.ErrConnDone, true},
		{"plain error", errors.New("boom"), false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, isConnectionFailure(tc.err))
		})
	}
}

func TestPostgres_Current(t *testing.T) {
	ctx := context.Background()

	t.Run("returns last issued value", func(t *testing.T) {
		mock, a := setupMockDB(t)
		mock.ExpectQuery(regexp.QuoteMeta("SELECT last_value FROM pid_sequences")).
			WithArgs("KTH", "2508").
			WillReturnRows(sqlmock.NewRows([]string{"last_value"}).AddRow(12))

		got, err := a.Current(ctx, aug2025)
		require.NoError(t, err)
		assert.Equal(t, 12, got)
	})

	t.Run("unknown period is not found", func(t *testing.T) {
		mock, a := setupMockDB(t)
		mock.ExpectQuery(regexp.QuoteMeta("SELECT last_value FROM pid_sequences")).
			WithArgs("KTH", "2509").
			WillReturnError(sql.ErrNoRows)

		_, err := a.Current(ctx, sep2025)
		assert.ErrorIs(t, err, sentinel.ErrNotFound)
	})
}
