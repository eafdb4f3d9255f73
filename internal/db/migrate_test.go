package db

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMigrations_Ordered(t *testing.T) {
	migrations, err := Migrations()
	require.NoError(t, err)

	names := make([]string, len(migrations))
	for i, m := range migrations {
		names[i] = m.Name
		assert.NotEmpty(t, strings.TrimSpace(m.SQL), m.Name)
	}
	assert.Equal(t, []string{
		"migrations/001_catalog.sql",
		"migrations/002_users.sql",
		"migrations/003_ratings.sql",
		"migrations/004_watch_history.sql",
		"migrations/005_recommendations.sql",
	}, names)
}

func TestMigrations_UpsertIndexesPresent(t *testing.T) {
	migrations, err := Migrations()
	require.NoError(t, err)

	var all strings.Builder
	for _, m := range migrations {
		all.WriteString(m.SQL)
	}
	schema := all.String()

	for _, idx := range upsertIndexes {
		assert.Contains(t, schema, idx.SQL+";", "migrations and startup must build the same %s", idx.Name)
	}
}

func TestEnsureUpsertIndexes(t *testing.T) {
	conn, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherEqual))
	require.NoError(t, err)
	defer conn.Close()

	for _, idx := range upsertIndexes {
		mock.ExpectExec(idx.SQL).WillReturnResult(sqlmock.NewResult(0, 0))
	}

	require.NoError(t, EnsureUpsertIndexes(context.Background(), conn))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestEnsureUpsertIndexes_Duplicates(t *testing.T) {
	conn, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherEqual))
	require.NoError(t, err)
	defer conn.Close()

	mock.ExpectExec(upsertIndexes[0].SQL).WillReturnError(&pgconn.PgError{
		Code:    pgUniqueViolation,
		Message: `could not create unique index "ratings_user_movie_key"`,
	})

	err = EnsureUpsertIndexes(context.Background(), conn)

	require.ErrorIs(t, err, ErrDuplicateRows)
	assert.Contains(t, err.Error(), "ratings")
	assert.NoError(t, mock.ExpectationsWereMet(), "later indexes must not be attempted")
}

func TestEnsureUpsertIndexes_MissingTable(t *testing.T) {
	conn, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherEqual))
	require.NoError(t, err)
	defer conn.Close()

	mock.ExpectExec(upsertIndexes[0].SQL).WillReturnError(&pgconn.PgError{Code: pgUndefinedTable})

	err = EnsureUpsertIndexes(context.Background(), conn)

	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrDuplicateRows)
	assert.Contains(t, err.Error(), "creating index ratings_user_movie_key")
}

func TestApply(t *testing.T) {
	conn, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherEqual))
	require.NoError(t, err)
	defer conn.Close()

	migrations, err := Migrations()
	require.NoError(t, err)
	for _, m := range migrations {
		mock.ExpectExec(m.SQL).WillReturnResult(sqlmock.NewResult(0, 0))
	}

	require.NoError(t, Apply(context.Background(), conn))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestApply_StopsOnFailure(t *testing.T) {
	conn, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherEqual))
	require.NoError(t, err)
	defer conn.Close()

	migrations, err := Migrations()
	require.NoError(t, err)
	mock.ExpectExec(migrations[0].SQL).WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec(migrations[1].SQL).WillReturnError(errors.New("permission denied"))

	err = Apply(context.Background(), conn)

	require.Error(t, err)
	assert.Contains(t, err.Error(), "applying migrations/002_users.sql")
	assert.Contains(t, err.Error(), "permission denied")
	assert.NoError(t, mock.ExpectationsWereMet(), "later migrations must not run")
}
