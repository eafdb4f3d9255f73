package db

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"sort"

	"github.com/jackc/pgx/v5/stdlib"

	"github.com/justestif/movie-recommender/internal/logging"
)

//go:embed migrations/*.sql
var migrationFS embed.FS

// Migration is one embedded schema file.
type Migration struct {
	Name string
	SQL  string
}

// Migrations returns the embedded migrations in apply order.
func Migrations() ([]Migration, error) {
	names, err := fs.Glob(migrationFS, "migrations/*.sql")
	if err != nil {
		return nil, fmt.Errorf("listing migrations: %w", err)
	}
	sort.Strings(names)

	migrations := make([]Migration, 0, len(names))
	for _, name := range names {
		body, err := migrationFS.ReadFile(name)
		if err != nil {
			return nil, fmt.Errorf("reading %s: %w", name, err)
		}
		migrations = append(migrations, Migration{Name: name, SQL: string(body)})
	}
	return migrations, nil
}

// Apply runs every migration against conn. Migrations are idempotent, so
// Apply can run on every start.
func Apply(ctx context.Context, conn *sql.DB) error {
	migrations, err := Migrations()
	if err != nil {
		return err
	}
	for _, m := range migrations {
		if _, err := conn.ExecContext(ctx, m.SQL); err != nil {
			return fmt.Errorf("applying %s: %w", m.Name, err)
		}
		logging.Debug().Str("migration", m.Name).Msg("migration applied")
	}
	return nil
}

// Migrate applies the embedded schema through the pool.
func (db *DB) Migrate(ctx context.Context) error {
	conn := stdlib.OpenDBFromPool(db.pool)
	defer conn.Close()
	return Apply(ctx, conn)
}

// ErrDuplicateRows is returned when existing rows prevent an upsert index
// from being built.
var ErrDuplicateRows = errors.New("duplicate rows block unique index")

// upsertIndex is a unique index an ON CONFLICT clause depends on.
type upsertIndex struct {
	Name  string
	Table string
	SQL   string
}

// upsertIndexes back the rating and watch-history upserts. The migrations
// create them too; these statements must stay identical.
var upsertIndexes = []upsertIndex{
	{
		Name:  "ratings_user_movie_key",
		Table: "ratings",
		SQL:   `CREATE UNIQUE INDEX IF NOT EXISTS ratings_user_movie_key ON ratings ("userId", "movieId")`,
	},
	{
		Name:  "watch_history_user_movie_key",
		Table: "watch_history",
		SQL:   `CREATE UNIQUE INDEX IF NOT EXISTS watch_history_user_movie_key ON watch_history (user_id, movie_id)`,
	},
}

// EnsureUpsertIndexes creates the unique indexes the upserts need. It runs on
// every start, independent of migrations, and fails when duplicate
// (user, movie) rows make an index impossible to build.
func EnsureUpsertIndexes(ctx context.Context, conn *sql.DB) error {
	for _, idx := range upsertIndexes {
		if _, err := conn.ExecContext(ctx, idx.SQL); err != nil {
			if pgCode(err) == pgUniqueViolation {
				return fmt.Errorf("%w: %s has duplicate (user, movie) rows; deduplicate before starting: %w",
					ErrDuplicateRows, idx.Table, err)
			}
			return fmt.Errorf("creating index %s: %w", idx.Name, err)
		}
		logging.Debug().Str("index", idx.Name).Msg("upsert index ensured")
	}
	return nil
}

// EnsureUpsertIndexes creates the upsert indexes through the pool.
func (db *DB) EnsureUpsertIndexes(ctx context.Context) error {
	conn := stdlib.OpenDBFromPool(db.pool)
	defer conn.Close()
	return EnsureUpsertIndexes(ctx, conn)
}
