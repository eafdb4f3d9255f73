package db

import (
	"errors"

	"github.com/jackc/pgx/v5/pgconn"
)

// Common errors.
var (
	ErrNotFound = errors.New("not found")

	// ErrConflict is returned when a write violates a uniqueness constraint.
	ErrConflict = errors.New("already exists")

	// ErrPrecomputedUnavailable is returned when the precomputed
	// recommendations table is missing from the database.
	ErrPrecomputedUnavailable = errors.New("precomputed recommendations unavailable")
)

// PostgreSQL error codes the repositories react to.
const (
	pgUniqueViolation     = "23505"
	pgForeignKeyViolation = "23503"
	pgUndefinedTable      = "42P01"
	pgUndefinedColumn     = "42703"
)

// DataAccessError wraps a query failure with the operation that failed.
type DataAccessError struct {
	Op  string
	Err error
}

func (e *DataAccessError) Error() string {
	return e.Op + ": " + e.Err.Error()
}

func (e *DataAccessError) Unwrap() error {
	return e.Err
}

// dataErr wraps err as a DataAccessError for op.
func dataErr(op string, err error) error {
	return &DataAccessError{Op: op, Err: err}
}

// pgCode returns the SQLSTATE of err, or "" if err is not a server error.
func pgCode(err error) string {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code
	}
	return ""
}
