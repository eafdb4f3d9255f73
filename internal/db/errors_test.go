package db

import (
	"errors"
	"fmt"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
)

func TestDataAccessError(t *testing.T) {
	cause := errors.New("connection refused")
	err := dataErr("listing movies", cause)

	if got, want := err.Error(), "listing movies: connection refused"; got != want {
		t.Errorf("Error() = %q, want %q", got, want)
	}
	if !errors.Is(err, cause) {
		t.Error("DataAccessError should unwrap to its cause")
	}
	var dae *DataAccessError
	if !errors.As(fmt.Errorf("handler: %w", err), &dae) || dae.Op != "listing movies" {
		t.Errorf("errors.As did not recover the operation, got %+v", dae)
	}
}

func TestPgCode(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want string
	}{
		{name: "server error", err: &pgconn.PgError{Code: pgUniqueViolation}, want: "23505"},
		{name: "wrapped", err: dataErr("insert", &pgconn.PgError{Code: pgUndefinedTable}), want: "42P01"},
		{name: "plain error", err: errors.New("boom"), want: ""},
		{name: "nil", err: nil, want: ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := pgCode(tt.err); got != tt.want {
				t.Errorf("pgCode() = %q, want %q", got, tt.want)
			}
		})
	}
}
