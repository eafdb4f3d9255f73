package db

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/justestif/movie-recommender/internal/validation"
)

// UserRepository handles user database operations.
type UserRepository struct {
	pool *pgxpool.Pool
}

type newUser struct {
	Username string `validate:"required"`
	Password string `validate:"required"`
	Role     string `validate:"oneof=viewer admin"`
}

// List returns users ordered by ID. Passwords are never selected.
func (r *UserRepository) List(ctx context.Context) ([]User, error) {
	query := `
		SELECT id, username, COALESCE(role, 'viewer')
		FROM users
		ORDER BY id ASC
		LIMIT $1
	`
	rows, err := r.pool.Query(ctx, query, UserListLimit)
	if err != nil {
		return nil, dataErr("querying users", err)
	}
	defer rows.Close()

	users := []User{}
	for rows.Next() {
		var u User
		if err := rows.Scan(&u.ID, &u.Username, &u.Role); err != nil {
			return nil, dataErr("scanning user", err)
		}
		users = append(users, u)
	}
	if err := rows.Err(); err != nil {
		return nil, dataErr("iterating users", err)
	}
	return users, nil
}

// Get retrieves a user by ID.
func (r *UserRepository) Get(ctx context.Context, id int) (*User, error) {
	query := `
		SELECT id, username, COALESCE(role, 'viewer')
		FROM users
		WHERE id = $1
	`
	var u User
	err := r.pool.QueryRow(ctx, query, id).Scan(&u.ID, &u.Username, &u.Role)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, dataErr("querying user", err)
	}
	return &u, nil
}

// Credentials retrieves a user together with the stored password.
func (r *UserRepository) Credentials(ctx context.Context, username string) (*Credentials, error) {
	query := `
		SELECT id, username, COALESCE(role, 'viewer'), password
		FROM users
		WHERE username = $1
	`
	var c Credentials
	err := r.pool.QueryRow(ctx, query, username).Scan(&c.ID, &c.Username, &c.Role, &c.Password)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, dataErr("querying credentials", err)
	}
	return &c, nil
}

// Create inserts a user. An empty role defaults to viewer.
func (r *UserRepository) Create(ctx context.Context, username, password, role string) (*User, error) {
	if role == "" {
		role = RoleViewer
	}
	if err := validation.Struct(newUser{Username: username, Password: password, Role: role}, ""); err != nil {
		return nil, err
	}

	query := `
		INSERT INTO users (username, password, role)
		VALUES ($1, $2, $3)
		RETURNING id, username, role
	`
	var u User
	err := r.pool.QueryRow(ctx, query, username, password, role).Scan(&u.ID, &u.Username, &u.Role)
	if pgCode(err) == pgUniqueViolation {
		return nil, ErrConflict
	}
	if err != nil {
		return nil, dataErr("inserting user", err)
	}
	return &u, nil
}

// UpdateRole changes a user's role.
func (r *UserRepository) UpdateRole(ctx context.Context, id int, role string) (*User, error) {
	if err := validation.Struct(struct {
		Role string `validate:"required,oneof=viewer admin"`
	}{role}, ""); err != nil {
		return nil, err
	}

	query := `
		UPDATE users
		SET role = $2
		WHERE id = $1
		RETURNING id, username, role
	`
	var u User
	err := r.pool.QueryRow(ctx, query, id, role).Scan(&u.ID, &u.Username, &u.Role)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, dataErr("updating user role", err)
	}
	return &u, nil
}

// Delete removes a user.
func (r *UserRepository) Delete(ctx context.Context, id int) error {
	result, err := r.pool.Exec(ctx, `DELETE FROM users WHERE id = $1`, id)
	if pgCode(err) == pgForeignKeyViolation {
		return ErrConflict
	}
	if err != nil {
		return dataErr("deleting user", err)
	}
	if result.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}
