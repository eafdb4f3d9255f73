// Package auth checks login credentials against stored user records.
package auth

import (
	"context"
	"crypto/subtle"
	"errors"
	"fmt"

	"github.com/justestif/movie-recommender/internal/db"
)

// ErrInvalidCredentials is returned for an unknown username or a wrong password.
var ErrInvalidCredentials = errors.New("invalid username or password")

// CredentialStore looks up a user's stored credentials by username.
type CredentialStore interface {
	Credentials(ctx context.Context, username string) (*db.Credentials, error)
}

// Authenticator validates username/password pairs.
type Authenticator struct {
	users CredentialStore
}

// New creates an Authenticator backed by users.
func New(users CredentialStore) *Authenticator {
	return &Authenticator{users: users}
}

// Login returns the user matching username and password. Passwords are
// stored as given and compared in constant time.
func (a *Authenticator) Login(ctx context.Context, username, password string) (*db.User, error) {
	creds, err := a.users.Credentials(ctx, username)
	if errors.Is(err, db.ErrNotFound) {
		return nil, ErrInvalidCredentials
	}
	if err != nil {
		return nil, fmt.Errorf("looking up credentials: %w", err)
	}

	if subtle.ConstantTimeCompare([]byte(creds.Password), []byte(password)) != 1 {
		return nil, ErrInvalidCredentials
	}

	user := creds.User
	return &user, nil
}
