package repository

import (
	"context"
	"database/sql"
	"fmt"
	"net/url"

	"github.com/uptrace/bun/driver/pgdriver"

	"github.com/opendcs/odcsapi/internal/auth"
)

// PgCredentialValidator validates credentials by opening a fresh
// database connection as the supplied user and pinging it. The
// connection is discarded immediately; a successful login is the whole
// point of the exercise.
type PgCredentialValidator struct {
	baseDSN string
}

// NewPgCredentialValidator creates a validator that derives per-user
// DSNs from the server's own connection string (host, port, database
// and options are kept; user and password are replaced).
func NewPgCredentialValidator(baseDSN string) (*PgCredentialValidator, error) {
	if _, err := url.Parse(baseDSN); err != nil {
		return nil, fmt.Errorf("parse database url: %w", err)
	}
	return &PgCredentialValidator{baseDSN: baseDSN}, nil
}

// Validate attempts a database login with the supplied credentials.
// Any failure to connect is an authentication failure from the caller's
// point of view; the underlying cause is wrapped for logging.
func (v *PgCredentialValidator) Validate(ctx context.Context, username, password string) error {
	dsn, err := v.userDSN(username, password)
	if err != nil {
		return fmt.Errorf("%w: %v", auth.ErrAuthFailed, err)
	}

	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	db := sql.OpenDB(pgdriver.NewConnector(pgdriver.WithDSN(dsn)))
	defer db.Close()

	if err := db.PingContext(ctx); err != nil {
		return fmt.Errorf("%w: db connection failed with passed credentials: %v", auth.ErrAuthFailed, err)
	}
	return nil
}

func (v *PgCredentialValidator) userDSN(username, password string) (string, error) {
	u, err := url.Parse(v.baseDSN)
	if err != nil {
		return "", err
	}
	u.User = url.UserPassword(username, password)
	return u.String(), nil
}
