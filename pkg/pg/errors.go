package pg

import (
	"errors"

	"github.com/jackc/pgx/v5"
)

var (
	ErrEmptyConnectionString = errors.New("pg: empty connection string, set AUDIT_DB_URL")
	ErrInvalidConfig         = errors.New("pg: invalid connection config")
	ErrConnectFailed         = errors.New("pg: failed to connect")
	ErrHealthcheckFailed     = errors.New("pg: healthcheck failed")
	ErrMigrationsFailed      = errors.New("pg: failed to apply migrations")
	ErrMigrationsPathMissing = errors.New("pg: migrations path not provided")
)

// IsNotFound reports whether err is pgx's no-rows sentinel, for uniform
// not-found handling in callers.
func IsNotFound(err error) bool {
	return err != nil && errors.Is(err, pgx.ErrNoRows)
}
