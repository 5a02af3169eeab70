// Package repositories provides PostgreSQL-backed persistence for parse
// records, learned rules, and review corrections. Every public method takes a
// context.Context and uses parameterised queries exclusively.
package repositories

import (
	"errors"

	"github.com/jackc/pgx/v5/pgconn"
)

// rowScanner abstracts pgx.Row and pgx.Rows.
type rowScanner interface {
	Scan(dest ...interface{}) error
}

// isUniqueViolation reports whether err is a unique-constraint violation.
func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}

// isForeignKeyViolation reports whether err is a foreign-key violation.
func isForeignKeyViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23503"
}
