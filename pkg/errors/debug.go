package errors

import (
	stdErrors "errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/lib/pq"
)

// Dump renders the full error chain including driver-level detail for
// Postgres errors. Only for logs, never for API responses.
func Dump(err error) string {
	if err == nil {
		return "<nil>"
	}

	out := err.Error()

	var pgErr *pgconn.PgError
	if stdErrors.As(err, &pgErr) {
		out += fmt.Sprintf(
			" [pg code=%s detail=%q constraint=%s table=%s]",
			pgErr.Code, pgErr.Detail, pgErr.ConstraintName, pgErr.TableName,
		)
	}

	var pqErr *pq.Error
	if stdErrors.As(err, &pqErr) {
		out += fmt.Sprintf(
			" [pq code=%s detail=%q constraint=%s table=%s]",
			pqErr.Code, pqErr.Detail, pqErr.Constraint, pqErr.Table,
		)
	}

	if typed := As(err); typed != nil && typed.Unwrap() != nil {
		out += fmt.Sprintf(" (cause: %s)", typed.Unwrap())
	}

	return out
}
