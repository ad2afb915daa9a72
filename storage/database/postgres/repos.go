// Package pgrepos implements the core repositories on postgres.
package pgrepos

import (
	"database/sql"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/pkg/errors"

	"github.com/trezcool/shiksha/core"
)

const uniqueViolationCode = "23505"

// violatedConstraint returns the name of the unique constraint `err` violated,
// or "" when `err` is not a unique violation.
func violatedConstraint(err error) string {
	if pqErr, ok := errors.Cause(err).(*pq.Error); ok && pqErr.Code == uniqueViolationCode {
		return pqErr.Constraint
	}
	return ""
}

// trapNoRowsErr maps psql "no rows" err to notFound
func trapNoRowsErr(err, notFound error, msg string) error {
	if err == sql.ErrNoRows {
		return notFound
	}
	return errors.Wrap(err, msg)
}

func getExec(db *sqlx.DB, exec []core.DBExecutor) core.DBExecutor {
	if len(exec) > 0 {
		return exec[0]
	}
	return db
}
