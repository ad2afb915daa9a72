package core

import (
	"context"
	"database/sql"
)

// DBExecutor is the subset of database/sql's API shared by *sql.DB and
// *sql.Tx. Repositories take it as an optional argument so a service can run
// several calls inside one transaction.
type DBExecutor interface {
	Exec(query string, args ...interface{}) (sql.Result, error)
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
	Query(query string, args ...interface{}) (*sql.Rows, error)
	QueryContext(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error)
	QueryRow(query string, args ...interface{}) *sql.Row
	QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row
}
