package db

import (
	"context"
	"database/sql"
	"strings"

	_ "github.com/tursodatabase/libsql-client-go/libsql"
)

// TursoDriver backs a replicated marcus deployment (persistence_backend:
// sql with a libsql:// URL) so more than one coordination process can
// share the same task/lease/registration state.
type TursoDriver struct {
	db *sql.DB
}

// NewTursoDriver creates an unconnected Turso (libSQL) driver.
func NewTursoDriver() *TursoDriver {
	return &TursoDriver{}
}

// Connect opens a libSQL connection. dsn is expected to already carry its
// auth token (see BuildTursoConnectionString, applied by InitDatabase
// before Connect is called).
func (t *TursoDriver) Connect(ctx context.Context, dsn string) error {
	db, err := sql.Open("libsql", dsn)
	if err != nil {
		return err
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return err
	}
	t.db = db
	return nil
}

func (t *TursoDriver) Close() error {
	if t.db != nil {
		return t.db.Close()
	}
	return nil
}

func (t *TursoDriver) Ping(ctx context.Context) error {
	if t.db == nil {
		return sql.ErrConnDone
	}
	return t.db.PingContext(ctx)
}

func (t *TursoDriver) Query(ctx context.Context, query string, args ...interface{}) (Rows, error) {
	if t.db == nil {
		return nil, sql.ErrConnDone
	}
	rows, err := t.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	return &sqlRows{rows: rows}, nil
}

func (t *TursoDriver) QueryRow(ctx context.Context, query string, args ...interface{}) Row {
	if t.db == nil {
		return &sqlRow{row: nil}
	}
	return &sqlRow{row: t.db.QueryRowContext(ctx, query, args...)}
}

func (t *TursoDriver) Exec(ctx context.Context, query string, args ...interface{}) error {
	if t.db == nil {
		return sql.ErrConnDone
	}
	_, err := t.db.ExecContext(ctx, query, args...)
	return err
}

func (t *TursoDriver) DriverName() string {
	return "libsql"
}

// BuildTursoConnectionString appends an auth token query parameter to a
// libsql:// URL, the shape the libsql-client-go driver expects.
func BuildTursoConnectionString(url, authToken string) string {
	if authToken == "" {
		return url
	}
	sep := "?"
	if strings.Contains(url, "?") {
		sep = "&"
	}
	return url + sep + "authToken=" + authToken
}
