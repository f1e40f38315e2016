package db

import (
	"context"
	"database/sql"
	"strings"

	_ "github.com/mattn/go-sqlite3"
)

// SQLiteDriver backs a single-replica marcus deployment (persistence_backend:
// sql with a local file URL).
type SQLiteDriver struct {
	db *sql.DB
}

// NewSQLiteDriver creates an unconnected SQLite driver.
func NewSQLiteDriver() *SQLiteDriver {
	return &SQLiteDriver{}
}

// Connect opens the database file, enabling foreign keys and WAL mode for
// the concurrent readers the lease sweeper and reconciliation worker add
// alongside request handling.
func (s *SQLiteDriver) Connect(ctx context.Context, dsn string) error {
	if dsn != "" && !strings.Contains(dsn, "?") {
		dsn += "?_foreign_keys=on"
	} else if dsn != "" && !strings.Contains(dsn, "_foreign_keys") {
		dsn += "&_foreign_keys=on"
	}

	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return err
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return err
	}
	if err := s.configureSQLite(db); err != nil {
		db.Close()
		return err
	}

	s.db = db
	return nil
}

func (s *SQLiteDriver) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

func (s *SQLiteDriver) Ping(ctx context.Context) error {
	if s.db == nil {
		return sql.ErrConnDone
	}
	return s.db.PingContext(ctx)
}

func (s *SQLiteDriver) Query(ctx context.Context, query string, args ...interface{}) (Rows, error) {
	if s.db == nil {
		return nil, sql.ErrConnDone
	}
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	return &sqlRows{rows: rows}, nil
}

func (s *SQLiteDriver) QueryRow(ctx context.Context, query string, args ...interface{}) Row {
	if s.db == nil {
		return &sqlRow{row: nil}
	}
	return &sqlRow{row: s.db.QueryRowContext(ctx, query, args...)}
}

func (s *SQLiteDriver) Exec(ctx context.Context, query string, args ...interface{}) error {
	if s.db == nil {
		return sql.ErrConnDone
	}
	_, err := s.db.ExecContext(ctx, query, args...)
	return err
}

func (s *SQLiteDriver) DriverName() string {
	return "sqlite3"
}

// configureSQLite sets the PRAGMAs a single-writer kv table needs under
// concurrent background workers.
func (s *SQLiteDriver) configureSQLite(db *sql.DB) error {
	pragmas := []string{
		"PRAGMA foreign_keys = ON;",
		"PRAGMA journal_mode = WAL;",
		"PRAGMA busy_timeout = 5000;",
		"PRAGMA synchronous = NORMAL;",
		"PRAGMA cache_size = -64000;",
		"PRAGMA temp_store = MEMORY;",
	}
	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			return err
		}
	}
	return nil
}

type sqlRows struct {
	rows *sql.Rows
}

func (r *sqlRows) Close() error                   { return r.rows.Close() }
func (r *sqlRows) Next() bool                     { return r.rows.Next() }
func (r *sqlRows) Scan(dest ...interface{}) error { return r.rows.Scan(dest...) }
func (r *sqlRows) Err() error                     { return r.rows.Err() }

type sqlRow struct {
	row *sql.Row
}

func (r *sqlRow) Scan(dest ...interface{}) error {
	if r.row == nil {
		return sql.ErrNoRows
	}
	return r.row.Scan(dest...)
}
