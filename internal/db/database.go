package db

import "context"

// Database is the minimal connection abstraction internal/persistence's
// SQLStore drives: a single key/value table accessed through plain
// queries. Marcus never needs transactions across keys — spec §4.10 says
// as much explicitly, since the core's own serialization lock is already
// the only cross-record consistency boundary — so this interface carries
// none of the teacher's Tx/Begin surface.
type Database interface {
	Connect(ctx context.Context, dsn string) error
	Close() error
	Ping(ctx context.Context) error

	Query(ctx context.Context, query string, args ...interface{}) (Rows, error)
	QueryRow(ctx context.Context, query string, args ...interface{}) Row
	Exec(ctx context.Context, query string, args ...interface{}) error

	DriverName() string
}

// Rows is the cursor SQLStore.Scan iterates; trimmed to exactly what a
// single-table key/value scan needs.
type Rows interface {
	Close() error
	Next() bool
	Scan(dest ...interface{}) error
	Err() error
}

// Row is the result of a single-row lookup (SQLStore.Get).
type Row interface {
	Scan(dest ...interface{}) error
}
