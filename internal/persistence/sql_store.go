package persistence

import (
	"context"
	"database/sql"
	"errors"

	"github.com/jwwelbor/marcus/internal/config"
	"github.com/jwwelbor/marcus/internal/db"
)

// SQLStore is the relational backend (spec §6 persistence_backend: sql)
// for shared deployments, adapted from the teacher's Database abstraction
// in internal/db (sqlite for a single replica, turso/libsql for a
// multi-writer shared store). It stores every domain record in one
// key/value table rather than the teacher's per-entity schema, since spec
// §4.10 only requires keyed access plus range scans and explicitly says
// "no cross-key transactions are required if the serialization point is
// honored".
type SQLStore struct {
	conn db.Database
}

// OpenSQLStore connects using the teacher's driver registry (auto-detects
// sqlite vs turso from the URL unless cfg.Backend is set) and ensures the
// kv table exists.
func OpenSQLStore(ctx context.Context, cfg config.DatabaseConfig) (*SQLStore, error) {
	conn, err := db.InitDatabase(ctx, cfg)
	if err != nil {
		return nil, err
	}
	if err := conn.Exec(ctx, `CREATE TABLE IF NOT EXISTS marcus_kv (
		key   TEXT PRIMARY KEY,
		value BLOB NOT NULL
	)`); err != nil {
		conn.Close()
		return nil, err
	}
	return &SQLStore{conn: conn}, nil
}

func (s *SQLStore) Put(key string, value []byte) error {
	return s.conn.Exec(context.Background(),
		`INSERT INTO marcus_kv (key, value) VALUES (?, ?)
		 ON CONFLICT(key) DO UPDATE SET value = excluded.value`, key, value)
}

func (s *SQLStore) Get(key string) ([]byte, bool, error) {
	row := s.conn.QueryRow(context.Background(), `SELECT value FROM marcus_kv WHERE key = ?`, key)
	var value []byte
	if err := row.Scan(&value); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, false, nil
		}
		return nil, false, err
	}
	return value, true, nil
}

func (s *SQLStore) Delete(key string) error {
	return s.conn.Exec(context.Background(), `DELETE FROM marcus_kv WHERE key = ?`, key)
}

func (s *SQLStore) Scan(prefix string) ([]KV, error) {
	rows, err := s.conn.Query(context.Background(),
		`SELECT key, value FROM marcus_kv WHERE key LIKE ? ORDER BY key`, prefix+"%")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []KV
	for rows.Next() {
		var kv KV
		if err := rows.Scan(&kv.Key, &kv.Value); err != nil {
			return nil, err
		}
		out = append(out, kv)
	}
	return out, rows.Err()
}

func (s *SQLStore) Close() error {
	return s.conn.Close()
}
