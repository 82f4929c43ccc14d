package kv

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	_ "github.com/mattn/go-sqlite3" // sqlite3 driver
)

// sqliteBusyTimeout is the time SQLite waits when the database is locked.
const sqliteBusyTimeout = 10000 // milliseconds

// SQLite keeps every key in a single table.
type SQLite struct {
	db *sql.DB
}

// OpenSQLite opens (creating if needed) the database at path.
func OpenSQLite(ctx context.Context, path string) (*SQLite, error) {
	if path == "" {
		return nil, errors.New("open sqlite: path is empty")
	}

	err := os.MkdirAll(filepath.Dir(path), 0o750)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	err = db.PingContext(ctx)
	if err != nil {
		_ = db.Close()

		return nil, fmt.Errorf("ping sqlite: %w", err)
	}

	_, err = db.ExecContext(ctx, fmt.Sprintf(`
		PRAGMA busy_timeout = %d;
		PRAGMA journal_mode = WAL;
		PRAGMA synchronous = FULL;
		CREATE TABLE IF NOT EXISTS kv (
			key TEXT PRIMARY KEY,
			value BLOB NOT NULL
		);
	`, sqliteBusyTimeout))
	if err != nil {
		_ = db.Close()

		return nil, fmt.Errorf("init sqlite: %w", err)
	}

	return &SQLite{db: db}, nil
}

// View implements Store.
func (s *SQLite) View(ctx context.Context, fn func(Tx) error) error {
	tx, err := s.db.BeginTx(ctx, &sql.TxOptions{ReadOnly: true})
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}

	defer func() { _ = tx.Rollback() }()

	return fn(newStaged(sqlTx{ctx: ctx, tx: tx}, true))
}

// Update implements Store.
func (s *SQLite) Update(ctx context.Context, fn func(Tx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}

	defer func() { _ = tx.Rollback() }()

	err = fn(sqlTx{ctx: ctx, tx: tx, writable: true})
	if err != nil {
		return err
	}

	err = tx.Commit()
	if err != nil {
		return fmt.Errorf("commit: %w", err)
	}

	return nil
}

// Close implements Store.
func (s *SQLite) Close() error {
	err := s.db.Close()
	if err != nil {
		return fmt.Errorf("close sqlite: %w", err)
	}

	return nil
}

type sqlTx struct {
	ctx      context.Context
	tx       *sql.Tx
	writable bool
}

func (t sqlTx) Get(key string) ([]byte, error) {
	var value []byte

	err := t.tx.QueryRowContext(t.ctx, `SELECT value FROM kv WHERE key = ?`, key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, key)
	}

	if err != nil {
		return nil, fmt.Errorf("get %s: %w", key, err)
	}

	return value, nil
}

func (t sqlTx) Keys(prefix string) ([]string, error) {
	rows, err := t.tx.QueryContext(t.ctx,
		`SELECT key FROM kv WHERE substr(key, 1, length(?)) = ? ORDER BY key`, prefix, prefix)
	if err != nil {
		return nil, fmt.Errorf("list keys: %w", err)
	}

	defer func() { _ = rows.Close() }()

	var out []string

	for rows.Next() {
		var k string

		err := rows.Scan(&k)
		if err != nil {
			return nil, fmt.Errorf("scan key: %w", err)
		}

		out = append(out, k)
	}

	err = rows.Err()
	if err != nil {
		return nil, fmt.Errorf("list keys: %w", err)
	}

	return out, nil
}

func (t sqlTx) Put(key string, value []byte) error {
	if !t.writable {
		return errReadOnly
	}

	if key == "" {
		return ErrEmptyKey
	}

	if value == nil {
		value = []byte{}
	}

	_, err := t.tx.ExecContext(t.ctx,
		`INSERT INTO kv (key, value) VALUES (?, ?) ON CONFLICT(key) DO UPDATE SET value = excluded.value`,
		key, value)
	if err != nil {
		return fmt.Errorf("put %s: %w", key, err)
	}

	return nil
}

func (t sqlTx) Delete(key string) error {
	if !t.writable {
		return errReadOnly
	}

	_, err := t.tx.ExecContext(t.ctx, `DELETE FROM kv WHERE key = ?`, key)
	if err != nil {
		return fmt.Errorf("delete %s: %w", key, err)
	}

	return nil
}
