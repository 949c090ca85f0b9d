// CLAUDE:SUMMARY Opens profile SQLite files (read-write or read-only), stamps and checks the schema version; in-memory opener for tests.
// Package dbopen opens the SQLite file behind a profile.
//
// Read-write handles get:
//
//	journal_mode = WAL
//	synchronous  = NORMAL
//	busy_timeout = 10000 (WithBusyTimeout)
//
// Read-only handles only get busy_timeout and never run DDL.
//
// Usage:
//
//	import _ "modernc.org/sqlite"
//	db, err := dbopen.Open("app.profile", dbopen.WithSchema(store.Schema), dbopen.WithVersion(1))
//
// In tests:
//
//	db := dbopen.OpenMemory(t, dbopen.WithSchema(store.Schema))
package dbopen

import (
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"testing"
)

const memoryPath = ":memory:"

var (
	// ErrNotExist is returned when a must-exist or read-only file is missing.
	ErrNotExist = errors.New("dbopen: database file does not exist")
	// ErrNewerSchema is returned when the file was written by a newer schema
	// than the caller knows.
	ErrNewerSchema = errors.New("dbopen: database schema is newer than supported")
)

type options struct {
	busyTimeout int
	mkdirAll    bool
	mustExist   bool
	readOnly    bool
	schemas     []string
	version     int
}

// Option customises Open.
type Option func(*options)

// WithBusyTimeout sets PRAGMA busy_timeout in milliseconds. Default: 10000.
func WithBusyTimeout(ms int) Option {
	return func(o *options) {
		if ms > 0 {
			o.busyTimeout = ms
		}
	}
}

// WithMkdirAll creates the parent directory of the file.
func WithMkdirAll() Option { return func(o *options) { o.mkdirAll = true } }

// WithReadOnly opens an existing file in read-only mode.
func WithReadOnly() Option {
	return func(o *options) {
		o.readOnly = true
		o.mustExist = true
	}
}

// WithSchema queues DDL run after the pragmas. Ignored for read-only handles.
func WithSchema(ddl string) Option { return func(o *options) { o.schemas = append(o.schemas, ddl) } }

// WithVersion stamps PRAGMA user_version with v on a fresh file and refuses
// files stamped with a higher version.
func WithVersion(v int) Option { return func(o *options) { o.version = v } }

// Open opens the SQLite database at path. The caller blank-imports the
// modernc.org/sqlite driver.
func Open(path string, opts ...Option) (*sql.DB, error) {
	o := options{busyTimeout: 10_000}
	for _, fn := range opts {
		fn(&o)
	}
	if err := prepare(path, &o); err != nil {
		return nil, err
	}

	db, err := sql.Open("sqlite", dsn(path, &o))
	if err != nil {
		return nil, fmt.Errorf("dbopen: open: %w", err)
	}
	if err := initialise(db, &o); err != nil {
		db.Close()
		return nil, err
	}
	return db, nil
}

// OpenMemory opens an in-memory database for tests. MaxOpenConns is pinned to
// 1 because every ":memory:" connection is a separate database. The handle is
// closed by t.Cleanup.
func OpenMemory(t testing.TB, opts ...Option) *sql.DB {
	t.Helper()
	db, err := Open(memoryPath, opts...)
	if err != nil {
		t.Fatalf("dbopen.OpenMemory: %v", err)
	}
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { db.Close() })
	return db
}

func prepare(path string, o *options) error {
	if path == memoryPath {
		return nil
	}
	if o.mustExist {
		if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("%w: %s", ErrNotExist, path)
		} else if err != nil {
			return fmt.Errorf("dbopen: stat: %w", err)
		}
	}
	if o.mkdirAll && !o.readOnly {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return fmt.Errorf("dbopen: mkdir: %w", err)
		}
	}
	return nil
}

// dsn uses a file: URI for read-only handles so that mode=ro reaches SQLite.
func dsn(path string, o *options) string {
	if o.readOnly && path != memoryPath {
		return "file:" + filepath.ToSlash(path) + "?mode=ro"
	}
	return path
}

func initialise(db *sql.DB, o *options) error {
	stmts := []string{fmt.Sprintf("PRAGMA busy_timeout = %d", o.busyTimeout)}
	if !o.readOnly {
		stmts = append(stmts, "PRAGMA journal_mode = WAL", "PRAGMA synchronous = NORMAL")
		stmts = append(stmts, o.schemas...)
	}
	for _, s := range stmts {
		if _, err := db.Exec(s); err != nil {
			return fmt.Errorf("dbopen: init: %w", err)
		}
	}
	if o.version > 0 {
		return checkVersion(db, o.version, o.readOnly)
	}
	return db.Ping()
}

func checkVersion(db *sql.DB, want int, readOnly bool) error {
	var have int
	if err := db.QueryRow("PRAGMA user_version").Scan(&have); err != nil {
		return fmt.Errorf("dbopen: user_version: %w", err)
	}
	switch {
	case have > want:
		return fmt.Errorf("%w: file has %d, want %d", ErrNewerSchema, have, want)
	case have < want && !readOnly:
		// PRAGMA does not take bind parameters.
		if _, err := db.Exec(fmt.Sprintf("PRAGMA user_version = %d", want)); err != nil {
			return fmt.Errorf("dbopen: stamp user_version: %w", err)
		}
	}
	return nil
}
