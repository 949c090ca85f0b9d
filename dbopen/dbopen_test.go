package dbopen_test

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"path/filepath"
	"testing"
	"time"

	_ "modernc.org/sqlite"

	"github.com/hazyhaar/xmlprofile/dbopen"
)

func TestOpenMemoryPragmas(t *testing.T) {
	db := dbopen.OpenMemory(t, dbopen.WithBusyTimeout(2500))

	var busy int
	if err := db.QueryRow("PRAGMA busy_timeout").Scan(&busy); err != nil {
		t.Fatal(err)
	}
	if busy != 2500 {
		t.Fatalf("busy_timeout = %d, want 2500", busy)
	}

	var sync int
	if err := db.QueryRow("PRAGMA synchronous").Scan(&sync); err != nil {
		t.Fatal(err)
	}
	// NORMAL = 1
	if sync != 1 {
		t.Fatalf("synchronous = %d, want 1", sync)
	}
}

func TestVersion(t *testing.T) {
	path := filepath.Join(t.TempDir(), "v.db")
	db, err := dbopen.Open(path, dbopen.WithVersion(2))
	if err != nil {
		t.Fatal(err)
	}
	var v int
	db.QueryRow("PRAGMA user_version").Scan(&v)
	if v != 2 {
		t.Fatalf("user_version = %d, want 2", v)
	}
	db.Close()

	if _, err := dbopen.Open(path, dbopen.WithVersion(1)); !errors.Is(err, dbopen.ErrNewerSchema) {
		t.Fatalf("older reader: err = %v, want ErrNewerSchema", err)
	}
	if _, err := dbopen.Open(path, dbopen.WithReadOnly(), dbopen.WithVersion(1)); !errors.Is(err, dbopen.ErrNewerSchema) {
		t.Fatalf("older read-only reader: err = %v, want ErrNewerSchema", err)
	}
	ro, err := dbopen.Open(path, dbopen.WithReadOnly(), dbopen.WithVersion(3))
	if err != nil {
		t.Fatalf("newer read-only reader: %v", err)
	}
	ro.Close()
}

func TestWithSchema(t *testing.T) {
	db := dbopen.OpenMemory(t, dbopen.WithSchema(`CREATE TABLE roots (name TEXT PRIMARY KEY)`))
	if _, err := db.Exec(`INSERT INTO roots (name) VALUES ('config')`); err != nil {
		t.Fatalf("insert: %v", err)
	}
}

func TestReadOnlyMissing(t *testing.T) {
	path := filepath.Join(t.TempDir(), "missing.db")
	_, err := dbopen.Open(path, dbopen.WithReadOnly())
	if !errors.Is(err, dbopen.ErrNotExist) {
		t.Fatalf("err = %v, want ErrNotExist", err)
	}
}

func TestReadOnly(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sub", "p.db")
	rw, err := dbopen.Open(path, dbopen.WithMkdirAll(), dbopen.WithSchema(`CREATE TABLE roots (name TEXT PRIMARY KEY)`))
	if err != nil {
		t.Fatalf("open rw: %v", err)
	}
	if _, err := rw.Exec(`INSERT INTO roots (name) VALUES ('config')`); err != nil {
		t.Fatal(err)
	}
	rw.Close()

	ro, err := dbopen.Open(path, dbopen.WithReadOnly())
	if err != nil {
		t.Fatalf("open ro: %v", err)
	}
	defer ro.Close()

	var n int
	if err := ro.QueryRow(`SELECT COUNT(*) FROM roots`).Scan(&n); err != nil {
		t.Fatal(err)
	}
	if n != 1 {
		t.Fatalf("count = %d, want 1", n)
	}
	if _, err := ro.Exec(`INSERT INTO roots (name) VALUES ('other')`); err == nil {
		t.Fatal("write on read-only handle succeeded")
	}
}

func TestIsBusy(t *testing.T) {
	tests := []struct {
		err  error
		want bool
	}{
		{nil, false},
		{errors.New("constraint failed"), false},
		{errors.New("SQLITE_BUSY"), true},
		{errors.New("database is locked"), true},
		{errors.New("x: database table is locked (6)"), true},
	}
	for _, tt := range tests {
		if got := dbopen.IsBusy(tt.err); got != tt.want {
			t.Errorf("IsBusy(%v) = %v, want %v", tt.err, got, tt.want)
		}
	}
}

func TestRunTxRollback(t *testing.T) {
	db := dbopen.OpenMemory(t, dbopen.WithSchema(`CREATE TABLE roots (name TEXT PRIMARY KEY)`))
	ctx := context.Background()

	sentinel := errors.New("abort")
	err := dbopen.RunTx(ctx, db, func(tx *sql.Tx) error {
		if _, err := tx.Exec(`INSERT INTO roots (name) VALUES ('a')`); err != nil {
			return err
		}
		return sentinel
	})
	if !errors.Is(err, sentinel) {
		t.Fatalf("err = %v, want sentinel", err)
	}

	var n int
	db.QueryRow(`SELECT COUNT(*) FROM roots`).Scan(&n)
	if n != 0 {
		t.Fatalf("rows after rollback = %d, want 0", n)
	}

	if _, err := dbopen.Exec(ctx, db, `INSERT INTO roots (name) VALUES ('b')`); err != nil {
		t.Fatalf("Exec: %v", err)
	}
}

type codedErr int

func (e codedErr) Error() string { return fmt.Sprintf("sqlite error %d", int(e)) }
func (e codedErr) Code() int     { return int(e) }

func TestIsBusyCoded(t *testing.T) {
	if !dbopen.IsBusy(fmt.Errorf("wrapped: %w", codedErr(5))) {
		t.Error("SQLITE_BUSY code not detected")
	}
	if !dbopen.IsBusy(codedErr(517)) { // SQLITE_BUSY_SNAPSHOT
		t.Error("extended busy code not detected")
	}
	if dbopen.IsBusy(codedErr(19)) {
		t.Error("SQLITE_CONSTRAINT reported busy")
	}
}

func TestRetryDo(t *testing.T) {
	ctx := context.Background()
	r := dbopen.Retry{Attempts: 3, Backoff: time.Millisecond}

	calls := 0
	err := r.Do(ctx, func() error {
		calls++
		if calls < 3 {
			return codedErr(5)
		}
		return nil
	})
	if err != nil || calls != 3 {
		t.Fatalf("Do = %v after %d calls; want success after 3", err, calls)
	}

	calls = 0
	err = r.Do(ctx, func() error { calls++; return codedErr(5) })
	if !dbopen.IsBusy(err) || calls != 3 {
		t.Fatalf("Do = %v after %d calls; want busy after 3", err, calls)
	}

	calls = 0
	sentinel := errors.New("not busy")
	if err := r.Do(ctx, func() error { calls++; return sentinel }); !errors.Is(err, sentinel) || calls != 1 {
		t.Fatalf("Do = %v after %d calls; want sentinel after 1", err, calls)
	}

	cancelled, cancel := context.WithCancel(ctx)
	cancel()
	slow := dbopen.Retry{Attempts: 2, Backoff: time.Hour}
	if err := slow.Do(cancelled, func() error { return codedErr(5) }); !errors.Is(err, context.Canceled) {
		t.Fatalf("Do on cancelled ctx = %v", err)
	}
}
