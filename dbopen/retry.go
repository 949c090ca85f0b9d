package dbopen

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"
)

// Primary SQLite result codes for lock contention.
const (
	codeBusy   = 5
	codeLocked = 6
)

// Retry is the policy RunTx and Exec apply to busy errors: up to Attempts
// tries, sleeping Backoff, 2*Backoff, ... between them.
type Retry struct {
	Attempts int
	Backoff  time.Duration
}

// DefaultRetry is used by RunTx and Exec.
var DefaultRetry = Retry{Attempts: 3, Backoff: 100 * time.Millisecond}

// IsBusy reports whether err is an SQLite BUSY or LOCKED condition.
func IsBusy(err error) bool {
	if err == nil {
		return false
	}
	var coded interface{ Code() int }
	if errors.As(err, &coded) {
		switch coded.Code() & 0xff { // strip extended code bits
		case codeBusy, codeLocked:
			return true
		}
	}
	msg := err.Error()
	return strings.Contains(msg, "SQLITE_BUSY") ||
		strings.Contains(msg, "database is locked") ||
		strings.Contains(msg, "database table is locked")
}

// Do calls fn until it succeeds, fails with a non-busy error, or the
// attempts run out.
func (r Retry) Do(ctx context.Context, fn func() error) error {
	attempts := max(r.Attempts, 1)
	var err error
	for i := range attempts {
		if err = fn(); err == nil || !IsBusy(err) {
			return err
		}
		if i == attempts-1 {
			break
		}
		if serr := sleepCtx(ctx, time.Duration(i+1)*r.Backoff); serr != nil {
			return fmt.Errorf("dbopen: context cancelled during retry: %w", serr)
		}
	}
	return fmt.Errorf("dbopen: still busy after %d attempts: %w", attempts, err)
}

// RunTx runs fn inside a transaction with DefaultRetry. fn must be safe to
// re-run.
func RunTx(ctx context.Context, db *sql.DB, fn func(*sql.Tx) error) error {
	return DefaultRetry.Do(ctx, func() error { return runOnce(ctx, db, fn) })
}

func runOnce(ctx context.Context, db *sql.DB, fn func(*sql.Tx) error) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("dbopen: begin tx: %w", err)
	}
	if err := fn(tx); err != nil {
		tx.Rollback()
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("dbopen: commit: %w", err)
	}
	return nil
}

// Exec runs a single statement with DefaultRetry.
func Exec(ctx context.Context, db *sql.DB, query string, args ...any) (sql.Result, error) {
	var res sql.Result
	err := DefaultRetry.Do(ctx, func() error {
		var err error
		res, err = db.ExecContext(ctx, query, args...)
		return err
	})
	return res, err
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
