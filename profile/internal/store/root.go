package store

import (
	"context"
	"database/sql"
	"errors"

	"github.com/hazyhaar/xmlprofile/dbopen"
)

// AddRoot records name as a known root. Idempotent.
func (s *Store) AddRoot(ctx context.Context, name string) error {
	if name == "" {
		return errEmptyName
	}
	_, err := dbopen.Exec(ctx, s.DB, `INSERT OR IGNORE INTO roots (name) VALUES (?)`, name)
	return err
}

// RemoveRoot forgets name as a root. Idempotent.
func (s *Store) RemoveRoot(ctx context.Context, name string) error {
	_, err := dbopen.Exec(ctx, s.DB, `DELETE FROM roots WHERE name = ?`, name)
	return err
}

// HasRoot reports whether name is a known root.
func (s *Store) HasRoot(ctx context.Context, name string) (bool, error) {
	var one int
	err := s.DB.QueryRowContext(ctx, `SELECT 1 FROM roots WHERE name = ?`, name).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	return err == nil, err
}

// Roots returns every known root, sorted.
func (s *Store) Roots(ctx context.Context) ([]string, error) {
	return s.names(ctx, `SELECT name FROM roots ORDER BY name`)
}
