// Package store is the SQLite persistence edge of a profile. Set-valued
// columns are encoded with valueset here and nowhere else.
package store

import (
	"database/sql"

	"github.com/hazyhaar/xmlprofile/dbopen"
)

// Store is the handle on one profile database file.
type Store struct {
	DB   *sql.DB
	Path string
}

// Open opens (or creates) the profile database at path and applies Schema.
func Open(path string, opts ...dbopen.Option) (*Store, error) {
	allOpts := append([]dbopen.Option{
		dbopen.WithMkdirAll(),
		dbopen.WithSchema(Schema),
		dbopen.WithVersion(SchemaVersion),
	}, opts...)

	db, err := dbopen.Open(path, allOpts...)
	if err != nil {
		return nil, err
	}
	// One writer per profile; serialises the read-modify-write updates.
	db.SetMaxOpenConns(1)
	return &Store{DB: db, Path: path}, nil
}

// OpenReadOnly opens an existing profile without creating or migrating it.
func OpenReadOnly(path string, opts ...dbopen.Option) (*Store, error) {
	db, err := dbopen.Open(path, append([]dbopen.Option{dbopen.WithReadOnly(), dbopen.WithVersion(SchemaVersion)}, opts...)...)
	if err != nil {
		return nil, err
	}
	return &Store{DB: db, Path: path}, nil
}

// Close closes the database.
func (s *Store) Close() error {
	return s.DB.Close()
}
