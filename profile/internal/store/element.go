// CLAUDE:SUMMARY Element table CRUD — union merge, exact replace, edge removal, parent lookup, sweep.
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/hazyhaar/xmlprofile/dbopen"
	"github.com/hazyhaar/xmlprofile/valueset"
)

// Element is one element record.
type Element struct {
	Name       string
	Children   valueset.Set
	Attributes valueset.Set
}

type querier interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

func getElement(ctx context.Context, q querier, name string) (*Element, error) {
	var children, attrs string
	err := q.QueryRowContext(ctx,
		`SELECT children, attributes FROM elements WHERE name = ?`, name,
	).Scan(&children, &attrs)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &Element{
		Name:       name,
		Children:   valueset.Decode(children),
		Attributes: valueset.Decode(attrs),
	}, nil
}

func putElement(ctx context.Context, q querier, e *Element) error {
	_, err := q.ExecContext(ctx, `
		INSERT INTO elements (name, children, attributes) VALUES (?, ?, ?)
		ON CONFLICT(name) DO UPDATE SET
			children = excluded.children,
			attributes = excluded.attributes`,
		e.Name, valueset.Encode(e.Children), valueset.Encode(e.Attributes),
	)
	return err
}

// GetElement returns the record for name, or nil if the element is unknown.
func (s *Store) GetElement(ctx context.Context, name string) (*Element, error) {
	return getElement(ctx, s.DB, name)
}

// ElementNames returns every known element name, sorted.
func (s *Store) ElementNames(ctx context.Context) ([]string, error) {
	return s.names(ctx, `SELECT name FROM elements ORDER BY name`)
}

// Elements returns every element record ordered by name.
func (s *Store) Elements(ctx context.Context) ([]*Element, error) {
	rows, err := s.DB.QueryContext(ctx,
		`SELECT name, children, attributes FROM elements ORDER BY name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanElements(rows)
}

// MergeElement unions children and attrs into the record for name, creating
// it when absent.
func (s *Store) MergeElement(ctx context.Context, name string, children, attrs valueset.Set) error {
	if name == "" {
		return errEmptyName
	}
	return dbopen.RunTx(ctx, s.DB, func(tx *sql.Tx) error {
		e, err := getElement(ctx, tx, name)
		if err != nil {
			return err
		}
		if e == nil {
			e = &Element{Name: name, Children: valueset.New(), Attributes: valueset.New()}
		}
		e.Children.Union(children)
		e.Attributes.Union(attrs)
		return putElement(ctx, tx, e)
	})
}

// ReplaceChildren sets the children of name to exactly children, creating
// the record when absent.
func (s *Store) ReplaceChildren(ctx context.Context, name string, children valueset.Set) error {
	return s.replace(ctx, name, func(e *Element) { e.Children = valueset.New().Union(children) })
}

// ReplaceAttributes sets the attribute names of name to exactly attrs,
// creating the record when absent.
func (s *Store) ReplaceAttributes(ctx context.Context, name string, attrs valueset.Set) error {
	return s.replace(ctx, name, func(e *Element) { e.Attributes = valueset.New().Union(attrs) })
}

func (s *Store) replace(ctx context.Context, name string, set func(*Element)) error {
	if name == "" {
		return errEmptyName
	}
	return dbopen.RunTx(ctx, s.DB, func(tx *sql.Tx) error {
		e, err := getElement(ctx, tx, name)
		if err != nil {
			return err
		}
		if e == nil {
			e = &Element{Name: name, Children: valueset.New(), Attributes: valueset.New()}
		}
		set(e)
		return putElement(ctx, tx, e)
	})
}

// DeleteElement removes the record for name. Attribute records, root entries
// and edges pointing at name are left alone.
func (s *Store) DeleteElement(ctx context.Context, name string) error {
	_, err := dbopen.Exec(ctx, s.DB, `DELETE FROM elements WHERE name = ?`, name)
	return err
}

// RemoveChildEdge drops child from parent's children. Reports whether the
// edge existed; a missing parent or edge is not an error.
func (s *Store) RemoveChildEdge(ctx context.Context, parent, child string) (bool, error) {
	var removed bool
	err := dbopen.RunTx(ctx, s.DB, func(tx *sql.Tx) error {
		removed = false
		e, err := getElement(ctx, tx, parent)
		if err != nil || e == nil {
			return err
		}
		if !e.Children.Remove(child) {
			return nil
		}
		removed = true
		return putElement(ctx, tx, e)
	})
	return removed, err
}

// ParentsOf returns, sorted, every element whose children include child.
func (s *Store) ParentsOf(ctx context.Context, child string) ([]string, error) {
	if child == "" {
		return []string{}, nil
	}
	rows, err := s.DB.QueryContext(ctx, `
		SELECT name, children, attributes FROM elements
		WHERE instr(children, ?) > 0 ORDER BY name`, child)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	candidates, err := scanElements(rows)
	if err != nil {
		return nil, err
	}
	parents := []string{}
	for _, e := range candidates {
		// instr matches substrings; membership is decided on the decoded set.
		if e.Children.Has(child) {
			parents = append(parents, e.Name)
		}
	}
	return parents, nil
}

// SweepChild removes child from every children set that lists it and
// returns the parents that were rewritten.
func (s *Store) SweepChild(ctx context.Context, child string) ([]string, error) {
	var touched []string
	err := dbopen.RunTx(ctx, s.DB, func(tx *sql.Tx) error {
		touched = nil
		rows, err := tx.QueryContext(ctx, `
			SELECT name, children, attributes FROM elements
			WHERE instr(children, ?) > 0 ORDER BY name`, child)
		if err != nil {
			return err
		}
		candidates, err := scanElements(rows)
		rows.Close()
		if err != nil {
			return err
		}
		for _, e := range candidates {
			if !e.Children.Remove(child) {
				continue
			}
			if err := putElement(ctx, tx, e); err != nil {
				return fmt.Errorf("rewrite %s: %w", e.Name, err)
			}
			touched = append(touched, e.Name)
		}
		return nil
	})
	return touched, err
}

// CountElements returns the number of element records.
func (s *Store) CountElements(ctx context.Context) (int, error) {
	var n int
	err := s.DB.QueryRowContext(ctx, `SELECT COUNT(*) FROM elements`).Scan(&n)
	return n, err
}

func scanElements(rows *sql.Rows) ([]*Element, error) {
	var out []*Element
	for rows.Next() {
		var name, children, attrs string
		if err := rows.Scan(&name, &children, &attrs); err != nil {
			return nil, err
		}
		out = append(out, &Element{
			Name:       name,
			Children:   valueset.Decode(children),
			Attributes: valueset.Decode(attrs),
		})
	}
	return out, rows.Err()
}

func (s *Store) names(ctx context.Context, query string, args ...any) ([]string, error) {
	rows, err := s.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []string{}
	for rows.Next() {
		var n string
		if err := rows.Scan(&n); err != nil {
			return nil, err
		}
		out = append(out, n)
	}
	return out, rows.Err()
}
