// CLAUDE:SUMMARY Attribute table CRUD keyed on (attribute, element) — union merge, exact replace, delete.
package store

import (
	"context"
	"database/sql"
	"errors"

	"github.com/hazyhaar/xmlprofile/dbopen"
	"github.com/hazyhaar/xmlprofile/valueset"
)

var errEmptyName = errors.New("store: empty name")

// Attribute is the value record of one (attribute, element) pair.
type Attribute struct {
	Element   string
	Attribute string
	Values    valueset.Set
}

func getValues(ctx context.Context, q querier, element, attr string) (valueset.Set, bool, error) {
	var vals string
	err := q.QueryRowContext(ctx,
		`SELECT vals FROM attributes WHERE attribute = ? AND element = ?`, attr, element,
	).Scan(&vals)
	if errors.Is(err, sql.ErrNoRows) {
		return valueset.New(), false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return valueset.Decode(vals), true, nil
}

func putValues(ctx context.Context, q querier, element, attr string, values valueset.Set) error {
	_, err := q.ExecContext(ctx, `
		INSERT INTO attributes (attribute, element, vals) VALUES (?, ?, ?)
		ON CONFLICT(attribute, element) DO UPDATE SET vals = excluded.vals`,
		attr, element, valueset.Encode(values),
	)
	return err
}

// GetValues returns the values of attr on element. ok is false when no
// record exists.
func (s *Store) GetValues(ctx context.Context, element, attr string) (values valueset.Set, ok bool, err error) {
	return getValues(ctx, s.DB, element, attr)
}

// MergeValues unions values into the (attr, element) record, creating it
// when absent.
func (s *Store) MergeValues(ctx context.Context, element, attr string, values valueset.Set) error {
	if element == "" || attr == "" {
		return errEmptyName
	}
	return dbopen.RunTx(ctx, s.DB, func(tx *sql.Tx) error {
		cur, _, err := getValues(ctx, tx, element, attr)
		if err != nil {
			return err
		}
		return putValues(ctx, tx, element, attr, cur.Union(values))
	})
}

// ReplaceValues sets the (attr, element) record to exactly values.
func (s *Store) ReplaceValues(ctx context.Context, element, attr string, values valueset.Set) error {
	if element == "" || attr == "" {
		return errEmptyName
	}
	return putValues(ctx, s.DB, element, attr, valueset.New().Union(values))
}

// DeleteAttribute removes the single (attr, element) record.
func (s *Store) DeleteAttribute(ctx context.Context, element, attr string) error {
	_, err := dbopen.Exec(ctx, s.DB,
		`DELETE FROM attributes WHERE attribute = ? AND element = ?`, attr, element)
	return err
}

// DeleteAttributesOf removes every (*, element) record and returns how many
// were deleted.
func (s *Store) DeleteAttributesOf(ctx context.Context, element string) (int64, error) {
	res, err := dbopen.Exec(ctx, s.DB, `DELETE FROM attributes WHERE element = ?`, element)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// Attributes returns every attribute record ordered by element, attribute.
func (s *Store) Attributes(ctx context.Context) ([]*Attribute, error) {
	rows, err := s.DB.QueryContext(ctx,
		`SELECT element, attribute, vals FROM attributes ORDER BY element, attribute`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*Attribute
	for rows.Next() {
		a := &Attribute{}
		var vals string
		if err := rows.Scan(&a.Element, &a.Attribute, &vals); err != nil {
			return nil, err
		}
		a.Values = valueset.Decode(vals)
		out = append(out, a)
	}
	return out, rows.Err()
}

// CountAttributes returns the number of attribute records.
func (s *Store) CountAttributes(ctx context.Context) (int, error) {
	var n int
	err := s.DB.QueryRowContext(ctx, `SELECT COUNT(*) FROM attributes`).Scan(&n)
	return n, err
}
