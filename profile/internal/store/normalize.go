package store

import (
	"context"
	"database/sql"
	"errors"

	"github.com/hazyhaar/xmlprofile/dbopen"
	"github.com/hazyhaar/xmlprofile/valueset"
)

// AttributeKey identifies one attribute record.
type AttributeKey struct {
	Element   string
	Attribute string
}

// NormalizeElements re-decodes and re-encodes the set columns of the named
// elements, or of every element when names is nil. Returns the number of
// rows whose stored text changed.
func (s *Store) NormalizeElements(ctx context.Context, names []string) (int, error) {
	var changed int
	err := dbopen.RunTx(ctx, s.DB, func(tx *sql.Tx) error {
		changed = 0
		rows, err := selectRaw(ctx, tx, `SELECT name, children, attributes FROM elements`, names,
			`SELECT name, children, attributes FROM elements WHERE name = ?`)
		if err != nil {
			return err
		}
		for _, r := range rows {
			c, a := valueset.Normalize(r[1]), valueset.Normalize(r[2])
			if c == r[1] && a == r[2] {
				continue
			}
			if _, err := tx.ExecContext(ctx,
				`UPDATE elements SET children = ?, attributes = ? WHERE name = ?`, c, a, r[0]); err != nil {
				return err
			}
			changed++
		}
		return nil
	})
	return changed, err
}

// NormalizeAttributes does the same for attribute records, or every record
// when keys is nil.
func (s *Store) NormalizeAttributes(ctx context.Context, keys []AttributeKey) (int, error) {
	var changed int
	err := dbopen.RunTx(ctx, s.DB, func(tx *sql.Tx) error {
		changed = 0
		var rows [][3]string
		if keys == nil {
			all, err := selectRaw(ctx, tx, `SELECT attribute, element, vals FROM attributes`, nil, "")
			if err != nil {
				return err
			}
			rows = all
		} else {
			for _, k := range keys {
				var vals string
				err := tx.QueryRowContext(ctx,
					`SELECT vals FROM attributes WHERE attribute = ? AND element = ?`,
					k.Attribute, k.Element).Scan(&vals)
				if errors.Is(err, sql.ErrNoRows) {
					continue
				}
				if err != nil {
					return err
				}
				rows = append(rows, [3]string{k.Attribute, k.Element, vals})
			}
		}
		for _, r := range rows {
			v := valueset.Normalize(r[2])
			if v == r[2] {
				continue
			}
			if _, err := tx.ExecContext(ctx,
				`UPDATE attributes SET vals = ? WHERE attribute = ? AND element = ?`, v, r[0], r[1]); err != nil {
				return err
			}
			changed++
		}
		return nil
	})
	return changed, err
}

// selectRaw reads three text columns, either with queryAll or with
// queryOne once per key.
func selectRaw(ctx context.Context, tx *sql.Tx, queryAll string, keys []string, queryOne string) ([][3]string, error) {
	var out [][3]string
	scan := func(rows *sql.Rows) error {
		defer rows.Close()
		for rows.Next() {
			var r [3]string
			if err := rows.Scan(&r[0], &r[1], &r[2]); err != nil {
				return err
			}
			out = append(out, r)
		}
		return rows.Err()
	}

	if keys == nil {
		rows, err := tx.QueryContext(ctx, queryAll)
		if err != nil {
			return nil, err
		}
		return out, scan(rows)
	}
	for _, k := range keys {
		rows, err := tx.QueryContext(ctx, queryOne, k)
		if err != nil {
			return nil, err
		}
		if err := scan(rows); err != nil {
			return nil, err
		}
	}
	return out, nil
}
