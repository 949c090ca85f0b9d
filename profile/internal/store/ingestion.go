package store

import (
	"context"
	"time"
)

// Ingestion statuses.
const (
	IngestionRunning = "running"
	IngestionDone    = "done"
	IngestionFailed  = "failed"
)

// Ingestion is one Learn run.
type Ingestion struct {
	ID         string `json:"id"`
	Source     string `json:"source,omitempty"`
	Root       string `json:"root"`
	Elements   int    `json:"elements"`
	Status     string `json:"status"`
	Error      string `json:"error,omitempty"`
	StartedAt  int64  `json:"started_at"`
	FinishedAt int64  `json:"finished_at,omitempty"`
}

// BeginIngestion inserts a running ingestion row.
func (s *Store) BeginIngestion(ctx context.Context, in *Ingestion) error {
	if in.StartedAt == 0 {
		in.StartedAt = time.Now().UnixMilli()
	}
	in.Status = IngestionRunning
	_, err := s.DB.ExecContext(ctx, `
		INSERT INTO ingestions (id, source, root, elements, status, started_at)
		VALUES (?,?,?,?,?,?)`,
		in.ID, in.Source, in.Root, in.Elements, in.Status, in.StartedAt,
	)
	return err
}

// FinishIngestion records the outcome of a run. A nil runErr marks it done.
func (s *Store) FinishIngestion(ctx context.Context, in *Ingestion, runErr error) error {
	in.FinishedAt = time.Now().UnixMilli()
	in.Status = IngestionDone
	in.Error = ""
	if runErr != nil {
		in.Status = IngestionFailed
		in.Error = runErr.Error()
	}
	_, err := s.DB.ExecContext(ctx, `
		UPDATE ingestions SET status = ?, error = ?, finished_at = ? WHERE id = ?`,
		in.Status, in.Error, in.FinishedAt, in.ID,
	)
	return err
}

// ListIngestions returns the most recent runs first. limit <= 0 means all.
func (s *Store) ListIngestions(ctx context.Context, limit int) ([]*Ingestion, error) {
	query := `SELECT id, source, root, elements, status, error, started_at, finished_at
	          FROM ingestions ORDER BY started_at DESC, id DESC`
	var args []any
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}
	rows, err := s.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*Ingestion
	for rows.Next() {
		in := &Ingestion{}
		if err := rows.Scan(&in.ID, &in.Source, &in.Root, &in.Elements, &in.Status,
			&in.Error, &in.StartedAt, &in.FinishedAt); err != nil {
			return nil, err
		}
		out = append(out, in)
	}
	return out, rows.Err()
}

// CountIngestions returns the number of recorded runs.
func (s *Store) CountIngestions(ctx context.Context) (int, error) {
	var n int
	err := s.DB.QueryRowContext(ctx, `SELECT COUNT(*) FROM ingestions`).Scan(&n)
	return n, err
}
