package store

import (
	"context"
	"encoding/json"
	"fmt"
	"time"
)

// Feedback records whether a suggested file was actually edited.
type Feedback struct {
	ProjectID string
	Path      string
	Reasons   []string
	Score     float64
	Accepted  bool
	CreatedAt time.Time
}

// RecordFeedback appends feedback rows.
func (s *Store) RecordFeedback(ctx context.Context, rows []Feedback) error {
	if len(rows) == 0 {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	now := s.now()
	for _, f := range rows {
		reasons, err := json.Marshal(f.Reasons)
		if err != nil {
			return fmt.Errorf("failed to encode reasons: %w", err)
		}
		created := f.CreatedAt
		if created.IsZero() {
			created = now
		}
		if _, err := tx.ExecContext(ctx, `
		INSERT INTO suggestion_feedback (project_id, path, reasons, score, accepted, created_at)
		VALUES (?, ?, ?, ?, ?, ?)`,
			f.ProjectID, f.Path, string(reasons), f.Score, f.Accepted, ms(created),
		); err != nil {
			return fmt.Errorf("failed to record feedback: %w", err)
		}
	}
	return tx.Commit()
}

// ListFeedback returns the most recent feedback of a project, newest first.
// limit <= 0 means no limit.
func (s *Store) ListFeedback(ctx context.Context, projectID string, limit int) ([]Feedback, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if limit <= 0 {
		limit = -1
	}
	rows, err := s.db.QueryContext(ctx, `
	SELECT project_id, path, reasons, score, accepted, created_at
	FROM suggestion_feedback WHERE project_id = ?
	ORDER BY created_at DESC, id DESC LIMIT ?`, projectID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list feedback: %w", err)
	}
	defer rows.Close()

	var out []Feedback
	for rows.Next() {
		var f Feedback
		var reasons string
		var created int64
		if err := rows.Scan(&f.ProjectID, &f.Path, &reasons, &f.Score, &f.Accepted, &created); err != nil {
			return nil, fmt.Errorf("failed to scan feedback: %w", err)
		}
		if err := json.Unmarshal([]byte(reasons), &f.Reasons); err != nil {
			return nil, fmt.Errorf("failed to decode reasons: %w", err)
		}
		f.CreatedAt = fromMS(created)
		out = append(out, f)
	}
	return out, rows.Err()
}
