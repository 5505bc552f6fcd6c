package store

import (
	"context"
	"fmt"
	"time"
)

// RunRetention cleans up old data according to retention policies
func (s *Store) RunRetention(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()

	// Finished publish jobs older than 30 days
	_, err := s.db.ExecContext(ctx,
		"DELETE FROM publish_jobs WHERE completed_at IS NOT NULL AND completed_at < ?",
		now.Add(-30*24*time.Hour).UnixMilli(),
	)
	if err != nil {
		return fmt.Errorf("failed to delete old publish jobs: %w", err)
	}

	// Suggestion feedback older than 90 days no longer informs weights
	_, err = s.db.ExecContext(ctx,
		"DELETE FROM suggestion_feedback WHERE created_at < ?",
		now.Add(-90*24*time.Hour).UnixMilli(),
	)
	if err != nil {
		return fmt.Errorf("failed to delete old feedback: %w", err)
	}

	return nil
}

// DBSizeBytes returns the database size in bytes
func (s *Store) DBSizeBytes() (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var pageCount int64
	var pageSize int64

	err := s.db.QueryRow("PRAGMA page_count").Scan(&pageCount)
	if err != nil {
		return 0, fmt.Errorf("failed to get page count: %w", err)
	}

	err = s.db.QueryRow("PRAGMA page_size").Scan(&pageSize)
	if err != nil {
		return 0, fmt.Errorf("failed to get page size: %w", err)
	}

	return pageCount * pageSize, nil
}
