package store

import (
	"context"
	"encoding/json"
	"fmt"
	"time"
)

// FileHash is the last known content hash of a project file.
type FileHash struct {
	Path      string    `json:"path"`
	Hash      string    `json:"hash"`
	Source    string    `json:"source"`
	UpdatedAt time.Time `json:"updated_at"`
}

// SaveFileHashes upserts hash records for a project in one transaction.
func (s *Store) SaveFileHashes(ctx context.Context, projectID string, hashes []FileHash) error {
	if len(hashes) == 0 {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `
	INSERT INTO file_hashes (project_id, path, hash, source, updated_at) VALUES (?, ?, ?, ?, ?)
	ON CONFLICT(project_id, path) DO UPDATE SET
		hash = excluded.hash, source = excluded.source, updated_at = excluded.updated_at`)
	if err != nil {
		return fmt.Errorf("failed to prepare hash upsert: %w", err)
	}
	defer stmt.Close()

	for _, h := range hashes {
		updated := h.UpdatedAt
		if updated.IsZero() {
			updated = s.now()
		}
		if _, err := stmt.ExecContext(ctx, projectID, h.Path, h.Hash, h.Source, ms(updated)); err != nil {
			return fmt.Errorf("failed to save hash for %s: %w", h.Path, err)
		}
	}
	return tx.Commit()
}

// GetFileHashes returns the stored hashes of a project keyed by path.
func (s *Store) GetFileHashes(ctx context.Context, projectID string) (map[string]FileHash, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx, `
	SELECT path, hash, source, updated_at FROM file_hashes WHERE project_id = ?`, projectID)
	if err != nil {
		return nil, fmt.Errorf("failed to get file hashes: %w", err)
	}
	defer rows.Close()

	out := make(map[string]FileHash)
	for rows.Next() {
		var h FileHash
		var updated int64
		if err := rows.Scan(&h.Path, &h.Hash, &h.Source, &updated); err != nil {
			return nil, fmt.Errorf("failed to scan file hash: %w", err)
		}
		h.UpdatedAt = fromMS(updated)
		out[h.Path] = h
	}
	return out, rows.Err()
}

// SaveEmbedding stores the embedding vector of a project file.
func (s *Store) SaveEmbedding(ctx context.Context, projectID, path, model string, vec []float32) error {
	raw, err := json.Marshal(vec)
	if err != nil {
		return fmt.Errorf("failed to encode embedding: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	_, err = s.db.ExecContext(ctx, `
	INSERT INTO file_embeddings (project_id, path, model, vector, updated_at) VALUES (?, ?, ?, ?, ?)
	ON CONFLICT(project_id, path) DO UPDATE SET
		model = excluded.model, vector = excluded.vector, updated_at = excluded.updated_at`,
		projectID, path, model, string(raw), ms(s.now()),
	)
	if err != nil {
		return fmt.Errorf("failed to save embedding: %w", err)
	}
	return nil
}

// LoadEmbeddings returns every stored vector of a project keyed by path.
func (s *Store) LoadEmbeddings(ctx context.Context, projectID string) (map[string][]float32, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx, `SELECT path, vector FROM file_embeddings WHERE project_id = ?`, projectID)
	if err != nil {
		return nil, fmt.Errorf("failed to load embeddings: %w", err)
	}
	defer rows.Close()

	out := make(map[string][]float32)
	for rows.Next() {
		var path, raw string
		if err := rows.Scan(&path, &raw); err != nil {
			return nil, fmt.Errorf("failed to scan embedding: %w", err)
		}
		var vec []float32
		if err := json.Unmarshal([]byte(raw), &vec); err != nil {
			s.logger.Warn().Err(err).Str("project_id", projectID).Str("path", path).Msg("skipping corrupt embedding")
			continue
		}
		out[path] = vec
	}
	return out, rows.Err()
}

// DeleteEmbedding removes the vector of a project file.
func (s *Store) DeleteEmbedding(ctx context.Context, projectID, path string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, err := s.db.ExecContext(ctx, `DELETE FROM file_embeddings WHERE project_id = ? AND path = ?`, projectID, path); err != nil {
		return fmt.Errorf("failed to delete embedding: %w", err)
	}
	return nil
}
