package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// JobStatus is the lifecycle state of a publish job.
type JobStatus string

const (
	JobQueued    JobStatus = "queued"
	JobBuilding  JobStatus = "building"
	JobUploading JobStatus = "uploading"
	JobCompleted JobStatus = "completed"
	JobFailed    JobStatus = "failed"
)

// Terminal reports whether the job has finished.
func (s JobStatus) Terminal() bool {
	return s == JobCompleted || s == JobFailed
}

// PublishJob tracks one publish of a project.
type PublishJob struct {
	ID          string     `json:"id"`
	ProjectID   string     `json:"project_id"`
	VersionID   string     `json:"version_id,omitempty"`
	Status      JobStatus  `json:"status"`
	URL         string     `json:"url,omitempty"`
	Error       string     `json:"error,omitempty"`
	RequestedBy string     `json:"requested_by"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
}

// ProjectVersion is a numbered snapshot of a project's files stored as a
// bucket object.
type ProjectVersion struct {
	ID        string    `json:"id"`
	ProjectID string    `json:"project_id"`
	Number    int       `json:"number"`
	Label     string    `json:"label"`
	Notes     string    `json:"notes"`
	ObjectKey string    `json:"object_key"`
	FileCount int       `json:"file_count"`
	SizeBytes int64     `json:"size_bytes"`
	CreatedBy string    `json:"created_by"`
	CreatedAt time.Time `json:"created_at"`
}

// CreateVersion inserts v with the next version number of its project and
// sets v.Number.
func (s *Store) CreateVersion(ctx context.Context, v *ProjectVersion) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	var last sql.NullInt64
	if err := tx.QueryRowContext(ctx, `SELECT MAX(number) FROM project_versions WHERE project_id = ?`, v.ProjectID).Scan(&last); err != nil {
		return fmt.Errorf("failed to read version number: %w", err)
	}
	v.Number = int(last.Int64) + 1
	v.CreatedAt = s.now()

	if _, err := tx.ExecContext(ctx, `
	INSERT INTO project_versions (id, project_id, number, label, notes, object_key, file_count, size_bytes, created_by, created_at)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		v.ID, v.ProjectID, v.Number, v.Label, v.Notes, v.ObjectKey, v.FileCount, v.SizeBytes, v.CreatedBy, ms(v.CreatedAt),
	); err != nil {
		return fmt.Errorf("failed to create version: %w", err)
	}
	return tx.Commit()
}

const versionColumns = `id, project_id, number, label, notes, object_key, file_count, size_bytes, created_by, created_at`

func scanVersion(row scanner) (*ProjectVersion, error) {
	v := &ProjectVersion{}
	var created int64
	if err := row.Scan(&v.ID, &v.ProjectID, &v.Number, &v.Label, &v.Notes, &v.ObjectKey,
		&v.FileCount, &v.SizeBytes, &v.CreatedBy, &created); err != nil {
		return nil, err
	}
	v.CreatedAt = fromMS(created)
	return v, nil
}

// GetVersion returns a version, or nil if it does not exist.
func (s *Store) GetVersion(ctx context.Context, id string) (*ProjectVersion, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	v, err := scanVersion(s.db.QueryRowContext(ctx, `SELECT `+versionColumns+` FROM project_versions WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get version: %w", err)
	}
	return v, nil
}

// ListVersions returns the versions of a project, newest first.
func (s *Store) ListVersions(ctx context.Context, projectID string) ([]*ProjectVersion, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx, `SELECT `+versionColumns+`
	FROM project_versions WHERE project_id = ? ORDER BY number DESC`, projectID)
	if err != nil {
		return nil, fmt.Errorf("failed to list versions: %w", err)
	}
	defer rows.Close()

	var out []*ProjectVersion
	for rows.Next() {
		v, err := scanVersion(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan version: %w", err)
		}
		out = append(out, v)
	}
	return out, rows.Err()
}

// SavePublishJob inserts or updates a publish job.
func (s *Store) SavePublishJob(ctx context.Context, j *PublishJob) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	if j.CreatedAt.IsZero() {
		j.CreatedAt = now
	}
	j.UpdatedAt = now
	if j.Status.Terminal() && j.CompletedAt == nil {
		j.CompletedAt = &now
	}

	var completed sql.NullInt64
	if j.CompletedAt != nil {
		completed = sql.NullInt64{Int64: ms(*j.CompletedAt), Valid: true}
	}

	_, err := s.db.ExecContext(ctx, `
	INSERT OR REPLACE INTO publish_jobs (
		id, project_id, version_id, status, url, error, requested_by, created_at, updated_at, completed_at
	) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		j.ID, j.ProjectID, nullString(j.VersionID), string(j.Status), nullString(j.URL), nullString(j.Error),
		j.RequestedBy, ms(j.CreatedAt), ms(j.UpdatedAt), completed,
	)
	if err != nil {
		return fmt.Errorf("failed to save publish job: %w", err)
	}
	return nil
}

// GetPublishJob returns a publish job, or nil if it does not exist.
func (s *Store) GetPublishJob(ctx context.Context, id string) (*PublishJob, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	j := &PublishJob{}
	var version, url, errMsg sql.NullString
	var status string
	var created, updated int64
	var completed sql.NullInt64
	err := s.db.QueryRowContext(ctx, `
	SELECT id, project_id, version_id, status, url, error, requested_by, created_at, updated_at, completed_at
	FROM publish_jobs WHERE id = ?`, id).Scan(
		&j.ID, &j.ProjectID, &version, &status, &url, &errMsg, &j.RequestedBy, &created, &updated, &completed,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get publish job: %w", err)
	}
	j.VersionID = version.String
	j.Status = JobStatus(status)
	j.URL = url.String
	j.Error = errMsg.String
	j.CreatedAt = fromMS(created)
	j.UpdatedAt = fromMS(updated)
	if completed.Valid {
		t := fromMS(completed.Int64)
		j.CompletedAt = &t
	}
	return j, nil
}
