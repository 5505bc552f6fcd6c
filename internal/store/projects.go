package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// Project is a PlayCraft game project.
type Project struct {
	ID           string    `json:"id"`
	OwnerID      string    `json:"owner_id"`
	Name         string    `json:"name"`
	Description  string    `json:"description"`
	Template     string    `json:"template,omitempty"`
	PublishedURL string    `json:"published_url,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// ProjectFile is one source file of a project.
type ProjectFile struct {
	Path      string    `json:"path"`
	Content   string    `json:"content"`
	UpdatedAt time.Time `json:"updated_at"`
}

// CreateProject inserts p, stamping its timestamps.
func (s *Store) CreateProject(ctx context.Context, p *Project) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	p.CreatedAt, p.UpdatedAt = now, now
	_, err := s.db.ExecContext(ctx, `
	INSERT INTO projects (id, owner_id, name, description, template, published_url, created_at, updated_at)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		p.ID, p.OwnerID, p.Name, p.Description, p.Template, nullString(p.PublishedURL), ms(now), ms(now),
	)
	if err != nil {
		return fmt.Errorf("failed to create project: %w", err)
	}
	return nil
}

// GetProject returns the project, or nil if it does not exist.
func (s *Store) GetProject(ctx context.Context, id string) (*Project, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	row := s.db.QueryRowContext(ctx, `
	SELECT id, owner_id, name, description, template, published_url, created_at, updated_at
	FROM projects WHERE id = ?`, id)
	p, err := scanProject(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get project: %w", err)
	}
	return p, nil
}

// ListProjects returns the projects of ownerID, most recently updated first.
func (s *Store) ListProjects(ctx context.Context, ownerID string) ([]*Project, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx, `
	SELECT id, owner_id, name, description, template, published_url, created_at, updated_at
	FROM projects WHERE owner_id = ? ORDER BY updated_at DESC, id`, ownerID)
	if err != nil {
		return nil, fmt.Errorf("failed to list projects: %w", err)
	}
	defer rows.Close()

	var projects []*Project
	for rows.Next() {
		p, err := scanProject(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan project: %w", err)
		}
		projects = append(projects, p)
	}
	return projects, rows.Err()
}

// UpdateProject saves the mutable fields of p.
func (s *Store) UpdateProject(ctx context.Context, p *Project) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	p.UpdatedAt = s.now()
	res, err := s.db.ExecContext(ctx, `
	UPDATE projects SET name = ?, description = ?, template = ?, published_url = ?, updated_at = ?
	WHERE id = ?`,
		p.Name, p.Description, p.Template, nullString(p.PublishedURL), ms(p.UpdatedAt), p.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update project: %w", err)
	}
	return expectRow(res, "project", p.ID)
}

// DeleteProject removes a project and everything keyed by it.
func (s *Store) DeleteProject(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	for _, table := range []string{"file_hashes", "file_embeddings", "suggestion_feedback"} {
		if _, err := tx.ExecContext(ctx, `DELETE FROM `+table+` WHERE project_id = ?`, id); err != nil {
			return fmt.Errorf("failed to delete %s: %w", table, err)
		}
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM projects WHERE id = ?`, id); err != nil {
		return fmt.Errorf("failed to delete project: %w", err)
	}
	return tx.Commit()
}

// SaveFiles upserts files of a project and bumps the project's updated_at.
func (s *Store) SaveFiles(ctx context.Context, projectID string, files []ProjectFile) error {
	return s.writeFiles(ctx, projectID, files, false)
}

// ReplaceFiles makes files the complete file set of a project.
func (s *Store) ReplaceFiles(ctx context.Context, projectID string, files []ProjectFile) error {
	return s.writeFiles(ctx, projectID, files, true)
}

func (s *Store) writeFiles(ctx context.Context, projectID string, files []ProjectFile, replace bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if replace {
		if _, err := tx.ExecContext(ctx, `DELETE FROM project_files WHERE project_id = ?`, projectID); err != nil {
			return fmt.Errorf("failed to clear files: %w", err)
		}
	}

	now := s.now()
	stmt, err := tx.PrepareContext(ctx, `
	INSERT INTO project_files (project_id, path, content, updated_at) VALUES (?, ?, ?, ?)
	ON CONFLICT(project_id, path) DO UPDATE SET content = excluded.content, updated_at = excluded.updated_at`)
	if err != nil {
		return fmt.Errorf("failed to prepare file upsert: %w", err)
	}
	defer stmt.Close()

	for i := range files {
		files[i].UpdatedAt = now
		if _, err := stmt.ExecContext(ctx, projectID, files[i].Path, files[i].Content, ms(now)); err != nil {
			return fmt.Errorf("failed to save file %s: %w", files[i].Path, err)
		}
	}
	if _, err := tx.ExecContext(ctx, `UPDATE projects SET updated_at = ? WHERE id = ?`, ms(now), projectID); err != nil {
		return fmt.Errorf("failed to touch project: %w", err)
	}
	return tx.Commit()
}

// ListFiles returns every file of a project ordered by path.
func (s *Store) ListFiles(ctx context.Context, projectID string) ([]ProjectFile, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx, `
	SELECT path, content, updated_at FROM project_files WHERE project_id = ? ORDER BY path`, projectID)
	if err != nil {
		return nil, fmt.Errorf("failed to list files: %w", err)
	}
	defer rows.Close()

	var files []ProjectFile
	for rows.Next() {
		var f ProjectFile
		var updated int64
		if err := rows.Scan(&f.Path, &f.Content, &updated); err != nil {
			return nil, fmt.Errorf("failed to scan file: %w", err)
		}
		f.UpdatedAt = fromMS(updated)
		files = append(files, f)
	}
	return files, rows.Err()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanProject(row scanner) (*Project, error) {
	p := &Project{}
	var url sql.NullString
	var created, updated int64
	if err := row.Scan(&p.ID, &p.OwnerID, &p.Name, &p.Description, &p.Template, &url, &created, &updated); err != nil {
		return nil, err
	}
	p.PublishedURL = url.String
	p.CreatedAt = fromMS(created)
	p.UpdatedAt = fromMS(updated)
	return p, nil
}

// ErrNoRows is returned by updates that matched nothing.
var ErrNoRows = errors.New("no matching row")

func expectRow(res sql.Result, kind, id string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read affected rows: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("%s %s: %w", kind, id, ErrNoRows)
	}
	return nil
}
