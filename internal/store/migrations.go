package store

import (
	"fmt"
)

func (s *Store) migrate() error {
	if err := s.migrateV1(); err != nil {
		return err
	}
	if err := s.migrateV2(); err != nil {
		return err
	}
	return s.migrateV3()
}

func (s *Store) schemaVersion() string {
	var version string
	if err := s.db.QueryRow(`SELECT value FROM meta WHERE key = 'schema_version'`).Scan(&version); err != nil {
		return ""
	}
	return version
}

func (s *Store) migrateV1() error {
	schema := `
	CREATE TABLE IF NOT EXISTS meta (
		key TEXT PRIMARY KEY,
		value TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS profiles (
		user_id      TEXT PRIMARY KEY,
		username     TEXT NOT NULL DEFAULT '',
		display_name TEXT NOT NULL DEFAULT '',
		avatar_url   TEXT,
		bio          TEXT NOT NULL DEFAULT '',
		created_at   INTEGER NOT NULL,
		updated_at   INTEGER NOT NULL
	);

	CREATE TABLE IF NOT EXISTS projects (
		id            TEXT PRIMARY KEY,
		owner_id      TEXT NOT NULL,
		name          TEXT NOT NULL,
		description   TEXT NOT NULL DEFAULT '',
		template      TEXT NOT NULL DEFAULT '',
		published_url TEXT,
		created_at    INTEGER NOT NULL,
		updated_at    INTEGER NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_projects_owner ON projects(owner_id, updated_at);

	CREATE TABLE IF NOT EXISTS project_files (
		project_id TEXT NOT NULL REFERENCES projects(id) ON DELETE CASCADE,
		path       TEXT NOT NULL,
		content    TEXT NOT NULL,
		updated_at INTEGER NOT NULL,
		PRIMARY KEY (project_id, path)
	);

	CREATE TABLE IF NOT EXISTS file_hashes (
		project_id TEXT NOT NULL,
		path       TEXT NOT NULL,
		hash       TEXT NOT NULL,
		source     TEXT NOT NULL,
		updated_at INTEGER NOT NULL,
		PRIMARY KEY (project_id, path)
	);

	CREATE INDEX IF NOT EXISTS idx_file_hashes_updated ON file_hashes(project_id, updated_at);
	`

	if _, err := s.db.Exec(schema); err != nil {
		return fmt.Errorf("failed to execute migration v1: %w", err)
	}
	if s.schemaVersion() == "" {
		if _, err := s.db.Exec(`INSERT INTO meta(key, value) VALUES ('schema_version', '1')`); err != nil {
			return fmt.Errorf("failed to set schema version: %w", err)
		}
	}
	return nil
}

func (s *Store) migrateV2() error {
	if s.schemaVersion() >= "2" {
		return nil
	}

	schema := `
	CREATE TABLE IF NOT EXISTS file_embeddings (
		project_id TEXT NOT NULL,
		path       TEXT NOT NULL,
		model      TEXT NOT NULL DEFAULT '',
		vector     TEXT NOT NULL,
		updated_at INTEGER NOT NULL,
		PRIMARY KEY (project_id, path)
	);

	CREATE TABLE IF NOT EXISTS suggestion_feedback (
		id          INTEGER PRIMARY KEY AUTOINCREMENT,
		project_id  TEXT NOT NULL,
		path        TEXT NOT NULL,
		reasons     TEXT NOT NULL,
		score       REAL NOT NULL,
		accepted    INTEGER NOT NULL,
		created_at  INTEGER NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_feedback_project ON suggestion_feedback(project_id, created_at);
	`

	if _, err := s.db.Exec(schema); err != nil {
		return fmt.Errorf("failed to execute migration v2: %w", err)
	}

	if _, err := s.db.Exec(`INSERT OR REPLACE INTO meta(key, value) VALUES ('schema_version', '2')`); err != nil {
		return fmt.Errorf("failed to update schema version: %w", err)
	}
	return nil
}

func (s *Store) migrateV3() error {
	if s.schemaVersion() >= "3" {
		return nil
	}

	schema := `
	CREATE TABLE IF NOT EXISTS project_versions (
		id          TEXT PRIMARY KEY,
		project_id  TEXT NOT NULL REFERENCES projects(id) ON DELETE CASCADE,
		number      INTEGER NOT NULL,
		label       TEXT NOT NULL DEFAULT '',
		notes       TEXT NOT NULL DEFAULT '',
		object_key  TEXT NOT NULL,
		file_count  INTEGER NOT NULL,
		size_bytes  INTEGER NOT NULL,
		created_by  TEXT NOT NULL,
		created_at  INTEGER NOT NULL,
		UNIQUE (project_id, number)
	);

	CREATE TABLE IF NOT EXISTS publish_jobs (
		id           TEXT PRIMARY KEY,
		project_id   TEXT NOT NULL REFERENCES projects(id) ON DELETE CASCADE,
		version_id   TEXT,
		status       TEXT NOT NULL DEFAULT 'queued',
		url          TEXT,
		error        TEXT,
		requested_by TEXT NOT NULL,
		created_at   INTEGER NOT NULL,
		updated_at   INTEGER NOT NULL,
		completed_at INTEGER
	);

	CREATE INDEX IF NOT EXISTS idx_publish_jobs_project ON publish_jobs(project_id, created_at);
	CREATE INDEX IF NOT EXISTS idx_publish_jobs_status ON publish_jobs(status);
	`

	if _, err := s.db.Exec(schema); err != nil {
		return fmt.Errorf("failed to execute migration v3: %w", err)
	}

	if _, err := s.db.Exec(`INSERT OR REPLACE INTO meta(key, value) VALUES ('schema_version', '3')`); err != nil {
		return fmt.Errorf("failed to update schema version: %w", err)
	}
	return nil
}
