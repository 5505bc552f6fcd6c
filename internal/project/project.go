// Package project implements the PlayCraft services: profiles, projects
// and their files, publishing with numbered versions, and asset uploads.
// Every operation that touches user data is gated on the authenticated
// user in the context.
package project

import (
	"context"
	"fmt"
	"path"
	"strings"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/p-blackswan/playcraft/internal/auth"
	perrors "github.com/p-blackswan/playcraft/internal/errors"
	"github.com/p-blackswan/playcraft/internal/store"
	"github.com/p-blackswan/playcraft/internal/tracker"
)

const (
	maxNameLen        = 80
	maxDescriptionLen = 2000
	maxFileBytes      = 1 << 20
	maxFilesPerSave   = 500
)

// CreateInput holds the parameters for creating a project.
type CreateInput struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	Template    string `json:"template,omitempty"`
}

// UpdateInput holds the mutable fields of a project. Nil fields are kept.
type UpdateInput struct {
	Name        *string `json:"name,omitempty"`
	Description *string `json:"description,omitempty"`
}

// FileInput is one file to save.
type FileInput struct {
	Path    string `json:"path"`
	Content string `json:"content"`
}

// DeleteHook runs after a project is deleted.
type DeleteHook func(ctx context.Context, projectID string)

// Service manages projects and their files.
type Service struct {
	store    *store.Store
	trackers *tracker.Registry
	onDelete []DeleteHook
	newID    func() string
	logger   zerolog.Logger
}

// NewService creates a project service. trackers may be nil, in which case
// saved files are not fed to change tracking.
func NewService(st *store.Store, trackers *tracker.Registry, logger zerolog.Logger) *Service {
	return &Service{
		store:    st,
		trackers: trackers,
		newID:    func() string { return uuid.New().String() },
		logger:   logger.With().Str("component", "project").Logger(),
	}
}

// OnDelete registers fn to run after every project deletion.
func (s *Service) OnDelete(fn DeleteHook) {
	s.onDelete = append(s.onDelete, fn)
}

// Create makes a project owned by the current user, seeded from a template
// when one is named.
func (s *Service) Create(ctx context.Context, in CreateInput) (*store.Project, error) {
	user, err := auth.CurrentUser(ctx)
	if err != nil {
		return nil, err
	}
	name := strings.TrimSpace(in.Name)
	if name == "" {
		return nil, perrors.Invalid("project name is required")
	}
	if len(name) > maxNameLen {
		return nil, perrors.Invalid("project name exceeds %d characters", maxNameLen)
	}
	if len(in.Description) > maxDescriptionLen {
		return nil, perrors.Invalid("description exceeds %d characters", maxDescriptionLen)
	}
	var seed []FileInput
	if in.Template != "" {
		var ok bool
		if seed, ok = Template(in.Template); !ok {
			return nil, perrors.Invalid("unknown template %q", in.Template)
		}
	}

	p := &store.Project{
		ID:          s.newID(),
		OwnerID:     user.ID,
		Name:        name,
		Description: in.Description,
		Template:    in.Template,
	}
	if err := s.store.CreateProject(ctx, p); err != nil {
		return nil, perrors.Wrap("database", "create project", err)
	}
	if len(seed) > 0 {
		if _, err := s.writeFiles(ctx, p.ID, seed, tracker.SourceTemplate, false); err != nil {
			return nil, err
		}
	}

	s.logger.Info().
		Str("project_id", p.ID).
		Str("owner_id", user.ID).
		Str("template", in.Template).
		Msg("project created")
	return p, nil
}

// Get returns the project, or nil if it does not exist. Projects of other
// users are forbidden.
func (s *Service) Get(ctx context.Context, id string) (*store.Project, error) {
	user, err := auth.CurrentUser(ctx)
	if err != nil {
		return nil, err
	}
	p, err := s.store.GetProject(ctx, id)
	if err != nil {
		return nil, perrors.Wrap("database", "get project", err)
	}
	if p == nil {
		return nil, nil
	}
	if p.OwnerID != user.ID {
		return nil, perrors.ErrForbidden
	}
	return p, nil
}

// List returns the current user's projects, most recently updated first.
func (s *Service) List(ctx context.Context) ([]*store.Project, error) {
	user, err := auth.CurrentUser(ctx)
	if err != nil {
		return nil, err
	}
	list, err := s.store.ListProjects(ctx, user.ID)
	if err != nil {
		return nil, perrors.Wrap("database", "list projects", err)
	}
	if list == nil {
		list = []*store.Project{}
	}
	return list, nil
}

// Owned returns the project if it exists and belongs to the current user.
func (s *Service) Owned(ctx context.Context, id string) (*store.Project, error) {
	p, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if p == nil {
		return nil, fmt.Errorf("project %s: %w", id, perrors.ErrNotFound)
	}
	return p, nil
}

// Update applies the non-nil fields of in.
func (s *Service) Update(ctx context.Context, id string, in UpdateInput) (*store.Project, error) {
	p, err := s.Owned(ctx, id)
	if err != nil {
		return nil, err
	}
	if in.Name != nil {
		name := strings.TrimSpace(*in.Name)
		if name == "" || len(name) > maxNameLen {
			return nil, perrors.Invalid("project name must be 1-%d characters", maxNameLen)
		}
		p.Name = name
	}
	if in.Description != nil {
		if len(*in.Description) > maxDescriptionLen {
			return nil, perrors.Invalid("description exceeds %d characters", maxDescriptionLen)
		}
		p.Description = *in.Description
	}
	if err := s.store.UpdateProject(ctx, p); err != nil {
		return nil, perrors.Wrap("database", "update project", err)
	}
	return p, nil
}

// Delete removes the project and runs the delete hooks.
func (s *Service) Delete(ctx context.Context, id string) error {
	if _, err := s.Owned(ctx, id); err != nil {
		return err
	}
	if s.trackers != nil {
		if err := s.trackers.Dispose(ctx, id); err != nil {
			s.logger.Warn().Err(err).Str("project_id", id).Msg("flushing tracker before delete failed")
		}
	}
	if err := s.store.DeleteProject(ctx, id); err != nil {
		return perrors.Wrap("database", "delete project", err)
	}
	for _, fn := range s.onDelete {
		fn(ctx, id)
	}
	s.logger.Info().Str("project_id", id).Msg("project deleted")
	return nil
}

// SaveFiles upserts files and queues them for change tracking with source.
func (s *Service) SaveFiles(ctx context.Context, id string, files []FileInput, source tracker.Source) ([]store.ProjectFile, error) {
	if _, err := s.Owned(ctx, id); err != nil {
		return nil, err
	}
	if source == "" {
		source = tracker.SourceUserEdit
	}
	if !source.Valid() {
		return nil, perrors.Invalid("unknown change source %q", source)
	}
	return s.writeFiles(ctx, id, files, source, false)
}

// ListFiles returns the project's files ordered by path.
func (s *Service) ListFiles(ctx context.Context, id string) ([]store.ProjectFile, error) {
	if _, err := s.Owned(ctx, id); err != nil {
		return nil, err
	}
	files, err := s.store.ListFiles(ctx, id)
	if err != nil {
		return nil, perrors.Wrap("database", "list files", err)
	}
	if files == nil {
		files = []store.ProjectFile{}
	}
	return files, nil
}

// writeFiles validates, persists and tracks files. With replace set the
// project's file set becomes exactly files.
func (s *Service) writeFiles(ctx context.Context, id string, files []FileInput, source tracker.Source, replace bool) ([]store.ProjectFile, error) {
	if len(files) == 0 {
		return nil, perrors.Invalid("no files given")
	}
	if len(files) > maxFilesPerSave {
		return nil, perrors.Invalid("at most %d files per save", maxFilesPerSave)
	}
	rows := make([]store.ProjectFile, 0, len(files))
	for _, f := range files {
		p, err := CleanPath(f.Path)
		if err != nil {
			return nil, err
		}
		if len(f.Content) > maxFileBytes {
			return nil, perrors.Invalid("%s exceeds %d bytes", p, maxFileBytes)
		}
		rows = append(rows, store.ProjectFile{Path: p, Content: f.Content})
	}

	save := s.store.SaveFiles
	if replace {
		save = s.store.ReplaceFiles
	}
	if err := save(ctx, id, rows); err != nil {
		return nil, perrors.Wrap("database", "save files", err)
	}

	if s.trackers != nil {
		updates := make([]tracker.Update, len(rows))
		for i, r := range rows {
			updates[i] = tracker.Update{Path: r.Path, Content: r.Content, Source: source}
		}
		if err := s.trackers.Get(id).TrackChanges(updates); err != nil {
			s.logger.Warn().Err(err).Str("project_id", id).Msg("change tracking rejected saved files")
		}
	}
	return rows, nil
}

// CleanPath normalises a project file path to an absolute slash path.
func CleanPath(p string) (string, error) {
	p = strings.TrimSpace(p)
	if p == "" {
		return "", perrors.Invalid("file path is required")
	}
	if strings.ContainsRune(p, '\\') || strings.ContainsRune(p, 0) {
		return "", perrors.Invalid("invalid file path %q", p)
	}
	for _, seg := range strings.Split(p, "/") {
		if seg == ".." {
			return "", perrors.Invalid("file path %q escapes the project", p)
		}
	}
	clean := path.Clean("/" + p)
	if clean == "/" {
		return "", perrors.Invalid("invalid file path %q", p)
	}
	return clean, nil
}
