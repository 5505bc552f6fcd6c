package project

import (
	"context"
	"fmt"
	"mime"
	"path"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/p-blackswan/playcraft/internal/auth"
	"github.com/p-blackswan/playcraft/internal/bucket"
	perrors "github.com/p-blackswan/playcraft/internal/errors"
	"github.com/p-blackswan/playcraft/internal/notify"
	"github.com/p-blackswan/playcraft/internal/store"
	"github.com/p-blackswan/playcraft/internal/tracker"
)

const maxLabelLen = 100

// PublishConfig configures a PublishService.
type PublishConfig struct {
	// PublicBaseURL prefixes published game URLs.
	PublicBaseURL string
}

// PublishService snapshots projects into numbered versions and publishes
// them to the bucket.
type PublishService struct {
	projects *Service
	store    *store.Store
	bucket   bucket.Bucket
	notifier notify.Notifier
	baseURL  string
	newID    func() string
	now      func() time.Time
	logger   zerolog.Logger
}

// NewPublishService creates a publish service. A nil notifier disables
// notifications.
func NewPublishService(projects *Service, st *store.Store, b bucket.Bucket, n notify.Notifier, cfg PublishConfig, logger zerolog.Logger) *PublishService {
	if n == nil {
		n = notify.Nop{}
	}
	return &PublishService{
		projects: projects,
		store:    st,
		bucket:   b,
		notifier: n,
		baseURL:  strings.TrimRight(cfg.PublicBaseURL, "/"),
		newID:    func() string { return uuid.New().String() },
		now:      func() time.Time { return time.Now().UTC() },
		logger:   logger.With().Str("component", "publish").Logger(),
	}
}

// VersionKey is the bucket key of a version snapshot.
func VersionKey(projectID, versionID string) string {
	return bucket.Join("versions", projectID, versionID+".json.gz")
}

// PublishedKey is the bucket key of a published file.
func PublishedKey(projectID, filePath string) string {
	return bucket.Join("published", projectID, filePath)
}

// Publish snapshots the project's files as a new version and writes them
// to the published location. The job moves through queued, building and
// uploading to completed or failed. A failed job is returned together with
// the error.
func (s *PublishService) Publish(ctx context.Context, projectID, label, notes string) (*store.PublishJob, error) {
	user, err := auth.CurrentUser(ctx)
	if err != nil {
		return nil, err
	}
	p, err := s.projects.Owned(ctx, projectID)
	if err != nil {
		return nil, err
	}
	if len(label) > maxLabelLen {
		return nil, perrors.Invalid("label exceeds %d characters", maxLabelLen)
	}
	files, err := s.store.ListFiles(ctx, projectID)
	if err != nil {
		return nil, perrors.Wrap("database", "list files", err)
	}
	if len(files) == 0 {
		return nil, perrors.Invalid("project has no files to publish")
	}

	job := &store.PublishJob{
		ID:          s.newID(),
		ProjectID:   projectID,
		Status:      store.JobQueued,
		RequestedBy: user.ID,
	}
	if err := s.store.SavePublishJob(ctx, job); err != nil {
		return nil, perrors.Wrap("database", "create publish job", err)
	}
	log := s.logger.With().Str("job_id", job.ID).Str("project_id", projectID).Logger()
	log.Info().Int("files", len(files)).Msg("publish started")

	version, err := s.run(ctx, job, p, files, label, notes, user.ID)
	if err != nil {
		job.Status = store.JobFailed
		job.Error = err.Error()
		if saveErr := s.store.SavePublishJob(ctx, job); saveErr != nil {
			log.Error().Err(saveErr).Msg("recording failed publish job")
		}
		log.Error().Err(err).Msg("publish failed")
		s.notify(ctx, job, p, 0, label)
		return job, err
	}

	log.Info().Int("version", version.Number).Str("url", job.URL).Msg("publish completed")
	s.notify(ctx, job, p, version.Number, label)
	return job, nil
}

func (s *PublishService) run(ctx context.Context, job *store.PublishJob, p *store.Project, files []store.ProjectFile, label, notes, userID string) (*store.ProjectVersion, error) {
	if err := s.advance(ctx, job, store.JobBuilding); err != nil {
		return nil, err
	}
	data, err := EncodeBundle(&Bundle{ProjectID: p.ID, CreatedAt: s.now(), Files: files})
	if err != nil {
		return nil, err
	}

	v := &store.ProjectVersion{
		ID:        s.newID(),
		ProjectID: p.ID,
		Label:     label,
		Notes:     notes,
		FileCount: len(files),
		SizeBytes: int64(len(data)),
		CreatedBy: userID,
	}
	v.ObjectKey = VersionKey(p.ID, v.ID)
	if err := s.bucket.Put(ctx, v.ObjectKey, data, "application/gzip"); err != nil {
		return nil, perrors.Wrap("storage", "store snapshot", err)
	}
	if err := s.store.CreateVersion(ctx, v); err != nil {
		return nil, perrors.Wrap("database", "create version", err)
	}
	job.VersionID = v.ID

	if err := s.advance(ctx, job, store.JobUploading); err != nil {
		return nil, err
	}
	for _, f := range files {
		if err := s.bucket.Put(ctx, PublishedKey(p.ID, f.Path), []byte(f.Content), contentTypeOf(f.Path)); err != nil {
			return nil, perrors.Wrap("storage", "upload "+f.Path, err)
		}
	}

	job.URL = s.baseURL + "/" + PublishedKey(p.ID, "index.html")
	p.PublishedURL = job.URL
	if err := s.store.UpdateProject(ctx, p); err != nil {
		return nil, perrors.Wrap("database", "update project", err)
	}
	if err := s.advance(ctx, job, store.JobCompleted); err != nil {
		return nil, err
	}
	return v, nil
}

func (s *PublishService) advance(ctx context.Context, job *store.PublishJob, status store.JobStatus) error {
	job.Status = status
	if err := s.store.SavePublishJob(ctx, job); err != nil {
		return perrors.Wrap("database", "update publish job", err)
	}
	return nil
}

func (s *PublishService) notify(ctx context.Context, job *store.PublishJob, p *store.Project, version int, label string) {
	err := s.notifier.PublishFinished(ctx, notify.PublishEvent{
		JobID:       job.ID,
		ProjectID:   p.ID,
		ProjectName: p.Name,
		Version:     version,
		Label:       label,
		URL:         job.URL,
		Succeeded:   job.Status == store.JobCompleted,
		Error:       job.Error,
		RequestedBy: job.RequestedBy,
	})
	if err != nil {
		s.logger.Warn().Err(err).Str("job_id", job.ID).Msg("publish notification failed")
	}
}

// ListVersions returns the project's versions, newest first.
func (s *PublishService) ListVersions(ctx context.Context, projectID string) ([]*store.ProjectVersion, error) {
	if _, err := s.projects.Owned(ctx, projectID); err != nil {
		return nil, err
	}
	list, err := s.store.ListVersions(ctx, projectID)
	if err != nil {
		return nil, perrors.Wrap("database", "list versions", err)
	}
	if list == nil {
		list = []*store.ProjectVersion{}
	}
	return list, nil
}

// GetVersion returns one version of the project, or nil.
func (s *PublishService) GetVersion(ctx context.Context, projectID, versionID string) (*store.ProjectVersion, error) {
	if _, err := s.projects.Owned(ctx, projectID); err != nil {
		return nil, err
	}
	v, err := s.store.GetVersion(ctx, versionID)
	if err != nil {
		return nil, perrors.Wrap("database", "get version", err)
	}
	if v == nil || v.ProjectID != projectID {
		return nil, nil
	}
	return v, nil
}

// RestoreVersion replaces the project's files with the version snapshot
// and returns the restored files.
func (s *PublishService) RestoreVersion(ctx context.Context, projectID, versionID string) ([]store.ProjectFile, error) {
	v, err := s.GetVersion(ctx, projectID, versionID)
	if err != nil {
		return nil, err
	}
	if v == nil {
		return nil, fmt.Errorf("version %s: %w", versionID, perrors.ErrNotFound)
	}
	obj, err := s.bucket.Get(ctx, v.ObjectKey)
	if err != nil {
		return nil, perrors.Wrap("storage", "load snapshot", err)
	}
	b, err := DecodeBundle(obj.Data)
	if err != nil {
		return nil, perrors.Wrap("storage", "decode snapshot", err)
	}

	inputs := make([]FileInput, len(b.Files))
	for i, f := range b.Files {
		inputs[i] = FileInput{Path: f.Path, Content: f.Content}
	}
	restored, err := s.projects.writeFiles(ctx, projectID, inputs, tracker.SourceVersionRestore, true)
	if err != nil {
		return nil, err
	}
	s.logger.Info().
		Str("project_id", projectID).
		Int("version", v.Number).
		Int("files", len(restored)).
		Msg("version restored")
	return restored, nil
}

// GetJob returns a publish job of one of the current user's projects, or
// nil.
func (s *PublishService) GetJob(ctx context.Context, jobID string) (*store.PublishJob, error) {
	if _, err := auth.CurrentUser(ctx); err != nil {
		return nil, err
	}
	job, err := s.store.GetPublishJob(ctx, jobID)
	if err != nil {
		return nil, perrors.Wrap("database", "get publish job", err)
	}
	if job == nil {
		return nil, nil
	}
	p, err := s.projects.Get(ctx, job.ProjectID)
	if err != nil {
		return nil, err
	}
	if p == nil {
		return nil, nil
	}
	return job, nil
}

func contentTypeOf(p string) string {
	switch ext := path.Ext(p); ext {
	case ".ts", ".tsx", ".jsx", ".mjs":
		return "text/javascript; charset=utf-8"
	default:
		if ct := mime.TypeByExtension(ext); ct != "" {
			return ct
		}
	}
	return "application/octet-stream"
}
