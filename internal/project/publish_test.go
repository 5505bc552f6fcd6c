package project

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/p-blackswan/playcraft/internal/bucket"
	perrors "github.com/p-blackswan/playcraft/internal/errors"
	"github.com/p-blackswan/playcraft/internal/notify"
	"github.com/p-blackswan/playcraft/internal/store"
	"github.com/p-blackswan/playcraft/internal/tracker"
)

type recordingNotifier struct {
	mu     sync.Mutex
	events []notify.PublishEvent
}

func (r *recordingNotifier) PublishFinished(_ context.Context, ev notify.PublishEvent) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, ev)
	return errors.New("webhook down")
}

// failingBucket rejects writes under a prefix.
type failingBucket struct {
	*bucket.MemoryBucket
	prefix string
}

func (f failingBucket) Put(ctx context.Context, key string, data []byte, ct string) error {
	if len(key) >= len(f.prefix) && key[:len(f.prefix)] == f.prefix {
		return errors.New("quota exceeded")
	}
	return f.MemoryBucket.Put(ctx, key, data, ct)
}

type publishFixture struct {
	store    *store.Store
	projects *Service
	publish  *PublishService
	bucket   bucket.Bucket
	notifier *recordingNotifier
	project  *store.Project
}

func newPublishFixture(t *testing.T, b bucket.Bucket) *publishFixture {
	t.Helper()
	st := newStore(t)
	projects := NewService(st, newTrackers(t, st), zerolog.Nop())
	n := &recordingNotifier{}
	pub := NewPublishService(projects, st, b, n, PublishConfig{PublicBaseURL: "https://play.example.com/"}, zerolog.Nop())

	p, err := projects.Create(as("u1"), CreateInput{Name: "Match Quest", Template: "match3"})
	require.NoError(t, err)
	return &publishFixture{store: st, projects: projects, publish: pub, bucket: b, notifier: n, project: p}
}

func TestPublish_Completes(t *testing.T) {
	f := newPublishFixture(t, bucket.NewMemoryBucket())
	ctx := as("u1")

	job, err := f.publish.Publish(ctx, f.project.ID, "beta", "first cut")
	require.NoError(t, err)
	assert.Equal(t, store.JobCompleted, job.Status)
	assert.NotEmpty(t, job.VersionID)
	assert.Equal(t, "https://play.example.com/published/"+f.project.ID+"/index.html", job.URL)
	require.NotNil(t, job.CompletedAt)

	stored, err := f.publish.GetJob(ctx, job.ID)
	require.NoError(t, err)
	assert.Equal(t, store.JobCompleted, stored.Status)

	v, err := f.publish.GetVersion(ctx, f.project.ID, job.VersionID)
	require.NoError(t, err)
	require.NotNil(t, v)
	assert.Equal(t, 1, v.Number)
	assert.Equal(t, "beta", v.Label)
	seed, _ := Template("match3")
	assert.Equal(t, len(seed), v.FileCount)

	obj, err := f.bucket.Get(context.Background(), v.ObjectKey)
	require.NoError(t, err)
	b, err := DecodeBundle(obj.Data)
	require.NoError(t, err)
	assert.Len(t, b.Files, len(seed))

	page, err := f.bucket.Get(context.Background(), PublishedKey(f.project.ID, "/index.html"))
	require.NoError(t, err)
	assert.Contains(t, page.ContentType, "text/html")

	p, err := f.projects.Get(ctx, f.project.ID)
	require.NoError(t, err)
	assert.Equal(t, job.URL, p.PublishedURL)

	require.Len(t, f.notifier.events, 1)
	assert.True(t, f.notifier.events[0].Succeeded)
	assert.Equal(t, 1, f.notifier.events[0].Version)
	assert.Equal(t, "Match Quest", f.notifier.events[0].ProjectName)
}

func TestPublish_NumbersVersions(t *testing.T) {
	f := newPublishFixture(t, bucket.NewMemoryBucket())
	ctx := as("u1")

	_, err := f.publish.Publish(ctx, f.project.ID, "one", "")
	require.NoError(t, err)
	_, err = f.publish.Publish(ctx, f.project.ID, "two", "")
	require.NoError(t, err)

	versions, err := f.publish.ListVersions(ctx, f.project.ID)
	require.NoError(t, err)
	require.Len(t, versions, 2)
	assert.Equal(t, 2, versions[0].Number)
	assert.Equal(t, "two", versions[0].Label)
	assert.Equal(t, 1, versions[1].Number)
}

func TestPublish_Gates(t *testing.T) {
	f := newPublishFixture(t, bucket.NewMemoryBucket())

	_, err := f.publish.Publish(context.Background(), f.project.ID, "", "")
	assert.ErrorIs(t, err, perrors.ErrNotAuthenticated)

	_, err = f.publish.Publish(as("u2"), f.project.ID, "", "")
	assert.ErrorIs(t, err, perrors.ErrForbidden)

	_, err = f.publish.Publish(as("u1"), "missing", "", "")
	assert.ErrorIs(t, err, perrors.ErrNotFound)

	empty, err := f.projects.Create(as("u1"), CreateInput{Name: "Empty"})
	require.NoError(t, err)
	_, err = f.publish.Publish(as("u1"), empty.ID, "", "")
	assert.ErrorIs(t, err, perrors.ErrInvalidInput)

	assert.Empty(t, f.notifier.events)
}

func TestPublish_UploadFailureFailsJob(t *testing.T) {
	f := newPublishFixture(t, failingBucket{MemoryBucket: bucket.NewMemoryBucket(), prefix: "published/"})
	ctx := as("u1")

	job, err := f.publish.Publish(ctx, f.project.ID, "", "")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "quota exceeded")

	var svcErr *perrors.ServiceError
	require.True(t, errors.As(err, &svcErr))
	assert.Equal(t, "storage", svcErr.Service)

	require.NotNil(t, job)
	assert.Equal(t, store.JobFailed, job.Status)
	assert.Contains(t, job.Error, "quota exceeded")

	stored, err := f.publish.GetJob(ctx, job.ID)
	require.NoError(t, err)
	assert.Equal(t, store.JobFailed, stored.Status)
	assert.NotNil(t, stored.CompletedAt)

	require.Len(t, f.notifier.events, 1)
	assert.False(t, f.notifier.events[0].Succeeded)
}

func TestRestoreVersion(t *testing.T) {
	f := newPublishFixture(t, bucket.NewMemoryBucket())
	ctx := as("u1")

	job, err := f.publish.Publish(ctx, f.project.ID, "", "")
	require.NoError(t, err)

	_, err = f.projects.SaveFiles(ctx, f.project.ID, []FileInput{
		{Path: "/src/App.tsx", Content: "broken"},
		{Path: "/src/Extra.tsx", Content: "export {}"},
	}, tracker.SourceAIEdit)
	require.NoError(t, err)

	restored, err := f.publish.RestoreVersion(ctx, f.project.ID, job.VersionID)
	require.NoError(t, err)
	seed, _ := Template("match3")
	assert.Len(t, restored, len(seed))

	files, err := f.projects.ListFiles(ctx, f.project.ID)
	require.NoError(t, err)
	assert.Len(t, files, len(seed))
	for _, file := range files {
		assert.NotEqual(t, "/src/Extra.tsx", file.Path)
		if file.Path == "/src/App.tsx" {
			assert.Contains(t, file.Content, "GameBoard")
		}
	}

	_, err = f.publish.RestoreVersion(ctx, f.project.ID, "missing")
	assert.ErrorIs(t, err, perrors.ErrNotFound)
}

func TestGetJob_Visibility(t *testing.T) {
	f := newPublishFixture(t, bucket.NewMemoryBucket())
	job, err := f.publish.Publish(as("u1"), f.project.ID, "", "")
	require.NoError(t, err)

	missing, err := f.publish.GetJob(as("u1"), "nope")
	require.NoError(t, err)
	assert.Nil(t, missing)

	_, err = f.publish.GetJob(as("u2"), job.ID)
	assert.ErrorIs(t, err, perrors.ErrForbidden)

	_, err = f.publish.GetJob(context.Background(), job.ID)
	assert.ErrorIs(t, err, perrors.ErrNotAuthenticated)
}

func TestBundleRoundTrip(t *testing.T) {
	in := &Bundle{ProjectID: "p1", Files: []store.ProjectFile{{Path: "/a.ts", Content: "export {}"}}}
	data, err := EncodeBundle(in)
	require.NoError(t, err)

	out, err := DecodeBundle(data)
	require.NoError(t, err)
	assert.Equal(t, "p1", out.ProjectID)
	assert.Equal(t, in.Files[0].Content, out.Files[0].Content)

	_, err = DecodeBundle([]byte("not gzip"))
	assert.Error(t, err)
}
