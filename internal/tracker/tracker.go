// Package tracker follows edits to project files. Changes are debounced per
// project, hashed to drop no-op writes, persisted, and then optionally
// embedded one file at a time.
package tracker

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/rs/zerolog"

	perrors "github.com/p-blackswan/playcraft/internal/errors"
)

// Source says where a change came from.
type Source string

const (
	SourceUserEdit       Source = "user-edit"
	SourceAIEdit         Source = "ai-edit"
	SourceTemplate       Source = "template"
	SourceImport         Source = "import"
	SourceVersionRestore Source = "version-restore"
)

// Valid reports whether s is a known source.
func (s Source) Valid() bool {
	switch s {
	case SourceUserEdit, SourceAIEdit, SourceTemplate, SourceImport, SourceVersionRestore:
		return true
	}
	return false
}

// Change is a detected content change of one file.
type Change struct {
	Path      string    `json:"path"`
	Hash      string    `json:"hash"`
	Source    Source    `json:"source"`
	Timestamp time.Time `json:"timestamp"`
}

// Update is one queued edit.
type Update struct {
	Path    string `json:"path"`
	Content string `json:"content"`
	Source  Source `json:"source"`
}

// Hasher computes content hashes. Equal content must give equal hashes.
type Hasher interface {
	ComputeHash(content string) string
}

// SHA256Hasher hashes content with SHA-256, hex encoded.
type SHA256Hasher struct{}

func (SHA256Hasher) ComputeHash(content string) string {
	sum := sha256.Sum256([]byte(content))
	return hex.EncodeToString(sum[:])
}

// EmbeddingGenerator embeds one file.
type EmbeddingGenerator interface {
	GenerateEmbedding(ctx context.Context, projectID, path, content string) error
}

// HashStore persists change records and supplies the last known hashes.
type HashStore interface {
	SaveFileHashes(ctx context.Context, projectID string, changes []Change) error
	LoadFileHashes(ctx context.Context, projectID string) (map[string]string, error)
}

// Hooks observe tracker progress. Nil hooks are skipped. They are never
// called once the tracker is disposed.
type Hooks struct {
	OnHashesUpdated     func(projectID string, paths []string)
	OnEmbeddingStart    func(projectID, path string)
	OnEmbeddingComplete func(projectID, path string, ok bool)
}

// Metrics receives tracker counters.
type Metrics interface {
	ChangeTracked(source string)
	HashBatch(changed int)
	EmbeddingDone(ok bool)
}

// Options configure trackers.
type Options struct {
	// Debounce is the quiet period before pending changes are processed.
	// Default: 500ms.
	Debounce time.Duration
	// Embeddings enables embedding generation after hashing.
	Embeddings bool
	Hasher     Hasher
	Embedder   EmbeddingGenerator
	Store      HashStore
	Hooks      Hooks
	Metrics    Metrics
	Logger     zerolog.Logger
}

func (o Options) withDefaults() Options {
	if o.Debounce <= 0 {
		o.Debounce = 500 * time.Millisecond
	}
	if o.Hasher == nil {
		o.Hasher = SHA256Hasher{}
	}
	return o
}

// ErrDisposed is returned by operations on a disposed tracker.
var ErrDisposed = errors.New("tracker: disposed")

type pendingUpdate struct {
	content string
	source  Source
	at      time.Time
}

// Tracker tracks the files of one project.
type Tracker struct {
	projectID string
	opts      Options
	logger    zerolog.Logger
	debounce  *Debouncer
	now       func() time.Time

	mu       sync.Mutex
	pending  map[string]pendingUpdate
	closing  bool // Dispose is flushing; new changes are refused
	disposed bool

	disposeMu sync.Mutex

	// procMu serialises processing runs; Flush and Dispose wait on it for
	// an in-flight timer run.
	procMu sync.Mutex
	last   map[string]string // path → last known hash, nil until loaded
}

// New creates a tracker for projectID.
func New(projectID string, opts Options) *Tracker {
	opts = opts.withDefaults()
	t := &Tracker{
		projectID: projectID,
		opts:      opts,
		logger:    opts.Logger.With().Str("component", "tracker").Str("project_id", projectID).Logger(),
		now:       time.Now,
		pending:   make(map[string]pendingUpdate),
	}
	t.debounce = NewDebouncer(opts.Debounce, func(err error) {
		t.logger.Error().Err(err).Int("pending", t.PendingCount()).Msg("processing tracked changes failed")
	})
	return t
}

// ProjectID returns the project this tracker belongs to.
func (t *Tracker) ProjectID() string { return t.projectID }

// TrackChange queues one edit. The latest content per path wins and the
// debounce window restarts.
func (t *Tracker) TrackChange(path, content string, source Source) error {
	return t.TrackChanges([]Update{{Path: path, Content: content, Source: source}})
}

// TrackChanges queues a batch of edits.
func (t *Tracker) TrackChanges(updates []Update) error {
	for _, u := range updates {
		if u.Path == "" {
			return perrors.Invalid("change without path")
		}
		if !u.Source.Valid() {
			return perrors.Invalid("unknown change source %q", u.Source)
		}
	}

	t.mu.Lock()
	if t.disposed || t.closing {
		t.mu.Unlock()
		return ErrDisposed
	}
	now := t.now()
	for _, u := range updates {
		t.pending[u.Path] = pendingUpdate{content: u.Content, source: u.Source, at: now}
	}
	t.mu.Unlock()

	if t.opts.Metrics != nil {
		for _, u := range updates {
			t.opts.Metrics.ChangeTracked(string(u.Source))
		}
	}
	if len(updates) > 0 {
		t.debounce.Schedule(t.process)
	}
	return nil
}

// PendingCount returns the number of queued, unprocessed paths.
func (t *Tracker) PendingCount() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.pending)
}

// Scheduled reports whether a debounced run is waiting to fire.
func (t *Tracker) Scheduled() bool {
	return t.debounce.Pending()
}

// Flush processes pending changes now. When it returns, every change queued
// before the call has been hashed, persisted and, if enabled, embedded.
// Changes that could not be persisted stay pending.
func (t *Tracker) Flush(ctx context.Context) error {
	if ran, err := t.debounce.Flush(ctx); ran {
		return err
	}
	// nothing scheduled: requeued changes or an in-flight timer run
	return t.process(ctx)
}

// Dispose flushes pending work and stops the tracker. Changes are refused
// from the moment it starts. If the flush fails the tracker stays open with
// the unsaved changes pending, so Dispose can be retried. Calling it again
// after success is a no-op.
func (t *Tracker) Dispose(ctx context.Context) error {
	t.disposeMu.Lock()
	defer t.disposeMu.Unlock()

	t.mu.Lock()
	if t.disposed {
		t.mu.Unlock()
		return nil
	}
	t.closing = true
	t.mu.Unlock()

	t.debounce.Stop()
	if err := t.process(ctx); err != nil {
		t.mu.Lock()
		t.closing = false
		n := len(t.pending)
		t.mu.Unlock()
		t.logger.Warn().Err(err).Int("pending", n).Msg("dispose flush failed, tracker kept open")
		return err
	}

	t.mu.Lock()
	t.closing = false
	t.disposed = true
	t.mu.Unlock()
	t.debounce.Stop()

	t.logger.Debug().Msg("tracker disposed")
	return nil
}

// Disposed reports whether Dispose has completed.
func (t *Tracker) Disposed() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.disposed
}

func (t *Tracker) process(ctx context.Context) error {
	t.procMu.Lock()
	defer t.procMu.Unlock()

	t.mu.Lock()
	if t.disposed || len(t.pending) == 0 {
		t.mu.Unlock()
		return nil
	}
	batch := t.pending
	t.pending = make(map[string]pendingUpdate)
	t.mu.Unlock()

	if err := t.loadLastHashes(ctx); err != nil {
		t.requeue(batch)
		return err
	}

	paths := make([]string, 0, len(batch))
	for p := range batch {
		paths = append(paths, p)
	}
	sort.Strings(paths)

	changes := make([]Change, 0, len(paths))
	for _, p := range paths {
		u := batch[p]
		hash := t.opts.Hasher.ComputeHash(u.content)
		if t.last[p] == hash {
			continue
		}
		changes = append(changes, Change{Path: p, Hash: hash, Source: u.source, Timestamp: u.at})
	}
	if len(changes) == 0 {
		t.logger.Debug().Int("paths", len(paths)).Msg("no content changes")
		return nil
	}

	if t.opts.Store != nil {
		if err := t.opts.Store.SaveFileHashes(ctx, t.projectID, changes); err != nil {
			t.requeue(batch)
			return perrors.Wrap("database", "save file hashes", err)
		}
	}

	changed := make([]string, len(changes))
	for i, c := range changes {
		t.last[c.Path] = c.Hash
		changed[i] = c.Path
	}
	if t.opts.Metrics != nil {
		t.opts.Metrics.HashBatch(len(changed))
	}
	t.logger.Debug().Strs("paths", changed).Msg("hashes updated")

	if t.isDisposed() {
		return nil
	}
	if h := t.opts.Hooks.OnHashesUpdated; h != nil {
		h(t.projectID, changed)
	}

	if !t.opts.Embeddings || t.opts.Embedder == nil {
		return nil
	}
	for _, c := range changes {
		if t.isDisposed() {
			return nil
		}
		if h := t.opts.Hooks.OnEmbeddingStart; h != nil {
			h(t.projectID, c.Path)
		}
		err := t.opts.Embedder.GenerateEmbedding(ctx, t.projectID, c.Path, batch[c.Path].content)
		ok := err == nil
		if !ok {
			t.logger.Warn().Err(err).Str("path", c.Path).Msg("embedding failed")
		}
		if t.opts.Metrics != nil {
			t.opts.Metrics.EmbeddingDone(ok)
		}
		if t.isDisposed() {
			return nil
		}
		if h := t.opts.Hooks.OnEmbeddingComplete; h != nil {
			h(t.projectID, c.Path, ok)
		}
	}
	return nil
}

// caller must hold procMu
func (t *Tracker) loadLastHashes(ctx context.Context) error {
	if t.last != nil {
		return nil
	}
	if t.opts.Store == nil {
		t.last = make(map[string]string)
		return nil
	}
	last, err := t.opts.Store.LoadFileHashes(ctx, t.projectID)
	if err != nil {
		return perrors.Wrap("database", "load file hashes", err)
	}
	if last == nil {
		last = make(map[string]string)
	}
	t.last = last
	return nil
}

// requeue puts back updates that could not be processed, without
// overwriting newer ones queued meanwhile.
func (t *Tracker) requeue(batch map[string]pendingUpdate) {
	t.mu.Lock()
	defer t.mu.Unlock()
	for p, u := range batch {
		if _, newer := t.pending[p]; !newer {
			t.pending[p] = u
		}
	}
}

func (t *Tracker) isDisposed() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.disposed
}
