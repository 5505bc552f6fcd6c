// Package intelligence ranks the files of a project for a free-text edit
// prompt. For each file set it derives change status, an import graph and
// structural importance, and caches the result per project and file-set
// fingerprint.
package intelligence

import (
	"context"
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/singleflight"

	"github.com/p-blackswan/playcraft/internal/embedding"
	"github.com/p-blackswan/playcraft/internal/store"
	"github.com/p-blackswan/playcraft/internal/tracker"
	"github.com/p-blackswan/playcraft/internal/weights"
	"github.com/p-blackswan/playcraft/lru"
)

// File is one project file as seen by the service.
type File struct {
	Path       string    `json:"path"`
	Content    string    `json:"content"`
	ModifiedAt time.Time `json:"modified_at"`
}

// SimilarSearcher finds files semantically close to a query.
type SimilarSearcher interface {
	SearchSimilarFiles(ctx context.Context, projectID, query string, k int) ([]embedding.Match, error)
}

// Metrics receives cache and latency observations. Nil disables them.
type Metrics interface {
	CacheHit()
	CacheMiss()
	SuggestLatency(d time.Duration)
}

// Options configures a Service.
type Options struct {
	Hashes HashSource
	// Hasher must be the hasher the tracker persisted hashes with.
	// Default: tracker.SHA256Hasher.
	Hasher         tracker.Hasher
	Similar        SimilarSearcher
	Weights        weights.Provider
	CacheSize      int
	RecencyWindow  time.Duration
	MaxSuggestions int
	Metrics        Metrics
	Logger         zerolog.Logger
}

const (
	defaultCacheSize      = 64
	defaultRecencyWindow  = 24 * time.Hour
	defaultMaxSuggestions = 10
)

// Stats is a snapshot of cache usage.
type Stats struct {
	Hits     uint64 `json:"hits"`
	Misses   uint64 `json:"misses"`
	Entries  int    `json:"entries"`
	Capacity int    `json:"capacity"`
	Projects int    `json:"projects"`
}

// Service builds and caches Intelligence values.
type Service struct {
	hashes  HashSource
	hasher  tracker.Hasher
	similar SimilarSearcher
	weights weights.Provider
	metrics Metrics
	logger  zerolog.Logger
	now     func() time.Time

	window         time.Duration
	maxSuggestions int

	cache *lru.Cache[string, *Intelligence]
	group singleflight.Group

	mu     sync.RWMutex
	latest map[string]*Intelligence
}

// NewService creates a Service. Zero option values take defaults.
func NewService(opts Options) *Service {
	if opts.CacheSize < 1 {
		opts.CacheSize = defaultCacheSize
	}
	if opts.RecencyWindow <= 0 {
		opts.RecencyWindow = defaultRecencyWindow
	}
	if opts.MaxSuggestions < 1 {
		opts.MaxSuggestions = defaultMaxSuggestions
	}
	if opts.Weights == nil {
		opts.Weights = weights.Static{W: weights.Default()}
	}
	if opts.Hasher == nil {
		opts.Hasher = tracker.SHA256Hasher{}
	}
	return &Service{
		hashes:         opts.Hashes,
		hasher:         opts.Hasher,
		similar:        opts.Similar,
		weights:        opts.Weights,
		metrics:        opts.Metrics,
		logger:         opts.Logger.With().Str("component", "intelligence").Logger(),
		now:            time.Now,
		window:         opts.RecencyWindow,
		maxSuggestions: opts.MaxSuggestions,
		cache:          lru.New[string, *Intelligence](opts.CacheSize),
		latest:         make(map[string]*Intelligence),
	}
}

// cacheKey fingerprints a file set by sorted (path, mtime, size, content).
func cacheKey(projectID string, files []File) string {
	sorted := make([]File, len(files))
	copy(sorted, files)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Path < sorted[j].Path })

	h := sha256.New()
	var buf [8]byte
	for _, f := range sorted {
		h.Write([]byte(f.Path))
		h.Write([]byte{0})
		binary.BigEndian.PutUint64(buf[:], uint64(f.ModifiedAt.UnixMilli()))
		h.Write(buf[:])
		binary.BigEndian.PutUint64(buf[:], uint64(len(f.Content)))
		h.Write(buf[:])
		h.Write([]byte(f.Content))
	}
	return projectID + "\x00" + hex.EncodeToString(h.Sum(nil))
}

// Get returns the intelligence for files. A repeated file set returns the
// cached value; callers must not mutate it. Degraded results, built while
// hashes or weights were unavailable, are returned but not cached.
func (s *Service) Get(ctx context.Context, projectID string, files []File) (*Intelligence, error) {
	key := cacheKey(projectID, files)
	if in, ok := s.cache.Get(key); ok {
		if s.metrics != nil {
			s.metrics.CacheHit()
		}
		s.remember(in)
		return in, nil
	}
	if s.metrics != nil {
		s.metrics.CacheMiss()
	}

	v, err, _ := s.group.Do(key, func() (any, error) {
		// the build is shared by every waiter, so one caller's
		// cancellation must not degrade it
		in := s.build(context.WithoutCancel(ctx), projectID, key, files)
		if !in.Degraded {
			s.cache.Put(key, in)
		}
		return in, nil
	})
	if err != nil {
		return nil, err
	}
	in := v.(*Intelligence)
	s.remember(in)
	return in, nil
}

func (s *Service) remember(in *Intelligence) {
	s.mu.Lock()
	s.latest[in.ProjectID] = in
	s.mu.Unlock()
}

func (s *Service) build(ctx context.Context, projectID, key string, list []File) *Intelligence {
	start := s.now()
	files := make(map[string]File, len(list))
	for _, f := range list {
		files[f.Path] = f
	}

	var (
		changes  Changes
		degraded bool
	)
	stored, err := s.loadHashes(ctx, projectID)
	switch {
	case err != nil:
		s.logger.Warn().Err(err).Str("project_id", projectID).Msg("loading file hashes failed, falling back to mtimes")
		changes = detectByMtime(files, start, s.window)
		degraded = true
	case stored == nil:
		changes = detectByMtime(files, start, s.window)
	default:
		changes = detectChanges(files, stored, s.hasher, start, s.window)
	}

	w, err := s.weights.GetAdaptiveWeights(ctx, projectID)
	if err != nil {
		s.logger.Warn().Err(err).Str("project_id", projectID).Msg("adaptive weights unavailable, using defaults")
		w = weights.Adaptive{Weights: weights.Default()}
		degraded = true
	}

	g := buildGraph(files)
	ranked := rankImportance(files, g)
	importance := make(map[string]FileImportance, len(ranked))
	for _, fi := range ranked {
		importance[fi.Path] = fi
	}

	entries := make(map[string]*fileEntry, len(files))
	for p, f := range files {
		entries[p] = &fileEntry{
			file:    f,
			pathTok: pathTokens(p),
			content: contentTokens(f.Content),
		}
	}

	in := &Intelligence{
		ProjectID:         projectID,
		Key:               key,
		Changes:           changes,
		Graph:             g,
		FilesByImportance: ranked,
		Weights:           w,
		ComputedAt:        start,
		Degraded:          degraded,
		files:             entries,
		importance:        importance,
		svc:               s,
	}
	s.logger.Debug().
		Str("project_id", projectID).
		Int("files", len(files)).
		Int("modified", len(changes.Modified)).
		Int("created", len(changes.Created)).
		Bool("degraded", degraded).
		Msg("intelligence computed")
	return in
}

// loadHashes returns nil when there is no hash source.
func (s *Service) loadHashes(ctx context.Context, projectID string) (map[string]store.FileHash, error) {
	if s.hashes == nil {
		return nil, nil
	}
	hashes, err := s.hashes.GetFileHashes(ctx, projectID)
	if err != nil {
		return nil, err
	}
	if hashes == nil {
		hashes = map[string]store.FileHash{}
	}
	return hashes, nil
}

// GetDependentFiles returns the files importing path in the most recently
// computed intelligence of the project. Unknown projects or paths yield an
// empty list.
func (s *Service) GetDependentFiles(projectID, path string) []string {
	in := s.lookup(projectID)
	if in == nil {
		return []string{}
	}
	return in.Graph.DependentsOf(path)
}

// GetFileImports returns the files path imports.
func (s *Service) GetFileImports(projectID, path string) []string {
	in := s.lookup(projectID)
	if in == nil {
		return []string{}
	}
	return in.Graph.ImportsOf(path)
}

// Latest returns the most recently computed intelligence of a project, or
// nil.
func (s *Service) Latest(projectID string) *Intelligence {
	return s.lookup(projectID)
}

func (s *Service) lookup(projectID string) *Intelligence {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.latest[projectID]
}

// ClearCache drops every cached entry of a project.
func (s *Service) ClearCache(projectID string) int {
	n := s.cache.RemoveFunc(func(key string, _ *Intelligence) bool {
		return strings.HasPrefix(key, projectID+"\x00")
	})
	s.mu.Lock()
	delete(s.latest, projectID)
	s.mu.Unlock()
	return n
}

// ClearAll drops every cached entry.
func (s *Service) ClearAll() {
	s.cache.Clear()
	s.mu.Lock()
	s.latest = make(map[string]*Intelligence)
	s.mu.Unlock()
}

// Stats reports cache usage.
func (s *Service) Stats() Stats {
	st := s.cache.Stats()
	s.mu.RLock()
	projects := len(s.latest)
	s.mu.RUnlock()
	return Stats{
		Hits:     st.Hits,
		Misses:   st.Misses,
		Entries:  st.Len,
		Capacity: st.Capacity,
		Projects: projects,
	}
}

type fileEntry struct {
	file    File
	pathTok []string
	content map[string]bool
}

// Intelligence is the derived view of one file set.
type Intelligence struct {
	ProjectID         string           `json:"project_id"`
	Key               string           `json:"-"`
	Changes           Changes          `json:"changes"`
	Graph             *Graph           `json:"graph"`
	FilesByImportance []FileImportance `json:"files_by_importance"`
	Weights           weights.Adaptive `json:"weights"`
	ComputedAt        time.Time        `json:"computed_at"`
	// Degraded is set when hashes or weights could not be loaded and
	// fallbacks were used.
	Degraded bool `json:"degraded"`

	files      map[string]*fileEntry
	importance map[string]FileImportance
	svc        *Service
}
