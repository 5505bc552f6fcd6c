package embedding

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sort"
	"sync"

	"github.com/rs/zerolog"

	perrors "github.com/p-blackswan/playcraft/internal/errors"
)

// ErrNoEmbedder is returned when no embedding backend is configured.
var ErrNoEmbedder = errors.New("embedding: no embedder configured")

// maxEmbedChars bounds how much of a file is sent to the embedder.
const maxEmbedChars = 8000

// VectorStore persists vectors across restarts.
type VectorStore interface {
	SaveEmbedding(ctx context.Context, projectID, path, model string, vec []float32) error
	LoadEmbeddings(ctx context.Context, projectID string) (map[string][]float32, error)
	DeleteEmbedding(ctx context.Context, projectID, path string) error
}

// Match is a file ranked by similarity to a query.
type Match struct {
	Path       string  `json:"path"`
	Similarity float64 `json:"similarity"`
}

// Index keeps per-project file vectors in memory with write-through to an
// optional VectorStore. Vectors of a project are loaded from the store on
// first use.
type Index struct {
	embedder Embedder
	store    VectorStore
	logger   zerolog.Logger

	mu       sync.RWMutex
	projects map[string]map[string][]float32 // projectID → path → vector
}

// NewIndex creates an index. store may be nil.
func NewIndex(embedder Embedder, store VectorStore, logger zerolog.Logger) *Index {
	return &Index{
		embedder: embedder,
		store:    store,
		logger:   logger.With().Str("component", "embedding").Logger(),
		projects: make(map[string]map[string][]float32),
	}
}

// Enabled reports whether a real embedder is configured.
func (x *Index) Enabled() bool {
	if x.embedder == nil {
		return false
	}
	switch x.embedder.(type) {
	case NoopEmbedder, *NoopEmbedder:
		return false
	}
	return true
}

func (x *Index) model() string {
	if m, ok := x.embedder.(interface{ Model() string }); ok {
		return m.Model()
	}
	return ""
}

// GenerateEmbedding embeds one file and records its vector.
func (x *Index) GenerateEmbedding(ctx context.Context, projectID, path, content string) error {
	if !x.Enabled() {
		return ErrNoEmbedder
	}
	if err := x.ensureLoaded(ctx, projectID); err != nil {
		return err
	}

	text := path + "\n" + truncate(content, maxEmbedChars)
	vec, err := x.embedder.Embed(ctx, text)
	if err != nil {
		return perrors.Wrap("embedding", "embed "+path, err)
	}
	if len(vec) == 0 {
		return perrors.Wrap("embedding", "embed "+path, fmt.Errorf("empty vector"))
	}

	if x.store != nil {
		if err := x.store.SaveEmbedding(ctx, projectID, path, x.model(), vec); err != nil {
			return perrors.Wrap("database", "save embedding", err)
		}
	}

	x.mu.Lock()
	if vecs, ok := x.projects[projectID]; ok {
		vecs[path] = vec
	}
	x.mu.Unlock()
	return nil
}

// SearchSimilarFiles embeds query and returns the k most similar files of a
// project by cosine similarity, descending. k <= 0 means 10.
func (x *Index) SearchSimilarFiles(ctx context.Context, projectID, query string, k int) ([]Match, error) {
	if !x.Enabled() {
		return nil, ErrNoEmbedder
	}
	if err := x.ensureLoaded(ctx, projectID); err != nil {
		return nil, err
	}

	queryVec, err := x.embedder.Embed(ctx, query)
	if err != nil {
		return nil, perrors.Wrap("embedding", "embed query", err)
	}

	x.mu.RLock()
	vectors := x.projects[projectID]
	matches := make([]Match, 0, len(vectors))
	for path, vec := range vectors {
		matches = append(matches, Match{Path: path, Similarity: cosineSimilarity(queryVec, vec)})
	}
	x.mu.RUnlock()

	sort.Slice(matches, func(i, j int) bool {
		if matches[i].Similarity != matches[j].Similarity {
			return matches[i].Similarity > matches[j].Similarity
		}
		return matches[i].Path < matches[j].Path
	})

	if k <= 0 {
		k = 10
	}
	if k < len(matches) {
		matches = matches[:k]
	}
	return matches, nil
}

// Remove drops the vector of one file.
func (x *Index) Remove(ctx context.Context, projectID, path string) error {
	x.mu.Lock()
	if vecs, ok := x.projects[projectID]; ok {
		delete(vecs, path)
	}
	x.mu.Unlock()
	if x.store != nil {
		if err := x.store.DeleteEmbedding(ctx, projectID, path); err != nil {
			return perrors.Wrap("database", "delete embedding", err)
		}
	}
	return nil
}

// Forget drops the in-memory vectors of a project; they are reloaded from
// the store on next use.
func (x *Index) Forget(projectID string) {
	x.mu.Lock()
	delete(x.projects, projectID)
	x.mu.Unlock()
}

// Count returns how many vectors are held for a project.
func (x *Index) Count(projectID string) int {
	x.mu.RLock()
	defer x.mu.RUnlock()
	return len(x.projects[projectID])
}

func (x *Index) ensureLoaded(ctx context.Context, projectID string) error {
	x.mu.RLock()
	_, ok := x.projects[projectID]
	x.mu.RUnlock()
	if ok {
		return nil
	}

	loaded := make(map[string][]float32)
	if x.store != nil {
		vecs, err := x.store.LoadEmbeddings(ctx, projectID)
		if err != nil {
			return perrors.Wrap("database", "load embeddings", err)
		}
		loaded = vecs
		x.logger.Debug().Str("project_id", projectID).Int("vectors", len(vecs)).Msg("loaded embeddings")
	}

	x.mu.Lock()
	if _, ok := x.projects[projectID]; !ok {
		x.projects[projectID] = loaded
	}
	x.mu.Unlock()
	return nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}

// cosineSimilarity returns the cosine similarity ∈ [-1, 1] between two vectors.
// Returns 0 if either vector has zero magnitude.
func cosineSimilarity(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}

	var dot, normA, normB float64
	for i := range a {
		fa, fb := float64(a[i]), float64(b[i])
		dot += fa * fb
		normA += fa * fa
		normB += fb * fb
	}

	denom := math.Sqrt(normA) * math.Sqrt(normB)
	if denom == 0 {
		return 0
	}
	return dot / denom
}
