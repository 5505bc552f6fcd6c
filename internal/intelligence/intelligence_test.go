package intelligence

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/p-blackswan/playcraft/internal/embedding"
	perrors "github.com/p-blackswan/playcraft/internal/errors"
	"github.com/p-blackswan/playcraft/internal/store"
	"github.com/p-blackswan/playcraft/internal/tracker"
	"github.com/p-blackswan/playcraft/internal/weights"
)

var testNow = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func contentHash(content string) string {
	return tracker.SHA256Hasher{}.ComputeHash(content)
}

type memHashes struct {
	hashes map[string]map[string]store.FileHash
	err    error
}

func (m *memHashes) GetFileHashes(ctx context.Context, projectID string) (map[string]store.FileHash, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if m.err != nil {
		return nil, m.err
	}
	return m.hashes[projectID], nil
}

// lengthHasher stands in for a non-default tracker hasher.
type lengthHasher struct{}

func (lengthHasher) ComputeHash(content string) string { return fmt.Sprintf("len:%d", len(content)) }

type fixedSearch struct {
	matches []embedding.Match
	err     error
	calls   int
}

func (f *fixedSearch) SearchSimilarFiles(context.Context, string, string, int) ([]embedding.Match, error) {
	f.calls++
	return f.matches, f.err
}

type failingWeights struct{}

func (failingWeights) GetAdaptiveWeights(context.Context, string) (weights.Adaptive, error) {
	return weights.Adaptive{}, errors.New("feedback table locked")
}

type countingMetrics struct {
	hits, misses, latencies int
}

func (c *countingMetrics) CacheHit()                    { c.hits++ }
func (c *countingMetrics) CacheMiss()                   { c.misses++ }
func (c *countingMetrics) SuggestLatency(time.Duration) { c.latencies++ }

func newService(t *testing.T, opts Options) *Service {
	t.Helper()
	opts.Logger = zerolog.Nop()
	s := NewService(opts)
	s.now = func() time.Time { return testNow }
	return s
}

// gameProject is a small app where the page was just edited and the rest
// is untouched since two days.
func gameProject() ([]File, *memHashes) {
	files := []File{
		{
			Path:       "/src/pages/Index.tsx",
			Content:    "import { GameBoard } from \"@/components/GameBoard\";\nexport default function Index() { return <GameBoard /> }\n",
			ModifiedAt: testNow.Add(-time.Minute),
		},
		{
			Path:       "/src/components/GameBoard.tsx",
			Content:    "export function GameBoard() { return null }\n",
			ModifiedAt: testNow.Add(-48 * time.Hour),
		},
		{
			Path:       "/src/utils/format.ts",
			Content:    "export const pad = (n: number) => String(n)\n",
			ModifiedAt: testNow.Add(-48 * time.Hour),
		},
		{
			Path:       "/src/styles/theme.ts",
			Content:    "export const colors = {}\n",
			ModifiedAt: testNow.Add(-48 * time.Hour),
		},
	}
	old := testNow.Add(-48 * time.Hour)
	stored := map[string]store.FileHash{
		"/src/pages/Index.tsx": {Path: "/src/pages/Index.tsx", Hash: contentHash("previous version"), UpdatedAt: old},
	}
	for _, f := range files[1:] {
		stored[f.Path] = store.FileHash{Path: f.Path, Hash: contentHash(f.Content), UpdatedAt: old}
	}
	return files, &memHashes{hashes: map[string]map[string]store.FileHash{"p1": stored}}
}

func TestGet_CachesBySameFileSet(t *testing.T) {
	files, hashes := gameProject()
	m := &countingMetrics{}
	s := newService(t, Options{Hashes: hashes, Metrics: m})
	ctx := context.Background()

	first, err := s.Get(ctx, "p1", files)
	require.NoError(t, err)
	second, err := s.Get(ctx, "p1", files)
	require.NoError(t, err)
	assert.Same(t, first, second)

	st := s.Stats()
	assert.Equal(t, uint64(1), st.Hits)
	assert.Equal(t, uint64(1), st.Misses)
	assert.Equal(t, 1, st.Entries)
	assert.Equal(t, 1, m.hits)
	assert.Equal(t, 1, m.misses)

	// Order of the input does not change the key.
	reversed := []File{files[3], files[2], files[1], files[0]}
	third, err := s.Get(ctx, "p1", reversed)
	require.NoError(t, err)
	assert.Same(t, first, third)

	// A touched file does.
	touched := append([]File(nil), files...)
	touched[2].ModifiedAt = testNow
	fourth, err := s.Get(ctx, "p1", touched)
	require.NoError(t, err)
	assert.NotSame(t, first, fourth)
}

func TestClearCache(t *testing.T) {
	files, hashes := gameProject()
	s := newService(t, Options{Hashes: hashes})
	ctx := context.Background()

	first, err := s.Get(ctx, "p1", files)
	require.NoError(t, err)
	_, err = s.Get(ctx, "p2", files)
	require.NoError(t, err)

	assert.Equal(t, 1, s.ClearCache("p1"))
	assert.Equal(t, 1, s.Stats().Entries)
	assert.Empty(t, s.GetFileImports("p1", "/src/pages/Index.tsx"))

	again, err := s.Get(ctx, "p1", files)
	require.NoError(t, err)
	assert.NotSame(t, first, again)

	s.ClearAll()
	assert.Zero(t, s.Stats().Entries)
	assert.Zero(t, s.Stats().Projects)
}

func TestDependentsAndImports(t *testing.T) {
	files, hashes := gameProject()
	s := newService(t, Options{Hashes: hashes})

	deps := s.GetDependentFiles("unknown", "/src/components/GameBoard.tsx")
	require.NotNil(t, deps)
	assert.Empty(t, deps)

	_, err := s.Get(context.Background(), "p1", files)
	require.NoError(t, err)

	assert.Equal(t, []string{"/src/pages/Index.tsx"}, s.GetDependentFiles("p1", "/src/components/GameBoard.tsx"))
	assert.Equal(t, []string{"/src/components/GameBoard.tsx"}, s.GetFileImports("p1", "/src/pages/Index.tsx"))

	unknown := s.GetFileImports("p1", "/src/nope.ts")
	require.NotNil(t, unknown)
	assert.Empty(t, unknown)
}

func TestChanges(t *testing.T) {
	files, hashes := gameProject()
	hashes.hashes["p1"]["/src/removed.ts"] = store.FileHash{Path: "/src/removed.ts", Hash: "x", UpdatedAt: testNow}
	files = append(files, File{Path: "/src/new.ts", Content: "export {}"})

	// Same hash but persisted a minute ago counts as a recent edit.
	theme := hashes.hashes["p1"]["/src/styles/theme.ts"]
	theme.UpdatedAt = testNow.Add(-time.Minute)
	hashes.hashes["p1"]["/src/styles/theme.ts"] = theme

	s := newService(t, Options{Hashes: hashes, RecencyWindow: time.Hour})
	in, err := s.Get(context.Background(), "p1", files)
	require.NoError(t, err)

	assert.Equal(t, []string{"/src/new.ts"}, in.Changes.Created)
	assert.Equal(t, []string{"/src/pages/Index.tsx", "/src/styles/theme.ts"}, in.Changes.Modified)
	assert.Equal(t, []string{"/src/removed.ts"}, in.Changes.Deleted)
	assert.Equal(t, []string{"/src/components/GameBoard.tsx", "/src/utils/format.ts"}, in.Changes.Unchanged)
}

func TestChanges_WithoutHashSourceUsesMtime(t *testing.T) {
	files, _ := gameProject()
	s := newService(t, Options{RecencyWindow: time.Hour})

	in, err := s.Get(context.Background(), "p1", files)
	require.NoError(t, err)
	assert.Equal(t, []string{"/src/pages/Index.tsx"}, in.Changes.Modified)
	assert.Empty(t, in.Changes.Created)
	assert.Empty(t, in.Changes.Deleted)
	assert.Len(t, in.Changes.Unchanged, 3)
}

func TestChanges_HashSourceFailureFallsBack(t *testing.T) {
	files, hashes := gameProject()
	hashes.err = errors.New("disk I/O error")
	s := newService(t, Options{Hashes: hashes, RecencyWindow: time.Hour})
	ctx := context.Background()

	in, err := s.Get(ctx, "p1", files)
	require.NoError(t, err)
	assert.True(t, in.Degraded)
	assert.Equal(t, []string{"/src/pages/Index.tsx"}, in.Changes.Modified)
	assert.Zero(t, s.Stats().Entries)

	// the fallback is not cached, so a recovered store is used next time
	hashes.err = nil
	again, err := s.Get(ctx, "p1", files)
	require.NoError(t, err)
	assert.NotSame(t, in, again)
	assert.False(t, again.Degraded)
	assert.Equal(t, []string{"/src/pages/Index.tsx"}, again.Changes.Modified)
	assert.Len(t, again.Changes.Unchanged, 3)
	assert.Equal(t, 1, s.Stats().Entries)
}

func TestGet_CancelledCallerDoesNotDegradeBuild(t *testing.T) {
	files := []File{{Path: "/a.ts", Content: "export const a = 1", ModifiedAt: testNow.Add(-48 * time.Hour)}}
	hashes := &memHashes{hashes: map[string]map[string]store.FileHash{}}
	s := newService(t, Options{Hashes: hashes})

	cancelled, cancel := context.WithCancel(context.Background())
	cancel()
	first, err := s.Get(cancelled, "p1", files)
	require.NoError(t, err)
	assert.False(t, first.Degraded)
	assert.Equal(t, []string{"/a.ts"}, first.Changes.Created)

	second, err := s.Get(context.Background(), "p1", files)
	require.NoError(t, err)
	assert.Same(t, first, second)
	assert.Equal(t, []string{"/a.ts"}, second.Changes.Created)
	assert.Empty(t, second.Changes.Unchanged)
}

func TestGet_SameSizeEditChangesKey(t *testing.T) {
	at := testNow.Add(-time.Hour)
	s := newService(t, Options{})
	ctx := context.Background()

	first, err := s.Get(ctx, "p1", []File{{Path: "/a.ts", Content: "score = 1", ModifiedAt: at}})
	require.NoError(t, err)
	second, err := s.Get(ctx, "p1", []File{{Path: "/a.ts", Content: "score = 2", ModifiedAt: at}})
	require.NoError(t, err)
	assert.NotSame(t, first, second)
}

func TestChanges_UsesConfiguredHasher(t *testing.T) {
	old := testNow.Add(-48 * time.Hour)
	files := []File{
		{Path: "/a.ts", Content: "same"},
		{Path: "/b.ts", Content: "longer now"},
	}
	hashes := &memHashes{hashes: map[string]map[string]store.FileHash{"p1": {
		"/a.ts": {Path: "/a.ts", Hash: lengthHasher{}.ComputeHash("same"), UpdatedAt: old},
		"/b.ts": {Path: "/b.ts", Hash: lengthHasher{}.ComputeHash("short"), UpdatedAt: old},
	}}}
	s := newService(t, Options{Hashes: hashes, Hasher: lengthHasher{}, RecencyWindow: time.Hour})

	in, err := s.Get(context.Background(), "p1", files)
	require.NoError(t, err)
	assert.Equal(t, []string{"/a.ts"}, in.Changes.Unchanged)
	assert.Equal(t, []string{"/b.ts"}, in.Changes.Modified)
}

func TestSuggestFiles_RecentlyEditedPage(t *testing.T) {
	files, hashes := gameProject()
	search := &fixedSearch{matches: []embedding.Match{
		{Path: "/src/pages/Index.tsx", Similarity: 0.8},
		{Path: "/src/components/GameBoard.tsx", Similarity: 0.6},
		{Path: "/src/deleted/Old.tsx", Similarity: 0.9},
	}}
	m := &countingMetrics{}
	s := newService(t, Options{Hashes: hashes, Similar: search, Metrics: m})

	in, err := s.Get(context.Background(), "p1", files)
	require.NoError(t, err)

	got, err := in.SuggestFiles(context.Background(), "update the game component", SuggestOptions{})
	require.NoError(t, err)
	require.Len(t, got, 2)

	assert.Equal(t, "/src/pages/Index.tsx", got[0].Path)
	assert.Equal(t, []string{weights.Semantic, weights.Keyword, weights.Recency, weights.Importance}, got[0].Reasons)
	assert.InDelta(t, 0.665, got[0].Score, 1e-9)
	assert.InDelta(t, 0.5, got[0].Signals.Keyword, 1e-9)
	assert.Equal(t, 1.0, got[0].Signals.Recency)

	assert.Equal(t, "/src/components/GameBoard.tsx", got[1].Path)
	assert.NotContains(t, got[1].Reasons, weights.Recency)
	assert.InDelta(t, 0.645, got[1].Score, 1e-9)

	for _, sg := range got {
		assert.NotEqual(t, "/src/utils/format.ts", sg.Path)
		assert.NotEqual(t, "/src/deleted/Old.tsx", sg.Path)
	}
	assert.Equal(t, 1, m.latencies)
}

func TestSuggestFiles_NoEmbedderMeansNoSemanticSignal(t *testing.T) {
	files, hashes := gameProject()
	search := &fixedSearch{err: embedding.ErrNoEmbedder}
	s := newService(t, Options{Hashes: hashes, Similar: search})

	in, err := s.Get(context.Background(), "p1", files)
	require.NoError(t, err)

	got, err := in.SuggestFiles(context.Background(), "game board", SuggestOptions{})
	require.NoError(t, err)
	require.NotEmpty(t, got)
	for _, sg := range got {
		assert.NotContains(t, sg.Reasons, weights.Semantic)
		assert.Zero(t, sg.Signals.Semantic)
	}
	assert.Equal(t, 1, search.calls)

	_, err = in.SearchSimilar(context.Background(), "game", 3)
	assert.ErrorIs(t, err, embedding.ErrNoEmbedder)
}

func TestSuggestFiles_LimitAndValidation(t *testing.T) {
	files, hashes := gameProject()
	s := newService(t, Options{Hashes: hashes, MaxSuggestions: 1})

	in, err := s.Get(context.Background(), "p1", files)
	require.NoError(t, err)

	got, err := in.SuggestFiles(context.Background(), "game", SuggestOptions{Limit: 5})
	require.NoError(t, err)
	assert.Len(t, got, 1)

	_, err = in.SuggestFiles(context.Background(), "   ", SuggestOptions{})
	assert.ErrorIs(t, err, perrors.ErrInvalidInput)
}

func TestSuggestFiles_TiesBreakByPath(t *testing.T) {
	files := []File{
		{Path: "/src/b/Score.tsx", Content: "x"},
		{Path: "/src/a/Score.tsx", Content: "x"},
	}
	s := newService(t, Options{})
	in, err := s.Get(context.Background(), "p1", files)
	require.NoError(t, err)

	got, err := in.SuggestFiles(context.Background(), "score", SuggestOptions{})
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "/src/a/Score.tsx", got[0].Path)
	assert.Equal(t, got[0].Score, got[1].Score)
}

func TestWeightsFailureUsesDefaults(t *testing.T) {
	files, hashes := gameProject()
	s := newService(t, Options{Hashes: hashes, Weights: failingWeights{}})

	in, err := s.Get(context.Background(), "p1", files)
	require.NoError(t, err)
	assert.Equal(t, weights.Default(), in.Weights.Weights)
	assert.True(t, in.Degraded)
	assert.Zero(t, s.Stats().Entries)
}

func TestSearchSimilar_FiltersToFileSet(t *testing.T) {
	files, hashes := gameProject()
	search := &fixedSearch{matches: []embedding.Match{
		{Path: "/src/deleted/Old.tsx", Similarity: 0.9},
		{Path: "/src/pages/Index.tsx", Similarity: 0.8},
		{Path: "/src/components/GameBoard.tsx", Similarity: 0.6},
	}}
	s := newService(t, Options{Hashes: hashes, Similar: search})
	in, err := s.Get(context.Background(), "p1", files)
	require.NoError(t, err)

	got, err := in.SearchSimilar(context.Background(), "game", 1)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "/src/pages/Index.tsx", got[0].Path)
}

func TestFileInfo(t *testing.T) {
	files, hashes := gameProject()
	s := newService(t, Options{Hashes: hashes})
	in, err := s.Get(context.Background(), "p1", files)
	require.NoError(t, err)

	info, ok := in.FileInfo("/src/components/GameBoard.tsx")
	require.True(t, ok)
	assert.Equal(t, StatusUnchanged, info.Status)
	assert.Equal(t, []string{"/src/pages/Index.tsx"}, info.Dependents)
	assert.Empty(t, info.Imports)
	assert.Equal(t, 1, info.Importance.InDegree)
	assert.Equal(t, len(files[1].Content), info.Size)

	_, ok = in.FileInfo("/src/nope.ts")
	assert.False(t, ok)
}
