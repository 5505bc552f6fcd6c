package intelligence

import (
	"context"
	"errors"
	"sort"
	"strings"

	"github.com/p-blackswan/playcraft/internal/embedding"
	perrors "github.com/p-blackswan/playcraft/internal/errors"
	"github.com/p-blackswan/playcraft/internal/weights"
)

// Signals are the per-signal scores of a suggestion, each in [0,1].
type Signals struct {
	Semantic   float64 `json:"semantic"`
	Keyword    float64 `json:"keyword"`
	Recency    float64 `json:"recency"`
	Importance float64 `json:"importance"`
}

// Suggestion is a ranked file for a prompt.
type Suggestion struct {
	Path    string   `json:"path"`
	Score   float64  `json:"score"`
	Reasons []string `json:"reasons"`
	Signals Signals  `json:"signals"`
}

// SuggestOptions tunes SuggestFiles. A zero Limit means the service's
// MaxSuggestions.
type SuggestOptions struct {
	Limit int
}

// FileInfo describes one file of the set.
type FileInfo struct {
	Path       string         `json:"path"`
	Size       int            `json:"size"`
	Status     Status         `json:"status"`
	Importance FileImportance `json:"importance"`
	Imports    []string       `json:"imports"`
	Dependents []string       `json:"dependents"`
}

// FileInfo returns details for path, or false when it is not in the set.
func (in *Intelligence) FileInfo(path string) (FileInfo, bool) {
	e, ok := in.files[path]
	if !ok {
		return FileInfo{}, false
	}
	return FileInfo{
		Path:       path,
		Size:       len(e.file.Content),
		Status:     in.Changes.statusOf(path),
		Importance: in.importance[path],
		Imports:    in.Graph.ImportsOf(path),
		Dependents: in.Graph.DependentsOf(path),
	}, true
}

// Paths returns the paths of the set in order.
func (in *Intelligence) Paths() []string {
	out := make([]string, 0, len(in.files))
	for p := range in.files {
		out = append(out, p)
	}
	sort.Strings(out)
	return out
}

// SearchSimilar returns up to k files of the set closest to query.
func (in *Intelligence) SearchSimilar(ctx context.Context, query string, k int) ([]embedding.Match, error) {
	if in.svc.similar == nil {
		return nil, embedding.ErrNoEmbedder
	}
	if k <= 0 {
		k = in.svc.maxSuggestions
	}
	// Ask for every file so filtering to the current set still yields k.
	matches, err := in.svc.similar.SearchSimilarFiles(ctx, in.ProjectID, query, max(k, len(in.files)))
	if err != nil {
		return nil, err
	}
	out := make([]embedding.Match, 0, k)
	for _, m := range matches {
		if _, ok := in.files[m.Path]; !ok {
			continue
		}
		out = append(out, m)
		if len(out) == k {
			break
		}
	}
	return out, nil
}

// SuggestFiles ranks the files of the set for prompt by the weighted sum of
// the semantic, keyword, recency and importance signals. Files scoring zero
// are dropped.
func (in *Intelligence) SuggestFiles(ctx context.Context, prompt string, opts SuggestOptions) ([]Suggestion, error) {
	if strings.TrimSpace(prompt) == "" {
		return nil, perrors.Invalid("prompt is required")
	}
	svc := in.svc
	start := svc.now()
	defer func() {
		if svc.metrics != nil {
			svc.metrics.SuggestLatency(svc.now().Sub(start))
		}
	}()

	limit := opts.Limit
	if limit <= 0 || limit > svc.maxSuggestions {
		limit = svc.maxSuggestions
	}

	semantic := in.semanticScores(ctx, prompt)
	tokens := promptTokens(prompt)
	w := in.Weights.Weights

	out := make([]Suggestion, 0, len(in.files))
	for p, e := range in.files {
		sig := Signals{
			Semantic:   semantic[p],
			Keyword:    keywordScore(tokens, e.pathTok, e.content),
			Importance: in.importance[p].Score,
		}
		switch in.Changes.statusOf(p) {
		case StatusCreated, StatusModified:
			sig.Recency = 1
		}
		score := w.Semantic*sig.Semantic +
			w.Keyword*sig.Keyword +
			w.Recency*sig.Recency +
			w.Importance*sig.Importance
		if score <= 0 {
			continue
		}
		out = append(out, Suggestion{
			Path:    p,
			Score:   score,
			Reasons: reasons(sig),
			Signals: sig,
		})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Score != out[j].Score {
			return out[i].Score > out[j].Score
		}
		return out[i].Path < out[j].Path
	})
	if len(out) > limit {
		out = out[:limit]
	}

	svc.logger.Debug().
		Str("project_id", in.ProjectID).
		Int("tokens", len(tokens)).
		Int("semantic", len(semantic)).
		Int("suggestions", len(out)).
		Msg("files suggested")
	return out, nil
}

// semanticScores maps paths to similarity clamped to [0,1]. A missing
// embedder or a failed search yields no semantic signal.
func (in *Intelligence) semanticScores(ctx context.Context, prompt string) map[string]float64 {
	scores := map[string]float64{}
	if in.svc.similar == nil || len(in.files) == 0 {
		return scores
	}
	matches, err := in.svc.similar.SearchSimilarFiles(ctx, in.ProjectID, prompt, len(in.files))
	if err != nil {
		if !errors.Is(err, embedding.ErrNoEmbedder) {
			in.svc.logger.Warn().Err(err).Str("project_id", in.ProjectID).Msg("semantic search failed")
		}
		return scores
	}
	for _, m := range matches {
		if _, ok := in.files[m.Path]; !ok {
			continue
		}
		scores[m.Path] = min(1, max(0, m.Similarity))
	}
	return scores
}

func reasons(sig Signals) []string {
	r := make([]string, 0, 4)
	if sig.Semantic > 0 {
		r = append(r, weights.Semantic)
	}
	if sig.Keyword > 0 {
		r = append(r, weights.Keyword)
	}
	if sig.Recency > 0 {
		r = append(r, weights.Recency)
	}
	if sig.Importance > 0 {
		r = append(r, weights.Importance)
	}
	return r
}

// Feedback converts suggestions to the form the weights provider records.
func Feedback(suggestions []Suggestion) []weights.Suggestion {
	out := make([]weights.Suggestion, len(suggestions))
	for i, s := range suggestions {
		out[i] = weights.Suggestion{Path: s.Path, Score: s.Score, Reasons: s.Reasons}
	}
	return out
}
