// Package weights supplies the signal weights used to rank file
// suggestions, optionally adapted from recorded suggestion feedback.
package weights

import (
	"context"
	"math"
	"time"

	"github.com/rs/zerolog"

	"github.com/p-blackswan/playcraft/internal/store"
)

// Signal names. They double as suggestion reasons.
const (
	Semantic   = "semantic"
	Keyword    = "keyword"
	Recency    = "recent"
	Importance = "important"
)

// Weights are the per-signal multipliers. They sum to 1.
type Weights struct {
	Semantic   float64 `json:"semantic"`
	Keyword    float64 `json:"keyword"`
	Recency    float64 `json:"recency"`
	Importance float64 `json:"importance"`
}

// Default is used when there is no feedback yet.
func Default() Weights {
	return Weights{Semantic: 0.40, Keyword: 0.30, Recency: 0.15, Importance: 0.15}
}

// Sum returns the total of all weights.
func (w Weights) Sum() float64 {
	return w.Semantic + w.Keyword + w.Recency + w.Importance
}

// Normalize scales w to sum to 1. A zero vector yields Default.
func (w Weights) Normalize() Weights {
	sum := w.Sum()
	if sum <= 0 || math.IsNaN(sum) {
		return Default()
	}
	return Weights{
		Semantic:   w.Semantic / sum,
		Keyword:    w.Keyword / sum,
		Recency:    w.Recency / sum,
		Importance: w.Importance / sum,
	}
}

// Adaptive is a weight set with its provenance.
type Adaptive struct {
	Weights     Weights `json:"weights"`
	Confidence  float64 `json:"confidence"`
	SampleSize  int     `json:"sample_size"`
	AvgAccuracy float64 `json:"avg_accuracy"`
}

// Provider returns the weights to use for a project.
type Provider interface {
	GetAdaptiveWeights(ctx context.Context, projectID string) (Adaptive, error)
}

// Static always returns the same weights.
type Static struct {
	W Weights
}

func (s Static) GetAdaptiveWeights(context.Context, string) (Adaptive, error) {
	return Adaptive{Weights: s.W}, nil
}

// FeedbackStore is the persistence FeedbackProvider reads and writes.
type FeedbackStore interface {
	RecordFeedback(ctx context.Context, rows []store.Feedback) error
	ListFeedback(ctx context.Context, projectID string, limit int) ([]store.Feedback, error)
}

// Suggestion is the part of a ranked suggestion that feedback needs.
type Suggestion struct {
	Path    string
	Score   float64
	Reasons []string
}

const (
	// fullConfidenceSamples is the sample count at which learned weights
	// fully replace the defaults.
	fullConfidenceSamples = 50
	feedbackWindow        = 500
)

// FeedbackProvider learns weights from which suggested files were edited.
type FeedbackProvider struct {
	store  FeedbackStore
	logger zerolog.Logger
	now    func() time.Time
}

// NewFeedbackProvider creates a provider backed by s.
func NewFeedbackProvider(s FeedbackStore, logger zerolog.Logger) *FeedbackProvider {
	return &FeedbackProvider{
		store:  s,
		logger: logger.With().Str("component", "weights").Logger(),
		now:    time.Now,
	}
}

// RecordFeedback stores one row per suggestion: accepted when its path is
// among editedPaths.
func (p *FeedbackProvider) RecordFeedback(ctx context.Context, projectID string, suggestions []Suggestion, editedPaths []string) error {
	edited := make(map[string]bool, len(editedPaths))
	for _, path := range editedPaths {
		edited[path] = true
	}
	now := p.now()
	rows := make([]store.Feedback, 0, len(suggestions))
	for _, s := range suggestions {
		reasons := s.Reasons
		if reasons == nil {
			reasons = []string{}
		}
		rows = append(rows, store.Feedback{
			ProjectID: projectID,
			Path:      s.Path,
			Reasons:   reasons,
			Score:     s.Score,
			Accepted:  edited[s.Path],
			CreatedAt: now,
		})
	}
	return p.store.RecordFeedback(ctx, rows)
}

// GetAdaptiveWeights blends each signal's hit rate among accepted
// suggestions with the defaults, by confidence min(1, n/50).
func (p *FeedbackProvider) GetAdaptiveWeights(ctx context.Context, projectID string) (Adaptive, error) {
	rows, err := p.store.ListFeedback(ctx, projectID, feedbackWindow)
	if err != nil {
		return Adaptive{Weights: Default()}, err
	}
	if len(rows) == 0 {
		return Adaptive{Weights: Default()}, nil
	}

	var accepted int
	var hits Weights
	for _, f := range rows {
		if !f.Accepted {
			continue
		}
		accepted++
		for _, r := range f.Reasons {
			switch r {
			case Semantic:
				hits.Semantic++
			case Keyword:
				hits.Keyword++
			case Recency:
				hits.Recency++
			case Importance:
				hits.Importance++
			}
		}
	}

	n := len(rows)
	confidence := math.Min(1, float64(n)/fullConfidenceSamples)
	out := Adaptive{
		Weights:     Default(),
		Confidence:  confidence,
		SampleSize:  n,
		AvgAccuracy: float64(accepted) / float64(n),
	}
	if accepted == 0 {
		return out, nil
	}

	learned := hits.Normalize()
	def := Default()
	out.Weights = Weights{
		Semantic:   blend(def.Semantic, learned.Semantic, confidence),
		Keyword:    blend(def.Keyword, learned.Keyword, confidence),
		Recency:    blend(def.Recency, learned.Recency, confidence),
		Importance: blend(def.Importance, learned.Importance, confidence),
	}.Normalize()

	p.logger.Debug().
		Str("project_id", projectID).
		Int("samples", n).
		Float64("confidence", confidence).
		Msg("adaptive weights computed")
	return out, nil
}

func blend(def, learned, confidence float64) float64 {
	return def*(1-confidence) + learned*confidence
}
