package main

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/rs/zerolog"

	"github.com/p-blackswan/playcraft/internal/config"
	"github.com/p-blackswan/playcraft/internal/embedding"
	"github.com/p-blackswan/playcraft/internal/game"
	"github.com/p-blackswan/playcraft/internal/intelligence"
	"github.com/p-blackswan/playcraft/internal/metrics"
	"github.com/p-blackswan/playcraft/internal/store"
	"github.com/p-blackswan/playcraft/internal/tracker"
)

// contentHasher is shared by the trackers that persist hashes and the
// intelligence service that compares against them.
var contentHasher tracker.Hasher = tracker.SHA256Hasher{}

// newEmbedder returns the configured embedder, or nil when embeddings are
// off.
func newEmbedder(ctx context.Context, cfg *config.Config) (embedding.Embedder, error) {
	if !cfg.EmbeddingsEnabled() {
		return nil, nil
	}
	switch strings.ToLower(cfg.EmbeddingProvider) {
	case "http":
		return embedding.NewHTTPEmbedder(embedding.HTTPEmbedderConfig{
			Endpoint: cfg.EmbeddingEndpoint,
			APIKey:   cfg.EmbeddingAPIKey,
			Model:    cfg.EmbeddingModel,
		}), nil
	case "genai":
		e, err := embedding.NewGenAIEmbedder(ctx, cfg.GenAIAPIKey, cfg.GenAIModel)
		if err != nil {
			return nil, fmt.Errorf("failed to create genai embedder: %w", err)
		}
		return e, nil
	}
	return nil, nil
}

// newTrackers builds the tracker registry persisting hashes to st. Nil m
// disables tracker metrics.
func newTrackers(cfg *config.Config, st *store.Store, index *embedding.Index, m *metrics.Metrics, hooks tracker.Hooks, logger zerolog.Logger) *tracker.Registry {
	opts := tracker.Options{
		Debounce:   cfg.TrackerDebounce,
		Embeddings: cfg.TrackerEmbeddings && index.Enabled(),
		Embedder:   index,
		Store:      tracker.SQLHashStore{Store: st},
		Hasher:     contentHasher,
		Hooks:      hooks,
		Logger:     logger,
	}
	if m != nil {
		opts.Metrics = m
	}
	return tracker.NewRegistry(opts)
}

// intelligenceOptions maps the config onto the intelligence service.
func intelligenceOptions(cfg *config.Config, logger zerolog.Logger) intelligence.Options {
	return intelligence.Options{
		CacheSize:      cfg.IntelligenceCacheSize,
		RecencyWindow:  cfg.RecencyWindow,
		MaxSuggestions: cfg.MaxSuggestions,
		Hasher:         contentHasher,
		Logger:         logger,
	}
}

// gameConfig loads GAME_CONFIG_PATH, falling back to the built-in defaults.
func gameConfig(cfg *config.Config) (game.Config, error) {
	if cfg.GameConfigPath == "" {
		return game.DefaultConfig(), nil
	}
	f, err := os.Open(cfg.GameConfigPath)
	if err != nil {
		return game.Config{}, fmt.Errorf("failed to open game config: %w", err)
	}
	defer f.Close()
	gc, err := game.LoadConfig(f)
	if err != nil {
		return game.Config{}, fmt.Errorf("failed to load game config %s: %w", cfg.GameConfigPath, err)
	}
	return gc, nil
}
