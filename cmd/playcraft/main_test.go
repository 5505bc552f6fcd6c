package main

import (
	"bytes"
	"encoding/json"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/p-blackswan/playcraft/internal/config"
	"github.com/p-blackswan/playcraft/internal/game"
	"github.com/p-blackswan/playcraft/internal/intelligence"
)

func TestPrintSuggestions(t *testing.T) {
	suggestions := []intelligence.Suggestion{
		{Path: "/src/App.tsx", Score: 0.665, Reasons: []string{"keyword", "recency"}},
	}

	var buf bytes.Buffer
	require.NoError(t, printSuggestions(&buf, "table", suggestions))
	assert.Contains(t, buf.String(), "SCORE")
	assert.Contains(t, buf.String(), "0.665")
	assert.Contains(t, buf.String(), "keyword,recency")

	buf.Reset()
	require.NoError(t, printSuggestions(&buf, "json", suggestions))
	var decoded []intelligence.Suggestion
	require.NoError(t, json.Unmarshal(buf.Bytes(), &decoded))
	assert.Equal(t, "/src/App.tsx", decoded[0].Path)

	assert.Error(t, printSuggestions(&buf, "xml", suggestions))
}

func TestGameConfig(t *testing.T) {
	gc, err := gameConfig(&config.Config{})
	require.NoError(t, err)
	assert.Equal(t, game.DefaultConfig(), gc)

	_, err = gameConfig(&config.Config{GameConfigPath: filepath.Join(t.TempDir(), "missing.yaml")})
	assert.Error(t, err)
}

func TestNewEmbedder_Disabled(t *testing.T) {
	e, err := newEmbedder(t.Context(), &config.Config{EmbeddingProvider: "none"})
	require.NoError(t, err)
	assert.Nil(t, e)
}

func TestRootCommands(t *testing.T) {
	names := map[string]bool{}
	for _, c := range rootCmd.Commands() {
		names[c.Name()] = true
	}
	for _, want := range []string{"serve", "suggest", "watch", "token"} {
		assert.True(t, names[want], want)
	}
}
