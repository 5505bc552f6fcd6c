// Package config tests.
package config

import (
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setRequiredEnvs(t *testing.T) {
	t.Helper()
	os.Clearenv()
	t.Setenv("JWT_SECRET", "test-secret")
}

func TestLoad_Defaults(t *testing.T) {
	setRequiredEnvs(t)
	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "development", cfg.Environment)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, ":8080", cfg.HTTPAddr)
	assert.Equal(t, "jwt", cfg.AuthMode)
	assert.Equal(t, 500*time.Millisecond, cfg.TrackerDebounce)
	assert.True(t, cfg.TrackerEmbeddings)
	assert.Equal(t, "none", cfg.EmbeddingProvider)
	assert.Equal(t, 64, cfg.IntelligenceCacheSize)
	assert.Equal(t, 24*time.Hour, cfg.RecencyWindow)
	assert.Equal(t, 10, cfg.MaxSuggestions)
	assert.True(t, cfg.IsDevelopment())
}

func TestLoad_MissingJWTSecret(t *testing.T) {
	os.Clearenv()
	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "JWT_SECRET")
}

func TestLoad_APIKeyMode(t *testing.T) {
	os.Clearenv()
	t.Setenv("AUTH_MODE", "api-key")
	_, err := Load()
	require.Error(t, err)

	t.Setenv("API_KEY", "k")
	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "k", cfg.APIKey)
}

func TestLoad_NoAuth(t *testing.T) {
	os.Clearenv()
	t.Setenv("AUTH_MODE", "none")
	_, err := Load()
	require.NoError(t, err)
}

func TestLoad_UnknownAuthMode(t *testing.T) {
	os.Clearenv()
	t.Setenv("AUTH_MODE", "mtls")
	_, err := Load()
	require.Error(t, err)
}

func TestLoad_CustomDebounce(t *testing.T) {
	setRequiredEnvs(t)
	t.Setenv("TRACKER_DEBOUNCE", "2s")
	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 2*time.Second, cfg.TrackerDebounce)
}

func TestLoad_InvalidDuration(t *testing.T) {
	setRequiredEnvs(t)
	t.Setenv("RECENCY_WINDOW", "soon")
	_, err := Load()
	require.Error(t, err)
}

func TestLoad_WithPrefix(t *testing.T) {
	os.Clearenv()
	t.Setenv("PLAYCRAFT_AUTH_MODE", "none")
	t.Setenv("PLAYCRAFT_HTTP_ADDR", ":9090")
	cfg, err := LoadWithPrefix("PLAYCRAFT")
	require.NoError(t, err)
	assert.Equal(t, ":9090", cfg.HTTPAddr)
}

func TestConfig_EnabledFlags(t *testing.T) {
	cfg := &Config{EmbeddingProvider: "none"}
	assert.False(t, cfg.EmbeddingsEnabled())
	assert.False(t, cfg.SlackEnabled())

	cfg.EmbeddingProvider = "http"
	assert.False(t, cfg.EmbeddingsEnabled())
	cfg.EmbeddingEndpoint = "http://localhost:11434/api/embeddings"
	assert.True(t, cfg.EmbeddingsEnabled())

	cfg.EmbeddingProvider = "genai"
	assert.False(t, cfg.EmbeddingsEnabled())
	cfg.GenAIAPIKey = "key"
	assert.True(t, cfg.EmbeddingsEnabled())

	cfg.SlackWebhookURL = "https://hooks.slack.com/services/x"
	assert.True(t, cfg.SlackEnabled())
}

func TestLoadOffline_SkipsAuth(t *testing.T) {
	os.Clearenv()
	cfg, err := LoadOffline()
	require.NoError(t, err)
	assert.Equal(t, "jwt", cfg.AuthMode)

	t.Setenv("SESSION_CAPACITY", "0")
	_, err = LoadOffline()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "SESSION_CAPACITY")
}
