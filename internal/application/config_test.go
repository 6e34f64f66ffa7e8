package application

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ahrav/go-cuberank/internal/domain"
	"github.com/ahrav/go-cuberank/internal/ports"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "cuberank.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestDefaultConfigIsValid(t *testing.T) {
	require.NoError(t, ValidateConfig(DefaultConfig()))
}

func TestLoadConfig_File(t *testing.T) {
	path := writeConfig(t, `
server:
  addr: "127.0.0.1:8080"
data:
  dir: /srv/wca
  files:
    persons: persons.tsv
    results: results.tsv
    events: events.tsv
query:
  max_search_results: 25
records:
  precompute: true
  workers: 8
formats:
  - event: "333"
    attempts: 3
    trim: 0
  - event: "333fm"
    attempts: 3
    scale: 100
`)

	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, "127.0.0.1:8080", cfg.Server.Addr)
	assert.Equal(t, "/srv/wca", cfg.Data.Dir)
	assert.Equal(t, "results.tsv", cfg.Data.Files.Results)
	assert.Equal(t, 25, cfg.Query.MaxSearchResults)
	assert.True(t, cfg.Records.Precompute)
	assert.Equal(t, 8, cfg.Records.Workers)
	assert.Equal(t, 15, cfg.Server.ShutdownTimeoutSeconds, "unset keys keep their defaults")

	formats := cfg.FormatMap()
	assert.Equal(t, domain.MeanOf3, formats["333"])
	assert.Equal(t, domain.MovesMeanOf3, formats["333fm"])
}

func TestLoadConfig_Errors(t *testing.T) {
	tests := []struct {
		name    string
		body    string
		wantKey string
		wantIs  error
	}{
		{
			name:    "unknown key",
			body:    "server:\n  address: \":80\"\n",
			wantKey: "yaml",
		},
		{
			name:    "bad listen address",
			body:    "server:\n  addr: \"not an address\"\n",
			wantKey: "Config.Server.Addr",
			wantIs:  domain.ErrInvalidConfiguration,
		},
		{
			name:    "negative cap",
			body:    "query:\n  max_search_results: -1\n",
			wantKey: "Config.Query.MaxSearchResults",
			wantIs:  domain.ErrInvalidConfiguration,
		},
		{
			name:    "suggest threshold above one",
			body:    "query:\n  suggest_threshold: 1.5\n",
			wantKey: "Config.Query.SuggestThreshold",
			wantIs:  domain.ErrInvalidConfiguration,
		},
		{
			name:    "format trims everything",
			body:    "formats:\n  - event: \"333\"\n    attempts: 2\n    trim: 1\n",
			wantKey: "formats[0]",
			wantIs:  domain.ErrInvalidConfiguration,
		},
		{
			name:    "duplicate format",
			body:    "formats:\n  - event: \"333\"\n    attempts: 3\n  - event: \"333\"\n    attempts: 5\n    trim: 1\n",
			wantKey: "formats[1]",
			wantIs:  domain.ErrInvalidConfiguration,
		},
		{
			name:    "bad log level",
			body:    "log:\n  level: loud\n",
			wantKey: "Config.Log.Level",
			wantIs:  domain.ErrInvalidConfiguration,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := LoadConfig(writeConfig(t, tt.body))
			require.Error(t, err)

			var cerr *ports.ConfigError
			require.True(t, errors.As(err, &cerr), "got %v", err)
			assert.Equal(t, tt.wantKey, cerr.ConfigKey)
			if tt.wantIs != nil {
				assert.ErrorIs(t, err, tt.wantIs)
			}
		})
	}

	_, err := LoadConfig(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.ErrorIs(t, err, os.ErrNotExist)
	assert.ErrorIs(t, err, ports.ErrConfigNotFound)
	var cfgErr *ports.ConfigError
	require.ErrorAs(t, err, &cfgErr)
	assert.Equal(t, "file", cfgErr.ConfigKey)
}

func TestLoadConfig_EmptyFileKeepsDefaults(t *testing.T) {
	cfg, err := LoadConfig(writeConfig(t, ""))
	require.NoError(t, err)
	assert.Equal(t, DefaultConfig(), cfg)
}

func TestApplyEnv(t *testing.T) {
	env := map[string]string{
		"CUBERANK_ADDR":               ":9090",
		"CUBERANK_DATA_DIR":           "/data",
		"CUBERANK_MAX_SEARCH_RESULTS": "7",
		"CUBERANK_MAX_SUGGESTIONS":    "3",
		"CUBERANK_PRECOMPUTE":         "true",
		"CUBERANK_RATE_LIMIT_RPS":     "12.5",
		"CUBERANK_RATE_LIMIT_BURST":   "30",
		"CUBERANK_LOG_LEVEL":          "debug",
	}
	lookup := func(k string) (string, bool) {
		v, ok := env[k]
		return v, ok
	}

	cfg := DefaultConfig()
	require.NoError(t, applyEnv(&cfg, lookup))
	assert.Equal(t, ":9090", cfg.Server.Addr)
	assert.Equal(t, "/data", cfg.Data.Dir)
	assert.Equal(t, 7, cfg.Query.MaxSearchResults)
	assert.Equal(t, 3, cfg.Query.MaxSuggestions)
	assert.True(t, cfg.Records.Precompute)
	assert.InDelta(t, 12.5, cfg.RateLimit.RequestsPerSecond, 1e-9)
	assert.Equal(t, 30, cfg.RateLimit.Burst)
	assert.Equal(t, "debug", cfg.Log.Level)

	env = map[string]string{"CUBERANK_MAX_RANKINGS": "lots"}
	err := applyEnv(&cfg, lookup)
	var cerr *ports.ConfigError
	require.True(t, errors.As(err, &cerr))
	assert.Equal(t, "CUBERANK_MAX_RANKINGS", cerr.ConfigKey)

	env = map[string]string{"CUBERANK_PRECOMPUTE": "maybe"}
	assert.Error(t, applyEnv(&cfg, lookup))
}

func TestLoadEnvFiles(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, ".env")
	require.NoError(t, os.WriteFile(path, []byte("CUBERANK_TEST_ENV_FILE=loaded\n"), 0o600))
	t.Cleanup(func() { os.Unsetenv("CUBERANK_TEST_ENV_FILE") })

	require.NoError(t, LoadEnvFiles(filepath.Join(dir, "absent.env"), path))
	assert.Equal(t, "loaded", os.Getenv("CUBERANK_TEST_ENV_FILE"))
}

func TestLoadConfig_ExampleFile(t *testing.T) {
	cfg, err := LoadConfig("../../config/cuberank.example.yaml")
	require.NoError(t, err)
	assert.True(t, cfg.Records.Precompute)
	assert.Equal(t, domain.MeanOf3, cfg.FormatMap()["333bf"])
}
