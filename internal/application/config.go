package application

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/ahrav/go-cuberank/infrastructure/loader"
	"github.com/ahrav/go-cuberank/internal/domain"
	"github.com/ahrav/go-cuberank/internal/ports"
)

// EnvPrefix prefixes every environment variable that overrides the
// configuration file.
const EnvPrefix = "CUBERANK_"

// Config is the complete service configuration.
type Config struct {
	// Server configures the HTTP listener.
	Server ServerConfig `yaml:"server" validate:"required"`
	// Data locates the export files ingested at startup.
	Data DataConfig `yaml:"data" validate:"required"`
	// Query bounds result sizes.
	Query QueryConfig `yaml:"query"`
	// Records controls the record cache warm-up.
	Records RecordsConfig `yaml:"records"`
	// RateLimit is the per-process request budget. Zero disables it.
	RateLimit RateLimitConfig `yaml:"rate_limit"`
	// Log configures the zap logger.
	Log LogConfig `yaml:"log"`
	// Formats overrides the built-in averaging format of individual events.
	Formats []FormatConfig `yaml:"formats" validate:"dive"`
}

// ServerConfig configures the HTTP listener.
type ServerConfig struct {
	Addr                   string `yaml:"addr" validate:"required,hostname_port"`
	ReadTimeoutSeconds     int    `yaml:"read_timeout_seconds" validate:"min=0,max=300"`
	WriteTimeoutSeconds    int    `yaml:"write_timeout_seconds" validate:"min=0,max=300"`
	ShutdownTimeoutSeconds int    `yaml:"shutdown_timeout_seconds" validate:"min=0,max=300"`
}

// DataConfig locates the export files.
type DataConfig struct {
	Dir   string       `yaml:"dir" validate:"required"`
	Files loader.Files `yaml:"files" validate:"required"`
}

// DefaultSuggestThreshold is the name similarity used when none is set.
const DefaultSuggestThreshold = 0.75

// QueryConfig bounds result sizes. Zero means no cap.
type QueryConfig struct {
	MaxSearchResults int `yaml:"max_search_results" validate:"min=0,max=100000"`
	MaxRankings      int `yaml:"max_rankings" validate:"min=0"`
	MaxSuggestions   int `yaml:"max_suggestions" validate:"min=0,max=1000"`

	// SuggestThreshold is the minimum name similarity (0..1) for a
	// suggestion. Zero means DefaultSuggestThreshold.
	SuggestThreshold float64 `yaml:"suggest_threshold" validate:"min=0,max=1"`
}

// RecordsConfig controls the record cache warm-up.
type RecordsConfig struct {
	// Precompute fills the record cache before the service reports ready.
	Precompute bool `yaml:"precompute"`
	// Workers bounds warm-up concurrency.
	Workers int `yaml:"workers" validate:"min=0,max=256"`
}

// RateLimitConfig is a token bucket shared by all clients.
type RateLimitConfig struct {
	RequestsPerSecond float64 `yaml:"requests_per_second" validate:"min=0"`
	Burst             int     `yaml:"burst" validate:"min=0"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level string `yaml:"level" validate:"omitempty,oneof=debug info warn error"`
}

// FormatConfig overrides one event's averaging format.
type FormatConfig struct {
	Event         string `yaml:"event" validate:"required"`
	domain.Format `yaml:",inline"`
}

// DefaultConfig returns the configuration used when no file is given.
func DefaultConfig() Config {
	return Config{
		Server: ServerConfig{
			Addr:                   ":3000",
			ReadTimeoutSeconds:     10,
			WriteTimeoutSeconds:    30,
			ShutdownTimeoutSeconds: 15,
		},
		Data: DataConfig{
			Dir:   "data",
			Files: loader.DefaultFiles(),
		},
		Query: QueryConfig{
			MaxSearchResults: 100,
			MaxSuggestions:   10,
			SuggestThreshold: DefaultSuggestThreshold,
		},
		Records: RecordsConfig{
			Precompute: false,
			Workers:    4,
		},
		RateLimit: RateLimitConfig{
			RequestsPerSecond: 200,
			Burst:             400,
		},
		Log: LogConfig{Level: "info"},
	}
}

// FormatMap returns the format overrides keyed by event id.
func (c Config) FormatMap() map[string]domain.Format {
	out := make(map[string]domain.Format, len(c.Formats))
	for _, f := range c.Formats {
		out[f.Event] = f.Format
	}
	return out
}

// LoadConfig builds the configuration from defaults, an optional YAML file
// and CUBERANK_* environment variables, in increasing precedence, and
// validates the result. An empty path skips the file; a path that does not
// exist fails with ports.ErrConfigNotFound.
func LoadConfig(path string) (Config, error) {
	cfg := DefaultConfig()
	if path != "" {
		data, err := os.ReadFile(filepath.Clean(path))
		if errors.Is(err, fs.ErrNotExist) {
			return Config{}, ports.NewConfigError("file", fmt.Errorf("%w: %s: %w", ports.ErrConfigNotFound, path, err))
		}
		if err != nil {
			return Config{}, ports.NewConfigError("file", err)
		}
		if err := decodeConfig(bytes.NewReader(data), &cfg); err != nil {
			return Config{}, err
		}
	}
	if err := applyEnv(&cfg, os.LookupEnv); err != nil {
		return Config{}, err
	}
	if err := ValidateConfig(cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// LoadEnvFiles loads .env style files into the process environment.
// Missing files are ignored; variables already set are not overwritten.
func LoadEnvFiles(paths ...string) error {
	for _, p := range paths {
		if err := godotenv.Load(p); err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				continue
			}
			return ports.NewConfigError("env_file", fmt.Errorf("%s: %w", p, err))
		}
	}
	return nil
}

// decodeConfig overlays YAML from r onto cfg. Unknown keys are rejected.
func decodeConfig(r io.Reader, cfg *Config) error {
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil {
		if errors.Is(err, io.EOF) {
			return nil
		}
		return ports.NewConfigError("yaml", err)
	}
	return nil
}

// Package-level validator instance for configuration validation.
var validate = validator.New()

// ValidateConfig checks struct constraints and cross-field rules.
func ValidateConfig(cfg Config) error {
	if err := validate.Struct(cfg); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			fe := verrs[0]
			return ports.NewConfigError(fe.Namespace(),
				fmt.Errorf("%w: failed %q validation", domain.ErrInvalidConfiguration, fe.Tag()))
		}
		return ports.NewConfigError("config", err)
	}

	seen := make(map[string]struct{}, len(cfg.Formats))
	for i, f := range cfg.Formats {
		key := fmt.Sprintf("formats[%d]", i)
		if _, dup := seen[f.Event]; dup {
			return ports.NewConfigError(key,
				fmt.Errorf("%w: duplicate format for event %q", domain.ErrInvalidConfiguration, f.Event))
		}
		seen[f.Event] = struct{}{}
		if err := validateFormat(f.Format); err != nil {
			return ports.NewConfigError(key, err)
		}
	}
	return nil
}

func validateFormat(f domain.Format) error {
	if err := validate.Struct(f); err != nil {
		return fmt.Errorf("%w: %v", domain.ErrInvalidConfiguration, err)
	}
	if f.SingleOnly {
		return nil
	}
	if 2*f.Trim >= f.Attempts {
		return fmt.Errorf("%w: trim %d leaves no attempts out of %d",
			domain.ErrInvalidConfiguration, f.Trim, f.Attempts)
	}
	return nil
}

// applyEnv overrides cfg with CUBERANK_* variables found through lookup.
func applyEnv(cfg *Config, lookup func(string) (string, bool)) error {
	str := func(name string, dst *string) {
		if v, ok := lookup(EnvPrefix + name); ok && v != "" {
			*dst = v
		}
	}
	integer := func(name string, dst *int) error {
		v, ok := lookup(EnvPrefix + name)
		if !ok || v == "" {
			return nil
		}
		n, err := strconv.Atoi(strings.TrimSpace(v))
		if err != nil {
			return ports.NewConfigError(EnvPrefix+name, err)
		}
		*dst = n
		return nil
	}

	str("ADDR", &cfg.Server.Addr)
	str("DATA_DIR", &cfg.Data.Dir)
	str("LOG_LEVEL", &cfg.Log.Level)

	for name, dst := range map[string]*int{
		"MAX_SEARCH_RESULTS": &cfg.Query.MaxSearchResults,
		"MAX_RANKINGS":       &cfg.Query.MaxRankings,
		"MAX_SUGGESTIONS":    &cfg.Query.MaxSuggestions,
		"RECORDS_WORKERS":    &cfg.Records.Workers,
		"RATE_LIMIT_BURST":   &cfg.RateLimit.Burst,
	} {
		if err := integer(name, dst); err != nil {
			return err
		}
	}

	if v, ok := lookup(EnvPrefix + "PRECOMPUTE"); ok && v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return ports.NewConfigError(EnvPrefix+"PRECOMPUTE", err)
		}
		cfg.Records.Precompute = b
	}
	if v, ok := lookup(EnvPrefix + "RATE_LIMIT_RPS"); ok && v != "" {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return ports.NewConfigError(EnvPrefix+"RATE_LIMIT_RPS", err)
		}
		cfg.RateLimit.RequestsPerSecond = f
	}
	return nil
}
