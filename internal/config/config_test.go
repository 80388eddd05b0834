package config

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/go-playground/validator/v10"
	"github.com/hupe1980/sitetree/balance"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load("", "")
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
	assert.Equal(t, slog.LevelInfo, cfg.LogLevel())
}

func TestLoad_File(t *testing.T) {
	path := writeFile(t, "sitetree.yaml", `
dims: 3
min_size: 4
min_year: 1990
max_year: 2020
start_dim: 1
strategy: selected
compression: zstd
layout:
  attributes: [0]
  coords: [1, 2, 3]
  year: 4
log:
  level: debug
  format: json
resources:
  max_concurrent_writes: 8
`)

	cfg, err := Load(path, "")
	require.NoError(t, err)

	assert.Equal(t, 3, cfg.Dims)
	assert.Equal(t, 4, cfg.MinSize)
	require.NotNil(t, cfg.MinYear)
	assert.Equal(t, 1990, *cfg.MinYear)
	assert.Equal(t, 2020, *cfg.MaxYear)
	assert.Equal(t, "selected", cfg.Strategy)
	assert.Equal(t, []int{1, 2, 3}, cfg.Layout.Coords)
	assert.Equal(t, slog.LevelDebug, cfg.LogLevel())
	assert.Equal(t, int64(8), cfg.Resources.MaxConcurrentWrites)
	assert.Equal(t, "go-json", cfg.Codec)
	assert.Len(t, cfg.ReaderOptions(), 3)

	pc := cfg.Partitioner(balance.YearRange{Min: 1990, Max: 2020})
	assert.Equal(t, 3, pc.Dims)
	assert.Equal(t, 1, pc.StartDim)
	assert.False(t, pc.DeriveYears)

	opts, err := cfg.Options()
	require.NoError(t, err)
	assert.Len(t, opts, 5)
}

func TestLoad_EnvOverridesFile(t *testing.T) {
	path := writeFile(t, "sitetree.yaml", "dims: 3\nmin_size: 4\n")
	t.Setenv("SITETREE_MIN_SIZE", "9")
	t.Setenv("SITETREE_MAX_YEAR", "2010")
	t.Setenv("LOG_FORMAT", "json")
	t.Setenv("SITETREE_INPUT_ORDER", "true")

	cfg, err := Load(path, "")
	require.NoError(t, err)

	assert.Equal(t, 3, cfg.Dims)
	assert.Equal(t, 9, cfg.MinSize)
	assert.Nil(t, cfg.MinYear)
	assert.Equal(t, 2010, *cfg.MaxYear)
	assert.Equal(t, "json", cfg.Log.Format)
	assert.True(t, cfg.InputOrder)
}

func TestLoad_PrefixedEnvWins(t *testing.T) {
	t.Setenv("LOG_LEVEL", "error")
	t.Setenv("SITETREE_LOG_LEVEL", "warn")

	cfg, err := Load("", "")
	require.NoError(t, err)
	assert.Equal(t, slog.LevelWarn, cfg.LogLevel())
}

func TestLoad_DotEnv(t *testing.T) {
	envFile := writeFile(t, ".env", "SITETREE_DIMS=4\nSITETREE_PG_TABLE=plots\n")
	t.Setenv("SITETREE_DIMS", "")
	t.Setenv("SITETREE_PG_TABLE", "")
	// Setenv registers the cleanup for the variables godotenv sets.
	require.NoError(t, os.Unsetenv("SITETREE_DIMS"))
	require.NoError(t, os.Unsetenv("SITETREE_PG_TABLE"))

	cfg, err := Load("", envFile)
	require.NoError(t, err)
	assert.Equal(t, 4, cfg.Dims)
	assert.Equal(t, "plots", cfg.Postgres.Table)

	_, err = Load("", filepath.Join(t.TempDir(), "missing.env"))
	require.NoError(t, err)
}

func TestLoad_Errors(t *testing.T) {
	t.Run("missing file", func(t *testing.T) {
		_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"), "")
		require.Error(t, err)
	})

	t.Run("bad yaml", func(t *testing.T) {
		_, err := Load(writeFile(t, "bad.yaml", "dims: [\n"), "")
		require.ErrorContains(t, err, "parse config")
	})

	t.Run("bad env", func(t *testing.T) {
		t.Setenv("SITETREE_DIMS", "two")
		_, err := Load("", "")
		require.ErrorContains(t, err, "SITETREE_DIMS")
	})
}

func TestValidate(t *testing.T) {
	year := func(y int) *int { return &y }

	tests := []struct {
		name   string
		mutate func(*Config)
		tag    string
	}{
		{"dims", func(c *Config) { c.Dims = 0 }, "gte"},
		{"min size", func(c *Config) { c.MinSize = -1 }, "gte"},
		{"start dim", func(c *Config) { c.StartDim = 2 }, "ltfield"},
		{"strategy", func(c *Config) { c.Strategy = "random" }, "oneof"},
		{"codec", func(c *Config) { c.Codec = "xml" }, "oneof"},
		{"compression", func(c *Config) { c.Compression = "gzip" }, "oneof"},
		{"log level", func(c *Config) { c.Log.Level = "trace" }, "oneof"},
		{"years", func(c *Config) { c.MinYear, c.MaxYear = year(2005), year(2001) }, "gtefield"},
		{"resources", func(c *Config) { c.Resources.IOLimitBytesPerSec = -1 }, "gte"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(&cfg)

			err := cfg.Validate()
			var verrs validator.ValidationErrors
			require.ErrorAs(t, err, &verrs)
			var tags []string
			for _, fe := range verrs {
				tags = append(tags, fe.Tag())
			}
			assert.Contains(t, tags, tt.tag)
		})
	}

	t.Run("equal years", func(t *testing.T) {
		cfg := Default()
		cfg.MinYear, cfg.MaxYear = year(2001), year(2001)
		require.NoError(t, cfg.Validate())
	})
}
