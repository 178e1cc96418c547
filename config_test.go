package lockscan

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gobeaver/lockscan/detector"
)

func TestGetConfig(t *testing.T) {
	tests := []struct {
		name    string
		envVars map[string]string
		want    Config
	}{
		{
			name:    "default values",
			envVars: map[string]string{},
			want:    *DefaultConfig(),
		},
		{
			name: "limits",
			envVars: map[string]string{
				"BEAVER_LOCKSCAN_MAX_DEPTH":             "4",
				"BEAVER_LOCKSCAN_MAX_FILE_SIZE":         "1048576",
				"BEAVER_LOCKSCAN_MAX_ENTRY_SIZE":        "65536",
				"BEAVER_LOCKSCAN_MAX_ENTRIES":           "50",
				"BEAVER_LOCKSCAN_MAX_UNCOMPRESSED_SIZE": "2097152",
				"BEAVER_LOCKSCAN_MAX_COMPRESSION_RATIO": "100",
			},
			want: Config{
				MaxDepth:            4,
				MaxFileSize:         1048576,
				MaxEntrySize:        65536,
				MaxEntries:          50,
				MaxUncompressedSize: 2097152,
				MaxCompressionRatio: 100,
				CacheTTLSeconds:     300,
				LogLevel:            "info",
			},
		},
		{
			name: "cache and logging",
			envVars: map[string]string{
				"BEAVER_LOCKSCAN_CACHE_ENABLED":            "true",
				"BEAVER_LOCKSCAN_CACHE_TTL_SECONDS":        "60",
				"BEAVER_LOCKSCAN_LOG_LEVEL":                "debug",
				"BEAVER_LOCKSCAN_SNIFF_UNKNOWN_EXTENSIONS": "true",
			},
			want: func() Config {
				cfg := *DefaultConfig()
				cfg.CacheEnabled = true
				cfg.CacheTTLSeconds = 60
				cfg.LogLevel = "debug"
				cfg.SniffUnknownExtensions = true
				return cfg
			}(),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for k, v := range tt.envVars {
				t.Setenv(k, v)
			}

			cfg, err := GetConfig()
			require.NoError(t, err)
			assert.Equal(t, tt.want, *cfg)
		})
	}
}

func TestLoadConfigFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "lockscan.toml")
	require.NoError(t, os.WriteFile(path, []byte(`
max_depth = 3
max_entries = 25
cache_enabled = true
log_level = "warn"
`), 0o600))

	cfg, err := LoadConfigFile(path)
	require.NoError(t, err)

	assert.Equal(t, 3, cfg.MaxDepth)
	assert.Equal(t, 25, cfg.MaxEntries)
	assert.True(t, cfg.CacheEnabled)
	assert.Equal(t, "warn", cfg.LogLevel)

	// Keys missing from the file keep their defaults
	assert.Equal(t, DefaultConfig().MaxFileSize, cfg.MaxFileSize)
	assert.Equal(t, 300, cfg.CacheTTLSeconds)
}

func TestLoadConfigFileErrors(t *testing.T) {
	dir := t.TempDir()

	_, err := LoadConfigFile(filepath.Join(dir, "missing.toml"))
	var pathErr *PathError
	require.ErrorAs(t, err, &pathErr)
	assert.ErrorIs(t, err, os.ErrNotExist)

	bad := filepath.Join(dir, "bad.toml")
	require.NoError(t, os.WriteFile(bad, []byte("max_depth = [oops"), 0o600))
	_, err = LoadConfigFile(bad)
	require.ErrorAs(t, err, &pathErr)
	assert.Equal(t, bad, pathErr.Path)
}

func TestValidateConfig(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		ok     bool
	}{
		{"defaults", func(*Config) {}, true},
		{"zero depth", func(c *Config) { c.MaxDepth = 0 }, false},
		{"negative file size", func(c *Config) { c.MaxFileSize = -1 }, false},
		{"zero entry size", func(c *Config) { c.MaxEntrySize = 0 }, false},
		{"zero entries", func(c *Config) { c.MaxEntries = 0 }, false},
		{"zero uncompressed", func(c *Config) { c.MaxUncompressedSize = 0 }, false},
		{"zero ratio", func(c *Config) { c.MaxCompressionRatio = 0 }, false},
		{"negative ttl with cache", func(c *Config) { c.CacheEnabled = true; c.CacheTTLSeconds = -5 }, false},
		{"bad log level", func(c *Config) { c.LogLevel = "verbose" }, false},
		{"upper case log level", func(c *Config) { c.LogLevel = "ERROR" }, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(cfg)
			err := validateConfig(cfg)
			if tt.ok {
				assert.NoError(t, err)
			} else {
				assert.Error(t, err)
			}
		})
	}
}

func TestConfigLimits(t *testing.T) {
	cfg := DefaultConfig()
	assert.Equal(t, detector.DefaultLimits(), cfg.Limits())

	cfg.MaxDepth = 2
	cfg.MaxCompressionRatio = 50
	limits := cfg.Limits()
	assert.Equal(t, 2, limits.MaxDepth)
	assert.InDelta(t, 50.0, limits.MaxCompressionRatio, 0)
}
