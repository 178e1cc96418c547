package lockscan

import (
	"fmt"
	"os"

	"github.com/gobeaver/beaver-kit/config"
	"github.com/pelletier/go-toml/v2"

	"github.com/gobeaver/lockscan/detector"
)

type Config struct {
	// Deepest container nesting that is expanded (root is depth 0)
	MaxDepth int `env:"LOCKSCAN_MAX_DEPTH,default:16" toml:"max_depth"`

	// Largest file CheckFile and CheckStream will read
	MaxFileSize int64 `env:"LOCKSCAN_MAX_FILE_SIZE,default:536870912" toml:"max_file_size"` // 512MB default

	// Container guards
	MaxEntrySize        int64 `env:"LOCKSCAN_MAX_ENTRY_SIZE,default:268435456" toml:"max_entry_size"`                  // 256MB default
	MaxEntries          int   `env:"LOCKSCAN_MAX_ENTRIES,default:10000" toml:"max_entries"`                            // per container
	MaxUncompressedSize int64 `env:"LOCKSCAN_MAX_UNCOMPRESSED_SIZE,default:1073741824" toml:"max_uncompressed_size"` // 1GB default
	MaxCompressionRatio int   `env:"LOCKSCAN_MAX_COMPRESSION_RATIO,default:1000" toml:"max_compression_ratio"`

	// Fall back to content sniffing when a name hint has an unknown extension
	SniffUnknownExtensions bool `env:"LOCKSCAN_SNIFF_UNKNOWN_EXTENSIONS,default:false" toml:"sniff_unknown_extensions"`

	// Result cache
	CacheEnabled    bool `env:"LOCKSCAN_CACHE_ENABLED,default:false" toml:"cache_enabled"`
	CacheTTLSeconds int  `env:"LOCKSCAN_CACHE_TTL_SECONDS,default:300" toml:"cache_ttl_seconds"`

	// debug, info, warn or error
	LogLevel string `env:"LOCKSCAN_LOG_LEVEL,default:info" toml:"log_level"`
}

// DefaultConfig returns the configuration used when no environment
// variables are set
func DefaultConfig() *Config {
	return &Config{
		MaxDepth:            16,
		MaxFileSize:         512 * detector.MB,
		MaxEntrySize:        256 * detector.MB,
		MaxEntries:          10000,
		MaxUncompressedSize: 1 * detector.GB,
		MaxCompressionRatio: 1000,
		CacheTTLSeconds:     300,
		LogLevel:            "info",
	}
}

// GetConfig returns config loaded from environment
func GetConfig() (*Config, error) {
	cfg := &Config{}
	if err := config.Load(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadConfigFile reads a TOML configuration file. Keys missing from the
// file keep their DefaultConfig values.
func LoadConfigFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, &PathError{Op: "load config", Path: path, Err: err}
	}

	cfg := DefaultConfig()
	if err := toml.Unmarshal(data, cfg); err != nil {
		return nil, &PathError{Op: "load config", Path: path, Err: err}
	}
	return cfg, nil
}

// Limits converts the configured guards into detector limits
func (c *Config) Limits() detector.Limits {
	return detector.Limits{
		MaxDepth:            c.MaxDepth,
		MaxEntrySize:        c.MaxEntrySize,
		MaxEntries:          c.MaxEntries,
		MaxUncompressedSize: c.MaxUncompressedSize,
		MaxCompressionRatio: float64(c.MaxCompressionRatio),
	}
}

// validateConfig checks configuration validity
func validateConfig(cfg *Config) error {
	if cfg.MaxDepth <= 0 {
		return fmt.Errorf("max depth must be positive, got %d", cfg.MaxDepth)
	}
	if cfg.MaxFileSize <= 0 {
		return fmt.Errorf("max file size must be positive, got %d", cfg.MaxFileSize)
	}
	if cfg.MaxEntrySize <= 0 {
		return fmt.Errorf("max entry size must be positive, got %d", cfg.MaxEntrySize)
	}
	if cfg.MaxEntries <= 0 {
		return fmt.Errorf("max entries must be positive, got %d", cfg.MaxEntries)
	}
	if cfg.MaxUncompressedSize <= 0 {
		return fmt.Errorf("max uncompressed size must be positive, got %d", cfg.MaxUncompressedSize)
	}
	if cfg.MaxCompressionRatio <= 0 {
		return fmt.Errorf("max compression ratio must be positive, got %d", cfg.MaxCompressionRatio)
	}
	if cfg.CacheEnabled && cfg.CacheTTLSeconds < 0 {
		return fmt.Errorf("cache TTL must not be negative, got %d", cfg.CacheTTLSeconds)
	}
	if _, err := ParseLogLevel(cfg.LogLevel); err != nil {
		return err
	}
	return nil
}
