// Package config handles configuration loading and validation for pnger.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"

	"pnger/pkg/stego/seed"
)

// Config holds the complete tool configuration.
type Config struct {
	// Defaults control the embedding strategy used when no flags override it.
	Defaults DefaultsConfig `toml:"defaults" json:"defaults" yaml:"defaults"`

	// Obfuscation configures the XOR payload transform.
	Obfuscation ObfuscationConfig `toml:"obfuscation" json:"obfuscation" yaml:"obfuscation"`

	// Journal configures the optional SQLite operation journal.
	Journal JournalConfig `toml:"journal" json:"journal" yaml:"journal"`

	// Logging configuration.
	Logging LoggingConfig `toml:"logging" json:"logging" yaml:"logging"`

	// Watch configuration for the batch watch mode.
	Watch WatchConfig `toml:"watch" json:"watch" yaml:"watch"`
}

// DefaultsConfig holds the default embedding strategy.
type DefaultsConfig struct {
	// Pattern is the bit-position scheduler: "linear" or "random".
	Pattern string `toml:"pattern" json:"pattern" yaml:"pattern"`

	// BitIndex is the carrier bit plane to write, 0 (LSB) through 7 (MSB).
	BitIndex int `toml:"bit_index" json:"bit_index" yaml:"bit_index"`

	// SeedSource selects how the random pattern is keyed:
	// "auto", "password", or "manual".
	SeedSource string `toml:"seed_source" json:"seed_source" yaml:"seed_source"`

	// SaltLength is the salt size in bytes for generated salts.
	SaltLength int `toml:"salt_length" json:"salt_length" yaml:"salt_length"`
}

// ObfuscationConfig holds XOR transform configuration.
type ObfuscationConfig struct {
	// Enabled determines whether payloads are XOR-obfuscated.
	Enabled bool `toml:"enabled" json:"enabled" yaml:"enabled"`

	// Key is the XOR key. Empty means the built-in default key.
	// Prefer the PNGER_OBFUSCATION_KEY environment variable over
	// writing a key into the config file.
	Key string `toml:"key" json:"key" yaml:"key"`
}

// JournalConfig holds operation journal configuration.
type JournalConfig struct {
	// Enabled determines whether operations are recorded.
	Enabled bool `toml:"enabled" json:"enabled" yaml:"enabled"`

	// Path is the path to the journal database file.
	Path string `toml:"path" json:"path" yaml:"path"`

	// BusyTimeoutMs is the SQLite busy timeout in milliseconds.
	BusyTimeoutMs int `toml:"busy_timeout_ms" json:"busy_timeout_ms" yaml:"busy_timeout_ms"`
}

// LoggingConfig holds logging configuration.
type LoggingConfig struct {
	// Level is the minimum log level: "debug", "info", "warn", "error".
	Level string `toml:"level" json:"level" yaml:"level"`

	// Format is the log output format: "text" or "json".
	Format string `toml:"format" json:"format" yaml:"format"`

	// Output is where logs go: "stderr", "stdout", or a file path.
	Output string `toml:"output" json:"output" yaml:"output"`
}

// WatchConfig holds batch watch mode configuration.
type WatchConfig struct {
	// InputDir is the directory watched for incoming carrier images.
	InputDir string `toml:"input_dir" json:"input_dir" yaml:"input_dir"`

	// OutputDir is where processed images are written.
	OutputDir string `toml:"output_dir" json:"output_dir" yaml:"output_dir"`

	// IncludePatterns are glob patterns for files to pick up.
	IncludePatterns []string `toml:"include_patterns" json:"include_patterns" yaml:"include_patterns"`

	// DebounceMs is how long a file must be stable before processing.
	DebounceMs int `toml:"debounce_ms" json:"debounce_ms" yaml:"debounce_ms"`
}

// DefaultConfig returns a configuration with sensible defaults.
func DefaultConfig() *Config {
	dir := PngerDir()

	return &Config{
		Defaults: DefaultsConfig{
			Pattern:    "random",
			BitIndex:   0,
			SeedSource: "auto",
			SaltLength: seed.DefaultSaltLen,
		},
		Obfuscation: ObfuscationConfig{
			Enabled: true,
		},
		Journal: JournalConfig{
			Enabled:       false,
			Path:          filepath.Join(dir, "journal.db"),
			BusyTimeoutMs: 5000,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
			Output: "stderr",
		},
		Watch: WatchConfig{
			IncludePatterns: []string{"*.png", "*.bmp"},
			DebounceMs:      500,
		},
	}
}

// PngerDir returns the base data directory, honoring the PNGER_DATA_DIR
// environment override.
func PngerDir() string {
	if envDir := os.Getenv("PNGER_DATA_DIR"); envDir != "" {
		return envDir
	}
	if base, err := os.UserConfigDir(); err == nil {
		return filepath.Join(base, "pnger")
	}
	return filepath.Join(os.TempDir(), "pnger")
}

// ConfigPath returns the default configuration file path.
func ConfigPath() string {
	return filepath.Join(PngerDir(), "config.toml")
}

// Load reads configuration from the specified path.
// If the file doesn't exist, returns default configuration.
// Supports TOML, JSON, and YAML formats based on file extension.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	if path == "" {
		path = ConfigPath()
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			cfg.ApplyEnvOverrides()
			return cfg, nil
		}
		return nil, fmt.Errorf("read config file: %w", err)
	}

	switch filepath.Ext(path) {
	case ".toml":
		if _, err := toml.Decode(string(data), cfg); err != nil {
			return nil, fmt.Errorf("decode TOML: %w", err)
		}
	case ".json":
		if err := json.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("decode JSON: %w", err)
		}
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("decode YAML: %w", err)
		}
	default:
		// Try TOML by default
		if _, err := toml.Decode(string(data), cfg); err != nil {
			return nil, fmt.Errorf("decode config (unknown format): %w", err)
		}
	}

	cfg.ApplyEnvOverrides()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}

	return cfg, nil
}

// ApplyEnvOverrides applies environment variable overrides to the
// configuration. Variables are prefixed with PNGER_.
func (c *Config) ApplyEnvOverrides() {
	if v := os.Getenv("PNGER_LOG_LEVEL"); v != "" {
		c.Logging.Level = v
	}
	if v := os.Getenv("PNGER_LOG_FORMAT"); v != "" {
		c.Logging.Format = v
	}
	if v := os.Getenv("PNGER_JOURNAL_PATH"); v != "" {
		c.Journal.Path = v
	}
	// Secrets come from the environment so they never land in config files.
	if v := os.Getenv("PNGER_OBFUSCATION_KEY"); v != "" {
		c.Obfuscation.Key = v
	}
}

// Validate checks the configuration for errors.
func (c *Config) Validate() error {
	switch c.Defaults.Pattern {
	case "linear", "random":
	default:
		return fmt.Errorf("defaults.pattern: unknown pattern %q", c.Defaults.Pattern)
	}

	if c.Defaults.BitIndex < 0 || c.Defaults.BitIndex > 7 {
		return fmt.Errorf("defaults.bit_index: %d out of range 0..7", c.Defaults.BitIndex)
	}

	switch c.Defaults.SeedSource {
	case "auto", "password", "manual":
	default:
		return fmt.Errorf("defaults.seed_source: unknown source %q", c.Defaults.SeedSource)
	}

	if c.Defaults.SaltLength < seed.MinSaltLen {
		return fmt.Errorf("defaults.salt_length: %d below minimum %d", c.Defaults.SaltLength, seed.MinSaltLen)
	}

	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("logging.level: unknown level %q", c.Logging.Level)
	}

	switch c.Logging.Format {
	case "text", "json":
	default:
		return fmt.Errorf("logging.format: unknown format %q", c.Logging.Format)
	}

	if c.Watch.DebounceMs < 0 {
		return fmt.Errorf("watch.debounce_ms: must not be negative")
	}

	if c.Journal.Enabled && c.Journal.Path == "" {
		return fmt.Errorf("journal.path: required when journal is enabled")
	}

	return nil
}

// Save writes the configuration to path as TOML.
func Save(cfg *Config, path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return fmt.Errorf("create config directory: %w", err)
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create config file: %w", err)
	}
	defer f.Close()

	if err := toml.NewEncoder(f).Encode(cfg); err != nil {
		return fmt.Errorf("encode TOML: %w", err)
	}
	return nil
}
