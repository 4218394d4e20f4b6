// Package config loads the project configuration file, .winter.toml.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/BurntSushi/toml"

	"winter/internal/diag"
	"winter/internal/diagfmt"
	"winter/internal/lint"
)

// FileName is the configuration file looked up from the working directory.
const FileName = ".winter.toml"

// Config mirrors .winter.toml. Zero values mean "not set"; command-line
// flags override whatever is set here.
type Config struct {
	// Path is the file the config was read from, empty for the default config.
	Path string `toml:"-"`
	// Root is the directory relative paths are resolved against.
	Root string `toml:"-"`

	Lint  LintConfig  `toml:"lint"`
	Rules RulesConfig `toml:"rules"`
	Store StoreConfig `toml:"store"`
	Cache CacheConfig `toml:"cache"`
	Watch WatchConfig `toml:"watch"`
}

type LintConfig struct {
	FailOn         string   `toml:"fail_on"`
	Format         string   `toml:"format"`
	Categories     []string `toml:"categories"`
	Exclude        []string `toml:"exclude"`
	Jobs           int      `toml:"jobs"`
	MaxDiagnostics int      `toml:"max_diagnostics"`
	// Baseline is a file of accepted findings that are not reported again.
	Baseline string `toml:"baseline"`
}

type RulesConfig struct {
	Disable  []string          `toml:"disable"`
	Severity map[string]string `toml:"severity"`
	// Paths lists YAML rule files or directories.
	Paths []string `toml:"paths"`
}

type StoreConfig struct {
	Path string `toml:"path"`
}

type CacheConfig struct {
	Enabled bool   `toml:"enabled"`
	Dir     string `toml:"dir"`
}

type WatchConfig struct {
	DebounceMS int `toml:"debounce_ms"`
}

// Default returns the configuration used when no file is found.
func Default(root string) *Config {
	return &Config{Root: root}
}

// Find walks up from startDir to locate .winter.toml.
func Find(startDir string) (path string, ok bool, err error) {
	if startDir == "" {
		startDir = "."
	}
	dir, err := filepath.Abs(startDir)
	if err != nil {
		return "", false, fmt.Errorf("failed to resolve start directory: %w", err)
	}
	for {
		candidate := filepath.Join(dir, FileName)
		if _, err := os.Stat(candidate); err == nil {
			return candidate, true, nil
		} else if !errors.Is(err, os.ErrNotExist) {
			return "", false, fmt.Errorf("failed to stat %q: %w", candidate, err)
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}
	return "", false, nil
}

// Discover finds and loads the config above startDir. Without a file it
// returns the default config rooted at startDir and ok == false.
func Discover(startDir string) (cfg *Config, ok bool, err error) {
	path, ok, err := Find(startDir)
	if err != nil {
		return nil, false, err
	}
	if !ok {
		abs, err := filepath.Abs(startDir)
		if err != nil {
			return nil, false, err
		}
		return Default(abs), false, nil
	}
	cfg, err = Load(path)
	return cfg, err == nil, err
}

// Load decodes and validates one config file. Unknown keys are errors.
func Load(path string) (*Config, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, err
	}
	cfg := Default(filepath.Dir(abs))
	cfg.Path = abs
	meta, err := toml.DecodeFile(abs, cfg)
	if err != nil {
		return nil, fmt.Errorf("%s: failed to parse TOML: %w", path, err)
	}
	if undecoded := meta.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, len(undecoded))
		for i, k := range undecoded {
			keys[i] = k.String()
		}
		return nil, fmt.Errorf("%s: unknown key(s): %s", path, strings.Join(keys, ", "))
	}
	if meta.IsDefined("cache", "dir") && !meta.IsDefined("cache", "enabled") {
		cfg.Cache.Enabled = true
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return cfg, nil
}

// Validate checks values that TOML typing cannot.
func (c *Config) Validate() error {
	if _, err := lint.ParseFailOn(c.Lint.FailOn); err != nil {
		return fmt.Errorf("[lint].fail_on: %w", err)
	}
	if c.Lint.Format != "" {
		if _, err := diagfmt.ParseFormat(c.Lint.Format); err != nil {
			return fmt.Errorf("[lint].format: %w", err)
		}
	}
	if c.Lint.Jobs < 0 {
		return fmt.Errorf("[lint].jobs must not be negative")
	}
	if c.Lint.MaxDiagnostics < 0 {
		return fmt.Errorf("[lint].max_diagnostics must not be negative")
	}
	if _, err := c.SeverityOverrides(); err != nil {
		return err
	}
	if c.Watch.DebounceMS < 0 {
		return fmt.Errorf("[watch].debounce_ms must not be negative")
	}
	return nil
}

// FailOn returns the configured threshold, error when unset.
func (c *Config) FailOn() lint.FailOn {
	f, _ := lint.ParseFailOn(c.Lint.FailOn)
	return f
}

// SeverityOverrides parses [rules.severity].
func (c *Config) SeverityOverrides() (map[string]diag.Severity, error) {
	out := make(map[string]diag.Severity, len(c.Rules.Severity))
	for id, s := range c.Rules.Severity {
		sev, err := diag.ParseSeverity(s)
		if err != nil {
			return nil, fmt.Errorf("[rules.severity].%s: %w", id, err)
		}
		out[id] = sev
	}
	return out, nil
}

// RulePaths returns [rules].paths resolved against Root.
func (c *Config) RulePaths() []string {
	out := make([]string, len(c.Rules.Paths))
	for i, p := range c.Rules.Paths {
		out[i] = c.Resolve(p)
	}
	return out
}

// BaselinePath returns the resolved baseline file, empty when unset.
func (c *Config) BaselinePath() string {
	if c.Lint.Baseline == "" {
		return ""
	}
	return c.Resolve(c.Lint.Baseline)
}

// StorePath returns the resolved store path, empty when unset.
func (c *Config) StorePath() string {
	if c.Store.Path == "" {
		return ""
	}
	return c.Resolve(c.Store.Path)
}

// CacheDir returns the resolved cache directory; empty selects the user cache.
func (c *Config) CacheDir() string {
	if c.Cache.Dir == "" {
		return ""
	}
	return c.Resolve(c.Cache.Dir)
}

// Debounce returns the watch window, zero when unset.
func (c *Config) Debounce() time.Duration {
	return time.Duration(c.Watch.DebounceMS) * time.Millisecond
}

// Resolve makes p absolute relative to Root. A leading ~ expands to the home directory.
func (c *Config) Resolve(p string) string {
	if rest, ok := strings.CutPrefix(p, "~/"); ok {
		if home, err := os.UserHomeDir(); err == nil {
			return filepath.Join(home, filepath.FromSlash(rest))
		}
	}
	p = filepath.FromSlash(p)
	if filepath.IsAbs(p) || c.Root == "" {
		return filepath.Clean(p)
	}
	return filepath.Join(c.Root, p)
}
