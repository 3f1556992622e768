package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	EnvConfigDir = "TASKPILOT_CONFIG_DIR"
	EnvDB        = "TASKPILOT_DB"
	EnvLogLevel  = "TASKPILOT_LOG_LEVEL"
	EnvFormat    = "TASKPILOT_FORMAT"

	fileName = "config.yaml"
)

type Config struct {
	// Database is the SQLite file. Relative paths resolve against the config dir.
	Database string `yaml:"database,omitempty"`
	LogLevel string `yaml:"logLevel,omitempty"`
	// LogFile receives TUI logs, which cannot go to the terminal.
	LogFile string `yaml:"logFile,omitempty"`
	// Format is the default CLI output format (json|edn).
	Format string `yaml:"format,omitempty"`

	Reorder ReorderConfig `yaml:"reorder,omitempty"`
	TUI     TUIConfig     `yaml:"tui,omitempty"`

	dir string
}

type ReorderConfig struct {
	// PersistTimeout bounds each reorder write, as a Go duration ("10s").
	PersistTimeout string `yaml:"persistTimeout,omitempty"`
}

type TUIConfig struct {
	// Glyphs selects the glyph set ("unicode", "ascii").
	Glyphs string `yaml:"glyphs,omitempty"`
}

func Dir() (string, error) {
	// Test/advanced override (keeps unit tests from touching ~/.taskpilot).
	if v := strings.TrimSpace(os.Getenv(EnvConfigDir)); v != "" {
		return v, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".taskpilot"), nil
}

// DefaultPath is config.yaml inside Dir.
func DefaultPath() (string, error) {
	dir, err := Dir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, fileName), nil
}

// Load reads the config file at path (DefaultPath when empty) and applies environment
// overrides. A missing file yields defaults.
func Load(path string) (*Config, error) {
	if strings.TrimSpace(path) == "" {
		p, err := DefaultPath()
		if err != nil {
			return nil, err
		}
		path = p
	}
	cfg := &Config{dir: filepath.Dir(path)}
	b, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(b, cfg); err != nil {
			return nil, fmt.Errorf("parse %s: %w", path, err)
		}
	case errors.Is(err, os.ErrNotExist):
	default:
		return nil, err
	}
	cfg.applyEnv()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return cfg, nil
}

func (c *Config) applyEnv() {
	if v := strings.TrimSpace(os.Getenv(EnvDB)); v != "" {
		c.Database = v
	}
	if v := strings.TrimSpace(os.Getenv(EnvLogLevel)); v != "" {
		c.LogLevel = v
	}
	if v := strings.TrimSpace(os.Getenv(EnvFormat)); v != "" {
		c.Format = v
	}
}

func (c *Config) Validate() error {
	if c.Reorder.PersistTimeout != "" {
		d, err := time.ParseDuration(c.Reorder.PersistTimeout)
		if err != nil {
			return fmt.Errorf("reorder.persistTimeout: %w", err)
		}
		if d <= 0 {
			return fmt.Errorf("reorder.persistTimeout must be positive, got %s", d)
		}
	}
	switch strings.ToLower(strings.TrimSpace(c.Format)) {
	case "", "json", "edn":
	default:
		return fmt.Errorf("format: %q (expected json|edn)", c.Format)
	}
	switch strings.ToLower(strings.TrimSpace(c.TUI.Glyphs)) {
	case "", "unicode", "ascii":
	default:
		return fmt.Errorf("tui.glyphs: %q (expected unicode|ascii)", c.TUI.Glyphs)
	}
	return nil
}

// Dir is the directory the config was loaded from.
func (c *Config) Dir() string { return c.dir }

func (c *Config) resolve(p, fallback string) string {
	p = strings.TrimSpace(p)
	if p == "" {
		p = fallback
	}
	if p == ":memory:" || filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(c.dir, p)
}

func (c *Config) DatabasePath() string { return c.resolve(c.Database, "taskpilot.db") }

func (c *Config) LogFilePath() string { return c.resolve(c.LogFile, "taskpilot.log") }

// PersistTimeout is zero when unset, which the reorder coordinator treats as its default.
func (c *Config) PersistTimeout() time.Duration {
	d, err := time.ParseDuration(c.Reorder.PersistTimeout)
	if err != nil {
		return 0
	}
	return d
}

// Save writes cfg to path atomically, keeping the previous file as path.bak.
func Save(path string, cfg *Config) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	b, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	if prev, err := os.ReadFile(path); err == nil && len(prev) > 0 {
		_ = atomicWriteFile(dir, fileName+".bak.*.tmp", path+".bak", prev, 0o644)
	}
	return atomicWriteFile(dir, fileName+".*.tmp", path, b, 0o600)
}

func atomicWriteFile(dir, tmpPattern, path string, b []byte, perm os.FileMode) error {
	f, err := os.CreateTemp(dir, tmpPattern)
	if err != nil {
		return err
	}
	tmp := f.Name()
	defer func() { _ = os.Remove(tmp) }()
	if _, err := f.Write(b); err != nil {
		_ = f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return err
	}
	_ = os.Chmod(tmp, perm)
	return os.Rename(tmp, path)
}
