// Package config loads glyph configuration from .glyph/config.yaml.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// ConfigFileName is the name of the glyph configuration file.
const ConfigFileName = "config.yaml"

// ConfigDirName is the glyph state directory.
const ConfigDirName = ".glyph"

// DBFileName is the default index database inside the state directory.
const DBFileName = "idx.sqlite"

// MirrorDirName is the default rewrite mirror inside the state directory.
const MirrorDirName = "mirror"

// Config holds all glyph configuration.
type Config struct {
	Scan     ScanConfig     `yaml:"scan"`
	Retrieve RetrieveConfig `yaml:"retrieve"`
}

// ScanConfig holds repo-scan defaults.
type ScanConfig struct {
	Extensions []string `yaml:"extensions"`
	Ignore     []string `yaml:"ignore"`
	CFlags     []string `yaml:"cflags"`
}

// RetrieveConfig holds retrieval defaults.
type RetrieveConfig struct {
	Seeds    int `yaml:"seeds"`
	Hops     int `yaml:"hops"`
	MaxChars int `yaml:"max_chars"`
}

// ErrConfigNotFound is returned when no state directory can be located.
var ErrConfigNotFound = errors.New("config not found")

// DefaultConfig returns the built-in defaults.
func DefaultConfig() *Config {
	return &Config{
		Scan: ScanConfig{
			Extensions: []string{".c", ".h", ".cc", ".cpp", ".cxx", ".hpp", ".hh", ".hxx"},
			Ignore:     []string{".git", ".glyph", "build"},
		},
		Retrieve: RetrieveConfig{
			Seeds:    6,
			Hops:     1,
			MaxChars: 14000,
		},
	}
}

// Load reads config starting from workDir, walking up to find the
// .glyph directory. Missing config reads as defaults.
func Load(workDir string) (*Config, error) {
	dir, err := FindConfigDir(workDir)
	if err != nil {
		return DefaultConfig(), nil
	}
	return LoadFromPath(filepath.Join(dir, ConfigFileName))
}

// LoadFromPath reads config from a specific file, merged over defaults.
func LoadFromPath(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return DefaultConfig(), nil
		}
		return nil, fmt.Errorf("reading config file: %w", err)
	}
	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}
	return cfg, nil
}

// FindConfigDir locates the .glyph directory by walking up from startDir.
func FindConfigDir(startDir string) (string, error) {
	abs, err := filepath.Abs(startDir)
	if err != nil {
		return "", fmt.Errorf("resolving path: %w", err)
	}
	cur := abs
	for {
		dir := filepath.Join(cur, ConfigDirName)
		if info, err := os.Stat(dir); err == nil && info.IsDir() {
			return dir, nil
		}
		parent := filepath.Dir(cur)
		if parent == cur {
			return "", ErrConfigNotFound
		}
		cur = parent
	}
}

// EnsureConfigDir creates the .glyph directory under workDir.
func EnsureConfigDir(workDir string) (string, error) {
	abs, err := filepath.Abs(workDir)
	if err != nil {
		return "", fmt.Errorf("resolving path: %w", err)
	}
	dir := filepath.Join(abs, ConfigDirName)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("creating config directory: %w", err)
	}
	return dir, nil
}

// DefaultDBPath returns the index path under workDir's state directory.
func DefaultDBPath(workDir string) string {
	return filepath.Join(workDir, ConfigDirName, DBFileName)
}
