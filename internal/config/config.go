// Package config loads the YAML configuration of the ontology tool.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"gopkg.in/yaml.v3"

	"github.com/hallamlab/Genome-announcements/core/brite"
	"github.com/hallamlab/Genome-announcements/core/errors"
	"github.com/hallamlab/Genome-announcements/core/metacyc"
)

// Environment variables that override file settings.
const (
	EnvDataDir   = "ONTOLOGY_DATA_DIR"
	EnvLogLevel  = "ONTOLOGY_LOG_LEVEL"
	EnvLogFormat = "ONTOLOGY_LOG_FORMAT"
)

// Config holds all configuration for the ontology tool.
type Config struct {
	// DataDir is the root of the local reference data layout.
	DataDir string `yaml:"data_dir"`

	MetaCyc MetaCycConfig `yaml:"metacyc"`
	KEGG    KEGGConfig    `yaml:"kegg"`
	Cache   CacheConfig   `yaml:"cache"`
	Logging LoggingConfig `yaml:"logging"`
}

// MetaCycConfig selects the MetaCyc release and the part of it kept.
type MetaCycConfig struct {
	Version   string   `yaml:"version"`
	Root      string   `yaml:"root"`
	Blacklist []string `yaml:"blacklist"`
}

// KEGGConfig configures BRITE category aggregation.
type KEGGConfig struct {
	// CategoryDepths maps a top-level group id to its category depth.
	CategoryDepths map[string]int `yaml:"category_depths"`
}

// CacheConfig configures parsed-hierarchy caching.
type CacheConfig struct {
	// Enabled turns the on-disk snapshot store on or off.
	Enabled bool `yaml:"enabled"`
	// MaxLoaded bounds the hierarchies kept in memory (0 = unlimited).
	MaxLoaded int `yaml:"max_loaded"`
}

// LoggingConfig configures the global logger.
type LoggingConfig struct {
	Level  string `yaml:"level"`  // debug, info, warn, error
	Format string `yaml:"format"` // text, json
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	opts := metacyc.DefaultOptions()
	depths := make(map[string]int, len(brite.DefaultCategoryDepths))
	for k, v := range brite.DefaultCategoryDepths {
		depths[k] = v
	}
	return &Config{
		DataDir: "data",
		MetaCyc: MetaCycConfig{
			Version:   metacyc.DefaultVersion,
			Root:      opts.Root,
			Blacklist: opts.Blacklist,
		},
		KEGG: KEGGConfig{
			CategoryDepths: depths,
		},
		Cache: CacheConfig{
			Enabled:   true,
			MaxLoaded: 3,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
		},
	}
}

// Load reads configuration from path. A missing file yields the defaults.
// Environment overrides apply in both cases.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	switch {
	case os.IsNotExist(err):
	case err != nil:
		return nil, fmt.Errorf("failed to read config: %w", err)
	default:
		// yaml.v3 merges into existing maps; a configured map replaces the default.
		depths := cfg.KEGG.CategoryDepths
		cfg.KEGG.CategoryDepths = nil
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config: %w", err)
		}
		if cfg.KEGG.CategoryDepths == nil {
			cfg.KEGG.CategoryDepths = depths
		}
	}

	cfg.applyEnvOverrides()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Save writes the configuration to path as YAML.
func (c *Config) Save(path string) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create config directory: %w", err)
		}
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}
	return nil
}

func (c *Config) applyEnvOverrides() {
	if v := os.Getenv(EnvDataDir); v != "" {
		c.DataDir = v
	}
	if v := os.Getenv(EnvLogLevel); v != "" {
		c.Logging.Level = v
	}
	if v := os.Getenv(EnvLogFormat); v != "" {
		c.Logging.Format = v
	}
}

// Validate checks the configuration for errors.
func (c *Config) Validate() error {
	if c.DataDir == "" {
		return errors.NewValidation("data_dir", "must not be empty")
	}
	if c.MetaCyc.Version == "" {
		return errors.NewValidation("metacyc.version", "must not be empty")
	}
	if c.MetaCyc.Root == "" {
		return errors.NewValidation("metacyc.root", "must not be empty")
	}
	if c.Cache.MaxLoaded < 0 {
		return errors.NewValidation("cache.max_loaded", "must not be negative")
	}
	groups := make([]string, 0, len(c.KEGG.CategoryDepths))
	for g := range c.KEGG.CategoryDepths {
		groups = append(groups, g)
	}
	sort.Strings(groups)
	for _, g := range groups {
		if c.KEGG.CategoryDepths[g] < 1 {
			return errors.NewValidation("kegg.category_depths", fmt.Sprintf("depth of %s must be at least 1", g))
		}
	}
	return nil
}

// MetaCycOptions returns the MetaCyc build options.
func (c *Config) MetaCycOptions() metacyc.Options {
	return metacyc.Options{Root: c.MetaCyc.Root, Blacklist: c.MetaCyc.Blacklist}
}

// BritePath is the location of the BRITE ko00001 JSON export.
func (c *Config) BritePath() string {
	return filepath.Join(c.DataDir, "references", "brite.json")
}

// GeneOntologyPath is the location of the GO OWL release.
func (c *Config) GeneOntologyPath() string {
	return filepath.Join(c.DataDir, "hierarchies", "gene_ontology.owl")
}

// MetaCycDir is the root of the local MetaCyc copy.
func (c *Config) MetaCycDir() string {
	return filepath.Join(c.DataDir, "hierarchies", "meta")
}

// MetaCycDataDir holds classes.dat and pathways.dat of the configured release.
func (c *Config) MetaCycDataDir() string {
	return filepath.Join(c.MetaCycDir(), c.MetaCyc.Version, "data")
}

// CacheDir is the root of the snapshot store.
func (c *Config) CacheDir() string {
	return filepath.Join(c.DataDir, "cache")
}
