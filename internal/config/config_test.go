package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/hallamlab/Genome-announcements/core/errors"
)

func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range []string{EnvDataDir, EnvLogLevel, EnvLogFormat} {
		t.Setenv(k, "")
	}
}

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("Validate() error = %v", err)
	}
	if cfg.MetaCyc.Version != "26.0" || cfg.MetaCyc.Root != "Generalized-Reactions" {
		t.Errorf("MetaCyc = %+v", cfg.MetaCyc)
	}
	if cfg.KEGG.CategoryDepths["M09180"] != 3 {
		t.Errorf("CategoryDepths = %v", cfg.KEGG.CategoryDepths)
	}
}

func TestLoadMissingFile(t *testing.T) {
	clearEnv(t)
	cfg, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if diff := cmp.Diff(DefaultConfig(), cfg); diff != "" {
		t.Errorf("Load() mismatch (-want +got):\n%s", diff)
	}
}

func TestSaveLoadRoundTrip(t *testing.T) {
	clearEnv(t)
	path := filepath.Join(t.TempDir(), "nested", "ontology.yaml")

	cfg := DefaultConfig()
	cfg.DataDir = "/srv/refs"
	cfg.MetaCyc.Version = "27.1"
	cfg.KEGG.CategoryDepths = map[string]int{"M09100": 3}
	cfg.Cache.Enabled = false
	if err := cfg.Save(path); err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	got, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if diff := cmp.Diff(cfg, got); diff != "" {
		t.Errorf("round trip mismatch (-want +got):\n%s", diff)
	}
}

func TestLoadPartialFileKeepsDefaults(t *testing.T) {
	clearEnv(t)
	path := filepath.Join(t.TempDir(), "ontology.yaml")
	if err := os.WriteFile(path, []byte("data_dir: /mnt/ref\nlogging:\n  level: debug\n"), 0644); err != nil {
		t.Fatal(err)
	}
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.DataDir != "/mnt/ref" || cfg.Logging.Level != "debug" {
		t.Errorf("cfg = %+v", cfg)
	}
	if cfg.Logging.Format != "text" || cfg.MetaCyc.Root != "Generalized-Reactions" {
		t.Errorf("defaults lost: %+v", cfg)
	}
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv(EnvDataDir, "/env/data")
	t.Setenv(EnvLogLevel, "warn")
	t.Setenv(EnvLogFormat, "json")

	cfg, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.DataDir != "/env/data" || cfg.Logging.Level != "warn" || cfg.Logging.Format != "json" {
		t.Errorf("env overrides not applied: %+v", cfg)
	}
}

func TestLoadErrors(t *testing.T) {
	clearEnv(t)
	dir := t.TempDir()

	bad := filepath.Join(dir, "bad.yaml")
	if err := os.WriteFile(bad, []byte("data_dir: [unclosed\n"), 0644); err != nil {
		t.Fatal(err)
	}
	if _, err := Load(bad); err == nil {
		t.Error("Load(bad yaml) should fail")
	}

	invalid := filepath.Join(dir, "invalid.yaml")
	if err := os.WriteFile(invalid, []byte("kegg:\n  category_depths:\n    M09100: 0\n"), 0644); err != nil {
		t.Fatal(err)
	}
	if _, err := Load(invalid); !errors.Is(err, errors.ErrInvalidInput) {
		t.Errorf("Load(invalid) error = %v, want ErrInvalidInput", err)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		modify func(*Config)
	}{
		{"empty data dir", func(c *Config) { c.DataDir = "" }},
		{"empty version", func(c *Config) { c.MetaCyc.Version = "" }},
		{"empty root", func(c *Config) { c.MetaCyc.Root = "" }},
		{"negative max loaded", func(c *Config) { c.Cache.MaxLoaded = -1 }},
		{"zero depth", func(c *Config) { c.KEGG.CategoryDepths["M09140"] = 0 }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.modify(cfg)
			var ve *errors.ValidationError
			if err := cfg.Validate(); !errors.As(err, &ve) {
				t.Errorf("Validate() error = %v, want ValidationError", err)
			}
		})
	}
}

func TestPaths(t *testing.T) {
	cfg := DefaultConfig()
	cfg.DataDir = "/ref"
	tests := map[string]string{
		cfg.BritePath():        "/ref/references/brite.json",
		cfg.GeneOntologyPath(): "/ref/hierarchies/gene_ontology.owl",
		cfg.MetaCycDir():       "/ref/hierarchies/meta",
		cfg.MetaCycDataDir():   "/ref/hierarchies/meta/26.0/data",
		cfg.CacheDir():         "/ref/cache",
	}
	for got, want := range tests {
		if got != filepath.FromSlash(want) {
			t.Errorf("path = %s, want %s", got, want)
		}
	}

	opts := cfg.MetaCycOptions()
	if diff := cmp.Diff([]string{"Reactions", "Super-Pathways"}, opts.Blacklist); diff != "" {
		t.Errorf("Blacklist mismatch (-want +got):\n%s", diff)
	}
}
