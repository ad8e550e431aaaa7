package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	berrors "github.com/arkilian/ndxbench/internal/errors"
	"github.com/arkilian/ndxbench/internal/storage"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Resolve()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("default config should validate: %v", err)
	}

	p := cfg.RunParams()
	if p.Start != 100 || p.Stop != 1000000 || p.StopSmall != 10000 || p.NumPoints != 10 {
		t.Errorf("unexpected default run params %+v", p)
	}
	if p.Spatial || p.IDs || p.FullSweep || p.FetchRows {
		t.Errorf("feature flags should default off: %+v", p)
	}
}

func TestLoadFromFile_YAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bench.yaml")
	content := `
backend: PostgreSQL
database:
  name: dbfinal_postgres
  user: dbfinal
  password: password
  schema: testing
run:
  output: analyses/analysis_pg.json
  spatial: true
  ids: true
publish:
  type: s3
  compress: true
  s3:
    bucket: bench-results
    use_path_style: true
`
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("failed to write config: %v", err)
	}

	cfg, err := LoadFromFile(path)
	if err != nil {
		t.Fatalf("LoadFromFile failed: %v", err)
	}
	cfg.Resolve()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("Validate failed: %v", err)
	}

	if cfg.Backend != "postgres" {
		t.Errorf("got backend %q, want postgres", cfg.Backend)
	}
	if cfg.Database.Schema != "testing" || cfg.AdapterOptions().Schema != "testing" {
		t.Errorf("schema not loaded: %+v", cfg.Database)
	}
	if !cfg.Run.Spatial || !cfg.Run.IDs {
		t.Errorf("flags not loaded: %+v", cfg.Run)
	}
	// Unset fields keep their defaults.
	if cfg.Run.NumPoints != 10 || cfg.Run.Stop != 1000000 {
		t.Errorf("defaults lost: %+v", cfg.Run)
	}

	opts := cfg.StorageOptions()
	if opts.Type != storage.TypeS3 || opts.Bucket != "bench-results" || !opts.S3.UsePathStyle {
		t.Errorf("unexpected storage options %+v", opts)
	}
}

func TestLoadFromFile_JSON(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bench.json")
	content := `{"backend": "sqlite", "database": {"path": "bench.db"}, "run": {"num_points": 4, "full_sweep": true}}`
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("failed to write config: %v", err)
	}

	cfg, err := LoadFromFile(path)
	if err != nil {
		t.Fatalf("LoadFromFile failed: %v", err)
	}
	if cfg.Database.Path != "bench.db" || cfg.Run.NumPoints != 4 || !cfg.Run.FullSweep {
		t.Errorf("unexpected config %+v", cfg)
	}
}

func TestLoadFromFile_Errors(t *testing.T) {
	dir := t.TempDir()

	if _, err := LoadFromFile(filepath.Join(dir, "missing.yaml")); berrors.GetCode(err) != berrors.CodeInvalidConfig {
		t.Errorf("expected invalid config for missing file, got %v", err)
	}

	toml := filepath.Join(dir, "bench.toml")
	if err := os.WriteFile(toml, []byte("backend = 'pg'"), 0644); err != nil {
		t.Fatalf("failed to write config: %v", err)
	}
	if _, err := LoadFromFile(toml); berrors.GetCode(err) != berrors.CodeInvalidConfig {
		t.Errorf("expected invalid config for unsupported format, got %v", err)
	}

	bad := filepath.Join(dir, "bad.yaml")
	if err := os.WriteFile(bad, []byte("run: [unclosed"), 0644); err != nil {
		t.Fatalf("failed to write config: %v", err)
	}
	if _, err := LoadFromFile(bad); berrors.GetCode(err) != berrors.CodeInvalidConfig {
		t.Errorf("expected invalid config for malformed yaml, got %v", err)
	}
}

func TestLoadFromEnv(t *testing.T) {
	t.Setenv("NDXBENCH_BACKEND", "mysql")
	t.Setenv("NDXBENCH_DB_NAME", "dbfinal_mysql")
	t.Setenv("NDXBENCH_DB_PORT", "3307")
	t.Setenv("NDXBENCH_NUM_POINTS", "5")
	t.Setenv("NDXBENCH_SPATIAL", "1")
	t.Setenv("NDXBENCH_IDS", "false")
	t.Setenv("NDXBENCH_SEED", "42")
	t.Setenv("NDXBENCH_PUBLISH_TYPE", "local")
	t.Setenv("NDXBENCH_PUBLISH_COMPRESS", "true")

	cfg := DefaultConfig()
	cfg.Run.IDs = true
	LoadFromEnv(cfg)

	if cfg.Backend != "mysql" || cfg.Database.Name != "dbfinal_mysql" || cfg.Database.Port != 3307 {
		t.Errorf("database settings not loaded: %s %+v", cfg.Backend, cfg.Database)
	}
	if cfg.Run.NumPoints != 5 || !cfg.Run.Spatial || cfg.Run.IDs || cfg.Run.Seed != 42 {
		t.Errorf("run settings not loaded: %+v", cfg.Run)
	}
	if cfg.AdapterOptions().Seed != 42 {
		t.Error("seed should reach the adapter options")
	}
	if cfg.Publish.Type != storage.TypeLocal || !cfg.Publish.Compress {
		t.Errorf("publish settings not loaded: %+v", cfg.Publish)
	}

	cfg.Resolve()
	if cfg.Publish.Path == "" {
		t.Error("local publish path should get a default")
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		modify func(*Config)
		code   string
	}{
		{"unknown backend", func(c *Config) { c.Backend = "oracle" }, berrors.CodeInvalidConfig},
		{"sqlite without path", func(c *Config) { c.Backend = "sqlite" }, berrors.CodeInvalidConfig},
		{"bad port", func(c *Config) { c.Database.Port = 70000 }, berrors.CodeInvalidConfig},
		{"zero points", func(c *Config) { c.Run.NumPoints = 0 }, berrors.CodeInvalidRunParams},
		{"stop below start", func(c *Config) { c.Run.Stop = 10 }, berrors.CodeInvalidRunParams},
		{"no output", func(c *Config) { c.Run.Output = "" }, berrors.CodeInvalidRunParams},
		{"s3 without bucket", func(c *Config) { c.Publish.Type = storage.TypeS3 }, berrors.CodeInvalidConfig},
		{"unknown publish type", func(c *Config) { c.Publish.Type = "ftp" }, berrors.CodeInvalidConfig},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.modify(cfg)
			if got := berrors.GetCode(cfg.Validate()); got != tt.code {
				t.Errorf("got code %q, want %q", got, tt.code)
			}
		})
	}
}

func TestValidate_SpatialOnSQLite(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Backend = "sqlite"
	cfg.Database.Path = "bench.db"
	cfg.Run.Spatial = true

	if err := cfg.Validate(); !errors.Is(err, berrors.ErrUnsupportedOperation) {
		t.Errorf("expected unsupported operation, got %v", err)
	}
}

func TestEnsureDirectories(t *testing.T) {
	dir := t.TempDir()
	cfg := DefaultConfig()
	cfg.Run.Output = filepath.Join(dir, "analyses", "report.json")
	cfg.Export.CSV = filepath.Join(dir, "csv", "report.csv")
	cfg.Publish.Type = storage.TypeLocal
	cfg.Publish.Path = filepath.Join(dir, "published")

	if err := cfg.EnsureDirectories(); err != nil {
		t.Fatalf("EnsureDirectories failed: %v", err)
	}
	for _, sub := range []string{"analyses", "csv", "published"} {
		if info, err := os.Stat(filepath.Join(dir, sub)); err != nil || !info.IsDir() {
			t.Errorf("directory %s not created: %v", sub, err)
		}
	}
}
