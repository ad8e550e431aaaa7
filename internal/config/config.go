// Package config provides the configuration of a benchmark run.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/arkilian/ndxbench/internal/adapter"
	"github.com/arkilian/ndxbench/internal/analyzer"
	"github.com/arkilian/ndxbench/internal/dialect"
	berrors "github.com/arkilian/ndxbench/internal/errors"
	"github.com/arkilian/ndxbench/internal/storage"
)

// EnvPrefix prefixes every environment variable read by LoadFromEnv.
const EnvPrefix = "NDXBENCH_"

// Config holds the configuration of one benchmark run.
type Config struct {
	// Backend is the database under test: postgres, mysql, or sqlite
	Backend string `json:"backend" yaml:"backend"`

	// Database connection target
	Database DatabaseConfig `json:"database" yaml:"database"`

	// Run parameters
	Run RunConfig `json:"run" yaml:"run"`

	// Export configuration
	Export ExportConfig `json:"export" yaml:"export"`

	// Publish configuration
	Publish PublishConfig `json:"publish" yaml:"publish"`
}

// DatabaseConfig selects the connection target.
type DatabaseConfig struct {
	Name     string `json:"name" yaml:"name"`
	User     string `json:"user" yaml:"user"`
	Password string `json:"password" yaml:"password"`
	Host     string `json:"host" yaml:"host"`
	Port     int    `json:"port" yaml:"port"`

	// Schema is the postgres search_path
	Schema string `json:"schema" yaml:"schema"`

	// Path is the sqlite database file
	Path string `json:"path" yaml:"path"`

	// SSLMode is the postgres sslmode
	SSLMode string `json:"sslmode" yaml:"sslmode"`
}

// RunConfig holds the analysis parameters.
type RunConfig struct {
	// Output is the report file path
	Output string `json:"output" yaml:"output"`

	Start     int `json:"start" yaml:"start"`
	Stop      int `json:"stop" yaml:"stop"`
	StopSmall int `json:"stop_small" yaml:"stop_small"`
	NumPoints int `json:"num_points" yaml:"num_points"`

	Spatial   bool `json:"spatial" yaml:"spatial"`
	IDs       bool `json:"ids" yaml:"ids"`
	FullSweep bool `json:"full_sweep" yaml:"full_sweep"`
	FetchRows bool `json:"fetch_rows" yaml:"fetch_rows"`

	// Seed seeds synthetic data; 0 picks a time-based seed
	Seed int64 `json:"seed" yaml:"seed"`
}

// ExportConfig holds flat export configuration.
type ExportConfig struct {
	// CSV is the CSV output path; empty disables the export
	CSV string `json:"csv" yaml:"csv"`
}

// PublishConfig holds report publishing configuration.
type PublishConfig struct {
	// Type is the storage type: none, local, s3
	Type string `json:"type" yaml:"type"`

	// Path is the local storage path (for local type)
	Path string `json:"path" yaml:"path"`

	// Prefix is prepended to every object key
	Prefix string `json:"prefix" yaml:"prefix"`

	// Compress uploads snappy-compressed reports
	Compress bool `json:"compress" yaml:"compress"`

	// S3 configuration (for s3 type)
	S3 S3Config `json:"s3" yaml:"s3"`
}

// S3Config holds S3 storage configuration.
type S3Config struct {
	// Bucket is the S3 bucket name
	Bucket string `json:"bucket" yaml:"bucket"`

	// Region is the AWS region
	Region string `json:"region" yaml:"region"`

	// Endpoint is the S3 endpoint (for S3-compatible storage)
	Endpoint string `json:"endpoint" yaml:"endpoint"`

	// UsePathStyle enables path-style addressing (required for MinIO)
	UsePathStyle bool `json:"use_path_style" yaml:"use_path_style"`
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	p := analyzer.DefaultParams()
	return &Config{
		Backend: dialect.Postgres,
		Run: RunConfig{
			Output:    p.Output,
			Start:     p.Start,
			Stop:      p.Stop,
			StopSmall: p.StopSmall,
			NumPoints: p.NumPoints,
		},
		Publish: PublishConfig{
			Type:   storage.TypeNone,
			Prefix: "reports",
		},
	}
}

// Resolve canonicalizes the backend name and fills path defaults.
func (c *Config) Resolve() {
	if d, err := dialect.For(c.Backend); err == nil {
		c.Backend = d.Name
	}
	c.Backend = strings.ToLower(c.Backend)

	if c.Publish.Type == "" {
		c.Publish.Type = storage.TypeNone
	}
	if c.Publish.Type == storage.TypeLocal && c.Publish.Path == "" {
		c.Publish.Path = filepath.Join("data", "ndxbench", "published")
	}
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	d, err := dialect.For(c.Backend)
	if err != nil {
		return err
	}

	if d.Name == dialect.SQLite && c.Database.Path == "" {
		return invalid("database.path is required for sqlite")
	}
	if c.Database.Port < 0 || c.Database.Port > 65535 {
		return invalid(fmt.Sprintf("database.port out of range: %d", c.Database.Port))
	}

	if err := c.RunParams().Validate(); err != nil {
		return err
	}
	if c.Run.Output == "" {
		return berrors.NewValidationError(berrors.CodeInvalidRunParams, "run.output is required")
	}
	if c.Run.Spatial && !d.SupportsSpatial() {
		return berrors.NewUnsupportedError(fmt.Sprintf("%s does not support spatial tests", d.Name))
	}

	return c.ValidatePublish()
}

// ValidatePublish validates only the publish section.
func (c *Config) ValidatePublish() error {
	switch c.Publish.Type {
	case storage.TypeNone, storage.TypeLocal:
	case storage.TypeS3:
		if c.Publish.S3.Bucket == "" {
			return invalid("publish.s3.bucket is required when publish type is s3")
		}
	default:
		return invalid(fmt.Sprintf("invalid publish type: %s (must be none, local, or s3)", c.Publish.Type))
	}
	return nil
}

func invalid(msg string) error {
	return berrors.NewValidationError(berrors.CodeInvalidConfig, msg)
}

// RunParams returns the analyzer parameters.
func (c *Config) RunParams() analyzer.Params {
	return analyzer.Params{
		Output:    c.Run.Output,
		Start:     c.Run.Start,
		Stop:      c.Run.Stop,
		StopSmall: c.Run.StopSmall,
		NumPoints: c.Run.NumPoints,
		Spatial:   c.Run.Spatial,
		IDs:       c.Run.IDs,
		FullSweep: c.Run.FullSweep,
		FetchRows: c.Run.FetchRows,
	}
}

// AdapterOptions returns the connection options.
func (c *Config) AdapterOptions() adapter.Options {
	return adapter.Options{
		Host:     c.Database.Host,
		Port:     c.Database.Port,
		Name:     c.Database.Name,
		User:     c.Database.User,
		Password: c.Database.Password,
		Schema:   c.Database.Schema,
		SSLMode:  c.Database.SSLMode,
		Path:     c.Database.Path,
		Seed:     c.Run.Seed,
	}
}

// StorageOptions returns the publishing storage options.
func (c *Config) StorageOptions() storage.Options {
	return storage.Options{
		Type:   c.Publish.Type,
		Path:   c.Publish.Path,
		Bucket: c.Publish.S3.Bucket,
		S3: storage.S3Config{
			Region:       c.Publish.S3.Region,
			Endpoint:     c.Publish.S3.Endpoint,
			UsePathStyle: c.Publish.S3.UsePathStyle,
		},
	}
}

// LoadFromFile loads configuration from a YAML or JSON file over the
// defaults.
func LoadFromFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, invalid(fmt.Sprintf("failed to read config file: %v", err))
	}

	cfg := DefaultConfig()

	ext := strings.ToLower(filepath.Ext(path))
	switch ext {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, invalid(fmt.Sprintf("failed to parse YAML config: %v", err))
		}
	case ".json":
		if err := json.Unmarshal(data, cfg); err != nil {
			return nil, invalid(fmt.Sprintf("failed to parse JSON config: %v", err))
		}
	default:
		return nil, invalid(fmt.Sprintf("unsupported config file format: %s", ext))
	}

	return cfg, nil
}

// LoadFromEnv loads configuration from environment variables.
// Environment variables use the NDXBENCH_ prefix.
func LoadFromEnv(cfg *Config) {
	str := func(name string, dst *string) {
		if v := os.Getenv(EnvPrefix + name); v != "" {
			*dst = v
		}
	}
	num := func(name string, dst *int) {
		if v := os.Getenv(EnvPrefix + name); v != "" {
			fmt.Sscanf(v, "%d", dst)
		}
	}
	flag := func(name string, dst *bool) {
		if v := os.Getenv(EnvPrefix + name); v != "" {
			*dst = v == "true" || v == "1"
		}
	}

	str("BACKEND", &cfg.Backend)

	// Database configuration
	str("DB_NAME", &cfg.Database.Name)
	str("DB_USER", &cfg.Database.User)
	str("DB_PASSWORD", &cfg.Database.Password)
	str("DB_HOST", &cfg.Database.Host)
	num("DB_PORT", &cfg.Database.Port)
	str("DB_SCHEMA", &cfg.Database.Schema)
	str("DB_PATH", &cfg.Database.Path)
	str("DB_SSLMODE", &cfg.Database.SSLMode)

	// Run configuration
	str("OUTPUT", &cfg.Run.Output)
	num("START", &cfg.Run.Start)
	num("STOP", &cfg.Run.Stop)
	num("STOP_SMALL", &cfg.Run.StopSmall)
	num("NUM_POINTS", &cfg.Run.NumPoints)
	flag("SPATIAL", &cfg.Run.Spatial)
	flag("IDS", &cfg.Run.IDs)
	flag("FULL_SWEEP", &cfg.Run.FullSweep)
	flag("FETCH_ROWS", &cfg.Run.FetchRows)
	if v := os.Getenv(EnvPrefix + "SEED"); v != "" {
		fmt.Sscanf(v, "%d", &cfg.Run.Seed)
	}

	str("EXPORT_CSV", &cfg.Export.CSV)

	// Publish configuration
	str("PUBLISH_TYPE", &cfg.Publish.Type)
	str("PUBLISH_PATH", &cfg.Publish.Path)
	str("PUBLISH_PREFIX", &cfg.Publish.Prefix)
	flag("PUBLISH_COMPRESS", &cfg.Publish.Compress)
	str("S3_BUCKET", &cfg.Publish.S3.Bucket)
	str("S3_REGION", &cfg.Publish.S3.Region)
	str("S3_ENDPOINT", &cfg.Publish.S3.Endpoint)
	flag("S3_USE_PATH_STYLE", &cfg.Publish.S3.UsePathStyle)
}

// EnsureDirectories creates the parent directories of every output path.
func (c *Config) EnsureDirectories() error {
	dirs := []string{
		filepath.Dir(c.Run.Output),
	}
	if c.Export.CSV != "" {
		dirs = append(dirs, filepath.Dir(c.Export.CSV))
	}
	if c.Publish.Type == storage.TypeLocal {
		dirs = append(dirs, c.Publish.Path)
	}

	for _, dir := range dirs {
		if dir == "" || dir == "." {
			continue
		}
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create directory %s: %w", dir, err)
		}
	}

	return nil
}
