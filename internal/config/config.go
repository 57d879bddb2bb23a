// Package config loads run configuration from a YAML file with SANTASIM_*
// environment overrides.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"santasim/internal/blob"
	"santasim/internal/core"
	"santasim/pkg/domain"
	"strconv"

	"gopkg.in/yaml.v3"
)

// Config is the full run configuration.
type Config struct {
	AgeBands domain.AgeBands    `yaml:"age_bands"`
	Ordering domain.Ordering    `yaml:"ordering"`
	Storage  core.StorageConfig `yaml:"storage"`
	Archive  bool               `yaml:"archive"`
	Blob     blob.Config        `yaml:"blob"`
	Log      LogConfig          `yaml:"log"`
	Metrics  MetricsConfig      `yaml:"metrics"`
}

// LogConfig selects the slog handler.
type LogConfig struct {
	Level  string `yaml:"level"`  // debug|info|warn|error
	Format string `yaml:"format"` // text|json
}

// MetricsConfig controls metric export.
type MetricsConfig struct {
	// Textfile is a node-exporter textfile path written after each run.
	Textfile string `yaml:"textfile"`
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		AgeBands: domain.DefaultAgeBands(),
		Ordering: domain.OrderPopulation,
		Storage:  core.StorageConfig{Driver: core.StorageMemory},
		Blob:     blob.Config{Driver: blob.DriverFilesystem},
		Log:      LogConfig{Level: "info", Format: "text"},
	}
}

// Load builds a configuration from defaults, the optional YAML file at path
// and the environment, in that order, and validates the result.
func Load(path string) (Config, error) {
	cfg := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("config: read %s: %w", path, err)
		}
		if err := Parse(data, &cfg); err != nil {
			return Config{}, err
		}
	}
	if err := cfg.applyEnv(os.LookupEnv); err != nil {
		return Config{}, err
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Parse decodes YAML into cfg, keeping values the document does not set.
func Parse(data []byte, cfg *Config) error {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return fmt.Errorf("config: parse yaml: %w", err)
	}
	return nil
}

type lookupFunc func(string) (string, bool)

func (c *Config) applyEnv(lookup lookupFunc) error {
	str := func(key string, dst *string) {
		if v, ok := lookup(key); ok && v != "" {
			*dst = v
		}
	}
	if v, ok := lookup("SANTASIM_STORAGE_DRIVER"); ok && v != "" {
		c.Storage.Driver = core.StorageDriver(v)
	}
	str("SANTASIM_SQLITE_PATH", &c.Storage.SQLitePath)
	str("SANTASIM_POSTGRES_DSN", &c.Storage.PostgresDSN)
	if v, ok := lookup("SANTASIM_BLOB_DRIVER"); ok && v != "" {
		c.Blob.Driver = blob.Driver(v)
	}
	str("SANTASIM_BLOB_FS_ROOT", &c.Blob.FSRoot)
	str("SANTASIM_BLOB_S3_BUCKET", &c.Blob.S3.Bucket)
	str("SANTASIM_BLOB_S3_REGION", &c.Blob.S3.Region)
	str("SANTASIM_BLOB_S3_ENDPOINT", &c.Blob.S3.Endpoint)
	str("SANTASIM_BLOB_S3_ACCESS_KEY_ID", &c.Blob.S3.AccessKeyID)
	str("SANTASIM_BLOB_S3_SECRET_ACCESS_KEY", &c.Blob.S3.SecretAccessKey)
	if v, ok := lookup("SANTASIM_BLOB_S3_PATH_STYLE"); ok && v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("config: SANTASIM_BLOB_S3_PATH_STYLE: %w", err)
		}
		c.Blob.S3.PathStyle = b
	}
	if v, ok := lookup("SANTASIM_ARCHIVE"); ok && v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("config: SANTASIM_ARCHIVE: %w", err)
		}
		c.Archive = b
	}
	if v, ok := lookup("SANTASIM_ORDERING"); ok && v != "" {
		c.Ordering = domain.Ordering(v)
	}
	str("SANTASIM_LOG_LEVEL", &c.Log.Level)
	str("SANTASIM_LOG_FORMAT", &c.Log.Format)
	str("SANTASIM_METRICS_TEXTFILE", &c.Metrics.Textfile)
	return nil
}

// Validate checks bands, ordering, driver names and logging settings.
func (c Config) Validate() error {
	if err := c.AgeBands.Validate(); err != nil {
		return fmt.Errorf("config: %w", err)
	}
	if _, err := domain.ParseOrdering(string(c.Ordering)); err != nil {
		return fmt.Errorf("config: %w", err)
	}
	switch c.Storage.Driver {
	case "", core.StorageMemory, core.StorageSQLite, core.StoragePostgres:
	default:
		return fmt.Errorf("config: unknown storage driver %q", c.Storage.Driver)
	}
	switch c.Blob.Driver {
	case "", blob.DriverFilesystem, blob.DriverMemory:
	case blob.DriverS3:
		if c.Archive && c.Blob.S3.Bucket == "" {
			return errors.New("config: blob.s3.bucket is required when archiving to s3")
		}
	default:
		return fmt.Errorf("config: unknown blob driver %q", c.Blob.Driver)
	}
	if _, err := c.Log.SlogLevel(); err != nil {
		return err
	}
	switch c.Log.Format {
	case "", "text", "json":
	default:
		return fmt.Errorf("config: unknown log format %q", c.Log.Format)
	}
	return nil
}

// SlogLevel maps the configured level name to a slog.Level.
func (l LogConfig) SlogLevel() (slog.Level, error) {
	var level slog.Level
	name := l.Level
	if name == "" {
		name = "info"
	}
	if err := level.UnmarshalText([]byte(name)); err != nil {
		return 0, fmt.Errorf("config: log level: %w", err)
	}
	return level, nil
}
