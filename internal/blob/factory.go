package blob

import (
	"context"
	"fmt"
	"os"

	"santasim/internal/infra/blob/fs"
	memorystore "santasim/internal/infra/blob/memory"
	infraS3 "santasim/internal/infra/blob/s3"
)

// S3Config re-exports the S3 backend configuration.
type S3Config = infraS3.Config

// Config selects and parameterises a backend.
type Config struct {
	Driver Driver   `yaml:"driver"`
	FSRoot string   `yaml:"fs_root"`
	S3     S3Config `yaml:"s3"`
}

// ConfigFromEnv reads the backend selection from the environment.
//
//	SANTASIM_BLOB_DRIVER: fs|s3|memory (default fs)
//	SANTASIM_BLOB_FS_ROOT: directory root when driver=fs (default ./archive)
//	S3 variables are documented on s3.ConfigFromEnv.
func ConfigFromEnv() Config {
	return Config{
		Driver: Driver(os.Getenv("SANTASIM_BLOB_DRIVER")),
		FSRoot: os.Getenv("SANTASIM_BLOB_FS_ROOT"),
		S3:     infraS3.ConfigFromEnv(),
	}
}

// Open constructs the configured Store. An empty driver selects the filesystem.
func Open(ctx context.Context, cfg Config) (Store, error) {
	driver := cfg.Driver
	if driver == "" {
		driver = DriverFilesystem
	}
	switch driver {
	case DriverFilesystem:
		return fs.New(cfg.FSRoot)
	case DriverS3:
		return infraS3.New(ctx, cfg.S3)
	case DriverMemory:
		return memorystore.New(), nil
	default:
		return nil, fmt.Errorf("unknown blob driver %s", driver)
	}
}

// NewMemory returns an in-memory Store.
func NewMemory() Store { return memorystore.New() }
