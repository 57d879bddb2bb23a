package config

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"santasim/internal/blob"
	"santasim/internal/core"
	"santasim/pkg/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "santasim.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
	assert.Equal(t, domain.AgeBands{BabyMax: 5, KidMax: 12, TeenMax: 18}, cfg.AgeBands)
	assert.Equal(t, core.StorageMemory, cfg.Storage.Driver)
}

func TestLoadFileKeepsUnsetDefaults(t *testing.T) {
	path := writeFile(t, `
age_bands:
  teen_max: 17
ordering: niceScoreCity
storage:
  driver: sqlite
  sqlite_path: /var/lib/santasim/run.db
archive: true
blob:
  driver: s3
  s3:
    bucket: santa-runs
    region: eu-central-1
    path_style: true
log:
  level: debug
  format: json
metrics:
  textfile: /var/lib/node_exporter/santasim.prom
`)
	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, domain.AgeBands{BabyMax: 5, KidMax: 12, TeenMax: 17}, cfg.AgeBands)
	assert.Equal(t, domain.OrderByNiceScoreCity, cfg.Ordering)
	assert.Equal(t, core.StorageSQLite, cfg.Storage.Driver)
	assert.Equal(t, "/var/lib/santasim/run.db", cfg.Storage.SQLitePath)
	assert.True(t, cfg.Archive)
	assert.Equal(t, blob.DriverS3, cfg.Blob.Driver)
	assert.Equal(t, "santa-runs", cfg.Blob.S3.Bucket)
	assert.True(t, cfg.Blob.S3.PathStyle)
	assert.Equal(t, "json", cfg.Log.Format)
	level, err := cfg.Log.SlogLevel()
	require.NoError(t, err)
	assert.Equal(t, slog.LevelDebug, level)
	assert.Equal(t, "/var/lib/node_exporter/santasim.prom", cfg.Metrics.Textfile)
}

func TestEnvOverridesFile(t *testing.T) {
	path := writeFile(t, "storage:\n  driver: sqlite\nlog:\n  level: warn\n")
	t.Setenv("SANTASIM_STORAGE_DRIVER", "postgres")
	t.Setenv("SANTASIM_POSTGRES_DSN", "postgres://santa@db/sim")
	t.Setenv("SANTASIM_LOG_LEVEL", "error")
	t.Setenv("SANTASIM_BLOB_DRIVER", "memory")
	t.Setenv("SANTASIM_ARCHIVE", "true")
	t.Setenv("SANTASIM_BLOB_S3_PATH_STYLE", "1")
	t.Setenv("SANTASIM_ORDERING", "id")
	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, core.StoragePostgres, cfg.Storage.Driver)
	assert.Equal(t, "postgres://santa@db/sim", cfg.Storage.PostgresDSN)
	assert.Equal(t, "error", cfg.Log.Level)
	assert.Equal(t, blob.DriverMemory, cfg.Blob.Driver)
	assert.True(t, cfg.Archive)
	assert.True(t, cfg.Blob.S3.PathStyle)
	assert.Equal(t, domain.OrderByID, cfg.Ordering)
}

func TestLoadErrors(t *testing.T) {
	tests := []struct {
		name string
		yaml string
		env  map[string]string
		msg  string
	}{
		{name: "unknown key", yaml: "colour: red\n", msg: "parse yaml"},
		{name: "bad bands", yaml: "age_bands:\n  kid_max: 3\n", msg: "kid_max"},
		{name: "bad ordering", yaml: "ordering: random\n", msg: "unknown ordering"},
		{name: "bad storage", yaml: "storage:\n  driver: redis\n", msg: "storage driver"},
		{name: "bad blob", yaml: "blob:\n  driver: gcs\n", msg: "blob driver"},
		{name: "s3 without bucket", yaml: "archive: true\nblob:\n  driver: s3\n", msg: "bucket"},
		{name: "bad level", yaml: "log:\n  level: loud\n", msg: "log level"},
		{name: "bad format", yaml: "log:\n  format: xml\n", msg: "log format"},
		{name: "bad archive env", env: map[string]string{"SANTASIM_ARCHIVE": "maybe"}, msg: "SANTASIM_ARCHIVE"},
		{name: "bad path style env", env: map[string]string{"SANTASIM_BLOB_S3_PATH_STYLE": "sideways"}, msg: "PATH_STYLE"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			path := ""
			if tt.yaml != "" {
				path = writeFile(t, tt.yaml)
			}
			_, err := Load(path)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.msg)
		})
	}
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestParseEmptyDocument(t *testing.T) {
	cfg := Default()
	require.NoError(t, Parse(nil, &cfg))
	assert.Equal(t, Default(), cfg)
}
