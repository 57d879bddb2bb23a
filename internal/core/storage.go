package core

import (
	"fmt"
	"os"
	"santasim/internal/infra/persistence/memory"
	"santasim/internal/infra/persistence/postgres"
	"santasim/internal/infra/persistence/sqlite"
	"santasim/pkg/domain"
)

// StorageDriver identifies a concrete persistent storage implementation.
type StorageDriver string

const (
	StorageMemory   StorageDriver = "memory"   // in-memory only (tests / ephemeral)
	StorageSQLite   StorageDriver = "sqlite"   // embedded sqlite file
	StoragePostgres StorageDriver = "postgres" // PostgreSQL server
)

type (
	Transaction     = domain.Transaction
	TransactionView = domain.TransactionView
	PersistentStore = domain.PersistentStore
)

// StorageConfig selects and parameterises a backend.
type StorageConfig struct {
	Driver      StorageDriver `yaml:"driver"`
	SQLitePath  string        `yaml:"sqlite_path"`
	PostgresDSN string        `yaml:"postgres_dsn"`
}

// StorageConfigFromEnv reads the backend selection from the environment.
//
//	SANTASIM_STORAGE_DRIVER: memory|sqlite|postgres (default memory)
//	SANTASIM_SQLITE_PATH: path to sqlite file (default ./santasim.db)
//	SANTASIM_POSTGRES_DSN: postgres DSN when driver=postgres
func StorageConfigFromEnv() StorageConfig {
	return StorageConfig{
		Driver:      StorageDriver(os.Getenv("SANTASIM_STORAGE_DRIVER")),
		SQLitePath:  os.Getenv("SANTASIM_SQLITE_PATH"),
		PostgresDSN: os.Getenv("SANTASIM_POSTGRES_DSN"),
	}
}

// OpenPersistentStore opens the configured backend. The returned close
// function releases database handles and is safe to call for every driver.
func OpenPersistentStore(cfg StorageConfig, engine *RulesEngine) (PersistentStore, func() error, error) {
	driver := cfg.Driver
	if driver == "" {
		driver = StorageMemory
	}
	switch driver {
	case StorageMemory:
		return memory.NewStore(engine), func() error { return nil }, nil
	case StorageSQLite:
		s, err := sqlite.NewStore(cfg.SQLitePath, engine)
		if err != nil {
			return nil, nil, err
		}
		return s, s.Close, nil
	case StoragePostgres:
		s, err := postgres.NewStore(cfg.PostgresDSN, engine)
		if err != nil {
			return nil, nil, err
		}
		return s, s.Close, nil
	default:
		return nil, nil, fmt.Errorf("unknown storage driver %s", driver)
	}
}
