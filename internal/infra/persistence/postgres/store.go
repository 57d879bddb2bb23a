// Package postgres provides a Postgres-backed persistent store that mirrors
// the in-memory semantics while keeping children and gifts in their own tables.
package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"santasim/internal/infra/persistence/memory"
	"santasim/pkg/domain"
	"sync"

	_ "github.com/jackc/pgx/v5/stdlib" // register pgx as a database/sql driver
)

// Compile-time contract assertion ensuring the store satisfies the domain interface.
var _ domain.PersistentStore = (*Store)(nil)

const (
	defaultDriver = "pgx"
	defaultDSN    = "postgres://localhost/santasim?sslmode=disable"
)

var (
	sqlOpen = sql.Open
	openMu  sync.Mutex
)

var schemaStatements = []string{
	`CREATE TABLE IF NOT EXISTS children (
		id BIGINT PRIMARY KEY,
		position INTEGER NOT NULL,
		payload JSONB NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS gifts (
		id TEXT PRIMARY KEY,
		position INTEGER NOT NULL,
		category TEXT NOT NULL,
		price DOUBLE PRECISION NOT NULL CHECK (price >= 0),
		payload JSONB NOT NULL
	)`,
}

// Store persists state to Postgres while reusing the in-memory implementation for transactions.
type Store struct {
	*memory.Store
	db *sql.DB
	mu sync.Mutex
}

// NewStore opens a Postgres-backed store using the provided DSN (falls back to defaultDSN).
// It ensures the schema exists and hydrates the in-memory store from any persisted rows.
func NewStore(dsn string, engine *domain.RulesEngine) (*Store, error) {
	if dsn == "" {
		dsn = defaultDSN
	}
	openMu.Lock()
	db, err := sqlOpen(defaultDriver, dsn)
	openMu.Unlock()
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	ctx := context.Background()
	if err := db.PingContext(ctx); err != nil {
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	if err := applySchema(ctx, db); err != nil {
		return nil, err
	}
	state, err := loadState(ctx, db)
	if err != nil {
		return nil, err
	}
	mem := memory.NewStore(engine)
	mem.ImportState(state)
	return &Store{Store: mem, db: db}, nil
}

// RunInTransaction applies the provided function within a transaction, then writes the state to Postgres if successful.
func (s *Store) RunInTransaction(ctx context.Context, fn func(domain.Transaction) error) (domain.Result, error) {
	res, err := s.Store.RunInTransaction(ctx, fn)
	if err != nil {
		return res, err
	}
	if err := s.persist(ctx); err != nil {
		return res, err
	}
	return res, nil
}

// DB exposes the underlying sql.DB for integration testing hooks.
func (s *Store) DB() *sql.DB { return s.db }

// Close releases the connection pool.
func (s *Store) Close() error { return s.db.Close() }

type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

func applySchema(ctx context.Context, db execer) error {
	for _, stmt := range schemaStatements {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("execute ddl: %w", err)
		}
	}
	return nil
}

func loadState(ctx context.Context, db *sql.DB) (domain.State, error) {
	var state domain.State
	rows, err := db.QueryContext(ctx, `SELECT id, position, payload FROM children ORDER BY position`)
	if err != nil {
		return domain.State{}, fmt.Errorf("select children: %w", err)
	}
	for rows.Next() {
		var (
			id       int64
			position int64
			payload  []byte
			child    domain.Child
		)
		if err := rows.Scan(&id, &position, &payload); err != nil {
			_ = rows.Close()
			return domain.State{}, fmt.Errorf("scan child: %w", err)
		}
		if err := json.Unmarshal(payload, &child); err != nil {
			_ = rows.Close()
			return domain.State{}, fmt.Errorf("decode child %d: %w", id, err)
		}
		child.ID = int(id)
		state.Children = append(state.Children, child)
	}
	if err := rows.Err(); err != nil {
		_ = rows.Close()
		return domain.State{}, fmt.Errorf("iterate children: %w", err)
	}
	_ = rows.Close()

	rows, err = db.QueryContext(ctx, `SELECT id, position, payload FROM gifts ORDER BY position`)
	if err != nil {
		return domain.State{}, fmt.Errorf("select gifts: %w", err)
	}
	defer func() { _ = rows.Close() }()
	for rows.Next() {
		var (
			id       string
			position int64
			payload  []byte
			gift     domain.Gift
		)
		if err := rows.Scan(&id, &position, &payload); err != nil {
			return domain.State{}, fmt.Errorf("scan gift: %w", err)
		}
		if err := json.Unmarshal(payload, &gift); err != nil {
			return domain.State{}, fmt.Errorf("decode gift %s: %w", id, err)
		}
		gift.ID = id
		state.Gifts = append(state.Gifts, gift)
	}
	if err := rows.Err(); err != nil {
		return domain.State{}, fmt.Errorf("iterate gifts: %w", err)
	}
	return state, nil
}

func (s *Store) persist(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return persistState(ctx, s.db, s.ExportState())
}

func persistState(ctx context.Context, db *sql.DB, state domain.State) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()
	if _, err := tx.ExecContext(ctx, `TRUNCATE TABLE children, gifts`); err != nil {
		return fmt.Errorf("truncate: %w", err)
	}
	for i, child := range state.Children {
		data, err := json.Marshal(child)
		if err != nil {
			return fmt.Errorf("encode child %d: %w", child.ID, err)
		}
		if _, err := tx.ExecContext(ctx, `INSERT INTO children (id, position, payload) VALUES ($1, $2, $3)`, int64(child.ID), int64(i), data); err != nil {
			return fmt.Errorf("insert child %d: %w", child.ID, err)
		}
	}
	for i, gift := range state.Gifts {
		data, err := json.Marshal(gift)
		if err != nil {
			return fmt.Errorf("encode gift %s: %w", gift.ID, err)
		}
		if _, err := tx.ExecContext(ctx, `INSERT INTO gifts (id, position, category, price, payload) VALUES ($1, $2, $3, $4, $5)`, gift.ID, int64(i), string(gift.Category), gift.Price, data); err != nil {
			return fmt.Errorf("insert gift %s: %w", gift.ID, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	committed = true
	return nil
}

// OverrideSQLOpen swaps the sqlOpen function for tests and returns a restore function.
func OverrideSQLOpen(fn func(driverName, dataSourceName string) (*sql.DB, error)) func() {
	openMu.Lock()
	defer openMu.Unlock()
	prev := sqlOpen
	sqlOpen = fn
	return func() {
		openMu.Lock()
		defer openMu.Unlock()
		sqlOpen = prev
	}
}
