package postgres

import (
	"context"
	"database/sql"
	"errors"
	"santasim/internal/infra/persistence/postgres/testutil"
	"santasim/pkg/domain"
	"strings"
	"testing"
)

func openStub(t *testing.T) (*testutil.StubConn, func()) {
	t.Helper()
	db, conn := testutil.NewStubDB()
	restore := OverrideSQLOpen(func(_, _ string) (*sql.DB, error) { return db, nil })
	return conn, restore
}

func TestNewStoreAppliesSchema(t *testing.T) {
	conn, restore := openStub(t)
	defer restore()

	store, err := NewStore("", domain.NewRulesEngine())
	if err != nil {
		t.Fatalf("NewStore: %v", err)
	}
	var created int
	for _, stmt := range conn.Execs {
		if strings.Contains(strings.ToUpper(stmt), "CREATE TABLE") {
			created++
		}
	}
	if created != len(schemaStatements) {
		t.Fatalf("expected %d CREATE TABLE statements, got execs: %v", len(schemaStatements), conn.Execs)
	}
	if len(store.ListChildren()) != 0 || len(store.ListGifts()) != 0 {
		t.Fatalf("expected empty store on empty database")
	}
}

func TestRunInTransactionPersistsAndReloads(t *testing.T) {
	conn, restore := openStub(t)
	defer restore()

	store, err := NewStore("ignored", domain.NewRulesEngine())
	if err != nil {
		t.Fatalf("NewStore: %v", err)
	}
	_, err = store.RunInTransaction(context.Background(), func(tx domain.Transaction) error {
		for _, c := range []domain.Child{{ID: 5, FirstName: "Mara", Age: 6}, {ID: 2, FirstName: "Vlad", Age: 10}} {
			if _, err := tx.CreateChild(c); err != nil {
				return err
			}
		}
		_, err := tx.CreateGift(domain.Gift{ID: "g1", Name: "Puzzle", Price: 15, Category: domain.CategoryBoardGames})
		return err
	})
	if err != nil {
		t.Fatalf("transaction: %v", err)
	}
	if got := len(conn.Tables["children"]); got != 2 {
		t.Fatalf("expected 2 child rows, got %d", got)
	}
	if got := len(conn.Tables["gifts"]); got != 1 {
		t.Fatalf("expected 1 gift row, got %d", got)
	}

	// A second commit rewrites the tables instead of appending duplicates.
	if _, err := store.RunInTransaction(context.Background(), func(tx domain.Transaction) error {
		return tx.DeleteGift("g1")
	}); err != nil {
		t.Fatalf("delete gift: %v", err)
	}
	if got := len(conn.Tables["gifts"]); got != 0 {
		t.Fatalf("expected gift rows cleared, got %d", got)
	}

	state, err := loadState(context.Background(), store.DB())
	if err != nil {
		t.Fatalf("loadState: %v", err)
	}
	if len(state.Children) != 2 || state.Children[0].ID != 5 || state.Children[1].ID != 2 {
		t.Fatalf("expected children reloaded in store order, got %+v", state.Children)
	}
}

func TestNewStoreOpenError(t *testing.T) {
	restore := OverrideSQLOpen(func(_, _ string) (*sql.DB, error) { return nil, errors.New("dial refused") })
	defer restore()
	if _, err := NewStore("postgres://bad", nil); err == nil {
		t.Fatalf("expected open error")
	}
}

func TestNewStorePingAndSchemaErrors(t *testing.T) {
	conn, restore := openStub(t)
	defer restore()
	conn.FailPing = true
	if _, err := NewStore("", nil); err == nil || !strings.Contains(err.Error(), "ping") {
		t.Fatalf("expected ping error, got %v", err)
	}
	conn.FailPing = false
	conn.FailExec = true
	if _, err := NewStore("", nil); err == nil || !strings.Contains(err.Error(), "ddl") {
		t.Fatalf("expected ddl error, got %v", err)
	}
}

func TestLoadStateDecodeError(t *testing.T) {
	conn, restore := openStub(t)
	defer restore()
	conn.Insert("children", map[string]any{"id": int64(1), "position": int64(0), "payload": []byte("{broken")})
	if _, err := NewStore("", nil); err == nil || !strings.Contains(err.Error(), "decode child") {
		t.Fatalf("expected decode error, got %v", err)
	}
}

func TestPersistErrorsSurface(t *testing.T) {
	conn, restore := openStub(t)
	defer restore()
	store, err := NewStore("", nil)
	if err != nil {
		t.Fatalf("NewStore: %v", err)
	}
	create := func(tx domain.Transaction) error {
		_, err := tx.CreateGift(domain.Gift{Name: "Yo-yo", Price: 2, Category: domain.CategoryToys})
		return err
	}

	conn.FailBegin = true
	if _, err := store.RunInTransaction(context.Background(), create); err == nil || !strings.Contains(err.Error(), "begin") {
		t.Fatalf("expected begin error, got %v", err)
	}
	conn.FailBegin = false

	conn.FailTables = map[string]bool{"gifts": true}
	if _, err := store.RunInTransaction(context.Background(), create); err == nil || !strings.Contains(err.Error(), "insert gift") {
		t.Fatalf("expected insert error, got %v", err)
	}
	conn.FailTables = nil

	conn.FailCommit = true
	if _, err := store.RunInTransaction(context.Background(), create); err == nil || !strings.Contains(err.Error(), "commit") {
		t.Fatalf("expected commit error, got %v", err)
	}
}
