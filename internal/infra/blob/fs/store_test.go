package fs

import (
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"santasim/internal/blob/core"
)

func TestStoreLifecycle(t *testing.T) {
	root := t.TempDir()
	store, err := New(root)
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	ctx := context.Background()
	info, err := store.Put(ctx, "runs/r1/round-000.json", strings.NewReader("hello"), core.PutOptions{ContentType: "application/json", Metadata: map[string]string{"round": "0"}})
	if err != nil {
		t.Fatalf("put: %v", err)
	}
	if info.Size != 5 || len(info.ETag) != 64 {
		t.Fatalf("unexpected info %+v", info)
	}
	if _, err := os.Stat(filepath.Join(root, "runs", "r1", "round-000.json.meta")); err != nil {
		t.Fatalf("sidecar missing: %v", err)
	}
	if _, err := store.Put(ctx, "runs/r1/round-000.json", strings.NewReader("again"), core.PutOptions{}); !errors.Is(err, core.ErrExists) {
		t.Fatalf("expected ErrExists, got %v", err)
	}

	head, err := store.Head(ctx, "runs/r1/round-000.json")
	if err != nil || head.Metadata["round"] != "0" || head.ContentType != "application/json" {
		t.Fatalf("head: %v %+v", err, head)
	}
	_, rc, err := store.Get(ctx, "runs/r1/round-000.json")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	body, _ := io.ReadAll(rc)
	_ = rc.Close()
	if string(body) != "hello" {
		t.Fatalf("body = %q", body)
	}

	if _, err := store.Put(ctx, "runs/r2/manifest.json", strings.NewReader("{}"), core.PutOptions{}); err != nil {
		t.Fatalf("put r2: %v", err)
	}
	list, err := store.List(ctx, "runs/")
	if err != nil || len(list) != 2 || list[0].Key != "runs/r1/round-000.json" || list[1].Key != "runs/r2/manifest.json" {
		t.Fatalf("list: %v %+v", err, list)
	}
	only, _ := store.List(ctx, "runs/r2")
	if len(only) != 1 {
		t.Fatalf("prefix list: %+v", only)
	}

	ok, err := store.Delete(ctx, "runs/r1/round-000.json")
	if err != nil || !ok {
		t.Fatalf("delete: %v %v", ok, err)
	}
	if ok, _ := store.Delete(ctx, "runs/r1/round-000.json"); ok {
		t.Fatalf("second delete should report missing")
	}
	if _, err := store.Head(ctx, "runs/r1/round-000.json"); !errors.Is(err, core.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if _, _, err := store.Get(ctx, "runs/r1/round-000.json"); !errors.Is(err, core.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestStoreRejectsBadKeys(t *testing.T) {
	store, err := New(t.TempDir())
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	ctx := context.Background()
	for _, key := range []string{"", "  ", "../escape", "/abs", "a/../../b", "x.meta"} {
		if _, err := store.Put(ctx, key, strings.NewReader("x"), core.PutOptions{}); err == nil {
			t.Fatalf("expected error for key %q", key)
		}
		if _, err := store.Delete(ctx, key); err == nil {
			t.Fatalf("expected delete error for key %q", key)
		}
	}
}

func TestStoreCorruptSidecar(t *testing.T) {
	root := t.TempDir()
	store, err := New(root)
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	ctx := context.Background()
	if _, err := store.Put(ctx, "k", strings.NewReader("v"), core.PutOptions{}); err != nil {
		t.Fatalf("put: %v", err)
	}
	if err := os.WriteFile(filepath.Join(root, "k.meta"), []byte("{"), 0o600); err != nil {
		t.Fatalf("corrupt: %v", err)
	}
	if _, err := store.Head(ctx, "k"); err == nil || errors.Is(err, core.ErrNotFound) {
		t.Fatalf("expected decode error, got %v", err)
	}
	if _, err := store.List(ctx, ""); err == nil {
		t.Fatalf("expected list decode error")
	}
}

func TestNewDefaultsRoot(t *testing.T) {
	wd, err := os.Getwd()
	if err != nil {
		t.Fatalf("getwd: %v", err)
	}
	if err := os.Chdir(t.TempDir()); err != nil {
		t.Fatalf("chdir: %v", err)
	}
	t.Cleanup(func() { _ = os.Chdir(wd) })
	store, err := New("")
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	if store.Root() != defaultRoot || store.Driver() != core.DriverFilesystem {
		t.Fatalf("unexpected store %+v", store)
	}
}
