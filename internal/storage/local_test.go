package storage

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestLocalStorageSaveAndDelete(t *testing.T) {
	dir := t.TempDir()
	store := NewLocalStorage(dir)
	ctx := context.Background()

	path, err := store.Save(ctx, "photos/alice_1.jpg", strings.NewReader("photo-bytes"))
	if err != nil {
		t.Fatalf("save: %v", err)
	}

	if !filepath.IsAbs(path) {
		t.Errorf("expected absolute path, got %q", path)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read back: %v", err)
	}
	if string(data) != "photo-bytes" {
		t.Errorf("content = %q", data)
	}

	if err := store.Delete(ctx, "photos/alice_1.jpg"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Fatalf("expected file removed, stat err = %v", err)
	}
}

func TestLocalStorageCreatesNestedDirectories(t *testing.T) {
	store := NewLocalStorage(t.TempDir())

	if _, err := store.Save(context.Background(), "a/b/c/file.csv", strings.NewReader("x")); err != nil {
		t.Fatalf("save into nested path: %v", err)
	}
}

func TestLocalStorageDeleteMissingFile(t *testing.T) {
	store := NewLocalStorage(t.TempDir())

	if err := store.Delete(context.Background(), "photos/never_written.jpg"); err != nil {
		t.Fatalf("deleting a missing file must not error, got %v", err)
	}
}

func TestLocalStorageRejectsEscapingKeys(t *testing.T) {
	dir := t.TempDir()
	store := NewLocalStorage(dir)
	ctx := context.Background()

	for _, key := range []string{"../outside.txt", "photos/../../outside.txt", ""} {
		if _, err := store.Save(ctx, key, strings.NewReader("x")); err == nil {
			t.Errorf("expected key %q to be rejected", key)
		}
	}

	entries, err := os.ReadDir(filepath.Dir(dir))
	if err != nil {
		t.Fatalf("read parent dir: %v", err)
	}
	for _, e := range entries {
		if e.Name() == "outside.txt" {
			t.Fatal("escaping key wrote outside the base directory")
		}
	}
}
