// Package testutil provides shared test helpers for setting up photo
// libraries and search indexes.
package testutil

import (
	"image"
	"image/png"
	"os"
	"path/filepath"
	"testing"

	"github.com/rewdy/snaption/internal/search"
	"github.com/rewdy/snaption/internal/storage"
)

// TestIndex creates an in-memory search index that is closed automatically.
func TestIndex(t *testing.T) *search.Index {
	t.Helper()
	idx, err := search.OpenIndex()
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { idx.Close() })
	return idx
}

// TestLibrary creates a temporary library directory with a storage.Provider.
func TestLibrary(t *testing.T) (string, storage.Provider) {
	t.Helper()
	dir := t.TempDir()
	store, err := storage.NewFS(dir)
	if err != nil {
		t.Fatal(err)
	}
	return dir, store
}

// WritePhoto writes a tiny valid PNG at the given library-relative path,
// creating parent directories as needed, and returns the absolute path.
func WritePhoto(t *testing.T, dir, rel string) string {
	t.Helper()
	path := filepath.Join(dir, filepath.FromSlash(rel))
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatal(err)
	}
	f, err := os.Create(path)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	if err := png.Encode(f, image.NewRGBA(image.Rect(0, 0, 8, 8))); err != nil {
		t.Fatal(err)
	}
	return path
}

// WriteSidecar writes raw sidecar content next to a photo path.
func WriteSidecar(t *testing.T, photoPath, content string) string {
	t.Helper()
	side := photoPath[:len(photoPath)-len(filepath.Ext(photoPath))] + ".md"
	if err := os.WriteFile(side, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return side
}
