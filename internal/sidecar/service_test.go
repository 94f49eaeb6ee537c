package sidecar

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/rewdy/snaption/internal/models"
	"github.com/rewdy/snaption/internal/storage"
)

func testPhoto(t *testing.T) (models.PhotoRecord, storage.Provider) {
	t.Helper()
	dir := t.TempDir()
	store, err := storage.NewFS(dir)
	if err != nil {
		t.Fatal(err)
	}
	photo := models.PhotoRecord{
		ImagePath:    filepath.Join(dir, "IMG_0001.jpg"),
		SidecarPath:  filepath.Join(dir, "IMG_0001.md"),
		Filename:     "IMG_0001.jpg",
		RelativePath: "IMG_0001.jpg",
	}
	return photo, store
}

func TestLoad_MissingSidecarReturnsDefault(t *testing.T) {
	photo, store := testPhoto(t)
	svc := NewService(store)

	doc, err := svc.Load(photo)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if doc.HadFrontMatter {
		t.Error("HadFrontMatter = true for missing file")
	}
	if doc.Notes != "" || len(doc.Tags) != 0 || len(doc.Labels) != 0 {
		t.Errorf("default doc not empty: %+v", doc)
	}
	if doc.ParseWarning != "" {
		t.Errorf("unexpected warning %q", doc.ParseWarning)
	}
}

func TestSaveThenLoad(t *testing.T) {
	photo, store := testPhoto(t)
	svc := NewService(store)

	label, err := models.NewPointLabel(0.4, 0.6, "tower")
	if err != nil {
		t.Fatal(err)
	}
	doc := Default(photo.Filename)
	doc.Notes = "first visit\n"
	doc.Tags = []string{"b", "a"}
	doc.Labels = []models.PointLabel{label}

	if err := svc.Save(doc, photo); err != nil {
		t.Fatalf("Save: %v", err)
	}

	got, err := svc.Load(photo)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if got.Notes != doc.Notes {
		t.Errorf("notes = %q, want %q", got.Notes, doc.Notes)
	}
	if len(got.Tags) != 2 || got.Tags[0] != "b" || got.Tags[1] != "a" {
		t.Errorf("tags = %v; insertion order is the caller's concern", got.Tags)
	}
	if len(got.Labels) != 1 || got.Labels[0] != label {
		t.Errorf("labels = %v", got.Labels)
	}
}

func TestSave_LeavesNoTempFiles(t *testing.T) {
	photo, store := testPhoto(t)
	svc := NewService(store)

	if err := svc.Save(Default(photo.Filename), photo); err != nil {
		t.Fatalf("Save: %v", err)
	}
	matches, _ := filepath.Glob(filepath.Join(filepath.Dir(photo.SidecarPath), ".IMG_0001.md.tmp-*"))
	if len(matches) != 0 {
		t.Errorf("leftover temp files: %v", matches)
	}
}

func TestSave_PreservesForeignKeysOnDisk(t *testing.T) {
	photo, store := testPhoto(t)
	svc := NewService(store)

	seed := "---\ncustom_tool: keep-me\nphoto: IMG_0001.jpg\n---\n\nold notes\n"
	if err := os.WriteFile(photo.SidecarPath, []byte(seed), 0o644); err != nil {
		t.Fatal(err)
	}

	doc, err := svc.Load(photo)
	if err != nil {
		t.Fatal(err)
	}
	doc.Notes = "new notes\n"
	if err := svc.Save(doc, photo); err != nil {
		t.Fatal(err)
	}

	raw, _ := store.Read(photo.SidecarPath)
	if !strings.Contains(string(raw), "custom_tool: keep-me") {
		t.Errorf("foreign key lost: %s", raw)
	}
	if !strings.Contains(string(raw), "new notes") {
		t.Errorf("notes not written: %s", raw)
	}
}

func TestLoad_UnclosedFrontMatterWarns(t *testing.T) {
	photo, store := testPhoto(t)
	svc := NewService(store)

	raw := "---\nphoto: IMG_0001.jpg\nnever closed"
	if err := store.WriteAtomic(photo.SidecarPath, []byte(raw)); err != nil {
		t.Fatal(err)
	}

	doc, err := svc.Load(photo)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if doc.ParseWarning == "" {
		t.Error("expected parse warning")
	}
	if doc.Notes != raw {
		t.Errorf("notes = %q, want raw content", doc.Notes)
	}
}
