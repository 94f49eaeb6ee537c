package search

import (
	"context"
	"log/slog"
	"testing"

	"github.com/rewdy/snaption/internal/models"
	"github.com/rewdy/snaption/internal/sidecar"
)

func testIndex(t *testing.T) *Index {
	t.Helper()
	ix, err := OpenIndex()
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { ix.Close() })
	return ix
}

func TestMatch_Substring(t *testing.T) {
	ix := testIndex(t)
	text := BuildText("IMG_0001.jpg", "Sunset at the Colosseum", []string{"Rome", "holiday"}, nil)
	if err := ix.Upsert("/p/IMG_0001.jpg", text); err != nil {
		t.Fatal(err)
	}

	for _, q := range []string{"colosseum", "SUNSET", "rome", "img_0001", "at the"} {
		got, err := ix.Match(q)
		if err != nil {
			t.Fatalf("Match(%q): %v", q, err)
		}
		if _, ok := got["/p/IMG_0001.jpg"]; !ok {
			t.Errorf("Match(%q) missed the record", q)
		}
	}

	got, err := ix.Match("nowhere")
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 0 {
		t.Errorf("Match(nowhere) = %v, want empty", got)
	}
}

func TestMatch_LikeMetacharactersAreLiteral(t *testing.T) {
	ix := testIndex(t)
	_ = ix.Upsert("/p/a.jpg", "progress 100% done_deal")
	_ = ix.Upsert("/p/b.jpg", "plain text")

	got, err := ix.Match("100%")
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 1 {
		t.Errorf("Match(100%%) = %v, want only the literal match", got)
	}
	got, err = ix.Match("done_deal")
	if err != nil {
		t.Fatal(err)
	}
	if _, ok := got["/p/a.jpg"]; !ok || len(got) != 1 {
		t.Errorf("Match(done_deal) = %v", got)
	}
}

func TestMatch_EmptyQueryRejected(t *testing.T) {
	ix := testIndex(t)
	if _, err := ix.Match("   "); err == nil {
		t.Error("expected error for blank query")
	}
}

func TestResetAndHas(t *testing.T) {
	ix := testIndex(t)
	_ = ix.Upsert("/p/a.jpg", "text")

	ok, err := ix.Has("/p/a.jpg")
	if err != nil || !ok {
		t.Fatalf("Has = %v, %v", ok, err)
	}
	if err := ix.Reset(); err != nil {
		t.Fatal(err)
	}
	ok, _ = ix.Has("/p/a.jpg")
	if ok {
		t.Error("entry survived reset")
	}
	n, _ := ix.Count()
	if n != 0 {
		t.Errorf("count = %d after reset", n)
	}
}

func TestBuildText(t *testing.T) {
	labels := []models.PointLabel{{ID: "lbl-1", X: 0.1, Y: 0.2, Text: "Tower"}}
	text := BuildText("IMG_0002.JPG", "Notes Body", []string{"Trip"}, labels)
	want := "img_0002.jpg notes body trip tower"
	if text != want {
		t.Errorf("text = %q, want %q", text, want)
	}
}

type stubLoader struct {
	docs map[string]sidecar.Document
}

func (s stubLoader) Load(photo models.PhotoRecord) (sidecar.Document, error) {
	doc, ok := s.docs[photo.ID()]
	if !ok {
		return sidecar.Document{}, errReadFailed
	}
	return doc, nil
}

var errReadFailed = &loadError{}

type loadError struct{}

func (*loadError) Error() string { return "read failed" }

func TestIndexBatch_SkipsFailedItems(t *testing.T) {
	ix := testIndex(t)
	loader := stubLoader{docs: map[string]sidecar.Document{
		"/p/good.jpg": {Notes: "findable"},
	}}
	indexer := NewIndexer(ix, loader, slog.Default())

	batch := []models.PhotoRecord{
		{ImagePath: "/p/good.jpg", Filename: "good.jpg"},
		{ImagePath: "/p/bad.jpg", Filename: "bad.jpg"},
	}
	indexer.IndexBatch(context.Background(), batch)

	if ok, _ := ix.Has("/p/good.jpg"); !ok {
		t.Error("good item not indexed")
	}
	if ok, _ := ix.Has("/p/bad.jpg"); ok {
		t.Error("failed item should remain unindexed (fail-closed)")
	}
}

func TestUpdate_Synchronous(t *testing.T) {
	ix := testIndex(t)
	indexer := NewIndexer(ix, stubLoader{}, slog.Default())
	photo := models.PhotoRecord{ImagePath: "/p/a.jpg", Filename: "a.jpg"}

	if err := indexer.Update(photo, "fresh notes", []string{"t"}, nil); err != nil {
		t.Fatal(err)
	}
	got, err := ix.Match("fresh notes")
	if err != nil {
		t.Fatal(err)
	}
	if _, ok := got[photo.ID()]; !ok {
		t.Error("edit not immediately searchable")
	}
}
