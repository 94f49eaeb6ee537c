package catalog

import (
	"slices"
	"testing"
	"time"

	"github.com/rewdy/snaption/internal/models"
)

func TestSortMode_NumericFilenameOrder(t *testing.T) {
	records := []models.PhotoRecord{
		rec("IMG_0100.jpg", "IMG_0100.jpg", time.Time{}),
		rec("IMG_0002.jpg", "IMG_0002.jpg", time.Time{}),
		rec("IMG_0010.jpg", "IMG_0010.jpg", time.Time{}),
	}

	asc := slices.Clone(records)
	slices.SortStableFunc(asc, SortFilenameAsc.Compare)
	wantAsc := []string{"IMG_0002.jpg", "IMG_0010.jpg", "IMG_0100.jpg"}
	for i, r := range asc {
		if r.Filename != wantAsc[i] {
			t.Errorf("asc[%d] = %s, want %s", i, r.Filename, wantAsc[i])
		}
	}

	desc := slices.Clone(records)
	slices.SortStableFunc(desc, SortFilenameDesc.Compare)
	for i, r := range desc {
		if r.Filename != wantAsc[len(wantAsc)-1-i] {
			t.Errorf("desc[%d] = %s, want exact reverse of ascending", i, r.Filename)
		}
	}
}

func TestSortMode_MissingTimestampSortsEarliest(t *testing.T) {
	old := rec("old.jpg", "old.jpg", time.Unix(1000, 0))
	missing := rec("missing.jpg", "missing.jpg", time.Time{})
	fresh := rec("new.jpg", "new.jpg", time.Unix(2000, 0))

	asc := []models.PhotoRecord{old, missing, fresh}
	slices.SortStableFunc(asc, SortModifiedAsc.Compare)
	if asc[0].Filename != "missing.jpg" || asc[2].Filename != "new.jpg" {
		t.Errorf("modified asc order wrong: %s %s %s", asc[0].Filename, asc[1].Filename, asc[2].Filename)
	}

	desc := []models.PhotoRecord{old, missing, fresh}
	slices.SortStableFunc(desc, SortModifiedDesc.Compare)
	if desc[0].Filename != "new.jpg" || desc[2].Filename != "missing.jpg" {
		t.Errorf("modified desc order wrong: %s %s %s", desc[0].Filename, desc[1].Filename, desc[2].Filename)
	}
}

func TestSortMode_ModifiedTiesFallBackToFilename(t *testing.T) {
	at := time.Unix(500, 0)
	records := []models.PhotoRecord{
		rec("b.jpg", "b.jpg", at),
		rec("a.jpg", "a.jpg", at),
	}
	slices.SortStableFunc(records, SortModifiedAsc.Compare)
	if records[0].Filename != "a.jpg" {
		t.Error("time ties must break by filename order")
	}
}

func TestSortMode_FilenameTiesBreakByRelativePath(t *testing.T) {
	records := []models.PhotoRecord{
		rec("x.jpg", "zeta/x.jpg", time.Time{}),
		rec("x.jpg", "alpha/x.jpg", time.Time{}),
	}
	slices.SortStableFunc(records, SortFilenameAsc.Compare)
	if records[0].RelativePath != "alpha/x.jpg" {
		t.Error("filename ties must break by relative path")
	}
}

func TestParseSortMode(t *testing.T) {
	for _, s := range []string{"filename_asc", "filename_desc", "modified_asc", "modified_desc"} {
		if _, err := ParseSortMode(s); err != nil {
			t.Errorf("ParseSortMode(%q): %v", s, err)
		}
	}
	if _, err := ParseSortMode("size_asc"); err == nil {
		t.Error("expected error for unknown mode")
	}
}
