// Package catalog owns the merged photo collection: it consumes the walk
// stream, keeps a single fully-sorted accumulator, throttles publication to
// the view layer, dispatches batches to the search indexer, and derives the
// filtered, sorted, optionally grouped views.
package catalog

import (
	"fmt"
	"sync"

	"golang.org/x/text/collate"
	"golang.org/x/text/language"

	"github.com/rewdy/snaption/internal/models"
)

// SortMode selects one of the four total orders over PhotoRecord.
type SortMode string

const (
	SortFilenameAsc  SortMode = "filename_asc"
	SortFilenameDesc SortMode = "filename_desc"
	SortModifiedAsc  SortMode = "modified_asc"
	SortModifiedDesc SortMode = "modified_desc"
)

// ParseSortMode validates a user-supplied sort mode string.
func ParseSortMode(s string) (SortMode, error) {
	switch SortMode(s) {
	case SortFilenameAsc, SortFilenameDesc, SortModifiedAsc, SortModifiedDesc:
		return SortMode(s), nil
	}
	return "", fmt.Errorf("catalog: unknown sort mode %q", s)
}

// Collation is shared and numeric-aware so IMG_0002 < IMG_0010 < IMG_0100.
// A collator carries internal buffers, so access is serialized.
var (
	collMu   sync.Mutex
	collator = collate.New(language.Und, collate.Numeric)
)

func localeCompare(a, b string) int {
	collMu.Lock()
	defer collMu.Unlock()
	return collator.CompareString(a, b)
}

// compareCanonical is the filename-ascending order the accumulator is kept
// in: locale-aware filename comparison, ties broken by relative path.
func compareCanonical(a, b models.PhotoRecord) int {
	if c := localeCompare(a.Filename, b.Filename); c != 0 {
		return c
	}
	return localeCompare(a.RelativePath, b.RelativePath)
}

// Compare returns a three-way comparison of two records under the mode.
// Missing modification timestamps sort as the earliest possible value; time
// ties fall back to canonical filename order.
func (m SortMode) Compare(a, b models.PhotoRecord) int {
	switch m {
	case SortFilenameDesc:
		return -compareCanonical(a, b)
	case SortModifiedAsc:
		if a.ModifiedAt.Before(b.ModifiedAt) {
			return -1
		}
		if b.ModifiedAt.Before(a.ModifiedAt) {
			return 1
		}
		return compareCanonical(a, b)
	case SortModifiedDesc:
		if a.ModifiedAt.Before(b.ModifiedAt) {
			return 1
		}
		if b.ModifiedAt.Before(a.ModifiedAt) {
			return -1
		}
		return compareCanonical(a, b)
	default:
		return compareCanonical(a, b)
	}
}
