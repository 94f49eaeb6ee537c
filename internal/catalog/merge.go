package catalog

import "github.com/rewdy/snaption/internal/models"

// mergeSorted merges two slices that are each sorted under cmp into one
// sorted slice in a single linear pass. Neither input is mutated. Equal
// elements keep left-before-right order, so the merge is stable.
func mergeSorted(left, right []models.PhotoRecord, cmp func(a, b models.PhotoRecord) int) []models.PhotoRecord {
	if len(right) == 0 {
		return left
	}
	if len(left) == 0 {
		out := make([]models.PhotoRecord, len(right))
		copy(out, right)
		return out
	}

	out := make([]models.PhotoRecord, 0, len(left)+len(right))
	i, j := 0, 0
	for i < len(left) && j < len(right) {
		if cmp(right[j], left[i]) < 0 {
			out = append(out, right[j])
			j++
		} else {
			out = append(out, left[i])
			i++
		}
	}
	out = append(out, left[i:]...)
	out = append(out, right[j:]...)
	return out
}
