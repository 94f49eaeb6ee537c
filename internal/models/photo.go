// Package models defines the domain types for Snaption.
package models

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// PhotoRecord describes one discovered image file. Records are immutable:
// a re-scan supersedes them, nothing mutates them in place.
type PhotoRecord struct {
	ImagePath    string    `json:"image_path"`
	SidecarPath  string    `json:"sidecar_path"`
	Filename     string    `json:"filename"`
	RelativePath string    `json:"relative_path"`
	ModifiedAt   time.Time `json:"modified_at,omitzero"`
}

// ID returns the stable identity of the record: its absolute image path.
func (r PhotoRecord) ID() string {
	return r.ImagePath
}

// Folder returns the parent directory of the record's relative path, or
// GroupRoot for records that sit directly under the library root.
func (r PhotoRecord) Folder() string {
	idx := strings.LastIndex(r.RelativePath, "/")
	if idx < 0 {
		return GroupRoot
	}
	return r.RelativePath[:idx]
}

// GroupRoot is the sentinel group key for photos at the library root.
const GroupRoot = "/"

// PointLabel is a short annotation pinned to a point on a photo.
// Coordinates are unit-interval values relative to the image bounds.
type PointLabel struct {
	ID   string  `json:"id"`
	X    float64 `json:"x"`
	Y    float64 `json:"y"`
	Text string  `json:"text"`
}

// NewPointLabel creates a label with clamped coordinates and a generated ID.
// Labels with empty or whitespace-only text are never created.
func NewPointLabel(x, y float64, text string) (PointLabel, error) {
	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return PointLabel{}, fmt.Errorf("models: label text is empty")
	}
	return PointLabel{
		ID:   NewLabelID(),
		X:    clampUnit(x),
		Y:    clampUnit(y),
		Text: trimmed,
	}, nil
}

// NewLabelID generates a short opaque label identifier.
func NewLabelID() string {
	return "lbl-" + uuid.NewString()[:8]
}

func clampUnit(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
