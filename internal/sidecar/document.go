// Package sidecar implements the annotation sidecar document format: a
// front-matter block holding the keys this tool owns (photo, tags, labels,
// updated_at) plus any foreign keys, followed by a free-form Markdown body.
package sidecar

import "github.com/rewdy/snaption/internal/models"

// Document is the parsed annotation file for one photo. FrontMatterLines
// holds the raw front-matter lines verbatim, including keys owned by other
// tools; those are preserved untouched across a write.
type Document struct {
	FrontMatterLines []string            `json:"-"`
	Notes            string              `json:"notes"`
	Tags             []string            `json:"tags"`
	Labels           []models.PointLabel `json:"labels"`
	HadFrontMatter   bool                `json:"had_front_matter"`
	ParseWarning     string              `json:"parse_warning,omitempty"`
}

// Default returns the document used when no sidecar file exists yet.
func Default(photoFilename string) Document {
	return Document{
		FrontMatterLines: []string{"photo: " + photoFilename},
		Tags:             []string{},
		Labels:           []models.PointLabel{},
	}
}
