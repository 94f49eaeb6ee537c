package api

import (
	validation "github.com/go-ozzo/ozzo-validation/v4"

	"github.com/rewdy/snaption/internal/catalog"
	"github.com/rewdy/snaption/internal/models"
)

// OpenProjectRequest is the request body for opening a photo library.
type OpenProjectRequest struct {
	Path string `json:"path"`
}

// Validate checks the request.
func (r OpenProjectRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Path, validation.Required),
	)
}

// PhotoListResponse is the displayed view of the catalog: flat items, or
// folder groups when grouping is on.
type PhotoListResponse struct {
	State   catalog.State        `json:"state"`
	Status  string               `json:"status,omitempty"`
	Query   string               `json:"query"`
	Sort    catalog.SortMode     `json:"sort"`
	Grouped bool                 `json:"grouped"`
	Total   int                  `json:"total"`
	Items   []models.PhotoRecord `json:"items,omitempty"`
	Groups  []catalog.Group      `json:"groups,omitempty"`
}

// SidecarDetail is the annotation document for one photo plus the content
// checksum used for optimistic concurrency.
type SidecarDetail struct {
	Photo          string              `json:"photo"`
	Filename       string              `json:"filename"`
	Notes          string              `json:"notes"`
	Tags           []string            `json:"tags"`
	Labels         []models.PointLabel `json:"labels"`
	HadFrontMatter bool                `json:"had_front_matter"`
	Warning        string              `json:"warning,omitempty"`
	Checksum       string              `json:"checksum"`
}

// UpdateSidecarRequest replaces the notes, tags, and labels of a sidecar.
type UpdateSidecarRequest struct {
	Notes  string              `json:"notes"`
	Tags   []string            `json:"tags"`
	Labels []models.PointLabel `json:"labels"`
}

// Validate checks the request.
func (r UpdateSidecarRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Tags, validation.Each(validation.Length(1, 256))),
	)
}

// AddLabelRequest pins a new point label onto a photo.
type AddLabelRequest struct {
	X    float64 `json:"x"`
	Y    float64 `json:"y"`
	Text string  `json:"text"`
}

// Validate checks the request. Coordinates outside the unit interval are
// clamped downstream, not rejected here.
func (r AddLabelRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Text, validation.Required, validation.Length(1, 512)),
	)
}

// PrefetchRequest warms the thumbnail cache for the leading displayed photos.
type PrefetchRequest struct {
	Size int `json:"size"`
}

// Validate checks the request.
func (r PrefetchRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Size, validation.Required, validation.Min(16), validation.Max(2048)),
	)
}

// PrefetchResponse reports how many photos were scheduled.
type PrefetchResponse struct {
	Scheduled int `json:"scheduled"`
}

// StatusResponse reports the controller lifecycle state.
type StatusResponse struct {
	Root   string        `json:"root,omitempty"`
	State  catalog.State `json:"state"`
	Status string        `json:"status,omitempty"`
}
