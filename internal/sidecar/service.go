package sidecar

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/rewdy/snaption/internal/models"
	"github.com/rewdy/snaption/internal/storage"
)

// Service loads and saves sidecar documents through the library storage
// provider. It is the single source of truth for the annotation format.
type Service struct {
	store storage.Provider
	now   func() time.Time
}

// NewService creates a sidecar service backed by store.
func NewService(store storage.Provider) *Service {
	return &Service{store: store, now: time.Now}
}

// Load reads and parses the sidecar for a photo. A missing file yields the
// default document, not an error.
func (s *Service) Load(photo models.PhotoRecord) (Document, error) {
	raw, err := s.store.Read(photo.SidecarPath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return Default(photo.Filename), nil
		}
		return Document{}, fmt.Errorf("sidecar: load %s: %w", photo.SidecarPath, err)
	}
	return Parse(string(raw), photo.Filename), nil
}

// Save renders the whole document and writes it atomically. There is no
// partial update: callers load, mutate, and write back.
func (s *Service) Save(doc Document, photo models.PhotoRecord) error {
	out := Render(doc, photo.Filename, s.now())
	if err := s.store.WriteAtomic(photo.SidecarPath, out); err != nil {
		return fmt.Errorf("sidecar: save %s: %w", photo.SidecarPath, err)
	}
	return nil
}
