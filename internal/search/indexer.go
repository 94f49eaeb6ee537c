package search

import (
	"context"
	"log/slog"

	"github.com/rewdy/snaption/internal/models"
	"github.com/rewdy/snaption/internal/sidecar"
)

// DocumentLoader loads the sidecar document for a photo.
type DocumentLoader interface {
	Load(photo models.PhotoRecord) (sidecar.Document, error)
}

// Indexer builds search entries from sidecar content. Batch indexing runs in
// the background relative to the visible catalog; explicit edits go through
// Update so search never lags actively edited content.
type Indexer struct {
	idx    *Index
	docs   DocumentLoader
	logger *slog.Logger
}

// NewIndexer creates an indexer writing entries into idx.
func NewIndexer(idx *Index, docs DocumentLoader, logger *slog.Logger) *Indexer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Indexer{idx: idx, docs: docs, logger: logger}
}

// Entries exposes the underlying index for query-side consumers.
func (ix *Indexer) Entries() *Index {
	return ix.idx
}

// IndexBatch loads each photo's sidecar and stores its entry. A per-item
// read failure skips that item; it stays unsearchable until the next
// successful index. Cancellation is checked at each item boundary.
func (ix *Indexer) IndexBatch(ctx context.Context, records []models.PhotoRecord) {
	for _, photo := range records {
		if ctx.Err() != nil {
			return
		}
		doc, err := ix.docs.Load(photo)
		if err != nil {
			ix.logger.Debug("search: skip unreadable sidecar",
				slog.String("path", photo.SidecarPath),
				slog.String("error", err.Error()))
			continue
		}
		text := BuildText(photo.Filename, doc.Notes, doc.Tags, doc.Labels)
		if err := ix.idx.Upsert(photo.ID(), text); err != nil {
			ix.logger.Warn("search: upsert failed",
				slog.String("path", photo.ID()),
				slog.String("error", err.Error()))
		}
	}
}

// Update rebuilds one photo's entry synchronously after an explicit edit.
func (ix *Indexer) Update(photo models.PhotoRecord, notes string, tags []string, labels []models.PointLabel) error {
	return ix.idx.Upsert(photo.ID(), BuildText(photo.Filename, notes, tags, labels))
}
