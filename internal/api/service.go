package api

import (
	"context"
	"errors"
	"fmt"
	"os"

	"golang.org/x/sync/errgroup"

	"github.com/rewdy/snaption/internal/apperr"
	"github.com/rewdy/snaption/internal/catalog"
	"github.com/rewdy/snaption/internal/checksum"
	"github.com/rewdy/snaption/internal/models"
	"github.com/rewdy/snaption/internal/search"
	"github.com/rewdy/snaption/internal/sidecar"
	"github.com/rewdy/snaption/internal/storage"
	"github.com/rewdy/snaption/internal/thumbs"
)

// prefetchLimit caps how many leading displayed photos a prefetch request
// warms, roughly one screenful of grid tiles.
const prefetchLimit = 72

// EventPublisher pushes sidecar change notifications to connected clients.
type EventPublisher interface {
	PublishSidecarEvent(kind, path string)
}

type nopPublisher struct{}

func (nopPublisher) PublishSidecarEvent(string, string) {}

// Service coordinates the catalog, the sidecar codec, the search index, and
// the thumbnail cache for the API layer.
type Service struct {
	ctl      *catalog.Controller
	store    storage.Provider
	sidecars *sidecar.Service
	indexer  *search.Indexer
	cache    *thumbs.Cache
	events   EventPublisher
}

// NewService creates a new API service.
func NewService(ctl *catalog.Controller, store storage.Provider, sidecars *sidecar.Service, indexer *search.Indexer, cache *thumbs.Cache, events EventPublisher) *Service {
	if events == nil {
		events = nopPublisher{}
	}
	return &Service{
		ctl:      ctl,
		store:    store,
		sidecars: sidecars,
		indexer:  indexer,
		cache:    cache,
		events:   events,
	}
}

// OpenProject starts indexing the given directory. The path must resolve
// inside the configured library root; the provider guard rejects anything
// the sidecar and thumbnail paths could not serve later.
func (s *Service) OpenProject(ctx context.Context, path string) error {
	info, err := s.store.Stat(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("%w: %s", apperr.ErrNotFound, path)
		}
		return fmt.Errorf("%w: %v", apperr.ErrInvalid, err)
	}
	if !info.IsDir() {
		return fmt.Errorf("%w: not a directory: %s", apperr.ErrInvalid, path)
	}
	return s.ctl.Open(ctx, path)
}

// ListPhotos applies the query state and returns the displayed view.
func (s *Service) ListPhotos(query *string, sort *catalog.SortMode, grouped *bool) PhotoListResponse {
	if query != nil {
		s.ctl.SetQuery(*query)
	}
	if sort != nil {
		s.ctl.SetSortMode(*sort)
	}
	if grouped != nil {
		s.ctl.SetGroupByFolder(*grouped)
	}

	state, status := s.ctl.State()
	resp := PhotoListResponse{
		State:   state,
		Status:  status,
		Query:   s.ctl.Query(),
		Sort:    s.ctl.SortMode(),
		Grouped: s.ctl.GroupByFolder(),
	}
	if resp.Grouped {
		resp.Groups = s.ctl.DisplayedGroups()
		for _, g := range resp.Groups {
			resp.Total += len(g.Records)
		}
	} else {
		resp.Items = s.ctl.DisplayedItems()
		resp.Total = len(resp.Items)
	}
	return resp
}

// Performance returns the current performance snapshot.
func (s *Service) Performance() catalog.PerformanceSnapshot {
	return s.ctl.Snapshot()
}

// GetSidecar loads the annotation document for a photo addressed by its
// root-relative path. The returned checksum covers the raw on-disk bytes and
// anchors optimistic concurrency on update.
func (s *Service) GetSidecar(rel string) (*SidecarDetail, error) {
	rec, ok := s.ctl.RecordForRelPath(rel)
	if !ok {
		return nil, fmt.Errorf("%w: %s", apperr.ErrNotFound, rel)
	}

	doc, err := s.sidecars.Load(rec)
	if err != nil {
		return nil, err
	}
	return s.detail(rec, doc)
}

// UpdateSidecar replaces the notes, tags, and labels of a photo's sidecar.
// Foreign front-matter keys are preserved. A non-empty ifMatch that does not
// equal the current content checksum fails with a conflict and writes
// nothing.
func (s *Service) UpdateSidecar(rel string, notes string, tags []string, labels []models.PointLabel, ifMatch string) (*SidecarDetail, error) {
	rec, ok := s.ctl.RecordForRelPath(rel)
	if !ok {
		return nil, fmt.Errorf("%w: %s", apperr.ErrNotFound, rel)
	}

	if ifMatch != "" {
		current, err := s.currentChecksum(rec)
		if err != nil {
			return nil, err
		}
		if ifMatch != current {
			return nil, fmt.Errorf("%w: sidecar changed on disk", apperr.ErrConflict)
		}
	}

	doc, err := s.sidecars.Load(rec)
	if err != nil {
		return nil, err
	}
	doc.Notes = notes
	doc.Tags = tags
	doc.Labels = sanitizeLabels(labels)

	if err := s.sidecars.Save(doc, rec); err != nil {
		return nil, fmt.Errorf("%w: %v", apperr.ErrSaveFailed, err)
	}
	s.afterEdit(rec, doc)
	return s.detail(rec, doc)
}

// AddLabel appends a point label to a photo's sidecar. Coordinates are
// clamped to the unit interval; empty text is rejected.
func (s *Service) AddLabel(rel string, x, y float64, text string) (*SidecarDetail, error) {
	rec, ok := s.ctl.RecordForRelPath(rel)
	if !ok {
		return nil, fmt.Errorf("%w: %s", apperr.ErrNotFound, rel)
	}

	label, err := models.NewPointLabel(x, y, text)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", apperr.ErrInvalid, err)
	}

	doc, err := s.sidecars.Load(rec)
	if err != nil {
		return nil, err
	}
	doc.Labels = append(doc.Labels, label)

	if err := s.sidecars.Save(doc, rec); err != nil {
		return nil, fmt.Errorf("%w: %v", apperr.ErrSaveFailed, err)
	}
	s.afterEdit(rec, doc)
	return s.detail(rec, doc)
}

// Thumbnail returns PNG thumbnail bytes for a cataloged photo.
func (s *Service) Thumbnail(rel string, maxDim int) ([]byte, error) {
	rec, ok := s.ctl.RecordForRelPath(rel)
	if !ok {
		return nil, fmt.Errorf("%w: %s", apperr.ErrNotFound, rel)
	}
	return s.cache.Thumbnail(rec.ImagePath, maxDim)
}

// PrefetchThumbnails warms the cache for the leading displayed photos.
// Decode failures are ignored; the on-demand path reports them. Returns the
// number of photos scheduled, which stops short when ctx is canceled.
func (s *Service) PrefetchThumbnails(ctx context.Context, maxDim int) int {
	items := s.ctl.DisplayedItems()
	if len(items) > prefetchLimit {
		items = items[:prefetchLimit]
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(4)
	scheduled := 0
	for _, rec := range items {
		if gctx.Err() != nil {
			break
		}
		scheduled++
		g.Go(func() error {
			if gctx.Err() != nil {
				return nil
			}
			_, _ = s.cache.Thumbnail(rec.ImagePath, maxDim)
			return nil
		})
	}
	go func() { _ = g.Wait() }()
	return scheduled
}

// afterEdit pushes an explicit edit into the search index synchronously so
// queries never lag actively edited content, then notifies clients.
func (s *Service) afterEdit(rec models.PhotoRecord, doc sidecar.Document) {
	_ = s.indexer.Update(rec, doc.Notes, doc.Tags, doc.Labels)
	s.ctl.RefreshViews()
	s.events.PublishSidecarEvent("updated", rec.RelativePath)
}

func (s *Service) detail(rec models.PhotoRecord, doc sidecar.Document) (*SidecarDetail, error) {
	cs, err := s.currentChecksum(rec)
	if err != nil {
		return nil, err
	}
	tags := doc.Tags
	if tags == nil {
		tags = []string{}
	}
	labels := doc.Labels
	if labels == nil {
		labels = []models.PointLabel{}
	}
	return &SidecarDetail{
		Photo:          rec.RelativePath,
		Filename:       rec.Filename,
		Notes:          doc.Notes,
		Tags:           tags,
		Labels:         labels,
		HadFrontMatter: doc.HadFrontMatter,
		Warning:        doc.ParseWarning,
		Checksum:       cs,
	}, nil
}

// currentChecksum digests the raw sidecar bytes; a missing file digests as
// empty content so first writes can still use If-Match.
func (s *Service) currentChecksum(rec models.PhotoRecord) (string, error) {
	raw, err := s.store.Read(rec.SidecarPath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return checksum.Sum(nil), nil
		}
		return "", err
	}
	return checksum.Sum(raw), nil
}

// sanitizeLabels clamps coordinates, drops empty-text entries, and
// synthesizes missing IDs.
func sanitizeLabels(in []models.PointLabel) []models.PointLabel {
	out := make([]models.PointLabel, 0, len(in))
	for _, l := range in {
		clean, err := models.NewPointLabel(l.X, l.Y, l.Text)
		if err != nil {
			continue
		}
		if l.ID != "" {
			clean.ID = l.ID
		}
		out = append(out, clean)
	}
	return out
}
