package catalog

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/rewdy/snaption/internal/memory"
	"github.com/rewdy/snaption/internal/metrics"
	"github.com/rewdy/snaption/internal/models"
	"github.com/rewdy/snaption/internal/scan"
	"github.com/rewdy/snaption/internal/search"
	"github.com/rewdy/snaption/internal/thumbs"
)

// State names the controller's lifecycle phase.
type State string

const (
	StateIdle     State = "idle"
	StateIndexing State = "indexing"
	StateIndexed  State = "indexed"
	StateError    State = "error"
	StateCanceled State = "canceled"
)

// Notifier receives controller events. Implementations must not call back
// into the controller from the notification path.
type Notifier interface {
	CatalogPublished(count int)
	StateChanged(state State, status string)
	PerformanceUpdated(snap PerformanceSnapshot)
}

// NopNotifier discards all events.
type NopNotifier struct{}

func (NopNotifier) CatalogPublished(int)                   {}
func (NopNotifier) StateChanged(State, string)             {}
func (NopNotifier) PerformanceUpdated(PerformanceSnapshot) {}

// Walker streams the library as batches of photo records. *scan.Scanner is
// the production implementation.
type Walker interface {
	Scan(ctx context.Context, root string) <-chan scan.Batch
}

// Group is one folder partition of the displayed records.
type Group struct {
	Key     string               `json:"key"`
	Records []models.PhotoRecord `json:"records"`
}

// Options tune the publish throttle and the performance poller.
type Options struct {
	PublishThreshold int
	PollInterval     time.Duration
	SearchQueueDepth int
}

// DefaultOptions match the interactive profile: first paint immediately,
// then redraw only every 25 merged records, perf refresh every 500ms.
func DefaultOptions() Options {
	return Options{
		PublishThreshold: 25,
		PollInterval:     500 * time.Millisecond,
		SearchQueueDepth: 16,
	}
}

// generation ties together the goroutines of one project load so a re-open
// can cancel and await all of them before establishing new ones.
type generation struct {
	cancel   context.CancelFunc
	stopPoll context.CancelFunc
	done     chan struct{}
}

// Controller owns the catalog: the merged accumulator, the externally
// published snapshot, the query state, and the derived views.
type Controller struct {
	scanner Walker
	indexer *search.Indexer
	cache   *thumbs.Cache
	notify  Notifier
	logger  *slog.Logger
	opts    Options
	now     func() time.Time

	mu          sync.Mutex
	state       State
	status      string
	root        string
	merged      []models.PhotoRecord // canonical filename-ascending order
	published   []models.PhotoRecord
	unpublished int
	query       string
	sortMode    SortMode
	grouped     bool
	displayed   []models.PhotoRecord
	groups      []Group
	perf        perfClock
	gen         *generation
}

// NewController wires the controller to its collaborators. A nil notifier
// or logger falls back to a no-op notifier and the default logger.
func NewController(scanner Walker, indexer *search.Indexer, cache *thumbs.Cache, opts Options, notify Notifier, logger *slog.Logger) *Controller {
	if opts.PublishThreshold <= 0 {
		opts.PublishThreshold = DefaultOptions().PublishThreshold
	}
	if opts.PollInterval <= 0 {
		opts.PollInterval = DefaultOptions().PollInterval
	}
	if opts.SearchQueueDepth <= 0 {
		opts.SearchQueueDepth = DefaultOptions().SearchQueueDepth
	}
	if notify == nil {
		notify = NopNotifier{}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Controller{
		scanner:  scanner,
		indexer:  indexer,
		cache:    cache,
		notify:   notify,
		logger:   logger,
		opts:     opts,
		now:      time.Now,
		state:    StateIdle,
		sortMode: SortFilenameAsc,
	}
}

// Open starts indexing root. Any in-flight load is canceled and awaited
// first, so at most one walk, one search-index task, and one poller exist
// per controller. The search query resets only when root differs from the
// previously opened project; sort mode and grouping always persist.
func (c *Controller) Open(ctx context.Context, root string) error {
	c.mu.Lock()
	prior := c.gen
	c.mu.Unlock()
	if prior != nil {
		prior.cancel()
		<-prior.done
	}

	if err := c.indexer.Entries().Reset(); err != nil {
		return fmt.Errorf("catalog: reset search index: %w", err)
	}
	c.cache.Reset()

	genCtx, cancel := context.WithCancel(ctx)
	pollCtx, stopPoll := context.WithCancel(genCtx)
	gen := &generation{cancel: cancel, stopPoll: stopPoll, done: make(chan struct{})}

	c.mu.Lock()
	if c.root != root {
		c.query = ""
	}
	c.root = root
	c.state = StateIndexing
	c.status = ""
	c.merged = nil
	c.published = nil
	c.unpublished = 0
	c.perf.reset(c.now())
	c.recomputeLocked()
	c.gen = gen
	c.mu.Unlock()

	metrics.IndexerRunsTotal.Inc()
	metrics.IndexerIsRunning.Set(1)
	metrics.CatalogIndexedCount.Set(0)
	c.notify.StateChanged(StateIndexing, "")
	c.logger.Info("catalog: open project", slog.String("root", root))

	searchCh := make(chan []models.PhotoRecord, c.opts.SearchQueueDepth)

	g, gctx := errgroup.WithContext(genCtx)
	g.Go(func() error {
		c.runWalk(gctx, gen, root, searchCh)
		return nil
	})
	g.Go(func() error {
		for records := range searchCh {
			c.indexer.IndexBatch(gctx, records)
		}
		return nil
	})
	g.Go(func() error {
		c.runPoller(pollCtx)
		return nil
	})
	go func() {
		_ = g.Wait()
		cancel()
		close(gen.done)
	}()
	return nil
}

// Close cancels any in-flight load and awaits its goroutines.
func (c *Controller) Close() {
	c.mu.Lock()
	gen := c.gen
	c.mu.Unlock()
	if gen != nil {
		gen.cancel()
		<-gen.done
	}
}

// runWalk consumes the batch stream: per-batch local sort, linear merge into
// the accumulator, throttled publish, and dispatch to the search worker.
func (c *Controller) runWalk(ctx context.Context, gen *generation, root string, searchCh chan<- []models.PhotoRecord) {
	defer close(searchCh)

	batches := c.scanner.Scan(ctx, root)
	for b := range batches {
		if b.Err != nil {
			metrics.IndexerErrorsTotal.Inc()
			// Records emitted before the failure stay visible, so flush
			// anything still below the publish threshold.
			c.mu.Lock()
			flushed := 0
			if c.unpublished > 0 {
				flushed = c.publishLocked()
			}
			c.mu.Unlock()
			if flushed > 0 {
				c.notify.CatalogPublished(flushed)
			}
			c.finish(gen, StateError, "indexing failed: "+b.Err.Error())
			return
		}

		batch := slices.Clone(b.Records)
		slices.SortStableFunc(batch, compareCanonical)

		c.mu.Lock()
		c.merged = mergeSorted(c.merged, batch, compareCanonical)
		c.unpublished += len(batch)
		publishedNow := 0
		if c.perf.firstPaint == nil || c.unpublished >= c.opts.PublishThreshold {
			publishedNow = c.publishLocked()
		}
		c.mu.Unlock()

		metrics.IndexerBatchesTotal.Inc()
		if publishedNow > 0 {
			c.notify.CatalogPublished(publishedNow)
			c.notify.PerformanceUpdated(c.Snapshot())
		}

		select {
		case searchCh <- b.Records:
		case <-ctx.Done():
			c.finish(gen, StateCanceled, "")
			return
		}
	}

	if ctx.Err() != nil {
		c.finish(gen, StateCanceled, "")
		return
	}

	c.mu.Lock()
	flushed := 0
	if c.unpublished > 0 {
		flushed = c.publishLocked()
	}
	c.mu.Unlock()
	if flushed > 0 {
		c.notify.CatalogPublished(flushed)
	}
	c.finish(gen, StateIndexed, "")
}

// publishLocked copies the accumulator into the externally visible snapshot
// and recomputes the derived views. Returns the published record count.
func (c *Controller) publishLocked() int {
	c.published = slices.Clone(c.merged)
	c.unpublished = 0
	c.perf.markFirstPaint(c.now())
	c.recomputeLocked()
	metrics.CatalogPublishesTotal.Inc()
	metrics.CatalogIndexedCount.Set(float64(len(c.published)))
	return len(c.published)
}

// finish transitions out of indexing, stops the poller immediately, and
// finalizes the performance clock exactly once. A finish belonging to a
// superseded generation is a no-op.
func (c *Controller) finish(gen *generation, state State, status string) {
	gen.stopPoll()

	c.mu.Lock()
	if c.gen != gen {
		c.mu.Unlock()
		return
	}
	c.state = state
	c.status = status
	c.perf.finalize(c.now(), state == StateIndexed)
	snap := c.snapshotLocked()
	c.mu.Unlock()

	metrics.IndexerIsRunning.Set(0)
	c.notify.StateChanged(state, status)
	c.notify.PerformanceUpdated(snap)
	c.logger.Info("catalog: indexing finished",
		slog.String("state", string(state)),
		slog.Int("count", snap.IndexedCount))
}

// runPoller refreshes the performance snapshot on a fixed interval while
// indexing is active. Its context is canceled the instant indexing ends.
func (c *Controller) runPoller(ctx context.Context) {
	t := time.NewTicker(c.opts.PollInterval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			c.notify.PerformanceUpdated(c.Snapshot())
		}
	}
}

// recomputeLocked rebuilds displayed and groups from the published snapshot
// under the current query, sort mode, and grouping flag. A record matches a
// non-empty query only if it already has a search entry containing the
// query; unindexed records never match (fail closed).
func (c *Controller) recomputeLocked() {
	base := c.published
	q := strings.ToLower(strings.TrimSpace(c.query))
	if q == "" {
		base = slices.Clone(base)
	} else {
		matched, err := c.indexer.Entries().Match(q)
		if err != nil {
			c.logger.Warn("catalog: query failed", slog.String("error", err.Error()))
			matched = nil
		}
		filtered := make([]models.PhotoRecord, 0, len(base))
		for _, r := range base {
			if _, ok := matched[r.ID()]; ok {
				filtered = append(filtered, r)
			}
		}
		base = filtered
	}

	if c.sortMode != SortFilenameAsc {
		slices.SortStableFunc(base, c.sortMode.Compare)
	}
	c.displayed = base

	c.groups = nil
	if c.grouped {
		c.groups = buildGroups(base)
	}
}

// buildGroups partitions records by parent folder, preserving the incoming
// order inside each group; groups are ordered by locale-aware key comparison.
func buildGroups(records []models.PhotoRecord) []Group {
	byKey := make(map[string][]models.PhotoRecord)
	keys := make([]string, 0, 8)
	for _, r := range records {
		k := r.Folder()
		if _, ok := byKey[k]; !ok {
			keys = append(keys, k)
		}
		byKey[k] = append(byKey[k], r)
	}
	slices.SortFunc(keys, localeCompare)

	groups := make([]Group, 0, len(keys))
	for _, k := range keys {
		groups = append(groups, Group{Key: k, Records: byKey[k]})
	}
	return groups
}

// SetQuery replaces the free-text filter and recomputes the views.
func (c *Controller) SetQuery(q string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.query == q {
		return
	}
	c.query = q
	c.recomputeLocked()
}

// Query returns the active free-text filter.
func (c *Controller) Query() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.query
}

// SetSortMode switches the active sort order and recomputes the views.
func (c *Controller) SetSortMode(m SortMode) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.sortMode == m {
		return
	}
	c.sortMode = m
	c.recomputeLocked()
}

// SortMode returns the active sort order.
func (c *Controller) SortMode() SortMode {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.sortMode
}

// SetGroupByFolder toggles folder grouping of the displayed records.
func (c *Controller) SetGroupByFolder(on bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.grouped == on {
		return
	}
	c.grouped = on
	c.recomputeLocked()
}

// GroupByFolder reports whether folder grouping is active.
func (c *Controller) GroupByFolder() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.grouped
}

// DisplayedItems returns the filtered, sorted view of the published catalog.
func (c *Controller) DisplayedItems() []models.PhotoRecord {
	c.mu.Lock()
	defer c.mu.Unlock()
	return slices.Clone(c.displayed)
}

// DisplayedGroups returns the folder partition of the displayed records, or
// nil when grouping is off.
func (c *Controller) DisplayedGroups() []Group {
	c.mu.Lock()
	defer c.mu.Unlock()
	return slices.Clone(c.groups)
}

// State returns the lifecycle phase and its status message.
func (c *Controller) State() (State, string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state, c.status
}

// Root returns the currently opened project root, empty before first open.
func (c *Controller) Root() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.root
}

// Record looks up a merged record by its ID (absolute image path).
func (c *Controller) Record(id string) (models.PhotoRecord, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, r := range c.merged {
		if r.ID() == id {
			return r, true
		}
	}
	return models.PhotoRecord{}, false
}

// RecordForRelPath looks up a merged record by its root-relative path; the
// HTTP surface addresses photos this way so absolute paths never cross the
// wire.
func (c *Controller) RecordForRelPath(rel string) (models.PhotoRecord, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, r := range c.merged {
		if r.RelativePath == rel {
			return r, true
		}
	}
	return models.PhotoRecord{}, false
}

// RecordForSidecar looks up a merged record by its sidecar path; used by the
// sidecar watcher to map file events back to photos.
func (c *Controller) RecordForSidecar(path string) (models.PhotoRecord, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, r := range c.merged {
		if r.SidecarPath == path {
			return r, true
		}
	}
	return models.PhotoRecord{}, false
}

// RefreshViews recomputes the displayed views; called after a synchronous
// search-entry update so query results never lag an explicit edit.
func (c *Controller) RefreshViews() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.recomputeLocked()
}

// Snapshot returns the current performance summary.
func (c *Controller) Snapshot() PerformanceSnapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.snapshotLocked()
}

func (c *Controller) snapshotLocked() PerformanceSnapshot {
	snap := PerformanceSnapshot{
		State:             c.state,
		Status:            c.status,
		IndexedCount:      len(c.merged),
		FirstPaintSeconds: c.perf.firstPaint,
		FullIndexSeconds:  c.perf.fullIndex,
		Thumbnails:        c.cache.Stats(),
	}
	if mb, ok := memory.ResidentMB(); ok {
		snap.ResidentMemoryMB = &mb
	}
	return snap
}
