package catalog

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/rewdy/snaption/internal/models"
	"github.com/rewdy/snaption/internal/scan"
	"github.com/rewdy/snaption/internal/search"
	"github.com/rewdy/snaption/internal/sidecar"
	"github.com/rewdy/snaption/internal/storage"
	"github.com/rewdy/snaption/internal/testutil"
	"github.com/rewdy/snaption/internal/thumbs"
)

// recordingNotifier captures controller events for assertions.
type recordingNotifier struct {
	mu        sync.Mutex
	publishes []int
	states    []State
}

func (n *recordingNotifier) CatalogPublished(count int) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.publishes = append(n.publishes, count)
}

func (n *recordingNotifier) StateChanged(s State, _ string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.states = append(n.states, s)
}

func (n *recordingNotifier) PerformanceUpdated(PerformanceSnapshot) {}

func (n *recordingNotifier) publishCounts() []int {
	n.mu.Lock()
	defer n.mu.Unlock()
	out := make([]int, len(n.publishes))
	copy(out, n.publishes)
	return out
}

func writeLibrary(t *testing.T, dir string, names ...string) {
	t.Helper()
	for _, name := range names {
		path := filepath.Join(dir, filepath.FromSlash(name))
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			t.Fatal(err)
		}
		if err := os.WriteFile(path, []byte("img"), 0o644); err != nil {
			t.Fatal(err)
		}
	}
}

func writeSidecar(t *testing.T, dir, photo, notes string) {
	t.Helper()
	body := "---\nphoto: x\n---\n\n" + notes + "\n"
	testutil.WriteSidecar(t, filepath.Join(dir, photo), body)
}

func newWalkerController(t *testing.T, dir string, walker Walker, notify Notifier) (*Controller, *search.Index) {
	t.Helper()
	idx := testutil.TestIndex(t)

	store, err := storage.NewFS(dir)
	if err != nil {
		t.Fatal(err)
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
	indexer := search.NewIndexer(idx, sidecar.NewService(store), logger)
	cache := thumbs.NewCacheWithRenderer(thumbs.DefaultOptions(), func(string, int) ([]byte, error) {
		return []byte("thumb"), nil
	})

	c := NewController(walker, indexer, cache, Options{
		PublishThreshold: 25,
		PollInterval:     10 * time.Millisecond,
	}, notify, logger)
	t.Cleanup(c.Close)
	return c, idx
}

func newTestController(t *testing.T, dir string, batchSize int, notify Notifier) (*Controller, *search.Index) {
	t.Helper()
	return newWalkerController(t, dir, scan.NewScanner(batchSize), notify)
}

// stubWalker replays a fixed batch stream regardless of the requested root.
type stubWalker struct {
	batches []scan.Batch
}

func (s stubWalker) Scan(_ context.Context, _ string) <-chan scan.Batch {
	out := make(chan scan.Batch, len(s.batches))
	for _, b := range s.batches {
		out <- b
	}
	close(out)
	return out
}

func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for %s", what)
}

func waitIndexed(t *testing.T, c *Controller) {
	t.Helper()
	waitFor(t, "indexing to complete", func() bool {
		s, _ := c.State()
		return s == StateIndexed
	})
}

func TestOpen_IndexesAllRecordsInOrder(t *testing.T) {
	dir := t.TempDir()
	writeLibrary(t, dir, "IMG_0100.jpg", "IMG_0002.jpg", "IMG_0010.jpg", "notes.txt")

	c, _ := newTestController(t, dir, 2, nil)
	if err := c.Open(context.Background(), dir); err != nil {
		t.Fatal(err)
	}
	waitIndexed(t, c)

	items := c.DisplayedItems()
	want := []string{"IMG_0002.jpg", "IMG_0010.jpg", "IMG_0100.jpg"}
	if len(items) != len(want) {
		t.Fatalf("got %d items, want %d", len(items), len(want))
	}
	for i, r := range items {
		if r.Filename != want[i] {
			t.Errorf("items[%d] = %s, want %s", i, r.Filename, want[i])
		}
	}
}

func TestOpen_PublishThrottle(t *testing.T) {
	dir := t.TempDir()
	names := make([]string, 30)
	for i := range names {
		names[i] = fmt.Sprintf("IMG_%04d.jpg", i)
	}
	writeLibrary(t, dir, names...)

	notify := &recordingNotifier{}
	c, _ := newTestController(t, dir, 10, notify)
	if err := c.Open(context.Background(), dir); err != nil {
		t.Fatal(err)
	}
	waitIndexed(t, c)

	// Batches of 10 against a threshold of 25: the first batch publishes
	// immediately (first paint), the next two accumulate below threshold,
	// and the end-of-stream flush publishes the rest.
	counts := notify.publishCounts()
	if len(counts) != 2 {
		t.Fatalf("got %d publishes (%v), want 2", len(counts), counts)
	}
	if counts[0] != 10 || counts[1] != 30 {
		t.Errorf("publish counts = %v, want [10 30]", counts)
	}
}

func TestOpen_FlushesRemainderAtCompletion(t *testing.T) {
	dir := t.TempDir()
	writeLibrary(t, dir, "a.jpg", "b.jpg", "c.jpg")

	notify := &recordingNotifier{}
	c, _ := newTestController(t, dir, 1, notify)
	if err := c.Open(context.Background(), dir); err != nil {
		t.Fatal(err)
	}
	waitIndexed(t, c)

	if got := len(c.DisplayedItems()); got != 3 {
		t.Errorf("displayed %d items after completion, want 3", got)
	}
}

func TestOpen_MissingRootEntersErrorState(t *testing.T) {
	dir := t.TempDir()
	c, _ := newTestController(t, dir, 2, nil)
	if err := c.Open(context.Background(), filepath.Join(dir, "nope")); err != nil {
		t.Fatal(err)
	}
	waitFor(t, "error state", func() bool {
		s, _ := c.State()
		return s == StateError
	})
	if _, status := c.State(); status == "" {
		t.Error("error state carries no status message")
	}
}

func TestOpen_RecordsBeforeEnumerationErrorStayVisible(t *testing.T) {
	first := []models.PhotoRecord{
		rec("IMG_0001.jpg", "IMG_0001.jpg", time.Time{}),
		rec("IMG_0002.jpg", "IMG_0002.jpg", time.Time{}),
	}
	// Small enough to sit below the publish threshold when the stream fails.
	tail := []models.PhotoRecord{
		rec("IMG_0003.jpg", "IMG_0003.jpg", time.Time{}),
		rec("IMG_0004.jpg", "IMG_0004.jpg", time.Time{}),
		rec("IMG_0005.jpg", "IMG_0005.jpg", time.Time{}),
	}

	notify := &recordingNotifier{}
	c, _ := newWalkerController(t, t.TempDir(), stubWalker{batches: []scan.Batch{
		{Records: first},
		{Records: tail},
		{Err: errors.New("walk interrupted")},
	}}, notify)

	if err := c.Open(context.Background(), "/lib"); err != nil {
		t.Fatal(err)
	}
	waitFor(t, "error state", func() bool {
		s, _ := c.State()
		return s == StateError
	})

	want := len(first) + len(tail)
	if got := len(c.DisplayedItems()); got != want {
		t.Errorf("displayed %d items after failed walk, want %d", got, want)
	}
	counts := notify.publishCounts()
	if len(counts) == 0 || counts[len(counts)-1] != want {
		t.Errorf("publish counts = %v, want final flush of %d", counts, want)
	}
}

func TestSortToggle_PreservesMembershipAndIsIdempotent(t *testing.T) {
	dir := t.TempDir()
	writeLibrary(t, dir, "IMG_0002.jpg", "IMG_0010.jpg", "IMG_0100.jpg")

	c, _ := newTestController(t, dir, 75, nil)
	if err := c.Open(context.Background(), dir); err != nil {
		t.Fatal(err)
	}
	waitIndexed(t, c)

	asc := c.DisplayedItems()
	c.SetSortMode(SortFilenameDesc)
	desc := c.DisplayedItems()

	if len(asc) != len(desc) {
		t.Fatal("toggle changed set membership")
	}
	for i := range asc {
		if asc[i].Filename != desc[len(desc)-1-i].Filename {
			t.Error("descending is not the exact reverse of ascending")
			break
		}
	}

	c.SetSortMode(SortFilenameAsc)
	back := c.DisplayedItems()
	for i := range asc {
		if asc[i].Filename != back[i].Filename {
			t.Error("toggle-toggle is not idempotent")
			break
		}
	}
}

func TestFilter_MatchesSubstringAndFailsClosed(t *testing.T) {
	dir := t.TempDir()
	writeLibrary(t, dir, "alpha.jpg", "beta.jpg")
	writeSidecar(t, dir, "alpha.jpg", "sunset over the harbor")
	writeSidecar(t, dir, "beta.jpg", "mountain trail")

	c, idx := newTestController(t, dir, 75, nil)
	if err := c.Open(context.Background(), dir); err != nil {
		t.Fatal(err)
	}
	waitIndexed(t, c)
	waitFor(t, "search index to fill", func() bool {
		n, err := idx.Count()
		return err == nil && n == 2
	})

	c.SetQuery("harbor")
	c.RefreshViews()
	if items := c.DisplayedItems(); len(items) != 1 || items[0].Filename != "alpha.jpg" {
		t.Errorf("query harbor matched %v", items)
	}

	c.SetQuery("glacier")
	if items := c.DisplayedItems(); len(items) != 0 {
		t.Errorf("query glacier matched %d items, want 0", len(items))
	}

	// Filename substrings match through the derived entry text.
	c.SetQuery("beta")
	if items := c.DisplayedItems(); len(items) != 1 || items[0].Filename != "beta.jpg" {
		t.Errorf("query beta matched %v", items)
	}

	// A record without a search entry never matches a non-empty query.
	rec, ok := c.Record(filepath.Join(dir, "beta.jpg"))
	if !ok {
		t.Fatal("beta.jpg not in catalog")
	}
	if err := idx.Delete(rec.ID()); err != nil {
		t.Fatal(err)
	}
	c.RefreshViews()
	if items := c.DisplayedItems(); len(items) != 0 {
		t.Errorf("unindexed record matched query, got %v", items)
	}

	// Empty query matches everything, indexed or not.
	c.SetQuery("  ")
	if items := c.DisplayedItems(); len(items) != 2 {
		t.Errorf("blank query matched %d items, want 2", len(items))
	}
}

func TestGrouping_PartitionsByFolder(t *testing.T) {
	dir := t.TempDir()
	writeLibrary(t, dir, "root.jpg", "trips/rome/a.jpg", "trips/rome/b.jpg", "zoo/c.jpg")

	c, _ := newTestController(t, dir, 75, nil)
	if err := c.Open(context.Background(), dir); err != nil {
		t.Fatal(err)
	}
	waitIndexed(t, c)

	if c.DisplayedGroups() != nil {
		t.Error("groups present while grouping is off")
	}

	c.SetGroupByFolder(true)
	groups := c.DisplayedGroups()
	wantKeys := []string{"/", "trips/rome", "zoo"}
	if len(groups) != len(wantKeys) {
		t.Fatalf("got %d groups, want %d", len(groups), len(wantKeys))
	}
	for i, g := range groups {
		if g.Key != wantKeys[i] {
			t.Errorf("groups[%d].Key = %s, want %s", i, g.Key, wantKeys[i])
		}
	}
	if len(groups[1].Records) != 2 {
		t.Errorf("trips/rome has %d records, want 2", len(groups[1].Records))
	}
}

func TestReopen_QueryResetsOnlyForDifferentRoot(t *testing.T) {
	dirA := t.TempDir()
	dirB := t.TempDir()
	writeLibrary(t, dirA, "a.jpg")
	writeLibrary(t, dirB, "b.jpg")

	c, _ := newTestController(t, dirA, 75, nil)
	if err := c.Open(context.Background(), dirA); err != nil {
		t.Fatal(err)
	}
	waitIndexed(t, c)

	c.SetQuery("keepme")
	c.SetSortMode(SortModifiedDesc)
	c.SetGroupByFolder(true)

	// Reloading the same root keeps the query.
	if err := c.Open(context.Background(), dirA); err != nil {
		t.Fatal(err)
	}
	waitIndexed(t, c)
	if c.Query() != "keepme" {
		t.Error("query reset on same-root reload")
	}

	// Opening a different root resets the query but keeps sort and grouping.
	if err := c.Open(context.Background(), dirB); err != nil {
		t.Fatal(err)
	}
	waitIndexed(t, c)
	if c.Query() != "" {
		t.Error("query survived a different-root open")
	}
	if c.SortMode() != SortModifiedDesc {
		t.Error("sort mode reset on open")
	}
	if !c.GroupByFolder() {
		t.Error("grouping flag reset on open")
	}
}

func TestReopen_DiscardsPriorCatalog(t *testing.T) {
	dirA := t.TempDir()
	dirB := t.TempDir()
	writeLibrary(t, dirA, "a1.jpg", "a2.jpg")
	writeLibrary(t, dirB, "b1.jpg")

	c, idx := newTestController(t, dirA, 75, nil)
	if err := c.Open(context.Background(), dirA); err != nil {
		t.Fatal(err)
	}
	waitIndexed(t, c)

	if err := c.Open(context.Background(), dirB); err != nil {
		t.Fatal(err)
	}
	waitIndexed(t, c)

	items := c.DisplayedItems()
	if len(items) != 1 || items[0].Filename != "b1.jpg" {
		t.Errorf("catalog after reopen = %v", items)
	}
	waitFor(t, "search index rebuild", func() bool {
		n, err := idx.Count()
		return err == nil && n == 1
	})
}

func TestClose_AwaitsGeneration(t *testing.T) {
	dir := t.TempDir()
	writeLibrary(t, dir, "a.jpg")

	c, _ := newTestController(t, dir, 75, nil)
	if err := c.Open(context.Background(), dir); err != nil {
		t.Fatal(err)
	}
	c.Close()

	s, _ := c.State()
	if s != StateIndexed && s != StateCanceled {
		t.Errorf("state after close = %s", s)
	}
	// A second close is a no-op.
	c.Close()
}

func TestSnapshot_TracksMilestones(t *testing.T) {
	dir := t.TempDir()
	writeLibrary(t, dir, "a.jpg", "b.jpg")

	c, _ := newTestController(t, dir, 75, nil)

	before := c.Snapshot()
	if before.FirstPaintSeconds != nil || before.FullIndexSeconds != nil {
		t.Error("latency marks set before any open")
	}

	if err := c.Open(context.Background(), dir); err != nil {
		t.Fatal(err)
	}
	waitIndexed(t, c)

	snap := c.Snapshot()
	if snap.State != StateIndexed {
		t.Errorf("snapshot state = %s", snap.State)
	}
	if snap.IndexedCount != 2 {
		t.Errorf("indexed count = %d, want 2", snap.IndexedCount)
	}
	if snap.FirstPaintSeconds == nil {
		t.Error("first paint latency not recorded")
	}
	if snap.FullIndexSeconds == nil {
		t.Error("full index latency not recorded")
	}
}
