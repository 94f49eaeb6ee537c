package catalog

import (
	"time"

	"github.com/rewdy/snaption/internal/metrics"
	"github.com/rewdy/snaption/internal/thumbs"
)

// PerformanceSnapshot is a read-only summary of the active project session.
// Latency fields are nil until the corresponding milestone is reached;
// ResidentMemoryMB is nil when the platform cannot report it.
type PerformanceSnapshot struct {
	State             State        `json:"state"`
	Status            string       `json:"status,omitempty"`
	IndexedCount      int          `json:"indexed_count"`
	FirstPaintSeconds *float64     `json:"first_paint_seconds,omitempty"`
	FullIndexSeconds  *float64     `json:"full_index_seconds,omitempty"`
	ResidentMemoryMB  *float64     `json:"resident_memory_mb,omitempty"`
	Thumbnails        thumbs.Stats `json:"thumbnails"`
}

// perfClock tracks the latency marks of one project session. All access is
// guarded by the controller mutex.
type perfClock struct {
	openedAt   time.Time
	firstPaint *float64
	fullIndex  *float64
	finalized  bool
}

func (p *perfClock) reset(now time.Time) {
	p.openedAt = now
	p.firstPaint = nil
	p.fullIndex = nil
	p.finalized = false
	metrics.FirstPaintSeconds.Set(0)
	metrics.FullIndexSeconds.Set(0)
}

// markFirstPaint records the open-to-first-visible-record latency once.
func (p *perfClock) markFirstPaint(now time.Time) {
	if p.firstPaint != nil {
		return
	}
	v := now.Sub(p.openedAt).Seconds()
	p.firstPaint = &v
	metrics.FirstPaintSeconds.Set(v)
}

// finalize closes the session clock. Only a successful run records the
// full-index latency; cancellation and errors leave it unset.
func (p *perfClock) finalize(now time.Time, success bool) {
	if p.finalized {
		return
	}
	p.finalized = true
	if success {
		v := now.Sub(p.openedAt).Seconds()
		p.fullIndex = &v
		metrics.FullIndexSeconds.Set(v)
	}
}
