package poller

import (
	"sync/atomic"
	"time"

	"github.com/chtzvt/rekorslurp/internal/etl"
)

type Metrics struct {
	Cycles         int64 // atomic
	EmptyCycles    int64 // atomic
	EntriesFetched int64 // atomic
	RecordsEmitted int64 // atomic
	EntriesSkipped int64 // atomic
	EntriesFailed  int64 // atomic
	lastCycleTime  int64 // nanoseconds, atomic
}

// MetricsSnapshot is a point-in-time copy of Metrics.
type MetricsSnapshot struct {
	Cycles         int64         `json:"cycles"`
	EmptyCycles    int64         `json:"empty_cycles"`
	EntriesFetched int64         `json:"entries_fetched"`
	RecordsEmitted int64         `json:"records_emitted"`
	EntriesSkipped int64         `json:"entries_skipped"`
	EntriesFailed  int64         `json:"entries_failed"`
	LastCycleTime  time.Duration `json:"last_cycle_ns"`
}

func (m *Metrics) Snapshot() MetricsSnapshot {
	return MetricsSnapshot{
		Cycles:         atomic.LoadInt64(&m.Cycles),
		EmptyCycles:    atomic.LoadInt64(&m.EmptyCycles),
		EntriesFetched: atomic.LoadInt64(&m.EntriesFetched),
		RecordsEmitted: atomic.LoadInt64(&m.RecordsEmitted),
		EntriesSkipped: atomic.LoadInt64(&m.EntriesSkipped),
		EntriesFailed:  atomic.LoadInt64(&m.EntriesFailed),
		LastCycleTime:  time.Duration(atomic.LoadInt64(&m.lastCycleTime)),
	}
}

// Helper methods for atomic increments
func (m *Metrics) IncCycles() {
	atomic.AddInt64(&m.Cycles, 1)
}
func (m *Metrics) IncEmptyCycles() {
	atomic.AddInt64(&m.EmptyCycles, 1)
}
func (m *Metrics) AddFetched(n int) {
	atomic.AddInt64(&m.EntriesFetched, int64(n))
}
func (m *Metrics) AddBatch(s etl.BatchStats) {
	atomic.AddInt64(&m.RecordsEmitted, int64(s.Emitted))
	atomic.AddInt64(&m.EntriesSkipped, int64(s.Skipped))
	atomic.AddInt64(&m.EntriesFailed, int64(s.Failed))
}
func (m *Metrics) SetLastCycleTime(d time.Duration) {
	atomic.StoreInt64(&m.lastCycleTime, d.Nanoseconds())
}
