package telemetry

import (
	"sync"
	"sync/atomic"
	"time"
)

// Metrics collects counters for memory store operations.
type Metrics struct {
	mu sync.RWMutex

	// Counters
	MemoriesAdded      int64
	MemoriesFetched    int64
	MemoriesUpdated    int64
	MemoriesDeleted    int64
	Searches           int64
	DedupHits          int64
	EmbeddingFallbacks int64

	// Histograms (simplified)
	searchDurations []time.Duration

	// Exporter (optional)
	exporter MetricsExporter
}

// NewMetrics creates a new metrics collector.
func NewMetrics() *Metrics {
	return &Metrics{
		searchDurations: make([]time.Duration, 0, 1000),
	}
}

// IncMemoriesAdded increments the memories-added counter.
func (m *Metrics) IncMemoriesAdded() {
	atomic.AddInt64(&m.MemoriesAdded, 1)
}

// IncMemoriesFetched increments the fetch-by-id counter.
func (m *Metrics) IncMemoriesFetched() {
	atomic.AddInt64(&m.MemoriesFetched, 1)
}

// IncMemoriesUpdated increments the memories-updated counter.
func (m *Metrics) IncMemoriesUpdated() {
	atomic.AddInt64(&m.MemoriesUpdated, 1)
}

// IncMemoriesDeleted increments the memories-deleted counter.
func (m *Metrics) IncMemoriesDeleted() {
	atomic.AddInt64(&m.MemoriesDeleted, 1)
}

// IncSearches increments the search counter.
func (m *Metrics) IncSearches() {
	atomic.AddInt64(&m.Searches, 1)
}

// IncDedupHits increments the duplicate-detection hit counter.
func (m *Metrics) IncDedupHits() {
	atomic.AddInt64(&m.DedupHits, 1)
}

// IncEmbeddingFallbacks counts provider failures absorbed by the local encoder.
func (m *Metrics) IncEmbeddingFallbacks() {
	atomic.AddInt64(&m.EmbeddingFallbacks, 1)
}

// RecordSearchDuration records how long a search took.
func (m *Metrics) RecordSearchDuration(d time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.searchDurations = append(m.searchDurations, d)
}

// GetSummary returns a summary of collected metrics.
func (m *Metrics) GetSummary() map[string]interface{} {
	m.mu.RLock()
	defer m.mu.RUnlock()

	summary := map[string]interface{}{
		"memories_added":      atomic.LoadInt64(&m.MemoriesAdded),
		"memories_fetched":    atomic.LoadInt64(&m.MemoriesFetched),
		"memories_updated":    atomic.LoadInt64(&m.MemoriesUpdated),
		"memories_deleted":    atomic.LoadInt64(&m.MemoriesDeleted),
		"searches":            atomic.LoadInt64(&m.Searches),
		"dedup_hits":          atomic.LoadInt64(&m.DedupHits),
		"embedding_fallbacks": atomic.LoadInt64(&m.EmbeddingFallbacks),
	}

	if len(m.searchDurations) > 0 {
		var total time.Duration
		for _, d := range m.searchDurations {
			total += d
		}
		summary["avg_search_duration_us"] = total.Microseconds() / int64(len(m.searchDurations))
	}

	return summary
}

// Reset resets all metrics.
func (m *Metrics) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()

	atomic.StoreInt64(&m.MemoriesAdded, 0)
	atomic.StoreInt64(&m.MemoriesFetched, 0)
	atomic.StoreInt64(&m.MemoriesUpdated, 0)
	atomic.StoreInt64(&m.MemoriesDeleted, 0)
	atomic.StoreInt64(&m.Searches, 0)
	atomic.StoreInt64(&m.DedupHits, 0)
	atomic.StoreInt64(&m.EmbeddingFallbacks, 0)

	m.searchDurations = m.searchDurations[:0]
}

// SetExporter attaches a metrics exporter.
func (m *Metrics) SetExporter(e MetricsExporter) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.exporter = e
}

// Flush exports the current metrics snapshot with the given event label.
func (m *Metrics) Flush(event string, labels map[string]string) {
	m.mu.RLock()
	exporter := m.exporter
	m.mu.RUnlock()

	if exporter == nil {
		return
	}

	snapshot := MetricsSnapshot{
		Timestamp: time.Now(),
		Event:     event,
		Metrics:   m.GetSummary(),
		Labels:    labels,
	}
	// Best-effort export.
	_ = exporter.Export(snapshot)
}
