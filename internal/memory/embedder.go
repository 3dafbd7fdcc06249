package memory

import (
	"context"
	"sync"

	"github.com/engram-oss/engram/internal/telemetry"
)

// EmbedFunc converts a batch of texts to embedding vectors. It is supplied by
// the hosting application once an embedding provider is configured; absence
// is a valid, permanent state.
type EmbedFunc func(ctx context.Context, texts []string) ([][]float64, error)

// Embedder adapts an optional external embedding provider and guarantees a
// vector is always produced: any provider failure silently degrades to the
// local fallback encoder. It is injected into the store at construction, not
// shared process-wide, so tests can pin a fallback-only configuration.
type Embedder struct {
	mu       sync.RWMutex
	embed    EmbedFunc
	fallback *FallbackEncoder
	metrics  *telemetry.Metrics
}

// NewEmbedder creates an adapter with no external provider configured.
func NewEmbedder(dim int, metrics *telemetry.Metrics) *Embedder {
	return &Embedder{
		fallback: NewFallbackEncoder(dim),
		metrics:  metrics,
	}
}

// SetEmbedFn installs or replaces the external embedding function. It takes
// effect for all subsequent calls; existing records are not re-embedded.
// Passing nil removes the provider.
func (e *Embedder) SetEmbedFn(fn EmbedFunc) {
	e.mu.Lock()
	e.embed = fn
	e.mu.Unlock()
}

// HasProvider reports whether an external embedding function is configured.
func (e *Embedder) HasProvider() bool {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.embed != nil
}

// Dimension returns the fallback encoder's vector size. External providers
// may produce a different dimension; the ranking engine tolerates that.
func (e *Embedder) Dimension() int {
	return e.fallback.Dimension()
}

// Generate produces an embedding for text. It never fails: provider errors
// and malformed provider output fall through to the fallback encoder, so
// embedding-provider outages cannot block writes or reads.
func (e *Embedder) Generate(ctx context.Context, text string) []float64 {
	e.mu.RLock()
	embed := e.embed
	e.mu.RUnlock()

	if embed != nil {
		vecs, err := embed(ctx, []string{text})
		if err == nil && len(vecs) > 0 && len(vecs[0]) > 0 {
			return vecs[0]
		}
		if e.metrics != nil {
			e.metrics.IncEmbeddingFallbacks()
		}
	}

	return e.fallback.Encode(text)
}
