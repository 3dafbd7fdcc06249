package testutil

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// MockEmbedder scripts an external embedding provider for tests.
// Queued vectors are consumed one Embed call at a time; when the queue
// runs out it returns a fixed unit vector so callers always get output.
type MockEmbedder struct {
	mu         sync.Mutex
	Vectors    [][]float64 // queued outputs, consumed in order
	Calls      []string    // texts passed to EmbedFn
	ShouldFail bool
	FailErr    error
	Delay      time.Duration
	idx        int
}

// EmbedFn matches memory.EmbedFunc and can be installed on an embedder.
func (m *MockEmbedder) EmbedFn(ctx context.Context, texts []string) ([][]float64, error) {
	if m.Delay > 0 {
		select {
		case <-time.After(m.Delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	m.Calls = append(m.Calls, texts...)

	if m.ShouldFail {
		if m.FailErr != nil {
			return nil, m.FailErr
		}
		return nil, fmt.Errorf("mock embedder error")
	}

	out := make([][]float64, len(texts))
	for i := range texts {
		if m.idx < len(m.Vectors) {
			out[i] = m.Vectors[m.idx]
			m.idx++
		} else {
			out[i] = []float64{1, 0, 0}
		}
	}
	return out, nil
}

// CallCount returns the number of texts embedded (thread-safe).
func (m *MockEmbedder) CallCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.Calls)
}
