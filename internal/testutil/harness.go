package testutil

import (
	"path/filepath"
	"testing"

	"github.com/engram-oss/engram/internal/config"
	"github.com/engram-oss/engram/internal/event"
	"github.com/engram-oss/engram/internal/memory"
	"github.com/engram-oss/engram/internal/telemetry"
	"github.com/engram-oss/engram/internal/transcript"
)

// TestHarness provides everything needed for integration tests:
// config, stores, events, a scripted embedder, and assertion helpers.
type TestHarness struct {
	T          *testing.T
	Config     *config.Config
	Memory     *memory.Store
	Transcript *transcript.Store
	EventBus   *event.Bus
	Logger     *telemetry.Logger
	Metrics    *telemetry.Metrics
	Embed      *MockEmbedder
	Events     []event.Event // captured events
}

// NewTestHarness creates a test harness backed by temp databases.
func NewTestHarness(t *testing.T) *TestHarness {
	t.Helper()

	cfg := TestConfig(t.TempDir())
	logger := TestLogger()
	metrics := telemetry.NewMetrics()
	bus := event.NewBus(logger)

	embedder := memory.NewEmbedder(cfg.Embedding.Dimension, metrics)
	mock := &MockEmbedder{}

	memStore, err := memory.NewStore(cfg.Storage.MemoryPath, embedder)
	if err != nil {
		t.Fatal(err)
	}
	memStore.SetEventBus(bus)
	memStore.SetMetrics(metrics)
	t.Cleanup(func() { memStore.Close() })

	txStore, err := transcript.NewStore(cfg.Storage.TranscriptPath)
	if err != nil {
		t.Fatal(err)
	}
	txStore.SetEventBus(bus)
	t.Cleanup(func() { txStore.Close() })

	h := &TestHarness{
		T:          t,
		Config:     cfg,
		Memory:     memStore,
		Transcript: txStore,
		EventBus:   bus,
		Logger:     logger,
		Metrics:    metrics,
		Embed:      mock,
		Events:     make([]event.Event, 0),
	}

	// Capture events via a hook
	bus.Register(&eventCapture{harness: h})

	return h
}

// UseMockEmbedder installs the scripted embedder as the external provider.
// Without this, stores use the fallback encoder.
func (h *TestHarness) UseMockEmbedder() {
	h.Memory.Embedder().SetEmbedFn(h.Embed.EmbedFn)
}

// SetVectors queues mock embedder outputs, consumed one call at a time.
func (h *TestHarness) SetVectors(vectors ...[]float64) {
	h.Embed.Vectors = vectors
}

// AssertEventEmitted checks that an event with the given type was emitted.
func (h *TestHarness) AssertEventEmitted(eventType event.EventType) {
	h.T.Helper()
	for _, e := range h.Events {
		if e.Type == eventType {
			return
		}
	}
	h.T.Errorf("expected event %q to be emitted", eventType)
}

// AssertNoEvent checks that an event type was NOT emitted.
func (h *TestHarness) AssertNoEvent(eventType event.EventType) {
	h.T.Helper()
	for _, e := range h.Events {
		if e.Type == eventType {
			h.T.Errorf("expected event %q NOT to be emitted, but it was", eventType)
			return
		}
	}
}

// EventCount returns the number of events with the given type.
func (h *TestHarness) EventCount(eventType event.EventType) int {
	count := 0
	for _, e := range h.Events {
		if e.Type == eventType {
			count++
		}
	}
	return count
}

// eventCapture is a hook that records events.
type eventCapture struct {
	harness *TestHarness
}

func (c *eventCapture) Name() string                 { return "test-capture" }
func (c *eventCapture) Matches(event.EventType) bool { return true } // match all
func (c *eventCapture) IsBlocking() bool             { return true } // sync for tests

func (c *eventCapture) Handle(ev event.Event) error {
	c.harness.Events = append(c.harness.Events, ev)
	return nil
}

// TestConfig returns a config rooted at dir, suitable for tests.
func TestConfig(dir string) *config.Config {
	return &config.Config{
		Name: "test-project",
		Storage: config.StorageConfig{
			MemoryPath:     filepath.Join(dir, "memories.db"),
			TranscriptPath: filepath.Join(dir, "transcript.db"),
		},
		Embedding: config.EmbeddingConfig{Dimension: 64},
		Search: config.SearchConfig{
			SemanticWeight:   0.5,
			RecencyWeight:    0.2,
			ImportanceWeight: 0.3,
			Limit:            20,
		},
		Dedup: config.DedupConfig{Threshold: 0.75},
		Logging: config.LoggingConfig{
			Level:  "debug",
			Format: "text",
		},
	}
}

// TestLogger returns a logger suitable for tests (verbose, no file output).
func TestLogger() *telemetry.Logger {
	return telemetry.NewLogger("debug", "text")
}
