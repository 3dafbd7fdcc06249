// Package engram provides a public API for the engram memory store.
//
// Example usage:
//
//	import "github.com/engram-oss/engram/pkg/engram"
//
//	eng, err := engram.Open(".")
//	if err != nil {
//		log.Fatal(err)
//	}
//	defer eng.Close()
//
//	entry, created, err := eng.Remember(ctx, memory.Draft{
//		Type:       memory.TypeFact,
//		Content:    "the user prefers dark mode",
//		Importance: 0.6,
//	})
//
//	matches, err := eng.Recall(ctx, "dark mode")
package engram

import (
	"context"
	"fmt"

	"github.com/engram-oss/engram/internal/config"
	"github.com/engram-oss/engram/internal/event"
	"github.com/engram-oss/engram/internal/memory"
	"github.com/engram-oss/engram/internal/telemetry"
	"github.com/engram-oss/engram/internal/transcript"
)

// EmbedFunc is the signature for external embedding providers.
type EmbedFunc = memory.EmbedFunc

// Engram is an open memory store with its transcript log and wiring.
type Engram struct {
	Config     *config.Config
	Logger     *telemetry.Logger
	Metrics    *telemetry.Metrics
	Bus        *event.Bus
	Memory     *memory.Store
	Transcript *transcript.Store

	exporter *telemetry.JSONFileExporter
}

// Open loads dir/engram.yaml (or defaults) and opens the stores.
func Open(dir string) (*Engram, error) {
	cfg, err := config.Load(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	return OpenWithConfig(cfg)
}

// OpenWithConfig opens the stores described by cfg. The caller owns cfg;
// it is not modified.
func OpenWithConfig(cfg *config.Config) (*Engram, error) {
	logger := telemetry.NewLogger(cfg.Logging.Level, cfg.Logging.Format)
	if cfg.Logging.File != "" {
		if err := logger.WithFile(cfg.Logging.File); err != nil {
			return nil, fmt.Errorf("failed to open log file: %w", err)
		}
	}

	metrics := telemetry.NewMetrics()

	var exporter *telemetry.JSONFileExporter
	if cfg.Metrics.ExportPath != "" {
		e, err := telemetry.NewJSONFileExporter(cfg.Metrics.ExportPath)
		if err != nil {
			logger.Close()
			return nil, fmt.Errorf("failed to open metrics export file: %w", err)
		}
		exporter = e
		metrics.SetExporter(e)
	}

	bus := event.NewBus(logger)
	bus.SetEnabled(cfg.Hooks.Enabled)
	registerHooks(bus, cfg.Hooks, logger)

	embedder := memory.NewEmbedder(cfg.Embedding.Dimension, metrics)

	memStore, err := memory.NewStore(cfg.Storage.MemoryPath, embedder)
	if err != nil {
		logger.Close()
		return nil, fmt.Errorf("failed to open memory store: %w", err)
	}
	memStore.SetEventBus(bus)
	memStore.SetMetrics(metrics)

	txStore, err := transcript.NewStore(cfg.Storage.TranscriptPath)
	if err != nil {
		memStore.Close()
		logger.Close()
		return nil, fmt.Errorf("failed to open transcript store: %w", err)
	}
	txStore.SetEventBus(bus)

	logger.Debug("engram opened",
		"memory_path", cfg.Storage.MemoryPath,
		"transcript_path", cfg.Storage.TranscriptPath,
		"embedding_dimension", cfg.Embedding.Dimension)

	return &Engram{
		Config:     cfg,
		Logger:     logger,
		Metrics:    metrics,
		Bus:        bus,
		Memory:     memStore,
		Transcript: txStore,
		exporter:   exporter,
	}, nil
}

// registerHooks builds hooks from config and registers them on the bus.
func registerHooks(bus *event.Bus, cfg config.HooksConfig, logger *telemetry.Logger) {
	if !cfg.Enabled {
		return
	}
	for _, hc := range cfg.Hooks {
		events := make([]event.EventType, len(hc.Events))
		for i, e := range hc.Events {
			events[i] = event.EventType(e)
		}
		switch hc.Type {
		case "shell":
			bus.Register(event.NewShellHook(hc.Name, hc.Command, events, hc.Blocking))
		case "webhook":
			bus.Register(event.NewWebhookHook(hc.Name, hc.URL, events, hc.Blocking))
		case "log":
			bus.Register(event.NewLogHook(hc.Name, events, logger, hc.Level))
		}
	}
}

// SetEmbedFn installs an external embedding provider. Pass nil to remove it
// and fall back to the built-in encoder.
func (e *Engram) SetEmbedFn(fn EmbedFunc) {
	e.Memory.Embedder().SetEmbedFn(fn)
}

// Remember stores a memory unless a sufficiently similar one already exists.
// When a near-duplicate is found the existing entry is returned and created
// is false; the draft is discarded.
func (e *Engram) Remember(ctx context.Context, d memory.Draft) (*memory.Entry, bool, error) {
	match, err := e.Memory.FindSimilar(ctx, d.Content, d.Type, e.Config.Dedup.Threshold)
	if err != nil {
		return nil, false, err
	}
	if match != nil {
		e.Logger.Debug("remember deduplicated",
			"existing_id", match.Entry.ID, "score", match.Score)
		return &match.Entry, false, nil
	}

	entry, err := e.Memory.Add(ctx, d)
	if err != nil {
		return nil, false, err
	}
	return entry, true, nil
}

// Recall runs a hybrid search using the configured weights and limit.
func (e *Engram) Recall(ctx context.Context, query string) ([]memory.Match, error) {
	return e.Memory.Search(ctx, memory.SearchQuery{
		Query:            query,
		Limit:            e.Config.Search.Limit,
		SemanticWeight:   e.Config.Search.SemanticWeight,
		RecencyWeight:    e.Config.Search.RecencyWeight,
		ImportanceWeight: e.Config.Search.ImportanceWeight,
	})
}

// DeleteTurn removes a transcript turn and clears the source reference on
// any memories derived from it. The memories themselves are kept.
func (e *Engram) DeleteTurn(ctx context.Context, turnID string) error {
	if err := e.Transcript.DeleteTurn(ctx, turnID); err != nil {
		return err
	}
	return e.Memory.ClearTurnRefs(ctx, turnID)
}

// Close flushes metrics and closes the stores.
func (e *Engram) Close() error {
	var firstErr error

	e.Metrics.Flush("close", nil)

	if err := e.Memory.Close(); err != nil && firstErr == nil {
		firstErr = err
	}
	if err := e.Transcript.Close(); err != nil && firstErr == nil {
		firstErr = err
	}
	if e.exporter != nil {
		if err := e.exporter.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	if err := e.Logger.Close(); err != nil && firstErr == nil {
		firstErr = err
	}
	return firstErr
}
