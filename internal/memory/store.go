package memory

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"

	"github.com/engram-oss/engram/internal/errors"
	"github.com/engram-oss/engram/internal/event"
	"github.com/engram-oss/engram/internal/telemetry"
)

// Store persists memory entries in a SQLite database. It owns all records:
// callers always receive copies, never live references. Mutations assume a
// single logical writer; reads may run concurrently with writes and see
// row-level (not full-record) atomicity.
type Store struct {
	db       *sql.DB
	embedder *Embedder
	bus      *event.Bus
	metrics  *telemetry.Metrics
	now      func() time.Time
}

// NewStore opens (or creates) the SQLite database at path. The embedder is
// required: it guarantees Add can always produce a vector.
func NewStore(path string, embedder *Embedder) (*Store, error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create directory: %w", err)
	}

	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open memory database: %w", err)
	}

	s := &Store{db: db, embedder: embedder, now: time.Now}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate memory database: %w", err)
	}

	return s, nil
}

func (s *Store) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS memories (
		id TEXT PRIMARY KEY,
		type TEXT NOT NULL,
		content TEXT NOT NULL,
		source_turn_id TEXT,
		importance REAL NOT NULL DEFAULT 0.5,
		embedding BLOB,
		created_at DATETIME NOT NULL,
		accessed_at DATETIME NOT NULL,
		access_count INTEGER NOT NULL DEFAULT 0,
		metadata JSON
	);

	CREATE INDEX IF NOT EXISTS idx_memories_type ON memories(type);
	CREATE INDEX IF NOT EXISTS idx_memories_importance ON memories(importance);
	CREATE INDEX IF NOT EXISTS idx_memories_source_turn ON memories(source_turn_id);
	`
	_, err := s.db.Exec(schema)
	return err
}

// SetEventBus attaches a lifecycle event bus. Events are best-effort.
func (s *Store) SetEventBus(bus *event.Bus) {
	s.bus = bus
}

// SetMetrics attaches a metrics collector.
func (s *Store) SetMetrics(m *telemetry.Metrics) {
	s.metrics = m
}

// Embedder returns the store's embedding adapter, e.g. so the hosting
// application can install a provider function after startup.
func (s *Store) Embedder() *Embedder {
	return s.embedder
}

// Add persists a new entry from the draft. When the draft carries no
// embedding, one is obtained synchronously from the adapter; the fallback
// encoder guarantees this never fails for embedding reasons.
func (s *Store) Add(ctx context.Context, d Draft) (*Entry, error) {
	if !d.Type.Valid() {
		return nil, errors.New(errors.CodeInvalidInput, fmt.Sprintf("unknown memory type %q", d.Type)).
			WithSuggestion("use one of fact, preference, entity, episodic")
	}

	embedding := d.Embedding
	if embedding == nil {
		embedding = s.embedder.Generate(ctx, d.Content)
	}

	now := s.now()
	e := &Entry{
		ID:           uuid.NewString(),
		Type:         d.Type,
		Content:      d.Content,
		SourceTurnID: d.SourceTurnID,
		Importance:   d.Importance,
		Embedding:    embedding,
		CreatedAt:    now,
		AccessedAt:   now,
		AccessCount:  0,
		Metadata:     d.Metadata,
	}

	metaJSON, err := encodeMetadata(e.Metadata)
	if err != nil {
		return nil, errors.Wrap(errors.CodeInvalidInput, "metadata is not JSON-encodable", err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO memories (id, type, content, source_turn_id, importance, embedding, created_at, accessed_at, access_count, metadata)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, e.ID, string(e.Type), e.Content, nullString(e.SourceTurnID), e.Importance,
		encodeVector(e.Embedding), e.CreatedAt, e.AccessedAt, e.AccessCount, metaJSON)
	if err != nil {
		return nil, errors.Wrap(errors.CodeStorageFailure, "failed to insert memory", err)
	}

	if s.metrics != nil {
		s.metrics.IncMemoriesAdded()
	}
	s.emit(event.MemoryAdded, e.ID, e.Type)

	return e, nil
}

// Get fetches an entry by id. As a side effect it bumps accessed_at to now
// and increments access_count, returning the post-update values.
func (s *Store) Get(ctx context.Context, id string) (*Entry, error) {
	res, err := s.db.ExecContext(ctx, `
		UPDATE memories SET accessed_at = ?, access_count = access_count + 1 WHERE id = ?
	`, s.now(), id)
	if err != nil {
		return nil, errors.Wrap(errors.CodeStorageFailure, "failed to touch memory", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return nil, errors.Wrap(errors.CodeStorageFailure, "failed to touch memory", err)
	}
	if n == 0 {
		return nil, errors.New(errors.CodeMemoryNotFound, fmt.Sprintf("memory not found: %s", id))
	}

	e, err := s.fetch(ctx, id)
	if err != nil {
		return nil, err
	}

	if s.metrics != nil {
		s.metrics.IncMemoriesFetched()
	}
	s.emit(event.MemoryAccessed, e.ID, e.Type)

	return e, nil
}

// Update applies a partial update. Only fields present in the patch change;
// ClearEmbedding removes the stored vector (distinct from leaving Embedding
// nil, which keeps it).
func (s *Store) Update(ctx context.Context, id string, p Patch) (*Entry, error) {
	e, err := s.fetch(ctx, id)
	if err != nil {
		return nil, err
	}

	if p.Type != nil {
		if !p.Type.Valid() {
			return nil, errors.New(errors.CodeInvalidInput, fmt.Sprintf("unknown memory type %q", *p.Type)).
				WithSuggestion("use one of fact, preference, entity, episodic")
		}
		e.Type = *p.Type
	}
	if p.Content != nil {
		e.Content = *p.Content
	}
	if p.SourceTurnID != nil {
		e.SourceTurnID = *p.SourceTurnID
	}
	if p.Importance != nil {
		e.Importance = *p.Importance
	}
	if p.ClearEmbedding {
		e.Embedding = nil
	} else if p.Embedding != nil {
		e.Embedding = p.Embedding
	}
	if p.Metadata != nil {
		e.Metadata = p.Metadata
	}

	metaJSON, err := encodeMetadata(e.Metadata)
	if err != nil {
		return nil, errors.Wrap(errors.CodeInvalidInput, "metadata is not JSON-encodable", err)
	}

	_, err = s.db.ExecContext(ctx, `
		UPDATE memories
		SET type = ?, content = ?, source_turn_id = ?, importance = ?, embedding = ?, metadata = ?
		WHERE id = ?
	`, string(e.Type), e.Content, nullString(e.SourceTurnID), e.Importance,
		encodeVector(e.Embedding), metaJSON, id)
	if err != nil {
		return nil, errors.Wrap(errors.CodeStorageFailure, "failed to update memory", err)
	}

	if s.metrics != nil {
		s.metrics.IncMemoriesUpdated()
	}
	s.emit(event.MemoryUpdated, e.ID, e.Type)

	return e, nil
}

// Delete removes an entry. Idempotent: deleting a nonexistent id is not an
// error.
func (s *Store) Delete(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, "DELETE FROM memories WHERE id = ?", id)
	if err != nil {
		return errors.Wrap(errors.CodeStorageFailure, "failed to delete memory", err)
	}
	if n, _ := res.RowsAffected(); n > 0 {
		if s.metrics != nil {
			s.metrics.IncMemoriesDeleted()
		}
		s.emit(event.MemoryDeleted, id, "")
	}
	return nil
}

// ClearTurnRefs clears the weak source_turn_id reference on every entry that
// points at the given turn. Entries survive; only the reference goes away.
func (s *Store) ClearTurnRefs(ctx context.Context, turnID string) error {
	_, err := s.db.ExecContext(ctx, `
		UPDATE memories SET source_turn_id = NULL WHERE source_turn_id = ?
	`, turnID)
	if err != nil {
		return errors.Wrap(errors.CodeStorageFailure, "failed to clear turn references", err)
	}
	return nil
}

// Candidates fetches up to n entries passing the hard filters, ordered by
// importance then recency of access. This is the bounded candidate set the
// ranking engine scores; there is deliberately no substring filter on any
// query text here.
func (s *Store) Candidates(ctx context.Context, typ Type, minImportance float64, n int) ([]Entry, error) {
	query := `
		SELECT id, type, content, source_turn_id, importance, embedding, created_at, accessed_at, access_count, metadata
		FROM memories
		WHERE importance >= ?
	`
	args := []interface{}{minImportance}
	if typ != "" {
		query += " AND type = ?"
		args = append(args, string(typ))
	}
	query += " ORDER BY importance DESC, accessed_at DESC LIMIT ?"
	args = append(args, n)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, errors.Wrap(errors.CodeStorageFailure, "failed to query candidates", err)
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return nil, errors.Wrap(errors.CodeStorageFailure, "failed to scan candidate", err)
		}
		entries = append(entries, *e)
	}
	return entries, rows.Err()
}

// Count returns the number of stored entries.
func (s *Store) Count(ctx context.Context) (int64, error) {
	var n int64
	err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM memories").Scan(&n)
	return n, err
}

// CountMismatchedDimension returns how many entries carry a vector whose
// length differs from dim. Zero-padding keeps them comparable but not truly
// so; this count lets a host schedule a re-embedding pass.
func (s *Store) CountMismatchedDimension(ctx context.Context, dim int) (int64, error) {
	var n int64
	err := s.db.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM memories WHERE embedding IS NOT NULL AND length(embedding) != ?
	`, dim*8).Scan(&n)
	return n, err
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// fetch reads a single entry without the access-tracking side effect.
func (s *Store) fetch(ctx context.Context, id string) (*Entry, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, type, content, source_turn_id, importance, embedding, created_at, accessed_at, access_count, metadata
		FROM memories WHERE id = ?
	`, id)

	e, err := scanEntry(row)
	if err == sql.ErrNoRows {
		return nil, errors.New(errors.CodeMemoryNotFound, fmt.Sprintf("memory not found: %s", id))
	}
	if err != nil {
		return nil, errors.Wrap(errors.CodeStorageFailure, "failed to read memory", err)
	}
	return e, nil
}

func (s *Store) emit(t event.EventType, id string, typ Type) {
	if s.bus == nil {
		return
	}
	data := map[string]interface{}{"memory_id": id}
	if typ != "" {
		data["memory_type"] = string(typ)
	}
	// Best-effort: blocking hook failures don't fail store operations.
	_ = s.bus.Emit(event.NewEvent(t, data))
}

// scanner covers both *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...interface{}) error
}

func scanEntry(sc scanner) (*Entry, error) {
	var (
		e        Entry
		typ      string
		turnID   sql.NullString
		blob     []byte
		metaJSON sql.NullString
	)
	if err := sc.Scan(&e.ID, &typ, &e.Content, &turnID, &e.Importance, &blob,
		&e.CreatedAt, &e.AccessedAt, &e.AccessCount, &metaJSON); err != nil {
		return nil, err
	}
	e.Type = Type(typ)
	if turnID.Valid {
		e.SourceTurnID = turnID.String
	}
	e.Embedding = decodeVector(blob)
	if metaJSON.Valid && metaJSON.String != "" {
		// Corrupt metadata reads as empty rather than failing retrieval.
		var meta map[string]interface{}
		if err := json.Unmarshal([]byte(metaJSON.String), &meta); err == nil {
			e.Metadata = meta
		}
	}
	return &e, nil
}

func encodeMetadata(meta map[string]interface{}) (*string, error) {
	if len(meta) == 0 {
		return nil, nil
	}
	data, err := json.Marshal(meta)
	if err != nil {
		return nil, err
	}
	s := string(data)
	return &s, nil
}

func nullString(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
