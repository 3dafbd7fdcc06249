package transcript

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
)

// Store persists conversation bookkeeping: sessions, turns, traces, and
// token usage. It shares nothing with the memory store beyond the turn ids
// memories weakly reference.
type Store struct {
	db  *sql.DB
	bus *event.Bus
}

// NewStore opens (or creates) the SQLite database at path.
func NewStore(path string) (*Store, error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create directory: %w", err)
	}

	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open transcript database: %w", err)
	}

	s := &Store{db: db}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate transcript database: %w", err)
	}

	return s, nil
}

func (s *Store) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS sessions (
		id TEXT PRIMARY KEY,
		channel TEXT NOT NULL,
		started_at DATETIME NOT NULL,
		ended_at DATETIME,
		metadata JSON
	);

	CREATE TABLE IF NOT EXISTS turns (
		id TEXT PRIMARY KEY,
		session_id TEXT NOT NULL,
		role TEXT NOT NULL,
		content TEXT NOT NULL,
		created_at DATETIME NOT NULL,
		metadata JSON
	);

	CREATE INDEX IF NOT EXISTS idx_turns_session ON turns(session_id, created_at);

	CREATE TABLE IF NOT EXISTS traces (
		id TEXT PRIMARY KEY,
		turn_id TEXT NOT NULL,
		label TEXT NOT NULL,
		steps JSON,
		created_at DATETIME NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_traces_turn ON traces(turn_id);

	CREATE TABLE IF NOT EXISTS usage (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		session_id TEXT,
		provider TEXT NOT NULL,
		model TEXT NOT NULL,
		input_tokens INTEGER NOT NULL,
		output_tokens INTEGER NOT NULL,
		created_at DATETIME NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_usage_created ON usage(created_at);
	`
	_, err := s.db.Exec(schema)
	return err
}

// SetEventBus attaches a lifecycle event bus. Events are best-effort.
func (s *Store) SetEventBus(bus *event.Bus) {
	s.bus = bus
}

// StartSession creates a new open session.
func (s *Store) StartSession(ctx context.Context, channel string, metadata map[string]interface{}) (*Session, error) {
	if channel == "" {
		channel = "default"
	}
	sess := &Session{
		ID:        uuid.NewString(),
		Channel:   channel,
		StartedAt: time.Now(),
		Metadata:  metadata,
	}

	metaJSON, err := marshalJSON(metadata)
	if err != nil {
		return nil, errors.Wrap(errors.CodeInvalidInput, "metadata is not JSON-encodable", err)
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO sessions (id, channel, started_at, metadata) VALUES (?, ?, ?, ?)
	`, sess.ID, sess.Channel, sess.StartedAt, metaJSON)
	if err != nil {
		return nil, errors.Wrap(errors.CodeStorageFailure, "failed to create session", err)
	}

	s.emit(event.SessionStarted, map[string]interface{}{"session_id": sess.ID, "channel": channel})
	return sess, nil
}

// EndSession marks a session closed. Ending an already-closed session keeps
// the original end time.
func (s *Store) EndSession(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE sessions SET ended_at = ? WHERE id = ? AND ended_at IS NULL
	`, time.Now(), id)
	if err != nil {
		return errors.Wrap(errors.CodeStorageFailure, "failed to end session", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return errors.Wrap(errors.CodeStorageFailure, "failed to end session", err)
	}
	if n == 0 {
		// Distinguish unknown from already-ended.
		if _, err := s.GetSession(ctx, id); err != nil {
			return err
		}
		return nil
	}

	s.emit(event.SessionEnded, map[string]interface{}{"session_id": id})
	return nil
}

// GetSession fetches a session by id.
func (s *Store) GetSession(ctx context.Context, id string) (*Session, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, channel, started_at, ended_at, metadata FROM sessions WHERE id = ?
	`, id)

	var (
		sess     Session
		ended    sql.NullTime
		metaJSON sql.NullString
	)
	err := row.Scan(&sess.ID, &sess.Channel, &sess.StartedAt, &ended, &metaJSON)
	if err == sql.ErrNoRows {
		return nil, errors.New(errors.CodeSessionNotFound, fmt.Sprintf("session not found: %s", id))
	}
	if err != nil {
		return nil, errors.Wrap(errors.CodeStorageFailure, "failed to read session", err)
	}
	if ended.Valid {
		sess.EndedAt = ended.Time
	}
	sess.Metadata = unmarshalJSON(metaJSON)
	return &sess, nil
}

// RecentSessions returns the most recently started n sessions, newest first.
func (s *Store) RecentSessions(ctx context.Context, n int) ([]Session, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, channel, started_at, ended_at, metadata
		FROM sessions ORDER BY started_at DESC LIMIT ?
	`, n)
	if err != nil {
		return nil, errors.Wrap(errors.CodeStorageFailure, "failed to list sessions", err)
	}
	defer rows.Close()

	var sessions []Session
	for rows.Next() {
		var (
			sess     Session
			ended    sql.NullTime
			metaJSON sql.NullString
		)
		if err := rows.Scan(&sess.ID, &sess.Channel, &sess.StartedAt, &ended, &metaJSON); err != nil {
			return nil, errors.Wrap(errors.CodeStorageFailure, "failed to scan session", err)
		}
		if ended.Valid {
			sess.EndedAt = ended.Time
		}
		sess.Metadata = unmarshalJSON(metaJSON)
		sessions = append(sessions, sess)
	}
	return sessions, rows.Err()
}

// AppendTurn adds a turn to a session's transcript.
func (s *Store) AppendTurn(ctx context.Context, sessionID, role, content string, metadata map[string]interface{}) (*Turn, error) {
	turn := &Turn{
		ID:        uuid.NewString(),
		SessionID: sessionID,
		Role:      role,
		Content:   content,
		CreatedAt: time.Now(),
		Metadata:  metadata,
	}

	metaJSON, err := marshalJSON(metadata)
	if err != nil {
		return nil, errors.Wrap(errors.CodeInvalidInput, "metadata is not JSON-encodable", err)
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO turns (id, session_id, role, content, created_at, metadata)
		VALUES (?, ?, ?, ?, ?, ?)
	`, turn.ID, turn.SessionID, turn.Role, turn.Content, turn.CreatedAt, metaJSON)
	if err != nil {
		return nil, errors.Wrap(errors.CodeStorageFailure, "failed to append turn", err)
	}

	s.emit(event.TurnAppended, map[string]interface{}{"turn_id": turn.ID, "session_id": sessionID})
	return turn, nil
}

// GetTurn fetches a turn by id.
func (s *Store) GetTurn(ctx context.Context, id string) (*Turn, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, session_id, role, content, created_at, metadata FROM turns WHERE id = ?
	`, id)

	turn, err := scanTurn(row)
	if err == sql.ErrNoRows {
		return nil, errors.New(errors.CodeTurnNotFound, fmt.Sprintf("turn not found: %s", id))
	}
	if err != nil {
		return nil, errors.Wrap(errors.CodeStorageFailure, "failed to read turn", err)
	}
	return turn, nil
}

// RecentTurns returns the most recent n turns for a session, oldest first.
func (s *Store) RecentTurns(ctx context.Context, sessionID string, n int) ([]Turn, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, session_id, role, content, created_at, metadata
		FROM turns
		WHERE session_id = ?
		ORDER BY created_at DESC, id DESC
		LIMIT ?
	`, sessionID, n)
	if err != nil {
		return nil, errors.Wrap(errors.CodeStorageFailure, "failed to load turns", err)
	}
	defer rows.Close()

	var turns []Turn
	for rows.Next() {
		turn, err := scanTurn(rows)
		if err != nil {
			return nil, errors.Wrap(errors.CodeStorageFailure, "failed to scan turn", err)
		}
		turns = append(turns, *turn)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	// Reverse so oldest is first (we queried DESC for LIMIT).
	for i, j := 0, len(turns)-1; i < j; i, j = i+1, j-1 {
		turns[i], turns[j] = turns[j], turns[i]
	}
	return turns, nil
}

// DeleteTurn removes a turn and its traces. Idempotent. Any memory entries
// weakly referencing the turn are the memory store's concern; callers clear
// those refs after this returns (see the package facade).
func (s *Store) DeleteTurn(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, "DELETE FROM turns WHERE id = ?", id)
	if err != nil {
		return errors.Wrap(errors.CodeStorageFailure, "failed to delete turn", err)
	}
	if _, err := s.db.ExecContext(ctx, "DELETE FROM traces WHERE turn_id = ?", id); err != nil {
		return errors.Wrap(errors.CodeStorageFailure, "failed to delete turn traces", err)
	}
	if n, _ := res.RowsAffected(); n > 0 {
		s.emit(event.TurnDeleted, map[string]interface{}{"turn_id": id})
	}
	return nil
}

// AppendTrace records a step log for a turn.
func (s *Store) AppendTrace(ctx context.Context, turnID, label string, steps []Step) (*Trace, error) {
	tr := &Trace{
		ID:        uuid.NewString(),
		TurnID:    turnID,
		Label:     label,
		Steps:     steps,
		CreatedAt: time.Now(),
	}

	var stepsJSON *string
	if len(steps) > 0 {
		data, err := json.Marshal(steps)
		if err != nil {
			return nil, errors.Wrap(errors.CodeInvalidInput, "steps are not JSON-encodable", err)
		}
		str := string(data)
		stepsJSON = &str
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO traces (id, turn_id, label, steps, created_at) VALUES (?, ?, ?, ?, ?)
	`, tr.ID, tr.TurnID, tr.Label, stepsJSON, tr.CreatedAt)
	if err != nil {
		return nil, errors.Wrap(errors.CodeStorageFailure, "failed to append trace", err)
	}
	return tr, nil
}

// TracesForTurn returns all traces for a turn, oldest first. A corrupted
// step log decodes to an empty step list rather than an error.
func (s *Store) TracesForTurn(ctx context.Context, turnID string) ([]Trace, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, turn_id, label, steps, created_at
		FROM traces WHERE turn_id = ? ORDER BY created_at ASC
	`, turnID)
	if err != nil {
		return nil, errors.Wrap(errors.CodeStorageFailure, "failed to load traces", err)
	}
	defer rows.Close()

	var traces []Trace
	for rows.Next() {
		var (
			tr        Trace
			stepsJSON sql.NullString
		)
		if err := rows.Scan(&tr.ID, &tr.TurnID, &tr.Label, &stepsJSON, &tr.CreatedAt); err != nil {
			return nil, errors.Wrap(errors.CodeStorageFailure, "failed to scan trace", err)
		}
		if stepsJSON.Valid && stepsJSON.String != "" {
			var steps []Step
			if err := json.Unmarshal([]byte(stepsJSON.String), &steps); err == nil {
				tr.Steps = steps
			}
		}
		traces = append(traces, tr)
	}
	return traces, rows.Err()
}

// RecordUsage appends one provider call's token accounting.
func (s *Store) RecordUsage(ctx context.Context, u Usage) error {
	if u.CreatedAt.IsZero() {
		u.CreatedAt = time.Now()
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO usage (session_id, provider, model, input_tokens, output_tokens, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`, nullIfEmpty(u.SessionID), u.Provider, u.Model, u.InputTokens, u.OutputTokens, u.CreatedAt)
	if err != nil {
		return errors.Wrap(errors.CodeStorageFailure, "failed to record usage", err)
	}
	return nil
}

// UsageTotals aggregates usage recorded at or after since. A zero since
// aggregates everything.
func (s *Store) UsageTotals(ctx context.Context, since time.Time) (*UsageTotals, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT COUNT(*), COALESCE(SUM(input_tokens), 0), COALESCE(SUM(output_tokens), 0)
		FROM usage WHERE created_at >= ?
	`, since)

	var totals UsageTotals
	if err := row.Scan(&totals.Calls, &totals.InputTokens, &totals.OutputTokens); err != nil {
		return nil, errors.Wrap(errors.CodeStorageFailure, "failed to aggregate usage", err)
	}
	return &totals, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) emit(t event.EventType, data map[string]interface{}) {
	if s.bus == nil {
		return
	}
	_ = s.bus.Emit(event.NewEvent(t, data))
}

type scanner interface {
	Scan(dest ...interface{}) error
}

func scanTurn(sc scanner) (*Turn, error) {
	var (
		turn     Turn
		metaJSON sql.NullString
	)
	if err := sc.Scan(&turn.ID, &turn.SessionID, &turn.Role, &turn.Content, &turn.CreatedAt, &metaJSON); err != nil {
		return nil, err
	}
	turn.Metadata = unmarshalJSON(metaJSON)
	return &turn, nil
}

func marshalJSON(m map[string]interface{}) (*string, error) {
	if len(m) == 0 {
		return nil, nil
	}
	data, err := json.Marshal(m)
	if err != nil {
		return nil, err
	}
	s := string(data)
	return &s, nil
}

// unmarshalJSON decodes a metadata column, treating corrupt JSON as empty.
func unmarshalJSON(ns sql.NullString) map[string]interface{} {
	if !ns.Valid || ns.String == "" {
		return nil
	}
	var m map[string]interface{}
	if err := json.Unmarshal([]byte(ns.String), &m); err != nil {
		return nil
	}
	return m
}

func nullIfEmpty(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
