package transcript

import "time"

// Session groups the turns of one conversation.
type Session struct {
	ID        string                 `json:"id"`
	Channel   string                 `json:"channel"` // e.g. cli, api
	StartedAt time.Time              `json:"started_at"`
	EndedAt   time.Time              `json:"ended_at,omitempty"` // zero while the session is open
	Metadata  map[string]interface{} `json:"metadata,omitempty"`
}

// Open reports whether the session has not been ended.
func (s *Session) Open() bool {
	return s.EndedAt.IsZero()
}

// Turn is a single message in a session's transcript. Memories may hold a
// weak reference to a turn id; deleting a turn leaves those memories in
// place with the reference cleared.
type Turn struct {
	ID        string                 `json:"id"`
	SessionID string                 `json:"session_id"`
	Role      string                 `json:"role"` // user, assistant, system, tool
	Content   string                 `json:"content"`
	CreatedAt time.Time              `json:"created_at"`
	Metadata  map[string]interface{} `json:"metadata,omitempty"`
}

// Step is one entry in a trace's step log.
type Step struct {
	Name   string `json:"name"`
	Detail string `json:"detail,omitempty"`
}

// Trace records what happened while producing a turn (tool calls, retries,
// retrieval decisions). Steps are stored as JSON; a corrupted step log reads
// back as empty rather than failing retrieval.
type Trace struct {
	ID        string    `json:"id"`
	TurnID    string    `json:"turn_id"`
	Label     string    `json:"label"`
	Steps     []Step    `json:"steps,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// Usage is one provider call's token accounting.
type Usage struct {
	SessionID    string    `json:"session_id,omitempty"`
	Provider     string    `json:"provider"`
	Model        string    `json:"model"`
	InputTokens  int64     `json:"input_tokens"`
	OutputTokens int64     `json:"output_tokens"`
	CreatedAt    time.Time `json:"created_at"`
}

// UsageTotals aggregates usage rows.
type UsageTotals struct {
	Calls        int64 `json:"calls"`
	InputTokens  int64 `json:"input_tokens"`
	OutputTokens int64 `json:"output_tokens"`
}
