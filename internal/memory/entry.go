package memory

import (
	"bytes"
	"encoding/binary"
	"math"
	"time"
)

// Type categorizes a memory entry. Used as a hard filter during search.
type Type string

const (
	TypeFact       Type = "fact"
	TypePreference Type = "preference"
	TypeEntity     Type = "entity"
	TypeEpisodic   Type = "episodic"
)

// Valid reports whether t is one of the known memory types.
func (t Type) Valid() bool {
	switch t {
	case TypeFact, TypePreference, TypeEntity, TypeEpisodic:
		return true
	}
	return false
}

// Entry is a single persisted memory fact.
type Entry struct {
	ID           string                 `json:"id"`
	Type         Type                   `json:"type"`
	Content      string                 `json:"content"`
	SourceTurnID string                 `json:"source_turn_id,omitempty"` // weak reference; may be cleared if the turn is deleted
	Importance   float64                `json:"importance"`               // standing ranking signal in [0,1]
	Embedding    []float64              `json:"embedding,omitempty"`
	CreatedAt    time.Time              `json:"created_at"`
	AccessedAt   time.Time              `json:"accessed_at"`
	AccessCount  int64                  `json:"access_count"`
	Metadata     map[string]interface{} `json:"metadata,omitempty"`
}

// Draft holds the caller-supplied fields for a new entry. The store assigns
// id, timestamps and access count, and generates an embedding when Embedding
// is nil.
type Draft struct {
	Type         Type
	Content      string
	SourceTurnID string
	Importance   float64
	Embedding    []float64
	Metadata     map[string]interface{}
}

// Patch describes a partial update. Nil pointer fields are left untouched.
// For the embedding, ClearEmbedding removes the stored vector; setting
// Embedding replaces it. Setting both clears (clear wins).
type Patch struct {
	Type           *Type
	Content        *string
	SourceTurnID   *string
	Importance     *float64
	Embedding      []float64
	ClearEmbedding bool
	Metadata       map[string]interface{}
}

// encodeVector serializes an embedding as little-endian IEEE-754 doubles,
// dimension × 8 bytes. Returns nil for an empty vector so the column stays
// NULL rather than holding a zero-length blob.
func encodeVector(vec []float64) []byte {
	if len(vec) == 0 {
		return nil
	}
	buf := bytes.NewBuffer(make([]byte, 0, len(vec)*8))
	for _, v := range vec {
		var raw [8]byte
		binary.LittleEndian.PutUint64(raw[:], math.Float64bits(v))
		buf.Write(raw[:])
	}
	return buf.Bytes()
}

// decodeVector parses a float64 blob written by encodeVector. A trailing
// partial value (corrupt blob) is dropped rather than reported.
func decodeVector(blob []byte) []float64 {
	n := len(blob) / 8
	if n == 0 {
		return nil
	}
	vec := make([]float64, n)
	for i := 0; i < n; i++ {
		vec[i] = math.Float64frombits(binary.LittleEndian.Uint64(blob[i*8:]))
	}
	return vec
}
