package common

import (
	"fmt"
	"strings"
	"time"
)

// Entity represents a node in the knowledge graph. An entity can be an
// organization, person, location, or any other relevant concept. The Type
// maps to a graph label in the backing store.
//
// IDs are stable: either caller-assigned or derived from the normalized
// name and type via EntityID. Re-upserting the same ID replaces Name and
// Metadata without creating a duplicate node.
type Entity struct {
	ID        string            `json:"id"`
	Name      string            `json:"name"`
	Type      string            `json:"type"`
	Metadata  map[string]string `json:"metadata,omitempty"`
	CreatedAt time.Time         `json:"created_at,omitempty"`
	UpdatedAt time.Time         `json:"updated_at,omitempty"`
}

// Relationship represents a directional edge between two entities.
// Its identity is the triple (SourceID, Type, TargetID); re-observing the
// same triple increments EvidenceCount and merges new properties instead
// of creating a second edge.
type Relationship struct {
	SourceID      string         `json:"source_id"`
	TargetID      string         `json:"target_id"`
	Type          string         `json:"type"`
	Properties    map[string]any `json:"properties,omitempty"`
	EvidenceCount int            `json:"evidence_count"`
}

// Key returns the identity key of the relationship triple.
func (r Relationship) Key() string {
	return r.SourceID + "|" + r.Type + "|" + r.TargetID
}

// Chunk is a contiguous segment of text extracted from a document.
// Chunks are embedded once at ingestion time and are immutable afterwards;
// Score is an ephemeral retrieval-time value, never persisted as ground truth.
type Chunk struct {
	ID         string            `json:"id"`
	Text       string            `json:"text"`
	DocumentID string            `json:"document_id"`
	Embedding  []float32         `json:"embedding,omitempty"`
	Metadata   map[string]string `json:"metadata,omitempty"`
	Score      float64           `json:"score,omitempty"`
}

// SearchResult pairs a chunk with its retrieval score. Ordering by Score
// descending is a retrieval-time view.
type SearchResult struct {
	Chunk Chunk   `json:"chunk"`
	Score float64 `json:"score"`
}

// GraphContext is the fused set of entities and relationships surfaced
// alongside retrieved text chunks.
type GraphContext struct {
	Entities      []Entity       `json:"entities"`
	Relationships []Relationship `json:"relationships"`
}

// EntityID derives a stable entity id from a normalized name and type.
// The same (name, type) pair always yields the same id.
func EntityID(name, entityType string) string {
	norm := func(s string) string {
		s = strings.ToLower(strings.TrimSpace(s))
		return strings.Join(strings.Fields(s), "-")
	}
	return fmt.Sprintf("%s:%s", norm(entityType), norm(name))
}
