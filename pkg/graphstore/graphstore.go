// Package graphstore defines the knowledge graph persistence contract and
// its error taxonomy.
package graphstore

import (
	"context"
	"errors"
	"fmt"

	"github.com/neoforge-dev/synapse/pkg/common"
)

// Direction selects which edges GetNeighbors follows relative to the
// starting entity.
type Direction string

const (
	DirectionOut  Direction = "out"
	DirectionIn   Direction = "in"
	DirectionBoth Direction = "both"
)

// ErrNotFound is returned when a lookup targets an entity that does not
// exist in the graph.
var ErrNotFound = errors.New("entity not found")

// ConnectivityError wraps failures to reach the graph backend. Operations
// that return it may succeed on retry once the backend is reachable again.
type ConnectivityError struct {
	Err error
}

func (e *ConnectivityError) Error() string {
	return fmt.Sprintf("graph store unreachable: %v", e.Err)
}

func (e *ConnectivityError) Unwrap() error { return e.Err }

// QueryError wraps a failed graph query. Transient marks errors that are
// safe to retry, such as deadlocks or leader switches.
type QueryError struct {
	Query     string
	Err       error
	Transient bool
}

func (e *QueryError) Error() string {
	return fmt.Sprintf("graph query failed: %v", e.Err)
}

func (e *QueryError) Unwrap() error { return e.Err }

// Neighbors is the result of a one-hop expansion around an entity.
type Neighbors struct {
	Entities      []common.Entity
	Relationships []common.Relationship
}

// Store is the knowledge graph persistence contract.
//
// Upserts are idempotent: an entity is identified by its id, a relationship
// by its (source, type, target) triple. Re-upserting an entity replaces its
// name and metadata; re-observing a relationship increments its evidence
// count and merges new properties over existing ones.
type Store interface {
	// UpsertEntity creates or updates an entity node.
	UpsertEntity(ctx context.Context, entity common.Entity) error

	// UpsertRelationship creates or re-observes a directed edge. Behavior
	// when an endpoint is missing is implementation-configured: by default
	// the edge is dropped silently.
	UpsertRelationship(ctx context.Context, rel common.Relationship) error

	// BulkUpsert applies entities first, then relationships.
	BulkUpsert(ctx context.Context, entities []common.Entity, rels []common.Relationship) error

	// GetByID fetches a single entity or ErrNotFound.
	GetByID(ctx context.Context, id string) (*common.Entity, error)

	// GetNeighbors expands one hop from the entity, optionally filtered to
	// the given relationship types. An unknown id yields empty Neighbors,
	// not an error.
	GetNeighbors(ctx context.Context, id string, relTypes []string, direction Direction) (*Neighbors, error)

	// SearchByProperties returns entities whose properties exactly match
	// all entries in props. The "type" key matches the entity type. A
	// positive limit caps the result count; 0 means unlimited.
	SearchByProperties(ctx context.Context, props map[string]string, limit int) ([]common.Entity, error)

	// DeleteDocument removes all graph data attributed to the document and
	// reports whether anything was deleted.
	DeleteDocument(ctx context.Context, documentID string) (bool, error)

	// Close releases backend resources.
	Close(ctx context.Context) error
}
