// Package memory implements the knowledge graph store in process memory.
// It mirrors the Cypher backend's upsert semantics and doubles as the test
// backend.
package memory

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/neoforge-dev/synapse/pkg/common"
	"github.com/neoforge-dev/synapse/pkg/graphstore"
)

// Store keeps entities and relationships in maps guarded by a single lock.
type Store struct {
	mu sync.RWMutex

	entities map[string]common.Entity
	// relationship identity is the (source, type, target) triple
	rels map[string]common.Relationship

	createMissingEndpoints bool
}

var _ graphstore.Store = (*Store)(nil)

// Option configures a Store.
type Option func(*Store)

// WithCreateMissingEndpoints makes relationship upserts create stub
// endpoint nodes instead of silently dropping the edge.
func WithCreateMissingEndpoints() Option {
	return func(s *Store) { s.createMissingEndpoints = true }
}

// New creates an empty in-memory store.
func New(opts ...Option) *Store {
	s := &Store{
		entities: map[string]common.Entity{},
		rels:     map[string]common.Relationship{},
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

// UpsertEntity creates or replaces the entity identified by its id.
func (s *Store) UpsertEntity(ctx context.Context, entity common.Entity) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now()
	if existing, ok := s.entities[entity.ID]; ok {
		entity.CreatedAt = existing.CreatedAt
	} else {
		entity.CreatedAt = now
	}
	entity.UpdatedAt = now
	s.entities[entity.ID] = entity
	return nil
}

// UpsertRelationship creates or re-observes an edge. Re-observing the same
// triple increments the evidence count and merges properties. Edges whose
// endpoints are unknown are dropped unless the store was configured to
// create stubs.
func (s *Store) UpsertRelationship(ctx context.Context, rel common.Relationship) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, srcOK := s.entities[rel.SourceID]
	_, dstOK := s.entities[rel.TargetID]
	if !srcOK || !dstOK {
		if !s.createMissingEndpoints {
			return nil
		}
		now := time.Now()
		if !srcOK {
			s.entities[rel.SourceID] = common.Entity{ID: rel.SourceID, CreatedAt: now, UpdatedAt: now}
		}
		if !dstOK {
			s.entities[rel.TargetID] = common.Entity{ID: rel.TargetID, CreatedAt: now, UpdatedAt: now}
		}
	}

	key := rel.Key()
	if existing, ok := s.rels[key]; ok {
		existing.EvidenceCount++
		if len(rel.Properties) > 0 {
			if existing.Properties == nil {
				existing.Properties = map[string]any{}
			}
			for k, v := range rel.Properties {
				existing.Properties[k] = v
			}
		}
		s.rels[key] = existing
		return nil
	}

	if rel.EvidenceCount <= 0 {
		rel.EvidenceCount = 1
	}
	s.rels[key] = rel
	return nil
}

// BulkUpsert applies all entities first, then relationships.
func (s *Store) BulkUpsert(ctx context.Context, entities []common.Entity, rels []common.Relationship) error {
	for _, e := range entities {
		if err := s.UpsertEntity(ctx, e); err != nil {
			return err
		}
	}
	for _, r := range rels {
		if err := s.UpsertRelationship(ctx, r); err != nil {
			return err
		}
	}
	return nil
}

// GetByID fetches a single entity or graphstore.ErrNotFound.
func (s *Store) GetByID(ctx context.Context, id string) (*common.Entity, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	e, ok := s.entities[id]
	if !ok {
		return nil, graphstore.ErrNotFound
	}
	return &e, nil
}

// GetNeighbors expands one hop from the entity. Unknown ids yield empty
// Neighbors rather than an error.
func (s *Store) GetNeighbors(
	ctx context.Context,
	id string,
	relTypes []string,
	direction graphstore.Direction,
) (*graphstore.Neighbors, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	typeFilter := map[string]bool{}
	for _, t := range relTypes {
		typeFilter[t] = true
	}

	out := &graphstore.Neighbors{}
	seen := map[string]bool{}
	for _, rel := range s.rels {
		if len(typeFilter) > 0 && !typeFilter[rel.Type] {
			continue
		}

		var neighborID string
		switch {
		case rel.SourceID == id && (direction == graphstore.DirectionOut || direction == graphstore.DirectionBoth):
			neighborID = rel.TargetID
		case rel.TargetID == id && (direction == graphstore.DirectionIn || direction == graphstore.DirectionBoth):
			neighborID = rel.SourceID
		default:
			continue
		}

		out.Relationships = append(out.Relationships, rel)
		if !seen[neighborID] {
			seen[neighborID] = true
			if e, ok := s.entities[neighborID]; ok {
				out.Entities = append(out.Entities, e)
			}
		}
	}
	return out, nil
}

// SearchByProperties returns entities matching all given properties
// exactly. The "type" and "name" keys match the corresponding entity
// fields, everything else matches metadata. A limit of 0 returns every
// match.
func (s *Store) SearchByProperties(ctx context.Context, props map[string]string, limit int) ([]common.Entity, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var results []common.Entity
	for _, e := range s.entities {
		if entityMatches(e, props) {
			results = append(results, e)
			if limit > 0 && len(results) == limit {
				break
			}
		}
	}
	return results, nil
}

func entityMatches(e common.Entity, props map[string]string) bool {
	for k, v := range props {
		switch strings.ToLower(k) {
		case "type":
			if e.Type != v {
				return false
			}
		case "name":
			if e.Name != v {
				return false
			}
		case "id":
			if e.ID != v {
				return false
			}
		default:
			if e.Metadata[k] != v {
				return false
			}
		}
	}
	return true
}

// DeleteDocument removes every entity attributed to the document together
// with its relationships.
func (s *Store) DeleteDocument(ctx context.Context, documentID string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	deleted := false
	removed := map[string]bool{}
	for id, e := range s.entities {
		if e.Metadata["document_id"] == documentID {
			delete(s.entities, id)
			removed[id] = true
			deleted = true
		}
	}
	for key, rel := range s.rels {
		if removed[rel.SourceID] || removed[rel.TargetID] {
			delete(s.rels, key)
		}
	}
	return deleted, nil
}

// Close is a no-op for the in-memory store.
func (s *Store) Close(ctx context.Context) error {
	return nil
}
