// Package neo4j implements the knowledge graph store on a Cypher backend
// via the official Bolt driver.
package neo4j

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"sync"
	"time"

	"github.com/neoforge-dev/synapse/internal/util"
	"github.com/neoforge-dev/synapse/pkg/common"
	"github.com/neoforge-dev/synapse/pkg/graphstore"
	"github.com/neoforge-dev/synapse/pkg/logger"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
	"github.com/neo4j/neo4j-go-driver/v5/neo4j/db"
)

type connState int

const (
	stateDisconnected connState = iota
	stateConnecting
	stateConnected
)

// Config holds the connection settings for a Store.
type Config struct {
	URI      string
	Username string
	Password string

	// CreateMissingEndpoints controls what happens when a relationship
	// upsert references an entity that does not exist. When false (the
	// default) the edge is dropped silently; when true stub endpoint nodes
	// are created so the edge can be stored.
	CreateMissingEndpoints bool

	// Backoff drives both reconnect attempts and transient query retries.
	Backoff util.Backoff
}

// Store is a Cypher-backed graphstore.Store. Connections are established
// lazily on first use and re-established on demand after a failure.
type Store struct {
	cfg Config

	mu     sync.Mutex
	state  connState
	driver neo4j.DriverWithContext
}

var _ graphstore.Store = (*Store)(nil)

// New creates a Store. No connection is attempted until the first query.
func New(cfg Config) *Store {
	if cfg.Backoff.MaxAttempts <= 0 {
		cfg.Backoff = util.Backoff{MaxAttempts: 3, Delay: 500 * time.Millisecond, Jitter: 1}
	}
	return &Store{cfg: cfg, state: stateDisconnected}
}

func (s *Store) ensureConnected(ctx context.Context) (neo4j.DriverWithContext, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state == stateConnected {
		return s.driver, nil
	}

	s.state = stateConnecting
	err := s.cfg.Backoff.Do(ctx, func(ctx context.Context) error {
		driver, err := neo4j.NewDriverWithContext(
			s.cfg.URI,
			neo4j.BasicAuth(s.cfg.Username, s.cfg.Password, ""),
		)
		if err != nil {
			return util.Permanent(err)
		}
		if err := driver.VerifyConnectivity(ctx); err != nil {
			_ = driver.Close(ctx)
			return err
		}
		s.driver = driver
		return nil
	})
	if err != nil {
		s.state = stateDisconnected
		return nil, &graphstore.ConnectivityError{Err: err}
	}

	s.state = stateConnected
	return s.driver, nil
}

func (s *Store) markDisconnected() {
	s.mu.Lock()
	if s.driver != nil {
		_ = s.driver.Close(context.Background())
		s.driver = nil
	}
	s.state = stateDisconnected
	s.mu.Unlock()
}

// Close shuts the driver down and returns the store to the disconnected
// state.
func (s *Store) Close(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.driver == nil {
		s.state = stateDisconnected
		return nil
	}
	err := s.driver.Close(ctx)
	s.driver = nil
	s.state = stateDisconnected
	return err
}

func isTransient(err error) bool {
	var neoErr *db.Neo4jError
	if errors.As(err, &neoErr) {
		if strings.HasPrefix(neoErr.Code, "Neo.TransientError") {
			return true
		}
		if strings.Contains(neoErr.Code, "DeadlockDetected") {
			return true
		}
	}
	return false
}

// run executes a single query in an auto-commit session, retrying transient
// failures with the configured backoff. Connectivity failures flip the store
// back to disconnected so the next call reconnects.
func (s *Store) run(
	ctx context.Context,
	cypher string,
	params map[string]any,
	mode neo4j.AccessMode,
) (neo4j.ResultWithContext, neo4j.SessionWithContext, error) {
	driver, err := s.ensureConnected(ctx)
	if err != nil {
		return nil, nil, err
	}

	var result neo4j.ResultWithContext
	var session neo4j.SessionWithContext

	err = s.cfg.Backoff.Do(ctx, func(ctx context.Context) error {
		session = driver.NewSession(ctx, neo4j.SessionConfig{AccessMode: mode})
		res, err := session.Run(ctx, cypher, params)
		if err != nil {
			_ = session.Close(ctx)
			if isTransient(err) {
				return &graphstore.QueryError{Query: cypher, Err: err, Transient: true}
			}
			var neoErr *db.Neo4jError
			if errors.As(err, &neoErr) {
				return util.Permanent(&graphstore.QueryError{Query: cypher, Err: err})
			}
			s.markDisconnected()
			return util.Permanent(&graphstore.ConnectivityError{Err: err})
		}
		result = res
		return nil
	})
	if err != nil {
		return nil, nil, err
	}
	return result, session, nil
}

var identRe = regexp.MustCompile(`[^A-Za-z0-9_]`)

// sanitizeIdent restricts dynamic relationship types and property keys to
// safe identifier characters since they cannot be parameterized in Cypher.
func sanitizeIdent(s string) string {
	out := identRe.ReplaceAllString(strings.TrimSpace(s), "_")
	if out == "" {
		out = "UNKNOWN"
	}
	return out
}

// upsertEntityStmt builds the entity upsert. `SET e = $props` replaces the
// node's whole property map, so metadata keys absent from this write are
// removed rather than merged over. The original created_at survives the
// replacement.
func upsertEntityStmt(e common.Entity) (string, map[string]any) {
	cypher := `
MERGE (e:Entity {id: $id})
ON CREATE SET e.created_at = datetime()
WITH e, e.created_at AS created
SET e = $props, e.id = $id, e.created_at = created, e.updated_at = datetime()
`

	props := map[string]any{
		"name": e.Name,
		"type": e.Type,
	}
	for k, v := range e.Metadata {
		props["meta_"+k] = v
	}
	return cypher, map[string]any{
		"id":    e.ID,
		"props": props,
	}
}

// upsertRelationshipStmt builds the relationship upsert. Re-observing the
// same (source, type, target) triple increments the evidence count and
// merges new properties over existing ones.
func upsertRelationshipStmt(rel common.Relationship, createMissing bool) (string, map[string]any) {
	match := `MATCH (a:Entity {id: $src}) MATCH (b:Entity {id: $dst})`
	if createMissing {
		match = `MERGE (a:Entity {id: $src}) MERGE (b:Entity {id: $dst})`
	}

	cypher := fmt.Sprintf(`
%s
MERGE (a)-[r:%s]->(b)
ON CREATE SET r.evidence_count = 1, r += $props
ON MATCH SET r.evidence_count = coalesce(r.evidence_count, 0) + 1, r += $props
`, match, sanitizeIdent(rel.Type))

	props := map[string]any{}
	for k, v := range rel.Properties {
		props[k] = v
	}
	return cypher, map[string]any{
		"src":   rel.SourceID,
		"dst":   rel.TargetID,
		"props": props,
	}
}

// UpsertEntity creates or replaces an entity node. A re-upsert is
// last-write-wins: name, type, and metadata are replaced wholesale and only
// created_at is preserved.
func (s *Store) UpsertEntity(ctx context.Context, entity common.Entity) error {
	cypher, params := upsertEntityStmt(entity)

	result, session, err := s.run(ctx, cypher, params, neo4j.AccessModeWrite)
	if err != nil {
		return err
	}
	defer session.Close(ctx)

	_, err = result.Consume(ctx)
	return err
}

// UpsertRelationship creates or re-observes a directed edge. When either
// endpoint is missing the edge is dropped silently unless
// CreateMissingEndpoints is set, in which case stub nodes are created.
func (s *Store) UpsertRelationship(ctx context.Context, rel common.Relationship) error {
	cypher, params := upsertRelationshipStmt(rel, s.cfg.CreateMissingEndpoints)

	result, session, err := s.run(ctx, cypher, params, neo4j.AccessModeWrite)
	if err != nil {
		return err
	}
	defer session.Close(ctx)

	_, err = result.Consume(ctx)
	return err
}

// BulkUpsert applies the whole batch in a single managed transaction:
// entities first so relationships between them resolve, then relationships,
// one commit. The driver replays the transaction on transient failures.
func (s *Store) BulkUpsert(ctx context.Context, entities []common.Entity, rels []common.Relationship) error {
	if len(entities) == 0 && len(rels) == 0 {
		return nil
	}

	driver, err := s.ensureConnected(ctx)
	if err != nil {
		return err
	}

	session := driver.NewSession(ctx, neo4j.SessionConfig{AccessMode: neo4j.AccessModeWrite})
	defer session.Close(ctx)

	_, err = session.ExecuteWrite(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		for _, e := range entities {
			cypher, params := upsertEntityStmt(e)
			if _, err := tx.Run(ctx, cypher, params); err != nil {
				return nil, err
			}
		}
		for _, r := range rels {
			cypher, params := upsertRelationshipStmt(r, s.cfg.CreateMissingEndpoints)
			if _, err := tx.Run(ctx, cypher, params); err != nil {
				return nil, err
			}
		}
		return nil, nil
	})
	if err != nil {
		var neoErr *db.Neo4jError
		if errors.As(err, &neoErr) {
			return &graphstore.QueryError{Query: "bulk upsert", Err: err, Transient: isTransient(err)}
		}
		s.markDisconnected()
		return &graphstore.ConnectivityError{Err: err}
	}

	logger.Debug("bulk upsert committed", "entities", len(entities), "relationships", len(rels))
	return nil
}

// GetByID fetches a single entity or graphstore.ErrNotFound.
func (s *Store) GetByID(ctx context.Context, id string) (*common.Entity, error) {
	cypher := `MATCH (e:Entity {id: $id}) RETURN e`

	result, session, err := s.run(ctx, cypher, map[string]any{"id": id}, neo4j.AccessModeRead)
	if err != nil {
		return nil, err
	}
	defer session.Close(ctx)

	if !result.Next(ctx) {
		if err := result.Err(); err != nil {
			return nil, &graphstore.QueryError{Query: cypher, Err: err}
		}
		return nil, graphstore.ErrNotFound
	}

	node, ok := result.Record().Get("e")
	if !ok {
		return nil, graphstore.ErrNotFound
	}
	entity := nodeToEntity(node.(neo4j.Node))
	return &entity, nil
}

// GetNeighbors expands one hop from the given entity. Unknown ids yield an
// empty result, not an error.
func (s *Store) GetNeighbors(
	ctx context.Context,
	id string,
	relTypes []string,
	direction graphstore.Direction,
) (*graphstore.Neighbors, error) {
	var pattern string
	switch direction {
	case graphstore.DirectionOut:
		pattern = `(e:Entity {id: $id})-[r]->(n:Entity)`
	case graphstore.DirectionIn:
		pattern = `(e:Entity {id: $id})<-[r]-(n:Entity)`
	default:
		pattern = `(e:Entity {id: $id})-[r]-(n:Entity)`
	}

	cypher := fmt.Sprintf(`
MATCH %s
WHERE size($types) = 0 OR type(r) IN $types
RETURN startNode(r).id AS src, endNode(r).id AS dst, type(r) AS rel_type,
       r.evidence_count AS evidence, n
`, pattern)

	types := relTypes
	if types == nil {
		types = []string{}
	}

	result, session, err := s.run(ctx, cypher, map[string]any{
		"id":    id,
		"types": types,
	}, neo4j.AccessModeRead)
	if err != nil {
		return nil, err
	}
	defer session.Close(ctx)

	out := &graphstore.Neighbors{}
	seenRel := map[string]bool{}
	for result.Next(ctx) {
		record := result.Record()

		if node, ok := record.Get("n"); ok {
			out.Entities = append(out.Entities, nodeToEntity(node.(neo4j.Node)))
		}

		rel := common.Relationship{EvidenceCount: 1}
		if v, ok := record.Get("src"); ok {
			rel.SourceID, _ = v.(string)
		}
		if v, ok := record.Get("dst"); ok {
			rel.TargetID, _ = v.(string)
		}
		if v, ok := record.Get("rel_type"); ok {
			rel.Type, _ = v.(string)
		}
		if v, ok := record.Get("evidence"); ok {
			if n, ok := v.(int64); ok {
				rel.EvidenceCount = int(n)
			}
		}
		if !seenRel[rel.Key()] {
			seenRel[rel.Key()] = true
			out.Relationships = append(out.Relationships, rel)
		}
	}
	if err := result.Err(); err != nil {
		return nil, &graphstore.QueryError{Query: cypher, Err: err}
	}
	return out, nil
}

// searchStmt builds the property search query. A positive limit caps the
// result set; 0 leaves it unbounded.
func searchStmt(props map[string]string, limit int) (string, map[string]any) {
	var conditions []string
	params := map[string]any{}
	i := 0
	for k, v := range props {
		param := fmt.Sprintf("p%d", i)
		key := sanitizeIdent(k)
		if key != "name" && key != "type" && key != "id" {
			key = "meta_" + key
		}
		conditions = append(conditions, fmt.Sprintf("e.%s = $%s", key, param))
		params[param] = v
		i++
	}

	cypher := "MATCH (e:Entity)"
	if len(conditions) > 0 {
		cypher += " WHERE " + strings.Join(conditions, " AND ")
	}
	cypher += " RETURN e"
	if limit > 0 {
		cypher += " LIMIT $limit"
		params["limit"] = limit
	}
	return cypher, params
}

// SearchByProperties returns entities matching all given properties
// exactly. The "type", "name", and "id" keys match the corresponding node
// fields, everything else matches metadata. A limit of 0 returns every
// match.
func (s *Store) SearchByProperties(ctx context.Context, props map[string]string, limit int) ([]common.Entity, error) {
	cypher, params := searchStmt(props, limit)

	result, session, err := s.run(ctx, cypher, params, neo4j.AccessModeRead)
	if err != nil {
		return nil, err
	}
	defer session.Close(ctx)

	var entities []common.Entity
	for result.Next(ctx) {
		if node, ok := result.Record().Get("e"); ok {
			entities = append(entities, nodeToEntity(node.(neo4j.Node)))
		}
	}
	if err := result.Err(); err != nil {
		return nil, &graphstore.QueryError{Query: cypher, Err: err}
	}
	return entities, nil
}

// DeleteDocument removes every entity attributed to the document together
// with its relationships.
func (s *Store) DeleteDocument(ctx context.Context, documentID string) (bool, error) {
	cypher := `MATCH (e:Entity {meta_document_id: $doc}) DETACH DELETE e`

	result, session, err := s.run(ctx, cypher, map[string]any{"doc": documentID}, neo4j.AccessModeWrite)
	if err != nil {
		return false, err
	}
	defer session.Close(ctx)

	summary, err := result.Consume(ctx)
	if err != nil {
		return false, err
	}
	deleted := summary.Counters().NodesDeleted()
	if deleted > 0 {
		logger.Debug("deleted document from graph", "document_id", documentID, "nodes", deleted)
	}
	return deleted > 0, nil
}

func nodeToEntity(node neo4j.Node) common.Entity {
	e := common.Entity{}
	for k, v := range node.Props {
		switch k {
		case "id":
			e.ID, _ = v.(string)
		case "name":
			e.Name, _ = v.(string)
		case "type":
			e.Type, _ = v.(string)
		case "created_at":
			if t, ok := v.(time.Time); ok {
				e.CreatedAt = t
			}
		case "updated_at":
			if t, ok := v.(time.Time); ok {
				e.UpdatedAt = t
			}
		default:
			if strings.HasPrefix(k, "meta_") {
				if sv, ok := v.(string); ok {
					if e.Metadata == nil {
						e.Metadata = map[string]string{}
					}
					e.Metadata[strings.TrimPrefix(k, "meta_")] = sv
				}
			}
		}
	}
	return e
}
