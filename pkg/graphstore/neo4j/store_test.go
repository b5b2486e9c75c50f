package neo4j

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/neoforge-dev/synapse/internal/util"
	"github.com/neoforge-dev/synapse/pkg/common"
	"github.com/neoforge-dev/synapse/pkg/graphstore"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j/db"
)

func TestSanitizeIdent(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"plain", "WORKS_AT", "WORKS_AT"},
		{"spaces and dashes", "works at-org", "works_at_org"},
		{"injection characters", "X]->() DETACH DELETE", "X______DETACH_DELETE"},
		{"empty", "", "UNKNOWN"},
		{"whitespace only", "   ", "UNKNOWN"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := sanitizeIdent(tt.in); got != tt.want {
				t.Fatalf("sanitizeIdent(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestIsTransient(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"transient code", &db.Neo4jError{Code: "Neo.TransientError.Transaction.Terminated"}, true},
		{"deadlock", &db.Neo4jError{Code: "Neo.ClientError.Transaction.DeadlockDetected"}, true},
		{"client error", &db.Neo4jError{Code: "Neo.ClientError.Statement.SyntaxError"}, false},
		{"plain error", errors.New("connection reset"), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := isTransient(tt.err); got != tt.want {
				t.Fatalf("isTransient(%v) = %v, want %v", tt.err, got, tt.want)
			}
		})
	}
}

func TestNewDefaultsBackoff(t *testing.T) {
	s := New(Config{URI: "bolt://localhost:7687"})
	if s.cfg.Backoff.MaxAttempts != 3 {
		t.Fatalf("expected 3 attempts, got %d", s.cfg.Backoff.MaxAttempts)
	}
	if s.cfg.Backoff.Delay != 500*time.Millisecond {
		t.Fatalf("expected 500ms delay, got %v", s.cfg.Backoff.Delay)
	}

	custom := New(Config{Backoff: util.Backoff{MaxAttempts: 7, Delay: time.Second}})
	if custom.cfg.Backoff.MaxAttempts != 7 {
		t.Fatalf("expected custom attempts preserved, got %d", custom.cfg.Backoff.MaxAttempts)
	}
}

// The backoff loop checks the context before dialing, so a canceled context
// must surface as a connectivity error without touching the network.
func TestCanceledContextSurfacesConnectivityError(t *testing.T) {
	s := New(Config{URI: "bolt://localhost:7687"})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := s.UpsertEntity(ctx, common.Entity{ID: "e1", Name: "Alice", Type: "Person"})
	if err == nil {
		t.Fatal("expected error, got nil")
	}
	var connErr *graphstore.ConnectivityError
	if !errors.As(err, &connErr) {
		t.Fatalf("expected ConnectivityError, got %T: %v", err, err)
	}
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled in chain, got %v", err)
	}
	if s.state != stateDisconnected {
		t.Fatalf("expected store to stay disconnected, got state %d", s.state)
	}
}

func TestBulkUpsertCanceledContext(t *testing.T) {
	s := New(Config{URI: "bolt://localhost:7687"})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := s.BulkUpsert(ctx, []common.Entity{{ID: "e1"}}, nil)
	var connErr *graphstore.ConnectivityError
	if !errors.As(err, &connErr) {
		t.Fatalf("expected ConnectivityError, got %T: %v", err, err)
	}

	if err := s.BulkUpsert(ctx, nil, nil); err != nil {
		t.Fatalf("empty batch should be a no-op, got %v", err)
	}
}

func TestUpsertEntityStmtReplacesProperties(t *testing.T) {
	cypher, params := upsertEntityStmt(common.Entity{
		ID:       "e1",
		Name:     "Alice",
		Type:     "Person",
		Metadata: map[string]string{"document_id": "doc-1"},
	})

	// full replacement, not a merge, so stale metadata keys disappear
	if !strings.Contains(cypher, "SET e = $props") {
		t.Fatalf("expected whole-map property replacement, got:\n%s", cypher)
	}
	if strings.Contains(cypher, "e += $props") {
		t.Fatalf("expected no property merge on entity upsert, got:\n%s", cypher)
	}
	if !strings.Contains(cypher, "e.created_at = created") {
		t.Fatalf("expected created_at preserved across replacement, got:\n%s", cypher)
	}

	props, ok := params["props"].(map[string]any)
	if !ok {
		t.Fatalf("expected props map, got %T", params["props"])
	}
	if props["name"] != "Alice" || props["type"] != "Person" {
		t.Fatalf("unexpected props: %v", props)
	}
	if props["meta_document_id"] != "doc-1" {
		t.Fatalf("expected prefixed metadata key, got %v", props)
	}
	if params["id"] != "e1" {
		t.Fatalf("expected id param, got %v", params["id"])
	}
}

func TestUpsertRelationshipStmt(t *testing.T) {
	rel := common.Relationship{SourceID: "e1", TargetID: "e2", Type: "works at"}

	cypher, params := upsertRelationshipStmt(rel, false)
	if !strings.Contains(cypher, "MATCH (a:Entity {id: $src})") {
		t.Fatalf("expected strict endpoint match, got:\n%s", cypher)
	}
	if !strings.Contains(cypher, "[r:works_at]") {
		t.Fatalf("expected sanitized relationship type, got:\n%s", cypher)
	}
	if !strings.Contains(cypher, "coalesce(r.evidence_count, 0) + 1") {
		t.Fatalf("expected evidence increment on re-observe, got:\n%s", cypher)
	}
	if params["src"] != "e1" || params["dst"] != "e2" {
		t.Fatalf("unexpected params: %v", params)
	}

	stubbed, _ := upsertRelationshipStmt(rel, true)
	if !strings.Contains(stubbed, "MERGE (a:Entity {id: $src})") {
		t.Fatalf("expected stub endpoint creation, got:\n%s", stubbed)
	}
}

func TestSearchStmt(t *testing.T) {
	cypher, params := searchStmt(map[string]string{"type": "Person"}, 0)
	if !strings.Contains(cypher, "e.type = $p0") {
		t.Fatalf("expected type property condition, got %q", cypher)
	}
	if strings.Contains(cypher, "LIMIT") {
		t.Fatalf("limit 0 must leave the query unbounded, got %q", cypher)
	}
	if params["p0"] != "Person" {
		t.Fatalf("unexpected params: %v", params)
	}

	cypher, params = searchStmt(map[string]string{"document_id": "doc-1"}, 25)
	if !strings.Contains(cypher, "e.meta_document_id = $p0") {
		t.Fatalf("expected prefixed metadata condition, got %q", cypher)
	}
	if !strings.HasSuffix(cypher, "LIMIT $limit") {
		t.Fatalf("expected parameterized limit clause, got %q", cypher)
	}
	if params["limit"] != 25 {
		t.Fatalf("expected limit param 25, got %v", params["limit"])
	}

	cypher, _ = searchStmt(nil, 0)
	if strings.Contains(cypher, "WHERE") {
		t.Fatalf("empty props must not emit a WHERE clause, got %q", cypher)
	}
}
