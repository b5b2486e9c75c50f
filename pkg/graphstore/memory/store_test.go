package memory

import (
	"context"
	"errors"
	"testing"

	"github.com/neoforge-dev/synapse/pkg/common"
	"github.com/neoforge-dev/synapse/pkg/graphstore"
)

func TestUpsertEntityIdempotent(t *testing.T) {
	ctx := context.Background()
	s := New()

	first := common.Entity{ID: "person:alice", Name: "Alice", Type: "PERSON"}
	if err := s.UpsertEntity(ctx, first); err != nil {
		t.Fatalf("first upsert: %v", err)
	}

	updated := common.Entity{
		ID:       "person:alice",
		Name:     "Alice Smith",
		Type:     "PERSON",
		Metadata: map[string]string{"document_id": "doc-1"},
	}
	if err := s.UpsertEntity(ctx, updated); err != nil {
		t.Fatalf("second upsert: %v", err)
	}

	got, err := s.GetByID(ctx, "person:alice")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.Name != "Alice Smith" {
		t.Errorf("name not replaced: got %q", got.Name)
	}
	if got.Metadata["document_id"] != "doc-1" {
		t.Errorf("metadata not replaced: got %v", got.Metadata)
	}
	if got.CreatedAt.IsZero() || got.UpdatedAt.IsZero() {
		t.Errorf("timestamps not stamped: %+v", got)
	}
	if got.UpdatedAt.Before(got.CreatedAt) {
		t.Errorf("updated_at before created_at")
	}
}

func TestGetByIDNotFound(t *testing.T) {
	s := New()
	_, err := s.GetByID(context.Background(), "missing")
	if !errors.Is(err, graphstore.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestRelationshipEvidenceCount(t *testing.T) {
	ctx := context.Background()
	s := New()

	for _, id := range []string{"a", "b"} {
		if err := s.UpsertEntity(ctx, common.Entity{ID: id}); err != nil {
			t.Fatal(err)
		}
	}

	rel := common.Relationship{SourceID: "a", TargetID: "b", Type: "KNOWS"}
	for range 3 {
		if err := s.UpsertRelationship(ctx, rel); err != nil {
			t.Fatal(err)
		}
	}

	n, err := s.GetNeighbors(ctx, "a", nil, graphstore.DirectionOut)
	if err != nil {
		t.Fatal(err)
	}
	if len(n.Relationships) != 1 {
		t.Fatalf("expected 1 relationship, got %d", len(n.Relationships))
	}
	if n.Relationships[0].EvidenceCount != 3 {
		t.Errorf("evidence count = %d, want 3", n.Relationships[0].EvidenceCount)
	}
}

func TestRelationshipPropertyMerge(t *testing.T) {
	ctx := context.Background()
	s := New()

	for _, id := range []string{"a", "b"} {
		if err := s.UpsertEntity(ctx, common.Entity{ID: id}); err != nil {
			t.Fatal(err)
		}
	}

	if err := s.UpsertRelationship(ctx, common.Relationship{
		SourceID: "a", TargetID: "b", Type: "KNOWS",
		Properties: map[string]any{"since": "2020", "kept": true},
	}); err != nil {
		t.Fatal(err)
	}
	if err := s.UpsertRelationship(ctx, common.Relationship{
		SourceID: "a", TargetID: "b", Type: "KNOWS",
		Properties: map[string]any{"since": "2021"},
	}); err != nil {
		t.Fatal(err)
	}

	n, _ := s.GetNeighbors(ctx, "a", nil, graphstore.DirectionOut)
	props := n.Relationships[0].Properties
	if props["since"] != "2021" {
		t.Errorf("since = %v, want 2021", props["since"])
	}
	if props["kept"] != true {
		t.Errorf("existing property lost: %v", props)
	}
}

func TestRelationshipMissingEndpointDropped(t *testing.T) {
	ctx := context.Background()
	s := New()

	if err := s.UpsertEntity(ctx, common.Entity{ID: "a"}); err != nil {
		t.Fatal(err)
	}
	if err := s.UpsertRelationship(ctx, common.Relationship{
		SourceID: "a", TargetID: "ghost", Type: "KNOWS",
	}); err != nil {
		t.Fatal(err)
	}

	n, _ := s.GetNeighbors(ctx, "a", nil, graphstore.DirectionBoth)
	if len(n.Relationships) != 0 {
		t.Errorf("edge with missing endpoint should be dropped, got %v", n.Relationships)
	}
}

func TestRelationshipMissingEndpointStubbed(t *testing.T) {
	ctx := context.Background()
	s := New(WithCreateMissingEndpoints())

	if err := s.UpsertEntity(ctx, common.Entity{ID: "a"}); err != nil {
		t.Fatal(err)
	}
	if err := s.UpsertRelationship(ctx, common.Relationship{
		SourceID: "a", TargetID: "ghost", Type: "KNOWS",
	}); err != nil {
		t.Fatal(err)
	}

	if _, err := s.GetByID(ctx, "ghost"); err != nil {
		t.Fatalf("stub endpoint not created: %v", err)
	}
	n, _ := s.GetNeighbors(ctx, "a", nil, graphstore.DirectionOut)
	if len(n.Relationships) != 1 {
		t.Errorf("expected stubbed edge, got %v", n.Relationships)
	}
}

func TestGetNeighborsDirection(t *testing.T) {
	ctx := context.Background()
	s := New()

	for _, id := range []string{"a", "b"} {
		if err := s.UpsertEntity(ctx, common.Entity{ID: id}); err != nil {
			t.Fatal(err)
		}
	}
	if err := s.UpsertRelationship(ctx, common.Relationship{
		SourceID: "a", TargetID: "b", Type: "KNOWS",
	}); err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name      string
		id        string
		direction graphstore.Direction
		wantRels  int
	}{
		{"outgoing from source", "a", graphstore.DirectionOut, 1},
		{"incoming at source is empty", "a", graphstore.DirectionIn, 0},
		{"incoming at target", "b", graphstore.DirectionIn, 1},
		{"outgoing at target is empty", "b", graphstore.DirectionOut, 0},
		{"both at source", "a", graphstore.DirectionBoth, 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			n, err := s.GetNeighbors(ctx, tt.id, nil, tt.direction)
			if err != nil {
				t.Fatal(err)
			}
			if len(n.Relationships) != tt.wantRels {
				t.Errorf("got %d relationships, want %d", len(n.Relationships), tt.wantRels)
			}
		})
	}
}

func TestGetNeighborsTypeFilter(t *testing.T) {
	ctx := context.Background()
	s := New()

	for _, id := range []string{"a", "b", "c"} {
		if err := s.UpsertEntity(ctx, common.Entity{ID: id}); err != nil {
			t.Fatal(err)
		}
	}
	s.UpsertRelationship(ctx, common.Relationship{SourceID: "a", TargetID: "b", Type: "KNOWS"})
	s.UpsertRelationship(ctx, common.Relationship{SourceID: "a", TargetID: "c", Type: "WORKS_FOR"})

	n, err := s.GetNeighbors(ctx, "a", []string{"WORKS_FOR"}, graphstore.DirectionOut)
	if err != nil {
		t.Fatal(err)
	}
	if len(n.Relationships) != 1 || n.Relationships[0].Type != "WORKS_FOR" {
		t.Errorf("type filter not applied: %v", n.Relationships)
	}
}

func TestGetNeighborsUnknownID(t *testing.T) {
	s := New()
	n, err := s.GetNeighbors(context.Background(), "missing", nil, graphstore.DirectionBoth)
	if err != nil {
		t.Fatalf("unknown id should not error: %v", err)
	}
	if len(n.Entities) != 0 || len(n.Relationships) != 0 {
		t.Errorf("expected empty neighbors, got %+v", n)
	}
}

func TestSearchByProperties(t *testing.T) {
	ctx := context.Background()
	s := New()

	s.UpsertEntity(ctx, common.Entity{ID: "1", Name: "Alice", Type: "PERSON"})
	s.UpsertEntity(ctx, common.Entity{ID: "2", Name: "Alice", Type: "ORGANIZATION"})
	s.UpsertEntity(ctx, common.Entity{ID: "3", Name: "Bob", Type: "PERSON",
		Metadata: map[string]string{"document_id": "doc-1"}})

	tests := []struct {
		name  string
		props map[string]string
		limit int
		want  int
	}{
		{"by name and type", map[string]string{"name": "Alice", "type": "PERSON"}, 0, 1},
		{"by type only", map[string]string{"type": "PERSON"}, 0, 2},
		{"by type with limit", map[string]string{"type": "PERSON"}, 1, 1},
		{"limit above match count", map[string]string{"type": "PERSON"}, 10, 2},
		{"by metadata", map[string]string{"document_id": "doc-1"}, 0, 1},
		{"no match", map[string]string{"name": "Carol"}, 0, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := s.SearchByProperties(ctx, tt.props, tt.limit)
			if err != nil {
				t.Fatal(err)
			}
			if len(got) != tt.want {
				t.Errorf("got %d entities, want %d", len(got), tt.want)
			}
		})
	}
}

func TestUpsertEntityDropsStaleMetadata(t *testing.T) {
	ctx := context.Background()
	s := New()

	if err := s.UpsertEntity(ctx, common.Entity{
		ID: "person:alice", Name: "Alice", Type: "PERSON",
		Metadata: map[string]string{"document_id": "doc-1", "alias": "Al"},
	}); err != nil {
		t.Fatal(err)
	}
	if err := s.UpsertEntity(ctx, common.Entity{
		ID: "person:alice", Name: "Alice", Type: "PERSON",
		Metadata: map[string]string{"document_id": "doc-2"},
	}); err != nil {
		t.Fatal(err)
	}

	got, err := s.GetByID(ctx, "person:alice")
	if err != nil {
		t.Fatal(err)
	}
	if got.Metadata["document_id"] != "doc-2" {
		t.Errorf("document_id = %q, want doc-2", got.Metadata["document_id"])
	}
	if _, ok := got.Metadata["alias"]; ok {
		t.Errorf("stale metadata key survived re-upsert: %v", got.Metadata)
	}
}

func TestBulkUpsert(t *testing.T) {
	ctx := context.Background()
	s := New()

	entities := []common.Entity{
		{ID: "a", Name: "Alice", Type: "PERSON"},
		{ID: "b", Name: "Beta Corp", Type: "ORGANIZATION"},
	}
	rels := []common.Relationship{
		{SourceID: "a", TargetID: "b", Type: "WORKS_FOR"},
	}
	if err := s.BulkUpsert(ctx, entities, rels); err != nil {
		t.Fatal(err)
	}

	// entities land before relationships, so the edge between batch
	// members must survive even without stub creation
	n, err := s.GetNeighbors(ctx, "a", nil, graphstore.DirectionOut)
	if err != nil {
		t.Fatal(err)
	}
	if len(n.Relationships) != 1 || n.Relationships[0].TargetID != "b" {
		t.Fatalf("expected edge a->b, got %v", n.Relationships)
	}
}

func TestDeleteDocument(t *testing.T) {
	ctx := context.Background()
	s := New()

	s.UpsertEntity(ctx, common.Entity{ID: "a", Metadata: map[string]string{"document_id": "doc-1"}})
	s.UpsertEntity(ctx, common.Entity{ID: "b"})
	s.UpsertRelationship(ctx, common.Relationship{SourceID: "a", TargetID: "b", Type: "KNOWS"})

	deleted, err := s.DeleteDocument(ctx, "doc-1")
	if err != nil {
		t.Fatal(err)
	}
	if !deleted {
		t.Error("expected deletion to be reported")
	}
	if _, err := s.GetByID(ctx, "a"); !errors.Is(err, graphstore.ErrNotFound) {
		t.Errorf("entity a should be gone, got %v", err)
	}
	n, _ := s.GetNeighbors(ctx, "b", nil, graphstore.DirectionBoth)
	if len(n.Relationships) != 0 {
		t.Errorf("dangling relationship survived: %v", n.Relationships)
	}

	deleted, err = s.DeleteDocument(ctx, "doc-1")
	if err != nil {
		t.Fatal(err)
	}
	if deleted {
		t.Error("second delete should report nothing deleted")
	}
}
