package ai

import (
	"testing"
)

func TestUnmarshalFlexible_ObjectVariants(t *testing.T) {
	type entity struct {
		Name string `json:"name"`
		Type string `json:"type,omitempty"`
	}

	tests := []struct {
		name  string
		input string
		want  entity
	}{
		{
			name:  "valid json object",
			input: `{"name":"Acme Corp","type":"ORGANIZATION"}`,
			want:  entity{Name: "Acme Corp", Type: "ORGANIZATION"},
		},
		{
			name:  "unquoted key and single quotes",
			input: `{name: 'Acme Corp'}`,
			want:  entity{Name: "Acme Corp"},
		},
		{
			name:  "trailing comma",
			input: `{"name":"Acme Corp",}`,
			want:  entity{Name: "Acme Corp"},
		},
		{
			name:  "missing endbracket",
			input: `{"name":"Acme Corp`,
			want:  entity{Name: "Acme Corp"},
		},
		{
			name:  "stringified invalid json object",
			input: `"{name: 'Acme Corp'}"`,
			want:  entity{Name: "Acme Corp"},
		},
		{
			name:  "duplicate leading brace",
			input: "{\n{\n  \"name\": \"Acme Corp\"\n}\n",
			want:  entity{Name: "Acme Corp"},
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			var got entity
			if err := UnmarshalFlexible(tc.input, &got); err != nil {
				t.Fatalf("UnmarshalFlexible() error = %v", err)
			}
			if got.Name != tc.want.Name || got.Type != tc.want.Type {
				t.Fatalf("UnmarshalFlexible() got = %+v, want %+v", got, tc.want)
			}
		})
	}
}

func TestUnmarshalFlexible_RelationHints(t *testing.T) {
	input := `"{ \"entities\": [{\"name\": \"Alice\", \"type\": \"PERSON\"}], \"relationships\": [{\"source\": \"Alice\", \"target\": \"Acme Corp\", \"type\": \"WORKS_FOR\", \"confidence\": 0.9}] }"`

	var got RelationHints
	if err := UnmarshalFlexible(input, &got); err != nil {
		t.Fatalf("UnmarshalFlexible() error = %v", err)
	}
	if len(got.Entities) != 1 || got.Entities[0].Name != "Alice" {
		t.Fatalf("UnmarshalFlexible() entities = %+v, want Alice", got.Entities)
	}
	if len(got.Relationships) != 1 {
		t.Fatalf("UnmarshalFlexible() relationships = %+v, want one", got.Relationships)
	}
	rel := got.Relationships[0]
	if rel.Source != "Alice" || rel.Target != "Acme Corp" || rel.Type != "WORKS_FOR" {
		t.Fatalf("UnmarshalFlexible() relationship = %+v", rel)
	}
	if rel.Confidence != 0.9 {
		t.Fatalf("UnmarshalFlexible() confidence = %v, want 0.9", rel.Confidence)
	}
}

func TestUnmarshalFlexible_ArrayVariants(t *testing.T) {
	type entity struct {
		Name string `json:"name"`
	}

	input := `[{name:'A'},{name:'B',}]`
	var got []entity
	if err := UnmarshalFlexible(input, &got); err != nil {
		t.Fatalf("UnmarshalFlexible() error = %v", err)
	}
	if len(got) != 2 || got[0].Name != "A" || got[1].Name != "B" {
		t.Fatalf("UnmarshalFlexible() got = %+v, want two entities A,B", got)
	}
}

func TestUnmarshalFlexible_Unrecoverable(t *testing.T) {
	type entity struct {
		Name string `json:"name"`
	}

	var got entity
	if err := UnmarshalFlexible("hello", &got); err == nil {
		t.Fatalf("UnmarshalFlexible() expected error for unrecoverable input")
	}
}
