package extract

import (
	"context"
	"fmt"
	"strings"

	"github.com/neoforge-dev/synapse/pkg/ai"
	"github.com/neoforge-dev/synapse/pkg/common"
)

// DefaultEntityTypes is the entity type vocabulary used when a caller does
// not supply its own.
var DefaultEntityTypes = []string{
	"ORGANIZATION", "PERSON", "LOCATION", "CONCEPT", "TECHNOLOGY", "DATE", "PRODUCT", "EVENT",
}

// Extractor identifies entities and relationships in a piece of text.
type Extractor interface {
	Extract(ctx context.Context, text string) (*Extraction, error)
}

// Extraction is the result of running entity extraction over a text.
type Extraction struct {
	Entities      []common.Entity
	Relationships []common.Relationship
}

type extractEntity struct {
	EntityName string `json:"entity_name" jsonschema_description:"Name of the entity, all letters capitalized"`
	EntityType string `json:"entity_type" jsonschema_description:"One of the provided entity types"`
}

type extractRelationship struct {
	SourceEntity     string `json:"source_entity" jsonschema_description:"Name of the source entity, as identified in step 1"`
	TargetEntity     string `json:"target_entity" jsonschema_description:"Name of the target entity, as identified in step 1"`
	RelationshipType string `json:"relationship_type" jsonschema_description:"Short UPPER_SNAKE_CASE verb describing the relationship"`
}

type extractResponse struct {
	Entities      []extractEntity       `json:"entities" jsonschema_description:"Entities identified in the text"`
	Relationships []extractRelationship `json:"relationships" jsonschema_description:"Relationships identified in the text"`
}

// AIExtractor runs extraction through a structured-output LLM call.
type AIExtractor struct {
	client      ai.Client
	entityTypes []string
}

// NewAIExtractor creates an AIExtractor. When entityTypes is empty the
// default vocabulary is used.
func NewAIExtractor(client ai.Client, entityTypes []string) *AIExtractor {
	if len(entityTypes) == 0 {
		entityTypes = DefaultEntityTypes
	}
	return &AIExtractor{client: client, entityTypes: entityTypes}
}

// Extract identifies entities and relationships in text. Relationships whose
// endpoints were not extracted as entities are dropped.
func (x *AIExtractor) Extract(ctx context.Context, text string) (*Extraction, error) {
	types := strings.Join(x.entityTypes, ",")
	systemPrompt := fmt.Sprintf(ai.ExtractPrompt, types, types)

	var res extractResponse
	err := x.client.GenerateCompletionWithFormat(
		ctx,
		"extract_entities_and_relationships",
		"Extract entities and relationships from a provided text.",
		text,
		&res,
		ai.WithSystemPrompts(systemPrompt),
	)
	if err != nil {
		return nil, err
	}

	out := &Extraction{
		Entities:      make([]common.Entity, 0, len(res.Entities)),
		Relationships: make([]common.Relationship, 0, len(res.Relationships)),
	}

	byName := make(map[string]string, len(res.Entities))
	for _, entity := range res.Entities {
		name := strings.TrimSpace(entity.EntityName)
		if name == "" {
			continue
		}
		id := common.EntityID(name, entity.EntityType)
		if _, seen := byName[strings.ToLower(name)]; seen {
			continue
		}
		byName[strings.ToLower(name)] = id
		out.Entities = append(out.Entities, common.Entity{
			ID:   id,
			Name: name,
			Type: entity.EntityType,
		})
	}

	for _, rel := range res.Relationships {
		srcID, okSrc := byName[strings.ToLower(strings.TrimSpace(rel.SourceEntity))]
		dstID, okDst := byName[strings.ToLower(strings.TrimSpace(rel.TargetEntity))]
		if !okSrc || !okDst {
			continue
		}
		relType := strings.TrimSpace(rel.RelationshipType)
		if relType == "" {
			relType = "RELATED_TO"
		}
		out.Relationships = append(out.Relationships, common.Relationship{
			SourceID:      srcID,
			TargetID:      dstID,
			Type:          relType,
			EvidenceCount: 1,
		})
	}

	return out, nil
}
