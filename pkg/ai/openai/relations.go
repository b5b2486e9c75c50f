package openai

import (
	"context"

	"github.com/neoforge-dev/synapse/pkg/ai"
)

// ExtractRelations asks the inference model for additional relationships
// mentioned in the given text. This makes Client an ai.RelationExtractor;
// the orchestrator picks the capability up at construction time.
func (c *Client) ExtractRelations(ctx context.Context, text string) (*ai.RelationHints, error) {
	var hints ai.RelationHints
	err := c.GenerateCompletionWithFormat(
		ctx,
		"infer_relationships",
		"Propose additional relationships between entities mentioned in the text.",
		text,
		&hints,
		ai.WithModel(c.inferenceModel),
		ai.WithSystemPrompts(ai.InferRelationsPrompt),
	)
	if err != nil {
		return nil, err
	}
	return &hints, nil
}
