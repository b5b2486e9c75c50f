package ai

import "context"

// GenerateOptions holds configuration for generation requests.
type GenerateOptions struct {
	Model         string   // Model identifier to use for generation
	SystemPrompts []string // System prompts prepended to the request
	Temperature   float64  // Sampling temperature (0.0-2.0)
}

// GenerateOption is a functional option for configuring generation requests.
type GenerateOption func(*GenerateOptions)

// WithModel returns a GenerateOption that sets the model to use for generation.
func WithModel(model string) GenerateOption {
	return func(o *GenerateOptions) {
		o.Model = model
	}
}

// WithSystemPrompts returns a GenerateOption that sets the system prompts
// to prepend to the generation request.
func WithSystemPrompts(prompts ...string) GenerateOption {
	return func(o *GenerateOptions) {
		o.SystemPrompts = prompts
	}
}

// WithTemperature returns a GenerateOption that sets the sampling temperature.
func WithTemperature(temp float64) GenerateOption {
	return func(o *GenerateOptions) {
		o.Temperature = temp
	}
}

// ModelMetrics contains performance metrics from AI model operations.
type ModelMetrics struct {
	InputTokens  int   `json:"input_tokens"`
	OutputTokens int   `json:"output_tokens"`
	TotalTokens  int   `json:"total_tokens"`
	DurationMs   int64 `json:"duration_ms"`
}

// Client defines the generation and embedding operations the retrieval and
// reasoning layers depend on. Implementations handle plain completions,
// schema-constrained structured output, and text embeddings.
type Client interface {
	GenerateCompletion(
		ctx context.Context,
		prompt string,
		opts ...GenerateOption,
	) (string, error)
	GenerateCompletionWithFormat(
		ctx context.Context,
		name string,
		description string,
		prompt string,
		out any,
		opts ...GenerateOption,
	) error

	GenerateEmbedding(ctx context.Context, input []byte) ([]float32, error)

	ResetMetrics()
	GetMetrics() ModelMetrics
}

// EntityHint is an entity mention proposed by relationship inference.
type EntityHint struct {
	Name string `json:"name" jsonschema_description:"Name of the entity exactly as it appears in the text"`
	Type string `json:"type" jsonschema_description:"One of the provided entity types"`
}

// RelationHint is a candidate relationship proposed by relationship
// inference. Source and Target are entity names, not ids; the caller is
// responsible for resolving them.
type RelationHint struct {
	Source     string  `json:"source" jsonschema_description:"Name of the source entity"`
	Target     string  `json:"target" jsonschema_description:"Name of the target entity"`
	Type       string  `json:"type" jsonschema_description:"Relationship type in UPPER_SNAKE_CASE, e.g. WORKS_FOR"`
	Confidence float64 `json:"confidence" jsonschema_description:"Confidence in the relationship between 0 and 1"`
}

// RelationHints is the structured result of a relationship-inference call.
type RelationHints struct {
	Entities      []EntityHint   `json:"entities" jsonschema_description:"Entities mentioned in the text"`
	Relationships []RelationHint `json:"relationships" jsonschema_description:"Relationships identified between the entities"`
}

// RelationExtractor is an optional capability of a generation client:
// proposing additional relationships from fused context text. Callers pick
// it up via a type assertion at construction time; clients that do not
// implement it simply never take part in relationship inference.
type RelationExtractor interface {
	ExtractRelations(ctx context.Context, text string) (*RelationHints, error)
}
