package setup

import (
	"github.com/neoforge-dev/synapse/internal/util"
	"github.com/neoforge-dev/synapse/pkg/ai"
	oai "github.com/neoforge-dev/synapse/pkg/ai/ollama"
	gai "github.com/neoforge-dev/synapse/pkg/ai/openai"
	"github.com/neoforge-dev/synapse/pkg/graphstore"
	"github.com/neoforge-dev/synapse/pkg/graphstore/memory"
	gneo "github.com/neoforge-dev/synapse/pkg/graphstore/neo4j"
	"github.com/neoforge-dev/synapse/pkg/logger"
)

// NewAIClient builds the generation client selected by AI_ADAPTER. Anything
// other than "ollama" falls back to the OpenAI-compatible adapter.
func NewAIClient() ai.Client {
	adapter := util.GetEnv("AI_ADAPTER")

	switch adapter {
	case "ollama":
		client, err := oai.NewClient(oai.NewClientParams{
			EmbeddingModel: util.GetEnv("AI_EMBED_MODEL"),
			ChatModel:      util.GetEnv("AI_CHAT_MODEL"),
			InferenceModel: util.GetEnv("AI_INFER_MODEL"),

			BaseURL: util.GetEnv("AI_CHAT_URL"),
			ApiKey:  util.GetEnv("AI_CHAT_KEY"),

			RequestTimeoutMinutes: int(util.GetEnvNumeric("AI_TIMEOUT_MIN", 0)),
			MaxConcurrentRequests: int64(util.GetEnvNumeric("AI_PARALLEL_REQ", 0)),
		})
		if err != nil {
			logger.Fatal("Could not create Ollama client", "err", err)
		}
		return client
	default:
		return gai.NewClient(gai.NewClientParams{
			EmbeddingModel: util.GetEnv("AI_EMBED_MODEL"),
			ChatModel:      util.GetEnv("AI_CHAT_MODEL"),
			InferenceModel: util.GetEnv("AI_INFER_MODEL"),

			EmbeddingURL: util.GetEnv("AI_EMBED_URL"),
			EmbeddingKey: util.GetEnv("AI_EMBED_KEY"),
			ChatURL:      util.GetEnv("AI_CHAT_URL"),
			ChatKey:      util.GetEnv("AI_CHAT_KEY"),

			EmbeddingDimensions:   int(util.GetEnvNumeric("AI_EMBED_DIM", 0)),
			RequestTimeoutMinutes: int(util.GetEnvNumeric("AI_TIMEOUT_MIN", 0)),
			MaxConcurrentRequests: int64(util.GetEnvNumeric("AI_PARALLEL_REQ", 0)),
		})
	}
}

// NewGraphStore builds the graph backend selected by GRAPH_BACKEND. The
// in-memory store is the default so the stack runs without a Neo4j instance.
func NewGraphStore() graphstore.Store {
	backend := util.GetEnv("GRAPH_BACKEND")

	switch backend {
	case "neo4j":
		return gneo.New(gneo.Config{
			URI:                    util.GetEnv("NEO4J_URI"),
			Username:               util.GetEnv("NEO4J_USER"),
			Password:               util.GetEnv("NEO4J_PASSWORD"),
			CreateMissingEndpoints: util.GetEnvBool("GRAPH_CREATE_MISSING_ENDPOINTS", false),
		})
	default:
		var opts []memory.Option
		if util.GetEnvBool("GRAPH_CREATE_MISSING_ENDPOINTS", false) {
			opts = append(opts, memory.WithCreateMissingEndpoints())
		}
		return memory.New(opts...)
	}
}
