package openai

import (
	"sync"

	"golang.org/x/sync/semaphore"

	"github.com/neoforge-dev/synapse/pkg/ai"

	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"
)

// Client is an OpenAI-compatible implementation of ai.Client. It manages
// separate API clients for embeddings and chat/completion tasks so the two
// can point at different endpoints.
//
// Client also implements ai.RelationExtractor (see relations.go).
type Client struct {
	embeddingModel string
	chatModel      string
	inferenceModel string

	chatURL      string
	chatKey      string
	embeddingURL string
	embeddingKey string

	embedDim   int
	timeoutMin int

	reqLock *semaphore.Weighted

	metricsLock sync.Mutex
	metrics     ai.ModelMetrics

	ChatClient      *openai.Client
	EmbeddingClient *openai.Client
}

// NewClientParams defines the configuration for creating a Client.
type NewClientParams struct {
	EmbeddingModel string
	ChatModel      string
	// InferenceModel is used for relationship inference; falls back to
	// ChatModel when empty.
	InferenceModel string

	EmbeddingURL string
	EmbeddingKey string
	ChatURL      string
	ChatKey      string

	EmbeddingDimensions   int
	RequestTimeoutMinutes int
	MaxConcurrentRequests int64
}

// NewClient creates a Client configured with the provided parameters.
func NewClient(params NewClientParams) *Client {
	chatClient := newAPIClient(params.ChatURL, params.ChatKey)
	embedClient := newAPIClient(params.EmbeddingURL, params.EmbeddingKey)

	inferenceModel := params.InferenceModel
	if inferenceModel == "" {
		inferenceModel = params.ChatModel
	}

	dim := params.EmbeddingDimensions
	if dim <= 0 {
		dim = defaultDimensions
	}
	timeoutMin := params.RequestTimeoutMinutes
	if timeoutMin <= 0 {
		timeoutMin = 5
	}
	maxReq := params.MaxConcurrentRequests
	if maxReq <= 0 {
		maxReq = 15
	}

	return &Client{
		embeddingModel: params.EmbeddingModel,
		chatModel:      params.ChatModel,
		inferenceModel: inferenceModel,

		chatURL:      params.ChatURL,
		chatKey:      params.ChatKey,
		embeddingURL: params.EmbeddingURL,
		embeddingKey: params.EmbeddingKey,

		embedDim:   dim,
		timeoutMin: timeoutMin,

		reqLock: semaphore.NewWeighted(maxReq),

		ChatClient:      chatClient,
		EmbeddingClient: embedClient,
	}
}

func newAPIClient(baseURL string, apiKey string) *openai.Client {
	if apiKey == "" {
		return nil
	}
	options := []option.RequestOption{
		option.WithAPIKey(apiKey),
	}

	if baseURL != "" {
		options = append(options, option.WithBaseURL(baseURL))
	}

	client := openai.NewClient(options...)

	return &client
}

// ResetMetrics clears all accumulated token and timing metrics to zero.
func (c *Client) ResetMetrics() {
	c.metricsLock.Lock()
	c.metrics = ai.ModelMetrics{}
	c.metricsLock.Unlock()
}

// GetMetrics returns the accumulated token usage and timing metrics since the last reset.
func (c *Client) GetMetrics() ai.ModelMetrics {
	c.metricsLock.Lock()
	defer c.metricsLock.Unlock()
	return c.metrics
}

func (c *Client) modifyMetrics(m ai.ModelMetrics) {
	c.metricsLock.Lock()
	defer c.metricsLock.Unlock()

	c.metrics.InputTokens += m.InputTokens
	c.metrics.OutputTokens += m.OutputTokens
	c.metrics.TotalTokens += m.TotalTokens
	c.metrics.DurationMs += m.DurationMs
}
