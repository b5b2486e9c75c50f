package retrieval

import (
	"context"

	"github.com/neoforge-dev/synapse/pkg/common"
)

// Reranker reorders candidates by query relevance, typically through a
// cross-encoder model. It must not change set membership; the orchestrator
// re-truncates after reranking.
type Reranker interface {
	Rerank(ctx context.Context, query string, candidates []common.SearchResult) ([]common.SearchResult, error)
}
