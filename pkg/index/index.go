// Package index defines the text retrieval index over ingested chunks.
package index

import (
	"context"

	"github.com/neoforge-dev/synapse/pkg/common"
)

// SearchType selects the retrieval strategy for a query.
type SearchType string

const (
	// SearchTypeVector ranks chunks by embedding similarity.
	SearchTypeVector SearchType = "vector"
	// SearchTypeKeyword ranks chunks by full-text relevance.
	SearchTypeKeyword SearchType = "keyword"
)

// Index stores embedded chunks and answers vector and keyword searches
// over them. Scores returned by Search are normalized to [0, 1].
type Index interface {
	// Search returns up to topK chunks ranked by descending score.
	Search(ctx context.Context, query string, embedding []float32, searchType SearchType, topK int) ([]common.SearchResult, error)

	// SaveChunks persists chunks with their embeddings.
	SaveChunks(ctx context.Context, chunks []common.Chunk) error

	// DeleteDocument removes all chunks belonging to the document and
	// reports whether any existed.
	DeleteDocument(ctx context.Context, documentID string) (bool, error)
}
