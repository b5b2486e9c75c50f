// Package pgx implements the chunk index on PostgreSQL with pgvector for
// embedding similarity and tsvector full-text search for keyword queries.
package pgx

import (
	"context"
	"fmt"

	"github.com/neoforge-dev/synapse/pkg/common"
	"github.com/neoforge-dev/synapse/pkg/index"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pgvector/pgvector-go"
)

// ChunkIndex is a Postgres-backed index over embedded chunks.
type ChunkIndex struct {
	conn *pgxpool.Pool
}

// New creates a ChunkIndex on the given connection pool. The pool must have
// pgvector types registered (see pgxvec.RegisterTypes in the server setup).
func New(conn *pgxpool.Pool) *ChunkIndex {
	return &ChunkIndex{conn: conn}
}

const vectorSearchSQL = `
SELECT id, document_id, text, metadata, 1 - (embedding <=> $1) AS score
FROM chunks
ORDER BY embedding <=> $1
LIMIT $2
`

const keywordSearchSQL = `
SELECT id, document_id, text, metadata,
       ts_rank_cd(text_search, websearch_to_tsquery('english', $1), 32) AS score
FROM chunks
WHERE text_search @@ websearch_to_tsquery('english', $1)
ORDER BY score DESC
LIMIT $2
`

// Search runs a vector or keyword query and returns up to topK results
// ranked by descending score. Vector scores are cosine similarity mapped to
// [0, 1]; keyword scores use length-normalized ts_rank_cd, which is already
// bounded to [0, 1].
func (x *ChunkIndex) Search(
	ctx context.Context,
	query string,
	embedding []float32,
	searchType index.SearchType,
	topK int,
) ([]common.SearchResult, error) {
	if topK <= 0 {
		return nil, nil
	}

	var rows pgx.Rows
	var err error
	switch searchType {
	case index.SearchTypeVector:
		rows, err = x.conn.Query(ctx, vectorSearchSQL, pgvector.NewVector(embedding), topK)
	case index.SearchTypeKeyword:
		rows, err = x.conn.Query(ctx, keywordSearchSQL, query, topK)
	default:
		return nil, fmt.Errorf("unknown search type: %s", searchType)
	}
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var results []common.SearchResult
	for rows.Next() {
		var c common.Chunk
		var score float64
		if err := rows.Scan(&c.ID, &c.DocumentID, &c.Text, &c.Metadata, &score); err != nil {
			return nil, err
		}
		if score < 0 {
			score = 0
		}
		if score > 1 {
			score = 1
		}
		c.Score = score
		results = append(results, common.SearchResult{Chunk: c, Score: score})
	}
	return results, rows.Err()
}

const insertChunkSQL = `
INSERT INTO chunks (id, document_id, text, metadata, embedding, text_search)
VALUES ($1, $2, $3, $4, $5, to_tsvector('english', $3))
ON CONFLICT (id) DO UPDATE SET
    document_id = EXCLUDED.document_id,
    text        = EXCLUDED.text,
    metadata    = EXCLUDED.metadata,
    embedding   = EXCLUDED.embedding,
    text_search = EXCLUDED.text_search
`

// SaveChunks persists chunks with their embeddings in a single batch.
func (x *ChunkIndex) SaveChunks(ctx context.Context, chunks []common.Chunk) error {
	if len(chunks) == 0 {
		return nil
	}

	batch := &pgx.Batch{}
	for _, c := range chunks {
		batch.Queue(insertChunkSQL, c.ID, c.DocumentID, c.Text, c.Metadata, pgvector.NewVector(c.Embedding))
	}

	br := x.conn.SendBatch(ctx, batch)
	defer br.Close()

	for range chunks {
		if _, err := br.Exec(); err != nil {
			return fmt.Errorf("failed to save chunk: %w", err)
		}
	}
	return nil
}

// DeleteDocument removes every chunk attributed to documentID. It reports
// whether any chunk was actually deleted.
func (x *ChunkIndex) DeleteDocument(ctx context.Context, documentID string) (bool, error) {
	tag, err := x.conn.Exec(ctx, `DELETE FROM chunks WHERE document_id = $1`, documentID)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}
