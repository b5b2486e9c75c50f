package retrieval

import (
	"github.com/neoforge-dev/synapse/pkg/common"
)

// blendResults unions vector and keyword result sets by chunk id and scores
// each chunk as (1-w)*vector + w*keyword, with a missing sub-score counting
// as 0. The blended set is sorted by score descending and truncated to topK.
func blendResults(vector, keyword []common.SearchResult, w float64, topK int) []common.SearchResult {
	if w < 0 {
		w = 0
	}
	if w > 1 {
		w = 1
	}

	type blended struct {
		chunk   common.Chunk
		vector  float64
		keyword float64
	}

	byID := map[string]*blended{}
	order := []string{}

	for _, r := range vector {
		byID[r.Chunk.ID] = &blended{chunk: r.Chunk, vector: r.Score}
		order = append(order, r.Chunk.ID)
	}
	for _, r := range keyword {
		if b, ok := byID[r.Chunk.ID]; ok {
			b.keyword = r.Score
			continue
		}
		byID[r.Chunk.ID] = &blended{chunk: r.Chunk, keyword: r.Score}
		order = append(order, r.Chunk.ID)
	}

	results := make([]common.SearchResult, 0, len(order))
	for _, id := range order {
		b := byID[id]
		score := (1-w)*b.vector + w*b.keyword
		chunk := b.chunk
		chunk.Score = score
		results = append(results, common.SearchResult{Chunk: chunk, Score: score})
	}

	sortByScore(results)
	if len(results) > topK {
		results = results[:topK]
	}
	return results
}
