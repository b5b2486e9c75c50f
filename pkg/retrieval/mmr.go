package retrieval

import (
	"math"
	"strings"

	"github.com/neoforge-dev/synapse/pkg/common"
)

// diversifyMMR reorders candidates by maximal marginal relevance:
// mmr = lambda*relevance - (1-lambda)*max_similarity(candidate, selected).
// The first pick is always the globally highest-scoring candidate, and at
// lambda=1 the output equals plain ranking by score. Similarity is cosine
// over embeddings, falling back to token-set Jaccard when either embedding
// is absent.
func diversifyMMR(candidates []common.SearchResult, lambda float64) []common.SearchResult {
	if len(candidates) == 0 {
		return candidates
	}

	remaining := make([]common.SearchResult, len(candidates))
	copy(remaining, candidates)
	sortByScore(remaining)

	selected := make([]common.SearchResult, 0, len(remaining))
	selected = append(selected, remaining[0])
	remaining = remaining[1:]

	for len(remaining) > 0 {
		bestIdx := 0
		bestScore := math.Inf(-1)

		for i, cand := range remaining {
			maxSim := 0.0
			for _, sel := range selected {
				if sim := chunkSimilarity(cand.Chunk, sel.Chunk); sim > maxSim {
					maxSim = sim
				}
			}
			mmr := lambda*cand.Score - (1-lambda)*maxSim
			if mmr > bestScore {
				bestScore = mmr
				bestIdx = i
			}
		}

		selected = append(selected, remaining[bestIdx])
		remaining = append(remaining[:bestIdx], remaining[bestIdx+1:]...)
	}

	return selected
}

func chunkSimilarity(a, b common.Chunk) float64 {
	if len(a.Embedding) > 0 && len(b.Embedding) > 0 {
		return cosineSimilarity(a.Embedding, b.Embedding)
	}
	return jaccardSimilarity(a.Text, b.Text)
}

func cosineSimilarity(a, b []float32) float64 {
	n := len(a)
	if len(b) < n {
		n = len(b)
	}
	var dot, normA, normB float64
	for i := range n {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}

func jaccardSimilarity(a, b string) float64 {
	setA := tokenSet(a)
	setB := tokenSet(b)
	if len(setA) == 0 || len(setB) == 0 {
		return 0
	}
	intersection := 0
	for t := range setA {
		if setB[t] {
			intersection++
		}
	}
	union := len(setA) + len(setB) - intersection
	return float64(intersection) / float64(union)
}

func tokenSet(text string) map[string]bool {
	set := map[string]bool{}
	for _, t := range strings.Fields(strings.ToLower(text)) {
		set[t] = true
	}
	return set
}
