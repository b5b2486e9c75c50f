// Package retrieval implements the query orchestrator: it blends vector and
// keyword search, optionally re-ranks and diversifies the candidates, fuses
// one-hop graph context around entities found in the retrieved text, and
// generates grounded answers.
package retrieval

import (
	"context"
	"sort"

	"github.com/neoforge-dev/synapse/pkg/ai"
	"github.com/neoforge-dev/synapse/pkg/common"
	"github.com/neoforge-dev/synapse/pkg/extract"
	"github.com/neoforge-dev/synapse/pkg/graphstore"
	"github.com/neoforge-dev/synapse/pkg/index"
	"github.com/neoforge-dev/synapse/pkg/logger"

	"golang.org/x/sync/errgroup"
)

// SearchType selects the retrieval strategy for a single call.
type SearchType string

const (
	SearchTypeVector  SearchType = "vector"
	SearchTypeKeyword SearchType = "keyword"
	SearchTypeHybrid  SearchType = "hybrid"
)

// Config carries the per-call retrieval settings.
type Config struct {
	// SearchType defaults to vector when empty.
	SearchType SearchType
	// TopK caps the number of returned chunks; defaults to 5.
	TopK int
	// BlendKeywordWeight is the w in (1-w)*vector + w*keyword for hybrid
	// search. Must be in [0, 1].
	BlendKeywordWeight float64
	// NoAnswerMinScore, when > 0, empties the result set if the top score
	// falls below it.
	NoAnswerMinScore float64
	// Rerank passes candidates through the configured cross-encoder.
	Rerank bool
	// MMRLambda in (0, 1] enables greedy diversification; 1 degenerates to
	// plain relevance ranking.
	MMRLambda float64
	// IncludeGraph fuses one-hop graph context around entities found in
	// the retrieved chunks.
	IncludeGraph bool
	// InferRelationships asks the generation service for additional
	// relationship hints over the fused context.
	InferRelationships bool
	// Persist requests that inferred relationships be written to the graph
	// store. Writes also require the orchestrator's persistence feature
	// flag and confidence >= MinConfidence.
	Persist bool
	// MinConfidence gates persistence of inferred relationships.
	MinConfidence float64
	// DryRun records planned writes without touching the graph store.
	DryRun bool
	// History is prior conversation text prepended to the answer context.
	History []string
}

const defaultTopK = 5

// PlannedWrite records a relationship write that persistence would have
// performed, populated in dry-run mode.
type PlannedWrite struct {
	SourceID   string  `json:"source_id"`
	TargetID   string  `json:"target_id"`
	Type       string  `json:"type"`
	Confidence float64 `json:"confidence"`
}

// Result is the complete outcome of one retrieval call. It is an explicit
// return value; the orchestrator holds no per-call state.
type Result struct {
	Results       []common.SearchResult `json:"results"`
	Graph         *common.GraphContext  `json:"graph,omitempty"`
	PlannedWrites []PlannedWrite        `json:"planned_writes,omitempty"`
}

// Orchestrator wires the index, the graph store, the extractor and the
// generation client into the retrieval pipeline. Safe for concurrent use.
type Orchestrator struct {
	index     index.Index
	graph     graphstore.Store
	extractor extract.Extractor
	client    ai.Client
	reranker  Reranker

	// relExtractor is the optional inference capability, detected from the
	// generation client at construction time.
	relExtractor ai.RelationExtractor

	// persistInferred is the feature flag that allows inferred
	// relationships to be written to the graph store at all.
	persistInferred bool
}

// Params configures a new Orchestrator. Reranker may be nil.
type Params struct {
	Index     index.Index
	Graph     graphstore.Store
	Extractor extract.Extractor
	Client    ai.Client
	Reranker  Reranker

	// PersistInferredRelationships enables graph writes from LLM
	// relationship inference.
	PersistInferredRelationships bool
}

// New creates an Orchestrator. If the generation client implements
// ai.RelationExtractor the inference capability is enabled.
func New(p Params) *Orchestrator {
	o := &Orchestrator{
		index:           p.Index,
		graph:           p.Graph,
		extractor:       p.Extractor,
		client:          p.Client,
		reranker:        p.Reranker,
		persistInferred: p.PersistInferredRelationships,
	}
	if rx, ok := p.Client.(ai.RelationExtractor); ok {
		o.relExtractor = rx
	}
	return o
}

// Retrieve runs the retrieval pipeline: search, threshold, optional rerank,
// optional MMR, optional graph fusion and relationship inference. A failed
// index search degrades to an empty result set; enrichment failures never
// drop chunk results that were already obtained.
func (o *Orchestrator) Retrieve(ctx context.Context, query string, cfg Config) (*Result, error) {
	if cfg.TopK <= 0 {
		cfg.TopK = defaultTopK
	}
	if cfg.SearchType == "" {
		cfg.SearchType = SearchTypeVector
	}

	results, err := o.search(ctx, query, cfg)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		logger.Error("index search failed", "error", err, "search_type", cfg.SearchType)
		results = nil
	}

	if cfg.NoAnswerMinScore > 0 && len(results) > 0 && results[0].Score < cfg.NoAnswerMinScore {
		logger.Debug("top score below no-answer threshold",
			"score", results[0].Score, "threshold", cfg.NoAnswerMinScore)
		results = nil
	}

	if cfg.Rerank && o.reranker != nil && len(results) > 0 {
		reranked, err := o.reranker.Rerank(ctx, query, results)
		if err != nil {
			logger.Warn("reranking failed, keeping original order", "error", err)
		} else {
			if len(reranked) > cfg.TopK {
				reranked = reranked[:cfg.TopK]
			}
			results = reranked
		}
	}

	if cfg.MMRLambda > 0 && cfg.MMRLambda <= 1 && len(results) > 2 {
		results = diversifyMMR(results, cfg.MMRLambda)
	}

	out := &Result{Results: results}

	if cfg.IncludeGraph && len(results) > 0 {
		out.Graph = o.fuseGraphContext(ctx, results)
		if cfg.InferRelationships && out.Graph != nil {
			o.inferRelationships(ctx, out, cfg)
		}
	}

	return out, nil
}

// search runs the configured sub-searches. Hybrid mode runs the vector and
// keyword searches concurrently and blends their scores.
func (o *Orchestrator) search(ctx context.Context, query string, cfg Config) ([]common.SearchResult, error) {
	switch cfg.SearchType {
	case SearchTypeKeyword:
		return o.index.Search(ctx, query, nil, index.SearchTypeKeyword, cfg.TopK)

	case SearchTypeHybrid:
		var vector, keyword []common.SearchResult

		g, gCtx := errgroup.WithContext(ctx)
		g.Go(func() error {
			embedding, err := o.client.GenerateEmbedding(gCtx, []byte(query))
			if err != nil {
				return err
			}
			vector, err = o.index.Search(gCtx, query, embedding, index.SearchTypeVector, cfg.TopK)
			return err
		})
		g.Go(func() error {
			var err error
			keyword, err = o.index.Search(gCtx, query, nil, index.SearchTypeKeyword, cfg.TopK)
			return err
		})
		if err := g.Wait(); err != nil {
			return nil, err
		}

		return blendResults(vector, keyword, cfg.BlendKeywordWeight, cfg.TopK), nil

	default:
		embedding, err := o.client.GenerateEmbedding(ctx, []byte(query))
		if err != nil {
			return nil, err
		}
		return o.index.Search(ctx, query, embedding, index.SearchTypeVector, cfg.TopK)
	}
}

func sortByScore(results []common.SearchResult) {
	sort.SliceStable(results, func(i, j int) bool {
		return results[i].Score > results[j].Score
	})
}
