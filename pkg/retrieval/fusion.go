package retrieval

import (
	"context"
	"strings"
	"sync"

	"github.com/neoforge-dev/synapse/pkg/common"
	"github.com/neoforge-dev/synapse/pkg/graphstore"
	"github.com/neoforge-dev/synapse/pkg/logger"

	"golang.org/x/sync/errgroup"
)

const maxNeighborFanout = 8

// fuseGraphContext extracts entities from the retrieved chunk text,
// resolves them to graph entities by exact (name, type) match, expands one
// hop around every resolved seed concurrently, and merges the results.
// Extraction failure aborts seed resolution but never the overall call; a
// single seed's expansion failure is isolated from the others.
func (o *Orchestrator) fuseGraphContext(ctx context.Context, results []common.SearchResult) *common.GraphContext {
	var text strings.Builder
	for _, r := range results {
		text.WriteString(r.Chunk.Text)
		text.WriteString("\n")
	}

	graph := &common.GraphContext{}
	entityByID := map[string]bool{}
	relByKey := map[string]bool{}

	addEntity := func(e common.Entity) {
		if e.ID == "" || entityByID[e.ID] {
			return
		}
		entityByID[e.ID] = true
		graph.Entities = append(graph.Entities, e)
	}
	addRel := func(r common.Relationship) {
		if relByKey[r.Key()] {
			return
		}
		relByKey[r.Key()] = true
		graph.Relationships = append(graph.Relationships, r)
	}

	var seeds []common.Entity
	extraction, err := o.extractor.Extract(ctx, text.String())
	if err != nil {
		logger.Warn("entity extraction failed, skipping seed resolution", "error", err)
	} else {
		for _, candidate := range extraction.Entities {
			// first match wins, so one row is enough
			matches, err := o.graph.SearchByProperties(ctx, map[string]string{
				"name": candidate.Name,
				"type": candidate.Type,
			}, 1)
			if err != nil {
				logger.Warn("seed lookup failed, aborting seed resolution", "error", err)
				break
			}
			if len(matches) == 0 {
				continue
			}
			seed := matches[0]
			seeds = append(seeds, seed)
			addEntity(seed)
		}
	}

	if len(seeds) == 0 {
		return graph
	}

	var mu sync.Mutex
	g, gCtx := errgroup.WithContext(ctx)
	g.SetLimit(maxNeighborFanout)

	for _, seed := range seeds {
		g.Go(func() error {
			neighbors, err := o.graph.GetNeighbors(gCtx, seed.ID, nil, graphstore.DirectionBoth)
			if err != nil {
				// one seed's failure must not abort the other expansions
				logger.Warn("neighbor expansion failed", "entity_id", seed.ID, "error", err)
				return nil
			}

			mu.Lock()
			for _, e := range neighbors.Entities {
				addEntity(e)
			}
			for _, r := range neighbors.Relationships {
				addRel(r)
			}
			mu.Unlock()
			return nil
		})
	}
	_ = g.Wait()

	return graph
}
