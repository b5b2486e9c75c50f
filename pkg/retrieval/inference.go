package retrieval

import (
	"context"
	"strings"

	"github.com/neoforge-dev/synapse/pkg/common"
	"github.com/neoforge-dev/synapse/pkg/logger"
)

// inferRelationships asks the generation service for relationship hints
// over the fused context and merges resolved hints into the result's graph.
// Hints are persisted to the graph store only when the orchestrator feature
// flag, the per-call Persist flag, and the confidence gate all hold; dry-run
// mode records the planned writes instead. Generation failures are swallowed.
func (o *Orchestrator) inferRelationships(ctx context.Context, out *Result, cfg Config) {
	if o.relExtractor == nil {
		return
	}

	var text strings.Builder
	for _, r := range out.Results {
		text.WriteString(r.Chunk.Text)
		text.WriteString("\n")
	}

	hints, err := o.relExtractor.ExtractRelations(ctx, text.String())
	if err != nil {
		logger.Warn("relationship inference failed, skipping", "error", err)
		return
	}

	byName := map[string]common.Entity{}
	for _, e := range out.Graph.Entities {
		byName[strings.ToLower(e.Name)] = e
	}

	relByKey := map[string]bool{}
	for _, r := range out.Graph.Relationships {
		relByKey[r.Key()] = true
	}

	// per-call persistence dedupe by (source, type, target, "llm")
	persisted := map[string]bool{}

	for _, hint := range hints.Relationships {
		src, okSrc := byName[strings.ToLower(strings.TrimSpace(hint.Source))]
		dst, okDst := byName[strings.ToLower(strings.TrimSpace(hint.Target))]
		if !okSrc || !okDst {
			continue
		}

		rel := common.Relationship{
			SourceID:      src.ID,
			TargetID:      dst.ID,
			Type:          strings.TrimSpace(hint.Type),
			Properties:    map[string]any{"inferred_by": "llm", "confidence": hint.Confidence},
			EvidenceCount: 1,
		}
		if rel.Type == "" {
			rel.Type = "RELATED_TO"
		}

		// resolved hints always join the response, independent of gating
		if !relByKey[rel.Key()] {
			relByKey[rel.Key()] = true
			out.Graph.Relationships = append(out.Graph.Relationships, rel)
		}

		shouldPersist := o.persistInferred && cfg.Persist && hint.Confidence >= cfg.MinConfidence
		if !shouldPersist {
			continue
		}

		dedupeKey := rel.Key() + "|llm"
		if persisted[dedupeKey] {
			continue
		}
		persisted[dedupeKey] = true

		if cfg.DryRun {
			out.PlannedWrites = append(out.PlannedWrites, PlannedWrite{
				SourceID:   rel.SourceID,
				TargetID:   rel.TargetID,
				Type:       rel.Type,
				Confidence: hint.Confidence,
			})
			continue
		}

		if err := o.graph.UpsertRelationship(ctx, rel); err != nil {
			logger.Warn("failed to persist inferred relationship",
				"source", rel.SourceID, "target", rel.TargetID, "error", err)
		}
	}
}
