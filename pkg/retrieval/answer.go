package retrieval

import (
	"context"
	"fmt"
	"strings"

	"github.com/neoforge-dev/synapse/pkg/ai"
	"github.com/neoforge-dev/synapse/pkg/logger"
)

// InsufficientInfoAnswer is returned without a generation call when
// retrieval produced no usable context.
const InsufficientInfoAnswer = "I don't have enough information in the knowledge base to answer this question."

// AnswerResult bundles the generated answer with the retrieval outcome it
// was grounded on.
type AnswerResult struct {
	Answer    string  `json:"answer"`
	Retrieval *Result `json:"retrieval"`
}

// Answer retrieves context for the query and generates a grounded answer.
// When no context is found the fixed insufficient-information response is
// returned without calling the generation service; a generation failure is
// surfaced as error text inside the answer, never as a panic or a dropped
// result.
func (o *Orchestrator) Answer(ctx context.Context, query string, cfg Config) (*AnswerResult, error) {
	result, err := o.Retrieve(ctx, query, cfg)
	if err != nil {
		return nil, err
	}

	contextBlock := buildContextBlock(result, cfg.History)
	if contextBlock == "" {
		return &AnswerResult{Answer: InsufficientInfoAnswer, Retrieval: result}, nil
	}

	prompt := fmt.Sprintf(ai.AnswerPrompt, contextBlock, query)
	answer, err := o.client.GenerateCompletion(ctx, prompt)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		logger.Error("answer generation failed", "error", err)
		return &AnswerResult{
			Answer:    fmt.Sprintf("Error generating answer: %v", err),
			Retrieval: result,
		}, nil
	}

	return &AnswerResult{Answer: strings.TrimSpace(answer), Retrieval: result}, nil
}

// buildContextBlock renders retrieved chunks, fused graph context, and
// prior conversation into one text block for the generation prompt. An
// empty return means there is nothing to ground an answer on.
func buildContextBlock(result *Result, history []string) string {
	var b strings.Builder

	if len(history) > 0 {
		b.WriteString("Previous conversation:\n")
		for _, h := range history {
			b.WriteString(h)
			b.WriteString("\n")
		}
		b.WriteString("\n")
	}

	if len(result.Results) > 0 {
		b.WriteString("Retrieved passages:\n")
		for i, r := range result.Results {
			fmt.Fprintf(&b, "[%d] %s\n", i+1, strings.TrimSpace(r.Chunk.Text))
		}
	}

	if result.Graph != nil && (len(result.Graph.Entities) > 0 || len(result.Graph.Relationships) > 0) {
		nameOf := map[string]string{}
		if len(result.Graph.Entities) > 0 {
			b.WriteString("\nKnown entities:\n")
			for _, e := range result.Graph.Entities {
				nameOf[e.ID] = e.Name
				fmt.Fprintf(&b, "- %s (%s)\n", e.Name, e.Type)
			}
		}
		if len(result.Graph.Relationships) > 0 {
			b.WriteString("\nKnown relationships:\n")
			for _, r := range result.Graph.Relationships {
				src := nameOf[r.SourceID]
				if src == "" {
					src = r.SourceID
				}
				dst := nameOf[r.TargetID]
				if dst == "" {
					dst = r.TargetID
				}
				fmt.Fprintf(&b, "- %s %s %s\n", src, r.Type, dst)
			}
		}
	}

	if len(result.Results) == 0 && (result.Graph == nil ||
		(len(result.Graph.Entities) == 0 && len(result.Graph.Relationships) == 0)) {
		return ""
	}
	return b.String()
}
