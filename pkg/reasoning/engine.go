package reasoning

import (
	"context"
	"fmt"
	"strings"

	"github.com/neoforge-dev/synapse/pkg/ai"
	"github.com/neoforge-dev/synapse/pkg/logger"
	"github.com/neoforge-dev/synapse/pkg/retrieval"
)

// UnableToAnswer is returned when every step of a chain failed.
const UnableToAnswer = "I was unable to answer the question: none of the reasoning steps completed."

// Answerer is the slice of the retrieval orchestrator the engine needs.
type Answerer interface {
	Answer(ctx context.Context, query string, cfg retrieval.Config) (*retrieval.AnswerResult, error)
}

// Generator produces the final synthesis text.
type Generator interface {
	GenerateCompletion(ctx context.Context, prompt string, opts ...ai.GenerateOption) (string, error)
}

// Config tunes chain execution.
type Config struct {
	// ContextSteps is how many of the most recent completed steps feed
	// context into the next step. Defaults to 3.
	ContextSteps int
	// Retrieval is the per-step retrieval configuration.
	Retrieval retrieval.Config
}

// ReasoningResult is the outcome of a full chain run.
type ReasoningResult struct {
	Chain       *Chain
	FinalAnswer string
}

// Engine decomposes a question into ordered steps, runs each step through
// the retrieval orchestrator, and synthesizes a final answer.
type Engine struct {
	answerer  Answerer
	generator Generator
}

// New creates an Engine.
func New(answerer Answerer, generator Generator) *Engine {
	return &Engine{answerer: answerer, generator: generator}
}

// StepSpec names a step to execute. Query falls back to the description
// when empty.
type StepSpec struct {
	Name        string
	Description string
	Query       string
}

var securityKeywords = []string{
	"security", "vulnerability", "vulnerabilities", "attack", "exploit",
	"threat", "breach", "malware", "cve", "risk",
}

// deriveSteps builds a step template from keyword heuristics when the
// caller did not supply explicit steps.
func deriveSteps(question string) []StepSpec {
	q := strings.ToLower(question)
	for _, kw := range securityKeywords {
		if strings.Contains(q, kw) {
			return []StepSpec{
				{Name: "identify_assets", Description: "Identify the systems, components, or assets involved",
					Query: "What systems, components, or assets are relevant to: " + question},
				{Name: "find_threats", Description: "Find known threats and weaknesses affecting them",
					Query: "What threats, vulnerabilities, or weaknesses affect the assets relevant to: " + question},
				{Name: "assess_impact", Description: "Assess the impact and likelihood of the identified threats",
					Query: "What is the impact and likelihood of the threats relevant to: " + question},
				{Name: "recommend_mitigations", Description: "Recommend mitigations and next steps",
					Query: "What mitigations or countermeasures address: " + question},
			}
		}
	}
	return []StepSpec{
		{Name: "gather", Description: "Gather relevant facts",
			Query: "What facts are relevant to: " + question},
		{Name: "analyze", Description: "Analyze how the facts relate to the question",
			Query: "How do the known facts relate to: " + question},
		{Name: "synthesize", Description: "Draw a conclusion from the analysis",
			Query: "Based on the analysis, what is the answer to: " + question},
	}
}

// Reason executes a reasoning chain for the question. When steps is empty a
// template is derived from keyword heuristics. Steps run strictly
// sequentially; a failed step is recorded and the chain continues. The
// final answer is synthesized from completed steps only.
func (e *Engine) Reason(ctx context.Context, question string, steps []StepSpec, cfg Config) (*ReasoningResult, error) {
	if cfg.ContextSteps <= 0 {
		cfg.ContextSteps = 3
	}
	if len(steps) == 0 {
		steps = deriveSteps(question)
	}

	chain := &Chain{Question: question, Steps: make([]Step, 0, len(steps))}
	for _, spec := range steps {
		query := spec.Query
		if query == "" {
			query = spec.Description
		}
		chain.Steps = append(chain.Steps, Step{
			Name:        spec.Name,
			Description: spec.Description,
			Query:       query,
			Status:      StepPending,
		})
	}

	for !chain.IsComplete() {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		step := chain.CurrentStep()
		step.Status = StepRunning
		step.ContextFromPrevious = e.contextFromCompleted(chain, cfg.ContextSteps)

		query := step.Query
		if step.ContextFromPrevious != "" {
			query = fmt.Sprintf("Context from earlier steps:\n%s\n\n%s", step.ContextFromPrevious, step.Query)
		}

		result, err := e.answerer.Answer(ctx, query, cfg.Retrieval)
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			step.Status = StepFailed
			step.Reasoning = fmt.Sprintf("step failed: %v", err)
			logger.Warn("reasoning step failed", "step", step.Name, "error", err)
		} else {
			step.Status = StepCompleted
			step.Result = result
			step.Reasoning = fmt.Sprintf("answered %q against the knowledge base", step.Query)
		}

		chain.AdvanceToNextStep()
	}

	final := e.synthesize(ctx, chain)
	return &ReasoningResult{Chain: chain, FinalAnswer: final}, nil
}

// contextFromCompleted renders the answers of up to the last n completed
// steps.
func (e *Engine) contextFromCompleted(chain *Chain, n int) string {
	completed := chain.CompletedSteps()
	if len(completed) > n {
		completed = completed[len(completed)-n:]
	}

	var b strings.Builder
	for _, step := range completed {
		if answer := step.Answer(); answer != "" {
			fmt.Fprintf(&b, "%s: %s\n", step.Name, answer)
		}
	}
	return strings.TrimSpace(b.String())
}

// synthesize combines the completed steps' answers into one final answer.
// With zero completed steps a fixed response is returned without a
// generation call; a failed synthesis call falls back to concatenating the
// step answers verbatim.
func (e *Engine) synthesize(ctx context.Context, chain *Chain) string {
	completed := chain.CompletedSteps()
	if len(completed) == 0 {
		return UnableToAnswer
	}

	var findings strings.Builder
	for _, step := range completed {
		fmt.Fprintf(&findings, "- %s: %s\n", step.Name, step.Answer())
	}

	prompt := fmt.Sprintf(ai.SynthesisPrompt, chain.Question, findings.String())
	answer, err := e.generator.GenerateCompletion(ctx, prompt)
	if err != nil {
		logger.Warn("synthesis failed, concatenating step answers", "error", err)
		var fallback strings.Builder
		for _, step := range completed {
			fallback.WriteString(step.Answer())
			fallback.WriteString("\n")
		}
		return strings.TrimSpace(fallback.String())
	}
	return strings.TrimSpace(answer)
}
