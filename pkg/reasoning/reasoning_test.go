package reasoning

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/neoforge-dev/synapse/pkg/ai"
	"github.com/neoforge-dev/synapse/pkg/retrieval"
)

type fakeAnswerer struct {
	answers map[string]string
	failOn  string
	calls   []string
}

func (f *fakeAnswerer) Answer(ctx context.Context, query string, cfg retrieval.Config) (*retrieval.AnswerResult, error) {
	f.calls = append(f.calls, query)
	if f.failOn != "" && strings.Contains(query, f.failOn) {
		return nil, errors.New("orchestrator unavailable")
	}
	answer := "default answer"
	for key, a := range f.answers {
		if strings.Contains(query, key) {
			answer = a
		}
	}
	return &retrieval.AnswerResult{Answer: answer}, nil
}

type fakeGenerator struct {
	text string
	err  error
}

func (f *fakeGenerator) GenerateCompletion(ctx context.Context, prompt string, opts ...ai.GenerateOption) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	return f.text, nil
}

func TestChainAdvanceMonotonic(t *testing.T) {
	chain := &Chain{Steps: make([]Step, 2)}

	chain.AdvanceToNextStep()
	if chain.CurrentStepIndex != 1 {
		t.Fatalf("index = %d, want 1", chain.CurrentStepIndex)
	}
	chain.AdvanceToNextStep()
	if !chain.IsComplete() {
		t.Fatal("chain should be complete")
	}

	// advancing a completed chain is a no-op
	for range 3 {
		chain.AdvanceToNextStep()
	}
	if chain.CurrentStepIndex != 2 {
		t.Errorf("index = %d after no-op advances, want 2", chain.CurrentStepIndex)
	}
}

func TestDeriveStepsTemplates(t *testing.T) {
	tests := []struct {
		name     string
		question string
		want     int
	}{
		{"security question gets 4-step template", "What vulnerabilities affect the auth service?", 4},
		{"generic question gets 3-step template", "How does the billing pipeline work?", 3},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			steps := deriveSteps(tt.question)
			if len(steps) != tt.want {
				t.Errorf("got %d steps, want %d", len(steps), tt.want)
			}
		})
	}
}

func TestReasonStepFailureContinuesChain(t *testing.T) {
	answerer := &fakeAnswerer{
		answers: map[string]string{
			"step one":   "finding one",
			"step three": "finding three",
		},
		failOn: "step two",
	}
	engine := New(answerer, &fakeGenerator{text: "synthesized from one and three"})

	steps := []StepSpec{
		{Name: "first", Query: "step one"},
		{Name: "second", Query: "step two"},
		{Name: "third", Query: "step three"},
	}
	result, err := engine.Reason(context.Background(), "q", steps, Config{})
	if err != nil {
		t.Fatal(err)
	}

	statuses := []StepStatus{}
	for _, s := range result.Chain.Steps {
		statuses = append(statuses, s.Status)
	}
	want := []StepStatus{StepCompleted, StepFailed, StepCompleted}
	for i := range want {
		if statuses[i] != want[i] {
			t.Errorf("step %d status = %s, want %s", i, statuses[i], want[i])
		}
	}

	if result.Chain.Steps[1].Reasoning == "" {
		t.Error("failed step should carry the error text as reasoning")
	}
	if result.FinalAnswer != "synthesized from one and three" {
		t.Errorf("final answer = %q", result.FinalAnswer)
	}
	if !result.Chain.IsComplete() {
		t.Error("chain should be complete after all steps attempted")
	}
}

func TestReasonContextFlowsBetweenSteps(t *testing.T) {
	answerer := &fakeAnswerer{answers: map[string]string{"step one": "the sky is blue"}}
	engine := New(answerer, &fakeGenerator{text: "done"})

	steps := []StepSpec{
		{Name: "first", Query: "step one"},
		{Name: "second", Query: "step two"},
	}
	_, err := engine.Reason(context.Background(), "q", steps, Config{})
	if err != nil {
		t.Fatal(err)
	}

	if len(answerer.calls) != 2 {
		t.Fatalf("got %d orchestrator calls, want 2", len(answerer.calls))
	}
	if !strings.Contains(answerer.calls[1], "the sky is blue") {
		t.Errorf("second step query missing first step's answer: %q", answerer.calls[1])
	}
}

func TestReasonAllStepsFailed(t *testing.T) {
	answerer := &fakeAnswerer{failOn: "step"}
	generator := &fakeGenerator{text: "should not be called"}
	engine := New(answerer, generator)

	steps := []StepSpec{{Name: "only", Query: "step one"}}
	result, err := engine.Reason(context.Background(), "q", steps, Config{})
	if err != nil {
		t.Fatal(err)
	}
	if result.FinalAnswer != UnableToAnswer {
		t.Errorf("final answer = %q, want the fixed unable-to-answer response", result.FinalAnswer)
	}
}

func TestReasonSynthesisFailureFallsBack(t *testing.T) {
	answerer := &fakeAnswerer{answers: map[string]string{"step one": "finding one"}}
	engine := New(answerer, &fakeGenerator{err: errors.New("model down")})

	steps := []StepSpec{{Name: "only", Query: "step one"}}
	result, err := engine.Reason(context.Background(), "q", steps, Config{})
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(result.FinalAnswer, "finding one") {
		t.Errorf("fallback should concatenate step answers, got %q", result.FinalAnswer)
	}
}

func TestReasoningResultJSONExport(t *testing.T) {
	answerer := &fakeAnswerer{answers: map[string]string{"step one": "finding one"}}
	engine := New(answerer, &fakeGenerator{text: "final"})

	result, err := engine.Reason(context.Background(), "the question",
		[]StepSpec{{Name: "only", Description: "the only step", Query: "step one"}}, Config{})
	if err != nil {
		t.Fatal(err)
	}

	data, err := json.Marshal(result)
	if err != nil {
		t.Fatal(err)
	}

	var decoded map[string]any
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatal(err)
	}
	if decoded["question"] != "the question" {
		t.Errorf("question = %v", decoded["question"])
	}
	if decoded["final_answer"] != "final" {
		t.Errorf("final_answer = %v", decoded["final_answer"])
	}
	steps, ok := decoded["steps"].([]any)
	if !ok || len(steps) != 1 {
		t.Fatalf("steps = %v", decoded["steps"])
	}
	step := steps[0].(map[string]any)
	for _, key := range []string{"name", "description", "status", "query", "answer", "reasoning"} {
		if _, ok := step[key]; !ok {
			t.Errorf("step export missing %q", key)
		}
	}
}
