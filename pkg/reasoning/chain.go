package reasoning

import (
	"github.com/neoforge-dev/synapse/pkg/retrieval"
)

// StepStatus is the lifecycle state of a single reasoning step.
type StepStatus string

const (
	StepPending   StepStatus = "pending"
	StepRunning   StepStatus = "running"
	StepCompleted StepStatus = "completed"
	StepFailed    StepStatus = "failed"
)

// Step is one unit of a reasoning chain. Result holds the retrieval-backed
// answer bundle once the step completed; Reasoning carries the free-text
// trace, including the error text when the step failed.
type Step struct {
	Name                string
	Description         string
	Query               string
	Status              StepStatus
	Result              *retrieval.AnswerResult
	Reasoning           string
	ContextFromPrevious string
}

// Answer returns the step's answer text, or empty when the step has no
// result yet.
func (s *Step) Answer() string {
	if s.Result == nil {
		return ""
	}
	return s.Result.Answer
}

// Chain is an ordered list of steps executed strictly sequentially.
// CurrentStepIndex only ever increases; completion is derived from it.
type Chain struct {
	Question         string
	Steps            []Step
	CurrentStepIndex int
}

// IsComplete reports whether every step has been attempted.
func (c *Chain) IsComplete() bool {
	return c.CurrentStepIndex >= len(c.Steps)
}

// CurrentStep returns the step at the cursor, or nil when the chain is
// complete.
func (c *Chain) CurrentStep() *Step {
	if c.IsComplete() {
		return nil
	}
	return &c.Steps[c.CurrentStepIndex]
}

// AdvanceToNextStep moves the cursor forward by one. Calling it on a
// completed chain is a no-op; the index never decreases.
func (c *Chain) AdvanceToNextStep() {
	if c.IsComplete() {
		return
	}
	c.CurrentStepIndex++
}

// CompletedSteps returns the steps that finished successfully, in order.
func (c *Chain) CompletedSteps() []*Step {
	var out []*Step
	for i := range c.Steps {
		if c.Steps[i].Status == StepCompleted {
			out = append(out, &c.Steps[i])
		}
	}
	return out
}
