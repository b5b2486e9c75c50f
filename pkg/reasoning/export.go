package reasoning

import (
	"encoding/json"
)

type exportStep struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	Status      string `json:"status"`
	Query       string `json:"query"`
	Answer      string `json:"answer"`
	Reasoning   string `json:"reasoning"`
}

type exportChain struct {
	Question    string       `json:"question"`
	Steps       []exportStep `json:"steps"`
	FinalAnswer string       `json:"final_answer"`
}

// MarshalJSON renders the reasoning result as the documented JSON export:
// the question, one record per step, and the final answer.
func (r *ReasoningResult) MarshalJSON() ([]byte, error) {
	out := exportChain{
		Question:    r.Chain.Question,
		Steps:       make([]exportStep, 0, len(r.Chain.Steps)),
		FinalAnswer: r.FinalAnswer,
	}
	for i := range r.Chain.Steps {
		step := &r.Chain.Steps[i]
		out.Steps = append(out.Steps, exportStep{
			Name:        step.Name,
			Description: step.Description,
			Status:      string(step.Status),
			Query:       step.Query,
			Answer:      step.Answer(),
			Reasoning:   step.Reasoning,
		})
	}
	return json.Marshal(out)
}
