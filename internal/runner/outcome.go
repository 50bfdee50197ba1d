package runner

import (
	"github.com/copyleftdev/egoserver/internal/optimization/ego"
)

// Step is one evaluation of a run, as reported to clients
type Step struct {
	Iteration           int       `json:"iteration"`
	X                   []float64 `json:"x"`
	Value               float64   `json:"value"`
	ExpectedImprovement float64   `json:"expected_improvement"`
	Target              float64   `json:"target"`
}

// Outcome is the serializable summary of a finished run
type Outcome struct {
	BestPoint   []float64 `json:"best_point"`
	BestValue   float64   `json:"best_value"`
	Iterations  int       `json:"iterations"`
	Evaluations int       `json:"evaluations"`
	StopReason  string    `json:"stop_reason"`
	ArchiveSize int       `json:"archive_size"`
	Scale       []float64 `json:"scale,omitempty"`
	History     []Step    `json:"history"`
}

// NewOutcome summarizes a run result
func NewOutcome(res *ego.Result) *Outcome {
	if res == nil {
		return nil
	}
	out := &Outcome{
		Iterations:  res.Iterations,
		Evaluations: res.Evaluations,
		StopReason:  string(res.StopReason),
		History:     make([]Step, 0, len(res.History)),
	}
	if res.BestSolution != nil {
		out.BestPoint = res.BestSolution.Parameters
		out.BestValue = res.BestSolution.Value
	}
	if res.Archive != nil {
		out.ArchiveSize = res.Archive.Len()
	}
	if res.Surrogate != nil {
		out.Scale = res.Surrogate.Scale()
	}
	for _, h := range res.History {
		out.History = append(out.History, Step{
			Iteration:           h.Iteration,
			X:                   h.Solution.Parameters,
			Value:               h.Solution.Value,
			ExpectedImprovement: h.ExpectedImprovement,
			Target:              h.Target,
		})
	}
	return out
}
