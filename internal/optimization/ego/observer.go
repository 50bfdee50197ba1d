package ego

import "github.com/copyleftdev/egoserver/internal/optimization"

// Observer receives run events, typically to export metrics
type Observer interface {
	// ObserveEvaluation is called after each objective evaluation
	ObserveEvaluation(value, best float64)
	// ObserveExpectedImprovement is called with the acquisition value of each accepted candidate
	ObserveExpectedImprovement(value float64)
	// ObserveRefit is called after each surrogate refit
	ObserveRefit(full bool)
	// ObserveStop is called once when a run ends normally
	ObserveStop(reason optimization.StopReason)
}

type nopObserver struct{}

func (nopObserver) ObserveEvaluation(float64, float64) {}
func (nopObserver) ObserveExpectedImprovement(float64) {}
func (nopObserver) ObserveRefit(bool) {}
func (nopObserver) ObserveStop(optimization.StopReason) {}
