package ego

import (
	"go.uber.org/zap"

	"github.com/copyleftdev/egoserver/internal/optimization"
)

// refit replaces the surrogate with one conditioned on the whole archive.
// n is the number of evaluations performed so far in the run.
func (e *EGO) refit(n int) error {
	period := e.config.ParameterEstimationPeriod
	full := period > 0 && n%period == 0

	X, y := e.archive.Matrices()
	next, err := e.surrogate.Refit(X, y, !full)
	if err != nil {
		return optimization.WrapErrorf(err, "surrogate refit after %d evaluations failed", n).
			WithOperation("refit").
			WithComponent("ego").
			WithKind(optimization.KindRefit)
	}
	e.surrogate = next
	e.observer.ObserveRefit(full)

	e.logger.Debug("Refitted surrogate",
		zap.Int("evaluations", n),
		zap.Bool("estimated", full),
		zap.Float64s("scale", next.Scale()),
		zap.Float64("nugget", next.NuggetFactor()))
	return nil
}
