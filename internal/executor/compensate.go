package executor

import (
	"context"
	"time"

	"steward/internal/logging"
	"steward/internal/types"
)

// compensationFor returns the inverse action for a completed step, or
// false when the step has no meaningful undo. Reads, waits, and one-shot
// system operations are not compensated.
func compensationFor(step types.ActionStep) (types.ActionStep, bool) {
	switch step.Kind {
	case types.ActionLaunchApp:
		return types.ActionStep{
			Kind:   types.ActionCloseApp,
			Params: map[string]string{"app": step.Param("app")},
		}, true

	case types.ActionSystemControl:
		switch step.Param("op") {
		case "mute":
			return types.ActionStep{
				Kind:   types.ActionSystemControl,
				Params: map[string]string{"op": "unmute"},
			}, true
		case "unmute":
			return types.ActionStep{
				Kind:   types.ActionSystemControl,
				Params: map[string]string{"op": "mute"},
			}, true
		}

	case types.ActionMediaControl:
		switch step.Param("op") {
		case "play":
			return types.ActionStep{
				Kind:   types.ActionMediaControl,
				Params: map[string]string{"op": "pause"},
			}, true
		case "pause":
			return types.ActionStep{
				Kind:   types.ActionMediaControl,
				Params: map[string]string{"op": "play"},
			}, true
		}

	case types.ActionWindowControl:
		switch step.Param("op") {
		case "maximize":
			return types.ActionStep{
				Kind:   types.ActionWindowControl,
				Params: map[string]string{"op": "restore", "app": step.Param("app")},
			}, true
		case "minimize":
			return types.ActionStep{
				Kind:   types.ActionWindowControl,
				Params: map[string]string{"op": "restore", "app": step.Param("app")},
			}, true
		}
	}
	return types.ActionStep{}, false
}

// compensate unwinds completed steps in reverse completion order after a
// plan failure. Compensation is best-effort: an undo that itself fails is
// logged and recorded, never retried, and never blocks the remaining
// unwind. Steps without an inverse are marked compensated as a no-op.
func (e *Executor) compensate(ctx context.Context, plan *types.TaskPlan, results []types.StepResult) {
	// The unwind keeps going even when the plan context is already dead.
	if ctx.Err() != nil {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
	}

	for i := len(results) - 1; i >= 0; i-- {
		if results[i].Status != types.StepCompleted {
			continue
		}
		step := plan.Steps[i]
		undo, ok := compensationFor(step)
		if !ok {
			results[i].Compensated = true
			logging.ExecutorDebug("Step %d (%s) has no inverse, recorded as no-op", i, step.Kind)
			continue
		}

		outcome := e.effector.Execute(ctx, undo.Kind, undo.Params)
		results[i].Compensated = outcome.Success
		if outcome.Success {
			logging.Executor("Compensated step %d (%s)", i, step.Kind)
		} else {
			logging.Executor("Compensation for step %d (%s) failed: %s",
				i, step.Kind, outcome.Message)
		}
	}
}
