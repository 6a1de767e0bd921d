// Package executor runs validated task plans: dependency-ordered dispatch
// with bounded concurrency, retry with exponential backoff for recoverable
// failures, per-step and per-plan timeouts, cooperative cancellation,
// confirmation gates for sensitive actions, and best-effort compensation
// when a plan fails partway.
package executor

import (
	"context"
	"fmt"
	"sync"
	"time"

	"golang.org/x/sync/semaphore"

	"steward/internal/logging"
	"steward/internal/types"
)

// Executor executes task plans against an effector. Safe for concurrent
// use; world state accumulated from postconditions is shared across runs.
type Executor struct {
	effector    types.Effector
	retry       types.RetryPolicy
	policy      types.ExecutionPolicy
	parallelism int
	sink        types.EventSink

	mu    sync.RWMutex
	state map[string]string
}

// New creates an executor. sink may be nil.
func New(effector types.Effector, retry types.RetryPolicy, policy types.ExecutionPolicy, parallelism int, sink types.EventSink) *Executor {
	if parallelism < 1 {
		parallelism = 1
	}
	if sink == nil {
		sink = types.NopSink{}
	}
	return &Executor{
		effector:    effector,
		retry:       retry,
		policy:      policy,
		parallelism: parallelism,
		sink:        sink,
		state:       make(map[string]string),
	}
}

// SetState records a world-state fact consulted by state_equals and
// resource preconditions.
func (e *Executor) SetState(key, value string) {
	e.mu.Lock()
	e.state[key] = value
	e.mu.Unlock()
}

func (e *Executor) stateValue(key string) string {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.state[key]
}

// Execute runs a plan to completion, suspension, failure, or cancellation.
// Invalid plans are rejected without touching the effector.
func (e *Executor) Execute(ctx context.Context, plan *types.TaskPlan) *types.PlanResult {
	return e.run(ctx, plan, nil, nil)
}

// Resume continues a plan previously suspended awaiting confirmation.
// prior carries the suspended run's step results; confirmed marks the step
// indices the user approved. A declined step fails the plan with
// compensation of its completed predecessors.
func (e *Executor) Resume(ctx context.Context, plan *types.TaskPlan, prior *types.PlanResult, confirmed map[int]bool) *types.PlanResult {
	return e.run(ctx, plan, prior, confirmed)
}

type stepDone struct {
	idx int
	res types.StepResult
}

func (e *Executor) run(ctx context.Context, plan *types.TaskPlan, prior *types.PlanResult, confirmed map[int]bool) *types.PlanResult {
	result := &types.PlanResult{
		PlanID:      plan.ID,
		Status:      PlanStatusOf(plan),
		Started:     time.Now(),
		ConfirmStep: -1,
	}
	if !plan.Valid {
		result.Status = types.PlanFailed
		result.Failure = types.FailureInvalidPlan
		result.Message = fmt.Sprintf("plan failed validation: %v", plan.Errors)
		result.Finished = time.Now()
		return result
	}

	n := len(plan.Steps)
	statuses := make([]types.StepStatus, n)
	results := make([]types.StepResult, n)
	for i := range results {
		statuses[i] = types.StepPending
		results[i] = types.StepResult{Index: i, Status: types.StepPending}
	}
	if prior != nil {
		for _, sr := range prior.Steps {
			if sr.Index >= 0 && sr.Index < n && sr.Status == types.StepCompleted {
				statuses[sr.Index] = types.StepCompleted
				results[sr.Index] = sr
			}
		}
	}

	runCtx := ctx
	var cancel context.CancelFunc
	if e.policy.PlanTimeout > 0 {
		runCtx, cancel = context.WithTimeout(ctx, e.policy.PlanTimeout)
		defer cancel()
	}

	e.sink.Emit(types.Event{
		Time: time.Now(), Kind: types.EventPlanStarted,
		PlanID: plan.ID, Step: -1, Message: plan.Text,
	})
	logging.Executor("Executing plan %s: %d steps", plan.ID, n)

	sem := semaphore.NewWeighted(int64(e.parallelism))
	doneCh := make(chan stepDone, n)
	running := 0
	halted := false

	var haltFailure types.FailureKind
	var haltMessage string
	// A failure overrides a pending confirmation suspension, but never an
	// earlier failure.
	halt := func(kind types.FailureKind, msg string) {
		if !halted || haltFailure == "" {
			halted = true
			haltFailure = kind
			haltMessage = msg
		}
	}

	ready := func() []int {
		var out []int
		for i := 0; i < n; i++ {
			if statuses[i] != types.StepPending {
				continue
			}
			ok := true
			for _, d := range plan.DependsOn(i) {
				if statuses[d] != types.StepCompleted {
					ok = false
					break
				}
			}
			if ok {
				out = append(out, i)
			}
		}
		return out
	}

	for {
		if !halted && runCtx.Err() != nil {
			kind := types.FailureCancelled
			if runCtx.Err() == context.DeadlineExceeded {
				kind = types.FailureTimeout
			}
			halt(kind, "execution interrupted: "+runCtx.Err().Error())
		}

		if !halted {
			for _, idx := range ready() {
				if e.policy.RequiresConfirmation(plan.Steps[idx]) && !confirmed[idx] {
					// Suspend: finish what is running, start nothing new.
					e.sink.Emit(types.Event{
						Time: time.Now(), Kind: types.EventConfirmRequested,
						PlanID: plan.ID, Step: idx,
						Message: string(plan.Steps[idx].Kind),
					})
					statuses[idx] = types.StepAwaitConfirm
					results[idx].Status = types.StepAwaitConfirm
					result.ConfirmStep = idx
					halted = true
					haltFailure = ""
					break
				}
				if !sem.TryAcquire(1) {
					break
				}
				statuses[idx] = types.StepRunning
				running++
				e.sink.Emit(types.Event{
					Time: time.Now(), Kind: types.EventStepStarted,
					PlanID: plan.ID, Step: idx,
					Message: string(plan.Steps[idx].Kind),
				})
				go func(idx int) {
					defer sem.Release(1)
					doneCh <- stepDone{idx: idx, res: e.runStep(runCtx, plan, idx)}
				}(idx)
			}
		}

		if running == 0 {
			break
		}
		done := <-doneCh
		running--
		statuses[done.idx] = done.res.Status
		results[done.idx] = done.res

		switch done.res.Status {
		case types.StepCompleted:
			e.sink.Emit(types.Event{
				Time: time.Now(), Kind: types.EventStepCompleted,
				PlanID: plan.ID, Step: done.idx, Message: done.res.Message,
			})
		default:
			e.sink.Emit(types.Event{
				Time: time.Now(), Kind: types.EventStepFailed,
				PlanID: plan.ID, Step: done.idx, Message: done.res.Message,
			})
			halt(done.res.Failure, done.res.Message)
		}
	}

	return e.finish(runCtx, plan, result, statuses, results, haltFailure, haltMessage)
}

// finish classifies the terminal state and unwinds on failure.
func (e *Executor) finish(ctx context.Context, plan *types.TaskPlan, result *types.PlanResult,
	statuses []types.StepStatus, results []types.StepResult,
	haltFailure types.FailureKind, haltMessage string) *types.PlanResult {

	if result.ConfirmStep >= 0 && haltFailure == "" {
		result.Status = types.PlanAwaitConfirm
		result.Steps = results
		result.Finished = time.Now()
		logging.Executor("Plan %s suspended awaiting confirmation at step %d",
			plan.ID, result.ConfirmStep)
		return result
	}

	completed := true
	for i := range statuses {
		switch statuses[i] {
		case types.StepCompleted:
		case types.StepPending, types.StepAwaitConfirm:
			if haltFailure == types.FailureCancelled || haltFailure == types.FailureTimeout {
				results[i].Status = types.StepCancelled
			} else {
				results[i].Status = types.StepSkipped
			}
			completed = false
		default:
			completed = false
		}
	}

	switch {
	case completed:
		result.Status = types.PlanCompleted
	case haltFailure == types.FailureCancelled:
		result.Status = types.PlanCancelled
		result.Failure = haltFailure
		result.Message = haltMessage
	default:
		result.Status = types.PlanFailed
		result.Failure = haltFailure
		result.Message = haltMessage
		e.compensate(ctx, plan, results)
	}

	result.Steps = results
	result.Finished = time.Now()

	e.sink.Emit(types.Event{
		Time: time.Now(), Kind: types.EventPlanCompleted,
		PlanID: plan.ID, Step: -1, Message: string(result.Status),
	})
	logging.Executor("Plan %s finished: %s", plan.ID, result.Status)
	return result
}

// runStep checks preconditions, waits if the step is a wait step, and
// invokes the effector with retry for recoverable failures.
func (e *Executor) runStep(ctx context.Context, plan *types.TaskPlan, idx int) types.StepResult {
	step := plan.Steps[idx]
	res := types.StepResult{Index: idx}
	start := time.Now()
	defer func() { res.Duration = time.Since(start) }()

	if kind, msg, ok := e.checkPreconditions(plan, step); !ok {
		res.Status = types.StepFailed
		res.Failure = kind
		res.Message = msg
		return res
	}

	if step.Kind == types.ActionWait {
		select {
		case <-time.After(step.WaitFor):
			res.Status = types.StepCompleted
			res.Attempts = 1
			res.Message = fmt.Sprintf("waited %s", step.WaitFor)
		case <-ctx.Done():
			res.Status = types.StepCancelled
			res.Failure = ctxFailure(ctx)
			res.Message = ctx.Err().Error()
		}
		return res
	}

	stepCtx := ctx
	var cancel context.CancelFunc
	if e.policy.StepTimeout > 0 {
		stepCtx, cancel = context.WithTimeout(ctx, e.policy.StepTimeout)
		defer cancel()
	}

	for attempt := 0; attempt < e.retry.MaxAttempts; attempt++ {
		if attempt > 0 {
			backoff := e.retry.BackoffFor(attempt - 1)
			select {
			case <-time.After(backoff):
			case <-stepCtx.Done():
				res.Status = types.StepCancelled
				res.Failure = ctxFailure(stepCtx)
				res.Message = stepCtx.Err().Error()
				return res
			}
			e.sink.Emit(types.Event{
				Time: time.Now(), Kind: types.EventStepRetried,
				PlanID: plan.ID, Step: idx,
				Message: fmt.Sprintf("attempt %d after %s", attempt+1, backoff),
			})
			logging.ExecutorDebug("Retrying step %d (attempt %d)", idx, attempt+1)
		}

		res.Attempts = attempt + 1

		// Race the effector against the step deadline. The buffered channel
		// lets an effector that ignores ctx finish on its own later instead
		// of holding the step hostage.
		outcomeCh := make(chan types.Outcome, 1)
		go func() {
			outcomeCh <- e.effector.Execute(stepCtx, step.Kind, step.Params)
		}()
		var outcome types.Outcome
		select {
		case outcome = <-outcomeCh:
		case <-stepCtx.Done():
			res.Status = types.StepCancelled
			res.Failure = ctxFailure(stepCtx)
			res.Message = stepCtx.Err().Error()
			return res
		}

		if stepCtx.Err() != nil {
			res.Status = types.StepCancelled
			res.Failure = ctxFailure(stepCtx)
			res.Message = stepCtx.Err().Error()
			return res
		}

		if outcome.Success {
			res.Status = types.StepCompleted
			res.Message = outcome.Message
			for _, post := range step.Post {
				e.SetState(post.StateKey, post.StateValue)
			}
			return res
		}

		res.Message = outcome.Message
		if !outcome.Recoverable {
			res.Status = types.StepFailed
			res.Failure = types.FailureEffectorTerminal
			return res
		}
		res.Failure = types.FailureEffectorRecoverable
	}

	res.Status = types.StepFailed
	res.Message = fmt.Sprintf("gave up after %d attempts: %s", res.Attempts, res.Message)
	return res
}

func (e *Executor) checkPreconditions(plan *types.TaskPlan, step types.ActionStep) (types.FailureKind, string, bool) {
	for _, pre := range step.Pre {
		switch pre.Kind {
		case types.PrecondStepCompleted:
			// Enforced by the dispatcher via dependency edges; a step is
			// only started once its prerequisites completed.
		case types.PrecondConfidence:
			if plan.Confidence < pre.Threshold {
				return types.FailureStepPrecondition,
					fmt.Sprintf("confidence %.2f below %.2f", plan.Confidence, pre.Threshold), false
			}
		case types.PrecondStateEquals:
			if got := e.stateValue(pre.StateKey); got != pre.StateValue {
				return types.FailureStepPrecondition,
					fmt.Sprintf("state %q is %q, want %q", pre.StateKey, got, pre.StateValue), false
			}
		case types.PrecondResource:
			if e.stateValue("resource:"+pre.StateKey) == "unavailable" {
				return types.FailureStepPrecondition,
					fmt.Sprintf("resource %q unavailable", pre.StateKey), false
			}
		}
	}
	return "", "", true
}

func ctxFailure(ctx context.Context) types.FailureKind {
	if ctx.Err() == context.DeadlineExceeded {
		return types.FailureTimeout
	}
	return types.FailureCancelled
}

// PlanStatusOf returns the initial status for a plan run.
func PlanStatusOf(plan *types.TaskPlan) types.PlanStatus {
	if !plan.Valid {
		return types.PlanFailed
	}
	return types.PlanRunning
}
