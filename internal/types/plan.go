package types

import (
	"fmt"
	"time"
)

// =============================================================================
// ACTION STEPS
// =============================================================================

// ActionKind is the closed set of step kinds the executor understands.
type ActionKind string

const (
	ActionLaunchApp     ActionKind = "launch_app"
	ActionCloseApp      ActionKind = "close_app"
	ActionFindFile      ActionKind = "find_file"
	ActionSystemControl ActionKind = "system_control"
	ActionWindowControl ActionKind = "window_control"
	ActionMediaControl  ActionKind = "media_control"
	ActionClipboard     ActionKind = "clipboard"
	ActionWebSearch     ActionKind = "web_search"
	ActionWait          ActionKind = "wait"
)

// PrecondKind identifies the guard type of a Precondition.
type PrecondKind string

const (
	// PrecondStepCompleted requires step StepIndex to have completed.
	PrecondStepCompleted PrecondKind = "step_completed"
	// PrecondStateEquals requires a named state key to equal StateValue.
	PrecondStateEquals PrecondKind = "state_equals"
	// PrecondConfidence requires the plan's classification confidence to
	// meet Threshold.
	PrecondConfidence PrecondKind = "confidence"
	// PrecondResource requires a named resource to be available.
	PrecondResource PrecondKind = "resource"
)

// Precondition is a guard checked before a step runs. Unmet preconditions
// fail the step without invoking the effector.
type Precondition struct {
	Kind       PrecondKind
	StepIndex  int
	StateKey   string
	StateValue string
	Threshold  float64
}

// Postcondition is a state assertion expected true after a step completes.
type Postcondition struct {
	StateKey   string
	StateValue string
}

// ActionStep is one executable unit of a TaskPlan.
type ActionStep struct {
	// ID is a correlation identifier unique within the plan.
	ID     string
	Kind   ActionKind
	Params map[string]string
	Pre    []Precondition
	Post   []Postcondition
	// Group names the parallel group this step belongs to; empty means
	// the step is ungrouped.
	Group string
	// WaitFor is the Wait step's suspend duration; only meaningful for
	// ActionWait.
	WaitFor time.Duration
}

// Param returns a parameter value or "".
func (s ActionStep) Param(key string) string {
	return s.Params[key]
}

// =============================================================================
// TASK PLAN
// =============================================================================

// TaskPlan is the validated, schedulable output of the planner. Immutable
// once handed to the execution engine.
type TaskPlan struct {
	// ID is the plan correlation identifier.
	ID string
	// Text is the normalized input the plan was built from.
	Text string
	// Confidence is the (minimum, for merged plans) classification
	// confidence the plan was built under.
	Confidence float64
	Steps      []ActionStep
	// Deps maps step index to the indices it depends on. A step runs only
	// after all of its dependencies have completed.
	Deps map[int][]int
	// Groups maps parallel group name to the member step indices.
	Groups map[string][]int
	// Valid reports whether validation passed. Invalid plans are returned
	// with Errors populated and are never executed.
	Valid  bool
	Errors []string

	CreatedAt time.Time
}

// DependsOn returns the dependency indices for a step (never nil).
func (p *TaskPlan) DependsOn(step int) []int {
	if p.Deps == nil {
		return nil
	}
	return p.Deps[step]
}

// AddDep records a dependency edge from step to prereq.
func (p *TaskPlan) AddDep(step, prereq int) {
	if p.Deps == nil {
		p.Deps = make(map[int][]int)
	}
	for _, d := range p.Deps[step] {
		if d == prereq {
			return
		}
	}
	p.Deps[step] = append(p.Deps[step], prereq)
}

// =============================================================================
// POLICIES
// =============================================================================

// RetryPolicy controls retry-with-backoff for recoverable effector failures.
type RetryPolicy struct {
	MaxAttempts    int
	InitialBackoff time.Duration
	MaxBackoff     time.Duration
	Multiplier     float64
}

// DefaultRetryPolicy returns the global default policy.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		MaxAttempts:    3,
		InitialBackoff: 100 * time.Millisecond,
		MaxBackoff:     5 * time.Second,
		Multiplier:     2.0,
	}
}

// BackoffFor returns the delay before the given retry attempt (0-based:
// attempt 0 is the delay before the first retry). Exponential, capped at
// MaxBackoff.
func (rp RetryPolicy) BackoffFor(attempt int) time.Duration {
	d := float64(rp.InitialBackoff)
	for i := 0; i < attempt; i++ {
		d *= rp.Multiplier
		if time.Duration(d) >= rp.MaxBackoff {
			return rp.MaxBackoff
		}
	}
	if time.Duration(d) > rp.MaxBackoff {
		return rp.MaxBackoff
	}
	return time.Duration(d)
}

// ExecutionPolicy gates sensitive actions and bounds execution time.
type ExecutionPolicy struct {
	// ConfirmKinds lists action kinds that always require confirmation.
	ConfirmKinds map[ActionKind]bool
	// ConfirmOps lists "kind/op" pairs requiring confirmation, for kinds
	// where only specific operations are sensitive (e.g.
	// "system_control/shutdown").
	ConfirmOps map[string]bool

	StepTimeout time.Duration
	PlanTimeout time.Duration
}

// DefaultExecutionPolicy returns the default gating policy.
func DefaultExecutionPolicy() ExecutionPolicy {
	return ExecutionPolicy{
		ConfirmKinds: map[ActionKind]bool{},
		ConfirmOps: map[string]bool{
			"system_control/shutdown": true,
			"system_control/restart":  true,
			"close_app/all":           true,
		},
		StepTimeout: 30 * time.Second,
		PlanTimeout: 5 * time.Minute,
	}
}

// RequiresConfirmation reports whether a step must be confirmed before it
// may run.
func (ep ExecutionPolicy) RequiresConfirmation(step ActionStep) bool {
	if ep.ConfirmKinds[step.Kind] {
		return true
	}
	if op := step.Param("op"); op != "" {
		return ep.ConfirmOps[string(step.Kind)+"/"+op]
	}
	return false
}

// =============================================================================
// EXECUTION RESULTS
// =============================================================================

// StepStatus is the lifecycle state of one step.
type StepStatus string

const (
	StepPending      StepStatus = "pending"
	StepRunning      StepStatus = "running"
	StepCompleted    StepStatus = "completed"
	StepFailed       StepStatus = "failed"
	StepSkipped      StepStatus = "skipped"
	StepCancelled    StepStatus = "cancelled"
	StepAwaitConfirm StepStatus = "awaiting_confirmation"
)

// PlanStatus is the lifecycle state of a plan execution.
type PlanStatus string

const (
	PlanPending      PlanStatus = "pending"
	PlanRunning      PlanStatus = "running"
	PlanCompleted    PlanStatus = "completed"
	PlanFailed       PlanStatus = "failed"
	PlanCancelled    PlanStatus = "cancelled"
	PlanAwaitConfirm PlanStatus = "awaiting_confirmation"
)

// StepResult is the per-step outcome within a PlanResult.
type StepResult struct {
	Index    int
	Status   StepStatus
	Attempts int
	Failure  FailureKind
	Message  string
	Duration time.Duration
	// Compensated is true when the step's undo ran during failure unwind.
	Compensated bool
}

// PlanResult aggregates per-step outcomes for one plan execution.
type PlanResult struct {
	PlanID   string
	Status   PlanStatus
	Steps    []StepResult
	Failure  FailureKind
	Message  string
	Started  time.Time
	Finished time.Time
	// ConfirmStep is the index of the step awaiting confirmation when
	// Status is PlanAwaitConfirm, -1 otherwise.
	ConfirmStep int
}

// Succeeded reports whether every step completed.
func (pr *PlanResult) Succeeded() bool {
	return pr.Status == PlanCompleted
}

// =============================================================================
// EVENTS
// =============================================================================

// EventKind identifies a lifecycle notification.
type EventKind string

const (
	EventPlanStarted      EventKind = "plan_started"
	EventPlanCompleted    EventKind = "plan_completed"
	EventStepStarted      EventKind = "step_started"
	EventStepRetried      EventKind = "step_retried"
	EventStepCompleted    EventKind = "step_completed"
	EventStepFailed       EventKind = "step_failed"
	EventConfirmRequested EventKind = "confirmation_requested"
	EventConfirmAnswered  EventKind = "confirmation_answered"
	EventGrammarReloaded  EventKind = "grammar_reloaded"
	EventCacheInvalidated EventKind = "cache_invalidated"
)

// Event is one lifecycle notification delivered to the EventSink.
type Event struct {
	Time   time.Time
	Kind   EventKind
	PlanID string
	// Step is the step index the event refers to, -1 for plan-level events.
	Step    int
	Message string
}

func (e Event) String() string {
	if e.Step >= 0 {
		return fmt.Sprintf("%s plan=%s step=%d %s", e.Kind, e.PlanID, e.Step, e.Message)
	}
	return fmt.Sprintf("%s plan=%s %s", e.Kind, e.PlanID, e.Message)
}

// EventSink receives lifecycle notifications. Implementations must be safe
// for concurrent use and must not block for long periods.
type EventSink interface {
	Emit(Event)
}

// NopSink discards all events.
type NopSink struct{}

// Emit implements EventSink.
func (NopSink) Emit(Event) {}
