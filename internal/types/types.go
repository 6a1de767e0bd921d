package types

import (
	"context"
	"time"
)

// =============================================================================
// PARSED COMMAND - Structural Match Output
// =============================================================================

// ParsedCommand is the read-only result of a successful grammar match.
// Text is the normalized input; Captures holds the raw capture groups for
// the winning pattern; Entities holds the typed values derived from them.
type ParsedCommand struct {
	// Text is the normalized input the match ran against.
	Text string
	// PatternID identifies the grammar rule that won.
	PatternID string
	// Intent is the intent name declared by the winning rule.
	Intent string
	// Priority is the winning rule's declared priority.
	Priority int
	// Confidence is the structural match confidence (0.0-1.0), derived
	// from how much of the normalized text the pattern consumed.
	Confidence float64
	// Captures maps capture group name to raw substring.
	Captures map[string]string
	// Entities holds the typed captures in slot declaration order.
	Entities *Entities
}

// =============================================================================
// CLASSIFICATION - Scored Intent
// =============================================================================

// ScoreFactor is one component of a confidence score, with its weighted
// contribution and a short human-readable reason.
type ScoreFactor struct {
	Name         string
	Weight       float64
	Contribution float64
	Reason       string
}

// ClassificationResult is the Ranking Scorer's output for one parsed command.
type ClassificationResult struct {
	Intent string
	// PatternID is the winning grammar rule.
	PatternID  string
	Confidence float64
	Factors    []ScoreFactor
	Entities   *Entities
	// Text is the normalized text the classification was produced from.
	Text string
}

// =============================================================================
// CONVERSATION CONTEXT
// =============================================================================

// ContextEntry records one completed command for short-term memory.
type ContextEntry struct {
	Timestamp time.Time
	Text      string
	Intent    string
	// Primary is the main entity the command acted on (e.g. the app),
	// used for reference resolution ("it", "the same app"). May be nil.
	Primary *Entity
	Success bool
}

// =============================================================================
// MULTI-INTENT SEGMENTS
// =============================================================================

// CoordinationType is the relationship between a segment and its predecessor.
type CoordinationType string

const (
	CoordSequential  CoordinationType = "sequential"
	CoordParallel    CoordinationType = "parallel"
	CoordConditional CoordinationType = "conditional"
	CoordTemporal    CoordinationType = "temporal"
)

// Segment is one atomic sub-command extracted from a compound utterance.
type Segment struct {
	// Text is the sub-command text, already trimmed.
	Text string
	// Coordination relates this segment to the previous one. The first
	// segment is always Sequential.
	Coordination CoordinationType
	// Delay is the temporal modifier for CoordTemporal segments,
	// normalized to a duration at segmentation time. Zero otherwise.
	Delay time.Duration
	// Condition carries the guard text for CoordConditional segments.
	Condition string
}

// =============================================================================
// ERROR TAXONOMY
// =============================================================================

// FailureKind classifies a failure for propagation decisions.
type FailureKind string

const (
	FailureNoMatch             FailureKind = "no_match"
	FailureInvalidPlan         FailureKind = "invalid_plan"
	FailureStepPrecondition    FailureKind = "step_precondition"
	FailureEffectorRecoverable FailureKind = "effector_recoverable"
	FailureEffectorTerminal    FailureKind = "effector_terminal"
	FailureCancelled           FailureKind = "cancelled"
	FailureTimeout             FailureKind = "timeout"
)

// =============================================================================
// EXTERNAL COLLABORATOR CONTRACTS
// =============================================================================

// KnowledgeProvider answers "is this name known" queries for entity
// validation and ranking. Implementations must be safe for concurrent use.
type KnowledgeProvider interface {
	// IsKnown reports whether the name refers to a known application,
	// file, or other addressable object.
	IsKnown(name string) bool
	// Aliases returns alternative names for the given name, or nil.
	Aliases(name string) []string
}

// Outcome is the result of one effector invocation.
type Outcome struct {
	Success bool
	Message string
	// Recoverable marks a failure as retryable per the retry policy.
	Recoverable bool
}

// Effector performs one concrete action. The execution engine never
// inspects effector internals, only this contract. Implementations must
// honor ctx cancellation.
type Effector interface {
	Execute(ctx context.Context, kind ActionKind, params map[string]string) Outcome
}

// =============================================================================
// CLARIFICATION
// =============================================================================

// ClarificationRequest is emitted when confidence falls below the clarify
// threshold. The caller is expected to obtain an answer and re-run
// classification on the combined text.
type ClarificationRequest struct {
	Text         string
	Confidence   float64
	MissingSlots []string
	Suggestions  []string
}
