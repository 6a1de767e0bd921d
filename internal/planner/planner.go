// Package planner converts classified intents into validated, dependency-
// aware task plans. A plan is a DAG of action steps: sequential segments
// chain on dependency edges, parallel segments share a group, temporal
// segments are delayed behind a wait step, and conditional segments carry
// state guards.
package planner

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	"steward/internal/cache"
	"steward/internal/logging"
	"steward/internal/types"
)

// Planner builds task plans. Valid plans for identical input text are
// memoized in the plan cache; invalid plans never are.
type Planner struct {
	cache *cache.Cache
	// minConfidence is the floor below which a plan fails validation.
	minConfidence float64

	now   func() time.Time
	newID func() string
}

// New creates a planner. c may be nil to disable memoization.
func New(c *cache.Cache, minConfidence float64) *Planner {
	return &Planner{
		cache:         c,
		minConfidence: minConfidence,
		now:           time.Now,
		newID:         func() string { return uuid.NewString() },
	}
}

// Plan builds a plan for a single atomic command.
func (p *Planner) Plan(text string, res types.ClassificationResult) *types.TaskPlan {
	return p.PlanMulti(text,
		[]types.ClassificationResult{res},
		[]types.Segment{{Text: res.Text, Coordination: types.CoordSequential}})
}

// PlanMulti merges one classification per segment into a single plan.
// results and segs are parallel slices in segment order. Merging preserves
// each segment's internal step order and never reorders segments: it only
// adds coordination edges, groups, wait steps, and guards.
func (p *Planner) PlanMulti(text string, results []types.ClassificationResult, segs []types.Segment) *types.TaskPlan {
	if p.cache != nil {
		if cached, ok := p.cache.GetPlan(text); ok {
			return cached
		}
	}

	plan := &types.TaskPlan{
		ID:        p.newID(),
		Text:      text,
		Steps:     nil,
		Deps:      make(map[int][]int),
		Groups:    make(map[string][]int),
		CreatedAt: p.now(),
	}

	if len(results) == 0 || len(results) != len(segs) {
		plan.Errors = append(plan.Errors, "nothing to plan")
		return plan
	}

	// Plan confidence is the weakest segment's confidence.
	plan.Confidence = results[0].Confidence
	for _, r := range results[1:] {
		if r.Confidence < plan.Confidence {
			plan.Confidence = r.Confidence
		}
	}

	// frontier holds the step indices a subsequent sequential segment must
	// wait on. prevEntry holds the entry dependencies of the previous
	// segment, which a parallel sibling shares instead.
	var frontier []int
	var prevEntry []int
	var prevRange [2]int
	groupSeq := 0

	for i, seg := range segs {
		steps, err := expand(results[i])
		if err != nil {
			plan.Errors = append(plan.Errors, err.Error())
			continue
		}

		entry := append([]int(nil), frontier...)
		groupName := ""

		switch seg.Coordination {
		case types.CoordParallel:
			if i > 0 {
				// Run alongside the previous segment: share its entry
				// dependencies and join (or extend) its parallel group.
				entry = append([]int(nil), prevEntry...)
				groupName = plan.Steps[prevRange[0]].Group
				if groupName == "" {
					groupSeq++
					groupName = fmt.Sprintf("par-%d", groupSeq)
					for j := prevRange[0]; j <= prevRange[1]; j++ {
						plan.Steps[j].Group = groupName
						plan.Groups[groupName] = append(plan.Groups[groupName], j)
					}
				}
			}

		case types.CoordTemporal:
			if seg.Delay > 0 {
				waitIdx := len(plan.Steps)
				plan.Steps = append(plan.Steps, types.ActionStep{
					ID:      fmt.Sprintf("step-%d", waitIdx+1),
					Kind:    types.ActionWait,
					WaitFor: seg.Delay,
				})
				for _, d := range entry {
					plan.AddDep(waitIdx, d)
				}
				entry = []int{waitIdx}
			}
		}

		start := len(plan.Steps)
		for j, step := range steps {
			idx := len(plan.Steps)
			step.ID = fmt.Sprintf("step-%d", idx+1)
			step.Group = groupName
			if j == 0 {
				if i == 0 {
					step.Pre = append(step.Pre, types.Precondition{
						Kind:      types.PrecondConfidence,
						Threshold: p.minConfidence,
					})
				}
				if seg.Coordination == types.CoordConditional && seg.Condition != "" {
					step.Pre = append(step.Pre, types.Precondition{
						Kind:       types.PrecondStateEquals,
						StateKey:   seg.Condition,
						StateValue: "true",
					})
				}
				for _, d := range entry {
					plan.AddDep(idx, d)
					step.Pre = append(step.Pre, types.Precondition{
						Kind:      types.PrecondStepCompleted,
						StepIndex: d,
					})
				}
			} else {
				plan.AddDep(idx, idx-1)
				step.Pre = append(step.Pre, types.Precondition{
					Kind:      types.PrecondStepCompleted,
					StepIndex: idx - 1,
				})
			}
			if groupName != "" {
				plan.Groups[groupName] = append(plan.Groups[groupName], idx)
			}
			plan.Steps = append(plan.Steps, step)
		}
		end := len(plan.Steps) - 1

		switch seg.Coordination {
		case types.CoordParallel:
			frontier = append(frontier, end)
		default:
			frontier = []int{end}
		}
		prevEntry = entry
		prevRange = [2]int{start, end}
	}

	plan.Errors = append(plan.Errors, Validate(plan, p.minConfidence)...)
	plan.Valid = len(plan.Errors) == 0

	if plan.Valid {
		if p.cache != nil {
			p.cache.PutPlan(text, plan)
		}
		logging.Planner("Planned %q: %d steps, %d deps (%.2f)",
			text, len(plan.Steps), len(plan.Deps), plan.Confidence)
	} else {
		logging.Planner("Rejected plan for %q: %v", text, plan.Errors)
	}
	return plan
}
