package planner

import (
	"fmt"
	"sort"

	"steward/internal/types"
)

var knownKinds = map[types.ActionKind]bool{
	types.ActionLaunchApp:     true,
	types.ActionCloseApp:      true,
	types.ActionFindFile:      true,
	types.ActionSystemControl: true,
	types.ActionWindowControl: true,
	types.ActionMediaControl:  true,
	types.ActionClipboard:     true,
	types.ActionWebSearch:     true,
	types.ActionWait:          true,
}

// Validate checks a plan's structural invariants and returns every problem
// found, not just the first. A plan with a non-empty problem list must not
// be executed or cached.
func Validate(plan *types.TaskPlan, minConfidence float64) []string {
	var problems []string

	if len(plan.Steps) == 0 {
		return append(problems, "plan has no steps")
	}

	if plan.Confidence < minConfidence {
		problems = append(problems, fmt.Sprintf(
			"confidence %.2f below execution threshold %.2f",
			plan.Confidence, minConfidence))
	}

	n := len(plan.Steps)
	for i, step := range plan.Steps {
		if !knownKinds[step.Kind] {
			problems = append(problems, fmt.Sprintf("step %d: unknown action kind %q", i, step.Kind))
		}
		if step.Kind == types.ActionWait && step.WaitFor <= 0 {
			problems = append(problems, fmt.Sprintf("step %d: wait step without duration", i))
		}
		for _, pre := range step.Pre {
			switch pre.Kind {
			case types.PrecondStepCompleted:
				if pre.StepIndex < 0 || pre.StepIndex >= n {
					problems = append(problems, fmt.Sprintf(
						"step %d: precondition references step %d out of range", i, pre.StepIndex))
				}
			case types.PrecondStateEquals:
				// State keys are open-world: world state accumulates at
				// runtime from postconditions and SetState, so only the
				// shape is checkable here.
				if pre.StateKey == "" {
					problems = append(problems, fmt.Sprintf(
						"step %d: state_equals precondition without a state key", i))
				}
				if pre.StateValue == "" {
					problems = append(problems, fmt.Sprintf(
						"step %d: state_equals precondition without an expected value", i))
				}
			case types.PrecondResource:
				if pre.StateKey == "" {
					problems = append(problems, fmt.Sprintf(
						"step %d: resource precondition without a resource key", i))
				}
			}
		}
	}

	for step, deps := range plan.Deps {
		if step < 0 || step >= n {
			problems = append(problems, fmt.Sprintf("dependency on unknown step %d", step))
			continue
		}
		for _, d := range deps {
			if d < 0 || d >= n {
				problems = append(problems, fmt.Sprintf(
					"step %d: dependency %d out of range", step, d))
			}
			if d == step {
				problems = append(problems, fmt.Sprintf("step %d: depends on itself", step))
			}
		}
	}

	if cyc := findCycle(plan); len(cyc) > 0 {
		problems = append(problems, fmt.Sprintf("dependency cycle through steps %v", cyc))
	}

	problems = append(problems, validateGroups(plan)...)
	return problems
}

// findCycle runs Kahn's algorithm and returns the steps left unordered
// (the cycle participants), or nil when the graph is acyclic.
func findCycle(plan *types.TaskPlan) []int {
	n := len(plan.Steps)
	indegree := make([]int, n)
	dependents := make(map[int][]int, n)
	for step, deps := range plan.Deps {
		if step < 0 || step >= n {
			continue
		}
		for _, d := range deps {
			if d < 0 || d >= n {
				continue
			}
			indegree[step]++
			dependents[d] = append(dependents[d], step)
		}
	}

	queue := make([]int, 0, n)
	for i := 0; i < n; i++ {
		if indegree[i] == 0 {
			queue = append(queue, i)
		}
	}

	ordered := 0
	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		ordered++
		for _, dep := range dependents[cur] {
			indegree[dep]--
			if indegree[dep] == 0 {
				queue = append(queue, dep)
			}
		}
	}

	if ordered == n {
		return nil
	}
	var cycle []int
	for i := 0; i < n; i++ {
		if indegree[i] > 0 {
			cycle = append(cycle, i)
		}
	}
	return cycle
}

// validateGroups checks that parallel groups are coherent: every group has
// at least two members, members carry the group name, and the group's entry
// steps (members with no dependency inside the group) all become ready at
// the same time, i.e. share identical external dependencies.
func validateGroups(plan *types.TaskPlan) []string {
	var problems []string

	names := make([]string, 0, len(plan.Groups))
	for name := range plan.Groups {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		members := plan.Groups[name]
		if len(members) < 2 {
			problems = append(problems, fmt.Sprintf(
				"parallel group %q has fewer than two members", name))
			continue
		}
		inGroup := make(map[int]bool, len(members))
		for _, m := range members {
			if m < 0 || m >= len(plan.Steps) {
				problems = append(problems, fmt.Sprintf(
					"parallel group %q references step %d out of range", name, m))
				continue
			}
			if plan.Steps[m].Group != name {
				problems = append(problems, fmt.Sprintf(
					"step %d is listed in group %q but labeled %q",
					m, name, plan.Steps[m].Group))
			}
			inGroup[m] = true
		}

		var entryDeps [][]int
		for _, m := range members {
			internal := false
			var external []int
			for _, d := range plan.DependsOn(m) {
				if inGroup[d] {
					internal = true
				} else {
					external = append(external, d)
				}
			}
			if internal {
				continue
			}
			sort.Ints(external)
			entryDeps = append(entryDeps, external)
		}
		for i := 1; i < len(entryDeps); i++ {
			if !equalInts(entryDeps[i], entryDeps[0]) {
				problems = append(problems, fmt.Sprintf(
					"parallel group %q entry steps have mismatched dependencies", name))
				break
			}
		}
	}
	return problems
}

func equalInts(a, b []int) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
