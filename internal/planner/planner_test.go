package planner

import (
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"steward/internal/cache"
	"steward/internal/types"
)

func classification(intent, text string, confidence float64, slots map[string]types.Entity) types.ClassificationResult {
	es := types.NewEntities()
	for slot, e := range slots {
		es.Set(slot, e)
	}
	return types.ClassificationResult{
		Intent:     intent,
		Confidence: confidence,
		Entities:   es,
		Text:       text,
	}
}

func seg(text string, coord types.CoordinationType) types.Segment {
	return types.Segment{Text: text, Coordination: coord}
}

func TestPlanAtomic(t *testing.T) {
	p := New(nil, 0.5)
	res := classification("launch_app", "open chrome", 0.8,
		map[string]types.Entity{"app": types.NewAppEntity("chrome")})

	plan := p.Plan("open chrome", res)
	if !plan.Valid {
		t.Fatalf("expected valid plan, errors: %v", plan.Errors)
	}
	if plan.ID == "" {
		t.Error("plan should carry an ID")
	}
	if len(plan.Steps) != 1 {
		t.Fatalf("expected 1 step, got %d", len(plan.Steps))
	}
	step := plan.Steps[0]
	if step.Kind != types.ActionLaunchApp || step.Param("app") != "chrome" {
		t.Errorf("unexpected step: %+v", step)
	}
	var hasConfidenceGuard bool
	for _, pre := range step.Pre {
		if pre.Kind == types.PrecondConfidence && pre.Threshold == 0.5 {
			hasConfidenceGuard = true
		}
	}
	if !hasConfidenceGuard {
		t.Error("first step should carry the confidence guard")
	}
}

func TestPlanMultiStepExpansion(t *testing.T) {
	p := New(nil, 0.5)
	res := classification("open_app_with_file", "open chrome with report.pdf", 0.8,
		map[string]types.Entity{
			"app":  types.NewAppEntity("chrome"),
			"file": types.NewFileEntity("report.pdf"),
		})

	plan := p.Plan("open chrome with report.pdf", res)
	if !plan.Valid {
		t.Fatalf("expected valid plan, errors: %v", plan.Errors)
	}
	if len(plan.Steps) != 2 {
		t.Fatalf("expected 2 steps, got %d", len(plan.Steps))
	}
	if plan.Steps[0].Kind != types.ActionFindFile || plan.Steps[1].Kind != types.ActionLaunchApp {
		t.Errorf("unexpected step order: %v %v", plan.Steps[0].Kind, plan.Steps[1].Kind)
	}
	deps := plan.DependsOn(1)
	if len(deps) != 1 || deps[0] != 0 {
		t.Errorf("launch should depend on find, got %v", deps)
	}
}

func TestPlanSequentialSegments(t *testing.T) {
	p := New(nil, 0.5)
	results := []types.ClassificationResult{
		classification("launch_app", "open chrome", 0.8,
			map[string]types.Entity{"app": types.NewAppEntity("chrome")}),
		classification("play_music", "play music", 0.7, nil),
	}
	segs := []types.Segment{
		seg("open chrome", types.CoordSequential),
		seg("play music", types.CoordSequential),
	}

	plan := p.PlanMulti("open chrome then play music", results, segs)
	if !plan.Valid {
		t.Fatalf("expected valid plan, errors: %v", plan.Errors)
	}
	if len(plan.Steps) != 2 {
		t.Fatalf("expected 2 steps, got %d", len(plan.Steps))
	}
	deps := plan.DependsOn(1)
	if len(deps) != 1 || deps[0] != 0 {
		t.Errorf("second segment should depend on first, got %v", deps)
	}
	// Plan confidence is the minimum across segments.
	if plan.Confidence != 0.7 {
		t.Errorf("expected min confidence 0.7, got %.2f", plan.Confidence)
	}
}

func TestPlanParallelSegments(t *testing.T) {
	p := New(nil, 0.5)
	results := []types.ClassificationResult{
		classification("launch_app", "open chrome", 0.8,
			map[string]types.Entity{"app": types.NewAppEntity("chrome")}),
		classification("play_music", "play music", 0.75, nil),
	}
	segs := []types.Segment{
		seg("open chrome", types.CoordSequential),
		seg("play music", types.CoordParallel),
	}

	plan := p.PlanMulti("open chrome and play music", results, segs)
	if !plan.Valid {
		t.Fatalf("expected valid plan, errors: %v", plan.Errors)
	}
	if len(plan.Groups) != 1 {
		t.Fatalf("expected 1 parallel group, got %d", len(plan.Groups))
	}
	for name, members := range plan.Groups {
		if len(members) != 2 {
			t.Errorf("group %q should have 2 members, got %v", name, members)
		}
	}
	if plan.Steps[0].Group == "" || plan.Steps[0].Group != plan.Steps[1].Group {
		t.Errorf("both steps should share a group: %q vs %q",
			plan.Steps[0].Group, plan.Steps[1].Group)
	}
	if len(plan.DependsOn(0)) != 0 || len(plan.DependsOn(1)) != 0 {
		t.Errorf("parallel siblings must not depend on each other: %v",
			plan.Deps)
	}
}

func TestPlanTemporalSegment(t *testing.T) {
	p := New(nil, 0.5)
	results := []types.ClassificationResult{
		classification("mute", "mute", 0.8, nil),
	}
	segs := []types.Segment{{
		Text:         "mute",
		Coordination: types.CoordTemporal,
		Delay:        10 * time.Minute,
	}}

	plan := p.PlanMulti("mute in 10 minutes", results, segs)
	if !plan.Valid {
		t.Fatalf("expected valid plan, errors: %v", plan.Errors)
	}
	if len(plan.Steps) != 2 {
		t.Fatalf("expected wait + action, got %d steps", len(plan.Steps))
	}
	wait := plan.Steps[0]
	if wait.Kind != types.ActionWait || wait.WaitFor != 10*time.Minute {
		t.Errorf("expected 10m wait step, got %+v", wait)
	}
	action := plan.Steps[1]
	if action.Kind != types.ActionSystemControl || action.Param("op") != "mute" {
		t.Errorf("expected mute step, got %+v", action)
	}
	deps := plan.DependsOn(1)
	if len(deps) != 1 || deps[0] != 0 {
		t.Errorf("mute must depend on the wait step, got %v", deps)
	}
}

func TestPlanConditionalSegment(t *testing.T) {
	p := New(nil, 0.5)
	results := []types.ClassificationResult{
		classification("mute", "mute", 0.8, nil),
	}
	segs := []types.Segment{{
		Text:         "mute",
		Coordination: types.CoordConditional,
		Condition:    "music is playing",
	}}

	plan := p.PlanMulti("mute if music is playing", results, segs)
	if !plan.Valid {
		t.Fatalf("expected valid plan, errors: %v", plan.Errors)
	}
	var guarded bool
	for _, pre := range plan.Steps[0].Pre {
		if pre.Kind == types.PrecondStateEquals && pre.StateKey == "music is playing" {
			guarded = true
		}
	}
	if !guarded {
		t.Error("conditional segment should carry a state guard")
	}
}

func TestPlanLowConfidenceInvalid(t *testing.T) {
	c, err := cache.New(10, 10)
	if err != nil {
		t.Fatalf("cache.New: %v", err)
	}
	p := New(c, 0.5)
	res := classification("mute", "mute", 0.3, nil)

	plan := p.Plan("mute", res)
	if plan.Valid {
		t.Fatal("low-confidence plan must be invalid")
	}
	if len(plan.Errors) == 0 {
		t.Error("invalid plan should report why")
	}
	if _, ok := c.GetPlan("mute"); ok {
		t.Error("invalid plan must not be cached")
	}
}

func TestPlanUnknownIntentInvalid(t *testing.T) {
	p := New(nil, 0.5)
	plan := p.Plan("do the thing", classification("summon_dragon", "do the thing", 0.9, nil))
	if plan.Valid {
		t.Fatal("unknown intent must yield an invalid plan")
	}
}

func TestPlanCacheHit(t *testing.T) {
	c, err := cache.New(10, 10)
	if err != nil {
		t.Fatalf("cache.New: %v", err)
	}
	p := New(c, 0.5)
	res := classification("mute", "mute", 0.8, nil)

	first := p.Plan("mute", res)
	second := p.Plan("mute", res)
	if first != second {
		t.Error("second plan for identical text should come from the cache")
	}
}

func TestValidateDetectsCycle(t *testing.T) {
	plan := &types.TaskPlan{
		Confidence: 0.9,
		Steps: []types.ActionStep{
			{ID: "step-1", Kind: types.ActionLaunchApp},
			{ID: "step-2", Kind: types.ActionMediaControl},
		},
	}
	plan.AddDep(0, 1)
	plan.AddDep(1, 0)

	problems := Validate(plan, 0.5)
	if len(problems) == 0 {
		t.Fatal("cycle should be reported")
	}
}

func TestValidateDependencyOutOfRange(t *testing.T) {
	plan := &types.TaskPlan{
		Confidence: 0.9,
		Steps:      []types.ActionStep{{ID: "step-1", Kind: types.ActionLaunchApp}},
	}
	plan.AddDep(0, 7)

	problems := Validate(plan, 0.5)
	if len(problems) == 0 {
		t.Fatal("out-of-range dependency should be reported")
	}
}

func TestValidateEmptyPlan(t *testing.T) {
	problems := Validate(&types.TaskPlan{Confidence: 0.9}, 0.5)
	if len(problems) != 1 {
		t.Fatalf("expected exactly one problem for empty plan, got %v", problems)
	}
}

func TestValidateStateGuardKeys(t *testing.T) {
	cases := []struct {
		name string
		pre  types.Precondition
		want int
	}{
		{"state_equals without key", types.Precondition{
			Kind: types.PrecondStateEquals, StateValue: "true"}, 1},
		{"state_equals without value", types.Precondition{
			Kind: types.PrecondStateEquals, StateKey: "music is playing"}, 1},
		{"resource without key", types.Precondition{
			Kind: types.PrecondResource}, 1},
		{"complete guard", types.Precondition{
			Kind: types.PrecondStateEquals, StateKey: "music is playing",
			StateValue: "true"}, 0},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			plan := &types.TaskPlan{
				Confidence: 0.9,
				Steps: []types.ActionStep{{
					ID:     "step-1",
					Kind:   types.ActionSystemControl,
					Params: map[string]string{"op": "mute"},
					Pre:    []types.Precondition{tc.pre},
				}},
			}
			problems := Validate(plan, 0.5)
			if len(problems) != tc.want {
				t.Errorf("expected %d problems, got %v", tc.want, problems)
			}
		})
	}
}

func TestPlanThreeSegmentsMixed(t *testing.T) {
	p := New(nil, 0.5)
	results := []types.ClassificationResult{
		classification("launch_app", "open chrome", 0.8,
			map[string]types.Entity{"app": types.NewAppEntity("chrome")}),
		classification("play_music", "play music", 0.8, nil),
		classification("mute", "mute", 0.8, nil),
	}
	segs := []types.Segment{
		seg("open chrome", types.CoordSequential),
		seg("play music", types.CoordParallel),
		{Text: "mute", Coordination: types.CoordTemporal, Delay: time.Minute},
	}

	plan := p.PlanMulti("open chrome and play music then mute in 1 minute", results, segs)
	if !plan.Valid {
		t.Fatalf("expected valid plan, errors: %v", plan.Errors)
	}
	// launch, play, wait, mute
	if len(plan.Steps) != 4 {
		t.Fatalf("expected 4 steps, got %d", len(plan.Steps))
	}
	wantDeps := map[int][]int{
		2: {0, 1}, // the wait joins both parallel branches
		3: {2},
	}
	if diff := cmp.Diff(wantDeps, plan.Deps); diff != "" {
		t.Errorf("dependency graph mismatch (-want +got):\n%s", diff)
	}
}
