// Package engine is the top-level facade: it wires the grammar, parser,
// scorer, planner, and executor into one Process pipeline and owns the
// cross-cutting pieces (conversation window, caches, grammar hot reload,
// confirmation resume).
package engine

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"steward/internal/cache"
	"steward/internal/config"
	"steward/internal/convo"
	"steward/internal/executor"
	"steward/internal/grammar"
	"steward/internal/knowledge"
	"steward/internal/logging"
	"steward/internal/parser"
	"steward/internal/planner"
	"steward/internal/ranking"
	"steward/internal/types"
)

// ResultKind classifies the outcome of one Process call.
type ResultKind string

const (
	// ResultExecuted: a plan was built and run (inspect Execution for the
	// per-step outcome).
	ResultExecuted ResultKind = "executed"
	// ResultNeedsClarification: confidence landed between the reject and
	// clarify thresholds; Clarification describes what to ask.
	ResultNeedsClarification ResultKind = "needs_clarification"
	// ResultNeedsConfirmation: execution suspended at a gated step; answer
	// via Confirm.
	ResultNeedsConfirmation ResultKind = "needs_confirmation"
	// ResultNoMatch: no rule matched, or confidence fell below the reject
	// threshold.
	ResultNoMatch ResultKind = "no_match"
	// ResultPlanned: a valid plan was built but not executed (Plan only).
	ResultPlanned ResultKind = "planned"
	// ResultInvalidPlan: planning produced a plan that failed validation.
	ResultInvalidPlan ResultKind = "invalid_plan"
)

// Result is the outcome of one Process call.
type Result struct {
	Kind ResultKind
	// Text is the normalized input.
	Text            string
	Classifications []types.ClassificationResult
	Plan            *types.TaskPlan
	Execution       *types.PlanResult
	Clarification   *types.ClarificationRequest
	Message         string
}

// Engine runs the full understanding-and-execution pipeline. Safe for
// concurrent use.
type Engine struct {
	cfg      *config.Config
	grammar  *grammar.Store
	cache    *cache.Cache
	parser   *parser.Parser
	scorer   *ranking.Scorer
	planner  *planner.Planner
	executor *executor.Executor
	window   *convo.Window
	sink     types.EventSink
	watcher  *grammar.Watcher

	mu        sync.Mutex
	suspended map[string]*suspendedPlan
}

type suspendedPlan struct {
	plan      *types.TaskPlan
	result    *types.PlanResult
	confirmed map[int]bool
	// segs and classifications are carried so the final outcome can be
	// recorded into the conversation window once the plan resolves.
	segs            []types.Segment
	classifications []types.ClassificationResult
}

// Options configures a new engine. Zero-value fields get defaults.
type Options struct {
	Config   *config.Config
	Effector types.Effector
	// Sink receives lifecycle events; nil discards them.
	Sink types.EventSink
	// Provider validates name-like entities; nil uses the built-in
	// application catalog.
	Provider types.KnowledgeProvider
	// Rules overrides the rule source; nil loads Config.Grammar.RulePath or
	// the built-in ruleset.
	Rules *grammar.Ruleset
}

// New builds a fully wired engine.
func New(opts Options) (*Engine, error) {
	cfg := opts.Config
	if cfg == nil {
		cfg = config.DefaultConfig()
	}
	if opts.Effector == nil {
		return nil, errors.New("engine: effector is required")
	}
	sink := opts.Sink
	if sink == nil {
		sink = types.NopSink{}
	}
	provider := opts.Provider
	if provider == nil {
		provider = knowledge.DefaultApplications()
	}

	rules := opts.Rules
	if rules == nil {
		if cfg.Grammar.RulePath != "" {
			loaded, err := grammar.LoadRuleset(cfg.Grammar.RulePath)
			if err != nil {
				return nil, fmt.Errorf("engine: load rules: %w", err)
			}
			rules = loaded
		} else {
			rules = grammar.DefaultRuleset()
		}
	}
	store, err := grammar.NewStore(rules)
	if err != nil {
		return nil, fmt.Errorf("engine: compile grammar: %w", err)
	}

	c, err := cache.New(cfg.Cache.ParseCapacity, cfg.Cache.PlanCapacity)
	if err != nil {
		return nil, fmt.Errorf("engine: cache: %w", err)
	}

	weights := ranking.Weights{
		Pattern:  cfg.Ranking.PatternWeight,
		Entity:   cfg.Ranking.EntityWeight,
		Context:  cfg.Ranking.ContextWeight,
		History:  cfg.Ranking.HistoryWeight,
		Synonym:  cfg.Ranking.SynonymWeight,
		Priority: cfg.Ranking.PriorityWeight,
	}

	e := &Engine{
		cfg:     cfg,
		grammar: store,
		cache:   c,
		parser: parser.New(store, c, cfg.Grammar.WakePhrases,
			cfg.Grammar.MinStructuralConfidence),
		scorer:  ranking.NewScorer(provider, weights),
		planner: planner.New(c, cfg.Ranking.ConfidenceThreshold),
		executor: executor.New(opts.Effector, cfg.RetryPolicy(),
			cfg.ExecutionPolicy(), cfg.Execution.MaxParallelism, sink),
		window:    convo.NewWindow(cfg.Context.MaxEntries, cfg.Context.MaxAgeDuration()),
		sink:      sink,
		suspended: make(map[string]*suspendedPlan),
	}

	// Any grammar swap invalidates both caches: cached parses and plans
	// were produced by the old rules.
	store.OnReload(func(version string) {
		c.InvalidateAll()
		now := time.Now()
		e.sink.Emit(types.Event{Time: now, Kind: types.EventGrammarReloaded,
			Step: -1, Message: version})
		e.sink.Emit(types.Event{Time: now, Kind: types.EventCacheInvalidated,
			Step: -1, Message: "grammar reload"})
		logging.Engine("Grammar reloaded (%s), caches invalidated", version)
	})

	if cfg.Grammar.WatchRules && cfg.Grammar.RulePath != "" {
		w, err := grammar.NewWatcher(store, cfg.Grammar.RulePath)
		if err != nil {
			return nil, fmt.Errorf("engine: rule watcher: %w", err)
		}
		e.watcher = w
	}

	return e, nil
}

// Start begins background work (the rule watcher, when configured).
func (e *Engine) Start(ctx context.Context) error {
	if e.watcher != nil {
		return e.watcher.Start(ctx)
	}
	return nil
}

// Stop halts background work and flushes logs.
func (e *Engine) Stop() {
	if e.watcher != nil {
		e.watcher.Stop()
	}
	logging.Sync()
}

// Process runs the full pipeline on one utterance: normalize, segment,
// parse, score, plan, execute.
func (e *Engine) Process(ctx context.Context, text string) (*Result, error) {
	normalized := e.parser.Normalize(text)
	if normalized == "" {
		return &Result{Kind: ResultNoMatch, Text: normalized,
			Message: "empty input"}, nil
	}

	segs := parser.Segment(normalized)
	if len(segs) == 0 {
		return &Result{Kind: ResultNoMatch, Text: normalized,
			Message: "empty input"}, nil
	}

	results, noMatch := e.classify(segs)
	if noMatch != nil {
		return noMatch, nil
	}

	minConfidence := results[0].Confidence
	for _, r := range results[1:] {
		if r.Confidence < minConfidence {
			minConfidence = r.Confidence
		}
	}

	if minConfidence < e.cfg.Ranking.RejectThreshold {
		return &Result{
			Kind:            ResultNoMatch,
			Text:            normalized,
			Classifications: results,
			Message: fmt.Sprintf("confidence %.2f below reject threshold %.2f",
				minConfidence, e.cfg.Ranking.RejectThreshold),
		}, nil
	}
	if minConfidence < e.cfg.Ranking.ClarifyThreshold {
		return &Result{
			Kind:            ResultNeedsClarification,
			Text:            normalized,
			Classifications: results,
			Clarification:   e.clarification(normalized, results, minConfidence),
		}, nil
	}

	plan := e.planner.PlanMulti(normalized, results, segs)
	if !plan.Valid {
		return &Result{
			Kind:            ResultInvalidPlan,
			Text:            normalized,
			Classifications: results,
			Plan:            plan,
			Message:         fmt.Sprintf("plan rejected: %v", plan.Errors),
		}, nil
	}

	execution := e.executor.Execute(ctx, plan)

	if execution.Status == types.PlanAwaitConfirm {
		// Suspended, not completed: nothing goes into the window until the
		// confirmation resolves the plan one way or the other.
		e.mu.Lock()
		e.suspended[plan.ID] = &suspendedPlan{
			plan: plan, result: execution, confirmed: make(map[int]bool),
			segs: segs, classifications: results,
		}
		e.mu.Unlock()
		return &Result{
			Kind:            ResultNeedsConfirmation,
			Text:            normalized,
			Classifications: results,
			Plan:            plan,
			Execution:       execution,
			Message: fmt.Sprintf("step %d (%s) requires confirmation",
				execution.ConfirmStep, plan.Steps[execution.ConfirmStep].Kind),
		}, nil
	}

	e.record(segs, results, execution)
	return &Result{
		Kind:            ResultExecuted,
		Text:            normalized,
		Classifications: results,
		Plan:            plan,
		Execution:       execution,
	}, nil
}

// classify parses and scores each segment. A segment that matches no rule
// aborts the whole utterance as NoMatch.
func (e *Engine) classify(segs []types.Segment) ([]types.ClassificationResult, *Result) {
	g := e.grammar.Current()
	results := make([]types.ClassificationResult, 0, len(segs))
	for _, seg := range segs {
		parsed, err := e.parser.ParseNormalized(seg.Text)
		if err != nil {
			return nil, &Result{
				Kind:    ResultNoMatch,
				Text:    seg.Text,
				Message: fmt.Sprintf("no pattern matched %q", seg.Text),
			}
		}
		parsed = e.resolveReferences(parsed)
		results = append(results, e.scorer.Score(parsed, g, e.window))
	}
	return results, nil
}

// resolveReferences substitutes anaphoric entity values ("it", "the same
// app") with the most recent primary entity from the window. The cached
// ParsedCommand is never mutated; substitution works on a copy.
func (e *Engine) resolveReferences(parsed *types.ParsedCommand) *types.ParsedCommand {
	if parsed.Entities == nil || parsed.Entities.Len() == 0 {
		return parsed
	}
	needsResolve := false
	parsed.Entities.Range(func(_ string, ent types.Entity) bool {
		if convo.IsReference(ent.Text) {
			needsResolve = true
			return false
		}
		return true
	})
	if !needsResolve {
		return parsed
	}

	resolved := *parsed
	resolved.Entities = parsed.Entities.Clone()
	resolved.Entities.Range(func(slot string, ent types.Entity) bool {
		if !convo.IsReference(ent.Text) {
			return true
		}
		if ref, ok := e.window.ResolveReference(ent.Text); ok {
			resolved.Entities.Set(slot, ref)
			logging.Engine("Resolved %q to %s", ent.Text, ref.Text)
		}
		return true
	})
	return &resolved
}

// clarification builds the question for a low-confidence utterance,
// suggesting example phrasings from the best rule.
func (e *Engine) clarification(text string, results []types.ClassificationResult, confidence float64) *types.ClarificationRequest {
	req := &types.ClarificationRequest{
		Text:       text,
		Confidence: confidence,
	}
	g := e.grammar.Current()
	for _, r := range results {
		if r.Confidence != confidence {
			continue
		}
		if r.Entities != nil {
			r.Entities.Range(func(slot string, ent types.Entity) bool {
				if !ent.IsTyped() {
					req.MissingSlots = append(req.MissingSlots, slot)
				}
				return true
			})
		}
		req.Suggestions = g.ExamplesFor(r.PatternID)
		break
	}
	return req
}

// Plan runs the pipeline through planning without executing: normalize,
// segment, parse, score, plan. Used for previews.
func (e *Engine) Plan(text string) (*Result, error) {
	normalized := e.parser.Normalize(text)
	segs := parser.Segment(normalized)
	if len(segs) == 0 {
		return &Result{Kind: ResultNoMatch, Text: normalized, Message: "empty input"}, nil
	}
	results, noMatch := e.classify(segs)
	if noMatch != nil {
		return noMatch, nil
	}
	plan := e.planner.PlanMulti(normalized, results, segs)
	kind := ResultPlanned
	if !plan.Valid {
		kind = ResultInvalidPlan
	}
	return &Result{Kind: kind, Text: normalized,
		Classifications: results, Plan: plan}, nil
}

// Clarify re-runs the pipeline on the original text combined with the
// user's answer.
func (e *Engine) Clarify(ctx context.Context, originalText, answer string) (*Result, error) {
	combined := originalText + " " + answer
	return e.Process(ctx, combined)
}

// Confirm answers a pending confirmation. Accepting resumes the suspended
// plan; declining abandons it as cancelled.
func (e *Engine) Confirm(ctx context.Context, planID string, accept bool) (*Result, error) {
	e.mu.Lock()
	sp, ok := e.suspended[planID]
	if ok {
		delete(e.suspended, planID)
	}
	e.mu.Unlock()
	if !ok {
		return nil, fmt.Errorf("engine: no plan %s awaiting confirmation", planID)
	}

	e.sink.Emit(types.Event{
		Time: time.Now(), Kind: types.EventConfirmAnswered,
		PlanID: planID, Step: sp.result.ConfirmStep,
		Message: fmt.Sprintf("accepted=%v", accept),
	})

	if !accept {
		res := &types.PlanResult{
			PlanID:      planID,
			Status:      types.PlanCancelled,
			Steps:       sp.result.Steps,
			Failure:     types.FailureCancelled,
			Message:     "declined by user",
			Started:     sp.result.Started,
			Finished:    time.Now(),
			ConfirmStep: -1,
		}
		logging.Engine("Plan %s declined at step %d", planID, sp.result.ConfirmStep)
		e.record(sp.segs, sp.classifications, res)
		return &Result{Kind: ResultExecuted, Text: sp.plan.Text,
			Plan: sp.plan, Execution: res, Message: "declined"}, nil
	}

	sp.confirmed[sp.result.ConfirmStep] = true
	execution := e.executor.Resume(ctx, sp.plan, sp.result, sp.confirmed)

	if execution.Status == types.PlanAwaitConfirm {
		// Another gated step; suspend again, keeping earlier approvals.
		e.mu.Lock()
		e.suspended[planID] = &suspendedPlan{
			plan: sp.plan, result: execution, confirmed: sp.confirmed,
			segs: sp.segs, classifications: sp.classifications,
		}
		e.mu.Unlock()
		return &Result{
			Kind: ResultNeedsConfirmation, Text: sp.plan.Text,
			Plan: sp.plan, Execution: execution,
			Message: fmt.Sprintf("step %d (%s) requires confirmation",
				execution.ConfirmStep, sp.plan.Steps[execution.ConfirmStep].Kind),
		}, nil
	}

	e.record(sp.segs, sp.classifications, execution)
	return &Result{Kind: ResultExecuted, Text: sp.plan.Text,
		Plan: sp.plan, Execution: execution}, nil
}

// DryRun runs the pipeline with a recording no-op effector instead of the
// real one and returns the actions the plan would perform.
func (e *Engine) DryRun(ctx context.Context, text string) (*Result, []string, error) {
	normalized := e.parser.Normalize(text)
	segs := parser.Segment(normalized)
	if len(segs) == 0 {
		return &Result{Kind: ResultNoMatch, Text: normalized}, nil, nil
	}
	results, noMatch := e.classify(segs)
	if noMatch != nil {
		return noMatch, nil, nil
	}
	plan := e.planner.PlanMulti(normalized, results, segs)
	if !plan.Valid {
		return &Result{Kind: ResultInvalidPlan, Text: normalized, Plan: plan,
			Message: fmt.Sprintf("plan rejected: %v", plan.Errors)}, nil, nil
	}

	nop := &executor.NopEffector{}
	policy := e.cfg.ExecutionPolicy()
	// Dry runs never gate: the point is to preview everything.
	policy.ConfirmKinds = map[types.ActionKind]bool{}
	policy.ConfirmOps = map[string]bool{}
	dry := executor.New(nop, e.cfg.RetryPolicy(), policy,
		e.cfg.Execution.MaxParallelism, types.NopSink{})

	execution := dry.Execute(ctx, plan)
	return &Result{
		Kind: ResultExecuted, Text: normalized,
		Classifications: results, Plan: plan, Execution: execution,
	}, nop.Calls(), nil
}

// ReloadGrammar swaps in a new ruleset; the reload hook invalidates caches.
func (e *Engine) ReloadGrammar(rs *grammar.Ruleset) error {
	return e.grammar.Reload(rs)
}

// ReloadGrammarFromFile reloads the rule file.
func (e *Engine) ReloadGrammarFromFile(path string) error {
	return e.grammar.ReloadFromFile(path)
}

// CacheStats exposes hit/miss counters for both caches.
func (e *Engine) CacheStats() (parse, plan cache.Stats) {
	return e.cache.ParseStats(), e.cache.PlanStats()
}

// Window exposes the conversation window (for reference resolution by
// outer layers).
func (e *Engine) Window() *convo.Window {
	return e.window
}

// record appends each executed segment to the conversation window.
func (e *Engine) record(segs []types.Segment, results []types.ClassificationResult, execution *types.PlanResult) {
	success := execution.Succeeded()
	for i, seg := range segs {
		entry := types.ContextEntry{
			Timestamp: time.Now(),
			Text:      seg.Text,
			Intent:    results[i].Intent,
			Success:   success,
		}
		if results[i].Entities != nil && results[i].Entities.Len() > 0 {
			slots := results[i].Entities.Slots()
			if ent, ok := results[i].Entities.Get(slots[0]); ok {
				entry.Primary = &ent
			}
		}
		e.window.Record(entry)
	}
}
