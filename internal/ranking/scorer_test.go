package ranking

import (
	"math"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"steward/internal/convo"
	"steward/internal/grammar"
	"steward/internal/knowledge"
	"steward/internal/types"
)

func compiledDefaults(t *testing.T) *grammar.CompiledGrammar {
	t.Helper()
	g, err := grammar.Compile(grammar.DefaultRuleset())
	if err != nil {
		t.Fatalf("Compile: %v", err)
	}
	return g
}

func launchChrome() *types.ParsedCommand {
	es := types.NewEntities()
	es.Set("app", types.NewAppEntity("chrome"))
	return &types.ParsedCommand{
		Text:       "open chrome",
		PatternID:  "launch_app",
		Intent:     "launch_app",
		Priority:   8,
		Confidence: 1.0,
		Captures:   map[string]string{"app": "chrome"},
		Entities:   es,
	}
}

func TestScoreDeterministic(t *testing.T) {
	g := compiledDefaults(t)
	s := NewScorer(knowledge.DefaultApplications(), DefaultWeights())

	now := time.Unix(1700000000, 0)
	w := convo.NewWindow(10, 5*time.Minute)
	w.SetClock(func() time.Time { return now })
	w.Record(types.ContextEntry{
		Timestamp: now, Text: "open chrome", Intent: "launch_app", Success: true,
	})

	first := s.Score(launchChrome(), g, w)
	second := s.Score(launchChrome(), g, w)

	if first.Confidence != second.Confidence {
		t.Errorf("confidence drifted between identical calls: %.6f vs %.6f",
			first.Confidence, second.Confidence)
	}
	if diff := cmp.Diff(first.Factors, second.Factors); diff != "" {
		t.Errorf("factor breakdown drifted (-first +second):\n%s", diff)
	}
}

func TestScoreAbsentInputsUseMinimum(t *testing.T) {
	weights := DefaultWeights()
	s := NewScorer(nil, weights)

	parsed := &types.ParsedCommand{
		Text:       "pause",
		PatternID:  "media_pause",
		Intent:     "media_pause",
		Confidence: 0.8,
		Entities:   types.NewEntities(),
	}
	res := s.Score(parsed, nil, nil)

	// Pattern plus vacuous entity validity; context, history, synonyms and
	// priority all sit at their floor of zero without a window or grammar.
	want := weights.Pattern*0.8 + weights.Entity*1.0
	if math.Abs(res.Confidence-want) > 1e-9 {
		t.Errorf("confidence = %.4f, want %.4f", res.Confidence, want)
	}
	for _, f := range res.Factors {
		if f.Name == "context" || f.Name == "history" || f.Name == "priority" {
			t.Errorf("absent input must not contribute a %s factor", f.Name)
		}
	}
}

func TestScoreWeightedBreakdownSumsToConfidence(t *testing.T) {
	g := compiledDefaults(t)
	s := NewScorer(knowledge.DefaultApplications(), DefaultWeights())

	res := s.Score(launchChrome(), g, nil)

	var sum float64
	for _, f := range res.Factors {
		if f.Contribution <= 0 {
			t.Errorf("factor %s recorded with non-positive contribution %.3f",
				f.Name, f.Contribution)
		}
		sum += f.Contribution
	}
	if math.Abs(sum-res.Confidence) > 1e-9 {
		t.Errorf("contributions sum to %.4f, confidence is %.4f", sum, res.Confidence)
	}
	if res.PatternID != "launch_app" || res.Intent != "launch_app" {
		t.Errorf("classification should carry the winning rule, got %s/%s",
			res.PatternID, res.Intent)
	}
}

func TestScoreUnknownAppScoresLower(t *testing.T) {
	g := compiledDefaults(t)
	s := NewScorer(knowledge.DefaultApplications(), DefaultWeights())

	known := s.Score(launchChrome(), g, nil)

	unknown := launchChrome()
	unknown.Text = "open zorblat"
	unknown.Captures = map[string]string{"app": "zorblat"}
	es := types.NewEntities()
	es.Set("app", types.NewAppEntity("zorblat"))
	unknown.Entities = es

	got := s.Score(unknown, g, nil)
	if got.Confidence >= known.Confidence {
		t.Errorf("unknown app should score below a known one: %.3f >= %.3f",
			got.Confidence, known.Confidence)
	}
}
