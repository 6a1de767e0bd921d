package grammar

import (
	"strings"
	"testing"

	"steward/internal/types"
)

func mustCompile(t *testing.T, rs *Ruleset) *CompiledGrammar {
	t.Helper()
	g, err := Compile(rs)
	if err != nil {
		t.Fatalf("Compile: %v", err)
	}
	return g
}

func TestCompileDefaults(t *testing.T) {
	g := mustCompile(t, DefaultRuleset())
	if g.RuleCount() == 0 {
		t.Fatal("default ruleset compiled to zero rules")
	}
	if g.Version != "builtin-1" {
		t.Errorf("unexpected version %q", g.Version)
	}
}

func TestDefaultExamplesMatchTheirOwnRule(t *testing.T) {
	rs := DefaultRuleset()
	g := mustCompile(t, rs)

	for _, r := range rs.Rules {
		for _, ex := range r.Examples {
			m := g.Match(strings.ToLower(ex))
			if m == nil {
				t.Errorf("example %q of rule %s did not match anything", ex, r.ID)
				continue
			}
			if m.Intent != r.Intent {
				t.Errorf("example %q matched intent %s, want %s", ex, m.Intent, r.Intent)
			}
		}
	}
}

func TestMatchPriorityWins(t *testing.T) {
	g := mustCompile(t, &Ruleset{
		Version: "t",
		Rules: []Rule{
			{ID: "low", Intent: "low", Priority: 1, Pattern: `open {x}`,
				Slots: []Slot{{Name: "x", Type: SlotString}}},
			{ID: "high", Intent: "high", Priority: 9, Pattern: `open {x}`,
				Slots: []Slot{{Name: "x", Type: SlotString}}},
		},
	})
	m := g.Match("open something")
	if m == nil || m.Intent != "high" {
		t.Fatalf("expected high-priority rule to win, got %+v", m)
	}
}

func TestMatchTiesBreakByDeclarationOrder(t *testing.T) {
	g := mustCompile(t, &Ruleset{
		Version: "t",
		Rules: []Rule{
			{ID: "first", Intent: "first", Priority: 5, Pattern: `go`},
			{ID: "second", Intent: "second", Priority: 5, Pattern: `go`},
		},
	})
	m := g.Match("go")
	if m == nil || m.Intent != "first" {
		t.Fatalf("expected declaration order to break ties, got %+v", m)
	}
}

func TestMatchIsDeterministic(t *testing.T) {
	g := mustCompile(t, DefaultRuleset())
	a := g.Match("open chrome")
	b := g.Match("open chrome")
	if a == nil || b == nil {
		t.Fatal("expected matches")
	}
	if a.RuleID != b.RuleID || a.Captures["app"] != b.Captures["app"] {
		t.Errorf("match not deterministic: %+v vs %+v", a, b)
	}
}

func TestMatchCoverage(t *testing.T) {
	g := mustCompile(t, DefaultRuleset())
	m := g.Match("open chrome")
	if m == nil {
		t.Fatal("expected match")
	}
	if m.Coverage() != 1.0 {
		t.Errorf("full match should have coverage 1.0, got %v", m.Coverage())
	}
}

func TestCompileRejectsBadRules(t *testing.T) {
	cases := []struct {
		name string
		rule Rule
		want string
	}{
		{"negative priority", Rule{ID: "r", Intent: "i", Priority: -1, Pattern: `x`}, "non-negative"},
		{"missing intent", Rule{ID: "r", Pattern: `x`}, "missing intent"},
		{"undeclared slot", Rule{ID: "r", Intent: "i", Pattern: `open {app}`}, "undeclared slot"},
		{"unknown slot type", Rule{ID: "r", Intent: "i", Pattern: `open {app}`,
			Slots: []Slot{{Name: "app", Type: "widget"}}}, "unknown type"},
		{"bad synonym key", Rule{ID: "r", Intent: "i", Pattern: `x`,
			Synonyms: map[string][]string{"nope": {"a"}}}, "unknown slot"},
		{"unterminated placeholder", Rule{ID: "r", Intent: "i", Pattern: `open {app`}, "unterminated"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := Compile(&Ruleset{Version: "t", Rules: []Rule{tc.rule}})
			if err == nil {
				t.Fatal("expected compile error")
			}
			if !strings.Contains(err.Error(), tc.want) {
				t.Errorf("error %q does not mention %q", err.Error(), tc.want)
			}
		})
	}
}

func TestCompileRejectsDuplicateIDs(t *testing.T) {
	_, err := Compile(&Ruleset{
		Version: "t",
		Rules: []Rule{
			{ID: "dup", Intent: "a", Pattern: `a`},
			{ID: "dup", Intent: "b", Pattern: `b`},
		},
	})
	if err == nil || !strings.Contains(err.Error(), "duplicate id") {
		t.Errorf("expected duplicate id error, got %v", err)
	}
}

func TestTypedSlotCapturesConservatively(t *testing.T) {
	g := mustCompile(t, DefaultRuleset())
	m := g.Match("set volume to 50%")
	if m == nil {
		t.Fatal("expected match")
	}
	if m.Intent != "set_volume" {
		t.Fatalf("wrong intent %s", m.Intent)
	}
	e := TypeCapture(SlotPercentage, m.Captures["level"])
	if e.Kind != types.EntityPercentage || e.Number != 50 {
		t.Errorf("expected 50%%, got %v", e)
	}
}

func TestExtractEntitiesOrder(t *testing.T) {
	g := mustCompile(t, DefaultRuleset())
	m := g.Match("open vscode with main.go")
	if m == nil || m.Intent != "open_app_with_file" {
		t.Fatalf("unexpected match %+v", m)
	}
	es := g.ExtractEntities(m)
	slots := es.Slots()
	if len(slots) != 2 || slots[0] != "app" || slots[1] != "file" {
		t.Fatalf("expected [app file], got %v", slots)
	}
	app, _ := es.Get("app")
	if app.Kind != types.EntityApp || app.Text != "vscode" {
		t.Errorf("unexpected app entity %v", app)
	}
	file, _ := es.Get("file")
	if file.Kind != types.EntityFile || file.Text != "main.go" {
		t.Errorf("unexpected file entity %v", file)
	}
}

func TestParseRulesetYAML(t *testing.T) {
	data := `
version: v2
rules:
  - id: greet
    intent: greet
    priority: 3
    pattern: "(?:hello|hi) {name}"
    slots:
      - name: name
        type: contact
    examples: ["hello alice"]
    synonyms:
      intent: [hello, hi, hey]
`
	rs, err := ParseRuleset([]byte(data))
	if err != nil {
		t.Fatalf("ParseRuleset: %v", err)
	}
	if rs.Version != "v2" || len(rs.Rules) != 1 {
		t.Fatalf("unexpected ruleset %+v", rs)
	}
	g := mustCompile(t, rs)
	m := g.Match("hello alice")
	if m == nil || m.Captures["name"] != "alice" {
		t.Errorf("expected name capture, got %+v", m)
	}
}
