package grammar

import (
	"fmt"
	"regexp"
	"sort"
	"strings"

	"steward/internal/logging"
)

// slotCapture is the regex source used for a slot's capture group, chosen
// by the slot's declared type. Typed slots capture conservatively so a
// trailing free-text slot cannot swallow a duration or percentage.
var slotCapture = map[SlotType]string{
	SlotDuration:   `\d+\s*(?:seconds?|secs?|minutes?|mins?|hours?|hrs?|[smh])`,
	SlotCount:      `\d+`,
	SlotPercentage: `\d+\s*(?:%|percent)?`,
	SlotTimeOfDay:  `\d{1,2}(?::\d{2})?\s*(?:am|pm)?`,
	SlotDate:       `\d{4}-\d{2}-\d{2}|today|tomorrow|yesterday`,
	SlotURL:        `(?:https?://\S+|\S+\.\S+)`,
	SlotLanguage:   `[a-z]{2}(?:-[a-z]{2})?`,
	// Everything else captures greedily to the next literal.
}

const defaultCapture = `.+`

// compiledRule is one rule ready for matching.
type compiledRule struct {
	rule  Rule
	re    *regexp.Regexp
	order int // declaration index, for priority tie-breaks
	// slotOrder lists slot names in declaration order.
	slotOrder []string
	slotTypes map[string]SlotType
	// synonymWords is the flattened, lowercased synonym vocabulary.
	synonymWords map[string]bool
}

// CompiledGrammar is an immutable, match-ready grammar. Rules are evaluated
// in one pass in descending priority order (declaration order breaks ties);
// captures are extracted only for the winning rule, which keeps the "first
// match wins by priority" contract explicit.
type CompiledGrammar struct {
	Version     string
	rules       []compiledRule
	maxPriority int
}

// MatchResult is the winning rule plus its raw captures.
type MatchResult struct {
	RuleID   string
	Intent   string
	Priority int
	// Captures maps slot name to raw substring for the winning rule.
	Captures map[string]string
	// SlotOrder lists capture slot names in declaration order.
	SlotOrder []string
	// Start/End delimit the matched span within the input.
	Start, End int
	// InputLen is the length of the matched input text.
	InputLen int
	// CaptureSpans delimit each capture within the input, keyed by slot.
	CaptureSpans map[string][2]int
}

// Coverage returns the fraction of the input consumed by the match,
// used as the structural confidence signal.
func (m *MatchResult) Coverage() float64 {
	if m.InputLen == 0 {
		return 0
	}
	return float64(m.End-m.Start) / float64(m.InputLen)
}

// Compile validates and compiles a ruleset. Either the whole ruleset
// compiles or a *GrammarError describing every problem is returned.
func Compile(rs *Ruleset) (*CompiledGrammar, error) {
	if verr := rs.validate(); verr != nil {
		return nil, verr
	}

	var problems []string
	compiled := make([]compiledRule, 0, len(rs.Rules))
	maxPriority := 1

	for i, r := range rs.Rules {
		src, err := buildRegex(r)
		if err != nil {
			problems = append(problems, fmt.Sprintf("rule %d (%s): %v", i, r.ID, err))
			continue
		}
		re, err := regexp.Compile(src)
		if err != nil {
			problems = append(problems, fmt.Sprintf("rule %d (%s): pattern does not compile: %v", i, r.ID, err))
			continue
		}

		cr := compiledRule{
			rule:         r,
			re:           re,
			order:        i,
			slotTypes:    make(map[string]SlotType, len(r.Slots)),
			synonymWords: make(map[string]bool),
		}
		for _, s := range r.Slots {
			cr.slotTypes[s.Name] = s.Type
		}
		cr.slotOrder = placeholders(r.Pattern)
		for _, words := range r.Synonyms {
			for _, w := range words {
				cr.synonymWords[strings.ToLower(w)] = true
			}
		}
		if r.Priority > maxPriority {
			maxPriority = r.Priority
		}
		compiled = append(compiled, cr)
	}

	if len(problems) > 0 {
		return nil, &GrammarError{Version: rs.Version, Problems: problems}
	}

	// Descending priority, declaration order on ties.
	sort.SliceStable(compiled, func(i, j int) bool {
		if compiled[i].rule.Priority != compiled[j].rule.Priority {
			return compiled[i].rule.Priority > compiled[j].rule.Priority
		}
		return compiled[i].order < compiled[j].order
	})

	logging.Grammar("Compiled grammar %q: %d rules, max priority %d",
		rs.Version, len(compiled), maxPriority)

	return &CompiledGrammar{Version: rs.Version, rules: compiled, maxPriority: maxPriority}, nil
}

// buildRegex turns a rule's pattern template into anchored regex source.
// {slot} placeholders become named capture groups typed by the slot.
func buildRegex(r Rule) (string, error) {
	types := make(map[string]SlotType, len(r.Slots))
	for _, s := range r.Slots {
		types[s.Name] = s.Type
	}

	var b strings.Builder
	b.WriteString(`^`)
	pattern := r.Pattern
	for len(pattern) > 0 {
		open := strings.IndexByte(pattern, '{')
		if open < 0 {
			b.WriteString(pattern)
			break
		}
		rel := strings.IndexByte(pattern[open:], '}')
		if rel < 0 {
			return "", fmt.Errorf("unterminated placeholder in pattern")
		}
		b.WriteString(pattern[:open])
		name := pattern[open+1 : open+rel]
		capture := defaultCapture
		if c, ok := slotCapture[types[name]]; ok {
			capture = c
		}
		fmt.Fprintf(&b, `(?P<%s>%s)`, name, capture)
		pattern = pattern[open+rel+1:]
	}
	return b.String(), nil
}

// Match returns the highest-priority rule matching the text, or nil when
// nothing matches. Match is deterministic for a given grammar and input.
func (g *CompiledGrammar) Match(text string) *MatchResult {
	for _, cr := range g.rules {
		loc := cr.re.FindStringSubmatchIndex(text)
		if loc == nil {
			continue
		}

		res := &MatchResult{
			RuleID:       cr.rule.ID,
			Intent:       cr.rule.Intent,
			Priority:     cr.rule.Priority,
			Captures:     make(map[string]string),
			SlotOrder:    cr.slotOrder,
			Start:        loc[0],
			End:          loc[1],
			InputLen:     len(text),
			CaptureSpans: make(map[string][2]int),
		}
		for gi, name := range cr.re.SubexpNames() {
			if name == "" {
				continue
			}
			s, e := loc[2*gi], loc[2*gi+1]
			if s < 0 {
				continue
			}
			res.Captures[name] = text[s:e]
			res.CaptureSpans[name] = [2]int{s, e}
		}
		return res
	}
	return nil
}

// MaxPriority returns the largest declared priority, used to normalize the
// priority scoring factor.
func (g *CompiledGrammar) MaxPriority() int {
	return g.maxPriority
}

// SlotTypeFor returns the declared type of a slot in the given rule.
func (g *CompiledGrammar) SlotTypeFor(ruleID, slot string) SlotType {
	for _, cr := range g.rules {
		if cr.rule.ID == ruleID {
			if t, ok := cr.slotTypes[slot]; ok {
				return t
			}
			return SlotString
		}
	}
	return SlotString
}

// SynonymWords returns the lowercased synonym vocabulary of a rule.
func (g *CompiledGrammar) SynonymWords(ruleID string) map[string]bool {
	for _, cr := range g.rules {
		if cr.rule.ID == ruleID {
			return cr.synonymWords
		}
	}
	return nil
}

// ExamplesFor returns a rule's example utterances, used as clarification
// suggestions.
func (g *CompiledGrammar) ExamplesFor(ruleID string) []string {
	for _, cr := range g.rules {
		if cr.rule.ID == ruleID {
			return cr.rule.Examples
		}
	}
	return nil
}

// RuleCount returns the number of compiled rules.
func (g *CompiledGrammar) RuleCount() int {
	return len(g.rules)
}
