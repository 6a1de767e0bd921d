// Package grammar implements the versioned pattern grammar: rule loading,
// compilation into a prioritized matcher, typed entity extraction, and
// atomic hot reload.
package grammar

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// SlotType is the closed set of entity types a slot may declare.
type SlotType string

const (
	SlotApp        SlotType = "app"
	SlotFile       SlotType = "file"
	SlotFolder     SlotType = "folder"
	SlotDuration   SlotType = "duration"
	SlotCount      SlotType = "count"
	SlotPercentage SlotType = "percentage"
	SlotTimeOfDay  SlotType = "time_of_day"
	SlotDate       SlotType = "date"
	SlotQuery      SlotType = "query"
	SlotFreeText   SlotType = "free_text"
	SlotURL        SlotType = "url"
	SlotContact    SlotType = "contact"
	SlotLanguage   SlotType = "language"
	SlotString     SlotType = "string"
)

var validSlotTypes = map[SlotType]bool{
	SlotApp: true, SlotFile: true, SlotFolder: true, SlotDuration: true,
	SlotCount: true, SlotPercentage: true, SlotTimeOfDay: true, SlotDate: true,
	SlotQuery: true, SlotFreeText: true, SlotURL: true, SlotContact: true,
	SlotLanguage: true, SlotString: true,
}

// Slot declares one named capture and its entity type.
type Slot struct {
	Name string   `yaml:"name"`
	Type SlotType `yaml:"type"`
}

// Rule is one matching rule of the grammar.
type Rule struct {
	// ID uniquely identifies the rule within the ruleset.
	ID string `yaml:"id"`
	// Intent is the intent name produced on match.
	Intent string `yaml:"intent"`
	// Priority orders rules; higher wins. Must be non-negative.
	Priority int `yaml:"priority"`
	// Pattern is the match template. Literal text is matched as regular
	// expression source; {slot} placeholders capture the declared slots.
	Pattern string `yaml:"pattern"`
	// Slots declares the named captures appearing in Pattern.
	Slots []Slot `yaml:"slots"`
	// Examples are sample utterances, kept for tooling and tests.
	Examples []string `yaml:"examples"`
	// Synonyms maps a declared slot name (or the special key "intent")
	// to alternative surface words. Used by the ranking scorer.
	Synonyms map[string][]string `yaml:"synonyms"`
}

// Ruleset is the versioned, reloadable rule file content.
type Ruleset struct {
	Version string `yaml:"version"`
	Rules   []Rule `yaml:"rules"`
}

// GrammarError aggregates everything wrong with a ruleset. A ruleset with
// any problem is rejected whole; there is no partial compile.
type GrammarError struct {
	Version  string
	Problems []string
}

func (e *GrammarError) Error() string {
	return fmt.Sprintf("grammar %q invalid: %s", e.Version, strings.Join(e.Problems, "; "))
}

// ParseRuleset decodes a YAML rule file.
func ParseRuleset(data []byte) (*Ruleset, error) {
	var rs Ruleset
	if err := yaml.Unmarshal(data, &rs); err != nil {
		return nil, fmt.Errorf("failed to parse ruleset: %w", err)
	}
	return &rs, nil
}

// LoadRuleset reads and decodes a rule file from disk.
func LoadRuleset(path string) (*Ruleset, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read ruleset: %w", err)
	}
	return ParseRuleset(data)
}

// validate checks structural well-formedness before compilation. Pattern
// syntax errors are caught separately during regex compilation.
func (rs *Ruleset) validate() *GrammarError {
	var problems []string
	seenIDs := make(map[string]bool)

	for i, r := range rs.Rules {
		where := fmt.Sprintf("rule %d (%s)", i, r.ID)
		if r.ID == "" {
			problems = append(problems, fmt.Sprintf("rule %d: missing id", i))
		} else if seenIDs[r.ID] {
			problems = append(problems, where+": duplicate id")
		}
		seenIDs[r.ID] = true

		if r.Intent == "" {
			problems = append(problems, where+": missing intent")
		}
		if r.Priority < 0 {
			problems = append(problems, where+": priority must be non-negative")
		}
		if strings.TrimSpace(r.Pattern) == "" {
			problems = append(problems, where+": empty pattern")
		}

		slotNames := make(map[string]bool)
		for _, s := range r.Slots {
			if s.Name == "" {
				problems = append(problems, where+": slot with empty name")
				continue
			}
			if slotNames[s.Name] {
				problems = append(problems, fmt.Sprintf("%s: duplicate slot %q", where, s.Name))
			}
			slotNames[s.Name] = true
			if !validSlotTypes[s.Type] {
				problems = append(problems, fmt.Sprintf("%s: slot %q has unknown type %q", where, s.Name, s.Type))
			}
		}

		// Every {placeholder} in the pattern must be a declared slot.
		for _, ph := range placeholders(r.Pattern) {
			if !slotNames[ph] {
				problems = append(problems, fmt.Sprintf("%s: pattern references undeclared slot %q", where, ph))
			}
		}

		// Synonym tables must reference declared slots (or "intent").
		for key := range r.Synonyms {
			if key != "intent" && !slotNames[key] {
				problems = append(problems, fmt.Sprintf("%s: synonyms reference unknown slot %q", where, key))
			}
		}
	}

	if len(problems) > 0 {
		return &GrammarError{Version: rs.Version, Problems: problems}
	}
	return nil
}

// placeholders extracts {name} placeholder names from a pattern template.
func placeholders(pattern string) []string {
	var out []string
	for i := 0; i < len(pattern); i++ {
		if pattern[i] != '{' {
			continue
		}
		end := strings.IndexByte(pattern[i:], '}')
		if end < 0 {
			break
		}
		name := pattern[i+1 : i+end]
		if name != "" {
			out = append(out, name)
		}
		i += end
	}
	return out
}
