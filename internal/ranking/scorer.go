// Package ranking combines pattern, entity, context, history, synonym and
// priority signals into one calibrated confidence value with an
// explainable, byte-for-byte reproducible breakdown.
package ranking

import (
	"fmt"
	"strings"

	"steward/internal/convo"
	"steward/internal/grammar"
	"steward/internal/logging"
	"steward/internal/types"
)

// Weights are the fixed normalized factor weights. They must sum to 1.0.
type Weights struct {
	Pattern  float64
	Entity   float64
	Context  float64
	History  float64
	Synonym  float64
	Priority float64
}

// DefaultWeights returns the calibrated default weighting.
func DefaultWeights() Weights {
	return Weights{
		Pattern:  0.40,
		Entity:   0.20,
		Context:  0.15,
		History:  0.10,
		Synonym:  0.10,
		Priority: 0.05,
	}
}

// Scorer scores parsed commands. Each factor is independently computable:
// an absent input (no context window, no provider) contributes that
// factor's minimum rather than failing.
type Scorer struct {
	provider types.KnowledgeProvider
	weights  Weights
}

// NewScorer creates a scorer. provider may be nil.
func NewScorer(provider types.KnowledgeProvider, w Weights) *Scorer {
	return &Scorer{provider: provider, weights: w}
}

// Score produces the classification for one parsed command. window may be
// nil. The result is deterministic: identical inputs (including window
// contents) produce an identical confidence and factor breakdown.
func (s *Scorer) Score(parsed *types.ParsedCommand, g *grammar.CompiledGrammar, window *convo.Window) types.ClassificationResult {
	res := types.ClassificationResult{
		Intent:    parsed.Intent,
		PatternID: parsed.PatternID,
		Entities:  parsed.Entities,
		Text:      parsed.Text,
	}

	add := func(name string, weight, raw float64, reason string) {
		contribution := weight * raw
		res.Confidence += contribution
		if contribution > 0 {
			res.Factors = append(res.Factors, types.ScoreFactor{
				Name:         name,
				Weight:       weight,
				Contribution: contribution,
				Reason:       reason,
			})
		}
	}

	// Pattern confidence: structural coverage of the winning rule.
	add("pattern", s.weights.Pattern, parsed.Confidence,
		fmt.Sprintf("pattern %s covered %.0f%% of input", parsed.PatternID, parsed.Confidence*100))

	// Entity validity against the knowledge provider.
	validity, reason := s.entityValidity(parsed.Entities)
	add("entities", s.weights.Entity, validity, reason)

	// Contextual similarity to recent commands.
	similarity := 0.0
	if window != nil {
		similarity = window.Similarity(parsed.Text)
	}
	add("context", s.weights.Context, similarity,
		fmt.Sprintf("similarity %.2f to recent commands", similarity))

	// Historical success rate for this exact normalized text.
	history := 0.0
	if window != nil {
		history = window.SuccessRate(parsed.Text)
	}
	add("history", s.weights.History, history,
		fmt.Sprintf("past success rate %.2f", history))

	// Synonym overlap: input tokens covered by the rule's synonym
	// vocabulary or by a capture.
	overlap := synonymOverlap(parsed, g)
	add("synonyms", s.weights.Synonym, overlap,
		fmt.Sprintf("%.0f%% of tokens covered by synonyms or captures", overlap*100))

	// Rule priority normalized against the grammar's maximum.
	priority := 0.0
	if g != nil && g.MaxPriority() > 0 {
		priority = float64(parsed.Priority) / float64(g.MaxPriority())
	}
	add("priority", s.weights.Priority, priority,
		fmt.Sprintf("priority %d of max %d", parsed.Priority, maxPriority(g)))

	logging.Ranking("Scored %q as %s: %.3f (%d factors)",
		parsed.Text, res.Intent, res.Confidence, len(res.Factors))
	return res
}

func maxPriority(g *grammar.CompiledGrammar) int {
	if g == nil {
		return 0
	}
	return g.MaxPriority()
}

// entityValidity averages per-entity validity. Name-like entities are
// checked against the knowledge provider; other typed entities count as
// valid; RawString fallbacks count low. A rule with no slots is vacuously
// valid: there is nothing to invalidate.
func (s *Scorer) entityValidity(es *types.Entities) (float64, string) {
	if es.Len() == 0 {
		return 1.0, "no entities to validate"
	}

	var sum float64
	var unknown []string
	es.Range(func(slot string, e types.Entity) bool {
		switch e.Kind {
		case types.EntityApp, types.EntityFile, types.EntityFolder, types.EntityContact:
			if s.provider != nil && s.provider.IsKnown(e.Text) {
				sum += 1.0
			} else {
				sum += 0.25
				unknown = append(unknown, e.Text)
			}
		case types.EntityRaw:
			sum += 0.4
		default:
			sum += 1.0
		}
		return true
	})

	validity := sum / float64(es.Len())
	if len(unknown) > 0 {
		return validity, fmt.Sprintf("unknown names: %s", strings.Join(unknown, ", "))
	}
	return validity, fmt.Sprintf("%d entities valid", es.Len())
}

// synonymOverlap returns the fraction of input tokens that appear in the
// winning rule's synonym vocabulary or inside a capture value.
func synonymOverlap(parsed *types.ParsedCommand, g *grammar.CompiledGrammar) float64 {
	tokens := strings.Fields(parsed.Text)
	if len(tokens) == 0 {
		return 0
	}

	var synonyms map[string]bool
	if g != nil {
		synonyms = g.SynonymWords(parsed.PatternID)
	}

	captured := make(map[string]bool)
	for _, v := range parsed.Captures {
		for _, tok := range strings.Fields(strings.ToLower(v)) {
			captured[tok] = true
		}
	}

	covered := 0
	for _, tok := range tokens {
		if synonyms[tok] || captured[tok] {
			covered++
		}
	}
	return float64(covered) / float64(len(tokens))
}
