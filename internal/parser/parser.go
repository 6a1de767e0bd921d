package parser

import (
	"errors"

	"steward/internal/cache"
	"steward/internal/grammar"
	"steward/internal/logging"
	"steward/internal/types"
)

// ErrNoMatch is returned when no grammar rule fits the input above the
// minimum structural threshold. It is not fatal: the caller may attempt
// multi-intent segmentation or clarification.
var ErrNoMatch = errors.New("no matching pattern")

// Parser matches normalized text against the active grammar, memoizing
// results in the parse cache.
type Parser struct {
	grammar     *grammar.Store
	cache       *cache.Cache
	wakePhrases []string
	// minConfidence is the structural coverage floor below which a match
	// is treated as NoMatch.
	minConfidence float64
}

// New creates a parser. cache may be nil to disable memoization.
func New(store *grammar.Store, c *cache.Cache, wakePhrases []string, minConfidence float64) *Parser {
	return &Parser{
		grammar:       store,
		cache:         c,
		wakePhrases:   wakePhrases,
		minConfidence: minConfidence,
	}
}

// Normalize applies the parser's normalization to raw input.
func (p *Parser) Normalize(raw string) string {
	return Normalize(raw, p.wakePhrases)
}

// Parse normalizes the input and returns the best structural match with
// typed entities, or ErrNoMatch. Parse is deterministic for an unchanged
// grammar: identical input yields an identical ParsedCommand.
func (p *Parser) Parse(raw string) (*types.ParsedCommand, error) {
	text := p.Normalize(raw)
	if text == "" {
		return nil, ErrNoMatch
	}
	return p.ParseNormalized(text)
}

// ParseNormalized parses text that is already normalized (e.g. a segment
// produced by the segmenter, which normalizes up front).
func (p *Parser) ParseNormalized(text string) (*types.ParsedCommand, error) {
	if p.cache != nil {
		if cached, ok := p.cache.GetParsed(text); ok {
			return cached, nil
		}
	}

	g := p.grammar.Current()
	m := g.Match(text)
	if m == nil {
		logging.ParserDebug("no match: %q", text)
		return nil, ErrNoMatch
	}
	if m.Coverage() < p.minConfidence {
		logging.ParserDebug("match below structural threshold (%.2f < %.2f): %q",
			m.Coverage(), p.minConfidence, text)
		return nil, ErrNoMatch
	}

	cmd := &types.ParsedCommand{
		Text:       text,
		PatternID:  m.RuleID,
		Intent:     m.Intent,
		Priority:   m.Priority,
		Confidence: m.Coverage(),
		Captures:   m.Captures,
		Entities:   g.ExtractEntities(m),
	}

	if p.cache != nil {
		p.cache.PutParsed(text, cmd)
	}
	logging.Parser("Parsed %q -> %s (%.2f)", text, cmd.Intent, cmd.Confidence)
	return cmd, nil
}
