// Package knowledge supplies KnowledgeProvider implementations used by
// entity validation and the ranking scorer. Providers answer "is this name
// known" and supply aliases; the engine never depends on how they are
// backed.
package knowledge

import (
	"strings"
	"sync"

	"github.com/sahilm/fuzzy"

	"steward/internal/types"
)

// StaticProvider is an in-memory provider seeded with known names and their
// aliases. Lookups are case-insensitive; near-miss names ("chrom") resolve
// through fuzzy matching so spoken-input typos do not fail validation.
type StaticProvider struct {
	mu sync.RWMutex
	// canonical maps lowercased canonical name to its aliases.
	canonical map[string][]string
	// reverse maps lowercased alias to canonical name.
	reverse map[string]string
	// names is the fuzzy search corpus (canonical + aliases).
	names []string

	// MinFuzzyLen guards against absurd fuzzy hits on very short input.
	minFuzzyLen int
}

var _ types.KnowledgeProvider = (*StaticProvider)(nil)

// NewStaticProvider builds a provider from canonical-name -> aliases.
func NewStaticProvider(entries map[string][]string) *StaticProvider {
	p := &StaticProvider{
		canonical:   make(map[string][]string),
		reverse:     make(map[string]string),
		minFuzzyLen: 3,
	}
	for name, aliases := range entries {
		p.add(name, aliases)
	}
	return p
}

// DefaultApplications returns a provider preloaded with common desktop
// applications, for use when no knowledge source is configured.
func DefaultApplications() *StaticProvider {
	return NewStaticProvider(map[string][]string{
		"chrome":     {"google chrome", "browser"},
		"firefox":    {"mozilla firefox"},
		"spotify":    {"music player"},
		"vscode":     {"visual studio code", "code"},
		"terminal":   {"console", "shell"},
		"calculator": {"calc"},
		"slack":      {},
		"notes":      {"notepad", "text editor"},
	})
}

func (p *StaticProvider) add(name string, aliases []string) {
	key := strings.ToLower(strings.TrimSpace(name))
	if key == "" {
		return
	}
	p.canonical[key] = append([]string(nil), aliases...)
	p.names = append(p.names, key)
	p.reverse[key] = key
	for _, a := range aliases {
		ak := strings.ToLower(strings.TrimSpace(a))
		if ak == "" {
			continue
		}
		p.reverse[ak] = key
		p.names = append(p.names, ak)
	}
}

// Add registers a name and its aliases after construction.
func (p *StaticProvider) Add(name string, aliases ...string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.add(name, aliases)
}

// IsKnown reports whether the name resolves exactly, via alias, or via a
// close fuzzy match.
func (p *StaticProvider) IsKnown(name string) bool {
	_, ok := p.Resolve(name)
	return ok
}

// Resolve returns the canonical name for an exact, alias, or fuzzy match.
func (p *StaticProvider) Resolve(name string) (string, bool) {
	key := strings.ToLower(strings.TrimSpace(name))
	if key == "" {
		return "", false
	}

	p.mu.RLock()
	defer p.mu.RUnlock()

	if canon, ok := p.reverse[key]; ok {
		return canon, true
	}
	if len(key) < p.minFuzzyLen {
		return "", false
	}

	matches := fuzzy.Find(key, p.names)
	if len(matches) == 0 {
		return "", false
	}
	best := matches[0]
	// Require most of the input to participate in the match so "weather"
	// does not resolve to "terminal".
	if len(best.MatchedIndexes) < len(key) || len(key)*2 < len(best.Str) {
		return "", false
	}
	return p.reverse[best.Str], true
}

// Aliases returns the alias list for a known name, nil otherwise.
func (p *StaticProvider) Aliases(name string) []string {
	canon, ok := p.Resolve(name)
	if !ok {
		return nil
	}
	p.mu.RLock()
	defer p.mu.RUnlock()
	out := make([]string, len(p.canonical[canon]))
	copy(out, p.canonical[canon])
	return out
}

// Composite queries a list of providers in order; first positive answer
// wins. Useful for layering an application provider over a file provider.
type Composite []types.KnowledgeProvider

var _ types.KnowledgeProvider = Composite(nil)

// IsKnown implements KnowledgeProvider.
func (c Composite) IsKnown(name string) bool {
	for _, p := range c {
		if p.IsKnown(name) {
			return true
		}
	}
	return false
}

// Aliases implements KnowledgeProvider.
func (c Composite) Aliases(name string) []string {
	for _, p := range c {
		if as := p.Aliases(name); as != nil {
			return as
		}
	}
	return nil
}
