package grammar

import (
	"fmt"
	"sync"
	"sync/atomic"

	"steward/internal/logging"
)

// Store holds the currently active compiled grammar and swaps it atomically
// on reload. Readers never observe a half-loaded grammar: they either get
// the old compiled grammar or the new one in full.
type Store struct {
	current atomic.Pointer[CompiledGrammar]

	// reloadMu serializes reloads so invalidation hooks fire exactly once
	// per successful swap.
	reloadMu sync.Mutex
	onReload []func(version string)
}

// NewStore compiles the initial ruleset and returns a ready store.
func NewStore(rs *Ruleset) (*Store, error) {
	g, err := Compile(rs)
	if err != nil {
		return nil, err
	}
	s := &Store{}
	s.current.Store(g)
	return s, nil
}

// Current returns the active grammar. Always non-nil.
func (s *Store) Current() *CompiledGrammar {
	return s.current.Load()
}

// OnReload registers a hook invoked synchronously after each successful
// swap, before Reload returns. Used to invalidate caches.
func (s *Store) OnReload(fn func(version string)) {
	s.reloadMu.Lock()
	defer s.reloadMu.Unlock()
	s.onReload = append(s.onReload, fn)
}

// Reload compiles the new ruleset and swaps it in atomically. On compile
// failure the old grammar stays in effect and no hooks fire.
func (s *Store) Reload(rs *Ruleset) error {
	s.reloadMu.Lock()
	defer s.reloadMu.Unlock()

	g, err := Compile(rs)
	if err != nil {
		logging.Get(logging.CategoryGrammar).Warn("Reload rejected, keeping grammar %q: %v",
			s.current.Load().Version, err)
		return err
	}

	old := s.current.Swap(g)
	logging.Grammar("Grammar swapped: %q -> %q (%d rules)", old.Version, g.Version, g.RuleCount())

	for _, fn := range s.onReload {
		fn(g.Version)
	}
	return nil
}

// ReloadFromFile loads, compiles and swaps a rule file.
func (s *Store) ReloadFromFile(path string) error {
	rs, err := LoadRuleset(path)
	if err != nil {
		return fmt.Errorf("reload from %s: %w", path, err)
	}
	return s.Reload(rs)
}
