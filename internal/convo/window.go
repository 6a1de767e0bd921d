// Package convo implements the conversation context: a bounded,
// time-decayed window of recently resolved commands used for reference
// resolution and for the historical success signal in ranking.
package convo

import (
	"strings"
	"sync"
	"time"

	"steward/internal/logging"
	"steward/internal/types"
)

// referenceTokens are the anaphora the window can resolve to the most
// recent primary entity.
var referenceTokens = map[string]bool{
	"it":           true,
	"that":         true,
	"this":         true,
	"that file":    true,
	"that app":     true,
	"the same":     true,
	"the same app": true,
	"same app":     true,
}

// Window is the bounded conversation context. It holds at most maxEntries
// entries and treats entries older than maxAge as absent, whichever bound
// bites first. Safe for concurrent use; all critical sections are short and
// never span an effector call.
type Window struct {
	mu         sync.RWMutex
	entries    []types.ContextEntry
	maxEntries int
	maxAge     time.Duration

	// now is swappable for tests.
	now func() time.Time
}

// NewWindow creates a window with the given bounds.
func NewWindow(maxEntries int, maxAge time.Duration) *Window {
	if maxEntries <= 0 {
		maxEntries = 10
	}
	if maxAge <= 0 {
		maxAge = 5 * time.Minute
	}
	return &Window{
		maxEntries: maxEntries,
		maxAge:     maxAge,
		now:        time.Now,
	}
}

// SetClock replaces the time source. Test hook.
func (w *Window) SetClock(now func() time.Time) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.now = now
}

// Record appends a completed command, evicting the oldest entry when the
// window is full.
func (w *Window) Record(entry types.ContextEntry) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if entry.Timestamp.IsZero() {
		entry.Timestamp = w.now()
	}
	w.entries = append(w.entries, entry)
	if len(w.entries) > w.maxEntries {
		w.entries = w.entries[len(w.entries)-w.maxEntries:]
	}
	logging.Get(logging.CategoryContext).Debug("Recorded %q (intent=%s, success=%v), window=%d",
		entry.Text, entry.Intent, entry.Success, len(w.entries))
}

// Recent returns the fresh entries, oldest first. Stale entries are treated
// as absent even if not yet evicted.
func (w *Window) Recent() []types.ContextEntry {
	w.mu.RLock()
	defer w.mu.RUnlock()

	cutoff := w.now().Add(-w.maxAge)
	out := make([]types.ContextEntry, 0, len(w.entries))
	for _, e := range w.entries {
		if e.Timestamp.After(cutoff) {
			out = append(out, e)
		}
	}
	return out
}

// Len returns the number of fresh entries.
func (w *Window) Len() int {
	return len(w.Recent())
}

// ResolveReference resolves anaphoric tokens ("it", "the same app") to the
// most recent fresh entry's primary entity. Resolution fails when the
// window is empty or nothing fresh carries a primary entity.
func (w *Window) ResolveReference(token string) (types.Entity, bool) {
	token = strings.ToLower(strings.TrimSpace(token))
	if !referenceTokens[token] {
		return types.Entity{}, false
	}

	recent := w.Recent()
	for i := len(recent) - 1; i >= 0; i-- {
		if recent[i].Primary != nil {
			return *recent[i].Primary, true
		}
	}
	return types.Entity{}, false
}

// IsReference reports whether the token is a resolvable anaphor.
func IsReference(token string) bool {
	return referenceTokens[strings.ToLower(strings.TrimSpace(token))]
}

// SuccessRate returns the historical success fraction for the given
// normalized text among fresh entries, and 0 when the text was never seen.
func (w *Window) SuccessRate(normalizedText string) float64 {
	recent := w.Recent()
	var seen, ok int
	for _, e := range recent {
		if e.Text == normalizedText {
			seen++
			if e.Success {
				ok++
			}
		}
	}
	if seen == 0 {
		return 0
	}
	return float64(ok) / float64(seen)
}

// Similarity returns the best token-overlap score between the text and any
// fresh entry, weighting newer entries higher. Deterministic for identical
// window contents.
func (w *Window) Similarity(normalizedText string) float64 {
	recent := w.Recent()
	if len(recent) == 0 {
		return 0
	}

	tokens := tokenSet(normalizedText)
	if len(tokens) == 0 {
		return 0
	}

	best := 0.0
	for i, e := range recent {
		overlap := jaccard(tokens, tokenSet(e.Text))
		// Recency weight: newest entry contributes fully, oldest half.
		recency := 0.5 + 0.5*float64(i+1)/float64(len(recent))
		if s := overlap * recency; s > best {
			best = s
		}
	}
	return best
}

func tokenSet(s string) map[string]bool {
	set := make(map[string]bool)
	for _, tok := range strings.Fields(strings.ToLower(s)) {
		set[tok] = true
	}
	return set
}

func jaccard(a, b map[string]bool) float64 {
	if len(a) == 0 || len(b) == 0 {
		return 0
	}
	inter := 0
	for t := range a {
		if b[t] {
			inter++
		}
	}
	union := len(a) + len(b) - inter
	return float64(inter) / float64(union)
}
