package convo

import (
	"fmt"
	"testing"
	"time"

	"steward/internal/types"
)

func entry(text, intent string, primary *types.Entity, success bool, ts time.Time) types.ContextEntry {
	return types.ContextEntry{
		Timestamp: ts,
		Text:      text,
		Intent:    intent,
		Primary:   primary,
		Success:   success,
	}
}

func TestWindowBoundsEntryCount(t *testing.T) {
	w := NewWindow(3, time.Hour)
	now := time.Now()
	for i := 0; i < 5; i++ {
		w.Record(entry(fmt.Sprintf("cmd %d", i), "launch_app", nil, true, now))
	}
	recent := w.Recent()
	if len(recent) != 3 {
		t.Fatalf("expected window of 3, got %d", len(recent))
	}
	if recent[0].Text != "cmd 2" {
		t.Errorf("oldest surviving entry should be cmd 2, got %q", recent[0].Text)
	}
}

func TestStaleEntriesTreatedAsAbsent(t *testing.T) {
	w := NewWindow(10, 5*time.Minute)
	base := time.Now()
	w.SetClock(func() time.Time { return base })

	w.Record(entry("old command", "mute", nil, true, base.Add(-10*time.Minute)))
	w.Record(entry("fresh command", "mute", nil, true, base.Add(-1*time.Minute)))

	recent := w.Recent()
	if len(recent) != 1 || recent[0].Text != "fresh command" {
		t.Fatalf("stale entry should be absent, got %v", recent)
	}
	// Stale entries contribute nothing to success rates either.
	if rate := w.SuccessRate("old command"); rate != 0 {
		t.Errorf("stale success rate should be 0, got %v", rate)
	}
}

func TestResolveReference(t *testing.T) {
	w := NewWindow(10, time.Hour)
	app := types.NewAppEntity("chrome")
	w.Record(entry("open chrome", "launch_app", &app, true, time.Now()))

	for _, token := range []string{"it", "that", "the same app", "IT"} {
		e, ok := w.ResolveReference(token)
		if !ok {
			t.Errorf("ResolveReference(%q) should resolve", token)
			continue
		}
		if e.Text != "chrome" {
			t.Errorf("ResolveReference(%q) = %v, want chrome", token, e)
		}
	}

	if _, ok := w.ResolveReference("banana"); ok {
		t.Error("non-reference token should not resolve")
	}
}

func TestResolveReferenceFailsOnEmptyWindow(t *testing.T) {
	w := NewWindow(10, time.Hour)
	if _, ok := w.ResolveReference("it"); ok {
		t.Error("empty window should not resolve references")
	}

	// Entries without a primary entity do not resolve either.
	w.Record(entry("mute", "mute", nil, true, time.Now()))
	if _, ok := w.ResolveReference("it"); ok {
		t.Error("entry without primary entity should not resolve")
	}
}

func TestResolveReferencePicksMostRecent(t *testing.T) {
	w := NewWindow(10, time.Hour)
	chrome := types.NewAppEntity("chrome")
	spotify := types.NewAppEntity("spotify")
	now := time.Now()
	w.Record(entry("open chrome", "launch_app", &chrome, true, now.Add(-2*time.Second)))
	w.Record(entry("open spotify", "launch_app", &spotify, true, now))

	e, ok := w.ResolveReference("it")
	if !ok || e.Text != "spotify" {
		t.Errorf("expected most recent primary (spotify), got %v ok=%v", e, ok)
	}
}

func TestSuccessRate(t *testing.T) {
	w := NewWindow(10, time.Hour)
	now := time.Now()
	w.Record(entry("open chrome", "launch_app", nil, true, now))
	w.Record(entry("open chrome", "launch_app", nil, false, now))
	w.Record(entry("open chrome", "launch_app", nil, true, now))

	if rate := w.SuccessRate("open chrome"); rate < 0.66 || rate > 0.67 {
		t.Errorf("expected ~2/3, got %v", rate)
	}
	if rate := w.SuccessRate("never seen"); rate != 0 {
		t.Errorf("unseen text should rate 0, got %v", rate)
	}
}

func TestSimilarityDeterministic(t *testing.T) {
	w := NewWindow(10, time.Hour)
	w.Record(entry("open chrome", "launch_app", nil, true, time.Now()))

	a := w.Similarity("open chrome please")
	b := w.Similarity("open chrome please")
	if a != b {
		t.Errorf("similarity must be deterministic: %v vs %v", a, b)
	}
	if a <= 0 {
		t.Errorf("overlapping text should have positive similarity, got %v", a)
	}
	if s := w.Similarity("unrelated words entirely"); s != 0 {
		t.Errorf("disjoint text should score 0, got %v", s)
	}
}
