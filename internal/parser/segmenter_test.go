package parser

import (
	"testing"
	"time"

	"steward/internal/types"
)

func TestSegmentAtomic(t *testing.T) {
	segs := Segment("open chrome")
	if len(segs) != 1 {
		t.Fatalf("expected 1 segment, got %d", len(segs))
	}
	if segs[0].Text != "open chrome" || segs[0].Coordination != types.CoordSequential {
		t.Errorf("unexpected segment: %+v", segs[0])
	}
	if segs[0].Delay != 0 || segs[0].Condition != "" {
		t.Errorf("atomic segment should carry no modifiers: %+v", segs[0])
	}
}

func TestSegmentParallel(t *testing.T) {
	segs := Segment("open chrome and play music")
	if len(segs) != 2 {
		t.Fatalf("expected 2 segments, got %d: %+v", len(segs), segs)
	}
	if segs[0].Text != "open chrome" || segs[0].Coordination != types.CoordSequential {
		t.Errorf("first segment: %+v", segs[0])
	}
	if segs[1].Text != "play music" || segs[1].Coordination != types.CoordParallel {
		t.Errorf("second segment: %+v", segs[1])
	}
}

func TestSegmentSequential(t *testing.T) {
	for _, text := range []string{
		"open chrome then play music",
		"open chrome and then play music",
	} {
		segs := Segment(text)
		if len(segs) != 2 {
			t.Fatalf("%q: expected 2 segments, got %d: %+v", text, len(segs), segs)
		}
		if segs[1].Text != "play music" || segs[1].Coordination != types.CoordSequential {
			t.Errorf("%q: second segment %+v", text, segs[1])
		}
	}
}

func TestSegmentTemporal(t *testing.T) {
	segs := Segment("mute in 10 minutes")
	if len(segs) != 1 {
		t.Fatalf("expected 1 segment, got %d: %+v", len(segs), segs)
	}
	seg := segs[0]
	if seg.Text != "mute" {
		t.Errorf("temporal modifier should be stripped from text, got %q", seg.Text)
	}
	if seg.Coordination != types.CoordTemporal {
		t.Errorf("expected temporal coordination, got %s", seg.Coordination)
	}
	if seg.Delay != 10*time.Minute {
		t.Errorf("expected 600s delay, got %s", seg.Delay)
	}
}

func TestSegmentTemporalUnits(t *testing.T) {
	tests := []struct {
		in    string
		delay time.Duration
	}{
		{"mute after 30 seconds", 30 * time.Second},
		{"mute in 5s", 5 * time.Second},
		{"mute in 2 hours", 2 * time.Hour},
		{"shut down in 1 hr", time.Hour},
	}
	for _, tt := range tests {
		segs := Segment(tt.in)
		if len(segs) != 1 || segs[0].Delay != tt.delay {
			t.Errorf("Segment(%q) = %+v, want delay %s", tt.in, segs, tt.delay)
		}
	}
}

func TestSegmentConditional(t *testing.T) {
	segs := Segment("mute if music is playing")
	if len(segs) != 1 {
		t.Fatalf("expected 1 segment, got %d: %+v", len(segs), segs)
	}
	seg := segs[0]
	if seg.Text != "mute" || seg.Coordination != types.CoordConditional {
		t.Errorf("unexpected segment: %+v", seg)
	}
	if seg.Condition != "music is playing" {
		t.Errorf("expected condition text, got %q", seg.Condition)
	}
}

func TestSegmentQuotedCoordinatorProtected(t *testing.T) {
	for _, text := range []string{
		`find "cats and dogs.txt"`,
		`find 'cats and dogs.txt'`,
	} {
		segs := Segment(text)
		if len(segs) != 1 {
			t.Fatalf("%q: quoted conjunction must not split, got %d segments: %+v",
				text, len(segs), segs)
		}
	}
}

func TestSegmentCoordinatorAtBoundaryIgnored(t *testing.T) {
	// A conjunction joining nothing is part of the command text.
	segs := Segment("and open chrome")
	if len(segs) != 1 {
		t.Fatalf("leading conjunction should not split, got %+v", segs)
	}
	segs = Segment("open chrome and")
	if len(segs) != 1 {
		t.Fatalf("trailing conjunction should not split, got %+v", segs)
	}
}

func TestSegmentThreeWay(t *testing.T) {
	segs := Segment("open chrome and play music then mute in 10 minutes")
	if len(segs) != 3 {
		t.Fatalf("expected 3 segments, got %d: %+v", len(segs), segs)
	}
	if segs[1].Coordination != types.CoordParallel {
		t.Errorf("second segment should be parallel: %+v", segs[1])
	}
	if segs[2].Coordination != types.CoordTemporal || segs[2].Delay != 10*time.Minute {
		t.Errorf("third segment should be temporal with 10m delay: %+v", segs[2])
	}
	if segs[2].Text != "mute" {
		t.Errorf("third segment text: %q", segs[2].Text)
	}
}

func TestSegmentIdempotent(t *testing.T) {
	first := Segment("open chrome")
	again := Segment(first[0].Text)
	if len(again) != 1 || again[0] != first[0] {
		t.Errorf("segmentation must be idempotent: %+v vs %+v", first, again)
	}
}
