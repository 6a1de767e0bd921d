package parser

import (
	"regexp"
	"strconv"
	"strings"
	"time"

	"steward/internal/logging"
	"steward/internal/types"
)

// coordinator is one splittable conjunction, scanned in declaration order
// so longer phrases bind before their substrings ("and then" before "and").
type coordinator struct {
	phrase string
	coord  types.CoordinationType
}

var coordinators = []coordinator{
	{"and then", types.CoordSequential},
	{"then", types.CoordSequential},
	{"and", types.CoordParallel},
}

// reTemporal matches a temporal modifier ("in 10 minutes", "after 30
// seconds") anywhere in a segment. Temporal phrases bind tighter than any
// conjunction, so they are extracted per segment after splitting.
var reTemporal = regexp.MustCompile(`(?:^|\s)(?:in|after)\s+(\d+)\s*(seconds?|secs?|minutes?|mins?|hours?|hrs?|[smh])\b`)

// reConditional matches a trailing condition clause ("... if the vpn is
// connected").
var reConditional = regexp.MustCompile(`\s+if\s+(.+)$`)

// Segment splits a compound utterance into ordered segments, each carrying
// its coordination relationship to the previous segment and an optional
// temporal modifier. Segmentation is idempotent: an atomic command yields
// one Sequential segment with no modifier.
//
// Coordinators are only honored as whole words outside quoted spans, so
// "and" inside a quoted file name never splits.
func Segment(text string) []types.Segment {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil
	}

	pieces := splitOutsideQuotes(text)

	segments := make([]types.Segment, 0, len(pieces))
	for i, piece := range pieces {
		seg := types.Segment{
			Text:         strings.TrimSpace(piece.text),
			Coordination: piece.coord,
		}
		if i == 0 {
			seg.Coordination = types.CoordSequential
		}

		// Conditional clause binds tighter than the conjunction that
		// produced this piece.
		if m := reConditional.FindStringSubmatch(seg.Text); m != nil {
			seg.Condition = strings.TrimSpace(m[1])
			seg.Text = strings.TrimSpace(seg.Text[:len(seg.Text)-len(m[0])])
			seg.Coordination = types.CoordConditional
		}

		// Temporal modifier binds tightest of all.
		if m := reTemporal.FindStringSubmatch(seg.Text); m != nil {
			seg.Delay = temporalDuration(m[1], m[2])
			seg.Text = strings.TrimSpace(strings.Replace(seg.Text, strings.TrimSpace(m[0]), "", 1))
			seg.Text = strings.Join(strings.Fields(seg.Text), " ")
			seg.Coordination = types.CoordTemporal
		}

		if seg.Text == "" {
			continue
		}
		segments = append(segments, seg)
	}

	if len(segments) > 1 {
		logging.Parser("Segmented into %d parts: %q", len(segments), text)
	}
	return segments
}

// piece is one split region plus the coordinator that preceded it.
type piece struct {
	text  string
	coord types.CoordinationType
}

// splitOutsideQuotes splits on whole-word coordinators that sit outside
// any quoted span.
func splitOutsideQuotes(text string) []piece {
	words := strings.Fields(text)
	quoted := quotedWordMask(words)

	var out []piece
	cur := make([]string, 0, len(words))
	coord := types.CoordSequential

	flush := func(next types.CoordinationType) {
		if len(cur) > 0 {
			out = append(out, piece{text: strings.Join(cur, " "), coord: coord})
			cur = cur[:0]
		}
		coord = next
	}

	for i := 0; i < len(words); i++ {
		if !quoted[i] {
			matched := false
			for _, c := range coordinators {
				parts := strings.Fields(c.phrase)
				if matchWords(words, quoted, i, parts) {
					flush(c.coord)
					i += len(parts) - 1
					matched = true
					break
				}
			}
			if matched {
				continue
			}
		}
		cur = append(cur, words[i])
	}
	flush(types.CoordSequential)
	return out
}

// matchWords reports whether the coordinator words appear at position i,
// entirely outside quotes.
func matchWords(words []string, quoted []bool, i int, parts []string) bool {
	if i+len(parts) > len(words) {
		return false
	}
	// A coordinator at the very start or end joins nothing; skip it.
	if i == 0 || i+len(parts) == len(words) {
		return false
	}
	for j, p := range parts {
		if quoted[i+j] || words[i+j] != p {
			return false
		}
	}
	return true
}

// quotedWordMask marks words inside double- or single-quoted spans.
func quotedWordMask(words []string) []bool {
	mask := make([]bool, len(words))
	var open byte
	for i, w := range words {
		inSpan := open != 0
		for j := 0; j < len(w); j++ {
			switch w[j] {
			case '"', '\'':
				if open == 0 {
					open = w[j]
					inSpan = true
				} else if open == w[j] {
					open = 0
				}
			}
		}
		if inSpan {
			mask[i] = true
		}
	}
	return mask
}

// temporalDuration converts a spoken amount+unit into a duration.
func temporalDuration(amount, unit string) time.Duration {
	n, err := strconv.Atoi(amount)
	if err != nil || n < 0 {
		return 0
	}
	switch {
	case strings.HasPrefix(unit, "h"):
		return time.Duration(n) * time.Hour
	case strings.HasPrefix(unit, "m"):
		return time.Duration(n) * time.Minute
	default:
		return time.Duration(n) * time.Second
	}
}
