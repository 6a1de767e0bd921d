// Package parser turns raw utterances into parsed commands: normalization,
// grammar matching with caching, and multi-intent segmentation of compound
// utterances.
package parser

import (
	"strings"
)

// Normalize canonicalizes raw input: trim, lowercase, collapse whitespace,
// and strip one leading wake phrase if present. Cache keys and all
// downstream processing use the normalized form only.
func Normalize(raw string, wakePhrases []string) string {
	text := strings.ToLower(strings.TrimSpace(raw))
	text = strings.Join(strings.Fields(text), " ")

	for _, wake := range wakePhrases {
		wake = strings.ToLower(strings.TrimSpace(wake))
		if wake == "" {
			continue
		}
		if text == wake {
			return ""
		}
		if strings.HasPrefix(text, wake+" ") {
			text = strings.TrimSpace(text[len(wake)+1:])
			break
		}
		// Wake phrase followed by a comma: "hey steward, open chrome".
		if strings.HasPrefix(text, wake+",") {
			text = strings.TrimSpace(text[len(wake)+1:])
			break
		}
	}
	return text
}
