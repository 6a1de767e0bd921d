package grammar

import (
	"regexp"
	"strconv"
	"strings"
	"time"

	"steward/internal/types"
)

// TypeCapture converts a raw captured substring into a typed entity, driven
// by the slot's declared type. It is a pure function: unrecognized or
// malformed values fall back to a RawString entity, never an error.
func TypeCapture(slotType SlotType, raw string) types.Entity {
	value := strings.TrimSpace(raw)
	switch slotType {
	case SlotApp:
		return types.NewAppEntity(value)
	case SlotFile:
		return types.NewFileEntity(value)
	case SlotFolder:
		return types.NewFolderEntity(value)
	case SlotDuration:
		if d, ok := parseDuration(value); ok {
			return types.NewDurationEntity(raw, d)
		}
	case SlotCount:
		if n, err := strconv.ParseFloat(value, 64); err == nil {
			return types.NewCountEntity(raw, n)
		}
	case SlotPercentage:
		if pct, ok := parsePercentage(value); ok {
			return types.NewPercentageEntity(raw, pct)
		}
	case SlotTimeOfDay:
		if h, m, ok := parseTimeOfDay(value); ok {
			return types.NewTimeOfDayEntity(raw, h, m)
		}
	case SlotDate:
		if d, ok := parseDate(value); ok {
			return types.NewDateEntity(raw, d)
		}
	case SlotQuery:
		return types.NewQueryEntity(value)
	case SlotFreeText:
		return types.NewFreeTextEntity(value)
	case SlotURL:
		if looksLikeURL(value) {
			return types.NewURLEntity(value)
		}
	case SlotContact:
		return types.NewContactEntity(value)
	case SlotLanguage:
		if reLanguage.MatchString(value) {
			return types.NewLanguageEntity(strings.ToLower(value))
		}
	case SlotString:
		return types.NewRawEntity(value)
	}
	return types.NewRawEntity(value)
}

var (
	reDuration   = regexp.MustCompile(`^(\d+)\s*(seconds?|secs?|minutes?|mins?|hours?|hrs?|[smh])$`)
	rePercentage = regexp.MustCompile(`^(\d+)\s*(?:%|percent)?$`)
	reTimeOfDay  = regexp.MustCompile(`^(\d{1,2})(?::(\d{2}))?\s*(am|pm)?$`)
	reLanguage   = regexp.MustCompile(`^[a-zA-Z]{2}(?:-[a-zA-Z]{2})?$`)
)

// parseDuration understands spoken duration forms ("10 minutes", "30s").
func parseDuration(s string) (time.Duration, bool) {
	m := reDuration.FindStringSubmatch(strings.ToLower(s))
	if m == nil {
		return 0, false
	}
	n, err := strconv.Atoi(m[1])
	if err != nil || n < 0 {
		return 0, false
	}
	unit := m[2]
	switch {
	case strings.HasPrefix(unit, "h"):
		return time.Duration(n) * time.Hour, true
	case strings.HasPrefix(unit, "m"):
		return time.Duration(n) * time.Minute, true
	default:
		return time.Duration(n) * time.Second, true
	}
}

func parsePercentage(s string) (float64, bool) {
	m := rePercentage.FindStringSubmatch(strings.ToLower(s))
	if m == nil {
		return 0, false
	}
	n, err := strconv.ParseFloat(m[1], 64)
	if err != nil {
		return 0, false
	}
	return n, true
}

func parseTimeOfDay(s string) (hour, minute int, ok bool) {
	m := reTimeOfDay.FindStringSubmatch(strings.ToLower(s))
	if m == nil {
		return 0, 0, false
	}
	hour, _ = strconv.Atoi(m[1])
	if m[2] != "" {
		minute, _ = strconv.Atoi(m[2])
	}
	switch m[3] {
	case "pm":
		if hour < 12 {
			hour += 12
		}
	case "am":
		if hour == 12 {
			hour = 0
		}
	}
	if hour > 23 || minute > 59 {
		return 0, 0, false
	}
	return hour, minute, true
}

func parseDate(s string) (time.Time, bool) {
	lower := strings.ToLower(s)
	now := time.Now()
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	switch lower {
	case "today":
		return today, true
	case "tomorrow":
		return today.AddDate(0, 0, 1), true
	case "yesterday":
		return today.AddDate(0, 0, -1), true
	}
	if t, err := time.Parse("2006-01-02", lower); err == nil {
		return t, true
	}
	return time.Time{}, false
}

func looksLikeURL(s string) bool {
	return strings.HasPrefix(s, "http://") ||
		strings.HasPrefix(s, "https://") ||
		(strings.Contains(s, ".") && !strings.ContainsAny(s, " \t"))
}

// ExtractEntities runs TypeCapture over every capture of a match, in slot
// declaration order.
func (g *CompiledGrammar) ExtractEntities(m *MatchResult) *types.Entities {
	es := types.NewEntities()
	for _, slot := range m.SlotOrder {
		raw, ok := m.Captures[slot]
		if !ok {
			continue
		}
		es.Set(slot, TypeCapture(g.SlotTypeFor(m.RuleID, slot), raw))
	}
	return es
}
