// Package types provides shared type definitions used across steward packages.
// This package exists to break import cycles between grammar, parser, planner,
// and executor. Types in this package should be foundational data structures
// with no complex dependencies.
package types

import (
	"fmt"
	"strings"
	"time"
)

// =============================================================================
// ENTITY - Typed Capture Values
// =============================================================================

// EntityKind identifies the member of the Entity union.
type EntityKind string

const (
	EntityApp        EntityKind = "app"
	EntityFile       EntityKind = "file"
	EntityFolder     EntityKind = "folder"
	EntityDuration   EntityKind = "duration"
	EntityCount      EntityKind = "count"
	EntityPercentage EntityKind = "percentage"
	EntityTimeOfDay  EntityKind = "time_of_day"
	EntityDate       EntityKind = "date"
	EntityQuery      EntityKind = "query"
	EntityFreeText   EntityKind = "free_text"
	EntityAction     EntityKind = "action"
	EntityURL        EntityKind = "url"
	EntityContact    EntityKind = "contact"
	EntityLanguage   EntityKind = "language"
	EntityRaw        EntityKind = "raw"
)

// Entity is the closed tagged union over all typed capture values.
// Exactly one typed field is meaningful for a given Kind; Text always
// carries the raw capture the entity was produced from. Entities are
// immutable once produced.
type Entity struct {
	Kind EntityKind
	Text string

	// Duration is set for EntityDuration.
	Duration time.Duration
	// Number is set for EntityCount and EntityPercentage (0-100).
	Number float64
	// Hour/Minute are set for EntityTimeOfDay.
	Hour   int
	Minute int
	// Date is set for EntityDate.
	Date time.Time
}

// NewAppEntity returns an application reference entity.
func NewAppEntity(name string) Entity {
	return Entity{Kind: EntityApp, Text: name}
}

// NewFileEntity returns a file reference entity.
func NewFileEntity(path string) Entity {
	return Entity{Kind: EntityFile, Text: path}
}

// NewFolderEntity returns a folder reference entity.
func NewFolderEntity(path string) Entity {
	return Entity{Kind: EntityFolder, Text: path}
}

// NewDurationEntity returns a duration entity.
func NewDurationEntity(raw string, d time.Duration) Entity {
	return Entity{Kind: EntityDuration, Text: raw, Duration: d}
}

// NewCountEntity returns a count entity.
func NewCountEntity(raw string, n float64) Entity {
	return Entity{Kind: EntityCount, Text: raw, Number: n}
}

// NewPercentageEntity returns a percentage entity clamped to [0,100].
func NewPercentageEntity(raw string, pct float64) Entity {
	if pct < 0 {
		pct = 0
	}
	if pct > 100 {
		pct = 100
	}
	return Entity{Kind: EntityPercentage, Text: raw, Number: pct}
}

// NewTimeOfDayEntity returns a time-of-day entity.
func NewTimeOfDayEntity(raw string, hour, minute int) Entity {
	return Entity{Kind: EntityTimeOfDay, Text: raw, Hour: hour, Minute: minute}
}

// NewDateEntity returns a date entity.
func NewDateEntity(raw string, date time.Time) Entity {
	return Entity{Kind: EntityDate, Text: raw, Date: date}
}

// NewQueryEntity returns a free-text search query entity.
func NewQueryEntity(q string) Entity {
	return Entity{Kind: EntityQuery, Text: q}
}

// NewFreeTextEntity returns a free-text entity.
func NewFreeTextEntity(s string) Entity {
	return Entity{Kind: EntityFreeText, Text: s}
}

// NewURLEntity returns a URL entity.
func NewURLEntity(u string) Entity {
	return Entity{Kind: EntityURL, Text: u}
}

// NewContactEntity returns a contact entity.
func NewContactEntity(name string) Entity {
	return Entity{Kind: EntityContact, Text: name}
}

// NewLanguageEntity returns a language-tag entity.
func NewLanguageEntity(tag string) Entity {
	return Entity{Kind: EntityLanguage, Text: tag}
}

// NewActionEntity returns an action reference entity.
func NewActionEntity(name string) Entity {
	return Entity{Kind: EntityAction, Text: name}
}

// NewRawEntity returns the fallback entity for unrecognized captures.
func NewRawEntity(s string) Entity {
	return Entity{Kind: EntityRaw, Text: s}
}

// String returns a compact human-readable representation.
func (e Entity) String() string {
	switch e.Kind {
	case EntityDuration:
		return fmt.Sprintf("%s(%s)", e.Kind, e.Duration)
	case EntityCount:
		return fmt.Sprintf("%s(%g)", e.Kind, e.Number)
	case EntityPercentage:
		return fmt.Sprintf("%s(%g%%)", e.Kind, e.Number)
	case EntityTimeOfDay:
		return fmt.Sprintf("%s(%02d:%02d)", e.Kind, e.Hour, e.Minute)
	case EntityDate:
		return fmt.Sprintf("%s(%s)", e.Kind, e.Date.Format("2006-01-02"))
	default:
		return fmt.Sprintf("%s(%q)", e.Kind, e.Text)
	}
}

// IsTyped reports whether the entity carries a recognized type
// (anything other than the RawString fallback).
func (e Entity) IsTyped() bool {
	return e.Kind != EntityRaw && e.Kind != ""
}

// =============================================================================
// ENTITIES - Insertion-Ordered Slot Map
// =============================================================================

// Entities is an insertion-ordered mapping from slot name to Entity.
// Slot names are unique per parse; re-setting a name overwrites the value
// but keeps its original position.
type Entities struct {
	keys   []string
	values map[string]Entity
}

// NewEntities returns an empty entity map.
func NewEntities() *Entities {
	return &Entities{values: make(map[string]Entity)}
}

// Set stores an entity under the given slot name.
func (es *Entities) Set(slot string, e Entity) {
	if es.values == nil {
		es.values = make(map[string]Entity)
	}
	if _, ok := es.values[slot]; !ok {
		es.keys = append(es.keys, slot)
	}
	es.values[slot] = e
}

// Get returns the entity for a slot name.
func (es *Entities) Get(slot string) (Entity, bool) {
	if es == nil || es.values == nil {
		return Entity{}, false
	}
	e, ok := es.values[slot]
	return e, ok
}

// Len returns the number of slots.
func (es *Entities) Len() int {
	if es == nil {
		return 0
	}
	return len(es.keys)
}

// Slots returns slot names in insertion order. The returned slice is a copy.
func (es *Entities) Slots() []string {
	if es == nil {
		return nil
	}
	out := make([]string, len(es.keys))
	copy(out, es.keys)
	return out
}

// Range calls fn for each slot in insertion order. Returning false stops
// the iteration early.
func (es *Entities) Range(fn func(slot string, e Entity) bool) {
	if es == nil {
		return
	}
	for _, k := range es.keys {
		if !fn(k, es.values[k]) {
			return
		}
	}
}

// Clone returns an independent copy.
func (es *Entities) Clone() *Entities {
	out := NewEntities()
	if es == nil {
		return out
	}
	for _, k := range es.keys {
		out.Set(k, es.values[k])
	}
	return out
}

// String renders the map as "slot=entity" pairs in insertion order.
func (es *Entities) String() string {
	if es == nil || len(es.keys) == 0 {
		return "{}"
	}
	parts := make([]string, 0, len(es.keys))
	for _, k := range es.keys {
		parts = append(parts, fmt.Sprintf("%s=%s", k, es.values[k]))
	}
	return "{" + strings.Join(parts, ", ") + "}"
}
