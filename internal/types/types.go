// Package types defines the core data records shared across notetrack:
// time entries, work-item nodes, and field type tags.
package types

import "time"

// TimeEntry is a single logged span of work against a tracker issue.
// Entries live for one tracker round-trip plus an optional daily-note
// mirror block keyed by ID.
type TimeEntry struct {
	ID          string     `json:"id"`
	Start       time.Time  `json:"start"`
	End         *time.Time `json:"end,omitempty"`
	Description string     `json:"description,omitempty"`

	// Duration is the tracker-native duration string, e.g. "1h 30m".
	// JIRA consumes it verbatim; Lark converts it to decimal hours.
	Duration string `json:"duration,omitempty"`

	NodeID   string `json:"node_id,omitempty"`
	NodeName string `json:"node_name,omitempty"`

	Author    string `json:"author,omitempty"`
	AvatarURL string `json:"avatar_url,omitempty"`

	// Back-references to the owning work item, when known.
	ItemKey    string `json:"item_key,omitempty"`
	EntityID   string `json:"entity_id,omitempty"`
	EntityName string `json:"entity_name,omitempty"`
}

// Day returns the calendar date the entry belongs to.
func (e *TimeEntry) Day() time.Time {
	y, m, d := e.Start.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, e.Start.Location())
}

// WorkItemNode is a stage of a work item that a time entry can be
// attributed to. Read-only; refreshed per work item per day.
type WorkItemNode struct {
	ID      string `json:"id"`
	Name    string `json:"name"`
	HasNext bool   `json:"has_next"`
}

// Declared projection types for mapped fields.
const (
	FieldText   = "text"
	FieldDate   = "date"
	FieldSelect = "select"
	FieldURL    = "url"
)
