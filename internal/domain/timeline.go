package domain

import "time"

// TimelineKind tags the origin of a timeline entry.
type TimelineKind string

const (
	TimelineKindCreation     TimelineKind = "creation"
	TimelineKindStatusChange TimelineKind = "status_change"
	TimelineKindPause        TimelineKind = "pause"
	TimelineKindResume       TimelineKind = "resume"
	TimelineKindEvidence     TimelineKind = "evidence"
	TimelineKindComment      TimelineKind = "comment"
	TimelineKindChecklist    TimelineKind = "checklist"
)

// TimelineEntry is the normalized shape every source event is reduced to.
type TimelineEntry struct {
	Kind       TimelineKind   `json:"kind"`
	OccurredAt time.Time      `json:"occurred_at"`
	Actor      Actor          `json:"actor"`
	Detail     map[string]any `json:"detail,omitempty"`
}

// Timeline is the merged, time-ordered view of all events concerning one
// work order, plus the distinct humans involved. Partial marks a degraded
// aggregation; MissingSources names the sources that could not be read.
type Timeline struct {
	WorkOrderID    string          `json:"work_order_id"`
	Entries        []TimelineEntry `json:"entries"`
	Actors         []Actor         `json:"actors"`
	Partial        bool            `json:"partial"`
	MissingSources []string        `json:"missing_sources,omitempty"`
}
