package domain

import "time"

// CommentRecord is written by the collaboration subsystem and consumed
// read-only when building timelines.
type CommentRecord struct {
	ID           string
	WorkOrderRef string
	Actor        Actor
	Body         string
	OccurredAt   time.Time
}

// EvidenceRecord is written by the evidence-upload subsystem and consumed
// read-only when building timelines. The file itself lives in object
// storage; only metadata is carried here.
type EvidenceRecord struct {
	ID           string
	WorkOrderRef string
	Actor        Actor
	FileName     string
	MimeType     string
	StorageKey   string
	OccurredAt   time.Time
}
