package domain

import "time"

// StatusChangeEvent is an append-only record of one accepted transition.
// Exactly one event is written per transition; events are never mutated or
// deleted, and FromStatus never equals ToStatus.
type StatusChangeEvent struct {
	ID           string
	WorkOrderRef string
	FromStatus   WorkOrderStatus
	ToStatus     WorkOrderStatus
	Actor        Actor
	Reason       string
	OccurredAt   time.Time
}
