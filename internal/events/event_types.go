package events

import (
	"time"

	"github.com/kuiporro/pgf-fleet-workshop/internal/domain"
)

// EventType enumerates supported event identifiers.
type EventType string

const (
	EventWorkOrderCreated         EventType = "work_order_created"
	EventWorkOrderStatusChanged   EventType = "work_order_status_changed"
	EventWorkOrderPaused          EventType = "work_order_paused"
	EventWorkOrderResumed         EventType = "work_order_resumed"
	EventWorkOrderQAReviewed      EventType = "work_order_qa_reviewed"
	EventWorkOrderPriorityChanged EventType = "work_order_priority_changed"
)

// Event represents a domain event emitted by the engine.
type Event struct {
	ID          string       `json:"id"`
	Type        EventType    `json:"type"`
	WorkOrderID string       `json:"work_order_id"`
	Actor       domain.Actor `json:"actor"`
	Timestamp   time.Time    `json:"timestamp"`
	Payload     interface{}  `json:"payload"`
}

// WorkOrderCreatedPayload payload.
type WorkOrderCreatedPayload struct {
	VehicleRef string                   `json:"vehicle_ref"`
	Priority   domain.WorkOrderPriority `json:"priority"`
}

// StatusChangedPayload payload.
type StatusChangedPayload struct {
	FromStatus domain.WorkOrderStatus `json:"from_status"`
	ToStatus   domain.WorkOrderStatus `json:"to_status"`
	Reason     string                 `json:"reason,omitempty"`
}

// PausedPayload payload.
type PausedPayload struct {
	PauseID      string                 `json:"pause_id"`
	PausedStatus domain.WorkOrderStatus `json:"paused_status"`
	Reason       string                 `json:"reason"`
}

// ResumedPayload payload.
type ResumedPayload struct {
	PauseID         string `json:"pause_id,omitempty"`
	DurationMinutes *int64 `json:"duration_minutes,omitempty"`
}

// QAReviewedPayload payload.
type QAReviewedPayload struct {
	Verdict string `json:"verdict"`
	Notes   string `json:"notes,omitempty"`
}

// PriorityChangedPayload payload.
type PriorityChangedPayload struct {
	OldPriority domain.WorkOrderPriority `json:"old_priority"`
	NewPriority domain.WorkOrderPriority `json:"new_priority"`
}
