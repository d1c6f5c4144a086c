package dto

import (
	"time"

	"github.com/kuiporro/pgf-fleet-workshop/internal/domain"
)

// CreateWorkOrderRequest payload.
type CreateWorkOrderRequest struct {
	VehicleRef          string                   `json:"vehicle_ref"`
	Priority            domain.WorkOrderPriority `json:"priority"`
	DiagnosisNotes      *string                  `json:"diagnosis_notes"`
	AssignedMechanicRef *string                  `json:"assigned_mechanic_ref"`
	SupervisorRef       *string                  `json:"supervisor_ref"`
	WorkshopLeadRef     *string                  `json:"workshop_lead_ref"`
}

// TransitionRequest payload.
type TransitionRequest struct {
	TargetStatus domain.WorkOrderStatus `json:"target_status"`
	Reason       string                 `json:"reason"`
}

// OpenPauseRequest payload.
type OpenPauseRequest struct {
	PausedStatus domain.WorkOrderStatus `json:"paused_status"`
	Reason       string                 `json:"reason"`
}

// QAApproveRequest payload.
type QAApproveRequest struct {
	Verdict string `json:"verdict"`
	Notes   string `json:"notes"`
}

// UpdatePriorityRequest payload.
type UpdatePriorityRequest struct {
	Priority domain.WorkOrderPriority `json:"priority"`
}

// WorkOrderResponse is the projection returned by every mutation.
type WorkOrderResponse struct {
	ID                  string                   `json:"id"`
	VehicleRef          string                   `json:"vehicle_ref"`
	OpenedBy            string                   `json:"opened_by"`
	AssignedMechanicRef *string                  `json:"assigned_mechanic_ref"`
	SupervisorRef       *string                  `json:"supervisor_ref"`
	WorkshopLeadRef     *string                  `json:"workshop_lead_ref"`
	Status              domain.WorkOrderStatus   `json:"status"`
	Priority            domain.WorkOrderPriority `json:"priority"`
	DiagnosisNotes      *string                  `json:"diagnosis_notes"`
	ReworkReason        *string                  `json:"rework_reason"`
	ClosingNotes        *string                  `json:"closing_notes"`
	PermittedTargets    []domain.WorkOrderStatus `json:"permitted_targets,omitempty"`
	OpenedAt            time.Time                `json:"opened_at"`
	UpdatedAt           time.Time                `json:"updated_at"`
	ClosedAt            *time.Time               `json:"closed_at"`
}

// ResumeResponse reports resume outcome alongside the projection.
type ResumeResponse struct {
	WorkOrder       WorkOrderResponse `json:"work_order"`
	AlreadyResumed  bool              `json:"already_resumed"`
	DurationMinutes *int64            `json:"duration_minutes,omitempty"`
}
