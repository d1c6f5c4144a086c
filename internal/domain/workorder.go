package domain

import "time"

// WorkOrderStatus enumerates lifecycle states for work orders.
type WorkOrderStatus string

const (
	StatusAbierta            WorkOrderStatus = "ABIERTA"
	StatusEnDiagnostico      WorkOrderStatus = "EN_DIAGNOSTICO"
	StatusEnEjecucion        WorkOrderStatus = "EN_EJECUCION"
	StatusEnPausa            WorkOrderStatus = "EN_PAUSA"
	StatusEsperandoRepuestos WorkOrderStatus = "ESPERANDO_REPUESTOS"
	StatusEnQA               WorkOrderStatus = "EN_QA"
	StatusRetrabajo          WorkOrderStatus = "RETRABAJO"
	StatusCerrada            WorkOrderStatus = "CERRADA"
)

// IsTerminal reports whether no further transitions are accepted.
func (s WorkOrderStatus) IsTerminal() bool {
	return s == StatusCerrada
}

// IsPaused reports whether the status carries an open pause record.
func (s WorkOrderStatus) IsPaused() bool {
	return s == StatusEnPausa || s == StatusEsperandoRepuestos
}

// WorkOrderPriority enumerates urgency levels.
type WorkOrderPriority string

const (
	PriorityAlta  WorkOrderPriority = "ALTA"
	PriorityMedia WorkOrderPriority = "MEDIA"
	PriorityBaja  WorkOrderPriority = "BAJA"
)

// WorkOrder is the aggregate for repair and maintenance work (OT).
//
// Status transitions only through the edges declared by the state machine,
// and ClosedAt is non-nil exactly when Status is CERRADA.
type WorkOrder struct {
	ID                  string
	VehicleRef          string
	OpenedBy            string
	AssignedMechanicRef *string
	SupervisorRef       *string
	WorkshopLeadRef     *string
	Status              WorkOrderStatus
	Priority            WorkOrderPriority
	DiagnosisNotes      *string
	ReworkReason        *string
	ClosingNotes        *string
	OpenedAt            time.Time
	UpdatedAt           time.Time
	ClosedAt            *time.Time
}
