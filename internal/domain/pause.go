package domain

import "time"

// PauseRecord tracks one suspension of active work on a work order.
// EndedAt nil means the pause is still active; at most one record per work
// order may be active at any time. A record is immutable once resolved.
type PauseRecord struct {
	ID           string
	WorkOrderRef string
	// PausedStatus is the paused state the work order entered, either
	// EN_PAUSA or ESPERANDO_REPUESTOS. Both share this single mechanism.
	PausedStatus WorkOrderStatus
	Reason       string
	StartedAt    time.Time
	EndedAt      *time.Time
	StartedBy    Actor
	EndedBy      *Actor
}

// Active reports whether the pause is unresolved.
func (p PauseRecord) Active() bool {
	return p.EndedAt == nil
}

// DurationMinutes returns the resolved duration in whole minutes,
// floor-rounded, or nil while the pause is active.
func (p PauseRecord) DurationMinutes() *int64 {
	if p.EndedAt == nil {
		return nil
	}
	minutes := int64(p.EndedAt.Sub(p.StartedAt).Minutes())
	return &minutes
}
