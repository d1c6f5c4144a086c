package workshop

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"

	"github.com/kuiporro/pgf-fleet-workshop/internal/domain"
	"github.com/kuiporro/pgf-fleet-workshop/internal/repository"
	apperrors "github.com/kuiporro/pgf-fleet-workshop/pkg/util"
)

// PauseLedger owns creation, resumption and duration accounting of pause
// records. Status movement itself stays with the state machine; the ledger
// drives it through the declared pause edges.
type PauseLedger struct {
	machine *StateMachine
	pauses  repository.PauseRepository
}

// NewPauseLedger constructs the ledger.
func NewPauseLedger(machine *StateMachine, pauses repository.PauseRepository) *PauseLedger {
	return &PauseLedger{machine: machine, pauses: pauses}
}

// ResumeResult reports what a resume call actually did.
type ResumeResult struct {
	WorkOrder       *domain.WorkOrder
	AlreadyResumed  bool
	DurationMinutes *int64
}

// Open suspends active work on the order. The pausedStatus picks between a
// generic pause and a parts wait; both share the same record mechanism.
// Rejected with PAUSE_ALREADY_ACTIVE when an unresolved record exists.
func (l *PauseLedger) Open(ctx context.Context, workOrderID string, pausedStatus domain.WorkOrderStatus, reason string, actor domain.Actor) (*domain.WorkOrder, error) {
	if !pausedStatus.IsPaused() {
		return nil, apperrors.NewValidationError("paused status must be EN_PAUSA or ESPERANDO_REPUESTOS", nil)
	}
	if _, err := l.pauses.GetActive(ctx, workOrderID); err == nil {
		return nil, apperrors.NewPauseAlreadyActive(workOrderID)
	} else if !errors.Is(err, pgx.ErrNoRows) {
		return nil, apperrors.MapError(err)
	}
	// The transition opens the pause record as its side effect.
	return l.machine.Transition(ctx, workOrderID, pausedStatus, actor, reason)
}

// Resume resolves the active pause and moves the order back to EN_EJECUCION.
//
// When no pause record was ever opened the call degrades to a plain status
// transition, and when the order is already executing the call is an
// idempotent no-op flagged AlreadyResumed — a racing second resume never
// produces a second resumption event.
func (l *PauseLedger) Resume(ctx context.Context, workOrderID string, actor domain.Actor) (*ResumeResult, error) {
	order, err := l.machine.Get(ctx, workOrderID)
	if err != nil {
		return nil, err
	}

	if !order.Status.IsPaused() {
		if order.Status == domain.StatusEnEjecucion {
			return &ResumeResult{WorkOrder: order, AlreadyResumed: true}, nil
		}
		return nil, apperrors.NewInvalidState("work order is not paused",
			map[string]any{"work_order_id": workOrderID, "status": order.Status})
	}

	updated, err := l.machine.applyTransition(ctx, order, domain.StatusEnEjecucion, actor, "reanudacion")
	if err != nil {
		var domainErr *apperrors.DomainError
		if errors.As(err, &domainErr) && domainErr.Code == "CONFLICT" {
			// Lost the race. If the winner was another resume the caller's
			// intent is already satisfied.
			fresh, getErr := l.machine.Get(ctx, workOrderID)
			if getErr == nil && fresh.Status == domain.StatusEnEjecucion {
				return &ResumeResult{WorkOrder: fresh, AlreadyResumed: true}, nil
			}
		}
		return nil, err
	}

	result := &ResumeResult{WorkOrder: updated}
	if last, err := l.lastResolvedPause(ctx, workOrderID); err == nil && last != nil {
		result.DurationMinutes = last.DurationMinutes()
	}
	return result, nil
}

// DurationMinutes exposes pause duration arithmetic for reporting.
func (l *PauseLedger) DurationMinutes(pause domain.PauseRecord) *int64 {
	return pause.DurationMinutes()
}

// History lists all pause records for the work order, oldest first.
func (l *PauseLedger) History(ctx context.Context, workOrderID string) ([]domain.PauseRecord, error) {
	records, err := l.pauses.ListByWorkOrder(ctx, workOrderID)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	return records, nil
}

func (l *PauseLedger) lastResolvedPause(ctx context.Context, workOrderID string) (*domain.PauseRecord, error) {
	records, err := l.pauses.ListByWorkOrder(ctx, workOrderID)
	if err != nil {
		return nil, err
	}
	for i := len(records) - 1; i >= 0; i-- {
		if !records[i].Active() {
			return &records[i], nil
		}
	}
	return nil, nil
}
