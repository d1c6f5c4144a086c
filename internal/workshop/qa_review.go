package workshop

import (
	"context"
	"strings"

	"github.com/kuiporro/pgf-fleet-workshop/internal/domain"
	"github.com/kuiporro/pgf-fleet-workshop/internal/events"
	"github.com/kuiporro/pgf-fleet-workshop/internal/repository"
	apperrors "github.com/kuiporro/pgf-fleet-workshop/pkg/util"
)

// QAVerdict is the review outcome.
type QAVerdict string

const (
	VerdictOK   QAVerdict = "OK"
	VerdictNoOK QAVerdict = "NO_OK"
)

// QAReviewCycle governs the EN_QA verdict branch. Approval with OK is the
// only code path that closes a work order.
type QAReviewCycle struct {
	machine *StateMachine
	orders  repository.WorkOrderRepository
}

// NewQAReviewCycle constructs the review cycle.
func NewQAReviewCycle(machine *StateMachine, orders repository.WorkOrderRepository) *QAReviewCycle {
	return &QAReviewCycle{machine: machine, orders: orders}
}

// Approve records the workshop lead's verdict on an order sitting in EN_QA.
//
// OK closes the order and stamps closedAt. NO_OK routes through RETRABAJO
// straight back into EN_EJECUCION: two status events, closedAt stays nil and
// the notes land in reworkReason.
func (q *QAReviewCycle) Approve(ctx context.Context, workOrderID string, verdict QAVerdict, notes string, actor domain.Actor) (*domain.WorkOrder, error) {
	if actor.Role != domain.RoleJefeTaller {
		return nil, apperrors.NewForbidden("qa verdicts require the workshop lead role")
	}
	order, err := q.machine.Get(ctx, workOrderID)
	if err != nil {
		return nil, err
	}
	if order.Status != domain.StatusEnQA {
		return nil, apperrors.NewInvalidState("work order is not in qa review",
			map[string]any{"work_order_id": workOrderID, "status": order.Status})
	}
	notes = strings.TrimSpace(notes)

	switch verdict {
	case VerdictOK:
		updated, err := q.machine.applyTransition(ctx, order, domain.StatusCerrada, actor, notes)
		if err != nil {
			return nil, err
		}
		if notes != "" {
			if err := q.orders.UpdateNotes(ctx, updated.ID, nil, nil, &notes); err != nil {
				return nil, apperrors.MapError(err)
			}
			updated.ClosingNotes = &notes
		}
		q.machine.publish(ctx, events.Event{
			Type:        events.EventWorkOrderQAReviewed,
			WorkOrderID: updated.ID,
			Actor:       actor,
			Payload:     events.QAReviewedPayload{Verdict: string(VerdictOK), Notes: notes},
		})
		return updated, nil

	case VerdictNoOK:
		rework, err := q.machine.applyTransition(ctx, order, domain.StatusRetrabajo, actor, notes)
		if err != nil {
			return nil, err
		}
		// The transient state routes back immediately; it never rests.
		updated, err := q.machine.applyTransition(ctx, rework, domain.StatusEnEjecucion, actor, "retrabajo")
		if err != nil {
			return nil, err
		}
		if notes != "" {
			if err := q.orders.UpdateNotes(ctx, updated.ID, nil, &notes, nil); err != nil {
				return nil, apperrors.MapError(err)
			}
			updated.ReworkReason = &notes
		}
		q.machine.publish(ctx, events.Event{
			Type:        events.EventWorkOrderQAReviewed,
			WorkOrderID: updated.ID,
			Actor:       actor,
			Payload:     events.QAReviewedPayload{Verdict: string(VerdictNoOK), Notes: notes},
		})
		return updated, nil

	default:
		return nil, apperrors.NewValidationError("verdict must be OK or NO_OK", nil)
	}
}
