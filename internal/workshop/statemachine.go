package workshop

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"github.com/kuiporro/pgf-fleet-workshop/internal/domain"
	"github.com/kuiporro/pgf-fleet-workshop/internal/events"
	"github.com/kuiporro/pgf-fleet-workshop/internal/repository"
	apperrors "github.com/kuiporro/pgf-fleet-workshop/pkg/util"
)

// Clock supplies the current instant for every mutation.
type Clock func() time.Time

// StateMachine owns the canonical work order status and validates every
// transition against the declarative edge table.
type StateMachine struct {
	orders     repository.WorkOrderRepository
	tx         repository.TxRunner
	dispatcher events.Dispatcher
	logger     *zap.Logger
	now        Clock
}

// StateMachineDependencies bundles collaborators.
type StateMachineDependencies struct {
	WorkOrderRepo   repository.WorkOrderRepository
	StatusEventRepo repository.StatusEventRepository
	PauseRepo       repository.PauseRepository
	Tx              repository.TxRunner
	Dispatcher      events.Dispatcher
	Logger          *zap.Logger
	Clock           Clock
}

// NewStateMachine constructs the service.
func NewStateMachine(deps StateMachineDependencies) *StateMachine {
	now := deps.Clock
	if now == nil {
		now = time.Now
	}
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	tx := deps.Tx
	if tx == nil {
		tx = directTxRunner{repos: repository.TxRepos{
			Orders:    deps.WorkOrderRepo,
			StatusLog: deps.StatusEventRepo,
			Pauses:    deps.PauseRepo,
		}}
	}
	return &StateMachine{
		orders:     deps.WorkOrderRepo,
		tx:         tx,
		dispatcher: deps.Dispatcher,
		logger:     logger,
		now:        now,
	}
}

// directTxRunner runs the unit of work against the plain repositories, with
// per-statement semantics only. Callers that need the transition to be
// all-or-nothing must supply a real repository.TxRunner.
type directTxRunner struct {
	repos repository.TxRepos
}

func (d directTxRunner) InTx(ctx context.Context, fn func(ctx context.Context, repos repository.TxRepos) error) error {
	return fn(ctx, d.repos)
}

// CreateInput describes work order creation.
type CreateInput struct {
	VehicleRef          string
	Priority            domain.WorkOrderPriority
	DiagnosisNotes      *string
	AssignedMechanicRef *string
	SupervisorRef       *string
	WorkshopLeadRef     *string
}

// Create opens a new work order in ABIERTA.
func (sm *StateMachine) Create(ctx context.Context, actor domain.Actor, input CreateInput) (*domain.WorkOrder, error) {
	if input.VehicleRef == "" {
		return nil, apperrors.NewValidationError("vehicle_ref required", nil)
	}
	order := &domain.WorkOrder{
		ID:                  uuid.NewString(),
		VehicleRef:          input.VehicleRef,
		OpenedBy:            actor.IdentityID,
		AssignedMechanicRef: input.AssignedMechanicRef,
		SupervisorRef:       input.SupervisorRef,
		WorkshopLeadRef:     input.WorkshopLeadRef,
		Status:              domain.StatusAbierta,
		Priority:            input.Priority,
		DiagnosisNotes:      input.DiagnosisNotes,
	}
	if order.Priority == "" {
		order.Priority = domain.PriorityMedia
	}
	if err := sm.orders.Create(ctx, order); err != nil {
		return nil, apperrors.MapError(err)
	}
	sm.publish(ctx, events.Event{
		Type:        events.EventWorkOrderCreated,
		WorkOrderID: order.ID,
		Actor:       actor,
		Payload: events.WorkOrderCreatedPayload{
			VehicleRef: order.VehicleRef,
			Priority:   order.Priority,
		},
	})
	return order, nil
}

// Get returns the current projection.
func (sm *StateMachine) Get(ctx context.Context, workOrderID string) (*domain.WorkOrder, error) {
	order, err := sm.orders.GetByID(ctx, workOrderID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NewNotFound("work order", map[string]any{"work_order_id": workOrderID})
		}
		return nil, apperrors.MapError(err)
	}
	return order, nil
}

// List returns filtered work orders.
func (sm *StateMachine) List(ctx context.Context, filter repository.WorkOrderFilter) ([]domain.WorkOrder, error) {
	orders, err := sm.orders.ListWithFilter(ctx, filter)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	return orders, nil
}

// Transition moves the work order along a declared edge.
//
// On success exactly one StatusChangeEvent is appended and, when the edge
// enters or leaves a paused state, the pause ledger side effect is applied.
// A concurrent transition against the same pre-transition status surfaces
// as CONFLICT; nothing is silently merged.
func (sm *StateMachine) Transition(ctx context.Context, workOrderID string, target domain.WorkOrderStatus, actor domain.Actor, reason string) (*domain.WorkOrder, error) {
	order, err := sm.Get(ctx, workOrderID)
	if err != nil {
		return nil, err
	}
	return sm.applyTransition(ctx, order, target, actor, reason)
}

// applyTransition validates the edge, then applies the status CAS, the
// event append and the pause side effect inside one transaction: either
// all three land or none does. Events publish only after commit.
func (sm *StateMachine) applyTransition(ctx context.Context, order *domain.WorkOrder, target domain.WorkOrderStatus, actor domain.Actor, reason string) (*domain.WorkOrder, error) {
	if order.Status.IsTerminal() {
		return nil, apperrors.NewAlreadyTerminal(order.ID)
	}
	edge, declared := findEdge(order.Status, target)
	if !declared {
		return nil, apperrors.NewInvalidTransition(string(order.Status), string(target))
	}
	if !edge.roleAllowed(actor.Role) {
		return nil, apperrors.NewForbidden("role not authorized for this transition")
	}

	from := order.Status
	var closedAt *time.Time
	if target == domain.StatusCerrada {
		at := sm.now()
		closedAt = &at
	}

	event := &domain.StatusChangeEvent{
		ID:           uuid.NewString(),
		WorkOrderRef: order.ID,
		FromStatus:   from,
		ToStatus:     target,
		Actor:        actor,
		Reason:       reason,
		OccurredAt:   sm.now(),
	}

	var openedPause, resolvedPause *domain.PauseRecord
	err := sm.tx.InTx(ctx, func(ctx context.Context, repos repository.TxRepos) error {
		result, err := repos.Orders.UpdateStatusCAS(ctx, order.ID, from, target, closedAt)
		if err != nil {
			return apperrors.MapError(err)
		}
		switch result {
		case repository.CASApplied:
		case repository.CASNotFound:
			return apperrors.NewNotFound("work order", map[string]any{"work_order_id": order.ID})
		default:
			return apperrors.NewConflict("work order status changed concurrently",
				map[string]any{"work_order_id": order.ID, "expected_status": from})
		}

		if err := repos.StatusLog.Append(ctx, event); err != nil {
			return apperrors.MapError(err)
		}

		if target.IsPaused() {
			openedPause, err = sm.openPauseRecord(ctx, repos.Pauses, order.ID, target, reason, actor)
			if err != nil {
				return err
			}
		}
		if from.IsPaused() && !target.IsPaused() {
			resolvedPause, err = sm.resolvePauseRecord(ctx, repos.Pauses, order.ID, actor)
			if err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	order.Status = target
	order.ClosedAt = closedAt

	if openedPause != nil {
		sm.publish(ctx, events.Event{
			Type:        events.EventWorkOrderPaused,
			WorkOrderID: order.ID,
			Actor:       actor,
			Payload: events.PausedPayload{
				PauseID:      openedPause.ID,
				PausedStatus: openedPause.PausedStatus,
				Reason:       openedPause.Reason,
			},
		})
	}
	if resolvedPause != nil {
		sm.publish(ctx, events.Event{
			Type:        events.EventWorkOrderResumed,
			WorkOrderID: order.ID,
			Actor:       actor,
			Payload: events.ResumedPayload{
				PauseID:         resolvedPause.ID,
				DurationMinutes: resolvedPause.DurationMinutes(),
			},
		})
	}
	sm.publish(ctx, events.Event{
		Type:        events.EventWorkOrderStatusChanged,
		WorkOrderID: order.ID,
		Actor:       actor,
		Payload: events.StatusChangedPayload{
			FromStatus: from,
			ToStatus:   target,
			Reason:     reason,
		},
	})
	sm.logger.Info("work order transition",
		zap.String("work_order_id", order.ID),
		zap.String("from", string(from)),
		zap.String("to", string(target)),
		zap.String("actor", actor.IdentityID),
	)
	return order, nil
}

// UpdatePriority changes the urgency of a non-terminal work order.
func (sm *StateMachine) UpdatePriority(ctx context.Context, workOrderID string, priority domain.WorkOrderPriority, actor domain.Actor) (*domain.WorkOrder, error) {
	switch actor.Role {
	case domain.RoleSupervisor, domain.RoleAdministrador, domain.RoleJefeTaller:
	default:
		return nil, apperrors.NewForbidden("role not authorized to change priority")
	}
	order, err := sm.Get(ctx, workOrderID)
	if err != nil {
		return nil, err
	}
	if order.Status.IsTerminal() {
		return nil, apperrors.NewAlreadyTerminal(order.ID)
	}
	old := order.Priority
	if err := sm.orders.UpdatePriority(ctx, order.ID, priority); err != nil {
		return nil, apperrors.MapError(err)
	}
	order.Priority = priority
	sm.publish(ctx, events.Event{
		Type:        events.EventWorkOrderPriorityChanged,
		WorkOrderID: order.ID,
		Actor:       actor,
		Payload: events.PriorityChangedPayload{
			OldPriority: old,
			NewPriority: priority,
		},
	})
	return order, nil
}

func (sm *StateMachine) openPauseRecord(ctx context.Context, pauses repository.PauseRepository, workOrderID string, pausedStatus domain.WorkOrderStatus, reason string, actor domain.Actor) (*domain.PauseRecord, error) {
	pause := &domain.PauseRecord{
		ID:           uuid.NewString(),
		WorkOrderRef: workOrderID,
		PausedStatus: pausedStatus,
		Reason:       reason,
		StartedAt:    sm.now(),
		StartedBy:    actor,
	}
	if err := pauses.Create(ctx, pause); err != nil {
		if errors.Is(err, repository.ErrActivePauseExists) {
			return nil, apperrors.NewPauseAlreadyActive(workOrderID)
		}
		return nil, apperrors.MapError(err)
	}
	return pause, nil
}

func (sm *StateMachine) resolvePauseRecord(ctx context.Context, pauses repository.PauseRepository, workOrderID string, actor domain.Actor) (*domain.PauseRecord, error) {
	active, err := pauses.GetActive(ctx, workOrderID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			// Pause was never formally opened, or a concurrent resume
			// already resolved it. Nothing left to do.
			return nil, nil
		}
		return nil, apperrors.MapError(err)
	}
	endedAt := sm.now()
	resolved, err := pauses.Resolve(ctx, active.ID, endedAt, actor)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	if !resolved {
		return nil, nil
	}
	active.EndedAt = &endedAt
	return active, nil
}

func (sm *StateMachine) publish(ctx context.Context, event events.Event) {
	if sm.dispatcher == nil {
		return
	}
	if event.ID == "" {
		event.ID = uuid.NewString()
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = sm.now()
	}
	_ = sm.dispatcher.Publish(ctx, event)
}
