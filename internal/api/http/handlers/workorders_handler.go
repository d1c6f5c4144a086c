package handlers

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/kuiporro/pgf-fleet-workshop/internal/api/dto"
	"github.com/kuiporro/pgf-fleet-workshop/internal/auth"
	"github.com/kuiporro/pgf-fleet-workshop/internal/domain"
	"github.com/kuiporro/pgf-fleet-workshop/internal/repository"
	"github.com/kuiporro/pgf-fleet-workshop/internal/workshop"
	apperrors "github.com/kuiporro/pgf-fleet-workshop/pkg/util"
)

// WorkOrdersHandler manages work order lifecycle endpoints.
type WorkOrdersHandler struct {
	machine *workshop.StateMachine
	pauses  *workshop.PauseLedger
	qa      *workshop.QAReviewCycle
}

// NewWorkOrdersHandler constructs the handler.
func NewWorkOrdersHandler(machine *workshop.StateMachine, pauses *workshop.PauseLedger, qa *workshop.QAReviewCycle) *WorkOrdersHandler {
	return &WorkOrdersHandler{machine: machine, pauses: pauses, qa: qa}
}

// Create POST /work-orders.
func (h *WorkOrdersHandler) Create(c *fiber.Ctx) error {
	actor, ok := auth.ActorFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("authentication required")
	}
	var req dto.CreateWorkOrderRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	if strings.TrimSpace(req.VehicleRef) == "" {
		return apperrors.NewValidationError("vehicle_ref required", nil)
	}

	order, err := h.machine.Create(c.Context(), actor, workshop.CreateInput{
		VehicleRef:          strings.TrimSpace(req.VehicleRef),
		Priority:            req.Priority,
		DiagnosisNotes:      req.DiagnosisNotes,
		AssignedMechanicRef: req.AssignedMechanicRef,
		SupervisorRef:       req.SupervisorRef,
		WorkshopLeadRef:     req.WorkshopLeadRef,
	})
	if err != nil {
		return err
	}
	return c.Status(http.StatusCreated).JSON(fiber.Map{"data": workOrderResponse(order, actor.Role)})
}

// List GET /work-orders.
func (h *WorkOrdersHandler) List(c *fiber.Ctx) error {
	actor, ok := auth.ActorFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("authentication required")
	}
	filter := parseWorkOrderQuery(c)
	orders, err := h.machine.List(c.Context(), filter)
	if err != nil {
		return err
	}
	items := make([]dto.WorkOrderResponse, 0, len(orders))
	for i := range orders {
		items = append(items, workOrderResponse(&orders[i], actor.Role))
	}
	return c.JSON(fiber.Map{"data": items})
}

// Get GET /work-orders/:id.
func (h *WorkOrdersHandler) Get(c *fiber.Ctx) error {
	actor, ok := auth.ActorFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("authentication required")
	}
	order, err := h.machine.Get(c.Context(), c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": workOrderResponse(order, actor.Role)})
}

// Transition POST /work-orders/:id/status.
func (h *WorkOrdersHandler) Transition(c *fiber.Ctx) error {
	actor, ok := auth.ActorFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("authentication required")
	}
	var req dto.TransitionRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	if req.TargetStatus == "" {
		return apperrors.NewValidationError("target_status required", nil)
	}
	order, err := h.machine.Transition(c.Context(), c.Params("id"), req.TargetStatus, actor, req.Reason)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": workOrderResponse(order, actor.Role)})
}

// OpenPause POST /work-orders/:id/pause.
func (h *WorkOrdersHandler) OpenPause(c *fiber.Ctx) error {
	actor, ok := auth.ActorFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("authentication required")
	}
	var req dto.OpenPauseRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	if strings.TrimSpace(req.Reason) == "" {
		return apperrors.NewValidationError("reason required", nil)
	}
	pausedStatus := req.PausedStatus
	if pausedStatus == "" {
		pausedStatus = domain.StatusEnPausa
	}
	order, err := h.pauses.Open(c.Context(), c.Params("id"), pausedStatus, strings.TrimSpace(req.Reason), actor)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": workOrderResponse(order, actor.Role)})
}

// ResumePause POST /work-orders/:id/resume.
func (h *WorkOrdersHandler) ResumePause(c *fiber.Ctx) error {
	actor, ok := auth.ActorFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("authentication required")
	}
	result, err := h.pauses.Resume(c.Context(), c.Params("id"), actor)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.ResumeResponse{
		WorkOrder:       workOrderResponse(result.WorkOrder, actor.Role),
		AlreadyResumed:  result.AlreadyResumed,
		DurationMinutes: result.DurationMinutes,
	}})
}

// QAApprove POST /work-orders/:id/qa.
func (h *WorkOrdersHandler) QAApprove(c *fiber.Ctx) error {
	actor, ok := auth.ActorFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("authentication required")
	}
	var req dto.QAApproveRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	verdict := workshop.QAVerdict(strings.ToUpper(strings.TrimSpace(req.Verdict)))
	order, err := h.qa.Approve(c.Context(), c.Params("id"), verdict, req.Notes, actor)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": workOrderResponse(order, actor.Role)})
}

// UpdatePriority POST /work-orders/:id/priority.
func (h *WorkOrdersHandler) UpdatePriority(c *fiber.Ctx) error {
	actor, ok := auth.ActorFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("authentication required")
	}
	var req dto.UpdatePriorityRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	switch req.Priority {
	case domain.PriorityAlta, domain.PriorityMedia, domain.PriorityBaja:
	default:
		return apperrors.NewValidationError("priority must be ALTA, MEDIA or BAJA", nil)
	}
	order, err := h.machine.UpdatePriority(c.Context(), c.Params("id"), req.Priority, actor)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": workOrderResponse(order, actor.Role)})
}

func parseWorkOrderQuery(c *fiber.Ctx) repository.WorkOrderFilter {
	filter := repository.WorkOrderFilter{}
	if vehicle := c.Query("vehicle_ref"); vehicle != "" {
		filter.VehicleRef = &vehicle
	}
	if mechanic := c.Query("mechanic_ref"); mechanic != "" {
		filter.MechanicRef = &mechanic
	}
	if statusStr := c.Query("status"); statusStr != "" {
		for _, part := range strings.Split(statusStr, ",") {
			filter.Statuses = append(filter.Statuses, domain.WorkOrderStatus(strings.TrimSpace(part)))
		}
	}
	if priorityStr := c.Query("priority"); priorityStr != "" {
		for _, part := range strings.Split(priorityStr, ",") {
			filter.Priorities = append(filter.Priorities, domain.WorkOrderPriority(strings.TrimSpace(part)))
		}
	}
	if from := parseTime(c.Query("opened_from")); from != nil {
		filter.OpenedFrom = from
	}
	if to := parseTime(c.Query("opened_to")); to != nil {
		filter.OpenedTo = to
	}
	page := parseInt(c.Query("page"), 1)
	pageSize := parseInt(c.Query("page_size"), 20)
	filter.Offset = (page - 1) * pageSize
	filter.Limit = pageSize
	return filter
}

func parseTime(val string) *time.Time {
	if val == "" {
		return nil
	}
	t, err := time.Parse(time.RFC3339, val)
	if err != nil {
		return nil
	}
	return &t
}

func parseInt(val string, def int) int {
	if val == "" {
		return def
	}
	parsed, err := strconv.Atoi(val)
	if err != nil || parsed <= 0 {
		return def
	}
	return parsed
}

func workOrderResponse(order *domain.WorkOrder, role domain.Role) dto.WorkOrderResponse {
	return dto.WorkOrderResponse{
		ID:                  order.ID,
		VehicleRef:          order.VehicleRef,
		OpenedBy:            order.OpenedBy,
		AssignedMechanicRef: order.AssignedMechanicRef,
		SupervisorRef:       order.SupervisorRef,
		WorkshopLeadRef:     order.WorkshopLeadRef,
		Status:              order.Status,
		Priority:            order.Priority,
		DiagnosisNotes:      order.DiagnosisNotes,
		ReworkReason:        order.ReworkReason,
		ClosingNotes:        order.ClosingNotes,
		PermittedTargets:    workshop.PermittedTargets(order.Status, role),
		OpenedAt:            order.OpenedAt,
		UpdatedAt:           order.UpdatedAt,
		ClosedAt:            order.ClosedAt,
	}
}
