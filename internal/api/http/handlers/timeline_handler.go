package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/kuiporro/pgf-fleet-workshop/internal/api/dto"
	"github.com/kuiporro/pgf-fleet-workshop/internal/workshop"
)

// TimelineHandler serves the merged event view of one work order.
type TimelineHandler struct {
	aggregator *workshop.TimelineAggregator
}

// NewTimelineHandler constructs the handler.
func NewTimelineHandler(aggregator *workshop.TimelineAggregator) *TimelineHandler {
	return &TimelineHandler{aggregator: aggregator}
}

// Get GET /work-orders/:id/timeline.
func (h *TimelineHandler) Get(c *fiber.Ctx) error {
	timeline, err := h.aggregator.Build(c.Context(), c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.TimelineResponse{
		WorkOrderID:    timeline.WorkOrderID,
		Events:         timeline.Entries,
		Actors:         timeline.Actors,
		Partial:        timeline.Partial,
		MissingSources: timeline.MissingSources,
	}})
}
