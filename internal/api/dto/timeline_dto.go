package dto

import "github.com/kuiporro/pgf-fleet-workshop/internal/domain"

// TimelineResponse wraps the aggregation so the caller can detect a
// degraded result.
type TimelineResponse struct {
	WorkOrderID    string                 `json:"work_order_id"`
	Events         []domain.TimelineEntry `json:"events"`
	Actors         []domain.Actor         `json:"actors"`
	Partial        bool                   `json:"partial"`
	MissingSources []string               `json:"missing_sources,omitempty"`
}
