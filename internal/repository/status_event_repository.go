package repository

import (
	"context"

	"github.com/jackc/pgx/v5"

	"github.com/kuiporro/pgf-fleet-workshop/internal/domain"
)

// StatusEventRepository is the append-only transition log.
type StatusEventRepository interface {
	Append(ctx context.Context, event *domain.StatusChangeEvent) error
	ListByWorkOrder(ctx context.Context, workOrderID string) ([]domain.StatusChangeEvent, error)
}

type statusEventRepository struct {
	db Querier
}

// NewStatusEventRepository instantiates the repository. Pass a pool or a tx.
func NewStatusEventRepository(db Querier) StatusEventRepository {
	return &statusEventRepository{db: db}
}

func (r *statusEventRepository) Append(ctx context.Context, event *domain.StatusChangeEvent) error {
	const query = `
        INSERT INTO work_order_status_events (id, work_order_ref, from_status, to_status, actor_id, actor_name, actor_role, reason)
        VALUES ($1,$2,$3,$4,$5,$6,$7,$8)
        RETURNING occurred_at`
	return r.db.QueryRow(ctx, query,
		event.ID,
		event.WorkOrderRef,
		event.FromStatus,
		event.ToStatus,
		event.Actor.IdentityID,
		event.Actor.Name,
		event.Actor.Role,
		event.Reason,
	).Scan(&event.OccurredAt)
}

func (r *statusEventRepository) ListByWorkOrder(ctx context.Context, workOrderID string) ([]domain.StatusChangeEvent, error) {
	const query = `
        SELECT id, work_order_ref, from_status, to_status, actor_id, actor_name, actor_role, reason, occurred_at
        FROM work_order_status_events WHERE work_order_ref=$1 ORDER BY occurred_at ASC`
	rows, err := r.db.Query(ctx, query, workOrderID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanStatusEvents(rows)
}

func scanStatusEvents(rows pgx.Rows) ([]domain.StatusChangeEvent, error) {
	var result []domain.StatusChangeEvent
	for rows.Next() {
		var event domain.StatusChangeEvent
		if err := rows.Scan(
			&event.ID,
			&event.WorkOrderRef,
			&event.FromStatus,
			&event.ToStatus,
			&event.Actor.IdentityID,
			&event.Actor.Name,
			&event.Actor.Role,
			&event.Reason,
			&event.OccurredAt,
		); err != nil {
			return nil, err
		}
		result = append(result, event)
	}
	return result, rows.Err()
}
