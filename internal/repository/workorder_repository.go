package repository

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/kuiporro/pgf-fleet-workshop/internal/domain"
)

// CASResult reports the outcome of a compare-and-set status update.
type CASResult int

const (
	// CASApplied means the status moved from the expected value.
	CASApplied CASResult = iota
	// CASConflict means another writer moved the status first.
	CASConflict
	// CASNotFound means no row exists for the id.
	CASNotFound
)

// WorkOrderFilter captures listing parameters.
type WorkOrderFilter struct {
	VehicleRef  *string
	MechanicRef *string
	Statuses    []domain.WorkOrderStatus
	Priorities  []domain.WorkOrderPriority
	OpenedFrom  *time.Time
	OpenedTo    *time.Time
	Limit       int
	Offset      int
}

// WorkOrderRepository encapsulates work order persistence.
type WorkOrderRepository interface {
	Create(ctx context.Context, order *domain.WorkOrder) error
	GetByID(ctx context.Context, id string) (*domain.WorkOrder, error)
	ListWithFilter(ctx context.Context, filter WorkOrderFilter) ([]domain.WorkOrder, error)
	// UpdateStatusCAS applies the status change only when the stored status
	// still equals expected. Two concurrent transitions against the same
	// pre-transition status therefore cannot both succeed.
	UpdateStatusCAS(ctx context.Context, id string, expected, next domain.WorkOrderStatus, closedAt *time.Time) (CASResult, error)
	UpdateNotes(ctx context.Context, id string, diagnosisNotes, reworkReason, closingNotes *string) error
	UpdatePriority(ctx context.Context, id string, priority domain.WorkOrderPriority) error
}

type workOrderRepository struct {
	db Querier
}

// NewWorkOrderRepository instantiates the repository. Pass a pool or a tx.
func NewWorkOrderRepository(db Querier) WorkOrderRepository {
	return &workOrderRepository{db: db}
}

func (r *workOrderRepository) Create(ctx context.Context, order *domain.WorkOrder) error {
	const query = `
        INSERT INTO work_orders (id, vehicle_ref, opened_by, assigned_mechanic_ref, supervisor_ref, workshop_lead_ref, status, priority, diagnosis_notes)
        VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)
        RETURNING opened_at, updated_at`
	return r.db.QueryRow(ctx, query,
		order.ID,
		order.VehicleRef,
		order.OpenedBy,
		order.AssignedMechanicRef,
		order.SupervisorRef,
		order.WorkshopLeadRef,
		order.Status,
		order.Priority,
		order.DiagnosisNotes,
	).Scan(&order.OpenedAt, &order.UpdatedAt)
}

func (r *workOrderRepository) GetByID(ctx context.Context, id string) (*domain.WorkOrder, error) {
	const query = `
        SELECT id, vehicle_ref, opened_by, assigned_mechanic_ref, supervisor_ref, workshop_lead_ref,
               status, priority, diagnosis_notes, rework_reason, closing_notes, opened_at, updated_at, closed_at
        FROM work_orders WHERE id=$1`
	var order domain.WorkOrder
	if err := r.db.QueryRow(ctx, query, id).Scan(
		&order.ID,
		&order.VehicleRef,
		&order.OpenedBy,
		&order.AssignedMechanicRef,
		&order.SupervisorRef,
		&order.WorkshopLeadRef,
		&order.Status,
		&order.Priority,
		&order.DiagnosisNotes,
		&order.ReworkReason,
		&order.ClosingNotes,
		&order.OpenedAt,
		&order.UpdatedAt,
		&order.ClosedAt,
	); err != nil {
		return nil, err
	}
	return &order, nil
}

func (r *workOrderRepository) ListWithFilter(ctx context.Context, filter WorkOrderFilter) ([]domain.WorkOrder, error) {
	base := `SELECT id, vehicle_ref, opened_by, assigned_mechanic_ref, supervisor_ref, workshop_lead_ref,
                    status, priority, diagnosis_notes, rework_reason, closing_notes, opened_at, updated_at, closed_at
             FROM work_orders`
	clauses := []string{"1=1"}
	args := []any{}

	if filter.VehicleRef != nil {
		args = append(args, *filter.VehicleRef)
		clauses = append(clauses, fmt.Sprintf("vehicle_ref=$%d", len(args)))
	}
	if filter.MechanicRef != nil {
		args = append(args, *filter.MechanicRef)
		clauses = append(clauses, fmt.Sprintf("assigned_mechanic_ref=$%d", len(args)))
	}
	if len(filter.Statuses) > 0 {
		placeholders := make([]string, len(filter.Statuses))
		for i, status := range filter.Statuses {
			args = append(args, status)
			placeholders[i] = fmt.Sprintf("$%d", len(args))
		}
		clauses = append(clauses, fmt.Sprintf("status IN (%s)", strings.Join(placeholders, ",")))
	}
	if len(filter.Priorities) > 0 {
		placeholders := make([]string, len(filter.Priorities))
		for i, pr := range filter.Priorities {
			args = append(args, pr)
			placeholders[i] = fmt.Sprintf("$%d", len(args))
		}
		clauses = append(clauses, fmt.Sprintf("priority IN (%s)", strings.Join(placeholders, ",")))
	}
	if filter.OpenedFrom != nil {
		args = append(args, *filter.OpenedFrom)
		clauses = append(clauses, fmt.Sprintf("opened_at >= $%d", len(args)))
	}
	if filter.OpenedTo != nil {
		args = append(args, *filter.OpenedTo)
		clauses = append(clauses, fmt.Sprintf("opened_at <= $%d", len(args)))
	}

	limit := filter.Limit
	if limit <= 0 {
		limit = 20
	}
	offset := filter.Offset
	if offset < 0 {
		offset = 0
	}

	query := fmt.Sprintf(`%s WHERE %s ORDER BY updated_at DESC LIMIT %d OFFSET %d`,
		base, strings.Join(clauses, " AND "), limit, offset)

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanWorkOrders(rows)
}

func (r *workOrderRepository) UpdateStatusCAS(ctx context.Context, id string, expected, next domain.WorkOrderStatus, closedAt *time.Time) (CASResult, error) {
	const query = `
        UPDATE work_orders SET status=$1, closed_at=$2, updated_at=NOW()
        WHERE id=$3 AND status=$4`
	cmd, err := r.db.Exec(ctx, query, next, closedAt, id, expected)
	if err != nil {
		return CASConflict, err
	}
	if cmd.RowsAffected() > 0 {
		return CASApplied, nil
	}

	// Distinguish a lost race from a missing row.
	var exists bool
	if err := r.db.QueryRow(ctx, `SELECT EXISTS(SELECT 1 FROM work_orders WHERE id=$1)`, id).Scan(&exists); err != nil {
		return CASConflict, err
	}
	if !exists {
		return CASNotFound, nil
	}
	return CASConflict, nil
}

func (r *workOrderRepository) UpdateNotes(ctx context.Context, id string, diagnosisNotes, reworkReason, closingNotes *string) error {
	const query = `
        UPDATE work_orders SET
            diagnosis_notes=COALESCE($1, diagnosis_notes),
            rework_reason=COALESCE($2, rework_reason),
            closing_notes=COALESCE($3, closing_notes),
            updated_at=NOW()
        WHERE id=$4`
	cmd, err := r.db.Exec(ctx, query, diagnosisNotes, reworkReason, closingNotes, id)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func (r *workOrderRepository) UpdatePriority(ctx context.Context, id string, priority domain.WorkOrderPriority) error {
	cmd, err := r.db.Exec(ctx, `UPDATE work_orders SET priority=$1, updated_at=NOW() WHERE id=$2`, priority, id)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func scanWorkOrders(rows pgx.Rows) ([]domain.WorkOrder, error) {
	var result []domain.WorkOrder
	for rows.Next() {
		var order domain.WorkOrder
		if err := rows.Scan(
			&order.ID,
			&order.VehicleRef,
			&order.OpenedBy,
			&order.AssignedMechanicRef,
			&order.SupervisorRef,
			&order.WorkshopLeadRef,
			&order.Status,
			&order.Priority,
			&order.DiagnosisNotes,
			&order.ReworkReason,
			&order.ClosingNotes,
			&order.OpenedAt,
			&order.UpdatedAt,
			&order.ClosedAt,
		); err != nil {
			return nil, err
		}
		result = append(result, order)
	}
	return result, rows.Err()
}
