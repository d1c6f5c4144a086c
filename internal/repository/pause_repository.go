package repository

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/kuiporro/pgf-fleet-workshop/internal/domain"
)

// ErrActivePauseExists is returned when the partial unique index rejects a
// second unresolved pause for the same work order.
var ErrActivePauseExists = errors.New("active pause already exists")

// PauseRepository owns pause record persistence.
type PauseRepository interface {
	Create(ctx context.Context, pause *domain.PauseRecord) error
	GetActive(ctx context.Context, workOrderID string) (*domain.PauseRecord, error)
	// Resolve sets ended_at/ended_by on the active record only; a record
	// already resolved by a concurrent caller is left untouched and
	// reported via the bool result.
	Resolve(ctx context.Context, pauseID string, endedAt time.Time, endedBy domain.Actor) (bool, error)
	ListByWorkOrder(ctx context.Context, workOrderID string) ([]domain.PauseRecord, error)
}

type pauseRepository struct {
	db Querier
}

// NewPauseRepository instantiates the repository. Pass a pool or a tx.
func NewPauseRepository(db Querier) PauseRepository {
	return &pauseRepository{db: db}
}

func (r *pauseRepository) Create(ctx context.Context, pause *domain.PauseRecord) error {
	const query = `
        INSERT INTO work_order_pauses (id, work_order_ref, paused_status, reason, started_by_id, started_by_name, started_by_role)
        VALUES ($1,$2,$3,$4,$5,$6,$7)
        RETURNING started_at`
	err := r.db.QueryRow(ctx, query,
		pause.ID,
		pause.WorkOrderRef,
		pause.PausedStatus,
		pause.Reason,
		pause.StartedBy.IdentityID,
		pause.StartedBy.Name,
		pause.StartedBy.Role,
	).Scan(&pause.StartedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return ErrActivePauseExists
		}
		return err
	}
	return nil
}

func (r *pauseRepository) GetActive(ctx context.Context, workOrderID string) (*domain.PauseRecord, error) {
	const query = `
        SELECT id, work_order_ref, paused_status, reason, started_at, ended_at,
               started_by_id, started_by_name, started_by_role,
               ended_by_id, ended_by_name, ended_by_role
        FROM work_order_pauses WHERE work_order_ref=$1 AND ended_at IS NULL`
	pause, err := scanPauseRow(r.db.QueryRow(ctx, query, workOrderID))
	if err != nil {
		return nil, err
	}
	return pause, nil
}

func (r *pauseRepository) Resolve(ctx context.Context, pauseID string, endedAt time.Time, endedBy domain.Actor) (bool, error) {
	const query = `
        UPDATE work_order_pauses
        SET ended_at=$1, ended_by_id=$2, ended_by_name=$3, ended_by_role=$4
        WHERE id=$5 AND ended_at IS NULL`
	cmd, err := r.db.Exec(ctx, query, endedAt, endedBy.IdentityID, endedBy.Name, endedBy.Role, pauseID)
	if err != nil {
		return false, err
	}
	return cmd.RowsAffected() > 0, nil
}

func (r *pauseRepository) ListByWorkOrder(ctx context.Context, workOrderID string) ([]domain.PauseRecord, error) {
	const query = `
        SELECT id, work_order_ref, paused_status, reason, started_at, ended_at,
               started_by_id, started_by_name, started_by_role,
               ended_by_id, ended_by_name, ended_by_role
        FROM work_order_pauses WHERE work_order_ref=$1 ORDER BY started_at ASC`
	rows, err := r.db.Query(ctx, query, workOrderID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.PauseRecord
	for rows.Next() {
		pause, err := scanPauseRow(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *pause)
	}
	return result, rows.Err()
}

func scanPauseRow(row pgx.Row) (*domain.PauseRecord, error) {
	var pause domain.PauseRecord
	var endedByID, endedByName *string
	var endedByRole *domain.Role
	if err := row.Scan(
		&pause.ID,
		&pause.WorkOrderRef,
		&pause.PausedStatus,
		&pause.Reason,
		&pause.StartedAt,
		&pause.EndedAt,
		&pause.StartedBy.IdentityID,
		&pause.StartedBy.Name,
		&pause.StartedBy.Role,
		&endedByID,
		&endedByName,
		&endedByRole,
	); err != nil {
		return nil, err
	}
	if endedByID != nil {
		actor := domain.Actor{IdentityID: *endedByID}
		if endedByName != nil {
			actor.Name = *endedByName
		}
		if endedByRole != nil {
			actor.Role = *endedByRole
		}
		pause.EndedBy = &actor
	}
	return &pause, nil
}
