package repository

import (
	"context"

	"github.com/kuiporro/pgf-fleet-workshop/internal/domain"
)

// CommentRepository reads collaboration comments. Writes belong to the
// collaboration subsystem; the engine only consumes the records.
type CommentRepository interface {
	ListByWorkOrder(ctx context.Context, workOrderID string) ([]domain.CommentRecord, error)
}

type commentRepository struct {
	db Querier
}

// NewCommentRepository instantiates the repository.
func NewCommentRepository(db Querier) CommentRepository {
	return &commentRepository{db: db}
}

func (r *commentRepository) ListByWorkOrder(ctx context.Context, workOrderID string) ([]domain.CommentRecord, error) {
	const query = `
        SELECT id, work_order_ref, actor_id, actor_name, actor_role, body, occurred_at
        FROM work_order_comments WHERE work_order_ref=$1 ORDER BY occurred_at ASC`
	rows, err := r.db.Query(ctx, query, workOrderID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.CommentRecord
	for rows.Next() {
		var comment domain.CommentRecord
		if err := rows.Scan(
			&comment.ID,
			&comment.WorkOrderRef,
			&comment.Actor.IdentityID,
			&comment.Actor.Name,
			&comment.Actor.Role,
			&comment.Body,
			&comment.OccurredAt,
		); err != nil {
			return nil, err
		}
		result = append(result, comment)
	}
	return result, rows.Err()
}
