package repository

import (
	"context"

	"github.com/kuiporro/pgf-fleet-workshop/internal/domain"
)

// EvidenceRepository reads evidence upload metadata. Uploads are handled by
// the evidence subsystem and its object storage.
type EvidenceRepository interface {
	ListByWorkOrder(ctx context.Context, workOrderID string) ([]domain.EvidenceRecord, error)
}

type evidenceRepository struct {
	db Querier
}

// NewEvidenceRepository instantiates the repository.
func NewEvidenceRepository(db Querier) EvidenceRepository {
	return &evidenceRepository{db: db}
}

func (r *evidenceRepository) ListByWorkOrder(ctx context.Context, workOrderID string) ([]domain.EvidenceRecord, error) {
	const query = `
        SELECT id, work_order_ref, actor_id, actor_name, actor_role, file_name, mime_type, storage_key, occurred_at
        FROM work_order_evidence WHERE work_order_ref=$1 ORDER BY occurred_at ASC`
	rows, err := r.db.Query(ctx, query, workOrderID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.EvidenceRecord
	for rows.Next() {
		var evidence domain.EvidenceRecord
		if err := rows.Scan(
			&evidence.ID,
			&evidence.WorkOrderRef,
			&evidence.Actor.IdentityID,
			&evidence.Actor.Name,
			&evidence.Actor.Role,
			&evidence.FileName,
			&evidence.MimeType,
			&evidence.StorageKey,
			&evidence.OccurredAt,
		); err != nil {
			return nil, err
		}
		result = append(result, evidence)
	}
	return result, rows.Err()
}
