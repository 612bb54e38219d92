package repository

import (
	"context"

	"github.com/deskflow/request-portal/internal/domain"
)

// AttachmentRepository persists attachment metadata of requests and tickets.
type AttachmentRepository interface {
	Create(ctx context.Context, entity domain.EntityRef, attachment *domain.AttachmentRef) error
	ListByEntity(ctx context.Context, entity domain.EntityRef) ([]domain.AttachmentRef, error)
}

type attachmentRepository struct {
	db DBTX
}

// NewAttachmentRepository constructs repository.
func NewAttachmentRepository(db DBTX) AttachmentRepository {
	return &attachmentRepository{db: db}
}

func (r *attachmentRepository) Create(ctx context.Context, entity domain.EntityRef, attachment *domain.AttachmentRef) error {
	const query = `
        INSERT INTO attachments (entity_type, entity_code, storage_key, file_name, mime_type, size_bytes)
        VALUES ($1,$2,$3,$4,$5,$6)
        RETURNING id, created_at`
	return r.db.QueryRow(ctx, query,
		entity.Type,
		entity.Code,
		attachment.StorageKey,
		attachment.FileName,
		attachment.MimeType,
		attachment.SizeBytes,
	).Scan(&attachment.ID, &attachment.CreatedAt)
}

func (r *attachmentRepository) ListByEntity(ctx context.Context, entity domain.EntityRef) ([]domain.AttachmentRef, error) {
	const query = `
        SELECT id, storage_key, file_name, mime_type, size_bytes, created_at
        FROM attachments WHERE entity_type=$1 AND entity_code=$2 ORDER BY created_at, id`
	rows, err := r.db.Query(ctx, query, entity.Type, entity.Code)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.AttachmentRef
	for rows.Next() {
		var attachment domain.AttachmentRef
		if err := rows.Scan(
			&attachment.ID,
			&attachment.StorageKey,
			&attachment.FileName,
			&attachment.MimeType,
			&attachment.SizeBytes,
			&attachment.CreatedAt,
		); err != nil {
			return nil, err
		}
		result = append(result, attachment)
	}
	return result, rows.Err()
}
