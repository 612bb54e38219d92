package repository

import (
	"context"

	"github.com/deskflow/request-portal/internal/domain"
)

// CommentRepository manages the append-only comment log of requests and tickets.
type CommentRepository interface {
	Create(ctx context.Context, comment *domain.Comment) error
	ListByEntity(ctx context.Context, entity domain.EntityRef) ([]domain.Comment, error)
}

type commentRepository struct {
	db DBTX
}

// NewCommentRepository builds repository.
func NewCommentRepository(db DBTX) CommentRepository {
	return &commentRepository{db: db}
}

func (r *commentRepository) Create(ctx context.Context, comment *domain.Comment) error {
	const query = `
        INSERT INTO comments (entity_type, entity_code, comment_type, author_id, author_label, recipient, content, created_at)
        VALUES ($1,$2,$3,$4,$5,$6,$7,$8)
        RETURNING id`
	return r.db.QueryRow(ctx, query,
		comment.Entity.Type,
		comment.Entity.Code,
		comment.Type,
		comment.AuthorID,
		comment.AuthorLabel,
		comment.Recipient,
		comment.Content,
		comment.CreatedAt,
	).Scan(&comment.ID)
}

func (r *commentRepository) ListByEntity(ctx context.Context, entity domain.EntityRef) ([]domain.Comment, error) {
	const query = `
        SELECT id, entity_type, entity_code, comment_type, author_id, author_label, recipient, content, created_at
        FROM comments WHERE entity_type=$1 AND entity_code=$2 ORDER BY created_at ASC, id`
	rows, err := r.db.Query(ctx, query, entity.Type, entity.Code)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.Comment
	for rows.Next() {
		var comment domain.Comment
		if err := rows.Scan(
			&comment.ID,
			&comment.Entity.Type,
			&comment.Entity.Code,
			&comment.Type,
			&comment.AuthorID,
			&comment.AuthorLabel,
			&comment.Recipient,
			&comment.Content,
			&comment.CreatedAt,
		); err != nil {
			return nil, err
		}
		result = append(result, comment)
	}
	return result, rows.Err()
}
