package repository

import (
	"context"
	"time"

	"github.com/deskflow/request-portal/internal/domain"
	apperrors "github.com/deskflow/request-portal/pkg/util/errorutil"
)

// ResponseTokenRepository manages single-use tokens sent with communications.
type ResponseTokenRepository interface {
	Create(ctx context.Context, token *domain.ResponseToken) error
	GetByToken(ctx context.Context, token string) (*domain.ResponseToken, error)
	// MarkUsed consumes the token; a token already consumed yields TOKEN_ALREADY_USED.
	MarkUsed(ctx context.Context, id string, at time.Time) error
}

type responseTokenRepository struct {
	db DBTX
}

// NewResponseTokenRepository constructs repository.
func NewResponseTokenRepository(db DBTX) ResponseTokenRepository {
	return &responseTokenRepository{db: db}
}

func (r *responseTokenRepository) Create(ctx context.Context, token *domain.ResponseToken) error {
	const query = `
        INSERT INTO response_tokens (token, entity_type, entity_code, comment_id, recipient, expires_at, created_at)
        VALUES ($1,$2,$3,$4,$5,$6,$7)
        RETURNING id`
	return r.db.QueryRow(ctx, query,
		token.Token,
		token.Entity.Type,
		token.Entity.Code,
		token.CommentID,
		token.Recipient,
		token.ExpiresAt,
		token.CreatedAt,
	).Scan(&token.ID)
}

func (r *responseTokenRepository) GetByToken(ctx context.Context, tokenStr string) (*domain.ResponseToken, error) {
	const query = `
        SELECT id, token, entity_type, entity_code, comment_id, recipient, expires_at, used_at, created_at
        FROM response_tokens WHERE token=$1`
	var token domain.ResponseToken
	if err := r.db.QueryRow(ctx, query, tokenStr).Scan(
		&token.ID,
		&token.Token,
		&token.Entity.Type,
		&token.Entity.Code,
		&token.CommentID,
		&token.Recipient,
		&token.ExpiresAt,
		&token.UsedAt,
		&token.CreatedAt,
	); err != nil {
		return nil, err
	}
	return &token, nil
}

func (r *responseTokenRepository) MarkUsed(ctx context.Context, id string, at time.Time) error {
	const query = `
        UPDATE response_tokens SET used_at=$1
        WHERE id=$2 AND used_at IS NULL`
	cmd, err := r.db.Exec(ctx, query, at, id)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return apperrors.ErrTokenAlreadyUsed
	}
	return nil
}
