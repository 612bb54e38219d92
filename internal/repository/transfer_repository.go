package repository

import (
	"context"

	"github.com/deskflow/request-portal/internal/domain"
	apperrors "github.com/deskflow/request-portal/pkg/util/errorutil"
)

// TransferRepository records the permanent link between transferred entities.
type TransferRepository interface {
	// Create fails with ALREADY_TRANSFERRED when the origin already has a transfer.
	Create(ctx context.Context, transfer *domain.Transfer) error
	// FindByOrigin returns the transfer that moved code away. At most one exists.
	FindByOrigin(ctx context.Context, code string) (*domain.Transfer, error)
	// FindByDestination returns the transfer that created code, if it was created by one.
	FindByDestination(ctx context.Context, code string) (*domain.Transfer, error)
}

type transferRepository struct {
	db DBTX
}

// NewTransferRepository instantiates repository.
func NewTransferRepository(db DBTX) TransferRepository {
	return &transferRepository{db: db}
}

func (r *transferRepository) Create(ctx context.Context, transfer *domain.Transfer) error {
	const query = `
        INSERT INTO transfers (origin_type, origin_code, destination_type, destination_code, motive, created_by, created_at)
        VALUES ($1,$2,$3,$4,$5,$6,$7)
        RETURNING id`
	err := r.db.QueryRow(ctx, query,
		transfer.Origin.Type,
		transfer.Origin.Code,
		transfer.Destination.Type,
		transfer.Destination.Code,
		transfer.Motive,
		transfer.CreatedBy,
		transfer.CreatedAt,
	).Scan(&transfer.ID)
	if isUniqueViolation(err) {
		return apperrors.ErrAlreadyTransferred.WithDetails(map[string]any{"code": transfer.Origin.Code})
	}
	return err
}

const transferColumns = `id, origin_type, origin_code, destination_type, destination_code, motive, created_by, created_at`

func (r *transferRepository) FindByOrigin(ctx context.Context, code string) (*domain.Transfer, error) {
	return r.fetchSingle(ctx, `SELECT `+transferColumns+` FROM transfers WHERE origin_code=$1`, code)
}

func (r *transferRepository) FindByDestination(ctx context.Context, code string) (*domain.Transfer, error) {
	return r.fetchSingle(ctx, `SELECT `+transferColumns+` FROM transfers WHERE destination_code=$1`, code)
}

func (r *transferRepository) fetchSingle(ctx context.Context, query, code string) (*domain.Transfer, error) {
	var transfer domain.Transfer
	if err := r.db.QueryRow(ctx, query, code).Scan(
		&transfer.ID,
		&transfer.Origin.Type,
		&transfer.Origin.Code,
		&transfer.Destination.Type,
		&transfer.Destination.Code,
		&transfer.Motive,
		&transfer.CreatedBy,
		&transfer.CreatedAt,
	); err != nil {
		return nil, err
	}
	return &transfer, nil
}
