package repository

import (
	"context"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"

	"github.com/deskflow/request-portal/internal/domain"
)

// RequestFilter captures the request list parameters.
type RequestFilter struct {
	Kinds      []domain.RequestKind
	States     []domain.RequestState
	CreatedBy  *string
	SearchTerm *string
	Limit      int
	Offset     int
}

// RequestRepository encapsulates request persistence. Attachments are stored
// through AttachmentRepository.
type RequestRepository interface {
	Create(ctx context.Context, req *domain.Request) error
	// Update writes req when its Version matches the stored one and bumps Version.
	Update(ctx context.Context, req *domain.Request) error
	GetByCode(ctx context.Context, code string) (*domain.Request, error)
	List(ctx context.Context, filter RequestFilter) ([]domain.Request, error)
}

type requestRepository struct {
	db DBTX
}

// NewRequestRepository instantiates repository.
func NewRequestRepository(db DBTX) RequestRepository {
	return &requestRepository{db: db}
}

const requestColumns = `id, code, title, kind, state, priority, details, rejection_reason,
               paused_days, version, created_by, created_at, updated_at`

func (r *requestRepository) Create(ctx context.Context, req *domain.Request) error {
	details, err := req.Details.Marshal()
	if err != nil {
		return fmt.Errorf("encode request details: %w", err)
	}
	const query = `
        INSERT INTO requests (code, title, kind, state, priority, details, rejection_reason, paused_days, created_by, created_at, updated_at)
        VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11)
        RETURNING id, version`
	return r.db.QueryRow(ctx, query,
		req.Code,
		req.Title,
		req.Kind,
		req.State,
		req.Priority,
		details,
		req.RejectionReason,
		req.PausedDays,
		req.CreatedBy,
		req.CreatedAt,
		req.UpdatedAt,
	).Scan(&req.ID, &req.Version)
}

func (r *requestRepository) Update(ctx context.Context, req *domain.Request) error {
	details, err := req.Details.Marshal()
	if err != nil {
		return fmt.Errorf("encode request details: %w", err)
	}
	const query = `
        UPDATE requests SET title=$1, state=$2, priority=$3, details=$4, rejection_reason=$5,
            paused_days=$6, updated_at=$7, version=version+1
        WHERE code=$8 AND version=$9
        RETURNING version`
	err = r.db.QueryRow(ctx, query,
		req.Title,
		req.State,
		req.Priority,
		details,
		req.RejectionReason,
		req.PausedDays,
		req.UpdatedAt,
		req.Code,
		req.Version,
	).Scan(&req.Version)
	return versionConflict(err, "request", req.Code)
}

func (r *requestRepository) GetByCode(ctx context.Context, code string) (*domain.Request, error) {
	query := `SELECT ` + requestColumns + ` FROM requests WHERE code=$1`
	return scanRequest(r.db.QueryRow(ctx, query, code))
}

func (r *requestRepository) List(ctx context.Context, filter RequestFilter) ([]domain.Request, error) {
	clauses := []string{"1=1"}
	args := []any{}

	if len(filter.Kinds) > 0 {
		placeholders := make([]string, len(filter.Kinds))
		for i, kind := range filter.Kinds {
			args = append(args, kind)
			placeholders[i] = fmt.Sprintf("$%d", len(args))
		}
		clauses = append(clauses, fmt.Sprintf("kind IN (%s)", strings.Join(placeholders, ",")))
	}
	if len(filter.States) > 0 {
		placeholders := make([]string, len(filter.States))
		for i, state := range filter.States {
			args = append(args, state)
			placeholders[i] = fmt.Sprintf("$%d", len(args))
		}
		clauses = append(clauses, fmt.Sprintf("state IN (%s)", strings.Join(placeholders, ",")))
	}
	if filter.CreatedBy != nil {
		args = append(args, *filter.CreatedBy)
		clauses = append(clauses, fmt.Sprintf("created_by=$%d", len(args)))
	}
	if filter.SearchTerm != nil && strings.TrimSpace(*filter.SearchTerm) != "" {
		args = append(args, "%"+strings.ToLower(strings.TrimSpace(*filter.SearchTerm))+"%")
		placeholder := fmt.Sprintf("$%d", len(args))
		clauses = append(clauses, fmt.Sprintf("(LOWER(title) LIKE %s OR LOWER(code) LIKE %s)", placeholder, placeholder))
	}

	limit, offset := pageBounds(filter.Limit, filter.Offset)
	query := fmt.Sprintf(`SELECT %s FROM requests WHERE %s ORDER BY updated_at DESC, code LIMIT %d OFFSET %d`,
		requestColumns, strings.Join(clauses, " AND "), limit, offset)

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.Request
	for rows.Next() {
		req, err := scanRequest(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *req)
	}
	return result, rows.Err()
}

func scanRequest(row pgx.Row) (*domain.Request, error) {
	var (
		req     domain.Request
		details []byte
	)
	if err := row.Scan(
		&req.ID,
		&req.Code,
		&req.Title,
		&req.Kind,
		&req.State,
		&req.Priority,
		&details,
		&req.RejectionReason,
		&req.PausedDays,
		&req.Version,
		&req.CreatedBy,
		&req.CreatedAt,
		&req.UpdatedAt,
	); err != nil {
		return nil, err
	}
	parsed, err := domain.UnmarshalRequestDetails(details)
	if err != nil {
		return nil, fmt.Errorf("decode request %s details: %w", req.Code, err)
	}
	req.Details = parsed
	return &req, nil
}
