package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	apperrors "github.com/deskflow/request-portal/pkg/util/errorutil"
)

// DBTX is satisfied by both the pool and a transaction.
type DBTX interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Repositories bundles every repository bound to the same connection or transaction.
type Repositories struct {
	Requests       RequestRepository
	Tickets        TicketRepository
	Projects       ProjectRepository
	Tasks          TaskRepository
	Pauses         PauseRepository
	Transfers      TransferRepository
	Comments       CommentRepository
	Attachments    AttachmentRepository
	ResponseTokens ResponseTokenRepository
	Users          UserRepository
}

// Store hands out repositories and runs units of work atomically.
type Store interface {
	Repos() Repositories
	// WithinTx runs fn against repositories sharing one transaction. Any error
	// returned by fn rolls every write back.
	WithinTx(ctx context.Context, fn func(Repositories) error) error
}

type postgresStore struct {
	pool *pgxpool.Pool
}

// NewPostgresStore returns a Store backed by pool.
func NewPostgresStore(pool *pgxpool.Pool) Store {
	return &postgresStore{pool: pool}
}

func (s *postgresStore) Repos() Repositories {
	return newRepositories(s.pool)
}

func (s *postgresStore) WithinTx(ctx context.Context, fn func(Repositories) error) error {
	tx, err := s.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if err := fn(newRepositories(tx)); err != nil {
		return err
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}

func newRepositories(db DBTX) Repositories {
	return Repositories{
		Requests:       NewRequestRepository(db),
		Tickets:        NewTicketRepository(db),
		Projects:       NewProjectRepository(db),
		Tasks:          NewTaskRepository(db),
		Pauses:         NewPauseRepository(db),
		Transfers:      NewTransferRepository(db),
		Comments:       NewCommentRepository(db),
		Attachments:    NewAttachmentRepository(db),
		ResponseTokens: NewResponseTokenRepository(db),
		Users:          NewUserRepository(db),
	}
}

const uniqueViolation = "23505"

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == uniqueViolation
}

// versionConflict maps a missed optimistic update to CONCURRENT_MODIFICATION.
func versionConflict(err error, entity, key string) error {
	if errors.Is(err, pgx.ErrNoRows) {
		return apperrors.ErrConcurrentModification.WithDetails(map[string]any{"entity": entity, "key": key})
	}
	return err
}

func pageBounds(limit, offset int) (int, int) {
	if limit <= 0 {
		limit = 20
	}
	if limit > 200 {
		limit = 200
	}
	if offset < 0 {
		offset = 0
	}
	return limit, offset
}
