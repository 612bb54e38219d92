package repository

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"

	"github.com/deskflow/request-portal/internal/domain"
	apperrors "github.com/deskflow/request-portal/pkg/util/errorutil"
)

// ProjectRepository persists projects.
type ProjectRepository interface {
	Create(ctx context.Context, project *domain.Project) error
	Update(ctx context.Context, project *domain.Project) error
	GetByID(ctx context.Context, id string) (*domain.Project, error)
	// GetByIDShared reads the project under a share lock held until the
	// transaction ends, so its state cannot change underneath dependent writes.
	GetByIDShared(ctx context.Context, id string) (*domain.Project, error)
	GetByRequestCode(ctx context.Context, code string) (*domain.Project, error)
}

// TaskRepository persists project tasks.
type TaskRepository interface {
	Create(ctx context.Context, task *domain.Task) error
	Update(ctx context.Context, task *domain.Task) error
	GetByID(ctx context.Context, id string) (*domain.Task, error)
	ListByProject(ctx context.Context, projectID string) ([]domain.Task, error)
}

// PauseRepository persists pause intervals. At most one interval per project is open.
type PauseRepository interface {
	Create(ctx context.Context, interval *domain.PauseInterval) error
	Close(ctx context.Context, interval *domain.PauseInterval) error
	// FindOpen returns the open interval of a project, nil when there is none.
	FindOpen(ctx context.Context, projectID string) (*domain.PauseInterval, error)
	ListByProject(ctx context.Context, projectID string) ([]domain.PauseInterval, error)
}

type projectRepository struct {
	db DBTX
}

// NewProjectRepository instantiates repository.
func NewProjectRepository(db DBTX) ProjectRepository {
	return &projectRepository{db: db}
}

const projectColumns = `id, code, request_code, title, lead_id, state, planned_start, planned_end,
               development_start, paused_days, version, created_at, updated_at`

func (r *projectRepository) Create(ctx context.Context, project *domain.Project) error {
	const query = `
        INSERT INTO projects (code, request_code, title, lead_id, state, planned_start, planned_end,
            development_start, paused_days, created_at, updated_at)
        VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11)
        RETURNING id, version`
	err := r.db.QueryRow(ctx, query,
		project.Code,
		project.RequestCode,
		project.Title,
		project.LeadID,
		project.State,
		project.PlannedStart,
		project.PlannedEnd,
		project.DevelopmentStart,
		project.PausedDays,
		project.CreatedAt,
		project.UpdatedAt,
	).Scan(&project.ID, &project.Version)
	if isUniqueViolation(err) {
		return apperrors.NewConflict("request already has a project", map[string]any{"request_code": project.RequestCode})
	}
	return err
}

func (r *projectRepository) Update(ctx context.Context, project *domain.Project) error {
	const query = `
        UPDATE projects SET title=$1, lead_id=$2, state=$3, planned_start=$4, planned_end=$5,
            development_start=$6, paused_days=$7, updated_at=$8, version=version+1
        WHERE id=$9 AND version=$10
        RETURNING version`
	err := r.db.QueryRow(ctx, query,
		project.Title,
		project.LeadID,
		project.State,
		project.PlannedStart,
		project.PlannedEnd,
		project.DevelopmentStart,
		project.PausedDays,
		project.UpdatedAt,
		project.ID,
		project.Version,
	).Scan(&project.Version)
	return versionConflict(err, "project", project.ID)
}

func (r *projectRepository) GetByID(ctx context.Context, id string) (*domain.Project, error) {
	return r.fetchSingle(ctx, `SELECT `+projectColumns+` FROM projects WHERE id=$1`, id)
}

func (r *projectRepository) GetByIDShared(ctx context.Context, id string) (*domain.Project, error) {
	return r.fetchSingle(ctx, `SELECT `+projectColumns+` FROM projects WHERE id=$1 FOR SHARE`, id)
}

func (r *projectRepository) GetByRequestCode(ctx context.Context, code string) (*domain.Project, error) {
	return r.fetchSingle(ctx, `SELECT `+projectColumns+` FROM projects WHERE request_code=$1`, code)
}

func (r *projectRepository) fetchSingle(ctx context.Context, query string, arg any) (*domain.Project, error) {
	var project domain.Project
	if err := r.db.QueryRow(ctx, query, arg).Scan(
		&project.ID,
		&project.Code,
		&project.RequestCode,
		&project.Title,
		&project.LeadID,
		&project.State,
		&project.PlannedStart,
		&project.PlannedEnd,
		&project.DevelopmentStart,
		&project.PausedDays,
		&project.Version,
		&project.CreatedAt,
		&project.UpdatedAt,
	); err != nil {
		return nil, err
	}
	return &project, nil
}

type taskRepository struct {
	db DBTX
}

// NewTaskRepository instantiates repository.
func NewTaskRepository(db DBTX) TaskRepository {
	return &taskRepository{db: db}
}

const taskColumns = `id, project_id, phase, name, assignee_id, assignee_ids, planned_start, planned_end,
               duration_days, completion, is_emergent, position, created_at, updated_at`

func (r *taskRepository) Create(ctx context.Context, task *domain.Task) error {
	const query = `
        INSERT INTO project_tasks (project_id, phase, name, assignee_id, assignee_ids, planned_start, planned_end,
            duration_days, completion, is_emergent, position, created_at, updated_at)
        VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,
            COALESCE((SELECT MAX(position) + 1 FROM project_tasks WHERE project_id=$1), 0), $11, $12)
        RETURNING id, position`
	return r.db.QueryRow(ctx, query,
		task.ProjectID,
		task.Phase,
		task.Name,
		task.AssigneeID,
		nonNilStrings(task.AssigneeIDs),
		task.PlannedStart,
		task.PlannedEnd,
		task.DurationDays,
		task.Completion,
		task.IsEmergent,
		task.CreatedAt,
		task.UpdatedAt,
	).Scan(&task.ID, &task.Position)
}

func (r *taskRepository) Update(ctx context.Context, task *domain.Task) error {
	const query = `
        UPDATE project_tasks SET phase=$1, name=$2, assignee_id=$3, assignee_ids=$4, planned_start=$5,
            planned_end=$6, duration_days=$7, completion=$8, updated_at=$9
        WHERE id=$10`
	cmd, err := r.db.Exec(ctx, query,
		task.Phase,
		task.Name,
		task.AssigneeID,
		nonNilStrings(task.AssigneeIDs),
		task.PlannedStart,
		task.PlannedEnd,
		task.DurationDays,
		task.Completion,
		task.UpdatedAt,
		task.ID,
	)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func (r *taskRepository) GetByID(ctx context.Context, id string) (*domain.Task, error) {
	return scanTask(r.db.QueryRow(ctx, `SELECT `+taskColumns+` FROM project_tasks WHERE id=$1`, id))
}

func (r *taskRepository) ListByProject(ctx context.Context, projectID string) ([]domain.Task, error) {
	query := `SELECT ` + taskColumns + ` FROM project_tasks WHERE project_id=$1 ORDER BY position, created_at`
	rows, err := r.db.Query(ctx, query, projectID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.Task
	for rows.Next() {
		task, err := scanTask(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *task)
	}
	return result, rows.Err()
}

func scanTask(row pgx.Row) (*domain.Task, error) {
	var task domain.Task
	if err := row.Scan(
		&task.ID,
		&task.ProjectID,
		&task.Phase,
		&task.Name,
		&task.AssigneeID,
		&task.AssigneeIDs,
		&task.PlannedStart,
		&task.PlannedEnd,
		&task.DurationDays,
		&task.Completion,
		&task.IsEmergent,
		&task.Position,
		&task.CreatedAt,
		&task.UpdatedAt,
	); err != nil {
		return nil, err
	}
	return &task, nil
}

func nonNilStrings(in []string) []string {
	if in == nil {
		return []string{}
	}
	return in
}

type pauseRepository struct {
	db DBTX
}

// NewPauseRepository instantiates repository.
func NewPauseRepository(db DBTX) PauseRepository {
	return &pauseRepository{db: db}
}

const pauseColumns = `id, project_id, started_at, ended_at, reason, created_by, ended_by`

func (r *pauseRepository) Create(ctx context.Context, interval *domain.PauseInterval) error {
	const query = `
        INSERT INTO project_pauses (project_id, started_at, reason, created_by)
        VALUES ($1,$2,$3,$4)
        RETURNING id`
	err := r.db.QueryRow(ctx, query,
		interval.ProjectID,
		interval.StartedAt,
		interval.Reason,
		interval.CreatedBy,
	).Scan(&interval.ID)
	if isUniqueViolation(err) {
		return apperrors.ErrAlreadyPaused.WithDetails(map[string]any{"project_id": interval.ProjectID})
	}
	return err
}

func (r *pauseRepository) Close(ctx context.Context, interval *domain.PauseInterval) error {
	const query = `
        UPDATE project_pauses SET ended_at=$1, ended_by=$2
        WHERE id=$3 AND ended_at IS NULL`
	cmd, err := r.db.Exec(ctx, query, interval.EndedAt, interval.EndedBy, interval.ID)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return apperrors.ErrNotPaused.WithDetails(map[string]any{"project_id": interval.ProjectID})
	}
	return nil
}

func (r *pauseRepository) FindOpen(ctx context.Context, projectID string) (*domain.PauseInterval, error) {
	query := `SELECT ` + pauseColumns + ` FROM project_pauses WHERE project_id=$1 AND ended_at IS NULL`
	interval, err := scanPause(r.db.QueryRow(ctx, query, projectID))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	return interval, err
}

func (r *pauseRepository) ListByProject(ctx context.Context, projectID string) ([]domain.PauseInterval, error) {
	query := `SELECT ` + pauseColumns + ` FROM project_pauses WHERE project_id=$1 ORDER BY started_at`
	rows, err := r.db.Query(ctx, query, projectID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.PauseInterval
	for rows.Next() {
		interval, err := scanPause(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *interval)
	}
	return result, rows.Err()
}

func scanPause(row pgx.Row) (*domain.PauseInterval, error) {
	var interval domain.PauseInterval
	if err := row.Scan(
		&interval.ID,
		&interval.ProjectID,
		&interval.StartedAt,
		&interval.EndedAt,
		&interval.Reason,
		&interval.CreatedBy,
		&interval.EndedBy,
	); err != nil {
		return nil, err
	}
	return &interval, nil
}
