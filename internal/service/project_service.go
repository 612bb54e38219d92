package service

import (
	"context"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/deskflow/request-portal/internal/domain"
	"github.com/deskflow/request-portal/internal/events"
	"github.com/deskflow/request-portal/internal/repository"
	"github.com/deskflow/request-portal/internal/schedule"
	apperrors "github.com/deskflow/request-portal/pkg/util/errorutil"
)

// ProjectService manages approved projects: pauses, progress and tasks.
type ProjectService struct {
	deps       Dependencies
	accountant *schedule.Accountant
}

// TaskInput describes a task to add.
type TaskInput struct {
	Phase        string `validate:"max=120"`
	Name         string `validate:"required,max=200"`
	AssigneeID   *string
	AssigneeIDs  []string
	PlannedStart *time.Time
	PlannedEnd   *time.Time
	DurationDays int `validate:"gte=0"`
}

// NewProjectService constructs the service.
func NewProjectService(deps Dependencies) *ProjectService {
	deps = deps.withDefaults()
	return &ProjectService{deps: deps, accountant: schedule.NewAccountant(deps.Machine)}
}

// Get returns a project by id.
func (s *ProjectService) Get(ctx context.Context, id string) (*domain.Project, error) {
	project, err := s.deps.Store.Repos().Projects.GetByID(ctx, id)
	if err != nil {
		return nil, notFound(err, "project", id)
	}
	return project, nil
}

// GetForRequest returns the project scheduled from the request with the given code.
func (s *ProjectService) GetForRequest(ctx context.Context, requestCode string) (*domain.Project, error) {
	project, err := s.deps.Store.Repos().Projects.GetByRequestCode(ctx, requestCode)
	if err != nil {
		return nil, notFound(err, "project", requestCode)
	}
	return project, nil
}

// Pause opens a pause interval. Only the project lead may pause.
func (s *ProjectService) Pause(ctx context.Context, actor domain.Actor, projectID, reason string) (*domain.Project, error) {
	var (
		project *domain.Project
		emitted []events.Event
	)
	now := s.deps.Clock()
	err := s.deps.Store.WithinTx(ctx, func(repos repository.Repositories) error {
		var (
			req *domain.Request
			err error
		)
		project, req, err = s.loadPair(ctx, repos, projectID)
		if err != nil {
			return err
		}
		emitted, err = s.pauseWithin(ctx, repos, project, req, reason, actor, now)
		return err
	})
	if err != nil {
		return nil, err
	}
	for _, ev := range emitted {
		publishEvent(ctx, s.deps.Dispatcher, s.deps.Logger, ev)
	}
	return project, nil
}

// Resume closes the open pause interval. Only the project lead may resume.
func (s *ProjectService) Resume(ctx context.Context, actor domain.Actor, projectID string) (*domain.Project, error) {
	var (
		project *domain.Project
		emitted []events.Event
	)
	now := s.deps.Clock()
	err := s.deps.Store.WithinTx(ctx, func(repos repository.Repositories) error {
		var (
			req *domain.Request
			err error
		)
		project, req, err = s.loadPair(ctx, repos, projectID)
		if err != nil {
			return err
		}
		emitted, err = s.resumeWithin(ctx, repos, project, req, actor, now)
		return err
	})
	if err != nil {
		return nil, err
	}
	for _, ev := range emitted {
		publishEvent(ctx, s.deps.Dispatcher, s.deps.Logger, ev)
	}
	return project, nil
}

// Pauses lists the pause intervals of a project, oldest first.
func (s *ProjectService) Pauses(ctx context.Context, projectID string) ([]domain.PauseInterval, error) {
	if _, err := s.Get(ctx, projectID); err != nil {
		return nil, err
	}
	return s.deps.Store.Repos().Pauses.ListByProject(ctx, projectID)
}

// Progress computes theoretical and practical progress as of now. Read only.
func (s *ProjectService) Progress(ctx context.Context, projectID string) (schedule.Progress, error) {
	repos := s.deps.Store.Repos()
	project, err := repos.Projects.GetByID(ctx, projectID)
	if err != nil {
		return schedule.Progress{}, notFound(err, "project", projectID)
	}
	open, err := repos.Pauses.FindOpen(ctx, projectID)
	if err != nil {
		return schedule.Progress{}, err
	}
	tasks, err := repos.Tasks.ListByProject(ctx, projectID)
	if err != nil {
		return schedule.Progress{}, err
	}
	return schedule.Compute(project, open, tasks, s.deps.Clock()), nil
}

// AddTask appends a task to the project plan. Only the lead may add tasks.
func (s *ProjectService) AddTask(ctx context.Context, actor domain.Actor, projectID string, input TaskInput) (*domain.Task, error) {
	input.Name = strings.TrimSpace(input.Name)
	if err := validateStruct(input); err != nil {
		return nil, err
	}
	repos := s.deps.Store.Repos()
	project, err := repos.Projects.GetByID(ctx, projectID)
	if err != nil {
		return nil, notFound(err, "project", projectID)
	}
	if project.LeadID == "" || project.LeadID != actor.ID {
		return nil, apperrors.NewForbidden("only the project lead can add tasks")
	}

	task, err := schedule.NewTask(project, domain.Task{
		Phase:        strings.TrimSpace(input.Phase),
		Name:         input.Name,
		AssigneeID:   input.AssigneeID,
		AssigneeIDs:  input.AssigneeIDs,
		PlannedStart: input.PlannedStart,
		PlannedEnd:   input.PlannedEnd,
		DurationDays: input.DurationDays,
	}, s.deps.Clock())
	if err != nil {
		return nil, err
	}
	if err := repos.Tasks.Create(ctx, &task); err != nil {
		return nil, err
	}
	s.deps.Logger.Info("task added",
		zap.String("project_id", projectID),
		zap.String("task_id", task.ID),
		zap.Bool("emergent", task.IsEmergent))
	return &task, nil
}

// ListTasks returns the tasks actor may see.
func (s *ProjectService) ListTasks(ctx context.Context, actor domain.Actor, projectID string) ([]domain.Task, error) {
	repos := s.deps.Store.Repos()
	project, err := repos.Projects.GetByID(ctx, projectID)
	if err != nil {
		return nil, notFound(err, "project", projectID)
	}
	tasks, err := repos.Tasks.ListByProject(ctx, projectID)
	if err != nil {
		return nil, err
	}
	return schedule.VisibleTasks(project, tasks, actor), nil
}

// SetTaskProgress records the completion percentage of a task. The project row
// stays share-locked until commit, so a concurrent pause either waits for this
// update or is seen by it.
func (s *ProjectService) SetTaskProgress(ctx context.Context, actor domain.Actor, projectID, taskID string, percent int) (*domain.Task, error) {
	var task *domain.Task
	err := s.deps.Store.WithinTx(ctx, func(repos repository.Repositories) error {
		project, err := repos.Projects.GetByIDShared(ctx, projectID)
		if err != nil {
			return notFound(err, "project", projectID)
		}
		task, err = repos.Tasks.GetByID(ctx, taskID)
		if err != nil {
			return notFound(err, "task", taskID)
		}
		if task.ProjectID != project.ID {
			return apperrors.NewNotFound("task", map[string]any{"key": taskID})
		}
		if err := schedule.SetTaskProgress(project, task, percent, actor, s.deps.Clock()); err != nil {
			return err
		}
		return repos.Tasks.Update(ctx, task)
	})
	if err != nil {
		return nil, err
	}
	return task, nil
}

func (s *ProjectService) loadPair(ctx context.Context, repos repository.Repositories, projectID string) (*domain.Project, *domain.Request, error) {
	project, err := repos.Projects.GetByID(ctx, projectID)
	if err != nil {
		return nil, nil, notFound(err, "project", projectID)
	}
	req, err := repos.Requests.GetByCode(ctx, project.RequestCode)
	if err != nil {
		return nil, nil, notFound(err, "request", project.RequestCode)
	}
	return project, req, nil
}

// pauseWithin pauses project and mirrors the state onto req inside an open unit of work.
func (s *ProjectService) pauseWithin(ctx context.Context, repos repository.Repositories, project *domain.Project, req *domain.Request, reason string, actor domain.Actor, now time.Time) ([]events.Event, error) {
	open, err := repos.Pauses.FindOpen(ctx, project.ID)
	if err != nil {
		return nil, err
	}
	interval, change, err := s.accountant.Pause(project, open, reason, actor, now)
	if err != nil {
		return nil, err
	}
	if err := repos.Pauses.Create(ctx, interval); err != nil {
		return nil, err
	}
	if err := s.persistPair(ctx, repos, project, req, now); err != nil {
		return nil, err
	}
	if err := repos.Comments.Create(ctx, systemComment(change.Entity, change.Note()+": "+interval.Reason, now)); err != nil {
		return nil, err
	}

	s.deps.Logger.Info("project paused",
		zap.String("project_id", project.ID),
		zap.String("request_code", req.Code),
		zap.String("actor_id", actor.ID))
	return []events.Event{
		stateChangedEvent(change, interval.Reason),
		{
			Type:      events.EventProjectPaused,
			Entity:    change.Entity,
			Actor:     events.ActorOf(actor),
			Timestamp: now,
			Payload: events.PausePayload{
				ProjectID:  project.ID,
				Reason:     interval.Reason,
				PausedDays: project.PausedDays,
			},
		},
	}, nil
}

// resumeWithin closes the open interval of project and mirrors the state onto req.
func (s *ProjectService) resumeWithin(ctx context.Context, repos repository.Repositories, project *domain.Project, req *domain.Request, actor domain.Actor, now time.Time) ([]events.Event, error) {
	open, err := repos.Pauses.FindOpen(ctx, project.ID)
	if err != nil {
		return nil, err
	}
	added, change, err := s.accountant.Resume(project, open, actor, now)
	if err != nil {
		return nil, err
	}
	if err := repos.Pauses.Close(ctx, open); err != nil {
		return nil, err
	}
	if err := s.persistPair(ctx, repos, project, req, now); err != nil {
		return nil, err
	}
	if err := repos.Comments.Create(ctx, systemComment(change.Entity, change.Note(), now)); err != nil {
		return nil, err
	}

	s.deps.Logger.Info("project resumed",
		zap.String("project_id", project.ID),
		zap.Int("added_days", added),
		zap.Int("paused_days", project.PausedDays))
	return []events.Event{
		stateChangedEvent(change, ""),
		{
			Type:      events.EventProjectResumed,
			Entity:    change.Entity,
			Actor:     events.ActorOf(actor),
			Timestamp: now,
			Payload: events.PausePayload{
				ProjectID:  project.ID,
				AddedDays:  added,
				PausedDays: project.PausedDays,
			},
		},
	}, nil
}

func (s *ProjectService) persistPair(ctx context.Context, repos repository.Repositories, project *domain.Project, req *domain.Request, now time.Time) error {
	if err := repos.Projects.Update(ctx, project); err != nil {
		return err
	}
	req.State = project.State.RequestState()
	req.PausedDays = project.PausedDays
	req.UpdatedAt = now
	return repos.Requests.Update(ctx, req)
}
