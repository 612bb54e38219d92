package schedule

import (
	"time"

	"github.com/deskflow/request-portal/internal/domain"
	apperrors "github.com/deskflow/request-portal/pkg/util/errorutil"
)

// VisibleTasks filters tasks down to what actor may see: everything for the
// project lead, only assigned tasks for anyone else.
func VisibleTasks(project *domain.Project, tasks []domain.Task, actor domain.Actor) []domain.Task {
	if isLead(project, actor) {
		return tasks
	}
	out := make([]domain.Task, 0, len(tasks))
	for _, task := range tasks {
		if task.AssignedTo(actor.ID) {
			out = append(out, task)
		}
	}
	return out
}

// CanEditTask applies the visibility rule to writes.
func CanEditTask(project *domain.Project, task domain.Task, actor domain.Actor) bool {
	return isLead(project, actor) || task.AssignedTo(actor.ID)
}

// SetTaskProgress records a completion percentage on task after checking the
// project is actively in development and actor may edit the task.
func SetTaskProgress(project *domain.Project, task *domain.Task, percent int, actor domain.Actor, now time.Time) error {
	if project.State == domain.ProjectStatePaused {
		return apperrors.ErrProjectPaused.WithDetails(map[string]any{"project_id": project.ID})
	}
	if project.State != domain.ProjectStateInDevelopment {
		return apperrors.NewConflict("project is not in development", map[string]any{
			"project_id": project.ID, "state": string(project.State),
		})
	}
	if !CanEditTask(project, *task, actor) {
		return apperrors.NewForbidden("task is not assigned to actor")
	}
	if percent < 0 || percent > 100 {
		return apperrors.NewValidationError("completion must be between 0 and 100", map[string]any{"completion": percent})
	}
	task.Completion = percent
	task.UpdatedAt = now
	return nil
}

// NewTask prepares a task for insertion. Tasks added once development started are emergent.
func NewTask(project *domain.Project, task domain.Task, now time.Time) (domain.Task, error) {
	switch project.State {
	case domain.ProjectStateCompleted, domain.ProjectStateCancelled:
		return domain.Task{}, apperrors.NewConflict("project is closed", map[string]any{
			"project_id": project.ID, "state": string(project.State),
		})
	}
	if task.Name == "" {
		return domain.Task{}, apperrors.NewValidationError("task name required", nil)
	}
	if task.DurationDays < 0 {
		return domain.Task{}, apperrors.NewValidationError("duration must not be negative", nil)
	}
	if task.PlannedStart != nil && task.PlannedEnd != nil && task.PlannedEnd.Before(*task.PlannedStart) {
		return domain.Task{}, apperrors.NewValidationError("planned end precedes planned start", nil)
	}
	task.ProjectID = project.ID
	task.DurationDays = TaskDuration(task)
	task.Completion = 0
	task.IsEmergent = project.State == domain.ProjectStateInDevelopment || project.State == domain.ProjectStatePaused
	task.CreatedAt = now
	task.UpdatedAt = now
	return task, nil
}

func isLead(project *domain.Project, actor domain.Actor) bool {
	return project.LeadID != "" && actor.ID == project.LeadID
}
