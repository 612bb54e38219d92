package dto

import (
	"time"

	"github.com/deskflow/request-portal/internal/domain"
)

// PauseRequest payload.
type PauseRequest struct {
	Reason string `json:"reason" validate:"required"`
}

// CreateTaskRequest payload.
type CreateTaskRequest struct {
	Phase        string     `json:"phase"`
	Name         string     `json:"name" validate:"required,max=200"`
	AssigneeID   *string    `json:"assignee_id"`
	AssigneeIDs  []string   `json:"assignee_ids"`
	PlannedStart *time.Time `json:"planned_start"`
	PlannedEnd   *time.Time `json:"planned_end"`
	DurationDays int        `json:"duration_days" validate:"gte=0"`
}

// TaskProgressRequest payload.
type TaskProgressRequest struct {
	Completion *int `json:"completion" validate:"required"`
}

// ProjectResponse represents a project.
type ProjectResponse struct {
	ID               string              `json:"id"`
	Code             string              `json:"code"`
	RequestCode      string              `json:"request_code"`
	Title            string              `json:"title"`
	LeadID           string              `json:"lead_id"`
	State            domain.ProjectState `json:"state"`
	PlannedStart     time.Time           `json:"planned_start"`
	PlannedEnd       time.Time           `json:"planned_end"`
	DevelopmentStart *time.Time          `json:"development_start"`
	PausedDays       int                 `json:"paused_days"`
	Version          int                 `json:"version"`
	CreatedAt        time.Time           `json:"created_at"`
	UpdatedAt        time.Time           `json:"updated_at"`
}

// TaskResponse represents a project task.
type TaskResponse struct {
	ID           string     `json:"id"`
	Phase        string     `json:"phase"`
	Name         string     `json:"name"`
	AssigneeID   *string    `json:"assignee_id"`
	AssigneeIDs  []string   `json:"assignee_ids"`
	PlannedStart *time.Time `json:"planned_start"`
	PlannedEnd   *time.Time `json:"planned_end"`
	DurationDays int        `json:"duration_days"`
	Completion   int        `json:"completion"`
	IsEmergent   bool       `json:"is_emergent"`
	Position     int        `json:"position"`
}

// PauseResponse represents a pause interval.
type PauseResponse struct {
	ID        string     `json:"id"`
	StartedAt time.Time  `json:"started_at"`
	EndedAt   *time.Time `json:"ended_at"`
	Reason    string     `json:"reason"`
	CreatedBy string     `json:"created_by"`
	EndedBy   *string    `json:"ended_by"`
}

// NewProjectResponse maps a project.
func NewProjectResponse(p *domain.Project) ProjectResponse {
	return ProjectResponse{
		ID:               p.ID,
		Code:             p.Code,
		RequestCode:      p.RequestCode,
		Title:            p.Title,
		LeadID:           p.LeadID,
		State:            p.State,
		PlannedStart:     p.PlannedStart,
		PlannedEnd:       p.PlannedEnd,
		DevelopmentStart: p.DevelopmentStart,
		PausedDays:       p.PausedDays,
		Version:          p.Version,
		CreatedAt:        p.CreatedAt,
		UpdatedAt:        p.UpdatedAt,
	}
}

// NewTaskResponse maps a task.
func NewTaskResponse(t *domain.Task) TaskResponse {
	return TaskResponse{
		ID:           t.ID,
		Phase:        t.Phase,
		Name:         t.Name,
		AssigneeID:   t.AssigneeID,
		AssigneeIDs:  t.AssigneeIDs,
		PlannedStart: t.PlannedStart,
		PlannedEnd:   t.PlannedEnd,
		DurationDays: t.DurationDays,
		Completion:   t.Completion,
		IsEmergent:   t.IsEmergent,
		Position:     t.Position,
	}
}

// NewPauseResponse maps a pause interval.
func NewPauseResponse(p domain.PauseInterval) PauseResponse {
	return PauseResponse{
		ID:        p.ID,
		StartedAt: p.StartedAt,
		EndedAt:   p.EndedAt,
		Reason:    p.Reason,
		CreatedBy: p.CreatedBy,
		EndedBy:   p.EndedBy,
	}
}
