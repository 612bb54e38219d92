package domain

import "time"

// ProjectState mirrors the development phase of the originating request.
type ProjectState string

const (
	ProjectStateScheduled     ProjectState = "agendado"
	ProjectStateInDevelopment ProjectState = "en_desarrollo"
	ProjectStatePaused        ProjectState = "pausado"
	ProjectStateCompleted     ProjectState = "completado"
	ProjectStateCancelled     ProjectState = "cancelado"
)

// RequestState returns the request state token mirrored by s.
func (s ProjectState) RequestState() RequestState {
	return RequestState(s)
}

// Project is the execution vehicle of an approved request.
type Project struct {
	ID               string
	Code             string
	RequestCode      string
	Title            string
	LeadID           string
	State            ProjectState
	PlannedStart     time.Time
	PlannedEnd       time.Time
	DevelopmentStart *time.Time
	PausedDays       int
	Version          int
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

// Task is a unit of work inside a project.
type Task struct {
	ID           string
	ProjectID    string
	Phase        string
	Name         string
	AssigneeID   *string
	AssigneeIDs  []string
	PlannedStart *time.Time
	PlannedEnd   *time.Time
	DurationDays int
	Completion   int
	IsEmergent   bool
	Position     int
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// AssignedTo reports whether actorID is the single assignee or part of the assignee set.
func (t Task) AssignedTo(actorID string) bool {
	if actorID == "" {
		return false
	}
	if t.AssigneeID != nil && *t.AssigneeID == actorID {
		return true
	}
	for _, id := range t.AssigneeIDs {
		if id == actorID {
			return true
		}
	}
	return false
}

// PauseInterval is one pause of a project. EndedAt nil means the pause is open.
type PauseInterval struct {
	ID        string
	ProjectID string
	StartedAt time.Time
	EndedAt   *time.Time
	Reason    string
	CreatedBy string
	EndedBy   *string
}

// Open reports whether the interval has not been closed.
func (p PauseInterval) Open() bool {
	return p.EndedAt == nil
}
