// Package schedule centralizes the pause accounting, progress math and task
// visibility rules of projects. Every function is pure over already-loaded state.
package schedule

import (
	"math"
	"strings"
	"time"

	"github.com/deskflow/request-portal/internal/domain"
	"github.com/deskflow/request-portal/internal/workflow"
	apperrors "github.com/deskflow/request-portal/pkg/util/errorutil"
)

const day = 24 * time.Hour

// Accountant opens and closes pause intervals and keeps the paused-days counter.
type Accountant struct {
	machine *workflow.Machine
}

// NewAccountant returns an accountant that authorizes through machine.
func NewAccountant(machine *workflow.Machine) *Accountant {
	return &Accountant{machine: machine}
}

// Pause opens an interval and moves the project to pausado. open is the project's
// currently open interval, nil when there is none.
func (a *Accountant) Pause(project *domain.Project, open *domain.PauseInterval, reason string, actor domain.Actor, now time.Time) (*domain.PauseInterval, workflow.Change, error) {
	if open != nil || project.State == domain.ProjectStatePaused {
		return nil, workflow.Change{}, apperrors.ErrAlreadyPaused.WithDetails(map[string]any{"project_id": project.ID})
	}
	reason = strings.TrimSpace(reason)
	if reason == "" {
		return nil, workflow.Change{}, apperrors.NewValidationError("pause reason required", nil)
	}
	change, err := a.machine.TransitionProject(project, domain.ProjectStatePaused, actor, now)
	if err != nil {
		return nil, workflow.Change{}, err
	}
	interval := &domain.PauseInterval{
		ProjectID: project.ID,
		StartedAt: now,
		Reason:    reason,
		CreatedBy: actor.ID,
	}
	return interval, change, nil
}

// Resume closes open, adds its whole days to the project counter and moves the
// project back to en_desarrollo. It returns the number of days added.
func (a *Accountant) Resume(project *domain.Project, open *domain.PauseInterval, actor domain.Actor, now time.Time) (int, workflow.Change, error) {
	if open == nil || !open.Open() {
		return 0, workflow.Change{}, apperrors.ErrNotPaused.WithDetails(map[string]any{"project_id": project.ID})
	}
	if now.Before(open.StartedAt) {
		return 0, workflow.Change{}, apperrors.NewValidationError("resume precedes pause start", map[string]any{
			"started_at": open.StartedAt,
		})
	}
	change, err := a.machine.TransitionProject(project, domain.ProjectStateInDevelopment, actor, now)
	if err != nil {
		return 0, workflow.Change{}, err
	}
	added := CeilDays(now.Sub(open.StartedAt))
	ended := now
	endedBy := actor.ID
	open.EndedAt = &ended
	open.EndedBy = &endedBy
	project.PausedDays += added
	return added, change, nil
}

// PausedDays returns the closed paused days plus the elapsed whole days of the
// open interval up to asOf. Constant once the interval is closed.
func PausedDays(project *domain.Project, open *domain.PauseInterval, asOf time.Time) int {
	total := project.PausedDays
	if open != nil && open.Open() && asOf.After(open.StartedAt) {
		total += CeilDays(asOf.Sub(open.StartedAt))
	}
	return total
}

// CeilDays rounds a duration up to whole days. Non-positive durations are 0.
func CeilDays(d time.Duration) int {
	if d <= 0 {
		return 0
	}
	return int(math.Ceil(float64(d) / float64(day)))
}

// OpenInterval returns the open interval among intervals, if any.
func OpenInterval(intervals []domain.PauseInterval) *domain.PauseInterval {
	for i := range intervals {
		if intervals[i].Open() {
			return &intervals[i]
		}
	}
	return nil
}

// ClosedDays recomputes the counter from closed intervals. Used to audit legacy counters.
func ClosedDays(intervals []domain.PauseInterval) int {
	total := 0
	for _, iv := range intervals {
		if iv.Open() {
			continue
		}
		total += CeilDays(iv.EndedAt.Sub(iv.StartedAt))
	}
	return total
}
