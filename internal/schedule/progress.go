package schedule

import (
	"math"
	"time"

	"github.com/deskflow/request-portal/internal/domain"
)

// Progress is the dual progress view of a project.
type Progress struct {
	Theoretical int `json:"theoretical"`
	Practical   int `json:"practical"`
	PlannedDays int `json:"planned_days"`
	ElapsedDays int `json:"elapsed_days"`
	PausedDays  int `json:"paused_days"`
}

// Compute builds the progress snapshot of project as of now.
func Compute(project *domain.Project, open *domain.PauseInterval, tasks []domain.Task, now time.Time) Progress {
	paused := PausedDays(project, open, now)
	return Progress{
		Theoretical: TheoreticalProgress(project, open, now),
		Practical:   PracticalProgress(tasks),
		PlannedDays: int(math.Round(plannedDays(project))),
		ElapsedDays: int(math.Round(math.Max(0, effectiveElapsed(project, open, now)))),
		PausedDays:  paused,
	}
}

// TheoreticalProgress is the share of the planned calendar consumed, net of paused
// time, clamped to [0, 100]. Closed pauses count in whole days; an open pause
// counts its exact elapsed time, so the value stays flat while paused. Projects
// without development start are measured from the planned start.
func TheoreticalProgress(project *domain.Project, open *domain.PauseInterval, now time.Time) int {
	planned := plannedDays(project)
	if planned <= 0 {
		return 0
	}
	elapsed := effectiveElapsed(project, open, now)
	return clampPercent(math.Round(100 * elapsed / planned))
}

// PracticalProgress is the duration-weighted mean of task completion. With no
// task durations at all every task weighs the same.
func PracticalProgress(tasks []domain.Task) int {
	if len(tasks) == 0 {
		return 0
	}
	var weighted, total, plain float64
	for _, task := range tasks {
		completion := float64(clampPercent(float64(task.Completion)))
		duration := float64(TaskDuration(task))
		weighted += completion * duration
		total += duration
		plain += completion
	}
	if total <= 0 {
		return clampPercent(math.Round(plain / float64(len(tasks))))
	}
	return clampPercent(math.Round(weighted / total))
}

// TaskDuration returns the declared duration, falling back to the planned range.
func TaskDuration(task domain.Task) int {
	if task.DurationDays > 0 {
		return task.DurationDays
	}
	if task.PlannedStart != nil && task.PlannedEnd != nil && task.PlannedEnd.After(*task.PlannedStart) {
		return CeilDays(task.PlannedEnd.Sub(*task.PlannedStart))
	}
	return 0
}

func plannedDays(project *domain.Project) float64 {
	return project.PlannedEnd.Sub(project.PlannedStart).Hours() / 24
}

func effectiveElapsed(project *domain.Project, open *domain.PauseInterval, now time.Time) float64 {
	if project.DevelopmentStart == nil {
		return now.Sub(project.PlannedStart).Hours() / 24
	}
	elapsed := math.Max(0, now.Sub(*project.DevelopmentStart).Hours()/24)
	elapsed -= float64(project.PausedDays)
	if open != nil && open.Open() && now.After(open.StartedAt) {
		elapsed -= now.Sub(open.StartedAt).Hours() / 24
	}
	return elapsed
}

func clampPercent(v float64) int {
	switch {
	case v < 0:
		return 0
	case v > 100:
		return 100
	}
	return int(v)
}
