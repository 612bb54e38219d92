package service

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/deskflow/request-portal/internal/domain"
	"github.com/deskflow/request-portal/internal/events"
	apperrors "github.com/deskflow/request-portal/pkg/util/errorutil"
)

func TestPauseAndResumeAccounting(t *testing.T) {
	f := newFixture(t)
	req, project := f.developingProject(t)

	f.at(2025, time.January, 3)
	paused := f.move(t, f.lead, req.Code, TransitionInput{To: domain.RequestStatePaused, Reason: "vendor outage"})
	assert.Equal(t, domain.RequestStatePaused, paused.State)

	stored, err := f.projects.Get(f.ctx, project.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.ProjectStatePaused, stored.State)
	assert.Contains(t, f.recorder.types(), events.EventProjectPaused)

	f.at(2025, time.January, 5)
	resumed, err := f.projects.Resume(f.ctx, f.lead, project.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.ProjectStateInDevelopment, resumed.State)
	assert.Equal(t, 2, resumed.PausedDays)

	reqAfter, err := f.requests.Get(f.ctx, req.Code)
	require.NoError(t, err)
	assert.Equal(t, domain.RequestStateInDevelopment, reqAfter.State)
	assert.Equal(t, 2, reqAfter.PausedDays)

	pauses, err := f.projects.Pauses(f.ctx, project.ID)
	require.NoError(t, err)
	require.Len(t, pauses, 1)
	assert.False(t, pauses[0].Open())
	assert.Equal(t, "vendor outage", pauses[0].Reason)

	f.at(2025, time.January, 9)
	progress, err := f.projects.Progress(f.ctx, project.ID)
	require.NoError(t, err)
	assert.Equal(t, 60, progress.Theoretical)
	assert.Equal(t, 0, progress.Practical)
	assert.Equal(t, 2, progress.PausedDays)

	last := f.recorder.last()
	assert.Equal(t, events.EventProjectResumed, last.Type)
	assert.Equal(t, 2, last.Payload.(events.PausePayload).AddedDays)
}

func TestPauseTwiceFails(t *testing.T) {
	f := newFixture(t)
	_, project := f.developingProject(t)

	f.at(2025, time.January, 3)
	_, err := f.projects.Pause(f.ctx, f.lead, project.ID, "waiting on hardware")
	require.NoError(t, err)

	_, err = f.projects.Pause(f.ctx, f.lead, project.ID, "again")
	assert.ErrorIs(t, err, apperrors.ErrAlreadyPaused)

	stored, err := f.projects.Get(f.ctx, project.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.ProjectStatePaused, stored.State)

	pauses, err := f.projects.Pauses(f.ctx, project.ID)
	require.NoError(t, err)
	assert.Len(t, pauses, 1)
}

func TestResumeWithoutPause(t *testing.T) {
	f := newFixture(t)
	_, project := f.developingProject(t)

	_, err := f.projects.Resume(f.ctx, f.lead, project.ID)
	assert.ErrorIs(t, err, apperrors.ErrNotPaused)
}

func TestOnlyLeadPauses(t *testing.T) {
	f := newFixture(t)
	req, project := f.developingProject(t)

	_, err := f.projects.Pause(f.ctx, f.nt, project.ID, "not mine")
	assert.ErrorIs(t, err, apperrors.ErrUnauthorizedTransition)

	_, err = f.requests.Transition(f.ctx, f.management, req.Code, TransitionInput{To: domain.RequestStatePaused, Reason: "x"})
	assert.ErrorIs(t, err, apperrors.ErrUnauthorizedTransition)

	pauses, err := f.projects.Pauses(f.ctx, project.ID)
	require.NoError(t, err)
	assert.Empty(t, pauses)
}

func TestTasksAndProgress(t *testing.T) {
	f := newFixture(t)
	_, project := f.developingProject(t)

	_, err := f.projects.AddTask(f.ctx, f.nt, project.ID, TaskInput{Name: "Design"})
	require.Error(t, err)
	assert.Equal(t, "FORBIDDEN", apperrors.ToDomainError(err).Code)

	assignee := f.nt.ID
	short, err := f.projects.AddTask(f.ctx, f.lead, project.ID, TaskInput{Name: "Design", DurationDays: 1, AssigneeID: &assignee})
	require.NoError(t, err)
	long, err := f.projects.AddTask(f.ctx, f.lead, project.ID, TaskInput{Name: "Build", DurationDays: 9})
	require.NoError(t, err)
	assert.True(t, long.IsEmergent)

	visible, err := f.projects.ListTasks(f.ctx, f.nt, project.ID)
	require.NoError(t, err)
	require.Len(t, visible, 1)
	assert.Equal(t, short.ID, visible[0].ID)

	all, err := f.projects.ListTasks(f.ctx, f.lead, project.ID)
	require.NoError(t, err)
	assert.Len(t, all, 2)

	_, err = f.projects.SetTaskProgress(f.ctx, f.nt, project.ID, long.ID, 50)
	require.Error(t, err)
	assert.Equal(t, "FORBIDDEN", apperrors.ToDomainError(err).Code)

	_, err = f.projects.SetTaskProgress(f.ctx, f.nt, project.ID, short.ID, 101)
	require.Error(t, err)
	assert.Equal(t, "VALIDATION_FAILED", apperrors.ToDomainError(err).Code)

	updated, err := f.projects.SetTaskProgress(f.ctx, f.nt, project.ID, short.ID, 100)
	require.NoError(t, err)
	assert.Equal(t, 100, updated.Completion)

	progress, err := f.projects.Progress(f.ctx, project.ID)
	require.NoError(t, err)
	assert.Equal(t, 10, progress.Practical)

	_, err = f.projects.Pause(f.ctx, f.lead, project.ID, "budget review")
	require.NoError(t, err)
	_, err = f.projects.SetTaskProgress(f.ctx, f.lead, project.ID, long.ID, 20)
	assert.ErrorIs(t, err, apperrors.ErrProjectPaused)
}

func TestSetTaskProgressRejectsForeignTask(t *testing.T) {
	f := newFixture(t)
	_, project := f.developingProject(t)

	task := &domain.Task{ProjectID: "other-project", Name: "elsewhere"}
	require.NoError(t, f.store.Repos().Tasks.Create(f.ctx, task))

	_, err := f.projects.SetTaskProgress(f.ctx, f.lead, project.ID, task.ID, 10)
	assert.True(t, apperrors.IsNotFound(err))
}
