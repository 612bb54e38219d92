package workflow

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/deskflow/request-portal/internal/domain"
	apperrors "github.com/deskflow/request-portal/pkg/util/errorutil"
)

var (
	now           = time.Date(2025, 1, 9, 10, 0, 0, 0, time.UTC)
	ntActor       = domain.Actor{ID: "u-nt", Role: domain.RoleNT}
	tiActor       = domain.Actor{ID: "u-ti", Role: domain.RoleTI}
	managerActor  = domain.Actor{ID: "u-mgmt", Role: domain.RoleManagement}
	leadActor     = domain.Actor{ID: "u-lead", Role: domain.RoleNT}
	allRoles      = []domain.Role{domain.RoleNT, domain.RoleTI, domain.RoleManagement}
	requestStates = []domain.RequestState{
		domain.RequestStatePendingEvaluation, domain.RequestStateInStudy, domain.RequestStateDiscarded,
		domain.RequestStatePendingManagement, domain.RequestStatePendingReevaluation, domain.RequestStateRejected,
		domain.RequestStateScheduled, domain.RequestStateInDevelopment, domain.RequestStatePaused,
		domain.RequestStateCompleted, domain.RequestStateCancelled, domain.RequestStateTransferred,
	}
	requestKinds = []domain.RequestKind{
		domain.KindNewInternalProject, domain.KindUpdate, domain.KindFaultReport,
		domain.KindServiceClosure, domain.KindTransferredFromTI,
	}
)

func TestFaultReportCompletedByNT(t *testing.T) {
	m := NewMachine()
	req := &domain.Request{Code: "SOL-1", Kind: domain.KindFaultReport, State: domain.RequestStatePendingEvaluation}

	change, err := m.TransitionRequest(req, domain.RequestStateCompleted, ntActor, "", now)
	require.NoError(t, err)

	assert.Equal(t, domain.RequestStateCompleted, req.State)
	assert.Equal(t, "pendiente_evaluacion_nt", change.From)
	assert.Equal(t, "completado", change.To)
	assert.Equal(t, domain.EntityRef{Type: domain.EntityRequest, Code: "SOL-1"}, change.Entity)
	assert.Contains(t, change.Note(), "pendiente_evaluacion_nt")
	assert.Contains(t, change.Note(), "completado")
	assert.Contains(t, change.Note(), ntActor.ID)
}

func TestIllegalTransitionsLeaveRequestUnchanged(t *testing.T) {
	m := NewMachine()
	for _, kind := range requestKinds {
		table, ok := m.RequestTable(kind)
		require.True(t, ok)
		for _, from := range requestStates {
			for _, to := range requestStates {
				if _, exists := table.Rule(from, to); exists {
					continue
				}
				for _, role := range allRoles {
					req := &domain.Request{Code: "SOL-X", Kind: kind, State: from, Version: 3}
					before := *req
					_, err := m.TransitionRequest(req, to, domain.Actor{ID: "u-lead", Role: role}, "u-lead", now)
					require.Error(t, err, "%s: %s -> %s", kind, from, to)
					assert.True(t, errors.Is(err, apperrors.ErrIllegalTransition), "%s: %s -> %s", kind, from, to)
					assert.Equal(t, before, *req)
				}
			}
		}
	}
}

func TestUnknownKindIsIllegal(t *testing.T) {
	m := NewMachine()
	req := &domain.Request{Kind: "desconocido", State: domain.RequestStatePendingEvaluation}
	_, err := m.TransitionRequest(req, domain.RequestStateCompleted, ntActor, "", now)
	assert.ErrorIs(t, err, apperrors.ErrIllegalTransition)
}

func TestComplexWorkflowAuthorization(t *testing.T) {
	cases := []struct {
		name  string
		from  domain.RequestState
		to    domain.RequestState
		actor domain.Actor
		want  error
	}{
		{"nt starts study", domain.RequestStatePendingEvaluation, domain.RequestStateInStudy, ntActor, nil},
		{"ti cannot start study", domain.RequestStatePendingEvaluation, domain.RequestStateInStudy, tiActor, apperrors.ErrUnauthorizedTransition},
		{"management cannot start study", domain.RequestStatePendingEvaluation, domain.RequestStateInStudy, managerActor, apperrors.ErrUnauthorizedTransition},
		{"nt sends to management", domain.RequestStateInStudy, domain.RequestStatePendingManagement, ntActor, nil},
		{"management approves", domain.RequestStatePendingManagement, domain.RequestStateScheduled, managerActor, nil},
		{"nt cannot approve", domain.RequestStatePendingManagement, domain.RequestStateScheduled, ntActor, apperrors.ErrUnauthorizedTransition},
		{"management asks reevaluation", domain.RequestStatePendingManagement, domain.RequestStatePendingReevaluation, managerActor, nil},
		{"nt reopens study", domain.RequestStatePendingReevaluation, domain.RequestStateInStudy, ntActor, nil},
		{"lead pauses", domain.RequestStateInDevelopment, domain.RequestStatePaused, leadActor, nil},
		{"non-lead nt cannot pause", domain.RequestStateInDevelopment, domain.RequestStatePaused, ntActor, apperrors.ErrUnauthorizedTransition},
		{"management cannot pause", domain.RequestStateInDevelopment, domain.RequestStatePaused, managerActor, apperrors.ErrUnauthorizedTransition},
		{"lead resumes", domain.RequestStatePaused, domain.RequestStateInDevelopment, leadActor, nil},
		{"lead completes", domain.RequestStateInDevelopment, domain.RequestStateCompleted, leadActor, nil},
		{"paused cannot complete", domain.RequestStatePaused, domain.RequestStateCompleted, leadActor, apperrors.ErrIllegalTransition},
		{"rejected is terminal", domain.RequestStateRejected, domain.RequestStateInStudy, ntActor, apperrors.ErrIllegalTransition},
	}

	m := NewMachine()
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := &domain.Request{Code: "SOL-2", Kind: domain.KindNewInternalProject, State: tc.from}
			_, err := m.TransitionRequest(req, tc.to, tc.actor, leadActor.ID, now)
			if tc.want == nil {
				require.NoError(t, err)
				assert.Equal(t, tc.to, req.State)
				return
			}
			assert.ErrorIs(t, err, tc.want)
			assert.Equal(t, tc.from, req.State)
		})
	}
}

func TestLeadOnlyEdgeWithoutProjectLead(t *testing.T) {
	m := NewMachine()
	req := &domain.Request{Kind: domain.KindUpdate, State: domain.RequestStateInDevelopment}
	_, err := m.TransitionRequest(req, domain.RequestStatePaused, domain.Actor{Role: domain.RoleNT}, "", now)
	assert.ErrorIs(t, err, apperrors.ErrUnauthorizedTransition)
}

func TestTransferEdgeNotReachableThroughTransition(t *testing.T) {
	m := NewMachine()
	req := &domain.Request{Kind: domain.KindFaultReport, State: domain.RequestStatePendingEvaluation}
	_, err := m.TransitionRequest(req, domain.RequestStateTransferred, ntActor, "", now)
	assert.ErrorIs(t, err, apperrors.ErrIllegalTransition)
	assert.Equal(t, domain.RequestStatePendingEvaluation, req.State)

	ticket := &domain.Ticket{State: domain.TicketStateOpen}
	_, err = m.TransitionTicket(ticket, domain.TicketStateTransferred, tiActor, now)
	assert.ErrorIs(t, err, apperrors.ErrIllegalTransition)
}

func TestTicketWorkflow(t *testing.T) {
	m := NewMachine()
	ticket := &domain.Ticket{Code: "TKT-1", State: domain.TicketStateOpen}

	_, err := m.TransitionTicket(ticket, domain.TicketStateInProgress, ntActor, now)
	assert.ErrorIs(t, err, apperrors.ErrUnauthorizedTransition)

	change, err := m.TransitionTicket(ticket, domain.TicketStateInProgress, tiActor, now)
	require.NoError(t, err)
	assert.Equal(t, domain.EntityTicket, change.Entity.Type)

	_, err = m.TransitionTicket(ticket, domain.TicketStateResolved, tiActor, now)
	require.NoError(t, err)

	_, err = m.TransitionTicket(ticket, domain.TicketStateInProgress, tiActor, now)
	assert.ErrorIs(t, err, apperrors.ErrIllegalTransition)
}

func TestProjectTransitionUsesProjectLead(t *testing.T) {
	m := NewMachine()
	project := &domain.Project{RequestCode: "SOL-3", LeadID: leadActor.ID, State: domain.ProjectStateInDevelopment}

	_, err := m.TransitionProject(project, domain.ProjectStateCompleted, ntActor, now)
	assert.ErrorIs(t, err, apperrors.ErrUnauthorizedTransition)

	change, err := m.TransitionProject(project, domain.ProjectStateCompleted, leadActor, now)
	require.NoError(t, err)
	assert.Equal(t, "SOL-3", change.Entity.Code)
	assert.Equal(t, domain.ProjectStateCompleted, project.State)
}

func TestAllowedRequestTargets(t *testing.T) {
	m := NewMachine()
	req := &domain.Request{Kind: domain.KindNewInternalProject, State: domain.RequestStatePendingManagement}

	assert.Empty(t, m.AllowedRequestTargets(req, ntActor, ""))
	assert.Equal(t, []domain.RequestState{
		domain.RequestStateScheduled,
		domain.RequestStatePendingReevaluation,
		domain.RequestStateRejected,
	}, m.AllowedRequestTargets(req, managerActor, ""))

	fault := &domain.Request{Kind: domain.KindFaultReport, State: domain.RequestStatePendingEvaluation}
	assert.Equal(t, []domain.RequestState{
		domain.RequestStateCompleted,
		domain.RequestStateDiscarded,
	}, m.AllowedRequestTargets(fault, ntActor, ""), "transfer edge is not offered")
}

func TestTablesShareTerminalStates(t *testing.T) {
	m := NewMachine()
	complexTable, _ := m.RequestTable(domain.KindUpdate)
	for _, s := range []domain.RequestState{
		domain.RequestStateDiscarded, domain.RequestStateRejected,
		domain.RequestStateCompleted, domain.RequestStateCancelled,
	} {
		assert.True(t, complexTable.Terminal(s), s)
	}
	assert.True(t, m.TicketTable().Terminal(domain.TicketStateTransferred))
	assert.False(t, m.ProjectTable().Terminal(domain.ProjectStatePaused))
}
