package service

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/deskflow/request-portal/internal/domain"
	"github.com/deskflow/request-portal/internal/events"
	apperrors "github.com/deskflow/request-portal/pkg/util/errorutil"
)

func TestTicketLifecycle(t *testing.T) {
	f := newFixture(t)

	_, err := f.tickets.Create(f.ctx, f.nt, TicketCreateInput{Title: "Laptop", Description: "No power", Category: "furniture"})
	require.Error(t, err)
	assert.Equal(t, "VALIDATION_FAILED", apperrors.ToDomainError(err).Code)

	ticket, err := f.tickets.Create(f.ctx, f.nt, TicketCreateInput{
		Title:       "Laptop will not boot",
		Description: "No power light after the update",
		Category:    domain.TicketCategoryHardware,
		Requester:   *requester(),
	})
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(ticket.Code, "TKT-"))
	assert.Equal(t, domain.TicketStateOpen, ticket.State)
	assert.Equal(t, domain.PriorityMedium, ticket.Priority)

	_, err = f.tickets.Transition(f.ctx, f.nt, ticket.Code, TicketTransitionInput{To: domain.TicketStateInProgress})
	assert.ErrorIs(t, err, apperrors.ErrUnauthorizedTransition)

	targets, err := f.tickets.AllowedTransitions(f.ctx, f.ti, ticket.Code)
	require.NoError(t, err)
	assert.ElementsMatch(t, []domain.TicketState{
		domain.TicketStateInProgress, domain.TicketStateResolved, domain.TicketStateDiscarded,
	}, targets)

	_, err = f.tickets.Transition(f.ctx, f.ti, ticket.Code, TicketTransitionInput{To: domain.TicketStateInProgress})
	require.NoError(t, err)
	resolved, err := f.tickets.Transition(f.ctx, f.ti, ticket.Code, TicketTransitionInput{
		To: domain.TicketStateResolved, Resolution: "Replaced the charger",
	})
	require.NoError(t, err)
	assert.Equal(t, domain.TicketStateResolved, resolved.State)
	assert.Equal(t, "Replaced the charger", resolved.Resolution)
	assert.Equal(t, events.EventStateChanged, f.recorder.last().Type)

	_, err = f.tickets.Transition(f.ctx, f.ti, ticket.Code, TicketTransitionInput{To: domain.TicketStateInProgress})
	assert.ErrorIs(t, err, apperrors.ErrIllegalTransition)
}

func TestAssignTicket(t *testing.T) {
	f := newFixture(t)
	ticket, err := f.tickets.Create(f.ctx, f.ti, TicketCreateInput{
		Title: "Shared drive", Description: "Access denied on finance share", Category: domain.TicketCategoryAccess,
	})
	require.NoError(t, err)

	_, err = f.tickets.Assign(f.ctx, f.nt, ticket.Code, &f.ti.ID)
	require.Error(t, err)
	assert.Equal(t, "FORBIDDEN", apperrors.ToDomainError(err).Code)

	_, err = f.tickets.Assign(f.ctx, f.ti, ticket.Code, &f.nt.ID)
	require.Error(t, err)
	assert.Equal(t, "VALIDATION_FAILED", apperrors.ToDomainError(err).Code)

	assigned, err := f.tickets.Assign(f.ctx, f.ti, ticket.Code, &f.ti.ID)
	require.NoError(t, err)
	require.NotNil(t, assigned.AssigneeID)
	assert.Equal(t, f.ti.ID, *assigned.AssigneeID)
	assert.Equal(t, events.EventTicketAssigned, f.recorder.last().Type)

	mine, err := f.tickets.List(f.ctx, TicketListFilter{AssigneeID: &f.ti.ID})
	require.NoError(t, err)
	assert.Len(t, mine, 1)

	_, err = f.tickets.Transition(f.ctx, f.ti, ticket.Code, TicketTransitionInput{To: domain.TicketStateDiscarded, Reason: "duplicate"})
	require.NoError(t, err)
	_, err = f.tickets.Assign(f.ctx, f.ti, ticket.Code, nil)
	require.Error(t, err)
	assert.Equal(t, "CONFLICT", apperrors.ToDomainError(err).Code)
}
