package workflow

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/deskflow/request-portal/internal/domain"
	apperrors "github.com/deskflow/request-portal/pkg/util/errorutil"
)

func faultReport() *domain.Request {
	return &domain.Request{
		ID:       "r1",
		Code:     "SOL-AB12CD34",
		Title:    "Impresora del piso 3 no imprime",
		Kind:     domain.KindFaultReport,
		State:    domain.RequestStatePendingEvaluation,
		Priority: domain.PriorityHigh,
		Details: domain.RequestDetails{
			Requester: &domain.Person{Name: "Ana", Email: "ana@example.com"},
			Problem:   &domain.ProblemStatement{Situation: "paper jam error after every job"},
		},
		Attachments: []domain.AttachmentRef{{ID: "a1", StorageKey: "files/a1", FileName: "photo.jpg"}},
	}
}

func TestPlanRequestTransfer(t *testing.T) {
	m := NewMachine()
	req := faultReport()

	ticket, plan, err := m.PlanRequestTransfer(req, "  hardware issue  ", ntActor, "", now)
	require.NoError(t, err)

	assert.Equal(t, domain.RequestStateTransferred, req.State)
	assert.Equal(t, "[SOL-AB12CD34] Impresora del piso 3 no imprime", ticket.Title)
	assert.Equal(t, "paper jam error after every job", ticket.Description)
	assert.Equal(t, domain.TicketStateOpen, ticket.State)
	assert.Equal(t, domain.PriorityHigh, ticket.Priority)
	assert.Equal(t, "ana@example.com", ticket.Requester.Email)
	require.Len(t, ticket.Attachments, 1)
	assert.Equal(t, "files/a1", ticket.Attachments[0].StorageKey)
	assert.Empty(t, ticket.Attachments[0].ID, "copied attachments get new ids")
	assert.Equal(t, "hardware issue", plan.Motive)
	assert.Equal(t, string(domain.RequestStateTransferred), plan.Change.To)
}

func TestPlanRequestTransferRules(t *testing.T) {
	m := NewMachine()

	closure := faultReport()
	closure.Kind = domain.KindServiceClosure
	_, _, err := m.PlanRequestTransfer(closure, "motive", ntActor, "", now)
	assert.ErrorIs(t, err, apperrors.ErrTransferNotAllowed)

	done := faultReport()
	done.State = domain.RequestStateCompleted
	_, _, err = m.PlanRequestTransfer(done, "motive", ntActor, "", now)
	assert.ErrorIs(t, err, apperrors.ErrIllegalTransition)

	transferred := faultReport()
	transferred.State = domain.RequestStateTransferred
	_, _, err = m.PlanRequestTransfer(transferred, "motive", ntActor, "", now)
	assert.ErrorIs(t, err, apperrors.ErrAlreadyTransferred)

	byTI := faultReport()
	_, _, err = m.PlanRequestTransfer(byTI, "motive", tiActor, "", now)
	assert.ErrorIs(t, err, apperrors.ErrUnauthorizedTransition)
	assert.Equal(t, domain.RequestStatePendingEvaluation, byTI.State)

	noMotive := faultReport()
	_, _, err = m.PlanRequestTransfer(noMotive, "   ", ntActor, "", now)
	require.Error(t, err)
	assert.Equal(t, "VALIDATION_FAILED", apperrors.ToDomainError(err).Code)
}

func TestPlanTicketTransfer(t *testing.T) {
	m := NewMachine()
	ticket := &domain.Ticket{
		Code:        "TKT-0001",
		Title:       "Need a dashboard",
		Description: "sales wants a live dashboard",
		State:       domain.TicketStateInProgress,
		Priority:    domain.PriorityMedium,
		Requester:   domain.Person{Name: "Luis", Email: "luis@example.com"},
	}

	req, plan, err := m.PlanTicketTransfer(ticket, "this is a development request", tiActor, "%s :: %s", now)
	require.NoError(t, err)

	assert.Equal(t, domain.TicketStateTransferred, ticket.State)
	assert.Equal(t, domain.KindTransferredFromTI, req.Kind)
	assert.Equal(t, domain.RequestStatePendingEvaluation, req.State)
	assert.Equal(t, "TKT-0001 :: Need a dashboard", req.Title)
	assert.Empty(t, req.Details.MissingSections(req.Kind))
	assert.Equal(t, "TKT-0001", req.Details.Origin.Code)
	assert.Equal(t, tiActor.ID, req.CreatedBy)
	assert.Equal(t, domain.EntityTicket, plan.Change.Entity.Type)

	_, _, err = m.PlanTicketTransfer(ticket, "again", tiActor, "", now)
	assert.ErrorIs(t, err, apperrors.ErrAlreadyTransferred)
}

func TestTransferredRequestCannotGoBack(t *testing.T) {
	m := NewMachine()
	req := &domain.Request{Kind: domain.KindTransferredFromTI, State: domain.RequestStatePendingEvaluation}
	_, _, err := m.PlanRequestTransfer(req, "back to ti", ntActor, "", now)
	assert.ErrorIs(t, err, apperrors.ErrTransferNotAllowed)
}

func TestTransferTitleFallsBackOnBadFormat(t *testing.T) {
	assert.Equal(t, "[SOL-1] title", transferTitle("%s", "SOL-1", " title "))
	assert.Equal(t, "SOL-1/title", transferTitle("%s/%s", "SOL-1", "title"))
}
