// Package workflow holds the transition tables of requests, tickets and projects and
// the pure operations that move entities between states.
package workflow

import (
	"fmt"
	"time"

	"github.com/deskflow/request-portal/internal/domain"
	apperrors "github.com/deskflow/request-portal/pkg/util/errorutil"
)

// Change describes a successful transition. Callers persist it together with
// the system comment returned by Note.
type Change struct {
	Entity domain.EntityRef
	From   string
	To     string
	Actor  domain.Actor
	At     time.Time
}

// Note renders the system comment recorded for the change.
func (c Change) Note() string {
	return fmt.Sprintf("state changed from %s to %s by %s (%s)", c.From, c.To, c.Actor.ID, c.Actor.Role)
}

// Machine enforces the transition tables.
type Machine struct {
	requests map[domain.RequestKind]*Table[domain.RequestState]
	tickets  *Table[domain.TicketState]
	projects *Table[domain.ProjectState]
}

// NewMachine builds the machine with the portal's tables.
func NewMachine() *Machine {
	complexTable := complexRequestTable()
	return &Machine{
		requests: map[domain.RequestKind]*Table[domain.RequestState]{
			domain.KindNewInternalProject: complexTable,
			domain.KindUpdate:             complexTable,
			domain.KindFaultReport:        simpleRequestTable("simple_transferable", true),
			domain.KindServiceClosure:     simpleRequestTable("simple", false),
			domain.KindTransferredFromTI:  simpleRequestTable("simple", false),
		},
		tickets:  ticketTable(),
		projects: projectTable(),
	}
}

var (
	nt         = Rule{Roles: []domain.Role{domain.RoleNT}}
	ti         = Rule{Roles: []domain.Role{domain.RoleTI}}
	management = Rule{Roles: []domain.Role{domain.RoleManagement}}
	lead       = Rule{LeadOnly: true}
)

func simpleRequestTable(name string, transferable bool) *Table[domain.RequestState] {
	t := newTable(name,
		domain.RequestStatePendingEvaluation,
		domain.RequestStateCompleted,
		domain.RequestStateDiscarded,
		domain.RequestStateTransferred,
	).
		edge(domain.RequestStatePendingEvaluation, domain.RequestStateCompleted, nt).
		edge(domain.RequestStatePendingEvaluation, domain.RequestStateDiscarded, nt)
	if transferable {
		t.edge(domain.RequestStatePendingEvaluation, domain.RequestStateTransferred,
			Rule{Roles: []domain.Role{domain.RoleNT}, TransferOnly: true})
	}
	return t
}

func complexRequestTable() *Table[domain.RequestState] {
	return newTable("complex",
		domain.RequestStatePendingEvaluation,
		domain.RequestStateInStudy,
		domain.RequestStateDiscarded,
		domain.RequestStatePendingManagement,
		domain.RequestStatePendingReevaluation,
		domain.RequestStateRejected,
		domain.RequestStateScheduled,
		domain.RequestStateInDevelopment,
		domain.RequestStatePaused,
		domain.RequestStateCompleted,
		domain.RequestStateCancelled,
	).
		edge(domain.RequestStatePendingEvaluation, domain.RequestStateInStudy, nt).
		edge(domain.RequestStateInStudy, domain.RequestStateDiscarded, nt).
		edge(domain.RequestStateInStudy, domain.RequestStatePendingManagement, nt).
		edge(domain.RequestStatePendingManagement, domain.RequestStatePendingReevaluation, management).
		edge(domain.RequestStatePendingManagement, domain.RequestStateRejected, management).
		edge(domain.RequestStatePendingManagement, domain.RequestStateScheduled, management).
		edge(domain.RequestStatePendingReevaluation, domain.RequestStateInStudy, nt).
		edge(domain.RequestStateScheduled, domain.RequestStateInDevelopment, nt).
		edge(domain.RequestStateInDevelopment, domain.RequestStatePaused, lead).
		edge(domain.RequestStatePaused, domain.RequestStateInDevelopment, lead).
		edge(domain.RequestStateInDevelopment, domain.RequestStateCompleted, lead).
		edge(domain.RequestStateInDevelopment, domain.RequestStateCancelled, lead)
}

func ticketTable() *Table[domain.TicketState] {
	transfer := Rule{Roles: []domain.Role{domain.RoleTI}, TransferOnly: true}
	return newTable("ticket",
		domain.TicketStateOpen,
		domain.TicketStateInProgress,
		domain.TicketStateResolved,
		domain.TicketStateDiscarded,
		domain.TicketStateTransferred,
	).
		edge(domain.TicketStateOpen, domain.TicketStateInProgress, ti).
		edge(domain.TicketStateOpen, domain.TicketStateResolved, ti).
		edge(domain.TicketStateOpen, domain.TicketStateDiscarded, ti).
		edge(domain.TicketStateOpen, domain.TicketStateTransferred, transfer).
		edge(domain.TicketStateInProgress, domain.TicketStateResolved, ti).
		edge(domain.TicketStateInProgress, domain.TicketStateDiscarded, ti).
		edge(domain.TicketStateInProgress, domain.TicketStateTransferred, transfer)
}

func projectTable() *Table[domain.ProjectState] {
	return newTable("project",
		domain.ProjectStateScheduled,
		domain.ProjectStateInDevelopment,
		domain.ProjectStatePaused,
		domain.ProjectStateCompleted,
		domain.ProjectStateCancelled,
	).
		edge(domain.ProjectStateScheduled, domain.ProjectStateInDevelopment, nt).
		edge(domain.ProjectStateInDevelopment, domain.ProjectStatePaused, lead).
		edge(domain.ProjectStatePaused, domain.ProjectStateInDevelopment, lead).
		edge(domain.ProjectStateInDevelopment, domain.ProjectStateCompleted, lead).
		edge(domain.ProjectStateInDevelopment, domain.ProjectStateCancelled, lead)
}

// RequestTable returns the table governing kind.
func (m *Machine) RequestTable(kind domain.RequestKind) (*Table[domain.RequestState], bool) {
	t, ok := m.requests[kind]
	return t, ok
}

// TicketTable returns the ticket table.
func (m *Machine) TicketTable() *Table[domain.TicketState] {
	return m.tickets
}

// ProjectTable returns the project table.
func (m *Machine) ProjectTable() *Table[domain.ProjectState] {
	return m.projects
}

// TransitionRequest moves req to the requested state. leadID is the lead of the
// request's project, empty when none exists. req is untouched on failure.
func (m *Machine) TransitionRequest(req *domain.Request, to domain.RequestState, actor domain.Actor, leadID string, now time.Time) (Change, error) {
	if err := m.checkRequest(req, to, actor, leadID, false); err != nil {
		return Change{}, err
	}
	return applyRequest(req, to, actor, now), nil
}

// TransitionTicket moves ticket to the requested state.
func (m *Machine) TransitionTicket(ticket *domain.Ticket, to domain.TicketState, actor domain.Actor, now time.Time) (Change, error) {
	if err := m.tickets.check(ticket.State, to, actor, "", false); err != nil {
		return Change{}, err
	}
	return applyTicket(ticket, to, actor, now), nil
}

// TransitionProject moves project to the requested state. The project's lead is the lead.
func (m *Machine) TransitionProject(project *domain.Project, to domain.ProjectState, actor domain.Actor, now time.Time) (Change, error) {
	if err := m.projects.check(project.State, to, actor, project.LeadID, false); err != nil {
		return Change{}, err
	}
	change := Change{
		Entity: domain.EntityRef{Type: domain.EntityRequest, Code: project.RequestCode},
		From:   string(project.State),
		To:     string(to),
		Actor:  actor,
		At:     now,
	}
	project.State = to
	project.UpdatedAt = now
	return change, nil
}

// AllowedRequestTargets lists the states actor may request for req.
func (m *Machine) AllowedRequestTargets(req *domain.Request, actor domain.Actor, leadID string) []domain.RequestState {
	t, ok := m.requests[req.Kind]
	if !ok {
		return nil
	}
	return t.targets(req.State, actor, leadID)
}

// AllowedTicketTargets lists the states actor may request for ticket.
func (m *Machine) AllowedTicketTargets(ticket *domain.Ticket, actor domain.Actor) []domain.TicketState {
	return m.tickets.targets(ticket.State, actor, "")
}

func (m *Machine) checkRequest(req *domain.Request, to domain.RequestState, actor domain.Actor, leadID string, viaTransfer bool) error {
	t, ok := m.requests[req.Kind]
	if !ok {
		return apperrors.ErrIllegalTransition.WithDetails(map[string]any{"kind": string(req.Kind)})
	}
	if !t.Has(req.State) {
		return apperrors.ErrIllegalTransition.WithDetails(map[string]any{
			"kind": string(req.Kind), "from": string(req.State), "to": string(to),
		})
	}
	return t.check(req.State, to, actor, leadID, viaTransfer)
}

func applyRequest(req *domain.Request, to domain.RequestState, actor domain.Actor, now time.Time) Change {
	change := Change{
		Entity: domain.EntityRef{Type: domain.EntityRequest, Code: req.Code},
		From:   string(req.State),
		To:     string(to),
		Actor:  actor,
		At:     now,
	}
	req.State = to
	req.UpdatedAt = now
	return change
}

func applyTicket(ticket *domain.Ticket, to domain.TicketState, actor domain.Actor, now time.Time) Change {
	change := Change{
		Entity: domain.EntityRef{Type: domain.EntityTicket, Code: ticket.Code},
		From:   string(ticket.State),
		To:     string(to),
		Actor:  actor,
		At:     now,
	}
	ticket.State = to
	ticket.UpdatedAt = now
	return change
}
