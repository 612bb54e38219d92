package service

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"github.com/deskflow/request-portal/internal/domain"
	"github.com/deskflow/request-portal/internal/events"
	"github.com/deskflow/request-portal/internal/repository"
	apperrors "github.com/deskflow/request-portal/pkg/util/errorutil"
)

// TicketService coordinates ticket workflows.
type TicketService struct {
	deps Dependencies
}

// TicketCreateInput describes ticket creation payload.
type TicketCreateInput struct {
	Title       string `validate:"required,max=200"`
	Description string `validate:"required"`
	Category    domain.TicketCategory
	Priority    domain.Priority
	// Requester is optional; when any field is set the whole contact is validated.
	Requester   domain.Person `validate:"-"`
	Attachments []domain.AttachmentRef
}

// TicketListFilter describes list filters.
type TicketListFilter struct {
	AssigneeID *string
	States     []domain.TicketState
	Categories []domain.TicketCategory
	Priorities []domain.Priority
	SearchTerm *string
	Limit      int
	Offset     int
}

// TicketTransitionInput carries the target state of a ticket transition.
type TicketTransitionInput struct {
	To domain.TicketState
	// Resolution is stored on the ticket when it moves to resuelto.
	Resolution string
	Reason     string
	Version    *int
}

// NewTicketService constructs the service.
func NewTicketService(deps Dependencies) *TicketService {
	return &TicketService{deps: deps.withDefaults()}
}

// Create opens a ticket in abierto.
func (s *TicketService) Create(ctx context.Context, actor domain.Actor, input TicketCreateInput) (*domain.Ticket, error) {
	input.Title = strings.TrimSpace(input.Title)
	input.Description = strings.TrimSpace(input.Description)
	if err := validateStruct(input); err != nil {
		return nil, err
	}
	if input.Requester != (domain.Person{}) {
		if err := validateStruct(input.Requester); err != nil {
			return nil, err
		}
	}
	if input.Category == "" {
		input.Category = domain.TicketCategoryGeneral
	}
	if !input.Category.Valid() {
		return nil, apperrors.NewValidationError("unknown category", map[string]any{"category": string(input.Category)})
	}
	if input.Priority == "" {
		input.Priority = domain.PriorityMedium
	}
	if !input.Priority.Valid() {
		return nil, apperrors.NewValidationError("unknown priority", map[string]any{"priority": string(input.Priority)})
	}

	now := s.deps.Clock()
	ticket := &domain.Ticket{
		Code:        generateCode("TKT-"),
		Title:       input.Title,
		Description: input.Description,
		Category:    input.Category,
		Priority:    input.Priority,
		State:       domain.TicketStateOpen,
		Requester:   input.Requester,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	ref := domain.EntityRef{Type: domain.EntityTicket, Code: ticket.Code}

	err := s.deps.Store.WithinTx(ctx, func(repos repository.Repositories) error {
		if err := repos.Tickets.Create(ctx, ticket); err != nil {
			return err
		}
		saved, err := saveAttachments(ctx, repos, ref, input.Attachments, now)
		if err != nil {
			return err
		}
		ticket.Attachments = saved
		return repos.Comments.Create(ctx, systemComment(ref, "ticket created", now))
	})
	if err != nil {
		return nil, err
	}

	s.deps.Logger.Info("ticket created",
		zap.String("code", ticket.Code),
		zap.String("category", string(ticket.Category)),
		zap.String("actor_id", actor.ID))
	publishEvent(ctx, s.deps.Dispatcher, s.deps.Logger, events.Event{
		Type:      events.EventTicketCreated,
		Entity:    ref,
		Actor:     events.ActorOf(actor),
		Timestamp: now,
		Payload:   events.CreatedPayload{Title: ticket.Title, Kind: string(ticket.Category), Priority: ticket.Priority},
	})
	return ticket, nil
}

// Get returns a ticket with its attachments.
func (s *TicketService) Get(ctx context.Context, code string) (*domain.Ticket, error) {
	repos := s.deps.Store.Repos()
	ticket, err := repos.Tickets.GetByCode(ctx, code)
	if err != nil {
		return nil, notFound(err, "ticket", code)
	}
	attachments, err := repos.Attachments.ListByEntity(ctx, domain.EntityRef{Type: domain.EntityTicket, Code: code})
	if err != nil {
		return nil, err
	}
	ticket.Attachments = attachments
	return ticket, nil
}

// List returns tickets matching filter.
func (s *TicketService) List(ctx context.Context, filter TicketListFilter) ([]domain.Ticket, error) {
	return s.deps.Store.Repos().Tickets.List(ctx, repository.TicketFilter{
		AssigneeID: filter.AssigneeID,
		States:     filter.States,
		Categories: filter.Categories,
		Priorities: filter.Priorities,
		SearchTerm: filter.SearchTerm,
		Limit:      filter.Limit,
		Offset:     filter.Offset,
	})
}

// AllowedTransitions lists the states actor may move the ticket to.
func (s *TicketService) AllowedTransitions(ctx context.Context, actor domain.Actor, code string) ([]domain.TicketState, error) {
	ticket, err := s.deps.Store.Repos().Tickets.GetByCode(ctx, code)
	if err != nil {
		return nil, notFound(err, "ticket", code)
	}
	return s.deps.Machine.AllowedTicketTargets(ticket, actor), nil
}

// Transition moves a ticket along its workflow.
func (s *TicketService) Transition(ctx context.Context, actor domain.Actor, code string, input TicketTransitionInput) (*domain.Ticket, error) {
	var ticket *domain.Ticket
	now := s.deps.Clock()
	reason := strings.TrimSpace(input.Reason)

	var event events.Event
	err := s.deps.Store.WithinTx(ctx, func(repos repository.Repositories) error {
		var err error
		ticket, err = repos.Tickets.GetByCode(ctx, code)
		if err != nil {
			return notFound(err, "ticket", code)
		}
		if input.Version != nil && *input.Version != ticket.Version {
			return apperrors.ErrConcurrentModification.WithDetails(map[string]any{"code": code, "version": ticket.Version})
		}
		change, err := s.deps.Machine.TransitionTicket(ticket, input.To, actor, now)
		if err != nil {
			return err
		}
		if input.To == domain.TicketStateResolved {
			ticket.Resolution = strings.TrimSpace(input.Resolution)
		}
		if err := repos.Tickets.Update(ctx, ticket); err != nil {
			return err
		}
		note := change.Note()
		if reason != "" {
			note += ": " + reason
		}
		if err := repos.Comments.Create(ctx, systemComment(change.Entity, note, now)); err != nil {
			return err
		}
		event = stateChangedEvent(change, reason)
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.deps.Logger.Info("ticket transitioned",
		zap.String("code", code),
		zap.String("to", string(input.To)),
		zap.String("actor_id", actor.ID))
	publishEvent(ctx, s.deps.Dispatcher, s.deps.Logger, event)
	return ticket, nil
}

// Assign sets or clears the TI member working the ticket.
func (s *TicketService) Assign(ctx context.Context, actor domain.Actor, code string, assigneeID *string) (*domain.Ticket, error) {
	if actor.Role != domain.RoleTI {
		return nil, apperrors.NewForbidden("only TI can assign tickets")
	}
	if assigneeID != nil && strings.TrimSpace(*assigneeID) == "" {
		assigneeID = nil
	}

	var ticket *domain.Ticket
	now := s.deps.Clock()
	err := s.deps.Store.WithinTx(ctx, func(repos repository.Repositories) error {
		var err error
		ticket, err = repos.Tickets.GetByCode(ctx, code)
		if err != nil {
			return notFound(err, "ticket", code)
		}
		if s.deps.Machine.TicketTable().Terminal(ticket.State) {
			return apperrors.NewConflict("ticket is closed", map[string]any{"code": code, "state": string(ticket.State)})
		}

		note := "assignment cleared"
		if assigneeID != nil {
			assignee, err := repos.Users.GetByID(ctx, *assigneeID)
			if err != nil {
				if apperrors.IsNotFound(err) {
					return apperrors.NewValidationError("assignee not found", map[string]any{"assignee_id": *assigneeID})
				}
				return err
			}
			if assignee.Role != domain.RoleTI || !assignee.Active {
				return apperrors.NewValidationError("assignee must be an active TI member", map[string]any{"assignee_id": *assigneeID})
			}
			note = "assigned to " + assignee.Name
		}

		ticket.AssigneeID = assigneeID
		ticket.UpdatedAt = now
		if err := repos.Tickets.Update(ctx, ticket); err != nil {
			return err
		}
		return repos.Comments.Create(ctx, systemComment(domain.EntityRef{Type: domain.EntityTicket, Code: code}, note, now))
	})
	if err != nil {
		return nil, err
	}

	s.deps.Logger.Info("ticket assigned", zap.String("code", code), zap.Stringp("assignee_id", assigneeID))
	publishEvent(ctx, s.deps.Dispatcher, s.deps.Logger, events.Event{
		Type:      events.EventTicketAssigned,
		Entity:    domain.EntityRef{Type: domain.EntityTicket, Code: code},
		Actor:     events.ActorOf(actor),
		Timestamp: now,
		Payload:   events.AssignedPayload{AssigneeID: assigneeID},
	})
	return ticket, nil
}
