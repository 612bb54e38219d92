package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/deskflow/request-portal/internal/api/dto"
	"github.com/deskflow/request-portal/internal/auth"
	"github.com/deskflow/request-portal/internal/domain"
	"github.com/deskflow/request-portal/internal/service"
)

// TicketsHandler manages TI ticket endpoints.
type TicketsHandler struct {
	service   *service.TicketService
	transfers *service.TransferService
}

// NewTicketsHandler constructs handler.
func NewTicketsHandler(ticketService *service.TicketService, transferService *service.TransferService) *TicketsHandler {
	return &TicketsHandler{service: ticketService, transfers: transferService}
}

// CreateTicket POST /tickets.
func (h *TicketsHandler) CreateTicket(c *fiber.Ctx) error {
	actor, err := auth.ActorFromContext(c)
	if err != nil {
		return err
	}
	var req dto.CreateTicketRequest
	if err := bind(c, &req); err != nil {
		return err
	}

	input := service.TicketCreateInput{
		Title:       req.Title,
		Description: req.Description,
		Category:    req.Category,
		Priority:    req.Priority,
		Attachments: dto.ToAttachmentRefs(req.Attachments),
	}
	if req.Requester != nil {
		input.Requester = *req.Requester
	}
	ticket, err := h.service.Create(c.UserContext(), actor, input)
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"data": dto.NewTicketResponse(ticket)})
}

// ListTickets GET /tickets.
func (h *TicketsHandler) ListTickets(c *fiber.Ctx) error {
	tickets, err := h.service.List(c.UserContext(), parseTicketQuery(c))
	if err != nil {
		return err
	}
	items := make([]dto.TicketResponse, 0, len(tickets))
	for i := range tickets {
		items = append(items, dto.NewTicketResponse(&tickets[i]))
	}
	return c.JSON(fiber.Map{"data": items})
}

// GetTicket GET /tickets/:code.
func (h *TicketsHandler) GetTicket(c *fiber.Ctx) error {
	ticket, err := h.service.Get(c.UserContext(), c.Params("code"))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.NewTicketResponse(ticket)})
}

// AllowedTransitions GET /tickets/:code/transitions.
func (h *TicketsHandler) AllowedTransitions(c *fiber.Ctx) error {
	actor, err := auth.ActorFromContext(c)
	if err != nil {
		return err
	}
	targets, err := h.service.AllowedTransitions(c.UserContext(), actor, c.Params("code"))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": targets})
}

// Transition POST /tickets/:code/transitions.
func (h *TicketsHandler) Transition(c *fiber.Ctx) error {
	actor, err := auth.ActorFromContext(c)
	if err != nil {
		return err
	}
	var req dto.TicketTransitionRequest
	if err := bind(c, &req); err != nil {
		return err
	}
	ticket, err := h.service.Transition(c.UserContext(), actor, c.Params("code"), service.TicketTransitionInput{
		To:         req.To,
		Resolution: req.Resolution,
		Reason:     req.Reason,
		Version:    req.Version,
	})
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.NewTicketResponse(ticket)})
}

// Assign POST /tickets/:code/assign.
func (h *TicketsHandler) Assign(c *fiber.Ctx) error {
	actor, err := auth.ActorFromContext(c)
	if err != nil {
		return err
	}
	var req dto.AssignTicketRequest
	if err := bind(c, &req); err != nil {
		return err
	}
	ticket, err := h.service.Assign(c.UserContext(), actor, c.Params("code"), req.AssigneeID)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.NewTicketResponse(ticket)})
}

// Transfer POST /tickets/:code/transfer.
func (h *TicketsHandler) Transfer(c *fiber.Ctx) error {
	actor, err := auth.ActorFromContext(c)
	if err != nil {
		return err
	}
	var req dto.TransferRequest
	if err := bind(c, &req); err != nil {
		return err
	}
	result, err := h.transfers.TransferTicket(c.UserContext(), actor, c.Params("code"), req.Motive)
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"data": dto.NewTransferResponse(result.Transfer)})
}

func parseTicketQuery(c *fiber.Ctx) service.TicketListFilter {
	filter := service.TicketListFilter{
		AssigneeID: parseOptional(c.Query("assignee_id")),
		SearchTerm: parseOptional(c.Query("q")),
	}
	for _, state := range parseList(c.Query("state")) {
		filter.States = append(filter.States, domain.TicketState(state))
	}
	for _, category := range parseList(c.Query("category")) {
		filter.Categories = append(filter.Categories, domain.TicketCategory(category))
	}
	for _, priority := range parseList(c.Query("priority")) {
		filter.Priorities = append(filter.Priorities, domain.Priority(priority))
	}
	filter.Limit, filter.Offset = page(c)
	return filter
}
