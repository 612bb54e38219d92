package handlers

import (
	"context"

	"github.com/gofiber/fiber/v2"

	"github.com/deskflow/request-portal/internal/api/dto"
	"github.com/deskflow/request-portal/internal/auth"
	"github.com/deskflow/request-portal/internal/domain"
	"github.com/deskflow/request-portal/internal/service"
	apperrors "github.com/deskflow/request-portal/pkg/util/errorutil"
)

// RequestsHandler exposes NT request endpoints.
type RequestsHandler struct {
	service   *service.RequestService
	projects  *service.ProjectService
	transfers *service.TransferService
}

// NewRequestsHandler constructs handler.
func NewRequestsHandler(requestService *service.RequestService, projectService *service.ProjectService, transferService *service.TransferService) *RequestsHandler {
	return &RequestsHandler{service: requestService, projects: projectService, transfers: transferService}
}

// view renders req, linking its project once one has been scheduled.
func (h *RequestsHandler) view(ctx context.Context, req *domain.Request) (dto.RequestResponse, error) {
	resp := dto.NewRequestResponse(req)
	if !req.Kind.ProjectBearing() || h.projects == nil {
		return resp, nil
	}
	project, err := h.projects.GetForRequest(ctx, req.Code)
	if apperrors.IsNotFound(err) {
		return resp, nil
	}
	if err != nil {
		return dto.RequestResponse{}, err
	}
	return resp.WithProject(project), nil
}

// Create POST /requests.
func (h *RequestsHandler) Create(c *fiber.Ctx) error {
	actor, err := auth.ActorFromContext(c)
	if err != nil {
		return err
	}
	var req dto.CreateRequestRequest
	if err := bind(c, &req); err != nil {
		return err
	}
	created, err := h.service.Create(c.UserContext(), actor, service.RequestCreateInput{
		Title:       req.Title,
		Kind:        req.Kind,
		Priority:    req.Priority,
		Details:     req.Details,
		Attachments: dto.ToAttachmentRefs(req.Attachments),
	})
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"data": dto.NewRequestResponse(created)})
}

// List GET /requests.
func (h *RequestsHandler) List(c *fiber.Ctx) error {
	filter := service.RequestListFilter{SearchTerm: parseOptional(c.Query("q"))}
	for _, kind := range parseList(c.Query("kind")) {
		filter.Kinds = append(filter.Kinds, domain.RequestKind(kind))
	}
	for _, state := range parseList(c.Query("state")) {
		filter.States = append(filter.States, domain.RequestState(state))
	}
	filter.Limit, filter.Offset = page(c)

	requests, err := h.service.List(c.UserContext(), filter)
	if err != nil {
		return err
	}
	items := make([]dto.RequestResponse, 0, len(requests))
	for i := range requests {
		items = append(items, dto.NewRequestResponse(&requests[i]))
	}
	return c.JSON(fiber.Map{"data": items})
}

// Get GET /requests/:code.
func (h *RequestsHandler) Get(c *fiber.Ctx) error {
	req, err := h.service.Get(c.UserContext(), c.Params("code"))
	if err != nil {
		return err
	}
	resp, err := h.view(c.UserContext(), req)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": resp})
}

// AllowedTransitions GET /requests/:code/transitions.
func (h *RequestsHandler) AllowedTransitions(c *fiber.Ctx) error {
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

// Transition POST /requests/:code/transitions.
func (h *RequestsHandler) Transition(c *fiber.Ctx) error {
	actor, err := auth.ActorFromContext(c)
	if err != nil {
		return err
	}
	var req dto.TransitionRequest
	if err := bind(c, &req); err != nil {
		return err
	}
	updated, err := h.service.Transition(c.UserContext(), actor, c.Params("code"), service.TransitionInput{
		To:           req.To,
		Reason:       req.Reason,
		Version:      req.Version,
		PlannedStart: req.PlannedStart,
		PlannedEnd:   req.PlannedEnd,
		LeadID:       req.LeadID,
	})
	if err != nil {
		return err
	}
	resp, err := h.view(c.UserContext(), updated)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": resp})
}

// Transfer POST /requests/:code/transfer.
func (h *RequestsHandler) Transfer(c *fiber.Ctx) error {
	actor, err := auth.ActorFromContext(c)
	if err != nil {
		return err
	}
	var req dto.TransferRequest
	if err := bind(c, &req); err != nil {
		return err
	}
	result, err := h.transfers.TransferRequest(c.UserContext(), actor, c.Params("code"), req.Motive)
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"data": dto.NewTransferResponse(result.Transfer)})
}
