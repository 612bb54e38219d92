package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/deskflow/request-portal/internal/api/dto"
	"github.com/deskflow/request-portal/internal/service"
)

// TransfersHandler exposes transfer lookups.
type TransfersHandler struct {
	service *service.TransferService
}

// NewTransfersHandler constructs handler.
func NewTransfersHandler(transferService *service.TransferService) *TransfersHandler {
	return &TransfersHandler{service: transferService}
}

// Lookup GET /transfers/:code: the transfer that created the entity and the one
// that moved it away.
func (h *TransfersHandler) Lookup(c *fiber.Ctx) error {
	links, err := h.service.Lookup(c.UserContext(), c.Params("code"))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.NewTransferLinksResponse(links.Incoming, links.Outgoing)})
}
