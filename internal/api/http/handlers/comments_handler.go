package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/deskflow/request-portal/internal/api/dto"
	"github.com/deskflow/request-portal/internal/auth"
	"github.com/deskflow/request-portal/internal/domain"
	"github.com/deskflow/request-portal/internal/service"
)

// CommentsHandler serves entity logs and the public response endpoint.
type CommentsHandler struct {
	service *service.CommentService
}

// NewCommentsHandler constructs handler.
func NewCommentsHandler(commentService *service.CommentService) *CommentsHandler {
	return &CommentsHandler{service: commentService}
}

// ListFor returns GET /<entity>/:code/comments for the given entity type.
func (h *CommentsHandler) ListFor(entity domain.EntityType) fiber.Handler {
	return func(c *fiber.Ctx) error {
		ref := domain.EntityRef{Type: entity, Code: c.Params("code")}
		comments, err := h.service.List(c.UserContext(), ref)
		if err != nil {
			return err
		}
		items := make([]dto.CommentResponse, 0, len(comments))
		for i := range comments {
			items = append(items, dto.NewCommentResponse(&comments[i]))
		}
		return c.JSON(fiber.Map{"data": items})
	}
}

// AppendTo returns POST /<entity>/:code/comments for the given entity type.
func (h *CommentsHandler) AppendTo(entity domain.EntityType) fiber.Handler {
	return func(c *fiber.Ctx) error {
		actor, err := auth.ActorFromContext(c)
		if err != nil {
			return err
		}
		var req dto.CreateCommentRequest
		if err := bind(c, &req); err != nil {
			return err
		}
		ref := domain.EntityRef{Type: entity, Code: c.Params("code")}
		result, err := h.service.Append(c.UserContext(), actor, ref, service.CommentInput{
			Type:      req.Type,
			Content:   req.Content,
			Recipient: req.Recipient,
		})
		if err != nil {
			return err
		}
		resp := dto.NewCommentResponse(result.Comment)
		if result.Token != nil {
			resp.ResponseToken = result.Token.Token
			resp.TokenExpires = &result.Token.ExpiresAt
		}
		return c.Status(fiber.StatusCreated).JSON(fiber.Map{"data": resp})
	}
}

// Respond POST /responses/:token. The token itself authorizes the caller.
func (h *CommentsHandler) Respond(c *fiber.Ctx) error {
	var req dto.RespondRequest
	if err := bind(c, &req); err != nil {
		return err
	}
	comment, err := h.service.Respond(c.UserContext(), c.Params("token"), req.AuthorLabel, req.Content)
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"data": dto.NewCommentResponse(comment)})
}
