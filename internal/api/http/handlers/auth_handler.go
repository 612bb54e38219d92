package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/deskflow/request-portal/internal/api/dto"
	"github.com/deskflow/request-portal/internal/auth"
	"github.com/deskflow/request-portal/internal/domain"
	"github.com/deskflow/request-portal/internal/service"
)

// AuthHandler exposes login and account management.
type AuthHandler struct {
	auth *service.AuthService
}

// NewAuthHandler constructs handler.
func NewAuthHandler(authService *service.AuthService) *AuthHandler {
	return &AuthHandler{auth: authService}
}

// Login handles POST /auth/login.
func (h *AuthHandler) Login(c *fiber.Ctx) error {
	var req dto.LoginRequest
	if err := bind(c, &req); err != nil {
		return err
	}

	result, err := h.auth.Login(c.UserContext(), req.Email, req.Password)
	if err != nil {
		return err
	}

	return c.JSON(fiber.Map{
		"data": dto.AuthResponse{
			Token:     result.Token,
			ExpiresAt: result.ExpiresAt,
			User:      dto.NewUserResponse(result.User),
		},
	})
}

// Register handles POST /auth/users.
func (h *AuthHandler) Register(c *fiber.Ctx) error {
	actor, err := auth.ActorFromContext(c)
	if err != nil {
		return err
	}
	var req dto.RegisterUserRequest
	if err := bind(c, &req); err != nil {
		return err
	}

	user, err := h.auth.RegisterUser(c.UserContext(), actor, service.RegisterUserInput{
		Name:     req.Name,
		Email:    req.Email,
		Password: req.Password,
		Role:     req.Role,
	})
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"data": dto.NewUserResponse(user)})
}

// ListUsers handles GET /auth/users, optionally filtered by ?role=.
func (h *AuthHandler) ListUsers(c *fiber.Ctx) error {
	var role *domain.Role
	if raw := c.Query("role"); raw != "" {
		r := domain.Role(raw)
		role = &r
	}
	users, err := h.auth.ListUsers(c.UserContext(), role)
	if err != nil {
		return err
	}
	items := make([]dto.UserResponse, 0, len(users))
	for i := range users {
		items = append(items, dto.NewUserResponse(&users[i]))
	}
	return c.JSON(fiber.Map{"data": items})
}
