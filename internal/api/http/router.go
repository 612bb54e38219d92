package http

import (
	"github.com/gofiber/fiber/v2"

	"github.com/deskflow/request-portal/internal/api/http/handlers"
	"github.com/deskflow/request-portal/internal/auth"
	"github.com/deskflow/request-portal/internal/domain"
)

// RouteConfig bundles dependencies for route registration.
type RouteConfig struct {
	Health         *handlers.HealthHandler
	Auth           *handlers.AuthHandler
	Requests       *handlers.RequestsHandler
	Tickets        *handlers.TicketsHandler
	Projects       *handlers.ProjectsHandler
	Comments       *handlers.CommentsHandler
	Transfers      *handlers.TransfersHandler
	AuthMiddleware *auth.AuthMiddleware
}

// RegisterRoutes wires HTTP routes.
func RegisterRoutes(app *fiber.App, cfg RouteConfig) {
	app.Get("/health/live", cfg.Health.Live)
	app.Get("/health/ready", cfg.Health.Ready)

	api := app.Group("/api/v1")
	api.Post("/auth/login", cfg.Auth.Login)
	api.Post("/responses/:token", cfg.Comments.Respond)

	protected := api.Group("", cfg.AuthMiddleware.Handle)

	users := protected.Group("/auth/users", auth.RequireRole(domain.RoleManagement))
	users.Post("/", cfg.Auth.Register)
	users.Get("/", cfg.Auth.ListUsers)

	requests := protected.Group("/requests")
	requests.Post("/", cfg.Requests.Create)
	requests.Get("/", cfg.Requests.List)
	requests.Get("/:code", cfg.Requests.Get)
	requests.Get("/:code/transitions", cfg.Requests.AllowedTransitions)
	requests.Post("/:code/transitions", cfg.Requests.Transition)
	requests.Post("/:code/transfer", cfg.Requests.Transfer)
	requests.Get("/:code/project", cfg.Projects.ForRequest)
	requests.Get("/:code/comments", cfg.Comments.ListFor(domain.EntityRequest))
	requests.Post("/:code/comments", cfg.Comments.AppendTo(domain.EntityRequest))

	tickets := protected.Group("/tickets")
	tickets.Post("/", cfg.Tickets.CreateTicket)
	tickets.Get("/", cfg.Tickets.ListTickets)
	tickets.Get("/:code", cfg.Tickets.GetTicket)
	tickets.Get("/:code/transitions", cfg.Tickets.AllowedTransitions)
	tickets.Post("/:code/transitions", cfg.Tickets.Transition)
	tickets.Post("/:code/assign", cfg.Tickets.Assign)
	tickets.Post("/:code/transfer", cfg.Tickets.Transfer)
	tickets.Get("/:code/comments", cfg.Comments.ListFor(domain.EntityTicket))
	tickets.Post("/:code/comments", cfg.Comments.AppendTo(domain.EntityTicket))

	projects := protected.Group("/projects")
	projects.Get("/:id", cfg.Projects.Get)
	projects.Get("/:id/progress", cfg.Projects.Progress)
	projects.Post("/:id/pause", cfg.Projects.Pause)
	projects.Post("/:id/resume", cfg.Projects.Resume)
	projects.Get("/:id/pauses", cfg.Projects.Pauses)
	projects.Get("/:id/tasks", cfg.Projects.ListTasks)
	projects.Post("/:id/tasks", cfg.Projects.AddTask)
	projects.Patch("/:id/tasks/:taskID/progress", cfg.Projects.SetTaskProgress)

	protected.Get("/transfers/:code", cfg.Transfers.Lookup)
}
