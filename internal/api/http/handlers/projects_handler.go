package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/deskflow/request-portal/internal/api/dto"
	"github.com/deskflow/request-portal/internal/auth"
	"github.com/deskflow/request-portal/internal/service"
)

// ProjectsHandler exposes project scheduling endpoints.
type ProjectsHandler struct {
	service *service.ProjectService
}

// NewProjectsHandler constructs handler.
func NewProjectsHandler(projectService *service.ProjectService) *ProjectsHandler {
	return &ProjectsHandler{service: projectService}
}

// Get GET /projects/:id.
func (h *ProjectsHandler) Get(c *fiber.Ctx) error {
	project, err := h.service.Get(c.UserContext(), c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.NewProjectResponse(project)})
}

// ForRequest GET /requests/:code/project.
func (h *ProjectsHandler) ForRequest(c *fiber.Ctx) error {
	project, err := h.service.GetForRequest(c.UserContext(), c.Params("code"))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.NewProjectResponse(project)})
}

// Progress GET /projects/:id/progress.
func (h *ProjectsHandler) Progress(c *fiber.Ctx) error {
	progress, err := h.service.Progress(c.UserContext(), c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": progress})
}

// Pause POST /projects/:id/pause.
func (h *ProjectsHandler) Pause(c *fiber.Ctx) error {
	actor, err := auth.ActorFromContext(c)
	if err != nil {
		return err
	}
	var req dto.PauseRequest
	if err := bind(c, &req); err != nil {
		return err
	}
	project, err := h.service.Pause(c.UserContext(), actor, c.Params("id"), req.Reason)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.NewProjectResponse(project)})
}

// Resume POST /projects/:id/resume.
func (h *ProjectsHandler) Resume(c *fiber.Ctx) error {
	actor, err := auth.ActorFromContext(c)
	if err != nil {
		return err
	}
	project, err := h.service.Resume(c.UserContext(), actor, c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.NewProjectResponse(project)})
}

// Pauses GET /projects/:id/pauses.
func (h *ProjectsHandler) Pauses(c *fiber.Ctx) error {
	pauses, err := h.service.Pauses(c.UserContext(), c.Params("id"))
	if err != nil {
		return err
	}
	items := make([]dto.PauseResponse, 0, len(pauses))
	for _, p := range pauses {
		items = append(items, dto.NewPauseResponse(p))
	}
	return c.JSON(fiber.Map{"data": items})
}

// ListTasks GET /projects/:id/tasks.
func (h *ProjectsHandler) ListTasks(c *fiber.Ctx) error {
	actor, err := auth.ActorFromContext(c)
	if err != nil {
		return err
	}
	tasks, err := h.service.ListTasks(c.UserContext(), actor, c.Params("id"))
	if err != nil {
		return err
	}
	items := make([]dto.TaskResponse, 0, len(tasks))
	for i := range tasks {
		items = append(items, dto.NewTaskResponse(&tasks[i]))
	}
	return c.JSON(fiber.Map{"data": items})
}

// AddTask POST /projects/:id/tasks.
func (h *ProjectsHandler) AddTask(c *fiber.Ctx) error {
	actor, err := auth.ActorFromContext(c)
	if err != nil {
		return err
	}
	var req dto.CreateTaskRequest
	if err := bind(c, &req); err != nil {
		return err
	}
	task, err := h.service.AddTask(c.UserContext(), actor, c.Params("id"), service.TaskInput{
		Phase:        req.Phase,
		Name:         req.Name,
		AssigneeID:   req.AssigneeID,
		AssigneeIDs:  req.AssigneeIDs,
		PlannedStart: req.PlannedStart,
		PlannedEnd:   req.PlannedEnd,
		DurationDays: req.DurationDays,
	})
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"data": dto.NewTaskResponse(task)})
}

// SetTaskProgress PATCH /projects/:id/tasks/:taskID/progress.
func (h *ProjectsHandler) SetTaskProgress(c *fiber.Ctx) error {
	actor, err := auth.ActorFromContext(c)
	if err != nil {
		return err
	}
	var req dto.TaskProgressRequest
	if err := bind(c, &req); err != nil {
		return err
	}
	task, err := h.service.SetTaskProgress(c.UserContext(), actor, c.Params("id"), c.Params("taskID"), *req.Completion)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.NewTaskResponse(task)})
}
