package dto

import (
	"time"

	"github.com/deskflow/request-portal/internal/domain"
)

// CreateTicketRequest payload.
type CreateTicketRequest struct {
	Title       string                `json:"title" validate:"required,max=200"`
	Description string                `json:"description" validate:"required"`
	Category    domain.TicketCategory `json:"category"`
	Priority    domain.Priority       `json:"priority"`
	Requester   *domain.Person        `json:"requester" validate:"omitempty"`
	Attachments []AttachmentInput     `json:"attachments" validate:"dive"`
}

// TicketTransitionRequest payload.
type TicketTransitionRequest struct {
	To         domain.TicketState `json:"to" validate:"required"`
	Resolution string             `json:"resolution"`
	Reason     string             `json:"reason"`
	Version    *int               `json:"version"`
}

// AssignTicketRequest payload; a null assignee clears the assignment.
type AssignTicketRequest struct {
	AssigneeID *string `json:"assignee_id"`
}

// TicketResponse represents a ticket.
type TicketResponse struct {
	ID          string                `json:"id"`
	Code        string                `json:"code"`
	Title       string                `json:"title"`
	Description string                `json:"description"`
	Category    domain.TicketCategory `json:"category"`
	Priority    domain.Priority       `json:"priority"`
	State       domain.TicketState    `json:"state"`
	Requester   domain.Person         `json:"requester"`
	AssigneeID  *string               `json:"assignee_id"`
	Resolution  string                `json:"resolution,omitempty"`
	Attachments []AttachmentResponse  `json:"attachments"`
	Version     int                   `json:"version"`
	CreatedAt   time.Time             `json:"created_at"`
	UpdatedAt   time.Time             `json:"updated_at"`
}

// NewTicketResponse maps a ticket.
func NewTicketResponse(ticket *domain.Ticket) TicketResponse {
	return TicketResponse{
		ID:          ticket.ID,
		Code:        ticket.Code,
		Title:       ticket.Title,
		Description: ticket.Description,
		Category:    ticket.Category,
		Priority:    ticket.Priority,
		State:       ticket.State,
		Requester:   ticket.Requester,
		AssigneeID:  ticket.AssigneeID,
		Resolution:  ticket.Resolution,
		Attachments: NewAttachmentResponses(ticket.Attachments),
		Version:     ticket.Version,
		CreatedAt:   ticket.CreatedAt,
		UpdatedAt:   ticket.UpdatedAt,
	}
}
