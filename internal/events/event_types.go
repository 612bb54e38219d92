package events

import (
	"time"

	"github.com/deskflow/request-portal/internal/domain"
)

// EventType enumerates supported event identifiers.
type EventType string

const (
	EventRequestCreated    EventType = "request_created"
	EventTicketCreated     EventType = "ticket_created"
	EventStateChanged      EventType = "state_changed"
	EventTransferred       EventType = "transferred"
	EventProjectPaused     EventType = "project_paused"
	EventProjectResumed    EventType = "project_resumed"
	EventCommentAdded      EventType = "comment_added"
	EventCommunicationSent EventType = "communication_sent"
	EventResponseReceived  EventType = "response_received"
	EventTicketAssigned    EventType = "ticket_assigned"
)

// AllEventTypes lists every type, in the order handlers are registered.
var AllEventTypes = []EventType{
	EventRequestCreated,
	EventTicketCreated,
	EventStateChanged,
	EventTransferred,
	EventProjectPaused,
	EventProjectResumed,
	EventCommentAdded,
	EventCommunicationSent,
	EventResponseReceived,
	EventTicketAssigned,
}

// Actor encapsulates actor metadata for an event. Empty for external responders.
type Actor struct {
	ID   string      `json:"id,omitempty"`
	Role domain.Role `json:"role,omitempty"`
}

// ActorOf converts a domain actor.
func ActorOf(a domain.Actor) Actor {
	return Actor{ID: a.ID, Role: a.Role}
}

// Event represents a domain event emitted by services after their transaction commits.
type Event struct {
	ID        string           `json:"id"`
	Type      EventType        `json:"type"`
	Entity    domain.EntityRef `json:"entity"`
	Actor     Actor            `json:"actor"`
	Timestamp time.Time        `json:"timestamp"`
	Payload   any              `json:"payload"`
}

// CreatedPayload accompanies request_created and ticket_created.
type CreatedPayload struct {
	Title    string          `json:"title"`
	Kind     string          `json:"kind,omitempty"`
	Priority domain.Priority `json:"priority"`
}

// StateChangedPayload payload.
type StateChangedPayload struct {
	From   string `json:"from"`
	To     string `json:"to"`
	Reason string `json:"reason,omitempty"`
}

// TransferredPayload payload.
type TransferredPayload struct {
	Destination domain.EntityRef `json:"destination"`
	Motive      string           `json:"motive"`
}

// PausePayload accompanies project_paused and project_resumed.
type PausePayload struct {
	ProjectID  string `json:"project_id"`
	Reason     string `json:"reason,omitempty"`
	AddedDays  int    `json:"added_days,omitempty"`
	PausedDays int    `json:"paused_days"`
}

// CommentPayload accompanies comment_added, communication_sent and response_received.
type CommentPayload struct {
	CommentID   string             `json:"comment_id"`
	CommentType domain.CommentType `json:"comment_type"`
	Recipient   string             `json:"recipient,omitempty"`
	Preview     string             `json:"preview"`
	// ResponseToken is set on communications so mailers can build the reply link.
	ResponseToken string `json:"response_token,omitempty"`
}

// AssignedPayload payload.
type AssignedPayload struct {
	AssigneeID *string `json:"assignee_id,omitempty"`
}
