package domain

import "time"

// TicketState enumerates lifecycle states for IT tickets.
type TicketState string

const (
	TicketStateOpen        TicketState = "abierto"
	TicketStateInProgress  TicketState = "en_proceso"
	TicketStateResolved    TicketState = "resuelto"
	TicketStateDiscarded   TicketState = "descartado"
	TicketStateTransferred TicketState = "transferido_nt"
)

// TicketCategory classifies the support need.
type TicketCategory string

const (
	TicketCategoryHardware TicketCategory = "hardware"
	TicketCategorySoftware TicketCategory = "software"
	TicketCategoryNetwork  TicketCategory = "red"
	TicketCategoryAccess   TicketCategory = "acceso"
	TicketCategoryGeneral  TicketCategory = "general"
	TicketCategoryOther    TicketCategory = "otro"
)

// Valid reports whether c is a known category.
func (c TicketCategory) Valid() bool {
	switch c {
	case TicketCategoryHardware, TicketCategorySoftware, TicketCategoryNetwork,
		TicketCategoryAccess, TicketCategoryGeneral, TicketCategoryOther:
		return true
	}
	return false
}

// Ticket is the aggregate for IT support items.
type Ticket struct {
	ID          string
	Code        string
	Title       string
	Description string
	Category    TicketCategory
	Priority    Priority
	State       TicketState
	Requester   Person
	AssigneeID  *string
	Resolution  string
	Attachments []AttachmentRef
	Version     int
	CreatedAt   time.Time
	UpdatedAt   time.Time
}
