package domain

import "time"

// EntityType names the top-level entities comments and transfers refer to.
type EntityType string

const (
	EntityRequest EntityType = "solicitud"
	EntityTicket  EntityType = "ticket"
)

// EntityRef addresses a request or ticket by code.
type EntityRef struct {
	Type EntityType `json:"type"`
	Code string     `json:"code"`
}

// CommentType differentiates the entries of an entity's log.
type CommentType string

const (
	CommentInternal      CommentType = "interna"
	CommentPublic        CommentType = "publica"
	CommentCommunication CommentType = "comunicacion"
	CommentResponse      CommentType = "respuesta"
	CommentSystem        CommentType = "sistema"
)

// Valid reports whether t is a known comment type.
func (t CommentType) Valid() bool {
	switch t {
	case CommentInternal, CommentPublic, CommentCommunication, CommentResponse, CommentSystem:
		return true
	}
	return false
}

// Comment is an append-only entry on a request or ticket.
type Comment struct {
	ID          string
	Entity      EntityRef
	Type        CommentType
	AuthorID    *string
	AuthorLabel string
	Recipient   string
	Content     string
	CreatedAt   time.Time
}

// ResponseToken lets an external recipient answer a communication exactly once.
type ResponseToken struct {
	ID        string
	Token     string
	Entity    EntityRef
	CommentID string
	Recipient string
	ExpiresAt time.Time
	UsedAt    *time.Time
	CreatedAt time.Time
}

// AttachmentRef points at a stored file. Only identifiers travel through the core.
type AttachmentRef struct {
	ID         string    `json:"id"`
	StorageKey string    `json:"storage_key"`
	FileName   string    `json:"file_name"`
	MimeType   string    `json:"mime_type"`
	SizeBytes  int64     `json:"size_bytes"`
	CreatedAt  time.Time `json:"created_at"`
}
