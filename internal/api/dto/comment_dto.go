package dto

import (
	"time"

	"github.com/deskflow/request-portal/internal/domain"
)

// CreateCommentRequest payload.
type CreateCommentRequest struct {
	Type      domain.CommentType `json:"type" validate:"required"`
	Content   string             `json:"content" validate:"required"`
	Recipient string             `json:"recipient" validate:"omitempty,email"`
}

// RespondRequest payload for the public response endpoint.
type RespondRequest struct {
	AuthorLabel string `json:"author_label" validate:"max=120"`
	Content     string `json:"content" validate:"required"`
}

// CommentResponse represents a log entry.
type CommentResponse struct {
	ID          string             `json:"id"`
	Entity      domain.EntityRef   `json:"entity"`
	Type        domain.CommentType `json:"type"`
	AuthorID    *string            `json:"author_id,omitempty"`
	AuthorLabel string             `json:"author_label"`
	Recipient   string             `json:"recipient,omitempty"`
	Content     string             `json:"content"`
	CreatedAt   time.Time          `json:"created_at"`
	// ResponseToken is returned once, when a communication is sent.
	ResponseToken string     `json:"response_token,omitempty"`
	TokenExpires  *time.Time `json:"token_expires_at,omitempty"`
}

// NewCommentResponse maps a comment.
func NewCommentResponse(c *domain.Comment) CommentResponse {
	return CommentResponse{
		ID:          c.ID,
		Entity:      c.Entity,
		Type:        c.Type,
		AuthorID:    c.AuthorID,
		AuthorLabel: c.AuthorLabel,
		Recipient:   c.Recipient,
		Content:     c.Content,
		CreatedAt:   c.CreatedAt,
	}
}
