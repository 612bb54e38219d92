package service

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/deskflow/request-portal/internal/domain"
	"github.com/deskflow/request-portal/internal/events"
	"github.com/deskflow/request-portal/internal/repository"
	apperrors "github.com/deskflow/request-portal/pkg/util/errorutil"
)

const previewLength = 140

// CommentService appends to and reads the log of a request or ticket.
type CommentService struct {
	deps     Dependencies
	tokenTTL time.Duration
}

// CommentInput describes a staff-authored comment.
type CommentInput struct {
	Type    domain.CommentType `validate:"required"`
	Content string             `validate:"required,max=10000"`
	// Recipient is the email address a comunicacion is sent to.
	Recipient string
}

// CommentResult is the stored comment plus the response token issued for communications.
type CommentResult struct {
	Comment *domain.Comment
	Token   *domain.ResponseToken
}

// NewCommentService constructs the service. tokenTTL bounds how long a recipient may answer.
func NewCommentService(deps Dependencies, tokenTTL time.Duration) *CommentService {
	if tokenTTL <= 0 {
		tokenTTL = 72 * time.Hour
	}
	return &CommentService{deps: deps.withDefaults(), tokenTTL: tokenTTL}
}

// Append adds an interna, publica or comunicacion comment authored by actor.
func (s *CommentService) Append(ctx context.Context, actor domain.Actor, entity domain.EntityRef, input CommentInput) (*CommentResult, error) {
	input.Content = strings.TrimSpace(input.Content)
	input.Recipient = strings.TrimSpace(input.Recipient)
	if err := validateStruct(input); err != nil {
		return nil, err
	}
	switch input.Type {
	case domain.CommentInternal, domain.CommentPublic:
	case domain.CommentCommunication:
		if owner := owningRole(entity.Type); actor.Role != owner {
			return nil, apperrors.NewForbidden("only the owning department can send communications")
		}
		if err := validate.Var(input.Recipient, "required,email"); err != nil {
			return nil, apperrors.NewValidationError("valid recipient email required", map[string]any{"recipient": input.Recipient})
		}
	case domain.CommentSystem, domain.CommentResponse:
		return nil, apperrors.NewValidationError("comment type is reserved", map[string]any{"type": string(input.Type)})
	default:
		return nil, apperrors.NewValidationError("unknown comment type", map[string]any{"type": string(input.Type)})
	}

	now := s.deps.Clock()
	authorID := actor.ID
	comment := &domain.Comment{
		Entity:    entity,
		Type:      input.Type,
		AuthorID:  &authorID,
		Content:   input.Content,
		CreatedAt: now,
	}
	result := &CommentResult{Comment: comment}

	err := s.deps.Store.WithinTx(ctx, func(repos repository.Repositories) error {
		author, err := repos.Users.GetByID(ctx, actor.ID)
		if err != nil && !apperrors.IsNotFound(err) {
			return err
		}
		if author != nil {
			comment.AuthorLabel = author.Name
		}
		if err := ensureEntityExists(ctx, repos, entity); err != nil {
			return err
		}
		if input.Type == domain.CommentCommunication {
			comment.Recipient = input.Recipient
		}
		if err := repos.Comments.Create(ctx, comment); err != nil {
			return err
		}
		if input.Type != domain.CommentCommunication {
			return nil
		}
		token := &domain.ResponseToken{
			Token:     uuid.NewString(),
			Entity:    entity,
			CommentID: comment.ID,
			Recipient: input.Recipient,
			ExpiresAt: now.Add(s.tokenTTL),
			CreatedAt: now,
		}
		if err := repos.ResponseTokens.Create(ctx, token); err != nil {
			return err
		}
		result.Token = token
		return nil
	})
	if err != nil {
		return nil, err
	}

	payload := events.CommentPayload{
		CommentID:   comment.ID,
		CommentType: comment.Type,
		Recipient:   comment.Recipient,
		Preview:     stringPreview(comment.Content, previewLength),
	}
	eventType := events.EventCommentAdded
	if result.Token != nil {
		eventType = events.EventCommunicationSent
		payload.ResponseToken = result.Token.Token
		s.deps.Logger.Info("communication sent",
			zap.String("entity_code", entity.Code),
			zap.String("comment_id", comment.ID))
	}
	publishEvent(ctx, s.deps.Dispatcher, s.deps.Logger, events.Event{
		Type:      eventType,
		Entity:    entity,
		Actor:     events.ActorOf(actor),
		Timestamp: now,
		Payload:   payload,
	})
	return result, nil
}

// Respond records an external answer to a communication. The token is consumed
// in the same unit of work as the respuesta comment.
func (s *CommentService) Respond(ctx context.Context, token, authorLabel, content string) (*domain.Comment, error) {
	content = strings.TrimSpace(content)
	if content == "" {
		return nil, apperrors.NewValidationError("response content required", nil)
	}
	now := s.deps.Clock()
	var comment *domain.Comment

	err := s.deps.Store.WithinTx(ctx, func(repos repository.Repositories) error {
		stored, err := repos.ResponseTokens.GetByToken(ctx, token)
		if err != nil {
			return notFound(err, "response token", token)
		}
		if stored.UsedAt != nil {
			return apperrors.ErrTokenAlreadyUsed
		}
		if !now.Before(stored.ExpiresAt) {
			return apperrors.ErrTokenExpired.WithDetails(map[string]any{"expires_at": stored.ExpiresAt})
		}
		if err := repos.ResponseTokens.MarkUsed(ctx, stored.ID, now); err != nil {
			return err
		}

		label := strings.TrimSpace(authorLabel)
		if label == "" {
			label = stored.Recipient
		}
		comment = &domain.Comment{
			Entity:      stored.Entity,
			Type:        domain.CommentResponse,
			AuthorLabel: label,
			Recipient:   stored.Recipient,
			Content:     content,
			CreatedAt:   now,
		}
		return repos.Comments.Create(ctx, comment)
	})
	if err != nil {
		return nil, err
	}

	s.deps.Logger.Info("response received",
		zap.String("entity_code", comment.Entity.Code),
		zap.String("comment_id", comment.ID))
	publishEvent(ctx, s.deps.Dispatcher, s.deps.Logger, events.Event{
		Type:      events.EventResponseReceived,
		Entity:    comment.Entity,
		Timestamp: now,
		Payload: events.CommentPayload{
			CommentID:   comment.ID,
			CommentType: comment.Type,
			Recipient:   comment.Recipient,
			Preview:     stringPreview(comment.Content, previewLength),
		},
	})
	return comment, nil
}

// List returns the log of entity, oldest first.
func (s *CommentService) List(ctx context.Context, entity domain.EntityRef) ([]domain.Comment, error) {
	repos := s.deps.Store.Repos()
	if err := ensureEntityExists(ctx, repos, entity); err != nil {
		return nil, err
	}
	return repos.Comments.ListByEntity(ctx, entity)
}

func owningRole(entity domain.EntityType) domain.Role {
	if entity == domain.EntityTicket {
		return domain.RoleTI
	}
	return domain.RoleNT
}

func ensureEntityExists(ctx context.Context, repos repository.Repositories, entity domain.EntityRef) error {
	var err error
	switch entity.Type {
	case domain.EntityRequest:
		_, err = repos.Requests.GetByCode(ctx, entity.Code)
	case domain.EntityTicket:
		_, err = repos.Tickets.GetByCode(ctx, entity.Code)
	default:
		return apperrors.NewValidationError("unknown entity type", map[string]any{"type": string(entity.Type)})
	}
	return notFound(err, string(entity.Type), entity.Code)
}
