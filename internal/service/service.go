package service

import (
	"context"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/deskflow/request-portal/internal/domain"
	"github.com/deskflow/request-portal/internal/events"
	"github.com/deskflow/request-portal/internal/repository"
	"github.com/deskflow/request-portal/internal/workflow"
	apperrors "github.com/deskflow/request-portal/pkg/util/errorutil"
)

// Clock returns the current time. Tests swap it for a fixed instant.
type Clock func() time.Time

// Dependencies bundles what every lifecycle service needs.
type Dependencies struct {
	Store      repository.Store
	Machine    *workflow.Machine
	Dispatcher events.Dispatcher
	Logger     *zap.Logger
	Clock      Clock
}

func (d Dependencies) withDefaults() Dependencies {
	if d.Machine == nil {
		d.Machine = workflow.NewMachine()
	}
	if d.Logger == nil {
		d.Logger = zap.NewNop()
	}
	if d.Clock == nil {
		d.Clock = func() time.Time { return time.Now().UTC() }
	}
	return d
}

var validate = validator.New()

// validateStruct runs struct tags and reports failing fields as VALIDATION_FAILED details.
func validateStruct(v any) error {
	err := validate.Struct(v)
	if err == nil {
		return nil
	}
	fieldErrs, ok := err.(validator.ValidationErrors)
	if !ok {
		return apperrors.NewValidationError(err.Error(), nil)
	}
	details := make(map[string]any, len(fieldErrs))
	for _, fe := range fieldErrs {
		details[fe.Namespace()] = fe.Tag()
	}
	return apperrors.NewValidationError("invalid input", details)
}

func generateCode(prefix string) string {
	return prefix + strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", "")[:8])
}

// notFound turns a missing row into NOT_FOUND for resource.
func notFound(err error, resource, key string) error {
	if err != nil && apperrors.IsNotFound(err) {
		return apperrors.NewNotFound(resource, map[string]any{"key": key})
	}
	return err
}

func systemComment(entity domain.EntityRef, content string, at time.Time) *domain.Comment {
	return &domain.Comment{
		Entity:      entity,
		Type:        domain.CommentSystem,
		AuthorLabel: "sistema",
		Content:     content,
		CreatedAt:   at,
	}
}

func publishEvent(ctx context.Context, dispatcher events.Dispatcher, logger *zap.Logger, event events.Event) {
	if dispatcher == nil {
		return
	}
	if event.ID == "" {
		event.ID = uuid.NewString()
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now().UTC()
	}
	if err := dispatcher.Publish(ctx, event); err != nil {
		logger.Warn("event handler failed",
			zap.String("event_type", string(event.Type)),
			zap.String("entity_code", event.Entity.Code),
			zap.Error(err))
	}
}

func stateChangedEvent(change workflow.Change, reason string) events.Event {
	return events.Event{
		Type:      events.EventStateChanged,
		Entity:    change.Entity,
		Actor:     events.ActorOf(change.Actor),
		Timestamp: change.At,
		Payload: events.StateChangedPayload{
			From:   change.From,
			To:     change.To,
			Reason: reason,
		},
	}
}

func stringPreview(body string, max int) string {
	body = strings.TrimSpace(body)
	if len(body) <= max {
		return body
	}
	if max <= 3 {
		return body[:max]
	}
	return body[:max-3] + "..."
}

func saveAttachments(ctx context.Context, repos repository.Repositories, entity domain.EntityRef, attachments []domain.AttachmentRef, now time.Time) ([]domain.AttachmentRef, error) {
	saved := make([]domain.AttachmentRef, 0, len(attachments))
	for _, att := range attachments {
		att.ID = ""
		if att.CreatedAt.IsZero() {
			att.CreatedAt = now
		}
		if err := repos.Attachments.Create(ctx, entity, &att); err != nil {
			return nil, err
		}
		saved = append(saved, att)
	}
	return saved, nil
}
