package service

import (
	"context"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/deskflow/request-portal/internal/domain"
	"github.com/deskflow/request-portal/internal/events"
	"github.com/deskflow/request-portal/internal/repository"
	"github.com/deskflow/request-portal/internal/workflow"
	apperrors "github.com/deskflow/request-portal/pkg/util/errorutil"
)

// RequestService coordinates the request lifecycle.
type RequestService struct {
	deps     Dependencies
	projects *ProjectService
}

// RequestCreateInput describes request creation payload.
type RequestCreateInput struct {
	Title       string             `validate:"required,max=200"`
	Kind        domain.RequestKind `validate:"required"`
	Priority    domain.Priority
	Details     domain.RequestDetails
	Attachments []domain.AttachmentRef
}

// RequestListFilter describes list filters.
type RequestListFilter struct {
	Kinds      []domain.RequestKind
	States     []domain.RequestState
	SearchTerm *string
	Limit      int
	Offset     int
}

// TransitionInput carries the target state and the data some targets need.
type TransitionInput struct {
	To domain.RequestState
	// Reason is stored as rejection reason on discard/reject and as pause reason on pause.
	Reason string
	// Version, when set, must match the stored version.
	Version *int
	// Scheduling data, required when approving into agendado.
	PlannedStart *time.Time
	PlannedEnd   *time.Time
	LeadID       string
}

// NewRequestService constructs the service.
func NewRequestService(deps Dependencies, projects *ProjectService) *RequestService {
	return &RequestService{deps: deps.withDefaults(), projects: projects}
}

// Create registers a new request in pendiente_evaluacion_nt.
func (s *RequestService) Create(ctx context.Context, actor domain.Actor, input RequestCreateInput) (*domain.Request, error) {
	input.Title = strings.TrimSpace(input.Title)
	if err := validateStruct(input); err != nil {
		return nil, err
	}
	if !input.Kind.Submittable() {
		return nil, apperrors.NewValidationError("kind cannot be submitted directly", map[string]any{"kind": string(input.Kind)})
	}
	if input.Priority == "" {
		input.Priority = domain.PriorityMedium
	}
	if !input.Priority.Valid() {
		return nil, apperrors.NewValidationError("unknown priority", map[string]any{"priority": string(input.Priority)})
	}
	if missing := input.Details.MissingSections(input.Kind); len(missing) > 0 {
		return nil, apperrors.NewValidationError("missing required sections", map[string]any{"missing": missing})
	}
	if err := validateStruct(input.Details); err != nil {
		return nil, err
	}

	now := s.deps.Clock()
	req := &domain.Request{
		Code:      generateCode("SOL-"),
		Title:     input.Title,
		Kind:      input.Kind,
		State:     domain.RequestStatePendingEvaluation,
		Priority:  input.Priority,
		Details:   input.Details,
		CreatedBy: actor.ID,
		CreatedAt: now,
		UpdatedAt: now,
	}
	ref := domain.EntityRef{Type: domain.EntityRequest, Code: req.Code}

	err := s.deps.Store.WithinTx(ctx, func(repos repository.Repositories) error {
		if err := repos.Requests.Create(ctx, req); err != nil {
			return err
		}
		saved, err := saveAttachments(ctx, repos, ref, input.Attachments, now)
		if err != nil {
			return err
		}
		req.Attachments = saved
		return repos.Comments.Create(ctx, systemComment(ref, "request created", now))
	})
	if err != nil {
		return nil, err
	}

	s.deps.Logger.Info("request created",
		zap.String("code", req.Code),
		zap.String("kind", string(req.Kind)),
		zap.String("actor_id", actor.ID))
	publishEvent(ctx, s.deps.Dispatcher, s.deps.Logger, events.Event{
		Type:      events.EventRequestCreated,
		Entity:    ref,
		Actor:     events.ActorOf(actor),
		Timestamp: now,
		Payload:   events.CreatedPayload{Title: req.Title, Kind: string(req.Kind), Priority: req.Priority},
	})
	return req, nil
}

// Get returns a request with its attachments.
func (s *RequestService) Get(ctx context.Context, code string) (*domain.Request, error) {
	repos := s.deps.Store.Repos()
	req, err := repos.Requests.GetByCode(ctx, code)
	if err != nil {
		return nil, notFound(err, "request", code)
	}
	attachments, err := repos.Attachments.ListByEntity(ctx, domain.EntityRef{Type: domain.EntityRequest, Code: code})
	if err != nil {
		return nil, err
	}
	req.Attachments = attachments
	return req, nil
}

// List returns requests matching filter, most recently updated first.
func (s *RequestService) List(ctx context.Context, filter RequestListFilter) ([]domain.Request, error) {
	return s.deps.Store.Repos().Requests.List(ctx, repository.RequestFilter{
		Kinds:      filter.Kinds,
		States:     filter.States,
		SearchTerm: filter.SearchTerm,
		Limit:      filter.Limit,
		Offset:     filter.Offset,
	})
}

// AllowedTransitions lists the states actor may move the request to.
func (s *RequestService) AllowedTransitions(ctx context.Context, actor domain.Actor, code string) ([]domain.RequestState, error) {
	repos := s.deps.Store.Repos()
	req, err := repos.Requests.GetByCode(ctx, code)
	if err != nil {
		return nil, notFound(err, "request", code)
	}
	leadID, err := s.leadOf(ctx, repos, code)
	if err != nil {
		return nil, err
	}
	return s.deps.Machine.AllowedRequestTargets(req, actor, leadID), nil
}

// Transition moves a request along its workflow. Development-phase targets are
// applied to the project as well: approval creates it, pause and resume go
// through the pause accountant and the remaining targets mirror onto it.
func (s *RequestService) Transition(ctx context.Context, actor domain.Actor, code string, input TransitionInput) (*domain.Request, error) {
	var (
		req     *domain.Request
		changes []workflow.Change
		emitted []events.Event
	)
	now := s.deps.Clock()

	err := s.deps.Store.WithinTx(ctx, func(repos repository.Repositories) error {
		var err error
		req, err = repos.Requests.GetByCode(ctx, code)
		if err != nil {
			return notFound(err, "request", code)
		}
		if input.Version != nil && *input.Version != req.Version {
			return apperrors.ErrConcurrentModification.WithDetails(map[string]any{"code": code, "version": req.Version})
		}
		project, err := repos.Projects.GetByRequestCode(ctx, code)
		if err != nil && !apperrors.IsNotFound(err) {
			return err
		}
		if err != nil {
			project = nil
		}

		switch {
		case input.To == domain.RequestStatePaused && project != nil:
			ev, err := s.projects.pauseWithin(ctx, repos, project, req, input.Reason, actor, now)
			if err != nil {
				return err
			}
			emitted = append(emitted, ev...)
			return nil
		case req.State == domain.RequestStatePaused && input.To == domain.RequestStateInDevelopment && project != nil:
			ev, err := s.projects.resumeWithin(ctx, repos, project, req, actor, now)
			if err != nil {
				return err
			}
			emitted = append(emitted, ev...)
			return nil
		}

		leadID := ""
		if project != nil {
			leadID = project.LeadID
		}
		change, err := s.deps.Machine.TransitionRequest(req, input.To, actor, leadID, now)
		if err != nil {
			return err
		}

		switch input.To {
		case domain.RequestStateScheduled:
			if err := s.scheduleProject(ctx, repos, req, input, now); err != nil {
				return err
			}
		case domain.RequestStateInDevelopment, domain.RequestStateCompleted, domain.RequestStateCancelled:
			if project != nil {
				if err := s.mirrorProject(ctx, repos, project, input.To, actor, now); err != nil {
					return err
				}
			}
		case domain.RequestStateRejected, domain.RequestStateDiscarded:
			if reason := strings.TrimSpace(input.Reason); reason != "" {
				req.RejectionReason = &reason
			}
		}

		if err := repos.Requests.Update(ctx, req); err != nil {
			return err
		}
		note := change.Note()
		if reason := strings.TrimSpace(input.Reason); reason != "" {
			note += ": " + reason
		}
		if err := repos.Comments.Create(ctx, systemComment(change.Entity, note, now)); err != nil {
			return err
		}
		changes = append(changes, change)
		return nil
	})
	if err != nil {
		return nil, err
	}

	for _, change := range changes {
		s.deps.Logger.Info("request transitioned",
			zap.String("code", change.Entity.Code),
			zap.String("from", change.From),
			zap.String("to", change.To),
			zap.String("actor_id", actor.ID))
		publishEvent(ctx, s.deps.Dispatcher, s.deps.Logger, stateChangedEvent(change, strings.TrimSpace(input.Reason)))
	}
	for _, ev := range emitted {
		publishEvent(ctx, s.deps.Dispatcher, s.deps.Logger, ev)
	}
	return req, nil
}

func (s *RequestService) scheduleProject(ctx context.Context, repos repository.Repositories, req *domain.Request, input TransitionInput, now time.Time) error {
	if input.PlannedStart == nil || input.PlannedEnd == nil || strings.TrimSpace(input.LeadID) == "" {
		return apperrors.NewValidationError("planned start, planned end and lead are required to schedule", nil)
	}
	if input.PlannedEnd.Before(*input.PlannedStart) {
		return apperrors.NewValidationError("planned end precedes planned start", nil)
	}
	lead, err := repos.Users.GetByID(ctx, input.LeadID)
	if err != nil {
		if apperrors.IsNotFound(err) {
			return apperrors.NewValidationError("lead not found", map[string]any{"lead_id": input.LeadID})
		}
		return err
	}
	if lead.Role != domain.RoleNT || !lead.Active {
		return apperrors.NewValidationError("lead must be an active NT member", map[string]any{"lead_id": input.LeadID})
	}

	project := &domain.Project{
		Code:         generateCode("PRY-"),
		RequestCode:  req.Code,
		Title:        req.Title,
		LeadID:       lead.ID,
		State:        domain.ProjectStateScheduled,
		PlannedStart: input.PlannedStart.UTC(),
		PlannedEnd:   input.PlannedEnd.UTC(),
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	return repos.Projects.Create(ctx, project)
}

func (s *RequestService) mirrorProject(ctx context.Context, repos repository.Repositories, project *domain.Project, to domain.RequestState, actor domain.Actor, now time.Time) error {
	if _, err := s.deps.Machine.TransitionProject(project, domain.ProjectState(to), actor, now); err != nil {
		return err
	}
	if to == domain.RequestStateInDevelopment && project.DevelopmentStart == nil {
		started := now
		project.DevelopmentStart = &started
	}
	return repos.Projects.Update(ctx, project)
}

func (s *RequestService) leadOf(ctx context.Context, repos repository.Repositories, code string) (string, error) {
	project, err := repos.Projects.GetByRequestCode(ctx, code)
	if err != nil {
		if apperrors.IsNotFound(err) {
			return "", nil
		}
		return "", err
	}
	return project.LeadID, nil
}
