package service

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/deskflow/request-portal/internal/domain"
	"github.com/deskflow/request-portal/internal/events"
	"github.com/deskflow/request-portal/internal/repository"
	"github.com/deskflow/request-portal/internal/workflow"
	apperrors "github.com/deskflow/request-portal/pkg/util/errorutil"
)

// TransferService moves fault reports to TI and tickets to NT.
type TransferService struct {
	deps        Dependencies
	titleFormat string
}

// TransferResult describes the outcome of a transfer.
type TransferResult struct {
	Transfer    *domain.Transfer
	Origin      domain.EntityRef
	Destination domain.EntityRef
}

// NewTransferService constructs the service. An empty titleFormat uses workflow.DefaultTitleFormat.
func NewTransferService(deps Dependencies, titleFormat string) *TransferService {
	if titleFormat == "" {
		titleFormat = workflow.DefaultTitleFormat
	}
	return &TransferService{deps: deps.withDefaults(), titleFormat: titleFormat}
}

// TransferRequest turns a fault report into a TI ticket.
func (s *TransferService) TransferRequest(ctx context.Context, actor domain.Actor, code, motive string) (*TransferResult, error) {
	now := s.deps.Clock()
	origin := domain.EntityRef{Type: domain.EntityRequest, Code: code}
	var result *TransferResult

	err := s.deps.Store.WithinTx(ctx, func(repos repository.Repositories) error {
		req, err := repos.Requests.GetByCode(ctx, code)
		if err != nil {
			return notFound(err, "request", code)
		}
		if err := ensureNotTransferred(ctx, repos, code); err != nil {
			return err
		}
		if req.Attachments, err = repos.Attachments.ListByEntity(ctx, origin); err != nil {
			return err
		}

		ticket, plan, err := s.deps.Machine.PlanRequestTransfer(req, motive, actor, s.titleFormat, now)
		if err != nil {
			return err
		}
		ticket.Code = generateCode("TKT-")
		destination := domain.EntityRef{Type: domain.EntityTicket, Code: ticket.Code}
		if err := repos.Tickets.Create(ctx, ticket); err != nil {
			return err
		}
		if ticket.Attachments, err = saveAttachments(ctx, repos, destination, ticket.Attachments, now); err != nil {
			return err
		}
		if err := repos.Requests.Update(ctx, req); err != nil {
			return err
		}

		result, err = s.record(ctx, repos, origin, destination, plan, actor, now)
		return err
	})
	if err != nil {
		return nil, err
	}
	s.announce(ctx, result, actor, now)
	return result, nil
}

// TransferTicket turns a TI ticket into an NT request of kind transferido_desde_ti.
func (s *TransferService) TransferTicket(ctx context.Context, actor domain.Actor, code, motive string) (*TransferResult, error) {
	now := s.deps.Clock()
	origin := domain.EntityRef{Type: domain.EntityTicket, Code: code}
	var result *TransferResult

	err := s.deps.Store.WithinTx(ctx, func(repos repository.Repositories) error {
		ticket, err := repos.Tickets.GetByCode(ctx, code)
		if err != nil {
			return notFound(err, "ticket", code)
		}
		if err := ensureNotTransferred(ctx, repos, code); err != nil {
			return err
		}
		if ticket.Attachments, err = repos.Attachments.ListByEntity(ctx, origin); err != nil {
			return err
		}

		req, plan, err := s.deps.Machine.PlanTicketTransfer(ticket, motive, actor, s.titleFormat, now)
		if err != nil {
			return err
		}
		req.Code = generateCode("SOL-")
		destination := domain.EntityRef{Type: domain.EntityRequest, Code: req.Code}
		if err := repos.Requests.Create(ctx, req); err != nil {
			return err
		}
		if req.Attachments, err = saveAttachments(ctx, repos, destination, req.Attachments, now); err != nil {
			return err
		}
		if err := repos.Tickets.Update(ctx, ticket); err != nil {
			return err
		}

		result, err = s.record(ctx, repos, origin, destination, plan, actor, now)
		return err
	})
	if err != nil {
		return nil, err
	}
	s.announce(ctx, result, actor, now)
	return result, nil
}

// TransferLinks are the transfers touching one entity. An entity created by a
// transfer and later transferred onwards has both.
type TransferLinks struct {
	Incoming *domain.Transfer
	Outgoing *domain.Transfer
}

// Lookup returns the transfers that created code and that moved it away.
// NOT_FOUND when code was never part of a transfer.
func (s *TransferService) Lookup(ctx context.Context, code string) (*TransferLinks, error) {
	repos := s.deps.Store.Repos()
	var links TransferLinks
	var err error
	if links.Incoming, err = optionalTransfer(repos.Transfers.FindByDestination(ctx, code)); err != nil {
		return nil, err
	}
	if links.Outgoing, err = optionalTransfer(repos.Transfers.FindByOrigin(ctx, code)); err != nil {
		return nil, err
	}
	if links.Incoming == nil && links.Outgoing == nil {
		return nil, apperrors.NewNotFound("transfer", map[string]any{"key": code})
	}
	return &links, nil
}

func optionalTransfer(transfer *domain.Transfer, err error) (*domain.Transfer, error) {
	if apperrors.IsNotFound(err) {
		return nil, nil
	}
	return transfer, err
}

func (s *TransferService) record(ctx context.Context, repos repository.Repositories, origin, destination domain.EntityRef, plan workflow.TransferPlan, actor domain.Actor, now time.Time) (*TransferResult, error) {
	note := workflow.TransferNote(origin, destination, plan.Motive)
	if err := repos.Comments.Create(ctx, systemComment(origin, note, now)); err != nil {
		return nil, err
	}
	if err := repos.Comments.Create(ctx, systemComment(destination, note, now)); err != nil {
		return nil, err
	}
	transfer := &domain.Transfer{
		Origin:      origin,
		Destination: destination,
		Motive:      plan.Motive,
		CreatedBy:   actor.ID,
		CreatedAt:   now,
	}
	if err := repos.Transfers.Create(ctx, transfer); err != nil {
		return nil, err
	}
	return &TransferResult{Transfer: transfer, Origin: origin, Destination: destination}, nil
}

func (s *TransferService) announce(ctx context.Context, result *TransferResult, actor domain.Actor, now time.Time) {
	s.deps.Logger.Info("entity transferred",
		zap.String("origin", result.Origin.Code),
		zap.String("destination", result.Destination.Code),
		zap.String("actor_id", actor.ID))
	publishEvent(ctx, s.deps.Dispatcher, s.deps.Logger, events.Event{
		Type:      events.EventTransferred,
		Entity:    result.Origin,
		Actor:     events.ActorOf(actor),
		Timestamp: now,
		Payload:   events.TransferredPayload{Destination: result.Destination, Motive: result.Transfer.Motive},
	})
}

// ensureNotTransferred rejects an origin that already left through a transfer. An entity
// that was itself created by a transfer may still be transferred onwards.
func ensureNotTransferred(ctx context.Context, repos repository.Repositories, code string) error {
	existing, err := optionalTransfer(repos.Transfers.FindByOrigin(ctx, code))
	if err != nil || existing == nil {
		return err
	}
	return apperrors.ErrAlreadyTransferred.WithDetails(map[string]any{
		"code": code, "destination": existing.Destination.Code,
	})
}
