package workflow

import (
	"fmt"
	"strings"
	"time"

	"github.com/deskflow/request-portal/internal/domain"
	apperrors "github.com/deskflow/request-portal/pkg/util/errorutil"
)

// DefaultTitleFormat prefixes a transferred title with the origin code.
const DefaultTitleFormat = "[%s] %s"

// TransferPlan is the outcome of planning a transfer: the source has already been
// moved to its transferred state; the destination awaits a code.
type TransferPlan struct {
	Change Change
	Motive string
}

// PlanRequestTransfer validates and applies the transfer edge on a request and returns
// the ticket to create, without ID or code. Only fault reports can be transferred.
func (m *Machine) PlanRequestTransfer(req *domain.Request, motive string, actor domain.Actor, titleFormat string, now time.Time) (*domain.Ticket, TransferPlan, error) {
	if req.State == domain.RequestStateTransferred {
		return nil, TransferPlan{}, apperrors.ErrAlreadyTransferred.WithDetails(map[string]any{"code": req.Code})
	}
	if req.Kind != domain.KindFaultReport {
		return nil, TransferPlan{}, apperrors.ErrTransferNotAllowed.WithDetails(map[string]any{
			"code": req.Code, "kind": string(req.Kind),
		})
	}
	if err := requireMotive(motive); err != nil {
		return nil, TransferPlan{}, err
	}
	if err := m.checkRequest(req, domain.RequestStateTransferred, actor, "", true); err != nil {
		return nil, TransferPlan{}, err
	}

	ticket := &domain.Ticket{
		Title:       transferTitle(titleFormat, req.Code, req.Title),
		Description: req.Details.ProblemSummary(),
		Category:    domain.TicketCategoryGeneral,
		Priority:    req.Priority,
		State:       domain.TicketStateOpen,
		Attachments: copyAttachments(req.Attachments),
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if req.Details.Requester != nil {
		ticket.Requester = *req.Details.Requester
	}

	change := applyRequest(req, domain.RequestStateTransferred, actor, now)
	return ticket, TransferPlan{Change: change, Motive: strings.TrimSpace(motive)}, nil
}

// PlanTicketTransfer validates and applies the transfer edge on a ticket and returns
// the request to create.
func (m *Machine) PlanTicketTransfer(ticket *domain.Ticket, motive string, actor domain.Actor, titleFormat string, now time.Time) (*domain.Request, TransferPlan, error) {
	if ticket.State == domain.TicketStateTransferred {
		return nil, TransferPlan{}, apperrors.ErrAlreadyTransferred.WithDetails(map[string]any{"code": ticket.Code})
	}
	if err := requireMotive(motive); err != nil {
		return nil, TransferPlan{}, err
	}
	if err := m.tickets.check(ticket.State, domain.TicketStateTransferred, actor, "", true); err != nil {
		return nil, TransferPlan{}, err
	}

	requester := ticket.Requester
	req := &domain.Request{
		Title:    transferTitle(titleFormat, ticket.Code, ticket.Title),
		Kind:     domain.KindTransferredFromTI,
		State:    domain.RequestStatePendingEvaluation,
		Priority: ticket.Priority,
		Details: domain.RequestDetails{
			Requester: &requester,
			Problem:   &domain.ProblemStatement{Situation: ticket.Description},
			Origin: &domain.TransferOrigin{
				EntityType: domain.EntityTicket,
				Code:       ticket.Code,
				Motive:     strings.TrimSpace(motive),
			},
		},
		Attachments: copyAttachments(ticket.Attachments),
		CreatedBy:   actor.ID,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	change := applyTicket(ticket, domain.TicketStateTransferred, actor, now)
	return req, TransferPlan{Change: change, Motive: strings.TrimSpace(motive)}, nil
}

// TransferNote renders the system comment written on both ends of a transfer.
func TransferNote(origin, destination domain.EntityRef, motive string) string {
	return fmt.Sprintf("transferred from %s %s to %s %s: %s",
		origin.Type, origin.Code, destination.Type, destination.Code, motive)
}

func requireMotive(motive string) error {
	if strings.TrimSpace(motive) == "" {
		return apperrors.NewValidationError("transfer motive required", nil)
	}
	return nil
}

func transferTitle(format, originCode, title string) string {
	if format == "" || strings.Count(format, "%s") != 2 {
		format = DefaultTitleFormat
	}
	return fmt.Sprintf(format, originCode, strings.TrimSpace(title))
}

func copyAttachments(in []domain.AttachmentRef) []domain.AttachmentRef {
	if len(in) == 0 {
		return nil
	}
	out := make([]domain.AttachmentRef, len(in))
	for i, att := range in {
		out[i] = domain.AttachmentRef{
			StorageKey: att.StorageKey,
			FileName:   att.FileName,
			MimeType:   att.MimeType,
			SizeBytes:  att.SizeBytes,
		}
	}
	return out
}
