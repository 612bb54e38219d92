package dto

import (
	"time"

	"github.com/deskflow/request-portal/internal/domain"
)

// AttachmentInput references an already uploaded file.
type AttachmentInput struct {
	StorageKey string `json:"storage_key" validate:"required"`
	FileName   string `json:"file_name" validate:"required"`
	MimeType   string `json:"mime_type"`
	SizeBytes  int64  `json:"size_bytes" validate:"gte=0"`
}

// CreateRequestRequest payload.
type CreateRequestRequest struct {
	Title       string                `json:"title" validate:"required,max=200"`
	Kind        domain.RequestKind    `json:"kind" validate:"required"`
	Priority    domain.Priority       `json:"priority"`
	Details     domain.RequestDetails `json:"details"`
	Attachments []AttachmentInput     `json:"attachments" validate:"dive"`
}

// TransitionRequest payload for POST /requests/:code/transitions.
type TransitionRequest struct {
	To           domain.RequestState `json:"to" validate:"required"`
	Reason       string              `json:"reason"`
	Version      *int                `json:"version"`
	PlannedStart *time.Time          `json:"planned_start"`
	PlannedEnd   *time.Time          `json:"planned_end"`
	LeadID       string              `json:"lead_id"`
}

// TransferRequest payload for transfer endpoints.
type TransferRequest struct {
	Motive string `json:"motive" validate:"required"`
}

// AttachmentResponse metadata.
type AttachmentResponse struct {
	ID         string    `json:"id"`
	StorageKey string    `json:"storage_key"`
	FileName   string    `json:"file_name"`
	MimeType   string    `json:"mime_type"`
	SizeBytes  int64     `json:"size_bytes"`
	CreatedAt  time.Time `json:"created_at"`
}

// RequestResponse represents a request.
type RequestResponse struct {
	ID              string                `json:"id"`
	Code            string                `json:"code"`
	Title           string                `json:"title"`
	Kind            domain.RequestKind    `json:"kind"`
	State           domain.RequestState   `json:"state"`
	Priority        domain.Priority       `json:"priority"`
	Details         domain.RequestDetails `json:"details"`
	Attachments     []AttachmentResponse  `json:"attachments"`
	RejectionReason *string               `json:"rejection_reason,omitempty"`
	Project         *ProjectLink          `json:"project,omitempty"`
	PausedDays      int                   `json:"paused_days"`
	Version         int                   `json:"version"`
	CreatedBy       string                `json:"created_by"`
	CreatedAt       time.Time             `json:"created_at"`
	UpdatedAt       time.Time             `json:"updated_at"`
}

// ProjectLink points from a scheduled request to its project endpoints.
type ProjectLink struct {
	ID    string              `json:"id"`
	Code  string              `json:"code"`
	State domain.ProjectState `json:"state"`
}

// TransferResponse describes a recorded transfer.
type TransferResponse struct {
	ID          string           `json:"id"`
	Origin      domain.EntityRef `json:"origin"`
	Destination domain.EntityRef `json:"destination"`
	Motive      string           `json:"motive"`
	CreatedBy   string           `json:"created_by"`
	CreatedAt   time.Time        `json:"created_at"`
}

// TransferLinksResponse lists the transfer that created an entity and the one that moved it away.
type TransferLinksResponse struct {
	Incoming *TransferResponse `json:"incoming"`
	Outgoing *TransferResponse `json:"outgoing"`
}

// ToAttachmentRefs converts inputs to domain references.
func ToAttachmentRefs(in []AttachmentInput) []domain.AttachmentRef {
	out := make([]domain.AttachmentRef, 0, len(in))
	for _, att := range in {
		out = append(out, domain.AttachmentRef{
			StorageKey: att.StorageKey,
			FileName:   att.FileName,
			MimeType:   att.MimeType,
			SizeBytes:  att.SizeBytes,
		})
	}
	return out
}

// NewAttachmentResponses maps domain attachments.
func NewAttachmentResponses(in []domain.AttachmentRef) []AttachmentResponse {
	out := make([]AttachmentResponse, 0, len(in))
	for _, att := range in {
		out = append(out, AttachmentResponse(att))
	}
	return out
}

// NewRequestResponse maps a request.
func NewRequestResponse(req *domain.Request) RequestResponse {
	return RequestResponse{
		ID:              req.ID,
		Code:            req.Code,
		Title:           req.Title,
		Kind:            req.Kind,
		State:           req.State,
		Priority:        req.Priority,
		Details:         req.Details,
		Attachments:     NewAttachmentResponses(req.Attachments),
		RejectionReason: req.RejectionReason,
		PausedDays:      req.PausedDays,
		Version:         req.Version,
		CreatedBy:       req.CreatedBy,
		CreatedAt:       req.CreatedAt,
		UpdatedAt:       req.UpdatedAt,
	}
}

// WithProject links the response to project; nil leaves it unlinked.
func (r RequestResponse) WithProject(project *domain.Project) RequestResponse {
	if project != nil {
		r.Project = &ProjectLink{ID: project.ID, Code: project.Code, State: project.State}
	}
	return r
}

// NewTransferLinksResponse maps both links; a missing link stays null.
func NewTransferLinksResponse(incoming, outgoing *domain.Transfer) TransferLinksResponse {
	var resp TransferLinksResponse
	if incoming != nil {
		in := NewTransferResponse(incoming)
		resp.Incoming = &in
	}
	if outgoing != nil {
		out := NewTransferResponse(outgoing)
		resp.Outgoing = &out
	}
	return resp
}

// NewTransferResponse maps a transfer.
func NewTransferResponse(t *domain.Transfer) TransferResponse {
	return TransferResponse{
		ID:          t.ID,
		Origin:      t.Origin,
		Destination: t.Destination,
		Motive:      t.Motive,
		CreatedBy:   t.CreatedBy,
		CreatedAt:   t.CreatedAt,
	}
}
