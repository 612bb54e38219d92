package domain

import "time"

// RequestKind discriminates the submission type. Immutable after creation.
type RequestKind string

const (
	KindNewInternalProject RequestKind = "proyecto_nuevo_interno"
	KindUpdate             RequestKind = "actualizacion"
	KindFaultReport        RequestKind = "reporte_fallo"
	KindServiceClosure     RequestKind = "cierre_servicio"
	// KindTransferredFromTI is only created by the transfer coordinator.
	KindTransferredFromTI RequestKind = "transferido_desde_ti"
)

// Valid reports whether k is a known kind.
func (k RequestKind) Valid() bool {
	switch k {
	case KindNewInternalProject, KindUpdate, KindFaultReport, KindServiceClosure, KindTransferredFromTI:
		return true
	}
	return false
}

// Submittable reports whether clients may create requests of this kind directly.
func (k RequestKind) Submittable() bool {
	return k.Valid() && k != KindTransferredFromTI
}

// ProjectBearing reports whether approval of this kind produces a Project.
func (k RequestKind) ProjectBearing() bool {
	return k == KindNewInternalProject || k == KindUpdate
}

// RequestState enumerates request lifecycle states.
type RequestState string

const (
	RequestStatePendingEvaluation   RequestState = "pendiente_evaluacion_nt"
	RequestStateInStudy             RequestState = "en_estudio"
	RequestStateDiscarded           RequestState = "descartado_nt"
	RequestStatePendingManagement   RequestState = "pendiente_aprobacion_gerencia"
	RequestStatePendingReevaluation RequestState = "pendiente_reevaluacion"
	RequestStateRejected            RequestState = "rechazado_gerencia"
	RequestStateScheduled           RequestState = "agendado"
	RequestStateInDevelopment       RequestState = "en_desarrollo"
	RequestStatePaused              RequestState = "pausado"
	RequestStateCompleted           RequestState = "completado"
	RequestStateCancelled           RequestState = "cancelado"
	RequestStateTransferred         RequestState = "transferido_ti"
)

// Priority is shared by requests and tickets.
type Priority string

const (
	PriorityLow      Priority = "baja"
	PriorityMedium   Priority = "media"
	PriorityHigh     Priority = "alta"
	PriorityCritical Priority = "critica"
)

// Valid reports whether p is a known priority.
func (p Priority) Valid() bool {
	switch p {
	case PriorityLow, PriorityMedium, PriorityHigh, PriorityCritical:
		return true
	}
	return false
}

// Request is a submission to the NT department.
type Request struct {
	ID              string
	Code            string
	Title           string
	Kind            RequestKind
	State           RequestState
	Priority        Priority
	Details         RequestDetails
	Attachments     []AttachmentRef
	RejectionReason *string
	PausedDays      int
	Version         int
	CreatedBy       string
	CreatedAt       time.Time
	UpdatedAt       time.Time
}
