package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/deskflow/request-portal/internal/domain"
	"github.com/deskflow/request-portal/internal/events"
	"github.com/deskflow/request-portal/internal/repository"
)

type recorder struct {
	mu     sync.Mutex
	events []events.Event
}

func (r *recorder) handle(_ context.Context, event events.Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, event)
	return nil
}

func (r *recorder) types() []events.EventType {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]events.EventType, 0, len(r.events))
	for _, ev := range r.events {
		out = append(out, ev.Type)
	}
	return out
}

func (r *recorder) last() events.Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.events[len(r.events)-1]
}

type fixture struct {
	ctx      context.Context
	store    *repository.MemoryStore
	recorder *recorder
	now      time.Time

	requests  *RequestService
	tickets   *TicketService
	projects  *ProjectService
	transfers *TransferService
	comments  *CommentService

	nt, lead, ti, management domain.Actor
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{
		ctx:      context.Background(),
		store:    repository.NewMemoryStore(),
		recorder: &recorder{},
		now:      time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC),
	}
	dispatcher := events.NewInMemoryDispatcher()
	dispatcher.SubscribeAll(f.recorder.handle)
	deps := Dependencies{
		Store:      f.store,
		Dispatcher: dispatcher,
		Clock:      func() time.Time { return f.now },
	}
	f.projects = NewProjectService(deps)
	f.requests = NewRequestService(deps, f.projects)
	f.tickets = NewTicketService(deps)
	f.transfers = NewTransferService(deps, "")
	f.comments = NewCommentService(deps, 24*time.Hour)

	f.nt = f.user(t, "Nora", "nora@example.com", domain.RoleNT)
	f.lead = f.user(t, "Luis", "luis@example.com", domain.RoleNT)
	f.ti = f.user(t, "Tomas", "tomas@example.com", domain.RoleTI)
	f.management = f.user(t, "Gabriela", "gabriela@example.com", domain.RoleManagement)
	return f
}

func (f *fixture) user(t *testing.T, name, email string, role domain.Role) domain.Actor {
	t.Helper()
	user := &domain.User{Name: name, Email: email, Role: role, Active: true}
	require.NoError(t, f.store.Repos().Users.Create(f.ctx, user))
	return user.Actor()
}

func (f *fixture) at(year int, month time.Month, day int) {
	f.now = time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
}

func requester() *domain.Person {
	return &domain.Person{Name: "Ana Perez", Email: "ana@example.com", Department: "Finance"}
}

func (f *fixture) faultReport(t *testing.T) *domain.Request {
	t.Helper()
	req, err := f.requests.Create(f.ctx, f.nt, RequestCreateInput{
		Title: "Printer jams",
		Kind:  domain.KindFaultReport,
		Details: domain.RequestDetails{
			Requester: requester(),
			Problem:   &domain.ProblemStatement{Situation: "Printer on floor 2 jams on every job"},
		},
		Attachments: []domain.AttachmentRef{{StorageKey: "s3://bucket/jam.jpg", FileName: "jam.jpg", MimeType: "image/jpeg", SizeBytes: 2048}},
	})
	require.NoError(t, err)
	return req
}

func (f *fixture) projectRequest(t *testing.T) *domain.Request {
	t.Helper()
	req, err := f.requests.Create(f.ctx, f.nt, RequestCreateInput{
		Title:    "Vendor portal",
		Kind:     domain.KindNewInternalProject,
		Priority: domain.PriorityHigh,
		Details: domain.RequestDetails{
			Requester: requester(),
			Sponsor:   &domain.Person{Name: "Carla Diaz", Email: "carla@example.com"},
			Problem:   &domain.ProblemStatement{Situation: "Vendors email invoices by hand"},
			Solution:  &domain.SolutionProposal{Description: "Self-service portal"},
			Benefits:  &domain.Benefits{Description: "Fewer lost invoices"},
		},
	})
	require.NoError(t, err)
	return req
}

// developingProject walks a project request up to en_desarrollo starting 2025-01-01.
func (f *fixture) developingProject(t *testing.T) (*domain.Request, *domain.Project) {
	t.Helper()
	req := f.projectRequest(t)
	f.move(t, f.nt, req.Code, TransitionInput{To: domain.RequestStateInStudy})
	f.move(t, f.nt, req.Code, TransitionInput{To: domain.RequestStatePendingManagement})

	start := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	end := time.Date(2025, 1, 11, 0, 0, 0, 0, time.UTC)
	f.move(t, f.management, req.Code, TransitionInput{
		To:           domain.RequestStateScheduled,
		PlannedStart: &start,
		PlannedEnd:   &end,
		LeadID:       f.lead.ID,
	})
	req = f.move(t, f.nt, req.Code, TransitionInput{To: domain.RequestStateInDevelopment})

	project, err := f.store.Repos().Projects.GetByRequestCode(f.ctx, req.Code)
	require.NoError(t, err)
	return req, project
}

func (f *fixture) move(t *testing.T, actor domain.Actor, code string, input TransitionInput) *domain.Request {
	t.Helper()
	req, err := f.requests.Transition(f.ctx, actor, code, input)
	require.NoError(t, err)
	return req
}
