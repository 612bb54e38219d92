package repository

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/deskflow/request-portal/internal/domain"
	apperrors "github.com/deskflow/request-portal/pkg/util/errorutil"
)

// MemoryStore keeps every table in process memory. It backs tests and runs the
// API when no database is configured.
type MemoryStore struct {
	mu    sync.Mutex
	state *memoryState
}

type storedAttachment struct {
	entity domain.EntityRef
	ref    domain.AttachmentRef
}

type memoryState struct {
	requests    map[string]domain.Request
	tickets     map[string]domain.Ticket
	projects    map[string]domain.Project
	tasks       map[string]domain.Task
	pauses      map[string]domain.PauseInterval
	transfers   []domain.Transfer
	comments    []domain.Comment
	attachments []storedAttachment
	tokens      map[string]domain.ResponseToken
	users       map[string]domain.User
}

// NewMemoryStore returns an empty store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{state: &memoryState{
		requests: map[string]domain.Request{},
		tickets:  map[string]domain.Ticket{},
		projects: map[string]domain.Project{},
		tasks:    map[string]domain.Task{},
		pauses:   map[string]domain.PauseInterval{},
		tokens:   map[string]domain.ResponseToken{},
		users:    map[string]domain.User{},
	}}
}

func (s *memoryState) clone() *memoryState {
	cp := &memoryState{
		requests:    make(map[string]domain.Request, len(s.requests)),
		tickets:     make(map[string]domain.Ticket, len(s.tickets)),
		projects:    make(map[string]domain.Project, len(s.projects)),
		tasks:       make(map[string]domain.Task, len(s.tasks)),
		pauses:      make(map[string]domain.PauseInterval, len(s.pauses)),
		transfers:   append([]domain.Transfer(nil), s.transfers...),
		comments:    append([]domain.Comment(nil), s.comments...),
		attachments: append([]storedAttachment(nil), s.attachments...),
		tokens:      make(map[string]domain.ResponseToken, len(s.tokens)),
		users:       make(map[string]domain.User, len(s.users)),
	}
	for k, v := range s.requests {
		cp.requests[k] = v
	}
	for k, v := range s.tickets {
		cp.tickets[k] = v
	}
	for k, v := range s.projects {
		cp.projects[k] = v
	}
	for k, v := range s.tasks {
		cp.tasks[k] = v
	}
	for k, v := range s.pauses {
		cp.pauses[k] = v
	}
	for k, v := range s.tokens {
		cp.tokens[k] = v
	}
	for k, v := range s.users {
		cp.users[k] = v
	}
	return cp
}

// memRunner executes fn against the current state, locking when outside a transaction.
type memRunner func(fn func(*memoryState) error) error

// Repos returns repositories that lock per call.
func (s *MemoryStore) Repos() Repositories {
	return s.repos(func(fn func(*memoryState) error) error {
		s.mu.Lock()
		defer s.mu.Unlock()
		return fn(s.state)
	})
}

// WithinTx serializes fn against every other caller and restores the previous
// state when fn fails. fn must only use the repositories it receives.
func (s *MemoryStore) WithinTx(ctx context.Context, fn func(Repositories) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	snapshot := s.state.clone()
	err := fn(s.repos(func(inner func(*memoryState) error) error {
		return inner(s.state)
	}))
	if err != nil {
		s.state = snapshot
	}
	return err
}

func (s *MemoryStore) repos(run memRunner) Repositories {
	return Repositories{
		Requests:       memRequests{run},
		Tickets:        memTickets{run},
		Projects:       memProjects{run},
		Tasks:          memTasks{run},
		Pauses:         memPauses{run},
		Transfers:      memTransfers{run},
		Comments:       memComments{run},
		Attachments:    memAttachments{run},
		ResponseTokens: memTokens{run},
		Users:          memUsers{run},
	}
}

func containsValue[T comparable](set []T, v T) bool {
	if len(set) == 0 {
		return true
	}
	for _, s := range set {
		if s == v {
			return true
		}
	}
	return false
}

func matchesTerm(term *string, fields ...string) bool {
	if term == nil || strings.TrimSpace(*term) == "" {
		return true
	}
	needle := strings.ToLower(strings.TrimSpace(*term))
	for _, f := range fields {
		if strings.Contains(strings.ToLower(f), needle) {
			return true
		}
	}
	return false
}

func page[T any](items []T, limit, offset int) []T {
	limit, offset = pageBounds(limit, offset)
	if offset >= len(items) {
		return nil
	}
	end := offset + limit
	if end > len(items) {
		end = len(items)
	}
	return items[offset:end]
}

type memRequests struct{ run memRunner }

func (r memRequests) Create(_ context.Context, req *domain.Request) error {
	return r.run(func(st *memoryState) error {
		if _, exists := st.requests[req.Code]; exists {
			return apperrors.NewConflict("request code already used", map[string]any{"code": req.Code})
		}
		req.ID = uuid.NewString()
		req.Version = 1
		stored := *req
		stored.Attachments = nil
		st.requests[req.Code] = stored
		return nil
	})
}

func (r memRequests) Update(_ context.Context, req *domain.Request) error {
	return r.run(func(st *memoryState) error {
		current, ok := st.requests[req.Code]
		if !ok || current.Version != req.Version {
			return versionConflict(pgx.ErrNoRows, "request", req.Code)
		}
		req.Version++
		stored := *req
		stored.Attachments = nil
		st.requests[req.Code] = stored
		return nil
	})
}

func (r memRequests) GetByCode(_ context.Context, code string) (*domain.Request, error) {
	var out *domain.Request
	err := r.run(func(st *memoryState) error {
		req, ok := st.requests[code]
		if !ok {
			return pgx.ErrNoRows
		}
		out = &req
		return nil
	})
	return out, err
}

func (r memRequests) List(_ context.Context, filter RequestFilter) ([]domain.Request, error) {
	var out []domain.Request
	err := r.run(func(st *memoryState) error {
		for _, req := range st.requests {
			if !containsValue(filter.Kinds, req.Kind) || !containsValue(filter.States, req.State) {
				continue
			}
			if filter.CreatedBy != nil && req.CreatedBy != *filter.CreatedBy {
				continue
			}
			if !matchesTerm(filter.SearchTerm, req.Title, req.Code) {
				continue
			}
			out = append(out, req)
		}
		return nil
	})
	sort.Slice(out, func(i, j int) bool {
		if !out[i].UpdatedAt.Equal(out[j].UpdatedAt) {
			return out[i].UpdatedAt.After(out[j].UpdatedAt)
		}
		return out[i].Code < out[j].Code
	})
	return page(out, filter.Limit, filter.Offset), err
}

type memTickets struct{ run memRunner }

func (r memTickets) Create(_ context.Context, ticket *domain.Ticket) error {
	return r.run(func(st *memoryState) error {
		if _, exists := st.tickets[ticket.Code]; exists {
			return apperrors.NewConflict("ticket code already used", map[string]any{"code": ticket.Code})
		}
		ticket.ID = uuid.NewString()
		ticket.Version = 1
		stored := *ticket
		stored.Attachments = nil
		st.tickets[ticket.Code] = stored
		return nil
	})
}

func (r memTickets) Update(_ context.Context, ticket *domain.Ticket) error {
	return r.run(func(st *memoryState) error {
		current, ok := st.tickets[ticket.Code]
		if !ok || current.Version != ticket.Version {
			return versionConflict(pgx.ErrNoRows, "ticket", ticket.Code)
		}
		ticket.Version++
		stored := *ticket
		stored.Attachments = nil
		st.tickets[ticket.Code] = stored
		return nil
	})
}

func (r memTickets) GetByCode(_ context.Context, code string) (*domain.Ticket, error) {
	var out *domain.Ticket
	err := r.run(func(st *memoryState) error {
		ticket, ok := st.tickets[code]
		if !ok {
			return pgx.ErrNoRows
		}
		out = &ticket
		return nil
	})
	return out, err
}

func (r memTickets) List(_ context.Context, filter TicketFilter) ([]domain.Ticket, error) {
	var out []domain.Ticket
	err := r.run(func(st *memoryState) error {
		for _, ticket := range st.tickets {
			if !containsValue(filter.States, ticket.State) ||
				!containsValue(filter.Categories, ticket.Category) ||
				!containsValue(filter.Priorities, ticket.Priority) {
				continue
			}
			if filter.AssigneeID != nil && (ticket.AssigneeID == nil || *ticket.AssigneeID != *filter.AssigneeID) {
				continue
			}
			if !matchesTerm(filter.SearchTerm, ticket.Title, ticket.Description) {
				continue
			}
			out = append(out, ticket)
		}
		return nil
	})
	sort.Slice(out, func(i, j int) bool {
		if !out[i].UpdatedAt.Equal(out[j].UpdatedAt) {
			return out[i].UpdatedAt.After(out[j].UpdatedAt)
		}
		return out[i].Code < out[j].Code
	})
	return page(out, filter.Limit, filter.Offset), err
}

type memProjects struct{ run memRunner }

func (r memProjects) Create(_ context.Context, project *domain.Project) error {
	return r.run(func(st *memoryState) error {
		for _, existing := range st.projects {
			if existing.RequestCode == project.RequestCode {
				return apperrors.NewConflict("request already has a project", map[string]any{"request_code": project.RequestCode})
			}
		}
		project.ID = uuid.NewString()
		project.Version = 1
		st.projects[project.ID] = *project
		return nil
	})
}

func (r memProjects) Update(_ context.Context, project *domain.Project) error {
	return r.run(func(st *memoryState) error {
		current, ok := st.projects[project.ID]
		if !ok || current.Version != project.Version {
			return versionConflict(pgx.ErrNoRows, "project", project.ID)
		}
		project.Version++
		st.projects[project.ID] = *project
		return nil
	})
}

func (r memProjects) GetByID(_ context.Context, id string) (*domain.Project, error) {
	var out *domain.Project
	err := r.run(func(st *memoryState) error {
		project, ok := st.projects[id]
		if !ok {
			return pgx.ErrNoRows
		}
		out = &project
		return nil
	})
	return out, err
}

// GetByIDShared needs no lock of its own: WithinTx already serializes writers.
func (r memProjects) GetByIDShared(ctx context.Context, id string) (*domain.Project, error) {
	return r.GetByID(ctx, id)
}

func (r memProjects) GetByRequestCode(_ context.Context, code string) (*domain.Project, error) {
	var out *domain.Project
	err := r.run(func(st *memoryState) error {
		for _, project := range st.projects {
			if project.RequestCode == code {
				p := project
				out = &p
				return nil
			}
		}
		return pgx.ErrNoRows
	})
	return out, err
}

type memTasks struct{ run memRunner }

func (r memTasks) Create(_ context.Context, task *domain.Task) error {
	return r.run(func(st *memoryState) error {
		position := 0
		for _, existing := range st.tasks {
			if existing.ProjectID == task.ProjectID && existing.Position >= position {
				position = existing.Position + 1
			}
		}
		task.ID = uuid.NewString()
		task.Position = position
		st.tasks[task.ID] = *task
		return nil
	})
}

func (r memTasks) Update(_ context.Context, task *domain.Task) error {
	return r.run(func(st *memoryState) error {
		if _, ok := st.tasks[task.ID]; !ok {
			return pgx.ErrNoRows
		}
		st.tasks[task.ID] = *task
		return nil
	})
}

func (r memTasks) GetByID(_ context.Context, id string) (*domain.Task, error) {
	var out *domain.Task
	err := r.run(func(st *memoryState) error {
		task, ok := st.tasks[id]
		if !ok {
			return pgx.ErrNoRows
		}
		out = &task
		return nil
	})
	return out, err
}

func (r memTasks) ListByProject(_ context.Context, projectID string) ([]domain.Task, error) {
	var out []domain.Task
	err := r.run(func(st *memoryState) error {
		for _, task := range st.tasks {
			if task.ProjectID == projectID {
				out = append(out, task)
			}
		}
		return nil
	})
	sort.Slice(out, func(i, j int) bool { return out[i].Position < out[j].Position })
	return out, err
}

type memPauses struct{ run memRunner }

func (r memPauses) Create(_ context.Context, interval *domain.PauseInterval) error {
	return r.run(func(st *memoryState) error {
		for _, existing := range st.pauses {
			if existing.ProjectID == interval.ProjectID && existing.Open() {
				return apperrors.ErrAlreadyPaused.WithDetails(map[string]any{"project_id": interval.ProjectID})
			}
		}
		interval.ID = uuid.NewString()
		st.pauses[interval.ID] = *interval
		return nil
	})
}

func (r memPauses) Close(_ context.Context, interval *domain.PauseInterval) error {
	return r.run(func(st *memoryState) error {
		current, ok := st.pauses[interval.ID]
		if !ok || !current.Open() {
			return apperrors.ErrNotPaused.WithDetails(map[string]any{"project_id": interval.ProjectID})
		}
		current.EndedAt = interval.EndedAt
		current.EndedBy = interval.EndedBy
		st.pauses[interval.ID] = current
		return nil
	})
}

func (r memPauses) FindOpen(_ context.Context, projectID string) (*domain.PauseInterval, error) {
	var out *domain.PauseInterval
	err := r.run(func(st *memoryState) error {
		for _, interval := range st.pauses {
			if interval.ProjectID == projectID && interval.Open() {
				iv := interval
				out = &iv
				return nil
			}
		}
		return nil
	})
	return out, err
}

func (r memPauses) ListByProject(_ context.Context, projectID string) ([]domain.PauseInterval, error) {
	var out []domain.PauseInterval
	err := r.run(func(st *memoryState) error {
		for _, interval := range st.pauses {
			if interval.ProjectID == projectID {
				out = append(out, interval)
			}
		}
		return nil
	})
	sort.Slice(out, func(i, j int) bool { return out[i].StartedAt.Before(out[j].StartedAt) })
	return out, err
}

type memTransfers struct{ run memRunner }

func (r memTransfers) Create(_ context.Context, transfer *domain.Transfer) error {
	return r.run(func(st *memoryState) error {
		for _, existing := range st.transfers {
			if existing.Origin.Code == transfer.Origin.Code {
				return apperrors.ErrAlreadyTransferred.WithDetails(map[string]any{"code": transfer.Origin.Code})
			}
		}
		transfer.ID = uuid.NewString()
		st.transfers = append(st.transfers, *transfer)
		return nil
	})
}

func (r memTransfers) FindByOrigin(_ context.Context, code string) (*domain.Transfer, error) {
	return r.find(func(t domain.Transfer) bool { return t.Origin.Code == code })
}

func (r memTransfers) FindByDestination(_ context.Context, code string) (*domain.Transfer, error) {
	return r.find(func(t domain.Transfer) bool { return t.Destination.Code == code })
}

func (r memTransfers) find(match func(domain.Transfer) bool) (*domain.Transfer, error) {
	var out *domain.Transfer
	err := r.run(func(st *memoryState) error {
		for _, transfer := range st.transfers {
			if match(transfer) {
				t := transfer
				out = &t
				return nil
			}
		}
		return pgx.ErrNoRows
	})
	return out, err
}

type memComments struct{ run memRunner }

func (r memComments) Create(_ context.Context, comment *domain.Comment) error {
	return r.run(func(st *memoryState) error {
		comment.ID = uuid.NewString()
		st.comments = append(st.comments, *comment)
		return nil
	})
}

func (r memComments) ListByEntity(_ context.Context, entity domain.EntityRef) ([]domain.Comment, error) {
	var out []domain.Comment
	err := r.run(func(st *memoryState) error {
		for _, comment := range st.comments {
			if comment.Entity == entity {
				out = append(out, comment)
			}
		}
		return nil
	})
	sort.SliceStable(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, err
}

type memAttachments struct{ run memRunner }

func (r memAttachments) Create(_ context.Context, entity domain.EntityRef, attachment *domain.AttachmentRef) error {
	return r.run(func(st *memoryState) error {
		attachment.ID = uuid.NewString()
		if attachment.CreatedAt.IsZero() {
			attachment.CreatedAt = time.Now().UTC()
		}
		st.attachments = append(st.attachments, storedAttachment{entity: entity, ref: *attachment})
		return nil
	})
}

func (r memAttachments) ListByEntity(_ context.Context, entity domain.EntityRef) ([]domain.AttachmentRef, error) {
	var out []domain.AttachmentRef
	err := r.run(func(st *memoryState) error {
		for _, stored := range st.attachments {
			if stored.entity == entity {
				out = append(out, stored.ref)
			}
		}
		return nil
	})
	return out, err
}

type memTokens struct{ run memRunner }

func (r memTokens) Create(_ context.Context, token *domain.ResponseToken) error {
	return r.run(func(st *memoryState) error {
		if _, exists := st.tokens[token.Token]; exists {
			return apperrors.NewConflict("token collision", nil)
		}
		token.ID = uuid.NewString()
		st.tokens[token.Token] = *token
		return nil
	})
}

func (r memTokens) GetByToken(_ context.Context, tokenStr string) (*domain.ResponseToken, error) {
	var out *domain.ResponseToken
	err := r.run(func(st *memoryState) error {
		token, ok := st.tokens[tokenStr]
		if !ok {
			return pgx.ErrNoRows
		}
		out = &token
		return nil
	})
	return out, err
}

func (r memTokens) MarkUsed(_ context.Context, id string, at time.Time) error {
	return r.run(func(st *memoryState) error {
		for key, token := range st.tokens {
			if token.ID != id {
				continue
			}
			if token.UsedAt != nil {
				return apperrors.ErrTokenAlreadyUsed
			}
			used := at
			token.UsedAt = &used
			st.tokens[key] = token
			return nil
		}
		return pgx.ErrNoRows
	})
}

type memUsers struct{ run memRunner }

func (r memUsers) Create(_ context.Context, user *domain.User) error {
	return r.run(func(st *memoryState) error {
		for _, existing := range st.users {
			if strings.EqualFold(existing.Email, user.Email) {
				return apperrors.NewConflict("email already registered", map[string]any{"email": user.Email})
			}
		}
		now := time.Now().UTC()
		user.ID = uuid.NewString()
		user.CreatedAt = now
		user.UpdatedAt = now
		st.users[user.ID] = *user
		return nil
	})
}

func (r memUsers) Update(_ context.Context, user *domain.User) error {
	return r.run(func(st *memoryState) error {
		if _, ok := st.users[user.ID]; !ok {
			return pgx.ErrNoRows
		}
		user.UpdatedAt = time.Now().UTC()
		st.users[user.ID] = *user
		return nil
	})
}

func (r memUsers) GetByID(_ context.Context, id string) (*domain.User, error) {
	var out *domain.User
	err := r.run(func(st *memoryState) error {
		user, ok := st.users[id]
		if !ok {
			return pgx.ErrNoRows
		}
		out = &user
		return nil
	})
	return out, err
}

func (r memUsers) GetByEmail(_ context.Context, email string) (*domain.User, error) {
	var out *domain.User
	err := r.run(func(st *memoryState) error {
		for _, user := range st.users {
			if strings.EqualFold(user.Email, email) {
				u := user
				out = &u
				return nil
			}
		}
		return pgx.ErrNoRows
	})
	return out, err
}

func (r memUsers) List(_ context.Context, role *domain.Role) ([]domain.User, error) {
	var out []domain.User
	err := r.run(func(st *memoryState) error {
		for _, user := range st.users {
			if role == nil || user.Role == *role {
				out = append(out, user)
			}
		}
		return nil
	})
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, err
}
