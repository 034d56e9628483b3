package service

import (
	"context"
	"errors"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/spec-kit/helpdesk/internal/assistant"
	"github.com/spec-kit/helpdesk/internal/domain"
	"github.com/spec-kit/helpdesk/internal/events"
	"github.com/spec-kit/helpdesk/internal/repository"
)

type fakeUserRepo struct {
	mu    sync.Mutex
	users map[string]*domain.User
}

func newFakeUserRepo() *fakeUserRepo {
	return &fakeUserRepo{users: map[string]*domain.User{}}
}

func (r *fakeUserRepo) Create(_ context.Context, user *domain.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	user.ID = uuid.NewString()
	user.CreatedAt = time.Now()
	user.UpdatedAt = user.CreatedAt
	copied := *user
	r.users[user.ID] = &copied
	return nil
}

func (r *fakeUserRepo) GetByID(_ context.Context, id string) (*domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if u, ok := r.users[id]; ok {
		copied := *u
		return &copied, nil
	}
	return nil, pgx.ErrNoRows
}

func (r *fakeUserRepo) GetByEmail(_ context.Context, email string) (*domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, u := range r.users {
		if u.Email == email {
			copied := *u
			return &copied, nil
		}
	}
	return nil, pgx.ErrNoRows
}

type fakeTicketRepo struct {
	mu      sync.Mutex
	tickets []domain.Ticket
	emails  map[string]string
	clock   time.Time
	failOn  string
}

func newFakeTicketRepo() *fakeTicketRepo {
	return &fakeTicketRepo{emails: map[string]string{}, clock: time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC)}
}

func (r *fakeTicketRepo) Create(_ context.Context, ticket *domain.Ticket) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.failOn == "create" {
		return errors.New("insert failed")
	}
	r.clock = r.clock.Add(time.Minute)
	ticket.ID = uuid.NewString()
	ticket.CreatedAt = r.clock
	ticket.UpdatedAt = r.clock
	r.tickets = append(r.tickets, *ticket)
	return nil
}

func (r *fakeTicketRepo) GetByID(_ context.Context, id string) (*domain.Ticket, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, errors.New("ERROR: invalid input syntax for type uuid (SQLSTATE 22P02)")
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	for i := range r.tickets {
		if r.tickets[i].ID == id {
			copied := r.tickets[i]
			return &copied, nil
		}
	}
	return nil, pgx.ErrNoRows
}

func (r *fakeTicketRepo) NumberExists(_ context.Context, number string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, t := range r.tickets {
		if t.TicketNumber == number {
			return true, nil
		}
	}
	return false, nil
}

func (r *fakeTicketRepo) ListByOwner(_ context.Context, ownerID string, limit int) ([]domain.Ticket, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []domain.Ticket
	for _, t := range r.tickets {
		if t.OwnerID == ownerID {
			out = append(out, t)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (r *fakeTicketRepo) Search(_ context.Context, filter repository.TicketFilter) ([]repository.TicketRow, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []repository.TicketRow
	for _, t := range r.tickets {
		if len(filter.Statuses) > 0 && t.Status != filter.Statuses[0] {
			continue
		}
		email := r.emails[t.OwnerID]
		if filter.SearchTerm != nil {
			term := strings.ToLower(*filter.SearchTerm)
			if !strings.Contains(strings.ToLower(t.Title), term) &&
				!strings.Contains(strings.ToLower(email), term) &&
				!strings.Contains(strings.ToLower(t.TicketNumber), term) {
				continue
			}
		}
		out = append(out, repository.TicketRow{Ticket: t, RequesterEmail: email})
	}
	return out, nil
}

func (r *fakeTicketRepo) UpdateStatus(_ context.Context, id string, status domain.TicketStatus) (*domain.Ticket, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i := range r.tickets {
		if r.tickets[i].ID == id {
			r.tickets[i].Status = status
			copied := r.tickets[i]
			return &copied, nil
		}
	}
	return nil, pgx.ErrNoRows
}

type fakeMessageRepo struct {
	mu       sync.Mutex
	messages []domain.TicketMessage
	err      error
}

func (r *fakeMessageRepo) AppendPair(_ context.Context, ticketID, userMessage, aiMessage string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return r.err
	}
	r.messages = append(r.messages,
		domain.TicketMessage{ID: uuid.NewString(), TicketID: ticketID, SenderType: domain.SenderTypeUser, Message: userMessage},
		domain.TicketMessage{ID: uuid.NewString(), TicketID: ticketID, SenderType: domain.SenderTypeAI, Message: aiMessage},
	)
	return nil
}

func (r *fakeMessageRepo) ListByTicket(_ context.Context, ticketID string) ([]domain.TicketMessage, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []domain.TicketMessage
	for _, m := range r.messages {
		if m.TicketID == ticketID {
			out = append(out, m)
		}
	}
	return out, nil
}

type fakeKnowledgeRepo struct {
	entries []domain.KnowledgeEntry
	err     error
}

func (r *fakeKnowledgeRepo) ListAll(context.Context) ([]domain.KnowledgeEntry, error) {
	return r.entries, r.err
}

type stubGenerator struct {
	reply assistant.Reply
	err   error
	kb    []domain.KnowledgeEntry
	calls int
}

func (g *stubGenerator) Generate(_ context.Context, _ string, kb []domain.KnowledgeEntry) (assistant.Reply, error) {
	g.calls++
	g.kb = kb
	return g.reply, g.err
}

type recordingDispatcher struct {
	mu     sync.Mutex
	events []events.Event
}

func (d *recordingDispatcher) Publish(_ context.Context, e events.Event) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.events = append(d.events, e)
	return nil
}

func (d *recordingDispatcher) Subscribe(events.EventType, events.EventHandler) {}

func (d *recordingDispatcher) types() []events.EventType {
	d.mu.Lock()
	defer d.mu.Unlock()
	out := make([]events.EventType, 0, len(d.events))
	for _, e := range d.events {
		out = append(out, e.Type)
	}
	return out
}
