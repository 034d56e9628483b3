// Package continuity decides, per operation, whether identity and ticket data come from the
// remote store or from the local fallback store.
package continuity

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/spec-kit/helpdesk/internal/clock"
	"github.com/spec-kit/helpdesk/internal/domain"
	apperrors "github.com/spec-kit/helpdesk/pkg/util/errorutil"
)

// RemoteStore is the system of record when it can be reached.
type RemoteStore interface {
	// Session returns the signed-in identity, or nil when there is no session.
	Session(ctx context.Context) (*domain.Identity, error)
	// InsertTicket stores the ticket and returns it with the remote id and number.
	InsertTicket(ctx context.Context, ticket domain.Ticket) (*domain.Ticket, error)
	ListTickets(ctx context.Context, ownerID string) ([]domain.Ticket, error)
	// LatestTicket returns nil when the owner has no tickets.
	LatestTicket(ctx context.Context, ownerID string) (*domain.Ticket, error)
}

// Demo identity written by EstablishFallbackIdentity.
const (
	demoEmail      = "demo@example.com"
	demoFullName   = "Demo User"
	demoDepartment = "IT"
)

const ticketNumberPrefix = "TK-"

var errNoRemoteSession = errors.New("no remote session")

// Resolver is the only place that branches between the remote and the local store.
type Resolver struct {
	remote RemoteStore
	local  LocalStore
	clock  clock.Clock
	logger *zap.Logger
}

func NewResolver(remote RemoteStore, local LocalStore, clk clock.Clock, logger *zap.Logger) *Resolver {
	if clk == nil {
		clk = clock.Real()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Resolver{remote: remote, local: local, clock: clk, logger: logger}
}

// ResolveIdentity prefers the remote session and falls back to the local identity. It
// returns nil when neither exists.
func (r *Resolver) ResolveIdentity(ctx context.Context) (*domain.Identity, error) {
	identity, err := r.remote.Session(ctx)
	if err == nil && identity != nil {
		identity.Source = domain.IdentitySourceRemote
		return identity, nil
	}
	if err != nil {
		r.logger.Debug("remote session unavailable", zap.Error(err))
	}
	return r.fallbackIdentity(ctx)
}

// CreateTicket writes the ticket to exactly one store. The ticket number is fixed before
// either store is tried; a successful remote write returns the remote number instead.
func (r *Resolver) CreateTicket(ctx context.Context, fields domain.TicketFields) (*domain.Ticket, error) {
	normalized, problems := fields.Normalize()
	if problems != nil {
		return nil, apperrors.NewValidationError("invalid ticket", problems)
	}

	now := r.clock.Now().UTC()
	ticket := domain.Ticket{
		Title:        normalized.Title,
		Description:  normalized.Description,
		Category:     normalized.Category,
		Priority:     normalized.Priority,
		Status:       domain.TicketStatusOpen,
		TicketNumber: fmt.Sprintf("%s%d", ticketNumberPrefix, now.UnixMilli()),
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	created, err := r.createRemote(ctx, ticket)
	if err == nil {
		return created, nil
	}
	r.logger.Info("remote ticket create failed, using local store",
		zap.String("ticket_number", ticket.TicketNumber), zap.Error(err))

	owner, err := r.fallbackIdentity(ctx)
	if err != nil {
		return nil, err
	}
	if owner == nil {
		return nil, apperrors.NewNotAuthenticated("sign in or start demo mode to create tickets")
	}

	ticket.ID = uuid.NewString()
	ticket.OwnerID = owner.ID
	if err := r.appendLocalTicket(ctx, &ticket); err != nil {
		return nil, err
	}
	return &ticket, nil
}

func (r *Resolver) createRemote(ctx context.Context, ticket domain.Ticket) (*domain.Ticket, error) {
	identity, err := r.remote.Session(ctx)
	if err != nil {
		return nil, err
	}
	if identity == nil {
		return nil, errNoRemoteSession
	}
	ticket.OwnerID = identity.ID
	return r.remote.InsertTicket(ctx, ticket)
}

// ListTickets returns the owner's tickets, newest first.
func (r *Resolver) ListTickets(ctx context.Context, ownerID string) ([]domain.Ticket, error) {
	tickets, err := r.remote.ListTickets(ctx, ownerID)
	if err == nil {
		return tickets, nil
	}
	r.logger.Debug("remote ticket list failed, using local store", zap.Error(err))
	return r.localTicketsFor(ctx, ownerID)
}

// LatestTicket returns the owner's newest ticket or nil. A remote answer of "none" is final.
func (r *Resolver) LatestTicket(ctx context.Context, ownerID string) (*domain.Ticket, error) {
	ticket, err := r.remote.LatestTicket(ctx, ownerID)
	if err == nil {
		return ticket, nil
	}
	r.logger.Debug("remote latest ticket failed, using local store", zap.Error(err))

	tickets, err := r.localTicketsFor(ctx, ownerID)
	if err != nil || len(tickets) == 0 {
		return nil, err
	}
	return &tickets[0], nil
}

// EstablishFallbackIdentity returns the stored demo identity, creating it when absent.
func (r *Resolver) EstablishFallbackIdentity(ctx context.Context) (*domain.Identity, error) {
	existing, err := r.fallbackIdentity(ctx)
	if err != nil || existing != nil {
		return existing, err
	}

	identity := domain.Identity{
		ID:         fmt.Sprintf("mock-user-%d", r.clock.Now().UnixMilli()),
		Email:      demoEmail,
		FullName:   demoFullName,
		Department: demoDepartment,
		Source:     domain.IdentitySourceFallback,
	}
	raw, err := json.Marshal(identity)
	if err != nil {
		return nil, err
	}
	if err := r.local.Write(ctx, KeyFallbackIdentity, raw); err != nil {
		return nil, err
	}
	return &identity, nil
}

// ClearFallbackIdentity forgets the demo identity. Locally stored tickets are kept.
func (r *Resolver) ClearFallbackIdentity(ctx context.Context) error {
	return r.local.Delete(ctx, KeyFallbackIdentity)
}

func (r *Resolver) fallbackIdentity(ctx context.Context) (*domain.Identity, error) {
	raw, err := r.local.Read(ctx, KeyFallbackIdentity)
	if errors.Is(err, ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	var identity domain.Identity
	if err := json.Unmarshal(raw, &identity); err != nil || identity.ID == "" {
		r.logger.Warn("ignoring unreadable fallback identity", zap.Error(err))
		return nil, nil
	}
	identity.Source = domain.IdentitySourceFallback
	return &identity, nil
}

func (r *Resolver) readLocalTickets(ctx context.Context) ([]domain.Ticket, error) {
	raw, err := r.local.Read(ctx, KeyFallbackTickets)
	if errors.Is(err, ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var tickets []domain.Ticket
	if err := json.Unmarshal(raw, &tickets); err != nil {
		r.logger.Warn("ignoring unreadable local ticket collection", zap.Error(err))
		return nil, nil
	}
	return tickets, nil
}

// appendLocalTicket is a plain read-modify-write. Two writers racing on the same store can
// lose a ticket. A number already used locally is bumped until it is free.
func (r *Resolver) appendLocalTicket(ctx context.Context, ticket *domain.Ticket) error {
	tickets, err := r.readLocalTickets(ctx)
	if err != nil {
		return err
	}
	used := make(map[string]bool, len(tickets))
	for _, t := range tickets {
		used[t.TicketNumber] = true
	}
	if used[ticket.TicketNumber] {
		n, err := strconv.ParseInt(strings.TrimPrefix(ticket.TicketNumber, ticketNumberPrefix), 10, 64)
		if err != nil {
			return fmt.Errorf("malformed ticket number %q: %w", ticket.TicketNumber, err)
		}
		for used[ticket.TicketNumber] {
			n++
			ticket.TicketNumber = ticketNumberPrefix + strconv.FormatInt(n, 10)
		}
	}
	tickets = append(tickets, *ticket)
	raw, err := json.Marshal(tickets)
	if err != nil {
		return err
	}
	return r.local.Write(ctx, KeyFallbackTickets, raw)
}

func (r *Resolver) localTicketsFor(ctx context.Context, ownerID string) ([]domain.Ticket, error) {
	all, err := r.readLocalTickets(ctx)
	if err != nil {
		return nil, err
	}
	// Walk newest-appended first so equal timestamps keep the later ticket in front.
	owned := make([]domain.Ticket, 0, len(all))
	for i := len(all) - 1; i >= 0; i-- {
		if all[i].OwnerID == ownerID {
			owned = append(owned, all[i])
		}
	}
	sort.SliceStable(owned, func(i, j int) bool { return owned[i].CreatedAt.After(owned[j].CreatedAt) })
	return owned, nil
}
