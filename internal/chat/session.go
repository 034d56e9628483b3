// Package chat drives one conversation between a requester and the assistant.
package chat

import (
	"context"
	"errors"
	"math/rand"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/spec-kit/helpdesk/internal/clock"
	"github.com/spec-kit/helpdesk/internal/domain"
)

// DefaultFallbackDelay is the pause before a canned reply appears.
const DefaultFallbackDelay = time.Second

// RandomSource picks canned replies.
type RandomSource interface {
	Intn(n int) int
}

// Options configures a Session.
type Options struct {
	Invoker       Invoker
	Clock         clock.Clock
	Random        RandomSource
	FallbackDelay time.Duration
	// TicketID is forwarded with every invocation when set.
	TicketID  string
	OnMessage func(domain.Message)
	Logger    *zap.Logger
}

// SubmitResult reports what Submit did with the input.
type SubmitResult struct {
	Accepted bool
	// Busy is set when the input was dropped because a reply is still outstanding.
	Busy bool
}

// Escalation records that the conversation should turn into a ticket.
type Escalation struct {
	Tag                string
	ShouldCreateTicket bool
	At                 time.Time
}

// Session is the transcript plus the waiting state of one conversation.
type Session struct {
	invoker   Invoker
	clock     clock.Clock
	random    RandomSource
	delay     time.Duration
	ticketID  string
	onMessage func(domain.Message)
	logger    *zap.Logger

	mu         sync.Mutex
	transcript []domain.Message
	waiting    bool
	idle       chan struct{}
	pending    *clock.Timer
	escalation *Escalation
	closed     bool
}

func NewSession(opts Options) *Session {
	clk := opts.Clock
	if clk == nil {
		clk = clock.Real()
	}
	random := opts.Random
	if random == nil {
		random = rand.New(rand.NewSource(clk.Now().UnixNano()))
	}
	delay := opts.FallbackDelay
	if delay <= 0 {
		delay = DefaultFallbackDelay
	}
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	idle := make(chan struct{})
	close(idle)

	return &Session{
		invoker:   opts.Invoker,
		clock:     clk,
		random:    random,
		delay:     delay,
		ticketID:  opts.TicketID,
		onMessage: opts.OnMessage,
		logger:    logger,
		idle:      idle,
	}
}

// Submit appends the user's message and asks the assistant for a reply. It returns once the
// invocation finished; on failure the canned reply arrives later, and Wait blocks until it has.
func (s *Session) Submit(ctx context.Context, text string) SubmitResult {
	text = strings.TrimSpace(text)
	if text == "" {
		return SubmitResult{}
	}

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return SubmitResult{}
	}
	if s.waiting {
		s.mu.Unlock()
		return SubmitResult{Busy: true}
	}
	s.waiting = true
	s.idle = make(chan struct{})
	msg := s.appendLocked(domain.RoleUser, text)
	s.mu.Unlock()
	s.notify(msg)

	reply, err := s.invoker.Invoke(ctx, text, s.ticketID)
	if err != nil {
		s.fail(err)
		return SubmitResult{Accepted: true}
	}
	if strings.TrimSpace(reply) == "" {
		reply = EmptyReply
	}

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return SubmitResult{Accepted: true}
	}
	msg = s.appendLocked(domain.RoleAssistant, reply)
	s.mu.Unlock()
	s.complete(msg)

	return SubmitResult{Accepted: true}
}

func (s *Session) fail(err error) {
	escalation := Escalation{Tag: TagUnreachable, ShouldCreateTicket: true, At: s.clock.Now()}
	var invErr *InvocationError
	if errors.As(err, &invErr) {
		escalation.Tag = invErr.Tag()
		escalation.ShouldCreateTicket = invErr.ShouldCreateTicket || invErr.Tag() != TagRateLimited
	}
	s.logger.Warn("chat invocation failed", zap.String("tag", escalation.Tag), zap.Error(err))

	reply := FallbackReply(s.random.Intn(FallbackCount()))

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	s.escalation = &escalation

	var timer *clock.Timer
	timer = s.clock.AfterFunc(s.delay, func() {
		s.mu.Lock()
		if s.closed || s.pending != timer {
			s.mu.Unlock()
			return
		}
		msg := s.appendLocked(domain.RoleAssistant, reply)
		s.pending = nil
		s.mu.Unlock()
		s.complete(msg)
	})
	s.pending = timer
}

// Wait blocks until no reply is outstanding.
func (s *Session) Wait(ctx context.Context) error {
	s.mu.Lock()
	idle := s.idle
	s.mu.Unlock()

	select {
	case <-idle:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Waiting reports whether a reply is outstanding.
func (s *Session) Waiting() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.waiting
}

// Escalation returns the most recent escalation signal, or nil.
func (s *Session) Escalation() *Escalation {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.escalation == nil {
		return nil
	}
	e := *s.escalation
	return &e
}

// Transcript returns a copy of the messages so far.
func (s *Session) Transcript() []domain.Message {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]domain.Message, len(s.transcript))
	copy(out, s.transcript)
	return out
}

// Close cancels a pending canned reply. Later submissions are ignored.
func (s *Session) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	s.closed = true
	if s.pending != nil {
		s.pending.Stop()
		s.pending = nil
	}
	s.finishLocked()
}

func (s *Session) appendLocked(role domain.Role, content string) domain.Message {
	msg := domain.Message{
		ID:        uuid.NewString(),
		Role:      role,
		Content:   content,
		Timestamp: s.clock.Now(),
	}
	s.transcript = append(s.transcript, msg)
	return msg
}

func (s *Session) finishLocked() {
	if !s.waiting {
		return
	}
	s.waiting = false
	close(s.idle)
}

// complete reports the reply before leaving the waiting state, so Wait returns only after
// observers have seen it.
func (s *Session) complete(reply domain.Message) {
	s.notify(reply)
	s.mu.Lock()
	s.finishLocked()
	s.mu.Unlock()
}

func (s *Session) notify(msg domain.Message) {
	if s.onMessage != nil {
		s.onMessage(msg)
	}
}
