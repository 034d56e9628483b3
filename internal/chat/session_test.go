package chat

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/spec-kit/helpdesk/internal/clock"
	"github.com/spec-kit/helpdesk/internal/domain"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

var epoch = time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC)

type invokerFunc func(ctx context.Context, message, ticketID string) (string, error)

func (f invokerFunc) Invoke(ctx context.Context, message, ticketID string) (string, error) {
	return f(ctx, message, ticketID)
}

type fixedRandom int

func (r fixedRandom) Intn(int) int { return int(r) }

func roles(msgs []domain.Message) []domain.Role {
	out := make([]domain.Role, 0, len(msgs))
	for _, m := range msgs {
		out = append(out, m.Role)
	}
	return out
}

func TestSubmitAnswersFromKnowledgeBase(t *testing.T) {
	var seen []domain.Message
	session := NewSession(Options{
		Invoker: invokerFunc(func(_ context.Context, message, _ string) (string, error) {
			assert.Equal(t, "my vpn is down", message)
			return "Reconnect the VPN client and re-enter your token.", nil
		}),
		Clock:     clock.NewFake(epoch),
		OnMessage: func(m domain.Message) { seen = append(seen, m) },
	})

	res := session.Submit(context.Background(), "my vpn is down")
	assert.Equal(t, SubmitResult{Accepted: true}, res)

	transcript := session.Transcript()
	require.Len(t, transcript, 2)
	assert.Equal(t, []domain.Role{domain.RoleUser, domain.RoleAssistant}, roles(transcript))
	assert.Equal(t, "Reconnect the VPN client and re-enter your token.", transcript[1].Content)
	assert.Equal(t, transcript, seen)
	assert.False(t, session.Waiting())
	assert.Nil(t, session.Escalation())
}

func TestSubmitIgnoresBlankInput(t *testing.T) {
	var calls atomic.Int32
	session := NewSession(Options{
		Invoker: invokerFunc(func(context.Context, string, string) (string, error) {
			calls.Add(1)
			return "x", nil
		}),
		Clock: clock.NewFake(epoch),
	})

	assert.Equal(t, SubmitResult{}, session.Submit(context.Background(), "   \n\t"))
	assert.Empty(t, session.Transcript())
	assert.Zero(t, calls.Load())
}

func TestRateLimitedReplyArrivesAfterDelay(t *testing.T) {
	fake := clock.NewFake(epoch)
	session := NewSession(Options{
		Invoker: invokerFunc(func(context.Context, string, string) (string, error) {
			return "", &InvocationError{StatusCode: http.StatusTooManyRequests, Message: "Rate limit exceeded. Please try again in a moment."}
		}),
		Clock:         fake,
		Random:        fixedRandom(2),
		FallbackDelay: time.Second,
	})

	res := session.Submit(context.Background(), "printer offline")
	assert.True(t, res.Accepted)
	require.Len(t, session.Transcript(), 1)
	assert.True(t, session.Waiting())

	escalation := session.Escalation()
	require.NotNil(t, escalation)
	assert.Equal(t, TagRateLimited, escalation.Tag)

	fake.Advance(999 * time.Millisecond)
	assert.Len(t, session.Transcript(), 1)

	fake.Advance(time.Millisecond)
	transcript := session.Transcript()
	require.Len(t, transcript, 2)
	assert.Equal(t, domain.RoleAssistant, transcript[1].Role)
	assert.Equal(t, FallbackReply(2), transcript[1].Content)
	assert.True(t, transcript[1].Timestamp.After(transcript[0].Timestamp))
	assert.False(t, session.Waiting())
	require.NoError(t, session.Wait(context.Background()))
}

func TestEveryFailureYieldsExactlyOneReply(t *testing.T) {
	failures := map[string]error{
		"quota":       &InvocationError{StatusCode: http.StatusPaymentRequired, ShouldCreateTicket: true},
		"server":      &InvocationError{StatusCode: http.StatusInternalServerError, ShouldCreateTicket: true},
		"unreachable": errors.New("dial tcp: connection refused"),
	}
	wantTags := map[string]string{"quota": TagQuotaExhausted, "server": TagUnavailable, "unreachable": TagUnreachable}

	for name, failure := range failures {
		t.Run(name, func(t *testing.T) {
			fake := clock.NewFake(epoch)
			session := NewSession(Options{
				Invoker: invokerFunc(func(context.Context, string, string) (string, error) { return "", failure }),
				Clock:   fake,
				Random:  fixedRandom(0),
			})

			session.Submit(context.Background(), "help")
			fake.Advance(time.Minute)
			fake.Advance(time.Minute)

			assert.Equal(t, []domain.Role{domain.RoleUser, domain.RoleAssistant}, roles(session.Transcript()))
			require.NotNil(t, session.Escalation())
			assert.Equal(t, wantTags[name], session.Escalation().Tag)
			assert.True(t, session.Escalation().ShouldCreateTicket)
			assert.Zero(t, fake.Pending())
		})
	}
}

func TestSubmitWhileWaitingIsDropped(t *testing.T) {
	release := make(chan struct{})
	entered := make(chan struct{})
	var calls atomic.Int32
	session := NewSession(Options{
		Invoker: invokerFunc(func(context.Context, string, string) (string, error) {
			calls.Add(1)
			close(entered)
			<-release
			return "done", nil
		}),
		Clock: clock.NewFake(epoch),
	})

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		session.Submit(context.Background(), "first")
	}()
	<-entered

	for i := 0; i < 3; i++ {
		assert.Equal(t, SubmitResult{Busy: true}, session.Submit(context.Background(), "again"))
	}
	close(release)
	wg.Wait()

	assert.Equal(t, int32(1), calls.Load())
	transcript := session.Transcript()
	require.Len(t, transcript, 2)
	assert.Equal(t, "first", transcript[0].Content)
	assert.Equal(t, "done", transcript[1].Content)
}

func TestSubmitDuringDelayedReplyIsDropped(t *testing.T) {
	fake := clock.NewFake(epoch)
	var calls atomic.Int32
	session := NewSession(Options{
		Invoker: invokerFunc(func(context.Context, string, string) (string, error) {
			calls.Add(1)
			return "", &InvocationError{StatusCode: http.StatusInternalServerError}
		}),
		Clock:  fake,
		Random: fixedRandom(1),
	})

	session.Submit(context.Background(), "first")
	assert.Equal(t, SubmitResult{Busy: true}, session.Submit(context.Background(), "second"))
	fake.Advance(DefaultFallbackDelay)

	assert.Equal(t, int32(1), calls.Load())
	assert.Len(t, session.Transcript(), 2)
}

func TestEmptyReplyUsesFriendlyMessage(t *testing.T) {
	session := NewSession(Options{
		Invoker: invokerFunc(func(context.Context, string, string) (string, error) { return "  ", nil }),
		Clock:   clock.NewFake(epoch),
	})

	session.Submit(context.Background(), "hello")
	transcript := session.Transcript()
	require.Len(t, transcript, 2)
	assert.Equal(t, EmptyReply, transcript[1].Content)
}

func TestTicketIDIsForwarded(t *testing.T) {
	var got string
	session := NewSession(Options{
		Invoker: invokerFunc(func(_ context.Context, _ string, ticketID string) (string, error) {
			got = ticketID
			return "ok", nil
		}),
		Clock:    clock.NewFake(epoch),
		TicketID: "t-42",
	})

	session.Submit(context.Background(), "status?")
	assert.Equal(t, "t-42", got)
}

func TestCloseCancelsPendingReply(t *testing.T) {
	fake := clock.NewFake(epoch)
	session := NewSession(Options{
		Invoker: invokerFunc(func(context.Context, string, string) (string, error) {
			return "", &InvocationError{StatusCode: http.StatusTooManyRequests}
		}),
		Clock: fake,
	})

	session.Submit(context.Background(), "hello")
	session.Close()
	fake.Advance(time.Minute)

	assert.Len(t, session.Transcript(), 1)
	assert.False(t, session.Waiting())
	assert.Equal(t, SubmitResult{}, session.Submit(context.Background(), "again"))
}

func TestWaitRespectsContext(t *testing.T) {
	fake := clock.NewFake(epoch)
	session := NewSession(Options{
		Invoker: invokerFunc(func(context.Context, string, string) (string, error) {
			return "", errors.New("down")
		}),
		Clock: fake,
	})
	session.Submit(context.Background(), "hello")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, session.Wait(ctx), context.Canceled)

	fake.Advance(DefaultFallbackDelay)
	assert.NoError(t, session.Wait(context.Background()))
}

func TestFallbackReplyCoversEveryIndex(t *testing.T) {
	seen := map[string]bool{}
	for i := -FallbackCount(); i < 2*FallbackCount(); i++ {
		reply := FallbackReply(i)
		assert.NotEmpty(t, reply)
		seen[reply] = true
	}
	assert.Len(t, seen, 5)
	assert.Equal(t, FallbackReply(0), FallbackReply(FallbackCount()))
}
