package cli

import (
	"bytes"
	"context"
	"errors"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spec-kit/helpdesk/internal/api/dto"
	"github.com/spec-kit/helpdesk/internal/chat"
	"github.com/spec-kit/helpdesk/internal/clock"
	"github.com/spec-kit/helpdesk/internal/continuity"
	"github.com/spec-kit/helpdesk/internal/domain"
	apperrors "github.com/spec-kit/helpdesk/pkg/util/errorutil"
)

var errDown = apperrors.NewConnectivityError(errors.New("dial tcp: connection refused"))

type offlineRemote struct{}

func (offlineRemote) Session(context.Context) (*domain.Identity, error) { return nil, errDown }
func (offlineRemote) InsertTicket(context.Context, domain.Ticket) (*domain.Ticket, error) {
	return nil, errDown
}
func (offlineRemote) ListTickets(context.Context, string) ([]domain.Ticket, error) {
	return nil, errDown
}
func (offlineRemote) LatestTicket(context.Context, string) (*domain.Ticket, error) {
	return nil, errDown
}

type stubAccounts struct {
	loginErr  error
	loggedOut bool
}

func (a *stubAccounts) Register(_ context.Context, req dto.UserRegisterRequest) (*domain.Identity, error) {
	return &domain.Identity{ID: "u-1", Email: req.Email, FullName: req.FullName}, nil
}

func (a *stubAccounts) Login(_ context.Context, email, _ string) (*domain.Identity, error) {
	if a.loginErr != nil {
		return nil, a.loginErr
	}
	return &domain.Identity{ID: "u-1", Email: email}, nil
}

func (a *stubAccounts) Logout(context.Context) error {
	a.loggedOut = true
	return nil
}

type stubProbe struct{ result continuity.ProbeResult }

func (p stubProbe) Check(context.Context) continuity.ProbeResult { return p.result }

type invokerFunc func(ctx context.Context, message, ticketID string) (string, error)

func (f invokerFunc) Invoke(ctx context.Context, message, ticketID string) (string, error) {
	return f(ctx, message, ticketID)
}

type fixedRandom int

func (r fixedRandom) Intn(int) int { return int(r) }

func newDeps(accounts *stubAccounts, connected bool, invoker chat.Invoker) (Dependencies, *continuity.Resolver) {
	resolver := continuity.NewResolver(offlineRemote{}, continuity.NewMemoryStore(), clock.Real(), nil)
	return Dependencies{
		Accounts:      accounts,
		Invoker:       invoker,
		Probe:         stubProbe{result: continuity.ProbeResult{Connected: connected, Detail: "HTTP 503: unavailable"}},
		Resolver:      resolver,
		Clock:         clock.Real(),
		Random:        fixedRandom(3),
		FallbackDelay: time.Millisecond,
	}, resolver
}

func execute(t *testing.T, deps Dependencies, stdin string, args ...string) (string, error) {
	t.Helper()
	root := NewRootCommand(deps)
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetIn(strings.NewReader(stdin))
	root.SetArgs(args)
	err := root.ExecuteContext(context.Background())
	return out.String(), err
}

func TestDemoModeTicketLifecycle(t *testing.T) {
	deps, _ := newDeps(&stubAccounts{}, false, nil)

	out, err := execute(t, deps, "", "demo")
	require.NoError(t, err)
	assert.Contains(t, out, "Demo mode active as Demo User")

	out, err = execute(t, deps, "", "whoami")
	require.NoError(t, err)
	assert.Contains(t, out, "demo@example.com")
	assert.Contains(t, out, string(domain.IdentitySourceFallback))

	out, err = execute(t, deps, "", "ticket", "create", "--title", "Printer jam", "--category", "Hardware Malfunction", "--priority", "low")
	require.NoError(t, err)
	assert.Contains(t, out, "Ticket TK-")
	assert.Contains(t, out, "(open)")

	out, err = execute(t, deps, "", "ticket", "list")
	require.NoError(t, err)
	assert.Contains(t, out, "Printer jam")
	assert.Contains(t, out, "Hardware Malfunction")

	out, err = execute(t, deps, "", "ticket", "latest")
	require.NoError(t, err)
	assert.Contains(t, out, "Printer jam")
}

func TestTicketCreateWithoutIdentity(t *testing.T) {
	deps, _ := newDeps(&stubAccounts{}, false, nil)

	_, err := execute(t, deps, "", "ticket", "create", "--title", "X")
	require.Error(t, err)
	assert.ErrorIs(t, err, errNotSignedIn)

	_, err = execute(t, deps, "", "ticket", "list")
	assert.ErrorIs(t, err, errNotSignedIn)
}

func TestTicketCreateReportsValidationProblems(t *testing.T) {
	deps, _ := newDeps(&stubAccounts{}, false, nil)
	_, err := execute(t, deps, "", "demo")
	require.NoError(t, err)

	_, err = execute(t, deps, "", "ticket", "create", "--title", "Broken", "--priority", "urgent")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "priority")
}

func TestLoginFallsBackToDemoWhenDisconnected(t *testing.T) {
	deps, resolver := newDeps(&stubAccounts{}, false, nil)

	out, err := execute(t, deps, "", "login", "--email", "ada@example.com", "--password", "secret1")
	require.NoError(t, err)
	assert.Contains(t, out, "Demo mode active")

	identity, err := resolver.ResolveIdentity(context.Background())
	require.NoError(t, err)
	require.NotNil(t, identity)
	assert.Equal(t, domain.IdentitySourceFallback, identity.Source)
}

func TestLoginFallsBackToDemoOnConnectivityError(t *testing.T) {
	deps, _ := newDeps(&stubAccounts{loginErr: errDown}, true, nil)

	out, err := execute(t, deps, "", "login", "--email", "ada@example.com", "--password", "secret1")
	require.NoError(t, err)
	assert.Contains(t, out, "Demo mode active")
}

func TestLoginRejectsBadCredentials(t *testing.T) {
	deps, _ := newDeps(&stubAccounts{loginErr: apperrors.NewUnauthorized("invalid credentials")}, true, nil)

	_, err := execute(t, deps, "", "login", "--email", "ada@example.com", "--password", "nope")
	require.Error(t, err)
	assert.Equal(t, "invalid email or password", err.Error())
}

func TestLogoutClearsBothIdentities(t *testing.T) {
	accounts := &stubAccounts{}
	deps, resolver := newDeps(accounts, false, nil)
	_, err := execute(t, deps, "", "demo")
	require.NoError(t, err)

	_, err = execute(t, deps, "", "logout")
	require.NoError(t, err)
	assert.True(t, accounts.loggedOut)

	identity, err := resolver.ResolveIdentity(context.Background())
	require.NoError(t, err)
	assert.Nil(t, identity)
}

func TestStatusReportsProbe(t *testing.T) {
	deps, _ := newDeps(&stubAccounts{}, false, nil)
	out, err := execute(t, deps, "", "status")
	require.NoError(t, err)
	assert.Contains(t, out, "disconnected (HTTP 503: unavailable)")

	deps.Probe = stubProbe{result: continuity.ProbeResult{Connected: true}}
	out, err = execute(t, deps, "", "status")
	require.NoError(t, err)
	assert.Equal(t, "connected\n", out)
}

func TestChatPrintsAssistantReplies(t *testing.T) {
	deps, _ := newDeps(&stubAccounts{}, true, invokerFunc(func(_ context.Context, message, _ string) (string, error) {
		return "Reconnect the VPN client.", nil
	}))

	out, err := execute(t, deps, "my vpn is down\n/quit\n", "chat")
	require.NoError(t, err)
	assert.Contains(t, out, "AIVA: "+greeting)
	assert.Contains(t, out, "AIVA: Reconnect the VPN client.")
	assert.NotContains(t, out, "/ticket and I'll pass")
}

func TestChatFailureOffersTicket(t *testing.T) {
	deps, resolver := newDeps(&stubAccounts{}, false, invokerFunc(func(context.Context, string, string) (string, error) {
		return "", &chat.InvocationError{StatusCode: http.StatusInternalServerError, ShouldCreateTicket: true}
	}))
	_, err := execute(t, deps, "", "demo")
	require.NoError(t, err)

	out, err := execute(t, deps, "printer is broken\n/ticket\n", "chat")
	require.NoError(t, err)
	assert.Contains(t, out, "AIVA: "+chat.FallbackReply(3))
	assert.Contains(t, out, "Type /ticket")
	assert.Contains(t, out, "Ticket TK-")

	identity, err := resolver.ResolveIdentity(context.Background())
	require.NoError(t, err)
	tickets, err := resolver.ListTickets(context.Background(), identity.ID)
	require.NoError(t, err)
	require.Len(t, tickets, 1)
	assert.Equal(t, "printer is broken", tickets[0].Title)
	assert.Contains(t, tickets[0].Description, "You: printer is broken")
}

func TestChatInterruptedWhileWaitingExitsCleanly(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	deps, _ := newDeps(&stubAccounts{}, true, invokerFunc(func(context.Context, string, string) (string, error) {
		cancel()
		return "", context.Canceled
	}))
	deps.FallbackDelay = time.Hour

	root := NewRootCommand(deps)
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetIn(strings.NewReader("my vpn is down\nstill there?\n"))
	root.SetArgs([]string{"chat"})

	require.NoError(t, root.ExecuteContext(ctx))
	assert.Contains(t, out.String(), "Bye!")
	assert.NotContains(t, out.String(), "AIVA: "+chat.FallbackReply(3))
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "short", truncate("short", 10))
	assert.Equal(t, "abcd…", truncate("abcdefgh", 5))
}
