// Package client talks to the helpdesk API on behalf of the CLI.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/spec-kit/helpdesk/internal/api/dto"
	"github.com/spec-kit/helpdesk/internal/chat"
	"github.com/spec-kit/helpdesk/internal/continuity"
	"github.com/spec-kit/helpdesk/internal/domain"
	apperrors "github.com/spec-kit/helpdesk/pkg/util/errorutil"
)

const (
	loginAttempts = 3
	loginBackoff  = time.Second
)

var (
	_ continuity.RemoteStore = (*Client)(nil)
	_ chat.Invoker           = (*Client)(nil)
)

// Client is an HTTP client for the helpdesk API.
type Client struct {
	http     *http.Client
	baseURL  string
	apiKey   string
	sessions *SessionStore
	logger   *zap.Logger
	backoff  time.Duration
}

// New builds a client. sessions persists the bearer token between invocations.
func New(httpClient *http.Client, baseURL, apiKey string, sessions *SessionStore, logger *zap.Logger) *Client {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Client{
		http:     httpClient,
		baseURL:  strings.TrimRight(baseURL, "/"),
		apiKey:   apiKey,
		sessions: sessions,
		logger:   logger,
		backoff:  loginBackoff,
	}
}

type envelope[T any] struct {
	Data T `json:"data"`
}

type errorEnvelope struct {
	Error struct {
		Code    string         `json:"code"`
		Message string         `json:"message"`
		Details map[string]any `json:"details"`
	} `json:"error"`
}

// Register creates an account and stores its token.
func (c *Client) Register(ctx context.Context, req dto.UserRegisterRequest) (*domain.Identity, error) {
	var out envelope[dto.AuthEnvelope]
	if err := c.do(ctx, http.MethodPost, "/auth/users/register", "", req, &out); err != nil {
		return nil, err
	}
	return c.storeAuth(ctx, out.Data)
}

// Login signs in and stores the token. Connectivity failures are retried with a growing pause.
func (c *Client) Login(ctx context.Context, email, password string) (*domain.Identity, error) {
	req := dto.UserLoginRequest{Email: email, Password: password}
	var lastErr error
	for attempt := 0; attempt < loginAttempts; attempt++ {
		var out envelope[dto.AuthEnvelope]
		err := c.do(ctx, http.MethodPost, "/auth/users/login", "", req, &out)
		if err == nil {
			return c.storeAuth(ctx, out.Data)
		}
		lastErr = err
		if !apperrors.HasCode(err, apperrors.CodeConnectivity) || attempt == loginAttempts-1 {
			break
		}
		c.logger.Debug("login attempt failed, retrying", zap.Int("attempt", attempt+1), zap.Error(err))
		if err := sleep(ctx, c.backoff*time.Duration(attempt+1)); err != nil {
			return nil, err
		}
	}
	return nil, lastErr
}

// Logout forgets the stored token.
func (c *Client) Logout(ctx context.Context) error {
	return c.sessions.Clear(ctx)
}

func (c *Client) storeAuth(ctx context.Context, data dto.AuthEnvelope) (*domain.Identity, error) {
	if err := c.sessions.Save(ctx, data.Auth.Token, data.Auth.ExpiresAt); err != nil {
		return nil, fmt.Errorf("store session: %w", err)
	}
	identity := data.User.Identity()
	return &identity, nil
}

// Session returns the identity behind the stored token, or nil when there is none or the
// server no longer accepts it.
func (c *Client) Session(ctx context.Context) (*domain.Identity, error) {
	token, err := c.sessions.Token(ctx)
	if err != nil || token == "" {
		return nil, err
	}
	var out envelope[dto.IdentityResponse]
	if err := c.do(ctx, http.MethodGet, "/auth/session", token, nil, &out); err != nil {
		if isUnauthorized(err) {
			return nil, nil
		}
		return nil, err
	}
	identity := out.Data.Identity()
	return &identity, nil
}

// InsertTicket creates the ticket remotely, proposing its client number.
func (c *Client) InsertTicket(ctx context.Context, ticket domain.Ticket) (*domain.Ticket, error) {
	token, err := c.requireToken(ctx)
	if err != nil {
		return nil, err
	}
	req := dto.CreateTicketRequest{
		Title:        ticket.Title,
		Description:  ticket.Description,
		Category:     ticket.Category,
		Priority:     ticket.Priority,
		TicketNumber: ticket.TicketNumber,
	}
	var out envelope[dto.TicketResponse]
	if err := c.do(ctx, http.MethodPost, "/tickets", token, req, &out); err != nil {
		return nil, err
	}
	created := out.Data.Ticket()
	return &created, nil
}

// ListTickets lists the signed-in user's tickets. The server scopes by token, so ownerID is
// only checked against the result.
func (c *Client) ListTickets(ctx context.Context, ownerID string) ([]domain.Ticket, error) {
	token, err := c.requireToken(ctx)
	if err != nil {
		return nil, err
	}
	var out envelope[[]dto.TicketResponse]
	if err := c.do(ctx, http.MethodGet, "/tickets", token, nil, &out); err != nil {
		return nil, err
	}
	tickets := make([]domain.Ticket, 0, len(out.Data))
	for _, t := range out.Data {
		if ownerID != "" && t.UserID != ownerID {
			return nil, apperrors.NewForbidden("session belongs to another user")
		}
		tickets = append(tickets, t.Ticket())
	}
	return tickets, nil
}

// LatestTicket returns the newest ticket, or nil when there is none.
func (c *Client) LatestTicket(ctx context.Context, ownerID string) (*domain.Ticket, error) {
	token, err := c.requireToken(ctx)
	if err != nil {
		return nil, err
	}
	var out envelope[*dto.TicketResponse]
	if err := c.do(ctx, http.MethodGet, "/tickets/latest", token, nil, &out); err != nil {
		return nil, err
	}
	if out.Data == nil {
		return nil, nil
	}
	if ownerID != "" && out.Data.UserID != ownerID {
		return nil, apperrors.NewForbidden("session belongs to another user")
	}
	ticket := out.Data.Ticket()
	return &ticket, nil
}

// Invoke calls the chat endpoint. A non-2xx answer comes back as *chat.InvocationError.
func (c *Client) Invoke(ctx context.Context, message, ticketID string) (string, error) {
	token, _ := c.sessions.Token(ctx)
	resp, err := c.send(ctx, http.MethodPost, "/functions/chat", token, dto.ChatRequest{Message: message, TicketID: ticketID})
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	var body dto.ChatResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil && !errors.Is(err, io.EOF) {
		return "", fmt.Errorf("decode chat response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return "", &chat.InvocationError{
			StatusCode:         resp.StatusCode,
			Message:            body.Error,
			ShouldCreateTicket: body.ShouldCreateTicket,
		}
	}
	return body.Response, nil
}

func (c *Client) requireToken(ctx context.Context) (string, error) {
	token, err := c.sessions.Token(ctx)
	if err != nil {
		return "", err
	}
	if token == "" {
		return "", apperrors.NewNotAuthenticated("not signed in")
	}
	return token, nil
}

func (c *Client) do(ctx context.Context, method, path, token string, in, out any) error {
	resp, err := c.send(ctx, method, path, token, in)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return decodeError(resp)
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode %s %s: %w", method, path, err)
	}
	return nil
}

// send wraps transport failures as connectivity errors.
func (c *Client) send(ctx context.Context, method, path, token string, in any) (*http.Response, error) {
	var body io.Reader
	if in != nil {
		raw, err := json.Marshal(in)
		if err != nil {
			return nil, err
		}
		body = bytes.NewReader(raw)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return nil, err
	}
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.apiKey != "" {
		req.Header.Set("apikey", c.apiKey)
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, apperrors.NewConnectivityError(err)
	}
	return resp, nil
}

func decodeError(resp *http.Response) error {
	var env errorEnvelope
	raw, _ := io.ReadAll(io.LimitReader(resp.Body, 1<<16))
	if err := json.Unmarshal(raw, &env); err != nil || env.Error.Code == "" {
		return &apperrors.DomainError{
			Code:       apperrors.CodeInternal,
			Message:    fmt.Sprintf("unexpected status %d", resp.StatusCode),
			HTTPStatus: resp.StatusCode,
		}
	}
	return &apperrors.DomainError{
		Code:       env.Error.Code,
		Message:    env.Error.Message,
		HTTPStatus: resp.StatusCode,
		Details:    env.Error.Details,
	}
}

func isUnauthorized(err error) bool {
	var domainErr *apperrors.DomainError
	return errors.As(err, &domainErr) && domainErr.HTTPStatus == http.StatusUnauthorized
}

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
