package client

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/spec-kit/helpdesk/internal/continuity"
)

// KeyRemoteSession holds the bearer token of the signed-in remote user.
const KeyRemoteSession = "remote-session"

type storedSession struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
}

// SessionStore keeps the bearer token next to the fallback entries.
type SessionStore struct {
	local continuity.LocalStore
	now   func() time.Time
}

func NewSessionStore(local continuity.LocalStore) *SessionStore {
	return &SessionStore{local: local, now: time.Now}
}

// Token returns the stored token, or "" when absent or expired.
func (s *SessionStore) Token(ctx context.Context) (string, error) {
	raw, err := s.local.Read(ctx, KeyRemoteSession)
	if errors.Is(err, continuity.ErrNotFound) {
		return "", nil
	}
	if err != nil {
		return "", err
	}
	var session storedSession
	if err := json.Unmarshal(raw, &session); err != nil {
		return "", nil
	}
	if !session.ExpiresAt.IsZero() && s.now().After(session.ExpiresAt) {
		return "", nil
	}
	return session.Token, nil
}

func (s *SessionStore) Save(ctx context.Context, token string, expiresAt time.Time) error {
	raw, err := json.Marshal(storedSession{Token: token, ExpiresAt: expiresAt})
	if err != nil {
		return err
	}
	return s.local.Write(ctx, KeyRemoteSession, raw)
}

func (s *SessionStore) Clear(ctx context.Context) error {
	return s.local.Delete(ctx, KeyRemoteSession)
}
