package events

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPublishReachesEverySubscriber(t *testing.T) {
	d := NewInMemoryDispatcher(nil)
	var got []string
	d.Subscribe(EventTicketCreated, func(_ context.Context, e Event) error {
		got = append(got, "failing:"+e.TicketID)
		return errors.New("boom")
	})
	d.Subscribe(EventTicketCreated, func(_ context.Context, e Event) error {
		got = append(got, "ok:"+e.TicketID)
		return nil
	})
	d.Subscribe(EventChatEscalated, func(context.Context, Event) error {
		t.Error("unrelated subscriber called")
		return nil
	})

	require.NoError(t, d.Publish(context.Background(), New(EventTicketCreated, "t-1", "u-1", nil)))
	assert.Equal(t, []string{"failing:t-1", "ok:t-1"}, got)
}

func TestNewStampsIdentity(t *testing.T) {
	e := New(EventChatEscalated, "", "u-1", ChatEscalatedPayload{Failure: "rate_limited"})
	assert.NotEmpty(t, e.ID)
	assert.False(t, e.Timestamp.IsZero())
	assert.Equal(t, "u-1", e.UserID)
}
