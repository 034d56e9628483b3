package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalizeAppliesDefaults(t *testing.T) {
	got, problems := TicketFields{Title: "  Printer jam ", Category: "hardware malfunction"}.Normalize()

	assert.Nil(t, problems)
	assert.Equal(t, "Printer jam", got.Title)
	assert.Equal(t, "Hardware Malfunction", got.Category)
	assert.Equal(t, TicketPriorityMedium, got.Priority)
}

func TestNormalizeReportsEveryProblem(t *testing.T) {
	_, problems := TicketFields{Title: " ", Category: "Plumbing", Priority: "urgent"}.Normalize()

	assert.Len(t, problems, 3)
	assert.Contains(t, problems, "title")
	assert.Contains(t, problems, "category")
	assert.Contains(t, problems, "priority")
}

func TestCanTransition(t *testing.T) {
	assert.True(t, CanTransition(TicketStatusOpen, TicketStatusInProgress))
	assert.True(t, CanTransition(TicketStatusResolved, TicketStatusInProgress))
	assert.False(t, CanTransition(TicketStatusResolved, TicketStatusOpen))
	assert.False(t, CanTransition(TicketStatusOpen, TicketStatusOpen))
	for _, s := range []TicketStatus{TicketStatusOpen, TicketStatusInProgress, TicketStatusResolved} {
		assert.False(t, CanTransition(TicketStatusClosed, s))
	}
}
