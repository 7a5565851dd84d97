package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCanTransition(t *testing.T) {
	tests := []struct {
		from, to ApplicationStatus
		want     bool
	}{
		{StatusApplied, StatusReviewing, true},
		{StatusApplied, StatusShortlisted, true},
		{StatusApplied, StatusInterviewing, false},
		{StatusApplied, StatusHired, false},
		{StatusReviewing, StatusInterviewing, true},
		{StatusReviewing, StatusApplied, false},
		{StatusShortlisted, StatusOffered, true},
		{StatusInterviewing, StatusOffered, true},
		{StatusInterviewing, StatusShortlisted, false},
		{StatusOffered, StatusHired, true},
		{StatusOffered, StatusWithdrawn, true},
		{StatusHired, StatusRejected, false},
		{StatusRejected, StatusReviewing, false},
		{StatusWithdrawn, StatusApplied, false},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, CanTransition(tt.from, tt.to), "%s -> %s", tt.from, tt.to)
	}
}

func TestEveryNonTerminalStatusCanBeWithdrawnOrRejected(t *testing.T) {
	for _, s := range []ApplicationStatus{StatusApplied, StatusReviewing, StatusShortlisted, StatusInterviewing, StatusOffered} {
		assert.False(t, s.IsTerminal(), s)
		assert.True(t, CanTransition(s, StatusWithdrawn), s)
		assert.True(t, CanTransition(s, StatusRejected), s)
	}
	for _, s := range []ApplicationStatus{StatusHired, StatusRejected, StatusWithdrawn} {
		assert.True(t, s.IsTerminal(), s)
	}
}

func TestApplicationStatusValid(t *testing.T) {
	assert.True(t, StatusInterviewing.Valid())
	assert.False(t, ApplicationStatus("pending").Valid())
	assert.False(t, ApplicationStatus("").Valid())
}
