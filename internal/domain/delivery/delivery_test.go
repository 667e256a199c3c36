package delivery

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestStatusIsValid(t *testing.T) {
	valid := []Status{
		StatusPending, StatusAccepted, StatusDriverEnRoute, StatusArrivedAtPickup,
		StatusInTransit, StatusArrivedAtDropoff, StatusCompleted, StatusCancelled,
	}
	for _, s := range valid {
		assert.True(t, s.IsValid(), "expected %s to be valid", s)
	}
	assert.False(t, Status("delivering").IsValid())
	assert.False(t, Status("").IsValid())
}

func TestStatusInProgress(t *testing.T) {
	tests := []struct {
		status Status
		want   bool
	}{
		{StatusPending, false},
		{StatusAccepted, true},
		{StatusDriverEnRoute, true},
		{StatusArrivedAtPickup, true},
		{StatusInTransit, true},
		{StatusArrivedAtDropoff, true},
		{StatusCompleted, false},
		{StatusCancelled, false},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, tt.status.InProgress(), "status %s", tt.status)
	}
}

func TestStatusIsTerminal(t *testing.T) {
	assert.True(t, StatusCompleted.IsTerminal())
	assert.True(t, StatusCancelled.IsTerminal())
	assert.False(t, StatusPending.IsTerminal())
	assert.False(t, StatusInTransit.IsTerminal())
}

func TestCanTransitionTo(t *testing.T) {
	tests := []struct {
		name string
		from Status
		to   Status
		want bool
	}{
		{"accepted to en route", StatusAccepted, StatusDriverEnRoute, true},
		{"accepted to cancelled", StatusAccepted, StatusCancelled, true},
		{"en route to arrived at pickup", StatusDriverEnRoute, StatusArrivedAtPickup, true},
		{"arrived at pickup to in transit", StatusArrivedAtPickup, StatusInTransit, true},
		{"in transit to arrived at dropoff", StatusInTransit, StatusArrivedAtDropoff, true},
		{"arrived at dropoff to completed", StatusArrivedAtDropoff, StatusCompleted, true},

		// The acceptance transition belongs to the arbiter, never the driver.
		{"pending to accepted", StatusPending, StatusAccepted, false},
		{"skipping a step", StatusInTransit, StatusCompleted, false},
		{"going backwards", StatusInTransit, StatusDriverEnRoute, false},
		{"from terminal", StatusCompleted, StatusInTransit, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.from.CanTransitionTo(tt.to))
		})
	}
}

func TestHasDestination(t *testing.T) {
	d := &Delivery{}
	assert.False(t, d.HasDestination())

	lat := 37.0
	d.DropoffLatitude = &lat
	assert.False(t, d.HasDestination(), "both coordinates are required")

	lng := -122.0
	d.DropoffLongitude = &lng
	assert.True(t, d.HasDestination())
}
