package enums

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestAppointmentStatusTransitions(t *testing.T) {
	cases := []struct {
		from, to AppointmentStatus
		allowed  bool
	}{
		{AppointmentStatusBooked, AppointmentStatusConfirmed, true},
		{AppointmentStatusBooked, AppointmentStatusRejected, true},
		{AppointmentStatusBooked, AppointmentStatusCancelled, true},
		{AppointmentStatusBooked, AppointmentStatusCompleted, false},
		{AppointmentStatusConfirmed, AppointmentStatusCompleted, true},
		{AppointmentStatusConfirmed, AppointmentStatusCancelled, true},
		{AppointmentStatusConfirmed, AppointmentStatusRejected, false},
		{AppointmentStatusConfirmed, AppointmentStatusBooked, false},
		{AppointmentStatusCancelled, AppointmentStatusBooked, false},
		{AppointmentStatusCompleted, AppointmentStatusCancelled, false},
		{AppointmentStatusRejected, AppointmentStatusConfirmed, false},
		{AppointmentStatusCancelled, AppointmentStatusCancelled, true},
	}
	for _, tc := range cases {
		require.Equalf(t, tc.allowed, tc.from.CanTransitionTo(tc.to), "%s -> %s", tc.from, tc.to)
	}
}

func TestAppointmentStatusPriorityAndTerminal(t *testing.T) {
	require.Equal(t, 1, AppointmentStatusBooked.Priority())
	require.Equal(t, 2, AppointmentStatusConfirmed.Priority())
	require.Equal(t, 3, AppointmentStatusCompleted.Priority())
	require.Equal(t, 4, AppointmentStatusCancelled.Priority())
	require.Equal(t, 5, AppointmentStatusRejected.Priority())

	require.False(t, AppointmentStatusBooked.IsTerminal())
	require.False(t, AppointmentStatusConfirmed.IsTerminal())
	require.True(t, AppointmentStatusCompleted.IsTerminal())
	require.True(t, AppointmentStatusCancelled.IsTerminal())
	require.True(t, AppointmentStatusRejected.IsTerminal())

	_, err := ParseAppointmentStatus("pending")
	require.Error(t, err)
}

func TestRoleParsing(t *testing.T) {
	role, err := ParseRole("vet")
	require.NoError(t, err)
	require.Equal(t, RoleVet, role)
	require.True(t, RoleClient.IsValid())
	require.False(t, Role("admin").IsValid())

	_, err = ParseRole("Vet")
	require.Error(t, err)
}

func TestNotificationEventForStatus(t *testing.T) {
	event, ok := NotificationEventForStatus(AppointmentStatusConfirmed)
	require.True(t, ok)
	require.Equal(t, NotificationEventStatusConfirmed, event)

	_, ok = NotificationEventForStatus(AppointmentStatusBooked)
	require.False(t, ok)
	_, ok = NotificationEventForStatus(AppointmentStatusCompleted)
	require.False(t, ok)
}
