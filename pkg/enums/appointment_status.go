package enums

import "fmt"

// AppointmentStatus tracks an appointment through its lifecycle.
type AppointmentStatus string

const (
	AppointmentStatusBooked    AppointmentStatus = "booked"
	AppointmentStatusConfirmed AppointmentStatus = "confirmed"
	AppointmentStatusCompleted AppointmentStatus = "completed"
	AppointmentStatusCancelled AppointmentStatus = "cancelled"
	AppointmentStatusRejected  AppointmentStatus = "rejected"
)

// validAppointmentStatuses is ordered by list priority.
var validAppointmentStatuses = []AppointmentStatus{
	AppointmentStatusBooked,
	AppointmentStatusConfirmed,
	AppointmentStatusCompleted,
	AppointmentStatusCancelled,
	AppointmentStatusRejected,
}

var appointmentTransitions = map[AppointmentStatus][]AppointmentStatus{
	AppointmentStatusBooked: {
		AppointmentStatusConfirmed,
		AppointmentStatusRejected,
		AppointmentStatusCancelled,
	},
	AppointmentStatusConfirmed: {
		AppointmentStatusCompleted,
		AppointmentStatusCancelled,
	},
}

// String implements fmt.Stringer.
func (s AppointmentStatus) String() string {
	return string(s)
}

// IsValid reports whether the value is a known AppointmentStatus.
func (s AppointmentStatus) IsValid() bool {
	for _, candidate := range validAppointmentStatuses {
		if candidate == s {
			return true
		}
	}
	return false
}

// IsTerminal reports whether no further transitions leave this status.
func (s AppointmentStatus) IsTerminal() bool {
	switch s {
	case AppointmentStatusCompleted, AppointmentStatusRejected, AppointmentStatusCancelled:
		return true
	default:
		return false
	}
}

// Priority is the list sort rank; lower values surface first.
func (s AppointmentStatus) Priority() int {
	for i, candidate := range validAppointmentStatuses {
		if candidate == s {
			return i + 1
		}
	}
	return len(validAppointmentStatuses) + 1
}

// CanTransitionTo reports whether moving from s to next is allowed.
// Re-applying the current status is always accepted as a no-op.
func (s AppointmentStatus) CanTransitionTo(next AppointmentStatus) bool {
	if s == next {
		return true
	}
	for _, candidate := range appointmentTransitions[s] {
		if candidate == next {
			return true
		}
	}
	return false
}

// AppointmentStatusesByPriority returns every status in list order.
func AppointmentStatusesByPriority() []AppointmentStatus {
	out := make([]AppointmentStatus, len(validAppointmentStatuses))
	copy(out, validAppointmentStatuses)
	return out
}

// ParseAppointmentStatus converts raw input into an AppointmentStatus.
func ParseAppointmentStatus(value string) (AppointmentStatus, error) {
	for _, candidate := range validAppointmentStatuses {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid appointment status %q", value)
}
