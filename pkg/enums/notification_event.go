package enums

// NotificationEvent identifies an email fan-out trigger.
type NotificationEvent string

const (
	NotificationEventNewBooking      NotificationEvent = "new_booking"
	NotificationEventStatusConfirmed NotificationEvent = "status_confirmed"
	NotificationEventStatusCancelled NotificationEvent = "status_cancelled"
	NotificationEventStatusRejected  NotificationEvent = "status_rejected"
	NotificationEventReminder        NotificationEvent = "reminder"
)

// String implements fmt.Stringer.
func (e NotificationEvent) String() string {
	return string(e)
}

// NotificationEventForStatus maps a status change to its event. The boolean
// is false when the new status does not notify anyone.
func NotificationEventForStatus(status AppointmentStatus) (NotificationEvent, bool) {
	switch status {
	case AppointmentStatusConfirmed:
		return NotificationEventStatusConfirmed, true
	case AppointmentStatusCancelled:
		return NotificationEventStatusCancelled, true
	case AppointmentStatusRejected:
		return NotificationEventStatusRejected, true
	default:
		return "", false
	}
}
