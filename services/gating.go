package services

import "time"

// CanChat reports whether the consultation chat for an appointment
// scheduled at scheduledAt is open at the given time. The rule is a
// lower bound only: once the scheduled moment passes, the thread never
// re-closes. Callers must recompute this on every read and every send,
// the result is only meaningful for the instant it was computed.
func CanChat(scheduledAt, now time.Time) bool {
	return !now.Before(scheduledAt)
}
