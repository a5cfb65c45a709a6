package services

import (
	"context"
	"errors"

	"caresync_back_end_go/models"
)

// Errors returned by ConsultationStore implementations. Handlers map
// these onto HTTP statuses; everything else is treated as an internal
// fault.
var (
	ErrUnauthorized        = errors.New("identity could not be resolved")
	ErrNotFound            = errors.New("appointment not found")
	ErrChatNotYetAvailable = errors.New("chat is not available until the appointment time")
	ErrEmptyMessage        = errors.New("message body is empty")
)

// Participant is the authenticated caller, resolved from the bearer
// token. UserType is either "patient" or "doctor".
type Participant struct {
	UserID   string
	UserType string
}

// ConsultationStore is the consultation thread/message contract.
//
// ListMessages and AppendMessage recompute the gating state at call
// time. AppendMessage must update the thread preview atomically with
// the message insert: no reader may observe one without the other.
type ConsultationStore interface {
	// ListThreads returns every consultation the participant is a
	// party to, newest activity first, with last-message previews.
	ListThreads(ctx context.Context, p Participant) ([]models.ThreadSummary, error)

	// ListMessages returns the ordered history for one appointment
	// together with the freshly computed gating state. Returns
	// ErrNotFound when the appointment does not exist or the
	// participant is not a party to it.
	ListMessages(ctx context.Context, appointmentID string, p Participant) (*models.MessageList, error)

	// AppendMessage inserts a message when gating allows it. A
	// non-empty clientKey makes the call idempotent per thread: a
	// replay returns the originally stored message.
	AppendMessage(ctx context.Context, appointmentID string, p Participant, body string, clientKey string) (*models.ConsultationMessage, error)
}
