package models

import (
	"time"
)

// ThreadSummary is one row in a participant's consultation list. The
// preview fields are denormalized from the latest message so the list
// renders without touching the messages table.
type ThreadSummary struct {
	AppointmentID   string     `json:"appointment_id"`
	CounterpartName string     `json:"counterpart_name"`
	LastMessage     string     `json:"last_message"`
	LastMessageAt   *time.Time `json:"last_message_at"`
	ScheduledDate   string     `json:"scheduled_date"`
	ScheduledTime   string     `json:"scheduled_time"`
}

type ConsultationMessage struct {
	ID         int64     `json:"id"`
	SenderRole string    `json:"sender_role"`
	Body       string    `json:"body"`
	CreatedAt  time.Time `json:"created_at"`
}

// MessageList is the listMessages payload. CanChat is recomputed on
// every request, it is never persisted.
type MessageList struct {
	Messages      []ConsultationMessage `json:"messages"`
	CanChat       bool                  `json:"can_chat"`
	ScheduledDate string                `json:"scheduled_date"`
	ScheduledTime string                `json:"scheduled_time"`
}
