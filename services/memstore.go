package services

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"caresync_back_end_go/models"
)

// MemStore is an in-memory ConsultationStore with the same contract as
// PostgresStore. It backs the package tests and the sync-client
// end-to-end tests, where a database is not available.
type MemStore struct {
	mu   sync.RWMutex
	Now  func() time.Time
	next int64

	names        map[string]string
	appointments map[string]models.Appointment
	threads      map[string]*memThread
}

type memThread struct {
	messages      []models.ConsultationMessage
	byClientKey   map[string]int64
	lastMessage   string
	lastMessageAt time.Time
	hasPreview    bool
}

func (th *memThread) messageByID(id int64) (models.ConsultationMessage, bool) {
	for _, m := range th.messages {
		if m.ID == id {
			return m, true
		}
	}
	return models.ConsultationMessage{}, false
}

func NewMemStore() *MemStore {
	return &MemStore{
		names:        make(map[string]string),
		appointments: make(map[string]models.Appointment),
		threads:      make(map[string]*memThread),
	}
}

func (s *MemStore) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now()
}

// SetName registers a display name for a patient or doctor id.
func (s *MemStore) SetName(userID, name string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.names[userID] = name
}

// AddAppointment seeds a booked appointment (the booking-subsystem
// boundary).
func (s *MemStore) AddAppointment(a models.Appointment) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.appointments[a.AppointmentID] = a
}

func (s *MemStore) ListThreads(ctx context.Context, p Participant) ([]models.ThreadSummary, error) {
	if p.UserType != "patient" && p.UserType != "doctor" {
		return nil, ErrUnauthorized
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	var threads []models.ThreadSummary
	for _, a := range s.appointments {
		var counterpart string
		switch {
		case p.UserType == "patient" && a.PatientID == p.UserID:
			counterpart = s.names[a.DoctorID]
		case p.UserType == "doctor" && a.DoctorID == p.UserID:
			counterpart = s.names[a.PatientID]
		default:
			continue
		}

		t := models.ThreadSummary{
			AppointmentID:   a.AppointmentID,
			CounterpartName: counterpart,
			ScheduledDate:   a.ScheduledAt.Format("2006-01-02"),
			ScheduledTime:   a.ScheduledAt.Format("15:04"),
		}
		if th, ok := s.threads[a.AppointmentID]; ok && th.hasPreview {
			t.LastMessage = th.lastMessage
			at := th.lastMessageAt
			t.LastMessageAt = &at
		}
		threads = append(threads, t)
	}

	sort.SliceStable(threads, func(i, j int) bool {
		li, lj := threads[i].LastMessageAt, threads[j].LastMessageAt
		if li != nil && lj != nil && !li.Equal(*lj) {
			return li.After(*lj)
		}
		if (li != nil) != (lj != nil) {
			return li != nil
		}
		return threads[i].ScheduledDate+threads[i].ScheduledTime > threads[j].ScheduledDate+threads[j].ScheduledTime
	})

	return threads, nil
}

func (s *MemStore) lookupAppointment(appointmentID string, p Participant) (models.Appointment, error) {
	a, ok := s.appointments[appointmentID]
	if !ok {
		return models.Appointment{}, ErrNotFound
	}
	switch {
	case p.UserType == "patient" && p.UserID == a.PatientID:
	case p.UserType == "doctor" && p.UserID == a.DoctorID:
	default:
		return models.Appointment{}, ErrNotFound
	}
	return a, nil
}

func (s *MemStore) ensureThread(appointmentID string) *memThread {
	th, ok := s.threads[appointmentID]
	if !ok {
		th = &memThread{byClientKey: make(map[string]int64)}
		s.threads[appointmentID] = th
	}
	return th
}

func (s *MemStore) ListMessages(ctx context.Context, appointmentID string, p Participant) (*models.MessageList, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	a, err := s.lookupAppointment(appointmentID, p)
	if err != nil {
		return nil, err
	}
	th := s.ensureThread(appointmentID)

	messages := make([]models.ConsultationMessage, len(th.messages))
	copy(messages, th.messages)

	return &models.MessageList{
		Messages:      messages,
		CanChat:       CanChat(a.ScheduledAt, s.now()),
		ScheduledDate: a.ScheduledAt.Format("2006-01-02"),
		ScheduledTime: a.ScheduledAt.Format("15:04"),
	}, nil
}

func (s *MemStore) AppendMessage(ctx context.Context, appointmentID string, p Participant, body string, clientKey string) (*models.ConsultationMessage, error) {
	body = strings.TrimSpace(body)
	if body == "" {
		return nil, ErrEmptyMessage
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	a, err := s.lookupAppointment(appointmentID, p)
	if err != nil {
		return nil, err
	}
	if !CanChat(a.ScheduledAt, s.now()) {
		return nil, ErrChatNotYetAvailable
	}

	th := s.ensureThread(appointmentID)

	if clientKey != "" {
		if id, ok := th.byClientKey[clientKey]; ok {
			if msg, found := th.messageByID(id); found {
				return &msg, nil
			}
		}
	}

	s.next++
	msg := models.ConsultationMessage{
		ID:         s.next,
		SenderRole: p.UserType,
		Body:       body,
		CreatedAt:  s.now(),
	}
	th.messages = append(th.messages, msg)
	sort.SliceStable(th.messages, func(i, j int) bool {
		if !th.messages[i].CreatedAt.Equal(th.messages[j].CreatedAt) {
			return th.messages[i].CreatedAt.Before(th.messages[j].CreatedAt)
		}
		return th.messages[i].ID < th.messages[j].ID
	})
	if clientKey != "" {
		th.byClientKey[clientKey] = msg.ID
	}

	// Preview and insert change under the same lock, readers see both
	// or neither.
	th.lastMessage = msg.Body
	th.lastMessageAt = msg.CreatedAt
	th.hasPreview = true

	return &msg, nil
}
