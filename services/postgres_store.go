package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"caresync_back_end_go/models"

	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"
)

// PostgresStore is the production ConsultationStore. Now is overridable
// so gating can be exercised around the scheduled moment in tests; it
// defaults to time.Now.
type PostgresStore struct {
	Pool *pgxpool.Pool
	Now  func() time.Time
}

func (s *PostgresStore) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now()
}

func (s *PostgresStore) ListThreads(ctx context.Context, p Participant) ([]models.ThreadSummary, error) {
	var query string
	switch p.UserType {
	case "patient":
		query = `
		SELECT
			a.appointment_id,
			d.first_name || ' ' || d.last_name AS counterpart_name,
			COALESCE(t.last_message, ''),
			t.last_message_at,
			a.scheduled_at
		FROM appointments AS a
		JOIN doctor_info AS d ON d.doctor_id = a.doctor_id
		LEFT JOIN consultation_threads AS t ON t.appointment_id = a.appointment_id
		WHERE a.patient_id = $1
		ORDER BY t.last_message_at DESC NULLS LAST, a.scheduled_at DESC`
	case "doctor":
		query = `
		SELECT
			a.appointment_id,
			pa.first_name || ' ' || pa.last_name AS counterpart_name,
			COALESCE(t.last_message, ''),
			t.last_message_at,
			a.scheduled_at
		FROM appointments AS a
		JOIN patient_info AS pa ON pa.patient_id = a.patient_id
		LEFT JOIN consultation_threads AS t ON t.appointment_id = a.appointment_id
		WHERE a.doctor_id = $1
		ORDER BY t.last_message_at DESC NULLS LAST, a.scheduled_at DESC`
	default:
		return nil, ErrUnauthorized
	}

	rows, err := s.Pool.Query(ctx, query, p.UserID)
	if err != nil {
		return nil, fmt.Errorf("error querying consultations for user %s: %v", p.UserID, err)
	}
	defer rows.Close()

	var threads []models.ThreadSummary
	for rows.Next() {
		var t models.ThreadSummary
		var scheduledAt time.Time
		if err := rows.Scan(&t.AppointmentID, &t.CounterpartName, &t.LastMessage, &t.LastMessageAt, &scheduledAt); err != nil {
			return nil, fmt.Errorf("error scanning consultation row: %v", err)
		}
		t.ScheduledDate = scheduledAt.Format("2006-01-02")
		t.ScheduledTime = scheduledAt.Format("15:04")
		threads = append(threads, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating consultation rows: %v", err)
	}

	return threads, nil
}

// lookupAppointment resolves the appointment and confirms the caller is
// a party to it. A foreign appointment is reported as ErrNotFound so
// thread existence never leaks across participants.
func (s *PostgresStore) lookupAppointment(ctx context.Context, appointmentID string, p Participant) (time.Time, string, string, error) {
	var patientID, doctorID string
	var scheduledAt time.Time
	err := s.Pool.QueryRow(ctx,
		`SELECT patient_id, doctor_id, scheduled_at FROM appointments WHERE appointment_id = $1`,
		appointmentID).Scan(&patientID, &doctorID, &scheduledAt)
	if err == pgx.ErrNoRows {
		return time.Time{}, "", "", ErrNotFound
	}
	if err != nil {
		return time.Time{}, "", "", fmt.Errorf("error looking up appointment %s: %v", appointmentID, err)
	}

	switch {
	case p.UserType == "patient" && p.UserID == patientID:
	case p.UserType == "doctor" && p.UserID == doctorID:
	default:
		return time.Time{}, "", "", ErrNotFound
	}

	return scheduledAt, patientID, doctorID, nil
}

func (s *PostgresStore) ListMessages(ctx context.Context, appointmentID string, p Participant) (*models.MessageList, error) {
	scheduledAt, patientID, doctorID, err := s.lookupAppointment(ctx, appointmentID, p)
	if err != nil {
		return nil, err
	}

	// The thread row is created lazily on the first list request.
	_, err = s.Pool.Exec(ctx,
		`INSERT INTO consultation_threads (appointment_id, patient_id, doctor_id, scheduled_at)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (appointment_id) DO NOTHING`,
		appointmentID, patientID, doctorID, scheduledAt)
	if err != nil {
		return nil, fmt.Errorf("error creating consultation thread: %v", err)
	}

	rows, err := s.Pool.Query(ctx,
		`SELECT id, sender_role, body, created_at FROM consultation_messages
		WHERE thread_id = $1
		ORDER BY created_at ASC, id ASC`,
		appointmentID)
	if err != nil {
		return nil, fmt.Errorf("error querying messages: %v", err)
	}
	defer rows.Close()

	messages := []models.ConsultationMessage{}
	for rows.Next() {
		var m models.ConsultationMessage
		if err := rows.Scan(&m.ID, &m.SenderRole, &m.Body, &m.CreatedAt); err != nil {
			return nil, fmt.Errorf("error scanning message row: %v", err)
		}
		messages = append(messages, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating message rows: %v", err)
	}

	return &models.MessageList{
		Messages:      messages,
		CanChat:       CanChat(scheduledAt, s.now()),
		ScheduledDate: scheduledAt.Format("2006-01-02"),
		ScheduledTime: scheduledAt.Format("15:04"),
	}, nil
}

func (s *PostgresStore) AppendMessage(ctx context.Context, appointmentID string, p Participant, body string, clientKey string) (*models.ConsultationMessage, error) {
	body = strings.TrimSpace(body)
	if body == "" {
		return nil, ErrEmptyMessage
	}

	scheduledAt, patientID, doctorID, err := s.lookupAppointment(ctx, appointmentID, p)
	if err != nil {
		return nil, err
	}
	if !CanChat(scheduledAt, s.now()) {
		return nil, ErrChatNotYetAvailable
	}

	tx, err := s.Pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("error starting transaction: %v", err)
	}
	defer tx.Rollback(ctx)

	_, err = tx.Exec(ctx,
		`INSERT INTO consultation_threads (appointment_id, patient_id, doctor_id, scheduled_at)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (appointment_id) DO NOTHING`,
		appointmentID, patientID, doctorID, scheduledAt)
	if err != nil {
		return nil, fmt.Errorf("error creating consultation thread: %v", err)
	}

	if clientKey != "" {
		var existing models.ConsultationMessage
		err := tx.QueryRow(ctx,
			`SELECT id, sender_role, body, created_at FROM consultation_messages
			WHERE thread_id = $1 AND client_key = $2`,
			appointmentID, clientKey).Scan(&existing.ID, &existing.SenderRole, &existing.Body, &existing.CreatedAt)
		if err == nil {
			// Duplicate submit, return the stored message untouched.
			return &existing, nil
		}
		if err != pgx.ErrNoRows {
			return nil, fmt.Errorf("error checking idempotency key: %v", err)
		}
	}

	msg := models.ConsultationMessage{
		SenderRole: p.UserType,
		Body:       body,
		CreatedAt:  s.now(),
	}
	err = tx.QueryRow(ctx,
		`INSERT INTO consultation_messages (thread_id, sender_role, body, client_key, created_at)
		VALUES ($1, $2, $3, NULLIF($4, '')::uuid, $5)
		RETURNING id`,
		appointmentID, msg.SenderRole, msg.Body, clientKey, msg.CreatedAt).Scan(&msg.ID)
	if err != nil {
		return nil, fmt.Errorf("error inserting message: %v", err)
	}

	// Preview update rides the same transaction: no reader observes a
	// preview pointing at a message that is not yet visible.
	_, err = tx.Exec(ctx,
		`UPDATE consultation_threads SET last_message = $1, last_message_at = $2 WHERE appointment_id = $3`,
		msg.Body, msg.CreatedAt, appointmentID)
	if err != nil {
		return nil, fmt.Errorf("error updating thread preview: %v", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("error committing message: %v", err)
	}

	return &msg, nil
}
