package services

import (
	"context"
	"log"
	"net/http"
	"time"

	"caresync_back_end_go/models"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v4/pgxpool"
)

// Booking boundary. The consultation subsystem only ever reads these
// rows: a thread can exist solely for an appointment booked here, and
// the scheduled time that drives gating comes from this table.

type bookAppointmentRequest struct {
	DoctorID      string `json:"doctor_id"`
	ScheduledDate string `json:"scheduled_date"`
	ScheduledTime string `json:"scheduled_time"`
}

// CreateAppointment handles POST /api/v1/appointments.
func CreateAppointment(c *gin.Context, pool *pgxpool.Pool) {
	participant, err := CurrentParticipant(c)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}
	if participant.UserType != "patient" {
		c.JSON(http.StatusForbidden, gin.H{"error": "Only patients can book appointments"})
		return
	}

	var req bookAppointmentRequest
	if err := c.BindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid input"})
		return
	}

	scheduledAt, err := time.Parse("2006-01-02 15:04", req.ScheduledDate+" "+req.ScheduledTime)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid scheduled date or time"})
		return
	}

	appointment := models.Appointment{
		AppointmentID: uuid.NewString(),
		PatientID:     participant.UserID,
		DoctorID:      req.DoctorID,
		ScheduledAt:   scheduledAt,
		Status:        "booked",
	}

	_, err = pool.Exec(context.Background(),
		`INSERT INTO appointments (appointment_id, patient_id, doctor_id, scheduled_at, status)
		VALUES ($1, $2, $3, $4, $5)`,
		appointment.AppointmentID, appointment.PatientID, appointment.DoctorID, appointment.ScheduledAt, appointment.Status)
	if err != nil {
		log.Println("Insert Error:", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal Server Error"})
		return
	}

	c.JSON(http.StatusCreated, appointment)
}

// GetAppointments handles GET /api/v1/appointments.
func GetAppointments(c *gin.Context, pool *pgxpool.Pool) {
	participant, err := CurrentParticipant(c)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}

	query := `SELECT appointment_id, patient_id, doctor_id, scheduled_at, status, created_at
		FROM appointments WHERE patient_id = $1 ORDER BY scheduled_at ASC`
	if participant.UserType == "doctor" {
		query = `SELECT appointment_id, patient_id, doctor_id, scheduled_at, status, created_at
		FROM appointments WHERE doctor_id = $1 ORDER BY scheduled_at ASC`
	}

	rows, err := pool.Query(context.Background(), query, participant.UserID)
	if err != nil {
		log.Println("Query Error:", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal Server Error"})
		return
	}
	defer rows.Close()

	var appointments []models.Appointment
	for rows.Next() {
		var a models.Appointment
		if err := rows.Scan(&a.AppointmentID, &a.PatientID, &a.DoctorID, &a.ScheduledAt, &a.Status, &a.CreatedAt); err != nil {
			log.Println("Row Scan Error:", err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal Server Error"})
			return
		}
		appointments = append(appointments, a)
	}

	c.JSON(http.StatusOK, appointments)
}
