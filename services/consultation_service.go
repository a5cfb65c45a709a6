package services

import (
	"errors"
	"log"
	"net/http"
	"strings"

	"caresync_back_end_go/auth"

	"github.com/gin-gonic/gin"
)

// CurrentParticipant resolves the caller from the Authorization bearer
// token.
func CurrentParticipant(c *gin.Context) (Participant, error) {
	header := c.GetHeader("Authorization")
	if !strings.HasPrefix(header, "Bearer ") {
		return Participant{}, ErrUnauthorized
	}
	tokenString := strings.TrimPrefix(header, "Bearer ")

	userID, userType, err := auth.ParseToken(tokenString)
	if err != nil {
		return Participant{}, ErrUnauthorized
	}
	return Participant{UserID: userID, UserType: userType}, nil
}

// ListConsultationThreads handles GET /api/v1/consultations.
func ListConsultationThreads(c *gin.Context, store ConsultationStore) {
	participant, err := CurrentParticipant(c)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}

	threads, err := store.ListThreads(c.Request.Context(), participant)
	if err != nil {
		log.Printf("Failed to list consultations for %s: %v", participant.UserID, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to retrieve consultations"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"threads": threads})
}

// GetConsultationMessages handles GET /api/v1/consultations/:appointmentId/messages.
// A gated thread is not an error: the response is still 200 with
// can_chat false, since waiting for the appointment time is an
// expected, displayable state.
func GetConsultationMessages(c *gin.Context, store ConsultationStore) {
	participant, err := CurrentParticipant(c)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}
	appointmentID := c.Param("appointmentId")

	list, err := store.ListMessages(c.Request.Context(), appointmentID, participant)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Appointment not found"})
			return
		}
		log.Printf("Failed to list messages for appointment %s: %v", appointmentID, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to retrieve messages"})
		return
	}

	c.JSON(http.StatusOK, list)
}

type sendMessageRequest struct {
	Body string `json:"body"`
}

// SendConsultationMessage handles POST /api/v1/consultations/:appointmentId/messages.
func SendConsultationMessage(c *gin.Context, store ConsultationStore) {
	participant, err := CurrentParticipant(c)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}
	appointmentID := c.Param("appointmentId")

	var req sendMessageRequest
	if err := c.BindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid message format: " + err.Error()})
		return
	}
	clientKey := c.GetHeader("Idempotency-Key")

	msg, err := store.AppendMessage(c.Request.Context(), appointmentID, participant, req.Body, clientKey)
	switch {
	case err == nil:
		c.JSON(http.StatusCreated, msg)
	case errors.Is(err, ErrEmptyMessage):
		c.JSON(http.StatusBadRequest, gin.H{"error": "Message body must not be empty"})
	case errors.Is(err, ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "Appointment not found"})
	case errors.Is(err, ErrChatNotYetAvailable):
		// can_chat rides the error body so clients can flip their
		// local gating state without waiting for the next poll.
		c.JSON(http.StatusForbidden, gin.H{
			"error":    "Chat is not available until the appointment time",
			"can_chat": false,
		})
	default:
		log.Printf("Failed to store message for appointment %s: %v", appointmentID, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to store message"})
	}
}
