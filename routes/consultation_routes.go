package routes

import (
	"caresync_back_end_go/services"

	"github.com/gin-gonic/gin"
)

func SetupConsultationRoutes(r *gin.Engine, store services.ConsultationStore) {
	// Endpoint to list the caller's consultation threads
	r.GET("/api/v1/consultations", func(c *gin.Context) {
		services.ListConsultationThreads(c, store)
	})

	// Endpoint to retrieve messages and gating state for one appointment
	r.GET("/api/v1/consultations/:appointmentId/messages", func(c *gin.Context) {
		services.GetConsultationMessages(c, store)
	})

	// Endpoint to send a message into an appointment's thread
	r.POST("/api/v1/consultations/:appointmentId/messages", func(c *gin.Context) {
		services.SendConsultationMessage(c, store)
	})
}
