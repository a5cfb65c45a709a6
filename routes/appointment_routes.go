package routes

import (
	"caresync_back_end_go/services"

	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v4/pgxpool"
)

func SetupAppointmentRoutes(r *gin.Engine, pool *pgxpool.Pool) {
	r.POST("/api/v1/appointments", func(c *gin.Context) {
		services.CreateAppointment(c, pool)
	})

	r.GET("/api/v1/appointments", func(c *gin.Context) {
		services.GetAppointments(c, pool)
	})
}
