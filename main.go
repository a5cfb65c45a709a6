package main

import (
	"log"
	"time"

	"caresync_back_end_go/db"
	"caresync_back_end_go/routes"
	"caresync_back_end_go/services"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
)

func main() {
	r := gin.Default()

	config := cors.Config{
		AllowOrigins:     []string{"http://localhost:3000"},
		AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Content-Length", "Authorization", "Idempotency-Key"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}
	r.Use(cors.New(config))

	// Initialize database
	conn, err := db.InitDatabase()
	if err != nil {
		log.Fatalf("Failed to connect to the database: %v", err)
	}
	defer conn.Close()

	store := &services.PostgresStore{Pool: conn}

	// Initialize routes
	routes.SetupAppointmentRoutes(r, conn)
	routes.SetupConsultationRoutes(r, store)

	// Start server
	r.Run(":3001")
}
