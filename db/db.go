package db

import (
	"context"
	"fmt"
	"log"
	"os"

	"github.com/jackc/pgx/v4/pgxpool"
	"github.com/joho/godotenv"
)

func InitDatabase() (*pgxpool.Pool, error) {

	if err := godotenv.Load(); err != nil {
		log.Printf("No .env file loaded: %v", err)
	}
	host := os.Getenv("DATABASE_HOST")
	port := os.Getenv("DATABASE_PORT")
	user := os.Getenv("DATABASE_USER")
	password := os.Getenv("DATABASE_PASSWORD")
	database_name := os.Getenv("DATABASE_NAME")

	config, err := pgxpool.ParseConfig(" host=" + host + " port=" + port + " user=" + user + " password=" + password + " database=" + database_name)
	if err != nil {
		return nil, fmt.Errorf("failed to parse config: %v", err)
	}

	conn, err := pgxpool.ConnectConfig(context.Background(), config)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %v", err)
	}

	// Create tables
	sqlQueries := []string{
		`CREATE EXTENSION IF NOT EXISTS "uuid-ossp"`,

		`CREATE TABLE IF NOT EXISTS doctor_info (
			doctor_id uuid PRIMARY KEY DEFAULT uuid_generate_v4(),
			first_name VARCHAR(50) NOT NULL,
			last_name VARCHAR(50) NOT NULL,
			specialty VARCHAR(50) NOT NULL,
			email VARCHAR(50) NOT NULL,
			created_at TIMESTAMP NOT NULL DEFAULT NOW()
		)`,

		`CREATE TABLE IF NOT EXISTS patient_info (
			patient_id uuid PRIMARY KEY DEFAULT uuid_generate_v4(),
			first_name VARCHAR(50) NOT NULL,
			last_name VARCHAR(50) NOT NULL,
			email VARCHAR(50) NOT NULL,
			created_at TIMESTAMP NOT NULL DEFAULT NOW()
		)`,

		`CREATE TABLE IF NOT EXISTS appointments (
			appointment_id uuid PRIMARY KEY DEFAULT uuid_generate_v4(),
			patient_id uuid REFERENCES patient_info(patient_id),
			doctor_id uuid REFERENCES doctor_info(doctor_id),
			scheduled_at TIMESTAMP NOT NULL,
			status VARCHAR(50) NOT NULL DEFAULT 'booked',
			created_at TIMESTAMP NOT NULL DEFAULT NOW()
		)`,

		`CREATE TABLE IF NOT EXISTS consultation_threads (
			appointment_id uuid PRIMARY KEY REFERENCES appointments(appointment_id),
			patient_id uuid NOT NULL,
			doctor_id uuid NOT NULL,
			scheduled_at TIMESTAMP NOT NULL,
			last_message TEXT,
			last_message_at TIMESTAMP,
			created_at TIMESTAMP NOT NULL DEFAULT NOW()
		)`,

		`CREATE TABLE IF NOT EXISTS consultation_messages (
			id BIGSERIAL PRIMARY KEY,
			thread_id uuid NOT NULL REFERENCES consultation_threads(appointment_id),
			sender_role VARCHAR(10) NOT NULL CHECK (sender_role IN ('patient', 'doctor')),
			body TEXT NOT NULL,
			client_key uuid,
			created_at TIMESTAMP NOT NULL DEFAULT NOW()
		)`,

		`CREATE INDEX IF NOT EXISTS consultation_messages_order_idx
			ON consultation_messages (thread_id, created_at, id)`,

		`CREATE UNIQUE INDEX IF NOT EXISTS consultation_messages_client_key_idx
			ON consultation_messages (thread_id, client_key) WHERE client_key IS NOT NULL`,
	}

	for _, query := range sqlQueries {
		_, err = conn.Exec(context.Background(), query)
		if err != nil {
			return nil, fmt.Errorf("failed to create table: %v", err)
		}
	}

	return conn, nil
}
