package db

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/lib/pq"

	"online-admission/config"
	"online-admission/logger"
)

var DB *sql.DB

func InitDB() error {
	var err error
	connStr := config.GetDBConnString()

	DB, err = sql.Open("postgres", connStr)
	if err != nil {
		return fmt.Errorf("error opening database: %w", err)
	}
	DB.SetMaxOpenConns(25)
	DB.SetMaxIdleConns(5)
	DB.SetConnMaxLifetime(30 * time.Minute)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	// Test the connection
	if err = DB.PingContext(ctx); err != nil {
		return fmt.Errorf("error connecting to database: %w", err)
	}

	if err := CreateTables(ctx, DB); err != nil {
		return fmt.Errorf("error creating tables: %w", err)
	}

	logger.Info("Connected to postgres %s:%s/%s", config.AppConfig.DBHost, config.AppConfig.DBPort, config.AppConfig.DBName)
	return nil
}

// CreateTables creates the admission schema when it does not exist yet.
func CreateTables(ctx context.Context, db *sql.DB) error {
	statements := []struct {
		name string
		sql  string
	}{
		{"schools", `
	CREATE TABLE IF NOT EXISTS schools (
		school_id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		short_name TEXT,
		location TEXT,
		email TEXT,
		phone TEXT,
		created_at TIMESTAMPTZ DEFAULT CURRENT_TIMESTAMP
	);`},
		{"admissions", `
	CREATE TABLE IF NOT EXISTS admissions (
		school_id TEXT PRIMARY KEY REFERENCES schools(school_id) ON DELETE CASCADE,
		year TEXT NOT NULL,
		placement_fee NUMERIC(12,2) DEFAULT 0,
		currency TEXT DEFAULT 'GHS',
		open BOOLEAN DEFAULT TRUE,
		prospectus_key TEXT,
		undertaking_key TEXT
	);`},
		{"programs", `
	CREATE TABLE IF NOT EXISTS programs (
		school_id TEXT NOT NULL,
		program_id TEXT NOT NULL,
		name TEXT NOT NULL,
		short_name TEXT,
		enrolled_count INTEGER NOT NULL DEFAULT 0,
		PRIMARY KEY (school_id, program_id)
	);`},
		{"students", `
	CREATE TABLE IF NOT EXISTS students (
		school_id TEXT NOT NULL,
		index_number TEXT NOT NULL,
		admission_number INTEGER NOT NULL,
		year TEXT,
		first_name TEXT,
		last_name TEXT,
		gender TEXT,
		status TEXT,
		program_id TEXT,
		aggregate DOUBLE PRECISION,
		jhs_attended TEXT,
		date_of_birth TEXT,
		sms_contact TEXT,
		completed BOOLEAN NOT NULL DEFAULT FALSE,
		has_paid BOOLEAN NOT NULL DEFAULT FALSE,
		email TEXT,
		guardian_name TEXT,
		guardian_contact TEXT,
		residential_address TEXT,
		house TEXT,
		created_at TIMESTAMPTZ DEFAULT CURRENT_TIMESTAMP,
		updated_at TIMESTAMPTZ DEFAULT CURRENT_TIMESTAMP,

		PRIMARY KEY (school_id, index_number),
		CONSTRAINT uq_students_admission_number UNIQUE (school_id, admission_number),
		CONSTRAINT fk_program
			FOREIGN KEY (school_id, program_id)
			REFERENCES programs(school_id, program_id)
	);`},
		{"activity_logs", `
	CREATE TABLE IF NOT EXISTS activity_logs (
		id UUID PRIMARY KEY,
		school_id TEXT NOT NULL,
		action TEXT NOT NULL,
		count INTEGER NOT NULL DEFAULT 0,
		actor TEXT,
		network_address TEXT,
		platform TEXT,
		timestamp TIMESTAMPTZ NOT NULL
	);`},
		{"payments", `
	CREATE TABLE IF NOT EXISTS payments (
		id UUID PRIMARY KEY,
		school_id TEXT NOT NULL,
		index_number TEXT NOT NULL,
		order_id TEXT NOT NULL UNIQUE,
		payment_id TEXT,
		amount NUMERIC(12,2),
		currency TEXT,
		status TEXT NOT NULL,
		created_at TIMESTAMPTZ DEFAULT CURRENT_TIMESTAMP,
		updated_at TIMESTAMPTZ DEFAULT CURRENT_TIMESTAMP,

		CONSTRAINT fk_student
			FOREIGN KEY (school_id, index_number)
			REFERENCES students(school_id, index_number)
			ON DELETE CASCADE
	);`},
		{"dlq_messages", `
	CREATE TABLE IF NOT EXISTS dlq_messages (
		message_id UUID PRIMARY KEY,
		topic TEXT NOT NULL,
		key TEXT,
		value TEXT,
		error_message TEXT,
		retry_count INTEGER NOT NULL DEFAULT 0,
		max_retries INTEGER NOT NULL DEFAULT 5,
		resolved BOOLEAN NOT NULL DEFAULT FALSE,
		resolved_at TIMESTAMPTZ,
		last_retry_at TIMESTAMPTZ,
		notes TEXT,
		created_at TIMESTAMPTZ DEFAULT CURRENT_TIMESTAMP
	);`},
		{"activity_logs index", `CREATE INDEX IF NOT EXISTS idx_activity_logs_school ON activity_logs (school_id, timestamp DESC);`},
	}

	for _, st := range statements {
		if _, err := db.ExecContext(ctx, st.sql); err != nil {
			return fmt.Errorf("error creating %s table: %w", st.name, err)
		}
	}
	return nil
}
