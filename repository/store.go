// Package repository persists schools, programs, students, payments and the
// activity log. Postgres, Mongo and an in-memory store implement Store.
package repository

import (
	"context"

	"online-admission/models"
	"online-admission/services/placement"
)

type Store interface {
	placement.Repository

	CreateSchool(ctx context.Context, school *models.School) error
	GetSchool(ctx context.Context, schoolID string) (*models.School, error)
	SaveAdmissionConfig(ctx context.Context, cfg *models.AdmissionConfig) error

	CreateProgram(ctx context.Context, program *models.Program) error

	GetStudent(ctx context.Context, schoolID, indexNumber string) (*models.Student, error)
	ListStudents(ctx context.Context, filter models.StudentFilter) ([]models.Student, error)
	// UpdateStudentProfile stores onboarding details and marks the student completed.
	UpdateStudentProfile(ctx context.Context, profile models.StudentProfile) (*models.Student, error)

	SavePayment(ctx context.Context, payment *models.Payment) error
	GetPaymentByOrder(ctx context.Context, orderID string) (*models.Payment, error)
	UpdatePaymentStatus(ctx context.Context, orderID, status string) error
	// CompletePayment marks the order paid and sets the student's hasPaid flag.
	// Completing an already paid order is a no-op.
	CompletePayment(ctx context.Context, orderID, paymentID string) (*models.Payment, error)

	ListLogs(ctx context.Context, schoolID string, limit int) ([]models.AuditLog, error)

	Close() error
}

const defaultLogLimit = 100

func logLimit(limit int) int {
	if limit <= 0 || limit > 1000 {
		return defaultLogLimit
	}
	return limit
}
