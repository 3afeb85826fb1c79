// Package placement imports placement lists into a school's student roster.
//
// A batch runs Parsing, Mapping, Filtering, Allocating and Committing in order
// and ends in Done or Failed. Filtering through Committing hold a per-school
// lock so concurrent uploads for one school cannot hand out the same
// admission number.
package placement

import (
	"context"
	"io"
	"time"

	"online-admission/models"
)

// State is the stage a batch reached.
type State string

const (
	StateIdle       State = "idle"
	StateParsing    State = "parsing"
	StateMapping    State = "mapping"
	StateFiltering  State = "filtering"
	StateAllocating State = "allocating"
	StateCommitting State = "committing"
	StateDone       State = "done"
	StateFailed     State = "failed"
)

// Repository is the storage the pipeline reads from and writes to.
type Repository interface {
	ListPrograms(ctx context.Context, schoolID string) ([]models.Program, error)
	// GetAdmissionConfig returns a NotFound error when the school has none.
	GetAdmissionConfig(ctx context.Context, schoolID string) (*models.AdmissionConfig, error)
	ExistingIndexNumbers(ctx context.Context, schoolID string, candidates []string) (map[string]struct{}, error)
	// MaxAdmissionNumber returns 0 when the school has no students.
	MaxAdmissionNumber(ctx context.Context, schoolID string) (int, error)
	// CommitStudent creates the student and increments the enrolled count of
	// its program, if any.
	CommitStudent(ctx context.Context, s *models.Student) error
	AppendLog(ctx context.Context, entry *models.AuditLog) error
}

// Locker serializes batches per school.
type Locker interface {
	Lock(ctx context.Context, key string) (unlock func(), err error)
}

type Clock interface {
	Now() time.Time
}

// ClockFunc adapts a function to Clock.
type ClockFunc func() time.Time

func (f ClockFunc) Now() time.Time { return f() }

// Notifier is told about every completed import. Failures are logged and
// never fail the batch.
type Notifier interface {
	Imported(ctx context.Context, summary Summary) error
}

// Client describes where an upload came from.
type Client struct {
	NetworkAddress string `json:"network_address"`
	Platform       string `json:"platform"`
}

// Request is one uploaded placement list.
type Request struct {
	SchoolID    string
	Actor       string
	Client      Client
	Filename    string
	ContentType string
	Body        io.Reader
}

// Result reports what a batch did. It is returned alongside errors so the
// caller can show partial progress.
type Result struct {
	State                State            `json:"state"`
	FailedAt             State            `json:"failed_at,omitempty"`
	Parsed               int              `json:"parsed"`
	Duplicates           int              `json:"duplicates"`
	Unmapped             int              `json:"unmapped"`
	Committed            int              `json:"committed"`
	Failed               int              `json:"failed"`
	FirstAdmissionNumber int              `json:"first_admission_number,omitempty"`
	LastAdmissionNumber  int              `json:"last_admission_number,omitempty"`
	Students             []models.Student `json:"students,omitempty"`
	Log                  *models.AuditLog `json:"log,omitempty"`
}

// Summary is published once a batch is Done.
type Summary struct {
	LogID                string    `json:"log_id"`
	SchoolID             string    `json:"school_id"`
	Actor                string    `json:"actor"`
	Count                int       `json:"count"`
	Duplicates           int       `json:"duplicates"`
	Unmapped             int       `json:"unmapped"`
	FirstAdmissionNumber int       `json:"first_admission_number,omitempty"`
	LastAdmissionNumber  int       `json:"last_admission_number,omitempty"`
	Timestamp            time.Time `json:"timestamp"`
}
