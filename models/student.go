package models

import "time"

// Student is a placed candidate admitted into a school.
type Student struct {
	SchoolID        string    `json:"school_id" bson:"school_id"`
	IndexNumber     string    `json:"index_number" bson:"index_number"`
	AdmissionNumber int       `json:"admission_number" bson:"admission_number"`
	Year            string    `json:"year" bson:"year"`
	FirstName       string    `json:"first_name" bson:"first_name"`
	LastName        string    `json:"last_name" bson:"last_name"`
	Gender          string    `json:"gender" bson:"gender"`
	Status          string    `json:"status" bson:"status"`
	ProgramRef      *string   `json:"program_id,omitempty" bson:"program_id,omitempty"`
	Aggregate       *float64  `json:"aggregate,omitempty" bson:"aggregate,omitempty"`
	JHSAttended     string    `json:"jhs_attended" bson:"jhs_attended"`
	DateOfBirth     string    `json:"date_of_birth" bson:"date_of_birth"`
	SMSContact      string    `json:"sms_contact" bson:"sms_contact"`
	Completed       bool      `json:"completed" bson:"completed"`
	HasPaid         bool      `json:"has_paid" bson:"has_paid"`
	Email           string    `json:"email,omitempty" bson:"email,omitempty"`
	GuardianName    string    `json:"guardian_name,omitempty" bson:"guardian_name,omitempty"`
	GuardianContact string    `json:"guardian_contact,omitempty" bson:"guardian_contact,omitempty"`
	Address         string    `json:"residential_address,omitempty" bson:"residential_address,omitempty"`
	House           string    `json:"house,omitempty" bson:"house,omitempty"`
	CreatedAt       time.Time `json:"created_at" bson:"created_at"`
	UpdatedAt       time.Time `json:"updated_at" bson:"updated_at"`
}

// FullName joins first and last name.
func (s *Student) FullName() string {
	switch {
	case s.FirstName == "":
		return s.LastName
	case s.LastName == "":
		return s.FirstName
	}
	return s.FirstName + " " + s.LastName
}

// Program returns the referenced program id or "" when unmapped.
func (s *Student) Program() string {
	if s.ProgramRef == nil {
		return ""
	}
	return *s.ProgramRef
}

// StudentProfile holds the fields a student fills in during onboarding.
type StudentProfile struct {
	SchoolID        string `json:"-"`
	IndexNumber     string `json:"index_number" validate:"required"`
	Email           string `json:"email" validate:"required,email"`
	GuardianName    string `json:"guardian_name" validate:"required,min=2"`
	GuardianContact string `json:"guardian_contact" validate:"required,min=9,max=15"`
	Address         string `json:"residential_address" validate:"required"`
	House           string `json:"house"`
}

// StudentFilter narrows student listings.
type StudentFilter struct {
	SchoolID  string
	ProgramID string
	Status    string
	Completed *bool
	HasPaid   *bool
	Search    string
	Limit     int
	Offset    int
}
