package models

// Program is a course of study offered by a school.
type Program struct {
	SchoolID      string `json:"school_id" bson:"school_id"`
	ProgramID     string `json:"program_id" bson:"program_id" validate:"required"`
	Name          string `json:"name" bson:"name" validate:"required"`
	ShortName     string `json:"short_name" bson:"short_name"`
	EnrolledCount int    `json:"enrolled_count" bson:"enrolled_count"`
}
