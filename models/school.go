package models

import "time"

type School struct {
	SchoolID  string    `json:"school_id" bson:"school_id" validate:"required"`
	Name      string    `json:"name" bson:"name" validate:"required"`
	ShortName string    `json:"short_name" bson:"short_name"`
	Location  string    `json:"location" bson:"location"`
	Email     string    `json:"email" bson:"email" validate:"omitempty,email"`
	Phone     string    `json:"phone" bson:"phone"`
	CreatedAt time.Time `json:"created_at" bson:"created_at"`
}

// AdmissionConfig is the current admission cycle of a school.
type AdmissionConfig struct {
	SchoolID       string  `json:"school_id" bson:"school_id"`
	Year           string  `json:"year" bson:"year" validate:"required"`
	PlacementFee   float64 `json:"placement_fee" bson:"placement_fee" validate:"gte=0"`
	Currency       string  `json:"currency" bson:"currency"`
	Open           bool    `json:"open" bson:"open"`
	ProspectusKey  string  `json:"prospectus_key,omitempty" bson:"prospectus_key,omitempty"`
	UndertakingKey string  `json:"undertaking_key,omitempty" bson:"undertaking_key,omitempty"`
}
