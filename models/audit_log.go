package models

import "time"

const ActionPlacementImport = "placement.import"

// AuditLog is an append-only record of an administrative action.
type AuditLog struct {
	ID             string    `json:"id" bson:"_id"`
	SchoolID       string    `json:"school_id" bson:"school_id"`
	Action         string    `json:"action" bson:"action"`
	Count          int       `json:"count" bson:"count"`
	Actor          string    `json:"actor" bson:"actor"`
	NetworkAddress string    `json:"network_address" bson:"network_address"`
	Platform       string    `json:"platform" bson:"platform"`
	Timestamp      time.Time `json:"timestamp" bson:"timestamp"`
}
