package utils

// Residential status of a placed student
const (
	StatusDay      = "day"
	StatusBoarding = "boarding"
)

// Payment Status Constants
const (
	PaymentPending = "PENDING"
	PaymentPaid    = "PAID"
	PaymentFailed  = "FAILED"
)

// Document kinds an admin can distribute
const (
	DocumentProspectus  = "prospectus"
	DocumentUndertaking = "undertaking"
)

// Request metadata headers
const (
	HeaderSchoolID = "X-School-ID"
	HeaderActorID  = "X-Actor-ID"
)

const DefaultCurrency = "GHS"
