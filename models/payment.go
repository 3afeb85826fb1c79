package models

import "time"

type Payment struct {
	ID          string    `json:"id" bson:"_id"`
	SchoolID    string    `json:"school_id" bson:"school_id"`
	IndexNumber string    `json:"index_number" bson:"index_number"`
	OrderID     string    `json:"order_id" bson:"order_id"`
	PaymentID   string    `json:"payment_id,omitempty" bson:"payment_id,omitempty"`
	Amount      float64   `json:"amount" bson:"amount"`
	Currency    string    `json:"currency" bson:"currency"`
	Status      string    `json:"status" bson:"status"`
	CreatedAt   time.Time `json:"created_at" bson:"created_at"`
	UpdatedAt   time.Time `json:"updated_at" bson:"updated_at"`
}

type RazorpayOrder struct {
	OrderID  string  `json:"order_id"`
	Amount   float64 `json:"amount"`
	Currency string  `json:"currency"`
	Receipt  string  `json:"receipt"`
	KeyID    string  `json:"key_id"`
}
