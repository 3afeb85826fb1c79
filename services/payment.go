package services

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"math"
	"time"

	"github.com/google/uuid"
	"github.com/razorpay/razorpay-go"

	"online-admission/config"
	apperrors "online-admission/errors"
	"online-admission/logger"
	"online-admission/models"
	"online-admission/repository"
	"online-admission/services/kafka"
	"online-admission/utils"
)

// OrderCreator creates payment gateway orders. *razorpay.Client's Order
// resource satisfies it.
type OrderCreator interface {
	Create(data map[string]interface{}, extraHeaders map[string]string) (map[string]interface{}, error)
}

// PaymentService gates student self-service behind the school's placement fee.
type PaymentService struct {
	store         repository.Store
	orders        OrderCreator
	keyID         string
	keySecret     string
	webhookSecret string
}

// NewPaymentService builds a PaymentService backed by Razorpay using the
// configured credentials.
func NewPaymentService(store repository.Store, cfg config.Config) *PaymentService {
	var orders OrderCreator
	if cfg.RazorpayKeyID != "" && cfg.RazorpayKeySecret != "" {
		orders = razorpay.NewClient(cfg.RazorpayKeyID, cfg.RazorpayKeySecret).Order
	}
	return &PaymentService{
		store:         store,
		orders:        orders,
		keyID:         cfg.RazorpayKeyID,
		keySecret:     cfg.RazorpayKeySecret,
		webhookSecret: cfg.RazorpayWebhookSecret,
	}
}

// WithOrderCreator replaces the gateway client.
func (s *PaymentService) WithOrderCreator(orders OrderCreator) *PaymentService {
	s.orders = orders
	return s
}

// InitiatePayment creates a gateway order for the placement fee and records
// a PENDING payment.
func (s *PaymentService) InitiatePayment(ctx context.Context, schoolID, indexNumber string) (*models.RazorpayOrder, error) {
	if s.orders == nil {
		return nil, apperrors.E(apperrors.FailedPrecondition, "razorpay credentials not configured")
	}

	student, err := s.store.GetStudent(ctx, schoolID, indexNumber)
	if err != nil {
		return nil, err
	}
	if student.HasPaid {
		return nil, apperrors.E(apperrors.Conflict, "placement fee already paid")
	}

	admission, err := s.store.GetAdmissionConfig(ctx, schoolID)
	if err != nil {
		if apperrors.IsNotFound(err) {
			return nil, apperrors.E(apperrors.FailedPrecondition, "admission is not configured for this school")
		}
		return nil, err
	}
	if admission.PlacementFee <= 0 {
		return nil, apperrors.E(apperrors.FailedPrecondition, "placement fee is not configured")
	}
	currency := admission.Currency
	if currency == "" {
		currency = utils.DefaultCurrency
	}

	receipt := receiptFor(schoolID, indexNumber)
	resp, err := s.orders.Create(map[string]interface{}{
		"amount":   int64(math.Round(admission.PlacementFee * 100)),
		"currency": currency,
		"receipt":  receipt,
		"notes": map[string]interface{}{
			"school_id":    schoolID,
			"index_number": indexNumber,
		},
	}, nil)
	if err != nil {
		return nil, apperrors.E(apperrors.Internal, "error creating razorpay order", err)
	}
	orderID, _ := resp["id"].(string)
	if orderID == "" {
		return nil, apperrors.E(apperrors.Internal, "razorpay order has no id")
	}

	now := time.Now().UTC()
	payment := &models.Payment{
		ID:          uuid.NewString(),
		SchoolID:    schoolID,
		IndexNumber: indexNumber,
		OrderID:     orderID,
		Amount:      admission.PlacementFee,
		Currency:    currency,
		Status:      utils.PaymentPending,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := s.store.SavePayment(ctx, payment); err != nil {
		return nil, fmt.Errorf("error saving payment: %w", err)
	}

	logger.Info("Payment initiated for %s/%s, order %s", schoolID, indexNumber, orderID)
	return &models.RazorpayOrder{
		OrderID:  orderID,
		Amount:   admission.PlacementFee,
		Currency: currency,
		Receipt:  receipt,
		KeyID:    s.keyID,
	}, nil
}

// receiptFor stays within Razorpay's 40 character receipt limit.
func receiptFor(schoolID, indexNumber string) string {
	r := fmt.Sprintf("rcpt_%s_%s", schoolID, indexNumber)
	if len(r) > 40 {
		r = r[:40]
	}
	return r
}

// VerifyPayment checks the checkout signature and completes the payment. A
// bad signature marks the payment FAILED.
func (s *PaymentService) VerifyPayment(ctx context.Context, orderID, paymentID, signature string) (*models.Payment, error) {
	if orderID == "" || paymentID == "" || signature == "" {
		return nil, apperrors.E(apperrors.Invalid, "order_id, payment_id and signature are required")
	}
	payment, err := s.store.GetPaymentByOrder(ctx, orderID)
	if err != nil {
		return nil, err
	}

	if !VerifySignature(orderID+"|"+paymentID, signature, s.keySecret) {
		if payment.Status != utils.PaymentPaid {
			if err := s.store.UpdatePaymentStatus(ctx, orderID, utils.PaymentFailed); err != nil {
				logger.Error("Error marking payment %s failed: %v", orderID, err)
			}
		}
		return nil, apperrors.E(apperrors.Invalid, "invalid payment signature")
	}

	return s.complete(ctx, orderID, paymentID)
}

func (s *PaymentService) complete(ctx context.Context, orderID, paymentID string) (*models.Payment, error) {
	payment, err := s.store.CompletePayment(ctx, orderID, paymentID)
	if err != nil {
		return nil, err
	}
	logger.Info("Payment completed for %s/%s, order %s", payment.SchoolID, payment.IndexNumber, orderID)

	evt := map[string]interface{}{
		"event":        kafka.EventPaymentCompleted,
		"school_id":    payment.SchoolID,
		"index_number": payment.IndexNumber,
		"order_id":     orderID,
		"payment_id":   paymentID,
		"amount":       payment.Amount,
		"currency":     payment.Currency,
		"ts":           time.Now().UTC().Format(time.RFC3339),
	}
	if err := publishEvent(config.AppConfig.KafkaTopicPayment, payment.SchoolID, evt); err != nil {
		logger.Warn("Failed to publish payment event for %s: %v", orderID, err)
	}
	return payment, nil
}

// VerifySignature reports whether signature is the hex HMAC-SHA256 of
// payload keyed by secret.
func VerifySignature(payload, signature, secret string) bool {
	if secret == "" || signature == "" {
		return false
	}
	h := hmac.New(sha256.New, []byte(secret))
	h.Write([]byte(payload))
	expected := hex.EncodeToString(h.Sum(nil))
	return hmac.Equal([]byte(expected), []byte(signature))
}
