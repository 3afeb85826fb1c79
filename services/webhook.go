package services

import (
	"context"
	"encoding/json"

	apperrors "online-admission/errors"
	"online-admission/logger"
	"online-admission/utils"
)

// RazorpayWebhookPayload represents the structure of Razorpay webhook payload
type RazorpayWebhookPayload struct {
	ID        string                 `json:"id"`
	Event     string                 `json:"event"`
	CreatedAt int64                  `json:"created_at"`
	Contains  []string               `json:"contains"`
	Payload   map[string]interface{} `json:"payload"`
}

// WebhookResult says what a webhook delivery did.
type WebhookResult struct {
	Event     string `json:"event"`
	Status    string `json:"status"`
	OrderID   string `json:"order_id,omitempty"`
	PaymentID string `json:"payment_id,omitempty"`
}

// HandleWebhook verifies and applies a Razorpay webhook delivery. Events
// other than captured, paid and failed payments are acknowledged and ignored.
func (s *PaymentService) HandleWebhook(ctx context.Context, body []byte, signature string) (*WebhookResult, error) {
	if !VerifySignature(string(body), signature, s.webhookSecret) {
		return nil, apperrors.E(apperrors.Unauthorized, "invalid webhook signature")
	}

	var payload RazorpayWebhookPayload
	if err := json.Unmarshal(body, &payload); err != nil {
		return nil, apperrors.E(apperrors.Invalid, "invalid payload format", err)
	}
	logger.Info("[WEBHOOK] Received: %s", payload.Event)

	result := &WebhookResult{Event: payload.Event, Status: "acknowledged"}
	switch payload.Event {
	case "payment.captured", "order.paid", "payment.failed":
	default:
		return result, nil
	}

	orderID, paymentID := paymentEntity(payload.Payload)
	if orderID == "" || paymentID == "" {
		return nil, apperrors.E(apperrors.Invalid, "missing payment_id or order_id")
	}
	result.OrderID, result.PaymentID = orderID, paymentID

	if payload.Event == "payment.failed" {
		payment, err := s.store.GetPaymentByOrder(ctx, orderID)
		if err != nil {
			return nil, err
		}
		if payment.Status != utils.PaymentPaid {
			if err := s.store.UpdatePaymentStatus(ctx, orderID, utils.PaymentFailed); err != nil {
				return nil, err
			}
		}
		result.Status = "processed"
		return result, nil
	}

	if _, err := s.complete(ctx, orderID, paymentID); err != nil {
		return nil, err
	}
	result.Status = "processed"
	return result, nil
}

func paymentEntity(payload map[string]interface{}) (orderID, paymentID string) {
	paymentMap, ok := payload["payment"].(map[string]interface{})
	if !ok {
		return "", ""
	}
	entity, ok := paymentMap["entity"].(map[string]interface{})
	if !ok {
		return "", ""
	}
	paymentID, _ = entity["id"].(string)
	orderID, _ = entity["order_id"].(string)
	return orderID, paymentID
}
